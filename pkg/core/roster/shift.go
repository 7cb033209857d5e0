// Package roster builds the scheduling context for one month: shift and
// employee descriptors enriched with the derived data the constraint model
// needs, plus the aggregate work-time figures that drive the hour bands.
package roster

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/plannerd/monthroster/pkg/core/calendar"
	"github.com/plannerd/monthroster/pkg/core/model"
)

const minutesPerDay = 24 * 60

// ShiftInfo wraps a shift type with the derived data the model builder
// needs: the wall-clock duration, the overnight flag and the days the
// workplace is closed.
type ShiftInfo struct {
	ShiftType model.ShiftType

	// ID is the ordinal decision-variable id. 0 is always the free shift.
	ID int

	// Duration of the shift in minutes; wraps midnight for overnight shifts.
	Duration int

	closingDays []time.Time
}

// NewShiftInfo wraps a shift type under the given ordinal id.
func NewShiftInfo(st model.ShiftType, id int) *ShiftInfo {
	duration := st.End.MinuteOfDay() - st.Start.MinuteOfDay()
	if duration < 0 {
		duration += minutesPerDay
	}
	return &ShiftInfo{ShiftType: st, ID: id, Duration: duration}
}

// NewFreeShift builds the synthetic zero-duration "off" shift.
func NewFreeShift() *ShiftInfo {
	return NewShiftInfo(model.ShiftType{
		ID:         model.FreeShiftID,
		Name:       "-",
		ActiveDays: model.EveryDay,
		IsUsed:     true,
	}, model.FreeShiftID)
}

func (s *ShiftInfo) IsFree() bool {
	return s.ID == model.FreeShiftID
}

func (s *ShiftInfo) DurationMinutes() int {
	return s.Duration
}

func (s *ShiftInfo) DurationHours() int {
	return s.Duration / 60
}

// Overnight reports whether the shift ends on the day after it starts.
func (s *ShiftInfo) Overnight() bool {
	return !s.IsFree() && s.ShiftType.End.Hour < s.ShiftType.Start.Hour
}

// SetClosings expands the workplace-closing date ranges that apply to this
// shift's workplace into individual closed days. Must be called before the
// shift participates in cover constraints.
func (s *ShiftInfo) SetClosings(closings []model.WorkplaceClosing) {
	s.closingDays = s.closingDays[:0]
	for _, cl := range closings {
		if cl.WorkplaceID != s.ShiftType.WorkplaceID {
			continue
		}
		for d := cl.Start; !d.After(cl.End); d = d.AddDate(0, 0, 1) {
			s.closingDays = append(s.closingDays, d)
		}
	}
}

// ClosingDaysInMonth returns the days of the target month on which the
// shift's workplace is closed.
func (s *ShiftInfo) ClosingDaysInMonth(month, year int) []int {
	var days []int
	for _, d := range s.closingDays {
		if int(d.Month()) == month && d.Year() == year {
			days = append(days, d.Day())
		}
	}
	return days
}

// ActiveDaysInMonth expands the shift's weekday mask into the concrete days
// of the target month on which the shift runs.
func (s *ShiftInfo) ActiveDaysInMonth(year, month int) []int {
	weekdays := rruleWeekdays(s.ShiftType.ActiveDays)
	if len(weekdays) == 0 {
		return nil
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, time.Month(month), calendar.DaysInMonth(year, month), 0, 0, 0, 0, time.UTC)

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: weekdays,
		Dtstart:   first,
		Until:     last,
	})
	if err != nil {
		return nil
	}

	var days []int
	for _, occ := range rule.All() {
		days = append(days, occ.Day())
	}
	return days
}

// SchedulableDaysInMonth returns the active days minus the closed days.
func (s *ShiftInfo) SchedulableDaysInMonth(year, month int) []int {
	closed := make(map[int]bool)
	for _, d := range s.ClosingDaysInMonth(month, year) {
		closed[d] = true
	}

	var days []int
	for _, d := range s.ActiveDaysInMonth(year, month) {
		if !closed[d] {
			days = append(days, d)
		}
	}
	return days
}

func rruleWeekdays(mask model.ActiveDays) []rrule.Weekday {
	all := []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}
	var weekdays []rrule.Weekday
	for i, wd := range all {
		if mask.On(i) {
			weekdays = append(weekdays, wd)
		}
	}
	return weekdays
}
