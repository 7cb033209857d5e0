package roster

import (
	"sort"

	"go.uber.org/zap"

	"github.com/plannerd/monthroster/internal/config"
	"github.com/plannerd/monthroster/pkg/core/calendar"
	"github.com/plannerd/monthroster/pkg/core/model"
)

// Transition is an ordered pair of shifts that may not (or should not) be
// worked on consecutive days. Penalty 0 forbids the transition outright.
type Transition struct {
	From    int
	To      int
	Penalty int
}

// ShiftBand attaches a soft-bounded constraint band to one shift.
type ShiftBand struct {
	ShiftID int
	Band    config.Band
}

// Request is a soft preference: the employee would like the shift on the
// day. Negative weights reward fulfilment in the minimization objective.
type Request struct {
	EmployeeID int
	ShiftID    int
	Day        int
	Weight     int
}

// FixedAssignment pins the employee to the shift on the day.
type FixedAssignment struct {
	EmployeeID int
	ShiftID    int
	Day        int
}

// Context aggregates everything one solve invocation needs: shift and
// employee descriptors, the month partitions, the derived work-time figures
// and the prepared constraint inputs. It is built fresh per invocation and
// never shared between solves.
type Context struct {
	Employees  []*EmployeeInfo
	ShiftTypes []*ShiftInfo // ShiftTypes[0] is always the free shift

	Year    int
	Month   int
	NumDays int

	MonthByWeeks        [][]calendar.Day
	MonthByBillingWeeks [][]calendar.Day

	// JobTime is the full-time hours baseline for the month.
	JobTime int

	Requests         []Request
	FixedAssignments []FixedAssignment

	IllegalTransitions []Transition
	OvernightSequences []ShiftBand
	OvernightWeekly    []ShiftBand

	// TotalWorkTime is the cover demand for the month in hours; TotalJobTime
	// the sum of contracted hours; MaxWorkTime the sum of per-employee legal
	// caps.
	TotalWorkTime int
	TotalJobTime  int
	MaxWorkTime   int

	JobTimeMultiplier     float64
	OvertimeMultiplier    float64
	OvertimeForFullTimers bool
	OvertimeAboveFullTime int

	cfg    *config.Config
	logger *zap.Logger

	shiftByTypeID map[int]*ShiftInfo
}

// NewContext builds the scheduling context for one month. shiftTypes must
// not include the free shift; it is prepended here. closings maps workplace
// ids to their closing ranges.
func NewContext(
	employees []*EmployeeInfo,
	shiftTypes []model.ShiftType,
	closings map[int][]model.WorkplaceClosing,
	year, month, baselineHours int,
	cfg *config.Config,
	logger *zap.Logger,
) *Context {
	c := &Context{
		Employees:           employees,
		Year:                year,
		Month:               month,
		NumDays:             calendar.DaysInMonth(year, month),
		MonthByWeeks:        calendar.WeeksOfMonth(year, month),
		MonthByBillingWeeks: calendar.BillingWeeksOfMonth(year, month),
		JobTime:             baselineHours,
		cfg:                 cfg,
		logger:              logger,
		shiftByTypeID:       make(map[int]*ShiftInfo),
	}

	c.ShiftTypes = append(c.ShiftTypes, NewFreeShift())
	for _, st := range shiftTypes {
		if !st.IsUsed || st.IsArchive {
			continue
		}
		si := NewShiftInfo(st, len(c.ShiftTypes))
		c.ShiftTypes = append(c.ShiftTypes, si)
		c.shiftByTypeID[st.ID] = si
		logger.Debug("shift descriptor ready",
			zap.Int("shift_id", si.ID),
			zap.String("name", st.Name),
			zap.Int("duration_hours", si.DurationHours()),
			zap.Int("demand", st.Demand),
			zap.Bool("overnight", si.Overnight()))
	}

	c.IllegalTransitions = c.findIllegalTransitions()
	c.OvernightSequences, c.OvernightWeekly = c.findOvernightShifts()

	for _, si := range c.ShiftTypes[1:] {
		si.SetClosings(closings[si.ShiftType.WorkplaceID])
	}

	c.TotalWorkTime = c.calculateTotalWorkTime()
	for _, ei := range c.Employees {
		c.TotalJobTime += ei.JobTime
	}
	c.MaxWorkTime = c.calculateMaxWorkTime()

	sort.SliceStable(c.Employees, func(i, j int) bool {
		return c.Employees[i].MaxWorkTime < c.Employees[j].MaxWorkTime
	})

	c.calculateMultipliers()

	c.Requests = c.prepareRequests()
	c.FixedAssignments = c.prepareFixedAssignments()

	c.logContextData()

	return c
}

// ShiftByID returns the shift descriptor for an ordinal id.
func (c *Context) ShiftByID(id int) *ShiftInfo {
	for _, si := range c.ShiftTypes {
		if si.ID == id {
			return si
		}
	}
	return nil
}

// ShiftByTypeID maps an inbound shift-type id to its descriptor.
func (c *Context) ShiftByTypeID(typeID int) (*ShiftInfo, bool) {
	si, ok := c.shiftByTypeID[typeID]
	return si, ok
}

// FullTimeEmployees returns the employees whose contracted hours equal the
// month's full-time baseline.
func (c *Context) FullTimeEmployees() []*EmployeeInfo {
	var fts []*EmployeeInfo
	for _, ei := range c.Employees {
		if ei.JobTime == c.JobTime {
			fts = append(fts, ei)
		}
	}
	return fts
}

// findIllegalTransitions flags every ordered pair of shifts whose rest gap,
// worked on consecutive days, is below the legal minimum.
func (c *Context) findIllegalTransitions() []Transition {
	var transitions []Transition
	for _, i := range c.ShiftTypes[1:] {
		iEnd := i.ShiftType.Start.MinuteOfDay() + i.Duration
		for _, j := range c.ShiftTypes[1:] {
			if i.ID == j.ID {
				continue
			}
			jStart := minutesPerDay + j.ShiftType.Start.MinuteOfDay()
			if jStart-iEnd < c.cfg.MinRestGapMinutes {
				c.logger.Debug("found illegal transition",
					zap.String("from", i.ShiftType.Name),
					zap.String("to", j.ShiftType.Name),
					zap.Int("gap_minutes", jStart-iEnd))
				transitions = append(transitions, Transition{From: i.ID, To: j.ID, Penalty: c.cfg.TransitionPenalty})
			}
		}
	}
	return transitions
}

// findOvernightShifts detects overnight shifts and attaches their sequence
// and weekly-count bands.
func (c *Context) findOvernightShifts() (sequences, weekly []ShiftBand) {
	for _, si := range c.ShiftTypes {
		if !si.Overnight() {
			continue
		}
		c.logger.Debug("found overnight shift", zap.String("name", si.ShiftType.Name))
		sequences = append(sequences, ShiftBand{ShiftID: si.ID, Band: c.cfg.OvernightSequence})
		weekly = append(weekly, ShiftBand{ShiftID: si.ID, Band: c.cfg.OvernightWeekly})
	}
	return sequences, weekly
}

// calculateTotalWorkTime sums the cover demand for the month in hours:
// shift duration x demand over every active, non-closed day.
func (c *Context) calculateTotalWorkTime() int {
	totalMinutes := 0
	for _, si := range c.ShiftTypes[1:] {
		days := si.SchedulableDaysInMonth(c.Year, c.Month)
		totalMinutes += len(days) * si.ShiftType.Demand * si.Duration
	}
	return totalMinutes / 60
}

// calculateMaxWorkTime derives each employee's legal hour cap from the
// billing weeks: 8h per day, less 8h per absence beyond the first in a week,
// less one mandatory rest shift in any week longer than three days.
func (c *Context) calculateMaxWorkTime() int {
	total := 0
	for _, ei := range c.Employees {
		absent := make(map[int]bool)
		for _, d := range ei.AbsentDaysInMonth(c.Month, c.Year) {
			absent[d] = true
		}

		ei.MaxWorkTime = 0
		for _, week := range c.MonthByBillingWeeks {
			numAbsences := 0
			for _, d := range week {
				if absent[d.Day] {
					numAbsences++
				}
			}

			weekMax := 8 * len(week)
			if numAbsences > 1 {
				weekMax -= numAbsences * 8
			} else if len(week) > 3 {
				weekMax -= 8 // minimum one free shift per 7-day week
			}
			ei.MaxWorkTime += max(weekMax, 0)
		}

		c.logger.Debug("max work time",
			zap.Int("employee_id", ei.Employee.ID),
			zap.Int("hours", ei.MaxWorkTime))
		total += ei.MaxWorkTime
	}
	return total
}

func (c *Context) calculateMultipliers() {
	if c.TotalJobTime == 0 {
		c.logger.Error("total contracted hours is zero, multipliers are meaningless")
		c.OvertimeMultiplier = 1
		return
	}

	c.JobTimeMultiplier = float64(c.TotalWorkTime) / float64(c.TotalJobTime)

	fullTimers := c.FullTimeEmployees()
	fullTimerHours := 0
	for _, ei := range fullTimers {
		fullTimerHours += ei.JobTime
	}

	switch {
	case len(fullTimers) == 0:
		c.logger.Debug("there are no full time employees")
		c.OvertimeMultiplier = 1
	case len(fullTimers) == len(c.Employees):
		c.OvertimeMultiplier = 1
	default:
		partTimerHours := c.TotalJobTime - fullTimerHours
		if partTimerHours == 0 {
			c.logger.Error("part timers contribute zero contracted hours, overtime multiplier is meaningless")
			c.OvertimeMultiplier = 1
			break
		}
		c.OvertimeMultiplier = float64(c.TotalWorkTime-fullTimerHours) / float64(partTimerHours)
	}

	cappedCapacity := 0
	for _, ei := range c.Employees {
		cappedCapacity += min(c.JobTime, ei.MaxWorkTime)
	}
	c.OvertimeForFullTimers = cappedCapacity < c.TotalWorkTime
	c.OvertimeAboveFullTime = c.TotalWorkTime - cappedCapacity
}

// prepareRequests turns preference records into per-day soft requests. Days
// the employee is absent on are skipped.
func (c *Context) prepareRequests() []Request {
	var requests []Request
	for _, ei := range c.Employees {
		absent := make(map[int]bool)
		for _, d := range ei.AbsentDaysInMonth(c.Month, c.Year) {
			absent[d] = true
		}

		for _, pref := range ei.Preferences {
			si, ok := c.ShiftByTypeID(pref.ShiftTypeID)
			if !ok {
				c.logger.Warn("preference references unknown shift type",
					zap.Int("employee_id", ei.Employee.ID),
					zap.Int("shift_type_id", pref.ShiftTypeID))
				continue
			}

			for _, week := range c.MonthByBillingWeeks {
				for _, d := range week {
					if !pref.ActiveDays.On(d.Weekday) {
						continue
					}
					if absent[d.Day] {
						c.logger.Warn("preference on absent day ignored",
							zap.Int("employee_id", ei.Employee.ID),
							zap.Int("day", d.Day))
						continue
					}
					requests = append(requests, Request{
						EmployeeID: ei.Employee.ID,
						ShiftID:    si.ID,
						Day:        d.Day,
						Weight:     c.cfg.PreferenceWeight,
					})
					c.logger.Debug("preference request",
						zap.Int("employee_id", ei.Employee.ID),
						zap.String("shift", si.ShiftType.Name),
						zap.Int("day", d.Day),
						zap.String("weekday", calendar.WeekdayLetter(d.Weekday)))
				}
			}
		}
	}
	return requests
}

// prepareFixedAssignments forces the free shift onto every absent day.
func (c *Context) prepareFixedAssignments() []FixedAssignment {
	var fixed []FixedAssignment
	for _, ei := range c.Employees {
		for _, d := range ei.AbsentDaysInMonth(c.Month, c.Year) {
			fixed = append(fixed, FixedAssignment{
				EmployeeID: ei.Employee.ID,
				ShiftID:    model.FreeShiftID,
				Day:        d,
			})
		}
	}
	return fixed
}

func (c *Context) logContextData() {
	if len(c.Employees) == 0 {
		c.logger.Error("no employees in scheduling context")
	}
	// ShiftTypes always holds the free shift, so one entry means no real shifts.
	if len(c.ShiftTypes) <= 1 {
		c.logger.Error("no usable shift types in scheduling context")
	}

	if c.TotalJobTime > c.MaxWorkTime {
		c.logger.Error("total contracted hours exceed the legal work-time capacity, model may be infeasible",
			zap.Int("total_job_time", c.TotalJobTime),
			zap.Int("max_work_time", c.MaxWorkTime))
	}

	c.logger.Info("scheduling context ready",
		zap.Int("year", c.Year),
		zap.Int("month", c.Month),
		zap.Int("employees", len(c.Employees)),
		zap.Int("shift_types", len(c.ShiftTypes)-1),
		zap.Int("total_work_time", c.TotalWorkTime),
		zap.Int("total_job_time", c.TotalJobTime),
		zap.Int("max_work_time", c.MaxWorkTime),
		zap.Float64("job_time_multiplier", c.JobTimeMultiplier),
		zap.Float64("overtime_multiplier", c.OvertimeMultiplier),
		zap.Bool("overtime_for_full_timers", c.OvertimeForFullTimers),
		zap.Int("requests", len(c.Requests)),
		zap.Int("fixed_assignments", len(c.FixedAssignments)),
		zap.Int("illegal_transitions", len(c.IllegalTransitions)),
		zap.Int("overnight_shifts", len(c.OvernightSequences)))

	if c.OvertimeForFullTimers {
		c.logger.Warn("cover demand exceeds capped capacity, full-time employees will absorb overtime",
			zap.Int("overtime_above_full_time", c.OvertimeAboveFullTime))
	}
}
