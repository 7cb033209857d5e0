package model

import (
	"fmt"
	"time"
)

// FreeShiftID identifies the synthetic "off" shift. Every day an employee is
// not working is covered by this shift; it carries no duration and never
// counts toward cover demand.
const FreeShiftID = 0

// JobTime is the fractional employment level of an employee.
type JobTime string

const (
	JobTimeFull          JobTime = "1"
	JobTimeThreeQuarters JobTime = "3/4"
	JobTimeHalf          JobTime = "1/2"
	JobTimeQuarter       JobTime = "1/4"
)

func (j JobTime) IsValid() bool {
	switch j {
	case JobTimeFull, JobTimeThreeQuarters, JobTimeHalf, JobTimeQuarter:
		return true
	}
	return false
}

// Hours converts the fraction into a monthly hours target against the
// full-time baseline for the month. Unknown codes are a data error; callers
// decide whether to fall back to the baseline.
func (j JobTime) Hours(baseline int) (int, error) {
	switch j {
	case JobTimeFull:
		return baseline, nil
	case JobTimeThreeQuarters:
		return baseline * 3 / 4, nil
	case JobTimeHalf:
		return baseline / 2, nil
	case JobTimeQuarter:
		return baseline / 4, nil
	}
	return 0, fmt.Errorf("unknown job time code %q", string(j))
}

// TimeOfDay is a wall-clock time without a date, used for shift boundaries.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ActiveDays is a seven-character weekday mask, Monday first. A '1' marks the
// weekday as active.
type ActiveDays string

// EveryDay activates all seven weekdays.
const EveryDay ActiveDays = "1111111"

// On reports whether the weekday (0=Monday..6=Sunday) is active.
func (a ActiveDays) On(weekday int) bool {
	if weekday < 0 || weekday >= len(a) {
		return false
	}
	return a[weekday] == '1'
}

func (a ActiveDays) IsValid() bool {
	if len(a) != 7 {
		return false
	}
	for _, c := range a {
		if c != '0' && c != '1' {
			return false
		}
	}
	return true
}

// Employee is the inbound employee record.
type Employee struct {
	ID           int
	FirstName    string
	LastName     string
	JobTime      JobTime
	WorkplaceIDs []int
}

// ShiftType is the inbound shift-type record: a recurring daily work period
// at one workplace with a headcount demand.
type ShiftType struct {
	ID          int
	Start       TimeOfDay
	End         TimeOfDay
	Name        string
	WorkplaceID int
	Demand      int
	ActiveDays  ActiveDays
	IsUsed      bool
	IsArchive   bool
}

// Preference is a soft request: the employee would like the shift type on the
// weekdays marked in the mask.
type Preference struct {
	EmployeeID  int
	ShiftTypeID int
	ActiveDays  ActiveDays
}

// Absence removes the employee from scheduling for a date range and reduces
// the monthly hours target by the declared hour count.
type Absence struct {
	EmployeeID int
	Start      time.Time
	End        time.Time
	Hours      int
	Category   string
}

// Assignment forces (or, with Negative set, forbids) a shift type for an
// employee. With Start and End it is a term assignment bound to those dates;
// with neither it is indefinite and applies to every day of the month.
type Assignment struct {
	EmployeeID  int
	ShiftTypeID int
	Start       *time.Time
	End         *time.Time
	Negative    bool
}

// WorkplaceClosing marks a workplace as closed for a date range; shifts at
// that workplace are neither demanded nor assignable on those days.
type WorkplaceClosing struct {
	WorkplaceID int
	Start       time.Time
	End         time.Time
}

// ScheduledShift is one solved assignment: the employee works the shift type
// on the date. Free days produce no record.
type ScheduledShift struct {
	EmployeeID  int
	Date        time.Time
	ShiftTypeID int
}
