package roster

import (
	"time"

	"go.uber.org/zap"

	"github.com/plannerd/monthroster/pkg/core/model"
)

// TermAssignment is a mandatory or forbidden shift pinned to a single day,
// expanded from an assignment record's date range.
type TermAssignment struct {
	ShiftTypeID int
	Negative    bool
	Date        time.Time
}

// EmployeeInfo wraps an employee with the derived data the scheduling
// context and model builder need.
type EmployeeInfo struct {
	Employee    model.Employee
	Workplaces  []int
	Preferences []model.Preference

	TermAssignments    []TermAssignment
	NegativeIndefinite []int // shift type ids forbidden on every day
	PositiveIndefinite []int // shift type ids required to the exclusion of others

	AbsentDays  []time.Time
	AbsentHours int

	// JobTime is the contracted hours target for the month, already reduced
	// by declared absence hours.
	JobTime int

	// MaxWorkTime is the legal upper bound on assignable hours for the
	// month, filled in by the Context from the billing-week partition.
	MaxWorkTime int
}

// NewEmployeeInfo derives the employee descriptor from the raw records.
// baseline is the month's full-time hours figure.
func NewEmployeeInfo(
	emp model.Employee,
	preferences []model.Preference,
	absences []model.Absence,
	assignments []model.Assignment,
	baseline int,
	logger *zap.Logger,
) *EmployeeInfo {
	ei := &EmployeeInfo{
		Employee:    emp,
		Workplaces:  emp.WorkplaceIDs,
		Preferences: preferences,
	}

	ei.partitionAssignments(assignments, logger)
	ei.expandAbsences(absences)

	jobTime, err := emp.JobTime.Hours(baseline)
	if err != nil {
		logger.Warn("could not derive contracted hours, falling back to baseline",
			zap.Int("employee_id", emp.ID),
			zap.String("job_time", string(emp.JobTime)),
			zap.Error(err))
		jobTime = baseline
	}
	ei.JobTime = max(jobTime-ei.AbsentHours, 0)

	logger.Debug("employee descriptor ready",
		zap.Int("employee_id", emp.ID),
		zap.Int("contracted_hours", ei.JobTime),
		zap.Int("absent_days", len(ei.AbsentDays)),
		zap.Int("term_assignments", len(ei.TermAssignments)))

	return ei
}

// partitionAssignments splits assignment records into per-day term
// assignments and indefinite positive/negative shift-type sets.
func (ei *EmployeeInfo) partitionAssignments(assignments []model.Assignment, logger *zap.Logger) {
	for _, a := range assignments {
		switch {
		case a.Start != nil && a.End != nil:
			for d := *a.Start; !d.After(*a.End); d = d.AddDate(0, 0, 1) {
				ei.TermAssignments = append(ei.TermAssignments, TermAssignment{
					ShiftTypeID: a.ShiftTypeID,
					Negative:    a.Negative,
					Date:        d,
				})
			}
		case a.Start == nil && a.End == nil:
			if a.Negative {
				ei.NegativeIndefinite = append(ei.NegativeIndefinite, a.ShiftTypeID)
			} else {
				ei.PositiveIndefinite = append(ei.PositiveIndefinite, a.ShiftTypeID)
			}
		default:
			logger.Warn("assignment with only one of start/end dates, skipping",
				zap.Int("employee_id", ei.Employee.ID),
				zap.Int("shift_type_id", a.ShiftTypeID))
		}
	}

	for _, pos := range ei.PositiveIndefinite {
		for _, neg := range ei.NegativeIndefinite {
			if pos == neg {
				logger.Warn("conflicting positive and negative indefinite assignments",
					zap.Int("employee_id", ei.Employee.ID),
					zap.Int("shift_type_id", pos))
			}
		}
	}
}

func (ei *EmployeeInfo) expandAbsences(absences []model.Absence) {
	for _, ab := range absences {
		ei.AbsentHours += ab.Hours
		for d := ab.Start; !d.After(ab.End); d = d.AddDate(0, 0, 1) {
			ei.AbsentDays = append(ei.AbsentDays, d)
		}
	}
}

// AbsentDaysInMonth returns the days of the target month the employee is
// absent on.
func (ei *EmployeeInfo) AbsentDaysInMonth(month, year int) []int {
	var days []int
	for _, d := range ei.AbsentDays {
		if int(d.Month()) == month && d.Year() == year {
			days = append(days, d.Day())
		}
	}
	return days
}

// ForcedShiftOn returns the positive term assignment for the given date, if
// any. A day can carry at most one forced shift; the first one wins and
// later conflicting records are ignored by the model builder.
func (ei *EmployeeInfo) ForcedShiftOn(date time.Time) (int, bool) {
	for _, ta := range ei.TermAssignments {
		if !ta.Negative && ta.Date.Equal(date) {
			return ta.ShiftTypeID, true
		}
	}
	return 0, false
}
