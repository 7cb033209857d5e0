// Package services holds the orchestration entry points around the
// scheduling core: input validation, context construction, solving,
// reconciliation and inflation to persistable records.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/plannerd/monthroster/internal/config"
	"github.com/plannerd/monthroster/pkg/core/calendar"
	"github.com/plannerd/monthroster/pkg/core/model"
	"github.com/plannerd/monthroster/pkg/core/roster"
	"github.com/plannerd/monthroster/pkg/core/solver"
)

// GenerateInput is everything one schedule generation needs, supplied by
// the caller's data layer.
type GenerateInput struct {
	Year  int
	Month int

	// BaselineHours is the month's full-time hours figure. Zero means the
	// caller has no value configured; the fallback from the tunables is
	// used and the gap is logged.
	BaselineHours int

	Employees   []model.Employee
	ShiftTypes  []model.ShiftType
	Preferences []model.Preference
	Absences    []model.Absence
	Assignments []model.Assignment
	Closings    []model.WorkplaceClosing

	// PreviousShifts and NextShifts are the assignments worked just outside
	// the target month, used for rest rules across the month edges.
	PreviousShifts []model.ScheduledShift
	NextShifts     []model.ScheduledShift
}

// GenerateResult is the outcome of one schedule generation.
type GenerateResult struct {
	RunID  string
	Status solver.Status

	// Failed is set when no usable schedule was produced; Assignments is
	// empty in that case and the caller must not persist anything.
	Failed bool

	Assignments []model.ScheduledShift
	WorkTime    map[int]int
	Board       string
}

// GenerateSchedule builds the scheduling context for the requested month,
// solves the constraint model and reconciles excess coverage. Infeasibility
// is reported through the result, not an error; errors are reserved for
// invalid input and internal failures. Panics from malformed caller data
// are recovered and converted into a failure result so one bad invocation
// cannot crash the surrounding service.
func GenerateSchedule(ctx context.Context, input GenerateInput, cfg *config.Config, logger *zap.Logger) (result *GenerateResult, err error) {
	runID := uuid.New().String()
	logger = logger.With(zap.String("run_id", runID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("schedule generation panicked", zap.Any("panic", r), zap.Stack("stack"))
			result = &GenerateResult{RunID: runID, Failed: true}
			err = fmt.Errorf("schedule generation panicked: %v", r)
		}
	}()

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("schedule generation cancelled: %w", err)
	}

	baseline := input.BaselineHours
	if baseline <= 0 {
		baseline = cfg.FallbackBaselineHours
		logger.Error("no full-time baseline supplied for the month, using fallback",
			zap.Int("year", input.Year),
			zap.Int("month", input.Month),
			zap.Int("fallback_hours", baseline))
	}

	logger.Info("generating schedule",
		zap.Int("year", input.Year),
		zap.Int("month", input.Month),
		zap.Int("baseline_hours", baseline),
		zap.Int("employees", len(input.Employees)),
		zap.Int("shift_types", len(input.ShiftTypes)))

	rctx := buildContext(input, baseline, cfg, logger)

	mdl, err := solver.Build(rctx, solver.Boundary{
		Previous: input.PreviousShifts,
		Next:     input.NextShifts,
	}, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build constraint model: %w", err)
	}
	defer mdl.Close()

	sol, err := mdl.Solve()
	if err != nil {
		return nil, fmt.Errorf("solve failed: %w", err)
	}

	if !sol.Status.Solved() {
		logger.Warn("could not generate schedule", zap.Stringer("status", sol.Status))
		return &GenerateResult{RunID: runID, Status: sol.Status, Failed: true}, nil
	}

	if err := solver.Reconcile(rctx, sol, logger); err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}

	assignments := inflate(rctx, sol)
	return &GenerateResult{
		RunID:       runID,
		Status:      sol.Status,
		Assignments: assignments,
		WorkTime:    sol.WorkTime,
		Board:       rctx.RenderBoard(assignments),
	}, nil
}

func validateInput(input GenerateInput) error {
	if input.Month < 1 || input.Month > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %d", input.Month)
	}
	if input.Year < 1 {
		return fmt.Errorf("year must be positive, got %d", input.Year)
	}
	return nil
}

// buildContext wraps the raw records into descriptors and assembles the
// scheduling context. Employees absent for the whole month are dropped, and
// the rest are considered in contracted-hours order so logs and boards list
// the biggest contracts first.
func buildContext(input GenerateInput, baseline int, cfg *config.Config, logger *zap.Logger) *roster.Context {
	prefs := make(map[int][]model.Preference)
	for _, p := range input.Preferences {
		prefs[p.EmployeeID] = append(prefs[p.EmployeeID], p)
	}
	absences := make(map[int][]model.Absence)
	for _, a := range input.Absences {
		absences[a.EmployeeID] = append(absences[a.EmployeeID], a)
	}
	assignments := make(map[int][]model.Assignment)
	for _, a := range input.Assignments {
		assignments[a.EmployeeID] = append(assignments[a.EmployeeID], a)
	}
	closings := make(map[int][]model.WorkplaceClosing)
	for _, c := range input.Closings {
		closings[c.WorkplaceID] = append(closings[c.WorkplaceID], c)
	}

	numDays := calendar.DaysInMonth(input.Year, input.Month)

	var employees []*roster.EmployeeInfo
	for _, emp := range input.Employees {
		ei := roster.NewEmployeeInfo(emp, prefs[emp.ID], absences[emp.ID], assignments[emp.ID], baseline, logger)
		if distinctDays(ei.AbsentDaysInMonth(input.Month, input.Year)) >= numDays {
			logger.Info("employee is absent for the whole month, excluding from scheduling",
				zap.Int("employee_id", emp.ID))
			continue
		}
		employees = append(employees, ei)
	}

	return roster.NewContext(employees, input.ShiftTypes, closings, input.Year, input.Month, baseline, cfg, logger)
}

func distinctDays(days []int) int {
	seen := make(map[int]bool, len(days))
	for _, d := range days {
		seen[d] = true
	}
	return len(seen)
}

// inflate turns the solved placements into persistable records with
// concrete dates and the caller's shift-type ids. Free days produce no
// record.
func inflate(rctx *roster.Context, sol *solver.Solution) []model.ScheduledShift {
	shifts := make([]model.ScheduledShift, 0, len(sol.Placements))
	for _, p := range sol.Placements {
		si := rctx.ShiftByID(p.ShiftID)
		if si == nil || si.IsFree() {
			continue
		}
		shifts = append(shifts, model.ScheduledShift{
			EmployeeID:  p.EmployeeID,
			Date:        calendar.DateOf(rctx.Year, rctx.Month, p.Day),
			ShiftTypeID: si.ShiftType.ID,
		})
	}
	return shifts
}
