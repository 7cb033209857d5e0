package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plannerd/monthroster/internal/config"
	"github.com/plannerd/monthroster/pkg/core/model"
	"github.com/plannerd/monthroster/pkg/core/solver"
)

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func dayShift(demand int) model.ShiftType {
	return model.ShiftType{
		ID:          31,
		Name:        "Day",
		Start:       model.TimeOfDay{Hour: 6},
		End:         model.TimeOfDay{Hour: 14},
		Demand:      demand,
		ActiveDays:  model.EveryDay,
		WorkplaceID: 1,
		IsUsed:      true,
	}
}

func TestGenerateSchedule_FullMonth(t *testing.T) {
	input := GenerateInput{
		Year:          2024,
		Month:         6,
		BaselineHours: 160,
		Employees: []model.Employee{
			{ID: 1, FirstName: "Anna", JobTime: model.JobTimeFull},
			{ID: 2, FirstName: "Bartek", JobTime: model.JobTimeFull},
			{ID: 3, FirstName: "Celina", JobTime: model.JobTimeHalf},
			{ID: 4, FirstName: "Darek", JobTime: model.JobTimeHalf},
		},
		ShiftTypes: []model.ShiftType{dayShift(1)},
	}

	result, err := GenerateSchedule(context.Background(), input, config.Default(), zap.NewNop())
	require.NoError(t, err)
	require.False(t, result.Failed)
	assert.True(t, result.Status.Solved())
	assert.NotEmpty(t, result.RunID)
	assert.NotEmpty(t, result.Board)

	// One 8h slot per day of June: exactly 30 assignments, 240 hours.
	assert.Len(t, result.Assignments, 30)
	totalHours := 0
	for _, hours := range result.WorkTime {
		totalHours += hours
	}
	assert.Equal(t, 240, totalHours)

	// No slot is double-booked and every assignment is in the month.
	seen := make(map[int]int)
	for _, s := range result.Assignments {
		assert.Equal(t, 31, s.ShiftTypeID)
		assert.Equal(t, 2024, s.Date.Year())
		assert.Equal(t, 6, int(s.Date.Month()))
		seen[s.Date.Day()]++
	}
	for d := 1; d <= 30; d++ {
		assert.Equal(t, 1, seen[d], "day %d", d)
	}

	// Full-timers carry materially more of the load than half-timers.
	for _, full := range []int{1, 2} {
		for _, half := range []int{3, 4} {
			assert.Greater(t, result.WorkTime[full], result.WorkTime[half],
				"full-timer %d should work more than half-timer %d", full, half)
		}
	}
}

func TestGenerateSchedule_OvernightAndTransitions(t *testing.T) {
	// A morning and an overnight shift, one head each, three full-timers.
	// The hard work-time bands sum to exactly the 480h of cover, so every
	// employee works 160h and the sequencing rules are all exercised.
	input := GenerateInput{
		Year:          2024,
		Month:         6,
		BaselineHours: 160,
		Employees: []model.Employee{
			{ID: 1, JobTime: model.JobTimeFull},
			{ID: 2, JobTime: model.JobTimeFull},
			{ID: 3, JobTime: model.JobTimeFull},
		},
		ShiftTypes: []model.ShiftType{
			{ID: 31, Name: "Morning", Start: model.TimeOfDay{Hour: 6}, End: model.TimeOfDay{Hour: 14},
				Demand: 1, ActiveDays: model.EveryDay, WorkplaceID: 1, IsUsed: true},
			{ID: 32, Name: "Night", Start: model.TimeOfDay{Hour: 22}, End: model.TimeOfDay{Hour: 6},
				Demand: 1, ActiveDays: model.EveryDay, WorkplaceID: 1, IsUsed: true},
		},
	}

	result, err := GenerateSchedule(context.Background(), input, config.Default(), zap.NewNop())
	require.NoError(t, err)
	require.False(t, result.Failed)
	require.True(t, result.Status.Solved())

	// Two 8h slots per day of June, and the full 480h split evenly.
	require.Len(t, result.Assignments, 60)
	for _, id := range []int{1, 2, 3} {
		assert.Equal(t, 160, result.WorkTime[id], "employee %d", id)
	}

	byDay := make(map[int]map[int]int) // employee -> day -> shift type
	for _, s := range result.Assignments {
		if byDay[s.EmployeeID] == nil {
			byDay[s.EmployeeID] = make(map[int]int)
		}
		byDay[s.EmployeeID][s.Date.Day()] = s.ShiftTypeID
	}

	for id, days := range byDay {
		nightRun := 0
		for d := 1; d <= 30; d++ {
			// A night ends at 06:00 the next day, so a 06:00 morning start
			// leaves no rest at all. That pairing must never appear.
			if days[d] == 32 && days[d+1] == 31 {
				t.Errorf("employee %d works the morning of day %d right after a night", id, d+1)
			}
			if days[d] == 32 {
				nightRun++
				assert.LessOrEqual(t, nightRun, 4,
					"employee %d has too many consecutive nights ending day %d", id, d)
			} else {
				nightRun = 0
			}
		}
	}
}

func TestGenerateSchedule_InfeasibleDemand(t *testing.T) {
	// Three heads demanded per day with only two employees: the exactly-one
	// rows cap daily headcount at two, so the cover rows cannot be met.
	input := GenerateInput{
		Year:          2024,
		Month:         6,
		BaselineHours: 160,
		Employees: []model.Employee{
			{ID: 1, JobTime: model.JobTimeFull},
			{ID: 2, JobTime: model.JobTimeFull},
		},
		ShiftTypes: []model.ShiftType{dayShift(3)},
	}

	result, err := GenerateSchedule(context.Background(), input, config.Default(), zap.NewNop())
	require.NoError(t, err)
	assert.True(t, result.Failed)
	assert.Equal(t, solver.StatusInfeasible, result.Status)
	assert.Empty(t, result.Assignments)
}

func TestGenerateSchedule_InvalidMonth(t *testing.T) {
	_, err := GenerateSchedule(context.Background(), GenerateInput{Year: 2024, Month: 13}, config.Default(), zap.NewNop())
	assert.Error(t, err)

	_, err = GenerateSchedule(context.Background(), GenerateInput{Year: 0, Month: 6}, config.Default(), zap.NewNop())
	assert.Error(t, err)
}

func TestGenerateSchedule_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := GenerateInput{
		Year:          2024,
		Month:         6,
		BaselineHours: 160,
		Employees:     []model.Employee{{ID: 1, JobTime: model.JobTimeFull}},
		ShiftTypes:    []model.ShiftType{dayShift(1)},
	}
	_, err := GenerateSchedule(ctx, input, config.Default(), zap.NewNop())
	assert.Error(t, err)
}

func TestGenerateSchedule_BaselineFallback(t *testing.T) {
	input := GenerateInput{
		Year:  2024,
		Month: 6,
		Employees: []model.Employee{
			{ID: 1, JobTime: model.JobTimeFull},
			{ID: 2, JobTime: model.JobTimeFull},
			{ID: 3, JobTime: model.JobTimeHalf},
			{ID: 4, JobTime: model.JobTimeHalf},
		},
		ShiftTypes: []model.ShiftType{dayShift(1)},
	}

	result, err := GenerateSchedule(context.Background(), input, config.Default(), zap.NewNop())
	require.NoError(t, err)
	assert.False(t, result.Failed)
	assert.Len(t, result.Assignments, 30)
}

func TestGenerateSchedule_FullMonthAbsenceExcludesEmployee(t *testing.T) {
	input := GenerateInput{
		Year:          2024,
		Month:         6,
		BaselineHours: 160,
		Employees: []model.Employee{
			{ID: 1, JobTime: model.JobTimeFull},
			{ID: 2, JobTime: model.JobTimeFull},
			{ID: 3, JobTime: model.JobTimeHalf},
		},
		ShiftTypes: []model.ShiftType{dayShift(1)},
		Absences: []model.Absence{
			{EmployeeID: 3, Start: date(2024, 6, 1), End: date(2024, 6, 30), Hours: 80},
		},
	}

	result, err := GenerateSchedule(context.Background(), input, config.Default(), zap.NewNop())
	require.NoError(t, err)
	require.False(t, result.Failed)

	for _, s := range result.Assignments {
		assert.NotEqual(t, 3, s.EmployeeID)
	}
	_, scheduled := result.WorkTime[3]
	assert.False(t, scheduled)
}
