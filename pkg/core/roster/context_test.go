package roster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plannerd/monthroster/internal/config"
	"github.com/plannerd/monthroster/pkg/core/model"
)

func threeShiftTypes() []model.ShiftType {
	return []model.ShiftType{
		{ID: 11, Name: "Morning", Start: model.TimeOfDay{Hour: 6}, End: model.TimeOfDay{Hour: 14},
			Demand: 1, ActiveDays: model.EveryDay, WorkplaceID: 1, IsUsed: true},
		{ID: 12, Name: "Afternoon", Start: model.TimeOfDay{Hour: 14}, End: model.TimeOfDay{Hour: 22},
			Demand: 1, ActiveDays: model.EveryDay, WorkplaceID: 1, IsUsed: true},
		{ID: 13, Name: "Night", Start: model.TimeOfDay{Hour: 22}, End: model.TimeOfDay{Hour: 6},
			Demand: 1, ActiveDays: model.EveryDay, WorkplaceID: 1, IsUsed: true},
	}
}

func TestNewContext_IllegalTransitions(t *testing.T) {
	c := NewContext(nil, threeShiftTypes(), nil, 2024, 6, 160, config.Default(), zap.NewNop())

	// Morning, Afternoon and Night get ordinal ids 1, 2 and 3. With an 11h
	// minimum rest the short gaps are Afternoon->Morning (8h),
	// Night->Morning (0h) and Night->Afternoon (8h).
	var pairs [][2]int
	for _, tr := range c.IllegalTransitions {
		pairs = append(pairs, [2]int{tr.From, tr.To})
	}
	assert.ElementsMatch(t, [][2]int{{2, 1}, {3, 1}, {3, 2}}, pairs)
}

func TestNewContext_OvernightBands(t *testing.T) {
	cfg := config.Default()
	c := NewContext(nil, threeShiftTypes(), nil, 2024, 6, 160, cfg, zap.NewNop())

	require.Len(t, c.OvernightSequences, 1)
	require.Len(t, c.OvernightWeekly, 1)
	assert.Equal(t, 3, c.OvernightSequences[0].ShiftID)
	assert.Equal(t, cfg.OvernightSequence, c.OvernightSequences[0].Band)
	assert.Equal(t, 3, c.OvernightWeekly[0].ShiftID)
	assert.Equal(t, cfg.OvernightWeekly, c.OvernightWeekly[0].Band)
}

func TestNewContext_SkipsUnusedAndArchivedShiftTypes(t *testing.T) {
	shiftTypes := []model.ShiftType{
		{ID: 11, Name: "Morning", Start: model.TimeOfDay{Hour: 6}, End: model.TimeOfDay{Hour: 14},
			Demand: 1, ActiveDays: model.EveryDay, IsUsed: true},
		{ID: 12, Name: "Disabled", Start: model.TimeOfDay{Hour: 14}, End: model.TimeOfDay{Hour: 22},
			Demand: 1, ActiveDays: model.EveryDay, IsUsed: false},
		{ID: 13, Name: "Old", Start: model.TimeOfDay{Hour: 22}, End: model.TimeOfDay{Hour: 6},
			Demand: 1, ActiveDays: model.EveryDay, IsUsed: true, IsArchive: true},
	}
	c := NewContext(nil, shiftTypes, nil, 2024, 6, 160, config.Default(), zap.NewNop())

	require.Len(t, c.ShiftTypes, 2) // free shift plus Morning
	_, ok := c.ShiftByTypeID(12)
	assert.False(t, ok)
	_, ok = c.ShiftByTypeID(13)
	assert.False(t, ok)
	_, ok = c.ShiftByTypeID(11)
	assert.True(t, ok)
}

func TestNewContext_TotalWorkTime(t *testing.T) {
	// Three 8h shifts, demand 1 each, every one of June's 30 days:
	// 3 x 30 x 8 = 720 hours.
	c := NewContext(nil, threeShiftTypes(), nil, 2024, 6, 160, config.Default(), zap.NewNop())
	assert.Equal(t, 720, c.TotalWorkTime)

	// A closing removes its days from the cover demand.
	closings := map[int][]model.WorkplaceClosing{
		1: {{WorkplaceID: 1, Start: date(2024, 6, 10), End: date(2024, 6, 11)}},
	}
	c = NewContext(nil, threeShiftTypes(), closings, 2024, 6, 160, config.Default(), zap.NewNop())
	assert.Equal(t, 720-3*2*8, c.TotalWorkTime)
}

func TestNewContext_MaxWorkTime(t *testing.T) {
	// June 2024 splits into billing weeks of 7, 7, 7, 7 and 2 days. Each full
	// week caps at 56h less one mandatory rest shift, the 2-day tail at 16h.
	rested := NewEmployeeInfo(model.Employee{ID: 1, JobTime: model.JobTimeFull}, nil, nil, nil, 160, zap.NewNop())

	// Two absences in the first billing week replace the rest reduction.
	absences := []model.Absence{
		{EmployeeID: 2, Start: date(2024, 6, 3), End: date(2024, 6, 4), Hours: 16},
	}
	absentee := NewEmployeeInfo(model.Employee{ID: 2, JobTime: model.JobTimeFull}, nil, absences, nil, 160, zap.NewNop())

	c := NewContext([]*EmployeeInfo{rested, absentee}, threeShiftTypes(), nil, 2024, 6, 160, config.Default(), zap.NewNop())

	assert.Equal(t, 4*48+16, rested.MaxWorkTime)
	assert.Equal(t, 40+3*48+16, absentee.MaxWorkTime)
	assert.Equal(t, rested.MaxWorkTime+absentee.MaxWorkTime, c.MaxWorkTime)

	// Employees are ordered by their cap, tightest first.
	assert.Equal(t, 2, c.Employees[0].Employee.ID)
}

func TestNewContext_Multipliers(t *testing.T) {
	// One 10h shift on each of June's 30 days: 300h of cover.
	shiftTypes := []model.ShiftType{
		{ID: 11, Name: "Long", Start: model.TimeOfDay{Hour: 6}, End: model.TimeOfDay{Hour: 16},
			Demand: 1, ActiveDays: model.EveryDay, IsUsed: true},
	}
	fullTimer := NewEmployeeInfo(model.Employee{ID: 1, JobTime: model.JobTimeFull}, nil, nil, nil, 160, zap.NewNop())
	halfTimer := NewEmployeeInfo(model.Employee{ID: 2, JobTime: model.JobTimeHalf}, nil, nil, nil, 160, zap.NewNop())

	c := NewContext([]*EmployeeInfo{fullTimer, halfTimer}, shiftTypes, nil, 2024, 6, 160, config.Default(), zap.NewNop())

	assert.Equal(t, 300, c.TotalWorkTime)
	assert.Equal(t, 240, c.TotalJobTime)
	assert.InDelta(t, 1.25, c.JobTimeMultiplier, 1e-9)
	// Full timers are excluded from the overtime ratio: (300-160)/(240-160).
	assert.InDelta(t, 1.75, c.OvertimeMultiplier, 1e-9)
	// Capped capacity min(160, cap) per employee covers the 300h demand.
	assert.False(t, c.OvertimeForFullTimers)
}

func TestNewContext_MultipliersZeroedPartTimers(t *testing.T) {
	// The half timer's absences eat the whole contracted 80h, so part timers
	// contribute zero contracted hours and the overtime ratio has no
	// denominator. It must settle at 1 instead of Inf or NaN.
	fullTimer := NewEmployeeInfo(model.Employee{ID: 1, JobTime: model.JobTimeFull}, nil, nil, nil, 160, zap.NewNop())
	absences := []model.Absence{
		{EmployeeID: 2, Start: date(2024, 6, 1), End: date(2024, 6, 10), Hours: 80},
	}
	halfTimer := NewEmployeeInfo(model.Employee{ID: 2, JobTime: model.JobTimeHalf}, nil, absences, nil, 160, zap.NewNop())

	c := NewContext([]*EmployeeInfo{fullTimer, halfTimer}, threeShiftTypes(), nil, 2024, 6, 160, config.Default(), zap.NewNop())

	require.Equal(t, 0, halfTimer.JobTime)
	assert.Equal(t, 160, c.TotalJobTime)
	assert.Equal(t, 1.0, c.OvertimeMultiplier)
	assert.False(t, math.IsInf(c.OvertimeMultiplier, 0))
	assert.False(t, math.IsNaN(c.OvertimeMultiplier))
}

func TestNewContext_RequestsSkipAbsentDays(t *testing.T) {
	prefs := []model.Preference{
		// Mondays only; June 2024 Mondays are 3, 10, 17, 24.
		{EmployeeID: 1, ShiftTypeID: 11, ActiveDays: model.ActiveDays("1000000")},
	}
	absences := []model.Absence{
		{EmployeeID: 1, Start: date(2024, 6, 3), End: date(2024, 6, 3), Hours: 8},
	}
	ei := NewEmployeeInfo(model.Employee{ID: 1, JobTime: model.JobTimeFull}, prefs, absences, nil, 160, zap.NewNop())

	c := NewContext([]*EmployeeInfo{ei}, threeShiftTypes(), nil, 2024, 6, 160, config.Default(), zap.NewNop())

	var days []int
	for _, r := range c.Requests {
		assert.Equal(t, 1, r.EmployeeID)
		assert.Equal(t, 1, r.ShiftID)
		assert.Equal(t, c.cfg.PreferenceWeight, r.Weight)
		days = append(days, r.Day)
	}
	assert.Equal(t, []int{10, 17, 24}, days)
}

func TestNewContext_RequestsSkipUnknownShiftTypes(t *testing.T) {
	prefs := []model.Preference{
		{EmployeeID: 1, ShiftTypeID: 99, ActiveDays: model.EveryDay},
	}
	ei := NewEmployeeInfo(model.Employee{ID: 1, JobTime: model.JobTimeFull}, prefs, nil, nil, 160, zap.NewNop())

	c := NewContext([]*EmployeeInfo{ei}, threeShiftTypes(), nil, 2024, 6, 160, config.Default(), zap.NewNop())
	assert.Empty(t, c.Requests)
}

func TestNewContext_FixedAssignmentsFromAbsences(t *testing.T) {
	absences := []model.Absence{
		{EmployeeID: 1, Start: date(2024, 6, 20), End: date(2024, 6, 21), Hours: 16},
	}
	ei := NewEmployeeInfo(model.Employee{ID: 1, JobTime: model.JobTimeFull}, nil, absences, nil, 160, zap.NewNop())

	c := NewContext([]*EmployeeInfo{ei}, threeShiftTypes(), nil, 2024, 6, 160, config.Default(), zap.NewNop())

	require.Len(t, c.FixedAssignments, 2)
	for i, fa := range c.FixedAssignments {
		assert.Equal(t, 1, fa.EmployeeID)
		assert.Equal(t, model.FreeShiftID, fa.ShiftID)
		assert.Equal(t, 20+i, fa.Day)
	}
}
