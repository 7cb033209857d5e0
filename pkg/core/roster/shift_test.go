package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannerd/monthroster/pkg/core/model"
)

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func TestShiftInfo_Duration(t *testing.T) {
	day := NewShiftInfo(model.ShiftType{
		ID:    1,
		Start: model.TimeOfDay{Hour: 6},
		End:   model.TimeOfDay{Hour: 14},
	}, 1)
	assert.Equal(t, 480, day.DurationMinutes())
	assert.Equal(t, 8, day.DurationHours())
	assert.False(t, day.Overnight())

	night := NewShiftInfo(model.ShiftType{
		ID:    2,
		Start: model.TimeOfDay{Hour: 22},
		End:   model.TimeOfDay{Hour: 6},
	}, 2)
	assert.Equal(t, 480, night.DurationMinutes())
	assert.Equal(t, 8, night.DurationHours())
	assert.True(t, night.Overnight())
}

func TestNewFreeShift(t *testing.T) {
	free := NewFreeShift()
	assert.True(t, free.IsFree())
	assert.Equal(t, model.FreeShiftID, free.ID)
	assert.Equal(t, 0, free.DurationMinutes())
	assert.False(t, free.Overnight())
}

func TestShiftInfo_ClosingDaysInMonth(t *testing.T) {
	si := NewShiftInfo(model.ShiftType{
		ID:          1,
		WorkplaceID: 7,
		Start:       model.TimeOfDay{Hour: 6},
		End:         model.TimeOfDay{Hour: 14},
	}, 1)

	si.SetClosings([]model.WorkplaceClosing{
		// Range crossing the month boundary: only the June days count.
		{WorkplaceID: 7, Start: date(2024, 5, 30), End: date(2024, 6, 2)},
		{WorkplaceID: 7, Start: date(2024, 6, 15), End: date(2024, 6, 15)},
		// Different workplace, must be ignored.
		{WorkplaceID: 8, Start: date(2024, 6, 20), End: date(2024, 6, 21)},
	})

	assert.Equal(t, []int{1, 2, 15}, si.ClosingDaysInMonth(6, 2024))
	assert.Empty(t, si.ClosingDaysInMonth(7, 2024))
}

func TestShiftInfo_ActiveDaysInMonth(t *testing.T) {
	everyday := NewShiftInfo(model.ShiftType{
		ID:         1,
		Start:      model.TimeOfDay{Hour: 6},
		End:        model.TimeOfDay{Hour: 14},
		ActiveDays: model.EveryDay,
	}, 1)
	days := everyday.ActiveDaysInMonth(2024, 2)
	require.Len(t, days, 29)
	assert.Equal(t, 1, days[0])
	assert.Equal(t, 29, days[28])

	// Mondays only; February 2024 starts on a Thursday, so Mondays are
	// 5, 12, 19, 26.
	mondays := NewShiftInfo(model.ShiftType{
		ID:         2,
		Start:      model.TimeOfDay{Hour: 6},
		End:        model.TimeOfDay{Hour: 14},
		ActiveDays: model.ActiveDays("1000000"),
	}, 2)
	assert.Equal(t, []int{5, 12, 19, 26}, mondays.ActiveDaysInMonth(2024, 2))

	never := NewShiftInfo(model.ShiftType{
		ID:         3,
		ActiveDays: model.ActiveDays("0000000"),
	}, 3)
	assert.Empty(t, never.ActiveDaysInMonth(2024, 2))
}

func TestShiftInfo_SchedulableDaysInMonth(t *testing.T) {
	si := NewShiftInfo(model.ShiftType{
		ID:          1,
		WorkplaceID: 7,
		Start:       model.TimeOfDay{Hour: 6},
		End:         model.TimeOfDay{Hour: 14},
		ActiveDays:  model.EveryDay,
	}, 1)
	si.SetClosings([]model.WorkplaceClosing{
		{WorkplaceID: 7, Start: date(2024, 2, 10), End: date(2024, 2, 12)},
	})

	days := si.SchedulableDaysInMonth(2024, 2)
	assert.Len(t, days, 26)
	assert.NotContains(t, days, 10)
	assert.NotContains(t, days, 11)
	assert.NotContains(t, days, 12)
}
