package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/plannerd/monthroster/pkg/core/model"
)

func TestReconcile_SparesBestOffCandidate(t *testing.T) {
	ctx := bandContext(t, 1, employee(1, model.JobTimeFull), employee(2, model.JobTimeHalf))

	sol := &Solution{
		Status: StatusOptimal,
		Placements: []Placement{
			{EmployeeID: 1, ShiftID: 1, Day: 5},
			{EmployeeID: 2, ShiftID: 1, Day: 5},
		},
		WorkTime: map[int]int{1: 80, 2: 48},
	}

	require.NoError(t, Reconcile(ctx, sol, zap.NewNop()))

	// The full-timer is 80h short of target, the half-timer only 32h, so
	// the half-timer loses the slot and the full-timer keeps it.
	require.Len(t, sol.Placements, 1)
	assert.Equal(t, 1, sol.Placements[0].EmployeeID)
	assert.Equal(t, 40, sol.WorkTime[2])
	assert.Equal(t, 80, sol.WorkTime[1])
}

func TestReconcile_OverTargetLosesFirst(t *testing.T) {
	ctx := bandContext(t, 1, employee(1, model.JobTimeFull), employee(2, model.JobTimeHalf))

	sol := &Solution{
		Status: StatusOptimal,
		Placements: []Placement{
			{EmployeeID: 1, ShiftID: 1, Day: 5},
			{EmployeeID: 2, ShiftID: 1, Day: 5},
		},
		WorkTime: map[int]int{1: 168, 2: 40},
	}

	require.NoError(t, Reconcile(ctx, sol, zap.NewNop()))

	require.Len(t, sol.Placements, 1)
	assert.Equal(t, 2, sol.Placements[0].EmployeeID)
	assert.Equal(t, 160, sol.WorkTime[1])
}

func TestReconcile_AllOverTargetSparesBestOff(t *testing.T) {
	ctx := bandContext(t, 1, employee(1, model.JobTimeFull), employee(2, model.JobTimeHalf))

	// Both employees are past their contracted hours; the higher tier is
	// dropped on the tie.
	sol := &Solution{
		Status: StatusOptimal,
		Placements: []Placement{
			{EmployeeID: 1, ShiftID: 1, Day: 5},
			{EmployeeID: 2, ShiftID: 1, Day: 5},
		},
		WorkTime: map[int]int{1: 168, 2: 88},
	}

	require.NoError(t, Reconcile(ctx, sol, zap.NewNop()))

	require.Len(t, sol.Placements, 1)
	assert.Equal(t, 2, sol.Placements[0].EmployeeID)
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := bandContext(t, 1, employee(1, model.JobTimeFull), employee(2, model.JobTimeHalf))

	sol := &Solution{
		Status: StatusOptimal,
		Placements: []Placement{
			{EmployeeID: 1, ShiftID: 1, Day: 5},
			{EmployeeID: 2, ShiftID: 1, Day: 5},
		},
		WorkTime: map[int]int{1: 80, 2: 48},
	}

	require.NoError(t, Reconcile(ctx, sol, zap.NewNop()))
	after := append([]Placement(nil), sol.Placements...)
	workTime := map[int]int{1: sol.WorkTime[1], 2: sol.WorkTime[2]}

	// Excess is recomputed from the placements, so a second pass finds
	// nothing to remove.
	require.NoError(t, Reconcile(ctx, sol, zap.NewNop()))
	assert.Equal(t, after, sol.Placements)
	assert.Equal(t, workTime, sol.WorkTime)
}

func TestReconcile_NoOpWhenUnsolved(t *testing.T) {
	ctx := bandContext(t, 1, employee(1, model.JobTimeFull))

	sol := &Solution{
		Status: StatusInfeasible,
		Placements: []Placement{
			{EmployeeID: 1, ShiftID: 1, Day: 5},
			{EmployeeID: 1, ShiftID: 1, Day: 6},
		},
		WorkTime: map[int]int{1: 16},
	}

	require.NoError(t, Reconcile(ctx, sol, zap.NewNop()))
	assert.Len(t, sol.Placements, 2)
}

func TestReconcile_FailsWhenExcessCannotBeDrained(t *testing.T) {
	// Demand zero with one assignee: the only candidate is spared, so the
	// excess cannot be drained and the broken accounting must surface.
	ctx := bandContext(t, 0, employee(1, model.JobTimeFull))

	sol := &Solution{
		Status: StatusOptimal,
		Placements: []Placement{
			{EmployeeID: 1, ShiftID: 1, Day: 5},
		},
		WorkTime: map[int]int{1: 8},
	}

	err := Reconcile(ctx, sol, zap.NewNop())
	assert.Error(t, err)
}
