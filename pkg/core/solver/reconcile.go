package solver

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/plannerd/monthroster/pkg/core/roster"
)

// Reconcile removes the overstaffing the cover constraint's priced excess
// tolerated: wherever more employees are assigned to a shift on a day than
// its demand requires, assignments are converted back to free days until
// the headcount matches. Excess is recomputed from the placements
// themselves, so running Reconcile on an already reconciled solution is a
// no-op.
//
// Pure full-timer groups are drained first, then mixed groups by size
// descending. Within a group the employee furthest over their contracted
// hours loses shifts first, and the single best-off candidate is always
// spared. Removing too few or too many slots indicates broken demand
// accounting and fails loudly.
func Reconcile(ctx *roster.Context, sol *Solution, logger *zap.Logger) error {
	if !sol.Status.Solved() {
		return nil
	}

	jobTime := make(map[int]int, len(ctx.Employees))
	topTier := 0
	for _, ei := range ctx.Employees {
		jobTime[ei.Employee.ID] = ei.JobTime
		topTier = max(topTier, ei.JobTime)
	}

	groups := excessGroups(ctx, sol)
	sort.SliceStable(groups, func(i, j int) bool {
		pi, pj := groups[i].pure(jobTime, topTier), groups[j].pure(jobTime, topTier)
		if pi != pj {
			return pi
		}
		return len(groups[i].candidates) > len(groups[j].candidates)
	})

	removed := make(map[Placement]bool)
	for _, g := range groups {
		if err := g.drain(ctx, sol, jobTime, removed, logger); err != nil {
			return err
		}
	}
	if len(removed) == 0 {
		return nil
	}

	kept := sol.Placements[:0]
	for _, p := range sol.Placements {
		if !removed[p] {
			kept = append(kept, p)
		}
	}
	sol.Placements = kept

	logger.Info("reconciled excess coverage", zap.Int("removed_shifts", len(removed)))
	return nil
}

// excessGroup is one (shift, day) slot with more assignees than demand.
type excessGroup struct {
	shiftID    int
	day        int
	excess     int
	candidates []Placement
}

func (g *excessGroup) pure(jobTime map[int]int, topTier int) bool {
	for _, c := range g.candidates {
		if jobTime[c.EmployeeID] != topTier {
			return false
		}
	}
	return true
}

func excessGroups(ctx *roster.Context, sol *Solution) []*excessGroup {
	byKey := make(map[varKey]*excessGroup)
	var order []varKey
	for _, p := range sol.Placements {
		key := varKey{Shift: p.ShiftID, Day: p.Day}
		g, ok := byKey[key]
		if !ok {
			g = &excessGroup{shiftID: p.ShiftID, day: p.Day}
			byKey[key] = g
			order = append(order, key)
		}
		g.candidates = append(g.candidates, p)
	}

	var groups []*excessGroup
	for _, key := range order {
		g := byKey[key]
		si := ctx.ShiftByID(g.shiftID)
		if si == nil {
			continue
		}
		g.excess = len(g.candidates) - si.ShiftType.Demand
		if g.excess > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// drain removes placements from the group until its excess reaches zero.
func (g *excessGroup) drain(
	ctx *roster.Context,
	sol *Solution,
	jobTime map[int]int,
	removed map[Placement]bool,
	logger *zap.Logger,
) error {
	si := ctx.ShiftByID(g.shiftID)
	duration := si.DurationHours()

	// Furthest over their contracted hours first; ties favor dropping the
	// higher contracted tier.
	candidates := append([]Placement(nil), g.candidates...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return jobTime[candidates[i].EmployeeID] > jobTime[candidates[j].EmployeeID]
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		di := sol.WorkTime[candidates[i].EmployeeID] - jobTime[candidates[i].EmployeeID]
		dj := sol.WorkTime[candidates[j].EmployeeID] - jobTime[candidates[j].EmployeeID]
		return di > dj
	})

	remaining := g.excess
	drop := func(p Placement, reason string) {
		removed[p] = true
		sol.WorkTime[p.EmployeeID] -= duration
		remaining--
		logger.Info("removed excess shift",
			zap.String("reason", reason),
			zap.String("shift", si.ShiftType.Name),
			zap.Int("day", p.Day),
			zap.Int("employee_id", p.EmployeeID),
			zap.Int("work_time", sol.WorkTime[p.EmployeeID]))
	}

	// Employees already past their contracted hours lose shifts first,
	// unless everyone in the group is past them.
	overTarget := 0
	for _, p := range candidates {
		if sol.WorkTime[p.EmployeeID] > jobTime[p.EmployeeID] {
			overTarget++
		}
	}
	if overTarget < len(candidates) {
		kept := candidates[:0]
		for _, p := range candidates {
			if remaining > 0 && sol.WorkTime[p.EmployeeID] > jobTime[p.EmployeeID] {
				drop(p, "over contracted hours")
				continue
			}
			kept = append(kept, p)
		}
		candidates = kept
	}

	// The last candidate is the best-off one after sorting; spare it.
	for i := 0; i < len(candidates)-1 && remaining > 0; i++ {
		drop(candidates[i], "excess coverage")
	}

	if remaining > 0 {
		return fmt.Errorf("still %d excess assignments for shift %q on day %d after exhausting candidates",
			remaining, si.ShiftType.Name, g.day)
	}
	if remaining < 0 {
		return fmt.Errorf("removed %d assignments too many for shift %q on day %d",
			-remaining, si.ShiftType.Name, g.day)
	}
	return nil
}
