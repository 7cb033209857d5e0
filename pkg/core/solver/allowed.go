package solver

import (
	"sort"

	"go.uber.org/zap"

	"github.com/plannerd/monthroster/pkg/core/model"
	"github.com/plannerd/monthroster/pkg/core/roster"
)

// allowedShifts computes which days each shift may be assigned on for one
// employee, plus the resolved per-day forced shifts. The free shift is
// always allowed on every day. Real shifts start from the employee's
// workplace set, are restricted to the positive indefinite assignments when
// any exist, lose the negatively assigned types, and are finally
// intersected with the shift's active, non-closed days. Term assignments
// narrow single days: a positive one leaves only the forced shift and free,
// a negative one removes its shift on that day. Conflicting positive term
// assignments on one day are resolved first-record-wins; the losers are
// warned about and dropped so a bad record cannot poison the whole solve.
func allowedShifts(ctx *roster.Context, ei *roster.EmployeeInfo, logger *zap.Logger) (map[int][]int, map[int]int) {
	allDays := make([]int, ctx.NumDays)
	for d := 1; d <= ctx.NumDays; d++ {
		allDays[d-1] = d
	}

	candidates := candidateShifts(ctx, ei, logger)

	// Per-day overrides from term assignments.
	forced := make(map[int]int) // day -> forced ordinal shift id
	removed := make(map[int]map[int]bool)
	for _, ta := range ei.TermAssignments {
		if int(ta.Date.Month()) != ctx.Month || ta.Date.Year() != ctx.Year {
			continue
		}
		si, ok := ctx.ShiftByTypeID(ta.ShiftTypeID)
		if !ok {
			logger.Warn("term assignment references unknown shift type",
				zap.Int("employee_id", ei.Employee.ID),
				zap.Int("shift_type_id", ta.ShiftTypeID))
			continue
		}
		day := ta.Date.Day()
		if ta.Negative {
			if removed[day] == nil {
				removed[day] = make(map[int]bool)
			}
			removed[day][si.ID] = true
			continue
		}
		if prev, ok := forced[day]; ok && prev != si.ID {
			logger.Warn("conflicting forced shifts on one day, keeping the first",
				zap.Int("employee_id", ei.Employee.ID),
				zap.Int("day", day))
			continue
		}
		forced[day] = si.ID
	}

	allowed := make(map[int][]int)
	allowed[model.FreeShiftID] = allDays

	for _, si := range ctx.ShiftTypes[1:] {
		if !candidates[si.ID] {
			continue
		}
		var days []int
		for _, d := range si.SchedulableDaysInMonth(ctx.Year, ctx.Month) {
			if f, ok := forced[d]; ok && f != si.ID {
				continue
			}
			if removed[d][si.ID] {
				continue
			}
			days = append(days, d)
		}
		if len(days) > 0 {
			allowed[si.ID] = days
		}
	}

	return allowed, forced
}

// candidateShifts resolves the employee's base shift set: positive
// indefinite assignments restrict it outright, otherwise every shift in one
// of the employee's workplaces qualifies; negative indefinite assignments
// are removed last so they win a conflict.
func candidateShifts(ctx *roster.Context, ei *roster.EmployeeInfo, logger *zap.Logger) map[int]bool {
	candidates := make(map[int]bool)

	if len(ei.PositiveIndefinite) > 0 {
		for _, typeID := range ei.PositiveIndefinite {
			si, ok := ctx.ShiftByTypeID(typeID)
			if !ok {
				logger.Warn("indefinite assignment references unknown shift type",
					zap.Int("employee_id", ei.Employee.ID),
					zap.Int("shift_type_id", typeID))
				continue
			}
			candidates[si.ID] = true
		}
	} else {
		workplaces := make(map[int]bool)
		for _, wp := range ei.Workplaces {
			workplaces[wp] = true
		}
		for _, si := range ctx.ShiftTypes[1:] {
			if len(workplaces) == 0 || workplaces[si.ShiftType.WorkplaceID] {
				candidates[si.ID] = true
			}
		}
	}

	for _, typeID := range ei.NegativeIndefinite {
		if si, ok := ctx.ShiftByTypeID(typeID); ok {
			delete(candidates, si.ID)
		}
	}

	return candidates
}

// forcedAssignments turns the resolved per-day forced shifts into concrete
// (employee, shift, day) pins. Only the winner of a same-day conflict is
// pinned; a winner that turned out unassignable (shift closed, inactive or
// forbidden for the employee) falls back to the free shift with a warning,
// so the day is never silently dropped.
func forcedAssignments(
	ctx *roster.Context,
	allowed map[int]map[int][]int,
	forced map[int]map[int]int,
	logger *zap.Logger,
) []roster.FixedAssignment {
	absent := make(map[varKey]bool)
	for _, fa := range ctx.FixedAssignments {
		absent[varKey{Emp: fa.EmployeeID, Day: fa.Day}] = true
	}

	var pins []roster.FixedAssignment
	for _, ei := range ctx.Employees {
		emp := ei.Employee.ID

		days := make([]int, 0, len(forced[emp]))
		for day := range forced[emp] {
			days = append(days, day)
		}
		sort.Ints(days)

		for _, day := range days {
			shiftID := forced[emp][day]
			si := ctx.ShiftByID(shiftID)
			if absent[varKey{Emp: emp, Day: day}] {
				logger.Warn("forced shift on an absent day ignored",
					zap.Int("employee_id", emp),
					zap.Int("day", day),
					zap.String("shift", si.ShiftType.Name))
				continue
			}
			if !containsDay(allowed[emp][shiftID], day) {
				logger.Warn("forced shift is not assignable on that day, falling back to free",
					zap.Int("employee_id", emp),
					zap.Int("day", day),
					zap.String("shift", si.ShiftType.Name))
				pins = append(pins, roster.FixedAssignment{EmployeeID: emp, ShiftID: model.FreeShiftID, Day: day})
				continue
			}
			pins = append(pins, roster.FixedAssignment{EmployeeID: emp, ShiftID: shiftID, Day: day})
		}
	}
	return pins
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
