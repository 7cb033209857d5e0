package solver

import (
	"fmt"

	"github.com/lukpank/go-glpk/glpk"
	"go.uber.org/zap"

	"github.com/plannerd/monthroster/internal/config"
	"github.com/plannerd/monthroster/pkg/core/calendar"
	"github.com/plannerd/monthroster/pkg/core/model"
	"github.com/plannerd/monthroster/pkg/core/roster"
)

const minutesPerDay = 24 * 60

// Boundary carries the shifts worked just outside the target month, used to
// enforce rest rules across the month edges.
type Boundary struct {
	// Previous holds shifts from the trailing days of the previous month.
	Previous []model.ScheduledShift
	// Next holds shifts from the leading days of the next month.
	Next []model.ScheduledShift
}

// Model is one assembled MIP, ready to solve. It owns the underlying GLPK
// problem; Close must be called to release it.
type Model struct {
	lp     *glpk.Prob
	b      *builder
	ctx    *roster.Context
	cfg    *config.Config
	logger *zap.Logger

	excess map[varKey]int // excess column per overstaffable (shift, day)
}

// Build translates the scheduling context into a MIP: binary work variables
// over the legal (employee, shift, day) combinations, hard rows for the
// structural rules and priced slack for the soft ones.
func Build(ctx *roster.Context, boundary Boundary, cfg *config.Config, logger *zap.Logger) (*Model, error) {
	lp := glpk.New()
	lp.SetProbName("monthroster")
	lp.SetObjDir(glpk.MIN)

	b := newBuilder(lp)
	m := &Model{lp: lp, b: b, ctx: ctx, cfg: cfg, logger: logger, excess: make(map[varKey]int)}

	allowed := make(map[int]map[int][]int, len(ctx.Employees))
	forced := make(map[int]map[int]int, len(ctx.Employees))
	for _, ei := range ctx.Employees {
		allowed[ei.Employee.ID], forced[ei.Employee.ID] = allowedShifts(ctx, ei, logger)
	}
	b.createWorkVars(ctx, allowed)

	m.addExactlyOneRows()
	m.addFixedRows(allowed, forced)
	m.addRequestTerms()
	m.addRestSequences()
	m.addOvernightSequences()
	m.addWeeklySums()

	bands, err := computeWorkTimeBands(ctx, cfg, logger)
	if err != nil {
		lp.Delete()
		return nil, fmt.Errorf("work time bands: %w", err)
	}
	m.addWorkTimeSums(bands)
	m.addTransitionRows()
	m.addWeekendRules(bands)
	m.addCoverRows()
	m.addBoundaryRows(boundary)

	b.flushObjective()

	logger.Info("constraint model built",
		zap.Int("columns", b.numCols),
		zap.Int("rows", b.numRows),
		zap.Int("work_variables", len(b.work)))

	return m, nil
}

// Close releases the underlying GLPK problem.
func (m *Model) Close() {
	m.lp.Delete()
}

// addExactlyOneRows posts one row per employee and day: exactly one shift,
// free included, out of the employee's allowed set.
func (m *Model) addExactlyOneRows() {
	for _, ei := range m.ctx.Employees {
		emp := ei.Employee.ID
		for d := 1; d <= m.ctx.NumDays; d++ {
			var cols []int
			for _, si := range m.ctx.ShiftTypes {
				if c := m.b.workCol(emp, si.ID, d); c != noCol {
					cols = append(cols, c)
				}
			}
			m.b.addRow(fmt.Sprintf("one_shift_%d_%d", emp, d),
				glpk.FX, 1, 1, cols, ones(len(cols)))
		}
	}
}

// addFixedRows pins the absence days to the free shift and honors positive
// term assignments, with the free-shift fallback for slots that turned out
// illegal.
func (m *Model) addFixedRows(allowed map[int]map[int][]int, forced map[int]map[int]int) {
	pin := func(fa roster.FixedAssignment, kind string) {
		c := m.b.workCol(fa.EmployeeID, fa.ShiftID, fa.Day)
		if c == noCol {
			m.logger.Warn("fixed assignment has no decision variable, skipping",
				zap.String("kind", kind),
				zap.Int("employee_id", fa.EmployeeID),
				zap.Int("shift_id", fa.ShiftID),
				zap.Int("day", fa.Day))
			return
		}
		m.b.addRow(fmt.Sprintf("%s_%d_%d_%d", kind, fa.EmployeeID, fa.ShiftID, fa.Day),
			glpk.FX, 1, 1, []int{c}, []float64{1})
	}

	for _, fa := range m.ctx.FixedAssignments {
		pin(fa, "absence")
	}
	for _, fa := range forcedAssignments(m.ctx, allowed, forced, m.logger) {
		pin(fa, "forced")
	}
}

// addRequestTerms prices employee preferences into the objective. Negative
// weights reward fulfilment.
func (m *Model) addRequestTerms() {
	for _, r := range m.ctx.Requests {
		c := m.b.workCol(r.EmployeeID, r.ShiftID, r.Day)
		if c == noCol {
			m.logger.Debug("request on an excluded slot ignored",
				zap.Int("employee_id", r.EmployeeID),
				zap.Int("shift_id", r.ShiftID),
				zap.Int("day", r.Day))
			continue
		}
		m.b.addObj(c, float64(r.Weight))
	}
}

// addRestSequences bounds runs of consecutive free days per employee.
// Absent days are cut out of the sequence so that a long absence does not
// register as an oversized rest block.
func (m *Model) addRestSequences() {
	for _, ei := range m.ctx.Employees {
		emp := ei.Employee.ID
		absent := make(map[int]bool)
		for _, d := range ei.AbsentDaysInMonth(m.ctx.Month, m.ctx.Year) {
			absent[d] = true
		}

		var works []int
		for d := 1; d <= m.ctx.NumDays; d++ {
			if absent[d] {
				continue
			}
			works = append(works, m.b.workCol(emp, model.FreeShiftID, d))
		}
		m.b.addSoftSequence(fmt.Sprintf("rest_%d", emp), works, m.cfg.RestSequence)
	}
}

// addOvernightSequences bounds runs of consecutive overnight shifts per
// employee and overnight shift type.
func (m *Model) addOvernightSequences() {
	for _, sb := range m.ctx.OvernightSequences {
		for _, ei := range m.ctx.Employees {
			emp := ei.Employee.ID
			works := make([]int, m.ctx.NumDays)
			for d := 1; d <= m.ctx.NumDays; d++ {
				works[d-1] = m.b.workCol(emp, sb.ShiftID, d)
			}
			m.b.addSoftSequence(fmt.Sprintf("overnight_%d_%d", emp, sb.ShiftID), works, sb.Band)
		}
	}
}

// addWeeklySums posts the per-billing-week sums: free days per week
// (adjusted for absences already consuming rest) and overnight-shift counts.
// Weeks shorter than three days carry no meaningful weekly bound and are
// skipped.
func (m *Model) addWeeklySums() {
	for w, week := range m.ctx.MonthByBillingWeeks {
		if len(week) < 3 {
			continue
		}
		for _, ei := range m.ctx.Employees {
			emp := ei.Employee.ID
			absent := make(map[int]bool)
			for _, d := range ei.AbsentDaysInMonth(m.ctx.Month, m.ctx.Year) {
				absent[d] = true
			}

			numAbsences := 0
			for _, d := range week {
				if absent[d.Day] {
					numAbsences++
				}
			}
			if numAbsences == len(week) {
				continue
			}

			band := m.cfg.WeeklyRest
			if numAbsences > band.SoftMax {
				// Absent days are forced free and count toward the weekly
				// rest sum, so the caps must grow with them.
				band.SoftMax = min(numAbsences, len(week))
				band.HardMax = max(band.HardMax, min(numAbsences+1, len(week)))
			}
			band.HardMax = min(band.HardMax, len(week))
			band.SoftMax = min(band.SoftMax, band.HardMax)

			var works []int
			for _, d := range week {
				works = append(works, m.b.workCol(emp, model.FreeShiftID, d.Day))
			}
			m.b.addCountSum(fmt.Sprintf("weekly_rest_%d_%d", emp, w), works, band)

			for _, sb := range m.ctx.OvernightWeekly {
				var nights []int
				for _, d := range week {
					nights = append(nights, m.b.workCol(emp, sb.ShiftID, d.Day))
				}
				m.b.addCountSum(fmt.Sprintf("weekly_overnight_%d_%d_%d", emp, sb.ShiftID, w), nights, sb.Band)
			}
		}
	}
}

// addWorkTimeSums posts the monthly hour band per employee: the sum of
// assigned shift durations, weighted in hours, must land inside the
// employee's corrected band.
func (m *Model) addWorkTimeSums(bands []workBand) {
	for _, wb := range bands {
		emp := wb.Employee.Employee.ID
		var works []int
		var weights []float64
		for _, si := range m.ctx.ShiftTypes[1:] {
			for d := 1; d <= m.ctx.NumDays; d++ {
				if c := m.b.workCol(emp, si.ID, d); c != noCol {
					works = append(works, c)
					weights = append(weights, float64(si.DurationHours()))
				}
			}
		}
		m.b.addSoftSum(fmt.Sprintf("work_time_%d", emp), works, weights, wb.Band)
	}
}

// addTransitionRows forbids, or penalizes when a cost is configured, every
// illegal shift-to-shift adjacency on consecutive days.
func (m *Model) addTransitionRows() {
	for _, tr := range m.ctx.IllegalTransitions {
		for _, ei := range m.ctx.Employees {
			emp := ei.Employee.ID
			for d := 1; d < m.ctx.NumDays; d++ {
				c1 := m.b.workCol(emp, tr.From, d)
				c2 := m.b.workCol(emp, tr.To, d+1)
				if c1 == noCol || c2 == noCol {
					continue
				}
				name := fmt.Sprintf("transition_%d_%d_%d_%d", emp, tr.From, tr.To, d)
				if tr.Penalty == 0 {
					m.b.addRow(name, glpk.UP, 0, 1, []int{c1, c2}, []float64{1, 1})
					continue
				}
				lit := m.b.addBinaryCol(name + "_lit")
				m.b.addObj(lit, float64(tr.Penalty))
				m.b.addRow(name, glpk.LO, -1, 0, []int{c1, c2, lit}, []float64{-1, -1, 1})
			}
		}
	}
}

// addWeekendRules posts the weekend constraints: a minimum number of free
// Sundays (reduced for employees whose hour target already exceeds their
// contracted hours), at least one fully free Saturday+Sunday pair per
// month, and the rest gap between a Friday overnight shift and the Monday
// shift after the weekend.
func (m *Model) addWeekendRules(bands []workBand) {
	var saturdays, sundays []int
	for _, week := range m.ctx.MonthByWeeks {
		for _, d := range week {
			switch d.Weekday {
			case 5:
				saturdays = append(saturdays, d.Day)
			case 6:
				sundays = append(sundays, d.Day)
			}
		}
	}

	for _, wb := range bands {
		emp := wb.Employee.Employee.ID

		if len(sundays) > 0 && m.cfg.FreeSundayCost > 0 {
			target := m.cfg.FreeSundays
			if wb.Band.SoftMax > wb.Employee.JobTime {
				target = m.cfg.FreeSundaysWithOvertime
			}
			var works []int
			for _, d := range sundays {
				works = append(works, m.b.workCol(emp, model.FreeShiftID, d))
			}
			band := config.Band{
				HardMin: 0,
				SoftMin: min(target, len(sundays)),
				MinCost: m.cfg.FreeSundayCost,
				SoftMax: len(sundays),
				HardMax: len(sundays),
			}
			m.b.addCountSum(fmt.Sprintf("free_sundays_%d", emp), works, band)
		}

		m.addFreeWeekendRow(emp, saturdays)
	}

	m.addWeekendGapRows()
}

// addFreeWeekendRow requires at least one Saturday+Sunday pair with both
// days free.
func (m *Model) addFreeWeekendRow(emp int, saturdays []int) {
	var pairs []int
	for _, sat := range saturdays {
		if sat+1 > m.ctx.NumDays {
			continue
		}
		freeSat := m.b.workCol(emp, model.FreeShiftID, sat)
		freeSun := m.b.workCol(emp, model.FreeShiftID, sat+1)
		pair := m.b.addBinaryCol(fmt.Sprintf("free_weekend_%d_%d", emp, sat))
		m.b.addRow(fmt.Sprintf("free_weekend_sat_%d_%d", emp, sat),
			glpk.UP, 0, 0, []int{pair, freeSat}, []float64{1, -1})
		m.b.addRow(fmt.Sprintf("free_weekend_sun_%d_%d", emp, sat),
			glpk.UP, 0, 0, []int{pair, freeSun}, []float64{1, -1})
		pairs = append(pairs, pair)
	}
	if len(pairs) == 0 {
		return
	}
	m.b.addRow(fmt.Sprintf("free_weekend_%d", emp),
		glpk.LO, 1, 0, pairs, ones(len(pairs)))
}

// addWeekendGapRows forbids a Friday shift whose rest gap to a Monday shift
// stays under the legal minimum even with the weekend in between. With
// ordinary shift lengths the gap always clears the minimum; the rows only
// materialize for extreme shift definitions.
func (m *Model) addWeekendGapRows() {
	var fridays []int
	for _, week := range m.ctx.MonthByWeeks {
		for _, d := range week {
			if d.Weekday == 4 {
				fridays = append(fridays, d.Day)
			}
		}
	}

	for _, si := range m.ctx.ShiftTypes[1:] {
		if !si.Overnight() {
			continue
		}
		end := si.ShiftType.Start.MinuteOfDay() + si.Duration
		for _, sj := range m.ctx.ShiftTypes[1:] {
			gap := 3*minutesPerDay + sj.ShiftType.Start.MinuteOfDay() - end
			if gap >= m.cfg.MinRestGapMinutes {
				continue
			}
			for _, ei := range m.ctx.Employees {
				emp := ei.Employee.ID
				for _, f := range fridays {
					if f+3 > m.ctx.NumDays {
						continue
					}
					c1 := m.b.workCol(emp, si.ID, f)
					c2 := m.b.workCol(emp, sj.ID, f+3)
					if c1 == noCol || c2 == noCol {
						continue
					}
					m.b.addRow(fmt.Sprintf("weekend_gap_%d_%d_%d_%d", emp, si.ID, sj.ID, f),
						glpk.UP, 0, 1, []int{c1, c2}, []float64{1, 1})
				}
			}
		}
	}
}

// addCoverRows posts the coverage demand per shift and schedulable day:
// assigned headcount minus a priced excess column equals demand, so
// overstaffing is tolerated at a cost while understaffing is infeasible.
func (m *Model) addCoverRows() {
	for _, si := range m.ctx.ShiftTypes[1:] {
		demand := si.ShiftType.Demand
		for _, d := range si.SchedulableDaysInMonth(m.ctx.Year, m.ctx.Month) {
			var cols []int
			for _, ei := range m.ctx.Employees {
				if c := m.b.workCol(ei.Employee.ID, si.ID, d); c != noCol {
					cols = append(cols, c)
				}
			}

			excess := m.b.addIntCol(fmt.Sprintf("excess_%d_%d", si.ID, d),
				0, max(len(cols)-demand, 0))
			m.b.addObj(excess, float64(m.cfg.ExcessCoverPenalty))
			m.excess[varKey{Shift: si.ID, Day: d}] = excess

			coefs := ones(len(cols))
			m.b.addRow(fmt.Sprintf("cover_%d_%d", si.ID, d),
				glpk.FX, float64(demand), float64(demand),
				append(cols, excess), append(coefs, -1))
		}
	}
}

// addBoundaryRows enforces the illegal-transition rules across the month
// edges using the shifts worked in the trailing week of the previous month
// and the leading week of the next month.
func (m *Model) addBoundaryRows(boundary Boundary) {
	lastPrev := calendar.DateOf(m.ctx.Year, m.ctx.Month, 1).AddDate(0, 0, -1)
	firstNext := calendar.DateOf(m.ctx.Year, m.ctx.Month, m.ctx.NumDays).AddDate(0, 0, 1)

	forbid := func(emp, shift, day, penalty int, name string) {
		c := m.b.workCol(emp, shift, day)
		if c == noCol {
			return
		}
		if penalty == 0 {
			m.b.addRow(name, glpk.UP, 0, 0, []int{c}, []float64{1})
			return
		}
		m.b.addObj(c, float64(penalty))
	}

	for _, sh := range boundary.Previous {
		if !sh.Date.Equal(lastPrev) {
			continue
		}
		si, ok := m.ctx.ShiftByTypeID(sh.ShiftTypeID)
		if !ok {
			continue
		}
		for _, tr := range m.ctx.IllegalTransitions {
			if tr.From != si.ID {
				continue
			}
			forbid(sh.EmployeeID, tr.To, 1, tr.Penalty,
				fmt.Sprintf("prev_boundary_%d_%d", sh.EmployeeID, tr.To))
		}
	}

	for _, sh := range boundary.Next {
		if !sh.Date.Equal(firstNext) {
			continue
		}
		si, ok := m.ctx.ShiftByTypeID(sh.ShiftTypeID)
		if !ok {
			continue
		}
		for _, tr := range m.ctx.IllegalTransitions {
			if tr.To != si.ID {
				continue
			}
			forbid(sh.EmployeeID, tr.From, m.ctx.NumDays, tr.Penalty,
				fmt.Sprintf("next_boundary_%d_%d", sh.EmployeeID, tr.From))
		}
	}
}
