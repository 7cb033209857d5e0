package solver

import (
	"fmt"
	"sort"

	"github.com/lukpank/go-glpk/glpk"
	"go.uber.org/zap"

	"github.com/plannerd/monthroster/pkg/core/model"
)

// Status is the terminal state of one solve.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// Solved reports whether the status carries a usable assignment.
func (s Status) Solved() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Placement is one solved work assignment: the employee works the shift
// (ordinal id, never the free shift) on the day.
type Placement struct {
	EmployeeID int
	ShiftID    int
	Day        int
}

// Solution is the outcome of one solve: the terminal status and, when
// solved, the placements and the per-employee hour tally.
type Solution struct {
	Status     Status
	Objective  float64
	Placements []Placement

	// WorkTime maps employee ids to their assigned hours.
	WorkTime map[int]int
}

// Solve runs the LP relaxation and then the integer optimizer on the built
// model. Infeasibility is a normal terminal state, not an error; errors are
// reserved for solver failures. The configured time budget is advisory
// only, the GLPK binding exposes no MIP time limit.
func (m *Model) Solve() (*Solution, error) {
	m.logger.Info("solving model",
		zap.Duration("advisory_time_budget", m.cfg.SolveTimeLimit))

	smcp := glpk.NewSmcp()
	smcp.SetMsgLev(glpk.MSG_ERR)
	if err := m.lp.Simplex(smcp); err != nil {
		return nil, fmt.Errorf("simplex relaxation failed: %w", err)
	}

	switch m.lp.Status() {
	case glpk.OPT, glpk.FEAS:
	case glpk.NOFEAS, glpk.INFEAS:
		m.logger.Warn("LP relaxation is infeasible")
		return &Solution{Status: StatusInfeasible}, nil
	default:
		m.logger.Warn("LP relaxation did not converge")
		return &Solution{Status: StatusUnknown}, nil
	}

	iocp := glpk.NewIocp()
	iocp.SetPresolve(true)
	iocp.SetMsgLev(glpk.MSG_ERR)
	if err := m.lp.Intopt(iocp); err != nil {
		// GLPK reports infeasible integer models through the error path.
		m.logger.Warn("integer optimizer found no solution", zap.Error(err))
		return &Solution{Status: StatusInfeasible}, nil
	}

	var status Status
	switch m.lp.MipStatus() {
	case glpk.OPT:
		status = StatusOptimal
	case glpk.FEAS:
		status = StatusFeasible
	case glpk.NOFEAS:
		status = StatusInfeasible
	default:
		status = StatusUnknown
	}

	sol := &Solution{Status: status, WorkTime: make(map[int]int)}
	if !status.Solved() {
		m.logger.Warn("solve finished without a usable assignment",
			zap.Stringer("status", status))
		return sol, nil
	}

	sol.Objective = m.lp.MipObjVal()
	for key, col := range m.b.work {
		if key.Shift == model.FreeShiftID || m.lp.MipColVal(col) < 0.5 {
			continue
		}
		sol.Placements = append(sol.Placements, Placement{
			EmployeeID: key.Emp,
			ShiftID:    key.Shift,
			Day:        key.Day,
		})
		if si := m.ctx.ShiftByID(key.Shift); si != nil {
			sol.WorkTime[key.Emp] += si.DurationHours()
		}
	}
	sort.Slice(sol.Placements, func(i, j int) bool {
		a, b := sol.Placements[i], sol.Placements[j]
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.ShiftID < b.ShiftID
	})

	m.logExcess()

	m.logger.Info("solve finished",
		zap.Stringer("status", status),
		zap.Float64("objective", sol.Objective),
		zap.Int("placements", len(sol.Placements)))

	return sol, nil
}

// logExcess reports every (shift, day) slot the solver overstaffed; the
// reconciler removes these afterwards.
func (m *Model) logExcess() {
	for key, col := range m.excess {
		if v := m.lp.MipColVal(col); v > 0.5 {
			si := m.ctx.ShiftByID(key.Shift)
			m.logger.Info("cover demand exceeded",
				zap.String("shift", si.ShiftType.Name),
				zap.Int("day", key.Day),
				zap.Int("excess", int(v+0.5)))
		}
	}
}
