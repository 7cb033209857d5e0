package solver

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/plannerd/monthroster/internal/config"
	"github.com/plannerd/monthroster/pkg/core/roster"
)

// workBand is the monthly hour band for one employee, in hours.
type workBand struct {
	Employee *roster.EmployeeInfo
	Band     config.Band
}

// computeWorkTimeBands derives each employee's monthly hour band from their
// contracted hours and the demand multipliers, then runs a two-phase
// correction so the aggregate bands neither over-commit nor under-commit
// relative to total demand.
//
// When demand falls short of contracted capacity (multiplier < 1) everyone
// is scaled down proportionally. When demand exceeds it, part-timers are
// scaled up by the overtime multiplier while full-timers are pinned to
// their contracted hours unless full-timer overtime is unavoidable.
func computeWorkTimeBands(ctx *roster.Context, cfg *config.Config, logger *zap.Logger) ([]workBand, error) {
	q := cfg.HourQuantum
	baseline := ctx.JobTime

	bands := make([]workBand, 0, len(ctx.Employees))
	for _, ei := range ctx.Employees {
		jt := ei.JobTime
		band := config.Band{MinCost: cfg.WorkTimeMinCost, MaxCost: cfg.WorkTimeMaxCost}

		if ctx.JobTimeMultiplier < 1 {
			scaled := float64(jt) * ctx.JobTimeMultiplier
			band.HardMin = floorToMultiple(scaled, q) - q
			band.SoftMin = floorToMultiple(scaled, q)
			band.SoftMax = ceilToMultiple(scaled, q)
			band.HardMax = jt + q
		} else {
			scaled := float64(jt) * ctx.OvertimeMultiplier
			band.HardMin = jt - q
			band.SoftMin = floorToMultiple(scaled, q)
			band.SoftMax = ceilToMultiple(scaled, q)
			band.HardMax = band.SoftMax + q
			if jt == baseline {
				// Full-timers should land exactly on their contracted hours.
				band.SoftMin = band.SoftMax
				band.MinCost += cfg.FullTimerMinCostBonus
			}
		}

		// Clamp to the month baseline and the employee's legal cap.
		softCeil := baseline
		if jt != baseline {
			softCeil = baseline - q
		}
		band.SoftMin = min(band.SoftMin, softCeil)
		band.SoftMax = min(band.SoftMax, baseline)
		band.HardMax = min(band.HardMax, baseline, ei.MaxWorkTime)

		// Re-establish ordering after the clamps.
		band.SoftMax = min(band.SoftMax, band.HardMax)
		band.SoftMin = min(band.SoftMin, band.SoftMax)
		band.HardMin = max(min(band.HardMin, band.SoftMin), 0)

		bands = append(bands, workBand{Employee: ei, Band: band})
	}

	if err := correctBandsDown(bands, ctx.TotalWorkTime, q, logger); err != nil {
		return nil, err
	}
	correctBandsUp(bands, ctx, q, logger)

	for _, wb := range bands {
		logger.Debug("work time band",
			zap.Int("employee_id", wb.Employee.Employee.ID),
			zap.Int("job_time", wb.Employee.JobTime),
			zap.Int("hard_min", wb.Band.HardMin),
			zap.Int("soft_min", wb.Band.SoftMin),
			zap.Int("soft_max", wb.Band.SoftMax),
			zap.Int("hard_max", wb.Band.HardMax))
	}

	return bands, nil
}

// correctBandsDown enforces the aggregate invariant: the sum of hard
// minimums must never exceed total demand, otherwise the model is
// infeasible by construction. Minimums are lowered a quantum at a time,
// largest first, so the reduction spreads across the best-committed
// employees.
func correctBandsDown(bands []workBand, totalWorkTime, q int, logger *zap.Logger) error {
	aggregate := func() int {
		sum := 0
		for _, wb := range bands {
			sum += wb.Band.HardMin
		}
		return sum
	}

	for aggregate() > totalWorkTime {
		idx := -1
		for i := range bands {
			if bands[i].Band.HardMin <= 0 {
				continue
			}
			if idx < 0 || bands[i].Band.HardMin > bands[idx].Band.HardMin {
				idx = i
			}
		}
		if idx < 0 {
			return fmt.Errorf("aggregate hard minimum %dh exceeds total demand %dh and cannot be reduced further",
				aggregate(), totalWorkTime)
		}
		bands[idx].Band.HardMin = max(bands[idx].Band.HardMin-q, 0)
		logger.Debug("lowered hard minimum to fit total demand",
			zap.Int("employee_id", bands[idx].Employee.Employee.ID),
			zap.Int("hard_min", bands[idx].Band.HardMin))
	}
	return nil
}

// correctBandsUp raises hour caps when the aggregate hard maximums cannot
// cover total demand. Employees below the full-time baseline are raised
// first; full-timers only absorb overtime once every part-timer is at their
// legal cap. If even the legal caps cannot cover demand the shortfall is
// logged and left for the solver to report infeasible.
func correctBandsUp(bands []workBand, ctx *roster.Context, q int, logger *zap.Logger) {
	aggregate := func() int {
		sum := 0
		for _, wb := range bands {
			sum += wb.Band.HardMax
		}
		return sum
	}

	// Raise order: part-timers by contracted hours ascending, then
	// full-timers.
	order := make([]int, len(bands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ja, jb := bands[order[a]].Employee.JobTime, bands[order[b]].Employee.JobTime
		fa, fb := ja == ctx.JobTime, jb == ctx.JobTime
		if fa != fb {
			return !fa
		}
		return ja < jb
	})

	for aggregate() < ctx.TotalWorkTime {
		raised := false
		for _, i := range order {
			limit := bands[i].Employee.MaxWorkTime
			if bands[i].Band.HardMax+q <= limit {
				bands[i].Band.HardMax += q
				logger.Debug("raised hour cap to cover total demand",
					zap.Int("employee_id", bands[i].Employee.Employee.ID),
					zap.Int("hard_max", bands[i].Band.HardMax))
				raised = true
				break
			}
		}
		if !raised {
			logger.Error("legal hour caps cannot cover total demand, model will be infeasible",
				zap.Int("aggregate_hard_max", aggregate()),
				zap.Int("total_work_time", ctx.TotalWorkTime))
			return
		}
	}
}

func floorToMultiple(x float64, multiple int) int {
	return int(math.Floor(x/float64(multiple))) * multiple
}

func ceilToMultiple(x float64, multiple int) int {
	return int(math.Ceil(x/float64(multiple))) * multiple
}
