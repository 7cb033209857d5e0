package solver

import (
	"fmt"

	"github.com/lukpank/go-glpk/glpk"

	"github.com/plannerd/monthroster/internal/config"
)

// The sequence and sum encoders below linearize soft-bounded constraints
// over runs and sums of boolean columns. works is an ordered list of column
// ids; noCol entries stand for positions fixed to false (a day the variable
// was never created for), which break any run and contribute nothing to a
// sum.

// addSoftSequence bounds the length of every maximal run of true values in
// works. Runs shorter than band.HardMin or longer than band.HardMax are
// forbidden; runs outside [SoftMin, SoftMax] cost the band's penalty per
// unit of violation.
//
// A run of exactly `length` starting at `start` is witnessed by the clause
// works[start-1] OR !works[start..start+length-1] OR works[start+length]
// (borders fall away at the edges). Linearized, the clause becomes
// sum(borders) - sum(inner) >= 1 - length; adding a penalty literal to the
// left side makes it soft.
func (b *builder) addSoftSequence(prefix string, works []int, band config.Band) {
	n := len(works)

	// Forbid runs shorter than the hard minimum.
	for length := 1; length < band.HardMin; length++ {
		for start := 0; start+length <= n; start++ {
			if cols, coefs, ok := spanClause(works, start, length); ok {
				b.addRow(fmt.Sprintf("%s_short_%d_%d", prefix, start, length),
					glpk.LO, float64(1-length), 0, cols, coefs)
			}
		}
	}

	// Penalize runs below the soft minimum.
	if band.MinCost > 0 {
		for length := band.HardMin; length < band.SoftMin; length++ {
			for start := 0; start+length <= n; start++ {
				cols, coefs, ok := spanClause(works, start, length)
				if !ok {
					continue
				}
				lit := b.addBinaryCol(fmt.Sprintf("%s_under_%d_%d", prefix, start, length))
				b.addObj(lit, float64(band.MinCost*(band.SoftMin-length)))
				b.addRow(fmt.Sprintf("%s_under_span_%d_%d", prefix, start, length),
					glpk.LO, float64(1-length), 0, append(cols, lit), append(coefs, 1))
			}
		}
	}

	// Penalize runs above the soft maximum.
	if band.MaxCost > 0 {
		for length := band.SoftMax + 1; length <= band.HardMax; length++ {
			for start := 0; start+length <= n; start++ {
				cols, coefs, ok := spanClause(works, start, length)
				if !ok {
					continue
				}
				lit := b.addBinaryCol(fmt.Sprintf("%s_over_%d_%d", prefix, start, length))
				b.addObj(lit, float64(band.MaxCost*(length-band.SoftMax)))
				b.addRow(fmt.Sprintf("%s_over_span_%d_%d", prefix, start, length),
					glpk.LO, float64(1-length), 0, append(cols, lit), append(coefs, 1))
			}
		}
	}

	// Forbid any window of hardMax+1 consecutive true values.
	for start := 0; start+band.HardMax+1 <= n; start++ {
		window := works[start : start+band.HardMax+1]
		if cols := liveCols(window); len(cols) == len(window) {
			b.addRow(fmt.Sprintf("%s_cap_%d", prefix, start),
				glpk.UP, 0, float64(band.HardMax), cols, ones(len(cols)))
		}
	}
}

// spanClause builds the linearized negated-bounded-span clause for a run of
// exactly `length` starting at `start`: border columns enter with +1, inner
// columns with -1, bounded below by 1-length. Returns ok=false when an
// inner position carries no column, making the clause trivially satisfied
// (that position can never be true, so the run cannot occur there).
func spanClause(works []int, start, length int) (cols []int, coefs []float64, ok bool) {
	if start > 0 && works[start-1] != noCol {
		cols = append(cols, works[start-1])
		coefs = append(coefs, 1)
	}
	for i := 0; i < length; i++ {
		if works[start+i] == noCol {
			return nil, nil, false
		}
		cols = append(cols, works[start+i])
		coefs = append(coefs, -1)
	}
	if end := start + length; end < len(works) && works[end] != noCol {
		cols = append(cols, works[end])
		coefs = append(coefs, 1)
	}
	return cols, coefs, true
}

// addSoftSum bounds a weighted sum of boolean columns. The hard bounds are
// posted as a row over the live columns; soft bounds get integer slack
// columns priced into the objective: sum + under >= softMin and
// sum - over <= softMax.
func (b *builder) addSoftSum(prefix string, works []int, weights []float64, band config.Band) {
	var cols []int
	var coefs []float64
	total := 0.0
	for i, w := range works {
		if w == noCol {
			continue
		}
		cols = append(cols, w)
		coefs = append(coefs, weights[i])
		total += weights[i]
	}
	if len(cols) == 0 {
		return
	}

	switch {
	case band.HardMin == band.HardMax:
		b.addRow(prefix+"_hard", glpk.FX, float64(band.HardMin), float64(band.HardMax), cols, coefs)
	default:
		b.addRow(prefix+"_hard", glpk.DB, float64(band.HardMin), float64(band.HardMax), cols, coefs)
	}

	if band.SoftMin > band.HardMin && band.MinCost > 0 {
		under := b.addIntCol(prefix+"_under", 0, band.SoftMin-band.HardMin)
		b.addObj(under, float64(band.MinCost))
		b.addRow(prefix+"_soft_min", glpk.LO, float64(band.SoftMin), 0,
			append(append([]int{}, cols...), under),
			append(append([]float64{}, coefs...), 1))
	}

	if band.SoftMax < band.HardMax && band.MaxCost > 0 {
		over := b.addIntCol(prefix+"_over", 0, band.HardMax-band.SoftMax)
		b.addObj(over, float64(band.MaxCost))
		b.addRow(prefix+"_soft_max", glpk.UP, 0, float64(band.SoftMax),
			append(append([]int{}, cols...), over),
			append(append([]float64{}, coefs...), -1))
	}
}

// addCountSum is addSoftSum with unit weights.
func (b *builder) addCountSum(prefix string, works []int, band config.Band) {
	b.addSoftSum(prefix, works, ones(len(works)), band)
}

func liveCols(works []int) []int {
	var cols []int
	for _, w := range works {
		if w != noCol {
			cols = append(cols, w)
		}
	}
	return cols
}

func ones(n int) []float64 {
	coefs := make([]float64, n)
	for i := range coefs {
		coefs[i] = 1
	}
	return coefs
}
