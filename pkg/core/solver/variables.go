// Package solver translates a scheduling context into a mixed-integer
// program over boolean (employee, shift, day) variables, solves it with
// GLPK and reconciles excess coverage on the solved assignment list.
package solver

import (
	"fmt"

	"github.com/lukpank/go-glpk/glpk"

	"github.com/plannerd/monthroster/pkg/core/roster"
)

// varKey identifies one boolean decision variable: employee works shift on
// day. Shift is the ordinal shift id, 0 the free shift.
type varKey struct {
	Emp   int
	Shift int
	Day   int
}

// noCol marks a position in a constraint works-list with no underlying
// column. GLPK columns are 1-based, so 0 is free to mean "constant false".
const noCol = 0

// builder wraps a GLPK problem with the bookkeeping the constraint encoders
// need: the sparse work-variable registry, running column/row counters and
// the accumulated objective coefficients. Objective terms are collected in a
// map because several constraints may touch the same column; they are
// flushed once at the end of the build.
type builder struct {
	lp *glpk.Prob

	work map[varKey]int
	obj  map[int]float64

	numCols int
	numRows int
}

func newBuilder(lp *glpk.Prob) *builder {
	return &builder{
		lp:   lp,
		work: make(map[varKey]int),
		obj:  make(map[int]float64),
	}
}

func (b *builder) addBinaryCol(name string) int {
	b.numCols++
	b.lp.AddCols(1)
	b.lp.SetColName(b.numCols, name)
	b.lp.SetColKind(b.numCols, glpk.BV)
	return b.numCols
}

func (b *builder) addIntCol(name string, lo, up int) int {
	b.numCols++
	b.lp.AddCols(1)
	b.lp.SetColName(b.numCols, name)
	b.lp.SetColKind(b.numCols, glpk.IV)
	if lo == up {
		b.lp.SetColBnds(b.numCols, glpk.FX, float64(lo), float64(up))
	} else {
		b.lp.SetColBnds(b.numCols, glpk.DB, float64(lo), float64(up))
	}
	return b.numCols
}

// addRow posts one linear constraint. GLPK matrix arrays are 1-based, so the
// index and value slices are built with a dummy leading element.
func (b *builder) addRow(name string, typ glpk.BndsType, lo, up float64, cols []int, coefs []float64) int {
	b.numRows++
	b.lp.AddRows(1)
	b.lp.SetRowName(b.numRows, name)
	b.lp.SetRowBnds(b.numRows, typ, lo, up)

	ind := make([]int32, len(cols)+1)
	val := make([]float64, len(cols)+1)
	for i, c := range cols {
		ind[i+1] = int32(c)
		val[i+1] = coefs[i]
	}
	b.lp.SetMatRow(b.numRows, ind, val)
	return b.numRows
}

func (b *builder) addObj(col int, coef float64) {
	b.obj[col] += coef
}

func (b *builder) flushObjective() {
	for col, coef := range b.obj {
		b.lp.SetObjCoef(col, coef)
	}
}

// workCol returns the decision column for (employee, shift, day), or noCol
// when the combination was excluded from the model.
func (b *builder) workCol(emp, shift, day int) int {
	return b.work[varKey{Emp: emp, Shift: shift, Day: day}]
}

// createWorkVars registers one binary column per legal (employee, shift,
// day) combination from the allowed-shift sets. Illegal combinations get no
// column at all, which keeps the model sparse and makes them structurally
// impossible rather than constrained to zero.
func (b *builder) createWorkVars(ctx *roster.Context, allowed map[int]map[int][]int) {
	for _, ei := range ctx.Employees {
		emp := ei.Employee.ID
		for _, si := range ctx.ShiftTypes {
			for _, d := range allowed[emp][si.ID] {
				key := varKey{Emp: emp, Shift: si.ID, Day: d}
				b.work[key] = b.addBinaryCol(fmt.Sprintf("work_%d_%d_%d", emp, si.ID, d))
			}
		}
	}
}
