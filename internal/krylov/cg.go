// Package krylov solves batches of independent symmetric positive-definite
// systems with a matrix-free conjugate-gradient method.
//
// Each row of the right-hand side is its own system A(x_i) = b_i. The operator
// is applied to the whole batch at once, so every iteration costs one batched
// operator application regardless of how many rows have already converged.
// Rows stop moving once their residual is below threshold; the batch as a whole
// stops when every row has converged or the iteration cap is reached.
package krylov

import (
	"math"

	"github.com/born-ml/fixpoint/internal/tensor"
	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/mat"
)

// Operator applies a linear map to every row of x and returns a new matrix of
// the same shape. It must be symmetric positive-definite for CG to converge.
type Operator func(x *mat.Dense) *mat.Dense

// Defaults used when Options fields are zero.
const (
	DefaultMaxIter = 500
	DefaultTolAbs  = 1e-6
)

// Options configures CG.
type Options struct {
	// TolAbs is the absolute residual threshold. Default: 1e-6.
	TolAbs float64

	// TolRel is the residual threshold relative to ||b_i||. Zero disables it.
	TolRel float64

	// MaxIter caps the number of iterations for the whole batch. Default: 500.
	MaxIter int

	// X0 is the initial guess. Default: zeros.
	X0 *mat.Dense
}

// Info reports how a CG call ended.
type Info struct {
	// Iterations is the number of operator applications after the initial residual.
	Iterations int

	// ResidualNorms holds ||b_i - A x_i|| per row at exit.
	ResidualNorms []float64

	// History holds the maximum residual norm over rows, starting with the
	// initial residual and then once per iteration.
	History []float64

	// Converged reports whether every row met its threshold.
	Converged bool
}

// MaxResidual returns the largest final residual norm.
func (i Info) MaxResidual() float64 {
	return maxOf(i.ResidualNorms)
}

// CG solves A(x) = b row-wise. It never fails: when MaxIter is reached or A is
// not positive-definite the current estimate is returned with Converged=false.
func CG(a Operator, b *mat.Dense, opts Options) (*mat.Dense, Info) {
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.TolAbs <= 0 && opts.TolRel <= 0 {
		opts.TolAbs = DefaultTolAbs
	}
	rows, cols := b.Dims()

	var x, r *mat.Dense
	if opts.X0 != nil {
		if !tensor.SameShape(opts.X0, b) {
			exceptions.Panicf("krylov.CG: initial guess shape %s does not match rhs shape %s",
				tensor.ShapeOf(opts.X0), tensor.ShapeOf(b))
		}
		x = tensor.Clone(opts.X0)
		r = tensor.Clone(b)
		r.Sub(r, applyChecked(a, x))
	} else {
		x = tensor.Zeros(rows, cols)
		r = tensor.Clone(b)
	}

	threshold := tensor.RowNorms(b)
	for i, bn := range threshold {
		threshold[i] = math.Max(opts.TolAbs, opts.TolRel*bn)
	}

	p := tensor.Clone(r)
	rr := tensor.RowDots(r, r)
	norms := sqrtAll(rr)
	info := Info{History: []float64{maxOf(norms)}}

	alpha := make([]float64, rows)
	beta := make([]float64, rows)
	active := make([]bool, rows)
	for info.Iterations < opts.MaxIter {
		if !markActive(active, norms, threshold) {
			break
		}
		ap := applyChecked(a, p)
		pAp := tensor.RowDots(p, ap)
		for i := range alpha {
			alpha[i] = 0
			if active[i] && pAp[i] > 0 {
				alpha[i] = rr[i] / pAp[i]
			}
		}
		tensor.AddScaledRows(x, alpha, p)
		for i := range alpha {
			alpha[i] = -alpha[i]
		}
		tensor.AddScaledRows(r, alpha, ap)

		rrNew := tensor.RowDots(r, r)
		for i := range beta {
			beta[i] = 0
			if active[i] && rr[i] > 0 {
				beta[i] = rrNew[i] / rr[i]
			}
		}
		// p = r + beta*p
		tensor.ScaleRows(p, beta)
		p.Add(p, r)

		rr = rrNew
		norms = sqrtAll(rr)
		info.Iterations++
		info.History = append(info.History, maxOf(norms))
	}

	info.ResidualNorms = norms
	info.Converged = !markActive(active, norms, threshold)
	return x, info
}

// applyChecked applies a and panics if it changes the shape.
func applyChecked(a Operator, x *mat.Dense) *mat.Dense {
	y := a(x)
	if !tensor.SameShape(x, y) {
		exceptions.Panicf("krylov.CG: operator mapped shape %s to %s", tensor.ShapeOf(x), tensor.ShapeOf(y))
	}
	return y
}

// markActive flags rows still above threshold and reports whether any is.
// NaN residuals count as not converged.
func markActive(active []bool, norms, threshold []float64) bool {
	pending := false
	for i, n := range norms {
		active[i] = !(n <= threshold[i])
		pending = pending || active[i]
	}
	return pending
}

func sqrtAll(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = math.Sqrt(math.Max(x, 0))
	}
	return out
}

func maxOf(v []float64) float64 {
	var m float64
	for _, x := range v {
		if x > m || math.IsNaN(x) {
			m = x
		}
	}
	return m
}
