// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package fpn

import (
	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/krylov"
	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/born-ml/fixpoint/internal/spectral"
	"gonum.org/v1/gonum/mat"
)

// OperatorSet is a trainable fixed-point model.
type OperatorSet = fpn.OperatorSet

// Config configures the forward solver and the gradient engine.
type Config = fpn.Config

// Mode selects how training gradients are formed at the fixed point.
type Mode = fpn.Mode

// Gradient modes.
const (
	ModeAdjoint  = fpn.ModeAdjoint
	ModeExplicit = fpn.ModeExplicit
)

// DefaultConfig returns the configuration with every default filled in.
func DefaultConfig() Config {
	return fpn.DefaultConfig()
}

// ParseMode parses "adjoint" or "explicit".
func ParseMode(s string) (Mode, error) {
	return fpn.ParseMode(s)
}

// Forward solver

// UpdateFunc is an update map T(u, Qd).
type UpdateFunc = fpn.UpdateFunc

// MapFunc is an update map with its conditioning already bound.
type MapFunc = fpn.MapFunc

// Result is the outcome of a fixed-point iteration.
type Result = fpn.Result

// Solve iterates t(·, qd) from zero until consecutive iterates differ by at
// most tol in every row, or maxDepth applications.
//
// Example:
//
//	res := fpn.Solve(func(u, qd *mat.Dense) *mat.Dense {
//	    var next mat.Dense
//	    next.Scale(0.5, u)
//	    next.Add(&next, qd)
//	    return &next
//	}, qd, 100, 1e-8)
func Solve(t UpdateFunc, qd *mat.Dense, maxDepth int, tol float64) Result {
	return fpn.Solve(t, qd, maxDepth, tol)
}

// Iterate is Solve starting from u0 with the conditioning bound into t.
func Iterate(t MapFunc, u0 *mat.Dense, maxDepth int, tol float64) Result {
	return fpn.Iterate(t, u0, maxDepth, tol)
}

// Solver runs an operator set to its fixed point.
type Solver = fpn.Solver

// Solution is the outcome of Solver.Solve.
type Solution = fpn.Solution

// NewSolver creates a forward solver for ops.
func NewSolver(ops OperatorSet, cfg Config) *Solver {
	return fpn.NewSolver(ops, cfg)
}

// Gradient engine

// Engine trains and evaluates an operator set through its fixed point.
type Engine = fpn.Engine

// Stats are the per-batch diagnostics of a solve.
type Stats = fpn.Stats

// StepResult is the outcome of one training step.
type StepResult = fpn.StepResult

// Inference is the outcome of Engine.Infer.
type Inference = fpn.Inference

// Stage is one named tape evaluation of a gradient pass.
type Stage = fpn.Stage

// NewEngine creates a gradient engine.
//
// Example:
//
//	engine := fpn.NewEngine(ops, nn.NewCrossEntropyLoss(), fpn.Config{MaxDepth: 200})
//	res, err := engine.Step(x, labels)
func NewEngine(ops OperatorSet, loss nn.Loss, cfg Config) *Engine {
	return fpn.NewEngine(ops, loss, cfg)
}

// Conjugate gradient

// CGOperator is a symmetric positive-definite map applied row-wise.
type CGOperator = krylov.Operator

// CGOptions configures CG.
type CGOptions = krylov.Options

// CGInfo reports how a CG call ended.
type CGInfo = krylov.Info

// CG solves a(x) = b independently for every row of b.
func CG(a CGOperator, b *mat.Dense, opts CGOptions) (*mat.Dense, CGInfo) {
	return krylov.CG(a, b, opts)
}

// Singular value projection

// ProjectionOptions configures the retry policy of Project.
type ProjectionOptions = spectral.Options

// Project clamps the singular values of m into [lo, hi] in place, retrying
// with added noise when the factorization fails.
func Project(m *mat.Dense, lo, hi float64, opts ProjectionOptions) error {
	return spectral.Project(m, lo, hi, opts)
}

// SpectralNorm returns the largest singular value of m.
func SpectralNorm(m mat.Matrix) (float64, error) {
	return spectral.Norm(m)
}
