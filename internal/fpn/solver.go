package fpn

import (
	"github.com/born-ml/fixpoint/internal/autodiff"
	"github.com/born-ml/fixpoint/internal/tensor"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"
)

// MapFunc is a latent update u -> T(u) with any conditioning already bound.
type MapFunc func(u *mat.Dense) *mat.Dense

// UpdateFunc is an update map T(u, Qd).
type UpdateFunc func(u, qd *mat.Dense) *mat.Dense

// Result is the outcome of a fixed-point iteration.
type Result struct {
	// U is the last iterate.
	U *mat.Dense

	// Depth is the number of map applications, in [0, maxDepth].
	Depth int

	// Converged reports whether the stopping threshold was met before the cap.
	Converged bool

	// Residual is max_b ||u_b - u_prev_b|| at the last step.
	Residual float64
}

// Iterate applies t starting at u0 until max_b ||u_b - u_prev_b|| <= tol or
// maxDepth applications. Hitting maxDepth is reported through Converged, not
// as an error.
func Iterate(t MapFunc, u0 *mat.Dense, maxDepth int, tol float64) Result {
	res := Result{U: u0}
	for res.Depth < maxDepth {
		prev := res.U
		next := t(prev)
		if !tensor.SameShape(prev, next) {
			exceptions.Panicf("fpn.Iterate: update map changed shape %s to %s", tensor.ShapeOf(prev), tensor.ShapeOf(next))
		}
		res.U = next
		res.Depth++
		res.Residual = tensor.MaxRowDiffNorm(next, prev)
		if res.Residual <= tol {
			res.Converged = true
			break
		}
	}
	return res
}

// Solve iterates t(·, qd) from the zero state, with u shaped like qd.
func Solve(t UpdateFunc, qd *mat.Dense, maxDepth int, tol float64) Result {
	return Iterate(func(u *mat.Dense) *mat.Dense { return t(u, qd) }, tensor.ZerosLike(qd), maxDepth, tol)
}

// Solution is the outcome of Solver.Solve.
type Solution struct {
	Result

	// Qd is the untracked conditioning signal the iteration used.
	Qd *mat.Dense
}

// Solver finds fixed points of an operator set without recording gradients.
type Solver struct {
	ops OperatorSet
	cfg Config
}

// NewSolver creates a Solver; zero Config fields take defaults.
func NewSolver(ops OperatorSet, cfg Config) *Solver {
	return &Solver{ops: ops, cfg: cfg.WithDefaults()}
}

// Config returns the effective configuration.
func (s *Solver) Config() Config {
	return s.cfg
}

// Solve encodes d and iterates the update map to its fixed point.
//
// With enforceContraction set, every bounded weight is projected into its
// interval first; projection failure is returned as an error wrapping
// spectral.ErrDecompositionFailed. The weights are read-locked for the
// duration of the iteration.
func (s *Solver) Solve(d *mat.Dense, enforceContraction bool) (*Solution, error) {
	if enforceContraction {
		if err := s.ops.Bounds().Project(s.cfg.Projection); err != nil {
			return nil, errors.WithMessagef(err, "%s: bounding operators before solve", s.ops.Name())
		}
	}
	reg := s.ops.Bounds()
	reg.RLock()
	defer reg.RUnlock()
	return s.solveLocked(d), nil
}

// solveLocked runs the iteration; the caller holds the read lock.
func (s *Solver) solveLocked(d *mat.Dense) *Solution {
	b := autodiff.New()
	qd := s.ops.Encode(b, d)
	if _, c := qd.Dims(); c != s.ops.LatentDim() {
		exceptions.Panicf("%s: Encode produced %d features, latent dim is %d", s.ops.Name(), c, s.ops.LatentDim())
	}
	res := Solve(func(u, qd *mat.Dense) *mat.Dense { return s.ops.Apply(b, u, qd) }, qd, s.cfg.MaxDepth, s.cfg.Tol)
	if !res.Converged {
		klog.V(1).Infof("%s: fixed-point iteration reached max depth %d (residual %.3e > tol %.1e)",
			s.ops.Name(), res.Depth, res.Residual, s.cfg.Tol)
	}
	return &Solution{Result: res, Qd: qd}
}
