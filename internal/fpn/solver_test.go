package fpn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func halfContraction(u, c *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Scale(0.5, u)
	out.Add(&out, c)
	return &out
}

// TestSolve_HalfContraction tests T(u) = 0.5u + c converges to 2c.
func TestSolve_HalfContraction(t *testing.T) {
	c := tensor.Randn(5, 3, 2, rand.New(rand.NewSource(1)))
	maxNorm := 0.0
	for _, n := range tensor.RowNorms(c) {
		maxNorm = math.Max(maxNorm, n)
	}
	var want mat.Dense
	want.Scale(2, c)

	prevDepth := 0
	for _, tol := range []float64{1e-2, 1e-4, 1e-6, 1e-8, 1e-10} {
		res := fpn.Solve(halfContraction, c, 1000, tol)
		require.True(t, res.Converged, "tol %g", tol)
		assert.LessOrEqual(t, res.Residual, tol)
		assert.True(t, mat.EqualApprox(res.U, &want, tol), "tol %g", tol)

		bound := 2 + int(math.Ceil(math.Log(maxNorm/tol)/math.Log(2)))
		assert.LessOrEqual(t, res.Depth, bound, "tol %g", tol)
		assert.Greater(t, res.Depth, prevDepth, "depth must grow with precision")
		prevDepth = res.Depth
	}
}

// TestSolve_Identity tests the Lipschitz-1 boundary: the identity stops at once from zero.
func TestSolve_Identity(t *testing.T) {
	qd := tensor.Ones(2, 4)
	res := fpn.Solve(func(u, _ *mat.Dense) *mat.Dense { return tensor.Clone(u) }, qd, 50, 1e-6)
	assert.True(t, res.Converged)
	assert.Equal(t, 1, res.Depth)
	assert.True(t, tensor.IsFinite(res.U))
}

// TestSolve_IsometryRunsToMaxDepth tests a Lipschitz-1 map that never settles:
// a quarter rotation plus offset cycles with period four.
func TestSolve_IsometryRunsToMaxDepth(t *testing.T) {
	rot := mat.NewDense(2, 2, []float64{0, 1, -1, 0})
	step := func(u, qd *mat.Dense) *mat.Dense {
		var out mat.Dense
		out.Mul(u, rot)
		out.Add(&out, qd)
		return &out
	}
	qd := tensor.FromRows([][]float64{{1, 0}, {0, 2}})

	for _, maxDepth := range []int{1, 7, 100} {
		res := fpn.Solve(step, qd, maxDepth, 1e-6)
		assert.False(t, res.Converged)
		assert.Equal(t, maxDepth, res.Depth)
		require.True(t, tensor.IsFinite(res.U))
		for _, n := range tensor.RowNorms(res.U) {
			assert.LessOrEqual(t, n, 10.0)
		}
	}
}

// TestSolve_ZeroDepth tests that a zero cap returns the initial state.
func TestSolve_ZeroDepth(t *testing.T) {
	qd := tensor.Ones(1, 2)
	res := fpn.Solve(halfContraction, qd, 0, 1e-6)
	assert.Equal(t, 0, res.Depth)
	assert.False(t, res.Converged)
	assert.Zero(t, mat.Norm(res.U, 2))
}

func TestIterate_ShapeChangePanics(t *testing.T) {
	assert.Panics(t, func() {
		fpn.Iterate(func(u *mat.Dense) *mat.Dense { return tensor.Zeros(1, 1) }, tensor.Zeros(2, 2), 5, 1e-6)
	})
}
