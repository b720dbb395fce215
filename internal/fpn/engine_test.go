package fpn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/born-ml/fixpoint/internal/autodiff"
	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/models"
	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/born-ml/fixpoint/internal/spectral"
	"github.com/born-ml/fixpoint/internal/tensor"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func rotation(theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(2, 2, []float64{c, -s, s, c})
}

// toyLinear returns a 2-dimensional latent-linear model whose latent map
// W = U·diag(0.9, 0.4)·Vᵀ is non-symmetric with spectral norm 0.9.
func toyLinear(t *testing.T) *models.Linear {
	t.Helper()
	m := must.M1(models.NewLinear(models.LinearConfig{InputDim: 3, OutputDim: 2, LatentDim: 2, Seed: 7}))

	var w, tmp mat.Dense
	tmp.Mul(rotation(0.3), mat.NewDense(2, 2, []float64{0.9, 0, 0, 0.4}))
	w.Mul(&tmp, rotation(1.1).T())
	m.Latent().Weight().Value().Copy(&w)

	m.Encoder().Weight().Value().Copy(mat.NewDense(2, 3, []float64{0.5, -0.2, 0.1, 0.3, 0.4, -0.3}))
	m.Head().Weight().Value().Copy(mat.NewDense(2, 2, []float64{1.2, -0.7, 0.4, 2.0}))
	m.Head().Bias().Value().Copy(mat.NewDense(1, 2, []float64{0.1, -0.2}))
	return m
}

// unrolledGrads differentiates through steps explicit applications from zero.
func unrolledGrads(ops fpn.OperatorSet, loss nn.Loss, d *mat.Dense, labels []int, steps int) (float64, map[*mat.Dense]*mat.Dense) {
	b := autodiff.New()
	b.Tape().StartRecording()
	qd := ops.Encode(b, d)
	u := tensor.ZerosLike(qd)
	for i := 0; i < steps; i++ {
		u = ops.Apply(b, u, qd)
	}
	l := loss.Forward(b, ops.Readout(b, u), labels)
	return l.At(0, 0), b.Backward(l)
}

// TestEngine_AdjointMatchesUnrolled tests that implicit gradients equal gradients
// through a 1000-step unrolled iteration.
func TestEngine_AdjointMatchesUnrolled(t *testing.T) {
	m := toyLinear(t)
	loss := nn.NewMSELoss()
	d := tensor.FromRows([][]float64{{1, 0, -1}, {0.5, 2, 0}, {-1, 1, 1}, {0, 0, 3}})
	labels := []int{0, 1, 1, 0}

	e := fpn.NewEngine(m, loss, fpn.Config{
		MaxDepth:  5000,
		Tol:       1e-13,
		MaxCGIter: 200,
		CGTolAbs:  1e-14,
		Damping:   1e-12,
	})
	res, err := e.Step(d, labels)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.True(t, res.CGConverged, "cg residuals %v", res.CGResiduals)

	wantLoss, want := unrolledGrads(m, loss, d, labels, 1000)
	assert.InDelta(t, wantLoss, res.Loss, 1e-10)

	for _, p := range m.Parameters() {
		got, ok := res.Grads[p.Value()]
		require.True(t, ok, "missing gradient for %s", p.Name())
		assert.True(t, mat.EqualApprox(got, want[p.Value()], 1e-4),
			"%s:\n got %v\nwant %v", p.Name(), mat.Formatted(got), mat.Formatted(want[p.Value()]))
	}

	assert.Equal(t, []fpn.Stage{
		fpn.StageForward, fpn.StageLossVJP, fpn.StageResidualVJP, fpn.StageJVP,
		fpn.StageSolve, fpn.StageBackward, fpn.StageReleased,
	}, res.Stages)
	assert.Equal(t, res.CGIterations*4, res.Matvecs)
}

// TestEngine_ExplicitMode tests Jacobian-free gradients: same readout
// gradient as the adjoint, no linear solve.
func TestEngine_ExplicitMode(t *testing.T) {
	d := tensor.FromRows([][]float64{{1, 0, -1}, {0.5, 2, 0}})
	labels := []int{1, 0}

	adj := toyLinear(t)
	adjRes := must.M1(fpn.NewEngine(adj, nn.NewMSELoss(), fpn.Config{Tol: 1e-12}).Step(d, labels))

	jfb := toyLinear(t)
	jfbRes := must.M1(fpn.NewEngine(jfb, nn.NewMSELoss(), fpn.Config{Tol: 1e-12, Mode: fpn.ModeExplicit}).Step(d, labels))

	assert.Equal(t, []fpn.Stage{fpn.StageForward, fpn.StageLossVJP, fpn.StageBackward, fpn.StageReleased}, jfbRes.Stages)
	assert.Zero(t, jfbRes.CGIterations)
	assert.Zero(t, jfbRes.Matvecs)
	assert.InDelta(t, adjRes.Loss, jfbRes.Loss, 1e-12)

	head := jfb.Head().Weight().Value()
	assert.True(t, mat.EqualApprox(adjRes.Grads[adj.Head().Weight().Value()], jfbRes.Grads[head], 1e-10))
	assert.False(t, mat.EqualApprox(adjRes.Grads[adj.Latent().Weight().Value()], jfbRes.Grads[jfb.Latent().Weight().Value()], 1e-6),
		"explicit latent gradient should differ from the implicit one")
}

// TestEngine_StatsBounded tests that depth and CG counts stay within their caps.
func TestEngine_StatsBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m := must.M1(models.NewFCN(models.FCNConfig{InputDim: 12, Classes: 3, HiddenDim: 10, LatentDim: 6, Seed: 3}))
	d := tensor.Randn(8, 12, 1, rng)
	labels := []int{0, 1, 2, 0, 1, 2, 0, 1}

	for _, cfg := range []fpn.Config{
		{MaxDepth: 3, MaxCGIter: 2},
		{MaxDepth: 50, MaxCGIter: 50, Tol: 1e-4},
		{},
	} {
		e := fpn.NewEngine(m, nn.NewCrossEntropyLoss(), cfg)
		eff := e.Config()
		res, err := e.Step(d, labels)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Depth, 0)
		assert.LessOrEqual(t, res.Depth, eff.MaxDepth)
		assert.GreaterOrEqual(t, res.CGIterations, 0)
		assert.LessOrEqual(t, res.CGIterations, eff.MaxCGIter)
		assert.Equal(t, res.CGIterations*8, res.Matvecs)
		assert.Len(t, res.CGResiduals, 8)
		assert.False(t, math.IsNaN(res.Loss))
		for _, p := range m.Parameters() {
			g, ok := res.Grads[p.Value()]
			require.True(t, ok, p.Name())
			assert.True(t, tensor.IsFinite(g), p.Name())
		}
	}
}

// TestEngine_StepProjectsBounds tests that out-of-range weights are clamped before solving.
func TestEngine_StepProjectsBounds(t *testing.T) {
	m := toyLinear(t)
	w := m.Latent().Weight().Value()
	w.Scale(5, w)

	e := fpn.NewEngine(m, nn.NewMSELoss(), fpn.Config{})
	_, err := e.Step(tensor.Ones(2, 3), []int{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, must.M1(spectral.Norm(w)), 1e-10)

	// Inference does not project.
	w.Scale(2, w)
	_, err = e.Infer(tensor.Ones(2, 3))
	require.NoError(t, err)
	assert.InDelta(t, 1.8, must.M1(spectral.Norm(w)), 1e-10)
}

// TestEngine_InferAndEvaluate tests prediction shapes and loss at inference.
func TestEngine_InferAndEvaluate(t *testing.T) {
	m := toyLinear(t)
	e := fpn.NewEngine(m, nn.NewMSELoss(), fpn.Config{Tol: 1e-10})
	d := tensor.FromRows([][]float64{{1, 2, 3}, {0, 0, 0}, {-1, 0, 1}})

	inf, err := e.Infer(d)
	require.NoError(t, err)
	assert.True(t, inf.Converged)
	assert.Equal(t, tensor.Shape{3, 2}, tensor.ShapeOf(inf.Prediction))
	assert.Equal(t, tensor.Shape{3, 2}, tensor.ShapeOf(inf.U))

	// The fixed point satisfies u = T(u, Qd).
	b := autodiff.New()
	tu := m.Apply(b, inf.U, m.Encode(b, d))
	assert.Less(t, tensor.MaxRowDiffNorm(tu, inf.U), 1e-9)

	l, inf2, err := e.Evaluate(d, []int{0, 1, 0})
	require.NoError(t, err)
	assert.True(t, mat.Equal(inf.Prediction, inf2.Prediction))
	assert.Greater(t, l, 0.0)
}

// badBounds is an operator set whose registry holds an invalid interval.
type badBounds struct {
	*models.Linear
	reg *nn.BoundRegistry
}

func (b *badBounds) Bounds() *nn.BoundRegistry { return b.reg }

// TestSolver_ProjectionErrorSurfaces tests that projection failures abort the solve.
func TestSolver_ProjectionErrorSurfaces(t *testing.T) {
	m := toyLinear(t)
	reg := nn.NewBoundRegistry()
	reg.Register(m.Latent().Weight(), 0, -1)
	ops := &badBounds{Linear: m, reg: reg}

	s := fpn.NewSolver(ops, fpn.Config{})
	_, err := s.Solve(tensor.Ones(1, 3), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, spectral.ErrInvalidBounds)
	assert.Contains(t, err.Error(), "fc_w.weight")

	sol, err := s.Solve(tensor.Ones(1, 3), false)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 2}, tensor.ShapeOf(sol.Qd))

	_, err = fpn.NewEngine(ops, nn.NewMSELoss(), fpn.Config{}).Step(tensor.Ones(1, 3), []int{0})
	assert.ErrorIs(t, err, spectral.ErrInvalidBounds)
}
