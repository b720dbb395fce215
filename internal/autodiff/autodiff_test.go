package autodiff_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/fixpoint/internal/autodiff"
	"github.com/born-ml/fixpoint/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// TestTape_Recording tests tape recording on/off.
func TestTape_Recording(t *testing.T) {
	b := autodiff.New()
	tape := b.Tape()

	assert.False(t, tape.IsRecording(), "tape should not be recording initially")

	x := tensor.Ones(2, 2)
	b.ReLU(x)
	assert.Equal(t, 0, tape.NumOps(), "ops must not be recorded while stopped")

	tape.StartRecording()
	b.ReLU(x)
	assert.Equal(t, 1, tape.NumOps())

	restore := b.NoGrad()
	b.ReLU(x)
	assert.False(t, tape.IsRecording())
	restore()
	assert.True(t, tape.IsRecording())
	assert.Equal(t, 1, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording(), "Clear must preserve recording state")
}

// TestBackward_Linear checks the analytic gradients of mean((x W^T + b - y)²).
func TestBackward_Linear(t *testing.T) {
	b := autodiff.New()
	b.Tape().StartRecording()

	x := tensor.FromRows([][]float64{{1, 2}, {3, 4}})
	w := tensor.FromRows([][]float64{{0.5, -1}})
	bias := tensor.FromRows([][]float64{{0.25}})
	y := tensor.FromRows([][]float64{{0}, {1}})

	pred := b.AddBias(b.Linear(x, w), bias)
	loss := b.MSE(pred, y)
	grads := b.Backward(loss)

	// pred = [-1.25, -2.25]; residual r = pred - y = [-1.25, -3.25]; dL/dpred = r (2/N, N=2).
	assert.InDelta(t, (1.25*1.25+3.25*3.25)/2, loss.At(0, 0), 1e-12)
	assert.InDelta(t, -1.25*1+-3.25*3, grads[w].At(0, 0), 1e-12)
	assert.InDelta(t, -1.25*2+-3.25*4, grads[w].At(0, 1), 1e-12)
	assert.InDelta(t, -1.25+-3.25, grads[bias].At(0, 0), 1e-12)
	_, hasTarget := grads[y]
	assert.False(t, hasTarget, "targets must not receive gradients")
}

// TestBackward_AccumulatesSharedInputs tests f(x) = x + x.
func TestBackward_AccumulatesSharedInputs(t *testing.T) {
	b := autodiff.New()
	b.Tape().StartRecording()

	x := tensor.FromRows([][]float64{{1, -2}})
	y := b.Add(x, x)
	grads := b.Tape().Backward(tensor.Ones(1, 2))

	require.NotNil(t, grads[x])
	assert.Equal(t, []float64{2, 2}, grads[x].RawRowView(0))
	assert.Equal(t, []float64{2, -4}, y.RawRowView(0))
}

// numericalGrad computes the central-difference gradient of f at x.
func numericalGrad(f func() float64, x *mat.Dense, eps float64) *mat.Dense {
	r, c := x.Dims()
	g := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			orig := x.At(i, j)
			x.Set(i, j, orig+eps)
			fp := f()
			x.Set(i, j, orig-eps)
			fm := f()
			x.Set(i, j, orig)
			g.Set(i, j, (fp-fm)/(2*eps))
		}
	}
	return g
}

// TestBackward_NumericalGradient compares tape gradients against finite differences
// for a two-layer network with every supported activation and both losses.
func TestBackward_NumericalGradient(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := tensor.Randn(4, 3, 1, rng)
	w1 := tensor.Randn(5, 3, 0.5, rng)
	b1 := tensor.Randn(1, 5, 0.1, rng)
	w2 := tensor.Randn(3, 5, 0.5, rng)
	labels := []int{0, 2, 1, 2}
	target := tensor.OneHot(labels, 3)

	forward := func(b *autodiff.Backend) *mat.Dense {
		h := b.ReLU(b.AddBias(b.Linear(x, w1), b1))
		h = b.Abs(b.Sub(b.Scale(h, 0.7), b.Scale(h, 0.2)))
		logits := b.Linear(h, w2)
		return b.Add(b.CrossEntropy(logits, labels), b.MSE(logits, target))
	}
	value := func() float64 {
		return forward(autodiff.New()).At(0, 0)
	}

	b := autodiff.New()
	b.Tape().StartRecording()
	grads := b.Backward(forward(b))

	for name, p := range map[string]*mat.Dense{"x": x, "w1": w1, "b1": b1, "w2": w2} {
		want := numericalGrad(value, p, 1e-6)
		require.NotNil(t, grads[p], name)
		assert.True(t, mat.EqualApprox(grads[p], want, 1e-5), "gradient mismatch for %s:\n got %v\nwant %v",
			name, mat.Formatted(grads[p]), mat.Formatted(want))
	}
}

// TestVJPJVPDuality checks <v, J t> == <J^T v, t> on a recorded operator application.
func TestVJPJVPDuality(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	u := tensor.Randn(3, 4, 1, rng)
	qd := tensor.Randn(3, 4, 1, rng)
	w := tensor.Randn(4, 4, 0.5, rng)

	b := autodiff.New()
	b.Tape().StartRecording()
	tu := b.ReLU(b.Linear(b.Add(b.Scale(u, 0.99), qd), w))
	b.Tape().StopRecording()

	v := tensor.Randn(3, 4, 1, rng)
	tangent := tensor.Randn(3, 4, 1, rng)

	jt := b.Tape().JVP(u, tangent, tu)
	jtv := b.Tape().VJP(tu, v, u)

	lhs := mat.Sum(elem(v, jt))
	rhs := mat.Sum(elem(jtv, tangent))
	assert.InDelta(t, lhs, rhs, 1e-10)

	// VJP must agree with the unpruned backward pass.
	full := b.Tape().BackwardFrom(tu, v)
	assert.True(t, mat.EqualApprox(full[u], jtv, 1e-12))

	// Tensors the output does not depend on get zero products.
	other := tensor.Randn(3, 4, 1, rng)
	assert.Zero(t, mat.Norm(b.Tape().VJP(tu, v, other), 2))
	assert.Zero(t, mat.Norm(b.Tape().JVP(other, tangent, tu), 2))
}

// TestJVP_MatchesFiniteDifference checks the forward-mode tangent against a
// directional finite difference.
func TestJVP_MatchesFiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	u := tensor.Randn(2, 3, 1, rng)
	w := tensor.Randn(3, 3, 0.5, rng)
	bias := tensor.Randn(1, 3, 0.5, rng)
	dir := tensor.Randn(2, 3, 1, rng)

	apply := func(b *autodiff.Backend, in *mat.Dense) *mat.Dense {
		return b.Abs(b.AddBias(b.Linear(in, w), bias))
	}

	b := autodiff.New()
	b.Tape().StartRecording()
	out := apply(b, u)
	got := b.Tape().JVP(u, dir, out)

	const eps = 1e-6
	var plus, minus mat.Dense
	plus.Scale(eps, dir)
	plus.Add(u, &plus)
	minus.Scale(-eps, dir)
	minus.Add(u, &minus)
	var fd mat.Dense
	fd.Sub(apply(autodiff.New(), &plus), apply(autodiff.New(), &minus))
	fd.Scale(1/(2*eps), &fd)

	assert.True(t, mat.EqualApprox(got, &fd, 1e-6))
}

func TestBackend_ShapeChecksPanic(t *testing.T) {
	b := autodiff.New()
	assert.Panics(t, func() { b.Add(tensor.Zeros(2, 2), tensor.Zeros(2, 3)) })
	assert.Panics(t, func() { b.Linear(tensor.Zeros(2, 2), tensor.Zeros(3, 3)) })
	assert.Panics(t, func() { b.AddBias(tensor.Zeros(2, 2), tensor.Zeros(1, 3)) })
	assert.Panics(t, func() { b.CrossEntropy(tensor.Zeros(2, 2), []int{0, 5}) })
	assert.Panics(t, func() { b.Backward(tensor.Zeros(1, 1)) })
}

func elem(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}
