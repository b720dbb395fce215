// Package autodiff implements a small reverse- and forward-mode differentiation
// tape for batch-major gonum matrices.
//
// Backend performs the forward computation of every supported operation and,
// while its GradientTape is recording, records the operation so that
// vector-Jacobian and Jacobian-vector products can be evaluated later.
//
// Architecture:
//   - Backend: computes forward values, records ops when the tape is recording
//   - GradientTape: owns the recording; evaluates VJPs (reverse) and JVPs (forward)
//   - ops.Operation: per-op Backward and Tangent rules
//
// The tape is deliberately scoped: it supports exactly the operations used by
// fixed-point update operators, encoders and readouts, and is meant to record a
// single operator application, not a training history.
//
// Usage:
//
//	b := autodiff.New()
//	b.Tape().StartRecording()
//	y := b.ReLU(b.Linear(x, w))
//	loss := b.MSE(y, target)
//	grads := b.Backward(loss)
//	gw := grads[w]
package autodiff

import (
	"math"

	"github.com/born-ml/fixpoint/internal/autodiff/ops"
	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/mat"
)

// Backend computes tensor operations and records them on a GradientTape.
type Backend struct {
	tape *GradientTape
}

// New creates a Backend with a fresh, non-recording tape.
func New() *Backend {
	return &Backend{tape: NewGradientTape()}
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "Autodiff(gonum)"
}

// Tape returns the gradient tape for manual control.
func (b *Backend) Tape() *GradientTape {
	return b.tape
}

// NoGrad stops recording until the returned function is called, which restores
// the previous recording state:
//
//	defer b.NoGrad()()
func (b *Backend) NoGrad() func() {
	was := b.tape.IsRecording()
	b.tape.StopRecording()
	return func() {
		if was {
			b.tape.StartRecording()
		}
	}
}

// Backward seeds a scalar loss with ones and returns gradients of every tensor
// the loss depends on.
func (b *Backend) Backward(loss *mat.Dense) map[*mat.Dense]*mat.Dense {
	if b.tape.NumOps() == 0 {
		exceptions.Panicf("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}
	r, c := loss.Dims()
	seed := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			seed.Set(i, j, 1)
		}
	}
	return b.tape.BackwardFrom(loss, seed)
}

// Linear computes x @ W^T for x [batch, in] and W [out, in].
func (b *Backend) Linear(x, w *mat.Dense) *mat.Dense {
	_, in := x.Dims()
	_, wIn := w.Dims()
	if in != wIn {
		exceptions.Panicf("Linear: input has %d features, weight expects %d", in, wIn)
	}
	var out mat.Dense
	out.Mul(x, w.T())
	b.tape.Record(ops.NewLinearOp(x, w, &out))
	return &out
}

// AddBias adds the [1, n] row bias to every row of x.
func (b *Backend) AddBias(x, bias *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	br, bc := bias.Dims()
	if br != 1 || bc != c {
		exceptions.Panicf("AddBias: bias shape [%d, %d] does not broadcast to [%d, %d]", br, bc, r, c)
	}
	out := mat.DenseCopyOf(x)
	row := bias.RawRowView(0)
	for i := 0; i < r; i++ {
		dst := out.RawRowView(i)
		for j, v := range row {
			dst[j] += v
		}
	}
	b.tape.Record(ops.NewAddBiasOp(x, bias, out))
	return out
}

// Add computes a + b element-wise.
func (b *Backend) Add(x, y *mat.Dense) *mat.Dense {
	checkShapes("Add", x, y)
	var out mat.Dense
	out.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, &out))
	return &out
}

// Sub computes a - b element-wise.
func (b *Backend) Sub(x, y *mat.Dense) *mat.Dense {
	checkShapes("Sub", x, y)
	var out mat.Dense
	out.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, &out))
	return &out
}

// Scale computes factor·x.
func (b *Backend) Scale(x *mat.Dense, factor float64) *mat.Dense {
	var out mat.Dense
	out.Scale(factor, x)
	b.tape.Record(ops.NewScaleOp(x, &out, factor))
	return &out
}

// ReLU applies max(0, x) element-wise.
func (b *Backend) ReLU(x *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, x)
	b.tape.Record(ops.NewReLUOp(x, &out))
	return &out
}

// Abs applies |x| element-wise.
func (b *Backend) Abs(x *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return math.Abs(v) }, x)
	b.tape.Record(ops.NewAbsOp(x, &out))
	return &out
}

// MSE computes mean((p - y)²) as a [1, 1] matrix.
func (b *Backend) MSE(predictions, targets *mat.Dense) *mat.Dense {
	out := mat.NewDense(1, 1, []float64{ops.MSE(predictions, targets)})
	b.tape.Record(ops.NewMSEOp(predictions, targets, out))
	return out
}

// CrossEntropy computes the mean softmax cross-entropy of logits against labels.
func (b *Backend) CrossEntropy(logits *mat.Dense, labels []int) *mat.Dense {
	r, c := logits.Dims()
	if len(labels) != r {
		exceptions.Panicf("CrossEntropy: %d labels for batch of %d", len(labels), r)
	}
	for i, l := range labels {
		if l < 0 || l >= c {
			exceptions.Panicf("CrossEntropy: label %d at row %d out of range [0, %d)", l, i, c)
		}
	}
	probs := ops.Softmax(logits)
	out := mat.NewDense(1, 1, []float64{ops.CrossEntropy(probs, labels)})
	b.tape.Record(ops.NewCrossEntropyOp(logits, labels, probs, out))
	return out
}

func checkShapes(op string, x, y *mat.Dense) {
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr != yr || xc != yc {
		exceptions.Panicf("%s: shape mismatch [%d, %d] vs [%d, %d]", op, xr, xc, yr, yc)
	}
}
