// Package fpn implements the fixed-point network core: the forward fixed-point
// solver and the gradient engine that differentiates through the fixed point
// without unrolling the iteration.
//
// A model is an OperatorSet. Inference encodes the input into a conditioning
// signal Qd, iterates u <- Apply(u, Qd) from zero until consecutive iterates
// agree, and reads out the converged latent state. Training re-evaluates
// Tu = Apply(u*, Qd) once on a gradient tape and forms parameter gradients from
// that single evaluation, either through the implicit adjoint system (solved
// with batched conjugate gradient) or directly (ModeExplicit).
package fpn

import (
	"github.com/born-ml/fixpoint/internal/autodiff"
	"github.com/born-ml/fixpoint/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// OperatorSet is a trainable fixed-point model.
//
// Apply must be a contraction in u whenever every weight in Bounds is inside its
// interval. All operations go through the given backend so they can be recorded.
type OperatorSet interface {
	// Name identifies the model in checkpoints and logs.
	Name() string

	// LatentDim is the width of the latent state u.
	LatentDim() int

	// Encode maps a [batch, features] input to the [batch, LatentDim] signal Qd.
	Encode(b *autodiff.Backend, d *mat.Dense) *mat.Dense

	// Apply is the update map T(u, Qd).
	Apply(b *autodiff.Backend, u, qd *mat.Dense) *mat.Dense

	// Readout maps a latent state to predictions.
	Readout(b *autodiff.Backend, u *mat.Dense) *mat.Dense

	// Bounds lists the bounded weights and guards them.
	Bounds() *nn.BoundRegistry

	// Parameters lists every trainable parameter.
	Parameters() []*nn.Parameter
}
