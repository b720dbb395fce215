// Package nn implements the building blocks of fixed-point operator sets.
//
// This package provides:
//   - Module interface: base interface for all components
//   - Parameter: trainable matrices with gradient slots
//   - Linear: fully connected layer, optionally Lipschitz-bounded
//   - BoundRegistry: explicit registry of bounded weights and their intervals
//   - Activations: ReLU, Abs
//   - Losses: MSE against one-hot targets, softmax cross-entropy
//
// Modules compute through an *autodiff.Backend passed to Forward, so the same
// module can run untracked during the fixed-point iteration and recorded on a
// tape for the single differentiable evaluation.
package nn

import (
	"github.com/born-ml/fixpoint/internal/autodiff"
	"gonum.org/v1/gonum/mat"
)

// Module is the base interface for all neural network components.
type Module interface {
	// Forward computes the output of the module for a [batch, features] input.
	Forward(b *autodiff.Backend, input *mat.Dense) *mat.Dense

	// Parameters returns all trainable parameters of this module.
	// Returns an empty slice for parameterless modules.
	Parameters() []*Parameter
}

// Collect concatenates the parameters of modules in order.
func Collect(modules ...Module) []*Parameter {
	var params []*Parameter
	for _, m := range modules {
		params = append(params, m.Parameters()...)
	}
	return params
}
