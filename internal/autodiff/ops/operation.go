// Package ops defines operation interfaces and implementations for the gradient tape.
//
// Each operation implements the Operation interface, which provides:
//   - Backward: the vector-Jacobian product (reverse mode) for its inputs
//   - Tangent: the Jacobian-vector product (forward mode) for its output
//
// The forward value is computed by the recording backend before the operation
// is constructed; operations only keep references to their inputs and output.
//
// Supported operations:
//   - LinearOp: x @ W^T
//   - AddBiasOp: x + 1·b (row broadcast)
//   - AddOp, SubOp: element-wise addition/subtraction
//   - ScaleOp: multiplication by a constant
//   - ReLUOp, AbsOp: 1-Lipschitz element-wise nonlinearities
//   - MSEOp, CrossEntropyOp: scalar losses
package ops

import "gonum.org/v1/gonum/mat"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for inputs given the output gradient.
	// Returns a slice of gradients corresponding to each input tensor; an
	// entry is nil when the input is not differentiable (e.g. loss targets).
	Backward(outputGrad *mat.Dense) []*mat.Dense

	// Tangent propagates input tangents to the output tangent.
	// inputTangents has one entry per input; nil entries are zero tangents.
	// Returns nil when every input tangent is nil.
	Tangent(inputTangents []*mat.Dense) *mat.Dense

	// Inputs returns the input tensors for this operation.
	Inputs() []*mat.Dense

	// Output returns the output tensor produced by this operation.
	Output() *mat.Dense
}
