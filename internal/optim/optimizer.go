// Package optim implements optimization algorithms for training operator sets.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with optional L2 weight decay
//   - StepLR: step-wise learning rate decay
//
// Gradients are consumed as the map produced by the gradient engine, keyed by
// parameter value matrices.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 5e-5})
//	scheduler := optim.NewStepLR(optimizer, optim.StepLRConfig{StepSize: 10, Gamma: 0.98})
//
//	for epoch := range epochs {
//	    for batch := range batches {
//	        res, err := engine.Step(batch.X, batch.Labels)
//	        optimizer.Step(res.Grads)
//	    }
//	    scheduler.Step()
//	}
package optim

import (
	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/mat"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters in place.
	// Parameters absent from grads are skipped.
	Step(grads map[*mat.Dense]*mat.Dense)

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float64

	// SetLR updates the learning rate.
	SetLR(lr float64)
}

// getGradient retrieves the gradient for a parameter.
//
// Returns nil if no gradient is found (parameter wasn't part of the computation).
func getGradient(param *nn.Parameter, grads map[*mat.Dense]*mat.Dense) *mat.Dense {
	if param == nil {
		return nil
	}
	return grads[param.Value()]
}

// rawData returns the backing slice of a contiguous matrix.
func rawData(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride != raw.Cols {
		exceptions.Panicf("optim: non-contiguous matrix (stride %d, cols %d)", raw.Stride, raw.Cols)
	}
	return raw.Data[:raw.Rows*raw.Cols]
}
