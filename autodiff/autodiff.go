// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation for batch-major matrices.
//
// This package implements reverse-mode (vector-Jacobian) and forward-mode
// (Jacobian-vector) products over a gradient tape. The Backend computes every
// operation and records it while its tape is recording.
//
// Example:
//
//	import (
//	    "github.com/born-ml/fixpoint/autodiff"
//	)
//
//	func main() {
//	    backend := autodiff.New()
//	    backend.Tape().StartRecording()
//
//	    y := backend.ReLU(backend.Linear(x, w))  // Operations recorded on tape
//	    loss := backend.MSE(y, target)
//
//	    // Compute gradients
//	    grads := backend.Backward(loss)
//	}
package autodiff

import (
	"github.com/born-ml/fixpoint/internal/autodiff"
)

// Backend is the recording compute backend.
type Backend = autodiff.Backend

// New creates a new backend with a fresh, non-recording tape.
//
// Example:
//
//	backend := autodiff.New()
//	defer backend.NoGrad()()
func New() *Backend {
	return autodiff.New()
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}
