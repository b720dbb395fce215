// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers, bounds and losses fixed-point models are
// built from.
//
// # Overview
//
// This package contains:
//   - Layers: Linear with optional singular value bounds
//   - Activations: ReLU, Abs
//   - Loss functions: MSELoss (one-hot targets), CrossEntropyLoss
//   - Utilities: Sequential, Module interface, Parameter, BoundRegistry
//   - Initialization: Xavier, Uniform
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/born-ml/fixpoint/autodiff"
//	    "github.com/born-ml/fixpoint/nn"
//	)
//
//	func main() {
//	    rng := rand.New(rand.NewSource(1))
//	    reg := nn.NewBoundRegistry()
//
//	    // A latent map whose singular values stay in [0, 0.9]
//	    layer := nn.NewLinear("fc_w", 32, 32, rng, nn.LinearConfig{Registry: reg, Hi: 0.9})
//
//	    output := layer.Forward(autodiff.New(), input)
//	}
//
// # Bounds
//
// Bounded layers register their weight with a BoundRegistry. Projecting the
// registry clamps every registered weight into its interval in place, so
// parameter identity is preserved for optimizers and checkpoints.
//
//	if err := reg.Project(fpn.ProjectionOptions{}); err != nil {
//	    return err
//	}
//
// # Loss Functions
//
// Losses take raw predictions and integer class labels:
//
//	criterion, err := nn.ParseLoss("xent")
//	loss := criterion.Forward(backend, logits, labels)
package nn
