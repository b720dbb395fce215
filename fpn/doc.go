// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package fpn provides fixed-point networks: models whose output is the fixed
// point of a learned contraction, trained without unrolling the iteration.
//
// # Overview
//
// This package contains:
//   - Solver: forward fixed-point iteration with a depth cap
//   - Engine: training steps with implicit adjoint or explicit gradients
//   - CG: batched conjugate gradient used by the adjoint solve
//   - Project: singular value projection that keeps bounded weights in range
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/fixpoint/fpn"
//	    "github.com/born-ml/fixpoint/models"
//	    "github.com/born-ml/fixpoint/nn"
//	    "github.com/born-ml/fixpoint/optim"
//	)
//
//	func main() {
//	    ops, _ := models.Build(models.Spec{Kind: "fcn", InputDim: 784, Classes: 10})
//	    engine := fpn.NewEngine(ops, nn.NewMSELoss(), fpn.DefaultConfig())
//	    optimizer := optim.NewAdam(ops.Parameters(), optim.AdamConfig{LR: 5e-5})
//
//	    res, err := engine.Step(x, labels)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    optimizer.Step(res.Grads)
//	}
//
// # Gradient Modes
//
// ModeAdjoint solves the damped normal equations of the implicit adjoint
// system with CG and backpropagates the solution through one evaluation of
// the update map at the fixed point. ModeExplicit skips the solve and seeds
// backpropagation with the loss gradient directly.
//
//	cfg := fpn.DefaultConfig()
//	cfg.Mode = fpn.ModeExplicit
//
// # Diagnostics
//
// Non-convergence of the forward iteration or of CG is never an error. Every
// step reports its depth, CG iterations and convergence flags in Stats.
package fpn
