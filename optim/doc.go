// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms for training fixed-point networks.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction and L2 weight decay
//   - StepLR: step-wise learning rate decay
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/fixpoint/fpn"
//	    "github.com/born-ml/fixpoint/optim"
//	)
//
//	func main() {
//	    engine := fpn.NewEngine(ops, loss, fpn.DefaultConfig())
//
//	    // Create optimizer
//	    optimizer := optim.NewAdam(
//	        ops.Parameters(),
//	        optim.AdamConfig{
//	            LR:    5e-5,
//	            Betas: [2]float64{0.9, 0.999},
//	        },
//	    )
//
//	    // Training loop
//	    for epoch := range 10 {
//	        res, err := engine.Step(x, labels)
//	        if err != nil {
//	            return err
//	        }
//	        optimizer.Step(res.Grads)
//	    }
//	}
//
// # Learning Rate Schedules
//
// StepLR multiplies the learning rate by Gamma every StepSize epochs:
//
//	scheduler := optim.NewStepLR(optimizer, optim.StepLRConfig{StepSize: 10, Gamma: 0.98})
//	for epoch := range numEpochs {
//	    train(epoch)
//	    scheduler.Step()
//	}
//
// # Concurrency
//
// Optimizers update parameter values in place. When an Engine may read the
// same weights concurrently, hold the model's BoundRegistry write lock around
// Step:
//
//	reg := ops.Bounds()
//	reg.Lock()
//	optimizer.Step(res.Grads)
//	reg.Unlock()
package optim
