// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides batch-major matrix helpers for fixed-point networks.
//
// # Overview
//
// Every latent state, input batch and prediction is a *mat.Dense with one row
// per batch element. This package provides:
//   - Constructors: Zeros, Ones, Full, Randn, FromRows
//   - Per-row reductions: RowNorms, RowDots
//   - Classification helpers: OneHot, ArgmaxRows
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/born-ml/fixpoint/tensor"
//	)
//
//	func main() {
//	    rng := rand.New(rand.NewSource(1))
//	    x := tensor.Randn(32, 784, 1, rng)
//
//	    norms := tensor.RowNorms(x)  // one norm per batch element
//	}
package tensor
