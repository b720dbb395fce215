// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"math/rand"

	"github.com/born-ml/fixpoint/internal/tensor"
	"gonum.org/v1/gonum/mat"
)

// Shape represents the dimensions of a batch matrix.
type Shape = tensor.Shape

// ShapeOf returns the shape of m.
func ShapeOf(m mat.Matrix) Shape {
	return tensor.ShapeOf(m)
}

// Zeros creates a rows x cols matrix filled with zeros.
func Zeros(rows, cols int) *mat.Dense {
	return tensor.Zeros(rows, cols)
}

// Ones creates a rows x cols matrix filled with ones.
func Ones(rows, cols int) *mat.Dense {
	return tensor.Ones(rows, cols)
}

// Full creates a rows x cols matrix filled with value.
func Full(rows, cols int, value float64) *mat.Dense {
	return tensor.Full(rows, cols, value)
}

// Randn creates a rows x cols matrix with entries drawn from N(0, std²).
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	noise := tensor.Randn(8, 16, 0.01, rng)
func Randn(rows, cols int, std float64, rng *rand.Rand) *mat.Dense {
	return tensor.Randn(rows, cols, std, rng)
}

// FromRows builds a matrix from equal-length rows.
func FromRows(rows [][]float64) *mat.Dense {
	return tensor.FromRows(rows)
}

// RowNorms returns the Euclidean norm of every row.
func RowNorms(m *mat.Dense) []float64 {
	return tensor.RowNorms(m)
}

// RowDots returns the per-row inner products <a_i, b_i>.
func RowDots(a, b *mat.Dense) []float64 {
	return tensor.RowDots(a, b)
}

// OneHot encodes labels as a len(labels) x classes indicator matrix.
func OneHot(labels []int, classes int) *mat.Dense {
	return tensor.OneHot(labels, classes)
}

// ArgmaxRows returns the predicted class of every row.
func ArgmaxRows(m *mat.Dense) []int {
	return tensor.ArgmaxRows(m)
}
