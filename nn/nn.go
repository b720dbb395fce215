// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"math/rand"

	"github.com/born-ml/fixpoint/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// Module interface defines the common interface for all neural network modules.
type Module = nn.Module

// Parameter represents a trainable parameter in a neural network.
type Parameter = nn.Parameter

// NewParameter creates a new parameter with the given name and value.
func NewParameter(name string, value *mat.Dense) *Parameter {
	return nn.NewParameter(name, value)
}

// CountParameters returns the total number of scalar parameters.
func CountParameters(params []*Parameter) int {
	return nn.CountParameters(params)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear = nn.Linear

// LinearConfig configures bias and singular value bounds of a Linear layer.
type LinearConfig = nn.LinearConfig

// NewLinear creates a new linear layer with Xavier initialization.
//
// Example:
//
//	rng := rand.New(rand.NewSource(1))
//	layer := nn.NewLinear("fc_d", 784, 100, rng, nn.LinearConfig{Bias: true})
func NewLinear(name string, inFeatures, outFeatures int, rng *rand.Rand, cfg LinearConfig) *Linear {
	return nn.NewLinear(name, inFeatures, outFeatures, rng, cfg)
}

// Bounds

// Bound is one registered weight with its singular value interval.
type Bound = nn.Bound

// BoundRegistry guards and projects bounded weights.
type BoundRegistry = nn.BoundRegistry

// NewBoundRegistry creates an empty registry.
func NewBoundRegistry() *BoundRegistry {
	return nn.NewBoundRegistry()
}

// Activations

// ReLU represents the Rectified Linear Unit activation function.
type ReLU = nn.ReLU

// NewReLU creates a new ReLU activation layer.
func NewReLU() *ReLU {
	return nn.NewReLU()
}

// Abs represents the elementwise absolute value.
type Abs = nn.Abs

// NewAbs creates a new Abs activation layer.
func NewAbs() *Abs {
	return nn.NewAbs()
}

// Sequential chains modules.
type Sequential = nn.Sequential

// NewSequential creates a container running modules in order.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear("fc1", 784, 128, rng, nn.LinearConfig{Bias: true}),
//	    nn.NewReLU(),
//	    nn.NewLinear("fc2", 128, 10, rng, nn.LinearConfig{Bias: true}),
//	)
func NewSequential(modules ...Module) *Sequential {
	return nn.NewSequential(modules...)
}

// Loss functions

// Loss maps predictions and labels to a scalar batch loss.
type Loss = nn.Loss

// MSELoss is the mean squared error against one-hot targets.
type MSELoss = nn.MSELoss

// NewMSELoss creates a new MSE loss.
func NewMSELoss() *MSELoss {
	return nn.NewMSELoss()
}

// CrossEntropyLoss is softmax cross-entropy over logits.
type CrossEntropyLoss = nn.CrossEntropyLoss

// NewCrossEntropyLoss creates a new cross-entropy loss.
func NewCrossEntropyLoss() *CrossEntropyLoss {
	return nn.NewCrossEntropyLoss()
}

// ParseLoss returns the loss named "mse" or "xent".
func ParseLoss(name string) (Loss, error) {
	return nn.ParseLoss(name)
}

// Initialization

// Xavier returns a [fanOut, fanIn] weight with Glorot uniform entries.
func Xavier(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	return nn.Xavier(fanIn, fanOut, rng)
}

// Uniform fills a rows x cols matrix from U(-bound, bound).
func Uniform(rows, cols int, bound float64, rng *rand.Rand) *mat.Dense {
	return nn.Uniform(rows, cols, bound, rng)
}
