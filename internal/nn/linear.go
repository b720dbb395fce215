package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/fixpoint/internal/autodiff"
	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/mat"
)

// Linear implements a fully connected layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x has shape [batch_size, in_features]
//   - W has shape [out_features, in_features]
//   - b has shape [1, out_features] (optional)
//
// Weights are initialized with Xavier/Glorot, biases with U(-1/sqrt(in), 1/sqrt(in)).
type Linear struct {
	name        string
	inFeatures  int
	outFeatures int
	weight      *Parameter
	bias        *Parameter // nil when the layer has no bias
}

// LinearConfig configures NewLinear.
type LinearConfig struct {
	// Bias adds a learnable [1, out] bias.
	Bias bool

	// Registry, when set, registers the weight as a bounded weight with
	// singular values kept in [Lo, Hi].
	Registry *BoundRegistry
	Lo, Hi   float64
}

// NewLinear creates a new Linear layer named name (parameter names are
// name+".weight" and name+".bias").
func NewLinear(name string, inFeatures, outFeatures int, rng *rand.Rand, cfg LinearConfig) *Linear {
	l := &Linear{
		name:        name,
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter(name+".weight", Xavier(inFeatures, outFeatures, rng)),
	}
	if cfg.Bias {
		bound := 1 / math.Sqrt(float64(inFeatures))
		l.bias = NewParameter(name+".bias", Uniform(1, outFeatures, bound, rng))
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(l.weight, cfg.Lo, cfg.Hi)
	}
	return l
}

// Forward computes x @ W.T (+ b).
func (l *Linear) Forward(b *autodiff.Backend, input *mat.Dense) *mat.Dense {
	_, in := input.Dims()
	if in != l.inFeatures {
		exceptions.Panicf("%s: expected %d input features, got %d", l.name, l.inFeatures, in)
	}
	out := b.Linear(input, l.weight.Value())
	if l.bias != nil {
		out = b.AddBias(out, l.bias.Value())
	}
	return out
}

// Parameters returns the weight and, when present, the bias.
func (l *Linear) Parameters() []*Parameter {
	if l.bias == nil {
		return []*Parameter{l.weight}
	}
	return []*Parameter{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter, or nil.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}
