package nn

import (
	"gonum.org/v1/gonum/mat"
)

// Parameter represents a trainable parameter in a neural network.
//
// The value matrix is owned by the parameter and is updated in place by
// optimizers and by singular-value projection, so its pointer can be used as a
// stable key into gradient maps produced by the autodiff tape.
//
// Example:
//
//	weight := nn.NewParameter("fc_u.weight", Xavier(16, 16, rng))
//	w := weight.Value()
//	grad := weight.Grad()
type Parameter struct {
	name  string     // Parameter name (e.g., "fc_u.weight")
	value *mat.Dense // The parameter matrix
	grad  *mat.Dense // Gradient (set after a backward pass)
}

// NewParameter creates a new trainable parameter.
func NewParameter(name string, value *mat.Dense) *Parameter {
	return &Parameter{
		name:  name,
		value: value,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter matrix.
func (p *Parameter) Value() *mat.Dense {
	return p.value
}

// Grad returns the gradient, or nil if none has been assigned.
func (p *Parameter) Grad() *mat.Dense {
	return p.grad
}

// SetGrad sets the gradient.
func (p *Parameter) SetGrad(grad *mat.Dense) {
	p.grad = grad
}

// ZeroGrad clears the gradient.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}

// NumElements returns the number of scalar entries of the parameter.
func (p *Parameter) NumElements() int {
	r, c := p.value.Dims()
	return r * c
}

// AssignGrads sets the gradient of every parameter from a tape gradient map.
// Parameters absent from grads get a nil gradient.
func AssignGrads(params []*Parameter, grads map[*mat.Dense]*mat.Dense) {
	for _, p := range params {
		p.SetGrad(grads[p.value])
	}
}

// CountParameters returns the total number of scalar entries in params.
func CountParameters(params []*Parameter) int {
	total := 0
	for _, p := range params {
		total += p.NumElements()
	}
	return total
}
