package nn

import (
	"github.com/born-ml/fixpoint/internal/autodiff"
	"gonum.org/v1/gonum/mat"
)

// ReLU applies max(0, x) element-wise. It is 1-Lipschitz.
type ReLU struct{}

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies ReLU.
func (r *ReLU) Forward(b *autodiff.Backend, input *mat.Dense) *mat.Dense {
	return b.ReLU(input)
}

// Parameters returns an empty slice.
func (r *ReLU) Parameters() []*Parameter {
	return []*Parameter{}
}

// Abs applies |x| element-wise. It is 1-Lipschitz.
type Abs struct{}

// NewAbs creates an Abs activation.
func NewAbs() *Abs {
	return &Abs{}
}

// Forward applies Abs.
func (a *Abs) Forward(b *autodiff.Backend, input *mat.Dense) *mat.Dense {
	return b.Abs(input)
}

// Parameters returns an empty slice.
func (a *Abs) Parameters() []*Parameter {
	return []*Parameter{}
}

// Sequential applies modules in order.
type Sequential struct {
	modules []Module
}

// NewSequential creates a Sequential container.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{modules: modules}
}

// Forward applies every module in turn.
func (s *Sequential) Forward(b *autodiff.Backend, input *mat.Dense) *mat.Dense {
	out := input
	for _, m := range s.modules {
		out = m.Forward(b, out)
	}
	return out
}

// Parameters returns the parameters of all modules.
func (s *Sequential) Parameters() []*Parameter {
	return Collect(s.modules...)
}
