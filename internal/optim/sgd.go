package optim

import (
	"github.com/born-ml/fixpoint/internal/nn"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	params     []*nn.Parameter
	lr         float64
	momentum   float64
	velocities map[*nn.Parameter]*mat.Dense
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter]*mat.Dense),
	}
}

// Step performs a single optimization step.
//
// Parameters with no gradient are skipped.
func (s *SGD) Step(grads map[*mat.Dense]*mat.Dense) {
	for _, param := range s.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}
		if s.momentum == 0 {
			// param -= lr * grad
			floats.AddScaled(rawData(param.Value()), -s.lr, rawData(grad))
			continue
		}

		velocity, exists := s.velocities[param]
		if !exists {
			r, c := param.Value().Dims()
			velocity = mat.NewDense(r, c, nil)
			s.velocities[param] = velocity
		}
		// velocity = momentum * velocity + grad
		v := rawData(velocity)
		floats.Scale(s.momentum, v)
		floats.Add(v, rawData(grad))
		// param -= lr * velocity
		floats.AddScaled(rawData(param.Value()), -s.lr, v)
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (s *SGD) GetLR() float64 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}
