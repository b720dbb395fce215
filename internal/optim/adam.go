package optim

import (
	"math"

	"github.com/born-ml/fixpoint/internal/nn"
	"gonum.org/v1/gonum/mat"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	g   = gradient + weight_decay * param              // L2 penalty
//	m_t = beta1 * m_{t-1} + (1-beta1) * g              // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * g²             // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	params      []*nn.Parameter
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	t           int                          // Timestep for bias correction
	m           map[*nn.Parameter]*mat.Dense // First moment estimates
	v           map[*nn.Parameter]*mat.Dense // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR          float64    // Learning rate (default: 0.001)
	Betas       [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps         float64    // Term for numerical stability (default: 1e-8)
	WeightDecay float64    // L2 penalty (default: 0)
}

// NewAdam creates a new Adam optimizer.
//
// Default hyperparameters:
//   - LR: 0.001
//   - Beta1: 0.9
//   - Beta2: 0.999
//   - Eps: 1e-8
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		params:      params,
		lr:          config.LR,
		beta1:       config.Betas[0],
		beta2:       config.Betas[1],
		eps:         config.Eps,
		weightDecay: config.WeightDecay,
		m:           make(map[*nn.Parameter]*mat.Dense),
		v:           make(map[*nn.Parameter]*mat.Dense),
	}
}

// Step performs a single optimization step using Adam algorithm.
//
// Parameters with no gradient are skipped.
func (a *Adam) Step(grads map[*mat.Dense]*mat.Dense) {
	a.t++

	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for _, param := range a.params {
		grad := getGradient(param, grads)
		if grad == nil {
			// Parameter didn't participate in forward pass, skip
			continue
		}
		a.updateParameter(param, rawData(grad), a.moment(a.m, param), a.moment(a.v, param), biasCorrection1, biasCorrection2)
	}
}

// moment returns the moment buffer of param, allocating zeros on first use.
func (a *Adam) moment(buffers map[*nn.Parameter]*mat.Dense, param *nn.Parameter) []float64 {
	buf, ok := buffers[param]
	if !ok {
		r, c := param.Value().Dims()
		buf = mat.NewDense(r, c, nil)
		buffers[param] = buf
	}
	return rawData(buf)
}

// updateParameter performs Adam update for a single parameter.
func (a *Adam) updateParameter(param *nn.Parameter, grad, m, v []float64, biasCorrection1, biasCorrection2 float64) {
	paramData := rawData(param.Value())
	for i := range paramData {
		g := grad[i] + a.weightDecay*paramData[i]

		m[i] = a.beta1*m[i] + (1.0-a.beta1)*g
		v[i] = a.beta2*v[i] + (1.0-a.beta2)*g*g

		mHat := m[i] / biasCorrection1
		vHat := v[i] / biasCorrection2

		paramData[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (a *Adam) GetLR() float64 {
	return a.lr
}

// SetLR updates the learning rate.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// GetTimestep returns the current timestep.
func (a *Adam) GetTimestep() int {
	return a.t
}
