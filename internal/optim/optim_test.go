package optim_test

import (
	"math"
	"testing"

	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/born-ml/fixpoint/internal/optim"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// scalarParam creates a 1x1 parameter holding v.
func scalarParam(name string, v float64) *nn.Parameter {
	return nn.NewParameter(name, mat.NewDense(1, 1, []float64{v}))
}

func gradOf(p *nn.Parameter, g float64) map[*mat.Dense]*mat.Dense {
	return map[*mat.Dense]*mat.Dense{p.Value(): mat.NewDense(1, 1, []float64{g})}
}

// TestSGD_SimpleUpdate tests SGD without momentum.
func TestSGD_SimpleUpdate(t *testing.T) {
	param := scalarParam("x", 2.0)
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1})

	optimizer.Step(gradOf(param, 1.0))

	// Expected: x_new = x_old - lr * grad = 2.0 - 0.1 * 1.0 = 1.9
	assert.InDelta(t, 1.9, param.Value().At(0, 0), 1e-12)
}

// TestSGD_WithMomentum tests SGD with momentum.
func TestSGD_WithMomentum(t *testing.T) {
	param := scalarParam("x", 2.0)
	optimizer := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// Step 1: v = 1, x = 2 - 0.1 = 1.9
	optimizer.Step(gradOf(param, 1.0))
	assert.InDelta(t, 1.9, param.Value().At(0, 0), 1e-12)

	// Step 2: v = 0.9 + 1 = 1.9, x = 1.9 - 0.19 = 1.71
	optimizer.Step(gradOf(param, 1.0))
	assert.InDelta(t, 1.71, param.Value().At(0, 0), 1e-12)
}

// TestSGD_SkipsMissingGradients tests that parameters without gradients are untouched.
func TestSGD_SkipsMissingGradients(t *testing.T) {
	a := scalarParam("a", 1.0)
	b := scalarParam("b", 1.0)
	optimizer := optim.NewSGD([]*nn.Parameter{a, b}, optim.SGDConfig{LR: 0.5})

	optimizer.Step(gradOf(a, 1.0))
	assert.InDelta(t, 0.5, a.Value().At(0, 0), 1e-12)
	assert.Equal(t, 1.0, b.Value().At(0, 0))
}

// TestOptimizer_ZeroGrad tests clearing parameter gradients.
func TestOptimizer_ZeroGrad(t *testing.T) {
	param := scalarParam("x", 1.0)
	param.SetGrad(mat.NewDense(1, 1, []float64{3}))

	for _, opt := range []optim.Optimizer{
		optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{}),
		optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{}),
	} {
		param.SetGrad(mat.NewDense(1, 1, []float64{3}))
		opt.ZeroGrad()
		assert.Nil(t, param.Grad())
	}
}

// TestOptimizer_GetSetLR tests learning rate accessors and defaults.
func TestOptimizer_GetSetLR(t *testing.T) {
	sgd := optim.NewSGD(nil, optim.SGDConfig{})
	assert.Equal(t, 0.01, sgd.GetLR())
	sgd.SetLR(0.5)
	assert.Equal(t, 0.5, sgd.GetLR())

	adam := optim.NewAdam(nil, optim.AdamConfig{})
	assert.Equal(t, 0.001, adam.GetLR())
}

// TestAdam_SimpleUpdate tests the first Adam step.
func TestAdam_SimpleUpdate(t *testing.T) {
	param := scalarParam("x", 1.0)
	optimizer := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{LR: 0.1})

	optimizer.Step(gradOf(param, 0.5))

	// With bias correction, the first step moves by lr * g/|g| = lr.
	assert.InDelta(t, 0.9, param.Value().At(0, 0), 1e-6)
	assert.Equal(t, 1, optimizer.GetTimestep())
}

// TestAdam_WeightDecay tests the L2 penalty with a zero gradient.
func TestAdam_WeightDecay(t *testing.T) {
	param := scalarParam("x", 2.0)
	optimizer := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{LR: 0.1, WeightDecay: 0.5})

	optimizer.Step(gradOf(param, 0))
	assert.InDelta(t, 1.9, param.Value().At(0, 0), 1e-6)
}

// TestConvergence_SimpleQuadratic tests both optimizers on f(x) = x².
func TestConvergence_SimpleQuadratic(t *testing.T) {
	tests := []struct {
		name string
		make func(p *nn.Parameter) optim.Optimizer
	}{
		{"SGD", func(p *nn.Parameter) optim.Optimizer {
			return optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
		}},
		{"Adam", func(p *nn.Parameter) optim.Optimizer {
			return optim.NewAdam([]*nn.Parameter{p}, optim.AdamConfig{LR: 0.1, Betas: [2]float64{0.9, 0.999}, Eps: 1e-8})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			param := scalarParam("x", 3.0)
			optimizer := tt.make(param)
			// f(x) = x², df/dx = 2x
			for i := 0; i < 100; i++ {
				optimizer.Step(gradOf(param, 2*param.Value().At(0, 0)))
			}
			assert.Less(t, math.Abs(param.Value().At(0, 0)), 0.1)
		})
	}
}

// TestStepLR tests decay every StepSize epochs.
func TestStepLR(t *testing.T) {
	opt := optim.NewAdam(nil, optim.AdamConfig{LR: 1.0})
	sched := optim.NewStepLR(opt, optim.StepLRConfig{StepSize: 2, Gamma: 0.5})

	want := []float64{1, 0.5, 0.5, 0.25, 0.25, 0.125}
	for i, lr := range want {
		sched.Step()
		assert.InDelta(t, lr, opt.GetLR(), 1e-12, "epoch %d", i+1)
	}
	assert.Equal(t, 6, sched.Epoch())
	assert.Equal(t, 1.0, sched.BaseLR())

	sgd := optim.NewSGD(nil, optim.SGDConfig{LR: 5e-5})
	def := optim.NewStepLR(sgd, optim.StepLRConfig{})
	for i := 0; i < 9; i++ {
		def.Step()
	}
	assert.Equal(t, 5e-5, sgd.GetLR())
	def.Step()
	assert.InDelta(t, 5e-5*0.98, sgd.GetLR(), 1e-18)
}
