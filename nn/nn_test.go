package nn_test

import (
	"math/rand"
	"testing"

	"github.com/born-ml/fixpoint/autodiff"
	"github.com/born-ml/fixpoint/fpn"
	"github.com/born-ml/fixpoint/nn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestLinear_Forward(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	layer := nn.NewLinear("fc", 4, 3, rng, nn.LinearConfig{Bias: true})

	x := mat.NewDense(5, 4, nil)
	y := layer.Forward(autodiff.New(), x)

	r, c := y.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 3, c)
	assert.Len(t, layer.Parameters(), 2)
	assert.Equal(t, 4*3+3, nn.CountParameters(layer.Parameters()))
}

func TestSequential_Parameters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	model := nn.NewSequential(
		nn.NewLinear("fc1", 4, 8, rng, nn.LinearConfig{Bias: true}),
		nn.NewReLU(),
		nn.NewLinear("fc2", 8, 2, rng, nn.LinearConfig{}),
	)
	assert.Len(t, model.Parameters(), 3)
}

func TestBoundRegistry_Project(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	reg := nn.NewBoundRegistry()
	layer := nn.NewLinear("fc_w", 6, 6, rng, nn.LinearConfig{Registry: reg, Hi: 0.5})
	layer.Weight().Value().Scale(10, layer.Weight().Value())
	before := layer.Weight().Value()

	require.NoError(t, reg.Project(fpn.ProjectionOptions{}))

	norm, err := fpn.SpectralNorm(layer.Weight().Value())
	require.NoError(t, err)
	assert.LessOrEqual(t, norm, 0.5+1e-9)
	assert.Same(t, before, layer.Weight().Value())
}

func TestParseLoss(t *testing.T) {
	loss, err := nn.ParseLoss("mse")
	require.NoError(t, err)
	assert.Equal(t, "mse", loss.Name())

	_, err = nn.ParseLoss("hinge")
	assert.Error(t, err)
}
