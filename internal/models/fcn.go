// Package models provides concrete fixed-point operator sets.
//
//   - FCN: fully connected network for flattened images (MNIST-style). The
//     encoder is a stack of bounded ReLU layers, the update map is
//     relu(W_u(γ·u + Qd)) and the readout is an unbounded linear map.
//   - Linear: a latent-linear toy model, u <- W u + B d, with a linear readout.
package models

import (
	"math/rand"

	"github.com/born-ml/fixpoint/internal/autodiff"
	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/born-ml/fixpoint/internal/spectral"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// FCNConfig configures NewFCN. Zero fields take the listed defaults.
type FCNConfig struct {
	InputDim  int // Required.
	Classes   int // Required.
	HiddenDim int // Default: 100.
	LatentDim int // Default: 46.

	// SHi bounds the singular values of the data-space maps. Latent-square
	// maps are always bounded by 1. Default: 1.
	SHi float64

	// Gamma scales u inside the update map. Default: 0.99.
	Gamma float64

	// InitFloor lifts singular values at construction. Default: 1.
	InitFloor float64

	Seed       int64
	Projection spectral.Options
}

func (c FCNConfig) withDefaults() FCNConfig {
	if c.HiddenDim <= 0 {
		c.HiddenDim = 100
	}
	if c.LatentDim <= 0 {
		c.LatentDim = 46
	}
	if c.SHi <= 0 {
		c.SHi = 1
	}
	if c.Gamma <= 0 {
		c.Gamma = 0.99
	}
	if c.InitFloor <= 0 {
		c.InitFloor = 1
	}
	return c
}

// FCN is a fully connected fixed-point classifier.
type FCN struct {
	cfg  FCNConfig
	reg  *nn.BoundRegistry
	fcD  *nn.Linear // data -> hidden, bounded by SHi
	fcM  *nn.Linear // hidden -> hidden, bounded by SHi
	fcY  *nn.Linear // hidden -> latent, bounded by SHi
	fcU  *nn.Linear // latent -> latent, bounded by 1
	fcF  *nn.Linear // latent -> classes, unbounded
	relu *nn.ReLU
}

var _ fpn.OperatorSet = (*FCN)(nil)

// NewFCN builds an FCN and projects its bounded weights into range.
func NewFCN(cfg FCNConfig) (*FCN, error) {
	cfg = cfg.withDefaults()
	if cfg.InputDim <= 0 || cfg.Classes <= 0 {
		return nil, errors.Errorf("FCN: input dim (%d) and classes (%d) must be positive", cfg.InputDim, cfg.Classes)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	reg := nn.NewBoundRegistry()
	data := nn.LinearConfig{Registry: reg, Hi: cfg.SHi}
	latent := nn.LinearConfig{Registry: reg, Hi: 1}

	m := &FCN{
		cfg:  cfg,
		reg:  reg,
		relu: nn.NewReLU(),
	}
	withBias := data
	withBias.Bias = true
	m.fcD = nn.NewLinear("fc_d", cfg.InputDim, cfg.HiddenDim, rng, withBias)
	m.fcM = nn.NewLinear("fc_m", cfg.HiddenDim, cfg.HiddenDim, rng, data)
	m.fcY = nn.NewLinear("fc_y", cfg.HiddenDim, cfg.LatentDim, rng, withBias)
	m.fcU = nn.NewLinear("fc_u", cfg.LatentDim, cfg.LatentDim, rng, latent)
	m.fcF = nn.NewLinear("fc_f", cfg.LatentDim, cfg.Classes, rng, nn.LinearConfig{})

	if err := reg.ProjectWithFloor(cfg.InitFloor, cfg.Projection); err != nil {
		return nil, errors.WithMessage(err, "FCN: initial projection")
	}
	return m, nil
}

// Name returns "FCN".
func (m *FCN) Name() string {
	return "FCN"
}

// LatentDim returns the latent width.
func (m *FCN) LatentDim() int {
	return m.cfg.LatentDim
}

// Config returns the effective configuration.
func (m *FCN) Config() FCNConfig {
	return m.cfg
}

// Encode computes Qd = relu(fc_y(relu(fc_m(relu(fc_d(d)))))).
func (m *FCN) Encode(b *autodiff.Backend, d *mat.Dense) *mat.Dense {
	v := m.relu.Forward(b, m.fcD.Forward(b, d))
	v = m.relu.Forward(b, m.fcM.Forward(b, v))
	return m.relu.Forward(b, m.fcY.Forward(b, v))
}

// Apply computes relu(fc_u(γ·u + Qd)).
func (m *FCN) Apply(b *autodiff.Backend, u, qd *mat.Dense) *mat.Dense {
	return m.relu.Forward(b, m.fcU.Forward(b, b.Add(b.Scale(u, m.cfg.Gamma), qd)))
}

// Readout computes fc_f(u).
func (m *FCN) Readout(b *autodiff.Backend, u *mat.Dense) *mat.Dense {
	return m.fcF.Forward(b, u)
}

// Bounds returns the registry of bounded weights.
func (m *FCN) Bounds() *nn.BoundRegistry {
	return m.reg
}

// Parameters returns all parameters in layer order.
func (m *FCN) Parameters() []*nn.Parameter {
	return nn.Collect(m.fcD, m.fcM, m.fcY, m.fcU, m.fcF)
}
