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

// LinearConfig configures NewLinear. Zero fields take the listed defaults.
type LinearConfig struct {
	InputDim  int // Required.
	OutputDim int // Required.
	LatentDim int // Default: 2.

	// Contraction bounds the singular values of the latent map. Default: 0.9.
	Contraction float64

	Seed       int64
	Projection spectral.Options
}

// Linear is the operator set T(u, Qd) = W u + Qd, Qd = B d, y = R u + c.
type Linear struct {
	cfg LinearConfig
	reg *nn.BoundRegistry
	fcQ *nn.Linear // B, bounded by 1
	fcW *nn.Linear // W, bounded by Contraction
	fcR *nn.Linear // R and c, unbounded
}

var _ fpn.OperatorSet = (*Linear)(nil)

// NewLinear builds a Linear model and projects its bounded weights into range.
func NewLinear(cfg LinearConfig) (*Linear, error) {
	if cfg.LatentDim <= 0 {
		cfg.LatentDim = 2
	}
	if cfg.Contraction <= 0 {
		cfg.Contraction = 0.9
	}
	if cfg.InputDim <= 0 || cfg.OutputDim <= 0 {
		return nil, errors.Errorf("Linear: input dim (%d) and output dim (%d) must be positive", cfg.InputDim, cfg.OutputDim)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	reg := nn.NewBoundRegistry()
	m := &Linear{
		cfg: cfg,
		reg: reg,
		fcQ: nn.NewLinear("fc_q", cfg.InputDim, cfg.LatentDim, rng, nn.LinearConfig{Registry: reg, Hi: 1}),
		fcW: nn.NewLinear("fc_w", cfg.LatentDim, cfg.LatentDim, rng, nn.LinearConfig{Registry: reg, Hi: cfg.Contraction}),
		fcR: nn.NewLinear("fc_r", cfg.LatentDim, cfg.OutputDim, rng, nn.LinearConfig{Bias: true}),
	}
	if err := reg.Project(cfg.Projection); err != nil {
		return nil, errors.WithMessage(err, "Linear: initial projection")
	}
	return m, nil
}

// Name returns "Linear".
func (m *Linear) Name() string {
	return "Linear"
}

// LatentDim returns the latent width.
func (m *Linear) LatentDim() int {
	return m.cfg.LatentDim
}

// Encode computes Qd = d Bᵀ.
func (m *Linear) Encode(b *autodiff.Backend, d *mat.Dense) *mat.Dense {
	return m.fcQ.Forward(b, d)
}

// Apply computes u Wᵀ + Qd.
func (m *Linear) Apply(b *autodiff.Backend, u, qd *mat.Dense) *mat.Dense {
	return b.Add(m.fcW.Forward(b, u), qd)
}

// Readout computes u Rᵀ + c.
func (m *Linear) Readout(b *autodiff.Backend, u *mat.Dense) *mat.Dense {
	return m.fcR.Forward(b, u)
}

// Bounds returns the registry of bounded weights.
func (m *Linear) Bounds() *nn.BoundRegistry {
	return m.reg
}

// Parameters returns B, W, R and c.
func (m *Linear) Parameters() []*nn.Parameter {
	return nn.Collect(m.fcQ, m.fcW, m.fcR)
}

// Encoder returns the B layer.
func (m *Linear) Encoder() *nn.Linear {
	return m.fcQ
}

// Latent returns the W layer.
func (m *Linear) Latent() *nn.Linear {
	return m.fcW
}

// Head returns the readout layer.
func (m *Linear) Head() *nn.Linear {
	return m.fcR
}
