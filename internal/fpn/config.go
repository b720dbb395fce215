package fpn

import (
	"fmt"

	"github.com/born-ml/fixpoint/internal/spectral"
	"github.com/pkg/errors"
)

// Mode selects how training gradients are formed at the fixed point.
type Mode int

const (
	// ModeAdjoint solves the adjoint system with conjugate gradient.
	ModeAdjoint Mode = iota

	// ModeExplicit backpropagates through the single evaluation at u* with
	// the loss gradient as seed (Jacobian-free backprop).
	ModeExplicit
)

// String returns "adjoint" or "explicit".
func (m Mode) String() string {
	switch m {
	case ModeAdjoint:
		return "adjoint"
	case ModeExplicit:
		return "explicit"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "adjoint" or "explicit".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "adjoint":
		return ModeAdjoint, nil
	case "explicit", "jfb":
		return ModeExplicit, nil
	}
	return 0, errors.Errorf("unknown mode %q (want adjoint or explicit)", s)
}

// Default configuration values.
const (
	DefaultMaxDepth  = 500
	DefaultTol       = 1e-6
	DefaultMaxCGIter = 500
	DefaultDamping   = 1e-3
)

// Config configures the forward solver and the gradient engine.
// Zero fields take the defaults listed on each field.
type Config struct {
	// MaxDepth caps the number of fixed-point iterations. Default: 500.
	MaxDepth int

	// Tol is the forward stopping threshold on max_b ||u_b - u_prev_b||.
	// Default: 1e-6.
	Tol float64

	// MaxCGIter caps conjugate-gradient iterations per batch. Default: 500.
	MaxCGIter int

	// CGTolAbs is the absolute CG residual threshold. Default: Tol.
	CGTolAbs float64

	// CGTolRel is the CG residual threshold relative to ||rhs_i||. Default: 0.
	CGTolRel float64

	// Damping is the λ added to the adjoint normal operator. Default: 1e-3.
	Damping float64

	// Mode selects adjoint or explicit gradients. Default: ModeAdjoint.
	Mode Mode

	// Projection configures the singular value projection retry policy.
	Projection spectral.Options
}

// DefaultConfig returns the configuration with every default filled in.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns c with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.MaxDepth <= 0 {
		c.MaxDepth = DefaultMaxDepth
	}
	if c.Tol <= 0 {
		c.Tol = DefaultTol
	}
	if c.MaxCGIter <= 0 {
		c.MaxCGIter = DefaultMaxCGIter
	}
	if c.CGTolAbs <= 0 {
		c.CGTolAbs = c.Tol
	}
	if c.Damping <= 0 {
		c.Damping = DefaultDamping
	}
	if c.Projection.MaxAttempts <= 0 {
		c.Projection.MaxAttempts = spectral.DefaultMaxAttempts
	}
	if c.Projection.NoiseScale <= 0 {
		c.Projection.NoiseScale = spectral.DefaultNoiseScale
	}
	return c
}
