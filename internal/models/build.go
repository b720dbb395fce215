package models

import (
	"strings"

	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/spectral"
	"github.com/pkg/errors"
)

// Spec describes a model well enough to rebuild it, e.g. from a checkpoint.
type Spec struct {
	Kind      string  `json:"kind"` // "fcn" or "linear"
	InputDim  int     `json:"input_dim"`
	Classes   int     `json:"classes"`
	LatentDim int     `json:"latent_dim,omitempty"`
	HiddenDim int     `json:"hidden_dim,omitempty"`
	SHi       float64 `json:"s_hi,omitempty"`
	Seed      int64   `json:"seed,omitempty"`
}

// Build constructs the operator set described by spec.
func Build(spec Spec) (fpn.OperatorSet, error) {
	return BuildWithProjection(spec, spectral.Options{})
}

// BuildWithProjection is Build with an explicit projection retry policy.
func BuildWithProjection(spec Spec, proj spectral.Options) (fpn.OperatorSet, error) {
	switch strings.ToLower(spec.Kind) {
	case "fcn", "":
		return NewFCN(FCNConfig{
			InputDim:   spec.InputDim,
			Classes:    spec.Classes,
			HiddenDim:  spec.HiddenDim,
			LatentDim:  spec.LatentDim,
			SHi:        spec.SHi,
			Seed:       spec.Seed,
			Projection: proj,
		})
	case "linear":
		return NewLinear(LinearConfig{
			InputDim:    spec.InputDim,
			OutputDim:   spec.Classes,
			LatentDim:   spec.LatentDim,
			Contraction: spec.SHi,
			Seed:        spec.Seed,
			Projection:  proj,
		})
	}
	return nil, errors.Errorf("unknown model kind %q (want fcn or linear)", spec.Kind)
}
