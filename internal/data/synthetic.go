package data

import (
	"math/rand"

	"github.com/born-ml/fixpoint/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ClustersConfig configures GaussianClusters.
type ClustersConfig struct {
	Samples int     // Total number of samples (default: 1000)
	Dim     int     // Feature dimension (default: 2)
	Classes int     // Number of clusters (default: 3)
	Radius  float64 // Standard deviation of cluster centers (default: 3)
	Spread  float64 // Standard deviation within a cluster (default: 1)
	Seed    int64
}

// GaussianClusters draws a labelled mixture of isotropic Gaussians. Sample i belongs
// to cluster i mod Classes, so classes are balanced.
func GaussianClusters(cfg ClustersConfig) (*Dataset, error) {
	if cfg.Samples == 0 {
		cfg.Samples = 1000
	}
	if cfg.Dim == 0 {
		cfg.Dim = 2
	}
	if cfg.Classes == 0 {
		cfg.Classes = 3
	}
	if cfg.Radius == 0 {
		cfg.Radius = 3
	}
	if cfg.Spread == 0 {
		cfg.Spread = 1
	}
	if cfg.Samples < 0 || cfg.Dim < 0 || cfg.Classes < 0 {
		return nil, errors.Wrapf(ErrInvalidDataset, "clusters config %+v", cfg)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	centers := tensor.Randn(cfg.Classes, cfg.Dim, cfg.Radius, rng)
	x := tensor.Randn(cfg.Samples, cfg.Dim, cfg.Spread, rng)
	labels := make([]int, cfg.Samples)
	for i := range labels {
		labels[i] = i % cfg.Classes
		row := x.RowView(i).(*mat.VecDense)
		row.AddVec(row, centers.RowView(labels[i]))
	}
	return NewDataset("clusters", x, labels, cfg.Classes)
}
