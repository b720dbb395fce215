// Package spectral bounds the singular values of dense weight matrices.
//
// Project is the only way weights of Lipschitz-bounded linear maps are brought
// back into range: it factorizes the matrix, clamps the singular values into
// [lo, hi] and reconstructs the matrix from the clamped factorization, keeping
// both singular subspaces. A matrix whose factorization fails is perturbed with
// Gaussian noise and retried a bounded number of times.
package spectral

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"
)

// ErrDecompositionFailed is returned when the singular value decomposition did
// not converge within the retry limit.
var ErrDecompositionFailed = errors.New("singular value decomposition failed")

// ErrInvalidBounds is returned for an empty or negative bound interval.
var ErrInvalidBounds = errors.New("invalid singular value bounds")

// Defaults used when Options fields are zero.
const (
	DefaultMaxAttempts = 10
	DefaultNoiseScale  = 1e-2
)

// Options configures the retry policy of Project.
type Options struct {
	// MaxAttempts is the number of factorizations tried before giving up.
	// Default: 10.
	MaxAttempts int

	// NoiseScale is the standard deviation of the Gaussian noise added to the
	// matrix after a failed factorization. Default: 1e-2.
	NoiseScale float64

	// Rand is the noise source. Default: a generator seeded with 1.
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.NoiseScale <= 0 {
		o.NoiseScale = DefaultNoiseScale
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(1))
	}
	return o
}

// factorize is swapped in tests to simulate non-converging decompositions.
var factorize = func(svd *mat.SVD, a mat.Matrix) bool {
	return svd.Factorize(a, mat.SVDThin)
}

// Project clamps every singular value of m into [lo, hi] and writes the
// reconstruction back into m. Noise added during retries stays in m, so m
// is modified even when an error is returned.
func Project(m *mat.Dense, lo, hi float64, opts Options) error {
	if lo < 0 || hi < lo || math.IsNaN(lo) || math.IsNaN(hi) {
		return errors.Wrapf(ErrInvalidBounds, "[%g, %g]", lo, hi)
	}
	opts = opts.withDefaults()

	var svd mat.SVD
	attempts := 0
	for {
		attempts++
		if factorize(&svd, m) {
			break
		}
		if attempts >= opts.MaxAttempts {
			r, c := m.Dims()
			return errors.Wrapf(ErrDecompositionFailed, "%dx%d matrix after %d attempts", r, c, attempts)
		}
		klog.Warningf("spectral: SVD did not converge (attempt %d/%d), adding Gaussian noise (scale %g) and retrying",
			attempts, opts.MaxAttempts, opts.NoiseScale)
		addNoise(m, opts.NoiseScale, opts.Rand)
	}

	values := svd.Values(nil)
	for i, s := range values {
		values[i] = math.Min(math.Max(s, lo), hi)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	// u·diag(s) is formed by scaling the columns of u.
	r, k := u.Dims()
	for i := 0; i < r; i++ {
		floats.Mul(u.RawRowView(i), values[:k])
	}
	m.Mul(&u, v.T())
	return nil
}

// SingularValues returns the singular values of m in descending order.
func SingularValues(m mat.Matrix) ([]float64, error) {
	var svd mat.SVD
	if !factorize(&svd, m) {
		return nil, ErrDecompositionFailed
	}
	return svd.Values(nil), nil
}

// Norm returns the spectral norm (largest singular value) of m.
func Norm(m mat.Matrix) (float64, error) {
	values, err := SingularValues(m)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	return values[0], nil
}

func addNoise(m *mat.Dense, scale float64, rng *rand.Rand) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] += scale * rng.NormFloat64()
		}
	}
}
