package spectral

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomMatrix(r, c int, scale float64, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	m := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, scale*rng.NormFloat64())
		}
	}
	return m
}

// TestProject_Bounds tests that every singular value lands in [lo, hi].
func TestProject_Bounds(t *testing.T) {
	tests := []struct {
		name   string
		r, c   int
		scale  float64
		lo, hi float64
	}{
		{"square shrink", 6, 6, 3, 0, 1},
		{"square lift", 5, 5, 0.01, 1, 1},
		{"wide", 3, 8, 2, 0.2, 0.9},
		{"tall", 8, 3, 2, 0.2, 0.9},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := randomMatrix(tt.r, tt.c, tt.scale, int64(i+1))
			require.NoError(t, Project(m, tt.lo, tt.hi, Options{}))

			values, err := SingularValues(m)
			require.NoError(t, err)
			for _, s := range values {
				assert.GreaterOrEqual(t, s, tt.lo-1e-10)
				assert.LessOrEqual(t, s, tt.hi+1e-10)
			}
		})
	}
}

// TestProject_Idempotent tests project(project(M)) == project(M).
func TestProject_Idempotent(t *testing.T) {
	m := randomMatrix(7, 5, 2, 42)
	require.NoError(t, Project(m, 0.1, 1, Options{}))
	once := mat.DenseCopyOf(m)
	require.NoError(t, Project(m, 0.1, 1, Options{}))
	assert.True(t, mat.EqualApprox(once, m, 1e-10))
}

// TestProject_PreservesSingularVectors tests that U^T M' V is diag(clamp(s)).
func TestProject_PreservesSingularVectors(t *testing.T) {
	m := randomMatrix(4, 4, 2, 9)
	var svd mat.SVD
	require.True(t, svd.Factorize(m, mat.SVDThin))
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	require.NoError(t, Project(m, 0.5, 1.5, Options{}))

	var core, tmp mat.Dense
	tmp.Mul(u.T(), m)
	core.Mul(&tmp, &v)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = min(max(values[i], 0.5), 1.5)
			}
			assert.InDelta(t, want, core.At(i, j), 1e-10, "entry (%d, %d)", i, j)
		}
	}
}

// TestProject_InRangeUnchanged tests that a matrix already inside the bounds is kept.
func TestProject_InRangeUnchanged(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0.5, 0, 0, -0.75})
	want := mat.DenseCopyOf(m)
	require.NoError(t, Project(m, 0, 1, Options{}))
	assert.True(t, mat.EqualApprox(want, m, 1e-12))

	norm, err := Norm(m)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, norm, 1e-12)
}

func TestProject_InvalidBounds(t *testing.T) {
	m := randomMatrix(2, 2, 1, 1)
	assert.ErrorIs(t, Project(m, 1, 0.5, Options{}), ErrInvalidBounds)
	assert.ErrorIs(t, Project(m, -1, 0.5, Options{}), ErrInvalidBounds)
}

// failingFactorize makes the first n factorizations fail.
func failingFactorize(t *testing.T, n int) *int {
	t.Helper()
	calls := 0
	orig := factorize
	factorize = func(svd *mat.SVD, a mat.Matrix) bool {
		calls++
		if calls <= n {
			return false
		}
		return orig(svd, a)
	}
	t.Cleanup(func() { factorize = orig })
	return &calls
}

// TestProject_RetriesWithNoise tests recovery after transient decomposition failures.
func TestProject_RetriesWithNoise(t *testing.T) {
	calls := failingFactorize(t, 3)
	m := mat.NewDense(3, 3, []float64{2, 0, 0, 0, 2, 0, 0, 0, 2})
	orig := mat.DenseCopyOf(m)

	require.NoError(t, Project(m, 0, 1, Options{MaxAttempts: 5, NoiseScale: 1e-3}))
	assert.Equal(t, 4, *calls)

	// The noisy matrix was projected: still bounded and close to the scaled identity.
	values, err := SingularValues(m)
	require.NoError(t, err)
	for _, s := range values {
		assert.LessOrEqual(t, s, 1+1e-10)
	}
	assert.False(t, mat.Equal(orig, m))
}

// TestProject_FailsAfterMaxAttempts tests that exhausting the retry limit is fatal.
func TestProject_FailsAfterMaxAttempts(t *testing.T) {
	calls := failingFactorize(t, 100)
	m := randomMatrix(3, 3, 1, 5)

	err := Project(m, 0, 1, Options{MaxAttempts: 4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecompositionFailed))
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, 4, *calls)
}
