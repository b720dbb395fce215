package tensor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestShape(t *testing.T) {
	s := Shape{3, 4}
	assert.Equal(t, 12, s.NumElements())
	assert.True(t, s.Equal(Shape{3, 4}))
	assert.False(t, s.Equal(Shape{4, 3}))
	assert.NoError(t, s.Validate())
	assert.Error(t, Shape{3, 0}.Validate())

	c := s.Clone()
	c[0] = 7
	assert.Equal(t, 3, s[0])
	assert.Equal(t, Shape{2, 5}, ShapeOf(Zeros(2, 5)))
}

func TestRowReductions(t *testing.T) {
	a := FromRows([][]float64{{3, 4}, {0, 0}, {1, 0}})
	b := FromRows([][]float64{{3, 4}, {6, 8}, {0, 1}})

	assert.InDeltaSlice(t, []float64{5, 0, 1}, RowNorms(a), 1e-12)
	assert.InDeltaSlice(t, []float64{25, 0, 0}, RowDots(a, b), 1e-12)
	assert.InDelta(t, 10, MaxRowDiffNorm(a, b), 1e-12)
}

func TestMaxRowDiffNorm_NaN(t *testing.T) {
	a := FromRows([][]float64{{math.NaN(), 0}, {1, 1}})
	b := Zeros(2, 2)
	assert.True(t, math.IsNaN(MaxRowDiffNorm(a, b)))
	assert.False(t, IsFinite(a))
	assert.True(t, IsFinite(b))
}

func TestScaledRowUpdates(t *testing.T) {
	dst := Ones(2, 3)
	src := Full(2, 3, 2)
	AddScaledRows(dst, []float64{0.5, -1}, src)
	assert.Equal(t, []float64{2, 2, 2}, dst.RawRowView(0))
	assert.Equal(t, []float64{-1, -1, -1}, dst.RawRowView(1))

	ScaleRows(dst, []float64{2, 0})
	assert.Equal(t, []float64{4, 4, 4}, dst.RawRowView(0))
	assert.Equal(t, []float64{0, 0, 0}, dst.RawRowView(1))
}

func TestOneHotArgmax(t *testing.T) {
	labels := []int{2, 0, 1}
	oh := OneHot(labels, 3)
	require.True(t, mat.Equal(oh, FromRows([][]float64{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}})))
	assert.Equal(t, labels, ArgmaxRows(oh))

	assert.Panics(t, func() { OneHot([]int{3}, 3) })
}

func TestRandnIsDeterministicPerSeed(t *testing.T) {
	a := Randn(4, 4, 1, rand.New(rand.NewSource(1)))
	b := Randn(4, 4, 1, rand.New(rand.NewSource(1)))
	assert.True(t, mat.Equal(a, b))
	assert.True(t, SameShape(a, Clone(b)))
}

func TestRowHelpers_LargeBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 4 * rowWorkers.MinChunkSize
	a := Randn(n, 5, 1, rng)
	b := Randn(n, 5, 1, rng)

	norms := RowNorms(a)
	dots := RowDots(a, b)
	require.Len(t, norms, n)
	for i := 0; i < n; i++ {
		assert.InDelta(t, mat.Norm(a.RowView(i), 2), norms[i], 1e-12)
		assert.InDelta(t, mat.Dot(a.RowView(i), b.RowView(i)), dots[i], 1e-12)
	}

	alpha := make([]float64, n)
	for i := range alpha {
		alpha[i] = float64(i % 7)
	}
	want := Clone(a)
	for i := 0; i < n; i++ {
		for j := 0; j < 5; j++ {
			want.Set(i, j, want.At(i, j)+alpha[i]*b.At(i, j))
		}
	}
	AddScaledRows(a, alpha, b)
	assert.True(t, mat.EqualApprox(want, a, 1e-12))
}
