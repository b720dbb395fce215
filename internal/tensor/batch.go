// Package tensor provides batch-major dense helpers over gonum matrices.
//
// Every latent state, conditioning signal and Krylov vector in the framework is a
// *mat.Dense with one row per batch element. Helpers here create such batches and
// compute the per-row reductions (norms, inner products) that the fixed-point
// solver and the batched conjugate-gradient solver are built on.
package tensor

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/born-ml/fixpoint/internal/parallel"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// rowWorkers splits row-wise helpers across workers for large batches.
var rowWorkers = parallel.DefaultConfig()

// Zeros creates a rows x cols matrix filled with zeros.
func Zeros(rows, cols int) *mat.Dense {
	return mat.NewDense(rows, cols, nil)
}

// Full creates a rows x cols matrix filled with value.
func Full(rows, cols int, value float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = value
	}
	return mat.NewDense(rows, cols, data)
}

// Ones creates a rows x cols matrix filled with ones.
func Ones(rows, cols int) *mat.Dense {
	return Full(rows, cols, 1)
}

// ZerosLike creates a zero matrix with the dimensions of m.
func ZerosLike(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	return Zeros(r, c)
}

// Randn creates a rows x cols matrix with entries drawn from N(0, std²).
func Randn(rows, cols int, std float64, rng *rand.Rand) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = rng.NormFloat64() * std
	}
	return mat.NewDense(rows, cols, data)
}

// FromRows builds a matrix from equal-length rows.
func FromRows(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		panic("tensor.FromRows: no rows")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			panic("tensor.FromRows: ragged row " + strconv.Itoa(i))
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data)
}

// Clone returns a deep copy of m.
func Clone(m mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(m)
}

// RowNorms returns the Euclidean norm of every row.
func RowNorms(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	norms := make([]float64, r)
	parallel.For(r, func(i int) {
		norms[i] = floats.Norm(m.RawRowView(i), 2)
	}, rowWorkers)
	return norms
}

// RowDots returns the per-row inner products <a_i, b_i>.
func RowDots(a, b *mat.Dense) []float64 {
	r, _ := a.Dims()
	dots := make([]float64, r)
	parallel.For(r, func(i int) {
		dots[i] = floats.Dot(a.RawRowView(i), b.RawRowView(i))
	}, rowWorkers)
	return dots
}

// MaxRowDiffNorm returns max_i ||a_i - b_i||₂.
func MaxRowDiffNorm(a, b *mat.Dense) float64 {
	r, _ := a.Dims()
	var worst float64
	for i := 0; i < r; i++ {
		d := floats.Distance(a.RawRowView(i), b.RawRowView(i), 2)
		if d > worst || math.IsNaN(d) {
			worst = d
		}
	}
	return worst
}

// ScaleRows multiplies row i of m by scale[i] in place.
func ScaleRows(m *mat.Dense, scale []float64) {
	parallel.For(len(scale), func(i int) {
		floats.Scale(scale[i], m.RawRowView(i))
	}, rowWorkers)
}

// AddScaledRows computes dst_i += alpha[i] * src_i in place.
func AddScaledRows(dst *mat.Dense, alpha []float64, src *mat.Dense) {
	parallel.For(len(alpha), func(i int) {
		floats.AddScaled(dst.RawRowView(i), alpha[i], src.RawRowView(i))
	}, rowWorkers)
}

// OneHot encodes labels as a len(labels) x classes indicator matrix.
func OneHot(labels []int, classes int) *mat.Dense {
	m := Zeros(len(labels), classes)
	for i, label := range labels {
		if label < 0 || label >= classes {
			panic("tensor.OneHot: label out of range at row " + strconv.Itoa(i))
		}
		m.Set(i, label, 1)
	}
	return m
}

// ArgmaxRows returns the column index of the largest entry of every row.
func ArgmaxRows(m *mat.Dense) []int {
	r, _ := m.Dims()
	out := make([]int, r)
	for i := range out {
		out[i] = floats.MaxIdx(m.RawRowView(i))
	}
	return out
}

// IsFinite reports whether every entry of m is finite.
func IsFinite(m *mat.Dense) bool {
	raw := m.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
