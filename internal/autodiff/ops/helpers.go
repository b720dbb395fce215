package ops

import (
	"github.com/gomlx/exceptions"
	"gonum.org/v1/gonum/mat"
)

// allNil reports whether every tangent is nil.
func allNil(ts []*mat.Dense) bool {
	for _, t := range ts {
		if t != nil {
			return false
		}
	}
	return true
}

// checkSameShape panics when a and b differ in dimensions.
func checkSameShape(op string, a, b mat.Matrix) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		exceptions.Panicf("%s: shape mismatch [%d, %d] vs [%d, %d]", op, ar, ac, br, bc)
	}
}

// columnSums reduces a [batch, n] gradient to a [1, n] row.
func columnSums(g *mat.Dense) *mat.Dense {
	r, c := g.Dims()
	out := mat.NewDense(1, c, nil)
	row := out.RawRowView(0)
	for i := 0; i < r; i++ {
		for j, v := range g.RawRowView(i) {
			row[j] += v
		}
	}
	return out
}

// broadcastRow tiles a [1, n] row to [rows, n].
func broadcastRow(b *mat.Dense, rows int) *mat.Dense {
	_, c := b.Dims()
	out := mat.NewDense(rows, c, nil)
	src := b.RawRowView(0)
	for i := 0; i < rows; i++ {
		copy(out.RawRowView(i), src)
	}
	return out
}

// maskMul returns g ⊙ f(x) where f is evaluated element-wise on x.
func maskMul(g, x *mat.Dense, f func(float64) float64) *mat.Dense {
	r, c := g.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return v * f(x.At(i, j))
	}, g)
	return out
}

// scalar wraps a float in a 1x1 matrix.
func scalar(v float64) *mat.Dense {
	return mat.NewDense(1, 1, []float64{v})
}
