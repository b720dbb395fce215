package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Shape represents the dimensions of a batch-major matrix: [batch, features].
type Shape []int

// ShapeOf returns the shape of a gonum matrix.
func ShapeOf(m mat.Matrix) Shape {
	r, c := m.Dims()
	return Shape{r, c}
}

// NumElements returns the total number of elements.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String renders the shape as [d0, d1].
func (s Shape) String() string {
	return fmt.Sprint([]int(s))
}

// SameShape reports whether two matrices have identical dimensions.
func SameShape(a, b mat.Matrix) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}
