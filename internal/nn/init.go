package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Xavier (Glorot) initialization for a [fanOut, fanIn] weight matrix.
//
// Values are drawn from U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out))).
func Xavier(fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	data := make([]float64, fanIn*fanOut)
	for i := range data {
		data[i] = (rng.Float64()*2.0 - 1.0) * bound
	}
	return mat.NewDense(fanOut, fanIn, data)
}

// Uniform fills a rows x cols matrix from U(-bound, bound).
func Uniform(rows, cols int, bound float64, rng *rand.Rand) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2.0 - 1.0) * bound
	}
	return mat.NewDense(rows, cols, data)
}
