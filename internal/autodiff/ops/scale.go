package ops

import "gonum.org/v1/gonum/mat"

// ScaleOp multiplies its input by a constant: output = c·x.
type ScaleOp struct {
	input  *mat.Dense
	output *mat.Dense
	factor float64
}

// NewScaleOp creates a new ScaleOp.
func NewScaleOp(x, output *mat.Dense, factor float64) *ScaleOp {
	return &ScaleOp{input: x, output: output, factor: factor}
}

// Backward returns c·outputGrad.
func (op *ScaleOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	var g mat.Dense
	g.Scale(op.factor, outputGrad)
	return []*mat.Dense{&g}
}

// Tangent returns c·dx.
func (op *ScaleOp) Tangent(inputTangents []*mat.Dense) *mat.Dense {
	if inputTangents[0] == nil {
		return nil
	}
	var t mat.Dense
	t.Scale(op.factor, inputTangents[0])
	return &t
}

// Inputs returns the input tensor [x].
func (op *ScaleOp) Inputs() []*mat.Dense {
	return []*mat.Dense{op.input}
}

// Output returns the output tensor c·x.
func (op *ScaleOp) Output() *mat.Dense {
	return op.output
}
