package ops

import "gonum.org/v1/gonum/mat"

// ReLUOp represents a ReLU activation: output = max(0, x).
//
// Backward pass:
//   - d(ReLU(x))/dx = 1 if x > 0, else 0
//
// The same mask serves both directions, so Tangent = mask ⊙ dx.
type ReLUOp struct {
	input  *mat.Dense
	output *mat.Dense
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *mat.Dense) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

// Backward computes input gradient for ReLU.
func (op *ReLUOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	return []*mat.Dense{maskMul(outputGrad, op.input, reluGrad)}
}

// Tangent computes mask ⊙ dx.
func (op *ReLUOp) Tangent(inputTangents []*mat.Dense) *mat.Dense {
	if inputTangents[0] == nil {
		return nil
	}
	return maskMul(inputTangents[0], op.input, reluGrad)
}

// Inputs returns the input tensor [x].
func (op *ReLUOp) Inputs() []*mat.Dense {
	return []*mat.Dense{op.input}
}

// Output returns the output tensor max(0, x).
func (op *ReLUOp) Output() *mat.Dense {
	return op.output
}

func reluGrad(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// AbsOp represents output = |x|, with derivative sign(x) and sign(0) = 0.
type AbsOp struct {
	input  *mat.Dense
	output *mat.Dense
}

// NewAbsOp creates a new AbsOp.
func NewAbsOp(input, output *mat.Dense) *AbsOp {
	return &AbsOp{input: input, output: output}
}

// Backward computes sign(x) ⊙ outputGrad.
func (op *AbsOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	return []*mat.Dense{maskMul(outputGrad, op.input, sign)}
}

// Tangent computes sign(x) ⊙ dx.
func (op *AbsOp) Tangent(inputTangents []*mat.Dense) *mat.Dense {
	if inputTangents[0] == nil {
		return nil
	}
	return maskMul(inputTangents[0], op.input, sign)
}

// Inputs returns the input tensor [x].
func (op *AbsOp) Inputs() []*mat.Dense {
	return []*mat.Dense{op.input}
}

// Output returns the output tensor |x|.
func (op *AbsOp) Output() *mat.Dense {
	return op.output
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
