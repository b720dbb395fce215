package ops

import "gonum.org/v1/gonum/mat"

// LinearOp represents a dense layer product: output = x @ W^T.
//
// x has shape [batch, in] and W has shape [out, in], matching the weight layout
// of nn.Linear.
//
// Backward pass:
//   - grad_x = outputGrad @ W
//   - grad_W = outputGrad^T @ x
//
// Tangent:
//   - dOut = dx @ W^T + x @ dW^T
type LinearOp struct {
	inputs []*mat.Dense // [x, W]
	output *mat.Dense
}

// NewLinearOp creates a new LinearOp.
func NewLinearOp(x, w, output *mat.Dense) *LinearOp {
	return &LinearOp{
		inputs: []*mat.Dense{x, w},
		output: output,
	}
}

// Backward computes input gradients for the product.
func (op *LinearOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	x, w := op.inputs[0], op.inputs[1]

	var gradX, gradW mat.Dense
	gradX.Mul(outputGrad, w)
	gradW.Mul(outputGrad.T(), x)

	return []*mat.Dense{&gradX, &gradW}
}

// Tangent computes the directional derivative of the product.
func (op *LinearOp) Tangent(inputTangents []*mat.Dense) *mat.Dense {
	if allNil(inputTangents) {
		return nil
	}
	x, w := op.inputs[0], op.inputs[1]
	r, c := op.output.Dims()
	out := mat.NewDense(r, c, nil)

	if dx := inputTangents[0]; dx != nil {
		var term mat.Dense
		term.Mul(dx, w.T())
		out.Add(out, &term)
	}
	if dw := inputTangents[1]; dw != nil {
		var term mat.Dense
		term.Mul(x, dw.T())
		out.Add(out, &term)
	}
	return out
}

// Inputs returns the input tensors [x, W].
func (op *LinearOp) Inputs() []*mat.Dense {
	return op.inputs
}

// Output returns the output tensor x @ W^T.
func (op *LinearOp) Output() *mat.Dense {
	return op.output
}
