package ops

import "gonum.org/v1/gonum/mat"

// AddBiasOp adds a [1, n] bias row to every row of x: output = x + 1·b.
//
// Backward pass:
//   - grad_x = outputGrad
//   - grad_b = column sums of outputGrad
type AddBiasOp struct {
	inputs []*mat.Dense // [x, b]
	output *mat.Dense
}

// NewAddBiasOp creates a new AddBiasOp.
func NewAddBiasOp(x, b, output *mat.Dense) *AddBiasOp {
	return &AddBiasOp{
		inputs: []*mat.Dense{x, b},
		output: output,
	}
}

// Backward computes input gradients for the broadcast addition.
func (op *AddBiasOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	return []*mat.Dense{mat.DenseCopyOf(outputGrad), columnSums(outputGrad)}
}

// Tangent computes dx + 1·db.
func (op *AddBiasOp) Tangent(inputTangents []*mat.Dense) *mat.Dense {
	if allNil(inputTangents) {
		return nil
	}
	r, c := op.output.Dims()
	out := mat.NewDense(r, c, nil)
	if dx := inputTangents[0]; dx != nil {
		out.Add(out, dx)
	}
	if db := inputTangents[1]; db != nil {
		out.Add(out, broadcastRow(db, r))
	}
	return out
}

// Inputs returns the input tensors [x, b].
func (op *AddBiasOp) Inputs() []*mat.Dense {
	return op.inputs
}

// Output returns the output tensor.
func (op *AddBiasOp) Output() *mat.Dense {
	return op.output
}
