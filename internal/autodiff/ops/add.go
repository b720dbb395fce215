package ops

import "gonum.org/v1/gonum/mat"

// AddOp represents an element-wise addition operation: output = a + b.
//
// Backward pass:
//   - d(a+b)/da = 1, so grad_a = outputGrad
//   - d(a+b)/db = 1, so grad_b = outputGrad
type AddOp struct {
	inputs []*mat.Dense // [a, b]
	output *mat.Dense
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *mat.Dense) *AddOp {
	return &AddOp{
		inputs: []*mat.Dense{a, b},
		output: output,
	}
}

// Backward clones the output gradient for both inputs so later accumulation
// never aliases a shared buffer.
func (op *AddOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	return []*mat.Dense{mat.DenseCopyOf(outputGrad), mat.DenseCopyOf(outputGrad)}
}

// Tangent computes da + db.
func (op *AddOp) Tangent(inputTangents []*mat.Dense) *mat.Dense {
	return sumTangents(op.output, inputTangents[0], inputTangents[1], 1)
}

// Inputs returns the input tensors [a, b].
func (op *AddOp) Inputs() []*mat.Dense {
	return op.inputs
}

// Output returns the output tensor a + b.
func (op *AddOp) Output() *mat.Dense {
	return op.output
}

// SubOp represents an element-wise subtraction operation: output = a - b.
type SubOp struct {
	inputs []*mat.Dense // [a, b]
	output *mat.Dense
}

// NewSubOp creates a new SubOp.
func NewSubOp(a, b, output *mat.Dense) *SubOp {
	return &SubOp{
		inputs: []*mat.Dense{a, b},
		output: output,
	}
}

// Backward returns [outputGrad, -outputGrad].
func (op *SubOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	var neg mat.Dense
	neg.Scale(-1, outputGrad)
	return []*mat.Dense{mat.DenseCopyOf(outputGrad), &neg}
}

// Tangent computes da - db.
func (op *SubOp) Tangent(inputTangents []*mat.Dense) *mat.Dense {
	return sumTangents(op.output, inputTangents[0], inputTangents[1], -1)
}

// Inputs returns the input tensors [a, b].
func (op *SubOp) Inputs() []*mat.Dense {
	return op.inputs
}

// Output returns the output tensor a - b.
func (op *SubOp) Output() *mat.Dense {
	return op.output
}

// sumTangents returns da + sign*db treating nil as zero.
func sumTangents(like, da, db *mat.Dense, sign float64) *mat.Dense {
	if da == nil && db == nil {
		return nil
	}
	r, c := like.Dims()
	out := mat.NewDense(r, c, nil)
	if da != nil {
		out.Add(out, da)
	}
	if db != nil {
		var scaled mat.Dense
		scaled.Scale(sign, db)
		out.Add(out, &scaled)
	}
	return out
}
