package autodiff

import (
	"github.com/born-ml/fixpoint/internal/autodiff/ops"
	"gonum.org/v1/gonum/mat"
)

// GradientTape records operations during the forward pass and evaluates
// directional derivatives of the recorded graph afterwards.
//
// Two evaluation directions are supported over the same recording:
//   - reverse mode (Backward, BackwardFrom, VJP): vector-Jacobian products
//   - forward mode (Tangents, JVP): Jacobian-vector products
//
// The recording is retained until Clear is called, so any number of products
// can be evaluated against one forward pass.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... perform operations through a Backend ...
//	tape.StopRecording()
//	grads := tape.BackwardFrom(out, seed)
//	tape.Clear()
type GradientTape struct {
	operations []ops.Operation // Recorded operations (in execution order)
	recording  bool            // Whether tape is currently recording
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]ops.Operation, 0, 64),
		recording:  false,
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
func (t *GradientTape) IsRecording() bool {
	return t.recording
}

// Record adds an operation to the tape.
// Only records if the tape is currently recording.
func (t *GradientTape) Record(op ops.Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear releases all recorded operations.
// Recording state is preserved.
func (t *GradientTape) Clear() {
	for i := range t.operations {
		t.operations[i] = nil
	}
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *GradientTape) NumOps() int {
	return len(t.operations)
}

// Backward seeds the output of the last recorded operation with outputGrad
// and returns the accumulated gradient of every tensor on the tape.
func (t *GradientTape) Backward(outputGrad *mat.Dense) map[*mat.Dense]*mat.Dense {
	if len(t.operations) == 0 {
		return make(map[*mat.Dense]*mat.Dense)
	}
	return t.BackwardFrom(t.operations[len(t.operations)-1].Output(), outputGrad)
}

// BackwardFrom computes gradients for all tensors that output depends on.
//
// Algorithm:
//  1. Seed output with outputGrad
//  2. Walk operations in reverse order
//  3. For each operation whose output carries a gradient, compute input gradients
//  4. Accumulate gradients when the same tensor is used multiple times
func (t *GradientTape) BackwardFrom(output, outputGrad *mat.Dense) map[*mat.Dense]*mat.Dense {
	return t.backward(output, outputGrad, nil)
}

// VJP returns seed^T · ∂output/∂wrt, i.e. the gradient reaching wrt when output
// is seeded with seed. Only operations downstream of wrt are evaluated.
// A zero matrix is returned when output does not depend on wrt.
func (t *GradientTape) VJP(output, seed, wrt *mat.Dense) *mat.Dense {
	reach := t.reachableFrom(wrt)
	grads := t.backward(output, seed, reach)
	if g, ok := grads[wrt]; ok {
		return g
	}
	r, c := wrt.Dims()
	return mat.NewDense(r, c, nil)
}

// Tangents propagates the given input tangents forward through the tape and
// returns the tangent of every tensor reached. Tensors absent from seeds have
// zero tangent.
func (t *GradientTape) Tangents(seeds map[*mat.Dense]*mat.Dense) map[*mat.Dense]*mat.Dense {
	tangents := make(map[*mat.Dense]*mat.Dense, len(seeds)+len(t.operations))
	for k, v := range seeds {
		tangents[k] = v
	}
	for _, op := range t.operations {
		inputs := op.Inputs()
		in := make([]*mat.Dense, len(inputs))
		for i, x := range inputs {
			in[i] = tangents[x]
		}
		if out := op.Tangent(in); out != nil {
			tangents[op.Output()] = out
		}
	}
	return tangents
}

// JVP returns ∂output/∂wrt · tangent. A zero matrix is returned when output
// does not depend on wrt.
func (t *GradientTape) JVP(wrt, tangent, output *mat.Dense) *mat.Dense {
	tangents := t.Tangents(map[*mat.Dense]*mat.Dense{wrt: tangent})
	if out, ok := tangents[output]; ok {
		return out
	}
	r, c := output.Dims()
	return mat.NewDense(r, c, nil)
}

// backward walks the tape in reverse. When reach is non-nil only operations
// whose output is in reach are evaluated and only inputs in reach accumulate.
func (t *GradientTape) backward(output, outputGrad *mat.Dense, reach map[*mat.Dense]bool) map[*mat.Dense]*mat.Dense {
	grads := make(map[*mat.Dense]*mat.Dense)
	grads[output] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		if reach != nil && !reach[op.Output()] {
			continue
		}
		opGrad, ok := grads[op.Output()]
		if !ok {
			continue
		}
		inputGrads := op.Backward(opGrad)
		t.accumulateGrads(op, inputGrads, grads, reach)
	}
	return grads
}

// accumulateGrads accumulates gradients for each input tensor.
func (t *GradientTape) accumulateGrads(
	op ops.Operation,
	inputGrads []*mat.Dense,
	grads map[*mat.Dense]*mat.Dense,
	reach map[*mat.Dense]bool,
) {
	for j, input := range op.Inputs() {
		if j >= len(inputGrads) {
			break
		}
		g := inputGrads[j]
		if g == nil || (reach != nil && !reach[input]) {
			continue
		}
		if existing, ok := grads[input]; ok {
			var sum mat.Dense
			sum.Add(existing, g)
			grads[input] = &sum
		} else {
			grads[input] = g
		}
	}
}

// reachableFrom returns the set of tensors that depend on src, src included.
func (t *GradientTape) reachableFrom(src *mat.Dense) map[*mat.Dense]bool {
	reach := map[*mat.Dense]bool{src: true}
	for _, op := range t.operations {
		for _, x := range op.Inputs() {
			if reach[x] {
				reach[op.Output()] = true
				break
			}
		}
	}
	return reach
}
