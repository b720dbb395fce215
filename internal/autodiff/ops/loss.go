package ops

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// MSEOp represents mean squared error: output = mean((p - y)²) as a [1, 1] matrix.
//
// Backward pass:
//   - grad_p = outputGrad · 2(p - y) / N
//   - targets receive no gradient
type MSEOp struct {
	inputs []*mat.Dense // [predictions, targets]
	output *mat.Dense
}

// NewMSEOp creates a new MSEOp.
func NewMSEOp(predictions, targets, output *mat.Dense) *MSEOp {
	return &MSEOp{
		inputs: []*mat.Dense{predictions, targets},
		output: output,
	}
}

// MSE computes mean((p - y)²).
func MSE(predictions, targets *mat.Dense) float64 {
	checkSameShape("MSE", predictions, targets)
	var diff mat.Dense
	diff.Sub(predictions, targets)
	r, c := diff.Dims()
	n := float64(r * c)
	return mat.Sum(mulElem(&diff, &diff)) / n
}

// Backward computes the gradient with respect to the predictions.
func (op *MSEOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	grad := op.residualGrad()
	grad.Scale(outputGrad.At(0, 0), grad)
	return []*mat.Dense{grad, nil}
}

// Tangent computes <2(p - y)/N, dp>.
func (op *MSEOp) Tangent(inputTangents []*mat.Dense) *mat.Dense {
	dp := inputTangents[0]
	if dp == nil {
		return nil
	}
	return scalar(mat.Sum(mulElem(op.residualGrad(), dp)))
}

// residualGrad returns 2(p - y)/N.
func (op *MSEOp) residualGrad() *mat.Dense {
	p, y := op.inputs[0], op.inputs[1]
	var grad mat.Dense
	grad.Sub(p, y)
	r, c := grad.Dims()
	grad.Scale(2/float64(r*c), &grad)
	return &grad
}

// Inputs returns [predictions, targets].
func (op *MSEOp) Inputs() []*mat.Dense {
	return op.inputs
}

// Output returns the scalar loss.
func (op *MSEOp) Output() *mat.Dense {
	return op.output
}

// CrossEntropyOp represents mean softmax cross-entropy over the batch:
//
//	Loss = mean_i(-log_softmax(logits_i)[label_i])
//
// Backward pass:
//
//	∂L/∂logits = (softmax(logits) - y_one_hot) / batch_size
type CrossEntropyOp struct {
	logits *mat.Dense
	labels []int
	probs  *mat.Dense
	output *mat.Dense
}

// NewCrossEntropyOp creates a new CrossEntropyOp. probs must be softmax(logits).
func NewCrossEntropyOp(logits *mat.Dense, labels []int, probs, output *mat.Dense) *CrossEntropyOp {
	return &CrossEntropyOp{logits: logits, labels: labels, probs: probs, output: output}
}

// Softmax computes a row-wise softmax using max-shifting for stability.
func Softmax(logits *mat.Dense) *mat.Dense {
	r, c := logits.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		row := logits.RawRowView(i)
		dst := out.RawRowView(i)
		maxV := math.Inf(-1)
		for _, v := range row {
			maxV = math.Max(maxV, v)
		}
		var sum float64
		for j, v := range row {
			dst[j] = math.Exp(v - maxV)
			sum += dst[j]
		}
		for j := range dst {
			dst[j] /= sum
		}
	}
	return out
}

// CrossEntropy computes the mean cross-entropy of probs against labels.
func CrossEntropy(probs *mat.Dense, labels []int) float64 {
	r, _ := probs.Dims()
	var loss float64
	for i := 0; i < r; i++ {
		loss -= math.Log(math.Max(probs.At(i, labels[i]), 1e-300))
	}
	return loss / float64(r)
}

// Backward computes the gradient with respect to the logits.
func (op *CrossEntropyOp) Backward(outputGrad *mat.Dense) []*mat.Dense {
	grad := op.logitGrad()
	grad.Scale(outputGrad.At(0, 0), grad)
	return []*mat.Dense{grad}
}

// Tangent computes <(softmax - onehot)/B, dlogits>.
func (op *CrossEntropyOp) Tangent(inputTangents []*mat.Dense) *mat.Dense {
	if inputTangents[0] == nil {
		return nil
	}
	return scalar(mat.Sum(mulElem(op.logitGrad(), inputTangents[0])))
}

func (op *CrossEntropyOp) logitGrad() *mat.Dense {
	grad := mat.DenseCopyOf(op.probs)
	r, _ := grad.Dims()
	for i, label := range op.labels {
		grad.Set(i, label, grad.At(i, label)-1)
	}
	grad.Scale(1/float64(r), grad)
	return grad
}

// Inputs returns [logits].
func (op *CrossEntropyOp) Inputs() []*mat.Dense {
	return []*mat.Dense{op.logits}
}

// Output returns the scalar loss.
func (op *CrossEntropyOp) Output() *mat.Dense {
	return op.output
}

func mulElem(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}
