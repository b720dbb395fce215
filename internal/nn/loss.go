package nn

import (
	"strings"

	"github.com/born-ml/fixpoint/internal/autodiff"
	"github.com/born-ml/fixpoint/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Loss maps [batch, classes] predictions and integer labels to a [1, 1] loss.
type Loss interface {
	Forward(b *autodiff.Backend, predictions *mat.Dense, labels []int) *mat.Dense
	Name() string
}

// MSELoss is mean((p - onehot(labels))²).
type MSELoss struct{}

// NewMSELoss creates an MSE loss.
func NewMSELoss() *MSELoss {
	return &MSELoss{}
}

// Forward computes the loss.
func (m *MSELoss) Forward(b *autodiff.Backend, predictions *mat.Dense, labels []int) *mat.Dense {
	_, classes := predictions.Dims()
	return b.MSE(predictions, tensor.OneHot(labels, classes))
}

// Name returns "mse".
func (m *MSELoss) Name() string {
	return "mse"
}

// CrossEntropyLoss is the mean softmax cross-entropy of logits.
type CrossEntropyLoss struct{}

// NewCrossEntropyLoss creates a cross-entropy loss.
func NewCrossEntropyLoss() *CrossEntropyLoss {
	return &CrossEntropyLoss{}
}

// Forward computes the loss.
func (c *CrossEntropyLoss) Forward(b *autodiff.Backend, logits *mat.Dense, labels []int) *mat.Dense {
	return b.CrossEntropy(logits, labels)
}

// Name returns "xent".
func (c *CrossEntropyLoss) Name() string {
	return "xent"
}

// ParseLoss returns the loss named "mse" or "xent".
func ParseLoss(name string) (Loss, error) {
	switch strings.ToLower(name) {
	case "mse":
		return NewMSELoss(), nil
	case "xent", "cross-entropy", "crossentropy":
		return NewCrossEntropyLoss(), nil
	}
	return nil, errors.Errorf("unknown loss %q (want mse or xent)", name)
}
