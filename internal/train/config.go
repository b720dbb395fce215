// Package train runs the epoch loop of a fixed-point network: projected forward
// solves, adjoint gradients, optimizer and learning-rate updates, evaluation,
// history bookkeeping and best-accuracy checkpointing.
package train

import (
	"io"
	"os"
	"strings"

	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/born-ml/fixpoint/internal/optim"
	"github.com/born-ml/fixpoint/internal/serialization"
	"github.com/pkg/errors"
)

// Config configures a training run. Zero fields take the defaults listed on each field.
type Config struct {
	Epochs        int     // Number of epochs (default: 1)
	BatchSize     int     // Training batch size (default: 50)
	TestBatchSize int     // Evaluation batch size (default: 2000)
	LR            float64 // Initial learning rate (default: 5e-5)
	Optimizer     string  // "adam" or "sgd" (default: "adam")
	Momentum      float64 // SGD momentum
	WeightDecay   float64 // Adam L2 penalty
	StepSize      int     // Epochs between learning-rate decays (default: 10)
	Gamma         float64 // Learning-rate decay factor (default: 0.98)
	Loss          string  // "mse" or "xent" (default: "mse")
	Seed          int64   // Shuffling seed

	// Engine configures the forward solver and gradient engine, including the
	// adjoint or explicit gradient mode.
	Engine fpn.Config

	// Name identifies the run in checkpoint file names: FPN_<Name>_weights.fpn and
	// FPN_<Name>_history.fpn. Default: the operator set's name.
	Name string

	// CheckpointDir receives checkpoints; empty disables saving.
	CheckpointDir string

	// DType is the checkpoint tensor encoding (default: "float64").
	DType string

	// Progress shows a per-epoch progress bar on Output.
	Progress bool

	// Output receives the parameter table and epoch summaries (default: os.Stdout).
	Output io.Writer
}

// Default configuration values, following the MNIST adjoint driver.
const (
	DefaultBatchSize     = 50
	DefaultTestBatchSize = 2000
	DefaultLR            = 5e-5
)

// WithDefaults returns c with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Epochs <= 0 {
		c.Epochs = 1
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.TestBatchSize <= 0 {
		c.TestBatchSize = DefaultTestBatchSize
	}
	if c.LR <= 0 {
		c.LR = DefaultLR
	}
	if c.Optimizer == "" {
		c.Optimizer = "adam"
	}
	if c.StepSize <= 0 {
		c.StepSize = 10
	}
	if c.Gamma <= 0 {
		c.Gamma = 0.98
	}
	if c.Loss == "" {
		c.Loss = "mse"
	}
	if c.DType == "" {
		c.DType = serialization.DTypeFloat64
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	c.Engine = c.Engine.WithDefaults()
	return c
}

// newOptimizer builds the optimizer named in c.
func (c Config) newOptimizer(params []*nn.Parameter) (optim.Optimizer, error) {
	switch strings.ToLower(c.Optimizer) {
	case "adam":
		return optim.NewAdam(params, optim.AdamConfig{LR: c.LR, WeightDecay: c.WeightDecay}), nil
	case "sgd":
		return optim.NewSGD(params, optim.SGDConfig{LR: c.LR, Momentum: c.Momentum}), nil
	}
	return nil, errors.Errorf("unknown optimizer %q (want adam or sgd)", c.Optimizer)
}
