package train

import (
	"github.com/pkg/errors"
)

// Epoch holds the metrics of one training epoch. Accuracies are fractions in [0, 1].
type Epoch struct {
	Epoch     int     `json:"epoch"`
	TrainLoss float64 `json:"train_loss"` // Per-sample average over the epoch
	TrainAcc  float64 `json:"train_acc"`  // Exponential moving average of batch accuracy
	TestLoss  float64 `json:"test_loss"`
	TestAcc   float64 `json:"test_acc"`
	Depth     int     `json:"depth"`      // Largest training depth of the epoch
	TestDepth int     `json:"test_depth"` // Depth of the last evaluation batch
	Matvecs   int     `json:"n_umatvecs"` // Adjoint operator applications (CG iterations × batch size)

	NonConverged int `json:"non_converged"` // Training batches that hit the depth cap
	CGStalls     int `json:"cg_stalls"`     // Training batches whose CG hit the iteration cap

	LR      float64 `json:"lr"` // Learning rate used during the epoch
	Seconds float64 `json:"seconds"`
}

// History is the per-epoch record of a training run.
type History struct {
	RunID  string  `json:"run_id"`
	Name   string  `json:"name"`
	Mode   string  `json:"mode"`
	Epochs []Epoch `json:"epochs"`
}

// Metric names accepted by Series.
var Metrics = []string{
	"train_loss", "train_acc", "test_loss", "test_acc",
	"depth", "test_depth", "n_umatvecs", "lr", "seconds",
}

// Series returns one metric across epochs.
func (h *History) Series(metric string) ([]float64, error) {
	get, ok := map[string]func(e *Epoch) float64{
		"train_loss": func(e *Epoch) float64 { return e.TrainLoss },
		"train_acc":  func(e *Epoch) float64 { return e.TrainAcc },
		"test_loss":  func(e *Epoch) float64 { return e.TestLoss },
		"test_acc":   func(e *Epoch) float64 { return e.TestAcc },
		"depth":      func(e *Epoch) float64 { return float64(e.Depth) },
		"test_depth": func(e *Epoch) float64 { return float64(e.TestDepth) },
		"n_umatvecs": func(e *Epoch) float64 { return float64(e.Matvecs) },
		"lr":         func(e *Epoch) float64 { return e.LR },
		"seconds":    func(e *Epoch) float64 { return e.Seconds },
	}[metric]
	if !ok {
		return nil, errors.Errorf("unknown metric %q", metric)
	}
	out := make([]float64, len(h.Epochs))
	for i := range h.Epochs {
		out[i] = get(&h.Epochs[i])
	}
	return out, nil
}

// Best returns the epoch with the highest test accuracy; the earliest wins ties.
func (h *History) Best() (Epoch, bool) {
	if len(h.Epochs) == 0 {
		return Epoch{}, false
	}
	best := h.Epochs[0]
	for _, e := range h.Epochs[1:] {
		if e.TestAcc > best.TestAcc {
			best = e
		}
	}
	return best, true
}

// AverageSeconds returns the mean wall time per epoch.
func (h *History) AverageSeconds() float64 {
	if len(h.Epochs) == 0 {
		return 0
	}
	var total float64
	for _, e := range h.Epochs {
		total += e.Seconds
	}
	return total / float64(len(h.Epochs))
}
