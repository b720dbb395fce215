package train

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/born-ml/fixpoint/internal/data"
	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/models"
	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/born-ml/fixpoint/internal/optim"
	"github.com/born-ml/fixpoint/internal/tensor"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"
)

// accDecay is the weight of the previous running training accuracy.
const accDecay = 0.99

// Trainer owns the optimizer state of one training run.
type Trainer struct {
	cfg     Config
	spec    models.Spec
	ops     fpn.OperatorSet
	engine  *fpn.Engine
	opt     optim.Optimizer
	sched   *optim.StepLR
	rng     *rand.Rand
	history *History
	steps   int64
}

// New creates a trainer for ops. spec describes ops and is stored in checkpoints so
// that they can be rebuilt.
func New(ops fpn.OperatorSet, spec models.Spec, cfg Config) (*Trainer, error) {
	cfg = cfg.WithDefaults()
	if cfg.Name == "" {
		cfg.Name = ops.Name()
	}
	loss, err := nn.ParseLoss(cfg.Loss)
	if err != nil {
		return nil, err
	}
	opt, err := cfg.newOptimizer(ops.Parameters())
	if err != nil {
		return nil, err
	}
	return &Trainer{
		cfg:    cfg,
		spec:   spec,
		ops:    ops,
		engine: fpn.NewEngine(ops, loss, cfg.Engine),
		opt:    opt,
		sched:  optim.NewStepLR(opt, optim.StepLRConfig{StepSize: cfg.StepSize, Gamma: cfg.Gamma}),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		history: &History{
			RunID: uuid.NewString(),
			Name:  cfg.Name,
			Mode:  cfg.Engine.Mode.String(),
		},
	}, nil
}

// Config returns the effective configuration.
func (t *Trainer) Config() Config {
	return t.cfg
}

// Engine returns the gradient engine.
func (t *Trainer) Engine() *fpn.Engine {
	return t.engine
}

// History returns the metrics recorded so far.
func (t *Trainer) History() *History {
	return t.history
}

// RunID identifies the run in logs and checkpoints.
func (t *Trainer) RunID() string {
	return t.history.RunID
}

// Run trains for cfg.Epochs epochs, evaluating on test after each one.
//
// Whenever test accuracy improves the weights and history are saved to
// FPN_<name>_weights.fpn; after the last epoch the history is saved to
// FPN_<name>_history.fpn. Both require CheckpointDir.
func (t *Trainer) Run(ctx context.Context, train, test *data.Dataset) (*History, error) {
	out := t.cfg.Output
	fmt.Fprintln(out, ParameterTable(t.ops.Parameters()))
	fmt.Fprintf(out, "\nTraining fixed point network %s (run %s, %s gradients)\n", t.cfg.Name, t.RunID(), t.cfg.Engine.Mode)

	batcher := data.NewBatcher(train, t.cfg.BatchSize, true, t.rng)
	bestAcc := math.Inf(-1)
	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		start := time.Now()
		ep, err := t.TrainEpoch(ctx, batcher)
		if err != nil {
			return t.history, errors.WithMessagef(err, "epoch %d", epoch)
		}
		ep.Epoch = epoch
		t.sched.Step()

		ep.TestLoss, ep.TestAcc, ep.TestDepth, err = t.Evaluate(ctx, test)
		if err != nil {
			return t.history, errors.WithMessagef(err, "evaluating epoch %d", epoch)
		}
		ep.Seconds = time.Since(start).Seconds()
		t.history.Epochs = append(t.history.Epochs, ep)
		fmt.Fprintln(out, FormatEpoch(ep, t.cfg.Epochs))

		if t.cfg.CheckpointDir == "" {
			continue
		}
		if ep.TestAcc > bestAcc {
			bestAcc = ep.TestAcc
			path, err := t.SaveCheckpoint(WeightsFile, &ep)
			if err != nil {
				return t.history, err
			}
			fmt.Fprintf(out, "Model weights saved to %s\n", path)
		}
		if epoch == t.cfg.Epochs {
			path, err := t.SaveCheckpoint(HistoryFile, &ep)
			if err != nil {
				return t.history, err
			}
			fmt.Fprintf(out, "Training history saved to %s\n", path)
		}
	}
	fmt.Fprintln(out, SummaryTable(t.history))
	return t.history, nil
}

// TrainEpoch runs one pass over batcher, updating parameters after every batch.
// Test metrics and the epoch number are left for the caller.
func (t *Trainer) TrainEpoch(ctx context.Context, batcher *data.Batcher) (Epoch, error) {
	ep := Epoch{LR: t.opt.GetLR()}
	batcher.Reset()
	bar := progressbar.NewOptions(batcher.NumBatches(),
		progressbar.OptionSetWriter(t.cfg.Output),
		progressbar.OptionSetVisibility(t.cfg.Progress),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("batch"),
		// Same values as progressbar.ThemeASCII (added in v3.16, which needs Go 1.22).
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: ".",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionClearOnFinish(),
	)
	defer func() { _ = bar.Finish() }()

	var (
		lossSum float64
		samples int
		runAcc  float64
		batches int
	)
	reg := t.ops.Bounds()
	for batch, ok := batcher.Next(); ok; batch, ok = batcher.Next() {
		if err := ctx.Err(); err != nil {
			return ep, errors.Wrap(err, "training interrupted")
		}
		res, err := t.engine.Step(batch.X, batch.Labels)
		if err != nil {
			return ep, errors.WithMessagef(err, "batch %d", batch.Index)
		}

		reg.Lock()
		t.opt.Step(res.Grads)
		reg.Unlock()
		t.steps++

		n := batch.Size()
		lossSum += res.Loss * float64(n)
		samples += n
		batches++
		runAcc = accDecay*runAcc + (1-accDecay)*accuracy(res.Prediction, batch.Labels)
		ep.TrainAcc = runAcc / (1 - math.Pow(accDecay, float64(batches)))
		ep.Depth = max(ep.Depth, res.Depth)
		ep.Matvecs += res.Matvecs
		if !res.Converged {
			ep.NonConverged++
		}
		if !res.CGConverged {
			ep.CGStalls++
		}
		bar.Describe(fmt.Sprintf("loss=%.2e acc=%5.2f%% depth=%d", res.Loss, 100*ep.TrainAcc, ep.Depth))
		_ = bar.Add(1)
	}
	if samples > 0 {
		ep.TrainLoss = lossSum / float64(samples)
	}
	if ep.NonConverged > 0 || ep.CGStalls > 0 {
		klog.V(1).Infof("%s: %d/%d batches hit the depth cap, %d hit the CG cap",
			t.cfg.Name, ep.NonConverged, batches, ep.CGStalls)
	}
	return ep, nil
}

// Evaluate returns the per-sample loss, the accuracy and the depth of the last
// batch over ds, without projecting or updating parameters.
func (t *Trainer) Evaluate(ctx context.Context, ds *data.Dataset) (loss, acc float64, depth int, err error) {
	return Evaluate(ctx, t.engine, ds, t.cfg.TestBatchSize)
}

// Evaluate runs engine over ds in batches of batchSize.
func Evaluate(ctx context.Context, engine *fpn.Engine, ds *data.Dataset, batchSize int) (loss, acc float64, depth int, err error) {
	if ds == nil || ds.Len() == 0 {
		return 0, 0, 0, nil
	}
	batcher := data.NewBatcher(ds, batchSize, false, nil)
	var correct int
	for batch, ok := batcher.Next(); ok; batch, ok = batcher.Next() {
		if err := ctx.Err(); err != nil {
			return 0, 0, 0, errors.Wrap(err, "evaluation interrupted")
		}
		l, inf, err := engine.Evaluate(batch.X, batch.Labels)
		if err != nil {
			return 0, 0, 0, err
		}
		loss += l * float64(batch.Size())
		correct += countCorrect(inf.Prediction, batch.Labels)
		depth = inf.Depth
	}
	n := float64(ds.Len())
	return loss / n, float64(correct) / n, depth, nil
}

func countCorrect(pred *mat.Dense, labels []int) int {
	var correct int
	for i, p := range tensor.ArgmaxRows(pred) {
		if p == labels[i] {
			correct++
		}
	}
	return correct
}

func accuracy(pred *mat.Dense, labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	return float64(countCorrect(pred, labels)) / float64(len(labels))
}
