package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/models"
	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/born-ml/fixpoint/internal/plot"
	"github.com/born-ml/fixpoint/internal/train"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"gonum.org/v1/plot/vg"
	"k8s.io/klog/v2"
)

// parse parses args into fs. Asking for help is not an error.
func parse(fs *flag.FlagSet, args []string) (help bool, err error) {
	err = fs.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return true, nil
	}
	if err == nil && fs.NArg() > 0 {
		err = errors.Errorf("unexpected arguments %q", fs.Args())
	}
	return false, err
}

// solverFlags binds the forward solver and gradient engine settings.
func solverFlags(fs *flag.FlagSet) *fpn.Config {
	cfg := &fpn.Config{}
	fs.IntVar(&cfg.MaxDepth, "max-depth", fpn.DefaultMaxDepth, "Maximum fixed-point iterations per batch.")
	fs.Float64Var(&cfg.Tol, "tol", fpn.DefaultTol, "Forward stopping threshold on the per-row step size.")
	return cfg
}

func runTrain(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("train", out)
	ds := addDatasetFlags(fs)
	engine := solverFlags(fs)
	var (
		spec models.Spec
		cfg  train.Config
		mode string
	)
	fs.StringVar(&spec.Kind, "model", "fcn", "Model: fcn or linear.")
	fs.IntVar(&spec.LatentDim, "lat-dim", 0, "Latent dimension (0 = model default).")
	fs.IntVar(&spec.HiddenDim, "hidden-dim", 0, "FCN hidden dimension (0 = model default).")
	fs.Float64Var(&spec.SHi, "s-hi", 0, "Upper singular value bound of the data-space maps (0 = model default).")
	fs.Int64Var(&spec.Seed, "seed", 0, "Weight initialization and shuffling seed.")
	fs.IntVar(&cfg.Epochs, "epochs", 1, "Number of training epochs.")
	fs.IntVar(&cfg.BatchSize, "batch", train.DefaultBatchSize, "Training batch size.")
	fs.IntVar(&cfg.TestBatchSize, "test-batch", train.DefaultTestBatchSize, "Evaluation batch size.")
	fs.Float64Var(&cfg.LR, "lr", train.DefaultLR, "Initial learning rate.")
	fs.StringVar(&cfg.Optimizer, "optimizer", "adam", "Optimizer: adam or sgd.")
	fs.Float64Var(&cfg.Momentum, "momentum", 0, "SGD momentum.")
	fs.Float64Var(&cfg.WeightDecay, "weight-decay", 0, "Adam L2 penalty.")
	fs.IntVar(&cfg.StepSize, "lr-step", 10, "Epochs between learning rate decays.")
	fs.Float64Var(&cfg.Gamma, "lr-gamma", 0.98, "Learning rate decay factor.")
	fs.StringVar(&cfg.Loss, "loss", "mse", "Loss: mse or xent.")
	fs.StringVar(&mode, "mode", "adjoint", "Gradient mode: adjoint or explicit.")
	fs.IntVar(&engine.MaxCGIter, "max-cg-iter", fpn.DefaultMaxCGIter, "Maximum conjugate gradient iterations per batch.")
	fs.Float64Var(&engine.Damping, "damping", fpn.DefaultDamping, "Damping added to the adjoint normal operator.")
	fs.StringVar(&cfg.Name, "name", "", "Run name used in checkpoint files (default: model name).")
	fs.StringVar(&cfg.CheckpointDir, "checkpoint-dir", "", "Directory for checkpoints; empty disables saving.")
	fs.StringVar(&cfg.DType, "dtype", "float64", "Checkpoint tensor encoding: float64 or float16.")
	fs.BoolVar(&cfg.Progress, "progress", false, "Show a progress bar per epoch.")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}

	var err error
	if engine.Mode, err = fpn.ParseMode(mode); err != nil {
		return err
	}
	trainSet, testSet, err := ds.load()
	if err != nil {
		return errors.WithMessage(err, "loading dataset")
	}
	spec.InputDim = trainSet.Dim()
	spec.Classes = trainSet.Classes
	klog.V(1).Infof("dataset %s: %s train / %s test samples, %d features, %d classes",
		ds.kind, humanize.Comma(int64(trainSet.Len())), humanize.Comma(int64(testSet.Len())), spec.InputDim, spec.Classes)

	ops, err := models.Build(spec)
	if err != nil {
		return err
	}
	cfg.Seed = spec.Seed
	cfg.Engine = *engine
	cfg.Output = out
	trainer, err := train.New(ops, spec, cfg)
	if err != nil {
		return err
	}
	_, err = trainer.Run(ctx, trainSet, testSet)
	return err
}

func runEval(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("eval", out)
	ds := addDatasetFlags(fs)
	engine := solverFlags(fs)
	var (
		checkpoint string
		batchSize  int
	)
	fs.StringVar(&checkpoint, "checkpoint", "", "Weights checkpoint (FPN_<name>_weights.fpn).")
	fs.IntVar(&batchSize, "batch", train.DefaultTestBatchSize, "Evaluation batch size.")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if checkpoint == "" {
		return errors.New("--checkpoint is required")
	}

	ops, f, err := train.LoadModel(checkpoint)
	if err != nil {
		return err
	}
	lossName := f.Header.Metadata["loss"]
	if lossName == "" {
		lossName = "mse"
	}
	loss, err := nn.ParseLoss(lossName)
	if err != nil {
		return err
	}
	_, testSet, err := ds.load()
	if err != nil {
		return errors.WithMessage(err, "loading dataset")
	}

	if meta := f.Header.Checkpoint; meta != nil {
		fmt.Fprintf(out, "Checkpoint %s: run %s, epoch %d, step %d, %s gradients, test acc at save = %.2f%%\n",
			checkpoint, f.Header.RunID, meta.Epoch, meta.Step, meta.Mode, 100*meta.TestAccuracy)
	}
	testLoss, acc, depth, err := train.Evaluate(ctx, fpn.NewEngine(ops, loss, *engine), testSet, batchSize)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s on %s samples: test loss = %.4e, test acc = %.2f%%, depth = %d\n",
		ops.Name(), humanize.Comma(int64(testSet.Len())), testLoss, 100*acc, depth)
	return nil
}

func runPlot(_ context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("plot", out)
	var (
		history, output string
		width, height   float64
	)
	fs.StringVar(&history, "history", "", "Checkpoint holding a training history (weights or history file).")
	fs.StringVar(&output, "out", "history.png", "Output PNG path.")
	fs.Float64Var(&width, "width", 12, "Image width in inches.")
	fs.Float64Var(&height, "height", 8, "Image height in inches.")
	if help, err := parse(fs, args); help || err != nil {
		return err
	}
	if history == "" {
		return errors.New("--history is required")
	}

	h, err := train.LoadHistory(history)
	if err != nil {
		return err
	}
	opts := plot.Options{Width: vg.Length(width) * vg.Inch, Height: vg.Length(height) * vg.Inch}
	if err := plot.Save(h, output, opts); err != nil {
		return err
	}
	fmt.Fprintf(out, "Plotted %d epochs of %s to %s\n", len(h.Epochs), h.Name, output)
	return nil
}
