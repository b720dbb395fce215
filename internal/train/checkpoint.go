package train

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/born-ml/fixpoint/internal/fpn"
	"github.com/born-ml/fixpoint/internal/models"
	"github.com/born-ml/fixpoint/internal/serialization"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CheckpointKind selects the checkpoint file written by SaveCheckpoint.
type CheckpointKind int

const (
	// WeightsFile is FPN_<name>_weights.fpn, written on test-accuracy improvements.
	WeightsFile CheckpointKind = iota

	// HistoryFile is FPN_<name>_history.fpn, written after the last epoch.
	HistoryFile
)

// CheckpointPath returns the file name of a checkpoint of kind for the named run.
func CheckpointPath(dir, name string, kind CheckpointKind) string {
	suffix := "weights"
	if kind == HistoryFile {
		suffix = "history"
	}
	return filepath.Join(dir, fmt.Sprintf("FPN_%s_%s.fpn", name, suffix))
}

// SaveCheckpoint writes the current weights, the model spec and the history so far
// into CheckpointDir and returns the path written.
func (t *Trainer) SaveCheckpoint(kind CheckpointKind, ep *Epoch) (string, error) {
	path := CheckpointPath(t.cfg.CheckpointDir, t.cfg.Name, kind)
	spec, err := json.Marshal(t.spec)
	if err != nil {
		return "", errors.Wrap(err, "encoding model spec")
	}
	history, err := json.Marshal(t.history)
	if err != nil {
		return "", errors.Wrap(err, "encoding history")
	}
	header := serialization.Header{
		RunID:   t.RunID(),
		Model:   spec,
		History: history,
		Metadata: map[string]string{
			"name": t.cfg.Name,
			"loss": t.cfg.Loss,
		},
	}
	if ep != nil {
		header.Checkpoint = &serialization.CheckpointMeta{
			Epoch:         ep.Epoch,
			Step:          t.steps,
			TrainLoss:     ep.TrainLoss,
			TestLoss:      ep.TestLoss,
			TestAccuracy:  ep.TestAcc,
			LR:            t.opt.GetLR(),
			Mode:          t.cfg.Engine.Mode.String(),
			OptimizerType: t.cfg.Optimizer,
		}
	}

	reg := t.ops.Bounds()
	reg.RLock()
	defer reg.RUnlock()
	if err := serialization.Save(path, serialization.FromParameters(t.ops.Parameters()), header, t.cfg.DType); err != nil {
		return "", err
	}
	klog.V(1).Infof("saved %s", path)
	return path, nil
}

// LoadModel rebuilds the operator set stored in a checkpoint and loads its weights.
func LoadModel(path string) (fpn.OperatorSet, *serialization.File, error) {
	f, err := serialization.Load(path, serialization.ReaderOptions{})
	if err != nil {
		return nil, nil, err
	}
	if len(f.Header.Model) == 0 {
		return nil, nil, errors.Errorf("%s has no model description", path)
	}
	var spec models.Spec
	if err := json.Unmarshal(f.Header.Model, &spec); err != nil {
		return nil, nil, errors.Wrapf(err, "decoding model description of %s", path)
	}
	ops, err := models.Build(spec)
	if err != nil {
		return nil, nil, err
	}
	if err := f.AssignTo(ops.Parameters()); err != nil {
		return nil, nil, errors.WithMessagef(err, "loading weights from %s", path)
	}
	return ops, f, nil
}

// LoadHistory reads the training history stored in a checkpoint.
func LoadHistory(path string) (*History, error) {
	f, err := serialization.Load(path, serialization.ReaderOptions{})
	if err != nil {
		return nil, err
	}
	return HistoryOf(f)
}

// HistoryOf decodes the history embedded in f.
func HistoryOf(f *serialization.File) (*History, error) {
	if len(f.Header.History) == 0 {
		return nil, errors.New("checkpoint has no training history")
	}
	h := &History{}
	if err := json.Unmarshal(f.Header.History, h); err != nil {
		return nil, errors.Wrap(err, "decoding history")
	}
	return h, nil
}
