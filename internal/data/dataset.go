// Package data loads classification datasets and iterates over them in mini-batches.
//
// A Dataset keeps its samples as one batch-major matrix, so a mini-batch is a row
// gather and feeds straight into the fixed-point solver. Loaders are provided for
// the MNIST IDX files, for CSV tables (label column plus numeric feature columns)
// and for a synthetic Gaussian-cluster problem used by tests and demos.
package data

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidDataset is returned when features and labels do not describe a valid dataset.
var ErrInvalidDataset = errors.New("data: invalid dataset")

// Dataset holds labelled samples, one per row of Features.
type Dataset struct {
	Name     string
	Features *mat.Dense // [N, D]
	Labels   []int      // [N], in [0, Classes)
	Classes  int
}

// NewDataset validates and wraps features and labels.
//
// If classes is zero it is inferred as max(labels)+1.
func NewDataset(name string, features *mat.Dense, labels []int, classes int) (*Dataset, error) {
	if features == nil {
		return nil, errors.Wrap(ErrInvalidDataset, "nil features")
	}
	n, _ := features.Dims()
	if n != len(labels) {
		return nil, errors.Wrapf(ErrInvalidDataset, "%d samples but %d labels", n, len(labels))
	}
	if classes == 0 {
		for _, l := range labels {
			classes = max(classes, l+1)
		}
	}
	for i, l := range labels {
		if l < 0 || l >= classes {
			return nil, errors.Wrapf(ErrInvalidDataset, "label %d at row %d out of range [0, %d)", l, i, classes)
		}
	}
	return &Dataset{Name: name, Features: features, Labels: labels, Classes: classes}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Dim returns the feature dimension.
func (d *Dataset) Dim() int {
	_, c := d.Features.Dims()
	return c
}

// Gather copies the rows at indices into a new batch.
func (d *Dataset) Gather(indices []int) (*mat.Dense, []int) {
	x := mat.NewDense(len(indices), d.Dim(), nil)
	labels := make([]int, len(indices))
	for i, idx := range indices {
		x.SetRow(i, d.Features.RawRowView(idx))
		labels[i] = d.Labels[idx]
	}
	return x, labels
}

// Split returns the first round(len*(1-ratio)) samples and the rest.
// The returned datasets share storage with d.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset) {
	n := d.Len()
	cut := int(float64(n)*(1-ratio) + 0.5)
	cut = min(max(cut, 0), n)
	return d.slice(0, cut, d.Name+"-train"), d.slice(cut, n, d.Name+"-test")
}

// Head returns the first n samples, or d itself when n is zero or not smaller than Len.
func (d *Dataset) Head(n int) *Dataset {
	if n <= 0 || n >= d.Len() {
		return d
	}
	return d.slice(0, n, d.Name)
}

func (d *Dataset) slice(from, to int, name string) *Dataset {
	out := &Dataset{Name: name, Labels: d.Labels[from:to], Classes: d.Classes}
	if to > from {
		out.Features = d.Features.Slice(from, to, 0, d.Dim()).(*mat.Dense)
	} else {
		out.Features = &mat.Dense{}
	}
	return out
}

// Standardize applies (x - mean) / std to every feature in place.
func (d *Dataset) Standardize(mean, std float64) {
	d.Features.Apply(func(_, _ int, v float64) float64 {
		return (v - mean) / std
	}, d.Features)
}

// Batch is one mini-batch.
type Batch struct {
	Index  int
	X      *mat.Dense
	Labels []int
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int {
	return len(b.Labels)
}

// Batcher iterates over a dataset in mini-batches, one epoch at a time.
// The last batch of an epoch may be smaller than the batch size.
type Batcher struct {
	ds      *Dataset
	size    int
	shuffle bool
	rng     *rand.Rand
	order   []int
	pos     int
	index   int
}

// NewBatcher creates a batcher. When shuffle is set the sample order is redrawn from
// rng at every Reset; a nil rng is seeded with 1.
func NewBatcher(ds *Dataset, batchSize int, shuffle bool, rng *rand.Rand) *Batcher {
	if batchSize <= 0 {
		batchSize = ds.Len()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	b := &Batcher{ds: ds, size: batchSize, shuffle: shuffle, rng: rng, order: make([]int, ds.Len())}
	for i := range b.order {
		b.order[i] = i
	}
	b.Reset()
	return b
}

// Reset starts a new epoch.
func (b *Batcher) Reset() {
	b.pos, b.index = 0, 0
	if b.shuffle {
		b.rng.Shuffle(len(b.order), func(i, j int) {
			b.order[i], b.order[j] = b.order[j], b.order[i]
		})
	}
}

// Next returns the next batch of the epoch, or false once the epoch is exhausted.
func (b *Batcher) Next() (*Batch, bool) {
	if b.pos >= len(b.order) {
		return nil, false
	}
	end := min(b.pos+b.size, len(b.order))
	x, labels := b.ds.Gather(b.order[b.pos:end])
	batch := &Batch{Index: b.index, X: x, Labels: labels}
	b.pos = end
	b.index++
	return batch, true
}

// NumBatches returns the number of batches per epoch.
func (b *Batcher) NumBatches() int {
	return (len(b.order) + b.size - 1) / b.size
}

// BatchSize returns the configured batch size.
func (b *Batcher) BatchSize() int {
	return b.size
}
