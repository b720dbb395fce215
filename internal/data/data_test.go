package data_test

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/born-ml/fixpoint/internal/data"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sequentialDataset(t *testing.T, n int) *data.Dataset {
	t.Helper()
	x := mat.NewDense(n, 2, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		x.Set(i, 0, float64(i))
		x.Set(i, 1, -float64(i))
		labels[i] = i % 3
	}
	return must.M1(data.NewDataset("seq", x, labels, 0))
}

func TestNewDataset_Validation(t *testing.T) {
	ds := sequentialDataset(t, 7)
	assert.Equal(t, 3, ds.Classes)
	assert.Equal(t, 7, ds.Len())
	assert.Equal(t, 2, ds.Dim())

	_, err := data.NewDataset("bad", mat.NewDense(2, 1, nil), []int{0}, 0)
	assert.True(t, errors.Is(err, data.ErrInvalidDataset))

	_, err = data.NewDataset("bad", mat.NewDense(2, 1, nil), []int{0, 5}, 3)
	assert.True(t, errors.Is(err, data.ErrInvalidDataset))
	assert.Contains(t, err.Error(), "label 5 at row 1")
}

func TestBatcher_CoversEpoch(t *testing.T) {
	ds := sequentialDataset(t, 10)
	b := data.NewBatcher(ds, 4, true, rand.New(rand.NewSource(3)))
	assert.Equal(t, 3, b.NumBatches())

	for epoch := 0; epoch < 2; epoch++ {
		seen := make(map[int]bool)
		var sizes []int
		for batch, ok := b.Next(); ok; batch, ok = b.Next() {
			sizes = append(sizes, batch.Size())
			for i := 0; i < batch.Size(); i++ {
				idx := int(batch.X.At(i, 0))
				assert.Equal(t, -float64(idx), batch.X.At(i, 1))
				assert.Equal(t, idx%3, batch.Labels[i])
				seen[idx] = true
			}
		}
		assert.Equal(t, []int{4, 4, 2}, sizes)
		assert.Len(t, seen, 10)
		b.Reset()
	}
}

func TestBatcher_Unshuffled(t *testing.T) {
	ds := sequentialDataset(t, 5)
	b := data.NewBatcher(ds, 2, false, nil)
	batch, ok := b.Next()
	require.True(t, ok)
	assert.Equal(t, 0, batch.Index)
	assert.Equal(t, []float64{0, 1}, mat.Col(nil, 0, batch.X))

	full := data.NewBatcher(ds, 0, false, nil)
	assert.Equal(t, 1, full.NumBatches())
	assert.Equal(t, 5, full.BatchSize())
}

func TestDataset_SplitHeadStandardize(t *testing.T) {
	ds := sequentialDataset(t, 10)
	train, test := ds.Split(0.2)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.Equal(t, 8.0, test.Features.At(0, 0))

	assert.Equal(t, 3, ds.Head(3).Len())
	assert.Same(t, ds, ds.Head(0))

	all, none := ds.Split(0)
	assert.Equal(t, 10, all.Len())
	assert.Equal(t, 0, none.Len())

	ds.Standardize(1, 2)
	assert.Equal(t, -0.5, ds.Features.At(0, 0))
	assert.Equal(t, 1.0, ds.Features.At(3, 0))
}

func writeIDX(t *testing.T, dir, name string, header []uint32, payload []byte) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, header))
	buf.Write(payload)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644))
}

func TestLoadMNIST(t *testing.T) {
	dir := t.TempDir()
	writeIDX(t, dir, "t10k-images-idx3-ubyte", []uint32{2051, 3, 2, 2},
		[]byte{0, 255, 0, 0, 255, 255, 255, 255, 0, 0, 0, 0})
	writeIDX(t, dir, "t10k-labels-idx1-ubyte", []uint32{2049, 3}, []byte{7, 1, 0})

	ds, err := data.LoadMNIST(dir, false, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 4, ds.Dim())
	assert.Equal(t, 10, ds.Classes)
	assert.Equal(t, []int{7, 1, 0}, ds.Labels)
	assert.InDelta(t, -data.MNISTMean/data.MNISTStd, ds.Features.At(0, 0), 1e-12)
	assert.InDelta(t, (1-data.MNISTMean)/data.MNISTStd, ds.Features.At(0, 1), 1e-12)

	limited, err := data.LoadMNIST(dir, false, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, limited.Len())

	_, err = data.LoadMNIST(dir, true, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train-images-idx3-ubyte")
}

func TestReadIDX_Errors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []uint32{2049, 1, 1, 1}))
	_, err := data.ReadIDXImages(&buf, 0)
	assert.True(t, errors.Is(err, data.ErrInvalidIDX))

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []uint32{2049, 4}))
	buf.Write([]byte{1, 2})
	_, err = data.ReadIDXLabels(&buf, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read 4 labels")
}

func TestReadCSV(t *testing.T) {
	csv := "label,p0,p1\n2,0,255\n0,51,0\n1,255,255\n"
	ds, err := data.ReadCSV(strings.NewReader(csv), data.CSVOptions{Scale: 255})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 2, ds.Dim())
	assert.Equal(t, 3, ds.Classes)
	assert.Equal(t, []int{2, 0, 1}, ds.Labels)
	assert.InDelta(t, 0.2, ds.Features.At(1, 0), 1e-12)
	assert.InDelta(t, 1.0, ds.Features.At(2, 1), 1e-12)

	limited, err := data.ReadCSV(strings.NewReader(csv), data.CSVOptions{MaxSamples: 2, Classes: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, limited.Len())
	assert.Equal(t, 10, limited.Classes)

	_, err = data.ReadCSV(strings.NewReader("y,a\n1,2\n"), data.CSVOptions{})
	assert.True(t, errors.Is(err, data.ErrInvalidDataset))

	_, err = data.ReadCSV(strings.NewReader("label\n1\n"), data.CSVOptions{})
	assert.True(t, errors.Is(err, data.ErrInvalidDataset))
}

func TestGaussianClusters(t *testing.T) {
	ds, err := data.GaussianClusters(data.ClustersConfig{Samples: 300, Dim: 4, Classes: 3, Spread: 0.1, Seed: 2})
	require.NoError(t, err)
	assert.Equal(t, 300, ds.Len())
	assert.Equal(t, 4, ds.Dim())
	assert.Equal(t, 3, ds.Classes)

	// Samples of a class stay close to the class mean.
	for c := 0; c < 3; c++ {
		mean := mat.NewVecDense(4, nil)
		for i := c; i < 300; i += 3 {
			mean.AddVec(mean, ds.Features.RowView(i))
		}
		mean.ScaleVec(1.0/100, mean)
		for i := c; i < 300; i += 3 {
			var d mat.VecDense
			d.SubVec(ds.Features.RowView(i), mean)
			assert.Less(t, mat.Norm(&d, 2), 1.0)
		}
	}

	again := must.M1(data.GaussianClusters(data.ClustersConfig{Samples: 300, Dim: 4, Classes: 3, Spread: 0.1, Seed: 2}))
	assert.True(t, mat.Equal(ds.Features, again.Features))

	_, err = data.GaussianClusters(data.ClustersConfig{Samples: -1})
	assert.True(t, errors.Is(err, data.ErrInvalidDataset))
}
