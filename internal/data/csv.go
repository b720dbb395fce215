package data

import (
	"io"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CSVOptions configures LoadCSV.
type CSVOptions struct {
	// LabelColumn names the integer class column (default: "label").
	LabelColumn string

	// Classes is the number of classes; zero infers max(label)+1.
	Classes int

	// Scale divides every feature (default: 1). Use 255 for pixel tables.
	Scale float64

	// MaxSamples limits the number of rows (0 = all).
	MaxSamples int
}

// LoadCSV reads a CSV table with a header row, one integer label column and numeric
// feature columns (the Kaggle MNIST layout is label,pixel0,...,pixel783).
func LoadCSV(path string, opts CSVOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	ds, err := ReadCSV(f, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %s", path)
	}
	return ds, nil
}

// ReadCSV is LoadCSV over an io.Reader.
func ReadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	if opts.LabelColumn == "" {
		opts.LabelColumn = "label"
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}

	df := dataframe.ReadCSV(r, dataframe.HasHeader(true), dataframe.DetectTypes(false), dataframe.DefaultType(series.Float),
		dataframe.WithTypes(map[string]series.Type{opts.LabelColumn: series.Int}))
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "parsing CSV")
	}
	if opts.MaxSamples > 0 && df.Nrow() > opts.MaxSamples {
		idx := make([]int, opts.MaxSamples)
		for i := range idx {
			idx[i] = i
		}
		df = df.Subset(idx)
	}

	var features []string
	for _, name := range df.Names() {
		if name != opts.LabelColumn {
			features = append(features, name)
		}
	}
	if len(features) == 0 {
		return nil, errors.Wrapf(ErrInvalidDataset, "no feature columns besides %q", opts.LabelColumn)
	}
	labelCol := df.Col(opts.LabelColumn)
	if labelCol.Err != nil {
		return nil, errors.Wrapf(ErrInvalidDataset, "missing label column %q", opts.LabelColumn)
	}
	labels, err := labelCol.Int()
	if err != nil {
		return nil, errors.Wrapf(err, "label column %q", opts.LabelColumn)
	}

	n := df.Nrow()
	x := mat.NewDense(n, len(features), nil)
	for j, name := range features {
		col := df.Col(name)
		if col.HasNaN() {
			return nil, errors.Wrapf(ErrInvalidDataset, "column %q has missing or non-numeric values", name)
		}
		for i, v := range col.Float() {
			x.Set(i, j, v/opts.Scale)
		}
	}
	return NewDataset("csv", x, labels, opts.Classes)
}
