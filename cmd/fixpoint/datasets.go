package main

import (
	"flag"
	"strings"

	"github.com/born-ml/fixpoint/internal/data"
	"github.com/pkg/errors"
)

// datasetFlags selects and loads the train and test splits.
type datasetFlags struct {
	kind       string
	path       string
	maxSamples int
	testRatio  float64

	// synthetic
	samples, dim, classes int
	seed                  int64

	// csv
	labelColumn string
	scale       float64
}

func addDatasetFlags(fs *flag.FlagSet) *datasetFlags {
	f := &datasetFlags{}
	fs.StringVar(&f.kind, "dataset", "synthetic", "Dataset: synthetic, mnist or csv.")
	fs.StringVar(&f.path, "data", "", "MNIST directory with the IDX files, or CSV file path.")
	fs.IntVar(&f.maxSamples, "max-samples", 0, "Limit the number of samples per split (0 = all).")
	fs.Float64Var(&f.testRatio, "test-ratio", 0.2, "Fraction held out for testing (synthetic and csv).")
	fs.IntVar(&f.samples, "samples", 1000, "Synthetic: number of samples.")
	fs.IntVar(&f.dim, "dim", 2, "Synthetic: feature dimension.")
	fs.IntVar(&f.classes, "classes", 3, "Synthetic: number of clusters.")
	fs.Int64Var(&f.seed, "data-seed", 0, "Synthetic: generator seed.")
	fs.StringVar(&f.labelColumn, "label-column", "label", "CSV: name of the integer label column.")
	fs.Float64Var(&f.scale, "scale", 1, "CSV: divide every feature by this value (255 for pixels).")
	return f
}

// load returns the train and test splits.
func (f *datasetFlags) load() (train, test *data.Dataset, err error) {
	switch strings.ToLower(f.kind) {
	case "synthetic":
		ds, err := data.GaussianClusters(data.ClustersConfig{
			Samples: f.samples,
			Dim:     f.dim,
			Classes: f.classes,
			Seed:    f.seed,
		})
		if err != nil {
			return nil, nil, err
		}
		train, test = ds.Split(f.testRatio)
		return train, test, nil

	case "mnist":
		if f.path == "" {
			return nil, nil, errors.New("--data is required for --dataset=mnist")
		}
		if train, err = data.LoadMNIST(f.path, true, f.maxSamples); err != nil {
			return nil, nil, err
		}
		if test, err = data.LoadMNIST(f.path, false, f.maxSamples); err != nil {
			return nil, nil, err
		}
		return train, test, nil

	case "csv":
		if f.path == "" {
			return nil, nil, errors.New("--data is required for --dataset=csv")
		}
		ds, err := data.LoadCSV(f.path, data.CSVOptions{
			LabelColumn: f.labelColumn,
			Scale:       f.scale,
			MaxSamples:  f.maxSamples,
		})
		if err != nil {
			return nil, nil, err
		}
		train, test = ds.Split(f.testRatio)
		return train, test, nil
	}
	return nil, nil, errors.Errorf("unknown dataset %q (want synthetic, mnist or csv)", f.kind)
}
