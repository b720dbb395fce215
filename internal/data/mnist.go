package data

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// IDX magic numbers.
const (
	idxImagesMagic = 2051
	idxLabelsMagic = 2049
)

// MNIST normalization constants (mean and standard deviation of the training pixels
// after scaling to [0, 1]).
const (
	MNISTMean = 0.1307
	MNISTStd  = 0.3081
)

// MNISTClasses is the number of digit classes.
const MNISTClasses = 10

// ErrInvalidIDX is returned for malformed IDX files.
var ErrInvalidIDX = errors.New("data: invalid IDX file")

// LoadMNIST loads MNIST from the official IDX files in dir.
//
// Expected files in dir:
//   - train-images-idx3-ubyte, train-labels-idx1-ubyte (train == true)
//   - t10k-images-idx3-ubyte, t10k-labels-idx1-ubyte (train == false)
//
// Pixels are scaled to [0, 1] and standardized with MNISTMean and MNISTStd.
// maxSamples limits the number of samples read (0 = all).
func LoadMNIST(dir string, train bool, maxSamples int) (*Dataset, error) {
	prefix, name := "t10k", "mnist-test"
	if train {
		prefix, name = "train", "mnist-train"
	}
	images, err := openAndRead(filepath.Join(dir, prefix+"-images-idx3-ubyte"), func(r io.Reader) (*mat.Dense, error) {
		return ReadIDXImages(r, maxSamples)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load images")
	}
	labels, err := openAndRead(filepath.Join(dir, prefix+"-labels-idx1-ubyte"), func(r io.Reader) ([]int, error) {
		return ReadIDXLabels(r, maxSamples)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load labels")
	}
	ds, err := NewDataset(name, images, labels, MNISTClasses)
	if err != nil {
		return nil, err
	}
	ds.Standardize(MNISTMean, MNISTStd)
	return ds, nil
}

func openAndRead[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	v, err := read(f)
	if err != nil {
		return zero, errors.WithMessagef(err, "reading %s", path)
	}
	return v, nil
}

// ReadIDXImages reads an IDX image file into a [N, rows*cols] matrix with pixels
// scaled to [0, 1].
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
func ReadIDXImages(r io.Reader, maxSamples int) (*mat.Dense, error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if header[0] != idxImagesMagic {
		return nil, errors.Wrapf(ErrInvalidIDX, "magic number: got %d, want %d", header[0], idxImagesMagic)
	}
	n, size := int(header[1]), int(header[2]*header[3])
	if size == 0 {
		return nil, errors.Wrapf(ErrInvalidIDX, "empty %dx%d images", header[2], header[3])
	}
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}
	if n == 0 {
		return nil, errors.Wrap(ErrInvalidIDX, "no images")
	}

	pixels := make([]byte, n*size)
	if _, err := io.ReadFull(r, pixels); err != nil {
		return nil, errors.Wrapf(err, "failed to read %d images", n)
	}
	data := make([]float64, len(pixels))
	for i, p := range pixels {
		data[i] = float64(p) / 255
	}
	return mat.NewDense(n, size, data), nil
}

// ReadIDXLabels reads an IDX label file.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadIDXLabels(r io.Reader, maxSamples int) ([]int, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "failed to read header")
	}
	if header[0] != idxLabelsMagic {
		return nil, errors.Wrapf(ErrInvalidIDX, "magic number: got %d, want %d", header[0], idxLabelsMagic)
	}
	n := int(header[1])
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrapf(err, "failed to read %d labels", n)
	}
	labels := make([]int, n)
	for i, l := range raw {
		labels[i] = int(l)
	}
	return labels, nil
}
