package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/born-ml/fixpoint/internal/nn"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ReaderOptions configures Read and Load.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level (default: strict)
}

// File is a decoded .fpn file.
type File struct {
	Header  Header
	Flags   uint32
	tensors map[string]*mat.Dense
}

// Load reads the .fpn file at path.
func Load(path string, opts ReaderOptions) (*File, error) {
	//nolint:gosec // G304: checkpoint paths come from the command line
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer f.Close()
	file, err := Read(f, opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %s", path)
	}
	return file, nil
}

// Read decodes a .fpn stream.
func Read(r io.Reader, opts ReaderOptions) (*File, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, errors.Wrap(err, "failed to read fixed header")
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, errors.Wrapf(ErrInvalidMagic, "got %q, expected %q", fixed[0:4], MagicBytes)
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "got %d, expected %d", version, FormatVersion)
	}
	file := &File{Flags: binary.LittleEndian.Uint32(fixed[8:12])}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	var checksum Checksum
	copy(checksum[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	if dataSize > MaxDataSize {
		return nil, &ValidationError{Type: "data_too_large", Details: "data section exceeds maximum size"}
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrap(err, "failed to read header JSON")
	}
	if err := json.Unmarshal(headerBytes, &file.Header); err != nil {
		return nil, errors.Wrap(err, "failed to parse header JSON")
	}
	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	if pad := padding(int64(FixedHeaderSize) + int64(headerSize)); pad > 0 {
		if _, err := io.CopyN(io.Discard, r, pad); err != nil {
			return nil, errors.Wrap(err, "failed to read padding")
		}
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "failed to read tensor data")
	}
	if !opts.SkipChecksumValidation {
		if err := checksum.Verify(headerBytes, data); err != nil {
			return nil, err
		}
	}
	//nolint:gosec // G115: dataSize is bounded by MaxDataSize
	if err := ValidateHeader(&file.Header, int64(dataSize), opts.ValidationLevel); err != nil {
		return nil, errors.WithMessage(err, "validation failed")
	}

	file.tensors = make(map[string]*mat.Dense, len(file.Header.Tensors))
	for _, meta := range file.Header.Tensors {
		if _, ok := dtypeSize(meta.DType); !ok {
			return nil, errors.Wrapf(ErrUnsupportedDType, "tensor %q: %q", meta.Name, meta.DType)
		}
		file.tensors[meta.Name] = decode(data[meta.Offset:meta.Offset+meta.Size], meta.Shape[0], meta.Shape[1], meta.DType)
	}
	return file, nil
}

// TensorNames returns the names of all tensors in file order.
func (f *File) TensorNames() []string {
	names := make([]string, len(f.Header.Tensors))
	for i, meta := range f.Header.Tensors {
		names[i] = meta.Name
	}
	return names
}

// Tensor returns the decoded tensor called name.
func (f *File) Tensor(name string) (*mat.Dense, error) {
	t, ok := f.tensors[name]
	if !ok {
		return nil, errors.Wrapf(ErrTensorNotFound, "%q", name)
	}
	return t, nil
}

// AssignTo copies the stored tensors into params by name. Parameter values are
// overwritten in place, so matrices held by optimizers and registries stay valid.
func (f *File) AssignTo(params []*nn.Parameter) error {
	for _, p := range params {
		t, err := f.Tensor(p.Name())
		if err != nil {
			return err
		}
		r, c := p.Value().Dims()
		tr, tc := t.Dims()
		if r != tr || c != tc {
			return errors.Wrapf(ErrShapeMismatch, "%s: parameter is %dx%d, stored %dx%d", p.Name(), r, c, tr, tc)
		}
		p.Value().Copy(t)
	}
	return nil
}
