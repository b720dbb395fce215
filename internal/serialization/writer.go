package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Write writes tensors and header to w in .fpn format, storing tensor data as dtype.
//
// Tensor metadata, format version, writer version and creation time in header are
// filled in by Write.
func Write(w io.Writer, tensors []Tensor, header Header, dtype string) error {
	elem, ok := dtypeSize(dtype)
	if !ok {
		return errors.Wrapf(ErrUnsupportedDType, "%q", dtype)
	}

	header.FormatVersion = FormatVersion
	header.FixpointVersion = writerVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Calculate tensor offsets and collect tensor data.
	var data []byte
	header.Tensors = make([]TensorMeta, 0, len(tensors))
	for _, t := range tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		r, c := t.Value.Dims()
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   t.Name,
			DType:  dtype,
			Shape:  []int{r, c},
			Offset: int64(len(data)),
			Size:   int64(r * c * elem),
		})
		data = encode(data, t.Value, dtype)
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}
	checksum := ComputeChecksum(headerJSON, data)

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], headerFlags(&header, dtype))
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return errors.Wrap(err, "failed to write fixed header")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header JSON")
	}
	if pad := padding(int64(FixedHeaderSize + len(headerJSON))); pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return errors.Wrap(err, "failed to write padding")
		}
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write tensor data")
	}
	return nil
}

// Save writes a .fpn file at path, replacing any existing file.
func Save(path string, tensors []Tensor, header Header, dtype string) error {
	//nolint:gosec // G304: checkpoint paths come from the command line
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := Write(f, tensors, header, dtype); err != nil {
		_ = f.Close()
		return errors.WithMessagef(err, "writing %s", path)
	}
	return errors.Wrapf(f.Close(), "closing %s", path)
}

func headerFlags(h *Header, dtype string) uint32 {
	var flags uint32
	if dtype == DTypeFloat16 {
		flags |= FlagHalfPrecision
	}
	if len(h.History) > 0 {
		flags |= FlagHasHistory
	}
	if h.Checkpoint != nil {
		flags |= FlagHasCheckpoint
	}
	return flags
}
