package serialization

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxDataSize      = 1 << 34           // 16GB - maximum data section size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default, recommended for production).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal performs basic validation checks only.
	ValidationNormal
)

// ValidateTensorOffsets checks that tensor regions lie inside the data section
// and do not overlap.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
		}
	}

	byOffset := slices.Clone(tensors)
	slices.SortFunc(byOffset, func(a, b TensorMeta) int { return cmp.Compare(a.Offset, b.Offset) })

	var prev *TensorMeta
	for i := range byOffset {
		t := &byOffset[i]
		switch {
		case t.Offset < 0 || t.Size < 0:
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		case t.Offset+t.Size > dataSize:
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
			}
		case prev != nil && prev.Offset+prev.Size > t.Offset:
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  prev.Name,
				Tensor2: t.Name,
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
					prev.Offset, prev.Offset+prev.Size, t.Offset, t.Offset+t.Size),
			}
		}
		prev = t
	}
	return nil
}

// ValidateTensorName accepts parameter names such as "fc_u.weight": ASCII
// letters, digits, '_', '-' and single dots between segments.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	for _, segment := range strings.Split(name, ".") {
		if segment == "" {
			return &ValidationError{Type: "invalid_name", Tensor: name, Details: "empty segment between dots"}
		}
		if i := strings.IndexFunc(segment, func(r rune) bool { return !isNameRune(r) }); i >= 0 {
			return &ValidationError{
				Type:    "invalid_name",
				Tensor:  name,
				Details: fmt.Sprintf("character %q not allowed", segment[i]),
			}
		}
	}
	return nil
}

func isNameRune(r rune) bool {
	return r == '_' || r == '-' ||
		('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// ValidateTensorShape checks that a tensor is a non-empty matrix whose byte size
// matches its shape and dtype.
func ValidateTensorShape(t TensorMeta) error {
	elem, ok := dtypeSize(t.DType)
	if !ok {
		return &ValidationError{Type: "invalid_dtype", Tensor: t.Name, Details: fmt.Sprintf("dtype %q", t.DType)}
	}
	if len(t.Shape) != 2 || t.Shape[0] <= 0 || t.Shape[1] <= 0 {
		return &ValidationError{Type: "invalid_shape", Tensor: t.Name, Details: fmt.Sprintf("shape %v is not a matrix", t.Shape)}
	}
	if want := int64(t.Shape[0]) * int64(t.Shape[1]) * int64(elem); want != t.Size {
		return &ValidationError{
			Type:    "size_mismatch",
			Tensor:  t.Name,
			Details: fmt.Sprintf("shape %v of %s needs %d bytes, header says %d", t.Shape, t.DType, want, t.Size),
		}
	}
	return nil
}

// ValidateHeader performs header validation. Shapes and offsets are always checked
// since tensors are decoded from them; names and overlaps only in strict mode.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}
	for _, t := range h.Tensors {
		if err := ValidateTensorShape(t); err != nil {
			return err
		}
		if t.Offset < 0 || t.Offset+t.Size > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
			}
		}
	}
	if level != ValidationStrict {
		return nil
	}
	seen := make(map[string]bool, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if seen[t.Name] {
			return &ValidationError{Type: "duplicate_name", Tensor: t.Name, Details: "tensor stored twice"}
		}
		seen[t.Name] = true
	}
	return ValidateTensorOffsets(h.Tensors, dataSize)
}
