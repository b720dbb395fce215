package serialization

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrChecksumMismatch   = errors.New("checkpoint checksum mismatch")
	ErrHeaderTooLarge     = errors.New("checkpoint header exceeds MaxHeaderSize")
	ErrInvalidMagic       = errors.New("not an .fpn checkpoint")
	ErrUnsupportedVersion = errors.New("unsupported .fpn format version")
	ErrUnsupportedDType   = errors.New("unsupported tensor dtype")
	ErrTensorNotFound     = errors.New("parameter not stored in checkpoint")
	ErrShapeMismatch      = errors.New("stored tensor shape differs from parameter")
)

// ValidationError describes a header that is inconsistent with its data section.
// Type is a stable snake_case tag such as "offset_overlap" or "size_mismatch".
type ValidationError struct {
	Type    string
	Tensor  string
	Tensor2 string // Second tensor of a pairwise check
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Tensor2 != "":
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	case e.Tensor != "":
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}
