package serialization

import (
	"crypto/sha256"

	"github.com/pkg/errors"
)

// Checksum is the SHA-256 digest stored at ChecksumOffset. It covers the JSON
// header followed by the tensor data.
type Checksum [ChecksumSize]byte

// ComputeChecksum digests a header and its data section.
func ComputeChecksum(headerJSON, data []byte) Checksum {
	h := sha256.New()
	h.Write(headerJSON)
	h.Write(data)
	var c Checksum
	copy(c[:], h.Sum(nil))
	return c
}

// Verify returns ErrChecksumMismatch unless c is the digest of headerJSON and data.
func (c Checksum) Verify(headerJSON, data []byte) error {
	if got := ComputeChecksum(headerJSON, data); got != c {
		return errors.Wrapf(ErrChecksumMismatch, "stored %x, computed %x", c[:6], got[:6])
	}
	return nil
}
