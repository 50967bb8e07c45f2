package serialization

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"
)

// Checksum is the SHA-256 digest of a bundle's data section, as stored at
// ChecksumOffset in the fixed header.
type Checksum [ChecksumSize]byte

// String returns the digest in hex.
func (c Checksum) String() string { return hex.EncodeToString(c[:]) }

func dataChecksum(data []byte) Checksum {
	return sha256.Sum256(data)
}

func checkData(stored, computed Checksum) error {
	if stored != computed {
		return errors.Wrapf(ErrChecksumMismatch, "stored %s, data hashes to %s", stored, computed)
	}
	return nil
}

// VerifyChecksum streams a bundle from r and hashes its data section
// without decoding any tensor. It returns the digest stored in the fixed
// header and the one computed from the data; the error wraps
// ErrChecksumMismatch when they differ, or reports a truncated bundle.
func VerifyChecksum(r io.Reader) (stored, computed Checksum, err error) {
	fh, err := readFixedHeader(r)
	if err != nil {
		return stored, computed, err
	}
	stored = fh.checksum

	skip := alignedDataOffset(fh.headerSize) - int64(FixedHeaderSize)
	if _, err := io.CopyN(io.Discard, r, skip); err != nil {
		return stored, computed, errors.Wrap(unexpectedEOF(err), "failed to skip header")
	}

	h := sha256.New()
	if _, err := io.CopyN(h, r, fh.dataSize); err != nil {
		return stored, computed, errors.Wrap(unexpectedEOF(err), "failed to read tensor data")
	}
	copy(computed[:], h.Sum(nil))
	return stored, computed, checkData(stored, computed)
}

// unexpectedEOF reports a short section the way io.ReadFull does.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
