package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/tensor"
)

// Version is the library version recorded in every bundle header.
const Version = "0.3.0"

// WriteOptions fills the descriptive fields of the header.
type WriteOptions struct {
	Kind       string            // What the bundle holds, e.g. "network"
	InputShape *tensor.Shape     // Network input shape, optional
	Metadata   map[string]string // Custom metadata, optional
}

// Write encodes entries as a bundle onto w and returns the header it wrote.
//
// Entries are written in the order given; Read returns them in the same
// order, which keeps parameter lists and optimizer state aligned across a
// save/load cycle.
func Write(w io.Writer, entries []Entry, opts WriteOptions) (Header, error) {
	header := Header{
		FormatVersion: FormatVersion,
		Version:       Version,
		BundleID:      uuid.NewString(),
		Kind:          opts.Kind,
		CreatedAt:     time.Now().UTC(),
		Tensors:       make([]TensorMeta, 0, len(entries)),
		Metadata:      opts.Metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}
	if opts.InputShape != nil {
		header.InputShape = dimsOf(*opts.InputShape)
	}

	// Calculate tensor offsets
	var currentOffset int64
	for _, e := range entries {
		if len(e.Data) != e.Shape.Volume() {
			return Header{}, errors.Wrapf(tensor.ErrLengthMismatch,
				"entry %q: shape %v needs %d elements, got %d", e.Name, e.Shape, e.Shape.Volume(), len(e.Data))
		}
		size := int64(len(e.Data)) * float32Size
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   e.Name,
			DType:  DTypeFloat32,
			Shape:  dimsOf(e.Shape),
			Offset: currentOffset,
			Size:   size,
		})
		currentOffset += size
	}

	// The writer refuses to produce anything the reader would reject.
	if err := ValidateHeader(&header, currentOffset, ValidationStrict); err != nil {
		return Header{}, err
	}

	data := make([]byte, currentOffset)
	for i, e := range entries {
		buf := data[header.Tensors[i].Offset:]
		for j, v := range e.Data {
			binary.LittleEndian.PutUint32(buf[j*float32Size:], math.Float32bits(v))
		}
	}
	checksum := dataChecksum(data)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return Header{}, errors.Wrap(err, "failed to marshal header")
	}
	headerSize := int64(len(headerJSON))
	if headerSize > MaxHeaderSize {
		return Header{}, ErrHeaderTooLarge
	}

	fixedHeader := make([]byte, FixedHeaderSize)

	// 0x00-0x03: Magic bytes
	copy(fixedHeader[0:4], MagicBytes)

	// 0x04-0x07: Version
	binary.LittleEndian.PutUint32(fixedHeader[4:8], FormatVersion)

	// 0x08-0x0B: Flags
	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if header.InputShape != nil {
		flags |= FlagHasInputShape
	}
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)

	// 0x0C-0x0F: Reserved (0)

	// 0x10-0x17: Header size
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(headerSize))

	// 0x18-0x1F: Data size
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(data)))

	// 0x20-0x3F: SHA-256 checksum
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixedHeader); err != nil {
		return Header{}, errors.Wrap(err, "failed to write fixed header")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return Header{}, errors.Wrap(err, "failed to write header JSON")
	}

	padding := alignedDataOffset(headerSize) - int64(FixedHeaderSize) - headerSize
	if padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return Header{}, errors.Wrap(err, "failed to write padding")
		}
	}

	if _, err := w.Write(data); err != nil {
		return Header{}, errors.Wrap(err, "failed to write tensor data")
	}

	return header, nil
}

// WriteFile writes a bundle to path, replacing any existing file.
func WriteFile(path string, entries []Entry, opts WriteOptions) (Header, error) {
	//nolint:gosec // G304: File path comes from the caller, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return Header{}, errors.Wrap(err, "failed to create file")
	}

	header, err := Write(file, entries, opts)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return Header{}, err
	}
	if err := file.Close(); err != nil {
		return Header{}, errors.Wrap(err, "failed to close file")
	}
	return header, nil
}
