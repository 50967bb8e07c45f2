package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// ReaderOptions configures the behavior of Read.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// fixedHeader is the decoded 64-byte prefix of a bundle.
type fixedHeader struct {
	flags      uint32
	headerSize int64
	dataSize   int64
	checksum   Checksum
}

func readFixedHeader(r io.Reader) (fixedHeader, error) {
	var fh fixedHeader
	raw := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return fh, errors.Wrap(err, "failed to read fixed header")
	}

	if string(raw[0:4]) != MagicBytes {
		return fh, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(raw[4:8]); v != FormatVersion {
		return fh, errors.Wrapf(ErrUnsupportedVersion, "got %d, expected %d", v, FormatVersion)
	}

	fh.flags = binary.LittleEndian.Uint32(raw[8:12])
	headerSize := binary.LittleEndian.Uint64(raw[16:24])
	dataSize := binary.LittleEndian.Uint64(raw[24:32])
	copy(fh.checksum[:], raw[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if headerSize > MaxHeaderSize {
		return fh, ErrHeaderTooLarge
	}
	if dataSize > MaxDataSize {
		return fh, &ValidationError{
			Type:    "out_of_bounds",
			Details: "data section larger than the maximum bundle size",
			Err:     ErrOutOfBounds,
		}
	}
	fh.headerSize = int64(headerSize)
	fh.dataSize = int64(dataSize)
	return fh, nil
}

// ReadHeader decodes only the fixed and JSON headers, leaving r positioned
// right after the JSON header. Useful for listing a bundle's contents
// without loading its data.
func ReadHeader(r io.Reader) (Header, error) {
	fh, err := readFixedHeader(r)
	if err != nil {
		return Header{}, err
	}
	return readJSONHeader(r, fh)
}

func readJSONHeader(r io.Reader, fh fixedHeader) (Header, error) {
	var header Header
	headerBytes := make([]byte, fh.headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return Header{}, errors.Wrap(err, "failed to read header JSON")
	}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return Header{}, errors.Wrap(err, "failed to parse header JSON")
	}
	return header, nil
}

// Read decodes a complete bundle from r.
func Read(r io.Reader, opts ReaderOptions) (*Bundle, error) {
	fh, err := readFixedHeader(r)
	if err != nil {
		return nil, err
	}
	header, err := readJSONHeader(r, fh)
	if err != nil {
		return nil, err
	}
	if err := ValidateHeader(&header, fh.dataSize, opts.ValidationLevel); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	padding := alignedDataOffset(fh.headerSize) - int64(FixedHeaderSize) - fh.headerSize
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, errors.Wrap(err, "failed to skip padding")
	}

	data := make([]byte, fh.dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.Wrap(err, "failed to read tensor data")
	}

	if !opts.SkipChecksumValidation {
		if err := checkData(fh.checksum, dataChecksum(data)); err != nil {
			return nil, err
		}
	}

	bundle := &Bundle{Header: header, Entries: make([]Entry, 0, len(header.Tensors))}
	for _, meta := range header.Tensors {
		entry, err := decodeEntry(meta, data)
		if err != nil {
			return nil, err
		}
		bundle.Entries = append(bundle.Entries, entry)
	}
	return bundle, nil
}

func decodeEntry(meta TensorMeta, data []byte) (Entry, error) {
	shape, err := ShapeFromDims(meta.Shape)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "tensor %q", meta.Name)
	}
	n := int64(shape.Volume())
	if meta.Offset < 0 || meta.Offset+n*float32Size > int64(len(data)) {
		return Entry{}, errors.Wrapf(ErrOutOfBounds, "tensor %q", meta.Name)
	}

	values := make([]float32, n)
	buf := data[meta.Offset:]
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*float32Size:]))
	}
	return Entry{Name: meta.Name, Shape: shape, Data: values}, nil
}

// ReadFile reads a bundle from path with strict validation.
func ReadFile(path string) (*Bundle, error) {
	//nolint:gosec // G304: File path comes from the caller, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	return Read(file, ReaderOptions{ValidationLevel: ValidationStrict})
}
