package serialization

import (
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "TNET"
	FormatVersion   = 1    // v1: fixed header with SHA-256 checksum
	HeaderAlignment = 64   // Align tensor data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// DTypeFloat32 is the only element type a bundle stores.
const DTypeFloat32 = "float32"

const float32Size = 4

// Flags for the bundle format.
const (
	FlagHasMetadata   uint32 = 1 << 0 // bit 0: custom metadata included
	FlagHasInputShape uint32 = 1 << 1 // bit 1: header records a network input shape
)

// Header represents the JSON header of a bundle.
type Header struct {
	FormatVersion int               `json:"format_version"`        // Version of the bundle format
	Version       string            `json:"version"`               // Library version that wrote the bundle
	BundleID      string            `json:"bundle_id"`             // Random UUID identifying this bundle
	Kind          string            `json:"kind"`                  // What the bundle holds (e.g. "network")
	CreatedAt     time.Time         `json:"created_at"`            // When the bundle was written
	InputShape    []int             `json:"input_shape,omitempty"` // Network input shape, if any
	Tensors       []TensorMeta      `json:"tensors"`               // Tensor metadata, in write order
	Metadata      map[string]string `json:"metadata"`              // Custom metadata
}

// TensorMeta describes one tensor in the data section.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g. "0.weight")
	DType  string `json:"dtype"`  // Always "float32"
	Shape  []int  `json:"shape"`  // Height, width, depth
	Offset int64  `json:"offset"` // Bytes from the start of the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// Entry is one named tensor inside a bundle.
type Entry struct {
	Name  string
	Shape tensor.Shape
	Data  []float32
}

// Bundle is a decoded bundle: its header and every entry in write order.
type Bundle struct {
	Header  Header
	Entries []Entry
}

// Lookup returns the entry with the given name.
func (b *Bundle) Lookup(name string) (Entry, bool) {
	for _, e := range b.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// ShapeFromDims converts a header shape back into a tensor.Shape.
func ShapeFromDims(dims []int) (tensor.Shape, error) {
	if len(dims) != 3 {
		return tensor.Shape{}, errors.Wrapf(tensor.ErrInvalidShape, "bundle shapes have 3 axes, got %v", dims)
	}
	return tensor.ShapeOf(dims...)
}

func dimsOf(s tensor.Shape) []int {
	return []int{s.H, s.W, s.D}
}

func alignedDataOffset(headerSize int64) int64 {
	currentPos := int64(FixedHeaderSize) + headerSize
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	return currentPos + padding
}
