// Package tensor implements the value type shared by the graph, the layers
// and the optimizers.
//
// A Value is a fixed-shape float32 buffer paired with a gradient
// accumulator of the same length and two lazily allocated moment buffers
// used by moment-based optimizers.
//
// The gradient buffer is accumulate-only between a graph restart and an
// optimizer update: backward closures add into it, never overwrite, since
// several consumers of the same value may each contribute a partial
// derivative.
package tensor

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Value is a tensor value with its gradient and optimizer state.
type Value struct {
	shape    Shape
	data     []float32
	gradient []float32

	// Optimizer running statistics, sized on first use and tagged with
	// the token of the optimizer that owns them.
	moment1     []float32
	moment2     []float32
	momentOwner uint64

	inferenceOnly bool
}

// New creates a zero-filled value.
//
// Panics if the shape is invalid; use ShapeOf to validate untrusted shapes.
func New(shape Shape) *Value {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	n := shape.Volume()
	return &Value{
		shape:    shape,
		data:     make([]float32, n),
		gradient: make([]float32, n),
	}
}

// Random creates a value with data drawn i.i.d. from N(0, stdDev²).
// The gradient is zero.
func Random(shape Shape, stdDev float64, rng *rand.Rand) *Value {
	v := New(shape)
	for i := range v.data {
		v.data[i] = float32(rng.NormFloat64() * stdDev)
	}
	return v
}

// FromSlice creates a value holding a copy of data.
//
// Returns ErrLengthMismatch if len(data) != shape.Volume().
func FromSlice(shape Shape, data []float32) (*Value, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(data) != shape.Volume() {
		return nil, errors.Wrapf(ErrLengthMismatch, "shape %v needs %d elements, got %d", shape, shape.Volume(), len(data))
	}
	v := New(shape)
	copy(v.data, data)
	return v, nil
}

// Full creates a value with every element set to x.
func Full(shape Shape, x float32) *Value {
	v := New(shape)
	for i := range v.data {
		v.data[i] = x
	}
	return v
}

// Shape returns the shape of the value.
func (v *Value) Shape() Shape {
	return v.shape
}

// Len returns the number of elements.
func (v *Value) Len() int {
	return len(v.data)
}

// Data returns the underlying buffer. Writes go straight to the value.
func (v *Value) Data() []float32 {
	return v.data
}

// Gradient returns the gradient accumulator.
//
// Returns nil once the training state has been released.
func (v *Value) Gradient() []float32 {
	return v.gradient
}

// At returns the element at (y, x, d).
func (v *Value) At(y, x, d int) float32 {
	return v.data[v.shape.Index(y, x, d)]
}

// Set writes the element at (y, x, d).
func (v *Value) Set(y, x, d int, value float32) {
	v.data[v.shape.Index(y, x, d)] = value
}

// AccumulateGradient adds delta to gradient[index].
//
// The index must be in bounds. Panics with ErrInferenceOnly after
// ReleaseTrainingState.
func (v *Value) AccumulateGradient(index int, delta float32) {
	v.mustTrain()
	v.gradient[index] += delta
}

// SetGradient copies seed into the gradient buffer. Used by loss
// functions to seed the output of a forward pass before Backward.
func (v *Value) SetGradient(seed []float32) error {
	v.mustTrain()
	if len(seed) != len(v.gradient) {
		return errors.Wrapf(ErrLengthMismatch, "gradient seed for %v needs %d elements, got %d", v.shape, len(v.gradient), len(seed))
	}
	copy(v.gradient, seed)
	return nil
}

// ClearGradient zeroes the gradient accumulator. No-op on inference-only values.
func (v *Value) ClearGradient() {
	for i := range v.gradient {
		v.gradient[i] = 0
	}
}

// Moments returns both moment buffers for the given owner token, sizing
// them to the value's volume on first use. A token different from the one
// that last touched the buffers zeroes them first, so a reset or a fresh
// optimizer never reads stale statistics.
func (v *Value) Moments(owner uint64) (m1, m2 []float32) {
	v.mustTrain()
	n := len(v.data)
	if v.moment1 == nil {
		v.moment1 = make([]float32, n)
		v.moment2 = make([]float32, n)
	} else if v.momentOwner != owner {
		clear(v.moment1)
		clear(v.moment2)
	}
	v.momentOwner = owner
	return v.moment1, v.moment2
}

// ReleaseTrainingState drops the gradient and moment buffers. The value
// keeps working as a read-only input to non-recording forward passes;
// any further training use panics with ErrInferenceOnly.
func (v *Value) ReleaseTrainingState() {
	v.gradient = nil
	v.moment1 = nil
	v.moment2 = nil
	v.momentOwner = 0
	v.inferenceOnly = true
}

// InferenceOnly reports whether ReleaseTrainingState was called.
func (v *Value) InferenceOnly() bool {
	return v.inferenceOnly
}

// Import overwrites the data buffer with a copy of data.
//
// Returns ErrLengthMismatch if the length differs from the volume.
func (v *Value) Import(data []float32) error {
	if len(data) != len(v.data) {
		return errors.Wrapf(ErrLengthMismatch, "import into %v needs %d elements, got %d", v.shape, len(v.data), len(data))
	}
	copy(v.data, data)
	return nil
}

// Export returns a copy of the data buffer.
func (v *Value) Export() []float32 {
	out := make([]float32, len(v.data))
	copy(out, v.data)
	return out
}

// Clone returns a deep copy of data and gradient. Moments are not copied.
func (v *Value) Clone() *Value {
	c := &Value{
		shape:         v.shape,
		data:          v.Export(),
		inferenceOnly: v.inferenceOnly,
	}
	if v.gradient != nil {
		c.gradient = make([]float32, len(v.gradient))
		copy(c.gradient, v.gradient)
	}
	return c
}

// Fill sets every element of the data buffer to x.
func (v *Value) Fill(x float32) {
	for i := range v.data {
		v.data[i] = x
	}
}

func (v *Value) mustTrain() {
	if v.inferenceOnly {
		panic(errors.Wrapf(ErrInferenceOnly, "value %v", v.shape))
	}
}
