// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the value type every other package works on.
//
// A Value is a fixed-shape float32 buffer with a gradient accumulator of
// the same length. Shapes have three axes (height, width, depth) and
// depth varies fastest in memory:
//
//	index(y, x, d) = (y*W + x)*D + d
//
// Example:
//
//	v := tensor.Full(tensor.MustShape(2, 3), 1) // 2x3 matrix of ones
//	v.Set(1, 2, 0, 5)
package tensor

import (
	"math/rand"

	"github.com/born-ml/tapenet/internal/tensor"
)

// Shape is the extent of a value along height, width and depth.
type Shape = tensor.Shape

// Value is a tensor value with its gradient and optimizer state.
type Value = tensor.Value

// Errors returned (wrapped) by shape and buffer checks. Match with errors.Is.
var (
	ErrInvalidShape   = tensor.ErrInvalidShape
	ErrShapeMismatch  = tensor.ErrShapeMismatch
	ErrLengthMismatch = tensor.ErrLengthMismatch
	ErrInferenceOnly  = tensor.ErrInferenceOnly
)

// ShapeOf builds a Shape from one, two or three dimensions.
//
//	ShapeOf(n)       -> (1, 1, n)
//	ShapeOf(h, w)    -> (h, w, 1)
//	ShapeOf(h, w, d) -> (h, w, d)
func ShapeOf(dims ...int) (Shape, error) {
	return tensor.ShapeOf(dims...)
}

// MustShape is like ShapeOf but panics on error.
func MustShape(dims ...int) Shape {
	return tensor.MustShape(dims...)
}

// New creates a zero-filled value.
func New(shape Shape) *Value {
	return tensor.New(shape)
}

// Random creates a value drawn from N(0, stdDev²).
func Random(shape Shape, stdDev float64, rng *rand.Rand) *Value {
	return tensor.Random(shape, stdDev, rng)
}

// FromSlice creates a value holding a copy of data.
func FromSlice(shape Shape, data []float32) (*Value, error) {
	return tensor.FromSlice(shape, data)
}

// Full creates a value with every element set to x.
func Full(shape Shape, x float32) *Value {
	return tensor.Full(shape, x)
}
