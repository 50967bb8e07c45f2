// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// A Graph records one backward closure per operation while it is
// recording. Backward runs them last-recorded-first, each adding into the
// gradients of its inputs, then empties the tape.
//
// Example:
//
//	g := autodiff.NewGraph(true)
//	y := g.MatMul(w, x)
//	y.Gradient()[0] = 1
//	g.Backward() // w and x now hold dy/dw and dy/dx
//
// A Graph is not safe for concurrent use; give each goroutine its own
// graph and its own Network clone.
package autodiff

import (
	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Graph is a tape of backward closures.
type Graph = autodiff.Graph

// NewGraph creates a graph. A non-recording graph computes forward
// values only.
func NewGraph(recording bool) *Graph {
	return autodiff.NewGraph(recording)
}

// ConvOutput derives the output shape of count fh×fw filters over in.
func ConvOutput(in tensor.Shape, fh, fw, count, stride, pad int) (tensor.Shape, error) {
	return autodiff.ConvOutput(in, fh, fw, count, stride, pad)
}

// PoolOutput derives the output shape of a size×size max-pool.
func PoolOutput(in tensor.Shape, size, stride int) (tensor.Shape, error) {
	return autodiff.PoolOutput(in, size, stride)
}
