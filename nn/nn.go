// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/nn"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Layer is the contract shared by every layer.
type Layer = nn.Layer

// Learnable layers own trainable parameters.
type Learnable = nn.Learnable

// Stateful layers carry state across Forward calls.
type Stateful = nn.Stateful

// Activatable layers apply an activation to their output.
type Activatable = nn.Activatable

// NamedParameter pairs a parameter with its stable name.
type NamedParameter = nn.NamedParameter

// Kind identifies a layer variant.
type Kind = nn.Kind

// Layer kinds.
const (
	KindFeedForward        = nn.KindFeedForward
	KindConvolutional      = nn.KindConvolutional
	KindPool               = nn.KindPool
	KindActivation         = nn.KindActivation
	KindRecurrent          = nn.KindRecurrent
	KindReshape            = nn.KindReshape
	KindComplexFeedForward = nn.KindComplexFeedForward
)

// ActivationKind identifies an activation function.
type ActivationKind = activation.Kind

// Activation functions.
const (
	Linear    = activation.Linear
	Sigmoid   = activation.Sigmoid
	Tanh      = activation.Tanh
	ReLU      = activation.ReLU
	LeakyReLU = activation.LeakyReLU
	Softplus  = activation.Softplus
	Softmax   = activation.Softmax
)

// Errors.
var (
	ErrEmptyNetwork        = nn.ErrEmptyNetwork
	ErrFrozen              = nn.ErrFrozen
	ErrMissingRand         = nn.ErrMissingRand
	ErrMissingParameter    = nn.ErrMissingParameter
	ErrUnexpectedParameter = nn.ErrUnexpectedParameter
	ErrUnknownKind         = nn.ErrUnknownKind
)

// Network is an ordered stack of layers.
type Network = nn.Network

// NewNetwork creates an empty network taking inputs of the given shape.
func NewNetwork(inputShape tensor.Shape) (*Network, error) {
	return nn.NewNetwork(inputShape)
}

// FeedForward is a fully connected layer: act(W·x + b).
type FeedForward = nn.FeedForward

// NewFeedForward creates a fully connected layer of units outputs.
func NewFeedForward(units int, act ActivationKind) *FeedForward {
	return nn.NewFeedForward(units, act)
}

// Convolutional slides count filters over its input.
type Convolutional = nn.Convolutional

// NewConvolutional creates count filters of fh×fw with stride 1 and no padding.
// Use SetStride and SetPadding before the first forward pass to change them.
func NewConvolutional(count, fh, fw int) *Convolutional {
	return nn.NewConvolutional(count, fh, fw)
}

// Pool is a max-pool layer.
type Pool = nn.Pool

// NewPool creates a size×size max-pool with the given stride.
func NewPool(size, stride int) *Pool {
	return nn.NewPool(size, stride)
}

// Activation applies an activation function on its own.
type Activation = nn.Activation

// NewActivation creates a standalone activation layer.
func NewActivation(act ActivationKind) *Activation {
	return nn.NewActivation(act)
}

// Recurrent is an LSTM-style layer with forget, input, output and candidate gates.
type Recurrent = nn.Recurrent

// NewRecurrent creates a recurrent layer of units outputs.
func NewRecurrent(units int) *Recurrent {
	return nn.NewRecurrent(units)
}

// Reshape reinterprets its input under a new shape of equal volume.
type Reshape = nn.Reshape

// NewReshape creates a reshape to out; the backward pass scales gradients by gradScale.
func NewReshape(out tensor.Shape, gradScale float32) *Reshape {
	return nn.NewReshape(out, gradScale)
}

// ComplexFeedForward treats its input depth as real and imaginary halves.
type ComplexFeedForward = nn.ComplexFeedForward

// NewComplexFeedForward creates a complex layer of units outputs per half.
func NewComplexFeedForward(units int, act ActivationKind) *ComplexFeedForward {
	return nn.NewComplexFeedForward(units, act)
}

// MeanSquared computes 0.5·Σ(out − target)² and seeds out's gradient.
func MeanSquared(out, target *tensor.Value) (float32, error) {
	return nn.MeanSquared(out, target)
}

// SoftmaxCrossEntropy computes −log p[class] over softmax output and seeds out's gradient.
func SoftmaxCrossEntropy(out *tensor.Value, class int) (float32, error) {
	return nn.SoftmaxCrossEntropy(out, class)
}
