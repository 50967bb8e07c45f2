// Package nn implements the layers and networks built on the autodiff graph.
//
// This package provides:
//   - Layer interface: shape contract and Forward over a Graph
//   - Capability interfaces: Learnable, Stateful, Activatable
//   - Layers: FeedForward, Convolutional, Pool, Activation, Recurrent,
//     Reshape, ComplexFeedForward
//   - Network: ordered layer stack with cached capability indices
//   - Losses: MeanSquared, SoftmaxCrossEntropy
//
// Layers receive their input shape when added to a Network. Parameters
// are allocated at that point and initialized from the random source
// passed to AddLayer.
package nn

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Kind identifies a layer variant. The set is closed.
type Kind int

// Layer kinds.
const (
	KindFeedForward Kind = iota
	KindConvolutional
	KindPool
	KindActivation
	KindRecurrent
	KindReshape
	KindComplexFeedForward
)

var kindNames = [...]string{
	KindFeedForward:        "feedforward",
	KindConvolutional:      "convolutional",
	KindPool:               "pool",
	KindActivation:         "activation",
	KindRecurrent:          "recurrent",
	KindReshape:            "reshape",
	KindComplexFeedForward: "complex",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind returns the Kind named s, matching String (case-insensitive).
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(s)
	for k, n := range kindNames {
		if n == s {
			return Kind(k), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownKind, "%q", s)
}

// Layer is the contract shared by every layer.
//
// A layer maps one value to another. Its output shape is known once
// SetInputShape has succeeded, which Network.AddLayer does on the
// layer's behalf.
type Layer interface {
	// Kind reports the layer variant.
	Kind() Kind

	// InputShape returns the shape Forward expects.
	InputShape() tensor.Shape

	// OutputShape returns the shape Forward produces.
	OutputShape() tensor.Shape

	// SetInputShape fixes the input shape, derives the output shape and
	// allocates parameters. Returns an ErrInvalidShape error when the
	// layer cannot be built on that input.
	SetInputShape(in tensor.Shape) error

	// Forward computes the output. The input must have InputShape.
	Forward(x *tensor.Value, g *autodiff.Graph) *tensor.Value

	// Clone returns a deep copy including parameters and any context.
	Clone() Layer

	String() string
}

// NamedParameter is a trainable value with a layer-local name.
type NamedParameter struct {
	Name  string
	Value *tensor.Value
}

// Learnable is implemented by layers that own trainable parameters.
type Learnable interface {
	Layer

	// Parameters returns the trainable values in a stable order.
	Parameters() []*tensor.Value

	// NamedParameters returns Parameters with layer-local names.
	NamedParameters() []NamedParameter

	// InitWeights draws fresh weights from rng.
	InitWeights(rng *rand.Rand)
}

// Stateful is implemented by layers carrying context across Forward calls.
type Stateful interface {
	Layer

	// ResetState clears the context so the next Forward starts a new sequence.
	ResetState()
}

// Activatable is implemented by layers that end in a nonlinearity.
type Activatable interface {
	Layer

	// Activation returns the layer's output nonlinearity.
	Activation() activation.Kind
}

func parameterValues(named []NamedParameter) []*tensor.Value {
	out := make([]*tensor.Value, len(named))
	for i, p := range named {
		out[i] = p.Value
	}
	return out
}
