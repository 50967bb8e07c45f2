package nn

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Network is an ordered stack of layers.
//
// Each layer's input shape is the previous layer's output shape. The
// indices of learnable and stateful layers are computed once in AddLayer,
// so Parameters and ResetState never inspect layer types.
//
// Example:
//
//	net, err := nn.NewNetwork(tensor.MustShape(2))
//	if err != nil {
//	    return err
//	}
//	_ = net.AddLayer(nn.NewFeedForward(4, activation.Tanh), rng)
//	_ = net.AddLayer(nn.NewFeedForward(1, activation.Sigmoid), rng)
//
//	g := autodiff.NewGraph(true)
//	out, err := net.Forward(x, g)
type Network struct {
	inputShape tensor.Shape
	layers     []Layer
	learnable  []int
	stateful   []int
}

// NewNetwork creates an empty network accepting inputs of the given shape.
func NewNetwork(inputShape tensor.Shape) (*Network, error) {
	if err := inputShape.Validate(); err != nil {
		return nil, err
	}
	return &Network{inputShape: inputShape}, nil
}

// InputShape returns the shape Forward accepts.
func (n *Network) InputShape() tensor.Shape { return n.inputShape }

// OutputShape returns the last layer's output shape, or the input shape
// of an empty network.
func (n *Network) OutputShape() tensor.Shape {
	if len(n.layers) == 0 {
		return n.inputShape
	}
	return n.layers[len(n.layers)-1].OutputShape()
}

// Layers returns the layers in order. The slice is a copy.
func (n *Network) Layers() []Layer {
	return append([]Layer(nil), n.layers...)
}

// Len returns the number of layers.
func (n *Network) Len() int { return len(n.layers) }

// AddLayer appends layer, feeding it the current output shape.
//
// A learnable layer is initialized from rng, which must then be non-nil.
// When a convolution is directly followed by an activatable layer, the
// convolution's filters are re-initialized for that layer's gain.
func (n *Network) AddLayer(layer Layer, rng *rand.Rand) error {
	idx := len(n.layers)
	if err := layer.SetInputShape(n.OutputShape()); err != nil {
		return errors.Wrapf(err, "layer %d (%v)", idx, layer.Kind())
	}

	learnable, isLearnable := layer.(Learnable)
	rescale := idx > 0 && rescalesConvolution(n.layers[idx-1], layer)
	if (isLearnable || rescale) && rng == nil {
		return errors.Wrapf(ErrMissingRand, "layer %d (%v)", idx, layer.Kind())
	}

	if isLearnable {
		learnable.InitWeights(rng)
		n.learnable = append(n.learnable, idx)
	}
	if _, ok := layer.(Stateful); ok {
		n.stateful = append(n.stateful, idx)
	}
	if rescale {
		act := layer.(Activatable).Activation()
		n.layers[idx-1].(*Convolutional).Rescale(activation.Gain(act), rng)
	}
	n.layers = append(n.layers, layer)
	return nil
}

// rescalesConvolution reports whether prev is a convolution feeding an
// activation-bearing layer, whose gain then sets the filter variance.
func rescalesConvolution(prev, next Layer) bool {
	if prev.Kind() != KindConvolutional {
		return false
	}
	switch next.Kind() {
	case KindFeedForward, KindActivation, KindComplexFeedForward:
		return true
	case KindConvolutional, KindPool, KindRecurrent, KindReshape:
	}
	return false
}

// Forward runs x through every layer in order.
//
// Returns an ErrShapeMismatch error when x does not have InputShape.
func (n *Network) Forward(x *tensor.Value, g *autodiff.Graph) (*tensor.Value, error) {
	if len(n.layers) == 0 {
		return nil, ErrEmptyNetwork
	}
	if x.Shape() != n.inputShape {
		return nil, errors.Wrapf(tensor.ErrShapeMismatch, "network input is %v, got %v", n.inputShape, x.Shape())
	}
	out := x
	for i, layer := range n.layers {
		if out.Shape() != layer.InputShape() {
			return nil, errors.Wrapf(tensor.ErrShapeMismatch,
				"layer %d (%v) expects %v, got %v", i, layer.Kind(), layer.InputShape(), out.Shape())
		}
		out = layer.Forward(out, g)
	}
	return out, nil
}

// ResetState clears the context of every stateful layer.
func (n *Network) ResetState() {
	for _, i := range n.stateful {
		n.layers[i].(Stateful).ResetState()
	}
}

// Parameters returns every trainable value, in layer order.
func (n *Network) Parameters() []*tensor.Value {
	var out []*tensor.Value
	for _, i := range n.learnable {
		out = append(out, n.layers[i].(Learnable).Parameters()...)
	}
	return out
}

// NumParameters returns the number of trainable scalars.
func (n *Network) NumParameters() int {
	total := 0
	for _, p := range n.Parameters() {
		total += p.Len()
	}
	return total
}

// NamedParameters returns every trainable value named "<layer>.<name>",
// in layer order.
func (n *Network) NamedParameters() []NamedParameter {
	var out []NamedParameter
	for _, i := range n.learnable {
		for _, p := range n.layers[i].(Learnable).NamedParameters() {
			out = append(out, NamedParameter{Name: fmt.Sprintf("%d.%s", i, p.Name), Value: p.Value})
		}
	}
	return out
}

// ReleaseTrainingState drops gradient and moment buffers of every
// parameter. The network can still run non-recording forward passes;
// training it afterwards panics with ErrInferenceOnly.
func (n *Network) ReleaseTrainingState() {
	for _, p := range n.Parameters() {
		p.ReleaseTrainingState()
	}
}

// Clone returns a deep copy of the network, including recurrent context.
// Use one clone per goroutine.
func (n *Network) Clone() *Network {
	c := &Network{
		inputShape: n.inputShape,
		layers:     make([]Layer, len(n.layers)),
		learnable:  append([]int(nil), n.learnable...),
		stateful:   append([]int(nil), n.stateful...),
	}
	for i, l := range n.layers {
		c.layers[i] = l.Clone()
	}
	return c
}

// String returns a multi-line summary of the network.
func (n *Network) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Network(in=%v, out=%v)\n", n.inputShape, n.OutputShape())
	for i, l := range n.layers {
		fmt.Fprintf(&b, "  (%d): %v\n", i, l)
	}
	return b.String()
}
