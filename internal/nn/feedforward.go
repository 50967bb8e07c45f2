package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// FeedForward implements a fully connected layer.
//
// Performs: y = act(W·x + b)
// where:
//   - x is the input flattened to fanIn elements, fanIn = InputShape().Volume()
//   - W has shape (units, fanIn, 1)
//   - b has shape (1, 1, units)
//   - y has shape (1, 1, units)
//
// Weights are drawn from N(0, gain/fanIn) with the activation's gain.
// Biases start at zero.
//
// Example:
//
//	net, _ := nn.NewNetwork(tensor.MustShape(784))
//	_ = net.AddLayer(nn.NewFeedForward(128, activation.ReLU), rng)
type FeedForward struct {
	units   int
	act     activation.Kind
	dropout float64
	rng     *rand.Rand

	in     tensor.Shape
	weight *tensor.Value
	bias   *tensor.Value
}

// NewFeedForward creates a FeedForward layer with the given number of
// output units.
func NewFeedForward(units int, act activation.Kind) *FeedForward {
	return &FeedForward{units: units, act: act}
}

// SetDropout enables inverted dropout on the layer input while the graph
// is recording. rate must be in [0, 1).
func (l *FeedForward) SetDropout(rate float64, rng *rand.Rand) error {
	if rate < 0 || rate >= 1 {
		return errors.Errorf("feedforward: dropout rate %v outside [0, 1)", rate)
	}
	if rate > 0 && rng == nil {
		return errors.Wrap(ErrMissingRand, "feedforward dropout")
	}
	l.dropout, l.rng = rate, rng
	return nil
}

// Kind implements Layer.
func (l *FeedForward) Kind() Kind { return KindFeedForward }

// Activation implements Activatable.
func (l *FeedForward) Activation() activation.Kind { return l.act }

// InputShape implements Layer.
func (l *FeedForward) InputShape() tensor.Shape { return l.in }

// OutputShape implements Layer.
func (l *FeedForward) OutputShape() tensor.Shape {
	return tensor.Shape{H: 1, W: 1, D: l.units}
}

// SetInputShape implements Layer.
func (l *FeedForward) SetInputShape(in tensor.Shape) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if l.units <= 0 {
		return errors.Wrapf(tensor.ErrInvalidShape, "feedforward: %d units", l.units)
	}
	l.in = in
	l.weight = tensor.New(tensor.Shape{H: l.units, W: in.Volume(), D: 1})
	l.bias = tensor.New(l.OutputShape())
	return nil
}

// InitWeights implements Learnable.
func (l *FeedForward) InitWeights(rng *rand.Rand) {
	fillGaussian(l.weight, initStdDev(activation.Gain(l.act), l.in.Volume()), rng)
	l.bias.Fill(0)
}

// Forward implements Layer.
func (l *FeedForward) Forward(x *tensor.Value, g *autodiff.Graph) *tensor.Value {
	if l.dropout > 0 {
		x = g.Dropout(x, l.dropout, l.rng)
	}
	return g.Activate(g.Add(g.MatMul(l.weight, x), l.bias), l.act)
}

// Weight returns the weight value, shape (units, fanIn, 1).
func (l *FeedForward) Weight() *tensor.Value { return l.weight }

// Bias returns the bias value, shape (1, 1, units).
func (l *FeedForward) Bias() *tensor.Value { return l.bias }

// Parameters implements Learnable. Returns [weight, bias].
func (l *FeedForward) Parameters() []*tensor.Value {
	return []*tensor.Value{l.weight, l.bias}
}

// NamedParameters implements Learnable.
func (l *FeedForward) NamedParameters() []NamedParameter {
	return []NamedParameter{{"weight", l.weight}, {"bias", l.bias}}
}

// Clone implements Layer.
func (l *FeedForward) Clone() Layer {
	c := *l
	c.rng = forkRand(l.rng)
	if l.weight != nil {
		c.weight, c.bias = l.weight.Clone(), l.bias.Clone()
	}
	return &c
}

// String returns a string representation of the layer.
func (l *FeedForward) String() string {
	return fmt.Sprintf("FeedForward(in=%v, units=%d, act=%v)", l.in, l.units, l.act)
}
