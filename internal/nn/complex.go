package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// ComplexFeedForward treats the two depth halves of its input as the real
// and imaginary parts of a complex signal.
//
// Each half goes through its own FeedForward sublayer (R, I), and the
// pair is then multiplied by a learned complex scalar α + βi:
//
//	re = α·R − β·I
//	im = β·R + α·I
//
// The output is re followed by im, shape (1, 1, 2·units). The blend
// starts at α=1, β=0.
type ComplexFeedForward struct {
	real, imag *FeedForward
	blend      *tensor.Value // (1, 1, 2): α, β
	in         tensor.Shape
}

// NewComplexFeedForward creates the layer with units outputs per part.
func NewComplexFeedForward(units int, act activation.Kind) *ComplexFeedForward {
	return &ComplexFeedForward{
		real: NewFeedForward(units, act),
		imag: NewFeedForward(units, act),
	}
}

// Kind implements Layer.
func (l *ComplexFeedForward) Kind() Kind { return KindComplexFeedForward }

// Activation implements Activatable.
func (l *ComplexFeedForward) Activation() activation.Kind { return l.real.act }

// InputShape implements Layer.
func (l *ComplexFeedForward) InputShape() tensor.Shape { return l.in }

// OutputShape implements Layer.
func (l *ComplexFeedForward) OutputShape() tensor.Shape {
	return tensor.Shape{H: 1, W: 1, D: 2 * l.real.units}
}

// SetInputShape implements Layer. Input depth must be even.
func (l *ComplexFeedForward) SetInputShape(in tensor.Shape) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if in.D%2 != 0 {
		return errors.Wrapf(tensor.ErrInvalidShape, "complex: input depth %d is odd", in.D)
	}
	half := tensor.Shape{H: in.H, W: in.W, D: in.D / 2}
	if err := l.real.SetInputShape(half); err != nil {
		return err
	}
	if err := l.imag.SetInputShape(half); err != nil {
		return err
	}
	l.in = in
	l.blend = tensor.New(tensor.Shape{H: 1, W: 1, D: 2})
	return nil
}

// InitWeights implements Learnable.
func (l *ComplexFeedForward) InitWeights(rng *rand.Rand) {
	l.real.InitWeights(rng)
	l.imag.InitWeights(rng)
	l.blend.Data()[0], l.blend.Data()[1] = 1, 0
}

// Forward implements Layer.
func (l *ComplexFeedForward) Forward(x *tensor.Value, g *autodiff.Graph) *tensor.Value {
	parts := g.SplitDepth(x, 2)
	r := l.real.Forward(parts[0], g)
	i := l.imag.Forward(parts[1], g)

	re := g.Sub(g.ScaleBy(r, l.blend, 0), g.ScaleBy(i, l.blend, 1))
	im := g.Add(g.ScaleBy(r, l.blend, 1), g.ScaleBy(i, l.blend, 0))
	return g.Concat(re, im)
}

// Blend returns the (α, β) value.
func (l *ComplexFeedForward) Blend() *tensor.Value { return l.blend }

// Parameters implements Learnable.
func (l *ComplexFeedForward) Parameters() []*tensor.Value {
	return parameterValues(l.NamedParameters())
}

// NamedParameters implements Learnable.
func (l *ComplexFeedForward) NamedParameters() []NamedParameter {
	return []NamedParameter{
		{"real.weight", l.real.weight}, {"real.bias", l.real.bias},
		{"imag.weight", l.imag.weight}, {"imag.bias", l.imag.bias},
		{"blend", l.blend},
	}
}

// Clone implements Layer.
func (l *ComplexFeedForward) Clone() Layer {
	c := *l
	c.real = l.real.Clone().(*FeedForward)
	c.imag = l.imag.Clone().(*FeedForward)
	if l.blend != nil {
		c.blend = l.blend.Clone()
	}
	return &c
}

func (l *ComplexFeedForward) String() string {
	return fmt.Sprintf("ComplexFeedForward(in=%v, units=%d, act=%v)", l.in, l.real.units, l.real.act)
}
