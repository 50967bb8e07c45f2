package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Convolutional slides count filters of fh×fw×inDepth over its input.
//
// Output spatial size per axis is
//
//	floor((in - filter + pad) / stride) + 1
//
// where pad is the total zero padding on that axis. Stride and padding
// may be changed until the first Forward call.
//
// The layer itself is linear. When a Network places an activatable layer
// right after it, the filters are re-initialized for that layer's gain
// (see Rescale).
type Convolutional struct {
	count, fh, fw int
	stride, pad   int
	numerator     float64
	started       bool

	in, out tensor.Shape
	filters []*tensor.Value // each (fh, fw, in.D)
	bias    *tensor.Value   // (1, 1, count)
}

// NewConvolutional creates a layer of count filters of fh×fw, stride 1,
// no padding.
func NewConvolutional(count, fh, fw int) *Convolutional {
	return &Convolutional{count: count, fh: fh, fw: fw, stride: 1, numerator: activation.Gain(activation.Linear)}
}

// SetStride changes the stride and re-derives the output shape.
func (l *Convolutional) SetStride(stride int) error {
	return l.reconfigure(stride, l.pad)
}

// SetPadding changes the total padding per spatial axis and re-derives
// the output shape.
func (l *Convolutional) SetPadding(pad int) error {
	return l.reconfigure(l.stride, pad)
}

func (l *Convolutional) reconfigure(stride, pad int) error {
	if l.started {
		return errors.Wrapf(ErrFrozen, "convolutional: stride %d, pad %d", stride, pad)
	}
	if l.filters != nil {
		out, err := autodiff.ConvOutput(l.in, l.fh, l.fw, l.count, stride, pad)
		if err != nil {
			return err
		}
		l.out = out
	} else if stride <= 0 || pad < 0 {
		return errors.Wrapf(tensor.ErrInvalidShape, "convolutional: stride %d, pad %d", stride, pad)
	}
	l.stride, l.pad = stride, pad
	return nil
}

// Kind implements Layer.
func (l *Convolutional) Kind() Kind { return KindConvolutional }

// InputShape implements Layer.
func (l *Convolutional) InputShape() tensor.Shape { return l.in }

// OutputShape implements Layer.
func (l *Convolutional) OutputShape() tensor.Shape { return l.out }

// Stride returns the stride.
func (l *Convolutional) Stride() int { return l.stride }

// Padding returns the total padding per spatial axis.
func (l *Convolutional) Padding() int { return l.pad }

// SetInputShape implements Layer.
func (l *Convolutional) SetInputShape(in tensor.Shape) error {
	if err := in.Validate(); err != nil {
		return err
	}
	out, err := autodiff.ConvOutput(in, l.fh, l.fw, l.count, l.stride, l.pad)
	if err != nil {
		return err
	}
	l.in, l.out = in, out
	l.filters = make([]*tensor.Value, l.count)
	for i := range l.filters {
		l.filters[i] = tensor.New(tensor.Shape{H: l.fh, W: l.fw, D: in.D})
	}
	l.bias = tensor.New(tensor.Shape{H: 1, W: 1, D: l.count})
	return nil
}

// InitWeights implements Learnable. Filters use the current rescale
// numerator; biases start at zero.
func (l *Convolutional) InitWeights(rng *rand.Rand) {
	l.Rescale(l.numerator, rng)
}

// Rescale re-initializes every filter from N(0, numerator/fanIn), with
// fanIn = fh·fw·inDepth, and zeroes the bias. Network calls it with the
// gain of the layer that follows.
func (l *Convolutional) Rescale(numerator float64, rng *rand.Rand) {
	l.numerator = numerator
	std := initStdDev(numerator, l.fh*l.fw*l.in.D)
	for _, f := range l.filters {
		fillGaussian(f, std, rng)
	}
	l.bias.Fill(0)
}

// Forward implements Layer.
func (l *Convolutional) Forward(x *tensor.Value, g *autodiff.Graph) *tensor.Value {
	l.started = true
	return g.Convolve(x, l.filters, l.bias, l.stride, l.pad)
}

// Filters returns the filter values.
func (l *Convolutional) Filters() []*tensor.Value { return l.filters }

// Parameters implements Learnable. Returns the filters followed by the bias.
func (l *Convolutional) Parameters() []*tensor.Value {
	return parameterValues(l.NamedParameters())
}

// NamedParameters implements Learnable.
func (l *Convolutional) NamedParameters() []NamedParameter {
	out := make([]NamedParameter, 0, len(l.filters)+1)
	for i, f := range l.filters {
		out = append(out, NamedParameter{fmt.Sprintf("filter_%d", i), f})
	}
	return append(out, NamedParameter{"bias", l.bias})
}

// Clone implements Layer.
func (l *Convolutional) Clone() Layer {
	c := *l
	if l.filters != nil {
		c.filters = cloneValues(l.filters)
		c.bias = l.bias.Clone()
	}
	return &c
}

// String returns a string representation of the layer.
func (l *Convolutional) String() string {
	return fmt.Sprintf("Convolutional(in=%v, filters=%dx%dx%d, stride=%d, pad=%d)",
		l.in, l.count, l.fh, l.fw, l.stride, l.pad)
}
