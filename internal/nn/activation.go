package nn

import (
	"fmt"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Activation applies a nonlinearity elementwise and keeps the input shape.
type Activation struct {
	act activation.Kind
	in  tensor.Shape
}

// NewActivation creates an activation layer.
func NewActivation(act activation.Kind) *Activation {
	return &Activation{act: act}
}

// Kind implements Layer.
func (l *Activation) Kind() Kind { return KindActivation }

// Activation implements Activatable.
func (l *Activation) Activation() activation.Kind { return l.act }

// InputShape implements Layer.
func (l *Activation) InputShape() tensor.Shape { return l.in }

// OutputShape implements Layer.
func (l *Activation) OutputShape() tensor.Shape { return l.in }

// SetInputShape implements Layer.
func (l *Activation) SetInputShape(in tensor.Shape) error {
	if err := in.Validate(); err != nil {
		return err
	}
	l.in = in
	return nil
}

// Forward implements Layer.
func (l *Activation) Forward(x *tensor.Value, g *autodiff.Graph) *tensor.Value {
	return g.Activate(x, l.act)
}

// Clone implements Layer.
func (l *Activation) Clone() Layer {
	c := *l
	return &c
}

func (l *Activation) String() string {
	return fmt.Sprintf("Activation(%v)", l.act)
}
