package nn

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Reshape reinterprets its input under a new shape of the same volume.
// The gradient flowing back is multiplied by gradScale.
type Reshape struct {
	in, out   tensor.Shape
	gradScale float32
}

// NewReshape creates a Reshape layer producing out.
func NewReshape(out tensor.Shape, gradScale float32) *Reshape {
	return &Reshape{out: out, gradScale: gradScale}
}

// Kind implements Layer.
func (l *Reshape) Kind() Kind { return KindReshape }

// InputShape implements Layer.
func (l *Reshape) InputShape() tensor.Shape { return l.in }

// OutputShape implements Layer.
func (l *Reshape) OutputShape() tensor.Shape { return l.out }

// SetInputShape implements Layer.
func (l *Reshape) SetInputShape(in tensor.Shape) error {
	if err := l.out.Validate(); err != nil {
		return err
	}
	if in.Volume() != l.out.Volume() {
		return errors.Wrapf(tensor.ErrInvalidShape, "reshape: %v cannot become %v", in, l.out)
	}
	l.in = in
	return nil
}

// Forward implements Layer.
func (l *Reshape) Forward(x *tensor.Value, g *autodiff.Graph) *tensor.Value {
	return g.Reshape(x, l.out, l.gradScale)
}

// Clone implements Layer.
func (l *Reshape) Clone() Layer {
	c := *l
	return &c
}

func (l *Reshape) String() string {
	return fmt.Sprintf("Reshape(%v -> %v, grad×%v)", l.in, l.out, l.gradScale)
}
