package nn

import (
	"fmt"

	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Pool takes the maximum over size×size windows, per depth slice.
// It has no parameters.
type Pool struct {
	size, stride int
	in, out      tensor.Shape
}

// NewPool creates a max-pool layer.
func NewPool(size, stride int) *Pool {
	return &Pool{size: size, stride: stride}
}

// Kind implements Layer.
func (l *Pool) Kind() Kind { return KindPool }

// InputShape implements Layer.
func (l *Pool) InputShape() tensor.Shape { return l.in }

// OutputShape implements Layer.
func (l *Pool) OutputShape() tensor.Shape { return l.out }

// SetInputShape implements Layer.
func (l *Pool) SetInputShape(in tensor.Shape) error {
	out, err := autodiff.PoolOutput(in, l.size, l.stride)
	if err != nil {
		return err
	}
	l.in, l.out = in, out
	return nil
}

// Forward implements Layer.
func (l *Pool) Forward(x *tensor.Value, g *autodiff.Graph) *tensor.Value {
	return g.MaxPool(x, l.size, l.stride)
}

// Clone implements Layer.
func (l *Pool) Clone() Layer {
	c := *l
	return &c
}

func (l *Pool) String() string {
	return fmt.Sprintf("Pool(in=%v, size=%d, stride=%d)", l.in, l.size, l.stride)
}
