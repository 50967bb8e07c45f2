package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/tensor"
)

// gate is one LSTM gate: act(W·[x, h] + b).
type gate struct {
	weight *tensor.Value // (units, fanIn+units, 1)
	bias   *tensor.Value // (1, 1, units)
	act    activation.Kind
}

func (gt *gate) forward(z *tensor.Value, g *autodiff.Graph) *tensor.Value {
	return g.Activate(g.Add(g.MatMul(gt.weight, z), gt.bias), gt.act)
}

// Recurrent is an LSTM cell that carries hidden and cell context across
// Forward calls.
//
// Each step concatenates the input with the previous hidden state and
// evaluates, in order:
//
//	f = σ(Wf·z + bf)          forget gate
//	i = σ(Wi·z + bi)          input gate
//	o = σ(Wo·z + bo)          output gate
//	c̃ = tanh(Wc·z + bc)       candidate
//	c = f⊙c_prev + i⊙c̃       cell
//	h = o⊙tanh(c)            hidden, the layer output
//
// The context is not a parameter. Call ResetState between independent
// sequences; without it state from one sample leaks into the next.
// Gradients flow back through earlier steps of the current sequence as
// long as they were recorded on the same graph.
//
// A Recurrent layer must not be used from two goroutines at once; Clone
// it per goroutine instead.
type Recurrent struct {
	units int
	in    tensor.Shape

	forget, input, output, candidate gate

	hidden *tensor.Value
	cell   *tensor.Value
}

// NewRecurrent creates an LSTM layer with the given number of units.
func NewRecurrent(units int) *Recurrent {
	return &Recurrent{
		units:     units,
		forget:    gate{act: activation.Sigmoid},
		input:     gate{act: activation.Sigmoid},
		output:    gate{act: activation.Sigmoid},
		candidate: gate{act: activation.Tanh},
	}
}

// Kind implements Layer.
func (l *Recurrent) Kind() Kind { return KindRecurrent }

// InputShape implements Layer.
func (l *Recurrent) InputShape() tensor.Shape { return l.in }

// OutputShape implements Layer.
func (l *Recurrent) OutputShape() tensor.Shape {
	return tensor.Shape{H: 1, W: 1, D: l.units}
}

func (l *Recurrent) gates() []*gate {
	return []*gate{&l.forget, &l.input, &l.output, &l.candidate}
}

// SetInputShape implements Layer.
func (l *Recurrent) SetInputShape(in tensor.Shape) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if l.units <= 0 {
		return errors.Wrapf(tensor.ErrInvalidShape, "recurrent: %d units", l.units)
	}
	l.in = in
	for _, gt := range l.gates() {
		gt.weight = tensor.New(tensor.Shape{H: l.units, W: in.Volume() + l.units, D: 1})
		gt.bias = tensor.New(l.OutputShape())
	}
	l.ResetState()
	return nil
}

// InitWeights implements Learnable.
func (l *Recurrent) InitWeights(rng *rand.Rand) {
	fanIn := l.in.Volume() + l.units
	for _, gt := range l.gates() {
		fillGaussian(gt.weight, initStdDev(activation.Gain(gt.act), fanIn), rng)
		gt.bias.Fill(0)
	}
}

// ResetState implements Stateful: hidden and cell context go back to zero.
func (l *Recurrent) ResetState() {
	l.hidden = tensor.New(l.OutputShape())
	l.cell = tensor.New(l.OutputShape())
}

// Hidden returns the current hidden context.
func (l *Recurrent) Hidden() *tensor.Value { return l.hidden }

// Cell returns the current cell context.
func (l *Recurrent) Cell() *tensor.Value { return l.cell }

// Forward implements Layer. It advances the context by one step.
func (l *Recurrent) Forward(x *tensor.Value, g *autodiff.Graph) *tensor.Value {
	z := g.Concat(x, l.hidden)

	f := l.forget.forward(z, g)
	i := l.input.forward(z, g)
	o := l.output.forward(z, g)
	c := l.candidate.forward(z, g)

	l.cell = g.Add(g.Mul(f, l.cell), g.Mul(i, c))
	l.hidden = g.Mul(o, g.Activate(l.cell, activation.Tanh))
	return l.hidden
}

// Parameters implements Learnable.
func (l *Recurrent) Parameters() []*tensor.Value {
	return parameterValues(l.NamedParameters())
}

// NamedParameters implements Learnable: wf, bf, wi, bi, wo, bo, wc, bc.
func (l *Recurrent) NamedParameters() []NamedParameter {
	return []NamedParameter{
		{"wf", l.forget.weight}, {"bf", l.forget.bias},
		{"wi", l.input.weight}, {"bi", l.input.bias},
		{"wo", l.output.weight}, {"bo", l.output.bias},
		{"wc", l.candidate.weight}, {"bc", l.candidate.bias},
	}
}

// Clone implements Layer. The copy carries the current context.
func (l *Recurrent) Clone() Layer {
	c := *l
	for _, gt := range c.gates() {
		if gt.weight != nil {
			gt.weight, gt.bias = gt.weight.Clone(), gt.bias.Clone()
		}
	}
	if l.hidden != nil {
		c.hidden, c.cell = l.hidden.Clone(), l.cell.Clone()
	}
	return &c
}

func (l *Recurrent) String() string {
	return fmt.Sprintf("Recurrent(in=%v, units=%d)", l.in, l.units)
}
