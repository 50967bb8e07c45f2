package autodiff

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/tensor"
)

// track panics if any input can no longer accumulate gradients. Called by
// operations before recording, so misuse fails at the forward call rather
// than deep inside Backward.
func (g *Graph) track(inputs ...*tensor.Value) {
	if !g.recording {
		return
	}
	for _, v := range inputs {
		if v.InferenceOnly() {
			panic(errors.Wrapf(tensor.ErrInferenceOnly, "recording graph given value %v", v.Shape()))
		}
	}
}

func sameShape(op string, a, b *tensor.Value) {
	if a.Shape() != b.Shape() {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", op, a.Shape(), b.Shape()))
	}
}

// Add computes a + b elementwise.
//
// Backward: both inputs receive the output gradient unchanged.
func (g *Graph) Add(a, b *tensor.Value) *tensor.Value {
	sameShape("add", a, b)
	g.track(a, b)

	out := tensor.New(a.Shape())
	ad, bd, od := a.Data(), b.Data(), out.Data()
	for i := range od {
		od[i] = ad[i] + bd[i]
	}

	g.record(func() {
		ag, bg := a.Gradient(), b.Gradient()
		for i, d := range out.Gradient() {
			ag[i] += d
			bg[i] += d
		}
	})
	return out
}

// Sub computes a - b elementwise.
func (g *Graph) Sub(a, b *tensor.Value) *tensor.Value {
	sameShape("sub", a, b)
	g.track(a, b)

	out := tensor.New(a.Shape())
	ad, bd, od := a.Data(), b.Data(), out.Data()
	for i := range od {
		od[i] = ad[i] - bd[i]
	}

	g.record(func() {
		ag, bg := a.Gradient(), b.Gradient()
		for i, d := range out.Gradient() {
			ag[i] += d
			bg[i] -= d
		}
	})
	return out
}

// Mul computes the Hadamard product a ⊙ b.
//
// Backward: grad_a += grad ⊙ b, grad_b += grad ⊙ a.
func (g *Graph) Mul(a, b *tensor.Value) *tensor.Value {
	sameShape("mul", a, b)
	g.track(a, b)

	out := tensor.New(a.Shape())
	ad, bd, od := a.Data(), b.Data(), out.Data()
	for i := range od {
		od[i] = ad[i] * bd[i]
	}

	g.record(func() {
		ag, bg := a.Gradient(), b.Gradient()
		for i, d := range out.Gradient() {
			ag[i] += d * bd[i]
			bg[i] += d * ad[i]
		}
	})
	return out
}

// AddConst computes a + c for a constant c.
func (g *Graph) AddConst(a *tensor.Value, c float32) *tensor.Value {
	g.track(a)

	out := tensor.New(a.Shape())
	ad, od := a.Data(), out.Data()
	for i := range od {
		od[i] = ad[i] + c
	}

	g.record(func() {
		tensor.Axpy(1, out.Gradient(), a.Gradient())
	})
	return out
}

// Scale computes s·a for a constant s.
func (g *Graph) Scale(a *tensor.Value, s float32) *tensor.Value {
	g.track(a)

	out := tensor.New(a.Shape())
	ad, od := a.Data(), out.Data()
	for i := range od {
		od[i] = ad[i] * s
	}

	g.record(func() {
		tensor.Axpy(s, out.Gradient(), a.Gradient())
	})
	return out
}

// ScaleBy computes s[index]·a, where the scale factor is one element of a
// (typically trainable) value.
//
// Backward: grad_a += s[index]·grad, grad_s[index] += Σ grad ⊙ a.
func (g *Graph) ScaleBy(a, s *tensor.Value, index int) *tensor.Value {
	if index < 0 || index >= s.Len() {
		panic(fmt.Sprintf("scaleby: index %d out of range for %v", index, s.Shape()))
	}
	g.track(a, s)

	k := s.Data()[index]
	out := tensor.New(a.Shape())
	ad, od := a.Data(), out.Data()
	for i := range od {
		od[i] = ad[i] * k
	}

	g.record(func() {
		og := out.Gradient()
		tensor.Axpy(k, og, a.Gradient())
		s.Gradient()[index] += tensor.Dot(og, ad)
	})
	return out
}

// Sum reduces a to a single element of shape (1,1,1).
func (g *Graph) Sum(a *tensor.Value) *tensor.Value {
	g.track(a)

	out := tensor.New(tensor.Shape{H: 1, W: 1, D: 1})
	var sum float32
	for _, v := range a.Data() {
		sum += v
	}
	out.Data()[0] = sum

	g.record(func() {
		d := out.Gradient()[0]
		ag := a.Gradient()
		for i := range ag {
			ag[i] += d
		}
	})
	return out
}
