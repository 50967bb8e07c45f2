package autodiff

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/tapenet/internal/tensor"
)

// Reshape reinterprets a under a new shape of equal volume. The data is
// copied; backward adds gradScale·grad onto a.
func (g *Graph) Reshape(a *tensor.Value, shape tensor.Shape, gradScale float32) *tensor.Value {
	if shape.Volume() != a.Len() {
		panic(fmt.Sprintf("reshape: %v (volume %d) cannot become %v (volume %d)", a.Shape(), a.Len(), shape, shape.Volume()))
	}
	g.track(a)

	out := tensor.New(shape)
	copy(out.Data(), a.Data())

	g.record(func() {
		tensor.Axpy(gradScale, out.Gradient(), a.Gradient())
	})
	return out
}

// Concat joins a and b end to end into a flat vector (1, 1, a.Len()+b.Len()).
func (g *Graph) Concat(a, b *tensor.Value) *tensor.Value {
	g.track(a, b)

	n := a.Len()
	out := tensor.New(tensor.Shape{H: 1, W: 1, D: n + b.Len()})
	copy(out.Data(), a.Data())
	copy(out.Data()[n:], b.Data())

	g.record(func() {
		og := out.Gradient()
		tensor.Axpy(1, og[:n], a.Gradient())
		tensor.Axpy(1, og[n:], b.Gradient())
	})
	return out
}

// ConcatDepth stacks a and b along depth. Height and width must agree.
func (g *Graph) ConcatDepth(a, b *tensor.Value) *tensor.Value {
	as, bs := a.Shape(), b.Shape()
	if as.H != bs.H || as.W != bs.W {
		panic(fmt.Sprintf("concatdepth: spatial mismatch %v vs %v", as, bs))
	}
	g.track(a, b)

	shape := tensor.Shape{H: as.H, W: as.W, D: as.D + bs.D}
	out := tensor.New(shape)
	od := out.Data()
	for p := 0; p < as.H*as.W; p++ {
		copy(od[p*shape.D:], a.Data()[p*as.D:(p+1)*as.D])
		copy(od[p*shape.D+as.D:], b.Data()[p*bs.D:(p+1)*bs.D])
	}

	g.record(func() {
		og, ag, bg := out.Gradient(), a.Gradient(), b.Gradient()
		for p := 0; p < as.H*as.W; p++ {
			tensor.Axpy(1, og[p*shape.D:p*shape.D+as.D], ag[p*as.D:(p+1)*as.D])
			tensor.Axpy(1, og[p*shape.D+as.D:(p+1)*shape.D], bg[p*bs.D:(p+1)*bs.D])
		}
	})
	return out
}

// SplitDepth cuts a into parts values of equal depth. One closure covers
// every part.
func (g *Graph) SplitDepth(a *tensor.Value, parts int) []*tensor.Value {
	s := a.Shape()
	if parts <= 0 || s.D%parts != 0 {
		panic(fmt.Sprintf("splitdepth: depth %d not divisible into %d parts", s.D, parts))
	}
	g.track(a)

	depth := s.D / parts
	shape := tensor.Shape{H: s.H, W: s.W, D: depth}
	outs := make([]*tensor.Value, parts)
	ad := a.Data()
	for k := range outs {
		outs[k] = tensor.New(shape)
		od := outs[k].Data()
		for p := 0; p < s.H*s.W; p++ {
			copy(od[p*depth:(p+1)*depth], ad[p*s.D+k*depth:])
		}
	}

	g.record(func() {
		ag := a.Gradient()
		for k, o := range outs {
			og := o.Gradient()
			for p := 0; p < s.H*s.W; p++ {
				tensor.Axpy(1, og[p*depth:(p+1)*depth], ag[p*s.D+k*depth:p*s.D+(k+1)*depth])
			}
		}
	})
	return outs
}

// Dropout zeroes each element with probability rate and scales survivors
// by 1/(1-rate). The mask is captured for the backward pass.
//
// On a non-recording graph (inference) Dropout returns a unchanged.
func (g *Graph) Dropout(a *tensor.Value, rate float64, rng *rand.Rand) *tensor.Value {
	if !g.recording || rate <= 0 {
		return a
	}
	if rate >= 1 {
		panic(fmt.Sprintf("dropout: rate %v must be < 1", rate))
	}
	g.track(a)

	keep := float32(1 / (1 - rate))
	mask := make([]float32, a.Len())
	out := tensor.New(a.Shape())
	ad, od := a.Data(), out.Data()
	for i := range mask {
		if rng.Float64() >= rate {
			mask[i] = keep
		}
		od[i] = ad[i] * mask[i]
	}

	g.record(func() {
		ag := a.Gradient()
		for i, d := range out.Gradient() {
			ag[i] += d * mask[i]
		}
	})
	return out
}
