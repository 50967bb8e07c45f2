package autodiff

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/tensor"
)

// PoolOutput derives the output shape of a size×size max-pool with the given stride.
func PoolOutput(in tensor.Shape, size, stride int) (tensor.Shape, error) {
	if size <= 0 || stride <= 0 {
		return tensor.Shape{}, errors.Wrapf(tensor.ErrInvalidShape, "pool: size %d, stride %d", size, stride)
	}
	if in.H < size || in.W < size {
		return tensor.Shape{}, errors.Wrapf(tensor.ErrInvalidShape, "pool: window %d larger than input %v", size, in)
	}
	return tensor.Shape{H: (in.H-size)/stride + 1, W: (in.W-size)/stride + 1, D: in.D}, nil
}

// MaxPool takes the maximum of every size×size window, per depth slice.
//
// The index of each winning element is captured for the backward pass,
// which routes the whole output gradient to that element only. Each
// window starts from its first element, so a window of NaN or -Inf
// still has a winner; a NaN loses to any number in its window.
func (g *Graph) MaxPool(input *tensor.Value, size, stride int) *tensor.Value {
	in := input.Shape()
	outShape, err := PoolOutput(in, size, stride)
	if err != nil {
		panic(err)
	}
	g.track(input)

	out := tensor.New(outShape)
	var winners []int
	if g.recording {
		winners = make([]int, outShape.Volume())
	}

	id, od := input.Data(), out.Data()
	for oy := 0; oy < outShape.H; oy++ {
		for ox := 0; ox < outShape.W; ox++ {
			for d := 0; d < in.D; d++ {
				arg := in.Index(oy*stride, ox*stride, d)
				best := id[arg]
				for fy := 0; fy < size; fy++ {
					for fx := 0; fx < size; fx++ {
						i := in.Index(oy*stride+fy, ox*stride+fx, d)
						if id[i] > best || (isNaN(best) && !isNaN(id[i])) {
							best, arg = id[i], i
						}
					}
				}
				o := outShape.Index(oy, ox, d)
				od[o] = best
				if winners != nil {
					winners[o] = arg
				}
			}
		}
	}

	g.record(func() {
		ig := input.Gradient()
		for o, d := range out.Gradient() {
			ig[winners[o]] += d
		}
	})
	return out
}

func isNaN(x float32) bool { return math.IsNaN(float64(x)) }
