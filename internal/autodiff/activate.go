package autodiff

import (
	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Activate applies an activation function elementwise (softmax normalizes
// over the whole value).
//
// Backward multiplies the output gradient by the local derivative at the
// input. For softmax that derivative is the identity; pair it with
// SoftmaxCrossEntropy, which seeds p - onehot on the output.
func (g *Graph) Activate(a *tensor.Value, kind activation.Kind) *tensor.Value {
	if kind == activation.Linear {
		return a
	}
	g.track(a)

	out := tensor.New(a.Shape())
	activation.Forward(kind, a.Data(), out.Data())

	g.record(func() {
		local := make([]float32, a.Len())
		activation.Backward(kind, a.Data(), out.Data(), local)
		ag := a.Gradient()
		for i, d := range out.Gradient() {
			ag[i] += d * local[i]
		}
	})
	return out
}
