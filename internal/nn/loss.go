package nn

import (
	"math"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/tensor"
)

// MeanSquared computes 0.5·Σ(out − target)² and seeds out's gradient
// with out − target. Call graph.Backward afterwards.
func MeanSquared(out, target *tensor.Value) (float32, error) {
	if out.Shape() != target.Shape() {
		return 0, errors.Wrapf(tensor.ErrShapeMismatch, "mean squared: output %v, target %v", out.Shape(), target.Shape())
	}
	od, td := out.Data(), target.Data()
	seed := make([]float32, len(od))
	var loss float64
	for i := range od {
		d := od[i] - td[i]
		seed[i] = d
		loss += 0.5 * float64(d) * float64(d)
	}
	if err := out.SetGradient(seed); err != nil {
		return 0, err
	}
	return float32(loss), nil
}

// SoftmaxCrossEntropy computes −log p[class] for probabilities p produced
// by a softmax activation, and seeds out's gradient with p − onehot(class).
//
// The seed is the gradient with respect to the softmax input. It passes
// through the softmax backward step unchanged, since that step is the
// identity.
func SoftmaxCrossEntropy(out *tensor.Value, class int) (float32, error) {
	p := out.Data()
	if class < 0 || class >= len(p) {
		return 0, errors.Wrapf(tensor.ErrLengthMismatch, "cross entropy: class %d outside %d outputs", class, len(p))
	}
	seed := make([]float32, len(p))
	copy(seed, p)
	seed[class]--
	if err := out.SetGradient(seed); err != nil {
		return 0, err
	}
	return float32(-math.Log(float64(p[class]) + activation.SoftmaxEpsilon)), nil
}
