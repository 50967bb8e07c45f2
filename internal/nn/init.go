package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/tapenet/internal/tensor"
)

// initStdDev is the variance-preserving standard deviation for a layer
// with fanIn inputs feeding a nonlinearity with the given gain:
//
//	std = sqrt(gain / fanIn)
func initStdDev(gain float64, fanIn int) float64 {
	return math.Sqrt(gain / float64(fanIn))
}

// fillGaussian overwrites v in place with N(0, std²) samples. The value
// keeps its identity so optimizer moments and network indices stay valid.
func fillGaussian(v *tensor.Value, std float64, rng *rand.Rand) {
	d := v.Data()
	for i := range d {
		d[i] = float32(rng.NormFloat64() * std)
	}
}

func cloneValues(vs []*tensor.Value) []*tensor.Value {
	out := make([]*tensor.Value, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out
}

// forkRand derives an independent source from rng, or nil.
func forkRand(rng *rand.Rand) *rand.Rand {
	if rng == nil {
		return nil
	}
	//nolint:gosec // Using math/rand for dropout masks (not security-critical)
	return rand.New(rand.NewSource(rng.Int63()))
}
