// Package activation implements the elementwise transfer functions used by
// layers and by the graph's Activate operation.
//
// Every function is stateless. Forward maps an input buffer to an output
// buffer; Backward returns the local derivative evaluated at the input
// (the forward output is passed along for functions whose derivative is
// cheaper in terms of it).
//
// Softmax is special: its backward is the identity, because its Jacobian
// is fused into the softmax cross-entropy loss, which seeds p - onehot
// directly on the softmax output.
package activation

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies an activation function.
type Kind int

// Supported activation functions.
const (
	Linear Kind = iota
	Sigmoid
	Tanh
	ReLU
	LeakyReLU
	Softplus
	Softmax
)

// Softmax numeric policy.
const (
	SoftmaxExpCeiling = 1e30 // exp results are clamped to this before normalizing
	SoftmaxEpsilon    = 1e-9 // added to the normalizer
)

// LeakySlope is the negative-side slope of LeakyReLU.
const LeakySlope = 0.01

var names = map[Kind]string{
	Linear:    "linear",
	Sigmoid:   "sigmoid",
	Tanh:      "tanh",
	ReLU:      "relu",
	LeakyReLU: "leaky_relu",
	Softplus:  "softplus",
	Softmax:   "softmax",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Parse returns the Kind named s (case-insensitive). An empty string is Linear.
func Parse(s string) (Kind, error) {
	if s == "" {
		return Linear, nil
	}
	s = strings.ToLower(s)
	for k, n := range names {
		if n == s {
			return k, nil
		}
	}
	return Linear, errors.Errorf("unknown activation %q", s)
}

// Forward writes f(x) into y. len(y) must equal len(x).
func Forward(k Kind, x, y []float32) {
	switch k {
	case Linear:
		copy(y, x)
	case Sigmoid:
		for i, v := range x {
			y[i] = sigmoid(v)
		}
	case Tanh:
		for i, v := range x {
			y[i] = float32(math.Tanh(float64(v)))
		}
	case ReLU:
		for i, v := range x {
			y[i] = max(v, 0)
		}
	case LeakyReLU:
		for i, v := range x {
			if v > 0 {
				y[i] = v
			} else {
				y[i] = LeakySlope * v
			}
		}
	case Softplus:
		for i, v := range x {
			y[i] = softplus(float64(v))
		}
	case Softmax:
		softmax(x, y)
	default:
		panic(fmt.Sprintf("activation: unknown kind %d", int(k)))
	}
}

// Backward writes the local derivative f'(x) into dy, given input x and
// forward output y.
func Backward(k Kind, x, y, dy []float32) {
	switch k {
	case Linear, Softmax:
		for i := range dy {
			dy[i] = 1
		}
	case Sigmoid:
		for i, v := range y {
			dy[i] = v * (1 - v)
		}
	case Tanh:
		for i, v := range y {
			dy[i] = 1 - v*v
		}
	case ReLU:
		for i, v := range x {
			if v > 0 {
				dy[i] = 1
			} else {
				dy[i] = 0
			}
		}
	case LeakyReLU:
		for i, v := range x {
			if v > 0 {
				dy[i] = 1
			} else {
				dy[i] = LeakySlope
			}
		}
	case Softplus:
		for i, v := range x {
			dy[i] = sigmoid(v)
		}
	default:
		panic(fmt.Sprintf("activation: unknown kind %d", int(k)))
	}
}

// Gain returns the variance-preserving numerator for weights feeding the
// given activation: an initializer draws with std sqrt(Gain(k)/fanIn).
func Gain(k Kind) float64 {
	switch k {
	case ReLU, LeakyReLU:
		return 2
	case Tanh:
		return 25.0 / 9.0 // (5/3)²
	default:
		return 1
	}
}

func sigmoid(v float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(v))))
}

// softmax normalizes x into y. exp is clamped to SoftmaxExpCeiling and the
// normalizer carries SoftmaxEpsilon, so extreme logits stay finite.
func softmax(x, y []float32) {
	var sum float64
	for i, v := range x {
		e := math.Min(math.Exp(float64(v)), SoftmaxExpCeiling)
		y[i] = float32(e)
		sum += e
	}
	sum += SoftmaxEpsilon
	for i := range y {
		y[i] = float32(float64(y[i]) / sum)
	}
}

// softplus is log(1+eˣ), written as x + log(1+e⁻ˣ) for positive x so
// large inputs do not overflow.
func softplus(x float64) float32 {
	if x > 0 {
		return float32(x + math.Log1p(math.Exp(-x)))
	}
	return float32(math.Log1p(math.Exp(x)))
}
