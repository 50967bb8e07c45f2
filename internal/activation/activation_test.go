package activation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
)

func TestForward_Elementwise(t *testing.T) {
	x := []float32{-2, 0, 3}
	y := make([]float32, 3)

	Forward(ReLU, x, y)
	assert.Equal(t, []float32{0, 0, 3}, y)

	Forward(LeakyReLU, x, y)
	assert.InDeltaSlice(t, []float32{-0.02, 0, 3}, y, 1e-7)

	Forward(Linear, x, y)
	assert.Equal(t, x, y)

	Forward(Sigmoid, x, y)
	assert.InDelta(t, 0.5, y[1], 1e-7)

	Forward(Tanh, x, y)
	assert.InDelta(t, math.Tanh(3), y[2], 1e-6)
}

// TestBackward_MatchesFiniteDifference checks every elementwise derivative
// against gonum's central difference.
func TestBackward_MatchesFiniteDifference(t *testing.T) {
	points := []float32{-1.7, -0.3, 0.4, 2.2}
	for _, k := range []Kind{Linear, Sigmoid, Tanh, ReLU, LeakyReLU, Softplus} {
		t.Run(k.String(), func(t *testing.T) {
			y := make([]float32, len(points))
			dy := make([]float32, len(points))
			Forward(k, points, y)
			Backward(k, points, y, dy)

			for i, p := range points {
				f := func(v float64) float64 {
					in, out := []float32{float32(v)}, []float32{0}
					Forward(k, in, out)
					return float64(out[0])
				}
				want := fd.Derivative(f, float64(p), &fd.Settings{Formula: fd.Central, Step: 1e-3})
				assert.InDelta(t, want, dy[i], 1e-3, "point %v", p)
			}
		})
	}
}

func TestSoftplus_LargeInputsStayFinite(t *testing.T) {
	x := []float32{1000, 800, 30, 0, -30, -1000}
	y := make([]float32, len(x))
	Forward(Softplus, x, y)

	for i, v := range y {
		assert.False(t, math.IsInf(float64(v), 0) || math.IsNaN(float64(v)), "softplus(%v) = %v", x[i], v)
	}
	assert.InDelta(t, 1000, y[0], 1e-3)
	assert.InDelta(t, 800, y[1], 1e-3)
	assert.InDelta(t, 30, y[2], 1e-5)
	assert.InDelta(t, math.Ln2, y[3], 1e-6)
	assert.InDelta(t, 0, y[4], 1e-12)
	assert.Zero(t, y[5])

	dy := make([]float32, len(x))
	Backward(Softplus, x, y, dy)
	assert.InDelta(t, 1, dy[0], 1e-6)
	assert.InDelta(t, 0.5, dy[3], 1e-6)
	assert.InDelta(t, 0, dy[5], 1e-6)
}

func TestSoftmax_SumsToOne(t *testing.T) {
	x := []float32{1, 2, 3}
	y := make([]float32, 3)
	Forward(Softmax, x, y)

	var sum float32
	for _, v := range y {
		sum += v
	}
	assert.InDelta(t, 1, sum, 1e-6)
	assert.Greater(t, y[2], y[1])
}

func TestSoftmax_ExtremeLogitsStayFinite(t *testing.T) {
	x := []float32{1000, 1000, -1000}
	y := make([]float32, 3)
	Forward(Softmax, x, y)

	for _, v := range y {
		require.False(t, math.IsNaN(float64(v)))
		require.False(t, math.IsInf(float64(v), 0))
	}
	assert.InDelta(t, 0.5, y[0], 1e-6)
	assert.InDelta(t, 0.5, y[1], 1e-6)
}

func TestSoftmax_BackwardIsIdentity(t *testing.T) {
	x := []float32{0.1, 0.2}
	y := make([]float32, 2)
	dy := make([]float32, 2)
	Forward(Softmax, x, y)
	Backward(Softmax, x, y, dy)
	assert.Equal(t, []float32{1, 1}, dy)
}

func TestParse(t *testing.T) {
	k, err := Parse("ReLU")
	require.NoError(t, err)
	assert.Equal(t, ReLU, k)

	k, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, Linear, k)

	_, err = Parse("swish")
	require.Error(t, err)
}

func TestGain(t *testing.T) {
	assert.Equal(t, 2.0, Gain(ReLU))
	assert.Equal(t, 1.0, Gain(Linear))
	assert.Equal(t, 1.0, Gain(Sigmoid))
}
