package optim

import (
	"bytes"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/autodiff"
	"github.com/born-ml/tapenet/internal/nn"
	"github.com/born-ml/tapenet/internal/tensor"
)

func scalar(w, grad float32) *tensor.Value {
	v := tensor.Full(tensor.MustShape(1), w)
	v.AccumulateGradient(0, grad)
	return v
}

func noClip(lr float32) Hyperparams {
	return Hyperparams{LearningRate: lr, GradientGain: 1}
}

func TestAdam_FirstStep(t *testing.T) {
	p := scalar(1, 0.5)
	NewAdam(AdamConfig{}).Update(Params{p}, noClip(0.1))

	// Bias correction makes the first step lr·g/|g|.
	assert.InDelta(t, 0.9, p.Data()[0], 1e-6)
	assert.Equal(t, []float32{0}, p.Gradient())
}

func TestAdamax_FirstStep(t *testing.T) {
	p := scalar(1, -0.5)
	NewAdamax(AdamaxConfig{}).Update(Params{p}, noClip(0.1))
	assert.InDelta(t, 1.1, p.Data()[0], 1e-5)
}

func TestAdamax_LargeGradientsStayFinite(t *testing.T) {
	p := scalar(0, 1e6)
	opt := NewAdamax(AdamaxConfig{})
	opt.Update(Params{p}, noClip(0.1))
	p.AccumulateGradient(0, 1e-6)
	opt.Update(Params{p}, noClip(0.1))

	assert.False(t, math.IsInf(float64(p.Data()[0]), 0))
	assert.Zero(t, opt.NaNCount())
}

func TestNesterov_Momentum(t *testing.T) {
	p := scalar(1, 1)
	opt := NewNesterov(NesterovConfig{})
	opt.Update(Params{p}, noClip(0.1))
	assert.InDelta(t, 0.99, p.Data()[0], 1e-6)

	p.AccumulateGradient(0, 1)
	opt.Update(Params{p}, noClip(0.1))
	// u2 = 0.1·0.1·1 + 0.9·0.01
	assert.InDelta(t, 0.99-0.019, p.Data()[0], 1e-6)
}

func TestRMSProp_Step(t *testing.T) {
	p := scalar(1, 2)
	NewRMSProp(RMSPropConfig{}).Update(Params{p}, noClip(0.1))
	assert.InDelta(t, 1-0.2/math.Sqrt(0.4), p.Data()[0], 1e-5)
}

func TestApply_RegularizationGainAndClip(t *testing.T) {
	var o Nesterov
	o.init("identity")
	identity := func(g float32, _, _ *float32) float32 { return g }

	p := scalar(2, 1)
	o.apply(Params{p}, Hyperparams{GradientGain: 3, L1: 0.5, L2: 0.25}, identity)
	// g = 1·3 + 0.5·sign(2) + 0.25·2 = 4
	assert.InDelta(t, -2, p.Data()[0], 1e-6)

	p = scalar(2, 1)
	o.apply(Params{p}, Hyperparams{GradientGain: 3, L1: 0.5, L2: 0.25, GradClip: 3}, identity)
	assert.InDelta(t, -1, p.Data()[0], 1e-6)

	p = scalar(-1, 2)
	o.apply(Params{p}, Hyperparams{GradClip: 0.5}, identity)
	assert.InDelta(t, -1.5, p.Data()[0], 1e-6, "zero gain counts as one, clip is symmetric")
}

func TestNaNUpdatesAreZeroed(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			logs.Reset()
			opt, err := New(name, logger)
			require.NoError(t, err)

			v := tensor.Full(tensor.MustShape(3), 1)
			v.AccumulateGradient(0, float32(math.NaN()))
			v.AccumulateGradient(1, 0.5)
			opt.Update(Params{v}, DefaultHyperparams())

			assert.Equal(t, float32(1), v.Data()[0], "NaN element left untouched")
			assert.NotEqual(t, float32(1), v.Data()[1])
			assert.Equal(t, uint64(1), opt.NaNCount())
			assert.Contains(t, logs.String(), "neutralized NaN updates")

			// The element recovers once its gradient is finite again.
			v.AccumulateGradient(0, 0.5)
			opt.Update(Params{v}, DefaultHyperparams())
			assert.False(t, math.IsNaN(float64(v.Data()[0])))
			assert.Less(t, v.Data()[0], float32(1))
			assert.Equal(t, uint64(1), opt.NaNCount())
		})
	}
}

// TestReset_MatchesFreshOptimizer trains with one optimizer, resets it,
// and checks it then tracks a brand-new optimizer step for step.
func TestReset_MatchesFreshOptimizer(t *testing.T) {
	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(1))
			shape := tensor.MustShape(2, 3)
			a := tensor.Random(shape, 1, rng)
			b := tensor.New(shape)

			used, err := New(name, nil)
			require.NoError(t, err)
			for k := 0; k < 5; k++ {
				for i := range a.Gradient() {
					a.AccumulateGradient(i, float32(rng.NormFloat64()))
				}
				used.Update(Params{a}, DefaultHyperparams())
			}

			used.Reset()
			fresh, err := New(name, nil)
			require.NoError(t, err)
			require.NoError(t, b.Import(a.Data()))

			for k := 0; k < 5; k++ {
				for i := range a.Gradient() {
					g := float32(rng.NormFloat64())
					a.AccumulateGradient(i, g)
					b.AccumulateGradient(i, g)
				}
				used.Update(Params{a}, DefaultHyperparams())
				fresh.Update(Params{b}, DefaultHyperparams())
				assert.Equal(t, b.Data(), a.Data())
			}
		})
	}
}

func TestUpdate_InferenceOnlyPanics(t *testing.T) {
	v := scalar(1, 1)
	v.ReleaseTrainingState()
	assert.PanicsWithError(t, "adam update of value (1,1,1): value is inference-only", func() {
		NewAdam(AdamConfig{}).Update(Params{v}, DefaultHyperparams())
	})
}

func TestUpdate_ManyValuesInParallel(t *testing.T) {
	params := make(Params, 100)
	for i := range params {
		params[i] = tensor.Full(tensor.MustShape(i+1), 1)
		for j := range params[i].Gradient() {
			params[i].AccumulateGradient(j, 1)
		}
	}

	NewNesterov(NesterovConfig{Momentum: 0.5}).Update(params, noClip(1))
	for _, p := range params {
		for _, w := range p.Data() {
			assert.InDelta(t, 0.5, w, 1e-6)
		}
		for _, g := range p.Gradient() {
			assert.Zero(t, g)
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range Names {
		opt, err := New(name, nil)
		require.NoError(t, err)
		assert.Equal(t, name, opt.Name())
	}
	_, err := New("ADAM", nil)
	assert.NoError(t, err)

	_, err = New("sgd", nil)
	assert.ErrorIs(t, err, ErrUnknownOptimizer)
}

func TestAdam_FitsLine(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	net, err := nn.NewNetwork(tensor.MustShape(1))
	require.NoError(t, err)
	require.NoError(t, net.AddLayer(nn.NewFeedForward(1, activation.Linear), rng))

	opt := NewAdam(AdamConfig{})
	hp := DefaultHyperparams()
	hp.LearningRate = 0.02
	g := autodiff.NewGraph(true)

	epoch := func() float32 {
		var total float32
		for _, x := range []float32{-1, -0.5, 0, 0.5, 1} {
			g.Restart(true)
			in := tensor.Full(tensor.MustShape(1), x)
			out, err := net.Forward(in, g)
			require.NoError(t, err)
			loss, err := nn.MeanSquared(out, tensor.Full(tensor.MustShape(1), 2*x+1))
			require.NoError(t, err)
			g.Backward()
			opt.Update(net, hp)
			total += loss
		}
		return total
	}

	first := epoch()
	var last float32
	for k := 0; k < 300; k++ {
		last = epoch()
	}
	assert.Less(t, last, first*0.05)
}
