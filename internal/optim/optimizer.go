// Package optim implements the gradient-based update rules for network
// parameters.
//
// This package provides:
//   - Optimizer interface: Update, Reset, Name, NaNCount
//   - Adam, Adamax, Nesterov, RMSProp
//   - Hyperparams: learning rate, clipping, L1/L2 and gradient gain
//
// Every optimizer treats each parameter element the same way:
//
//	g = grad·gain + l1·sign(w) + l2·w
//	g = clip(g, -gradClip, gradClip)        // when gradClip > 0
//	u = rule(g)                             // variant specific
//	u = 0 if u is NaN
//	w = w - u
//
// and clears the gradient afterwards. Parameter values are updated in
// parallel, one task per value.
//
// Example usage:
//
//	opt := optim.NewAdam(optim.AdamConfig{})
//	hp := optim.DefaultHyperparams()
//
//	for step := range steps {
//	    g.Restart(true)
//	    out, _ := net.Forward(x, g)
//	    _, _ = nn.MeanSquared(out, target)
//	    g.Backward()
//	    opt.Update(net, hp)
//	}
package optim

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/parallel"
	"github.com/born-ml/tapenet/internal/tensor"
)

// ParameterSource supplies the values an optimizer updates.
// *nn.Network implements it.
type ParameterSource interface {
	Parameters() []*tensor.Value
}

// Params adapts a plain slice to ParameterSource.
type Params []*tensor.Value

// Parameters implements ParameterSource.
func (p Params) Parameters() []*tensor.Value { return p }

// Hyperparams are the per-update knobs shared by every optimizer.
type Hyperparams struct {
	LearningRate float32 // Step size
	GradClip     float32 // Clip g to [-GradClip, GradClip]; <= 0 disables clipping
	L1           float32 // L1 penalty coefficient
	L2           float32 // L2 penalty coefficient
	GradientGain float32 // Multiplies the raw gradient; 0 is treated as 1
}

// DefaultHyperparams returns lr 0.001, clip 5, no regularization, gain 1.
func DefaultHyperparams() Hyperparams {
	return Hyperparams{
		LearningRate: 0.001,
		GradClip:     5,
		GradientGain: 1,
	}
}

// Optimizer is the interface shared by all update rules.
//
// An optimizer does not hold the parameters it updates. Moment buffers
// live on the values themselves, tagged with the optimizer's token, so
// the same optimizer can be pointed at any parameter list.
type Optimizer interface {
	// Update applies one step to every parameter of src and clears its
	// gradient. Panics with ErrInferenceOnly if a parameter's training
	// state was released.
	Update(src ParameterSource, hp Hyperparams)

	// Reset forgets bias-correction powers and moments, so the next
	// Update behaves like the first update of a new optimizer.
	Reset()

	// Name returns a short human-readable name.
	Name() string

	// NaNCount returns how many element updates were NaN and replaced by
	// zero since the optimizer was created.
	NaNCount() uint64
}

var tokens atomic.Uint64

func nextToken() uint64 {
	return tokens.Add(1)
}

// rule computes the update for one element given the regularized,
// clipped gradient g and that element's two moment slots.
type rule func(g float32, m1, m2 *float32) float32

// base holds what every variant shares: the moment token, the NaN
// counter, the logger and the worker configuration.
type base struct {
	name   string
	token  uint64
	nans   atomic.Uint64
	logger *slog.Logger
	pool   parallel.Config
}

func (b *base) init(name string) {
	b.name, b.token, b.pool = name, nextToken(), parallel.DefaultConfig()
}

// Name implements Optimizer.
func (b *base) Name() string { return b.name }

// NaNCount implements Optimizer.
func (b *base) NaNCount() uint64 { return b.nans.Load() }

func (b *base) resetToken() { b.token = nextToken() }

// apply runs step over every element of every parameter, one task per value.
func (b *base) apply(src ParameterSource, hp Hyperparams, step rule) {
	params := src.Parameters()
	for _, p := range params {
		if p.InferenceOnly() {
			panic(errors.Wrapf(tensor.ErrInferenceOnly, "%s update of value %v", b.name, p.Shape()))
		}
	}

	gain := hp.GradientGain
	if gain == 0 {
		gain = 1
	}

	var nans atomic.Uint64
	parallel.Tasks(len(params), func(k int) {
		p := params[k]
		m1, m2 := p.Moments(b.token)
		w, grad := p.Data(), p.Gradient()

		var bad uint64
		for i := range w {
			g := grad[i]*gain + hp.L1*sign(w[i]) + hp.L2*w[i]
			if hp.GradClip > 0 {
				g = min(max(g, -hp.GradClip), hp.GradClip)
			}
			u := step(g, &m1[i], &m2[i])
			if math.IsNaN(float64(u)) {
				// Clear the moments too, otherwise the NaN persists.
				u, m1[i], m2[i] = 0, 0, 0
				bad++
			}
			w[i] -= u
		}
		p.ClearGradient()
		if bad > 0 {
			nans.Add(bad)
		}
	}, b.pool)

	if n := nans.Load(); n > 0 {
		total := b.nans.Add(n)
		if b.logger != nil {
			b.logger.Warn("neutralized NaN updates", "optimizer", b.name, "count", n, "total", total)
		}
	}
}

func sign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
