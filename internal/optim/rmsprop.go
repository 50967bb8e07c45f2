package optim

import (
	"log/slog"
	"math"
)

// RMSProp scales each step by a running average of squared gradients:
//
//	cache = decay * cache + (1-decay) * g²
//	w = w - lr * g / sqrt(cache + eps)
type RMSProp struct {
	base
	decay float32
	eps   float32
}

// RMSPropConfig holds configuration for the RMSProp optimizer.
type RMSPropConfig struct {
	Decay float32 // default: 0.9
	Eps   float32 // default: 1e-8
}

// NewRMSProp creates a new RMSProp optimizer.
func NewRMSProp(config RMSPropConfig) *RMSProp {
	if config.Decay == 0 {
		config.Decay = 0.9
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	o := &RMSProp{decay: config.Decay, eps: config.Eps}
	o.init("rmsprop")
	return o
}

// WithLogger sets the logger used to report neutralized NaN updates.
func (o *RMSProp) WithLogger(l *slog.Logger) *RMSProp {
	o.logger = l
	return o
}

// Update implements Optimizer.
func (o *RMSProp) Update(src ParameterSource, hp Hyperparams) {
	d, eps, lr := o.decay, o.eps, hp.LearningRate
	o.apply(src, hp, func(g float32, _, cache *float32) float32 {
		*cache = d**cache + (1-d)*g*g
		return lr * g / float32(math.Sqrt(float64(*cache+eps)))
	})
}

// Reset implements Optimizer.
func (o *RMSProp) Reset() { o.resetToken() }
