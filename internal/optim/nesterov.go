package optim

import "log/slog"

// Nesterov applies momentum to the update itself:
//
//	u_t = (1-momentum) * lr * g + momentum * u_{t-1}
//	w = w - u_t
type Nesterov struct {
	base
	momentum float32
}

// NesterovConfig holds configuration for the Nesterov optimizer.
type NesterovConfig struct {
	Momentum float32 // default: 0.9
}

// NewNesterov creates a new Nesterov optimizer.
func NewNesterov(config NesterovConfig) *Nesterov {
	if config.Momentum == 0 {
		config.Momentum = 0.9
	}
	o := &Nesterov{momentum: config.Momentum}
	o.init("nesterov")
	return o
}

// WithLogger sets the logger used to report neutralized NaN updates.
func (o *Nesterov) WithLogger(l *slog.Logger) *Nesterov {
	o.logger = l
	return o
}

// Update implements Optimizer.
func (o *Nesterov) Update(src ParameterSource, hp Hyperparams) {
	mu, lr := o.momentum, hp.LearningRate
	o.apply(src, hp, func(g float32, prev, _ *float32) float32 {
		*prev = (1-mu)*lr*g + mu**prev
		return *prev
	})
}

// Reset implements Optimizer.
func (o *Nesterov) Reset() { o.resetToken() }
