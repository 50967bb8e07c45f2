package optim

import (
	"log/slog"
	"math"
)

// AdamaxNorm is the exponent p of the ℓp norm Adamax tracks in place of
// the second moment.
const AdamaxNorm = 10

// Adamax is Adam with the second moment replaced by an ℓp norm of the
// gradient history, p = AdamaxNorm:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * g
//	u_t = (beta2^p * u_{t-1}^p + (1-beta2^p) * |g|^p)^(1/p)
//	w = w - lr * m_hat / (u_t / (1 - beta2^(p·t))^(1/p) + eps)
//
// u is stored as the p-th root, so the buffer stays in float32 range
// for any gradient the clip lets through.
type Adamax struct {
	base
	beta1, beta2p float64
	eps           float64
	pow1, pow2p   float64
}

// AdamaxConfig holds configuration for the Adamax optimizer.
type AdamaxConfig struct {
	Betas [2]float64 // default: [0.9, 0.999]
	Eps   float64    // default: 1e-8
}

// NewAdamax creates a new Adamax optimizer. Zero fields take their defaults.
func NewAdamax(config AdamaxConfig) *Adamax {
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	o := &Adamax{
		beta1:  config.Betas[0],
		beta2p: math.Pow(config.Betas[1], AdamaxNorm),
		eps:    config.Eps,
		pow1:   1,
		pow2p:  1,
	}
	o.init("adamax")
	return o
}

// WithLogger sets the logger used to report neutralized NaN updates.
func (o *Adamax) WithLogger(l *slog.Logger) *Adamax {
	o.logger = l
	return o
}

// Update implements Optimizer.
func (o *Adamax) Update(src ParameterSource, hp Hyperparams) {
	o.pow1 *= o.beta1
	o.pow2p *= o.beta2p
	c1 := 1 - o.pow1
	c2 := math.Pow(1-o.pow2p, 1.0/AdamaxNorm)
	b1, lr := float32(o.beta1), float64(hp.LearningRate)

	o.apply(src, hp, func(g float32, m, u *float32) float32 {
		*m = b1**m + (1-b1)*g
		prev := float64(*u)
		mag := math.Abs(float64(g))
		// Factor out the larger term so neither power overflows.
		if scale := math.Max(prev, mag); scale > 0 {
			a, b := prev/scale, mag/scale
			*u = float32(scale * math.Pow(o.beta2p*math.Pow(a, AdamaxNorm)+(1-o.beta2p)*math.Pow(b, AdamaxNorm), 1.0/AdamaxNorm))
		}
		return float32(lr * (float64(*m) / c1) / (float64(*u)/c2 + o.eps))
	})
}

// Reset implements Optimizer.
func (o *Adamax) Reset() {
	o.pow1, o.pow2p = 1, 1
	o.resetToken()
}
