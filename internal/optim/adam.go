package optim

import (
	"log/slog"
	"math"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * g          // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * g²         // Second moment
//	m_hat = m_t / (1 - beta1^t)                    // Bias correction
//	v_hat = v_t / (1 - beta2^t)                    // Bias correction
//	w = w - lr * m_hat / (sqrt(v_hat) + eps)
//
// beta1^t and beta2^t are kept as running powers, multiplied once per
// Update.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	base
	beta1, beta2 float64
	eps          float64
	pow1, pow2   float64
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	Betas [2]float64 // Coefficients for the running averages (default: [0.9, 0.999])
	Eps   float64    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer. Zero fields take their defaults.
func NewAdam(config AdamConfig) *Adam {
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	o := &Adam{
		beta1: config.Betas[0],
		beta2: config.Betas[1],
		eps:   config.Eps,
		pow1:  1,
		pow2:  1,
	}
	o.init("adam")
	return o
}

// WithLogger sets the logger used to report neutralized NaN updates.
func (o *Adam) WithLogger(l *slog.Logger) *Adam {
	o.logger = l
	return o
}

// Update implements Optimizer.
func (o *Adam) Update(src ParameterSource, hp Hyperparams) {
	o.pow1 *= o.beta1
	o.pow2 *= o.beta2
	c1, c2 := 1-o.pow1, 1-o.pow2
	b1, b2, lr := float32(o.beta1), float32(o.beta2), float64(hp.LearningRate)

	o.apply(src, hp, func(g float32, m, v *float32) float32 {
		*m = b1**m + (1-b1)*g
		*v = b2**v + (1-b2)*g*g
		mHat := float64(*m) / c1
		vHat := float64(*v) / c2
		return float32(lr * mHat / (math.Sqrt(vHat) + o.eps))
	})
}

// Reset implements Optimizer.
func (o *Adam) Reset() {
	o.pow1, o.pow2 = 1, 1
	o.resetToken()
}
