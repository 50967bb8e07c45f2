package config

import (
	"log/slog"
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/nn"
	"github.com/born-ml/tapenet/internal/optim"
	"github.com/born-ml/tapenet/internal/tensor"
)

// Build constructs the network and optimizer the config describes.
// Weights and dropout masks draw from a source seeded with c.Seed, so two
// builds of the same document are identical. logger may be nil.
func (c *Config) Build(logger *slog.Logger) (*nn.Network, optim.Optimizer, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	rng := rand.New(rand.NewSource(c.Seed))

	net, err := nn.NewNetwork(tensor.MustShape(c.Input...))
	if err != nil {
		return nil, nil, err
	}
	for i := range c.Layers {
		layer, err := c.Layers[i].build(rng)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "layer %d", i)
		}
		if err := net.AddLayer(layer, rng); err != nil {
			return nil, nil, err
		}
	}
	return net, c.Optimizer.build(logger), nil
}

func (l *LayerConfig) build(rng *rand.Rand) (nn.Layer, error) {
	kind, err := nn.ParseKind(l.Kind)
	if err != nil {
		return nil, err
	}
	act, err := activation.Parse(l.Activation)
	if err != nil {
		return nil, err
	}
	stride := max(l.Stride, 1)

	switch kind {
	case nn.KindFeedForward:
		ff := nn.NewFeedForward(l.Units, act)
		if l.Dropout > 0 {
			if err := ff.SetDropout(l.Dropout, rng); err != nil {
				return nil, err
			}
		}
		return ff, nil
	case nn.KindConvolutional:
		conv := nn.NewConvolutional(l.Filters, l.Size[0], l.Size[1])
		if err := conv.SetStride(stride); err != nil {
			return nil, err
		}
		if err := conv.SetPadding(l.Pad); err != nil {
			return nil, err
		}
		return conv, nil
	case nn.KindPool:
		if l.Stride == 0 {
			stride = l.Size[0]
		}
		return nn.NewPool(l.Size[0], stride), nil
	case nn.KindActivation:
		return nn.NewActivation(act), nil
	case nn.KindRecurrent:
		return nn.NewRecurrent(l.Units), nil
	case nn.KindReshape:
		scale := l.GradScale
		if scale == 0 {
			scale = 1
		}
		return nn.NewReshape(tensor.MustShape(l.Shape...), scale), nil
	case nn.KindComplexFeedForward:
		return nn.NewComplexFeedForward(l.Units, act), nil
	}
	return nil, errors.Wrapf(nn.ErrUnknownKind, "%v", kind)
}

// build assumes validate has accepted the name.
func (o *OptimizerConfig) build(logger *slog.Logger) optim.Optimizer {
	var betas [2]float64
	copy(betas[:], o.Betas)

	switch strings.ToLower(o.Name) {
	case "adamax":
		return optim.NewAdamax(optim.AdamaxConfig{Betas: betas, Eps: o.Eps}).WithLogger(logger)
	case "nesterov":
		return optim.NewNesterov(optim.NesterovConfig{Momentum: o.Momentum}).WithLogger(logger)
	case "rmsprop":
		return optim.NewRMSProp(optim.RMSPropConfig{Decay: o.Decay, Eps: float32(o.Eps)}).WithLogger(logger)
	default:
		return optim.NewAdam(optim.AdamConfig{Betas: betas, Eps: o.Eps}).WithLogger(logger)
	}
}
