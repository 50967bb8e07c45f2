// Package config reads network and training descriptions from YAML.
//
// A document names the input shape, the layer stack in order, the
// optimizer with its hyperparameters, the loss, the random seed and the
// number of epochs:
//
//	input: [2]
//	seed: 7
//	epochs: 2000
//	loss: mse
//	layers:
//	  - kind: feedforward
//	    units: 4
//	    activation: tanh
//	  - kind: feedforward
//	    units: 1
//	    activation: sigmoid
//	optimizer:
//	  name: adam
//	  learning_rate: 0.05
//
// Unknown fields are rejected. Zero values take the same defaults the
// optimizer constructors apply.
package config

import (
	"io"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/tapenet/internal/activation"
	"github.com/born-ml/tapenet/internal/nn"
	"github.com/born-ml/tapenet/internal/optim"
	"github.com/born-ml/tapenet/internal/tensor"
)

// ErrInvalid reports a document that decodes but cannot describe a network.
var ErrInvalid = errors.New("invalid config")

// Loss names.
const (
	LossMeanSquared  = "mse"
	LossCrossEntropy = "cross_entropy"
)

// Config is a complete training description.
type Config struct {
	Input     []int           `yaml:"input"`
	Seed      int64           `yaml:"seed"`
	Epochs    int             `yaml:"epochs"`
	Loss      string          `yaml:"loss"`
	Layers    []LayerConfig   `yaml:"layers"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// LayerConfig describes one layer. Which fields apply depends on Kind.
type LayerConfig struct {
	Kind       string  `yaml:"kind"`
	Units      int     `yaml:"units,omitempty"`      // feedforward, recurrent, complex
	Activation string  `yaml:"activation,omitempty"` // feedforward, activation, complex
	Dropout    float64 `yaml:"dropout,omitempty"`    // feedforward
	Filters    int     `yaml:"filters,omitempty"`    // convolutional
	Size       []int   `yaml:"size,omitempty"`       // convolutional [h, w]; pool [n]
	Stride     int     `yaml:"stride,omitempty"`     // convolutional, pool
	Pad        int     `yaml:"pad,omitempty"`        // convolutional
	Shape      []int   `yaml:"shape,omitempty"`      // reshape
	GradScale  float32 `yaml:"grad_scale,omitempty"` // reshape; 0 means 1
}

// OptimizerConfig selects an optimizer and its hyperparameters.
type OptimizerConfig struct {
	Name         string   `yaml:"name"`
	LearningRate float32  `yaml:"learning_rate"`
	GradClip     *float32 `yaml:"grad_clip"` // nil keeps the default, 0 disables
	L1           float32  `yaml:"l1"`
	L2           float32  `yaml:"l2"`
	GradientGain float32  `yaml:"gradient_gain"`

	Betas    []float64 `yaml:"betas,omitempty"`    // adam, adamax
	Eps      float64   `yaml:"eps,omitempty"`      // adam, adamax, rmsprop
	Momentum float32   `yaml:"momentum,omitempty"` // nesterov
	Decay    float32   `yaml:"decay,omitempty"`    // rmsprop
}

// Load decodes and validates a document.
func Load(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Config
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Wrap(ErrInvalid, "empty document")
		}
		return nil, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadFile is Load on the named file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return c, nil
}

// Validate checks every field that can be checked without building the
// network. Shape compatibility between layers is left to Build.
func (c *Config) Validate() error {
	if _, err := tensor.ShapeOf(c.Input...); err != nil {
		return errors.Wrapf(ErrInvalid, "input %v: %v", c.Input, err)
	}
	if c.Epochs < 0 {
		return errors.Wrapf(ErrInvalid, "epochs %d", c.Epochs)
	}
	switch c.Loss {
	case "", LossMeanSquared, LossCrossEntropy:
	default:
		return errors.Wrapf(ErrInvalid, "loss %q (want %s or %s)", c.Loss, LossMeanSquared, LossCrossEntropy)
	}
	if len(c.Layers) == 0 {
		return errors.Wrap(ErrInvalid, "no layers")
	}
	for i := range c.Layers {
		if err := c.Layers[i].validate(); err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
	}
	return c.Optimizer.validate()
}

func (l *LayerConfig) validate() error {
	kind, err := nn.ParseKind(l.Kind)
	if err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}
	if _, err := activation.Parse(l.Activation); err != nil {
		return errors.Wrap(ErrInvalid, err.Error())
	}

	switch kind {
	case nn.KindFeedForward, nn.KindRecurrent, nn.KindComplexFeedForward:
		if l.Units <= 0 {
			return errors.Wrapf(ErrInvalid, "%s: units %d", kind, l.Units)
		}
		if l.Dropout < 0 || l.Dropout >= 1 {
			return errors.Wrapf(ErrInvalid, "%s: dropout %v not in [0, 1)", kind, l.Dropout)
		}
	case nn.KindConvolutional:
		if l.Filters <= 0 || len(l.Size) != 2 {
			return errors.Wrapf(ErrInvalid, "convolutional: filters %d, size %v (want [h, w])", l.Filters, l.Size)
		}
	case nn.KindPool:
		if len(l.Size) != 1 {
			return errors.Wrapf(ErrInvalid, "pool: size %v (want [n])", l.Size)
		}
	case nn.KindReshape:
		if _, err := tensor.ShapeOf(l.Shape...); err != nil {
			return errors.Wrapf(ErrInvalid, "reshape: shape %v: %v", l.Shape, err)
		}
	}
	if l.Stride < 0 || l.Pad < 0 {
		return errors.Wrapf(ErrInvalid, "%s: stride %d, pad %d", kind, l.Stride, l.Pad)
	}
	return nil
}

func (o *OptimizerConfig) validate() error {
	if !slices.Contains(optim.Names, strings.ToLower(o.Name)) {
		return errors.Wrapf(ErrInvalid, "optimizer %q (want one of %s)", o.Name, strings.Join(optim.Names, ", "))
	}
	if o.LearningRate < 0 {
		return errors.Wrapf(ErrInvalid, "learning rate %v", o.LearningRate)
	}
	if o.GradClip != nil && *o.GradClip < 0 {
		return errors.Wrapf(ErrInvalid, "grad clip %v", *o.GradClip)
	}
	if len(o.Betas) != 0 && len(o.Betas) != 2 {
		return errors.Wrapf(ErrInvalid, "betas %v (want two)", o.Betas)
	}
	for _, b := range o.Betas {
		if b <= 0 || b >= 1 {
			return errors.Wrapf(ErrInvalid, "beta %v not in (0, 1)", b)
		}
	}
	return nil
}

// Hyperparams returns the per-update hyperparameters with defaults filled in.
func (o *OptimizerConfig) Hyperparams() optim.Hyperparams {
	hp := optim.DefaultHyperparams()
	if o.LearningRate > 0 {
		hp.LearningRate = o.LearningRate
	}
	if o.GradClip != nil {
		hp.GradClip = *o.GradClip
	}
	if o.GradientGain != 0 {
		hp.GradientGain = o.GradientGain
	}
	hp.L1, hp.L2 = o.L1, o.L2
	return hp
}
