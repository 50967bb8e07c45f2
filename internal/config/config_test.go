package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tapenet/internal/nn"
	"github.com/born-ml/tapenet/internal/tensor"
)

const xorDoc = `
input: [2]
seed: 7
epochs: 100
loss: mse
layers:
  - kind: feedforward
    units: 4
    activation: tanh
  - kind: feedforward
    units: 1
    activation: sigmoid
optimizer:
  name: adam
  learning_rate: 0.05
`

const everyKindDoc = `
input: [6, 6, 2]
seed: 1
loss: cross_entropy
layers:
  - kind: convolutional
    filters: 2
    size: [3, 3]
    pad: 2
  - kind: activation
    activation: relu
  - kind: pool
    size: [2]
  - kind: reshape
    shape: [18]
  - kind: recurrent
    units: 4
  - kind: complex
    units: 2
  - kind: feedforward
    units: 3
    activation: softmax
    dropout: 0.2
optimizer:
  name: RMSProp
  grad_clip: 0
  decay: 0.8
`

func load(t *testing.T, doc string) *Config {
	t.Helper()
	c, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	return c
}

func TestLoad_XOR(t *testing.T) {
	c := load(t, xorDoc)
	assert.Equal(t, []int{2}, c.Input)
	assert.Equal(t, int64(7), c.Seed)
	assert.Equal(t, 100, c.Epochs)
	require.Len(t, c.Layers, 2)
	assert.Equal(t, "tanh", c.Layers[0].Activation)

	net, opt, err := c.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, net.Len())
	assert.Equal(t, tensor.MustShape(1), net.OutputShape())
	assert.Equal(t, "adam", opt.Name())
}

func TestBuild_EveryKind(t *testing.T) {
	c := load(t, everyKindDoc)
	net, opt, err := c.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, "rmsprop", opt.Name())

	kinds := make([]nn.Kind, 0, net.Len())
	for _, l := range net.Layers() {
		kinds = append(kinds, l.Kind())
	}
	assert.Equal(t, []nn.Kind{
		nn.KindConvolutional, nn.KindActivation, nn.KindPool, nn.KindReshape,
		nn.KindRecurrent, nn.KindComplexFeedForward, nn.KindFeedForward,
	}, kinds)

	conv := net.Layers()[0].(*nn.Convolutional)
	assert.Equal(t, 2, conv.Padding())
	assert.Equal(t, tensor.MustShape(6, 6, 2), conv.OutputShape())
	assert.Equal(t, tensor.MustShape(3, 3, 2), net.Layers()[2].OutputShape(), "pool stride defaults to its size")
	assert.Equal(t, tensor.MustShape(3), net.OutputShape())
}

func TestBuild_Deterministic(t *testing.T) {
	c := load(t, xorDoc)
	a, _, err := c.Build(nil)
	require.NoError(t, err)
	b, _, err := c.Build(nil)
	require.NoError(t, err)

	pa, pb := a.Parameters(), b.Parameters()
	require.Len(t, pb, len(pa))
	for i := range pa {
		assert.Equal(t, pa[i].Data(), pb[i].Data())
	}
}

func TestHyperparams(t *testing.T) {
	hp := load(t, xorDoc).Optimizer.Hyperparams()
	assert.Equal(t, float32(0.05), hp.LearningRate)
	assert.Equal(t, float32(5), hp.GradClip, "unset clip keeps the default")
	assert.Equal(t, float32(1), hp.GradientGain)

	hp = load(t, everyKindDoc).Optimizer.Hyperparams()
	assert.Equal(t, float32(0.001), hp.LearningRate)
	assert.Zero(t, hp.GradClip, "explicit zero disables clipping")
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"unknown field", xorDoc + "momentum_typo: 1\n"},
		{"rank four input", strings.Replace(xorDoc, "input: [2]", "input: [1, 2, 3, 4]", 1)},
		{"no layers", "input: [2]\noptimizer: {name: adam}\n"},
		{"unknown kind", strings.Replace(xorDoc, "kind: feedforward", "kind: dense", 1)},
		{"unknown activation", strings.Replace(xorDoc, "tanh", "swish", 1)},
		{"zero units", strings.Replace(xorDoc, "units: 4", "units: 0", 1)},
		{"unknown optimizer", strings.Replace(xorDoc, "name: adam", "name: sgd", 1)},
		{"unknown loss", strings.Replace(xorDoc, "loss: mse", "loss: hinge", 1)},
		{"negative epochs", strings.Replace(xorDoc, "epochs: 100", "epochs: -1", 1)},
		{"conv without size", "input: [4, 4, 1]\nlayers: [{kind: convolutional, filters: 1}]\noptimizer: {name: adam}\n"},
		{"one beta", xorDoc + "  betas: [0.9]\n"},
		{"dropout of one", strings.Replace(xorDoc, "units: 4", "units: 4\n    dropout: 1", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}

	_, err := Load(strings.NewReader(strings.Replace(xorDoc, "name: adam", "name: sgd", 1)))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBuild_ShapeErrors(t *testing.T) {
	doc := strings.Replace(everyKindDoc, "shape: [18]", "shape: [20]", 1)
	_, _, err := load(t, doc).Build(nil)
	assert.ErrorIs(t, err, tensor.ErrInvalidShape)

	doc = strings.Replace(everyKindDoc, "units: 4", "units: 3", 1)
	_, _, err = load(t, doc).Build(nil)
	assert.ErrorIs(t, err, tensor.ErrInvalidShape, "complex input depth must be even")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	require.NoError(t, os.WriteFile(path, []byte(xorDoc), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "adam", c.Optimizer.Name)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
