// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tapenet/autodiff"
	"github.com/born-ml/tapenet/nn"
	"github.com/born-ml/tapenet/optim"
	"github.com/born-ml/tapenet/tensor"
)

func TestPublicAPI_LearnsXOR(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	net, err := nn.NewNetwork(tensor.MustShape(2))
	require.NoError(t, err)
	require.NoError(t, net.AddLayer(nn.NewFeedForward(6, nn.Tanh), rng))
	require.NoError(t, net.AddLayer(nn.NewFeedForward(1, nn.Sigmoid), rng))

	inputs := [][]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	targets := []float32{0, 1, 1, 0}

	opt := optim.NewAdam(optim.AdamConfig{})
	hp := optim.DefaultHyperparams()
	hp.LearningRate = 0.05
	g := autodiff.NewGraph(true)

	for i := 0; i < 1500; i++ {
		for i, in := range inputs {
			x, err := tensor.FromSlice(net.InputShape(), in)
			require.NoError(t, err)
			g.Restart(true)
			out, err := net.Forward(x, g)
			require.NoError(t, err)
			_, err = nn.MeanSquared(out, tensor.Full(out.Shape(), targets[i]))
			require.NoError(t, err)
			g.Backward()
			opt.Update(net, hp)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, net.Save(&buf, nil))
	loaded, err := nn.NewNetwork(tensor.MustShape(2))
	require.NoError(t, err)
	require.NoError(t, loaded.AddLayer(nn.NewFeedForward(6, nn.Tanh), rng))
	require.NoError(t, loaded.AddLayer(nn.NewFeedForward(1, nn.Sigmoid), rng))
	_, err = loaded.Load(&buf)
	require.NoError(t, err)
	loaded.ReleaseTrainingState()

	infer := autodiff.NewGraph(false)
	for i, in := range inputs {
		x, err := tensor.FromSlice(loaded.InputShape(), in)
		require.NoError(t, err)
		out, err := loaded.Forward(x, infer)
		require.NoError(t, err)
		assert.InDelta(t, targets[i], out.Data()[0], 0.2, "input %v", in)
	}
}

func TestPublicAPI_ShapeErrors(t *testing.T) {
	_, err := tensor.ShapeOf(1, 2, 3, 4)
	assert.ErrorIs(t, err, tensor.ErrInvalidShape)

	net, err := nn.NewNetwork(tensor.MustShape(4, 4, 1))
	require.NoError(t, err)
	err = net.AddLayer(nn.NewConvolutional(1, 5, 5), rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, tensor.ErrInvalidShape)

	_, err = net.Forward(tensor.New(tensor.MustShape(4, 4, 1)), autodiff.NewGraph(false))
	assert.ErrorIs(t, err, nn.ErrEmptyNetwork)

	_, err = optim.New("lbfgs", nil)
	assert.ErrorIs(t, err, optim.ErrUnknownOptimizer)
}
