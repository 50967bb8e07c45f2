// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides layers and networks trained through an autodiff Graph.
//
// # Overview
//
// This package contains:
//   - Layers: FeedForward, Convolutional, Pool, Activation, Recurrent,
//     Reshape, ComplexFeedForward
//   - Network: an ordered layer stack with shape propagation
//   - Loss functions: MeanSquared, SoftmaxCrossEntropy
//   - Persistence: Network.Save/Load and StateDict/LoadStateDict
//
// # Basic Usage
//
//	rng := rand.New(rand.NewSource(1))
//	net, _ := nn.NewNetwork(tensor.MustShape(2))
//	_ = net.AddLayer(nn.NewFeedForward(4, nn.Tanh), rng)
//	_ = net.AddLayer(nn.NewFeedForward(1, nn.Sigmoid), rng)
//
//	g := autodiff.NewGraph(true)
//	out, _ := net.Forward(x, g)
//	loss, _ := nn.MeanSquared(out, target)
//	g.Backward()
//	opt.Update(net, optim.DefaultHyperparams())
//
// # Initialization
//
// Weights are drawn from N(0, gain/fanIn) where gain depends on the
// layer's activation (2 for ReLU, 25/9 for tanh, 1 otherwise). A
// convolution directly followed by a layer with an activation is
// re-initialized with that activation's gain when the follower is added.
//
// # Recurrent state
//
// Recurrent layers carry hidden and cell state across Forward calls.
// Network.ResetState clears it between sequences; Network.Clone copies it
// so clones run independently.
package nn
