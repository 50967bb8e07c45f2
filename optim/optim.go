// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers that update a network's parameters
// from their accumulated gradients.
//
// Every optimizer shares one per-element pipeline:
//
//	g = grad*gain + l1*sign(w) + l2*w
//	g = clip(g, ±GradClip)          // when GradClip > 0
//	u = rule(g, moments)            // NaN becomes 0 and is counted
//	w = w - u
//
// and clears each gradient after use.
//
// Example:
//
//	opt := optim.NewAdam(optim.AdamConfig{})
//	hp := optim.DefaultHyperparams()
//	hp.LearningRate = 0.01
//	opt.Update(net, hp)
package optim

import (
	"log/slog"

	"github.com/born-ml/tapenet/internal/optim"
)

// Optimizer updates parameters from their gradients.
type Optimizer = optim.Optimizer

// ParameterSource is anything exposing trainable values, such as a Network.
type ParameterSource = optim.ParameterSource

// Params adapts a plain slice of values to ParameterSource.
type Params = optim.Params

// Hyperparams are the per-update settings shared by every optimizer.
type Hyperparams = optim.Hyperparams

// DefaultHyperparams returns learning rate 0.001, gradient clip 5 and gain 1.
func DefaultHyperparams() Hyperparams {
	return optim.DefaultHyperparams()
}

// ErrUnknownOptimizer is returned by New for an unrecognized name.
var ErrUnknownOptimizer = optim.ErrUnknownOptimizer

// New creates an optimizer by name ("adam", "adamax", "nesterov" or
// "rmsprop") with default configuration.
func New(name string, logger *slog.Logger) (Optimizer, error) {
	return optim.New(name, logger)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for the Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer with bias correction.
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}

// Adamax

// Adamax represents Adam with a high-order second moment.
type Adamax = optim.Adamax

// AdamaxConfig contains configuration for the Adamax optimizer.
type AdamaxConfig = optim.AdamaxConfig

// NewAdamax creates a new Adamax optimizer.
func NewAdamax(config AdamaxConfig) *Adamax {
	return optim.NewAdamax(config)
}

// Nesterov momentum

// Nesterov represents momentum applied to the update.
type Nesterov = optim.Nesterov

// NesterovConfig contains configuration for the Nesterov optimizer.
type NesterovConfig = optim.NesterovConfig

// NewNesterov creates a new Nesterov optimizer.
func NewNesterov(config NesterovConfig) *Nesterov {
	return optim.NewNesterov(config)
}

// RMSProp

// RMSProp represents the RMSProp optimizer.
type RMSProp = optim.RMSProp

// RMSPropConfig contains configuration for the RMSProp optimizer.
type RMSPropConfig = optim.RMSPropConfig

// NewRMSProp creates a new RMSProp optimizer.
func NewRMSProp(config RMSPropConfig) *RMSProp {
	return optim.NewRMSProp(config)
}
