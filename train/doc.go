// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train provides training-loop utilities for learned denoisers and
// regularizers: learning rate schedules, gradient-based optimizers over
// flat parameter slices, reconstruction quality metrics, and a fixed-step
// fitting loop.
//
// The package is deliberately agnostic to model architecture and automatic
// differentiation: the caller supplies an Evaluation closure that computes
// the loss and writes the gradient, however those are obtained.
//
// # Basic Usage
//
//	opt := train.NewAdam(train.AdamConfig{LR: 1e-3})
//	sched := &train.CosineDecay{Base: 1e-3, WarmupSteps: 100, DecaySteps: 1000}
//
//	res, err := train.Fit(params, eval, opt, train.FitConfig{
//	    Steps:    1000,
//	    Schedule: sched,
//	})
package train
