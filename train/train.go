// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import (
	"fmt"
	"io"
)

// Evaluation computes the training loss at params and writes the gradient
// into g. The two slices have equal length; g is zeroed by the caller
// before each call.
type Evaluation func(params, g []float64) (loss float64)

// FitConfig configures a fitting run.
type FitConfig struct {
	// Steps is the fixed number of optimization steps. It must be
	// positive.
	Steps int
	// Schedule overrides the optimizer's learning rate per step. Nil
	// keeps the optimizer's own rate.
	Schedule Schedule
	// LogEvery emits a loss line every that many steps to Log. Zero
	// disables logging.
	LogEvery int
	// Log receives progress lines when LogEvery is set.
	Log io.Writer
}

// FitResult summarizes a fitting run.
type FitResult struct {
	// Steps is the number of steps performed.
	Steps int
	// FinalLoss is the loss at the last evaluation.
	FinalLoss float64
	// Losses holds the loss at every step, in order.
	Losses []float64
}

// Fit runs a fixed number of optimization steps, updating params in place.
func Fit(params []float64, eval Evaluation, opt Optimizer, cfg FitConfig) (FitResult, error) {
	if eval == nil {
		return FitResult{}, fmt.Errorf("train: evaluation function is required")
	}
	if opt == nil {
		return FitResult{}, fmt.Errorf("train: optimizer is required")
	}
	if cfg.Steps <= 0 {
		return FitResult{}, fmt.Errorf("train: step count %d must be positive", cfg.Steps)
	}

	grads := make([]float64, len(params))
	res := FitResult{Losses: make([]float64, 0, cfg.Steps)}
	for step := 0; step < cfg.Steps; step++ {
		if cfg.Schedule != nil {
			opt.SetLR(cfg.Schedule.LearningRate(step))
		}
		for i := range grads {
			grads[i] = 0
		}
		loss := eval(params, grads)
		opt.Step(params, grads)

		res.Steps++
		res.FinalLoss = loss
		res.Losses = append(res.Losses, loss)
		if cfg.LogEvery > 0 && cfg.Log != nil && (step+1)%cfg.LogEvery == 0 {
			fmt.Fprintf(cfg.Log, "step %6d  loss %.6e  lr %.3e\n", step+1, loss, opt.LR())
		}
	}
	return res, nil
}
