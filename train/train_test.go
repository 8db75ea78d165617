// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSGDStep(t *testing.T) {
	opt := NewSGD(SGDConfig{LR: 0.1})
	params := []float64{2.0}
	opt.Step(params, []float64{1.0})
	assert.InDelta(t, 1.9, params[0], 1e-12)
}

func TestSGDMomentum(t *testing.T) {
	opt := NewSGD(SGDConfig{LR: 0.1, Momentum: 0.9})
	params := []float64{0.0}

	opt.Step(params, []float64{1.0})
	// velocity = 1, param = -0.1
	assert.InDelta(t, -0.1, params[0], 1e-12)

	opt.Step(params, []float64{1.0})
	// velocity = 0.9 + 1 = 1.9, param = -0.1 - 0.19 = -0.29
	assert.InDelta(t, -0.29, params[0], 1e-12)
}

func TestSGDDefaults(t *testing.T) {
	opt := NewSGD(SGDConfig{})
	assert.Equal(t, 0.01, opt.LR())
	opt.SetLR(0.5)
	assert.Equal(t, 0.5, opt.LR())
}

func TestAdamFirstStep(t *testing.T) {
	opt := NewAdam(AdamConfig{LR: 0.001})
	params := []float64{1.0}
	opt.Step(params, []float64{2.0})

	// After bias correction the first step has magnitude lr regardless of
	// gradient scale: mHat = g, vHat = g², update = lr * g / (|g| + eps).
	assert.InDelta(t, 1.0-0.001, params[0], 1e-9)
	assert.Equal(t, 1, opt.Timestep())
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	opt := NewAdam(AdamConfig{LR: 0.05})
	params := []float64{5.0}
	for i := 0; i < 2000; i++ {
		grad := 2 * (params[0] - 3)
		opt.Step(params, []float64{grad})
	}
	// Adam hovers near the optimum within a step-size neighborhood.
	assert.InDelta(t, 3.0, params[0], 0.1)
}

func TestConstantSchedule(t *testing.T) {
	s := Constant{LR: 0.3}
	assert.Equal(t, 0.3, s.LearningRate(0))
	assert.Equal(t, 0.3, s.LearningRate(1000))
}

func TestCosineDecaySchedule(t *testing.T) {
	s := &CosineDecay{Base: 1.0, WarmupSteps: 10, DecaySteps: 100}

	assert.Equal(t, 0.0, s.LearningRate(0))
	assert.InDelta(t, 0.5, s.LearningRate(5), 1e-12)
	assert.InDelta(t, 1.0, s.LearningRate(10), 1e-12)
	// Midpoint of the cosine decay.
	assert.InDelta(t, 0.5, s.LearningRate(60), 1e-12)
	// Fully decayed, and clamped beyond the decay horizon.
	assert.InDelta(t, 0.0, s.LearningRate(110), 1e-12)
	assert.InDelta(t, 0.0, s.LearningRate(500), 1e-12)
}

func TestCosineDecayNoWarmup(t *testing.T) {
	s := &CosineDecay{Base: 2.0, DecaySteps: 10}
	assert.InDelta(t, 2.0, s.LearningRate(0), 1e-12)
	assert.InDelta(t, 1.0, s.LearningRate(5), 1e-12)
}

func TestMetrics(t *testing.T) {
	ref := []float64{3, 4}

	assert.InDelta(t, 0.0, MSE(ref, ref), 1e-14)
	assert.InDelta(t, 0.5, MSE([]float64{4, 4}, ref), 1e-14)

	// ||ref||² = 25, ||err||² = 1.
	assert.InDelta(t, 10*math.Log10(25), SNR([]float64{4, 4}, ref), 1e-12)
	assert.True(t, math.IsInf(SNR(ref, ref), 1))

	assert.True(t, math.IsInf(PSNR(ref, ref), 1))
	// peak = 1, mse = 0.5.
	assert.InDelta(t, -10*math.Log10(0.5), PSNR([]float64{4, 4}, ref), 1e-12)

	assert.Panics(t, func() { MSE([]float64{1}, ref) })
	assert.Panics(t, func() { SNR([]float64{1}, ref) })
}

func TestFitConvergesOnQuadratic(t *testing.T) {
	// min (p - 3)²
	eval := func(params, g []float64) float64 {
		d := params[0] - 3
		g[0] = 2 * d
		return d * d
	}

	params := []float64{0.0}
	res, err := Fit(params, eval, NewSGD(SGDConfig{LR: 0.1}), FitConfig{Steps: 200})
	require.NoError(t, err)

	assert.Equal(t, 200, res.Steps)
	assert.Len(t, res.Losses, 200)
	assert.InDelta(t, 3.0, params[0], 1e-3)
	assert.Less(t, res.FinalLoss, 1e-6)
	assert.Less(t, res.Losses[199], res.Losses[0])
}

func TestFitAppliesSchedule(t *testing.T) {
	opt := NewSGD(SGDConfig{LR: 99})
	eval := func(params, g []float64) float64 { return 0 }

	_, err := Fit([]float64{0}, eval, opt, FitConfig{
		Steps:    3,
		Schedule: Constant{LR: 0.25},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.25, opt.LR())
}

func TestFitLogsProgress(t *testing.T) {
	var buf bytes.Buffer
	eval := func(params, g []float64) float64 { return 1.5 }

	_, err := Fit([]float64{0}, eval, NewSGD(SGDConfig{}), FitConfig{
		Steps:    4,
		LogEvery: 2,
		Log:      &buf,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "loss")
}

func TestFitValidation(t *testing.T) {
	eval := func(params, g []float64) float64 { return 0 }

	_, err := Fit([]float64{0}, nil, NewSGD(SGDConfig{}), FitConfig{Steps: 1})
	assert.Error(t, err)

	_, err = Fit([]float64{0}, eval, nil, FitConfig{Steps: 1})
	assert.Error(t, err)

	_, err = Fit([]float64{0}, eval, NewSGD(SGDConfig{}), FitConfig{Steps: 0})
	assert.Error(t, err)
}
