// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package train

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MSE returns the mean squared error between a prediction and a reference.
// Both slices must have the same length.
func MSE(pred, ref []float64) float64 {
	if len(pred) != len(ref) {
		panic("train: mismatched metric lengths")
	}
	s := 0.0
	for i := range pred {
		d := pred[i] - ref[i]
		s += d * d
	}
	return s / float64(len(pred))
}

// SNR returns the signal-to-noise ratio in decibels of a prediction
// against a reference.
func SNR(pred, ref []float64) float64 {
	if len(pred) != len(ref) {
		panic("train: mismatched metric lengths")
	}
	signal := floats.Dot(ref, ref)
	noise := 0.0
	for i := range pred {
		d := pred[i] - ref[i]
		noise += d * d
	}
	if noise == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(signal/noise)
}

// PSNR returns the peak signal-to-noise ratio in decibels, using the
// reference's value range as the peak.
func PSNR(pred, ref []float64) float64 {
	mse := MSE(pred, ref)
	if mse == 0 {
		return math.Inf(1)
	}
	peak := floats.Max(ref) - floats.Min(ref)
	if peak == 0 {
		peak = 1
	}
	return 20*math.Log10(peak) - 10*math.Log10(mse)
}
