// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package functional

import "math"

// Denoiser removes noise of a given level from an array. Implementations
// are typically learned models; the call blocks until dst is written, even
// when inference runs on an accelerator.
type Denoiser interface {
	Denoise(dst, x []float64, sigma float64)
}

// DenoiserProx adapts a Denoiser into a Proximable for plug-and-play
// priors: the proximal operator of the implicit regularizer is taken to be
// the denoiser itself, evaluated at noise level Sigma*sqrt(lam).
//
// The implicit regularizer has no explicit value, so Eval returns zero and
// objective records that include this term understate the true objective.
type DenoiserProx struct {
	D Denoiser
	// Sigma is the base noise level. Zero means 1.
	Sigma float64
}

func (f *DenoiserProx) Eval(_ []float64) float64 { return 0 }

func (f *DenoiserProx) Prox(dst, v []float64, lam float64) {
	sigma := f.Sigma
	if sigma == 0 {
		sigma = 1
	}
	f.D.Denoise(dst, v, sigma*math.Sqrt(lam))
}
