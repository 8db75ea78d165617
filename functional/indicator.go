// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package functional

import "math"

// NonNegativeIndicator is the indicator of the non-negative orthant: zero
// when every element is non-negative, +Inf otherwise. Its proximal operator
// is projection, clipping negative values to zero.
type NonNegativeIndicator struct{}

func (NonNegativeIndicator) Eval(x []float64) float64 {
	for _, v := range x {
		if v < 0 {
			return math.Inf(1)
		}
	}
	return 0
}

func (NonNegativeIndicator) Prox(dst, v []float64, _ float64) {
	for i, vi := range v {
		if vi < 0 {
			dst[i] = 0
		} else {
			dst[i] = vi
		}
	}
}

// ZeroIndicator is the indicator of the singleton {0}: zero at the origin,
// +Inf elsewhere. Its proximal operator maps everything to zero. It encodes
// hard equality constraints C x = 0, such as the support mask enforced by
// the masked frequency-domain subproblem solver.
type ZeroIndicator struct {
	// Tol is the evaluation tolerance for membership. Zero means exact.
	Tol float64
}

func (f ZeroIndicator) Eval(x []float64) float64 {
	for _, v := range x {
		if math.Abs(v) > f.Tol {
			return math.Inf(1)
		}
	}
	return 0
}

func (ZeroIndicator) Prox(dst, _ []float64, _ float64) {
	for i := range dst {
		dst[i] = 0
	}
}
