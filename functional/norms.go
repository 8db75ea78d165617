// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package functional

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// L1Norm is the weighted L1 norm w*||x||_1. Its proximal operator is
// elementwise soft thresholding.
type L1Norm struct {
	// Weight scales the norm. Zero means 1.
	Weight float64
}

// NewL1Norm creates a weighted L1 norm. A weight of zero selects 1.
func NewL1Norm(weight float64) *L1Norm { return &L1Norm{Weight: weight} }

func (f *L1Norm) weight() float64 {
	if f.Weight == 0 {
		return 1
	}
	return f.Weight
}

func (f *L1Norm) Eval(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += math.Abs(v)
	}
	return f.weight() * s
}

func (f *L1Norm) Prox(dst, v []float64, lam float64) {
	t := lam * f.weight()
	for i, vi := range v {
		switch {
		case vi > t:
			dst[i] = vi - t
		case vi < -t:
			dst[i] = vi + t
		default:
			dst[i] = 0
		}
	}
}

// L2Norm is the weighted L2 norm w*||x||_2 (not squared). Its proximal
// operator is block soft thresholding: shrink the whole vector toward zero.
type L2Norm struct {
	// Weight scales the norm. Zero means 1.
	Weight float64
}

// NewL2Norm creates a weighted L2 norm. A weight of zero selects 1.
func NewL2Norm(weight float64) *L2Norm { return &L2Norm{Weight: weight} }

func (f *L2Norm) weight() float64 {
	if f.Weight == 0 {
		return 1
	}
	return f.Weight
}

func (f *L2Norm) Eval(x []float64) float64 {
	return f.weight() * floats.Norm(x, 2)
}

func (f *L2Norm) Prox(dst, v []float64, lam float64) {
	t := lam * f.weight()
	norm := floats.Norm(v, 2)
	if norm <= t {
		for i := range v {
			dst[i] = 0
		}
		return
	}
	scale := 1 - t/norm
	for i, vi := range v {
		dst[i] = scale * vi
	}
}

// SquaredL2 is the weighted squared L2 norm w*||x||².
type SquaredL2 struct {
	// Weight scales the norm. Zero means 1.
	Weight float64
}

// NewSquaredL2 creates a weighted squared L2 norm. A weight of zero
// selects 1.
func NewSquaredL2(weight float64) *SquaredL2 { return &SquaredL2{Weight: weight} }

func (f *SquaredL2) weight() float64 {
	if f.Weight == 0 {
		return 1
	}
	return f.Weight
}

func (f *SquaredL2) Eval(x []float64) float64 {
	d := floats.Dot(x, x)
	return f.weight() * d
}

// Prox solves argmin_x w||x||² + (1/(2 lam))||x-v||², which has the closed
// form v / (1 + 2 lam w).
func (f *SquaredL2) Prox(dst, v []float64, lam float64) {
	scale := 1 / (1 + 2*lam*f.weight())
	for i, vi := range v {
		dst[i] = scale * vi
	}
}

func (f *SquaredL2) Grad(dst, x []float64) {
	w := 2 * f.weight()
	for i, xi := range x {
		dst[i] = w * xi
	}
}
