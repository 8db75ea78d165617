// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package functional provides functionals and proximal operators for
// regularized inverse problems.
//
// A Functional evaluates a scalar objective term; a Proximable additionally
// evaluates its proximal operator
//
//	prox_{lam g}(v) = argmin_x g(x) + (1/(2 lam)) ||x - v||²,
//
// which the ADMM z-update applies per constraint block. Smooth and
// Quadratic expose gradient and quadratic structure for the subproblem
// solvers that can exploit them.
package functional

// Functional is a scalar-valued function of a flat array.
type Functional interface {
	Eval(x []float64) float64
}

// Proximable is a functional whose proximal operator can be evaluated.
// Prox stores prox_{lam g}(v) into dst; dst and v may alias.
type Proximable interface {
	Functional
	Prox(dst, v []float64, lam float64)
}

// Smooth is a functional with an evaluable gradient.
type Smooth interface {
	Functional
	// Grad stores the gradient at x into dst.
	Grad(dst, x []float64)
}

// Quadratic is a smooth functional of the form
//
//	f(x) = (1/2) xᵀ H x - cᵀ x + const,
//
// exposing the Hessian and the constant term of the gradient
// ∇f(x) = H x - c. The linear ADMM subproblem solver consumes this
// structure to form its normal equations.
type Quadratic interface {
	Smooth
	// HessianApply stores H*x into dst.
	HessianApply(dst, x []float64)
	// GradConstant stores c into dst.
	GradConstant(dst []float64)
}

// Zero is the zero functional: identically zero with an identity proximal
// operator. It is the default data-fidelity term and the standard penalty
// for unconstrained blocks.
type Zero struct{}

func (Zero) Eval(_ []float64) float64 { return 0 }

func (Zero) Prox(dst, v []float64, _ float64) { copy(dst, v) }
