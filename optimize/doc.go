// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optimize implements the alternating direction method of
// multipliers (ADMM) for regularized inverse problems.
//
// # Overview
//
// ADMM approximately minimizes a sum-of-functionals objective
//
//	f(x) + Σᵢ gᵢ(Cᵢ x)
//
// by introducing one auxiliary variable zᵢ per constraint block (Cᵢ, gᵢ)
// and alternating three updates with scaled dual variables uᵢ:
//
//	x    <- argmin_x f(x) + Σᵢ (ρᵢ/2) ||Cᵢ x - (zᵢ - uᵢ)||²
//	zᵢ   <- prox_{gᵢ/ρᵢ}(Cᵢ x + uᵢ)
//	uᵢ   <- uᵢ + Cᵢ x - zᵢ
//
// The x-update is delegated to a pluggable SubproblemSolver:
//
//   - GenericSubproblemSolver: black-box smooth minimization (nonlinear
//     conjugate gradient with backtracking line search)
//   - LinearSubproblemSolver: quadratic f; conjugate gradient on the
//     normal equations, or a cached Cholesky factorization when explicit
//     matrices are available
//   - CircularConvolveSolver, FBlockCircularConvolveSolver,
//     G0BlockCircularConvolveSolver: exact O(N log N) frequency-domain
//     solves when the constraint operators are circular convolutions
//
// # Basic Usage
//
//	conv, _ := linop.NewCircularConvolve(kernel, array.Shape{3}, array.Shape{64})
//	loss, _ := functional.NewSquaredL2Loss(nil, y)
//
//	a, err := optimize.NewADMM(optimize.Config{
//	    F:             loss,
//	    C:             []linop.Operator{conv},
//	    G:             []functional.Proximable{functional.NewL1Norm(0.1)},
//	    Rho:           []float64{1.0},
//	    Solver:        optimize.NewCircularConvolveSolver(),
//	    MaxIterations: 50,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	x, err := a.Solve()
//
// Solve runs a fixed number of iterations; there is no residual-based early
// stop. A per-iteration callback may return ErrStopIteration to terminate
// early.
//
// The driver and its subproblem solver own their iterate and cached state
// exclusively; neither may be shared across concurrently running solves.
package optimize
