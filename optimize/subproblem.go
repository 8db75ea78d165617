// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimize

// SubproblemSolver performs the ADMM x-update: minimize over x
//
//	f(x) + Σᵢ (ρᵢ/2) ||Cᵢ x - tᵢ||²
//
// where tᵢ = zᵢ - uᵢ. A solver binds to exactly one driver at construction
// time, may cache factorizations that depend only on the fixed operators
// and the penalty, and must be deterministic given identical inputs and
// cached state. Solvers must not be shared across drivers.
type SubproblemSolver interface {
	// Bind attaches the solver to a driver and verifies that the problem
	// has the structure the solver exploits. It is called once, from
	// NewADMM, before any Solve.
	Bind(a *ADMM) error

	// Solve returns the minimizer of the subproblem for the given warm
	// start x, targets tᵢ, and per-block penalties. The returned slice is
	// owned by the solver and is only valid until the next Solve.
	Solve(x []float64, targets [][]float64, rho []float64) ([]float64, error)

	// Invalidate drops cached factorizations. The driver calls it when
	// the penalty parameter changes.
	Invalidate()
}

// convergenceReporter is implemented by inexact solvers to expose whether
// the last Solve reached its inner tolerance.
type convergenceReporter interface {
	LastConverged() bool
}

func solverConverged(s SubproblemSolver) bool {
	if r, ok := s.(convergenceReporter); ok {
		return r.LastConverged()
	}
	return true
}

// rhoEqual reports whether a penalty vector matches a cached fingerprint.
func rhoEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
