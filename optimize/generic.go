// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ripl-sci/ripl/functional"
)

// GenericSubproblemSolver solves the x-update for an arbitrary smooth
// data-fidelity term with a black-box minimizer: nonlinear conjugate
// gradient (Polak-Ribiere, restarted to steepest descent when the update
// fails to produce a descent direction) with Armijo backtracking line
// search. The inner iteration budget is fixed; exceeding it is a warning,
// not an error, and the best available iterate is returned.
type GenericSubproblemSolver struct {
	// Tolerance is the gradient norm at which the inner loop stops.
	// Zero means 1e-6.
	Tolerance float64
	// MaxIterations is the inner iteration budget. Zero means 100.
	MaxIterations int

	a      *ADMM
	smooth functional.Smooth

	lastConverged bool

	x, grad, gradNext, dir, trial, xbuf []float64
	ybuf                                [][]float64
}

// NewGenericSubproblemSolver creates a generic subproblem solver with
// default inner tolerance and budget.
func NewGenericSubproblemSolver() *GenericSubproblemSolver {
	return &GenericSubproblemSolver{lastConverged: true}
}

// Bind verifies that the data-fidelity term is smooth.
func (s *GenericSubproblemSolver) Bind(a *ADMM) error {
	if s.a != nil {
		return fmt.Errorf("%w: subproblem solver is already bound", ErrInvalidConfig)
	}
	if a.f != nil {
		smooth, ok := a.f.(functional.Smooth)
		if !ok {
			return fmt.Errorf("%w: generic subproblem solver requires a smooth data-fidelity term, got %T",
				ErrInvalidConfig, a.f)
		}
		s.smooth = smooth
	}
	if s.Tolerance == 0 {
		s.Tolerance = 1e-6
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 100
	}
	s.a = a
	n := len(a.x)
	s.x = make([]float64, n)
	s.grad = make([]float64, n)
	s.gradNext = make([]float64, n)
	s.dir = make([]float64, n)
	s.trial = make([]float64, n)
	s.xbuf = make([]float64, n)
	s.ybuf = make([][]float64, len(a.c))
	for i, op := range a.c {
		s.ybuf[i] = make([]float64, op.OutputShape().NumElements())
	}
	return nil
}

// Invalidate is a no-op: the generic solver caches nothing.
func (s *GenericSubproblemSolver) Invalidate() {}

// LastConverged reports whether the last inner minimization reached the
// gradient tolerance within its budget.
func (s *GenericSubproblemSolver) LastConverged() bool { return s.lastConverged }

// value evaluates the augmented subproblem objective at x.
func (s *GenericSubproblemSolver) value(x []float64, targets [][]float64, rho []float64) float64 {
	v := 0.0
	if s.smooth != nil {
		v = s.smooth.Eval(x)
	}
	for i, op := range s.a.c {
		op.Apply(s.ybuf[i], x)
		floats.Sub(s.ybuf[i], targets[i])
		v += 0.5 * rho[i] * floats.Dot(s.ybuf[i], s.ybuf[i])
	}
	return v
}

// gradient stores the augmented subproblem gradient at x into dst.
func (s *GenericSubproblemSolver) gradient(dst, x []float64, targets [][]float64, rho []float64) {
	if s.smooth != nil {
		s.smooth.Grad(dst, x)
	} else {
		for j := range dst {
			dst[j] = 0
		}
	}
	for i, op := range s.a.c {
		op.Apply(s.ybuf[i], x)
		floats.Sub(s.ybuf[i], targets[i])
		op.Adjoint(s.xbuf, s.ybuf[i])
		floats.AddScaled(dst, rho[i], s.xbuf)
	}
}

func (s *GenericSubproblemSolver) Solve(x []float64, targets [][]float64, rho []float64) ([]float64, error) {
	const (
		armijo        = 1e-4
		maxBacktracks = 50
	)

	copy(s.x, x)
	fx := s.value(s.x, targets, rho)
	s.gradient(s.grad, s.x, targets, rho)

	floats.ScaleTo(s.dir, -1, s.grad)
	s.lastConverged = false

	for k := 0; k < s.MaxIterations; k++ {
		if floats.Norm(s.grad, 2) <= s.Tolerance {
			s.lastConverged = true
			break
		}

		slope := floats.Dot(s.grad, s.dir)
		if slope >= 0 {
			// Not a descent direction; restart with steepest descent.
			floats.ScaleTo(s.dir, -1, s.grad)
			slope = floats.Dot(s.grad, s.dir)
		}

		// Armijo backtracking from a unit step.
		step := 1.0
		accepted := false
		var ftrial float64
		for b := 0; b < maxBacktracks; b++ {
			floats.AddScaledTo(s.trial, s.x, step, s.dir)
			ftrial = s.value(s.trial, targets, rho)
			if ftrial <= fx+armijo*step*slope {
				accepted = true
				break
			}
			step /= 2
		}
		if !accepted {
			break
		}

		copy(s.x, s.trial)
		fx = ftrial
		s.gradient(s.gradNext, s.x, targets, rho)

		// Polak-Ribiere with non-negativity clamp.
		gg := floats.Dot(s.grad, s.grad)
		floats.SubTo(s.xbuf, s.gradNext, s.grad)
		beta := math.Max(0, floats.Dot(s.gradNext, s.xbuf)/gg)

		for j := range s.dir {
			s.dir[j] = -s.gradNext[j] + beta*s.dir[j]
		}
		copy(s.grad, s.gradNext)
	}
	if floats.Norm(s.grad, 2) <= s.Tolerance {
		s.lastConverged = true
	}
	return s.x, nil
}
