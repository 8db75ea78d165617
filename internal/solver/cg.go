// Package solver provides the conjugate gradient method for symmetric
// positive definite systems used by the linear ADMM subproblem solvers.
package solver

import (
	"gonum.org/v1/gonum/floats"
)

// Settings adjusts a conjugate gradient solve. Zero values select defaults.
type Settings struct {
	// Tolerance is the relative residual tolerance |r|/|b|.
	// If it is zero, 1e-5 is used.
	Tolerance float64

	// MaxIterations limits the number of iterations.
	// If it is zero, twice the system dimension is used.
	MaxIterations int
}

// Result holds the outcome of a conjugate gradient solve.
type Result struct {
	// X is the best available approximate solution.
	X []float64
	// Iterations is the number of iterations performed.
	Iterations int
	// ResidualNorm is the final norm of the residual b - A*x.
	ResidualNorm float64
	// Converged reports whether the relative residual reached the
	// tolerance within the iteration limit. A false value is not an
	// error: callers tolerating inexact solves use X as is.
	Converged bool
}

// CG solves the symmetric positive definite system A*x = b where A is
// represented by mulVec, which must store A*x into dst. If x0 is not nil it
// is used as the starting point and is not modified.
func CG(mulVec func(dst, x []float64), b, x0 []float64, s Settings) Result {
	dim := len(b)
	if dim == 0 {
		panic("solver: zero dimension")
	}
	if mulVec == nil {
		panic("solver: nil matrix-vector multiplication")
	}
	if x0 != nil && len(x0) != dim {
		panic("solver: mismatched length of initial guess")
	}
	if s.Tolerance == 0 {
		s.Tolerance = 1e-5
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 2 * dim
	}

	x := make([]float64, dim)
	r := make([]float64, dim)
	if x0 != nil {
		copy(x, x0)
		mulVec(r, x)
		floats.AddScaledTo(r, b, -1, r) // r = b - Ax
	} else {
		copy(r, b)
	}

	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		bnorm = 1
	}

	res := Result{X: x, ResidualNorm: floats.Norm(r, 2)}
	if res.ResidualNorm/bnorm < s.Tolerance {
		res.Converged = true
		return res
	}

	p := make([]float64, dim)
	ap := make([]float64, dim)
	copy(p, r)
	rho := floats.Dot(r, r)

	for res.Iterations < s.MaxIterations {
		mulVec(ap, p)
		denom := floats.Dot(p, ap)
		if denom == 0 {
			break
		}
		alpha := rho / denom
		floats.AddScaled(x, alpha, p)   // x = x + α p
		floats.AddScaled(r, -alpha, ap) // r = r - α Ap
		res.Iterations++

		res.ResidualNorm = floats.Norm(r, 2)
		if res.ResidualNorm/bnorm < s.Tolerance {
			res.Converged = true
			break
		}

		rhoNext := floats.Dot(r, r)
		beta := rhoNext / rho
		rho = rhoNext
		for i := range p {
			p[i] = r[i] + beta*p[i]
		}
	}
	return res
}
