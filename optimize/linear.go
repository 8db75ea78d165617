// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimize

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ripl-sci/ripl/functional"
	"github.com/ripl-sci/ripl/internal/solver"
	"github.com/ripl-sci/ripl/linop"
)

// hessianMatrixer is implemented by quadratic functionals that can produce
// an explicit Hessian matrix, enabling the direct factorization path.
type hessianMatrixer interface {
	HessianMatrix() (mat.Matrix, bool)
}

// LinearSubproblemSolver solves the x-update for quadratic data-fidelity
// terms by forming the normal equations
//
//	(H + Σᵢ ρᵢ CᵢᵀCᵢ) x = c + Σᵢ ρᵢ Cᵢᵀ tᵢ
//
// where H and c come from the quadratic structure of f (both zero for a
// nil f). By default the system is solved with the conjugate gradient
// method, warm-started from the current iterate; setting Direct selects a
// dense Cholesky factorization instead, cached across iterations and
// recomputed only when the penalty changes.
type LinearSubproblemSolver struct {
	// CG adjusts the iterative path. Zero values select defaults.
	CG solver.Settings
	// Direct selects the dense factorization path. It requires the
	// data-fidelity term and every constraint operator to expose an
	// explicit matrix, and fails fatally on a singular system.
	Direct bool

	a    *ADMM
	n    int
	quad functional.Quadratic

	chol      *mat.Cholesky
	cachedRho []float64

	lastConverged bool

	x, b, xbuf []float64
	ybuf       [][]float64
}

// NewLinearSubproblemSolver creates a linear subproblem solver with default
// conjugate gradient settings.
func NewLinearSubproblemSolver() *LinearSubproblemSolver {
	return &LinearSubproblemSolver{lastConverged: true}
}

// Bind verifies that f is quadratic (or absent) and, for the direct path,
// that explicit matrices are available.
func (s *LinearSubproblemSolver) Bind(a *ADMM) error {
	if s.a != nil {
		return fmt.Errorf("%w: subproblem solver is already bound", ErrInvalidConfig)
	}
	if a.f != nil {
		quad, ok := a.f.(functional.Quadratic)
		if !ok {
			return fmt.Errorf("%w: linear subproblem solver requires a quadratic data-fidelity term, got %T",
				ErrInvalidConfig, a.f)
		}
		s.quad = quad
	}
	if s.Direct {
		if a.f != nil {
			hm, ok := a.f.(hessianMatrixer)
			if !ok {
				return fmt.Errorf("%w: direct path requires an explicit Hessian, %T has none", ErrInvalidConfig, a.f)
			}
			if _, ok := hm.HessianMatrix(); !ok {
				return fmt.Errorf("%w: direct path requires an explicit Hessian, operator has no matrix form", ErrInvalidConfig)
			}
		}
		for i, op := range a.c {
			if _, ok := op.(linop.Matrixer); !ok {
				return fmt.Errorf("%w: direct path requires explicit matrices, constraint operator %d (%T) has none",
					ErrInvalidConfig, i, op)
			}
		}
	}
	s.a = a
	s.n = len(a.x)
	s.x = make([]float64, s.n)
	s.b = make([]float64, s.n)
	s.xbuf = make([]float64, s.n)
	s.ybuf = make([][]float64, len(a.c))
	for i, op := range a.c {
		s.ybuf[i] = make([]float64, op.OutputShape().NumElements())
	}
	return nil
}

// Invalidate drops the cached factorization.
func (s *LinearSubproblemSolver) Invalidate() {
	s.chol = nil
	s.cachedRho = nil
}

// LastConverged reports whether the last conjugate gradient solve reached
// tolerance. The direct path always converges or fails fatally.
func (s *LinearSubproblemSolver) LastConverged() bool { return s.lastConverged }

func (s *LinearSubproblemSolver) Solve(x []float64, targets [][]float64, rho []float64) ([]float64, error) {
	// Right-hand side: c + Σᵢ ρᵢ Cᵢᵀ tᵢ.
	if s.quad != nil {
		s.quad.GradConstant(s.b)
	} else {
		for j := range s.b {
			s.b[j] = 0
		}
	}
	for i, op := range s.a.c {
		op.Adjoint(s.xbuf, targets[i])
		floats.AddScaled(s.b, rho[i], s.xbuf)
	}

	if s.Direct {
		if err := s.ensureFactorization(rho); err != nil {
			return nil, err
		}
		xv := mat.NewVecDense(s.n, s.x)
		if err := s.chol.SolveVecTo(xv, mat.NewVecDense(s.n, s.b)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
		s.lastConverged = true
		return s.x, nil
	}

	mulVec := func(dst, v []float64) {
		if s.quad != nil {
			s.quad.HessianApply(dst, v)
		} else {
			for j := range dst {
				dst[j] = 0
			}
		}
		for i, op := range s.a.c {
			linop.ApplyGram(op, s.xbuf, s.ybuf[i], v)
			floats.AddScaled(dst, rho[i], s.xbuf)
		}
	}
	res := solver.CG(mulVec, s.b, x, s.CG)
	s.lastConverged = res.Converged
	copy(s.x, res.X)
	return s.x, nil
}

// ensureFactorization assembles and factors the dense normal matrix,
// reusing the cached factor while the penalty fingerprint is unchanged.
func (s *LinearSubproblemSolver) ensureFactorization(rho []float64) error {
	if s.chol != nil && rhoEqual(rho, s.cachedRho) {
		return nil
	}
	normal := mat.NewDense(s.n, s.n, nil)
	if s.quad != nil {
		hm, _ := s.a.f.(hessianMatrixer)
		h, _ := hm.HessianMatrix()
		normal.Add(normal, h)
	}
	var gram mat.Dense
	for i, op := range s.a.c {
		ci := op.(linop.Matrixer).Matrix()
		gram.Mul(ci.T(), ci)
		gram.Scale(rho[i], &gram)
		normal.Add(normal, &gram)
	}

	sym := mat.NewSymDense(s.n, nil)
	for i := 0; i < s.n; i++ {
		for j := i; j < s.n; j++ {
			sym.SetSym(i, j, normal.At(i, j))
		}
	}
	chol := new(mat.Cholesky)
	if ok := chol.Factorize(sym); !ok {
		return fmt.Errorf("%w: normal equations are not positive definite", ErrSingular)
	}
	s.chol = chol
	s.cachedRho = append(s.cachedRho[:0], rho...)
	return nil
}
