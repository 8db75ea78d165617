// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimize

import (
	"fmt"
	"math/cmplx"

	"github.com/ripl-sci/ripl/functional"
	"github.com/ripl-sci/ripl/internal/fft"
	"github.com/ripl-sci/ripl/linop"
)

// fidelityMode selects which data-fidelity structures a frequency-domain
// solver accepts.
type fidelityMode int

const (
	// fidelityIdentity accepts a nil f or a squared L2 loss against the
	// identity operator.
	fidelityIdentity fidelityMode = iota
	// fidelityCirculant requires a squared L2 loss against a circular
	// convolution.
	fidelityCirculant
)

// freqSolver is the shared core of the frequency-domain subproblem
// solvers. With every constraint operator diagonalized by the same DFT,
// the normal equations
//
//	(Hf + Σᵢ ρᵢ CᵢᵀCᵢ) x = b
//
// become an elementwise divide in the frequency domain:
//
//	x̂_k = b̂_k / (d_k + Σᵢ ρᵢ |Ĉᵢ_k|²)
//
// where d is the frequency diagonal of the data-fidelity Hessian. The
// diagonal is precomputed once and cached until the penalty changes.
type freqSolver struct {
	a    *ADMM
	plan *fft.Plan
	n    int

	// convs is aligned with the driver's blocks; a nil entry marks the
	// masked support block of the G0 variant, which does not contribute
	// to the diagonal.
	convs []*linop.CircularConvolve

	fDiag []float64    // data-fidelity diagonal, nil when f is nil
	fTerm []complex128 // data-fidelity rhs term, nil when f is nil
	mask  []bool       // frequencies forced to zero, nil unless G0

	diag      []float64
	cachedRho []float64

	bx, bt []complex128
	out    []float64
}

func (s *freqSolver) bind(a *ADMM, mode fidelityMode, maskFirst bool) error {
	if s.a != nil {
		return fmt.Errorf("%w: subproblem solver is already bound", ErrInvalidConfig)
	}
	in := a.c[0].InputShape()
	s.convs = make([]*linop.CircularConvolve, len(a.c))
	for i, op := range a.c {
		conv, ok := op.(*linop.CircularConvolve)
		if !ok {
			return fmt.Errorf("%w: frequency-domain solver requires circular convolutions, constraint operator %d is %T",
				ErrInvalidConfig, i, op)
		}
		s.convs[i] = conv
	}

	s.n = in.NumElements()
	s.plan = fft.NewPlan(in)
	s.bx = make([]complex128, s.n)
	s.bt = make([]complex128, s.n)
	s.out = make([]float64, s.n)

	if err := s.bindFidelity(a, mode); err != nil {
		return err
	}

	if maskFirst {
		if len(a.c) < 2 {
			return fmt.Errorf("%w: masked frequency-domain solver requires a second constraint block beyond the support mask",
				ErrInvalidConfig)
		}
		const tol = 1e-12
		s.mask = make([]bool, s.n)
		for k, v := range s.convs[0].FreqResponse() {
			s.mask[k] = cmplx.Abs(v) > tol
		}
		// Block 0 is enforced exactly by masking, not by the diagonal.
		s.convs[0] = nil
	}

	s.a = a
	return nil
}

func (s *freqSolver) bindFidelity(a *ADMM, mode fidelityMode) error {
	if a.f == nil {
		if mode == fidelityCirculant {
			return fmt.Errorf("%w: this solver requires a circulant squared L2 data-fidelity term", ErrInvalidConfig)
		}
		return nil
	}
	loss, ok := a.f.(*functional.SquaredL2Loss)
	if !ok {
		return fmt.Errorf("%w: frequency-domain solver requires a squared L2 data-fidelity term, got %T",
			ErrInvalidConfig, a.f)
	}

	s.fDiag = make([]float64, s.n)
	s.fTerm = make([]complex128, s.n)

	switch mode {
	case fidelityIdentity:
		if loss.Operator() != nil {
			return fmt.Errorf("%w: this solver requires an identity data-fidelity operator, got %T; use FBlockCircularConvolveSolver for circulant fidelity",
				ErrInvalidConfig, loss.Operator())
		}
		if len(loss.Data()) != s.n {
			return fmt.Errorf("%w: measurement length %d does not match domain size %d",
				ErrInvalidConfig, len(loss.Data()), s.n)
		}
		// Hf = 2I: constant diagonal, rhs term 2ŷ.
		fft.ToComplex(s.fTerm, loss.Data())
		s.plan.Forward(s.fTerm)
		for k := range s.fTerm {
			s.fTerm[k] *= 2
			s.fDiag[k] = 2
		}
	case fidelityCirculant:
		conv, ok := loss.Operator().(*linop.CircularConvolve)
		if !ok {
			return fmt.Errorf("%w: this solver requires a circulant data-fidelity operator, got %T",
				ErrInvalidConfig, loss.Operator())
		}
		if !conv.InputShape().Equal(s.plan.Shape()) {
			return fmt.Errorf("%w: data-fidelity operator shape %v does not match domain %v",
				ErrInvalidConfig, conv.InputShape(), s.plan.Shape())
		}
		// Hf = 2AᵀA: diagonal 2|Â|², rhs term 2 conj(Â) ŷ.
		fft.ToComplex(s.fTerm, loss.Data())
		s.plan.Forward(s.fTerm)
		for k, v := range conv.FreqResponse() {
			s.fTerm[k] *= 2 * cmplx.Conj(v)
			s.fDiag[k] = 2 * (real(v)*real(v) + imag(v)*imag(v))
		}
	}
	return nil
}

func (s *freqSolver) invalidate() {
	s.diag = nil
	s.cachedRho = nil
}

// ensureDiag recomputes the cached frequency diagonal when the penalty
// fingerprint changes. A vanishing diagonal bin makes the normal equations
// singular, which is fatal.
func (s *freqSolver) ensureDiag(rho []float64) error {
	if s.diag != nil && rhoEqual(rho, s.cachedRho) {
		return nil
	}
	diag := make([]float64, s.n)
	if s.fDiag != nil {
		copy(diag, s.fDiag)
	}
	for i, conv := range s.convs {
		if conv == nil {
			continue
		}
		for k, v := range conv.FreqResponse() {
			diag[k] += rho[i] * (real(v)*real(v) + imag(v)*imag(v))
		}
	}
	for k, d := range diag {
		if s.mask != nil && s.mask[k] {
			continue
		}
		if d <= 0 {
			return fmt.Errorf("%w: frequency diagonal vanishes at bin %d", ErrSingular, k)
		}
	}
	s.diag = diag
	s.cachedRho = append(s.cachedRho[:0], rho...)
	return nil
}

func (s *freqSolver) solve(targets [][]float64, rho []float64) ([]float64, error) {
	if err := s.ensureDiag(rho); err != nil {
		return nil, err
	}

	// Right-hand side in the frequency domain:
	// b̂ = fTerm + Σᵢ ρᵢ conj(Ĉᵢ) t̂ᵢ.
	if s.fTerm != nil {
		copy(s.bt, s.fTerm)
	} else {
		for k := range s.bt {
			s.bt[k] = 0
		}
	}
	for i, conv := range s.convs {
		if conv == nil {
			continue
		}
		fft.ToComplex(s.bx, targets[i])
		s.plan.Forward(s.bx)
		freq := conv.FreqResponse()
		r := complex(rho[i], 0)
		for k := range s.bt {
			s.bt[k] += r * cmplx.Conj(freq[k]) * s.bx[k]
		}
	}

	// Diagonal divide, with the support mask enforced exactly.
	for k := range s.bt {
		if s.mask != nil && s.mask[k] {
			s.bt[k] = 0
			continue
		}
		s.bt[k] /= complex(s.diag[k], 0)
	}
	s.plan.Inverse(s.bt)
	fft.Real(s.out, s.bt)
	return s.out, nil
}

// CircularConvolveSolver solves the x-update exactly in the frequency
// domain when every constraint operator is a circular convolution and the
// data-fidelity term is absent or a squared L2 loss against the identity.
// Each solve costs O(N log N) after a one-time diagonal precomputation.
type CircularConvolveSolver struct {
	fs freqSolver
}

// NewCircularConvolveSolver creates a frequency-domain subproblem solver.
func NewCircularConvolveSolver() *CircularConvolveSolver {
	return &CircularConvolveSolver{}
}

func (s *CircularConvolveSolver) Bind(a *ADMM) error {
	return s.fs.bind(a, fidelityIdentity, false)
}

func (s *CircularConvolveSolver) Solve(_ []float64, targets [][]float64, rho []float64) ([]float64, error) {
	return s.fs.solve(targets, rho)
}

func (s *CircularConvolveSolver) Invalidate() { s.fs.invalidate() }

// FBlockCircularConvolveSolver specializes CircularConvolveSolver to a
// data-fidelity term that is itself frequency-diagonal: a squared L2 loss
// against a circular convolution, fused into the same diagonal divide.
type FBlockCircularConvolveSolver struct {
	fs freqSolver
}

// NewFBlockCircularConvolveSolver creates a frequency-domain subproblem
// solver for circulant data-fidelity terms.
func NewFBlockCircularConvolveSolver() *FBlockCircularConvolveSolver {
	return &FBlockCircularConvolveSolver{}
}

func (s *FBlockCircularConvolveSolver) Bind(a *ADMM) error {
	return s.fs.bind(a, fidelityCirculant, false)
}

func (s *FBlockCircularConvolveSolver) Solve(_ []float64, targets [][]float64, rho []float64) ([]float64, error) {
	return s.fs.solve(targets, rho)
}

func (s *FBlockCircularConvolveSolver) Invalidate() { s.fs.invalidate() }

// G0BlockCircularConvolveSolver handles problems whose first constraint
// block is a support mask in the frequency domain (paired with a zero
// indicator penalty): frequencies where the first operator's response is
// nonzero are forced to zero exactly, and the remaining blocks are solved
// by the usual diagonal divide.
type G0BlockCircularConvolveSolver struct {
	fs freqSolver
}

// NewG0BlockCircularConvolveSolver creates a masked frequency-domain
// subproblem solver.
func NewG0BlockCircularConvolveSolver() *G0BlockCircularConvolveSolver {
	return &G0BlockCircularConvolveSolver{}
}

func (s *G0BlockCircularConvolveSolver) Bind(a *ADMM) error {
	return s.fs.bind(a, fidelityIdentity, true)
}

func (s *G0BlockCircularConvolveSolver) Solve(_ []float64, targets [][]float64, rho []float64) ([]float64, error) {
	return s.fs.solve(targets, rho)
}

func (s *G0BlockCircularConvolveSolver) Invalidate() { s.fs.invalidate() }
