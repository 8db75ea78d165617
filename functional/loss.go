// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package functional

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ripl-sci/ripl/linop"
)

// SquaredL2Loss is the data-fidelity term ||A x - y||². A nil operator
// means the identity, giving ||x - y||².
//
// The loss is quadratic: its Hessian is 2 AᵀA and its gradient is
// 2 Aᵀ(A x - y) = H x - 2 Aᵀ y, which the linear subproblem solver uses to
// assemble its normal equations.
type SquaredL2Loss struct {
	a   linop.Operator
	y   []float64
	res []float64 // scratch: A x - y
}

// NewSquaredL2Loss creates the loss for operator a and measurements y.
// A nil a selects the identity; otherwise len(y) must match the operator's
// output size.
func NewSquaredL2Loss(a linop.Operator, y []float64) (*SquaredL2Loss, error) {
	if a != nil {
		if want := a.OutputShape().NumElements(); len(y) != want {
			return nil, fmt.Errorf("functional: measurement length %d does not match operator output %v: %w",
				len(y), a.OutputShape(), linop.ErrShapeMismatch)
		}
	}
	out := make([]float64, len(y))
	cy := make([]float64, len(y))
	copy(cy, y)
	return &SquaredL2Loss{a: a, y: cy, res: out}, nil
}

// Operator returns the forward operator, nil meaning identity.
func (f *SquaredL2Loss) Operator() linop.Operator { return f.a }

// Data returns the measurement vector. The returned slice is owned by the
// loss and must not be modified.
func (f *SquaredL2Loss) Data() []float64 { return f.y }

func (f *SquaredL2Loss) residual(x []float64) []float64 {
	if f.a == nil {
		floats.SubTo(f.res, x, f.y)
	} else {
		f.a.Apply(f.res, x)
		floats.Sub(f.res, f.y)
	}
	return f.res
}

func (f *SquaredL2Loss) Eval(x []float64) float64 {
	r := f.residual(x)
	return floats.Dot(r, r)
}

// Grad stores 2 Aᵀ(A x - y) into dst.
func (f *SquaredL2Loss) Grad(dst, x []float64) {
	r := f.residual(x)
	if f.a == nil {
		for i := range r {
			dst[i] = 2 * r[i]
		}
		return
	}
	f.a.Adjoint(dst, r)
	floats.Scale(2, dst)
}

// HessianApply stores 2 AᵀA x into dst.
func (f *SquaredL2Loss) HessianApply(dst, x []float64) {
	if f.a == nil {
		for i := range x {
			dst[i] = 2 * x[i]
		}
		return
	}
	f.a.Apply(f.res, x)
	f.a.Adjoint(dst, f.res)
	floats.Scale(2, dst)
}

// GradConstant stores 2 Aᵀ y into dst, the constant term of the gradient.
func (f *SquaredL2Loss) GradConstant(dst []float64) {
	if f.a == nil {
		for i := range f.y {
			dst[i] = 2 * f.y[i]
		}
		return
	}
	f.a.Adjoint(dst, f.y)
	floats.Scale(2, dst)
}

// HessianMatrix returns the explicit Hessian 2 AᵀA when one is available:
// always for the identity, and whenever the operator exposes an explicit
// matrix. The second return is false otherwise.
func (f *SquaredL2Loss) HessianMatrix() (mat.Matrix, bool) {
	if f.a == nil {
		n := len(f.y)
		d := make([]float64, n)
		for i := range d {
			d[i] = 2
		}
		return mat.NewDiagDense(n, d), true
	}
	m, ok := f.a.(linop.Matrixer)
	if !ok {
		return nil, false
	}
	am := m.Matrix()
	var h mat.Dense
	h.Mul(am.T(), am)
	h.Scale(2, &h)
	return &h, true
}

// Prox solves argmin_x ||x - y||² + (1/(2 lam))||x - v||² for the identity
// operator, with closed form (v + 2 lam y) / (1 + 2 lam). It panics for a
// non-identity operator, whose proximal operator has no closed form; use a
// subproblem solver instead.
func (f *SquaredL2Loss) Prox(dst, v []float64, lam float64) {
	if f.a != nil {
		panic("functional: SquaredL2Loss prox requires the identity operator")
	}
	scale := 1 / (1 + 2*lam)
	for i, vi := range v {
		dst[i] = scale * (vi + 2*lam*f.y[i])
	}
}
