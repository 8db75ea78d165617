// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package linop

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/ripl-sci/ripl/array"
)

// ErrShapeMismatch is returned by constructors when operator shapes do not
// agree.
var ErrShapeMismatch = errors.New("linop: shape mismatch")

// Operator is a linear map between two flat arrays. Apply computes the
// forward map y = A*x and Adjoint computes x = Aᵀ*y; both store the result
// into dst, which must be sized for the declared shapes. Implementations
// block until the result is available, even when evaluation happens on an
// accelerator behind a foreign-call boundary.
type Operator interface {
	// InputShape is the shape of the operator domain.
	InputShape() array.Shape
	// OutputShape is the shape of the operator range.
	OutputShape() array.Shape
	// Apply stores A*x into dst.
	Apply(dst, x []float64)
	// Adjoint stores Aᵀ*y into dst.
	Adjoint(dst, y []float64)
}

// Matrixer is implemented by operators that can produce an explicit dense
// representation. The direct factorization path of the linear subproblem
// solver requires it.
type Matrixer interface {
	// Matrix returns the operator as an explicit matrix.
	Matrix() mat.Matrix
}

// Func adapts a pair of closures into an Operator. It is the escape hatch
// for operators whose kernels live outside this module.
type Func struct {
	In, Out array.Shape
	Forward func(dst, x []float64)
	Transp  func(dst, y []float64)
}

func (f *Func) InputShape() array.Shape  { return f.In }
func (f *Func) OutputShape() array.Shape { return f.Out }
func (f *Func) Apply(dst, x []float64)   { f.Forward(dst, x) }
func (f *Func) Adjoint(dst, y []float64) { f.Transp(dst, y) }

// ApplyGram stores the Gram application CᵀC*x into dst, using buf for the
// intermediate C*x. buf must be sized for the operator's output. The normal
// equation assembly of the linear subproblem solvers is built on this.
func ApplyGram(op Operator, dst, buf, x []float64) {
	op.Apply(buf, x)
	op.Adjoint(dst, buf)
}

// denseFromOperator materializes op column by column. Used by operators
// whose Matrix implementation has no cheaper form.
func denseFromOperator(op Operator) *mat.Dense {
	in := op.InputShape().NumElements()
	out := op.OutputShape().NumElements()
	m := mat.NewDense(out, in, nil)
	e := make([]float64, in)
	col := make([]float64, out)
	for j := 0; j < in; j++ {
		e[j] = 1
		op.Apply(col, e)
		e[j] = 0
		for i := 0; i < out; i++ {
			m.Set(i, j, col[i])
		}
	}
	return m
}
