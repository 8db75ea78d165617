// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package linop

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ripl-sci/ripl/array"
)

// Identity is the identity operator on a fixed shape.
type Identity struct {
	shape array.Shape
}

// NewIdentity creates the identity operator for the given shape.
func NewIdentity(shape array.Shape) *Identity {
	return &Identity{shape: shape.Clone()}
}

func (op *Identity) InputShape() array.Shape  { return op.shape }
func (op *Identity) OutputShape() array.Shape { return op.shape }
func (op *Identity) Apply(dst, x []float64)   { copy(dst, x) }
func (op *Identity) Adjoint(dst, y []float64) { copy(dst, y) }

// Matrix returns the identity matrix.
func (op *Identity) Matrix() mat.Matrix {
	n := op.shape.NumElements()
	d := make([]float64, n)
	for i := range d {
		d[i] = 1
	}
	return mat.NewDiagDense(n, d)
}

// Diagonal scales each element by a fixed weight vector.
type Diagonal struct {
	shape array.Shape
	d     []float64
}

// NewDiagonal creates a diagonal operator with weights d over shape.
func NewDiagonal(d []float64, shape array.Shape) (*Diagonal, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(d) != shape.NumElements() {
		return nil, fmt.Errorf("linop: diagonal length %d does not match shape %v: %w",
			len(d), shape, ErrShapeMismatch)
	}
	return &Diagonal{shape: shape.Clone(), d: array.CloneSlice(d)}, nil
}

func (op *Diagonal) InputShape() array.Shape  { return op.shape }
func (op *Diagonal) OutputShape() array.Shape { return op.shape }

func (op *Diagonal) Apply(dst, x []float64) {
	for i, v := range x {
		dst[i] = op.d[i] * v
	}
}

// Adjoint equals Apply; the operator is symmetric.
func (op *Diagonal) Adjoint(dst, y []float64) { op.Apply(dst, y) }

// Matrix returns the diagonal as an explicit matrix.
func (op *Diagonal) Matrix() mat.Matrix {
	return mat.NewDiagDense(len(op.d), array.CloneSlice(op.d))
}

// Matrix wraps an explicit dense matrix as an Operator.
type Matrix struct {
	m        *mat.Dense
	inShape  array.Shape
	outShape array.Shape
}

// NewMatrix creates an operator backed by the dense matrix m. The operator
// maps length-c vectors to length-r vectors where r×c are the dimensions
// of m.
func NewMatrix(m *mat.Dense) *Matrix {
	r, c := m.Dims()
	return &Matrix{m: m, inShape: array.Shape{c}, outShape: array.Shape{r}}
}

func (op *Matrix) InputShape() array.Shape  { return op.inShape }
func (op *Matrix) OutputShape() array.Shape { return op.outShape }

func (op *Matrix) Apply(dst, x []float64) {
	dv := mat.NewVecDense(len(dst), dst)
	dv.MulVec(op.m, mat.NewVecDense(len(x), x))
}

func (op *Matrix) Adjoint(dst, y []float64) {
	dv := mat.NewVecDense(len(dst), dst)
	dv.MulVec(op.m.T(), mat.NewVecDense(len(y), y))
}

// Matrix returns the wrapped dense matrix.
func (op *Matrix) Matrix() mat.Matrix { return op.m }
