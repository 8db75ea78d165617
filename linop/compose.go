// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package linop

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ripl-sci/ripl/array"
)

// Scaled multiplies an operator by a scalar.
type Scaled struct {
	alpha float64
	op    Operator
}

// NewScaled creates the operator alpha*op.
func NewScaled(alpha float64, op Operator) *Scaled {
	return &Scaled{alpha: alpha, op: op}
}

func (s *Scaled) InputShape() array.Shape  { return s.op.InputShape() }
func (s *Scaled) OutputShape() array.Shape { return s.op.OutputShape() }

func (s *Scaled) Apply(dst, x []float64) {
	s.op.Apply(dst, x)
	floats.Scale(s.alpha, dst)
}

func (s *Scaled) Adjoint(dst, y []float64) {
	s.op.Adjoint(dst, y)
	floats.Scale(s.alpha, dst)
}

// Matrix returns the scaled dense representation when the wrapped operator
// exposes one.
func (s *Scaled) Matrix() mat.Matrix {
	var d mat.Dense
	if m, ok := s.op.(Matrixer); ok {
		d.Scale(s.alpha, m.Matrix())
	} else {
		d.Scale(s.alpha, denseFromOperator(s.op))
	}
	return &d
}

// Sum is the elementwise sum of two operators with identical shapes.
type Sum struct {
	a, b Operator
	buf  []float64
}

// NewSum creates the operator a+b. Both operands must share input and
// output shapes.
func NewSum(a, b Operator) (*Sum, error) {
	if !a.InputShape().Equal(b.InputShape()) || !a.OutputShape().Equal(b.OutputShape()) {
		return nil, fmt.Errorf("linop: sum of %v->%v and %v->%v: %w",
			a.InputShape(), a.OutputShape(), b.InputShape(), b.OutputShape(), ErrShapeMismatch)
	}
	n := a.OutputShape().NumElements()
	if in := a.InputShape().NumElements(); in > n {
		n = in
	}
	return &Sum{a: a, b: b, buf: make([]float64, n)}, nil
}

func (s *Sum) InputShape() array.Shape  { return s.a.InputShape() }
func (s *Sum) OutputShape() array.Shape { return s.a.OutputShape() }

func (s *Sum) Apply(dst, x []float64) {
	s.a.Apply(dst, x)
	buf := s.buf[:len(dst)]
	s.b.Apply(buf, x)
	floats.Add(dst, buf)
}

func (s *Sum) Adjoint(dst, y []float64) {
	s.a.Adjoint(dst, y)
	buf := s.buf[:len(dst)]
	s.b.Adjoint(buf, y)
	floats.Add(dst, buf)
}

// Stack stacks operators vertically into a single block operator. All
// operators must share the input shape; outputs are concatenated in order.
type Stack struct {
	ops      []Operator
	inShape  array.Shape
	outShape array.Shape
	offsets  []int
	buf      []float64
}

// NewStack creates a vertical block operator from ops.
func NewStack(ops ...Operator) (*Stack, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("linop: stack requires at least one operator: %w", ErrShapeMismatch)
	}
	in := ops[0].InputShape()
	offsets := make([]int, len(ops)+1)
	for i, op := range ops {
		if !op.InputShape().Equal(in) {
			return nil, fmt.Errorf("linop: stack operand %d input %v does not match %v: %w",
				i, op.InputShape(), in, ErrShapeMismatch)
		}
		offsets[i+1] = offsets[i] + op.OutputShape().NumElements()
	}
	return &Stack{
		ops:      ops,
		inShape:  in.Clone(),
		outShape: array.Shape{offsets[len(ops)]},
		offsets:  offsets,
		buf:      make([]float64, in.NumElements()),
	}, nil
}

func (s *Stack) InputShape() array.Shape  { return s.inShape }
func (s *Stack) OutputShape() array.Shape { return s.outShape }

func (s *Stack) Apply(dst, x []float64) {
	for i, op := range s.ops {
		op.Apply(dst[s.offsets[i]:s.offsets[i+1]], x)
	}
}

func (s *Stack) Adjoint(dst, y []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for i, op := range s.ops {
		op.Adjoint(s.buf, y[s.offsets[i]:s.offsets[i+1]])
		floats.Add(dst, s.buf)
	}
}
