// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package linop

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/ripl-sci/ripl/array"
	"github.com/ripl-sci/ripl/internal/fft"
)

// CircularConvolve is circular (periodic) convolution by a fixed kernel
// over an N-D shape. The operator is diagonalized by the discrete Fourier
// transform, which the frequency-domain subproblem solvers exploit for
// O(N log N) exact solves.
type CircularConvolve struct {
	shape array.Shape
	plan  *fft.Plan
	freq  []complex128
	buf   []complex128
}

// NewCircularConvolve creates circular convolution by kernel over shape.
// The kernel is a row-major block of kernelShape placed at the origin and
// zero-padded; kernelShape must have the same rank as shape and must not
// exceed it along any axis.
func NewCircularConvolve(kernel []float64, kernelShape, shape array.Shape) (*CircularConvolve, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(kernelShape) != len(shape) {
		return nil, fmt.Errorf("linop: kernel rank %d does not match shape rank %d: %w",
			len(kernelShape), len(shape), ErrShapeMismatch)
	}
	for i := range kernelShape {
		if kernelShape[i] > shape[i] {
			return nil, fmt.Errorf("linop: kernel dimension %d exceeds shape %v: %w",
				kernelShape[i], shape, ErrShapeMismatch)
		}
	}
	if len(kernel) != kernelShape.NumElements() {
		return nil, fmt.Errorf("linop: kernel length %d does not match kernel shape %v: %w",
			len(kernel), kernelShape, ErrShapeMismatch)
	}
	plan := fft.NewPlan(shape)
	return &CircularConvolve{
		shape: shape.Clone(),
		plan:  plan,
		freq:  fft.KernelFreq(plan, kernel, kernelShape),
		buf:   make([]complex128, plan.Len()),
	}, nil
}

func (op *CircularConvolve) InputShape() array.Shape  { return op.shape }
func (op *CircularConvolve) OutputShape() array.Shape { return op.shape }

// Apply computes the circular convolution via pointwise multiplication in
// the frequency domain.
func (op *CircularConvolve) Apply(dst, x []float64) {
	fft.ToComplex(op.buf, x)
	op.plan.Forward(op.buf)
	for i := range op.buf {
		op.buf[i] *= op.freq[i]
	}
	op.plan.Inverse(op.buf)
	fft.Real(dst, op.buf)
}

// Adjoint computes correlation: multiplication by the conjugate response.
func (op *CircularConvolve) Adjoint(dst, y []float64) {
	fft.ToComplex(op.buf, y)
	op.plan.Forward(op.buf)
	for i := range op.buf {
		op.buf[i] *= cmplx.Conj(op.freq[i])
	}
	op.plan.Inverse(op.buf)
	fft.Real(dst, op.buf)
}

// FreqResponse returns the kernel's frequency response. The returned slice
// is owned by the operator and must not be modified.
func (op *CircularConvolve) FreqResponse() []complex128 { return op.freq }

// Matrix materializes the circulant matrix column by column. Intended for
// small problems and the direct factorization path.
func (op *CircularConvolve) Matrix() mat.Matrix { return denseFromOperator(op) }
