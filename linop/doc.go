// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package linop provides linear operators for inverse problems.
//
// # Overview
//
// This package contains:
//   - Operator: the forward/adjoint interface consumed by the solvers
//   - Identity, Diagonal, Matrix: elementary operators
//   - Scaled, Sum, Stack: algebraic composition
//   - CircularConvolve: FFT-diagonalizable circular convolution
//   - Projector: binding to an external tomographic projection engine
//
// Operators declare their input and output shapes at construction; shape
// agreement is validated once there, never per application, so the solver
// hot loops run without repeated checks.
//
// # Basic Usage
//
//	conv, err := linop.NewCircularConvolve(kernel, array.Shape{3}, array.Shape{64})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	y := array.Zeros(conv.OutputShape())
//	conv.Apply(y, x)
//
// Operators holding scratch buffers (Sum, CircularConvolve, Projector) are
// not safe for concurrent use; the optimization core is single-threaded by
// design.
package linop
