// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package array provides the shape and buffer primitives shared by the
// operator, functional and optimization packages.
//
// Arrays are flat []float64 buffers in row-major order together with a
// Shape describing their dimensions. Keeping the data plane this thin lets
// every numerical kernel work directly on slices with gonum primitives.
package array

import (
	"fmt"
	"strings"
)

// Shape represents the dimensions of an array in row-major order.
// Example: Shape{64, 64} is a 64×64 image stored as 4096 contiguous values.
type Shape []int

// NumElements returns the total number of elements described by the shape.
// A zero-length shape describes a scalar and has one element.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is strictly positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("array: invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Strides returns the row-major strides for the shape.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

func (s Shape) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, dim := range s {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", dim)
	}
	b.WriteByte(']')
	return b.String()
}

// Zeros returns a zero-filled buffer sized for the shape.
func Zeros(s Shape) []float64 {
	return make([]float64, s.NumElements())
}

// CloneSlice returns a copy of v.
func CloneSlice(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
