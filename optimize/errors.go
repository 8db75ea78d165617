// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimize

import "errors"

var (
	// ErrInvalidConfig reports an invalid solver configuration: missing
	// constraint blocks, mismatched shapes, or a non-positive penalty
	// parameter. It is returned at construction and never retried.
	ErrInvalidConfig = errors.New("optimize: invalid configuration")

	// ErrSingular reports a singular system in a direct factorization
	// path. It is fatal; the driver does not fall back to an iterative
	// method.
	ErrSingular = errors.New("optimize: singular system")

	// ErrStopIteration may be returned by an iteration callback to stop
	// Solve early. Solve then returns the current iterate with a nil
	// error.
	ErrStopIteration = errors.New("optimize: stop iteration")
)
