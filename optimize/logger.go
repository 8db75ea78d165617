// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimize

import (
	"fmt"
	"io"
)

// LogLevel controls the amount of diagnostic output.
type LogLevel int

const (
	// LogNone produces no output.
	LogNone LogLevel = iota
	// LogSummary prints one line when Solve finishes.
	LogSummary
	// LogIteration prints residual norms every iteration.
	LogIteration
)

// Logger writes solver diagnostics to an io.Writer. A nil Logger, a nil
// writer, or LogNone all disable output. The writer must be usable from the
// goroutine running the solve; the solver itself is single-threaded.
type Logger struct {
	Level LogLevel
	Out   io.Writer
}

func (l *Logger) enabled(level LogLevel) bool {
	return l != nil && l.Out != nil && l.Level >= level
}

func (l *Logger) logf(level LogLevel, format string, a ...any) {
	if !l.enabled(level) {
		return
	}
	_, _ = fmt.Fprintf(l.Out, format, a...)
}
