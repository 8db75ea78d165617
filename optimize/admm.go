// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimize

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ripl-sci/ripl/array"
	"github.com/ripl-sci/ripl/functional"
	"github.com/ripl-sci/ripl/linop"
)

// IterationStats holds the per-iteration diagnostics appended to the solve
// history after every completed step.
type IterationStats struct {
	// Iteration is the zero-based index of the completed iteration.
	Iteration int
	// PrimalResidual is the norm of the stacked residuals Cᵢx - zᵢ.
	PrimalResidual float64
	// DualResidual is the norm of Σᵢ ρᵢ Cᵢᵀ(zᵢ - zᵢ_prev).
	DualResidual float64
	// Objective is f(x) + Σᵢ gᵢ(Cᵢx) when objective recording is enabled,
	// NaN otherwise.
	Objective float64
	// SolverConverged reports whether the subproblem solver reached its
	// inner tolerance. A false value is a warning, not an error: the
	// outer loop proceeds with the best available iterate.
	SolverConverged bool
	// Rho is the penalty parameter of the first block at the end of the
	// iteration, for monitoring adaptation.
	Rho float64
}

// RhoAdaptation configures residual-balancing adaptation of the penalty
// parameter. When the primal residual exceeds Threshold times the dual
// residual, every ρᵢ is multiplied by Factor (and the scaled duals rescaled
// to keep ρᵢuᵢ invariant); in the opposite case ρᵢ is divided by Factor.
// Cached factorizations in the subproblem solver are invalidated whenever
// ρ changes.
type RhoAdaptation struct {
	// Factor is the rescaling ratio τ. Zero means 2. Must be > 1.
	Factor float64
	// Threshold is the residual ratio μ triggering adaptation. Zero means
	// 10. Must be > 1.
	Threshold float64
	// Min and Max optionally clamp each ρᵢ. Zero means unbounded.
	Min, Max float64
}

// Config configures an ADMM solver.
type Config struct {
	// F is the data-fidelity functional. Nil means the zero functional.
	F functional.Functional
	// C holds the constraint operators, one per block. At least one is
	// required and all must share an input shape.
	C []linop.Operator
	// G holds the penalty functionals, one per constraint block.
	G []functional.Proximable
	// Rho is the penalty parameter: one value broadcast to every block,
	// or one value per block. All values must be strictly positive. Nil
	// selects 1 for every block.
	Rho []float64
	// X0 is the initial iterate. Nil selects the zero vector.
	X0 []float64
	// Solver performs the x-update. Nil selects a LinearSubproblemSolver.
	Solver SubproblemSolver
	// MaxIterations is the fixed number of iterations Solve performs.
	MaxIterations int
	// Callback, when non-nil, is invoked after every iteration with that
	// iteration's stats. Returning ErrStopIteration stops Solve cleanly;
	// any other non-nil error aborts the solve and is propagated.
	Callback func(IterationStats) error
	// AdaptRho enables penalty parameter adaptation.
	AdaptRho *RhoAdaptation
	// RecordObjective enables objective evaluation in the history. It
	// costs one functional evaluation per block per iteration.
	RecordObjective bool
	// Logger receives diagnostics. Nil disables logging.
	Logger *Logger
}

// ADMM is the alternating direction method of multipliers driver. It owns
// the iterate (x, z, u), delegates the x-update to its subproblem solver,
// applies the proximal z-update and the dual u-update, and records residual
// diagnostics. It is not safe for concurrent use.
type ADMM struct {
	f   functional.Functional
	c   []linop.Operator
	g   []functional.Proximable
	rho []float64

	x       []float64
	z       [][]float64
	u       [][]float64
	zPrev   [][]float64
	cx      [][]float64
	targets [][]float64

	solver          SubproblemSolver
	maxIterations   int
	callback        func(IterationStats) error
	adapt           *RhoAdaptation
	recordObjective bool
	logger          *Logger

	iter    int
	history []IterationStats

	// scratch
	xbuf, xacc, blockBuf []float64
}

// NewADMM validates the configuration and creates a driver with
// zᵢ = Cᵢ x0 and uᵢ = 0 for every block.
func NewADMM(cfg Config) (*ADMM, error) {
	if len(cfg.C) == 0 {
		return nil, fmt.Errorf("%w: at least one constraint block is required", ErrInvalidConfig)
	}
	if len(cfg.G) != len(cfg.C) {
		return nil, fmt.Errorf("%w: %d penalty functionals for %d constraint operators",
			ErrInvalidConfig, len(cfg.G), len(cfg.C))
	}
	for i, g := range cfg.G {
		if g == nil {
			return nil, fmt.Errorf("%w: penalty functional %d is nil", ErrInvalidConfig, i)
		}
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("%w: negative iteration count %d", ErrInvalidConfig, cfg.MaxIterations)
	}

	in := cfg.C[0].InputShape()
	for i, op := range cfg.C {
		if op == nil {
			return nil, fmt.Errorf("%w: constraint operator %d is nil", ErrInvalidConfig, i)
		}
		if !op.InputShape().Equal(in) {
			return nil, fmt.Errorf("%w: constraint operator %d input shape %v does not match %v",
				ErrInvalidConfig, i, op.InputShape(), in)
		}
	}
	n := in.NumElements()
	if cfg.X0 != nil && len(cfg.X0) != n {
		return nil, fmt.Errorf("%w: x0 length %d does not match operator domain %v",
			ErrInvalidConfig, len(cfg.X0), in)
	}

	rho, err := broadcastRho(cfg.Rho, len(cfg.C))
	if err != nil {
		return nil, err
	}

	adapt := cfg.AdaptRho
	if adapt != nil {
		a := *adapt
		if a.Factor == 0 {
			a.Factor = 2
		}
		if a.Threshold == 0 {
			a.Threshold = 10
		}
		if a.Factor <= 1 {
			return nil, fmt.Errorf("%w: rho adaptation factor %v must be > 1", ErrInvalidConfig, a.Factor)
		}
		if a.Threshold <= 1 {
			return nil, fmt.Errorf("%w: rho adaptation threshold %v must be > 1", ErrInvalidConfig, a.Threshold)
		}
		if a.Min < 0 || a.Max < 0 || (a.Min > 0 && a.Max > 0 && a.Min > a.Max) {
			return nil, fmt.Errorf("%w: rho adaptation bounds [%v, %v]", ErrInvalidConfig, a.Min, a.Max)
		}
		adapt = &a
	}

	a := &ADMM{
		f:               cfg.F,
		c:               cfg.C,
		g:               cfg.G,
		rho:             rho,
		maxIterations:   cfg.MaxIterations,
		callback:        cfg.Callback,
		adapt:           adapt,
		recordObjective: cfg.RecordObjective,
		logger:          cfg.Logger,
	}

	a.x = make([]float64, n)
	if cfg.X0 != nil {
		copy(a.x, cfg.X0)
	}
	a.xbuf = make([]float64, n)
	a.xacc = make([]float64, n)

	maxM := 0
	a.z = make([][]float64, len(cfg.C))
	a.u = make([][]float64, len(cfg.C))
	a.zPrev = make([][]float64, len(cfg.C))
	a.cx = make([][]float64, len(cfg.C))
	a.targets = make([][]float64, len(cfg.C))
	for i, op := range cfg.C {
		m := op.OutputShape().NumElements()
		if m > maxM {
			maxM = m
		}
		a.z[i] = make([]float64, m)
		a.u[i] = make([]float64, m)
		a.zPrev[i] = make([]float64, m)
		a.cx[i] = make([]float64, m)
		a.targets[i] = make([]float64, m)
		op.Apply(a.z[i], a.x)
	}
	a.blockBuf = make([]float64, maxM)

	a.solver = cfg.Solver
	if a.solver == nil {
		a.solver = NewLinearSubproblemSolver()
	}
	if err := a.solver.Bind(a); err != nil {
		return nil, err
	}
	return a, nil
}

func broadcastRho(rho []float64, blocks int) ([]float64, error) {
	out := make([]float64, blocks)
	switch len(rho) {
	case 0:
		for i := range out {
			out[i] = 1
		}
	case 1:
		if rho[0] <= 0 {
			return nil, fmt.Errorf("%w: rho %v must be strictly positive", ErrInvalidConfig, rho[0])
		}
		for i := range out {
			out[i] = rho[0]
		}
	case blocks:
		for i, r := range rho {
			if r <= 0 {
				return nil, fmt.Errorf("%w: rho[%d] = %v must be strictly positive", ErrInvalidConfig, i, r)
			}
			out[i] = r
		}
	default:
		return nil, fmt.Errorf("%w: %d rho values for %d blocks", ErrInvalidConfig, len(rho), blocks)
	}
	return out, nil
}

// Step performs exactly one x/z/u update cycle, mutating the iterate in
// place and appending one history record.
func (a *ADMM) Step() error {
	// x-update: minimize f(x) + Σᵢ (ρᵢ/2)||Cᵢx - (zᵢ - uᵢ)||².
	for i := range a.c {
		floats.SubTo(a.targets[i], a.z[i], a.u[i])
	}
	xNew, err := a.solver.Solve(a.x, a.targets, a.rho)
	if err != nil {
		return fmt.Errorf("optimize: x-update failed at iteration %d: %w", a.iter, err)
	}
	copy(a.x, xNew)

	// z-update per block: zᵢ = prox_{gᵢ/ρᵢ}(Cᵢx + uᵢ), then dual ascent
	// uᵢ += Cᵢx - zᵢ.
	primalSq := 0.0
	for i, op := range a.c {
		op.Apply(a.cx[i], a.x)
		copy(a.zPrev[i], a.z[i])

		v := a.blockBuf[:len(a.z[i])]
		floats.AddTo(v, a.cx[i], a.u[i])
		a.g[i].Prox(a.z[i], v, 1/a.rho[i])

		for j := range a.u[i] {
			r := a.cx[i][j] - a.z[i][j]
			a.u[i][j] += r
			primalSq += r * r
		}
	}

	// Dual residual: ||Σᵢ ρᵢ Cᵢᵀ(zᵢ - zᵢ_prev)||.
	for j := range a.xacc {
		a.xacc[j] = 0
	}
	for i, op := range a.c {
		d := a.blockBuf[:len(a.z[i])]
		floats.SubTo(d, a.z[i], a.zPrev[i])
		op.Adjoint(a.xbuf, d)
		floats.AddScaled(a.xacc, a.rho[i], a.xbuf)
	}

	stats := IterationStats{
		Iteration:       a.iter,
		PrimalResidual:  math.Sqrt(primalSq),
		DualResidual:    floats.Norm(a.xacc, 2),
		Objective:       math.NaN(),
		SolverConverged: solverConverged(a.solver),
		Rho:             a.rho[0],
	}
	if a.recordObjective {
		stats.Objective = a.objective()
	}
	a.history = append(a.history, stats)
	a.iter++

	if a.adapt != nil {
		a.adaptRho(stats)
	}

	a.logger.logf(LogIteration, "iter %4d  primal %.6e  dual %.6e  rho %.3e\n",
		stats.Iteration, stats.PrimalResidual, stats.DualResidual, a.rho[0])
	if !stats.SolverConverged {
		a.logger.logf(LogIteration, "iter %4d  subproblem solver did not reach tolerance\n", stats.Iteration)
	}
	return nil
}

// objective evaluates f(x) + Σᵢ gᵢ(Cᵢx) using the block applications
// computed by the current step.
func (a *ADMM) objective() float64 {
	v := 0.0
	if a.f != nil {
		v = a.f.Eval(a.x)
	}
	for i, g := range a.g {
		v += g.Eval(a.cx[i])
	}
	return v
}

// adaptRho applies residual balancing after a completed step.
func (a *ADMM) adaptRho(stats IterationStats) {
	var scale float64
	switch {
	case stats.PrimalResidual > a.adapt.Threshold*stats.DualResidual:
		scale = a.adapt.Factor
	case stats.DualResidual > a.adapt.Threshold*stats.PrimalResidual:
		scale = 1 / a.adapt.Factor
	default:
		return
	}
	changed := false
	for i := range a.rho {
		next := a.rho[i] * scale
		if a.adapt.Min > 0 && next < a.adapt.Min {
			next = a.adapt.Min
		}
		if a.adapt.Max > 0 && next > a.adapt.Max {
			next = a.adapt.Max
		}
		if next == a.rho[i] {
			continue
		}
		// The unscaled dual ρu is invariant under penalty rescaling.
		floats.Scale(a.rho[i]/next, a.u[i])
		a.rho[i] = next
		changed = true
	}
	if changed {
		a.solver.Invalidate()
	}
}

// Solve runs Step until the configured iteration count is reached, invoking
// the callback once per iteration, and returns the final primal iterate.
// Termination is a pure iteration-count gate; the only early exits are an
// error from a step or a non-nil callback return.
func (a *ADMM) Solve() ([]float64, error) {
	for a.iter < a.maxIterations {
		if err := a.Step(); err != nil {
			return a.x, err
		}
		if a.callback != nil {
			if err := a.callback(a.history[len(a.history)-1]); err != nil {
				if errors.Is(err, ErrStopIteration) {
					a.logger.logf(LogSummary, "stopped by callback after %d iterations\n", a.iter)
					return a.x, nil
				}
				return a.x, fmt.Errorf("optimize: callback failed at iteration %d: %w", a.iter-1, err)
			}
		}
	}
	if last := len(a.history); last > 0 {
		s := a.history[last-1]
		a.logger.logf(LogSummary, "done: %d iterations  primal %.6e  dual %.6e\n",
			a.iter, s.PrimalResidual, s.DualResidual)
	}
	return a.x, nil
}

// X returns the primal iterate. The returned slice is live: it is mutated
// by subsequent steps.
func (a *ADMM) X() []float64 { return a.x }

// Z returns the auxiliary variable of block i. The slice is live.
func (a *ADMM) Z(i int) []float64 { return a.z[i] }

// U returns the scaled dual variable of block i. The slice is live.
func (a *ADMM) U(i int) []float64 { return a.u[i] }

// Rho returns a copy of the per-block penalty parameters.
func (a *ADMM) Rho() []float64 { return array.CloneSlice(a.rho) }

// Iteration returns the number of completed iterations.
func (a *ADMM) Iteration() int { return a.iter }

// History returns a copy of the per-iteration diagnostics recorded so far.
func (a *ADMM) History() []IterationStats {
	out := make([]IterationStats, len(a.history))
	copy(out, a.history)
	return out
}
