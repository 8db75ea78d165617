// Copyright 2025 RIPL Developers. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optimize

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ripl-sci/ripl/array"
	"github.com/ripl-sci/ripl/functional"
	"github.com/ripl-sci/ripl/internal/solver"
	"github.com/ripl-sci/ripl/linop"
)

func solveWith(t *testing.T, cfg Config, s SubproblemSolver, iters int) []float64 {
	t.Helper()
	cfg.Solver = s
	cfg.MaxIterations = iters
	a, err := NewADMM(cfg)
	require.NoError(t, err)
	x, err := a.Solve()
	require.NoError(t, err)
	return append([]float64(nil), x...)
}

func TestLinearDirectMatchesCG(t *testing.T) {
	a := linop.NewMatrix(mat.NewDense(4, 3, []float64{
		1, 0.5, 0,
		0, 1, -0.5,
		2, 0, 1,
		0.5, 1, 1,
	}))
	loss, err := functional.NewSquaredL2Loss(a, []float64{1, -1, 0.5, 2})
	require.NoError(t, err)

	diag, err := linop.NewDiagonal([]float64{1, 2, 3}, array.Shape{3})
	require.NoError(t, err)

	cfg := Config{
		F:   loss,
		C:   []linop.Operator{diag, linop.NewIdentity(array.Shape{3})},
		G:   []functional.Proximable{functional.NewL1Norm(0.1), functional.NewSquaredL2(0.5)},
		Rho: []float64{1, 2},
	}

	direct := solveWith(t, cfg, &LinearSubproblemSolver{Direct: true}, 5)
	iterative := solveWith(t, cfg, &LinearSubproblemSolver{CG: solver.Settings{Tolerance: 1e-12}}, 5)

	for i := range direct {
		assert.InDelta(t, direct[i], iterative[i], 1e-8, "component %d", i)
	}
}

func TestCircularSolverMatchesLinearDirect(t *testing.T) {
	const n = 16
	rng := rand.New(rand.NewSource(5))
	y := make([]float64, n)
	for i := range y {
		y[i] = rng.NormFloat64()
	}
	loss, err := functional.NewSquaredL2Loss(nil, y)
	require.NoError(t, err)

	conv, err := linop.NewCircularConvolve([]float64{1, 0.6, 0.2}, array.Shape{3}, array.Shape{n})
	require.NoError(t, err)

	cfg := Config{
		F: loss,
		C: []linop.Operator{conv},
		G: []functional.Proximable{functional.NewL1Norm(0.05)},
	}

	freq := solveWith(t, cfg, NewCircularConvolveSolver(), 5)
	direct := solveWith(t, cfg, &LinearSubproblemSolver{Direct: true}, 5)

	for i := range freq {
		assert.InDelta(t, direct[i], freq[i], 1e-8, "component %d", i)
	}
}

func TestGenericMatchesLinear(t *testing.T) {
	y := []float64{1, -2, 0.5, 3}
	loss, err := functional.NewSquaredL2Loss(nil, y)
	require.NoError(t, err)

	diag, err := linop.NewDiagonal([]float64{1, 0.5, 2, 1.5}, array.Shape{4})
	require.NoError(t, err)

	cfg := Config{
		F: loss,
		C: []linop.Operator{diag},
		G: []functional.Proximable{functional.NewSquaredL2(0.3)},
	}

	generic := solveWith(t, cfg, &GenericSubproblemSolver{Tolerance: 1e-10, MaxIterations: 500}, 5)
	linear := solveWith(t, cfg, &LinearSubproblemSolver{CG: solver.Settings{Tolerance: 1e-12}}, 5)

	for i := range generic {
		assert.InDelta(t, linear[i], generic[i], 1e-6, "component %d", i)
	}
}

func TestDirectSingularSystemFails(t *testing.T) {
	// No data-fidelity term and a rank-deficient constraint: the normal
	// equations are singular and the direct path must fail fatally.
	zero := linop.NewMatrix(mat.NewDense(2, 2, nil))
	a, err := NewADMM(Config{
		C:      []linop.Operator{zero},
		G:      []functional.Proximable{functional.Zero{}},
		Solver: &LinearSubproblemSolver{Direct: true},
	})
	require.NoError(t, err)

	err = a.Step()
	assert.ErrorIs(t, err, ErrSingular)
}

func TestFrequencySingularSystemFails(t *testing.T) {
	// A differencing kernel has zero response at DC; with no data-fidelity
	// term the frequency diagonal vanishes there.
	conv, err := linop.NewCircularConvolve([]float64{1, -1}, array.Shape{2}, array.Shape{8})
	require.NoError(t, err)

	a, err := NewADMM(Config{
		C:      []linop.Operator{conv},
		G:      []functional.Proximable{functional.Zero{}},
		Solver: NewCircularConvolveSolver(),
	})
	require.NoError(t, err)

	err = a.Step()
	assert.ErrorIs(t, err, ErrSingular)
}

func TestFBlockSolverMatchesLinearDirect(t *testing.T) {
	const n = 16
	rng := rand.New(rand.NewSource(9))
	y := make([]float64, n)
	for i := range y {
		y[i] = rng.NormFloat64()
	}

	blur, err := linop.NewCircularConvolve([]float64{1, 0.3}, array.Shape{2}, array.Shape{n})
	require.NoError(t, err)
	loss, err := functional.NewSquaredL2Loss(blur, y)
	require.NoError(t, err)

	diff, err := linop.NewCircularConvolve([]float64{1, -1}, array.Shape{2}, array.Shape{n})
	require.NoError(t, err)

	cfg := Config{
		F: loss,
		C: []linop.Operator{diff},
		G: []functional.Proximable{functional.NewSquaredL2(0.5)},
	}

	freq := solveWith(t, cfg, NewFBlockCircularConvolveSolver(), 5)
	direct := solveWith(t, cfg, &LinearSubproblemSolver{Direct: true}, 5)

	for i := range freq {
		assert.InDelta(t, direct[i], freq[i], 1e-8, "component %d", i)
	}
}

func TestG0BlockEnforcesSupportMask(t *testing.T) {
	const n = 16
	rng := rand.New(rand.NewSource(21))
	y := make([]float64, n)
	mean := 0.0
	for i := range y {
		y[i] = rng.NormFloat64()
		mean += y[i]
	}
	mean /= n

	loss, err := functional.NewSquaredL2Loss(nil, y)
	require.NoError(t, err)

	// Block 0 annihilates everything but the DC bin; with a zero indicator
	// penalty the solution is forced constant and settles at the mean of y.
	highpass, err := linop.NewCircularConvolve([]float64{1, -1}, array.Shape{2}, array.Shape{n})
	require.NoError(t, err)
	delta, err := linop.NewCircularConvolve([]float64{1}, array.Shape{1}, array.Shape{n})
	require.NoError(t, err)

	a, err := NewADMM(Config{
		F:             loss,
		C:             []linop.Operator{highpass, delta},
		G:             []functional.Proximable{functional.ZeroIndicator{}, functional.Zero{}},
		Solver:        NewG0BlockCircularConvolveSolver(),
		MaxIterations: 60,
	})
	require.NoError(t, err)

	x, err := a.Solve()
	require.NoError(t, err)
	for i := range x {
		assert.InDelta(t, mean, x[i], 1e-8, "component %d", i)
	}
}

func TestG0BlockRequiresSecondBlock(t *testing.T) {
	conv, err := linop.NewCircularConvolve([]float64{1, -1}, array.Shape{2}, array.Shape{8})
	require.NoError(t, err)

	_, err = NewADMM(Config{
		C:      []linop.Operator{conv},
		G:      []functional.Proximable{functional.ZeroIndicator{}},
		Solver: NewG0BlockCircularConvolveSolver(),
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSolverBindRejections(t *testing.T) {
	id := linop.NewIdentity(array.Shape{4})
	conv, err := linop.NewCircularConvolve([]float64{1}, array.Shape{1}, array.Shape{4})
	require.NoError(t, err)
	identityLoss, err := functional.NewSquaredL2Loss(nil, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	opaque := &linop.Func{
		In:      array.Shape{4},
		Out:     array.Shape{4},
		Forward: func(dst, x []float64) { copy(dst, x) },
		Transp:  func(dst, y []float64) { copy(dst, y) },
	}

	tests := map[string]Config{
		"linear requires quadratic fidelity": {
			F: functional.NewL1Norm(1),
			C: []linop.Operator{id},
			G: []functional.Proximable{functional.Zero{}},
		},
		"direct requires explicit matrices": {
			F:      identityLoss,
			C:      []linop.Operator{opaque},
			G:      []functional.Proximable{functional.Zero{}},
			Solver: &LinearSubproblemSolver{Direct: true},
		},
		"generic requires smooth fidelity": {
			F:      functional.NewL1Norm(1),
			C:      []linop.Operator{id},
			G:      []functional.Proximable{functional.Zero{}},
			Solver: NewGenericSubproblemSolver(),
		},
		"frequency requires convolutions": {
			F:      identityLoss,
			C:      []linop.Operator{id},
			G:      []functional.Proximable{functional.Zero{}},
			Solver: NewCircularConvolveSolver(),
		},
		"fblock requires a fidelity term": {
			C:      []linop.Operator{conv},
			G:      []functional.Proximable{functional.Zero{}},
			Solver: NewFBlockCircularConvolveSolver(),
		},
		"fblock requires circulant fidelity": {
			F:      identityLoss,
			C:      []linop.Operator{conv},
			G:      []functional.Proximable{functional.Zero{}},
			Solver: NewFBlockCircularConvolveSolver(),
		},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewADMM(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestInnerBudgetIsWarningNotError(t *testing.T) {
	a := linop.NewMatrix(mat.NewDense(3, 3, []float64{
		2, 1, 0,
		1, 3, 1,
		0, 1, 4,
	}))
	loss, err := functional.NewSquaredL2Loss(a, []float64{1, 2, 3})
	require.NoError(t, err)

	admm, err := NewADMM(Config{
		F:             loss,
		C:             []linop.Operator{linop.NewIdentity(array.Shape{3})},
		G:             []functional.Proximable{functional.NewL1Norm(0.1)},
		Solver:        &LinearSubproblemSolver{CG: solver.Settings{Tolerance: 1e-16, MaxIterations: 1}},
		MaxIterations: 2,
	})
	require.NoError(t, err)

	_, err = admm.Solve()
	require.NoError(t, err)
	assert.False(t, admm.History()[0].SolverConverged)
}

func TestDirectSolverWithRhoAdaptation(t *testing.T) {
	y := []float64{2, -1, 0.5, 4}
	const w = 0.5
	loss, err := functional.NewSquaredL2Loss(nil, y)
	require.NoError(t, err)

	a, err := NewADMM(Config{
		F:             loss,
		C:             []linop.Operator{linop.NewIdentity(array.Shape{4})},
		G:             []functional.Proximable{functional.NewSquaredL2(w)},
		Rho:           []float64{8},
		Solver:        &LinearSubproblemSolver{Direct: true},
		AdaptRho:      &RhoAdaptation{Factor: 2, Threshold: 1.5},
		MaxIterations: 300,
	})
	require.NoError(t, err)

	x, err := a.Solve()
	require.NoError(t, err)
	for i := range y {
		assert.InDelta(t, y[i]/(1+w), x[i], 1e-8, "component %d", i)
	}
}

// TestL1DeconvolutionMatchesProximalGradient cross-checks the full ADMM
// pipeline on min ||x - y||² + lam ||C x||_1 against an independent proximal
// gradient (ISTA) solver of the substituted problem in w = C x.
func TestL1DeconvolutionMatchesProximalGradient(t *testing.T) {
	const (
		n   = 32
		lam = 0.05
	)
	rng := rand.New(rand.NewSource(42))

	conv, err := linop.NewCircularConvolve([]float64{1, 0.6, 0.2}, array.Shape{3}, array.Shape{n})
	require.NoError(t, err)

	y := make([]float64, n)
	for i := range y {
		y[i] = math.Sin(float64(i)*0.7) + 0.1*rng.NormFloat64()
	}
	loss, err := functional.NewSquaredL2Loss(nil, y)
	require.NoError(t, err)

	a, err := NewADMM(Config{
		F:             loss,
		C:             []linop.Operator{conv},
		G:             []functional.Proximable{functional.NewL1Norm(lam)},
		Solver:        NewCircularConvolveSolver(),
		MaxIterations: 2000,
	})
	require.NoError(t, err)
	xADMM, err := a.Solve()
	require.NoError(t, err)

	last := a.History()[len(a.History())-1]
	assert.Less(t, last.PrimalResidual, 1e-6)
	assert.Less(t, last.DualResidual, 1e-6)

	// Reference: substitute w = C x (C is invertible), so the problem
	// becomes min ||C⁻¹ w - y||² + lam ||w||_1, solved by ISTA with step
	// 1/L, L = 2 max_k |Ĉ_k|⁻².
	var cinv mat.Dense
	require.NoError(t, cinv.Inverse(mat.DenseCopyOf(conv.Matrix())))

	lip := 0.0
	for _, v := range conv.FreqResponse() {
		if m := 1 / (cmplx.Abs(v) * cmplx.Abs(v)); m > lip {
			lip = m
		}
	}
	step := 1 / (2 * lip)

	w := make([]float64, n)
	r := make([]float64, n)
	g := make([]float64, n)
	for it := 0; it < 5000; it++ {
		// r = C⁻¹ w - y
		mat.NewVecDense(n, r).MulVec(&cinv, mat.NewVecDense(n, w))
		floats.Sub(r, y)
		// g = 2 C⁻ᵀ r
		mat.NewVecDense(n, g).MulVec(cinv.T(), mat.NewVecDense(n, r))
		floats.AddScaled(w, -2*step, g)
		// Soft threshold at step*lam.
		th := step * lam
		for j, wj := range w {
			switch {
			case wj > th:
				w[j] = wj - th
			case wj < -th:
				w[j] = wj + th
			default:
				w[j] = 0
			}
		}
	}
	xRef := make([]float64, n)
	mat.NewVecDense(n, xRef).MulVec(&cinv, mat.NewVecDense(n, w))

	for i := range xRef {
		assert.InDelta(t, xRef[i], xADMM[i], 1e-4, "component %d", i)
	}
}
