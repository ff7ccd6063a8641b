// Package solver drives a Newton iteration over a compiled residual,
// solving the algebraic equations with the states held fixed.
package solver

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/edp1096/toy-powerflow/pkg/dae"
	"github.com/edp1096/toy-powerflow/pkg/matrix"
)

// ErrNoConvergence reports that the iteration cap was reached with the
// residual still above tolerance.
var ErrNoConvergence = errors.New("solver: no convergence")

type Options struct {
	MaxIter int     // iteration cap
	Tol     float64 // residual infinity-norm tolerance
}

func DefaultOptions() Options {
	return Options{MaxIter: 100, Tol: 1e-8}
}

type Stats struct {
	Iterations int
	Residual   float64
}

// SolveAlgeb solves g(x, y) = 0 for y in place. Each round evaluates the
// mismatch, stamps the Jacobian into the sparse matrix and applies the
// full Newton step.
func SolveAlgeb(res *dae.Residual, x, y []float64, opt Options) (Stats, error) {
	if len(x) != res.StateCount() {
		return Stats{}, fmt.Errorf("solver: got %d state values, want %d", len(x), res.StateCount())
	}
	if len(y) != res.AlgebCount() {
		return Stats{}, fmt.Errorf("solver: got %d algebraic values, want %d", len(y), res.AlgebCount())
	}
	if opt.MaxIter <= 0 {
		opt.MaxIter = DefaultOptions().MaxIter
	}
	if opt.Tol <= 0 {
		opt.Tol = DefaultOptions().Tol
	}

	mat, err := matrix.NewMatrix(res.AlgebCount())
	if err != nil {
		return Stats{}, err
	}
	defer mat.Destroy()

	log := slog.Default().With("component", "solver")
	g := make([]float64, res.AlgebCount())
	var stats Stats

	for iter := 0; iter < opt.MaxIter; iter++ {
		res.EvalAlgeb(x, y, g)

		mismatch := 0.0
		for _, v := range g {
			if math.Abs(v) > mismatch {
				mismatch = math.Abs(v)
			}
		}
		stats.Iterations = iter
		stats.Residual = mismatch
		log.Debug("newton iteration", "iter", iter, "mismatch", mismatch)
		if mismatch < opt.Tol {
			return stats, nil
		}

		mat.Clear()
		res.StampAlgebJacobian(x, y, func(row, col int, value float64) {
			mat.AddElement(row+1, col+1, value)
		})
		for i, v := range g {
			mat.AddRHS(i+1, -v)
		}

		if err := mat.Solve(); err != nil {
			return stats, fmt.Errorf("solver: iteration %d: %v", iter, err)
		}
		sol := mat.Solution()
		for i := range y {
			y[i] += sol[i+1]
		}
	}

	return stats, fmt.Errorf("%w after %d iterations, residual %g", ErrNoConvergence, opt.MaxIter, stats.Residual)
}
