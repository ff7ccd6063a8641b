package solver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-powerflow/pkg/dae"
	"github.com/edp1096/toy-powerflow/pkg/solver"
	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

func buildResidual(t *testing.T, vars []string, eqs []symbolic.Expr) *dae.Residual {
	t.Helper()

	d := dae.New()
	addrs := d.NewIdx("T", dae.Algeb, vars, 1, dae.ByVariable)
	for _, v := range vars {
		d.BindSymbol(dae.Algeb, v, addrs[v][0])
	}
	d.InitEmpty()
	for i, eq := range eqs {
		require.NoError(t, d.AddAlgebEquation(i, eq))
	}
	res, err := d.Compile()
	require.NoError(t, err)
	return res
}

// TestSolveQuadratic finds the positive root of y^2 - 4 from a far
// start.
func TestSolveQuadratic(t *testing.T) {
	y0 := symbolic.NewSym("y0")
	res := buildResidual(t, []string{"y0"}, []symbolic.Expr{
		symbolic.SubOf(symbolic.PowOf(y0, symbolic.NewNum(2)), symbolic.NewNum(4)),
	})

	y := []float64{10}
	stats, err := solver.SolveAlgeb(res, nil, y, solver.DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 2, y[0], 1e-6)
	assert.Greater(t, stats.Iterations, 0)
}

// TestSolveLinearSystem solves a 2x2 linear system in a single Newton
// step.
func TestSolveLinearSystem(t *testing.T) {
	y0 := symbolic.NewSym("y0")
	y1 := symbolic.NewSym("y1")
	res := buildResidual(t, []string{"y0", "y1"}, []symbolic.Expr{
		symbolic.SubOf(symbolic.AddOf(symbolic.MulOf(symbolic.NewNum(2), y0), y1), symbolic.NewNum(5)),
		symbolic.AddOf(symbolic.SubOf(y0, symbolic.MulOf(symbolic.NewNum(3), y1)), symbolic.NewNum(1)),
	})

	y := []float64{0, 0}
	stats, err := solver.SolveAlgeb(res, nil, y, solver.DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 2, y[0], 1e-9)
	assert.InDelta(t, 1, y[1], 1e-9)
	assert.Equal(t, 1, stats.Iterations)
}

// TestSolveNoConvergence checks the iteration cap failure.
func TestSolveNoConvergence(t *testing.T) {
	y0 := symbolic.NewSym("y0")
	res := buildResidual(t, []string{"y0"}, []symbolic.Expr{
		symbolic.SubOf(symbolic.PowOf(y0, symbolic.NewNum(2)), symbolic.NewNum(4)),
	})

	_, err := solver.SolveAlgeb(res, nil, []float64{10}, solver.Options{MaxIter: 2, Tol: 1e-12})
	require.ErrorIs(t, err, solver.ErrNoConvergence)
}

// TestSolveDimensionMismatch rejects a wrongly sized start vector.
func TestSolveDimensionMismatch(t *testing.T) {
	y0 := symbolic.NewSym("y0")
	res := buildResidual(t, []string{"y0"}, []symbolic.Expr{
		symbolic.SubOf(y0, symbolic.NewNum(1)),
	})

	_, err := solver.SolveAlgeb(res, nil, []float64{1, 2}, solver.DefaultOptions())
	require.Error(t, err)
}
