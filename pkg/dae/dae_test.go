package dae_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-powerflow/pkg/dae"
	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

// TestNewIdxByVariable checks the canonical layout: each variable's rows
// are contiguous and devices follow each other in allocation order.
func TestNewIdxByVariable(t *testing.T) {
	d := dae.New()

	got := d.NewIdx("Bus", dae.Algeb, []string{"a", "v"}, 3, dae.ByVariable)
	assert.Equal(t, []int{0, 1, 2}, got["a"])
	assert.Equal(t, []int{3, 4, 5}, got["v"])

	got = d.NewIdx("PV", dae.Algeb, []string{"q"}, 2, dae.ByVariable)
	assert.Equal(t, []int{6, 7}, got["q"])

	assert.Equal(t, 8, d.AlgebCount())
	assert.Equal(t, 0, d.StateCount())
}

// TestNewIdxByElement checks the element-major layout: one element's full
// variable set precedes the next element's.
func TestNewIdxByElement(t *testing.T) {
	d := dae.New()

	got := d.NewIdx("Gen", dae.State, []string{"delta", "omega"}, 3, dae.ByElement)
	assert.Equal(t, []int{0, 2, 4}, got["delta"])
	assert.Equal(t, []int{1, 3, 5}, got["omega"])
	assert.Equal(t, 6, d.StateCount())
}

// TestNewIdxIdempotent checks that a repeated allocation returns the
// original addresses without growing the segment.
func TestNewIdxIdempotent(t *testing.T) {
	d := dae.New()

	first := d.NewIdx("Bus", dae.Algeb, []string{"a"}, 4, dae.ByVariable)
	again := d.NewIdx("Bus", dae.Algeb, []string{"a"}, 4, dae.ByVariable)

	assert.Equal(t, first["a"], again["a"])
	assert.Equal(t, 4, d.AlgebCount())
}

// TestSegmentsIndependent checks that state and algebraic addresses are
// counted separately.
func TestSegmentsIndependent(t *testing.T) {
	d := dae.New()

	x := d.NewIdx("Gen", dae.State, []string{"delta"}, 2, dae.ByVariable)
	y := d.NewIdx("Bus", dae.Algeb, []string{"a"}, 2, dae.ByVariable)

	assert.Equal(t, []int{0, 1}, x["delta"])
	assert.Equal(t, []int{0, 1}, y["a"])
}

// TestAddress looks allocations up by device and variable name.
func TestAddress(t *testing.T) {
	d := dae.New()
	d.NewIdx("Bus", dae.Algeb, []string{"a", "v"}, 2, dae.ByVariable)

	addrs, kind, ok := d.Address("Bus", "v")
	require.True(t, ok)
	assert.Equal(t, dae.Algeb, kind)
	assert.Equal(t, []int{2, 3}, addrs)

	_, _, ok = d.Address("Bus", "zz")
	assert.False(t, ok)
}

// TestOwnerLabels checks the diagnostic labels attached to addresses.
func TestOwnerLabels(t *testing.T) {
	d := dae.New()
	d.NewIdx("Bus", dae.Algeb, []string{"a"}, 2, dae.ByVariable)

	assert.Equal(t, "Bus.a[1]", d.Owner(dae.Algeb, 1))
}

// TestAdditiveOverlay checks that several contributions to one address
// sum in the compiled equation.
func TestAdditiveOverlay(t *testing.T) {
	d := dae.New()
	addrs := d.NewIdx("Bus", dae.Algeb, []string{"a"}, 1, dae.ByVariable)
	d.BindSymbol(dae.Algeb, "Bus_a_0", addrs["a"][0])
	d.InitEmpty()

	require.NoError(t, d.AddAlgebEquation(0, symbolic.NewNum(2)))
	require.NoError(t, d.AddAlgebEquation(0, symbolic.NewSym("Bus_a_0")))
	require.NoError(t, d.AddAlgebEquation(0, symbolic.NewNum(3)))

	res, err := d.Compile()
	require.NoError(t, err)

	out := make([]float64, 1)
	res.EvalAlgeb(nil, []float64{10}, out)
	assert.InDelta(t, 15, out[0], 1e-12)
}

// TestAddEquationBeforeInit checks that equation storage rejects use
// before InitEmpty.
func TestAddEquationBeforeInit(t *testing.T) {
	d := dae.New()
	d.NewIdx("Bus", dae.Algeb, []string{"a"}, 1, dae.ByVariable)

	err := d.AddAlgebEquation(0, symbolic.NewNum(1))
	require.ErrorIs(t, err, dae.ErrNotInitialized)
}

// TestCompileEmptyRow checks that compilation names the address that
// received no contribution.
func TestCompileEmptyRow(t *testing.T) {
	d := dae.New()
	d.NewIdx("Bus", dae.Algeb, []string{"a", "v"}, 1, dae.ByVariable)
	d.InitEmpty()
	require.NoError(t, d.AddAlgebEquation(0, symbolic.NewNum(1)))

	_, err := d.Compile()
	require.ErrorIs(t, err, dae.ErrEmptyEquation)
	assert.Contains(t, err.Error(), "Bus.v[0]")
}

// TestCompileJacobian checks the per-entry symbolic Jacobian of a small
// system.
func TestCompileJacobian(t *testing.T) {
	d := dae.New()
	addrs := d.NewIdx("T", dae.Algeb, []string{"y"}, 2, dae.ByVariable)
	d.BindSymbol(dae.Algeb, "T_y_0", addrs["y"][0])
	d.BindSymbol(dae.Algeb, "T_y_1", addrs["y"][1])
	d.InitEmpty()

	y0 := symbolic.NewSym("T_y_0")
	y1 := symbolic.NewSym("T_y_1")
	// g0 = y0^2 - 4, g1 = y0*y1
	require.NoError(t, d.AddAlgebEquation(0, symbolic.SubOf(symbolic.PowOf(y0, symbolic.NewNum(2)), symbolic.NewNum(4))))
	require.NoError(t, d.AddAlgebEquation(1, symbolic.MulOf(y0, y1)))

	res, err := d.Compile()
	require.NoError(t, err)
	assert.Equal(t, 3, res.JacobianEntryCount())

	jac := map[[2]int]float64{}
	res.StampAlgebJacobian(nil, []float64{3, 5}, func(row, col int, value float64) {
		jac[[2]int{row, col}] += value
	})
	assert.InDelta(t, 6, jac[[2]int{0, 0}], 1e-12)
	assert.InDelta(t, 5, jac[[2]int{1, 0}], 1e-12)
	assert.InDelta(t, 3, jac[[2]int{1, 1}], 1e-12)
}

// TestInitialValues checks that the initial vectors are copies.
func TestInitialValues(t *testing.T) {
	d := dae.New()
	d.NewIdx("Bus", dae.Algeb, []string{"v"}, 2, dae.ByVariable)
	d.InitEmpty()
	require.NoError(t, d.SetAlgebInit(0, 1))
	require.NoError(t, d.SetAlgebInit(1, 1.05))

	y := d.YInit()
	assert.Equal(t, []float64{1, 1.05}, y)

	y[0] = 99
	assert.Equal(t, []float64{1, 1.05}, d.YInit())
}

// TestStateEquations checks that the state segment collects and
// evaluates like the algebraic one.
func TestStateEquations(t *testing.T) {
	d := dae.New()
	x := d.NewIdx("Gen", dae.State, []string{"delta"}, 1, dae.ByVariable)
	y := d.NewIdx("Bus", dae.Algeb, []string{"a"}, 1, dae.ByVariable)
	d.BindSymbol(dae.State, "Gen_delta_0", x["delta"][0])
	d.BindSymbol(dae.Algeb, "Bus_a_0", y["a"][0])
	d.InitEmpty()

	// f0 = a - delta, g0 = a - 1
	require.NoError(t, d.AddStateEquation(0, symbolic.SubOf(symbolic.NewSym("Bus_a_0"), symbolic.NewSym("Gen_delta_0"))))
	require.NoError(t, d.AddAlgebEquation(0, symbolic.SubOf(symbolic.NewSym("Bus_a_0"), symbolic.NewNum(1))))

	res, err := d.Compile()
	require.NoError(t, err)

	out := make([]float64, 1)
	res.EvalState([]float64{0.25}, []float64{1}, out)
	assert.InDelta(t, 0.75, out[0], 1e-12)
}
