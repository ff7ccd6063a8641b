package symbolic_test

import (
	"math"
	"testing"

	"github.com/edp1096/toy-powerflow/pkg/symbolic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConstructorFolding verifies constant folding and flattening in the
// expression constructors.
func TestConstructorFolding(t *testing.T) {
	tests := []struct {
		name string
		expr symbolic.Expr
		want float64
	}{
		{"sum of constants", symbolic.AddOf(symbolic.NewNum(1), symbolic.NewNum(2), symbolic.NewNum(3)), 6},
		{"product of constants", symbolic.MulOf(symbolic.NewNum(2), symbolic.NewNum(-3)), -6},
		{"zero factor", symbolic.MulOf(symbolic.NewNum(0), symbolic.NewSym("x")), 0},
		{"subtraction", symbolic.SubOf(symbolic.NewNum(5), symbolic.NewNum(2)), 3},
		{"division", symbolic.DivOf(symbolic.NewNum(1), symbolic.NewNum(4)), 0.25},
		{"power folding", symbolic.PowOf(symbolic.NewNum(2), symbolic.NewNum(10)), 1024},
		{"power of one", symbolic.PowOf(symbolic.NewNum(7), symbolic.NewNum(1)), 7},
		{"sine of constant", symbolic.SinOf(symbolic.NewNum(0)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.expr.Eval(nil)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, v, 1e-15)
		})
	}
}

// TestEval verifies evaluation with bound symbols and the unbound-symbol error.
func TestEval(t *testing.T) {
	x := symbolic.NewSym("x")
	y := symbolic.NewSym("y")

	// x^2 + 3*x*y - 2
	e := symbolic.AddOf(
		symbolic.PowOf(x, symbolic.NewNum(2)),
		symbolic.MulOf(symbolic.NewNum(3), x, y),
		symbolic.NewNum(-2),
	)

	v, err := e.Eval(map[string]float64{"x": 2, "y": -1})
	require.NoError(t, err)
	assert.InDelta(t, -4.0, v, 1e-12)

	_, err = e.Eval(map[string]float64{"x": 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, symbolic.ErrUnboundSymbol)
	assert.Contains(t, err.Error(), "y")
}

// TestSubstSimultaneous verifies that all replacements of one Subst call
// are applied in a single pass: swapping x and y must not cascade.
func TestSubstSimultaneous(t *testing.T) {
	x := symbolic.NewSym("x")
	y := symbolic.NewSym("y")

	// x + 2*y with x -> y and y -> x must become y + 2*x, not x + 2*x.
	e := symbolic.AddOf(x, symbolic.MulOf(symbolic.NewNum(2), y))
	swapped := e.Subst(map[string]symbolic.Expr{"x": y, "y": x})

	v, err := swapped.Eval(map[string]float64{"x": 10, "y": 1})
	require.NoError(t, err)
	assert.InDelta(t, 21.0, v, 1e-12)
}

// TestSubstWithExpressions verifies substitution of composite replacements.
func TestSubstWithExpressions(t *testing.T) {
	v := symbolic.NewSym("v")
	v0 := symbolic.NewSym("v0")

	e := symbolic.SubOf(v, v0)
	concrete := e.Subst(map[string]symbolic.Expr{
		"v":  symbolic.NewSym("Bus_v_3"),
		"v0": symbolic.NewNum(1.05),
	})

	got, err := concrete.Eval(map[string]float64{"Bus_v_3": 0.95})
	require.NoError(t, err)
	assert.InDelta(t, -0.1, got, 1e-12)

	assert.Equal(t, []string{"Bus_v_3"}, symbolic.FreeSymbols(concrete))
}

// TestDiff verifies the differentiation rules used for Jacobian assembly.
func TestDiff(t *testing.T) {
	x := symbolic.NewSym("x")
	y := symbolic.NewSym("y")
	at := map[string]float64{"x": 0.3, "y": 1.7}

	tests := []struct {
		name string
		expr symbolic.Expr
		wrt  string
		want float64
	}{
		{"constant", symbolic.NewNum(42), "x", 0},
		{"self", x, "x", 1},
		{"other symbol", y, "x", 0},
		{"square", symbolic.PowOf(x, symbolic.NewNum(2)), "x", 2 * 0.3},
		{"reciprocal", symbolic.DivOf(symbolic.NewNum(1), x), "x", -1 / (0.3 * 0.3)},
		{"product rule", symbolic.MulOf(x, y), "x", 1.7},
		{"sine", symbolic.SinOf(x), "x", math.Cos(0.3)},
		{"cosine", symbolic.CosOf(x), "x", -math.Sin(0.3)},
		{"chain rule", symbolic.SinOf(symbolic.MulOf(symbolic.NewNum(2), x)), "x", 2 * math.Cos(0.6)},
		{"mixed", symbolic.MulOf(x, symbolic.CosOf(y)), "y", -0.3 * math.Sin(1.7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.expr.Diff(tt.wrt)
			v, err := d.Eval(at)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, v, 1e-12)
		})
	}
}

// TestFreeSymbols verifies deduplicated, sorted symbol collection.
func TestFreeSymbols(t *testing.T) {
	e := symbolic.AddOf(
		symbolic.MulOf(symbolic.NewSym("b"), symbolic.NewSym("a")),
		symbolic.SinOf(symbolic.NewSym("a")),
		symbolic.NewNum(3),
	)
	assert.Equal(t, []string{"a", "b"}, symbolic.FreeSymbols(e))

	assert.Empty(t, symbolic.FreeSymbols(symbolic.NewNum(1)))
}

// TestCompile verifies closure compilation against an index map.
func TestCompile(t *testing.T) {
	// 10*v1*v2*sin(a1 - a2)
	e := symbolic.MulOf(
		symbolic.NewNum(10),
		symbolic.NewSym("v1"),
		symbolic.NewSym("v2"),
		symbolic.SinOf(symbolic.SubOf(symbolic.NewSym("a1"), symbolic.NewSym("a2"))),
	)

	index := map[string]int{"a1": 0, "a2": 1, "v1": 2, "v2": 3}
	fn, err := symbolic.Compile(e, index)
	require.NoError(t, err)

	vec := []float64{0, -0.1, 1.0, 0.99}
	assert.InDelta(t, 10*0.99*math.Sin(0.1), fn(vec), 1e-12)
}

// TestCompileUnbound verifies that compilation fails for symbols missing
// from the index map.
func TestCompileUnbound(t *testing.T) {
	e := symbolic.AddOf(symbolic.NewSym("known"), symbolic.NewSym("unknown"))
	_, err := symbolic.Compile(e, map[string]int{"known": 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, symbolic.ErrUnboundSymbol)
	assert.Contains(t, err.Error(), "unknown")
}
