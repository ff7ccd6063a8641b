package device

import "github.com/edp1096/toy-powerflow/pkg/symbolic"

// Line is an AC transmission line in the pi model. The series admittance
// and the half shunt susceptance are derived parameters with the status
// flag folded in, so an out-of-service line contributes zero without
// touching the equation templates.
type Line struct {
	BaseDevice

	Bus1 []int
	Bus2 []int
	R    []float64 // series resistance (pu)
	X    []float64 // series reactance (pu)
	B    []float64 // total shunt susceptance (pu)

	Gk []float64 // series conductance, derived
	Bk []float64 // series susceptance, derived
	Bh []float64 // shunt susceptance per terminal, derived

	A1 []symbolic.Expr // terminal 1 angle, imported
	V1 []symbolic.Expr // terminal 1 magnitude, imported
	A2 []symbolic.Expr // terminal 2 angle, imported
	V2 []symbolic.Expr // terminal 2 magnitude, imported
}

func NewLine() *Line {
	d := &Line{}
	d.Init("Line")
	d.AddForeignKey(&d.Bus1, "bus1", "Bus")
	d.AddForeignKey(&d.Bus2, "bus2", "Bus")
	d.AddParam(&d.R, "r", 0)
	d.AddParam(&d.X, "x", 1e-6) // nonzero so the derived admittance stays finite
	d.AddParam(&d.B, "b", 0)

	u := symbolic.NewSym("u")
	r := symbolic.NewSym("r")
	x := symbolic.NewSym("x")
	bsh := symbolic.NewSym("b")
	den := symbolic.AddOf(symbolic.PowOf(r, symbolic.NewNum(2)), symbolic.PowOf(x, symbolic.NewNum(2)))
	d.AddDerivedParam(&d.Gk, "gk", symbolic.MulOf(u, symbolic.DivOf(r, den)))
	d.AddDerivedParam(&d.Bk, "bk", symbolic.NegOf(symbolic.MulOf(u, symbolic.DivOf(x, den))))
	d.AddDerivedParam(&d.Bh, "bh", symbolic.MulOf(u, symbolic.DivOf(bsh, symbolic.NewNum(2))))

	d.AddImport(&d.A1, "a1", "bus1", "a")
	d.AddImport(&d.V1, "v1", "bus1", "v")
	d.AddImport(&d.A2, "a2", "bus2", "a")
	d.AddImport(&d.V2, "v2", "bus2", "v")

	gk := symbolic.NewSym("gk")
	bk := symbolic.NewSym("bk")
	bh := symbolic.NewSym("bh")
	a1 := symbolic.NewSym("a1")
	v1 := symbolic.NewSym("v1")
	a2 := symbolic.NewSym("a2")
	v2 := symbolic.NewSym("v2")

	diff := symbolic.SubOf(a1, a2)
	cosD := symbolic.CosOf(diff)
	sinD := symbolic.SinOf(diff)
	vv := symbolic.MulOf(v1, v2)
	two := symbolic.NewNum(2)

	// Power flowing from each terminal into the line.
	p1 := symbolic.SubOf(
		symbolic.MulOf(symbolic.PowOf(v1, two), gk),
		symbolic.MulOf(vv, symbolic.AddOf(symbolic.MulOf(gk, cosD), symbolic.MulOf(bk, sinD))),
	)
	q1 := symbolic.SubOf(
		symbolic.NegOf(symbolic.MulOf(symbolic.PowOf(v1, two), symbolic.AddOf(bk, bh))),
		symbolic.MulOf(vv, symbolic.SubOf(symbolic.MulOf(gk, sinD), symbolic.MulOf(bk, cosD))),
	)
	p2 := symbolic.SubOf(
		symbolic.MulOf(symbolic.PowOf(v2, two), gk),
		symbolic.MulOf(vv, symbolic.SubOf(symbolic.MulOf(gk, cosD), symbolic.MulOf(bk, sinD))),
	)
	q2 := symbolic.AddOf(
		symbolic.NegOf(symbolic.MulOf(symbolic.PowOf(v2, two), symbolic.AddOf(bk, bh))),
		symbolic.MulOf(vv, symbolic.AddOf(symbolic.MulOf(gk, sinD), symbolic.MulOf(bk, cosD))),
	)

	d.AddExternalEquation("a1", p1)
	d.AddExternalEquation("v1", q1)
	d.AddExternalEquation("a2", p2)
	d.AddExternalEquation("v2", q2)
	return d
}
