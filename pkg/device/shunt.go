package device

import "github.com/edp1096/toy-powerflow/pkg/symbolic"

// Shunt is a fixed admittance to ground. A capacitor bank has b > 0 and
// injects reactive power.
type Shunt struct {
	BaseDevice

	BusIdx []int
	G      []float64 // conductance (pu)
	B      []float64 // susceptance (pu)

	A []symbolic.Expr // bus angle, imported
	V []symbolic.Expr // bus magnitude, imported
}

func NewShunt() *Shunt {
	d := &Shunt{}
	d.Init("Shunt")
	d.AddForeignKey(&d.BusIdx, "bus", "Bus")
	d.AddParam(&d.G, "g", 0)
	d.AddParam(&d.B, "b", 0)
	d.AddImport(&d.A, "a", "bus", "a")
	d.AddImport(&d.V, "v", "bus", "v")

	u := symbolic.NewSym("u")
	g := symbolic.NewSym("g")
	b := symbolic.NewSym("b")
	v2 := symbolic.PowOf(symbolic.NewSym("v"), symbolic.NewNum(2))
	d.AddExternalEquation("a", symbolic.MulOf(u, g, v2))
	d.AddExternalEquation("v", symbolic.NegOf(symbolic.MulOf(u, b, v2)))
	return d
}
