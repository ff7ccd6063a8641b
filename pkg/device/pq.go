package device

import "github.com/edp1096/toy-powerflow/pkg/symbolic"

// PQ is a constant-power load. Consumption counts positive in the bus
// balance.
type PQ struct {
	BaseDevice

	BusIdx []int
	P      []float64 // active power demand (pu)
	Q      []float64 // reactive power demand (pu)

	A []symbolic.Expr // bus angle, imported
	V []symbolic.Expr // bus magnitude, imported
}

func NewPQ() *PQ {
	d := &PQ{}
	d.Init("PQ")
	d.AddForeignKey(&d.BusIdx, "bus", "Bus")
	d.AddParam(&d.P, "p", 0)
	d.AddParam(&d.Q, "q", 0)
	d.AddImport(&d.A, "a", "bus", "a")
	d.AddImport(&d.V, "v", "bus", "v")

	u := symbolic.NewSym("u")
	d.AddExternalEquation("a", symbolic.MulOf(u, symbolic.NewSym("p")))
	d.AddExternalEquation("v", symbolic.MulOf(u, symbolic.NewSym("q")))
	return d
}
