package device

import (
	"github.com/edp1096/toy-powerflow/internal/consts"
	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

// PV is a generator holding its bus voltage at a setpoint. The reactive
// output becomes an algebraic variable closed by the voltage equation.
type PV struct {
	BaseDevice

	BusIdx []int
	P0     []float64 // active power output (pu)
	V0     []float64 // voltage setpoint (pu)
	Sn     []float64 // power rating (MVA)
	Vn     []float64 // voltage rating (kV)
	Vmax   []float64
	Vmin   []float64
	Qmax   []float64
	Qmin   []float64

	Q []symbolic.Expr // reactive power output

	A []symbolic.Expr // bus angle, imported
	V []symbolic.Expr // bus magnitude, imported
}

func NewPV() *PV {
	d := &PV{}
	d.Init("PV")
	d.AddForeignKey(&d.BusIdx, "bus", "Bus")
	d.AddParam(&d.P0, "p0", 0)
	d.AddParam(&d.V0, "v0", 1)
	addRatings(&d.BaseDevice, &d.Sn, &d.Vn, &d.Vmax, &d.Vmin, &d.Qmax, &d.Qmin)
	d.AddImport(&d.A, "a", "bus", "a")
	d.AddImport(&d.V, "v", "bus", "v")
	d.AddAlgeb(&d.Q, "q", 0)

	d.AddEquation("q", symbolic.SubOf(symbolic.NewSym("v"), symbolic.NewSym("v0")))
	d.AddExternalEquation("a", symbolic.NegOf(symbolic.NewSym("p0")))
	d.AddExternalEquation("v", symbolic.NegOf(symbolic.NewSym("q")))
	return d
}

// Slack is the reference generator. It pins both the angle and the
// magnitude of its bus and picks up the network's power imbalance
// through two algebraic variables.
type Slack struct {
	BaseDevice

	BusIdx []int
	V0     []float64 // voltage setpoint (pu)
	A0     []float64 // angle setpoint (rad)
	Sn     []float64
	Vn     []float64
	Vmax   []float64
	Vmin   []float64
	Qmax   []float64
	Qmin   []float64

	Q []symbolic.Expr // reactive power output
	P []symbolic.Expr // active power output

	A []symbolic.Expr // bus angle, imported
	V []symbolic.Expr // bus magnitude, imported
}

func NewSlack() *Slack {
	d := &Slack{}
	d.Init("Slack")
	d.AddForeignKey(&d.BusIdx, "bus", "Bus")
	d.AddParam(&d.V0, "v0", 1)
	d.AddParam(&d.A0, "a0", 0)
	addRatings(&d.BaseDevice, &d.Sn, &d.Vn, &d.Vmax, &d.Vmin, &d.Qmax, &d.Qmin)
	d.AddImport(&d.A, "a", "bus", "a")
	d.AddImport(&d.V, "v", "bus", "v")
	d.AddAlgeb(&d.Q, "q", 0)
	d.AddAlgeb(&d.P, "p", 0)

	d.AddEquation("q", symbolic.SubOf(symbolic.NewSym("v"), symbolic.NewSym("v0")))
	d.AddEquation("p", symbolic.SubOf(symbolic.NewSym("a"), symbolic.NewSym("a0")))
	d.AddExternalEquation("a", symbolic.NegOf(symbolic.NewSym("p")))
	d.AddExternalEquation("v", symbolic.NegOf(symbolic.NewSym("q")))
	return d
}

func addRatings(b *BaseDevice, sn, vn, vmax, vmin, qmax, qmin *[]float64) {
	b.AddParam(sn, "Sn", consts.BASEMVA)
	b.AddParam(vn, "Vn", consts.BASEKV)
	b.AddParam(vmax, "vmax", 1.1)
	b.AddParam(vmin, "vmin", 0.9)
	b.AddParam(qmax, "qmax", 999)
	b.AddParam(qmin, "qmin", -999)
}
