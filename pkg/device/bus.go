package device

import (
	"github.com/edp1096/toy-powerflow/internal/consts"
	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

// Bus is the network node. It owns the voltage angle and magnitude as
// interface variables; their balance equations are assembled entirely
// from the contributions of connected devices.
type Bus struct {
	BaseDevice

	Vn []float64 // voltage rating (kV)

	A []symbolic.Expr // voltage angle (rad)
	V []symbolic.Expr // voltage magnitude (pu)
}

func NewBus() *Bus {
	d := &Bus{}
	d.Init("Bus")
	d.AddParam(&d.Vn, "Vn", consts.BASEKV)
	d.AddInterfaceAlgeb(&d.A, "a", 0)
	d.AddInterfaceAlgeb(&d.V, "v", 1)
	return d
}
