package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-powerflow/pkg/dae"
	"github.com/edp1096/toy-powerflow/pkg/device"
)

// TestCatalogChecks runs the metadata check over every built-in class.
func TestCatalogChecks(t *testing.T) {
	devs := []device.Device{
		device.NewBus(),
		device.NewPQ(),
		device.NewLine(),
		device.NewShunt(),
		device.NewPV(),
		device.NewSlack(),
	}
	for _, d := range devs {
		assert.NoError(t, d.Check(), d.ClassName())
	}
}

// TestBusDefaults checks the bus schema defaults.
func TestBusDefaults(t *testing.T) {
	bus := device.NewBus()
	_, err := bus.AddElement(0, "Bus 1", nil)
	require.NoError(t, err)

	assert.Equal(t, []float64{110}, bus.Vn)
	assert.Equal(t, []float64{1}, bus.U)
}

// TestLineDerivedParameters checks the series admittance and half shunt
// susceptance computed from r, x and b.
func TestLineDerivedParameters(t *testing.T) {
	line := device.NewLine()
	_, err := line.AddElement(0, "", map[string]any{"bus1": 0, "bus2": 1, "x": 0.1})
	require.NoError(t, err)
	_, err = line.AddElement(1, "", map[string]any{"bus1": 0, "bus2": 1, "r": 0.03, "x": 0.04, "b": 0.2})
	require.NoError(t, err)

	require.NoError(t, line.ComputeParameters())

	// Purely reactive line: gk = 0, bk = -1/x.
	assert.InDelta(t, 0, line.Gk[0], 1e-12)
	assert.InDelta(t, -10, line.Bk[0], 1e-9)
	assert.InDelta(t, 0, line.Bh[0], 1e-12)

	assert.InDelta(t, 12, line.Gk[1], 1e-9)
	assert.InDelta(t, -16, line.Bk[1], 1e-9)
	assert.InDelta(t, 0.1, line.Bh[1], 1e-12)
}

// TestLineOutOfService checks that u = 0 zeroes the derived admittance.
func TestLineOutOfService(t *testing.T) {
	line := device.NewLine()
	_, err := line.AddElement(0, "", map[string]any{"bus1": 0, "bus2": 1, "r": 0.01, "x": 0.1, "b": 0.2, "u": 0})
	require.NoError(t, err)

	require.NoError(t, line.ComputeParameters())
	assert.Zero(t, line.Gk[0])
	assert.Zero(t, line.Bk[0])
	assert.Zero(t, line.Bh[0])
}

// TestPVDefaults checks the generator schema defaults and ratings.
func TestPVDefaults(t *testing.T) {
	pv := device.NewPV()
	_, err := pv.AddElement(0, "PV 1", map[string]any{"bus": 0})
	require.NoError(t, err)

	assert.Equal(t, []int{0}, pv.BusIdx)
	assert.Equal(t, []float64{0}, pv.P0)
	assert.Equal(t, []float64{1}, pv.V0)
	assert.Equal(t, []float64{100}, pv.Sn)
	assert.Equal(t, []float64{110}, pv.Vn)
	assert.Equal(t, []float64{1.1}, pv.Vmax)
	assert.Equal(t, []float64{0.9}, pv.Vmin)
	assert.Equal(t, []float64{999}, pv.Qmax)
	assert.Equal(t, []float64{-999}, pv.Qmin)
}

// TestSlackVariableOrder checks that the slack allocates q before p, so
// result slicing puts all reactive outputs ahead of the active ones.
func TestSlackVariableOrder(t *testing.T) {
	slack := device.NewSlack()
	_, err := slack.AddElement(0, "", map[string]any{"bus": 3})
	require.NoError(t, err)

	assert.Equal(t, []float64{1}, slack.V0)
	assert.Equal(t, []float64{0}, slack.A0)

	d := dae.New()
	require.NoError(t, slack.DeclareSymbols())
	require.NoError(t, slack.AllocateAddresses(d))

	qAddrs, _, ok := d.Address("Slack", "q")
	require.True(t, ok)
	pAddrs, _, ok := d.Address("Slack", "p")
	require.True(t, ok)
	assert.Equal(t, []int{0}, qAddrs)
	assert.Equal(t, []int{1}, pAddrs)
}
