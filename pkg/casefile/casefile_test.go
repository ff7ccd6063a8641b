package casefile_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/edp1096/toy-powerflow/pkg/casefile"
	"github.com/edp1096/toy-powerflow/pkg/solver"
	"github.com/edp1096/toy-powerflow/pkg/system"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParse reads a minimal case and checks which fields were supplied.
func TestParse(t *testing.T) {
	data := []byte(`
name: mini
buses:
  - {idx: 0, name: Bus A}
  - {idx: 1, vn: 220}
lines:
  - {idx: 0, bus1: 0, bus2: 1, x: 0.25}
loads:
  - {idx: 0, bus: 1, p: 0.5, q: 0.1}
`)
	c, err := casefile.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "mini", c.Name)
	require.Len(t, c.Buses, 2)
	assert.Equal(t, "Bus A", c.Buses[0].Name)
	assert.Nil(t, c.Buses[0].Vn)
	require.NotNil(t, c.Buses[1].Vn)
	assert.Equal(t, 220.0, *c.Buses[1].Vn)

	require.Len(t, c.Lines, 1)
	require.NotNil(t, c.Lines[0].Bus1)
	assert.Equal(t, 0, *c.Lines[0].Bus1)
	assert.Nil(t, c.Lines[0].R)
	require.NotNil(t, c.Lines[0].X)
	assert.Equal(t, 0.25, *c.Lines[0].X)

	require.Len(t, c.Loads, 1)
	assert.Empty(t, c.PVs)
	assert.Empty(t, c.Slacks)
}

// TestParseNoBuses rejects a case without a bus section.
func TestParseNoBuses(t *testing.T) {
	_, err := casefile.Parse([]byte("name: hollow\nloads:\n  - {idx: 0, bus: 0}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no buses")
	assert.Contains(t, err.Error(), "hollow")
}

// TestParseBadYAML rejects malformed input.
func TestParseBadYAML(t *testing.T) {
	_, err := casefile.Parse([]byte("buses: [unclosed"))
	assert.Error(t, err)
}

// TestLoadMissingFile reports the path of an unreadable case.
func TestLoadMissingFile(t *testing.T) {
	_, err := casefile.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

// TestApplyDefaults leaves optional parameters out and expects the device
// defaults to fill in.
func TestApplyDefaults(t *testing.T) {
	data := []byte(`
name: defaults
buses:
  - {idx: 0}
  - {idx: 1}
lines:
  - {idx: 0, bus1: 0, bus2: 1, x: 0.1}
loads:
  - {idx: 0, bus: 1}
`)
	c, err := casefile.Parse(data)
	require.NoError(t, err)

	sys := system.New(c.Name)
	require.NoError(t, c.Apply(sys))

	assert.Equal(t, 110.0, sys.Bus.Vn[0])
	assert.Equal(t, 0.0, sys.Line.R[0])
	assert.Equal(t, 0.0, sys.PQ.P[0])
	assert.Equal(t, 0.0, sys.PQ.Q[0])
	assert.Equal(t, 1.0, sys.PQ.U[0])
	assert.Equal(t, "PQ 0", sys.PQ.Names[0])
	assert.Equal(t, "Line 0", sys.Line.Names[0])
}

// TestApplyMissingBusRef rejects a load without a bus reference.
func TestApplyMissingBusRef(t *testing.T) {
	data := []byte(`
name: nobus
buses:
  - {idx: 0}
loads:
  - {idx: 3, p: 1.0}
`)
	c, err := casefile.Parse(data)
	require.NoError(t, err)

	err = c.Apply(system.New(c.Name))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load 3")
	assert.Contains(t, err.Error(), "bus is required")
}

// TestBuildSystem assembles the two-bus case from disk and solves it.
func TestBuildSystem(t *testing.T) {
	sys, err := casefile.BuildSystem(filepath.Join("testdata", "twobus.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "twobus", sys.Name())

	sol, err := sys.Solve(solver.DefaultOptions())
	require.NoError(t, err)

	angles, err := sol.Get("Bus", "a")
	require.NoError(t, err)
	assert.InDelta(t, math.Asin(-0.2)/2, angles[1], 1e-6)
}

// TestBuildSystemUnnamed falls back to a generic system name.
func TestBuildSystemUnnamed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "case.yaml")
	data := []byte(`
buses:
  - {idx: 0}
slack_generators:
  - {idx: 0, bus: 0}
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	sys, err := casefile.BuildSystem(path)
	require.NoError(t, err)
	assert.Equal(t, "case", sys.Name())
}
