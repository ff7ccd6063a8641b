package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-powerflow/pkg/dae"
	"github.com/edp1096/toy-powerflow/pkg/device"
	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

// testSource owns one interface variable other classes can import.
type testSource struct {
	device.BaseDevice

	W []float64
	A []symbolic.Expr
}

func newTestSource() *testSource {
	d := &testSource{}
	d.Init("Src")
	d.AddParam(&d.W, "w", 10)
	d.AddInterfaceAlgeb(&d.A, "a", 0)
	return d
}

// testSink imports the source variable through a foreign key and
// contributes k*a to its balance.
type testSink struct {
	device.BaseDevice

	SrcIdx []int
	K      []float64
	A      []symbolic.Expr
}

func newTestSink() *testSink {
	d := &testSink{}
	d.Init("Sink")
	d.AddForeignKey(&d.SrcIdx, "src", "Src")
	d.AddParam(&d.K, "k", 1)
	d.AddImport(&d.A, "a", "src", "a")
	d.AddExternalEquation("a", symbolic.MulOf(symbolic.NewSym("k"), symbolic.NewSym("a")))
	return d
}

type testRegistry map[string]device.Device

func (r testRegistry) DeviceByName(name string) (device.Device, bool) {
	d, ok := r[name]
	return d, ok
}

// TestAddElementDefaults checks that omitted parameters take their
// declared defaults and the status flag defaults to in service.
func TestAddElementDefaults(t *testing.T) {
	src := newTestSource()

	row, err := src.AddElement(5, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, row)

	row, err = src.AddElement(7, "s2", map[string]any{"w": 3})
	require.NoError(t, err)
	assert.Equal(t, 1, row)

	assert.Equal(t, []float64{10, 3}, src.W)
	assert.Equal(t, []float64{1, 1}, src.U)
	assert.Equal(t, []string{"s1", "s2"}, src.Names)
	assert.Equal(t, 2, src.Count())
}

// TestAddElementDuplicateIdx checks that an identifier cannot be reused.
func TestAddElementDuplicateIdx(t *testing.T) {
	src := newTestSource()
	_, err := src.AddElement(1, "s1", nil)
	require.NoError(t, err)

	_, err = src.AddElement(1, "s2", nil)
	require.ErrorIs(t, err, device.ErrDuplicateIdx)
}

// TestAddElementUnknownParameter checks that a key outside the schema is
// rejected by name.
func TestAddElementUnknownParameter(t *testing.T) {
	src := newTestSource()

	_, err := src.AddElement(1, "s1", map[string]any{"zz": 1.0})
	require.ErrorIs(t, err, device.ErrUnknownParameter)
	assert.Contains(t, err.Error(), "zz")
}

// TestAddElementMissingForeignKey checks that foreign keys are mandatory.
func TestAddElementMissingForeignKey(t *testing.T) {
	sink := newTestSink()

	_, err := sink.AddElement(0, "k1", map[string]any{"k": 2.0})
	require.ErrorIs(t, err, device.ErrMissingParameter)
	assert.Contains(t, err.Error(), "src")
}

// TestIdxMapping checks the idx/row bijection and its failure mode.
func TestIdxMapping(t *testing.T) {
	src := newTestSource()
	for _, idx := range []int{10, 20, 30} {
		_, err := src.AddElement(idx, "", nil)
		require.NoError(t, err)
	}

	rows, err := src.Idx2Int([]int{30, 10})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, rows)

	idxs, err := src.Int2Idx([]int{1})
	require.NoError(t, err)
	assert.Equal(t, []int{20}, idxs)

	_, err = src.Idx2Int([]int{99})
	require.ErrorIs(t, err, device.ErrUnknownIdx)
	assert.Contains(t, err.Error(), "99")
}

// TestDeclareSymbols checks per-element symbol naming and that an empty
// device declares nothing.
func TestDeclareSymbols(t *testing.T) {
	src := newTestSource()
	_, err := src.AddElement(0, "", nil)
	require.NoError(t, err)
	_, err = src.AddElement(1, "", nil)
	require.NoError(t, err)

	require.NoError(t, src.DeclareSymbols())
	syms, ok := src.SymbolArray("a")
	require.True(t, ok)
	require.Len(t, syms, 2)
	assert.Equal(t, "Src_a_0", syms[0].String())
	assert.Equal(t, "Src_a_1", syms[1].String())

	empty := newTestSource()
	require.NoError(t, empty.DeclareSymbols())
	syms, ok = empty.SymbolArray("a")
	require.True(t, ok)
	assert.Empty(t, syms)
}

// expandProbe exposes two independent parameter arrays for expansion
// cardinality checks.
type expandProbe struct {
	device.BaseDevice

	P []float64
	Q []float64
}

func newExpandProbe() *expandProbe {
	d := &expandProbe{}
	d.Init("Probe")
	d.AddParam(&d.P, "p", 0)
	d.AddParam(&d.Q, "q", 0)
	return d
}

// TestExpandVectorized checks that parameter values bind per element.
func TestExpandVectorized(t *testing.T) {
	src := newTestSource()
	_, err := src.AddElement(0, "", nil)
	require.NoError(t, err)
	_, err = src.AddElement(1, "", map[string]any{"w": 3})
	require.NoError(t, err)

	out, err := src.ExpandVectorized(symbolic.MulOf(symbolic.NewSym("w"), symbolic.NewNum(2)))
	require.NoError(t, err)
	require.Len(t, out, 2)

	v0, err := out[0].Eval(nil)
	require.NoError(t, err)
	v1, err := out[1].Eval(nil)
	require.NoError(t, err)
	assert.InDelta(t, 20, v0, 1e-12)
	assert.InDelta(t, 6, v1, 1e-12)
}

// TestExpandVectorizedCardinality checks that the element count is the
// minimum over the referenced quantities.
func TestExpandVectorizedCardinality(t *testing.T) {
	d := newExpandProbe()
	d.P = []float64{1, 2, 3}
	d.Q = []float64{4, 5}

	out, err := d.ExpandVectorized(symbolic.AddOf(symbolic.NewSym("p"), symbolic.NewSym("q")))
	require.NoError(t, err)
	require.Len(t, out, 2)

	v, err := out[1].Eval(nil)
	require.NoError(t, err)
	assert.InDelta(t, 7, v, 1e-12)
}

// TestExpandVectorizedSkipsEmpty checks that an empty quantity is left
// out of the substitution instead of collapsing the expansion.
func TestExpandVectorizedSkipsEmpty(t *testing.T) {
	d := newExpandProbe()
	d.P = []float64{1, 2, 3}

	out, err := d.ExpandVectorized(symbolic.AddOf(symbolic.NewSym("p"), symbolic.NewSym("q")))
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"q"}, symbolic.FreeSymbols(out[0]))
}

// TestExpandVectorizedAllEmpty checks that a template over only empty
// quantities expands to nothing.
func TestExpandVectorizedAllEmpty(t *testing.T) {
	d := newExpandProbe()

	out, err := d.ExpandVectorized(symbolic.NewSym("p"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

// TestExpandVectorizedMissingQuantity checks that an unknown symbol is
// an error, not a skip.
func TestExpandVectorizedMissingQuantity(t *testing.T) {
	d := newExpandProbe()
	d.P = []float64{1}

	_, err := d.ExpandVectorized(symbolic.NewSym("nope"))
	require.ErrorIs(t, err, device.ErrMissingQuantity)
	assert.Contains(t, err.Error(), "nope")
}

// pairDevice carries two length-one symbolic quantities for singleton
// substitution checks.
type pairDevice struct {
	device.BaseDevice

	A []symbolic.Expr
	B []symbolic.Expr
}

func newPairDevice() *pairDevice {
	d := &pairDevice{}
	d.Init("Pair")
	d.AddAlgeb(&d.A, "a", 0)
	d.AddAlgeb(&d.B, "b", 0)
	return d
}

// TestExpandSingletonSimultaneous swaps two symbols through each other:
// sequential substitution would collapse them onto one.
func TestExpandSingletonSimultaneous(t *testing.T) {
	d := newPairDevice()
	d.A = []symbolic.Expr{symbolic.NewSym("b")}
	d.B = []symbolic.Expr{symbolic.NewSym("a")}

	template := symbolic.AddOf(symbolic.NewSym("a"), symbolic.MulOf(symbolic.NewNum(2), symbolic.NewSym("b")))
	out, err := d.ExpandSingleton(template)
	require.NoError(t, err)

	v, err := out.Eval(map[string]float64{"a": 10, "b": 1})
	require.NoError(t, err)
	assert.InDelta(t, 21, v, 1e-12)
}

// TestExpandSingletonRequiresOne checks the length-one contract.
func TestExpandSingletonRequiresOne(t *testing.T) {
	d := newPairDevice()
	d.A = []symbolic.Expr{symbolic.NewSym("x"), symbolic.NewSym("y")}
	d.B = []symbolic.Expr{symbolic.NewSym("z")}

	_, err := d.ExpandSingleton(symbolic.NewSym("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

// derivedProbe declares chained derived parameters.
type derivedProbe struct {
	device.BaseDevice

	P  []float64
	P2 []float64
	P4 []float64
}

func newDerivedProbe() *derivedProbe {
	d := &derivedProbe{}
	d.Init("Derived")
	d.AddParam(&d.P, "p", 0)
	d.AddDerivedParam(&d.P2, "p2", symbolic.PowOf(symbolic.NewSym("p"), symbolic.NewNum(2)))
	d.AddDerivedParam(&d.P4, "p4", symbolic.MulOf(symbolic.NewSym("p2"), symbolic.NewSym("p2")))
	return d
}

// TestComputeParameters checks derived parameters, including one chained
// on an earlier derived value.
func TestComputeParameters(t *testing.T) {
	d := newDerivedProbe()
	_, err := d.AddElement(0, "", map[string]any{"p": 3.0})
	require.NoError(t, err)
	_, err = d.AddElement(1, "", map[string]any{"p": 2.0})
	require.NoError(t, err)

	require.NoError(t, d.ComputeParameters())
	assert.Equal(t, []float64{9, 4}, d.P2)
	assert.Equal(t, []float64{81, 16}, d.P4)
}

// TestCheckOrderingViolation checks that a derived parameter cannot
// reach forward in declaration order.
func TestCheckOrderingViolation(t *testing.T) {
	d := &derivedProbe{}
	d.Init("Backward")
	d.AddParam(&d.P, "p", 0)
	d.AddDerivedParam(&d.P4, "p4", symbolic.NewSym("p2"))
	d.AddDerivedParam(&d.P2, "p2", symbolic.NewSym("p"))

	err := d.Check()
	require.ErrorIs(t, err, device.ErrOrderingViolation)
	assert.Contains(t, err.Error(), "p4")
	assert.Contains(t, err.Error(), "p2")
}

// TestCheckEquationCounts checks the import/external and internal
// equation count rules.
func TestCheckEquationCounts(t *testing.T) {
	missingExt := &pairDevice{}
	missingExt.Init("NoExt")
	missingExt.AddImport(&missingExt.A, "a", "Src", "a")
	err := missingExt.Check()
	require.ErrorIs(t, err, device.ErrEquationCountMismatch)

	exempt := &pairDevice{}
	exempt.Init("Exempt")
	exempt.AddImport(&exempt.A, "a", "Src", "a")
	exempt.SkipExternalCheck()
	require.NoError(t, exempt.Check())

	missingInt := newPairDevice()
	err = missingInt.Check()
	require.ErrorIs(t, err, device.ErrEquationCountMismatch)
}

// computeProbe declares computed variables.
type computeProbe struct {
	device.BaseDevice

	W  []float64
	C  []symbolic.Expr
	XX []symbolic.Expr
}

// TestComputeVariables checks vectorized and singleton computed
// variables.
func TestComputeVariables(t *testing.T) {
	d := &computeProbe{}
	d.Init("Comp")
	d.AddParam(&d.W, "w", 0)
	d.AddComputedVar(&d.C, "c", symbolic.MulOf(symbolic.NewSym("w"), symbolic.NewNum(2)), device.Vectorized)
	_, err := d.AddElement(0, "", map[string]any{"w": 4.0})
	require.NoError(t, err)
	_, err = d.AddElement(1, "", map[string]any{"w": 5.0})
	require.NoError(t, err)

	require.NoError(t, d.ComputeVariables())
	syms, ok := d.SymbolArray("c")
	require.True(t, ok)
	require.Len(t, syms, 2)
	v, err := syms[1].Eval(nil)
	require.NoError(t, err)
	assert.InDelta(t, 10, v, 1e-12)
}

// TestComputeVariablesUnsupportedMode checks the mode guard.
func TestComputeVariablesUnsupportedMode(t *testing.T) {
	d := &computeProbe{}
	d.Init("BadMode")
	d.AddParam(&d.W, "w", 0)
	d.AddComputedVar(&d.XX, "xx", symbolic.NewSym("w"), device.ComputeMode(9))
	_, err := d.AddElement(0, "", nil)
	require.NoError(t, err)

	err = d.ComputeVariables()
	require.ErrorIs(t, err, device.ErrUnsupportedComputeMode)
}

// TestResolveImports checks symbol and address transfer through a
// foreign key, in the consumer's row order.
func TestResolveImports(t *testing.T) {
	src := newTestSource()
	for _, idx := range []int{100, 200} {
		_, err := src.AddElement(idx, "", nil)
		require.NoError(t, err)
	}
	require.NoError(t, src.DeclareSymbols())
	d := dae.New()
	require.NoError(t, src.AllocateAddresses(d))

	sink := newTestSink()
	for i, srcIdx := range []int{200, 100, 200} {
		_, err := sink.AddElement(i, "", map[string]any{"src": srcIdx})
		require.NoError(t, err)
	}

	reg := testRegistry{"Src": src}
	require.NoError(t, sink.ResolveImports(reg))

	syms, ok := sink.SymbolArray("a")
	require.True(t, ok)
	require.Len(t, syms, 3)
	assert.Equal(t, "Src_a_1", syms[0].String())
	assert.Equal(t, "Src_a_0", syms[1].String())
	assert.Equal(t, "Src_a_1", syms[2].String())

	srcAddrs, ok := src.AddressArray("a")
	require.True(t, ok)
	addrs, ok := sink.ImportedAddresses("a")
	require.True(t, ok)
	assert.Equal(t, []int{srcAddrs[1], srcAddrs[0], srcAddrs[1]}, addrs)
}

// TestResolveImportsUnknownIdx checks that a dangling foreign key fails
// naming the key and the value.
func TestResolveImportsUnknownIdx(t *testing.T) {
	src := newTestSource()
	_, err := src.AddElement(0, "", nil)
	require.NoError(t, err)
	require.NoError(t, src.DeclareSymbols())
	require.NoError(t, src.AllocateAddresses(dae.New()))

	sink := newTestSink()
	_, err = sink.AddElement(0, "", map[string]any{"src": 99})
	require.NoError(t, err)

	err = sink.ResolveImports(testRegistry{"Src": src})
	require.ErrorIs(t, err, device.ErrUnknownIdx)
	assert.Contains(t, err.Error(), "src")
	assert.Contains(t, err.Error(), "99")
}

// TestResolveImportsUnknownDevice checks the missing-target failure.
func TestResolveImportsUnknownDevice(t *testing.T) {
	sink := newTestSink()
	_, err := sink.AddElement(0, "", map[string]any{"src": 0})
	require.NoError(t, err)

	err = sink.ResolveImports(testRegistry{})
	require.ErrorIs(t, err, device.ErrUnknownDevice)
}

// mirror imports by class name: rows map 1:1 onto the target.
type mirror struct {
	device.BaseDevice

	A []symbolic.Expr
}

// TestResolveImportsByClassName checks the identity mapping used when
// the import key names a device class instead of a foreign key.
func TestResolveImportsByClassName(t *testing.T) {
	src := newTestSource()
	for _, idx := range []int{0, 1} {
		_, err := src.AddElement(idx, "", nil)
		require.NoError(t, err)
	}
	require.NoError(t, src.DeclareSymbols())
	require.NoError(t, src.AllocateAddresses(dae.New()))

	m := &mirror{}
	m.Init("Mirror")
	m.AddImport(&m.A, "a", "Src", "a")
	m.AddExternalEquation("a", symbolic.NewSym("a"))

	require.NoError(t, m.ResolveImports(testRegistry{"Src": src}))
	syms, ok := m.SymbolArray("a")
	require.True(t, ok)
	require.Len(t, syms, 2)
	assert.Equal(t, "Src_a_0", syms[0].String())
	assert.Equal(t, "Src_a_1", syms[1].String())
}

// TestCollectExternalOverlay runs two sink devices against one source
// element and checks their contributions accumulate at its address.
func TestCollectExternalOverlay(t *testing.T) {
	src := newTestSource()
	_, err := src.AddElement(0, "", nil)
	require.NoError(t, err)

	sink1 := newTestSink()
	_, err = sink1.AddElement(0, "", map[string]any{"src": 0, "k": 2.0})
	require.NoError(t, err)
	sink2 := newTestSink()
	_, err = sink2.AddElement(0, "", map[string]any{"src": 0, "k": 5.0})
	require.NoError(t, err)

	d := dae.New()
	reg := testRegistry{"Src": src, "Sink": sink1}
	devs := []device.Device{src, sink1, sink2}
	for _, dev := range devs {
		require.NoError(t, dev.DeclareSymbols())
	}
	for _, dev := range devs {
		require.NoError(t, dev.AllocateAddresses(d))
	}
	for _, dev := range devs {
		require.NoError(t, dev.ResolveImports(reg))
	}
	for _, dev := range devs {
		require.NoError(t, dev.MaterializeEquations())
	}
	d.InitEmpty()
	for _, dev := range devs {
		require.NoError(t, dev.CollectInternalEquations(d))
	}
	for _, dev := range devs {
		require.NoError(t, dev.CollectExternalEquations(d))
	}

	res, err := d.Compile()
	require.NoError(t, err)

	out := make([]float64, 1)
	res.EvalAlgeb(nil, []float64{3}, out)
	assert.InDelta(t, 21, out[0], 1e-12) // 2*a + 5*a at a = 3
}

// TestSetInitialValues checks declared start values land at the right
// addresses.
func TestSetInitialValues(t *testing.T) {
	probe := &struct {
		device.BaseDevice
		A []symbolic.Expr
		V []symbolic.Expr
	}{}
	probe.Init("Init")
	probe.AddAlgeb(&probe.A, "a", 0)
	probe.AddAlgeb(&probe.V, "v", 1)
	_, err := probe.AddElement(0, "", nil)
	require.NoError(t, err)
	_, err = probe.AddElement(1, "", nil)
	require.NoError(t, err)

	d := dae.New()
	require.NoError(t, probe.DeclareSymbols())
	require.NoError(t, probe.AllocateAddresses(d))
	d.InitEmpty()
	require.NoError(t, probe.SetInitialValues(d))

	assert.Equal(t, []float64{0, 0, 1, 1}, d.YInit())
}
