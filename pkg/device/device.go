// Package device implements the device-composition model: each device
// class declares its parameter schema, its variables and its symbolic
// equation templates once, and the pipeline stages expand them into
// per-element equations wired into the global DAE.
package device

import (
	"fmt"
	"log/slog"

	"github.com/edp1096/toy-powerflow/pkg/dae"
	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

// ComputeMode selects how a compute-equation expands over elements.
type ComputeMode int

const (
	// Vectorized substitutes per-element values and yields one
	// expression per element.
	Vectorized ComputeMode = iota
	// Singleton substitutes whole quantities simultaneously and yields a
	// single expression.
	Singleton
)

// Registry exposes devices to each other by class name during import
// resolution.
type Registry interface {
	DeviceByName(name string) (Device, bool)
}

// Device is the contract the system registry drives. The stage methods
// must run in the documented pipeline order; each stage reads what
// earlier stages produced, on this device and on others.
type Device interface {
	ClassName() string
	Count() int
	AddElement(idx int, name string, params map[string]any) (int, error)

	Check() error
	DeclareSymbols() error
	AllocateAddresses(d *dae.DAE) error
	ResolveImports(reg Registry) error
	ComputeParameters() error
	ComputeCustom() error
	ComputeVariables() error
	ComputeVariablesCustom() error
	MaterializeEquations() error
	CollectInternalEquations(d *dae.DAE) error
	CollectExternalEquations(d *dae.DAE) error
	SetInitialValues(d *dae.DAE) error

	Idx2Int(idxs []int) ([]int, error)
	Int2Idx(rows []int) ([]int, error)
	SymbolArray(varName string) ([]symbolic.Expr, bool)
	AddressArray(varName string) ([]int, bool)
}

type paramDef struct {
	name string
	vals *[]float64
	def  float64
}

type fkeyDef struct {
	name   string
	vals   *[]int
	device string
}

type derivedDef struct {
	name string
	vals *[]float64
	eq   symbolic.Expr
}

type varDef struct {
	name string
	syms *[]symbolic.Expr
	intf bool
	init float64
}

type importDef struct {
	dest   string
	key    string // foreign-key parameter name, or a device class name
	srcVar string
	syms   *[]symbolic.Expr
	addrs  []int
}

type computeDef struct {
	name string
	syms *[]symbolic.Expr
	eq   symbolic.Expr
	mode ComputeMode
}

type equationDef struct {
	varName      string
	eq           symbolic.Expr
	materialized []symbolic.Expr
}

// quantity is one name-addressable per-element data array: numeric for
// parameters, symbolic for variables.
type quantity struct {
	vals *[]float64
	syms *[]symbolic.Expr
}

func (q quantity) length() int {
	if q.vals != nil {
		return len(*q.vals)
	}
	return len(*q.syms)
}

func (q quantity) exprAt(i int) symbolic.Expr {
	if q.vals != nil {
		return symbolic.NewNum((*q.vals)[i])
	}
	return (*q.syms)[i]
}

func (q quantity) single() (symbolic.Expr, error) {
	if n := q.length(); n != 1 {
		return nil, fmt.Errorf("quantity holds %d elements, singleton substitution needs exactly one", n)
	}
	return q.exprAt(0), nil
}

// BaseDevice carries the element storage and schema metadata shared by
// every device class. Concrete classes embed it, declare their typed
// data slices in their constructor, and inherit the full pipeline.
type BaseDevice struct {
	class string
	log   *slog.Logger

	idx   []int
	rowOf map[int]int

	// Per-element labels and in-service status. The status participates
	// in equations like any other parameter.
	Names []string
	U     []float64

	params   []*paramDef
	fkeys    []*fkeyDef
	derived  []*derivedDef
	algebs   []*varDef
	states   []*varDef
	imports  []*importDef
	computes []*computeDef

	eqInt   []*equationDef
	eqExt   []*equationDef
	eqState []*equationDef

	quantities map[string]quantity

	stateByElement bool
	algebByElement bool
	skipExtCheck   bool

	addrs map[string][]int
}

// Init prepares the base storage. Every concrete constructor calls it
// first, before any declaration.
func (b *BaseDevice) Init(class string) {
	b.class = class
	b.log = slog.Default().With("device", class)
	b.rowOf = make(map[int]int)
	b.quantities = make(map[string]quantity)
	b.addrs = make(map[string][]int)
	b.AddParam(&b.U, "u", 1)
}

func (b *BaseDevice) ClassName() string { return b.class }

func (b *BaseDevice) Count() int { return len(b.idx) }

// AllIdx returns the external identifiers in row order.
func (b *BaseDevice) AllIdx() []int {
	out := make([]int, len(b.idx))
	copy(out, b.idx)
	return out
}

func (b *BaseDevice) registerQuantity(name string, q quantity) {
	if _, exists := b.quantities[name]; exists {
		panic(fmt.Sprintf("device %s: quantity %q declared twice", b.class, name))
	}
	b.quantities[name] = q
}

// AddParam declares a numeric parameter with a default value.
func (b *BaseDevice) AddParam(dst *[]float64, name string, def float64) {
	b.registerQuantity(name, quantity{vals: dst})
	b.params = append(b.params, &paramDef{name: name, vals: dst, def: def})
}

// AddForeignKey declares a mandatory identifier parameter holding idx
// values of the named device class. Foreign keys are not computational:
// equations cannot reference them.
func (b *BaseDevice) AddForeignKey(dst *[]int, name, deviceClass string) {
	b.fkeys = append(b.fkeys, &fkeyDef{name: name, vals: dst, device: deviceClass})
}

// AddDerivedParam declares a parameter computed from earlier parameters
// by vectorized expansion of eq.
func (b *BaseDevice) AddDerivedParam(dst *[]float64, name string, eq symbolic.Expr) {
	b.registerQuantity(name, quantity{vals: dst})
	b.derived = append(b.derived, &derivedDef{name: name, vals: dst, eq: eq})
}

// AddAlgeb declares an internal algebraic variable with its flat-start
// initial value.
func (b *BaseDevice) AddAlgeb(dst *[]symbolic.Expr, name string, init float64) {
	b.registerQuantity(name, quantity{syms: dst})
	b.algebs = append(b.algebs, &varDef{name: name, syms: dst, init: init})
}

// AddInterfaceAlgeb declares an internal algebraic variable visible to
// other devices.
func (b *BaseDevice) AddInterfaceAlgeb(dst *[]symbolic.Expr, name string, init float64) {
	b.registerQuantity(name, quantity{syms: dst})
	b.algebs = append(b.algebs, &varDef{name: name, syms: dst, intf: true, init: init})
}

// AddState declares an internal state variable.
func (b *BaseDevice) AddState(dst *[]symbolic.Expr, name string, init float64) {
	b.registerQuantity(name, quantity{syms: dst})
	b.states = append(b.states, &varDef{name: name, syms: dst, init: init})
}

// AddImport declares that dest is another device's interface variable,
// reached through the named foreign key, or 1:1 by rows when key names a
// device class directly.
func (b *BaseDevice) AddImport(dst *[]symbolic.Expr, dest, key, srcVar string) {
	b.registerQuantity(dest, quantity{syms: dst})
	b.imports = append(b.imports, &importDef{dest: dest, key: key, srcVar: srcVar, syms: dst})
}

// AddComputedVar declares a variable computed by expanding eq in the
// given mode.
func (b *BaseDevice) AddComputedVar(dst *[]symbolic.Expr, name string, eq symbolic.Expr, mode ComputeMode) {
	b.registerQuantity(name, quantity{syms: dst})
	b.computes = append(b.computes, &computeDef{name: name, syms: dst, eq: eq, mode: mode})
}

// AddEquation declares the local equation template of an internal
// algebraic variable, implicit form eq = 0.
func (b *BaseDevice) AddEquation(varName string, eq symbolic.Expr) {
	b.eqInt = append(b.eqInt, &equationDef{varName: varName, eq: eq})
}

// AddExternalEquation declares this device's additive contribution to
// the balance equation of an imported interface variable.
func (b *BaseDevice) AddExternalEquation(destName string, eq symbolic.Expr) {
	b.eqExt = append(b.eqExt, &equationDef{varName: destName, eq: eq})
}

// AddStateEquation declares the derivative equation of a state variable.
func (b *BaseDevice) AddStateEquation(varName string, eq symbolic.Expr) {
	b.eqState = append(b.eqState, &equationDef{varName: varName, eq: eq})
}

// SetGroupByElement switches the address layout of this device to
// element-major for the given segments.
func (b *BaseDevice) SetGroupByElement(state, algeb bool) {
	b.stateByElement = state
	b.algebByElement = algeb
}

// SkipExternalCheck exempts the device from the import/equation count
// consistency check.
func (b *BaseDevice) SkipExternalCheck() { b.skipExtCheck = true }

// AddElement stores one element row. Missing parameters take their
// declared defaults; foreign keys are mandatory. Returns the assigned
// row index.
func (b *BaseDevice) AddElement(idx int, name string, params map[string]any) (int, error) {
	if _, exists := b.rowOf[idx]; exists {
		return 0, fmt.Errorf("%s: adding element %d: %w", b.class, idx, ErrDuplicateIdx)
	}
	for key := range params {
		if !b.hasParam(key) {
			return 0, fmt.Errorf("%s: adding element %d: %w: %q", b.class, idx, ErrUnknownParameter, key)
		}
	}

	for _, fk := range b.fkeys {
		raw, ok := params[fk.name]
		if !ok {
			return 0, fmt.Errorf("%s: adding element %d: %w: %q", b.class, idx, ErrMissingParameter, fk.name)
		}
		v, err := toInt(raw)
		if err != nil {
			return 0, fmt.Errorf("%s: adding element %d: parameter %q: %v", b.class, idx, fk.name, err)
		}
		*fk.vals = append(*fk.vals, v)
	}
	for _, p := range b.params {
		val := p.def
		if raw, ok := params[p.name]; ok {
			v, err := toFloat(raw)
			if err != nil {
				return 0, fmt.Errorf("%s: adding element %d: parameter %q: %v", b.class, idx, p.name, err)
			}
			val = v
		}
		*p.vals = append(*p.vals, val)
	}

	row := len(b.idx)
	b.idx = append(b.idx, idx)
	b.rowOf[idx] = row
	b.Names = append(b.Names, name)
	return row, nil
}

func (b *BaseDevice) hasParam(name string) bool {
	for _, p := range b.params {
		if p.name == name {
			return true
		}
	}
	for _, fk := range b.fkeys {
		if fk.name == name {
			return true
		}
	}
	return false
}

func (b *BaseDevice) fkeyByName(name string) *fkeyDef {
	for _, fk := range b.fkeys {
		if fk.name == name {
			return fk
		}
	}
	return nil
}

func (b *BaseDevice) importByDest(dest string) *importDef {
	for _, imp := range b.imports {
		if imp.dest == dest {
			return imp
		}
	}
	return nil
}

// Idx2Int maps external identifiers to row indices. Every idx must
// exist; there is no silent default.
func (b *BaseDevice) Idx2Int(idxs []int) ([]int, error) {
	rows := make([]int, len(idxs))
	for i, id := range idxs {
		row, ok := b.rowOf[id]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %d", b.class, ErrUnknownIdx, id)
		}
		rows[i] = row
	}
	return rows, nil
}

// Int2Idx maps row indices back to external identifiers.
func (b *BaseDevice) Int2Idx(rows []int) ([]int, error) {
	idxs := make([]int, len(rows))
	for i, row := range rows {
		if row < 0 || row >= len(b.idx) {
			return nil, fmt.Errorf("%s: row %d out of range [0,%d)", b.class, row, len(b.idx))
		}
		idxs[i] = b.idx[row]
	}
	return idxs, nil
}

// SymbolArray returns the per-element expressions of a symbolic quantity.
func (b *BaseDevice) SymbolArray(varName string) ([]symbolic.Expr, bool) {
	q, ok := b.quantities[varName]
	if !ok || q.syms == nil {
		return nil, false
	}
	return *q.syms, true
}

// AddressArray returns the global addresses of an own variable.
func (b *BaseDevice) AddressArray(varName string) ([]int, bool) {
	addrs, ok := b.addrs[varName]
	return addrs, ok
}

// ImportedAddresses returns the resolved global addresses of an imported
// variable.
func (b *BaseDevice) ImportedAddresses(dest string) ([]int, bool) {
	imp := b.importByDest(dest)
	if imp == nil {
		return nil, false
	}
	return imp.addrs, true
}

func (b *BaseDevice) symbolName(varName string, row int) string {
	return fmt.Sprintf("%s_%s_%d", b.class, varName, row)
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}

func toInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("expected integer, got %v", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}
