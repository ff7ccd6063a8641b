// Package dae holds the global differential-algebraic system: the
// variable address table shared by all devices, the per-address equation
// contributions, and the compiled residual handed to the solver.
package dae

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

var (
	// ErrNotInitialized reports equation or initial-value storage being
	// used before InitEmpty.
	ErrNotInitialized = errors.New("dae: storage not initialized")

	// ErrEmptyEquation reports a variable address that received no
	// equation contribution from any device.
	ErrEmptyEquation = errors.New("dae: equation has no contributions")
)

// VarKind distinguishes the state segment from the algebraic segment.
type VarKind int

const (
	State VarKind = iota
	Algeb
)

func (k VarKind) String() string {
	if k == State {
		return "state"
	}
	return "algeb"
}

// Grouping selects the address layout for one device's variables.
// ByVariable is the canonical layout: all rows of one variable are
// contiguous, variable after variable. ByElement lays out one element's
// full variable set before moving to the next element.
type Grouping int

const (
	ByVariable Grouping = iota
	ByElement
)

type DAE struct {
	log *slog.Logger

	nx int
	ny int

	xAlloc map[string]map[string][]int // device -> variable -> addresses
	yAlloc map[string]map[string][]int

	// owner labels per address, for diagnostics
	xOwner []string
	yOwner []string

	// concrete symbol name -> address, filled by the devices after allocation
	xSym map[string]int
	ySym map[string]int

	// summed equation contributions per address
	fTerms [][]symbolic.Expr
	gTerms [][]symbolic.Expr

	xInit []float64
	yInit []float64
}

func New() *DAE {
	return &DAE{
		log:    slog.Default().With("component", "dae"),
		xAlloc: make(map[string]map[string][]int),
		yAlloc: make(map[string]map[string][]int),
		xSym:   make(map[string]int),
		ySym:   make(map[string]int),
	}
}

// NewIdx assigns global addresses for the named variables of one device.
// Variables already assigned keep their previous addresses, so repeated
// calls are idempotent. Fresh variables are appended to the end of the
// segment, laid out per grouping.
func (d *DAE) NewIdx(device string, kind VarKind, varNames []string, n int, grouping Grouping) map[string][]int {
	alloc := d.xAlloc
	if kind == Algeb {
		alloc = d.yAlloc
	}
	devAlloc, ok := alloc[device]
	if !ok {
		devAlloc = make(map[string][]int)
		alloc[device] = devAlloc
	}

	ret := make(map[string][]int, len(varNames))
	var fresh []string
	for _, name := range varNames {
		if addrs, exists := devAlloc[name]; exists {
			ret[name] = addrs
			continue
		}
		fresh = append(fresh, name)
	}
	if len(fresh) == 0 {
		return ret
	}

	base := d.count(kind)
	total := n * len(fresh)
	owners := make([]string, total)

	switch grouping {
	case ByElement:
		for j, name := range fresh {
			addrs := make([]int, n)
			for i := 0; i < n; i++ {
				addrs[i] = base + i*len(fresh) + j
				owners[i*len(fresh)+j] = fmt.Sprintf("%s.%s[%d]", device, name, i)
			}
			devAlloc[name] = addrs
			ret[name] = addrs
		}
	default:
		offset := 0
		for _, name := range fresh {
			addrs := make([]int, n)
			for i := 0; i < n; i++ {
				addrs[i] = base + offset + i
				owners[offset+i] = fmt.Sprintf("%s.%s[%d]", device, name, i)
			}
			offset += n
			devAlloc[name] = addrs
			ret[name] = addrs
		}
	}

	if kind == State {
		d.nx += total
		d.xOwner = append(d.xOwner, owners...)
	} else {
		d.ny += total
		d.yOwner = append(d.yOwner, owners...)
	}

	d.log.Debug("assigned addresses",
		"device", device, "kind", kind.String(), "vars", fresh, "n", n, "base", base)
	return ret
}

func (d *DAE) count(kind VarKind) int {
	if kind == State {
		return d.nx
	}
	return d.ny
}

func (d *DAE) StateCount() int { return d.nx }
func (d *DAE) AlgebCount() int { return d.ny }

// Address returns the allocated addresses of one device variable.
func (d *DAE) Address(device, varName string) ([]int, VarKind, bool) {
	if devAlloc, ok := d.xAlloc[device]; ok {
		if addrs, ok := devAlloc[varName]; ok {
			return addrs, State, true
		}
	}
	if devAlloc, ok := d.yAlloc[device]; ok {
		if addrs, ok := devAlloc[varName]; ok {
			return addrs, Algeb, true
		}
	}
	return nil, 0, false
}

// BindSymbol records the address of one concrete per-element symbol.
// The residual compiler resolves equation symbols through these bindings.
func (d *DAE) BindSymbol(kind VarKind, name string, addr int) {
	if kind == State {
		d.xSym[name] = addr
		return
	}
	d.ySym[name] = addr
}

// InitEmpty sizes the equation and initial-value storage to the current
// address space. Every prior contribution is discarded, so a rebuild of
// the equations starts from this call.
func (d *DAE) InitEmpty() {
	d.fTerms = make([][]symbolic.Expr, d.nx)
	d.gTerms = make([][]symbolic.Expr, d.ny)
	d.xInit = make([]float64, d.nx)
	d.yInit = make([]float64, d.ny)
}

// AddAlgebEquation adds one term to the algebraic equation at addr.
// Terms accumulate additively: several devices may contribute to the
// same balance equation.
func (d *DAE) AddAlgebEquation(addr int, term symbolic.Expr) error {
	if d.gTerms == nil {
		return fmt.Errorf("%w: algebraic equations", ErrNotInitialized)
	}
	if addr < 0 || addr >= d.ny {
		return fmt.Errorf("dae: algebraic address %d out of range [0,%d)", addr, d.ny)
	}
	d.gTerms[addr] = append(d.gTerms[addr], term)
	return nil
}

// AddStateEquation adds one term to the state derivative equation at addr.
func (d *DAE) AddStateEquation(addr int, term symbolic.Expr) error {
	if d.fTerms == nil {
		return fmt.Errorf("%w: state equations", ErrNotInitialized)
	}
	if addr < 0 || addr >= d.nx {
		return fmt.Errorf("dae: state address %d out of range [0,%d)", addr, d.nx)
	}
	d.fTerms[addr] = append(d.fTerms[addr], term)
	return nil
}

func (d *DAE) SetAlgebInit(addr int, value float64) error {
	if d.yInit == nil {
		return fmt.Errorf("%w: initial values", ErrNotInitialized)
	}
	if addr < 0 || addr >= d.ny {
		return fmt.Errorf("dae: algebraic address %d out of range [0,%d)", addr, d.ny)
	}
	d.yInit[addr] = value
	return nil
}

func (d *DAE) SetStateInit(addr int, value float64) error {
	if d.xInit == nil {
		return fmt.Errorf("%w: initial values", ErrNotInitialized)
	}
	if addr < 0 || addr >= d.nx {
		return fmt.Errorf("dae: state address %d out of range [0,%d)", addr, d.nx)
	}
	d.xInit[addr] = value
	return nil
}

// XInit returns a copy of the state initial values.
func (d *DAE) XInit() []float64 {
	out := make([]float64, len(d.xInit))
	copy(out, d.xInit)
	return out
}

// YInit returns a copy of the algebraic initial values.
func (d *DAE) YInit() []float64 {
	out := make([]float64, len(d.yInit))
	copy(out, d.yInit)
	return out
}

// Owner returns the "device.variable[row]" label of an address.
func (d *DAE) Owner(kind VarKind, addr int) string {
	owners := d.xOwner
	if kind == Algeb {
		owners = d.yOwner
	}
	if addr < 0 || addr >= len(owners) {
		return fmt.Sprintf("unknown[%d]", addr)
	}
	return owners[addr]
}

// Summary describes the assembled system in one line.
func (d *DAE) Summary() string {
	fCount, gCount := 0, 0
	for _, terms := range d.fTerms {
		fCount += len(terms)
	}
	for _, terms := range d.gTerms {
		gCount += len(terms)
	}
	return fmt.Sprintf("DAE: %d state vars, %d algebraic vars, %d state terms, %d algebraic terms",
		d.nx, d.ny, fCount, gCount)
}
