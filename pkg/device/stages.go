package device

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/dae"
	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

// Check validates the declared schema before any expansion runs: every
// imported variable carries an external contribution, every
// non-interface variable has a local equation, and derived parameters
// only reach backward in declaration order.
func (b *BaseDevice) Check() error {
	if !b.skipExtCheck && len(b.imports) != len(b.eqExt) {
		return fmt.Errorf("%s: %w: %d imported variables, %d external equations",
			b.class, ErrEquationCountMismatch, len(b.imports), len(b.eqExt))
	}

	intf := 0
	for _, v := range b.algebs {
		if v.intf {
			intf++
		}
	}
	if need := len(b.algebs) - intf; len(b.eqInt) < need {
		return fmt.Errorf("%s: %w: %d internal equations for %d non-interface variables",
			b.class, ErrEquationCountMismatch, len(b.eqInt), need)
	}
	if len(b.eqState) < len(b.states) {
		return fmt.Errorf("%s: %w: %d state equations for %d state variables",
			b.class, ErrEquationCountMismatch, len(b.eqState), len(b.states))
	}

	later := make(map[string]struct{}, len(b.derived))
	for _, dp := range b.derived {
		later[dp.name] = struct{}{}
	}
	for _, dp := range b.derived {
		delete(later, dp.name)
		for _, sym := range symbolic.FreeSymbols(dp.eq) {
			if _, ok := later[sym]; ok {
				return fmt.Errorf("%s: %w: parameter %q depends on %q declared after it",
					b.class, ErrOrderingViolation, dp.name, sym)
			}
		}
	}
	return nil
}

// DeclareSymbols creates the per-element symbols of every own variable.
// A device with no elements declares nothing.
func (b *BaseDevice) DeclareSymbols() error {
	n := b.Count()
	if n == 0 {
		b.log.Debug("no elements, skipping symbol declaration")
		return nil
	}
	for _, group := range [][]*varDef{b.algebs, b.states} {
		for _, v := range group {
			syms := make([]symbolic.Expr, n)
			for i := 0; i < n; i++ {
				syms[i] = symbolic.NewSym(b.symbolName(v.name, i))
			}
			*v.syms = syms
		}
	}
	b.log.Debug("declared symbols", "algebs", len(b.algebs), "states", len(b.states), "elements", n)
	return nil
}

// AllocateAddresses claims global address ranges for the device's own
// variables and binds each element symbol to its address.
func (b *BaseDevice) AllocateAddresses(d *dae.DAE) error {
	n := b.Count()
	if n == 0 {
		return nil
	}

	if len(b.states) > 0 {
		grouping := dae.ByVariable
		if b.stateByElement {
			grouping = dae.ByElement
		}
		got := d.NewIdx(b.class, dae.State, varNames(b.states), n, grouping)
		for name, addrs := range got {
			b.addrs[name] = addrs
			for i, addr := range addrs {
				d.BindSymbol(dae.State, b.symbolName(name, i), addr)
			}
		}
	}
	if len(b.algebs) > 0 {
		grouping := dae.ByVariable
		if b.algebByElement {
			grouping = dae.ByElement
		}
		got := d.NewIdx(b.class, dae.Algeb, varNames(b.algebs), n, grouping)
		for name, addrs := range got {
			b.addrs[name] = addrs
			for i, addr := range addrs {
				d.BindSymbol(dae.Algeb, b.symbolName(name, i), addr)
			}
		}
	}
	return nil
}

func varNames(defs []*varDef) []string {
	names := make([]string, len(defs))
	for i, v := range defs {
		names[i] = v.name
	}
	return names
}

// ResolveImports links every imported variable to its source device,
// copying the source's element symbols and global addresses in this
// device's row order.
func (b *BaseDevice) ResolveImports(reg Registry) error {
	for _, imp := range b.imports {
		var target Device
		var rows []int

		if fk := b.fkeyByName(imp.key); fk != nil {
			t, ok := reg.DeviceByName(fk.device)
			if !ok {
				return fmt.Errorf("%s: resolving import %q: %w: %q", b.class, imp.dest, ErrUnknownDevice, fk.device)
			}
			r, err := t.Idx2Int(*fk.vals)
			if err != nil {
				return fmt.Errorf("%s: resolving import %q via %q: %w", b.class, imp.dest, imp.key, err)
			}
			target, rows = t, r
		} else {
			// No such foreign key: the key names a device class whose
			// whole element set maps over row for row.
			t, ok := reg.DeviceByName(imp.key)
			if !ok {
				return fmt.Errorf("%s: resolving import %q: %w: %q", b.class, imp.dest, ErrUnknownDevice, imp.key)
			}
			if b.Count() > t.Count() {
				return fmt.Errorf("%s: resolving import %q: 1:1 mapping onto %s covers %d elements, need %d",
					b.class, imp.dest, t.ClassName(), t.Count(), b.Count())
			}
			rows = make([]int, t.Count())
			for i := range rows {
				rows[i] = i
			}
			target = t
		}

		if len(rows) == 0 {
			*imp.syms = nil
			imp.addrs = nil
			continue
		}

		srcSyms, ok := target.SymbolArray(imp.srcVar)
		if !ok {
			return fmt.Errorf("%s: import %q: %w: %q on %s", b.class, imp.dest, ErrMissingQuantity, imp.srcVar, target.ClassName())
		}
		if len(srcSyms) != target.Count() {
			return fmt.Errorf("%s: import %q: %w: %s has not declared symbols", b.class, imp.dest, ErrOrderingViolation, target.ClassName())
		}
		srcAddrs, ok := target.AddressArray(imp.srcVar)
		if !ok || len(srcAddrs) != target.Count() {
			return fmt.Errorf("%s: import %q: %w: %s.%s has no addresses", b.class, imp.dest, ErrOrderingViolation, target.ClassName(), imp.srcVar)
		}

		syms := make([]symbolic.Expr, len(rows))
		addrs := make([]int, len(rows))
		for i, row := range rows {
			syms[i] = srcSyms[row]
			addrs[i] = srcAddrs[row]
		}
		*imp.syms = syms
		imp.addrs = addrs
	}
	return nil
}

// ComputeParameters evaluates the derived parameters in declaration
// order. Each expansion must reduce to numbers: a symbolic leftover
// means the equation referenced a variable and is an error.
func (b *BaseDevice) ComputeParameters() error {
	if b.Count() == 0 {
		return nil
	}
	for _, dp := range b.derived {
		exprs, err := b.ExpandVectorized(dp.eq)
		if err != nil {
			return fmt.Errorf("%s: computing parameter %q: %w", b.class, dp.name, err)
		}
		vals := make([]float64, len(exprs))
		for i, e := range exprs {
			v, err := e.Eval(nil)
			if err != nil {
				return fmt.Errorf("%s: computing parameter %q element %d: %v", b.class, dp.name, i, err)
			}
			vals[i] = v
		}
		*dp.vals = vals
	}
	return nil
}

// ComputeCustom is the post-parameter hook. The base implementation does
// nothing; classes with parameter logic the template language cannot
// express shadow it.
func (b *BaseDevice) ComputeCustom() error { return nil }

// ComputeVariables expands the declared compute-equations into variable
// expressions.
func (b *BaseDevice) ComputeVariables() error {
	if b.Count() == 0 {
		return nil
	}
	for _, cv := range b.computes {
		switch cv.mode {
		case Vectorized:
			exprs, err := b.ExpandVectorized(cv.eq)
			if err != nil {
				return fmt.Errorf("%s: computing variable %q: %w", b.class, cv.name, err)
			}
			*cv.syms = exprs
		case Singleton:
			e, err := b.ExpandSingleton(cv.eq)
			if err != nil {
				return fmt.Errorf("%s: computing variable %q: %w", b.class, cv.name, err)
			}
			*cv.syms = []symbolic.Expr{e}
		default:
			return fmt.Errorf("%s: computing variable %q: %w: %d", b.class, cv.name, ErrUnsupportedComputeMode, cv.mode)
		}
	}
	return nil
}

// ComputeVariablesCustom is the post-variable hook, empty in the base.
func (b *BaseDevice) ComputeVariablesCustom() error { return nil }

// MaterializeEquations expands every equation template into per-element
// expressions, ready for collection.
func (b *BaseDevice) MaterializeEquations() error {
	if b.Count() == 0 {
		return nil
	}
	for _, group := range [][]*equationDef{b.eqInt, b.eqExt, b.eqState} {
		for _, eq := range group {
			exprs, err := b.ExpandVectorized(eq.eq)
			if err != nil {
				return fmt.Errorf("%s: equation for %q: %w", b.class, eq.varName, err)
			}
			eq.materialized = exprs
		}
	}
	return nil
}

// CollectInternalEquations adds the materialized local equations at the
// addresses of the device's own variables.
func (b *BaseDevice) CollectInternalEquations(d *dae.DAE) error {
	if b.Count() == 0 {
		return nil
	}
	for _, eq := range b.eqInt {
		addrs, ok := b.addrs[eq.varName]
		if !ok {
			return fmt.Errorf("%s: internal equation %q: no address assigned", b.class, eq.varName)
		}
		if len(eq.materialized) != len(addrs) {
			return fmt.Errorf("%s: internal equation %q: %w: %d expressions for %d addresses",
				b.class, eq.varName, ErrEquationCountMismatch, len(eq.materialized), len(addrs))
		}
		for i, addr := range addrs {
			if err := d.AddAlgebEquation(addr, eq.materialized[i]); err != nil {
				return fmt.Errorf("%s: internal equation %q: %v", b.class, eq.varName, err)
			}
		}
	}
	for _, eq := range b.eqState {
		addrs, ok := b.addrs[eq.varName]
		if !ok {
			return fmt.Errorf("%s: state equation %q: no address assigned", b.class, eq.varName)
		}
		if len(eq.materialized) != len(addrs) {
			return fmt.Errorf("%s: state equation %q: %w: %d expressions for %d addresses",
				b.class, eq.varName, ErrEquationCountMismatch, len(eq.materialized), len(addrs))
		}
		for i, addr := range addrs {
			if err := d.AddStateEquation(addr, eq.materialized[i]); err != nil {
				return fmt.Errorf("%s: state equation %q: %v", b.class, eq.varName, err)
			}
		}
	}
	return nil
}

// CollectExternalEquations adds the materialized external contributions
// at the owner addresses of the imported variables. Contributions are
// additive: the owner's entry accumulates terms from every contributor.
func (b *BaseDevice) CollectExternalEquations(d *dae.DAE) error {
	if b.Count() == 0 {
		return nil
	}
	for _, eq := range b.eqExt {
		imp := b.importByDest(eq.varName)
		if imp == nil {
			return fmt.Errorf("%s: external equation %q has no matching import", b.class, eq.varName)
		}
		if len(eq.materialized) != len(imp.addrs) {
			return fmt.Errorf("%s: external equation %q: %w: %d expressions for %d addresses",
				b.class, eq.varName, ErrEquationCountMismatch, len(eq.materialized), len(imp.addrs))
		}
		for i, addr := range imp.addrs {
			if err := d.AddAlgebEquation(addr, eq.materialized[i]); err != nil {
				return fmt.Errorf("%s: external equation %q: %v", b.class, eq.varName, err)
			}
		}
	}
	return nil
}

// SetInitialValues writes the declared flat-start values of the device's
// own variables into the DAE initial vectors.
func (b *BaseDevice) SetInitialValues(d *dae.DAE) error {
	if b.Count() == 0 {
		return nil
	}
	for _, v := range b.algebs {
		for _, addr := range b.addrs[v.name] {
			if err := d.SetAlgebInit(addr, v.init); err != nil {
				return fmt.Errorf("%s: initial value of %q: %v", b.class, v.name, err)
			}
		}
	}
	for _, v := range b.states {
		for _, addr := range b.addrs[v.name] {
			if err := d.SetStateInit(addr, v.init); err != nil {
				return fmt.Errorf("%s: initial value of %q: %v", b.class, v.name, err)
			}
		}
	}
	return nil
}
