package dae

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

// Residual is the compiled, read-only form of the assembled equations.
// Equations are evaluated over the combined vector [x | y]; the state
// segment occupies positions 0..nx-1, the algebraic segment follows.
type Residual struct {
	nx int
	ny int

	g []func([]float64) float64
	f []func([]float64) float64

	jacGY []jacEntry

	scratch []float64
}

type jacEntry struct {
	row  int
	col  int
	eval func([]float64) float64
}

// Compile sums the collected contributions per address, resolves every
// symbol against the recorded bindings and returns the compiled
// residual. Compilation fails loudly for addresses without any
// contribution and for symbols that were never bound.
func (d *DAE) Compile() (*Residual, error) {
	if d.gTerms == nil {
		return nil, fmt.Errorf("%w: equations", ErrNotInitialized)
	}

	index := make(map[string]int, len(d.xSym)+len(d.ySym))
	for name, addr := range d.xSym {
		index[name] = addr
	}
	for name, addr := range d.ySym {
		index[name] = d.nx + addr
	}

	r := &Residual{
		nx:      d.nx,
		ny:      d.ny,
		g:       make([]func([]float64) float64, d.ny),
		f:       make([]func([]float64) float64, d.nx),
		scratch: make([]float64, d.nx+d.ny),
	}

	for addr, terms := range d.gTerms {
		if len(terms) == 0 {
			return nil, fmt.Errorf("%w: algebraic %s", ErrEmptyEquation, d.Owner(Algeb, addr))
		}
		eq := symbolic.AddOf(terms...)
		fn, err := symbolic.Compile(eq, index)
		if err != nil {
			return nil, fmt.Errorf("compiling algebraic equation for %s: %w", d.Owner(Algeb, addr), err)
		}
		r.g[addr] = fn

		// Jacobian entries with respect to the algebraic segment.
		for _, name := range symbolic.FreeSymbols(eq) {
			col, ok := d.ySym[name]
			if !ok {
				continue
			}
			deriv, err := symbolic.Compile(eq.Diff(name), index)
			if err != nil {
				return nil, fmt.Errorf("compiling jacobian entry (%d,%d): %w", addr, col, err)
			}
			r.jacGY = append(r.jacGY, jacEntry{row: addr, col: col, eval: deriv})
		}
	}

	for addr, terms := range d.fTerms {
		if len(terms) == 0 {
			return nil, fmt.Errorf("%w: state %s", ErrEmptyEquation, d.Owner(State, addr))
		}
		fn, err := symbolic.Compile(symbolic.AddOf(terms...), index)
		if err != nil {
			return nil, fmt.Errorf("compiling state equation for %s: %w", d.Owner(State, addr), err)
		}
		r.f[addr] = fn
	}

	d.log.Debug("compiled residual", "nx", d.nx, "ny", d.ny, "jacobian entries", len(r.jacGY))
	return r, nil
}

func (r *Residual) StateCount() int { return r.nx }
func (r *Residual) AlgebCount() int { return r.ny }

func (r *Residual) fill(x, y []float64) []float64 {
	copy(r.scratch[:r.nx], x)
	copy(r.scratch[r.nx:], y)
	return r.scratch
}

// EvalAlgeb writes the algebraic residuals g(x, y) into out.
func (r *Residual) EvalAlgeb(x, y, out []float64) {
	vec := r.fill(x, y)
	for i, fn := range r.g {
		out[i] = fn(vec)
	}
}

// EvalState writes the state derivatives f(x, y) into out.
func (r *Residual) EvalState(x, y, out []float64) {
	vec := r.fill(x, y)
	for i, fn := range r.f {
		out[i] = fn(vec)
	}
}

// StampAlgebJacobian evaluates dg/dy at (x, y) and hands every nonzero
// structural entry to add as (row, col, value).
func (r *Residual) StampAlgebJacobian(x, y []float64, add func(row, col int, value float64)) {
	vec := r.fill(x, y)
	for _, entry := range r.jacGY {
		add(entry.row, entry.col, entry.eval(vec))
	}
}

// JacobianEntryCount reports the number of structural dg/dy entries.
func (r *Residual) JacobianEntryCount() int { return len(r.jacGY) }
