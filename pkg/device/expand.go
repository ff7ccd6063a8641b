package device

import (
	"fmt"

	"github.com/edp1096/toy-powerflow/pkg/symbolic"
)

// ExpandVectorized instantiates a template once per element. Every free
// symbol must name a quantity of this device; empty quantities are
// skipped with a diagnostic and the element count is the minimum length
// over the remaining ones. A template whose quantities are all empty
// expands to nothing.
func (b *BaseDevice) ExpandVectorized(template symbolic.Expr) ([]symbolic.Expr, error) {
	free := symbolic.FreeSymbols(template)

	type binding struct {
		name string
		q    quantity
	}
	var bound []binding
	m := -1
	for _, name := range free {
		q, ok := b.quantities[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %q", b.class, ErrMissingQuantity, name)
		}
		n := q.length()
		if n == 0 {
			b.log.Debug("expansion skips empty quantity", "symbol", name)
			continue
		}
		bound = append(bound, binding{name: name, q: q})
		if m < 0 || n < m {
			m = n
		}
	}
	if m < 0 {
		m = 0
	}

	out := make([]symbolic.Expr, m)
	repl := make(map[string]symbolic.Expr, len(bound))
	for i := 0; i < m; i++ {
		for _, bn := range bound {
			repl[bn.name] = bn.q.exprAt(i)
		}
		out[i] = template.Subst(repl)
	}
	return out, nil
}

// ExpandSingleton substitutes every free symbol of the template with the
// sole element of its quantity, all in one simultaneous pass: a symbol
// introduced by one replacement is never rewritten by another.
func (b *BaseDevice) ExpandSingleton(template symbolic.Expr) (symbolic.Expr, error) {
	free := symbolic.FreeSymbols(template)
	repl := make(map[string]symbolic.Expr, len(free))
	for _, name := range free {
		q, ok := b.quantities[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %q", b.class, ErrMissingQuantity, name)
		}
		e, err := q.single()
		if err != nil {
			return nil, fmt.Errorf("%s: substituting %q: %v", b.class, name, err)
		}
		repl[name] = e
	}
	return template.Subst(repl), nil
}
