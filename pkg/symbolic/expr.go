// Package symbolic implements the small expression-tree algebra used for
// device equation templates: constants, named symbols, sums, products,
// powers and a few function nodes. Trees are immutable; every operation
// returns a new tree.
package symbolic

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrUnboundSymbol reports evaluation or compilation of an expression
// that still contains a symbol with no value bound to it.
var ErrUnboundSymbol = errors.New("symbolic: unbound symbol")

type Expr interface {
	fmt.Stringer

	// Subst replaces every symbol that appears in repl with its
	// replacement expression. All replacements are applied in a single
	// pass over the tree, so substituting x with an expression that
	// mentions y is not affected by a replacement for y in the same call.
	Subst(repl map[string]Expr) Expr

	// Diff returns the partial derivative with respect to the named symbol.
	Diff(name string) Expr

	// Eval computes a numeric value with symbols bound through vals.
	Eval(vals map[string]float64) (float64, error)

	freeSymbols(set map[string]struct{})
}

type Num struct {
	Val float64
}

type Sym struct {
	Name string
}

// Add and Mul are n-ary; constructors flatten nested nodes and fold
// constant operands.
type Add struct {
	Ops []Expr
}

type Mul struct {
	Ops []Expr
}

type Pow struct {
	Base Expr
	Exp  Expr
}

// Fn is a named unary function node. Supported names are sin, cos and ln.
type Fn struct {
	Name string
	Arg  Expr
}

const (
	fnSin = "sin"
	fnCos = "cos"
	fnLn  = "ln"
)

func NewNum(v float64) *Num   { return &Num{Val: v} }
func NewSym(name string) *Sym { return &Sym{Name: name} }

// AddOf builds a sum, flattening nested sums, folding constants and
// dropping zero terms. An empty sum is the constant 0.
func AddOf(ops ...Expr) Expr {
	flat := make([]Expr, 0, len(ops))
	constant := 0.0
	for _, op := range ops {
		switch v := op.(type) {
		case *Num:
			constant += v.Val
		case *Add:
			for _, inner := range v.Ops {
				if n, ok := inner.(*Num); ok {
					constant += n.Val
					continue
				}
				flat = append(flat, inner)
			}
		default:
			flat = append(flat, op)
		}
	}
	if constant != 0 {
		flat = append(flat, NewNum(constant))
	}
	switch len(flat) {
	case 0:
		return NewNum(0)
	case 1:
		return flat[0]
	}
	return &Add{Ops: flat}
}

// MulOf builds a product, flattening nested products, folding constants
// and short-circuiting on a zero factor. An empty product is the
// constant 1.
func MulOf(ops ...Expr) Expr {
	flat := make([]Expr, 0, len(ops))
	constant := 1.0
	for _, op := range ops {
		switch v := op.(type) {
		case *Num:
			constant *= v.Val
		case *Mul:
			for _, inner := range v.Ops {
				if n, ok := inner.(*Num); ok {
					constant *= n.Val
					continue
				}
				flat = append(flat, inner)
			}
		default:
			flat = append(flat, op)
		}
	}
	if constant == 0 {
		return NewNum(0)
	}
	if constant != 1 {
		flat = append([]Expr{NewNum(constant)}, flat...)
	}
	switch len(flat) {
	case 0:
		return NewNum(1)
	case 1:
		return flat[0]
	}
	return &Mul{Ops: flat}
}

// SubOf builds a - b.
func SubOf(a, b Expr) Expr { return AddOf(a, NegOf(b)) }

// NegOf builds -a.
func NegOf(a Expr) Expr { return MulOf(NewNum(-1), a) }

// DivOf builds a / b as a * b^-1.
func DivOf(a, b Expr) Expr { return MulOf(a, PowOf(b, NewNum(-1))) }

// PowOf builds base^exp, folding the trivial exponents 0 and 1 and
// constant^constant.
func PowOf(base, exp Expr) Expr {
	if e, ok := exp.(*Num); ok {
		switch e.Val {
		case 0:
			return NewNum(1)
		case 1:
			return base
		}
		if b, ok := base.(*Num); ok {
			return NewNum(math.Pow(b.Val, e.Val))
		}
	}
	return &Pow{Base: base, Exp: exp}
}

func SinOf(arg Expr) Expr {
	if n, ok := arg.(*Num); ok {
		return NewNum(math.Sin(n.Val))
	}
	return &Fn{Name: fnSin, Arg: arg}
}

func CosOf(arg Expr) Expr {
	if n, ok := arg.(*Num); ok {
		return NewNum(math.Cos(n.Val))
	}
	return &Fn{Name: fnCos, Arg: arg}
}

func LnOf(arg Expr) Expr {
	if n, ok := arg.(*Num); ok {
		return NewNum(math.Log(n.Val))
	}
	return &Fn{Name: fnLn, Arg: arg}
}

// FreeSymbols returns the sorted distinct symbol names of e.
func FreeSymbols(e Expr) []string {
	set := make(map[string]struct{})
	e.freeSymbols(set)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Num) String() string { return strconv.FormatFloat(n.Val, 'g', -1, 64) }

func (n *Num) Subst(map[string]Expr) Expr { return n }

func (n *Num) Diff(string) Expr { return NewNum(0) }

func (n *Num) Eval(map[string]float64) (float64, error) { return n.Val, nil }

func (n *Num) freeSymbols(map[string]struct{}) {}

func (s *Sym) String() string { return s.Name }

func (s *Sym) Subst(repl map[string]Expr) Expr {
	if r, ok := repl[s.Name]; ok {
		// Returned as-is, never re-substituted: this is what makes a
		// whole call simultaneous.
		return r
	}
	return s
}

func (s *Sym) Diff(name string) Expr {
	if s.Name == name {
		return NewNum(1)
	}
	return NewNum(0)
}

func (s *Sym) Eval(vals map[string]float64) (float64, error) {
	v, ok := vals[s.Name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnboundSymbol, s.Name)
	}
	return v, nil
}

func (s *Sym) freeSymbols(set map[string]struct{}) { set[s.Name] = struct{}{} }

func (a *Add) String() string {
	parts := make([]string, len(a.Ops))
	for i, op := range a.Ops {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func (a *Add) Subst(repl map[string]Expr) Expr {
	ops := make([]Expr, len(a.Ops))
	for i, op := range a.Ops {
		ops[i] = op.Subst(repl)
	}
	return AddOf(ops...)
}

func (a *Add) Diff(name string) Expr {
	ops := make([]Expr, len(a.Ops))
	for i, op := range a.Ops {
		ops[i] = op.Diff(name)
	}
	return AddOf(ops...)
}

func (a *Add) Eval(vals map[string]float64) (float64, error) {
	sum := 0.0
	for _, op := range a.Ops {
		v, err := op.Eval(vals)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}

func (a *Add) freeSymbols(set map[string]struct{}) {
	for _, op := range a.Ops {
		op.freeSymbols(set)
	}
}

func (m *Mul) String() string {
	parts := make([]string, len(m.Ops))
	for i, op := range m.Ops {
		parts[i] = op.String()
	}
	return "(" + strings.Join(parts, "*") + ")"
}

func (m *Mul) Subst(repl map[string]Expr) Expr {
	ops := make([]Expr, len(m.Ops))
	for i, op := range m.Ops {
		ops[i] = op.Subst(repl)
	}
	return MulOf(ops...)
}

// Diff applies the product rule over all operands.
func (m *Mul) Diff(name string) Expr {
	terms := make([]Expr, len(m.Ops))
	for i := range m.Ops {
		factors := make([]Expr, len(m.Ops))
		for j, op := range m.Ops {
			if i == j {
				factors[j] = op.Diff(name)
			} else {
				factors[j] = op
			}
		}
		terms[i] = MulOf(factors...)
	}
	return AddOf(terms...)
}

func (m *Mul) Eval(vals map[string]float64) (float64, error) {
	prod := 1.0
	for _, op := range m.Ops {
		v, err := op.Eval(vals)
		if err != nil {
			return 0, err
		}
		prod *= v
	}
	return prod, nil
}

func (m *Mul) freeSymbols(set map[string]struct{}) {
	for _, op := range m.Ops {
		op.freeSymbols(set)
	}
}

func (p *Pow) String() string {
	return fmt.Sprintf("(%v)^(%v)", p.Base, p.Exp)
}

func (p *Pow) Subst(repl map[string]Expr) Expr {
	return PowOf(p.Base.Subst(repl), p.Exp.Subst(repl))
}

func (p *Pow) Diff(name string) Expr {
	if e, ok := p.Exp.(*Num); ok {
		// d(u^c) = c * u^(c-1) * u'
		return MulOf(NewNum(e.Val), PowOf(p.Base, NewNum(e.Val-1)), p.Base.Diff(name))
	}
	// d(u^v) = u^v * (v'*ln(u) + v*u'/u)
	return MulOf(p, AddOf(
		MulOf(p.Exp.Diff(name), LnOf(p.Base)),
		MulOf(p.Exp, DivOf(p.Base.Diff(name), p.Base)),
	))
}

func (p *Pow) Eval(vals map[string]float64) (float64, error) {
	b, err := p.Base.Eval(vals)
	if err != nil {
		return 0, err
	}
	e, err := p.Exp.Eval(vals)
	if err != nil {
		return 0, err
	}
	return math.Pow(b, e), nil
}

func (p *Pow) freeSymbols(set map[string]struct{}) {
	p.Base.freeSymbols(set)
	p.Exp.freeSymbols(set)
}

func (f *Fn) String() string {
	return fmt.Sprintf("%s(%v)", f.Name, f.Arg)
}

func (f *Fn) Subst(repl map[string]Expr) Expr {
	arg := f.Arg.Subst(repl)
	switch f.Name {
	case fnSin:
		return SinOf(arg)
	case fnCos:
		return CosOf(arg)
	case fnLn:
		return LnOf(arg)
	}
	return &Fn{Name: f.Name, Arg: arg}
}

func (f *Fn) Diff(name string) Expr {
	du := f.Arg.Diff(name)
	switch f.Name {
	case fnSin:
		return MulOf(CosOf(f.Arg), du)
	case fnCos:
		return MulOf(NewNum(-1), SinOf(f.Arg), du)
	case fnLn:
		return DivOf(du, f.Arg)
	}
	return NewNum(0)
}

func (f *Fn) Eval(vals map[string]float64) (float64, error) {
	v, err := f.Arg.Eval(vals)
	if err != nil {
		return 0, err
	}
	switch f.Name {
	case fnSin:
		return math.Sin(v), nil
	case fnCos:
		return math.Cos(v), nil
	case fnLn:
		return math.Log(v), nil
	default:
		return 0, fmt.Errorf("symbolic: unknown function %q", f.Name)
	}
}

func (f *Fn) freeSymbols(set map[string]struct{}) { f.Arg.freeSymbols(set) }

// Compile resolves every symbol of e through index and returns a closure
// evaluating e over a flat value vector. Symbol resolution happens once,
// so the closure is cheap to call repeatedly.
func Compile(e Expr, index map[string]int) (func([]float64) float64, error) {
	switch v := e.(type) {
	case *Num:
		val := v.Val
		return func([]float64) float64 { return val }, nil
	case *Sym:
		i, ok := index[v.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnboundSymbol, v.Name)
		}
		return func(vec []float64) float64 { return vec[i] }, nil
	case *Add:
		fns, err := compileAll(v.Ops, index)
		if err != nil {
			return nil, err
		}
		return func(vec []float64) float64 {
			sum := 0.0
			for _, fn := range fns {
				sum += fn(vec)
			}
			return sum
		}, nil
	case *Mul:
		fns, err := compileAll(v.Ops, index)
		if err != nil {
			return nil, err
		}
		return func(vec []float64) float64 {
			prod := 1.0
			for _, fn := range fns {
				prod *= fn(vec)
			}
			return prod
		}, nil
	case *Pow:
		base, err := Compile(v.Base, index)
		if err != nil {
			return nil, err
		}
		exp, err := Compile(v.Exp, index)
		if err != nil {
			return nil, err
		}
		return func(vec []float64) float64 { return math.Pow(base(vec), exp(vec)) }, nil
	case *Fn:
		arg, err := Compile(v.Arg, index)
		if err != nil {
			return nil, err
		}
		switch v.Name {
		case fnSin:
			return func(vec []float64) float64 { return math.Sin(arg(vec)) }, nil
		case fnCos:
			return func(vec []float64) float64 { return math.Cos(arg(vec)) }, nil
		case fnLn:
			return func(vec []float64) float64 { return math.Log(arg(vec)) }, nil
		default:
			return nil, fmt.Errorf("symbolic: unknown function %q", v.Name)
		}
	default:
		return nil, fmt.Errorf("symbolic: unknown expression node %T", e)
	}
}

func compileAll(ops []Expr, index map[string]int) ([]func([]float64) float64, error) {
	fns := make([]func([]float64) float64, len(ops))
	for i, op := range ops {
		fn, err := Compile(op, index)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return fns, nil
}
