package kernel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Expr is a per-element expression. The set of expression nodes is closed.
type Expr interface {
	check(k *Kernel, visible map[string]bool) error
	compile(p *program) evalFunc
	wgsl(k *Kernel, b *strings.Builder)
}

// evalFunc evaluates an expression for element i.
type evalFunc func(f *frame, i int) float64

type ref struct{ name string }

type lit struct{ v float64 }

type at struct{ name, modulus string }

type unaryOp int

const (
	opNeg unaryOp = iota
	opExp
	opLog
)

type unary struct {
	op unaryOp
	x  Expr
}

type binaryOp int

const (
	opAdd binaryOp = iota
	opSub
	opMul
	opDiv
	opPow
)

type binary struct {
	op   binaryOp
	l, r Expr
}

// V references a parameter or local by name. Arrays are read at the current index.
func V(name string) Expr { return ref{name: name} }

// C is a float literal.
func C(v float64) Expr { return lit{v: v} }

// At reads array name at index i % modulus, where modulus names an Index parameter.
func At(name, modulus string) Expr { return at{name: name, modulus: modulus} }

// Neg is -x.
func Neg(x Expr) Expr { return unary{op: opNeg, x: x} }

// Exp is e**x.
func Exp(x Expr) Expr { return unary{op: opExp, x: x} }

// Log is the natural logarithm.
func Log(x Expr) Expr { return unary{op: opLog, x: x} }

// Add is l + r.
func Add(l, r Expr) Expr { return binary{op: opAdd, l: l, r: r} }

// Sub is l - r.
func Sub(l, r Expr) Expr { return binary{op: opSub, l: l, r: r} }

// Mul is l * r.
func Mul(l, r Expr) Expr { return binary{op: opMul, l: l, r: r} }

// Div is l / r.
func Div(l, r Expr) Expr { return binary{op: opDiv, l: l, r: r} }

// Pow is l ** r.
func Pow(l, r Expr) Expr { return binary{op: opPow, l: l, r: r} }

func (e ref) check(k *Kernel, visible map[string]bool) error {
	if !visible[e.name] {
		return fmt.Errorf("%w: %q referenced before definition", ErrInvalidKernel, e.name)
	}
	if p, ok := k.param(e.name); ok && p.Kind == Index {
		return fmt.Errorf("%w: index parameter %q used as a value", ErrInvalidKernel, e.name)
	}
	return nil
}

func (e lit) check(*Kernel, map[string]bool) error { return nil }

func (e at) check(k *Kernel, _ map[string]bool) error {
	p, ok := k.param(e.name)
	if !ok || p.Kind != ArrayIn {
		return fmt.Errorf("%w: %q is not an input array", ErrInvalidKernel, e.name)
	}
	m, ok := k.param(e.modulus)
	if !ok || m.Kind != Index {
		return fmt.Errorf("%w: %q is not an index parameter", ErrInvalidKernel, e.modulus)
	}
	return nil
}

func (e unary) check(k *Kernel, visible map[string]bool) error {
	return e.x.check(k, visible)
}

func (e binary) check(k *Kernel, visible map[string]bool) error {
	if err := e.l.check(k, visible); err != nil {
		return err
	}
	return e.r.check(k, visible)
}

func (e ref) compile(p *program) evalFunc {
	slot := p.slot(e.name)
	switch slot.kind {
	case slotArray:
		idx := slot.idx
		return func(f *frame, i int) float64 { return f.arrays[idx][i] }
	case slotScalar:
		idx := slot.idx
		return func(f *frame, _ int) float64 { return f.scalars[idx] }
	default:
		idx := slot.idx
		return func(f *frame, _ int) float64 { return f.locals[idx] }
	}
}

func (e lit) compile(*program) evalFunc {
	v := e.v
	return func(*frame, int) float64 { return v }
}

func (e at) compile(p *program) evalFunc {
	arr := p.slot(e.name).idx
	mod := p.slot(e.modulus).idx
	p.atPairs = append(p.atPairs, [2]int{arr, mod})
	return func(f *frame, i int) float64 {
		return f.arrays[arr][i%f.ints[mod]]
	}
}

func (e unary) compile(p *program) evalFunc {
	x := e.x.compile(p)
	switch e.op {
	case opNeg:
		return func(f *frame, i int) float64 { return -x(f, i) }
	case opExp:
		return func(f *frame, i int) float64 { return math.Exp(x(f, i)) }
	default:
		return func(f *frame, i int) float64 { return math.Log(x(f, i)) }
	}
}

func (e binary) compile(p *program) evalFunc {
	l, r := e.l.compile(p), e.r.compile(p)
	switch e.op {
	case opAdd:
		return func(f *frame, i int) float64 { return l(f, i) + r(f, i) }
	case opSub:
		return func(f *frame, i int) float64 { return l(f, i) - r(f, i) }
	case opMul:
		return func(f *frame, i int) float64 { return l(f, i) * r(f, i) }
	case opDiv:
		return func(f *frame, i int) float64 { return l(f, i) / r(f, i) }
	default:
		return func(f *frame, i int) float64 { return math.Pow(l(f, i), r(f, i)) }
	}
}

func (e ref) wgsl(k *Kernel, b *strings.Builder) {
	p, ok := k.param(e.name)
	switch {
	case !ok:
		b.WriteString(e.name) // local
	case p.Kind == Scalar:
		b.WriteString("params.")
		b.WriteString(e.name)
	default:
		b.WriteString(e.name)
		b.WriteString("[i]")
	}
}

func (e lit) wgsl(_ *Kernel, b *strings.Builder) {
	b.WriteString(wgslFloat(e.v))
}

func (e at) wgsl(_ *Kernel, b *strings.Builder) {
	fmt.Fprintf(b, "%s[i %% params.%s]", e.name, e.modulus)
}

func (e unary) wgsl(k *Kernel, b *strings.Builder) {
	switch e.op {
	case opNeg:
		b.WriteString("(-")
	case opExp:
		b.WriteString("exp(")
	default:
		b.WriteString("log(")
	}
	e.x.wgsl(k, b)
	b.WriteString(")")
}

func (e binary) wgsl(k *Kernel, b *strings.Builder) {
	if e.op == opPow {
		b.WriteString("pow(")
		e.l.wgsl(k, b)
		b.WriteString(", ")
		e.r.wgsl(k, b)
		b.WriteString(")")
		return
	}

	b.WriteString("(")
	e.l.wgsl(k, b)
	b.WriteString([...]string{" + ", " - ", " * ", " / "}[e.op])
	e.r.wgsl(k, b)
	b.WriteString(")")
}

// wgslFloat formats v as an f32 literal.
func wgslFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
