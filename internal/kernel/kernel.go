// Package kernel describes elementwise accelerator kernels as small expression
// programs. A Kernel can be lowered to WGSL for a GPU driver or evaluated on the
// host by the emulated driver; both run the same formula per element index i.
package kernel

import "fmt"

// ParamKind classifies kernel parameters.
type ParamKind int

const (
	// ArrayIn is a read-only per-element input.
	ArrayIn ParamKind = iota
	// ArrayOut is a per-element output allocated by the launcher.
	ArrayOut
	// Scalar is a float uniform shared by every element.
	Scalar
	// Index is an integer uniform, used for modular indexing.
	Index
)

func (k ParamKind) String() string {
	switch k {
	case ArrayIn:
		return "in"
	case ArrayOut:
		return "out"
	case Scalar:
		return "scalar"
	case Index:
		return "index"
	default:
		return "unknown"
	}
}

// Param is a named kernel parameter.
type Param struct {
	Name string
	Kind ParamKind
}

// In declares an input array parameter.
func In(name string) Param { return Param{Name: name, Kind: ArrayIn} }

// Out declares an output array parameter.
func Out(name string) Param { return Param{Name: name, Kind: ArrayOut} }

// Float declares a scalar float parameter.
func Float(name string) Param { return Param{Name: name, Kind: Scalar} }

// Int declares an integer parameter.
func Int(name string) Param { return Param{Name: name, Kind: Index} }

// Stmt is one line of a kernel body: either a local binding or an output store.
type Stmt struct {
	Name   string
	Expr   Expr
	Output bool
}

// Let binds a per-element local that later statements can reference with V.
func Let(name string, e Expr) Stmt { return Stmt{Name: name, Expr: e} }

// Set stores e into output array name at index i.
func Set(name string, e Expr) Stmt { return Stmt{Name: name, Expr: e, Output: true} }

// Kernel is a named elementwise program.
type Kernel struct {
	Name   string
	Params []Param
	Body   []Stmt
}

// New builds a kernel and validates every reference in its body.
func New(name string, params []Param, body ...Stmt) (*Kernel, error) {
	k := &Kernel{Name: name, Params: params, Body: body}
	if err := k.validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// MustNew is New for statically declared kernels.
func MustNew(name string, params []Param, body ...Stmt) *Kernel {
	k, err := New(name, params, body...)
	if err != nil {
		panic(err)
	}
	return k
}

// Inputs returns the parameters a caller supplies, in declaration order.
func (k *Kernel) Inputs() []Param {
	var in []Param
	for _, p := range k.Params {
		if p.Kind != ArrayOut {
			in = append(in, p)
		}
	}
	return in
}

// Outputs returns the output array parameters in declaration order.
func (k *Kernel) Outputs() []Param {
	var out []Param
	for _, p := range k.Params {
		if p.Kind == ArrayOut {
			out = append(out, p)
		}
	}
	return out
}

func (k *Kernel) param(name string) (Param, bool) {
	for _, p := range k.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

func (k *Kernel) validate() error {
	seen := make(map[string]bool, len(k.Params))
	for _, p := range k.Params {
		if p.Name == "" || p.Name == "i" || p.Name == "params" || seen[p.Name] {
			return fmt.Errorf("kernel %s: %w: bad parameter name %q", k.Name, ErrInvalidKernel, p.Name)
		}
		seen[p.Name] = true
	}

	// Names readable at the current statement.
	visible := make(map[string]bool)
	for _, p := range k.Params {
		if p.Kind != ArrayOut {
			visible[p.Name] = true
		}
	}

	stored := make(map[string]bool)
	for _, s := range k.Body {
		if err := s.Expr.check(k, visible); err != nil {
			return fmt.Errorf("kernel %s: %w", k.Name, err)
		}
		if s.Output {
			p, ok := k.param(s.Name)
			if !ok || p.Kind != ArrayOut {
				return fmt.Errorf("kernel %s: %w: %q is not an output", k.Name, ErrInvalidKernel, s.Name)
			}
			stored[s.Name] = true
		} else if seen[s.Name] || visible[s.Name] {
			return fmt.Errorf("kernel %s: %w: local %q shadows a name", k.Name, ErrInvalidKernel, s.Name)
		}
		visible[s.Name] = true
	}

	for _, p := range k.Outputs() {
		if !stored[p.Name] {
			return fmt.Errorf("kernel %s: %w: output %q never written", k.Name, ErrInvalidKernel, p.Name)
		}
	}
	return nil
}

// Gathered reports the input arrays that are read only through At. Such arrays
// keep their own length instead of matching the launch size.
func (k *Kernel) Gathered() map[string]bool {
	direct := make(map[string]bool)
	indexed := make(map[string]bool)
	for _, s := range k.Body {
		walk(s.Expr, func(e Expr) {
			switch e := e.(type) {
			case ref:
				direct[e.name] = true
			case at:
				indexed[e.name] = true
			}
		})
	}

	out := make(map[string]bool)
	for name := range indexed {
		if !direct[name] {
			out[name] = true
		}
	}
	return out
}

func walk(e Expr, fn func(Expr)) {
	fn(e)
	switch e := e.(type) {
	case unary:
		walk(e.x, fn)
	case binary:
		walk(e.l, fn)
		walk(e.r, fn)
	}
}
