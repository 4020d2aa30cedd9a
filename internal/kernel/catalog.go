package kernel

import (
	"fmt"
	"sort"
)

// Elementwise array primitives used by the accelerator backend.
var (
	AddKernel = MustNew("add", []Param{In("a"), In("b"), Out("y")},
		Set("y", Add(V("a"), V("b"))))
	SubKernel = MustNew("sub", []Param{In("a"), In("b"), Out("y")},
		Set("y", Sub(V("a"), V("b"))))
	MulKernel = MustNew("mul", []Param{In("a"), In("b"), Out("y")},
		Set("y", Mul(V("a"), V("b"))))
	DivKernel = MustNew("div", []Param{In("a"), In("b"), Out("y")},
		Set("y", Div(V("a"), V("b"))))
	PowKernel = MustNew("pow", []Param{In("a"), In("b"), Out("y")},
		Set("y", Pow(V("a"), V("b"))))

	NegKernel = MustNew("neg", []Param{In("x"), Out("y")},
		Set("y", Neg(V("x"))))
	ExpKernel = MustNew("exp", []Param{In("x"), Out("y")},
		Set("y", Exp(V("x"))))
	LogKernel = MustNew("log", []Param{In("x"), Out("y")},
		Set("y", Log(V("x"))))

	AddScalarKernel = MustNew("add_scalar", []Param{In("x"), Float("s"), Out("y")},
		Set("y", Add(V("x"), V("s"))))
	MulScalarKernel = MustNew("mul_scalar", []Param{In("x"), Float("s"), Out("y")},
		Set("y", Mul(V("x"), V("s"))))
	PowScalarKernel = MustNew("pow_scalar", []Param{In("x"), Float("s"), Out("y")},
		Set("y", Pow(V("x"), V("s"))))
	RPowScalarKernel = MustNew("rpow_scalar", []Param{In("x"), Float("s"), Out("y")},
		Set("y", Pow(V("s"), V("x"))))
)

// Fused kernels emitted by the differentiable operations.
var (
	// MulBwd: gx0 = gy * x1, gx1 = gy * x0.
	MulBwd = MustNew("mul_bwd",
		[]Param{In("x0"), In("x1"), In("gy"), Out("gx0"), Out("gx1")},
		Set("gx0", Mul(V("gy"), V("x1"))),
		Set("gx1", Mul(V("gy"), V("x0"))))

	// DivBwd: gx0 = gy / x1, gx1 = -gx0 * x0 / x1.
	DivBwd = MustNew("div_bwd",
		[]Param{In("x0"), In("x1"), In("gy"), Out("gx0"), Out("gx1")},
		Set("gx0", Div(V("gy"), V("x1"))),
		Set("gx1", Div(Mul(Neg(V("gx0")), V("x0")), V("x1"))))

	// DivFromConstBwd: gx = -c * gy / x², scalar c.
	DivFromConstBwd = MustNew("div_from_const_bwd",
		[]Param{In("x"), In("gy"), Float("c"), Out("gx")},
		Set("gx", Div(Mul(Neg(V("c")), V("gy")), Mul(V("x"), V("x")))))

	// DivFromConstBwdArray: gx = -c * gy / x², per-element c.
	DivFromConstBwdArray = MustNew("div_from_const_bwd_array",
		[]Param{In("x"), In("gy"), In("c"), Out("gx")},
		Set("gx", Div(Mul(Neg(V("c")), V("gy")), Mul(V("x"), V("x")))))

	// PowVarVarFwd: y = x0 ** x1.
	PowVarVarFwd = MustNew("pow_var_var_fwd",
		[]Param{In("x0"), In("x1"), Out("y")},
		Set("y", Pow(V("x0"), V("x1"))))

	// PowVarVarBwd: gx0 = x1 * x0^(x1-1) * gy, gx1 = ln(x0) * y * gy.
	PowVarVarBwd = MustNew("pow_var_var_bwd",
		[]Param{In("x0"), In("x1"), In("y"), In("gy"), Out("gx0"), Out("gx1")},
		Set("gx0", Mul(Mul(V("x1"), Pow(V("x0"), Sub(V("x1"), C(1)))), V("gy"))),
		Set("gx1", Mul(Mul(Log(V("x0")), V("y")), V("gy"))))

	// PowVarConstFwd: y = x ** c, scalar c.
	PowVarConstFwd = MustNew("pow_var_const_fwd",
		[]Param{In("x"), Float("c"), Out("y")},
		Set("y", Pow(V("x"), V("c"))))

	// PowVarConstFwdArray: y = x ** c, per-element c.
	PowVarConstFwdArray = MustNew("pow_var_const_fwd_array",
		[]Param{In("x"), In("c"), Out("y")},
		Set("y", Pow(V("x"), V("c"))))

	// PowVarConstBwd: gx = c * x^(c-1) * gy, scalar c.
	PowVarConstBwd = MustNew("pow_var_const_bwd",
		[]Param{In("x"), In("gy"), Float("c"), Out("gx")},
		Set("gx", Mul(Mul(V("c"), Pow(V("x"), Sub(V("c"), C(1)))), V("gy"))))

	// PowVarConstBwdArray: gx = c * x^(c-1) * gy, per-element c.
	PowVarConstBwdArray = MustNew("pow_var_const_bwd_array",
		[]Param{In("x"), In("gy"), In("c"), Out("gx")},
		Set("gx", Mul(Mul(V("c"), Pow(V("x"), Sub(V("c"), C(1)))), V("gy"))))

	// PowConstVarFwd: y = c ** x, scalar c.
	PowConstVarFwd = MustNew("pow_const_var_fwd",
		[]Param{In("x"), Float("c"), Out("y")},
		Set("y", Pow(V("c"), V("x"))))

	// PowConstVarFwdArray: y = c ** x, per-element c.
	PowConstVarFwdArray = MustNew("pow_const_var_fwd_array",
		[]Param{In("x"), In("c"), Out("y")},
		Set("y", Pow(V("c"), V("x"))))

	// PowConstVarBwd: gx = ln(c) * y * gy, scalar c.
	PowConstVarBwd = MustNew("pow_const_var_bwd",
		[]Param{In("y"), In("gy"), Float("c"), Out("gx")},
		Set("gx", Mul(Mul(Log(V("c")), V("y")), V("gy"))))

	// PowConstVarBwdArray: gx = ln(c) * y * gy, per-element c.
	PowConstVarBwdArray = MustNew("pow_const_var_bwd_array",
		[]Param{In("y"), In("gy"), In("c"), Out("gx")},
		Set("gx", Mul(Mul(Log(V("c")), V("y")), V("gy"))))

	// LinearBias: y = x + b[i % n_channel], adding the bias to every row.
	LinearBias = MustNew("linear_bias",
		[]Param{In("x"), In("b"), Int("n_channel"), Out("y")},
		Set("y", Add(V("x"), At("b", "n_channel"))))
)

var catalog = index(
	AddKernel, SubKernel, MulKernel, DivKernel, PowKernel,
	NegKernel, ExpKernel, LogKernel,
	AddScalarKernel, MulScalarKernel, PowScalarKernel, RPowScalarKernel,
	MulBwd, DivBwd, DivFromConstBwd, DivFromConstBwdArray,
	PowVarVarFwd, PowVarVarBwd,
	PowVarConstFwd, PowVarConstFwdArray, PowVarConstBwd, PowVarConstBwdArray,
	PowConstVarFwd, PowConstVarFwdArray, PowConstVarBwd, PowConstVarBwdArray,
	LinearBias,
)

func index(ks ...*Kernel) map[string]*Kernel {
	m := make(map[string]*Kernel, len(ks))
	for _, k := range ks {
		if _, dup := m[k.Name]; dup {
			panic(fmt.Sprintf("kernel: duplicate catalog entry %q", k.Name))
		}
		m[k.Name] = k
	}
	return m
}

// Lookup returns the catalog kernel with the given name.
func Lookup(name string) (*Kernel, error) {
	k, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
	}
	return k, nil
}

// Names returns every catalog kernel name in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
