package main

import (
	"github.com/born-ml/gradfn/autodiff"
	"github.com/born-ml/gradfn/tensor"
)

// graphFn builds a graph from its inputs and returns the output.
type graphFn func(in []*autodiff.Variable) (*autodiff.Variable, error)

type gradCase struct {
	name   string
	shapes []tensor.Shape
	// build returns the graph for parameters of the given dtype. Cases with
	// parameters must produce identical values for identical seeds.
	build func(dt tensor.DataType, seed uint64) (graphFn, error)
}

func stateless(fn graphFn) func(tensor.DataType, uint64) (graphFn, error) {
	return func(tensor.DataType, uint64) (graphFn, error) { return fn, nil }
}

func binary(op func(lhs, rhs any) (*autodiff.Variable, error)) graphFn {
	return func(in []*autodiff.Variable) (*autodiff.Variable, error) {
		return op(in[0], in[1])
	}
}

func unary(op func(x *autodiff.Variable) (*autodiff.Variable, error)) graphFn {
	return func(in []*autodiff.Variable) (*autodiff.Variable, error) {
		return op(in[0])
	}
}

func withConstant(op func(lhs, rhs any) (*autodiff.Variable, error), c float64, reversed bool) graphFn {
	return func(in []*autodiff.Variable) (*autodiff.Variable, error) {
		if reversed {
			return op(c, in[0])
		}
		return op(in[0], c)
	}
}

var (
	matrix = tensor.Shape{2, 3}
	row    = tensor.Shape{3}
)

func defaultCases() []gradCase {
	return []gradCase{
		{name: "neg", shapes: []tensor.Shape{matrix}, build: stateless(unary(autodiff.Neg))},
		{name: "add", shapes: []tensor.Shape{matrix, row}, build: stateless(binary(autodiff.Add))},
		{name: "add_constant", shapes: []tensor.Shape{matrix}, build: stateless(withConstant(autodiff.Add, 2, false))},
		{name: "sub", shapes: []tensor.Shape{matrix, matrix}, build: stateless(binary(autodiff.Sub))},
		{name: "sub_from_constant", shapes: []tensor.Shape{matrix}, build: stateless(withConstant(autodiff.Sub, 3, true))},
		{name: "mul", shapes: []tensor.Shape{matrix, row}, build: stateless(binary(autodiff.Mul))},
		{name: "mul_constant", shapes: []tensor.Shape{matrix}, build: stateless(withConstant(autodiff.Mul, -1.5, false))},
		{name: "div", shapes: []tensor.Shape{matrix, matrix}, build: stateless(binary(autodiff.Div))},
		{name: "div_from_constant", shapes: []tensor.Shape{matrix}, build: stateless(withConstant(autodiff.Div, 2, true))},
		{name: "pow_var_var", shapes: []tensor.Shape{matrix, matrix}, build: stateless(binary(autodiff.Pow))},
		{name: "pow_var_const", shapes: []tensor.Shape{matrix}, build: stateless(withConstant(autodiff.Pow, 3, false))},
		{name: "pow_const_var", shapes: []tensor.Shape{matrix}, build: stateless(withConstant(autodiff.Pow, 2, true))},
		{name: "exp", shapes: []tensor.Shape{matrix}, build: stateless(unary(autodiff.Exp))},
		{name: "log", shapes: []tensor.Shape{matrix}, build: stateless(unary(autodiff.Log))},
		{name: "composite", shapes: []tensor.Shape{matrix, row}, build: stateless(composite)},
		{name: "linear", shapes: []tensor.Shape{{4, 3}}, build: linearCase},
	}
}

// composite computes log(x*y + 1) / exp(-x).
func composite(in []*autodiff.Variable) (*autodiff.Variable, error) {
	xy, err := in[0].Mul(in[1])
	if err != nil {
		return nil, err
	}
	l, err := xy.Add(1.0)
	if err != nil {
		return nil, err
	}
	if l, err = l.Log(); err != nil {
		return nil, err
	}
	e, err := in[0].Neg()
	if err != nil {
		return nil, err
	}
	if e, err = e.Exp(); err != nil {
		return nil, err
	}
	return l.Div(e)
}

func linearCase(dt tensor.DataType, seed uint64) (graphFn, error) {
	l, err := autodiff.NewLinear(3, 2,
		autodiff.WithSeed(seed),
		autodiff.WithBias(0.1),
		autodiff.WithDType(dt),
	)
	if err != nil {
		return nil, err
	}
	return func(in []*autodiff.Variable) (*autodiff.Variable, error) {
		return autodiff.ApplyLinear(l, in[0])
	}, nil
}
