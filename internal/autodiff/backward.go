package autodiff

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/born-ml/gradfn/internal/autodiff/ops"
	"github.com/born-ml/gradfn/internal/tensor"
)

var tracer = otel.Tracer("github.com/born-ml/gradfn/internal/autodiff")

// Backward computes gradients of v with respect to every Variable it depends
// on. The seed gradient is v's current gradient, or ones when it has none.
func (v *Variable) Backward() error {
	return v.BackwardContext(context.Background())
}

// BackwardContext is Backward with a parent context for tracing.
//
// Nodes are visited in reverse topological order, so each operation receives
// the full gradient of its output before propagating to its inputs.
func (v *Variable) BackwardContext(ctx context.Context) (err error) {
	order := topoSort(v)

	ctx, span := tracer.Start(ctx, "autodiff.Backward", trace.WithAttributes(
		attribute.String("backend", v.backend.Name()),
		attribute.Int("variables", len(order)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// Intermediate gradients belong to one pass. Only leaves and the root keep
	// what earlier passes left.
	for _, x := range order {
		if x != v && x.creator != nil {
			x.grad = nil
		}
	}

	if v.grad == nil {
		seed, err := tensor.Full(v.data.Shape(), v.data.DType(), v.data.Device(), 1)
		if err != nil {
			return fmt.Errorf("backward: %w", err)
		}
		v.grad = seed
	}

	for i := len(order) - 1; i >= 0; i-- {
		out := order[i]
		if out.creator == nil || out.grad == nil {
			continue
		}
		if err := out.propagate(ctx); err != nil {
			return err
		}
	}

	if s, ok := v.backend.(interface{ Synchronize() error }); ok {
		return s.Synchronize()
	}
	return nil
}

func (v *Variable) propagate(ctx context.Context) error {
	fn := v.creator.fn
	_, span := tracer.Start(ctx, fn.Label(), trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	inputs := v.creator.inputs
	xs := make([]*tensor.RawTensor, len(inputs))
	for i, in := range inputs {
		xs[i] = in.data
	}

	gxs, err := ops.Backward(v.backend, fn, xs, v.grad)
	if err != nil {
		return err
	}
	for i, in := range inputs {
		if in.grad == nil {
			in.grad = gxs[i]
			continue
		}
		sum, err := v.backend.Add(in.grad, gxs[i])
		if err != nil {
			return fmt.Errorf("%s: accumulate gradient: %w", fn.Label(), err)
		}
		in.grad = sum
	}
	return nil
}

// topoSort returns every Variable reachable from v, inputs before outputs.
func topoSort(v *Variable) []*Variable {
	var order []*Variable
	seen := make(map[*Variable]bool)

	var visit func(*Variable)
	visit = func(x *Variable) {
		if seen[x] {
			return
		}
		seen[x] = true
		if x.creator != nil {
			for _, in := range x.creator.inputs {
				visit(in)
			}
		}
		order = append(order, x)
	}
	visit(v)
	return order
}
