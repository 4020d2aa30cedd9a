package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/born-ml/gradfn/autodiff"
	"github.com/born-ml/gradfn/backend/cpu"
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/tensor"
)

type checkConfig struct {
	eps   float64
	tol   float64
	seed  uint64
	dtype tensor.DataType
}

type caseResult struct {
	backend string
	name    string
	// forwardErr is the largest out-of-tolerance difference between the
	// backend output and the float64 host output.
	forwardErr float64
	// gradErr is the same for analytic against numeric gradients.
	gradErr float64
	passed  bool
	err     error
	elapsed time.Duration
}

// checker runs gradient cases on one backend against a float64 host reference.
type checker struct {
	cfg     checkConfig
	backend tensor.Backend
	ref     *cpu.Backend
}

func newChecker(b tensor.Backend, cfg checkConfig) *checker {
	return &checker{cfg: cfg, backend: b, ref: cpu.New()}
}

func (c *checker) run(ctx context.Context, cases []gradCase) []caseResult {
	results := make([]caseResult, 0, len(cases))
	for i, gc := range cases {
		if ctx.Err() != nil {
			break
		}
		start := time.Now()
		res := c.runCase(ctx, gc, c.cfg.seed+uint64(i))
		res.elapsed = time.Since(start)
		recordResult(res)
		results = append(results, res)
	}
	return results
}

func (c *checker) runCase(ctx context.Context, gc gradCase, seed uint64) caseResult {
	ctx, span := tracer.Start(ctx, "gradcheck."+gc.name)
	defer span.End()
	span.SetAttributes(attribute.String("backend", c.backend.Name()))

	res := caseResult{backend: c.backend.Name(), name: gc.name}
	res.err = c.measure(ctx, gc, seed, &res)
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, res.err.Error())
		log.Error().Err(res.err).Str("backend", res.backend).Str("case", gc.name).Msg("case failed")
		return res
	}
	log.Debug().
		Str("backend", res.backend).
		Str("case", gc.name).
		Float64("forward_err", res.forwardErr).
		Float64("grad_err", res.gradErr).
		Bool("passed", res.passed).
		Msg("case checked")
	return res
}

func (c *checker) measure(ctx context.Context, gc gradCase, seed uint64, res *caseResult) error {
	inputs := randomInputs(gc.shapes, seed)

	testFn, err := gc.build(c.cfg.dtype, c.cfg.seed)
	if err != nil {
		return err
	}
	refFn, err := gc.build(tensor.Float64, c.cfg.seed)
	if err != nil {
		return err
	}

	vars, err := variables(inputs, gc.shapes, c.cfg.dtype, c.backend)
	if err != nil {
		return err
	}
	y, err := testFn(vars)
	if err != nil {
		return fmt.Errorf("forward: %w", err)
	}
	if err = y.BackwardContext(ctx); err != nil {
		return fmt.Errorf("backward: %w", err)
	}

	refVars, err := variables(inputs, gc.shapes, tensor.Float64, c.ref)
	if err != nil {
		return err
	}
	want, err := refFn(refVars)
	if err != nil {
		return fmt.Errorf("reference forward: %w", err)
	}
	tol := kernel.Tolerance{Abs: c.cfg.tol, Rel: c.cfg.tol}
	fwdErr, fwdOK := compare(y.Data().Float64s(), want.Data().Float64s(), tol)
	gradOK := true
	var gradErr float64

	for i, v := range vars {
		numeric, err := c.numericGrad(refFn, inputs, gc.shapes, i)
		if err != nil {
			return err
		}
		if v.Grad() == nil {
			return fmt.Errorf("input %d: no gradient", i)
		}
		d, ok := compare(v.Grad().Float64s(), numeric, tol)
		gradErr = math.Max(gradErr, d)
		gradOK = gradOK && ok
	}
	res.forwardErr, res.gradErr = fwdErr, gradErr
	res.passed = fwdOK && gradOK
	return nil
}

// numericGrad estimates d(sum f)/d(inputs[idx]) with central differences on the host.
func (c *checker) numericGrad(fn graphFn, inputs [][]float64, shapes []tensor.Shape, idx int) ([]float64, error) {
	grad := make([]float64, len(inputs[idx]))
	perturbed := make([][]float64, len(inputs))
	copy(perturbed, inputs)
	perturbed[idx] = append([]float64(nil), inputs[idx]...)

	eval := func() (float64, error) {
		vars, err := variables(perturbed, shapes, tensor.Float64, c.ref)
		if err != nil {
			return 0, err
		}
		y, err := fn(vars)
		if err != nil {
			return 0, err
		}
		var s float64
		for _, v := range y.Data().Float64s() {
			s += v
		}
		return s, nil
	}

	for j, x := range inputs[idx] {
		perturbed[idx][j] = x + c.cfg.eps
		plus, err := eval()
		if err != nil {
			return nil, err
		}
		perturbed[idx][j] = x - c.cfg.eps
		minus, err := eval()
		if err != nil {
			return nil, err
		}
		perturbed[idx][j] = x
		grad[j] = (plus - minus) / (2 * c.cfg.eps)
	}
	return grad, nil
}

// randomInputs draws values in [0.5, 1.5) so that log and pow stay in their real domain.
func randomInputs(shapes []tensor.Shape, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([][]float64, len(shapes))
	for i, s := range shapes {
		out[i] = make([]float64, s.NumElements())
		for j := range out[i] {
			out[i][j] = 0.5 + rng.Float64()
		}
	}
	return out
}

func variables(inputs [][]float64, shapes []tensor.Shape, dt tensor.DataType, b tensor.Backend) ([]*autodiff.Variable, error) {
	vars := make([]*autodiff.Variable, len(inputs))
	for i, vals := range inputs {
		data, err := tensor.NewRaw(shapes[i], dt, b.Device())
		if err != nil {
			return nil, err
		}
		data.SetFloat64s(vals)
		vars[i] = autodiff.NewVariable(data, b)
	}
	return vars, nil
}

// compare returns the largest absolute difference between got and want and
// whether every element is within tol. Mismatched lengths never match.
func compare(got, want []float64, tol kernel.Tolerance) (float64, bool) {
	if len(got) != len(want) {
		return math.Inf(1), false
	}
	var worst float64
	ok := true
	for i := range got {
		if tol.Within(got[i], want[i]) {
			continue
		}
		ok = false
		d := math.Abs(got[i] - want[i])
		if math.IsNaN(d) {
			d = math.Inf(1)
		}
		worst = math.Max(worst, d)
	}
	return worst, ok
}
