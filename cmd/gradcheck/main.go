// Command gradcheck verifies the analytic gradients of every differentiable
// operation against central differences, and the forward outputs of each
// backend against the float64 host reference.
//
// Usage:
//
//	gradcheck -backend all -dtype float32 -tol 1e-2
//
// The exit status is 1 when any case fails.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"golang.org/x/sync/errgroup"

	"github.com/born-ml/gradfn/backend/accel"
	"github.com/born-ml/gradfn/backend/cpu"
	"github.com/born-ml/gradfn/backend/webgpu"
	"github.com/born-ml/gradfn/tensor"
)

var (
	backendFlag = flag.String("backend", "all", "Backends to check: cpu, emu, webgpu, or all (comma separated)")
	dtypeFlag   = flag.String("dtype", "float32", "Input dtype on the checked backend (float32, float64)")
	epsFlag     = flag.Float64("eps", 1e-6, "Central difference step")
	tolFlag     = flag.Float64("tol", 1e-2, "Absolute and relative tolerance")
	seedFlag    = flag.Uint64("seed", 1, "Seed for inputs and parameters")
	queueFlag   = flag.Int("queue", 64, "Accelerator stream queue size")
	traceFlag   = flag.Bool("trace", false, "Enable OpenTelemetry tracing (stdout)")
	metricsAddr = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9100)")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
)

var tracer = otel.Tracer("github.com/born-ml/gradfn/cmd/gradcheck")

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	if *traceFlag {
		shutdown, err := initTracer()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	if *metricsAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info().Str("addr", *metricsAddr).Msg("Serving metrics")
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	dt, err := tensor.ParseDataType(*dtypeFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid dtype")
	}
	cfg := checkConfig{eps: *epsFlag, tol: *tolFlag, seed: *seedFlag, dtype: dt}

	targets, err := openBackends(*backendFlag, *queueFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open backends")
	}

	results, err := runAll(context.Background(), targets, defaultCases(), cfg)
	closeBackends(targets)
	if err != nil {
		log.Fatal().Err(err).Msg("Gradient check aborted")
	}

	if failed := report(os.Stdout, results); failed > 0 {
		log.Error().Int("failed", failed).Int("total", len(results)).Msg("Gradient check failed")
		os.Exit(1)
	}
	log.Info().Int("total", len(results)).Msg("Gradient check passed")
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("gradcheck"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}

type target struct {
	backend tensor.Backend
	close   func() error
}

func openBackends(spec string, queue int) ([]target, error) {
	var names []string
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		if name == "all" {
			names = append(names, "cpu", "emu")
			if webgpu.IsAvailable() {
				names = append(names, "webgpu")
			} else {
				log.Warn().Msg("WebGPU not available, skipping")
			}
			continue
		}
		names = append(names, name)
	}

	var targets []target
	for _, name := range names {
		switch name {
		case "cpu":
			targets = append(targets, target{backend: cpu.New(), close: func() error { return nil }})
		case "emu":
			b := accel.NewEmulated(accel.WithQueueSize(queue))
			targets = append(targets, target{backend: b, close: b.Close})
		case "webgpu":
			b, err := webgpu.New(accel.WithQueueSize(queue))
			if err != nil {
				closeBackends(targets)
				return nil, err
			}
			targets = append(targets, target{backend: b, close: b.Close})
		default:
			closeBackends(targets)
			return nil, fmt.Errorf("unknown backend %q", name)
		}
	}
	if len(targets) == 0 {
		return nil, errors.New("no backends selected")
	}
	return targets, nil
}

func closeBackends(targets []target) {
	for _, t := range targets {
		if err := t.close(); err != nil {
			log.Warn().Err(err).Str("backend", t.backend.Name()).Msg("Failed to close backend")
		}
	}
}

// runAll checks every backend concurrently. Results keep backend order.
func runAll(ctx context.Context, targets []target, cases []gradCase, cfg checkConfig) ([]caseResult, error) {
	perBackend := make([][]caseResult, len(targets))
	g, ctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		g.Go(func() error {
			ctx, span := tracer.Start(ctx, "gradcheck.backend")
			defer span.End()
			span.SetAttributes(attribute.String("backend", t.backend.Name()))
			log.Info().Str("backend", t.backend.Name()).Int("cases", len(cases)).Msg("Checking backend")

			perBackend[i] = newChecker(t.backend, cfg).run(ctx, cases)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []caseResult
	for _, rs := range perBackend {
		all = append(all, rs...)
	}
	return all, nil
}

// report writes a result table to w and returns the number of failed cases.
func report(w io.Writer, results []caseResult) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BACKEND\tCASE\tFORWARD\tGRAD\tRESULT")
	failed := 0
	for _, r := range results {
		status := "ok"
		switch {
		case r.err != nil:
			status = "error: " + r.err.Error()
			failed++
		case !r.passed:
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%.3g\t%.3g\t%s\n", r.backend, r.name, r.forwardErr, r.gradErr, status)
	}
	_ = tw.Flush()
	return failed
}
