package accel

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

const defaultQueueSize = 64

// Option configures a Backend.
type Option func(*Backend)

// WithQueueSize sets how many jobs the stream buffers before Enqueue blocks.
func WithQueueSize(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// Backend implements tensor.Backend by launching elementwise kernels and matrix
// products on a Driver.
//
// Results of Launch and Gemm are allocated immediately and filled asynchronously.
// Reading them on the host requires Synchronize; host-side methods of Backend
// (Transpose, SumTo, broadcast expansion) synchronize on their own.
type Backend struct {
	driver    Driver
	stream    *Stream
	queueSize int

	mu       sync.RWMutex
	programs map[string]Program
}

// New creates a backend driving d.
func New(d Driver, opts ...Option) *Backend {
	b := &Backend{
		driver:    d,
		queueSize: defaultQueueSize,
		programs:  make(map[string]Program),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.stream = newStream(b.queueSize)

	log.Debug().Str("driver", d.Name()).Int("queue", b.queueSize).Msg("accel: stream started")
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "accel/" + b.driver.Name()
}

// Device returns the driver's device.
func (b *Backend) Device() tensor.Device {
	return b.driver.Device()
}

// Synchronize waits for all queued work and reports the first failure.
func (b *Backend) Synchronize() error {
	return b.stream.Synchronize()
}

// Close drains the stream and releases the driver.
func (b *Backend) Close() error {
	err := b.stream.Close()
	b.driver.Release()
	log.Debug().Str("driver", b.driver.Name()).Msg("accel: stream stopped")
	return err
}

// program returns the compiled form of k, compiling on first use.
func (b *Backend) program(k *kernel.Kernel) (Program, error) {
	b.mu.RLock()
	p, ok := b.programs[k.Name]
	b.mu.RUnlock()
	if ok {
		kernelCacheHits.Inc()
		return p, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.programs[k.Name]; ok {
		kernelCacheHits.Inc()
		return p, nil
	}

	p, err := b.driver.Compile(k)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", k.Name, err)
	}
	kernelCacheMisses.Inc()
	b.programs[k.Name] = p
	log.Debug().Str("kernel", k.Name).Str("driver", b.driver.Name()).Msg("accel: kernel compiled")
	return p, nil
}

// Launch queues k over the broadcast shape of its per-element array arguments
// and returns the kernel's outputs in declaration order.
//
// Per-element arrays of different shapes are expanded on the host first. Arrays
// the kernel reads only through kernel.At are passed as they are.
func (b *Backend) Launch(k *kernel.Kernel, args ...kernel.Arg) ([]*tensor.RawTensor, error) {
	if err := kernel.CheckArgs(k, args); err != nil {
		return nil, err
	}

	inputs := k.Inputs()
	gathered := k.Gathered()

	var shape tensor.Shape
	var dtype tensor.DataType
	first := true
	for i, a := range args {
		if a.Kind != kernel.ArrayIn || gathered[inputs[i].Name] {
			continue
		}
		if first {
			shape, dtype, first = a.Tensor.Shape(), a.Tensor.DType(), false
			continue
		}
		if a.Tensor.DType() != dtype {
			return nil, fmt.Errorf("%s: %w: %s vs %s", k.Name, tensor.ErrDTypeMismatch, dtype, a.Tensor.DType())
		}
		var err error
		shape, _, err = tensor.BroadcastShapes(shape, a.Tensor.Shape())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k.Name, err)
		}
	}
	if first {
		return nil, fmt.Errorf("%s: %w: no per-element array argument", k.Name, kernel.ErrArgs)
	}

	bound, err := b.expandArgs(k, args, shape)
	if err != nil {
		return nil, err
	}

	prog, err := b.program(k)
	if err != nil {
		return nil, err
	}

	outParams := k.Outputs()
	outs := make([]*tensor.RawTensor, len(outParams))
	for j := range outParams {
		outs[j], err = tensor.NewRaw(shape, dtype, b.Device())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k.Name, err)
		}
	}

	n := shape.NumElements()
	kernelLaunches.WithLabelValues(k.Name).Inc()
	err = b.stream.Enqueue(k.Name, func() error {
		return prog.Run(n, bound, outs)
	})
	if err != nil {
		return nil, err
	}
	return outs, nil
}

// expandArgs materializes broadcasting for per-element arrays whose shape differs
// from the launch shape.
func (b *Backend) expandArgs(k *kernel.Kernel, args []kernel.Arg, shape tensor.Shape) ([]kernel.Arg, error) {
	inputs := k.Inputs()
	gathered := k.Gathered()
	bound := make([]kernel.Arg, len(args))
	copy(bound, args)

	synced := false
	for i, a := range args {
		if a.Kind != kernel.ArrayIn || gathered[inputs[i].Name] || a.Tensor.Shape().Equal(shape) {
			continue
		}
		if !synced {
			if err := b.stream.Synchronize(); err != nil {
				return nil, err
			}
			synced = true
		}
		expanded, err := tensor.Expand(a.Tensor, shape)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k.Name, err)
		}
		bound[i] = kernel.ArrayArg(expanded)
	}
	return bound, nil
}

// Gemm queues c = alpha * op(a) @ op(b) + beta * c and returns c.
// A nil c allocates a zeroed (M, N) result; otherwise c is updated in place and
// must hold M*N elements.
func (b *Backend) Gemm(
	transA, transB bool,
	alpha float64,
	a, bm *tensor.RawTensor,
	beta float64,
	c *tensor.RawTensor,
) (*tensor.RawTensor, error) {
	if a.DType() != bm.DType() {
		return nil, fmt.Errorf("gemm: %w: %s vs %s", tensor.ErrDTypeMismatch, a.DType(), bm.DType())
	}
	aShape, bShape := a.Shape(), bm.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		return nil, fmt.Errorf("gemm: %w: only 2D tensors supported, got %v and %v",
			tensor.ErrShapeMismatch, aShape, bShape)
	}
	m, k := aShape[0], aShape[1]
	if transA {
		m, k = k, m
	}
	kB, n := bShape[0], bShape[1]
	if transB {
		kB, n = n, kB
	}
	if k != kB {
		return nil, fmt.Errorf("gemm: %w: inner dimensions %d and %d", tensor.ErrShapeMismatch, k, kB)
	}

	if c == nil {
		var err error
		c, err = tensor.NewRaw(tensor.Shape{m, n}, a.DType(), b.Device())
		if err != nil {
			return nil, fmt.Errorf("gemm: %w", err)
		}
	} else if c.NumElements() != m*n || c.DType() != a.DType() {
		return nil, fmt.Errorf("gemm: %w: accumulator %v %s cannot hold (%d, %d) %s",
			tensor.ErrShapeMismatch, c.Shape(), c.DType(), m, n, a.DType())
	}

	gemmCalls.Inc()
	err := b.stream.Enqueue("gemm", func() error {
		return b.driver.Gemm(transA, transB, alpha, a, bm, beta, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
