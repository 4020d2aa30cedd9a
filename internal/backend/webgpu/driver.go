//go:build windows

package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/rs/zerolog/log"

	"github.com/born-ml/gradfn/internal/backend/accel"
	"github.com/born-ml/gradfn/internal/kernel"
	"github.com/born-ml/gradfn/internal/tensor"
)

// Driver runs kernels on a WebGPU device.
type Driver struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo *wgpu.AdapterInfo
	pool        *bufferPool

	mu        sync.Mutex
	shaders   []*wgpu.ShaderModule
	pipelines []*wgpu.ComputePipeline
	gemm      *wgpu.ComputePipeline
}

// New acquires the high-performance adapter and its device.
// It returns an error wrapping accel.ErrUnavailable when no adapter or native
// library is present.
func New() (driver *Driver, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			driver = nil
			err = fmt.Errorf("webgpu: %w: native library not available: %v", accel.ErrUnavailable, r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: %w: failed to request adapter: %w", accel.ErrUnavailable, err)
	}

	adapterInfo := adapter.GetInfo()

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: %w: failed to request device: %w", accel.ErrUnavailable, err)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: %w: failed to get queue", accel.ErrUnavailable)
	}

	log.Debug().Str("adapter", adapterInfo.Description).Msg("webgpu: device acquired")

	return &Driver{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		adapterInfo: &adapterInfo,
		pool:        newBufferPool(device),
	}, nil
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Name implements accel.Driver.
func (d *Driver) Name() string { return "webgpu" }

// Device implements accel.Driver.
func (d *Driver) Device() tensor.Device { return tensor.WebGPU }

// AdapterInfo describes the GPU in use.
func (d *Driver) AdapterInfo() *wgpu.AdapterInfo { return d.adapterInfo }

// Compile implements accel.Driver by lowering k to WGSL.
func (d *Driver) Compile(k *kernel.Kernel) (accel.Program, error) {
	pipeline, err := d.pipeline(k.Name, kernel.WGSL(k))
	if err != nil {
		return nil, err
	}
	return &program{driver: d, kernel: k, pipeline: pipeline}, nil
}

func (d *Driver) pipeline(name, code string) (pipeline *wgpu.ComputePipeline, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webgpu: pipeline %s: %v", name, r)
		}
	}()

	shader := d.device.CreateShaderModuleWGSL(code)
	pipeline = d.device.CreateComputePipelineSimple(nil, shader, "main")

	d.mu.Lock()
	d.shaders = append(d.shaders, shader)
	d.pipelines = append(d.pipelines, pipeline)
	d.mu.Unlock()
	return pipeline, nil
}

// Gemm implements accel.Driver.
func (d *Driver) Gemm(transA, transB bool, alpha float64, a, b *tensor.RawTensor, beta float64, c *tensor.RawTensor) error {
	d.mu.Lock()
	pipeline := d.gemm
	d.mu.Unlock()
	if pipeline == nil {
		var err error
		if pipeline, err = d.pipeline("gemm", gemmShader); err != nil {
			return err
		}
		d.mu.Lock()
		d.gemm = pipeline
		d.mu.Unlock()
	}

	m, k := a.Shape()[0], a.Shape()[1]
	if transA {
		m, k = k, m
	}
	n := b.Shape()[1]
	if transB {
		n = b.Shape()[0]
	}

	bufA, sizeA := d.upload(a)
	defer bufA.Release()
	bufB, sizeB := d.upload(b)
	defer bufB.Release()
	bufC, sizeC := d.upload(c)
	defer bufC.Release()

	params := make([]byte, 32)
	putDims(params, m, k, n)
	if transA {
		binary.LittleEndian.PutUint32(params[12:16], 1)
	}
	if transB {
		binary.LittleEndian.PutUint32(params[16:20], 1)
	}
	binary.LittleEndian.PutUint32(params[20:24], math.Float32bits(float32(alpha)))
	binary.LittleEndian.PutUint32(params[24:28], math.Float32bits(float32(beta)))
	uniform := d.createUniformBuffer(params)
	defer uniform.Release()

	bindGroup := d.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), []wgpu.BindGroupEntry{
		wgpu.BufferBindingEntry(0, bufA, 0, sizeA),
		wgpu.BufferBindingEntry(1, bufB, 0, sizeB),
		wgpu.BufferBindingEntry(2, bufC, 0, sizeC),
		wgpu.BufferBindingEntry(3, uniform, 0, uint64(len(params))),
	})
	defer bindGroup.Release()

	//nolint:gosec // G115: workgroup counts are non-negative
	d.dispatch(pipeline, bindGroup, uint32((n+gemmTile-1)/gemmTile), uint32((m+gemmTile-1)/gemmTile))
	return d.download(bufC, c)
}

//nolint:gosec // G115: dimensions are positive and bounded by buffer sizes
func putDims(params []byte, m, k, n int) {
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))
	binary.LittleEndian.PutUint32(params[8:12], uint32(n))
}

// Release implements accel.Driver.
func (d *Driver) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pool.clear()
	for _, p := range d.pipelines {
		p.Release()
	}
	d.pipelines = nil
	d.gemm = nil
	for _, s := range d.shaders {
		s.Release()
	}
	d.shaders = nil

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

type program struct {
	driver   *Driver
	kernel   *kernel.Kernel
	pipeline *wgpu.ComputePipeline
}

func (p *program) Run(n int, args []kernel.Arg, outs []*tensor.RawTensor) error {
	d := p.driver
	entries := make([]wgpu.BindGroupEntry, 0, kernel.ArrayBindings(p.kernel)+1)
	outBufs := make([]*pooled, 0, len(outs))

	binding, nextIn := uint32(0), 0
	for _, param := range p.kernel.Params {
		switch param.Kind {
		case kernel.ArrayIn:
			buf, size := d.upload(args[nextIn].Tensor)
			defer buf.Release()
			entries = append(entries, wgpu.BufferBindingEntry(binding, buf, 0, size))
			binding++
			nextIn++
		case kernel.ArrayOut:
			//nolint:gosec // G115: n is positive
			out := d.pool.acquire(uint64(n) * 4)
			defer d.pool.release(out)
			outBufs = append(outBufs, out)
			entries = append(entries, wgpu.BufferBindingEntry(binding, out.buffer, 0, out.size))
			binding++
		default:
			nextIn++
		}
	}

	params := kernel.PackParams(p.kernel, n, args)
	uniform := d.createUniformBuffer(params)
	defer uniform.Release()
	entries = append(entries, wgpu.BufferBindingEntry(binding, uniform, 0, uint64(len(params))))

	bindGroup := d.device.CreateBindGroupSimple(p.pipeline.GetBindGroupLayout(0), entries)
	defer bindGroup.Release()

	//nolint:gosec // G115: workgroup count is non-negative
	d.dispatch(p.pipeline, bindGroup, uint32((n+kernel.WorkgroupSize-1)/kernel.WorkgroupSize), 1)

	for j, out := range outBufs {
		if err := d.download(out.buffer, outs[j]); err != nil {
			return fmt.Errorf("kernel %s: %w", p.kernel.Name, err)
		}
	}
	return nil
}

func (d *Driver) dispatch(pipeline *wgpu.ComputePipeline, bindGroup *wgpu.BindGroup, x, y uint32) {
	encoder := d.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(x, y, 1)
	pass.End()
	d.queue.Submit(encoder.Finish(nil))
}

// upload copies t into a new storage buffer as f32.
func (d *Driver) upload(t *tensor.RawTensor) (*wgpu.Buffer, uint64) {
	data := f32Bytes(t)
	size := uint64(len(data))

	buffer := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), data)
	buffer.Unmap()

	return buffer, size
}

// download reads src back into t, widening to t's dtype.
func (d *Driver) download(src *wgpu.Buffer, t *tensor.RawTensor) error {
	//nolint:gosec // G115: NumElements is positive
	size := uint64(t.NumElements()) * 4
	data, err := d.readBuffer(src, size)
	if err != nil {
		return err
	}

	//nolint:gosec // unsafe.Slice for zero-copy view of the staging copy
	vals := unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), t.NumElements())
	if t.DType() == tensor.Float32 {
		copy(t.AsFloat32(), vals)
		return nil
	}
	wide := make([]float64, len(vals))
	for i, v := range vals {
		wide[i] = float64(v)
	}
	t.SetFloat64s(wide)
	return nil
}

func f32Bytes(t *tensor.RawTensor) []byte {
	if t.DType() == tensor.Float32 {
		return t.Data()
	}
	out := make([]byte, t.NumElements()*4)
	for i, v := range t.AsFloat64() {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}
	return out
}

// createUniformBuffer creates a uniform buffer padded to 16 bytes.
func (d *Driver) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	alignedSize := (size + 15) &^ 15

	buffer := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             alignedSize,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, alignedSize)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), alignedSize), data)
	buffer.Unmap()
	return buffer
}

// readBuffer copies size bytes of src to the host through a staging buffer.
func (d *Driver) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	d.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}

	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	result := make([]byte, size)
	copy(result, mapped)
	staging.Unmap()

	return result, nil
}
