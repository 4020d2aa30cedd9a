//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

const (
	maxPooledPerSize = 16
	outputUsage      = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
)

type pooled struct {
	buffer *wgpu.Buffer
	size   uint64
}

// bufferPool recycles kernel output buffers by exact byte size.
type bufferPool struct {
	device *wgpu.Device

	mu     sync.Mutex
	free   map[uint64][]*pooled
	hits   uint64
	misses uint64
}

func newBufferPool(device *wgpu.Device) *bufferPool {
	return &bufferPool{
		device: device,
		free:   make(map[uint64][]*pooled),
	}
}

func (p *bufferPool) acquire(size uint64) *pooled {
	p.mu.Lock()
	defer p.mu.Unlock()

	if list := p.free[size]; len(list) > 0 {
		pb := list[len(list)-1]
		p.free[size] = list[:len(list)-1]
		p.hits++
		return pb
	}

	p.misses++
	return &pooled{
		buffer: p.device.CreateBuffer(&wgpu.BufferDescriptor{Usage: outputUsage, Size: size}),
		size:   size,
	}
}

func (p *bufferPool) release(pb *pooled) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free[pb.size]) >= maxPooledPerSize {
		pb.buffer.Release()
		return
	}
	p.free[pb.size] = append(p.free[pb.size], pb)
}

func (p *bufferPool) stats() (hits, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}

func (p *bufferPool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for size, list := range p.free {
		for _, pb := range list {
			pb.buffer.Release()
		}
		delete(p.free, size)
	}
}
