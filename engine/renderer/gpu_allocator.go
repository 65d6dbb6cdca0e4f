package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/spectramesh/spectra-go/engine/resource"
)

// gpuBuffer wraps a wgpu buffer behind the resource.Buffer interface so the
// resource manager can own GPU-resident allocations.
type gpuBuffer struct {
	buffer   *wgpu.Buffer
	queue    *wgpu.Queue
	byteLen  int
	released bool
}

var _ resource.Buffer = &gpuBuffer{}

func (b *gpuBuffer) ByteLength() int {
	return b.byteLen
}

func (b *gpuBuffer) Write(offset int, data []byte) error {
	if b.released {
		return fmt.Errorf("renderer: write to released buffer")
	}
	if offset < 0 || offset+len(data) > b.byteLen {
		return fmt.Errorf("renderer: write of %d bytes at offset %d exceeds buffer of %d bytes", len(data), offset, b.byteLen)
	}
	b.queue.WriteBuffer(b.buffer, uint64(offset), data)
	return nil
}

func (b *gpuBuffer) Release() {
	if b.released {
		return
	}
	b.buffer.Release()
	b.released = true
}

// Raw returns the underlying wgpu buffer for bind group creation and copy
// commands. Nil after Release.
//
// Returns:
//   - *wgpu.Buffer: the wrapped buffer
func (b *gpuBuffer) Raw() *wgpu.Buffer {
	if b.released {
		return nil
	}
	return b.buffer
}

// RawBuffer returns the wgpu buffer behind a managed resource.Buffer, or nil
// if the buffer is not GPU-resident.
//
// Parameters:
//   - buf: the buffer to inspect
//
// Returns:
//   - *wgpu.Buffer: the wrapped buffer, or nil for CPU buffers
func RawBuffer(buf resource.Buffer) *wgpu.Buffer {
	gb, ok := buf.(*gpuBuffer)
	if !ok {
		return nil
	}
	return gb.Raw()
}

// gpuAllocator creates device buffers for the resource manager.
type gpuAllocator struct {
	device *wgpu.Device
	queue  *wgpu.Queue
}

var _ resource.Allocator = &gpuAllocator{}

// NewGPUAllocator creates a resource.Allocator whose buffers live on the
// given device. All buffers carry CopyDst usage so the manager can write
// into them through the queue.
//
// Parameters:
//   - device: the wgpu device to allocate on
//   - queue: the queue used for buffer writes
//
// Returns:
//   - resource.Allocator: a device-resident allocator
func NewGPUAllocator(device *wgpu.Device, queue *wgpu.Queue) resource.Allocator {
	return &gpuAllocator{device: device, queue: queue}
}

func (a *gpuAllocator) Allocate(label string, byteLength int, usage resource.Usage) (resource.Buffer, error) {
	if byteLength <= 0 {
		return nil, fmt.Errorf("renderer: allocation %q has non-positive byte length %d", label, byteLength)
	}
	buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(byteLength),
		Usage: bufferUsage(usage),
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: failed to allocate %q: %w", label, err)
	}
	return &gpuBuffer{buffer: buf, queue: a.queue, byteLen: byteLength}, nil
}

// bufferUsage maps resource usage flags onto wgpu buffer usage. CopyDst is
// always present so queue writes work on every managed buffer.
func bufferUsage(usage resource.Usage) wgpu.BufferUsage {
	flags := wgpu.BufferUsageCopyDst
	if usage&resource.UsageStorage != 0 {
		flags |= wgpu.BufferUsageStorage
	}
	if usage&resource.UsageUniform != 0 {
		flags |= wgpu.BufferUsageUniform
	}
	if usage&resource.UsageVertex != 0 {
		flags |= wgpu.BufferUsageVertex
	}
	if usage&resource.UsageIndex != 0 {
		flags |= wgpu.BufferUsageIndex
	}
	if usage&resource.UsageCopySrc != 0 {
		flags |= wgpu.BufferUsageCopySrc
	}
	return flags
}
