package resource

import "fmt"

// DType identifies the element type stored in a managed buffer.
type DType int

const (
	// DTypeFloat32 marks a buffer of 32-bit IEEE floats.
	DTypeFloat32 DType = iota

	// DTypeUint32 marks a buffer of 32-bit unsigned integers.
	DTypeUint32
)

// ByteSize returns the size of one element of this type in bytes.
//
// Returns:
//   - int: the element size in bytes
func (d DType) ByteSize() int {
	return 4
}

// Usage describes how a managed buffer will be bound on the GPU.
// Values may be ORed together.
type Usage int

const (
	// UsageStorage marks a buffer bound as a (read-only or read-write) storage buffer.
	UsageStorage Usage = 1 << iota

	// UsageUniform marks a buffer bound as a uniform buffer.
	UsageUniform

	// UsageVertex marks a vertex buffer for draw calls.
	UsageVertex

	// UsageIndex marks an index buffer for draw calls.
	UsageIndex

	// UsageCopySrc marks a buffer that can be the source of a copy,
	// required for readback staging.
	UsageCopySrc
)

// BufferLayout describes the logical element layout of a managed buffer.
type BufferLayout struct {
	// DType is the element type.
	DType DType

	// ItemSize is the number of elements per logical item
	// (1 for scalar fields, 3 for positions, 16 for matrices).
	ItemSize int
}

// Buffer is the backend-facing handle to one allocated buffer. The Manager
// owns Buffer lifetimes; callers outside the backend only see resource
// Handles and never release a Buffer directly.
type Buffer interface {
	// ByteLength returns the allocated size in bytes.
	//
	// Returns:
	//   - int: the buffer size in bytes
	ByteLength() int

	// Write copies data into the buffer at the given byte offset.
	//
	// Parameters:
	//   - offset: destination byte offset
	//   - data: source bytes
	//
	// Returns:
	//   - error: an error if the write exceeds the buffer bounds
	Write(offset int, data []byte) error

	// Release frees the underlying allocation. Idempotent.
	Release()
}

// Allocator creates backend buffers for the Manager. The WGPU implementation
// lives in the renderer package; memAllocator below is the CPU implementation
// used by tests and the CPU compute executor.
type Allocator interface {
	// Allocate creates a zero-initialized buffer.
	//
	// Parameters:
	//   - label: a debug label for the allocation
	//   - byteLength: the size in bytes (must be > 0)
	//   - usage: how the buffer will be bound
	//
	// Returns:
	//   - Buffer: the allocated buffer
	//   - error: an error if allocation fails
	Allocate(label string, byteLength int, usage Usage) (Buffer, error)
}

// memBuffer is a CPU-resident Buffer backed by a plain byte slice.
type memBuffer struct {
	data     []byte
	released bool
}

var _ Buffer = &memBuffer{}

func (b *memBuffer) ByteLength() int {
	return len(b.data)
}

func (b *memBuffer) Write(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("resource: write of %d bytes at offset %d exceeds buffer of %d bytes", len(data), offset, len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *memBuffer) Release() {
	b.data = nil
	b.released = true
}

// Bytes exposes the backing slice for CPU-side execution and verification.
// Returns nil after Release.
//
// Returns:
//   - []byte: the live backing slice (shared, not a copy)
func (b *memBuffer) Bytes() []byte {
	return b.data
}

// memAllocator is the CPU Allocator implementation.
type memAllocator struct{}

var _ Allocator = memAllocator{}

// NewMemAllocator creates an Allocator whose buffers live in host memory.
// Used by tests and by the CPU compute executor; the GPU-backed Allocator
// is constructed by the renderer.
//
// Returns:
//   - Allocator: a CPU-resident allocator
func NewMemAllocator() Allocator {
	return memAllocator{}
}

func (memAllocator) Allocate(label string, byteLength int, usage Usage) (Buffer, error) {
	if byteLength <= 0 {
		return nil, fmt.Errorf("resource: allocation %q has non-positive byte length %d", label, byteLength)
	}
	return &memBuffer{data: make([]byte, byteLength)}, nil
}

// BufferBytes returns the backing bytes of a CPU-allocated buffer, or nil
// if the buffer is not CPU-resident. Convenience for executors and tests.
//
// Parameters:
//   - buf: the buffer to inspect
//
// Returns:
//   - []byte: the backing slice, or nil for GPU buffers
func BufferBytes(buf Buffer) []byte {
	mb, ok := buf.(*memBuffer)
	if !ok {
		return nil
	}
	return mb.Bytes()
}
