// Package gpuctx bundles the GPU device handles and the resource manager
// into one explicit context object, passed to every component that creates
// or binds GPU buffers. No package-level device state exists anywhere.
package gpuctx

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/spectramesh/spectra-go/engine/renderer"
	"github.com/spectramesh/spectra-go/engine/resource"
)

// Context owns the resource manager for one device. Components receive a
// Context and never touch the device directly.
type Context struct {
	rend      renderer.Renderer
	resources resource.Manager
}

// NewContext creates a Context whose resource manager allocates on the
// renderer's device. Resource options (LRU capacity, CPU mirrors) are
// forwarded to the manager.
//
// Parameters:
//   - rend: the renderer providing device and queue
//   - options: resource manager options
//
// Returns:
//   - *Context: the device-backed context
func NewContext(rend renderer.Renderer, options ...resource.ManagerOption) *Context {
	if rend == nil {
		panic("gpuctx: renderer must not be nil")
	}
	alloc := renderer.NewGPUAllocator(rend.Device(), rend.Queue())
	return &Context{
		rend:      rend,
		resources: resource.NewManager(alloc, options...),
	}
}

// NewCPUContext creates a Context whose buffers live in host memory, with
// CPU mirrors retained so the CPU executor can read them. Used by tests and
// by machines without a GPU.
//
// Parameters:
//   - options: resource manager options, applied after mirror retention
//
// Returns:
//   - *Context: the host-memory context
func NewCPUContext(options ...resource.ManagerOption) *Context {
	opts := append([]resource.ManagerOption{resource.WithRetainCPU()}, options...)
	return &Context{
		resources: resource.NewManager(resource.NewMemAllocator(), opts...),
	}
}

// Renderer returns the renderer backing this context, or nil for CPU contexts.
//
// Returns:
//   - renderer.Renderer: the renderer or nil
func (c *Context) Renderer() renderer.Renderer {
	return c.rend
}

// Resources returns the context's resource manager.
//
// Returns:
//   - resource.Manager: the resource manager
func (c *Context) Resources() resource.Manager {
	return c.resources
}

// Device returns the wgpu device, or nil for CPU contexts.
//
// Returns:
//   - *wgpu.Device: the device or nil
func (c *Context) Device() *wgpu.Device {
	if c.rend == nil {
		return nil
	}
	return c.rend.Device()
}

// Queue returns the wgpu queue, or nil for CPU contexts.
//
// Returns:
//   - *wgpu.Queue: the queue or nil
func (c *Context) Queue() *wgpu.Queue {
	if c.rend == nil {
		return nil
	}
	return c.rend.Queue()
}

// Dispose releases every buffer the context's manager owns. The renderer
// itself is not shut down.
func (c *Context) Dispose() {
	c.resources.Dispose()
}
