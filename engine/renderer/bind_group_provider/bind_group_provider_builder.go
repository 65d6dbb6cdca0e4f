package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

type BindGroupProviderBuilderOption func(*bindGroupProvider)

// WithExternalBuffer attaches an externally-owned buffer at a binding index
// during construction. The provider never releases it.
//
// Parameters:
//   - binding: the binding index
//   - buf: the buffer
//
// Returns:
//   - BindGroupProviderBuilderOption: the option function
func WithExternalBuffer(binding int, buf *wgpu.Buffer) BindGroupProviderBuilderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
		p.ownedBuffers[binding] = false
	}
}

// WithIndexCount sets the index count for draw calls during construction.
//
// Parameters:
//   - count: the index count
//
// Returns:
//   - BindGroupProviderBuilderOption: the option function
func WithIndexCount(count int) BindGroupProviderBuilderOption {
	return func(p *bindGroupProvider) {
		p.indexCount = count
	}
}
