package shader

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithEntryPoint overrides the default entry point name.
//
// Parameters:
//   - entryPoint: the entry point function name in the WGSL source
//
// Returns:
//   - ShaderBuilderOption: a function that sets the entry point for this shader
func WithEntryPoint(entryPoint string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoint = entryPoint
	}
}

// WithBindGroupLayout declares the bind group layout for one group index.
//
// Parameters:
//   - group: the bind group index
//   - descriptor: the layout descriptor matching the WGSL declarations
//
// Returns:
//   - ShaderBuilderOption: a function that records the layout on this shader
func WithBindGroupLayout(group int, descriptor wgpu.BindGroupLayoutDescriptor) ShaderBuilderOption {
	return func(s *shader) {
		s.bindGroupLayoutDescriptors[group] = descriptor
	}
}

// WithVertexLayouts declares the vertex buffer layouts consumed by a vertex shader.
//
// Parameters:
//   - layouts: the vertex buffer layouts in slot order
//
// Returns:
//   - ShaderBuilderOption: a function that records the layouts on this shader
func WithVertexLayouts(layouts ...wgpu.VertexBufferLayout) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexLayouts = layouts
	}
}

// WithWorkgroupSize declares a compute shader's workgroup dimensions,
// matching its @workgroup_size attribute.
//
// Parameters:
//   - x: the x dimension
//   - y: the y dimension
//   - z: the z dimension
//
// Returns:
//   - ShaderBuilderOption: a function that records the workgroup size on this shader
func WithWorkgroupSize(x, y, z uint32) ShaderBuilderOption {
	return func(s *shader) {
		s.workGroupSize = [3]uint32{x, y, z}
	}
}

// StorageBufferEntry builds a read-only or read-write storage buffer layout
// entry for compute or render visibility.
//
// Parameters:
//   - binding: the binding index
//   - visibility: the shader stages that access the buffer
//   - readOnly: true for read-only storage
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the layout entry
func StorageBufferEntry(binding uint32, visibility wgpu.ShaderStage, readOnly bool) wgpu.BindGroupLayoutEntry {
	t := wgpu.BufferBindingTypeStorage
	if readOnly {
		t = wgpu.BufferBindingTypeReadOnlyStorage
	}
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type: t,
		},
	}
}

// UniformBufferEntry builds a uniform buffer layout entry.
//
// Parameters:
//   - binding: the binding index
//   - visibility: the shader stages that access the buffer
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the layout entry
func UniformBufferEntry(binding uint32, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type: wgpu.BufferBindingTypeUniform,
		},
	}
}
