package renderer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/spectramesh/spectra-go/engine/renderer/bind_group_provider"
	"github.com/spectramesh/spectra-go/engine/renderer/pipeline"
	"github.com/spectramesh/spectra-go/engine/renderer/shader"
	"github.com/spectramesh/spectra-go/engine/resource"
	"github.com/spectramesh/spectra-go/engine/spectral/operator"
)

// gpuComputeExecutor runs spectral compute passes on the GPU. Each pass in a
// batch is encoded into a single command submission; bind groups are cached
// per pass signature because the operator's buffers never reallocate between
// parameter updates.
type gpuComputeExecutor struct {
	mu        *sync.Mutex
	rend      Renderer
	resources resource.Manager

	providers map[string]bind_group_provider.BindGroupProvider
}

var _ operator.Executor = &gpuComputeExecutor{}

// NewGPUExecutor creates an operator.Executor that dispatches the spectral
// compute pipelines on the renderer's device. All three spectral pipelines
// are compiled and registered up front.
//
// Parameters:
//   - rend: the renderer whose device runs the passes
//   - resources: the manager owning the operator's GPU buffers
//
// Returns:
//   - operator.Executor: a GPU-backed executor
//   - error: an error if pipeline compilation fails
func NewGPUExecutor(rend Renderer, resources resource.Manager) (operator.Executor, error) {
	if rend == nil {
		return nil, fmt.Errorf("renderer must not be nil")
	}
	if resources == nil {
		return nil, fmt.Errorf("resource manager must not be nil")
	}

	e := &gpuComputeExecutor{
		mu:        &sync.Mutex{},
		rend:      rend,
		resources: resources,
		providers: make(map[string]bind_group_provider.BindGroupProvider),
	}

	for _, key := range operator.PipelineKeys() {
		source, err := operator.ShaderSource(key)
		if err != nil {
			return nil, err
		}
		sh := shader.NewShader(key, shader.ShaderTypeCompute, source,
			shader.WithEntryPoint("main"),
			shader.WithBindGroupLayout(0, spectralPassLayout(key)),
			shader.WithWorkgroupSize(uint32(operator.DefaultWorkgroupSize), 1, 1),
		)
		p := pipeline.NewPipeline(key, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(sh))
		if err := rend.RegisterPipelines(p); err != nil {
			return nil, fmt.Errorf("failed to register compute pipeline %q: %w", key, err)
		}
	}

	return e, nil
}

func (e *gpuComputeExecutor) Execute(passes []operator.PassDescriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	providers := make([]bind_group_provider.BindGroupProvider, len(passes))
	for i, pass := range passes {
		provider, err := e.providerLocked(pass)
		if err != nil {
			return err
		}
		providers[i] = provider
	}

	if err := e.rend.BeginComputeFrame(); err != nil {
		return err
	}
	for i, pass := range passes {
		e.rend.DispatchCompute(pass.PipelineKey, providers[i], [3]uint32{uint32(pass.Workgroups()), 1, 1})
	}
	e.rend.EndComputeFrame()

	return nil
}

func (e *gpuComputeExecutor) ReadBuffer(key string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, ok := e.resources.Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown buffer %q", key)
	}
	raw := RawBuffer(e.resources.Buffer(h))
	if raw == nil {
		return nil, fmt.Errorf("buffer %q is not GPU-resident", key)
	}
	return e.rend.ReadBuffer(raw, e.resources.ByteLength(h))
}

// providerLocked returns the cached bind group for a pass, building it on
// first use. The cache key covers the pipeline and every bound resource key,
// so a pass rebinding different buffers gets a distinct bind group.
func (e *gpuComputeExecutor) providerLocked(pass operator.PassDescriptor) (bind_group_provider.BindGroupProvider, error) {
	sig := passSignature(pass)
	if provider, ok := e.providers[sig]; ok {
		return provider, nil
	}

	provider := bind_group_provider.NewBindGroupProvider(pass.Name)
	for _, binding := range pass.Bindings {
		h, ok := e.resources.Get(binding.Key)
		if !ok {
			return nil, fmt.Errorf("pass %q binds unknown buffer %q", pass.Name, binding.Key)
		}
		raw := RawBuffer(e.resources.Buffer(h))
		if raw == nil {
			return nil, fmt.Errorf("pass %q binds non-GPU buffer %q", pass.Name, binding.Key)
		}
		provider.SetExternalBuffer(binding.Slot, raw)
	}

	if err := e.rend.InitBindGroup(provider, spectralPassLayout(pass.PipelineKey), nil, nil); err != nil {
		return nil, fmt.Errorf("failed to build bind group for pass %q: %w", pass.Name, err)
	}

	e.providers[sig] = provider
	return provider, nil
}

func passSignature(pass operator.PassDescriptor) string {
	var sb strings.Builder
	sb.WriteString(pass.PipelineKey)
	for _, b := range pass.Bindings {
		sb.WriteByte('|')
		sb.WriteString(b.Key)
	}
	return sb.String()
}

// spectralPassLayout returns the bind group 0 layout a spectral compute
// shader declares. The projection pipelines bind a uniform params block at
// binding 0, read-only storage at bindings 1 through 4, and the read-write
// coefficient vector at binding 5; reconstruction binds read-only storage at
// bindings 1 and 2 and the read-write output field at binding 3.
func spectralPassLayout(pipelineKey string) wgpu.BindGroupLayoutDescriptor {
	if pipelineKey == operator.PipelineKeyReconstruct {
		return wgpu.BindGroupLayoutDescriptor{
			Label: pipelineKey,
			Entries: []wgpu.BindGroupLayoutEntry{
				shader.UniformBufferEntry(0, wgpu.ShaderStageCompute),
				shader.StorageBufferEntry(1, wgpu.ShaderStageCompute, true),
				shader.StorageBufferEntry(2, wgpu.ShaderStageCompute, true),
				shader.StorageBufferEntry(3, wgpu.ShaderStageCompute, false),
			},
		}
	}
	return wgpu.BindGroupLayoutDescriptor{
		Label: pipelineKey,
		Entries: []wgpu.BindGroupLayoutEntry{
			shader.UniformBufferEntry(0, wgpu.ShaderStageCompute),
			shader.StorageBufferEntry(1, wgpu.ShaderStageCompute, true),
			shader.StorageBufferEntry(2, wgpu.ShaderStageCompute, true),
			shader.StorageBufferEntry(3, wgpu.ShaderStageCompute, true),
			shader.StorageBufferEntry(4, wgpu.ShaderStageCompute, true),
			shader.StorageBufferEntry(5, wgpu.ShaderStageCompute, false),
		},
	}
}
