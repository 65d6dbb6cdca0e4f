package operator

import (
	"fmt"
	"sync"

	"github.com/spectramesh/spectra-go/common"
	"github.com/spectramesh/spectra-go/engine/resource"
	"github.com/spectramesh/spectra-go/engine/spectral/basis"
	"github.com/spectramesh/spectra-go/engine/spectral/kernel"
)

// MaxSources bounds the point-source list. The sources buffer is allocated
// at this capacity once, so adding and removing sources never reallocates.
const MaxSources = 16

// DefaultWorkgroupSize matches the @workgroup_size of the compute shaders.
const DefaultWorkgroupSize = 64

// fieldParams mirrors the Params uniform block of the compute shaders.
type fieldParams struct {
	NV          uint32
	K           uint32
	KActive     uint32
	SourceCount uint32
}

// sourceEntry mirrors one element of the sources storage buffer.
type sourceEntry struct {
	Index  uint32
	Weight float32
	_      [2]float32
}

// Executor runs a declarative pass list against real buffers. The CPU
// executor interprets passes against resource-manager mirrors; the GPU
// executor records them into a command encoder.
type Executor interface {
	// Execute runs the passes in order.
	//
	// Parameters:
	//   - passes: the dispatches to run, in dependency order
	//
	// Returns:
	//   - error: an error if a pass names an unknown pipeline or buffer
	Execute(passes []PassDescriptor) error

	// ReadBuffer returns the current contents of a buffer by resource key.
	//
	// Parameters:
	//   - key: the resource-manager key of the buffer
	//
	// Returns:
	//   - []byte: a copy of the buffer contents
	//   - error: an error if the key is unknown or readback fails
	ReadBuffer(key string) ([]byte, error)
}

// op is the implementation of the Operator interface.
type op struct {
	mu        *sync.Mutex
	label     string
	resources resource.Manager
	b         basis.Basis
	f         kernel.Filter
	exec      Executor

	gpuKernel     kernel.GPUKernel
	sources       []sourceEntry
	sourceMode    bool
	workgroupSize int

	disposed bool
}

// Operator drives the spectral filtering pipeline over one basis: project
// an input (vertex field or point sources) into coefficient space, weight
// the coefficients by the current filter, and reconstruct a vertex field.
// Parameter updates rewrite one K-length weight buffer and a small uniform
// block; they never touch eigenvector data or reallocate anything.
type Operator interface {
	// Label returns the operator's instance label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Basis returns the bound spectral basis.
	//
	// Returns:
	//   - basis.Basis: the basis
	Basis() basis.Basis

	// Filter returns the current filter.
	//
	// Returns:
	//   - kernel.Filter: the filter
	Filter() kernel.Filter

	// SetFilter swaps the filter and re-evaluates weights.
	//
	// Parameters:
	//   - f: the new filter (must not be nil)
	//
	// Returns:
	//   - error: an error if f is nil or the weight upload fails
	SetFilter(f kernel.Filter) error

	// UpdateParam sets one filter parameter and refreshes the weight
	// buffer and active mode count.
	//
	// Parameters:
	//   - name: the parameter name
	//   - value: the new value, clamped to the parameter's range
	//
	// Returns:
	//   - error: an error if the kernel has no such parameter
	UpdateParam(name string, value float32) error

	// Step advances the kernel's time-like parameter ("t", else "tau")
	// by dt and refreshes the weights.
	//
	// Parameters:
	//   - dt: the time increment
	//
	// Returns:
	//   - error: an error if the kernel has no time-like parameter
	Step(dt float32) error

	// SetInputField uploads a per-vertex input field and switches the
	// operator to field projection.
	//
	// Parameters:
	//   - values: one value per vertex
	//
	// Returns:
	//   - error: an error if the length is not the vertex count
	SetInputField(values []float32) error

	// SetSource adds or updates a point source and switches the operator
	// to source projection.
	//
	// Parameters:
	//   - index: the source vertex, in [0, NV)
	//   - weight: the source strength
	//
	// Returns:
	//   - error: an error if index is out of range or the source list is full
	SetSource(index int, weight float32) error

	// ClearSources empties the point-source list.
	//
	// Returns:
	//   - error: an error if the params update fails
	ClearSources() error

	// Weights returns the current evaluated kernel.
	//
	// Returns:
	//   - kernel.GPUKernel: the weight vector and active mode count
	Weights() kernel.GPUKernel

	// ComputePasses emits the declarative pass list for the current input
	// mode. Emitting the list allocates no GPU resources.
	//
	// Returns:
	//   - []PassDescriptor: projection then reconstruction
	ComputePasses() []PassDescriptor

	// Execute runs the current pass list on the attached executor.
	//
	// Returns:
	//   - error: an error if no executor is attached or a pass fails
	Execute() error

	// OutputField reads back the reconstructed vertex field.
	//
	// Returns:
	//   - []float32: one value per vertex
	//   - error: an error if no executor is attached or readback fails
	OutputField() ([]float32, error)

	// Coefficients reads back the filtered spectral coefficients: the
	// projection of the input scaled by the current filter weights, zero
	// for modes past the active count.
	//
	// Returns:
	//   - []float32: one value per mode
	//   - error: an error if no executor is attached or readback fails
	Coefficients() ([]float32, error)

	// OutputFieldKey returns the resource key of the reconstructed field
	// buffer, for binding by the material layer.
	//
	// Returns:
	//   - string: the output field buffer key
	OutputFieldKey() string

	// Dispose releases the operator's working buffers. Safe to call more
	// than once. The basis is not disposed.
	Dispose()
}

var _ Operator = &op{}

// NewOperator allocates the operator's working buffers (coefficients,
// weights, input and output fields, sources, params) through the resource
// manager and evaluates the filter's initial weights.
//
// Parameters:
//   - label: instance label, used to namespace buffer keys
//   - resources: the resource manager owning the buffers
//   - b: the spectral basis to operate over
//   - f: the initial filter
//   - options: functional options to configure the operator
//
// Returns:
//   - Operator: a new Operator instance
//   - error: an error if any argument is nil or allocation fails
func NewOperator(label string, resources resource.Manager, b basis.Basis, f kernel.Filter, options ...Option) (Operator, error) {
	if resources == nil || b == nil || f == nil {
		return nil, fmt.Errorf("operator: %s requires a resource manager, basis, and filter", label)
	}
	o := &op{
		mu:            &sync.Mutex{},
		label:         label,
		resources:     resources,
		b:             b,
		f:             f,
		workgroupSize: DefaultWorkgroupSize,
	}
	for _, opt := range options {
		opt(o)
	}

	scalar := resource.BufferLayout{DType: resource.DTypeFloat32, ItemSize: 1}
	allocs := []struct {
		key    string
		length int
		layout resource.BufferLayout
		usage  resource.Usage
	}{
		{o.coeffKey(), b.K() * 4, scalar, resource.UsageStorage | resource.UsageCopySrc},
		{o.weightsKey(), b.K() * 4, scalar, resource.UsageStorage},
		{o.inputKey(), b.NV() * 4, scalar, resource.UsageStorage},
		{o.outputKey(), b.NV() * 4, scalar, resource.UsageStorage | resource.UsageCopySrc},
		{o.sourcesKey(), MaxSources * 16, resource.BufferLayout{DType: resource.DTypeFloat32, ItemSize: 4}, resource.UsageStorage},
		{o.paramsKey(), 16, resource.BufferLayout{DType: resource.DTypeUint32, ItemSize: 4}, resource.UsageUniform},
	}
	for _, a := range allocs {
		if _, err := resources.CreateEmpty(a.key, a.length, a.layout, a.usage); err != nil {
			o.releaseLocked()
			return nil, fmt.Errorf("operator: %s: %w", label, err)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.refreshWeightsLocked(); err != nil {
		o.releaseLocked()
		return nil, err
	}
	return o, nil
}

func (o *op) Label() string {
	return o.label
}

func (o *op) Basis() basis.Basis {
	return o.b
}

func (o *op) Filter() kernel.Filter {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.f
}

func (o *op) SetFilter(f kernel.Filter) error {
	if f == nil {
		return fmt.Errorf("operator: %s: nil filter", o.label)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.f = f
	return o.refreshWeightsLocked()
}

func (o *op) UpdateParam(name string, value float32) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.hasParamLocked(name) {
		return fmt.Errorf("operator: %s: kernel %q has no parameter %q", o.label, o.f.Kernel().Name(), name)
	}
	o.f.Set(name, value)
	return o.refreshWeightsLocked()
}

func (o *op) Step(dt float32) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, name := range []string{"t", "tau"} {
		if o.hasParamLocked(name) {
			o.f.Set(name, o.f.Param(name)+dt)
			return o.refreshWeightsLocked()
		}
	}
	return fmt.Errorf("operator: %s: kernel %q has no time-like parameter", o.label, o.f.Kernel().Name())
}

func (o *op) SetInputField(values []float32) error {
	if len(values) != o.b.NV() {
		return fmt.Errorf("operator: %s: input field has %d values, want nV = %d", o.label, len(values), o.b.NV())
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.resources.Get(o.inputKey())
	if !ok {
		return fmt.Errorf("operator: %s: input buffer missing", o.label)
	}
	if err := o.resources.Write(h, 0, common.SliceToBytes(values)); err != nil {
		return err
	}
	o.sourceMode = false
	return o.writeParamsLocked()
}

func (o *op) SetSource(index int, weight float32) error {
	if index < 0 || index >= o.b.NV() {
		return fmt.Errorf("operator: %s: source vertex %d outside [0, %d)", o.label, index, o.b.NV())
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	entry := sourceEntry{Index: uint32(index), Weight: weight}
	replaced := false
	for i := range o.sources {
		if o.sources[i].Index == entry.Index {
			o.sources[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		if len(o.sources) >= MaxSources {
			return fmt.Errorf("operator: %s: source list full (%d entries)", o.label, MaxSources)
		}
		o.sources = append(o.sources, entry)
	}
	o.sourceMode = true
	if err := o.writeSourcesLocked(); err != nil {
		return err
	}
	return o.writeParamsLocked()
}

func (o *op) ClearSources() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = o.sources[:0]
	return o.writeParamsLocked()
}

func (o *op) Weights() kernel.GPUKernel {
	o.mu.Lock()
	defer o.mu.Unlock()
	weights := make([]float32, len(o.gpuKernel.Weights))
	copy(weights, o.gpuKernel.Weights)
	return kernel.GPUKernel{Weights: weights, KActive: o.gpuKernel.KActive}
}

func (o *op) ComputePasses() []PassDescriptor {
	o.mu.Lock()
	defer o.mu.Unlock()

	var project PassDescriptor
	if o.sourceMode {
		project = PassDescriptor{
			Name:        o.label + ":project-sources",
			PipelineKey: PipelineKeyProjectSources,
			Bindings: []Binding{
				{Name: BindingParams, Slot: 0, Key: o.paramsKey()},
				{Name: BindingEigenvectors, Slot: 1, Key: o.b.PsiHandle().Key()},
				{Name: BindingMass, Slot: 2, Key: o.b.MassHandle().Key()},
				{Name: BindingSources, Slot: 3, Key: o.sourcesKey()},
				{Name: BindingWeights, Slot: 4, Key: o.weightsKey()},
				{Name: BindingCoefficients, Slot: 5, Key: o.coeffKey()},
			},
			WorkItems:     o.b.K(),
			WorkgroupSize: o.workgroupSize,
		}
	} else {
		project = PassDescriptor{
			Name:        o.label + ":project-field",
			PipelineKey: PipelineKeyProjectField,
			Bindings: []Binding{
				{Name: BindingParams, Slot: 0, Key: o.paramsKey()},
				{Name: BindingEigenvectors, Slot: 1, Key: o.b.PsiHandle().Key()},
				{Name: BindingMass, Slot: 2, Key: o.b.MassHandle().Key()},
				{Name: BindingInputField, Slot: 3, Key: o.inputKey()},
				{Name: BindingWeights, Slot: 4, Key: o.weightsKey()},
				{Name: BindingCoefficients, Slot: 5, Key: o.coeffKey()},
			},
			WorkItems:     o.b.K(),
			WorkgroupSize: o.workgroupSize,
		}
	}

	reconstruct := PassDescriptor{
		Name:        o.label + ":reconstruct",
		PipelineKey: PipelineKeyReconstruct,
		Bindings: []Binding{
			{Name: BindingParams, Slot: 0, Key: o.paramsKey()},
			{Name: BindingEigenvectors, Slot: 1, Key: o.b.PsiHandle().Key()},
			{Name: BindingCoefficients, Slot: 2, Key: o.coeffKey()},
			{Name: BindingOutputField, Slot: 3, Key: o.outputKey()},
		},
		WorkItems:     o.b.NV(),
		WorkgroupSize: o.workgroupSize,
	}
	return []PassDescriptor{project, reconstruct}
}

func (o *op) Execute() error {
	o.mu.Lock()
	exec := o.exec
	o.mu.Unlock()
	if exec == nil {
		return fmt.Errorf("operator: %s: no executor attached", o.label)
	}
	return exec.Execute(o.ComputePasses())
}

func (o *op) OutputField() ([]float32, error) {
	return o.readFloats(o.outputKey(), o.b.NV())
}

func (o *op) Coefficients() ([]float32, error) {
	return o.readFloats(o.coeffKey(), o.b.K())
}

func (o *op) OutputFieldKey() string {
	return o.outputKey()
}

func (o *op) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disposed {
		return
	}
	o.disposed = true
	o.releaseLocked()
}

func (o *op) readFloats(key string, n int) ([]float32, error) {
	o.mu.Lock()
	exec := o.exec
	o.mu.Unlock()
	if exec == nil {
		return nil, fmt.Errorf("operator: %s: no executor attached", o.label)
	}
	data, err := exec.ReadBuffer(key)
	if err != nil {
		return nil, err
	}
	vals := common.BytesToSlice[float32](data)
	if len(vals) < n {
		return nil, fmt.Errorf("operator: %s: buffer %q holds %d values, want %d", o.label, key, len(vals), n)
	}
	out := make([]float32, n)
	copy(out, vals[:n])
	return out, nil
}

// hasParamLocked reports whether the current kernel declares a parameter.
// Caller holds the lock.
func (o *op) hasParamLocked(name string) bool {
	for _, p := range o.f.Kernel().Parameters() {
		if p.Name == name {
			return true
		}
	}
	return false
}

// refreshWeightsLocked re-evaluates the filter over the spectrum and
// rewrites the weight buffer and params uniform. O(K); allocates nothing
// GPU-side. Caller holds the lock.
func (o *op) refreshWeightsLocked() error {
	o.gpuKernel = o.f.ToGPUKernel(o.b.Lambda(), kernel.ActiveModeThreshold)
	h, ok := o.resources.Get(o.weightsKey())
	if !ok {
		return fmt.Errorf("operator: %s: weight buffer missing", o.label)
	}
	if err := o.resources.Write(h, 0, common.SliceToBytes(o.gpuKernel.Weights)); err != nil {
		return err
	}
	return o.writeParamsLocked()
}

// writeParamsLocked rewrites the params uniform block. Caller holds the lock.
func (o *op) writeParamsLocked() error {
	params := fieldParams{
		NV:          uint32(o.b.NV()),
		K:           uint32(o.b.K()),
		KActive:     uint32(o.gpuKernel.KActive),
		SourceCount: uint32(len(o.sources)),
	}
	h, ok := o.resources.Get(o.paramsKey())
	if !ok {
		return fmt.Errorf("operator: %s: params buffer missing", o.label)
	}
	return o.resources.Write(h, 0, common.StructToBytes(&params))
}

// writeSourcesLocked rewrites the live prefix of the sources buffer.
// Caller holds the lock.
func (o *op) writeSourcesLocked() error {
	if len(o.sources) == 0 {
		return nil
	}
	h, ok := o.resources.Get(o.sourcesKey())
	if !ok {
		return fmt.Errorf("operator: %s: sources buffer missing", o.label)
	}
	return o.resources.Write(h, 0, common.SliceToBytes(o.sources))
}

// releaseLocked drops the operator's buffer references. Caller holds the
// lock (or the operator is partially constructed).
func (o *op) releaseLocked() {
	for _, key := range []string{
		o.coeffKey(), o.weightsKey(), o.inputKey(), o.outputKey(), o.sourcesKey(), o.paramsKey(),
	} {
		o.resources.Release(key)
	}
}

func (o *op) coeffKey() string {
	return o.label + ":coefficients"
}

func (o *op) weightsKey() string {
	return o.label + ":weights"
}

func (o *op) inputKey() string {
	return o.label + ":field:in"
}

func (o *op) outputKey() string {
	return o.label + ":field:out"
}

func (o *op) sourcesKey() string {
	return o.label + ":sources"
}

func (o *op) paramsKey() string {
	return o.label + ":params"
}
