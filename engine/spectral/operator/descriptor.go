package operator

// Pipeline keys name the compute programs an executor must provide. The
// CPU executor interprets them directly; the GPU executor maps them to
// compute pipelines built from the sources in assets/.
const (
	// PipelineKeyProjectField projects an input vertex field onto the
	// basis and scales each mode by its filter weight: one work item per
	// mode.
	PipelineKeyProjectField = "spectral/project-field"
	// PipelineKeyProjectSources accumulates point-source contributions
	// into filter-weighted coefficients: one work item per mode.
	PipelineKeyProjectSources = "spectral/project-sources"
	// PipelineKeyReconstruct sums the weighted modes back to vertex
	// space: one work item per vertex.
	PipelineKeyReconstruct = "spectral/reconstruct"
)

// Binding names for the buffers each pass reads and writes.
const (
	BindingParams       = "params"
	BindingEigenvalues  = "eigenvalues"
	BindingEigenvectors = "eigenvectors"
	BindingMass         = "mass"
	BindingInputField   = "field_in"
	BindingOutputField  = "field_out"
	BindingCoefficients = "coefficients"
	BindingWeights      = "weights"
	BindingSources      = "sources"
)

// Binding attaches a resource-manager key to a named slot of a pass.
type Binding struct {
	// Name is the logical slot, one of the Binding* constants.
	Name string
	// Slot is the WGSL @binding index within group 0.
	Slot int
	// Key is the resource-manager key of the bound buffer.
	Key string
}

// PassDescriptor is one compute dispatch described declaratively: which
// pipeline, which buffers in which slots, and how many work items. The
// graph an operator emits is data; rebuilding it allocates nothing.
type PassDescriptor struct {
	// Name labels the pass for logs and profiling.
	Name string
	// PipelineKey selects the compute program.
	PipelineKey string
	// Bindings lists the buffers of bind group 0.
	Bindings []Binding
	// WorkItems is the logical dispatch width (modes or vertices).
	WorkItems int
	// WorkgroupSize is the shader's workgroup x-dimension.
	WorkgroupSize int
}

// Workgroups returns the x-dimension dispatch count covering WorkItems.
//
// Returns:
//   - int: ceil(WorkItems / WorkgroupSize), minimum 1
func (p PassDescriptor) Workgroups() int {
	if p.WorkgroupSize <= 0 {
		return 1
	}
	n := (p.WorkItems + p.WorkgroupSize - 1) / p.WorkgroupSize
	if n < 1 {
		n = 1
	}
	return n
}

// BindingKey returns the resource key bound under a slot name, or "".
//
// Parameters:
//   - name: the slot name to look up
//
// Returns:
//   - string: the bound resource key, or "" if the slot is absent
func (p PassDescriptor) BindingKey(name string) string {
	for _, b := range p.Bindings {
		if b.Name == name {
			return b.Key
		}
	}
	return ""
}
