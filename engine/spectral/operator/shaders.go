package operator

import (
	_ "embed"
	"fmt"
)

//go:embed assets/project_field.wgsl
var projectFieldWGSL string

//go:embed assets/project_sources.wgsl
var projectSourcesWGSL string

//go:embed assets/reconstruct.wgsl
var reconstructWGSL string

// ShaderSource returns the WGSL source for a pipeline key, so the GPU
// executor can compile the pipelines the pass descriptors name.
//
// Parameters:
//   - pipelineKey: one of the PipelineKey* constants
//
// Returns:
//   - string: the WGSL source
//   - error: an error if the key is unknown
func ShaderSource(pipelineKey string) (string, error) {
	switch pipelineKey {
	case PipelineKeyProjectField:
		return projectFieldWGSL, nil
	case PipelineKeyProjectSources:
		return projectSourcesWGSL, nil
	case PipelineKeyReconstruct:
		return reconstructWGSL, nil
	default:
		return "", fmt.Errorf("operator: no shader for pipeline %q", pipelineKey)
	}
}

// PipelineKeys returns every compute pipeline the operator can emit.
//
// Returns:
//   - []string: the pipeline keys
func PipelineKeys() []string {
	return []string{PipelineKeyProjectField, PipelineKeyProjectSources, PipelineKeyReconstruct}
}
