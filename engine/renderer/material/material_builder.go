package material

// FieldMaterialOption is a function that configures a field material
// instance during construction.
type FieldMaterialOption func(*fieldMaterial)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - FieldMaterialOption: a function that applies the name option to a material
func WithName(name string) FieldMaterialOption {
	return func(m *fieldMaterial) {
		m.name = name
	}
}

// WithColormap is an option builder that sets the active colormap.
//
// Parameters:
//   - c: the colormap to use
//
// Returns:
//   - FieldMaterialOption: a function that applies the colormap option to a material
func WithColormap(c ColorLookup) FieldMaterialOption {
	return func(m *fieldMaterial) {
		if c != nil {
			m.colormap = c
		}
	}
}

// WithRangeMode is an option builder that sets how the display range
// tracks the field.
//
// Parameters:
//   - mode: the range mode
//
// Returns:
//   - FieldMaterialOption: a function that applies the range mode option to a material
func WithRangeMode(mode RangeMode) FieldMaterialOption {
	return func(m *fieldMaterial) {
		m.rangeMode = mode
	}
}

// WithRange is an option builder that fixes the display range and selects
// RangeModeExplicit.
//
// Parameters:
//   - min: the lower bound
//   - max: the upper bound
//
// Returns:
//   - FieldMaterialOption: a function that applies the range option to a material
func WithRange(min, max float32) FieldMaterialOption {
	return func(m *fieldMaterial) {
		m.rangeMode = RangeModeExplicit
		m.minValue = min
		m.maxValue = max
	}
}

// WithOpacity is an option builder that sets the surface opacity.
//
// Parameters:
//   - opacity: the opacity in [0, 1]
//
// Returns:
//   - FieldMaterialOption: a function that applies the opacity option to a material
func WithOpacity(opacity float32) FieldMaterialOption {
	return func(m *fieldMaterial) {
		if opacity < 0 {
			opacity = 0
		} else if opacity > 1 {
			opacity = 1
		}
		m.opacity = opacity
	}
}

// WithFieldKey is an option builder that sets the resource key of the
// per-vertex field buffer.
//
// Parameters:
//   - key: the field buffer key
//
// Returns:
//   - FieldMaterialOption: a function that applies the field key option to a material
func WithFieldKey(key string) FieldMaterialOption {
	return func(m *fieldMaterial) {
		m.fieldKey = key
	}
}

// WithPipelineKey is an option builder that sets the render pipeline key
// for the material.
//
// Parameters:
//   - key: the pipeline key to associate with the material
//
// Returns:
//   - FieldMaterialOption: a function that applies the pipeline key option to a material
func WithPipelineKey(key string) FieldMaterialOption {
	return func(m *fieldMaterial) {
		m.pipelineKey = key
	}
}
