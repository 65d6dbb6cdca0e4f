package material

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/chewxy/math32"
)

// fieldShadeSource is the field surface shader with a placeholder line the
// configured colormap's WGSL replaces.
//
//go:embed assets/field_shade.wgsl
var fieldShadeSource string

// colormapPlaceholder marks where the generated colormap function is
// spliced into the shader template.
const colormapPlaceholder = "//@colormap"

// RangeEpsilon is the span below which a display range counts as
// degenerate and falls back to [0, 1].
const RangeEpsilon float32 = 1e-7

// RangeMode selects how the display range tracks the field.
type RangeMode int

const (
	// RangeModeAuto spans the field's observed minimum to maximum.
	RangeModeAuto RangeMode = iota
	// RangeModeSymmetric spans [-a, a] where a is the largest absolute
	// field value, keeping zero at the colormap midpoint.
	RangeModeSymmetric
	// RangeModeExplicit uses the range set by SetRange unchanged.
	RangeModeExplicit
)

// fieldMaterial is the implementation of the FieldMaterial interface.
type fieldMaterial struct {
	mu          *sync.Mutex
	name        string
	colormap    ColorLookup
	rangeMode   RangeMode
	minValue    float32
	maxValue    float32
	opacity     float32
	fieldKey    string
	pipelineKey string
}

// FieldMaterial shades a surface by a per-vertex scalar field: values are
// normalized into the current display range and mapped through a colormap.
// It owns only shading state; the field buffer itself belongs to the
// resource manager and is referenced by key.
type FieldMaterial interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Colormap retrieves the active colormap.
	//
	// Returns:
	//   - ColorLookup: the colormap
	Colormap() ColorLookup

	// SetColormap swaps the colormap. The fragment shader must be
	// rebuilt afterwards; FragmentSource reflects the new map.
	//
	// Parameters:
	//   - c: the colormap to use (nil is ignored)
	SetColormap(c ColorLookup)

	// RangeMode retrieves how the display range tracks the field.
	//
	// Returns:
	//   - RangeMode: the current mode
	RangeMode() RangeMode

	// SetRangeMode sets how the display range tracks the field.
	// Switching to RangeModeExplicit keeps the current range.
	//
	// Parameters:
	//   - mode: the mode to use
	SetRangeMode(mode RangeMode)

	// SetRange fixes the display range and switches to RangeModeExplicit.
	//
	// Parameters:
	//   - min: the lower bound
	//   - max: the upper bound
	SetRange(min, max float32)

	// AutoRange recomputes the display range from a field under the
	// current mode. No-op in RangeModeExplicit.
	//
	// Parameters:
	//   - field: the per-vertex values
	AutoRange(field []float32)

	// Range retrieves the current display range.
	//
	// Returns:
	//   - float32: the lower bound
	//   - float32: the upper bound
	Range() (float32, float32)

	// Opacity retrieves the surface opacity.
	//
	// Returns:
	//   - float32: the opacity in [0, 1]
	Opacity() float32

	// SetOpacity sets the surface opacity, clamped to [0, 1].
	//
	// Parameters:
	//   - opacity: the opacity
	SetOpacity(opacity float32)

	// Normalize maps a field value into [0, 1] under the current range,
	// the CPU reference for what the fragment shader computes. A
	// degenerate range falls back to [0, 1].
	//
	// Parameters:
	//   - x: the field value
	//
	// Returns:
	//   - float32: the normalized position
	Normalize(x float32) float32

	// ColorAt shades one field value through normalization and the
	// colormap.
	//
	// Parameters:
	//   - x: the field value
	//
	// Returns:
	//   - [3]float32: the RGB color
	ColorAt(x float32) [3]float32

	// ShadeParams builds the uniform block for the fragment shader.
	//
	// Returns:
	//   - GPUFieldShadeParams: the shading uniform
	ShadeParams() GPUFieldShadeParams

	// FragmentSource returns the surface shader with the active
	// colormap's WGSL spliced in.
	//
	// Returns:
	//   - string: the WGSL source
	FragmentSource() string

	// FieldKey retrieves the resource key of the per-vertex field buffer.
	//
	// Returns:
	//   - string: the field buffer key
	FieldKey() string

	// SetFieldKey sets the resource key of the per-vertex field buffer.
	//
	// Parameters:
	//   - key: the field buffer key
	SetFieldKey(key string)

	// PipelineKey retrieves the key identifying the render pipeline this
	// material uses.
	//
	// Returns:
	//   - string: the pipeline key
	PipelineKey() string

	// SetPipelineKey sets the render pipeline key for this material.
	//
	// Parameters:
	//   - key: the pipeline key to associate with this material
	SetPipelineKey(key string)
}

var _ FieldMaterial = &fieldMaterial{}

// NewFieldMaterial creates a new FieldMaterial configured with the
// provided options. The default is viridis over [0, 1], fully opaque.
//
// Parameters:
//   - options: variadic list of FieldMaterialOption functions to configure the material
//
// Returns:
//   - FieldMaterial: a new FieldMaterial instance
func NewFieldMaterial(options ...FieldMaterialOption) FieldMaterial {
	m := &fieldMaterial{
		mu:       &sync.Mutex{},
		colormap: Viridis(),
		minValue: 0,
		maxValue: 1,
		opacity:  1,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *fieldMaterial) Name() string {
	return m.name
}

func (m *fieldMaterial) Colormap() ColorLookup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.colormap
}

func (m *fieldMaterial) SetColormap(c ColorLookup) {
	if c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colormap = c
}

func (m *fieldMaterial) RangeMode() RangeMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rangeMode
}

func (m *fieldMaterial) SetRangeMode(mode RangeMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeMode = mode
}

func (m *fieldMaterial) SetRange(min, max float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rangeMode = RangeModeExplicit
	m.minValue = min
	m.maxValue = max
}

func (m *fieldMaterial) AutoRange(field []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rangeMode == RangeModeExplicit || len(field) == 0 {
		return
	}
	min, max := field[0], field[0]
	for _, v := range field[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if m.rangeMode == RangeModeSymmetric {
		a := math32.Max(math32.Abs(min), math32.Abs(max))
		min, max = -a, a
	}
	m.minValue = min
	m.maxValue = max
}

func (m *fieldMaterial) Range() (float32, float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.minValue, m.maxValue
}

func (m *fieldMaterial) Opacity() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opacity
}

func (m *fieldMaterial) SetOpacity(opacity float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	m.opacity = opacity
}

func (m *fieldMaterial) Normalize(x float32) float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.normalizeLocked(x)
}

func (m *fieldMaterial) ColorAt(x float32) [3]float32 {
	m.mu.Lock()
	t := m.normalizeLocked(x)
	c := m.colormap
	m.mu.Unlock()
	return c.At(t)
}

func (m *fieldMaterial) ShadeParams() GPUFieldShadeParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	params := GPUFieldShadeParams{
		MinValue: m.minValue,
		Opacity:  m.opacity,
	}
	span := m.maxValue - m.minValue
	if span < RangeEpsilon {
		// collapsed range falls back to [0, 1]
		params.MinValue = 0
		params.InvRange = 1
	} else {
		params.InvRange = 1 / span
	}
	return params
}

func (m *fieldMaterial) FragmentSource() string {
	m.mu.Lock()
	c := m.colormap
	m.mu.Unlock()
	return strings.Replace(fieldShadeSource, colormapPlaceholder, c.WGSL(), 1)
}

func (m *fieldMaterial) FieldKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fieldKey
}

func (m *fieldMaterial) SetFieldKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fieldKey = key
}

func (m *fieldMaterial) PipelineKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipelineKey
}

func (m *fieldMaterial) SetPipelineKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelineKey = key
}

// normalizeLocked maps x into [0, 1]. Caller holds the lock.
func (m *fieldMaterial) normalizeLocked(x float32) float32 {
	min := m.minValue
	span := m.maxValue - min
	if span < RangeEpsilon {
		min, span = 0, 1
	}
	t := (x - min) / span
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
