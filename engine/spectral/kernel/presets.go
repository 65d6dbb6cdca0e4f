package kernel

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed assets/presets.yaml
var builtinPresets []byte

// Preset names a kernel together with a full or partial parameter
// assignment. Unassigned parameters keep their defaults.
type Preset struct {
	Name   string             `yaml:"name"`
	Kernel string             `yaml:"kernel"`
	Params map[string]float32 `yaml:"params"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// ParsePresets decodes a preset list from YAML and validates every entry
// against the built-in kernel registry.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - []Preset: the decoded presets
//   - error: an error if decoding fails or a preset names an unknown kernel
//     or parameter
func ParsePresets(data []byte) ([]Preset, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("kernel: decoding presets: %w", err)
	}
	registry := Registry()
	for _, p := range file.Presets {
		k, ok := registry[p.Kernel]
		if !ok {
			return nil, fmt.Errorf("kernel: preset %q names unknown kernel %q", p.Name, p.Kernel)
		}
		known := make(map[string]bool, len(k.Parameters()))
		for _, param := range k.Parameters() {
			known[param.Name] = true
		}
		for name := range p.Params {
			if !known[name] {
				return nil, fmt.Errorf("kernel: preset %q sets unknown parameter %q on %q", p.Name, name, p.Kernel)
			}
		}
	}
	return file.Presets, nil
}

// BuiltinPresets returns the presets shipped with the engine.
//
// Returns:
//   - []Preset: the built-in presets
func BuiltinPresets() []Preset {
	presets, err := ParsePresets(builtinPresets)
	if err != nil {
		panic(err)
	}
	return presets
}

// NewFilterFromPreset constructs a Filter for a preset.
//
// Parameters:
//   - p: the preset to instantiate
//
// Returns:
//   - Filter: the configured filter
//   - error: an error if the preset names an unknown kernel
func NewFilterFromPreset(p Preset) (Filter, error) {
	k, ok := Registry()[p.Kernel]
	if !ok {
		return nil, fmt.Errorf("kernel: preset %q names unknown kernel %q", p.Name, p.Kernel)
	}
	opts := make([]FilterOption, 0, len(p.Params))
	for name, value := range p.Params {
		opts = append(opts, WithParam(name, value))
	}
	return NewFilter(k, opts...), nil
}
