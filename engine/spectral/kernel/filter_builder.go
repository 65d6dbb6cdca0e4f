package kernel

// FilterOption defines a functional option for configuring a Filter.
type FilterOption func(*filter)

// WithParam sets an initial parameter value, clamped to the parameter's
// declared range. Unknown names panic, matching Filter.Set.
//
// Parameters:
//   - name: the parameter name
//   - value: the initial value
//
// Returns:
//   - FilterOption: the option to apply
func WithParam(name string, value float32) FilterOption {
	return func(f *filter) {
		f.setLocked(name, value)
	}
}
