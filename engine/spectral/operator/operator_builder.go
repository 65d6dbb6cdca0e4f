package operator

// Option defines a functional option for configuring an Operator.
type Option func(*op)

// WithExecutor attaches the executor used by Execute, OutputField, and
// Coefficients.
//
// Parameters:
//   - e: the executor to attach
//
// Returns:
//   - Option: the option to apply
func WithExecutor(e Executor) Option {
	return func(o *op) {
		o.exec = e
	}
}

// WithWorkgroupSize overrides the workgroup x-dimension recorded in emitted
// pass descriptors. Must match the compiled shaders' @workgroup_size.
// Values below 1 are ignored.
//
// Parameters:
//   - size: the workgroup x-dimension
//
// Returns:
//   - Option: the option to apply
func WithWorkgroupSize(size int) Option {
	return func(o *op) {
		if size >= 1 {
			o.workgroupSize = size
		}
	}
}
