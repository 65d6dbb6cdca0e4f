package operator

// CPUExecutorOption defines a functional option for configuring the CPU
// executor.
type CPUExecutorOption func(*cpuExecutor)

// WithWorkers overrides the worker pool size. Values below 1 are ignored.
//
// Parameters:
//   - workers: the number of pool workers
//
// Returns:
//   - CPUExecutorOption: the option to apply
func WithWorkers(workers int) CPUExecutorOption {
	return func(e *cpuExecutor) {
		if workers >= 1 {
			e.workers = workers
		}
	}
}
