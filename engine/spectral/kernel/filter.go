package kernel

import (
	"fmt"
	"sync"

	"github.com/chewxy/math32"
)

// ActiveModeThreshold is the default absolute weight magnitude at or below
// which trailing modes are treated as negligible and skipped on the GPU.
const ActiveModeThreshold = 0.01

// GPUKernel is the evaluated form of a filter over a concrete spectrum:
// one weight per mode plus the count of modes worth processing.
type GPUKernel struct {
	// Weights holds one filter weight per mode, in mode order.
	Weights []float32
	// KActive is the number of leading modes with non-negligible weight.
	// Dispatch loops iterate the full mode count and branch on this value,
	// so it can change without resizing any buffer.
	KActive int
}

// filter is the implementation of the Filter interface.
type filter struct {
	mu     *sync.Mutex
	kernel Kernel
	params map[string]float32
	bounds map[string]Parameter
}

// Filter binds a Kernel to a concrete set of parameter values. Updating a
// parameter is cheap and never touches geometry or basis data; the filter
// re-evaluates to a fresh weight vector on demand.
type Filter interface {
	// Kernel returns the underlying transfer function.
	//
	// Returns:
	//   - Kernel: the bound kernel
	Kernel() Kernel

	// Param returns the current value of a parameter.
	//
	// Parameters:
	//   - name: the parameter name
	//
	// Returns:
	//   - float32: the current value (0 for unknown names)
	Param(name string) float32

	// Set updates one parameter, clamping the value into the parameter's
	// declared range. Unknown names are a programming error and panic.
	//
	// Parameters:
	//   - name: the parameter name
	//   - value: the new value
	Set(name string, value float32)

	// EvaluateSpectrum computes the weight vector for a spectrum of
	// eigenvalues under the current parameters.
	//
	// Parameters:
	//   - lambda: the eigenvalues, ascending
	//
	// Returns:
	//   - []float32: one weight per eigenvalue
	EvaluateSpectrum(lambda []float32) []float32

	// ToGPUKernel evaluates the spectrum and determines the active mode
	// count by scanning weights from the highest mode down until one
	// exceeds the absolute threshold. KActive is 0 when every weight sits
	// at or below the threshold, and the output field must then be zero.
	//
	// Parameters:
	//   - lambda: the eigenvalues, ascending
	//   - activeThreshold: the absolute weight magnitude cutting off
	//     trailing modes (ActiveModeThreshold when non-positive)
	//
	// Returns:
	//   - GPUKernel: the weight vector and active mode count
	ToGPUKernel(lambda []float32, activeThreshold float32) GPUKernel
}

var _ Filter = &filter{}

// NewFilter binds a kernel to its default parameter values.
//
// Parameters:
//   - k: the kernel to bind (must not be nil)
//   - options: functional options to configure the filter
//
// Returns:
//   - Filter: a new Filter instance
func NewFilter(k Kernel, options ...FilterOption) Filter {
	if k == nil {
		panic("kernel: NewFilter requires a non-nil Kernel")
	}
	f := &filter{
		mu:     &sync.Mutex{},
		kernel: k,
		params: make(map[string]float32),
		bounds: make(map[string]Parameter),
	}
	for _, p := range k.Parameters() {
		f.params[p.Name] = p.Default
		f.bounds[p.Name] = p
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func (f *filter) Kernel() Kernel {
	return f.kernel
}

func (f *filter) Param(name string) float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params[name]
}

func (f *filter) Set(name string, value float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setLocked(name, value)
}

// setLocked clamps and stores one parameter. Caller holds the lock.
func (f *filter) setLocked(name string, value float32) {
	p, ok := f.bounds[name]
	if !ok {
		panic(fmt.Sprintf("kernel: %q has no parameter %q", f.kernel.Name(), name))
	}
	if value < p.Min {
		value = p.Min
	} else if value > p.Max {
		value = p.Max
	}
	f.params[name] = value
}

func (f *filter) EvaluateSpectrum(lambda []float32) []float32 {
	f.mu.Lock()
	params := make(map[string]float32, len(f.params))
	for k, v := range f.params {
		params[k] = v
	}
	f.mu.Unlock()

	weights := make([]float32, len(lambda))
	for i, l := range lambda {
		weights[i] = f.kernel.Evaluate(l, params)
	}
	return weights
}

func (f *filter) ToGPUKernel(lambda []float32, activeThreshold float32) GPUKernel {
	weights := f.EvaluateSpectrum(lambda)
	if activeThreshold <= 0 {
		activeThreshold = ActiveModeThreshold
	}

	active := 0
	for k := len(weights) - 1; k >= 0; k-- {
		if math32.Abs(weights[k]) > activeThreshold {
			active = k + 1
			break
		}
	}
	return GPUKernel{Weights: weights, KActive: active}
}
