package kernel

import (
	"github.com/chewxy/math32"
)

// Parameter describes one tunable scalar of a Kernel, with the range the
// UI layer exposes and filters clamp against.
type Parameter struct {
	Name    string
	Min     float32
	Max     float32
	Default float32
	Step    float32
}

// Kernel is a pure spectral transfer function: it maps a Laplacian
// eigenvalue to a per-mode weight given the current parameter values.
// Kernels hold no state and are safe for concurrent use.
type Kernel interface {
	// Name returns the kernel's registry name.
	//
	// Returns:
	//   - string: the kernel name
	Name() string

	// Parameters returns the kernel's tunable parameters in display order.
	//
	// Returns:
	//   - []Parameter: the parameter descriptors
	Parameters() []Parameter

	// Evaluate computes the spectral weight for a single eigenvalue.
	//
	// Parameters:
	//   - lambda: the eigenvalue
	//   - params: current parameter values keyed by Parameter.Name
	//
	// Returns:
	//   - float32: the per-mode weight
	Evaluate(lambda float32, params map[string]float32) float32
}

// supportThreshold is the weight magnitude below which a mode is treated
// as outside a kernel's support.
const supportThreshold = 0.01

// BandLimited is implemented by kernels that can report, in closed form,
// the eigenvalue range they meaningfully pass for a parameter assignment.
type BandLimited interface {
	// Bandwidth returns a scalar summary of the passed frequency range.
	//
	// Parameters:
	//   - params: current parameter values keyed by Parameter.Name
	//
	// Returns:
	//   - float32: the bandwidth
	Bandwidth(params map[string]float32) float32

	// Support returns the eigenvalue interval outside which weights fall
	// below the negligibility threshold.
	//
	// Parameters:
	//   - params: current parameter values keyed by Parameter.Name
	//
	// Returns:
	//   - float32: the lower bound of the support interval
	//   - float32: the upper bound of the support interval
	Support(params map[string]float32) (float32, float32)
}

// heatKernel implements diffusion smoothing, exp(-lambda*tau). Larger tau
// suppresses high-frequency modes harder.
type heatKernel struct{}

var _ Kernel = heatKernel{}

// NewHeatKernel creates the heat diffusion kernel.
//
// Returns:
//   - Kernel: the heat kernel
func NewHeatKernel() Kernel {
	return heatKernel{}
}

func (heatKernel) Name() string {
	return "heat"
}

func (heatKernel) Parameters() []Parameter {
	return []Parameter{
		{Name: "tau", Min: 0.0, Max: 10.0, Default: 0.1, Step: 0.001},
	}
}

func (heatKernel) Evaluate(lambda float32, params map[string]float32) float32 {
	return math32.Exp(-lambda * params["tau"])
}

func (heatKernel) Bandwidth(params map[string]float32) float32 {
	tau := params["tau"]
	if tau <= 0 {
		return math32.MaxFloat32
	}
	return 1 / tau
}

func (heatKernel) Support(params map[string]float32) (float32, float32) {
	tau := params["tau"]
	if tau <= 0 {
		return 0, math32.MaxFloat32
	}
	return 0, -math32.Log(supportThreshold) / tau
}

var _ BandLimited = heatKernel{}

// gaussianBandKernel passes a band of eigenvalues centered on a target
// frequency, exp(-((lambda-center)/width)^2).
type gaussianBandKernel struct{}

var _ Kernel = gaussianBandKernel{}

// NewGaussianBandKernel creates the Gaussian band-pass kernel.
//
// Returns:
//   - Kernel: the band-pass kernel
func NewGaussianBandKernel() Kernel {
	return gaussianBandKernel{}
}

func (gaussianBandKernel) Name() string {
	return "gaussian-band"
}

func (gaussianBandKernel) Parameters() []Parameter {
	return []Parameter{
		{Name: "center", Min: 0.0, Max: 100.0, Default: 4.0, Step: 0.1},
		{Name: "width", Min: 0.01, Max: 50.0, Default: 2.0, Step: 0.1},
	}
}

func (gaussianBandKernel) Evaluate(lambda float32, params map[string]float32) float32 {
	width := params["width"]
	if width <= 0 {
		return 0
	}
	d := (lambda - params["center"]) / width
	return math32.Exp(-d * d)
}

func (gaussianBandKernel) Bandwidth(params map[string]float32) float32 {
	return params["width"]
}

func (gaussianBandKernel) Support(params map[string]float32) (float32, float32) {
	half := params["width"] * math32.Sqrt(-math32.Log(supportThreshold))
	lo := params["center"] - half
	if lo < 0 {
		lo = 0
	}
	return lo, params["center"] + half
}

var _ BandLimited = gaussianBandKernel{}

// waveKernel models standing-wave propagation, cos(t*sqrt(lambda)) damped
// by exp(-lambda*damping).
type waveKernel struct{}

var _ Kernel = waveKernel{}

// NewWaveKernel creates the damped wave propagation kernel.
//
// Returns:
//   - Kernel: the wave kernel
func NewWaveKernel() Kernel {
	return waveKernel{}
}

func (waveKernel) Name() string {
	return "wave"
}

func (waveKernel) Parameters() []Parameter {
	return []Parameter{
		{Name: "t", Min: 0.0, Max: 20.0, Default: 0.0, Step: 0.01},
		{Name: "damping", Min: 0.0, Max: 1.0, Default: 0.01, Step: 0.001},
	}
}

func (waveKernel) Evaluate(lambda float32, params map[string]float32) float32 {
	return math32.Cos(params["t"]*math32.Sqrt(lambda)) * math32.Exp(-lambda*params["damping"])
}

// truncationKernel is a hard low-pass: weight 1 for modes whose index-free
// eigenvalue falls below the cutoff, 0 above it.
type truncationKernel struct{}

var _ Kernel = truncationKernel{}

// NewTruncationKernel creates the hard spectral truncation kernel.
//
// Returns:
//   - Kernel: the truncation kernel
func NewTruncationKernel() Kernel {
	return truncationKernel{}
}

func (truncationKernel) Name() string {
	return "truncation"
}

func (truncationKernel) Parameters() []Parameter {
	return []Parameter{
		{Name: "cutoff", Min: 0.0, Max: 1000.0, Default: 50.0, Step: 0.5},
	}
}

func (truncationKernel) Evaluate(lambda float32, params map[string]float32) float32 {
	if lambda <= params["cutoff"] {
		return 1
	}
	return 0
}

func (truncationKernel) Bandwidth(params map[string]float32) float32 {
	return params["cutoff"]
}

func (truncationKernel) Support(params map[string]float32) (float32, float32) {
	return 0, params["cutoff"]
}

var _ BandLimited = truncationKernel{}

// Registry returns the built-in kernels keyed by name.
//
// Returns:
//   - map[string]Kernel: the built-in kernel set
func Registry() map[string]Kernel {
	kernels := []Kernel{
		NewHeatKernel(),
		NewGaussianBandKernel(),
		NewWaveKernel(),
		NewTruncationKernel(),
	}
	out := make(map[string]Kernel, len(kernels))
	for _, k := range kernels {
		out[k.Name()] = k
	}
	return out
}
