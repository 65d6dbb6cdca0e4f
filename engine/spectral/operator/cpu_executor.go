package operator

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"gonum.org/v1/gonum/floats"

	"github.com/spectramesh/spectra-go/common"
	"github.com/spectramesh/spectra-go/engine/resource"
)

// cpuExecutor interprets pass descriptors against the resource manager's
// CPU mirrors. It exists for headless use and as the reference the GPU
// path is checked against; it requires a manager built with
// resource.WithRetainCPU.
type cpuExecutor struct {
	mu        *sync.Mutex
	resources resource.Manager
	pool      worker.DynamicWorkerPool
	workers   int
}

var _ Executor = &cpuExecutor{}

// NewCPUExecutor creates an executor that runs pass lists on the CPU,
// spreading work items across a reusable worker pool.
//
// Parameters:
//   - resources: the resource manager holding CPU-mirrored buffers
//   - options: functional options to configure the executor
//
// Returns:
//   - Executor: a new CPU executor
func NewCPUExecutor(resources resource.Manager, options ...CPUExecutorOption) Executor {
	if resources == nil {
		panic("operator: NewCPUExecutor requires a non-nil resource.Manager")
	}
	e := &cpuExecutor{
		mu:        &sync.Mutex{},
		resources: resources,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range options {
		opt(e)
	}
	// workers are reused across Execute calls and idle-exit when unused
	e.pool = worker.NewDynamicWorkerPool(e.workers, 256, 1*time.Second)
	return e
}

func (e *cpuExecutor) Execute(passes []PassDescriptor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range passes {
		var err error
		switch p.PipelineKey {
		case PipelineKeyProjectField:
			err = e.runProjectField(p)
		case PipelineKeyProjectSources:
			err = e.runProjectSources(p)
		case PipelineKeyReconstruct:
			err = e.runReconstruct(p)
		default:
			err = fmt.Errorf("operator: unknown pipeline %q in pass %q", p.PipelineKey, p.Name)
		}
		if err != nil {
			return fmt.Errorf("operator: pass %q: %w", p.Name, err)
		}
	}
	return nil
}

func (e *cpuExecutor) ReadBuffer(key string) ([]byte, error) {
	mirror, err := e.mirror(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(mirror))
	copy(out, mirror)
	return out, nil
}

// runProjectField computes coeff[k] = w[k] * sum_v psi[k,v] * mass[v] * field[v]
// for the active modes, one dot product per mode; inactive modes are zeroed.
func (e *cpuExecutor) runProjectField(p PassDescriptor) error {
	params, err := e.params(p)
	if err != nil {
		return err
	}
	nv, k := int(params.NV), int(params.K)
	active := activeModes(params)

	psi, err := e.floats(p, BindingEigenvectors, k*nv)
	if err != nil {
		return err
	}
	mass, err := e.floats(p, BindingMass, nv)
	if err != nil {
		return err
	}
	field, err := e.floats(p, BindingInputField, nv)
	if err != nil {
		return err
	}
	weights, err := e.floats(p, BindingWeights, k)
	if err != nil {
		return err
	}

	psi64 := widen(psi[:k*nv])
	mf := make([]float64, nv)
	for v := 0; v < nv; v++ {
		mf[v] = float64(mass[v]) * float64(field[v])
	}

	coeff := make([]float32, k)
	e.parallel(active, func(lo, hi int) {
		for m := lo; m < hi; m++ {
			coeff[m] = weights[m] * float32(floats.Dot(psi64[m*nv:(m+1)*nv], mf))
		}
	})
	return e.write(p, BindingCoefficients, common.SliceToBytes(coeff))
}

// runProjectSources computes coeff[k] = w[k] * sum_s weight_s * psi[k,s] * mass[s]
// over the live source list, skipping the projection sum entirely;
// inactive modes are zeroed.
func (e *cpuExecutor) runProjectSources(p PassDescriptor) error {
	params, err := e.params(p)
	if err != nil {
		return err
	}
	nv, k, sc := int(params.NV), int(params.K), int(params.SourceCount)
	active := activeModes(params)

	psi, err := e.floats(p, BindingEigenvectors, k*nv)
	if err != nil {
		return err
	}
	mass, err := e.floats(p, BindingMass, nv)
	if err != nil {
		return err
	}
	weights, err := e.floats(p, BindingWeights, k)
	if err != nil {
		return err
	}
	srcBytes, err := e.mirror(p.BindingKey(BindingSources))
	if err != nil {
		return err
	}
	sources := common.BytesToSlice[sourceEntry](srcBytes)
	if len(sources) < sc {
		return fmt.Errorf("sources buffer holds %d entries, want %d", len(sources), sc)
	}

	coeff := make([]float32, k)
	e.parallel(active, func(lo, hi int) {
		for m := lo; m < hi; m++ {
			var sum float64
			for s := 0; s < sc; s++ {
				idx := int(sources[s].Index)
				sum += float64(sources[s].Weight) * float64(psi[m*nv+idx]) * float64(mass[idx])
			}
			coeff[m] = weights[m] * float32(sum)
		}
	})
	return e.write(p, BindingCoefficients, common.SliceToBytes(coeff))
}

// runReconstruct computes out[v] = sum_{k < KActive} coeff[k] * psi[k,v].
// Coefficients arrive already scaled by the filter weights.
func (e *cpuExecutor) runReconstruct(p PassDescriptor) error {
	params, err := e.params(p)
	if err != nil {
		return err
	}
	nv, k := int(params.NV), int(params.K)
	active := activeModes(params)

	psi, err := e.floats(p, BindingEigenvectors, k*nv)
	if err != nil {
		return err
	}
	coeff, err := e.floats(p, BindingCoefficients, k)
	if err != nil {
		return err
	}

	psi64 := widen(psi[:k*nv])
	coeff64 := widen(coeff[:active])

	out := make([]float32, nv)
	e.parallel(nv, func(lo, hi int) {
		acc := make([]float64, hi-lo)
		for m := 0; m < active; m++ {
			floats.AddScaled(acc, coeff64[m], psi64[m*nv+lo:m*nv+hi])
		}
		for v := lo; v < hi; v++ {
			out[v] = float32(acc[v-lo])
		}
	})
	return e.write(p, BindingOutputField, common.SliceToBytes(out))
}

// activeModes clamps KActive into [0, K].
func activeModes(params fieldParams) int {
	active := int(params.KActive)
	if k := int(params.K); active > k {
		active = k
	}
	return active
}

// parallel splits [0, items) into per-worker chunks and runs fn on the
// pool, blocking until every chunk completes.
func (e *cpuExecutor) parallel(items int, fn func(lo, hi int)) {
	if items <= 0 {
		return
	}
	chunk := (items + e.workers - 1) / e.workers
	var wg sync.WaitGroup
	taskID := 0
	for lo := 0; lo < items; lo += chunk {
		hi := lo + chunk
		if hi > items {
			hi = items
		}
		wg.Add(1)
		loCap, hiCap := lo, hi
		e.pool.SubmitTask(worker.Task{
			ID: taskID,
			Do: func() (any, error) {
				defer wg.Done()
				fn(loCap, hiCap)
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
}

func (e *cpuExecutor) params(p PassDescriptor) (fieldParams, error) {
	data, err := e.mirror(p.BindingKey(BindingParams))
	if err != nil {
		return fieldParams{}, err
	}
	if len(data) < 16 {
		return fieldParams{}, fmt.Errorf("params buffer has %d bytes, want 16", len(data))
	}
	return common.BytesToSlice[fieldParams](data[:16])[0], nil
}

func (e *cpuExecutor) floats(p PassDescriptor, binding string, minLen int) ([]float32, error) {
	data, err := e.mirror(p.BindingKey(binding))
	if err != nil {
		return nil, fmt.Errorf("binding %q: %w", binding, err)
	}
	vals := common.BytesToSlice[float32](data)
	if len(vals) < minLen {
		return nil, fmt.Errorf("binding %q holds %d values, want %d", binding, len(vals), minLen)
	}
	return vals, nil
}

func (e *cpuExecutor) mirror(key string) ([]byte, error) {
	h, ok := e.resources.Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown buffer %q", key)
	}
	mirror := e.resources.CPUMirror(h)
	if mirror == nil {
		return nil, fmt.Errorf("buffer %q has no CPU mirror; build the manager with resource.WithRetainCPU", key)
	}
	return mirror, nil
}

func (e *cpuExecutor) write(p PassDescriptor, binding string, data []byte) error {
	key := p.BindingKey(binding)
	h, ok := e.resources.Get(key)
	if !ok {
		return fmt.Errorf("unknown buffer %q", key)
	}
	return e.resources.Write(h, 0, data)
}

// widen converts a float32 slice to float64 for gonum kernels.
func widen(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
