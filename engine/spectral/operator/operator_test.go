package operator

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/spectramesh/spectra-go/engine/resource"
	"github.com/spectramesh/spectra-go/engine/spectral/basis"
	"github.com/spectramesh/spectra-go/engine/spectral/kernel"
)

// testBasis is a 4-vertex, 2-mode basis with unit mass whose rows are
// orthonormal, so projection followed by reconstruction is exact for
// fields in the span of the modes.
func testBasis(t *testing.T, m resource.Manager) basis.Basis {
	t.Helper()
	b, err := basis.NewBasis(m, "test", basis.EigenpairData{
		Lambda: []float32{0, 1.5},
		Psi: []float32{
			0.5, 0.5, 0.5, 0.5,
			0.5, -0.5, 0.5, -0.5,
		},
		Mass:   []float32{1, 1, 1, 1},
		NV:     4,
		Layout: basis.LayoutModeMajor,
	})
	if err != nil {
		t.Fatalf("NewBasis: %v", err)
	}
	return b
}

func newTestOperator(t *testing.T, f kernel.Filter) (Operator, resource.Manager) {
	t.Helper()
	m := resource.NewManager(resource.NewMemAllocator(), resource.WithRetainCPU())
	b := testBasis(t, m)
	o, err := NewOperator("op", m, b, f,
		WithExecutor(NewCPUExecutor(m, WithWorkers(2))))
	if err != nil {
		t.Fatalf("NewOperator: %v", err)
	}
	t.Cleanup(func() {
		o.Dispose()
		b.Dispose()
		m.Dispose()
	})
	return o, m
}

func near(a, b, tol float32) bool {
	return math32.Abs(a-b) <= tol
}

func TestIdentityRoundTrip(t *testing.T) {
	// heat with tau=0 has unit weight on every mode
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel(), kernel.WithParam("tau", 0)))

	// a field in the span of the two modes: 1*psi0 + 2*psi1
	field := []float32{1.5, -0.5, 1.5, -0.5}
	if err := o.SetInputField(field); err != nil {
		t.Fatalf("SetInputField: %v", err)
	}
	if err := o.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out, err := o.OutputField()
	if err != nil {
		t.Fatalf("OutputField: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("len(out) = %d, want 4", len(out))
	}
	for v := range field {
		if !near(out[v], field[v], 1e-5) {
			t.Errorf("out[%d] = %g, want %g", v, out[v], field[v])
		}
	}
}

func TestZeroKernelZeroOutput(t *testing.T) {
	// a band-pass centered far outside the spectrum makes every weight
	// negligible, so no modes are active
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewGaussianBandKernel(),
		kernel.WithParam("center", 100), kernel.WithParam("width", 0.01)))

	if got := o.Weights().KActive; got != 0 {
		t.Fatalf("KActive = %d, want 0", got)
	}
	if err := o.SetInputField([]float32{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetInputField: %v", err)
	}
	if err := o.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out, err := o.OutputField()
	if err != nil {
		t.Fatalf("OutputField: %v", err)
	}
	for v, val := range out {
		if val != 0 {
			t.Errorf("out[%d] = %g, want 0", v, val)
		}
	}
}

func TestPointSourceCoefficients(t *testing.T) {
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel(), kernel.WithParam("tau", 0.5)))

	// coeff[k] = weight[k] * src_weight * psi[k, source] * mass[source]
	if err := o.SetSource(1, 2); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := o.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	coeff, err := o.Coefficients()
	if err != nil {
		t.Fatalf("Coefficients: %v", err)
	}
	w1 := math32.Exp(-1.5 * 0.5)
	wantCoeff := []float32{1 * 2 * 0.5 * 1, w1 * 2 * -0.5 * 1}
	for k := range wantCoeff {
		if !near(coeff[k], wantCoeff[k], 1e-6) {
			t.Errorf("coeff[%d] = %g, want %g", k, coeff[k], wantCoeff[k])
		}
	}

	out, err := o.OutputField()
	if err != nil {
		t.Fatalf("OutputField: %v", err)
	}
	for v := 0; v < 4; v++ {
		psi0, psi1 := float32(0.5), float32(0.5)
		if v%2 == 1 {
			psi1 = -0.5
		}
		want := wantCoeff[0]*psi0 + wantCoeff[1]*psi1
		if !near(out[v], want, 1e-5) {
			t.Errorf("out[%d] = %g, want %g", v, out[v], want)
		}
	}
}

func TestCoefficientsDecayWithTau(t *testing.T) {
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel(), kernel.WithParam("tau", 0.1)))

	if err := o.SetSource(1, 1); err != nil {
		t.Fatalf("SetSource: %v", err)
	}

	coeffAt := func(tau float32) []float32 {
		if err := o.UpdateParam("tau", tau); err != nil {
			t.Fatalf("UpdateParam(%g): %v", tau, err)
		}
		if err := o.Execute(); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		coeff, err := o.Coefficients()
		if err != nil {
			t.Fatalf("Coefficients: %v", err)
		}
		return coeff
	}

	early := coeffAt(0.1)
	late := coeffAt(2)

	// mode 1 has lambda = 1.5, so its coefficient shrinks as heat spreads
	if !(math32.Abs(late[1]) < math32.Abs(early[1])) {
		t.Errorf("|coeff[1]| at tau=2 is %g, not below %g at tau=0.1", math32.Abs(late[1]), math32.Abs(early[1]))
	}
	if want := -0.5 * math32.Exp(-1.5*2); !near(late[1], want, 1e-6) {
		t.Errorf("coeff[1] at tau=2 = %g, want %g", late[1], want)
	}
	// mode 0 has lambda = 0 and never decays
	if !near(late[0], 0.5, 1e-6) {
		t.Errorf("coeff[0] at tau=2 = %g, want 0.5", late[0])
	}
}

func TestLargeTauDeactivatesAllModes(t *testing.T) {
	m := resource.NewManager(resource.NewMemAllocator(), resource.WithRetainCPU())
	b, err := basis.NewBasis(m, "stiff", basis.EigenpairData{
		Lambda: []float32{5, 6},
		Psi: []float32{
			0.5, 0.5, 0.5, 0.5,
			0.5, -0.5, 0.5, -0.5,
		},
		Mass:   []float32{1, 1, 1, 1},
		NV:     4,
		Layout: basis.LayoutModeMajor,
	})
	if err != nil {
		t.Fatalf("NewBasis: %v", err)
	}
	// exp(-5*1.2) and exp(-6*1.2) are both below the 0.01 cutoff
	o, err := NewOperator("op", m, b, kernel.NewFilter(kernel.NewHeatKernel(), kernel.WithParam("tau", 1.2)),
		WithExecutor(NewCPUExecutor(m, WithWorkers(2))))
	if err != nil {
		t.Fatalf("NewOperator: %v", err)
	}
	t.Cleanup(func() {
		o.Dispose()
		b.Dispose()
		m.Dispose()
	})

	if got := o.Weights().KActive; got != 0 {
		t.Fatalf("KActive = %d, want 0", got)
	}
	if err := o.SetSource(1, 1); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := o.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out, err := o.OutputField()
	if err != nil {
		t.Fatalf("OutputField: %v", err)
	}
	for v, val := range out {
		if val != 0 {
			t.Errorf("out[%d] = %g, want 0", v, val)
		}
	}
}

func TestClearSourcesZeroesOutput(t *testing.T) {
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel(), kernel.WithParam("tau", 0.2)))

	if err := o.SetSource(0, 1); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := o.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if err := o.ClearSources(); err != nil {
		t.Fatalf("ClearSources: %v", err)
	}
	if err := o.Execute(); err != nil {
		t.Fatalf("Execute after clear: %v", err)
	}
	out, err := o.OutputField()
	if err != nil {
		t.Fatalf("OutputField: %v", err)
	}
	for v, val := range out {
		if val != 0 {
			t.Errorf("out[%d] = %g after clear, want 0", v, val)
		}
	}
}

func TestPointSourceMatchesFieldProjection(t *testing.T) {
	f := kernel.NewFilter(kernel.NewHeatKernel(), kernel.WithParam("tau", 0.2))
	o, _ := newTestOperator(t, f)

	// a unit impulse field at vertex 2 projects identically to a unit
	// point source there, since mass is the projection weight in both
	if err := o.SetInputField([]float32{0, 0, 1, 0}); err != nil {
		t.Fatalf("SetInputField: %v", err)
	}
	if err := o.Execute(); err != nil {
		t.Fatalf("Execute (field): %v", err)
	}
	fromField, err := o.OutputField()
	if err != nil {
		t.Fatalf("OutputField (field): %v", err)
	}

	if err := o.SetSource(2, 1); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := o.Execute(); err != nil {
		t.Fatalf("Execute (source): %v", err)
	}
	fromSource, err := o.OutputField()
	if err != nil {
		t.Fatalf("OutputField (source): %v", err)
	}

	for v := range fromField {
		if !near(fromField[v], fromSource[v], 1e-5) {
			t.Errorf("vertex %d: field path %g, source path %g", v, fromField[v], fromSource[v])
		}
	}
}

func TestHeatDiffusionFlattensField(t *testing.T) {
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel(), kernel.WithParam("tau", 0)))

	if err := o.SetSource(0, 1); err != nil {
		t.Fatalf("SetSource: %v", err)
	}

	spread := func(tau float32) float32 {
		if err := o.UpdateParam("tau", tau); err != nil {
			t.Fatalf("UpdateParam(%g): %v", tau, err)
		}
		if err := o.Execute(); err != nil {
			t.Fatalf("Execute: %v", err)
		}
		out, err := o.OutputField()
		if err != nil {
			t.Fatalf("OutputField: %v", err)
		}
		min, max := out[0], out[0]
		for _, v := range out[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		return max - min
	}

	prev := spread(0)
	for _, tau := range []float32{0.25, 0.5, 1, 2, 4} {
		s := spread(tau)
		if s > prev+1e-6 {
			t.Errorf("spread at tau=%g is %g, above %g at smaller tau", tau, s, prev)
		}
		prev = s
	}
}

func TestUpdateParamAllocatesNothing(t *testing.T) {
	o, m := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel()))

	before := m.Count()
	weightsHandle, _ := m.Get("op:weights")
	lenBefore := m.ByteLength(weightsHandle)

	for _, tau := range []float32{0.1, 0.7, 3, 9} {
		if err := o.UpdateParam("tau", tau); err != nil {
			t.Fatalf("UpdateParam: %v", err)
		}
	}

	if got := m.Count(); got != before {
		t.Errorf("entry count changed: %d -> %d", before, got)
	}
	after, ok := m.Get("op:weights")
	if !ok {
		t.Fatal("weight buffer vanished")
	}
	if m.ByteLength(after) != lenBefore {
		t.Errorf("weight buffer resized: %d -> %d", lenBefore, m.ByteLength(after))
	}
	if m.Buffer(weightsHandle) == nil {
		t.Error("original weight buffer handle went stale across updates")
	}
}

func TestUpdateParamUnknownName(t *testing.T) {
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel()))
	if err := o.UpdateParam("sigma", 1); err == nil {
		t.Error("unknown parameter accepted")
	}
}

func TestSetSourceValidation(t *testing.T) {
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel()))

	if err := o.SetSource(-1, 1); err == nil {
		t.Error("negative vertex accepted")
	}
	if err := o.SetSource(4, 1); err == nil {
		t.Error("out-of-range vertex accepted")
	}

	// updating an existing source must not consume a slot
	if err := o.SetSource(0, 1); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	if err := o.SetSource(0, 2); err != nil {
		t.Fatalf("SetSource (update): %v", err)
	}
}

func TestSetInputFieldValidation(t *testing.T) {
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel()))
	if err := o.SetInputField([]float32{1, 2}); err == nil {
		t.Error("wrong-length field accepted")
	}
}

func TestStepAdvancesTime(t *testing.T) {
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewWaveKernel()))
	if err := o.Step(0.5); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := o.Filter().Param("t"); got != 0.5 {
		t.Errorf("t = %g after step, want 0.5", got)
	}
}

func TestComputePassesShape(t *testing.T) {
	o, _ := newTestOperator(t, kernel.NewFilter(kernel.NewHeatKernel()))

	passes := o.ComputePasses()
	if len(passes) != 2 {
		t.Fatalf("pass count = %d, want 2", len(passes))
	}
	if passes[0].PipelineKey != PipelineKeyProjectField {
		t.Errorf("first pass = %q, want %q", passes[0].PipelineKey, PipelineKeyProjectField)
	}
	if passes[0].WorkItems != 2 {
		t.Errorf("projection work items = %d, want K = 2", passes[0].WorkItems)
	}
	if passes[1].PipelineKey != PipelineKeyReconstruct {
		t.Errorf("second pass = %q, want %q", passes[1].PipelineKey, PipelineKeyReconstruct)
	}
	if passes[1].WorkItems != 4 {
		t.Errorf("reconstruction work items = %d, want nV = 4", passes[1].WorkItems)
	}

	if err := o.SetSource(0, 1); err != nil {
		t.Fatalf("SetSource: %v", err)
	}
	passes = o.ComputePasses()
	if passes[0].PipelineKey != PipelineKeyProjectSources {
		t.Errorf("source-mode first pass = %q, want %q", passes[0].PipelineKey, PipelineKeyProjectSources)
	}
}

func TestWorkgroupsRounding(t *testing.T) {
	p := PassDescriptor{WorkItems: 130, WorkgroupSize: 64}
	if got := p.Workgroups(); got != 3 {
		t.Errorf("Workgroups = %d, want 3", got)
	}
	p = PassDescriptor{WorkItems: 0, WorkgroupSize: 64}
	if got := p.Workgroups(); got != 1 {
		t.Errorf("Workgroups for 0 items = %d, want 1", got)
	}
}

func TestShaderSourceCoversAllPipelines(t *testing.T) {
	for _, key := range PipelineKeys() {
		src, err := ShaderSource(key)
		if err != nil {
			t.Errorf("ShaderSource(%q): %v", key, err)
		}
		if src == "" {
			t.Errorf("ShaderSource(%q) is empty", key)
		}
	}
	if _, err := ShaderSource("spectral/unknown"); err == nil {
		t.Error("unknown pipeline key accepted")
	}
}
