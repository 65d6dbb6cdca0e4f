package kernel

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestHeatKernelEvaluate(t *testing.T) {
	k := NewHeatKernel()
	params := map[string]float32{"tau": 0.5}

	if got := k.Evaluate(0, params); got != 1 {
		t.Errorf("Evaluate(0) = %g, want 1", got)
	}
	got := k.Evaluate(2, params)
	want := math32.Exp(-1)
	if math32.Abs(got-want) > 1e-6 {
		t.Errorf("Evaluate(2) = %g, want %g", got, want)
	}
}

func TestHeatKernelMonotoneInLambda(t *testing.T) {
	k := NewHeatKernel()
	params := map[string]float32{"tau": 0.3}
	prev := k.Evaluate(0, params)
	for _, lambda := range []float32{0.5, 1, 2, 4, 8, 16} {
		w := k.Evaluate(lambda, params)
		if w >= prev {
			t.Errorf("weight at lambda=%g is %g, not below %g", lambda, w, prev)
		}
		prev = w
	}
}

func TestTruncationKernelHardCut(t *testing.T) {
	k := NewTruncationKernel()
	params := map[string]float32{"cutoff": 5}
	if got := k.Evaluate(5, params); got != 1 {
		t.Errorf("at cutoff = %g, want 1", got)
	}
	if got := k.Evaluate(5.01, params); got != 0 {
		t.Errorf("past cutoff = %g, want 0", got)
	}
}

func TestHeatKernelSupport(t *testing.T) {
	k := NewHeatKernel().(BandLimited)
	params := map[string]float32{"tau": 0.5}

	if got := k.Bandwidth(params); got != 2 {
		t.Errorf("Bandwidth = %g, want 2", got)
	}
	lo, hi := k.Support(params)
	if lo != 0 {
		t.Errorf("support lower bound = %g, want 0", lo)
	}
	// weights at the upper bound sit exactly on the negligibility threshold
	if got := NewHeatKernel().Evaluate(hi, params); math32.Abs(got-0.01) > 1e-4 {
		t.Errorf("weight at support edge = %g, want 0.01", got)
	}
}

func TestGaussianBandSupportBracketsCenter(t *testing.T) {
	k := NewGaussianBandKernel().(BandLimited)
	params := map[string]float32{"center": 4, "width": 2}
	lo, hi := k.Support(params)
	if lo >= 4 || hi <= 4 {
		t.Errorf("support [%g, %g] does not bracket the center", lo, hi)
	}
	if got := NewGaussianBandKernel().Evaluate(hi, params); math32.Abs(got-0.01) > 1e-4 {
		t.Errorf("weight at support edge = %g, want 0.01", got)
	}
}

func TestFilterSetClamps(t *testing.T) {
	f := NewFilter(NewHeatKernel())
	f.Set("tau", -1)
	if got := f.Param("tau"); got != 0 {
		t.Errorf("below-range value = %g, want 0", got)
	}
	f.Set("tau", 99)
	if got := f.Param("tau"); got != 10 {
		t.Errorf("above-range value = %g, want 10", got)
	}
}

func TestFilterSetUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Set with unknown parameter did not panic")
		}
	}()
	NewFilter(NewHeatKernel()).Set("sigma", 1)
}

func TestEvaluateSpectrumLength(t *testing.T) {
	f := NewFilter(NewGaussianBandKernel())
	lambda := []float32{0, 1, 2, 3, 4}
	weights := f.EvaluateSpectrum(lambda)
	if len(weights) != len(lambda) {
		t.Fatalf("len(weights) = %d, want %d", len(weights), len(lambda))
	}
}

func TestToGPUKernelActiveModes(t *testing.T) {
	// strong smoothing suppresses high modes below the absolute threshold
	f := NewFilter(NewHeatKernel(), WithParam("tau", 2))
	lambda := []float32{0, 0.5, 1, 2, 4, 8}
	gk := f.ToGPUKernel(lambda, ActiveModeThreshold)

	if len(gk.Weights) != len(lambda) {
		t.Fatalf("len(Weights) = %d, want %d", len(gk.Weights), len(lambda))
	}
	if gk.KActive <= 0 || gk.KActive > len(lambda) {
		t.Fatalf("KActive = %d out of range", gk.KActive)
	}
	// every mode at or above KActive must be negligible
	for k := gk.KActive; k < len(gk.Weights); k++ {
		if math32.Abs(gk.Weights[k]) > ActiveModeThreshold {
			t.Errorf("mode %d weight %g above threshold %g", k, gk.Weights[k], ActiveModeThreshold)
		}
	}
	// the last active mode must exceed the threshold
	if math32.Abs(gk.Weights[gk.KActive-1]) <= ActiveModeThreshold {
		t.Errorf("mode %d weight %g not above threshold %g", gk.KActive-1, gk.Weights[gk.KActive-1], ActiveModeThreshold)
	}
}

func TestToGPUKernelAllZero(t *testing.T) {
	f := NewFilter(NewTruncationKernel(), WithParam("cutoff", 0))
	gk := f.ToGPUKernel([]float32{1, 2, 3}, ActiveModeThreshold)
	if gk.KActive != 0 {
		t.Errorf("KActive = %d for all-zero weights, want 0", gk.KActive)
	}
}

func TestToGPUKernelThresholdIsAbsolute(t *testing.T) {
	// heavy smoothing over a high-frequency spectrum leaves every weight
	// small but nonzero; all of them are negligible in absolute terms
	f := NewFilter(NewHeatKernel(), WithParam("tau", 1.2))
	gk := f.ToGPUKernel([]float32{5, 6}, ActiveModeThreshold)

	for k, w := range gk.Weights {
		if w <= 0 || w > ActiveModeThreshold {
			t.Fatalf("weight[%d] = %g, want in (0, %g]", k, w, ActiveModeThreshold)
		}
	}
	if gk.KActive != 0 {
		t.Errorf("KActive = %d with all weights sub-threshold, want 0", gk.KActive)
	}
}

func TestToGPUKernelDefaultThreshold(t *testing.T) {
	f := NewFilter(NewHeatKernel(), WithParam("tau", 1.2))
	got := f.ToGPUKernel([]float32{5, 6}, 0)
	want := f.ToGPUKernel([]float32{5, 6}, ActiveModeThreshold)
	if got.KActive != want.KActive {
		t.Errorf("KActive = %d with fallback threshold, want %d", got.KActive, want.KActive)
	}
}

func TestBuiltinPresetsParse(t *testing.T) {
	presets := BuiltinPresets()
	if len(presets) == 0 {
		t.Fatal("no built-in presets")
	}
	for _, p := range presets {
		f, err := NewFilterFromPreset(p)
		if err != nil {
			t.Fatalf("preset %q: %v", p.Name, err)
		}
		for name, want := range p.Params {
			if got := f.Param(name); got != want {
				t.Errorf("preset %q: %s = %g, want %g", p.Name, name, got, want)
			}
		}
	}
}

func TestParsePresetsRejectsUnknownKernel(t *testing.T) {
	_, err := ParsePresets([]byte("presets:\n  - name: x\n    kernel: butterworth\n"))
	if err == nil {
		t.Error("unknown kernel accepted")
	}
}

func TestParsePresetsRejectsUnknownParam(t *testing.T) {
	_, err := ParsePresets([]byte("presets:\n  - name: x\n    kernel: heat\n    params:\n      sigma: 1\n"))
	if err == nil {
		t.Error("unknown parameter accepted")
	}
}
