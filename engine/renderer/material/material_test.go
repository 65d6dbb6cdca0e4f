package material

import (
	"strings"
	"testing"

	"github.com/chewxy/math32"
)

func TestNormalize(t *testing.T) {
	m := NewFieldMaterial(WithRange(-2, 2))

	cases := []struct {
		x, want float32
	}{
		{-2, 0},
		{0, 0.5},
		{2, 1},
		{-5, 0},
		{5, 1},
	}
	for _, c := range cases {
		if got := m.Normalize(c.x); got != c.want {
			t.Errorf("Normalize(%g) = %g, want %g", c.x, got, c.want)
		}
	}
}

func TestNormalizeDegenerateRange(t *testing.T) {
	// a collapsed range falls back to [0, 1]
	m := NewFieldMaterial(WithRange(3, 3))
	cases := []struct {
		x, want float32
	}{
		{-1, 0},
		{0.25, 0.25},
		{1, 1},
		{3, 1},
	}
	for _, c := range cases {
		if got := m.Normalize(c.x); got != c.want {
			t.Errorf("Normalize(%g) = %g, want %g", c.x, got, c.want)
		}
	}
	params := m.ShadeParams()
	if params.MinValue != 0 {
		t.Errorf("MinValue = %g for collapsed range, want 0", params.MinValue)
	}
	if params.InvRange != 1 {
		t.Errorf("InvRange = %g for collapsed range, want 1", params.InvRange)
	}
}

func TestAutoRange(t *testing.T) {
	m := NewFieldMaterial()
	m.AutoRange([]float32{-1, 4, 2, 0})
	min, max := m.Range()
	if min != -1 || max != 4 {
		t.Errorf("auto range = [%g, %g], want [-1, 4]", min, max)
	}
}

func TestSymmetricRange(t *testing.T) {
	m := NewFieldMaterial(WithRangeMode(RangeModeSymmetric))
	m.AutoRange([]float32{-1, 3, 0.5})
	min, max := m.Range()
	if min != -3 || max != 3 {
		t.Errorf("symmetric range = [%g, %g], want [-3, 3]", min, max)
	}
	if got := m.Normalize(0); got != 0.5 {
		t.Errorf("zero normalizes to %g under symmetric range, want 0.5", got)
	}
}

func TestExplicitRangeIgnoresAutoRange(t *testing.T) {
	m := NewFieldMaterial(WithRange(0, 10))
	m.AutoRange([]float32{-100, 100})
	min, max := m.Range()
	if min != 0 || max != 10 {
		t.Errorf("explicit range moved: [%g, %g]", min, max)
	}
}

func TestColormapEndpoints(t *testing.T) {
	for name, c := range Colormaps() {
		lo := c.At(0)
		hi := c.At(1)
		if lo == hi {
			t.Errorf("%s: endpoints are identical", name)
		}
		// clamped outside [0, 1]
		if c.At(-1) != lo {
			t.Errorf("%s: At(-1) != At(0)", name)
		}
		if c.At(2) != hi {
			t.Errorf("%s: At(2) != At(1)", name)
		}
	}
}

func TestColormapInterpolatesContinuously(t *testing.T) {
	c := Viridis()
	prev := c.At(0)
	for i := 1; i <= 100; i++ {
		cur := c.At(float32(i) / 100)
		for ch := 0; ch < 3; ch++ {
			if math32.Abs(cur[ch]-prev[ch]) > 0.05 {
				t.Fatalf("channel %d jumps by %g at t=%g", ch, cur[ch]-prev[ch], float32(i)/100)
			}
		}
		prev = cur
	}
}

func TestFragmentSourceSplicesColormap(t *testing.T) {
	m := NewFieldMaterial(WithColormap(Coolwarm()))
	src := m.FragmentSource()
	if strings.Contains(src, colormapPlaceholder) {
		t.Error("placeholder survived splicing")
	}
	if !strings.Contains(src, "fn colormap(t: f32) -> vec3<f32>") {
		t.Error("colormap function missing from shader source")
	}
	if !strings.Contains(src, "fn fs_main") {
		t.Error("fragment entry point missing")
	}
}

func TestShadeParamsMarshal(t *testing.T) {
	m := NewFieldMaterial(WithRange(0, 2), WithOpacity(0.5))
	params := m.ShadeParams()
	if params.InvRange != 0.5 {
		t.Errorf("InvRange = %g, want 0.5", params.InvRange)
	}
	buf := params.Marshal()
	if len(buf) != params.Size() {
		t.Errorf("marshaled %d bytes, Size() = %d", len(buf), params.Size())
	}
}

func TestOpacityClamped(t *testing.T) {
	m := NewFieldMaterial()
	m.SetOpacity(2)
	if got := m.Opacity(); got != 1 {
		t.Errorf("opacity = %g, want 1", got)
	}
	m.SetOpacity(-1)
	if got := m.Opacity(); got != 0 {
		t.Errorf("opacity = %g, want 0", got)
	}
}
