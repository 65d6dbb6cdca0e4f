package basis

import (
	"testing"

	"github.com/spectramesh/spectra-go/common"
	"github.com/spectramesh/spectra-go/engine/resource"
)

func newTestData() EigenpairData {
	return EigenpairData{
		Lambda: []float32{0, 1.5},
		Psi: []float32{
			0.5, 0.5, 0.5, 0.5, // mode 0
			0.5, -0.5, 0.5, -0.5, // mode 1
		},
		Mass:   []float32{1, 1, 1, 1},
		NV:     4,
		Layout: LayoutModeMajor,
	}
}

func TestNewBasisDimensions(t *testing.T) {
	m := resource.NewManager(resource.NewMemAllocator(), resource.WithRetainCPU())
	defer m.Dispose()

	b, err := NewBasis(m, "ds", newTestData())
	if err != nil {
		t.Fatalf("NewBasis: %v", err)
	}
	if b.NV() != 4 || b.K() != 2 {
		t.Errorf("NV, K = %d, %d, want 4, 2", b.NV(), b.K())
	}
	if got := len(b.Psi()); got != 8 {
		t.Errorf("len(Psi) = %d, want 8", got)
	}
	if got := m.Count(); got != 3 {
		t.Errorf("manager entries = %d, want 3", got)
	}
}

func TestNewBasisRejectsMismatchedPsi(t *testing.T) {
	m := resource.NewManager(resource.NewMemAllocator())
	defer m.Dispose()

	data := newTestData()
	data.Psi = data.Psi[:7]
	if _, err := NewBasis(m, "ds", data); err == nil {
		t.Error("mismatched eigenvector matrix accepted")
	}
}

func TestNewBasisRejectsMismatchedMass(t *testing.T) {
	m := resource.NewManager(resource.NewMemAllocator())
	defer m.Dispose()

	data := newTestData()
	data.Mass = []float32{1, 1}
	if _, err := NewBasis(m, "ds", data); err == nil {
		t.Error("mismatched mass vector accepted")
	}
}

func TestNewBasisClampsMass(t *testing.T) {
	m := resource.NewManager(resource.NewMemAllocator(), resource.WithRetainCPU())
	defer m.Dispose()

	data := newTestData()
	data.Mass = []float32{1, 0, -0.5, 2}
	b, err := NewBasis(m, "ds", data)
	if err != nil {
		t.Fatalf("NewBasis: %v", err)
	}
	mass := b.Mass()
	if mass[1] != MassEpsilon || mass[2] != MassEpsilon {
		t.Errorf("degenerate entries = %g, %g, want %g", mass[1], mass[2], MassEpsilon)
	}
	if mass[0] != 1 || mass[3] != 2 {
		t.Errorf("healthy entries changed: %v", mass)
	}

	// the uploaded buffer must carry the clamped values too
	uploaded := common.BytesToSlice[float32](m.CPUMirror(b.MassHandle()))
	if uploaded[1] != MassEpsilon {
		t.Errorf("uploaded mass[1] = %g, want %g", uploaded[1], MassEpsilon)
	}
}

func TestNewBasisTransposesVertexMajor(t *testing.T) {
	m := resource.NewManager(resource.NewMemAllocator())
	defer m.Dispose()

	data := newTestData()
	data.Layout = LayoutVertexMajor
	// rows are vertices: vertex v holds (psi0[v], psi1[v])
	data.Psi = []float32{
		0.5, 0.5,
		0.5, -0.5,
		0.5, 0.5,
		0.5, -0.5,
	}
	b, err := NewBasis(m, "ds", data)
	if err != nil {
		t.Fatalf("NewBasis: %v", err)
	}
	want := newTestData().Psi
	for i, v := range b.Psi() {
		if v != want[i] {
			t.Errorf("Psi[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestBasisSharesBuffers(t *testing.T) {
	m := resource.NewManager(resource.NewMemAllocator())
	defer m.Dispose()

	b1, err := NewBasis(m, "ds", newTestData())
	if err != nil {
		t.Fatalf("NewBasis: %v", err)
	}
	b2, err := NewBasis(m, "ds", newTestData())
	if err != nil {
		t.Fatalf("NewBasis (second): %v", err)
	}
	if got := m.Count(); got != 3 {
		t.Errorf("manager entries = %d, want 3", got)
	}
	for _, key := range b1.BufferKeys() {
		if got := m.RefCount(key); got != 2 {
			t.Errorf("refCount(%s) = %d, want 2", key, got)
		}
	}
	b2.Dispose()
	if m.Buffer(b1.PsiHandle()) == nil {
		t.Error("shared eigenvector buffer disposed while first basis lives")
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	m := resource.NewManager(resource.NewMemAllocator())
	defer m.Dispose()

	b, err := NewBasis(m, "ds", newTestData())
	if err != nil {
		t.Fatalf("NewBasis: %v", err)
	}
	b.Dispose()
	b.Dispose()
	if got := m.Count(); got != 0 {
		t.Errorf("manager entries after double dispose = %d, want 0", got)
	}
}
