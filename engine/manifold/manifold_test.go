package manifold

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/mat"

	"github.com/spectramesh/spectra-go/engine/resource"
)

func TestNewManifoldValidation(t *testing.T) {
	if _, err := NewManifold("bad", []float32{0, 0}, []float32{0, 0}, []uint32{0, 1, 2}); err == nil {
		t.Error("non-multiple-of-3 positions accepted")
	}
	if _, err := NewManifold("bad", []float32{0, 0, 0}, []float32{0, 1}, []uint32{0, 0, 0}); err == nil {
		t.Error("mismatched normals accepted")
	}
	if _, err := NewManifold("bad", []float32{0, 0, 0}, []float32{0, 1, 0}, []uint32{0, 0, 7}); err == nil {
		t.Error("out-of-range index accepted")
	}
}

func TestUVSphereShape(t *testing.T) {
	s, err := NewUVSphere("sphere", 2, 8, 16)
	if err != nil {
		t.Fatalf("NewUVSphere: %v", err)
	}
	wantNV := 9 * 17
	if got := s.VertexCount(); got != wantNV {
		t.Errorf("VertexCount = %d, want %d", got, wantNV)
	}
	if got := s.BoundingRadius(); math32.Abs(got-2) > 1e-5 {
		t.Errorf("BoundingRadius = %g, want 2", got)
	}
	if got := len(s.VertexData()); got != wantNV*VertexStride {
		t.Errorf("vertex bytes = %d, want %d", got, wantNV*VertexStride)
	}
	if s.IndexCount()%3 != 0 {
		t.Errorf("IndexCount = %d, not a multiple of 3", s.IndexCount())
	}

	// every vertex sits on the sphere
	pos := s.Positions()
	for v := 0; v < s.VertexCount(); v++ {
		r := math32.Sqrt(pos[v*3]*pos[v*3] + pos[v*3+1]*pos[v*3+1] + pos[v*3+2]*pos[v*3+2])
		if math32.Abs(r-2) > 1e-4 {
			t.Fatalf("vertex %d radius = %g, want 2", v, r)
		}
	}
}

func TestSphereEigenbasisDimensions(t *testing.T) {
	data := SphereEigenbasis(1, 8, 16, 2)
	wantK := 9
	wantNV := 9 * 17
	if len(data.Lambda) != wantK {
		t.Errorf("len(Lambda) = %d, want %d", len(data.Lambda), wantK)
	}
	if data.NV != wantNV {
		t.Errorf("NV = %d, want %d", data.NV, wantNV)
	}
	if len(data.Psi) != wantK*wantNV {
		t.Errorf("len(Psi) = %d, want %d", len(data.Psi), wantK*wantNV)
	}
	for i := 1; i < len(data.Lambda); i++ {
		if data.Lambda[i] < data.Lambda[i-1] {
			t.Errorf("Lambda[%d] = %g below Lambda[%d] = %g", i, data.Lambda[i], i-1, data.Lambda[i-1])
		}
	}
	// l(l+1): degree one triplet at 2, degree two quintet at 6
	if data.Lambda[1] != 2 || data.Lambda[4] != 6 {
		t.Errorf("Lambda = %v, want l(l+1) blocks", data.Lambda[:5])
	}
}

func TestSphereEigenbasisOrthonormal(t *testing.T) {
	data := SphereEigenbasis(1, 32, 64, 3)
	k, nv := len(data.Lambda), data.NV

	psi := mat.NewDense(k, nv, nil)
	for m := 0; m < k; m++ {
		for v := 0; v < nv; v++ {
			psi.Set(m, v, float64(data.Psi[m*nv+v]))
		}
	}
	weighted := mat.NewDense(k, nv, nil)
	for m := 0; m < k; m++ {
		for v := 0; v < nv; v++ {
			weighted.Set(m, v, psi.At(m, v)*float64(data.Mass[v]))
		}
	}
	var gram mat.Dense
	gram.Mul(weighted, psi.T())

	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if got := gram.At(i, j); math.Abs(got-want) > 0.05 {
				t.Errorf("gram[%d][%d] = %g, want %g", i, j, got, want)
			}
		}
	}
}

func TestRegisterEntersGeometryCache(t *testing.T) {
	m := resource.NewManager(resource.NewMemAllocator(), resource.WithLRUCapacity(2))
	defer m.Dispose()

	for _, name := range []string{"a", "b", "c"} {
		s, err := NewUVSphere(name, 1, 4, 8)
		if err != nil {
			t.Fatalf("NewUVSphere %s: %v", name, err)
		}
		if err := s.Register(m); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	// capacity 2: the first sphere and its index buffer are gone
	if _, ok := m.Get("a:vertices"); ok {
		t.Error("a:vertices survived eviction")
	}
	if _, ok := m.Get("a:indices"); ok {
		t.Error("dependent a:indices survived eviction")
	}
	for _, key := range []string{"b:vertices", "b:indices", "c:vertices", "c:indices"} {
		if _, ok := m.Get(key); !ok {
			t.Errorf("%s missing", key)
		}
	}
}
