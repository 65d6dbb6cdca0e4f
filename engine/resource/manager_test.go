package resource

import (
	"fmt"
	"testing"

	"github.com/spectramesh/spectra-go/common"
)

func newTestManager(opts ...ManagerOption) Manager {
	opts = append([]ManagerOption{WithRetainCPU()}, opts...)
	return NewManager(NewMemAllocator(), opts...)
}

func f32Bytes(vals ...float32) []byte {
	return common.SliceToBytes(vals)
}

func TestGetOrCreateDeduplicates(t *testing.T) {
	m := newTestManager()
	defer m.Dispose()

	layout := BufferLayout{DType: DTypeFloat32, ItemSize: 1}
	h1, err := m.GetOrCreate("ds:eigenvalues:4", f32Bytes(0, 1, 2, 3), layout, UsageStorage)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	h2, err := m.GetOrCreate("ds:eigenvalues:4", f32Bytes(9, 9, 9, 9), layout, UsageStorage)
	if err != nil {
		t.Fatalf("GetOrCreate (second): %v", err)
	}

	if h1.Key() != h2.Key() {
		t.Errorf("keys differ: %q vs %q", h1.Key(), h2.Key())
	}
	if got := m.RefCount("ds:eigenvalues:4"); got != 2 {
		t.Errorf("refCount = %d, want 2", got)
	}
	if got := m.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}

	// the second call must not re-upload: contents stay from the first call
	mirror := common.BytesToSlice[float32](m.CPUMirror(h2))
	if mirror[0] != 0 || mirror[3] != 3 {
		t.Errorf("dedup re-uploaded data: got %v", mirror)
	}
}

func TestReleaseDisposesAtZero(t *testing.T) {
	m := newTestManager()
	defer m.Dispose()

	layout := BufferLayout{DType: DTypeFloat32, ItemSize: 1}
	h, _ := m.GetOrCreate("ds:mass:4", f32Bytes(1, 1, 1, 1), layout, UsageStorage)
	m.GetOrCreate("ds:mass:4", nil, layout, UsageStorage)

	if ok := m.Release("ds:mass:4"); !ok {
		t.Fatal("Release returned false for live key")
	}
	if got := m.RefCount("ds:mass:4"); got != 1 {
		t.Errorf("refCount after one release = %d, want 1", got)
	}
	if m.Buffer(h) == nil {
		t.Error("buffer disposed while references remain")
	}

	m.Release("ds:mass:4")
	if _, ok := m.Get("ds:mass:4"); ok {
		t.Error("key still present after final release")
	}
	if m.Buffer(h) != nil {
		t.Error("stale handle still resolves to a buffer")
	}
	if ok := m.Release("ds:mass:4"); ok {
		t.Error("Release of absent key returned true")
	}
}

func TestGetAbsenceIsSignalled(t *testing.T) {
	m := newTestManager()
	defer m.Dispose()

	if _, ok := m.Get("never-created"); ok {
		t.Error("Get reported presence for unknown key")
	}
	if got := m.RefCount("never-created"); got != 0 {
		t.Errorf("RefCount for unknown key = %d, want 0", got)
	}
}

func TestCreateEmptyZeroInitialized(t *testing.T) {
	m := newTestManager()
	defer m.Dispose()

	layout := BufferLayout{DType: DTypeFloat32, ItemSize: 1}
	h, err := m.CreateEmpty("field:out", 16, layout, UsageStorage|UsageCopySrc)
	if err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}
	if got := m.ByteLength(h); got != 16 {
		t.Errorf("ByteLength = %d, want 16", got)
	}
	for i, b := range m.CPUMirror(h) {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

func TestWriteUpdatesMirror(t *testing.T) {
	m := newTestManager()
	defer m.Dispose()

	layout := BufferLayout{DType: DTypeFloat32, ItemSize: 1}
	h, _ := m.CreateEmpty("field:in", 16, layout, UsageStorage)
	if err := m.Write(h, 4, f32Bytes(2.5)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	mirror := common.BytesToSlice[float32](m.CPUMirror(h))
	want := []float32{0, 2.5, 0, 0}
	for i := range want {
		if mirror[i] != want[i] {
			t.Errorf("mirror[%d] = %g, want %g", i, mirror[i], want[i])
		}
	}

	if err := m.Write(h, 16, f32Bytes(1)); err == nil {
		t.Error("out-of-bounds write did not error")
	}
}

func TestLRUEvictsLeastRecentlyTouched(t *testing.T) {
	m := newTestManager(WithLRUCapacity(3))
	defer m.Dispose()

	layout := BufferLayout{DType: DTypeFloat32, ItemSize: 1}
	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("mesh:%d", i)
		if _, err := m.GetOrCreate(key, f32Bytes(float32(i)), layout, UsageVertex); err != nil {
			t.Fatalf("GetOrCreate %s: %v", key, err)
		}
		depKey := key + ":psi"
		if _, err := m.GetOrCreate(depKey, f32Bytes(float32(i)), layout, UsageStorage); err != nil {
			t.Fatalf("GetOrCreate %s: %v", depKey, err)
		}
		if err := m.RegisterGeometry(key, depKey); err != nil {
			t.Fatalf("RegisterGeometry %s: %v", key, err)
		}
	}

	// mesh:0 would be LRU; touching it shifts eviction to mesh:1
	m.Touch("mesh:0")

	m.GetOrCreate("mesh:3", f32Bytes(3), layout, UsageVertex)
	if err := m.RegisterGeometry("mesh:3"); err != nil {
		t.Fatalf("RegisterGeometry mesh:3: %v", err)
	}

	if _, ok := m.Get("mesh:1"); ok {
		t.Error("mesh:1 survived eviction")
	}
	if _, ok := m.Get("mesh:1:psi"); ok {
		t.Error("dependent mesh:1:psi survived eviction of its geometry")
	}
	for _, key := range []string{"mesh:0", "mesh:0:psi", "mesh:2", "mesh:2:psi", "mesh:3"} {
		if _, ok := m.Get(key); !ok {
			t.Errorf("%s evicted unexpectedly", key)
		}
	}
}

func TestRegisterGeometryUnknownKey(t *testing.T) {
	m := newTestManager()
	defer m.Dispose()

	if err := m.RegisterGeometry("missing"); err == nil {
		t.Error("RegisterGeometry of unknown key did not error")
	}
}

func TestDisposeClearsEverything(t *testing.T) {
	m := newTestManager()

	layout := BufferLayout{DType: DTypeFloat32, ItemSize: 1}
	h, _ := m.GetOrCreate("a", f32Bytes(1), layout, UsageStorage)
	m.GetOrCreate("b", f32Bytes(2), layout, UsageStorage)

	m.Dispose()
	if got := m.Count(); got != 0 {
		t.Errorf("Count after Dispose = %d, want 0", got)
	}
	if m.Buffer(h) != nil {
		t.Error("handle resolves after Dispose")
	}
}
