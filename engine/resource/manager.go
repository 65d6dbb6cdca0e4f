package resource

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/spectramesh/spectra-go/common"
)

// slot is one arena entry. Slots are reused via the free list after disposal
// so Handle indices stay small and allocation churn stays low.
type slot struct {
	key        string
	buffer     Buffer
	layout     BufferLayout
	usage      Usage
	byteLength int
	refCount   int
	cpuMirror  []byte

	// geometry entries participate in the LRU cache and carry the keys of
	// dependent buffers disposed alongside them on eviction.
	geometry   bool
	dependents []string
	lruElem    *list.Element

	// generation guards stale Handles after a slot is recycled.
	generation uint32
}

// Handle is an opaque reference to a managed buffer. Handles are cheap value
// types; a Handle whose slot has been disposed and recycled is detected and
// treated as invalid.
type Handle struct {
	key   string
	index int
	gen   uint32
}

// Key returns the deterministic string key this handle was created under.
//
// Returns:
//   - string: the resource key
func (h Handle) Key() string {
	return h.key
}

// Valid reports whether the handle refers to any slot at all. A true result
// does not guarantee liveness; Manager methods re-validate against the arena.
//
// Returns:
//   - bool: true if the handle was issued by a Manager
func (h Handle) Valid() bool {
	return h.key != ""
}

// manager is the implementation of the Manager interface.
type manager struct {
	mu *sync.Mutex

	alloc Allocator

	slots    []slot
	freeList []int
	byKey    map[string]int

	lru         *list.List // front = most recently used; values are slot indices
	lruCapacity int

	retainCPU bool
}

// Manager owns every GPU-resident buffer in the engine. It deduplicates
// buffers by deterministic string key, reference-counts shared entries, and
// maintains a bounded LRU cache of whole-geometry entries whose eviction
// cascades to their dependent buffers. All three spectral layers acquire
// buffers exclusively through Manager handles.
//
// The Manager performs only memory bookkeeping; it never dispatches compute
// or draw work.
type Manager interface {
	// GetOrCreate returns the existing handle for key with its reference
	// count incremented, or allocates a new buffer initialized with data.
	//
	// Parameters:
	//   - key: deterministic resource key (e.g. "dataset:eigenvectors:64:mode-major")
	//   - data: initial contents; determines the byte length of a new buffer
	//   - layout: logical element layout
	//   - usage: GPU binding usage flags
	//
	// Returns:
	//   - Handle: the deduplicated handle
	//   - error: an error if allocation fails or data is empty for a new entry
	GetOrCreate(key string, data []byte, layout BufferLayout, usage Usage) (Handle, error)

	// CreateEmpty allocates a zero-initialized buffer under the same key
	// discipline as GetOrCreate. Used for compute output targets.
	//
	// Parameters:
	//   - key: deterministic resource key
	//   - byteLength: allocation size in bytes
	//   - layout: logical element layout
	//   - usage: GPU binding usage flags
	//
	// Returns:
	//   - Handle: the deduplicated handle
	//   - error: an error if allocation fails
	CreateEmpty(key string, byteLength int, layout BufferLayout, usage Usage) (Handle, error)

	// Get looks up an existing handle without changing its reference count.
	// Absence is signalled, not an error, so callers can distinguish a
	// missing entry from a failure.
	//
	// Parameters:
	//   - key: the resource key to look up
	//
	// Returns:
	//   - Handle: the handle if present
	//   - bool: true if the key exists
	Get(key string) (Handle, bool)

	// Buffer resolves a handle to its backend buffer, or nil if the handle
	// is stale or disposed.
	//
	// Parameters:
	//   - h: the handle to resolve
	//
	// Returns:
	//   - Buffer: the live buffer, or nil
	Buffer(h Handle) Buffer

	// Write copies data into the buffer behind a handle and refreshes the
	// CPU mirror when one is retained.
	//
	// Parameters:
	//   - h: the destination handle
	//   - offset: destination byte offset
	//   - data: source bytes
	//
	// Returns:
	//   - error: an error if the handle is stale or the write is out of bounds
	Write(h Handle, offset int, data []byte) error

	// CPUMirror returns the retained CPU copy of a buffer's contents, or nil
	// if mirroring is disabled or the handle is stale.
	//
	// Parameters:
	//   - h: the handle to inspect
	//
	// Returns:
	//   - []byte: the mirror bytes, or nil
	CPUMirror(h Handle) []byte

	// RefCount returns the current reference count for a key, or 0 if absent.
	//
	// Parameters:
	//   - key: the resource key
	//
	// Returns:
	//   - int: the reference count
	RefCount(key string) int

	// ByteLength returns the allocation size behind a handle, or 0 if stale.
	//
	// Parameters:
	//   - h: the handle to inspect
	//
	// Returns:
	//   - int: the size in bytes
	ByteLength(h Handle) int

	// Layout returns the logical layout recorded for a handle.
	//
	// Parameters:
	//   - h: the handle to inspect
	//
	// Returns:
	//   - BufferLayout: the layout (zero value if stale)
	Layout(h Handle) BufferLayout

	// RegisterGeometry marks an existing entry as a whole-geometry cache
	// participant with the given dependent buffer keys. Insertion past the
	// LRU capacity evicts the least-recently-touched geometry entry and
	// disposes it together with its dependents.
	//
	// Parameters:
	//   - key: the geometry entry's key (must already exist)
	//   - dependents: keys disposed alongside the entry on eviction
	//
	// Returns:
	//   - error: an error if key does not exist
	RegisterGeometry(key string, dependents ...string) error

	// Touch moves a geometry entry to the most-recently-used end of the LRU
	// list. No-op for unknown or non-geometry keys.
	//
	// Parameters:
	//   - key: the geometry entry's key
	Touch(key string)

	// Release decrements a key's reference count; at zero the buffer is
	// disposed and the CPU mirror dropped. Releasing an unknown key is
	// reported via the return value, not an error.
	//
	// Parameters:
	//   - key: the resource key to release
	//
	// Returns:
	//   - bool: true if the key was present
	Release(key string) bool

	// Count returns the number of live entries.
	//
	// Returns:
	//   - int: the live entry count
	Count() int

	// Dispose releases every live entry regardless of reference count.
	// The Manager must not be used afterwards.
	Dispose()
}

var _ Manager = &manager{}

// DefaultLRUCapacity is the default bound on cached whole-geometry entries.
const DefaultLRUCapacity = 10

// NewManager creates a Manager backed by the given allocator.
//
// Parameters:
//   - alloc: the buffer allocator (must not be nil)
//   - options: functional options to configure the manager
//
// Returns:
//   - Manager: a new Manager instance
func NewManager(alloc Allocator, options ...ManagerOption) Manager {
	if alloc == nil {
		panic("resource: NewManager requires a non-nil Allocator")
	}
	m := &manager{
		mu:          &sync.Mutex{},
		alloc:       alloc,
		byKey:       make(map[string]int),
		lru:         list.New(),
		lruCapacity: DefaultLRUCapacity,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *manager) GetOrCreate(key string, data []byte, layout BufferLayout, usage Usage) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.byKey[key]; ok {
		s := &m.slots[idx]
		s.refCount++
		m.touchLocked(idx)
		return Handle{key: key, index: idx, gen: s.generation}, nil
	}

	if len(data) == 0 {
		return Handle{}, fmt.Errorf("resource: cannot create %q from empty data", key)
	}

	buf, err := m.alloc.Allocate(key, len(data), usage)
	if err != nil {
		return Handle{}, fmt.Errorf("resource: allocating %q: %w", key, err)
	}
	if err := buf.Write(0, data); err != nil {
		buf.Release()
		return Handle{}, fmt.Errorf("resource: uploading %q: %w", key, err)
	}

	var mirror []byte
	if m.retainCPU {
		mirror = make([]byte, len(data))
		copy(mirror, data)
	}

	idx := m.insertLocked(slot{
		key:        key,
		buffer:     buf,
		layout:     layout,
		usage:      usage,
		byteLength: len(data),
		refCount:   1,
		cpuMirror:  mirror,
	})
	return Handle{key: key, index: idx, gen: m.slots[idx].generation}, nil
}

func (m *manager) CreateEmpty(key string, byteLength int, layout BufferLayout, usage Usage) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.byKey[key]; ok {
		s := &m.slots[idx]
		s.refCount++
		m.touchLocked(idx)
		return Handle{key: key, index: idx, gen: s.generation}, nil
	}

	buf, err := m.alloc.Allocate(key, byteLength, usage)
	if err != nil {
		return Handle{}, fmt.Errorf("resource: allocating %q: %w", key, err)
	}

	var mirror []byte
	if m.retainCPU {
		mirror = make([]byte, byteLength)
	}

	idx := m.insertLocked(slot{
		key:        key,
		buffer:     buf,
		layout:     layout,
		usage:      usage,
		byteLength: byteLength,
		refCount:   1,
		cpuMirror:  mirror,
	})
	return Handle{key: key, index: idx, gen: m.slots[idx].generation}, nil
}

func (m *manager) Get(key string) (Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.byKey[key]
	if !ok {
		return Handle{}, false
	}
	return Handle{key: key, index: idx, gen: m.slots[idx].generation}, true
}

func (m *manager) Buffer(h Handle) Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.liveSlotLocked(h)
	if s == nil {
		return nil
	}
	return s.buffer
}

func (m *manager) Write(h Handle, offset int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.liveSlotLocked(h)
	if s == nil {
		return fmt.Errorf("resource: write to stale handle %q", h.key)
	}
	if err := s.buffer.Write(offset, data); err != nil {
		return err
	}
	if s.cpuMirror != nil && offset+len(data) <= len(s.cpuMirror) {
		copy(s.cpuMirror[offset:], data)
	}
	return nil
}

func (m *manager) CPUMirror(h Handle) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.liveSlotLocked(h)
	if s == nil {
		return nil
	}
	return s.cpuMirror
}

func (m *manager) RefCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.byKey[key]
	if !ok {
		return 0
	}
	return m.slots[idx].refCount
}

func (m *manager) ByteLength(h Handle) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.liveSlotLocked(h)
	if s == nil {
		return 0
	}
	return s.byteLength
}

func (m *manager) Layout(h Handle) BufferLayout {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.liveSlotLocked(h)
	if s == nil {
		return BufferLayout{}
	}
	return s.layout
}

func (m *manager) RegisterGeometry(key string, dependents ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byKey[key]
	if !ok {
		return fmt.Errorf("resource: cannot register unknown geometry key %q", key)
	}
	s := &m.slots[idx]
	if s.geometry {
		s.dependents = dependents
		m.touchLocked(idx)
		return nil
	}
	s.geometry = true
	s.dependents = dependents
	s.lruElem = m.lru.PushFront(idx)

	for m.lru.Len() > m.lruCapacity {
		back := m.lru.Back()
		if back == nil {
			break
		}
		evictIdx := back.Value.(int)
		evicted := m.slots[evictIdx]
		common.Logger().Warn("resource: geometry cache full, evicting",
			"key", evicted.key, "capacity", m.lruCapacity)
		m.disposeSlotLocked(evictIdx)
		for _, dep := range evicted.dependents {
			if depIdx, ok := m.byKey[dep]; ok {
				m.disposeSlotLocked(depIdx)
			}
		}
	}
	return nil
}

func (m *manager) Touch(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.byKey[key]
	if !ok {
		return
	}
	m.touchLocked(idx)
}

func (m *manager) Release(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byKey[key]
	if !ok {
		return false
	}
	s := &m.slots[idx]
	s.refCount--
	if s.refCount > 0 {
		return true
	}
	m.disposeSlotLocked(idx)
	return true
}

func (m *manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byKey)
}

func (m *manager) Dispose() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, idx := range m.byKey {
		s := &m.slots[idx]
		if s.buffer != nil {
			s.buffer.Release()
			s.buffer = nil
		}
		s.cpuMirror = nil
	}
	m.byKey = make(map[string]int)
	m.lru.Init()
	m.slots = nil
	m.freeList = nil
}

// insertLocked stores a slot in the arena, reusing a free index when one is
// available, and returns the assigned index. Caller holds the lock.
func (m *manager) insertLocked(s slot) int {
	var idx int
	if n := len(m.freeList); n > 0 {
		idx = m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		s.generation = m.slots[idx].generation + 1
		m.slots[idx] = s
	} else {
		idx = len(m.slots)
		m.slots = append(m.slots, s)
	}
	m.byKey[s.key] = idx
	return idx
}

// liveSlotLocked resolves a handle against the arena, returning nil for
// stale or disposed handles. Caller holds the lock.
func (m *manager) liveSlotLocked(h Handle) *slot {
	if h.index < 0 || h.index >= len(m.slots) {
		return nil
	}
	s := &m.slots[h.index]
	if s.key != h.key || s.generation != h.gen || s.buffer == nil {
		return nil
	}
	return s
}

// touchLocked moves a geometry entry to the MRU end. Caller holds the lock.
func (m *manager) touchLocked(idx int) {
	s := &m.slots[idx]
	if s.lruElem != nil {
		m.lru.MoveToFront(s.lruElem)
	}
}

// disposeSlotLocked releases a slot's buffer and returns its index to the
// free list. Caller holds the lock.
func (m *manager) disposeSlotLocked(idx int) {
	s := &m.slots[idx]
	if s.buffer != nil {
		s.buffer.Release()
		s.buffer = nil
	}
	if s.lruElem != nil {
		m.lru.Remove(s.lruElem)
		s.lruElem = nil
	}
	s.cpuMirror = nil
	s.dependents = nil
	s.geometry = false
	s.refCount = 0
	delete(m.byKey, s.key)
	s.key = ""
	m.freeList = append(m.freeList, idx)
}
