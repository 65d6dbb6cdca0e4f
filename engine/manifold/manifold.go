package manifold

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/spectramesh/spectra-go/common"
	"github.com/spectramesh/spectra-go/engine/resource"
)

// VertexStride is the interleaved vertex size in bytes: position (3 f32)
// followed by normal (3 f32).
const VertexStride = 24

// manifold is the implementation of the Manifold interface.
type manifold struct {
	name           string
	positions      []float32
	normals        []float32
	vertexData     []byte
	indexData      []byte
	vertexCount    int
	indexCount     int
	boundingRadius float32
}

// Manifold is a triangulated closed surface prepared for rendering: an
// interleaved position+normal vertex stream and a triangle index stream.
// Uploading goes through the resource manager so a manifold shared by
// several views is deduplicated, and its GPU buffers participate in the
// geometry cache together with any dependent buffers.
type Manifold interface {
	// Name retrieves the manifold identifier.
	//
	// Returns:
	//   - string: the manifold name
	Name() string

	// VertexData returns the interleaved vertex stream (position, normal).
	//
	// Returns:
	//   - []byte: the vertex data
	VertexData() []byte

	// IndexData returns the triangle index stream (uint32).
	//
	// Returns:
	//   - []byte: the index data
	IndexData() []byte

	// VertexCount returns the number of vertices.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// IndexCount returns the number of indices.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// Positions returns the flat position array (x, y, z per vertex). The
	// slice is shared; do not mutate it.
	//
	// Returns:
	//   - []float32: the positions
	Positions() []float32

	// BoundingRadius returns the radius of the origin-centered bounding
	// sphere.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// VertexKey returns the resource key of the vertex buffer.
	//
	// Returns:
	//   - string: the vertex buffer key
	VertexKey() string

	// IndexKey returns the resource key of the index buffer.
	//
	// Returns:
	//   - string: the index buffer key
	IndexKey() string

	// Register uploads the vertex and index buffers through the resource
	// manager and enters the manifold into the geometry cache. The given
	// dependent keys (basis buffers, field buffers) are disposed alongside
	// the manifold if the cache evicts it.
	//
	// Parameters:
	//   - resources: the resource manager
	//   - dependents: resource keys evicted together with the manifold
	//
	// Returns:
	//   - error: an error if upload fails
	Register(resources resource.Manager, dependents ...string) error

	// Touch marks the manifold recently used in the geometry cache.
	//
	// Parameters:
	//   - resources: the resource manager
	Touch(resources resource.Manager)

	// Unregister releases the manifold's references on its GPU buffers.
	//
	// Parameters:
	//   - resources: the resource manager
	Unregister(resources resource.Manager)
}

var _ Manifold = &manifold{}

// NewManifold builds a manifold from flat position and normal arrays and a
// triangle index list.
//
// Parameters:
//   - name: the manifold identifier
//   - positions: x, y, z per vertex
//   - normals: x, y, z per vertex, same length as positions
//   - indices: triangle indices, length a multiple of 3
//
// Returns:
//   - Manifold: the manifold
//   - error: an error if array lengths are inconsistent
func NewManifold(name string, positions, normals []float32, indices []uint32) (Manifold, error) {
	if len(positions) == 0 || len(positions)%3 != 0 {
		return nil, fmt.Errorf("manifold: %s has %d position floats, want a positive multiple of 3", name, len(positions))
	}
	if len(normals) != len(positions) {
		return nil, fmt.Errorf("manifold: %s has %d normal floats, want %d", name, len(normals), len(positions))
	}
	if len(indices) == 0 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("manifold: %s has %d indices, want a positive multiple of 3", name, len(indices))
	}
	nv := len(positions) / 3
	for _, idx := range indices {
		if int(idx) >= nv {
			return nil, fmt.Errorf("manifold: %s index %d outside [0, %d)", name, idx, nv)
		}
	}

	interleaved := make([]float32, 0, nv*6)
	var radius float32
	for v := 0; v < nv; v++ {
		x, y, z := positions[v*3], positions[v*3+1], positions[v*3+2]
		interleaved = append(interleaved, x, y, z, normals[v*3], normals[v*3+1], normals[v*3+2])
		if r := math32.Sqrt(x*x + y*y + z*z); r > radius {
			radius = r
		}
	}

	return &manifold{
		name:           name,
		positions:      positions,
		normals:        normals,
		vertexData:     common.SliceToBytes(interleaved),
		indexData:      common.SliceToBytes(indices),
		vertexCount:    nv,
		indexCount:     len(indices),
		boundingRadius: radius,
	}, nil
}

func (m *manifold) Name() string {
	return m.name
}

func (m *manifold) VertexData() []byte {
	return m.vertexData
}

func (m *manifold) IndexData() []byte {
	return m.indexData
}

func (m *manifold) VertexCount() int {
	return m.vertexCount
}

func (m *manifold) IndexCount() int {
	return m.indexCount
}

func (m *manifold) Positions() []float32 {
	return m.positions
}

func (m *manifold) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *manifold) VertexKey() string {
	return m.name + ":vertices"
}

func (m *manifold) IndexKey() string {
	return m.name + ":indices"
}

func (m *manifold) Register(resources resource.Manager, dependents ...string) error {
	vertexLayout := resource.BufferLayout{DType: resource.DTypeFloat32, ItemSize: 6}
	if _, err := resources.GetOrCreate(m.VertexKey(), m.vertexData, vertexLayout, resource.UsageVertex); err != nil {
		return err
	}
	indexLayout := resource.BufferLayout{DType: resource.DTypeUint32, ItemSize: 1}
	if _, err := resources.GetOrCreate(m.IndexKey(), m.indexData, indexLayout, resource.UsageIndex); err != nil {
		resources.Release(m.VertexKey())
		return err
	}
	deps := append([]string{m.IndexKey()}, dependents...)
	return resources.RegisterGeometry(m.VertexKey(), deps...)
}

func (m *manifold) Touch(resources resource.Manager) {
	resources.Touch(m.VertexKey())
}

func (m *manifold) Unregister(resources resource.Manager) {
	resources.Release(m.IndexKey())
	resources.Release(m.VertexKey())
}
