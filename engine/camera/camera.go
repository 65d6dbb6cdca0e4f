package camera

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/spectramesh/spectra-go/common"
	"github.com/spectramesh/spectra-go/engine/renderer/bind_group_provider"
)

// cameraCount is an atomic counter used to generate unique bind group provider names for each camera instance.
var cameraCount atomic.Uint64

// elevationLimit keeps the orbit away from the poles so the view matrix
// never degenerates against the up vector.
const elevationLimit = math32.Pi/2 - 0.01

type cameraImpl struct {
	mu *sync.Mutex

	target    [3]float32
	azimuth   float32
	elevation float32
	distance  float32

	minDistance float32
	maxDistance float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32

	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Camera is an orbit camera: it circles a target point at a distance, driven
// by azimuth and elevation angles. Matrices are recomputed on every state
// change, so getters always return current values.
type Camera interface {
	// Target returns the point the camera orbits.
	//
	// Returns:
	//   - x, y, z: the target position
	Target() (x, y, z float32)

	// Position returns the camera's world-space position, derived from the
	// target, azimuth, elevation, and distance.
	//
	// Returns:
	//   - x, y, z: the camera position
	Position() (x, y, z float32)

	// Distance returns the orbit radius.
	//
	// Returns:
	//   - float32: the distance from the target
	Distance() float32

	// Fov returns the field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns the current combined view-projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// Uniform returns the camera state packed for GPU upload.
	//
	// Returns:
	//   - GPUCameraUniform: the view-projection matrix and eye position
	Uniform() GPUCameraUniform

	// BindGroupProvider returns the camera's bind group provider for GPU resources.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bind group provider
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Orbit rotates the camera around the target. Elevation is clamped just
	// short of the poles.
	//
	// Parameters:
	//   - dAzimuth: the azimuth delta in radians
	//   - dElevation: the elevation delta in radians
	Orbit(dAzimuth, dElevation float32)

	// Dolly scales the orbit distance, clamped to the configured limits.
	// Factors below 1 move closer, above 1 move away.
	//
	// Parameters:
	//   - factor: the multiplicative distance change (must be > 0)
	Dolly(factor float32)

	// Frame positions the camera to comfortably fit a sphere of the given
	// radius centered on the target, and widens the far plane to cover it.
	//
	// Parameters:
	//   - radius: the bounding radius to frame (must be > 0)
	Frame(radius float32)

	// SetTarget moves the orbit center.
	//
	// Parameters:
	//   - x, y, z: the new target position
	SetTarget(x, y, z float32)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetFov sets the field of view in radians and recomputes matrices.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetBindGroupProvider sets the camera's bind group provider.
	//
	// Parameters:
	//   - provider: the bind group provider to set
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new orbit Camera with default perspective settings,
// looking at the origin from a distance of 3 units.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:          &sync.Mutex{},
		azimuth:     math32.Pi / 4,
		elevation:   math32.Pi / 8,
		distance:    3.0,
		minDistance: 0.05,
		maxDistance: 1000.0,
		fov:         45.0 * (math32.Pi / 180.0), // radians
		aspect:      1.0,
		near:        0.1,
		far:         100.0,
		bindGroupProvider: bind_group_provider.NewBindGroupProvider(
			"camera_" + strconv.FormatUint(cameraCount.Load(), 10),
		),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	cameraCount.Add(1)
	return c
}

func (c *cameraImpl) Target() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target[0], c.target[1], c.target[2]
}

func (c *cameraImpl) Position() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *cameraImpl) Distance() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.distance
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	px, py, pz := c.positionLocked()
	return GPUCameraUniform{
		ViewProj: c.viewProjectionMatrix,
		Eye:      [4]float32{px, py, pz, 1},
	}
}

func (c *cameraImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindGroupProvider
}

func (c *cameraImpl) Orbit(dAzimuth, dElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.azimuth += dAzimuth
	c.elevation += dElevation
	if c.elevation > elevationLimit {
		c.elevation = elevationLimit
	}
	if c.elevation < -elevationLimit {
		c.elevation = -elevationLimit
	}
	c.updateMatrices()
}

func (c *cameraImpl) Dolly(factor float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if factor <= 0 {
		return
	}
	c.distance *= factor
	if c.distance < c.minDistance {
		c.distance = c.minDistance
	}
	if c.distance > c.maxDistance {
		c.distance = c.maxDistance
	}
	c.updateMatrices()
}

func (c *cameraImpl) Frame(radius float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if radius <= 0 {
		return
	}
	// Distance at which the bounding sphere fills the vertical field of view,
	// with a small margin.
	c.distance = 1.2 * radius / math32.Tan(c.fov/2)
	if c.distance < c.minDistance {
		c.distance = c.minDistance
	}
	if c.far < c.distance+2*radius {
		c.far = c.distance + 2*radius
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindGroupProvider = provider
}

// positionLocked derives the eye position from the spherical orbit state.
// Caller must hold the mutex.
func (c *cameraImpl) positionLocked() (x, y, z float32) {
	cosEl := math32.Cos(c.elevation)
	x = c.target[0] + c.distance*cosEl*math32.Sin(c.azimuth)
	y = c.target[1] + c.distance*math32.Sin(c.elevation)
	z = c.target[2] + c.distance*cosEl*math32.Cos(c.azimuth)
	return x, y, z
}

// updateMatrices recalculates the view, projection, and view-projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	px, py, pz := c.positionLocked()

	common.LookAt(c.viewMatrix[:],
		px, py, pz,
		c.target[0], c.target[1], c.target[2],
		0, 1, 0,
	)

	common.Perspective(c.projectionMatrix[:],
		c.fov, c.aspect, c.near, c.far,
	)

	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
