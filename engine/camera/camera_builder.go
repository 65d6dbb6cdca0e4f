package camera

// CameraBuilderOption is a functional option applied to a camera during construction via NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithTarget sets the point the camera orbits.
//
// Parameters:
//   - x, y, z: the target position
//
// Returns:
//   - CameraBuilderOption: the option function
func WithTarget(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = [3]float32{x, y, z}
	}
}

// WithOrbit sets the initial azimuth and elevation angles in radians.
// Elevation is clamped away from the poles.
//
// Parameters:
//   - azimuth: rotation around the vertical axis
//   - elevation: angle above the horizontal plane
//
// Returns:
//   - CameraBuilderOption: the option function
func WithOrbit(azimuth, elevation float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.azimuth = azimuth
		if elevation > elevationLimit {
			elevation = elevationLimit
		}
		if elevation < -elevationLimit {
			elevation = -elevationLimit
		}
		c.elevation = elevation
	}
}

// WithDistance sets the initial orbit radius.
//
// Parameters:
//   - distance: the distance from the target (ignored when <= 0)
//
// Returns:
//   - CameraBuilderOption: the option function
func WithDistance(distance float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if distance > 0 {
			c.distance = distance
		}
	}
}

// WithDistanceLimits sets the minimum and maximum orbit radius enforced by Dolly.
//
// Parameters:
//   - minDistance: the closest allowed distance
//   - maxDistance: the farthest allowed distance
//
// Returns:
//   - CameraBuilderOption: the option function
func WithDistanceLimits(minDistance, maxDistance float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if minDistance > 0 && maxDistance > minDistance {
			c.minDistance = minDistance
			c.maxDistance = maxDistance
		}
	}
}

// WithFov sets the field of view in radians.
//
// Parameters:
//   - fov: field of view in radians (ignored when <= 0)
//
// Returns:
//   - CameraBuilderOption: the option function
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if fov > 0 {
			c.fov = fov
		}
	}
}

// WithAspect sets the aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio (ignored when <= 0)
//
// Returns:
//   - CameraBuilderOption: the option function
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithClipPlanes sets the near and far clipping plane distances.
//
// Parameters:
//   - near: the near plane distance
//   - far: the far plane distance
//
// Returns:
//   - CameraBuilderOption: the option function
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if near > 0 && far > near {
			c.near = near
			c.far = far
		}
	}
}
