package camera

import (
	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraBuilderOption configures a Camera in NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithUp overrides the +Y world up used to build the view matrix.
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = mgl32.Vec3{x, y, z}
	}
}

// WithFov sets the vertical field of view.
//
// Parameters:
//   - fov: angle in radians
//
// Returns:
//   - CameraBuilderOption: the option
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets width over height. Engines with a window keep it in sync on resize.
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithClipPlanes sets the view distances mapped to depth 0 and 1.
//
// Parameters:
//   - near: distance of the near plane, must be positive
//   - far: distance of the far plane
//
// Returns:
//   - CameraBuilderOption: the option
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}

// WithController replaces the default controller. The camera reads its eye position and
// target from the controller on every Update.
//
// Parameters:
//   - ctrl: the controller
//
// Returns:
//   - CameraBuilderOption: the option
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}

// WithBindGroupProvider replaces the provider that uploads the camera block.
//
// Parameters:
//   - provider: the provider bound at the camera group
//
// Returns:
//   - CameraBuilderOption: the option
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.bindGroupProvider = provider
	}
}
