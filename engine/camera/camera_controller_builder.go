package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithPosition sets the initial eye position.
//
// Parameters:
//   - x, y, z: world-space coordinates
//
// Returns:
//   - CameraControllerOption: functional option to set the eye position
func WithPosition(x, y, z float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.position = mgl32.Vec3{x, y, z}
	}
}

// WithTarget sets the initial look-at point.
//
// Parameters:
//   - x, y, z: world-space coordinates
//
// Returns:
//   - CameraControllerOption: functional option to set the target
func WithTarget(x, y, z float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.target = mgl32.Vec3{x, y, z}
	}
}

// WithControllerUp sets the up vector used to derive the swing axis.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraControllerOption: functional option to set the up vector
func WithControllerUp(x, y, z float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.up = mgl32.Vec3{x, y, z}
	}
}

// WithSpeed sets the distance moved per Step.
//
// Parameters:
//   - speed: world units per step
//
// Returns:
//   - CameraControllerOption: functional option to set the speed
func WithSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.speed = speed
	}
}
