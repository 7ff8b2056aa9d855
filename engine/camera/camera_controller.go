package camera

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CameraController defines the interface for camera control systems.
// Controllers own positional state (eye position and look-at target). The Camera reads
// from its controller and computes the view and projection matrices each frame.
//
// The provided implementation is a keyboard fly controller: forward and backward dolly the eye
// along the view direction without passing the target, left and right swing the eye around the
// target while keeping its distance.
type CameraController interface {
	// Position returns the camera's world-space eye position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space eye position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: world-space target position
	Target() mgl32.Vec3

	// SetPosition sets the camera's world-space eye position directly.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetPosition(x, y, z float32)

	// SetTarget sets the look-at point directly.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetTarget(x, y, z float32)

	// Speed returns the distance the eye moves per Step.
	//
	// Returns:
	//   - float32: movement per step in world units
	Speed() float32

	// ProcessKey records the pressed state of a movement key.
	// W/Up move forward, S/Down move backward, A/Left swing left, D/Right swing right.
	//
	// Parameters:
	//   - key: the key code (see common key codes)
	//   - pressed: true on key down, false on key up
	//
	// Returns:
	//   - bool: true if the key is a movement key and was consumed
	ProcessKey(key int, pressed bool) bool

	// Step applies one step of movement for every key currently held.
	// Should be called once per tick before the camera's Update.
	Step()
}
