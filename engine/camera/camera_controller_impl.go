package camera

import (
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraControllerImpl is the fly implementation of CameraController.
type cameraControllerImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3
	speed    float32

	forward  bool
	backward bool
	left     bool
	right    bool
}

// Compile-time interface compliance check
var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new fly controller looking at the origin from (0, 1, 2).
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:       &sync.Mutex{},
		position: mgl32.Vec3{0, 1, 2},
		target:   mgl32.Vec3{0, 0, 0},
		up:       mgl32.Vec3{0, 1, 0},
		speed:    0.2,
	}
	for _, option := range options {
		option(cc)
	}
	return cc
}

func (cc *cameraControllerImpl) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *cameraControllerImpl) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *cameraControllerImpl) SetPosition(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.position = mgl32.Vec3{x, y, z}
}

func (cc *cameraControllerImpl) SetTarget(x, y, z float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = mgl32.Vec3{x, y, z}
}

func (cc *cameraControllerImpl) Speed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.speed
}

func (cc *cameraControllerImpl) ProcessKey(key int, pressed bool) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	switch key {
	case common.KeyW, common.KeyUp:
		cc.forward = pressed
	case common.KeyS, common.KeyDown:
		cc.backward = pressed
	case common.KeyA, common.KeyLeft:
		cc.left = pressed
	case common.KeyD, common.KeyRight:
		cc.right = pressed
	default:
		return false
	}
	return true
}

func (cc *cameraControllerImpl) Step() {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	forward := cc.target.Sub(cc.position)
	forwardNorm := common.SafeNormalize(forward)

	// stop one step short of the target so the view direction never flips
	if cc.forward && forward.Len() > cc.speed {
		cc.position = cc.position.Add(forwardNorm.Mul(cc.speed))
	}
	if cc.backward {
		cc.position = cc.position.Sub(forwardNorm.Mul(cc.speed))
	}

	right := forwardNorm.Cross(cc.up)

	// swinging keeps the eye at the same distance from the target
	forward = cc.target.Sub(cc.position)
	dist := forward.Len()
	if cc.right {
		cc.position = cc.target.Sub(common.SafeNormalize(forward.Add(right.Mul(cc.speed))).Mul(dist))
	}
	if cc.left {
		cc.position = cc.target.Sub(common.SafeNormalize(forward.Sub(right.Mul(cc.speed))).Mul(dist))
	}
}
