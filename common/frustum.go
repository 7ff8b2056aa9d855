package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is a plane in 3D space satisfying dot(Normal, p) + Distance = 0.
// Points with a positive signed distance lie on the inner side.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// Frustum holds the six inward-facing planes of a view volume: left, right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// NewFrustum extracts the frustum planes of a view-projection matrix with the Gribb/Hartmann method.
// The matrix must map depth to the WebGPU [0, 1] range, so the near plane is row 2 alone rather than row 3 + row 2.
//
// Parameters:
//   - viewProj: the combined projection * view matrix
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func NewFrustum(viewProj mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)
	raw := [6]mgl32.Vec4{
		r3.Add(r0),
		r3.Sub(r0),
		r3.Add(r1),
		r3.Sub(r1),
		r2,
		r3.Sub(r2),
	}

	var f Frustum
	for i, p := range raw {
		n := p.Vec3()
		l := n.Len()
		if l > 0 {
			f.Planes[i] = Plane{Normal: n.Mul(1 / l), Distance: p.W() / l}
		}
	}
	return f
}

// IntersectsSphere reports whether a bounding sphere is at least partly inside the frustum.
//
// Parameters:
//   - center: the sphere center in world space
//   - radius: the sphere radius
//
// Returns:
//   - bool: false only when the sphere lies entirely outside one of the planes
func (f Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for _, p := range f.Planes {
		if p.Normal.Dot(center)+p.Distance < -radius {
			return false
		}
	}
	return true
}
