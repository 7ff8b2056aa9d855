package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// OpenGLToWGPU remaps an OpenGL style clip space (z in [-1, 1]) to the WebGPU clip space (z in [0, 1]).
// It is applied on the left of every projection matrix built with mgl32.Perspective.
var OpenGLToWGPU = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// SafeNormalize returns v scaled to unit length.
// A zero-length vector has no direction and is returned as the zero vector instead of NaNs.
//
// Parameters:
//   - v: the vector to normalize
//
// Returns:
//   - mgl32.Vec3: the unit vector, or the zero vector if v has zero length
func SafeNormalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}

// Reflect reflects the incident vector i about the normal n, matching WGSL reflect(i, n) = i - 2 * dot(n, i) * n.
//
// Parameters:
//   - i: the incident vector
//   - n: the surface normal (expected to be unit length)
//
// Returns:
//   - mgl32.Vec3: the reflected vector
func Reflect(i, n mgl32.Vec3) mgl32.Vec3 {
	return i.Sub(n.Mul(2 * n.Dot(i)))
}

// Clamp01 clamps v to the [0, 1] range.
func Clamp01(v float32) float32 {
	return mgl32.Clamp(v, 0, 1)
}
