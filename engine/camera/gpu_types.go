package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraBlockSize is the size of the camera uniform in bytes.
const GPUCameraBlockSize = 80

// GPUCameraBlockSource is the canonical WGSL definition of the Camera struct.
// Matches GPUCameraBlock layout exactly (80 bytes, WGSL aligned).
//
//go:embed assets/camera.wgsl
var GPUCameraBlockSource string

// GPUCameraBlock is the GPU-aligned representation of the per-frame camera uniform.
// Matches the WGSL Camera struct layout exactly (see GPUCameraBlockSource).
// Size: 80 bytes.
type GPUCameraBlock struct {
	ViewPosition [4]float32  // offset  0: world-space eye position, w = 1 (vec4<f32>)
	ViewProj     [16]float32 // offset 16: combined view-projection matrix (mat4x4<f32>)
}

// Size returns the size of the GPUCameraBlock struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUCameraBlock) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraBlock struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraBlock) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewPosition[i]))
	}
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.ViewProj[i]))
	}
	return buf
}
