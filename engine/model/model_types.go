package model

import "github.com/go-gl/mathgl/mgl32"

// Transform places one instance of a model in the world.
type Transform struct {
	// Translation is the world-space position (x, y, z).
	Translation mgl32.Vec3

	// Rotation is the orientation as a unit quaternion.
	Rotation mgl32.Quat

	// Scale is the per-axis scale factor (x, y, z).
	Scale mgl32.Vec3
}

// NewTransform returns a transform at position with the given rotation and unit scale.
//
// Parameters:
//   - position: the world-space position
//   - rotation: the orientation
//
// Returns:
//   - Transform: the transform
func NewTransform(position mgl32.Vec3, rotation mgl32.Quat) Transform {
	return Transform{Translation: position, Rotation: rotation, Scale: mgl32.Vec3{1, 1, 1}}
}

// IdentityTransform returns a transform at the origin with no rotation and unit scale.
func IdentityTransform() Transform {
	return NewTransform(mgl32.Vec3{}, mgl32.QuatIdent())
}

// Matrix returns translation * rotation * scale. A zero quaternion is treated as no rotation.
//
// Returns:
//   - mgl32.Mat4: the model-to-world matrix
func (t Transform) Matrix() mgl32.Mat4 {
	rot := t.Rotation
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	return mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z()).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// GPU converts the transform into its instance buffer record.
func (t Transform) GPU() GPUInstance {
	return GPUInstance{Model: t.Matrix()}
}

// MaxScale returns the largest absolute scale component, used to grow a bounding radius.
func (t Transform) MaxScale() float32 {
	return max(mgl32.Abs(t.Scale.X()), mgl32.Abs(t.Scale.Y()), mgl32.Abs(t.Scale.Z()))
}

// MarshalInstances packs the model matrices of every transform into one instance buffer.
//
// Parameters:
//   - transforms: the instance transforms
//
// Returns:
//   - []byte: len(transforms) * InstanceSize bytes
func MarshalInstances(transforms []Transform) []byte {
	buf := make([]byte, 0, len(transforms)*InstanceSize)
	for _, t := range transforms {
		g := t.GPU()
		buf = append(buf, g.Marshal()...)
	}
	return buf
}

// Mesh is an indexed triangle list sharing one material.
type Mesh struct {
	// Name is the mesh identifier.
	Name string

	// Vertices holds the vertex data.
	Vertices []GPUVertex

	// Indices holds triangle indices into Vertices, three per triangle.
	Indices []uint32

	// MaterialIndex selects the model material, or -1 for the model's default material.
	MaterialIndex int
}

// Quad returns a unit quad in the XY plane facing +Z, centered at the origin,
// with UV (0, 0) at the top-left corner.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - Mesh: the quad
func Quad(size float32) Mesh {
	h := size / 2
	n := [3]float32{0, 0, 1}
	return Mesh{
		Name: "quad",
		Vertices: []GPUVertex{
			{Position: [3]float32{-h, h, 0}, TexCoord: [2]float32{0, 0}, Normal: n},
			{Position: [3]float32{-h, -h, 0}, TexCoord: [2]float32{0, 1}, Normal: n},
			{Position: [3]float32{h, -h, 0}, TexCoord: [2]float32{1, 1}, Normal: n},
			{Position: [3]float32{h, h, 0}, TexCoord: [2]float32{1, 0}, Normal: n},
		},
		Indices:       []uint32{0, 1, 2, 0, 2, 3},
		MaterialIndex: -1,
	}
}

// Cube returns an axis-aligned cube centered at the origin with per-face normals
// and counter-clockwise front faces.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - Mesh: the cube, 24 vertices and 36 indices
func Cube(size float32) Mesh {
	h := size / 2
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}

	m := Mesh{Name: "cube", MaterialIndex: -1}
	for _, f := range faces {
		base := uint32(len(m.Vertices))
		center := f.normal.Mul(h)
		corners := []struct {
			su, sv float32
			uv     [2]float32
		}{
			{-1, 1, [2]float32{0, 0}},
			{-1, -1, [2]float32{0, 1}},
			{1, -1, [2]float32{1, 1}},
			{1, 1, [2]float32{1, 0}},
		}
		for _, c := range corners {
			p := center.Add(f.u.Mul(c.su * h)).Add(f.v.Mul(c.sv * h))
			m.Vertices = append(m.Vertices, GPUVertex{Position: p, TexCoord: c.uv, Normal: f.normal})
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return m
}
