package model

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFloat(buf []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
}

func TestGPUVertex_Marshal(t *testing.T) {
	v := GPUVertex{Position: [3]float32{1, 2, 3}, TexCoord: [2]float32{0.25, 0.75}, Normal: [3]float32{0, 1, 0}}
	require.Equal(t, VertexSize, v.Size())

	buf := v.Marshal()
	require.Len(t, buf, VertexSize)
	assert.Equal(t, float32(3), readFloat(buf, 2))
	assert.Equal(t, float32(0.25), readFloat(buf, 3))
	assert.Equal(t, float32(0.75), readFloat(buf, 4))
	assert.Equal(t, float32(1), readFloat(buf, 6))

	packed := MarshalVertices([]GPUVertex{v, v})
	assert.Len(t, packed, 2*VertexSize)
	assert.Equal(t, buf, packed[VertexSize:])
}

func TestMarshalIndices(t *testing.T) {
	buf := MarshalIndices([]uint32{0, 1, 70000})
	require.Len(t, buf, 12)
	assert.Equal(t, uint32(70000), binary.LittleEndian.Uint32(buf[8:]))
}

func TestTransform_Matrix(t *testing.T) {
	tr := NewTransform(mgl32.Vec3{1, 2, 3}, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
	p := tr.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 1, p.X(), 1e-5)
	assert.InDelta(t, 2, p.Y(), 1e-5)
	assert.InDelta(t, 2, p.Z(), 1e-5)

	tr.Scale = mgl32.Vec3{2, 2, 2}
	p = tr.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 1, p.Z(), 1e-5)
	assert.Equal(t, float32(2), tr.MaxScale())

	// zero quaternion is no rotation
	zero := Transform{Translation: mgl32.Vec3{0, 0, 5}, Scale: mgl32.Vec3{1, 1, 1}}
	assert.True(t, zero.Matrix().ApproxEqual(mgl32.Translate3D(0, 0, 5)))
	assert.True(t, IdentityTransform().Matrix().ApproxEqual(mgl32.Ident4()))
}

func TestMarshalInstances(t *testing.T) {
	trs := []Transform{IdentityTransform(), NewTransform(mgl32.Vec3{4, 5, 6}, mgl32.QuatIdent())}
	buf := MarshalInstances(trs)
	require.Len(t, buf, 2*InstanceSize)

	// column-major: translation is the fourth column
	second := buf[InstanceSize:]
	assert.Equal(t, float32(4), readFloat(second, 12))
	assert.Equal(t, float32(5), readFloat(second, 13))
	assert.Equal(t, float32(6), readFloat(second, 14))
	assert.Equal(t, float32(1), readFloat(second, 15))

	g := trs[1].GPU()
	assert.Equal(t, InstanceSize, g.Size())
	assert.Equal(t, second, g.Marshal())
}

func assertWindingMatchesNormals(t *testing.T, m Mesh) {
	t.Helper()
	require.Zero(t, len(m.Indices)%3)
	for i := 0; i < len(m.Indices); i += 3 {
		a := mgl32.Vec3(m.Vertices[m.Indices[i]].Position)
		b := mgl32.Vec3(m.Vertices[m.Indices[i+1]].Position)
		c := mgl32.Vec3(m.Vertices[m.Indices[i+2]].Position)
		face := b.Sub(a).Cross(c.Sub(a)).Normalize()
		n := mgl32.Vec3(m.Vertices[m.Indices[i]].Normal)
		assert.True(t, face.ApproxEqual(n), "triangle %d: winding %v normal %v", i/3, face, n)
	}
}

func TestPrimitives(t *testing.T) {
	q := Quad(2)
	assert.Len(t, q.Vertices, 4)
	assert.Len(t, q.Indices, 6)
	assert.Equal(t, -1, q.MaterialIndex)
	assertWindingMatchesNormals(t, q)
	assert.InDelta(t, math.Sqrt2, ComputeBoundingRadius(q.Vertices), 1e-5)

	c := Cube(2)
	assert.Len(t, c.Vertices, 24)
	assert.Len(t, c.Indices, 36)
	assertWindingMatchesNormals(t, c)
	assert.InDelta(t, math.Sqrt(3), ComputeBoundingRadius(c.Vertices), 1e-5)
}

func TestNewModel_Defaults(t *testing.T) {
	m := NewModel(WithMeshes(Cube(1)))
	assert.NotEmpty(t, m.Name())
	require.Len(t, m.Instances(), 1)
	assert.Equal(t, IdentityTransform(), m.Instances()[0])

	p := m.MeshProvider(0)
	require.NotNil(t, p)
	assert.Equal(t, 36, p.IndexCount())
	assert.Len(t, m.VertexData(0), 24*VertexSize)
	assert.Len(t, m.IndexData(0), 36*4)
	assert.InDelta(t, math.Sqrt(3)/2, m.BoundingRadius(), 1e-5)

	def := m.MaterialFor(0)
	require.NotNil(t, def)
	assert.Same(t, def, m.MaterialFor(5))
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, def.Sample(mgl32.Vec2{0.5, 0.5}))
}

func TestModel_InstanceData(t *testing.T) {
	m := NewModel(WithName("crate"), WithMeshes(Cube(1)), WithInstances(IdentityTransform(), IdentityTransform()))
	assert.Equal(t, "crate", m.Name())

	data, dirty := m.InstanceData()
	assert.True(t, dirty)
	assert.Len(t, data, 2*InstanceSize)

	_, dirty = m.InstanceData()
	assert.False(t, dirty)

	m.SetInstance(7, NewTransform(mgl32.Vec3{1, 0, 0}, mgl32.QuatIdent()))
	_, dirty = m.InstanceData()
	assert.False(t, dirty, "out-of-range index is ignored")

	m.SetInstance(1, NewTransform(mgl32.Vec3{9, 0, 0}, mgl32.QuatIdent()))
	data, dirty = m.InstanceData()
	assert.True(t, dirty)
	assert.Equal(t, float32(9), readFloat(data[InstanceSize:], 12))

	trs := []Transform{IdentityTransform()}
	m.SetInstances(trs)
	trs[0].Translation = mgl32.Vec3{3, 3, 3}
	assert.Equal(t, IdentityTransform(), m.Instances()[0], "SetInstances copies")
	data, _ = m.InstanceData()
	assert.Len(t, data, InstanceSize)
}

func TestModel_TakeInstances(t *testing.T) {
	m := NewModel(WithMeshes(Quad(1)))
	trs, dirty := m.TakeInstances()
	assert.True(t, dirty)
	require.Len(t, trs, 1)

	// the snapshot is a copy and shares the dirty flag with InstanceData
	trs[0].Translation = mgl32.Vec3{5, 5, 5}
	_, dirty = m.InstanceData()
	assert.False(t, dirty)
	assert.Equal(t, IdentityTransform(), m.Instances()[0])

	m.SetInstance(0, NewTransform(mgl32.Vec3{0, 2, 0}, mgl32.QuatIdent()))
	trs, dirty = m.TakeInstances()
	assert.True(t, dirty)
	assert.Equal(t, float32(2), trs[0].Translation.Y())
}

const objSource = `# quad and a triangle
mtllib scene.mtl
v -1 1 0
v -1 -1 0
v 1 -1 0
v 1 1 0
vt 0 1
vt 0 0
vt 1 0
vt 1 1
vn 0 0 1
o panel
usemtl floor
f 1/1/1 2/2/1 3/3/1 4/4/1
o tri
usemtl glass
f -4//1 -3//1 -2//1
`

func TestParseOBJ(t *testing.T) {
	data, err := ParseOBJ(strings.NewReader(objSource))
	require.NoError(t, err)
	assert.Equal(t, []string{"scene.mtl"}, data.Libraries)
	require.Len(t, data.Meshes, 2)
	assert.Equal(t, []string{"floor", "glass"}, data.MeshMaterials)

	panel := data.Meshes[0]
	assert.Equal(t, "panel", panel.Name)
	assert.Len(t, panel.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, panel.Indices)
	// V is flipped so the top-left corner samples texel row 0
	assert.Equal(t, [2]float32{0, 0}, panel.Vertices[0].TexCoord)
	assert.Equal(t, [2]float32{0, 1}, panel.Vertices[1].TexCoord)
	assertWindingMatchesNormals(t, panel)

	tri := data.Meshes[1]
	assert.Equal(t, "tri", tri.Name)
	assert.Len(t, tri.Vertices, 3)
	assert.Equal(t, [3]float32{-1, 1, 0}, tri.Vertices[0].Position)
	assert.Equal(t, [2]float32{}, tri.Vertices[0].TexCoord)
}

func TestParseOBJ_SharedVertices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 1 1 0\nf 1 2 3\nf 3 2 4\n"
	data, err := ParseOBJ(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, data.Meshes, 1)
	assert.Len(t, data.Meshes[0].Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 2, 1, 3}, data.Meshes[0].Indices)
	assert.Equal(t, []string{""}, data.MeshMaterials)
}

func TestParseOBJ_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no faces", "v 0 0 0\n"},
		{"short vertex", "v 0 0\n"},
		{"bad number", "v 0 x 0\n"},
		{"two-vertex face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
		{"index out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n"},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n"},
		{"uv out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1/1 2/1 3/1\n"},
		{"usemtl without name", "usemtl\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedOBJ))
		})
	}
}

func TestLoadOBJ(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.obj"), []byte(objSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.mtl"), []byte("newmtl glass\nKd 0 0 1\nnewmtl floor\nKd 1 0 0\n"), 0o644))

	m, err := LoadOBJ(filepath.Join(dir, "scene.obj"), WithInstances(IdentityTransform(), IdentityTransform()))
	require.NoError(t, err)
	assert.Equal(t, "scene", m.Name())
	require.Len(t, m.Meshes(), 2)
	require.Len(t, m.Materials(), 2)
	assert.Len(t, m.Instances(), 2)

	assert.Equal(t, "floor", m.MaterialFor(0).Name())
	assert.Equal(t, "glass", m.MaterialFor(1).Name())
	assert.Equal(t, mgl32.Vec4{0, 0, 1, 1}, m.MaterialFor(1).Sample(mgl32.Vec2{}))
}

func TestLoadOBJ_MissingLibraryFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.obj")
	require.NoError(t, os.WriteFile(path, []byte(objSource), 0o644))

	m, err := LoadOBJ(path)
	require.NoError(t, err)
	assert.Empty(t, m.Materials())
	assert.Equal(t, m.MaterialFor(0), m.MaterialFor(1))

	_, err = LoadOBJ(filepath.Join(dir, "missing.obj"))
	assert.Error(t, err)
}
