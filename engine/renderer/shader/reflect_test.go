package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reflectFixture = `
/* header /* nested */ still comment */
struct Particle {
    position: vec3f,
    mass: f32,
    @align(16) velocity: vec2<f32>,
    @size(32) tag: u32,
}

struct Params {
    transform: mat3x3<f32>,
    weights: array<vec3<f32>, 2>,
}

struct VertexIn {
    @location(3) color: vec4<f32>, // trailing comment
    @location(2) id: u32,
}

struct InstanceIn {
    @location(0) offset: vec2h,
}

const SCALE: f32 = 2.0;

@group(3) @binding(2) var<storage, read_write> particles: array<Particle>;
@group(3) @binding(0) var<uniform> params: Params;
@group(1) @binding(1) var depth_map: texture_depth_2d;
@group(1) @binding(0) var shadow_sampler: sampler_comparison;
@group(1) @binding(4) var ids: texture_2d<u32>;
var<private> scratch: f32;

fn helper(v: VertexIn) -> f32 {
    if (v.id > 0u) { return 1.0; }
    return 0.0;
}

@vertex
fn main_vs(@builtin(vertex_index) idx: u32, inst: InstanceIn, v: VertexIn) -> @builtin(position) vec4<f32> {
    return vec4<f32>(v.color.xyz * SCALE, 1.0);
}
`

func TestReflect_EntryPoints(t *testing.T) {
	r := reflectSource(reflectFixture)
	assert.Equal(t, "main_vs", r.entryPoint(ShaderTypeVertex))
	assert.Equal(t, "", r.entryPoint(ShaderTypeFragment))
	assert.Nil(t, r.vertexLayouts("helper_missing"))
}

func TestReflect_VertexLayouts(t *testing.T) {
	layouts := reflectSource(reflectFixture).vertexLayouts("main_vs")
	require.Len(t, layouts, 2)

	inst := layouts[0]
	assert.Equal(t, wgpu.VertexStepModeInstance, inst.StepMode)
	assert.Equal(t, uint64(4), inst.ArrayStride)
	assert.Equal(t, []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat16x2, Offset: 0, ShaderLocation: 0}}, inst.Attributes)

	v := layouts[1]
	assert.Equal(t, wgpu.VertexStepModeVertex, v.StepMode)
	assert.Equal(t, uint64(20), v.ArrayStride)
	assert.Equal(t, []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 3},
		{Format: wgpu.VertexFormatUint32, Offset: 16, ShaderLocation: 2},
	}, v.Attributes)
}

func TestReflect_BindGroupLayouts(t *testing.T) {
	groups, names := reflectSource(reflectFixture).bindGroupLayouts(wgpu.ShaderStageCompute)
	require.Len(t, groups, 2)

	buffers := groups[3].Entries
	require.Len(t, buffers, 2)
	assert.Equal(t, uint32(0), buffers[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, buffers[0].Buffer.Type)
	// mat3x3 is three 16 byte columns, the vec3 array strides 16
	assert.Equal(t, uint64(80), buffers[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, buffers[1].Buffer.Type)
	// 12 + 4, velocity aligned to 16, tag padded to 32, rounded to 16
	assert.Equal(t, uint64(64), buffers[1].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageCompute, buffers[1].Visibility)

	handles := groups[1].Entries
	require.Len(t, handles, 3)
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, handles[0].Sampler.Type)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, handles[1].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, handles[1].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeUint, handles[2].Texture.SampleType)

	assert.Equal(t, map[int]map[int]string{
		1: {0: "shadow_sampler", 1: "depth_map", 4: "ids"},
		3: {0: "params", 2: "particles"},
	}, names)
}

func TestLayoutOf(t *testing.T) {
	r := reflectSource(reflectFixture)
	tests := []struct {
		src   string
		size  uint64
		align uint64
	}{
		{"var x: f16;", 2, 2},
		{"var x: vec3<f32>;", 12, 16},
		{"var x: vec2u;", 8, 8},
		{"var x: mat4x4f;", 64, 16},
		{"var x: mat2x3<f32>;", 32, 16},
		{"var x: array<f32, 4u>;", 16, 4},
		{"var x: atomic<u32>;", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			ty := (&tokenStream{toks: tokenize(tt.src)[3:]}).typeExpr()
			size, align, ok := r.layoutOf(ty, 0)
			require.True(t, ok)
			assert.Equal(t, tt.size, size)
			assert.Equal(t, tt.align, align)
		})
	}

	_, _, ok := r.layoutOf(wgslType{name: "texture_2d"}, 0)
	assert.False(t, ok)
	_, _, ok = r.layoutOf(wgslType{name: "Unknown"}, 0)
	assert.False(t, ok)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"a", "<", "b", ">", ">", "c"}, tokenize("a<b>> // x\nc"))
	assert.Equal(t, []string{"x"}, tokenize("/* /* */ */x"))
	assert.Empty(t, tokenize("// only"))
}
