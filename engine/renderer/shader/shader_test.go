package shader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/shading"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    *Annotation
		wantErr bool
	}{
		{name: "plain code", line: "let x = 1;"},
		{name: "plain comment", line: "// just a comment"},
		{name: "prefix outside comment", line: "let s = 1; // @lumen:include camera", want: nil},
		{name: "include", line: "//@lumen:include camera", want: &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{"camera"}, Line: 1}},
		{name: "include unknown", line: "//@lumen:include skeleton", wantErr: true},
		{name: "include arity", line: "//@lumen:include", wantErr: true},
		{name: "empty", line: "//@lumen:", wantErr: true},
		{name: "unknown type", line: "//@lumen:bind 0 0", wantErr: true},
		{name: "group bad number", line: "//@lumen:group x 0 storage_uniform camera camera", wantErr: true},
		{name: "group negative", line: "//@lumen:group -1 0 storage_uniform camera camera", wantErr: true},
		{name: "group bad space", line: "//@lumen:group 1 0 workgroup camera camera", wantErr: true},
		{name: "group bad type", line: "//@lumen:group 1 0 storage_uniform camera skeleton", wantErr: true},
		{name: "group arity", line: "//@lumen:group 1 0 storage_uniform camera", wantErr: true},
		{name: "provider bad identity", line: "//@lumen:provider 0 0 shadow", wantErr: true},
		{name: "provider bad role", line: "//@lumen:provider 0 0 material normal_texture", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnnotation(tt.line, 1)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	a, err := parseAnnotation("  //@lumen:provider 0 1 material diffuse_sampler", 7)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 0, *a.Group)
	assert.Equal(t, 1, *a.Binding)
	assert.Equal(t, 7, a.Line)
	assert.Equal(t, AnnotationArgMaterial, a.Provider())
}

func TestAnnotation_Provider(t *testing.T) {
	cam, err := parseAnnotation("//@lumen:group 1 0 storage_uniform camera camera", 1)
	require.NoError(t, err)
	assert.Equal(t, AnnotationArgCamera, cam.Provider())

	l, err := parseAnnotation("//@lumen:group 2 0 storage_uniform light light", 1)
	require.NoError(t, err)
	assert.Equal(t, AnnotationArgLights, l.Provider())

	inc, err := parseAnnotation("//@lumen:include camera", 1)
	require.NoError(t, err)
	assert.Equal(t, AnnotationArg(""), inc.Provider())
}

func TestPreProcessor_Process(t *testing.T) {
	pp := NewPreProcessor()
	src := strings.Join([]string{
		"//@lumen:include camera",
		"//@lumen:group 1 0 storage_uniform cam camera",
		"//@lumen:provider 2 0 lights light_array",
		"@group(2) @binding(0) var<storage, read> lights: array<f32>;",
	}, "\n")

	out, err := pp.Process(src)
	require.NoError(t, err)
	assert.Contains(t, out, "struct Camera {")
	assert.Contains(t, out, "@group(1) @binding(0) var<uniform> cam: Camera;")
	assert.NotContains(t, out, "@lumen:")

	decls := pp.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
	assert.Equal(t, AnnotationTypeProvider, decls[1].Type)
	assert.Equal(t, AnnotationArgLightArray, decls[1].Args[1])

	// declarations reset between calls
	_, err = pp.Process("//@lumen:include light")
	require.NoError(t, err)
	assert.Empty(t, pp.Declarations())
}

func TestPreProcessor_Errors(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process("//@lumen:group 0 0 storage_uniform helpers shading")
	assert.Error(t, err, "include-only sources cannot be bound")

	_, err = pp.Process("fn f() {}\n//@lumen:include nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestBuiltinVertex(t *testing.T) {
	s, err := NewBuiltinShader(BuiltinVertex)
	require.NoError(t, err)
	assert.Equal(t, ShaderTypeVertex, s.ShaderType())
	assert.Equal(t, "vs_main", s.EntryPoint())
	assert.Equal(t, "forward_vertex", s.Key())
	require.NotNil(t, s.Module())
	assert.Equal(t, s.Source(), s.Module().WGSLDescriptor.Code)

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 2)

	vertex := layouts[0]
	assert.Equal(t, wgpu.VertexStepModeVertex, vertex.StepMode)
	assert.Equal(t, uint64(32), vertex.ArrayStride)
	require.Len(t, vertex.Attributes, 3)
	assert.Equal(t, wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}, vertex.Attributes[0])
	assert.Equal(t, wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1}, vertex.Attributes[1])
	assert.Equal(t, wgpu.VertexAttribute{Format: wgpu.VertexFormatFloat32x3, Offset: 20, ShaderLocation: 2}, vertex.Attributes[2])

	instance := layouts[1]
	assert.Equal(t, wgpu.VertexStepModeInstance, instance.StepMode)
	assert.Equal(t, uint64(64), instance.ArrayStride)
	require.Len(t, instance.Attributes, 4)
	for i, a := range instance.Attributes {
		assert.Equal(t, uint32(5+i), a.ShaderLocation)
		assert.Equal(t, uint64(16*i), a.Offset)
		assert.Equal(t, wgpu.VertexFormatFloat32x4, a.Format)
	}

	groups := s.BindGroupLayoutDescriptors()
	require.Len(t, groups, 1)
	cam := s.BindGroupLayoutDescriptor(1).Entries
	require.Len(t, cam, 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, cam[0].Buffer.Type)
	assert.Equal(t, uint64(80), cam[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageVertex, cam[0].Visibility)
	assert.Equal(t, "camera", s.BindGroupVarName(1, 0))
}

func TestBuiltinFragments(t *testing.T) {
	tests := []struct {
		name      Builtin
		groups    []int
		lightType wgpu.BufferBindingType
		lightSize uint64
		constants []string
	}{
		{name: BuiltinUnlit, groups: []int{0}},
		{
			name: BuiltinSingleLight, groups: []int{0, 1, 2},
			lightType: wgpu.BufferBindingTypeUniform, lightSize: 32,
			constants: []string{"const AMBIENT_STRENGTH: f32 = 0.1;", "const SHININESS: f32 = 100.0;"},
		},
		{
			name: BuiltinMultiLight, groups: []int{0, 1, 2},
			lightType: wgpu.BufferBindingTypeReadOnlyStorage, lightSize: 4,
			constants: []string{"const AMBIENT_STRENGTH: f32 = 0.01;", "const SHININESS: f32 = 1000.0;"},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			s, err := NewBuiltinShader(tt.name)
			require.NoError(t, err)
			assert.Equal(t, ShaderTypeFragment, s.ShaderType())
			assert.Equal(t, "fs_main", s.EntryPoint())
			assert.Nil(t, s.VertexLayouts())

			groups := s.BindGroupLayoutDescriptors()
			assert.Len(t, groups, len(tt.groups))
			for _, g := range tt.groups {
				assert.Contains(t, groups, g)
			}

			material := s.BindGroupLayoutDescriptor(0).Entries
			require.Len(t, material, 2)
			assert.Equal(t, wgpu.TextureViewDimension2D, material[0].Texture.ViewDimension)
			assert.Equal(t, wgpu.TextureSampleTypeFloat, material[0].Texture.SampleType)
			assert.Equal(t, wgpu.SamplerBindingTypeFiltering, material[1].Sampler.Type)
			assert.Equal(t, wgpu.ShaderStageFragment, material[1].Visibility)

			if tt.lightType != wgpu.BufferBindingTypeUndefined {
				l := s.BindGroupLayoutDescriptor(2).Entries
				require.Len(t, l, 1)
				assert.Equal(t, tt.lightType, l[0].Buffer.Type)
				assert.Equal(t, tt.lightSize, l[0].Buffer.MinBindingSize)
			}
			for _, c := range tt.constants {
				assert.Contains(t, s.Source(), c)
			}

			binding, ok := s.BindGroupFromVarName(0, "s_diffuse")
			assert.True(t, ok)
			assert.Equal(t, 1, binding)
			_, ok = s.BindGroupFromVarName(0, "missing")
			assert.False(t, ok)
		})
	}
}

func TestBuiltin_Declarations(t *testing.T) {
	s, err := NewBuiltinShader(BuiltinMultiLight)
	require.NoError(t, err)

	providers := map[AnnotationArg]int{}
	for _, d := range s.Declarations() {
		providers[d.Provider()]++
	}
	assert.Equal(t, map[AnnotationArg]int{AnnotationArgMaterial: 2, AnnotationArgCamera: 1, AnnotationArgLights: 1}, providers)
}

func TestWithShadingConfig(t *testing.T) {
	s, err := NewBuiltinShader(BuiltinSingleLight, WithShadingConfig(shading.Config{AmbientStrength: 0.5, Shininess: 8}))
	require.NoError(t, err)
	assert.Contains(t, s.Source(), "const AMBIENT_STRENGTH: f32 = 0.5;")
	assert.Contains(t, s.Source(), "const SHININESS: f32 = 8.0;")
	assert.Equal(t, 1, strings.Count(s.Source(), "const SHININESS"))
}

func TestFragmentBuiltin(t *testing.T) {
	assert.Equal(t, BuiltinUnlit, FragmentBuiltin(light.ModeNone))
	assert.Equal(t, BuiltinSingleLight, FragmentBuiltin(light.ModeSingle))
	assert.Equal(t, BuiltinMultiLight, FragmentBuiltin(light.ModeMulti))
}

func TestNewShader_Errors(t *testing.T) {
	_, err := NewBuiltinShader("missing")
	assert.Error(t, err)

	_, err = NewShaderFromSource("no_entry", ShaderTypeFragment, "fn helper() {}")
	assert.True(t, errors.Is(err, ErrInvalidWGSL))

	_, err = NewShaderFromSource("wrong_stage", ShaderTypeVertex, "@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }")
	assert.True(t, errors.Is(err, ErrInvalidWGSL))

	_, err = NewShaderFromSource("bad_annotation", ShaderTypeFragment, "//@lumen:include nothing")
	assert.True(t, errors.Is(err, ErrInvalidWGSL))

	_, err = NewShader("empty", ShaderTypeVertex, "")
	assert.Error(t, err)

	_, err = NewShader("missing_file", ShaderTypeVertex, filepath.Join(t.TempDir(), "nope.wgsl"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidWGSL))
}

func TestNewShader_FromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.wgsl")
	src := "//@lumen:include vertex_output\n@fragment\nfn main(frag: VertexOutput) -> @location(0) vec4<f32> {\n    return vec4<f32>(frag.uv, 0.0, 1.0);\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	s, err := NewShader("flat", ShaderTypeFragment, path, WithConstant("GAIN", 2))
	require.NoError(t, err)
	assert.Equal(t, "main", s.EntryPoint())
	assert.True(t, strings.HasPrefix(s.Source(), "const GAIN: f32 = 2.0;\n"))
	assert.Empty(t, s.BindGroupLayoutDescriptors())
}

func TestFormatF32(t *testing.T) {
	for in, want := range map[float32]string{0.1: "0.1", 100: "100.0", -2.5: "-2.5", 0: "0.0", 1e-3: "0.001"} {
		assert.Equal(t, want, formatF32(in))
	}
}

func TestShaderType_String(t *testing.T) {
	assert.Equal(t, "vertex", ShaderTypeVertex.String())
	assert.Equal(t, "fragment", ShaderTypeFragment.String())
	assert.Equal(t, "unknown", ShaderType(9).String())
}

// compileOrSkip validates a shader with the pure-Go compiler, skipping on features it
// does not implement yet.
func compileOrSkip(t *testing.T, s Shader) {
	t.Helper()
	err := s.Validate()
	if err == nil {
		return
	}
	msg := err.Error()
	for _, known := range []string{"not yet implemented", "not supported", "runtime-sized arrays", "lowering error"} {
		if strings.Contains(msg, known) {
			t.Skipf("Skipping: naga limitation: %v", err)
		}
	}
	require.True(t, errors.Is(err, ErrInvalidWGSL))
	t.Fatalf("failed to compile %s: %v", s.Key(), err)
}

func TestBuiltins_Compile(t *testing.T) {
	for _, name := range []Builtin{BuiltinVertex, BuiltinUnlit, BuiltinSingleLight, BuiltinMultiLight} {
		t.Run(string(name), func(t *testing.T) {
			s, err := NewBuiltinShader(name)
			require.NoError(t, err)
			compileOrSkip(t, s)
		})
	}
}

func TestValidate_RejectsBrokenSource(t *testing.T) {
	s, err := NewShaderFromSource("broken", ShaderTypeFragment, "@fragment\nfn fs_main() -> @location(0) vec4<f32> {\n    return undefined_symbol;\n}\n")
	require.NoError(t, err)
	err = s.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWGSL))
}
