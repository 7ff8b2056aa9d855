package material

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = mgl32.Vec4{1, 0, 0, 1}
	green = mgl32.Vec4{0, 1, 0, 1}
	blue  = mgl32.Vec4{0, 0, 1, 1}
	white = mgl32.Vec4{1, 1, 1, 1}
)

// checker returns a 2x2 image: red, green on the top row and blue, white below.
func checker() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	img.Set(1, 1, color.RGBA{255, 255, 255, 255})
	return img
}

func assertVec4InDelta(t *testing.T, want, got mgl32.Vec4) {
	t.Helper()
	for i := range 4 {
		assert.InDelta(t, want[i], got[i], 1e-5, "component %d: want %v got %v", i, want, got)
	}
}

func TestSampler_AddressModes(t *testing.T) {
	img := checker()
	tests := []struct {
		name string
		mode wgpu.AddressMode
		u    float32
		want mgl32.Vec4
	}{
		{"clamp inside left", wgpu.AddressModeClampToEdge, 0.25, red},
		{"clamp inside right", wgpu.AddressModeClampToEdge, 0.75, green},
		{"clamp past right", wgpu.AddressModeClampToEdge, 1.5, green},
		{"clamp before left", wgpu.AddressModeClampToEdge, -0.5, red},
		{"repeat past right", wgpu.AddressModeRepeat, 1.25, red},
		{"repeat before left", wgpu.AddressModeRepeat, -0.25, green},
		{"mirror past right", wgpu.AddressModeMirrorRepeat, 1.25, green},
		{"mirror before left", wgpu.AddressModeMirrorRepeat, -0.25, red},
		{"mirror second period", wgpu.AddressModeMirrorRepeat, 2.25, red},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Sampler{AddressModeU: tt.mode, AddressModeV: tt.mode, MagFilter: wgpu.FilterModeNearest}
			assert.Equal(t, tt.want, s.Sample(img, mgl32.Vec2{tt.u, 0.25}))
		})
	}
}

func TestSampler_Linear(t *testing.T) {
	img := checker()
	s := DefaultSampler()
	s.MagFilter = wgpu.FilterModeLinear

	// texel centers return the texel exactly
	assertVec4InDelta(t, red, s.Sample(img, mgl32.Vec2{0.25, 0.25}))
	assertVec4InDelta(t, white, s.Sample(img, mgl32.Vec2{0.75, 0.75}))

	// halfway between red and green
	assertVec4InDelta(t, mgl32.Vec4{0.5, 0.5, 0, 1}, s.Sample(img, mgl32.Vec2{0.5, 0.25}))

	// the image center blends all four texels
	assertVec4InDelta(t, mgl32.Vec4{0.5, 0.5, 0.5, 1}, s.Sample(img, mgl32.Vec2{0.5, 0.5}))
}

func TestSampler_AlwaysFourComponentsInRange(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	img := checker()
	for _, mode := range []wgpu.AddressMode{wgpu.AddressModeRepeat, wgpu.AddressModeMirrorRepeat, wgpu.AddressModeClampToEdge} {
		for _, filter := range []wgpu.FilterMode{wgpu.FilterModeNearest, wgpu.FilterModeLinear} {
			s := Sampler{AddressModeU: mode, AddressModeV: mode, MagFilter: filter}
			for _, uv := range []mgl32.Vec2{
				{-3.7, 0.1}, {0, 0}, {1, 1}, {12.5, -8.25},
				{nan, nan}, {inf, -inf}, {nan, 0.5}, {-inf, inf},
			} {
				out := s.Sample(img, uv)
				for i := range 4 {
					assert.False(t, math.IsNaN(float64(out[i])), "mode %v filter %v uv %v", mode, filter, uv)
					assert.GreaterOrEqual(t, out[i], float32(0))
					assert.LessOrEqual(t, out[i], float32(1))
				}
			}
		}
	}
}

func TestSampler_NonFiniteReadsAsZero(t *testing.T) {
	img := checker()
	for _, filter := range []wgpu.FilterMode{wgpu.FilterModeNearest, wgpu.FilterModeLinear} {
		s := Sampler{AddressModeU: wgpu.AddressModeClampToEdge, AddressModeV: wgpu.AddressModeClampToEdge, MagFilter: filter}
		want := s.Sample(img, mgl32.Vec2{0, 0})
		assert.Equal(t, want, s.Sample(img, mgl32.Vec2{float32(math.NaN()), float32(math.Inf(-1))}))
	}
}

func TestSampler_NilImage(t *testing.T) {
	assert.Equal(t, white, DefaultSampler().Sample(nil, mgl32.Vec2{0.5, 0.5}))
	assert.Equal(t, white, DefaultSampler().Sample(&image.RGBA{}, mgl32.Vec2{0.5, 0.5}))
}

func TestSampler_Staging(t *testing.T) {
	s := Sampler{AddressModeU: wgpu.AddressModeRepeat, AddressModeV: wgpu.AddressModeMirrorRepeat, MagFilter: wgpu.FilterModeLinear}
	st := s.Staging()
	assert.Equal(t, wgpu.AddressModeRepeat, st.AddressModeU)
	assert.Equal(t, wgpu.AddressModeMirrorRepeat, st.AddressModeV)
	assert.Equal(t, wgpu.AddressModeRepeat, st.AddressModeW)
	assert.Equal(t, wgpu.FilterModeLinear, st.MinFilter)
	assert.Equal(t, wgpu.MipmapFilterModeLinear, st.MipmapFilter)

	def := DefaultSampler().Staging()
	assert.Equal(t, wgpu.AddressModeClampToEdge, def.AddressModeU)
	assert.Equal(t, wgpu.FilterModeNearest, def.MagFilter)
}

func TestNewMaterial_Defaults(t *testing.T) {
	m := NewMaterial()
	assert.NotEmpty(t, m.Name())
	assert.Equal(t, white, m.BaseColor())
	assert.Nil(t, m.DiffuseTexture())
	assert.Equal(t, DefaultSampler(), m.Sampler())
	assert.Equal(t, white, m.Sample(mgl32.Vec2{0.3, 0.7}))

	p := m.BindGroupProvider()
	require.NotNil(t, p)
	assert.Equal(t, m.Name(), p.Label())
	assert.Equal(t, map[int]bind_group_provider.BindingKind{
		DiffuseTextureBinding: bind_group_provider.BindingKindTexture2D,
		DiffuseSamplerBinding: bind_group_provider.BindingKindSampler,
	}, p.Entries())
}

func TestMaterial_SampleTintsTexture(t *testing.T) {
	img := checker()
	tex := &common.TextureStagingData{Pixels: img.Pix, Width: 2, Height: 2}
	m := NewMaterial(WithName("tinted"), WithDiffuseTexture(tex), WithBaseColor(0.5, 1, 1, 0.5))

	assert.Equal(t, "tinted", m.Name())
	assertVec4InDelta(t, mgl32.Vec4{0.5, 0, 0, 0.5}, m.Sample(mgl32.Vec2{0.25, 0.25}))
	assertVec4InDelta(t, mgl32.Vec4{0.5, 1, 1, 0.5}, m.Sample(mgl32.Vec2{0.75, 0.75}))
}

func TestMaterial_BaseColorWithoutTexture(t *testing.T) {
	m := NewMaterial(WithBaseColor(0.8, 0.8, 0.8, 1))
	assert.Equal(t, mgl32.Vec4{0.8, 0.8, 0.8, 1}, m.Sample(mgl32.Vec2{0, 0}))

	clamped := NewMaterial(WithBaseColor(2, -1, 0.5, 1))
	assert.Equal(t, mgl32.Vec4{1, 0, 0.5, 1}, clamped.BaseColor())
}

func TestUploadTexture(t *testing.T) {
	solid := UploadTexture(NewMaterial(WithBaseColor(1, 0.5, 0, 1)))
	assert.Equal(t, common.TextureStagingData{Pixels: []byte{255, 128, 0, 255}, Width: 1, Height: 1}, solid)

	img := checker()
	tex := &common.TextureStagingData{Pixels: img.Pix, Width: 2, Height: 2}
	plain := UploadTexture(NewMaterial(WithDiffuseTexture(tex)))
	assert.Equal(t, *tex, plain)

	tinted := UploadTexture(NewMaterial(WithDiffuseTexture(tex), WithBaseColor(0.5, 1, 1, 1)))
	require.Len(t, tinted.Pixels, 16)
	assert.Equal(t, []byte{128, 0, 0, 255}, tinted.Pixels[0:4], "red texel at half red")
	assert.Equal(t, []byte{128, 255, 255, 255}, tinted.Pixels[12:16], "white texel takes the tint")
	assert.Equal(t, byte(255), tex.Pixels[0], "source texture is not modified")
}

func TestMaterial_SetBindGroupProvider(t *testing.T) {
	m := NewMaterial()
	p := bind_group_provider.NewBindGroupProvider("custom")
	m.SetBindGroupProvider(p)
	assert.Equal(t, p, m.BindGroupProvider())

	m2 := NewMaterial(WithBindGroupProvider(p))
	assert.Equal(t, p, m2.BindGroupProvider())
}

const libSource = `# two materials
newmtl floor
Kd 0.8 0.7 0.6
d 0.5
map_Kd -s 1 1 1 textures/floor.png

newmtl glass pane
Kd 0.1 0.2 0.3
Tr 0.25
Ns 96
illum 2
`

func TestParseMTL(t *testing.T) {
	entries, err := ParseMTL(strings.NewReader(libSource))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, MTLEntry{Name: "floor", Diffuse: [3]float32{0.8, 0.7, 0.6}, Dissolve: 0.5, DiffuseMap: "textures/floor.png"}, entries[0])
	assert.Equal(t, "glass pane", entries[1].Name)
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, entries[1].Diffuse)
	assert.InDelta(t, 0.75, entries[1].Dissolve, 1e-6)
	assert.Empty(t, entries[1].DiffuseMap)
}

func TestParseMTL_Defaults(t *testing.T) {
	entries, err := ParseMTL(strings.NewReader("newmtl bare\n"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, [3]float32{1, 1, 1}, entries[0].Diffuse)
	assert.Equal(t, float32(1), entries[0].Dissolve)
}

func TestParseMTL_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"property before newmtl", "Kd 1 1 1\n"},
		{"newmtl without name", "newmtl\n"},
		{"short Kd", "newmtl a\nKd 1 1\n"},
		{"bad number", "newmtl a\nKd 1 one 1\n"},
		{"empty d", "newmtl a\nd\n"},
		{"map without file", "newmtl a\nmap_Kd\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMTL(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedMTL))
		})
	}
}

func TestLoadMTL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "textures"), 0o755))

	f, err := os.Create(filepath.Join(dir, "textures", "floor.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, checker()))
	require.NoError(t, f.Close())

	lib := filepath.Join(dir, "scene.mtl")
	require.NoError(t, os.WriteFile(lib, []byte(libSource), 0o644))

	materials, err := LoadMTL(lib)
	require.NoError(t, err)
	require.Len(t, materials, 2)

	floor := materials[0]
	require.NotNil(t, floor.DiffuseTexture())
	assert.Equal(t, uint32(2), floor.DiffuseTexture().Width)
	assertVec4InDelta(t, mgl32.Vec4{0.8, 0, 0, 0.5}, floor.Sample(mgl32.Vec2{0.25, 0.25}))

	glass := materials[1]
	assert.Nil(t, glass.DiffuseTexture())
	assertVec4InDelta(t, mgl32.Vec4{0.1, 0.2, 0.3, 0.75}, glass.Sample(mgl32.Vec2{0.5, 0.5}))
}

func TestLoadMTL_Errors(t *testing.T) {
	_, err := LoadMTL(filepath.Join(t.TempDir(), "missing.mtl"))
	assert.Error(t, err)

	dir := t.TempDir()
	lib := filepath.Join(dir, "broken.mtl")
	require.NoError(t, os.WriteFile(lib, []byte("newmtl a\nmap_Kd nowhere.png\n"), 0o644))
	_, err = LoadMTL(lib)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedMTL))
}
