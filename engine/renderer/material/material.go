package material

import (
	"image"
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	// DiffuseTextureBinding is the material group binding of the diffuse texture.
	DiffuseTextureBinding = 0
	// DiffuseSamplerBinding is the material group binding of the diffuse sampler.
	DiffuseSamplerBinding = 1
)

// material is the implementation of the Material interface.
type material struct {
	name              string
	baseColor         mgl32.Vec4
	diffuseTexture    *common.TextureStagingData
	sampler           Sampler
	bindGroupProvider bind_group_provider.BindGroupProvider

	imgOnce sync.Once
	img     *image.RGBA
}

// Material defines the interface for a surface material: a diffuse texture read through a sampler,
// tinted by a base color. The bind group provider holds the GPU-side texture view and sampler
// that the fragment stage reads at group 0.
//
// Surface properties are set at construction and are read-only, so Sample is safe for concurrent use.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the material name
	Name() string

	// BaseColor retrieves the RGBA tint multiplied into every texture sample.
	//
	// Returns:
	//   - mgl32.Vec4: the base color, white unless set
	BaseColor() mgl32.Vec4

	// DiffuseTexture retrieves the diffuse texture staging data, or nil if none is set.
	//
	// Returns:
	//   - *common.TextureStagingData: the RGBA texture data
	DiffuseTexture() *common.TextureStagingData

	// Sampler retrieves the sampler used by both the GPU binding and Sample.
	//
	// Returns:
	//   - Sampler: the sampler configuration
	Sampler() Sampler

	// Sample reads the diffuse texture at uv and multiplies the result by the base color.
	// Without a texture the base color is returned.
	//
	// Parameters:
	//   - uv: the interpolated texture coordinate
	//
	// Returns:
	//   - mgl32.Vec4: the RGBA material color
	Sample(uv mgl32.Vec2) mgl32.Vec4

	// BindGroupProvider retrieves the provider declaring the texture and sampler bindings.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the material bind group provider
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// SetBindGroupProvider replaces the bind group provider for this material.
	//
	// Parameters:
	//   - provider: the bind group provider
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// The default material is an untextured white surface sampled with DefaultSampler.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions
//
// Returns:
//   - Material: the configured material
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: mgl32.Vec4{1, 1, 1, 1},
		sampler:   DefaultSampler(),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.name == "" {
		m.name = "material_" + uuid.NewString()
	}
	if m.bindGroupProvider == nil {
		m.bindGroupProvider = bind_group_provider.NewBindGroupProvider(
			m.name,
			bind_group_provider.WithEntry(DiffuseTextureBinding, bind_group_provider.BindingKindTexture2D),
			bind_group_provider.WithEntry(DiffuseSamplerBinding, bind_group_provider.BindingKindSampler),
		)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() mgl32.Vec4 {
	return m.baseColor
}

func (m *material) DiffuseTexture() *common.TextureStagingData {
	return m.diffuseTexture
}

func (m *material) Sampler() Sampler {
	return m.sampler
}

func (m *material) Sample(uv mgl32.Vec2) mgl32.Vec4 {
	m.imgOnce.Do(func() {
		m.img = m.diffuseTexture.Image()
	})
	if m.img == nil {
		return m.baseColor
	}
	s := m.sampler.Sample(m.img, uv)
	return mgl32.Vec4{s[0] * m.baseColor[0], s[1] * m.baseColor[1], s[2] * m.baseColor[2], s[3] * m.baseColor[3]}
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.bindGroupProvider
}

func (m *material) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	m.bindGroupProvider = provider
}

// UploadTexture returns the texture to stage on the GPU for a material. The base color is baked
// into the texels so the shader's single texture sample matches Sample. A material without a
// diffuse texture uploads a 1x1 texture of its base color.
//
// Parameters:
//   - m: the material
//
// Returns:
//   - common.TextureStagingData: the RGBA texture to upload
func UploadTexture(m Material) common.TextureStagingData {
	bc := m.BaseColor()
	tex := m.DiffuseTexture()
	if tex == nil || tex.Width == 0 || tex.Height == 0 {
		return *common.SolidTexture(unorm8(bc[0]), unorm8(bc[1]), unorm8(bc[2]), unorm8(bc[3]))
	}
	if bc == (mgl32.Vec4{1, 1, 1, 1}) {
		return *tex
	}

	pixels := make([]byte, len(tex.Pixels))
	for i, p := range tex.Pixels {
		pixels[i] = unorm8(float32(p) / 255 * bc[i%4])
	}
	return common.TextureStagingData{Pixels: pixels, Width: tex.Width, Height: tex.Height}
}

// unorm8 converts a [0, 1] channel to a byte with rounding.
func unorm8(v float32) uint8 {
	return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
}
