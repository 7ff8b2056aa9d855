package material

import (
	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
// The name also labels the material's default bind group provider.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the RGBA tint of the material.
//
// Parameters:
//   - r, g, b, a: the base color components in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(r, g, b, a float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = mgl32.Vec4{
			mgl32.Clamp(r, 0, 1),
			mgl32.Clamp(g, 0, 1),
			mgl32.Clamp(b, 0, 1),
			mgl32.Clamp(a, 0, 1),
		}
	}
}

// WithDiffuseTexture is an option builder that sets the diffuse texture of the material.
//
// Parameters:
//   - tex: the RGBA texture staging data
//
// Returns:
//   - MaterialBuilderOption: a function that applies the diffuse texture option to a material
func WithDiffuseTexture(tex *common.TextureStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.diffuseTexture = tex
	}
}

// WithSampler is an option builder that sets the sampler of the material.
//
// Parameters:
//   - s: the sampler configuration
//
// Returns:
//   - MaterialBuilderOption: a function that applies the sampler option to a material
func WithSampler(s Sampler) MaterialBuilderOption {
	return func(m *material) {
		m.sampler = s
	}
}

// WithBindGroupProvider is an option builder that replaces the default bind group provider.
//
// Parameters:
//   - provider: the bind group provider
//
// Returns:
//   - MaterialBuilderOption: a function that applies the provider option to a material
func WithBindGroupProvider(provider bind_group_provider.BindGroupProvider) MaterialBuilderOption {
	return func(m *material) {
		m.bindGroupProvider = provider
	}
}
