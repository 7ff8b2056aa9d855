package bind_group_provider

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BindingKind classifies what a binding slot holds, independent of the GPU objects behind it.
// Pipelines and providers are matched slot by slot on this value.
type BindingKind int

const (
	// BindingKindUnknown is a slot whose layout entry could not be classified.
	BindingKindUnknown BindingKind = iota
	// BindingKindUniform is a uniform buffer (var<uniform>).
	BindingKindUniform
	// BindingKindReadOnlyStorage is a read-only storage buffer (var<storage, read>).
	BindingKindReadOnlyStorage
	// BindingKindStorage is a read-write storage buffer (var<storage, read_write>).
	BindingKindStorage
	// BindingKindTexture2D is a sampled 2D texture.
	BindingKindTexture2D
	// BindingKindSampler is a filtering or non-filtering sampler.
	BindingKindSampler
)

// String returns the WGSL-flavoured name of the kind.
func (k BindingKind) String() string {
	switch k {
	case BindingKindUniform:
		return "uniform"
	case BindingKindReadOnlyStorage:
		return "storage, read"
	case BindingKindStorage:
		return "storage, read_write"
	case BindingKindTexture2D:
		return "texture_2d"
	case BindingKindSampler:
		return "sampler"
	default:
		return "unknown"
	}
}

// IsBuffer reports whether the kind is backed by a GPU buffer.
func (k BindingKind) IsBuffer() bool {
	return k == BindingKindUniform || k == BindingKindReadOnlyStorage || k == BindingKindStorage
}

// KindOf classifies a bind group layout entry.
//
// Parameters:
//   - e: the layout entry, typically parsed from WGSL
//
// Returns:
//   - BindingKind: the classified kind, or BindingKindUnknown
func KindOf(e wgpu.BindGroupLayoutEntry) BindingKind {
	switch {
	case e.Buffer.Type == wgpu.BufferBindingTypeUniform:
		return BindingKindUniform
	case e.Buffer.Type == wgpu.BufferBindingTypeReadOnlyStorage:
		return BindingKindReadOnlyStorage
	case e.Buffer.Type == wgpu.BufferBindingTypeStorage:
		return BindingKindStorage
	case e.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
		return BindingKindSampler
	case e.Texture.SampleType != wgpu.TextureSampleTypeUndefined && e.Texture.ViewDimension == wgpu.TextureViewDimension2D:
		return BindingKindTexture2D
	default:
		return BindingKindUnknown
	}
}
