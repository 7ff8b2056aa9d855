package renderer

import (
	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lumen/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// DepthFormat is the depth attachment format of the forward pass.
const DepthFormat = wgpu.TextureFormatDepth32Float

// RendererBackend is the GPU API seam of the Renderer. The Renderer owns caching, validation and
// buffer growth; the backend only creates and drives GPU objects. Every method is called from the
// render goroutine.
type RendererBackend interface {
	// ConfigureSurface (re)creates the swapchain, MSAA and depth targets for a surface size.
	ConfigureSurface(width, height int)

	// SetPresentMode selects the present mode used by the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the GPU pipeline for p and stores it with p.SetRenderPipeline.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitMeshBuffers uploads vertex and index data into new buffers on the provider.
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// WriteInstanceBuffer uploads per-instance data, growing the provider's instance buffer when needed.
	WriteInstanceBuffer(provider bind_group_provider.BindGroupProvider, data []byte, count int) error

	// InitBindGroup creates missing buffers and a bind group for the descriptor, replacing any
	// previous bind group on the provider.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView uploads a texture and stores its view on the provider.
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a sampler and stores it on the provider.
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// ReallocateBuffer replaces the buffer at binding with an empty one of size bytes.
	// The caller rebuilds the bind group afterwards.
	ReallocateBuffer(provider bind_group_provider.BindGroupProvider, binding int, size uint64) error

	// WriteBuffers queues every write. Each target buffer is already large enough.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the swapchain texture and begins the main render pass.
	BeginFrame() error

	// DrawCall encodes one indexed, instanced draw in the current render pass.
	DrawCall(p pipeline.Pipeline, mesh, instances bind_group_provider.BindGroupProvider, bindGroups []pipeline.BoundGroup)

	// EndFrame ends the render pass and submits the command buffer.
	EndFrame()

	// Present presents the surface and releases the swapchain texture.
	Present()
}
