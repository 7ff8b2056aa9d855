package renderer

import (
	"github.com/Carmen-Shannon/lumen/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption configures a Renderer in NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPipeline seeds the pipeline cache. The entry is only looked up by key; its GPU
// object is not created until the pipeline goes through RegisterPipelines.
//
// Parameters:
//   - key: the cache key
//   - p: the pipeline
//
// Returns:
//   - RendererBuilderOption: the option
func WithPipeline(key string, p pipeline.Pipeline) RendererBuilderOption {
	return func(r *renderer) {
		r.pipelineCache[key] = p
	}
}

// WithPresentMode picks between vsync'd FIFO presentation and immediate presentation. It is
// applied when the surface is first configured.
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the sample count of the color and depth targets. MSAA4x is the default and
// the only multisampled count WebGPU guarantees; MSAAOff renders straight to the surface.
//
// Parameters:
//   - count: the sample count
//
// Returns:
//   - RendererBuilderOption: the option
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = &count
	}
}

// WithClearColor sets the color the main render pass clears to.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - RendererBuilderOption: the option
func WithClearColor(c wgpu.Color) RendererBuilderOption {
	return func(r *renderer) {
		r.clearColor = c
	}
}

// WithForceSoftwareRenderer requests the fallback adapter, useful on CI machines that only
// have lavapipe or SwiftShader installed.
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithBackend uses an already constructed backend instead of creating the WebGPU one.
// The window passed to NewRenderer may then be nil.
//
// Parameters:
//   - b: the backend
//
// Returns:
//   - RendererBuilderOption: the option
func WithBackend(b RendererBackend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = b
	}
}
