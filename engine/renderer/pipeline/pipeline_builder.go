package pipeline

import (
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a Pipeline in NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader attaches the vertex stage. Its declared bindings and vertex buffers
// become part of the pipeline Layout.
//
// Parameters:
//   - s: the vertex stage shader
//
// Returns:
//   - PipelineBuilderOption: the option
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader attaches the fragment stage, which decides the variant's lighting.
//
// Parameters:
//   - s: the fragment stage shader
//
// Returns:
//   - PipelineBuilderOption: the option
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithDepthTestEnabled turns the depth attachment on or off. Forward variants keep it on.
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled controls whether passing fragments store their depth. Overlays
// drawn after the opaque pass usually turn this off.
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithDepthCompare replaces the default Less comparison.
//
// Parameters:
//   - compare: the depth comparison
//
// Returns:
//   - PipelineBuilderOption: the option
func WithDepthCompare(compare wgpu.CompareFunction) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthCompare = compare
	}
}

// WithDepthBias offsets stored depth to fight z-fighting on coplanar geometry.
//
// Parameters:
//   - bias: constant bias in depth units
//   - slopeScale: bias scaled by the polygon slope
//
// Returns:
//   - PipelineBuilderOption: the option
func WithDepthBias(bias int32, slopeScale float32) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthBias = bias
		p.depthBiasSlopeScale = slopeScale
	}
}

// WithBlendEnabled applies the pipeline's blend state to the color target. Without it
// fragments overwrite the target.
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithBlendState replaces the default src-over alpha blend. It only takes effect together
// with WithBlendEnabled(true).
//
// Parameters:
//   - blendState: the color and alpha blend components
//
// Returns:
//   - PipelineBuilderOption: the option
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}

// WithCullMode selects which triangle faces are discarded. The default is back faces.
//
// Parameters:
//   - mode: None, Front or Back
//
// Returns:
//   - PipelineBuilderOption: the option
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithFrontFace sets the winding that counts as front facing. The default is CCW, which is
// what model meshes are wound as.
//
// Parameters:
//   - frontFace: CCW or CW
//
// Returns:
//   - PipelineBuilderOption: the option
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithTopology changes how the index stream is assembled into primitives.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithWriteMask limits which color channels the fragment output writes.
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}
