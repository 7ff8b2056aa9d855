package preview

import (
	"image/color"

	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBuilderOption is a function that configures a preview Renderer during construction.
type RendererBuilderOption func(*previewRenderer)

// WithSize sets the output image size. Non-positive values are ignored.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size
func WithSize(width, height int) RendererBuilderOption {
	return func(r *previewRenderer) {
		if width > 0 && height > 0 {
			r.width, r.height = width, height
		}
	}
}

// WithSupersample renders at factor times the output size in each direction and scales the
// result down. Values below 1 are ignored.
//
// Parameters:
//   - factor: the supersampling factor
//
// Returns:
//   - RendererBuilderOption: a function that applies the factor
func WithSupersample(factor int) RendererBuilderOption {
	return func(r *previewRenderer) {
		if factor >= 1 {
			r.supersample = factor
		}
	}
}

// WithWorkers sets the maximum number of rasterizer goroutines. Values below 1 are ignored.
func WithWorkers(n int) RendererBuilderOption {
	return func(r *previewRenderer) {
		if n >= 1 {
			r.workers = n
		}
	}
}

// WithRowsPerTask sets the height of the row band one task rasterizes. Values below 1 are ignored.
func WithRowsPerTask(n int) RendererBuilderOption {
	return func(r *previewRenderer) {
		if n >= 1 {
			r.rowsPerTask = n
		}
	}
}

// WithBackground sets the color the target is cleared to.
func WithBackground(c color.Color) RendererBuilderOption {
	return func(r *previewRenderer) {
		r.background = color.RGBAModel.Convert(c).(color.RGBA)
	}
}

// WithCullMode sets which triangle faces are discarded, as in the GPU pipelines.
//
// Parameters:
//   - mode: wgpu.CullModeNone, wgpu.CullModeFront or wgpu.CullModeBack
//
// Returns:
//   - RendererBuilderOption: a function that applies the cull mode
func WithCullMode(mode wgpu.CullMode) RendererBuilderOption {
	return func(r *previewRenderer) {
		r.cullMode = mode
	}
}

// WithFrontFace sets the winding order of front faces.
func WithFrontFace(face wgpu.FrontFace) RendererBuilderOption {
	return func(r *previewRenderer) {
		r.frontFace = face
	}
}

// WithMode forces the light mode of lit objects instead of deriving it from the light count.
// light.ModeNone draws every object unlit.
//
// Parameters:
//   - m: the mode
//
// Returns:
//   - RendererBuilderOption: a function that forces the mode
func WithMode(m light.Mode) RendererBuilderOption {
	return func(r *previewRenderer) {
		r.mode = m
		r.forceMode = true
	}
}
