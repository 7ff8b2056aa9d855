package material

import (
	"image"
	"math"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// Sampler mirrors the fields of a GPU sampler that decide which texels a UV reads.
// The CPU path and the GPU sampler descriptor are both built from the same value, so a
// preview render addresses the texture exactly like the fragment stage does.
//
// Address modes other than Repeat and MirrorRepeat clamp to the edge. Filters other
// than Linear use nearest-texel lookup.
type Sampler struct {
	AddressModeU wgpu.AddressMode
	AddressModeV wgpu.AddressMode
	MagFilter    wgpu.FilterMode
}

// DefaultSampler returns a clamp-to-edge, nearest-filtered sampler.
//
// Returns:
//   - Sampler: the default sampler
func DefaultSampler() Sampler {
	return Sampler{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeNearest,
	}
}

// Staging converts the sampler into the staging data the renderer uses to create the GPU sampler.
// The W axis follows U and minification follows magnification.
//
// Returns:
//   - common.SamplerStagingData: the GPU sampler configuration
func (s Sampler) Staging() common.SamplerStagingData {
	mip := wgpu.MipmapFilterModeNearest
	if s.MagFilter == wgpu.FilterModeLinear {
		mip = wgpu.MipmapFilterModeLinear
	}
	return common.SamplerStagingData{
		AddressModeU: s.AddressModeU,
		AddressModeV: s.AddressModeV,
		AddressModeW: s.AddressModeU,
		MagFilter:    s.MagFilter,
		MinFilter:    s.MagFilter,
		MipmapFilter: mip,
		LodMinClamp:  0,
		LodMaxClamp:  32,
	}
}

// Sample reads img at uv and returns RGBA in [0, 1]. A nil or empty image returns opaque white,
// which leaves the material base color unchanged when the two are multiplied. A NaN or infinite
// coordinate component reads as 0.
//
// Parameters:
//   - img: the texture
//   - uv: the texture coordinate, (0, 0) at the top-left texel
//
// Returns:
//   - mgl32.Vec4: the sampled color
func (s Sampler) Sample(img *image.RGBA, uv mgl32.Vec2) mgl32.Vec4 {
	if img == nil || img.Rect.Empty() {
		return mgl32.Vec4{1, 1, 1, 1}
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	u, v := finite(uv.X()), finite(uv.Y())

	if s.MagFilter != wgpu.FilterModeLinear {
		x := address(s.AddressModeU, int(math.Floor(u*float64(w))), w)
		y := address(s.AddressModeV, int(math.Floor(v*float64(h))), h)
		return texel(img, x, y)
	}

	fx := u*float64(w) - 0.5
	fy := v*float64(h) - 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	tx := mgl32.Clamp(float32(fx-x0), 0, 1)
	ty := mgl32.Clamp(float32(fy-y0), 0, 1)

	xa := address(s.AddressModeU, int(x0), w)
	xb := address(s.AddressModeU, int(x0)+1, w)
	ya := address(s.AddressModeV, int(y0), h)
	yb := address(s.AddressModeV, int(y0)+1, h)

	top := lerp(texel(img, xa, ya), texel(img, xb, ya), tx)
	bottom := lerp(texel(img, xa, yb), texel(img, xb, yb), tx)
	return lerp(top, bottom, ty)
}

// finite widens a coordinate component, replacing NaN and infinities with 0.
func finite(c float32) float64 {
	f := float64(c)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// address maps a possibly out-of-range texel index into [0, n).
func address(mode wgpu.AddressMode, i, n int) int {
	switch mode {
	case wgpu.AddressModeRepeat:
		return ((i % n) + n) % n
	case wgpu.AddressModeMirrorRepeat:
		period := 2 * n
		m := ((i % period) + period) % period
		if m >= n {
			return period - 1 - m
		}
		return m
	default:
		return min(max(i, 0), n-1)
	}
}

func texel(img *image.RGBA, x, y int) mgl32.Vec4 {
	o := img.PixOffset(img.Rect.Min.X+x, img.Rect.Min.Y+y)
	p := img.Pix[o : o+4 : o+4]
	return mgl32.Vec4{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255, float32(p[3]) / 255}
}

func lerp(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}
