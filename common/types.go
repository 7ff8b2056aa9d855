// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxTextureDimension is the largest edge a decoded texture may have before it is downscaled.
// It matches the default WebGPU maxTextureDimension2D limit.
const MaxTextureDimension = 8192

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
// This is primarily used in the BindGroupProvider to stage texture data before creating the GPU texture and bind group.
type TextureStagingData struct {
	// Pixels is the RGBA pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// The same values drive the CPU material sampler so both paths address texels identically.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail.
	LodMinClamp, LodMaxClamp float32
}

// Image returns the staged pixels as an *image.RGBA sharing the same backing memory.
func (t *TextureStagingData) Image() *image.RGBA {
	if t == nil || t.Width == 0 || t.Height == 0 {
		return nil
	}
	return &image.RGBA{
		Pix:    t.Pixels,
		Stride: int(t.Width) * 4,
		Rect:   image.Rect(0, 0, int(t.Width), int(t.Height)),
	}
}

// NewTextureStagingData converts any decoded image to RGBA staging data.
// Images with an edge longer than MaxTextureDimension are downscaled with Catmull-Rom filtering, preserving the aspect ratio.
//
// Parameters:
//   - img: the decoded source image
//
// Returns:
//   - *TextureStagingData: the RGBA staging data
func NewTextureStagingData(img image.Image) *TextureStagingData {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.Rect(0, 0, w, h)

	if w > MaxTextureDimension || h > MaxTextureDimension {
		scale := float64(MaxTextureDimension) / float64(max(w, h))
		dst = image.Rect(0, 0, max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale)))
	}

	rgba := image.NewRGBA(dst)
	if dst.Dx() == w && dst.Dy() == h {
		xdraw.Draw(rgba, dst, img, bounds.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(rgba, dst, img, bounds, xdraw.Src, nil)
	}

	return &TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(dst.Dx()),
		Height: uint32(dst.Dy()),
	}
}

// DecodeTexture decodes PNG, JPEG, BMP, TIFF or WebP data into RGBA staging data.
//
// Parameters:
//   - r: the encoded image stream
//
// Returns:
//   - *TextureStagingData: the decoded RGBA staging data
//   - error: error if the format is unknown or decoding fails
func DecodeTexture(r io.Reader) (*TextureStagingData, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode texture: %w", err)
	}
	Logger().Debug("texture decoded", "format", format, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return NewTextureStagingData(img), nil
}

// LoadTexture reads and decodes a texture from disk, or from data when it is non-empty.
//
// Parameters:
//   - path: the texture file path, used when data is empty
//   - data: embedded encoded image bytes
//
// Returns:
//   - *TextureStagingData: the decoded RGBA staging data
//   - error: error if the file cannot be read or decoded
func LoadTexture(path string, data []byte) (*TextureStagingData, error) {
	if len(data) > 0 {
		return DecodeTexture(bytes.NewReader(data))
	}
	if path == "" {
		return nil, fmt.Errorf("texture has neither data nor path")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open texture file %s: %w", path, err)
	}
	defer file.Close()

	tex, err := DecodeTexture(file)
	if err != nil {
		return nil, fmt.Errorf("texture file %s: %w", path, err)
	}
	return tex, nil
}

// SolidTexture returns a 1x1 texture filled with the given RGBA color, used when a material has no diffuse map.
func SolidTexture(r, g, b, a uint8) *TextureStagingData {
	return &TextureStagingData{Pixels: []byte{r, g, b, a}, Width: 1, Height: 1}
}
