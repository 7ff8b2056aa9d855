// Package shading is the CPU reference of the forward lighting model evaluated by the WGSL variants:
// ambient + Lambert diffuse + Phong specular per light, summed over every light record and
// modulated by the sampled material color.
package shading

import (
	"math"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// Config holds the per-variant lighting constants.
type Config struct {
	// AmbientStrength scales the light color into the constant ambient term.
	AmbientStrength float32
	// Shininess is the Phong specular exponent.
	Shininess float32
}

var (
	// SingleLightConfig is used by the single-light uniform variant.
	SingleLightConfig = Config{AmbientStrength: 0.1, Shininess: 100}

	// MultiLightConfig is used by the light array variant. The lower ambient keeps many
	// lights from washing the image out, the higher exponent tightens highlights.
	MultiLightConfig = Config{AmbientStrength: 0.01, Shininess: 1000}
)

// ConfigForMode returns the constants matching a draw mode. ModeNone has no lighting and
// returns the zero Config.
//
// Parameters:
//   - m: the draw mode
//
// Returns:
//   - Config: the lighting constants
func ConfigForMode(m light.Mode) Config {
	switch m {
	case light.ModeSingle:
		return SingleLightConfig
	case light.ModeMulti:
		return MultiLightConfig
	default:
		return Config{}
	}
}

// Fragment is the interpolated vertex stage output for one covered sample.
type Fragment struct {
	ClipPosition  mgl32.Vec4
	UV            mgl32.Vec2
	Normal        mgl32.Vec3
	WorldPosition mgl32.Vec3
}

// Terms is the contribution of one light split into its three components, before material modulation.
type Terms struct {
	Ambient  mgl32.Vec3
	Diffuse  mgl32.Vec3
	Specular mgl32.Vec3
}

// Sum returns ambient + diffuse + specular.
func (t Terms) Sum() mgl32.Vec3 {
	return t.Ambient.Add(t.Diffuse).Add(t.Specular)
}

// Evaluator shades fragments with a fixed set of lighting constants.
// Implementations are pure and safe for concurrent use.
type Evaluator interface {
	// Config returns the lighting constants used by this evaluator.
	//
	// Returns:
	//   - Config: the constants
	Config() Config

	// Terms computes the ambient, diffuse and specular terms of one light for one fragment.
	// A zero normal, or a light or eye exactly at the fragment, leaves only the ambient term
	// for the affected light, so the result is always finite.
	//
	// Parameters:
	//   - f: the fragment
	//   - rec: the light record
	//   - viewPos: the world-space eye position
	//
	// Returns:
	//   - Terms: the per-light terms
	Terms(f Fragment, rec light.LightRecord, viewPos mgl32.Vec3) Terms

	// Shade evaluates every record of src in stored order and returns the lit RGBA color.
	// rgb = sum over lights of (ambient + diffuse + specular) * material.rgb, a = material.a.
	//
	// Parameters:
	//   - f: the fragment
	//   - src: the light records, either a FixedLight or a LightArray
	//   - cam: the frame's camera block
	//   - material: the sampled material color
	//
	// Returns:
	//   - mgl32.Vec4: the shaded color
	Shade(f Fragment, src light.Source, cam camera.GPUCameraBlock, material mgl32.Vec4) mgl32.Vec4
}

type evaluatorImpl struct {
	cfg Config
}

var _ Evaluator = &evaluatorImpl{}

// NewEvaluator creates an Evaluator. Without options it uses SingleLightConfig.
//
// Parameters:
//   - opts: variadic list of EvaluatorBuilderOption functions
//
// Returns:
//   - Evaluator: the evaluator
func NewEvaluator(opts ...EvaluatorBuilderOption) Evaluator {
	e := &evaluatorImpl{cfg: SingleLightConfig}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *evaluatorImpl) Config() Config {
	return e.cfg
}

func (e *evaluatorImpl) Terms(f Fragment, rec light.LightRecord, viewPos mgl32.Vec3) Terms {
	color := mgl32.Vec3(rec.Color)
	ambient := color.Mul(e.cfg.AmbientStrength)

	n := common.SafeNormalize(f.Normal)
	if n == (mgl32.Vec3{}) {
		return Terms{Ambient: ambient}
	}

	lightDir := common.SafeNormalize(mgl32.Vec3(rec.Position).Sub(f.WorldPosition))
	diffuse := max(n.Dot(lightDir), 0)

	viewDir := common.SafeNormalize(viewPos.Sub(f.WorldPosition))
	reflectDir := common.Reflect(lightDir.Mul(-1), n)
	spec := float32(math.Pow(float64(max(viewDir.Dot(reflectDir), 0)), float64(e.cfg.Shininess)))

	return Terms{
		Ambient:  ambient,
		Diffuse:  color.Mul(diffuse),
		Specular: color.Mul(spec),
	}
}

func (e *evaluatorImpl) Shade(f Fragment, src light.Source, cam camera.GPUCameraBlock, material mgl32.Vec4) mgl32.Vec4 {
	viewPos := mgl32.Vec3{cam.ViewPosition[0], cam.ViewPosition[1], cam.ViewPosition[2]}
	albedo := material.Vec3()

	var rgb mgl32.Vec3
	for _, rec := range src.Records() {
		lit := e.Terms(f, rec, viewPos).Sum()
		rgb = rgb.Add(mgl32.Vec3{lit[0] * albedo[0], lit[1] * albedo[1], lit[2] * albedo[2]})
	}
	return rgb.Vec4(material.W())
}

// Unlit is the passthrough variant: the sampled material color is output unchanged.
//
// Parameters:
//   - material: the sampled material color
//
// Returns:
//   - mgl32.Vec4: the material color
func Unlit(material mgl32.Vec4) mgl32.Vec4 {
	return material
}
