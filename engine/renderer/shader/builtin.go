package shader

import (
	"embed"
	"fmt"

	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/shading"
)

//go:embed assets/forward_vertex.wgsl assets/unlit.wgsl assets/single_light.wgsl assets/multi_light.wgsl
var builtinAssets embed.FS

// Builtin names one of the embedded forward-pass shaders.
type Builtin string

const (
	// BuiltinVertex transforms model vertices by the instance matrix and the camera.
	BuiltinVertex Builtin = "forward_vertex"

	// BuiltinUnlit outputs the sampled material color unchanged.
	BuiltinUnlit Builtin = "unlit"

	// BuiltinSingleLight shades with one light read from a uniform block.
	BuiltinSingleLight Builtin = "single_light"

	// BuiltinMultiLight shades with every record of the light storage array.
	BuiltinMultiLight Builtin = "multi_light"
)

// FragmentBuiltin returns the fragment shader drawing a light mode.
//
// Parameters:
//   - m: the draw mode
//
// Returns:
//   - Builtin: the fragment shader name
func FragmentBuiltin(m light.Mode) Builtin {
	switch m {
	case light.ModeSingle:
		return BuiltinSingleLight
	case light.ModeMulti:
		return BuiltinMultiLight
	default:
		return BuiltinUnlit
	}
}

// NewBuiltinShader loads an embedded shader. The lit fragment variants receive their
// AMBIENT_STRENGTH and SHININESS constants from shading.ConfigForMode, so the GPU and
// the CPU evaluator share one set of lighting constants.
//
// Parameters:
//   - name: the builtin shader
//   - options: variadic list of ShaderBuilderOption functions, applied after the defaults
//
// Returns:
//   - Shader: the parsed shader
//   - error: error if the name is unknown or the source is invalid
func NewBuiltinShader(name Builtin, options ...ShaderBuilderOption) (Shader, error) {
	data, err := builtinAssets.ReadFile("assets/" + string(name) + ".wgsl")
	if err != nil {
		return nil, fmt.Errorf("unknown builtin shader %q: %w", name, err)
	}

	shaderType := ShaderTypeFragment
	var opts []ShaderBuilderOption
	switch name {
	case BuiltinVertex:
		shaderType = ShaderTypeVertex
	case BuiltinSingleLight:
		opts = configConstants(shading.ConfigForMode(light.ModeSingle))
	case BuiltinMultiLight:
		opts = configConstants(shading.ConfigForMode(light.ModeMulti))
	}
	return NewShaderFromSource(string(name), shaderType, string(data), append(opts, options...)...)
}

// WithShadingConfig overrides the lighting constants of a lit fragment variant.
//
// Parameters:
//   - cfg: the lighting constants
//
// Returns:
//   - ShaderBuilderOption: a function that sets AMBIENT_STRENGTH and SHININESS
func WithShadingConfig(cfg shading.Config) ShaderBuilderOption {
	return func(s *shader) {
		for _, opt := range configConstants(cfg) {
			opt(s)
		}
	}
}

func configConstants(cfg shading.Config) []ShaderBuilderOption {
	return []ShaderBuilderOption{
		WithConstant("AMBIENT_STRENGTH", cfg.AmbientStrength),
		WithConstant("SHININESS", cfg.Shininess),
	}
}
