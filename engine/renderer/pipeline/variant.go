package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/renderer/shader"
)

// Variant is one of the forward pass shader configurations. A draw is planned for exactly one
// variant; nothing switches variants once a draw has been planned.
type Variant int

const (
	// VariantUnlit outputs the sampled material color with no lighting.
	VariantUnlit Variant = iota

	// VariantSingleLight shades with one light bound as a uniform.
	VariantSingleLight

	// VariantMultiLight shades with every record of a light array bound as read-only storage.
	VariantMultiLight
)

// Variants lists every variant in declaration order.
var Variants = []Variant{VariantUnlit, VariantSingleLight, VariantMultiLight}

// String returns the variant name used for pipeline keys and logging.
func (v Variant) String() string {
	switch v {
	case VariantUnlit:
		return "unlit"
	case VariantSingleLight:
		return "single_light"
	case VariantMultiLight:
		return "multi_light"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Mode returns the draw mode the variant implements.
func (v Variant) Mode() light.Mode {
	switch v {
	case VariantSingleLight:
		return light.ModeSingle
	case VariantMultiLight:
		return light.ModeMulti
	default:
		return light.ModeNone
	}
}

// VariantFor maps a draw mode to its variant.
//
// Parameters:
//   - m: the draw mode
//
// Returns:
//   - Variant: the variant drawing that mode
func VariantFor(m light.Mode) Variant {
	switch m {
	case light.ModeSingle:
		return VariantSingleLight
	case light.ModeMulti:
		return VariantMultiLight
	default:
		return VariantUnlit
	}
}

// NewVariantPipeline creates a pipeline for a variant from the embedded forward shaders. Options
// are applied after the shaders are set, so WithFragmentShader can replace the builtin.
//
// Parameters:
//   - v: the variant to build
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: the pipeline, keyed "forward_<variant>"
//   - error: an error if a builtin shader fails to load
func NewVariantPipeline(v Variant, opts ...PipelineBuilderOption) (Pipeline, error) {
	vs, err := shader.NewBuiltinShader(shader.BuiltinVertex)
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", v, err)
	}
	fs, err := shader.NewBuiltinShader(shader.FragmentBuiltin(v.Mode()))
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", v, err)
	}
	base := []PipelineBuilderOption{WithVertexShader(vs), WithFragmentShader(fs)}
	return NewPipeline("forward_"+v.String(), v, append(base, opts...)...), nil
}
