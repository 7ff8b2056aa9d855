package shading

import "github.com/Carmen-Shannon/lumen/engine/light"

// EvaluatorBuilderOption is a function that configures an Evaluator during construction.
type EvaluatorBuilderOption func(*evaluatorImpl)

// WithConfig replaces all lighting constants.
//
// Parameters:
//   - cfg: the constants
//
// Returns:
//   - EvaluatorBuilderOption: a function that applies the constants
func WithConfig(cfg Config) EvaluatorBuilderOption {
	return func(e *evaluatorImpl) {
		e.cfg = cfg
	}
}

// WithMode selects the constants of a draw mode (see ConfigForMode).
//
// Parameters:
//   - m: the draw mode
//
// Returns:
//   - EvaluatorBuilderOption: a function that applies the mode's constants
func WithMode(m light.Mode) EvaluatorBuilderOption {
	return func(e *evaluatorImpl) {
		e.cfg = ConfigForMode(m)
	}
}

// WithAmbientStrength overrides the ambient strength only.
func WithAmbientStrength(s float32) EvaluatorBuilderOption {
	return func(e *evaluatorImpl) {
		e.cfg.AmbientStrength = s
	}
}

// WithShininess overrides the specular exponent only.
func WithShininess(s float32) EvaluatorBuilderOption {
	return func(e *evaluatorImpl) {
		e.cfg.Shininess = s
	}
}
