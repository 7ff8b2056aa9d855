package pipeline

import "log/slog"

// SelectorBuilderOption is a function that configures a Selector during construction.
type SelectorBuilderOption func(*selector)

// WithLogger replaces the engine logger for this selector.
//
// Parameters:
//   - l: the logger; nil keeps the engine logger
//
// Returns:
//   - SelectorBuilderOption: a function that sets the logger
func WithLogger(l *slog.Logger) SelectorBuilderOption {
	return func(s *selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithShaderValidation compiles both shaders of every registered pipeline with the WGSL
// compiler and rejects pipelines whose shaders do not compile.
//
// Parameters:
//   - enabled: true to validate at registration
//
// Returns:
//   - SelectorBuilderOption: a function that toggles shader validation
func WithShaderValidation(enabled bool) SelectorBuilderOption {
	return func(s *selector) {
		s.validateShader = enabled
	}
}
