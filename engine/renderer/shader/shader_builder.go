package shader

// ShaderBuilderOption is a function that configures a shader before its source is parsed.
type ShaderBuilderOption func(*shader)

// WithConstant declares a module-scope f32 constant at the top of the source. A later
// constant with the same name replaces an earlier one.
//
// Parameters:
//   - name: the WGSL identifier
//   - value: the constant value
//
// Returns:
//   - ShaderBuilderOption: a function that adds the constant
func WithConstant(name string, value float32) ShaderBuilderOption {
	return func(s *shader) {
		s.constants = append(s.constants, Constant{Name: name, Value: value})
	}
}
