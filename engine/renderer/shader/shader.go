package shader

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

// ErrInvalidWGSL is returned when shader source fails pre-processing, has no entry point
// for its stage, or is rejected by the WGSL compiler.
var ErrInvalidWGSL = errors.New("invalid wgsl")

// ShaderType identifies the pipeline stage a shader module is written for.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// String returns the stage name.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Constant is a module-scope f32 constant prepended to the shader source.
type Constant struct {
	Name  string
	Value float32
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and layout checks.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	constants                  []Constant
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              []wgpu.VertexBufferLayout
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor

	pp PreProcessor
}

// Shader defines the interface for a loaded and parsed WGSL shader. It exposes the shader's
// unique key, processed source, entry point, bind group layout descriptors and vertex buffer
// layouts needed for pipeline creation and the pipeline layout check.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable name was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// BindGroupVarNames retrieves all variable names keyed by group and binding index.
	//
	// Returns:
	//   - map[int]map[int]string: variable names keyed by group and binding index
	BindGroupVarNames() map[int]map[int]string

	// VertexLayouts retrieves the vertex buffer layouts of a vertex shader in buffer slot order.
	// Fragment shaders return nil.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts, slot 0 first
	VertexLayouts() []wgpu.VertexBufferLayout

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Module returns the wgpu.ShaderModuleDescriptor built from the processed source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the stage of the shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// Declarations returns the annotations that declared bindings and providers in the source.
	//
	// Returns:
	//   - []Annotation: group and provider annotations in source order
	Declarations() []Annotation

	// Validate compiles the processed source with the pure-Go WGSL compiler.
	//
	// Returns:
	//   - error: an error wrapping ErrInvalidWGSL if the compiler rejects the source
	Validate() error
}

var _ Shader = &shader{}

// NewShader reads WGSL from sourcePath and creates a Shader from it.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader is written for
//   - sourcePath: the file path to read WGSL source from
//   - options: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the parsed shader
//   - error: error if the file cannot be read or the source is invalid
func NewShader(key string, shaderType ShaderType, sourcePath string, options ...ShaderBuilderOption) (Shader, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("shader %s: no source path", key)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader %s: failed to read source file %q: %w", key, sourcePath, err)
	}
	return NewShaderFromSource(key, shaderType, string(data), options...)
}

// NewShaderFromSource creates a Shader from WGSL source text. The source is pre-processed,
// then the entry point, bind group layouts and, for vertex shaders, vertex buffer layouts
// are parsed from the result.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader is written for
//   - source: the raw WGSL source, possibly containing @lumen: annotations
//   - options: variadic list of ShaderBuilderOption functions
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error wrapping ErrInvalidWGSL if pre-processing fails or no entry point exists
func NewShaderFromSource(key string, shaderType ShaderType, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:        key,
		shaderType: shaderType,
		pp:         NewPreProcessor(),
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.parseSource(source); err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) BindGroupVarNames() map[int]map[int]string {
	return s.bindingVarNames
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Declarations() []Annotation {
	return slices.Clone(s.pp.Declarations())
}

func (s *shader) Validate() error {
	if _, err := naga.Compile(s.source); err != nil {
		return fmt.Errorf("shader %s: %w: %w", s.key, ErrInvalidWGSL, err)
	}
	return nil
}

// parseSource pre-processes the source, builds the shader module descriptor, and extracts
// the entry point and layout metadata for the shader's stage.
func (s *shader) parseSource(source string) error {
	processed, err := s.pp.Process(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWGSL, err)
	}
	s.source = constantsHeader(s.constants) + processed

	refl := reflectSource(s.source)
	s.entryPoint = refl.entryPoint(s.shaderType)
	if s.entryPoint == "" {
		return fmt.Errorf("%w: no @%s entry point", ErrInvalidWGSL, s.shaderType)
	}

	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}

	var visibility wgpu.ShaderStage
	switch s.shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
		s.vertexLayouts = refl.vertexLayouts(s.entryPoint)
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = refl.bindGroupLayouts(visibility)
	return nil
}

// constantsHeader renders constants as WGSL const declarations, sorted by name.
func constantsHeader(constants []Constant) string {
	if len(constants) == 0 {
		return ""
	}
	byName := make(map[string]float32, len(constants))
	for _, c := range constants {
		byName[c.Name] = c.Value
	}

	var sb strings.Builder
	for _, name := range slices.Sorted(maps.Keys(byName)) {
		fmt.Fprintf(&sb, "const %s: f32 = %s;\n", name, formatF32(byName[name]))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// formatF32 prints v as a WGSL float literal, always with a decimal point.
func formatF32(v float32) string {
	out := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}
