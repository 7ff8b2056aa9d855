// annotations.go defines the annotation types, argument constants, and parser for the
// lumen WGSL shader pre-processor. Annotations are single-line WGSL comments prefixed
// with @lumen: that drive struct injection, bind group declaration, and resource
// provider registration. The parsed results are stored as Annotation values and consumed
// by the pipeline layout check to match bindings with the scene's providers.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies a lumen annotation within a WGSL comment line.
const annotationPrefix = "@lumen:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// into the shader at the annotation site. It produces no declaration.
	//
	// Syntax: //@lumen:include <struct_type>
	//
	// Example: //@lumen:include camera
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// for a registered struct type and records the declaration.
	//
	// Syntax: //@lumen:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@lumen:group 1 0 storage_uniform camera camera
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeProvider records which provider owns a hand-written binding without
	// generating WGSL. Used for textures, samplers and flat arrays of primitives.
	//
	// Syntax:
	//   //@lumen:provider <group> <binding> <provider_identity>
	//   //@lumen:provider <group> <binding> <provider_identity> <binding_role>
	//
	// Example: //@lumen:provider 0 0 material diffuse_texture
	AnnotationTypeProvider AnnotationType = "provider"
)

// Annotation represents a single parsed @lumen: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed (include, group, or provider).
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key (e.g. "camera")
	//   - group:    [0] = address space, [1] = var name, [2] = WGSL type key
	//   - provider: [0] = provider identity, [1] = binding role (optional)
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source.
	Line int

	// Group is the @group index for group and provider annotations. Nil for include annotations.
	Group *int

	// Binding is the @binding index for group and provider annotations. Nil for include annotations.
	Binding *int
}

// Provider returns the provider identity of a group or provider annotation. Group
// annotations are owned by the provider named like their struct type.
func (a Annotation) Provider() AnnotationArg {
	switch a.Type {
	case AnnotationTypeProvider:
		return a.Args[0]
	case AnnotationTypeBindingGroup:
		if a.Args[2] == AnnotationArgLight {
			return AnnotationArgLights
		}
		return a.Args[2]
	default:
		return ""
	}
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

// ── Struct type arguments ──────────────────────────────────────────────────────

const (
	// AnnotationArgCamera identifies the Camera struct.
	// Source: engine/camera/assets/camera.wgsl
	AnnotationArgCamera AnnotationArg = "camera"

	// annotationArgVertex identifies the VertexInput struct.
	// Source: engine/model/assets/vertex.wgsl
	annotationArgVertex AnnotationArg = "vertex"

	// annotationArgInstance identifies the InstanceInput struct carrying the model matrix.
	// Source: engine/model/assets/instance.wgsl
	annotationArgInstance AnnotationArg = "instance"

	// annotationArgVertexOutput identifies the VertexOutput struct shared by the vertex
	// stage and every fragment variant.
	// Source: engine/renderer/shader/assets/vertex_output.wgsl
	annotationArgVertexOutput AnnotationArg = "vertex_output"

	// AnnotationArgLight identifies the Light struct of the single-light variant.
	// Source: engine/light/assets/light.wgsl
	AnnotationArgLight AnnotationArg = "light"

	// annotationArgShading identifies the shared lighting helper functions.
	// Source: engine/renderer/shader/assets/shading.wgsl
	annotationArgShading AnnotationArg = "shading"
)

// ── Address space arguments ────────────────────────────────────────────────────

const (
	// annotationArgStorageTypeUniform maps to var<uniform> in WGSL.
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"

	// annotationArgStorageTypeRead maps to var<storage, read> in WGSL.
	annotationArgStorageTypeRead AnnotationArg = "storage_read"
)

// ── Provider identity arguments ────────────────────────────────────────────────

const (
	// AnnotationArgMaterial identifies the material provider (diffuse texture and sampler).
	AnnotationArgMaterial AnnotationArg = "material"

	// AnnotationArgLights identifies the light provider (single light uniform or light array).
	AnnotationArgLights AnnotationArg = "lights"
)

// ── Material binding role arguments ────────────────────────────────────────────

const (
	// AnnotationArgDiffuseTexture identifies a diffuse texture binding.
	AnnotationArgDiffuseTexture AnnotationArg = "diffuse_texture"

	// AnnotationArgDiffuseSampler identifies the sampler paired with the diffuse texture.
	AnnotationArgDiffuseSampler AnnotationArg = "diffuse_sampler"

	// AnnotationArgLightArray identifies the flat float array of light records.
	AnnotationArgLightArray AnnotationArg = "light_array"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	annotationArgVertex,
	annotationArgInstance,
	annotationArgVertexOutput,
	AnnotationArgLight,
	annotationArgShading,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
}

var validProviderIdentities = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgMaterial,
	AnnotationArgLights,
}

var validBindingRoles = []AnnotationArg{
	AnnotationArgDiffuseTexture,
	AnnotationArgDiffuseSampler,
	AnnotationArgLightArray,
}

// parseAnnotation attempts to parse a single line of WGSL source as a @lumen: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @lumen annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @lumen include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @lumen include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @lumen group annotation requires five arguments (group, binding, address space, var name, struct type)", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @lumen group annotation", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[5])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @lumen group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	case AnnotationTypeProvider:
		if len(args) < 4 || len(args) > 5 {
			return nil, fmt.Errorf("line %d: @lumen provider annotation requires three or four arguments (group, binding, provider identity[, binding role])", lineNum)
		}
		group, binding, err := parseSlot(args[1], args[2], lineNum)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(validProviderIdentities, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown provider identity %q in @lumen provider annotation", lineNum, args[3])
		}
		providerArgs := []AnnotationArg{AnnotationArg(args[3])}
		if len(args) == 5 {
			if !slices.Contains(validBindingRoles, AnnotationArg(args[4])) {
				return nil, fmt.Errorf("line %d: unknown binding role %q in @lumen provider annotation", lineNum, args[4])
			}
			providerArgs = append(providerArgs, AnnotationArg(args[4]))
		}
		return &Annotation{
			Type:    AnnotationTypeProvider,
			Args:    providerArgs,
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @lumen annotation type %q", lineNum, args[0])
	}
}

func parseSlot(groupArg, bindingArg string, lineNum int) (int, int, error) {
	group, err := strconv.Atoi(groupArg)
	if err != nil || group < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid group number %q", lineNum, groupArg)
	}
	binding, err := strconv.Atoi(bindingArg)
	if err != nil || binding < 0 {
		return 0, 0, fmt.Errorf("line %d: invalid binding number %q", lineNum, bindingArg)
	}
	return group, binding, nil
}
