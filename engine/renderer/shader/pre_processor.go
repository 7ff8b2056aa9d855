// pre_processor.go implements the lumen WGSL shader pre-processor. It scans shader
// source code for @lumen: annotations, replaces them with generated WGSL declarations
// or injected struct source, and collects a declarations list that the pipeline layout
// check uses to match bindings with providers.
//
// The pre-processor maintains two registries:
//   - structRegistry: maps AnnotationArg keys to embedded WGSL sources and their
//     resolved type names.
//   - addressSpaceRegistry: maps address space argument keys to WGSL var<> syntax strings.
package shader

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/model"
)

// VertexOutputSource is the WGSL VertexOutput struct handed from the vertex stage to
// every fragment variant.
//
//go:embed assets/vertex_output.wgsl
var VertexOutputSource string

// ShadingSource holds the WGSL lighting helpers shared by the lit fragment variants.
//
//go:embed assets/shading.wgsl
var ShadingSource string

// registryEntry pairs an embedded WGSL source with the type name used in generated
// @group/@binding declarations. Entries without a Type can only be included.
type registryEntry struct {
	Source string
	Type   string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string
	declarations         []Annotation
}

// PreProcessor processes raw WGSL shader source code containing @lumen: annotations,
// replacing them with generated declarations or injected sources while collecting
// a declarations list for the pipeline layout check.
type PreProcessor interface {
	// Process replaces @lumen: annotations with their WGSL output. include annotations
	// become the registered source text, group annotations become @group/@binding variable
	// declarations, provider annotations produce no output but are recorded.
	//
	// The declarations list is reset at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if any annotation is malformed or references an unknown type
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations collected during the most
	// recent call to Process, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with the engine's GPU struct sources registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:       {Source: camera.GPUCameraBlockSource, Type: "Camera"},
			annotationArgVertex:       {Source: model.GPUVertexSource, Type: "VertexInput"},
			annotationArgInstance:     {Source: model.GPUInstanceSource, Type: "InstanceInput"},
			annotationArgVertexOutput: {Source: VertexOutputSource, Type: "VertexOutput"},
			AnnotationArgLight:        {Source: light.GPULightSource, Type: "Light"},
			annotationArgShading:      {Source: ShadingSource},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform: "var<uniform>",
			annotationArgStorageTypeRead:    "var<storage, read>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @lumen:include argument %q", i+1, a.Args[0])
			}
			out = append(out, strings.TrimRight(entry.Source, "\n"))
		case AnnotationTypeBindingGroup:
			entry := p.structRegistry[a.Args[2]]
			if entry.Type == "" {
				return "", fmt.Errorf("line %d: %q cannot be bound, it declares no struct", i+1, a.Args[2])
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], entry.Type))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
