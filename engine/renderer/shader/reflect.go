package shader

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslType is a parsed WGSL type expression such as f32, Camera or array<vec4<f32>, 4>.
// Literal template arguments (array counts, texel formats) appear as argument names.
type wgslType struct {
	name string
	args []wgslType
}

// wgslField is a struct member or a function parameter with its attributes.
type wgslField struct {
	name  string
	ty    wgslType
	attrs map[string]string
}

type wgslStruct struct {
	name   string
	fields []wgslField
}

// wgslResource is a module-scope var carrying @group and @binding.
type wgslResource struct {
	group   int
	binding int
	space   string
	access  string
	name    string
	ty      wgslType
}

type wgslEntryPoint struct {
	stage  string
	name   string
	params []wgslField
}

// reflection is the resource interface of a WGSL module, read from its module-scope
// declarations. Function bodies are skipped, so reflection never fails; rejecting
// invalid WGSL is left to Validate.
type reflection struct {
	structs   map[string]wgslStruct
	resources []wgslResource
	entries   []wgslEntryPoint
}

// reflectSource scans the module-scope declarations of a WGSL source.
//
// Parameters:
//   - source: the pre-processed WGSL source
//
// Returns:
//   - reflection: the structs, bound resources and entry points of the module
func reflectSource(source string) reflection {
	s := &tokenStream{toks: tokenize(source)}
	r := reflection{structs: make(map[string]wgslStruct)}

	for !s.done() {
		attrs := s.attributes()
		switch s.next() {
		case "struct":
			st := wgslStruct{name: s.next()}
			if s.accept("{") {
				st.fields = s.fields("}")
			}
			r.structs[st.name] = st
		case "var":
			res := wgslResource{group: -1, binding: -1}
			if s.peek() == "<" {
				qualifier := s.balanced("<", ">")
				if len(qualifier) > 0 {
					res.space = qualifier[0]
				}
				if len(qualifier) > 2 {
					res.access = qualifier[2]
				}
			}
			res.name = s.next()
			if s.accept(":") {
				res.ty = s.typeExpr()
			}
			s.skipPast(";")

			group, hasGroup := intAttr(attrs, "group")
			binding, hasBinding := intAttr(attrs, "binding")
			if hasGroup && hasBinding {
				res.group, res.binding = group, binding
				r.resources = append(r.resources, res)
			}
		case "fn":
			ep := wgslEntryPoint{name: s.next()}
			if s.accept("(") {
				ep.params = s.fields(")")
			}
			for !s.done() && s.peek() != "{" {
				s.next()
			}
			s.balanced("{", "}")
			for _, stage := range []string{"vertex", "fragment", "compute"} {
				if _, ok := attrs[stage]; ok {
					ep.stage = stage
				}
			}
			if ep.stage != "" {
				r.entries = append(r.entries, ep)
			}
		default:
			// const, override, alias and directives all end at a semicolon
			s.skipPast(";")
		}
	}
	return r
}

// entryPoint returns the name of the first entry point declared for a stage, or "".
func (r reflection) entryPoint(stage ShaderType) string {
	for _, ep := range r.entries {
		if ep.stage == stage.String() {
			return ep.name
		}
	}
	return ""
}

// vertexLayouts builds one vertex buffer layout per struct parameter of the named entry point
// whose members all carry @location. Attributes are tightly packed in declaration order. Structs
// named Instance* step per instance. The result is ordered by lowest shader location, so the
// slice index is the vertex buffer slot.
//
// Parameters:
//   - entry: the vertex entry point name
//
// Returns:
//   - []wgpu.VertexBufferLayout: the layouts, or nil if the entry point takes no vertex structs
func (r reflection) vertexLayouts(entry string) []wgpu.VertexBufferLayout {
	idx := slices.IndexFunc(r.entries, func(ep wgslEntryPoint) bool { return ep.name == entry })
	if idx < 0 {
		return nil
	}

	var layouts []wgpu.VertexBufferLayout
	for _, p := range r.entries[idx].params {
		st, ok := r.structs[p.ty.name]
		if !ok {
			continue
		}
		layout, ok := vertexBufferLayout(st)
		if !ok {
			continue
		}
		if strings.HasPrefix(st.name, "Instance") {
			layout.StepMode = wgpu.VertexStepModeInstance
		}
		layouts = append(layouts, layout)
	}

	slices.SortStableFunc(layouts, func(a, b wgpu.VertexBufferLayout) int {
		return cmp.Compare(lowestLocation(a), lowestLocation(b))
	})
	return layouts
}

func vertexBufferLayout(st wgslStruct) (wgpu.VertexBufferLayout, bool) {
	layout := wgpu.VertexBufferLayout{StepMode: wgpu.VertexStepModeVertex}
	for _, f := range st.fields {
		loc, ok := intAttr(f.attrs, "location")
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		format, size, ok := vertexFormat(f.ty)
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(loc),
		})
		layout.ArrayStride += size
	}
	return layout, len(layout.Attributes) > 0
}

func lowestLocation(l wgpu.VertexBufferLayout) uint32 {
	lowest := ^uint32(0)
	for _, a := range l.Attributes {
		lowest = min(lowest, a.ShaderLocation)
	}
	return lowest
}

// bindGroupLayouts converts the bound resources into layout descriptors keyed by group, with
// entries sorted by binding. Buffer entries carry the bound type's size as MinBindingSize; a
// runtime-sized array counts as one element.
//
// Parameters:
//   - visibility: the stage flag set on every entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index
func (r reflection) bindGroupLayouts(visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	descriptors := make(map[int]wgpu.BindGroupLayoutDescriptor)
	names := make(map[int]map[int]string)

	for _, res := range r.resources {
		entry := wgpu.BindGroupLayoutEntry{Binding: uint32(res.binding), Visibility: visibility}
		switch res.space {
		case "uniform":
			entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		case "storage":
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
			if res.access == "read_write" {
				entry.Buffer.Type = wgpu.BufferBindingTypeStorage
			}
		default:
			classifyHandle(res.ty, &entry)
		}
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if size, _, ok := r.layoutOf(res.ty, 0); ok {
				entry.Buffer.MinBindingSize = size
			}
		}

		d := descriptors[res.group]
		d.Entries = append(d.Entries, entry)
		descriptors[res.group] = d

		if names[res.group] == nil {
			names[res.group] = make(map[int]string)
		}
		names[res.group][res.binding] = res.name
	}

	for _, d := range descriptors {
		slices.SortFunc(d.Entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return cmp.Compare(a.Binding, b.Binding)
		})
	}
	return descriptors, names
}

// textureViews maps sampled and depth texture type names to their view dimension and
// multisampled flag.
var textureViews = map[string]struct {
	dim          wgpu.TextureViewDimension
	multisampled bool
}{
	"texture_1d":                    {wgpu.TextureViewDimension1D, false},
	"texture_2d":                    {wgpu.TextureViewDimension2D, false},
	"texture_2d_array":              {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":                    {wgpu.TextureViewDimension3D, false},
	"texture_cube":                  {wgpu.TextureViewDimensionCube, false},
	"texture_cube_array":            {wgpu.TextureViewDimensionCubeArray, false},
	"texture_multisampled_2d":       {wgpu.TextureViewDimension2D, true},
	"texture_depth_2d":              {wgpu.TextureViewDimension2D, false},
	"texture_depth_2d_array":        {wgpu.TextureViewDimension2DArray, false},
	"texture_depth_cube":            {wgpu.TextureViewDimensionCube, false},
	"texture_depth_cube_array":      {wgpu.TextureViewDimensionCubeArray, false},
	"texture_depth_multisampled_2d": {wgpu.TextureViewDimension2D, true},
}

// classifyHandle fills the sampler or texture part of an entry for a handle-space resource.
func classifyHandle(ty wgslType, entry *wgpu.BindGroupLayoutEntry) {
	switch ty.name {
	case "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		return
	case "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
		return
	}

	view, ok := textureViews[ty.name]
	if !ok {
		return
	}
	entry.Texture.ViewDimension = view.dim
	entry.Texture.Multisampled = view.multisampled
	if strings.HasPrefix(ty.name, "texture_depth_") {
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		return
	}
	if len(ty.args) == 0 {
		return
	}
	switch ty.args[0].name {
	case "f32":
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
	case "i32":
		entry.Texture.SampleType = wgpu.TextureSampleTypeSint
	case "u32":
		entry.Texture.SampleType = wgpu.TextureSampleTypeUint
	}
}

// vertexFormats is keyed by scalar type and component count.
var vertexFormats = map[string]wgpu.VertexFormat{
	"f32x1": wgpu.VertexFormatFloat32,
	"f32x2": wgpu.VertexFormatFloat32x2,
	"f32x3": wgpu.VertexFormatFloat32x3,
	"f32x4": wgpu.VertexFormatFloat32x4,
	"i32x1": wgpu.VertexFormatSint32,
	"i32x2": wgpu.VertexFormatSint32x2,
	"i32x3": wgpu.VertexFormatSint32x3,
	"i32x4": wgpu.VertexFormatSint32x4,
	"u32x1": wgpu.VertexFormatUint32,
	"u32x2": wgpu.VertexFormatUint32x2,
	"u32x3": wgpu.VertexFormatUint32x3,
	"u32x4": wgpu.VertexFormatUint32x4,
	"f16x2": wgpu.VertexFormatFloat16x2,
	"f16x4": wgpu.VertexFormatFloat16x4,
}

func vertexFormat(ty wgslType) (wgpu.VertexFormat, uint64, bool) {
	n, scalar, ok := vectorShape(ty)
	if !ok {
		if _, isScalar := scalarWidth(ty.name); !isScalar || len(ty.args) > 0 {
			return 0, 0, false
		}
		n, scalar = 1, ty.name
	}
	format, ok := vertexFormats[scalar+"x"+strconv.Itoa(n)]
	if !ok {
		return 0, 0, false
	}
	width, _ := scalarWidth(scalar)
	return format, uint64(n) * width, true
}

// layoutOf returns the host-shareable size and alignment of a type following the WGSL
// memory layout rules, honoring @align and @size on struct members. ok is false for opaque
// and unknown types.
func (r reflection) layoutOf(ty wgslType, depth int) (size, align uint64, ok bool) {
	if depth > 32 {
		return 0, 0, false
	}
	if w, isScalar := scalarWidth(ty.name); isScalar && len(ty.args) == 0 {
		return w, w, true
	}
	if n, scalar, isVec := vectorShape(ty); isVec {
		w, _ := scalarWidth(scalar)
		return uint64(n) * w, vectorAlign(n, w), true
	}
	if cols, rows, scalar, isMat := matrixShape(ty); isMat {
		w, _ := scalarWidth(scalar)
		colAlign := vectorAlign(rows, w)
		return uint64(cols) * alignUp(colAlign, uint64(rows)*w), colAlign, true
	}

	switch ty.name {
	case "atomic":
		if len(ty.args) == 1 {
			return r.layoutOf(ty.args[0], depth+1)
		}
	case "array":
		if len(ty.args) == 0 {
			return 0, 0, false
		}
		elemSize, elemAlign, ok := r.layoutOf(ty.args[0], depth+1)
		if !ok {
			return 0, 0, false
		}
		stride := alignUp(elemAlign, elemSize)
		count := 1
		if len(ty.args) > 1 {
			if count, ok = parseIntLiteral(ty.args[1].name); !ok {
				return 0, 0, false
			}
		}
		return uint64(count) * stride, elemAlign, true
	}

	st, isStruct := r.structs[ty.name]
	if !isStruct {
		return 0, 0, false
	}
	var offset uint64
	align = 1
	for _, f := range st.fields {
		fieldSize, fieldAlign, ok := r.layoutOf(f.ty, depth+1)
		if !ok {
			return 0, 0, false
		}
		if v, set := intAttr(f.attrs, "align"); set {
			fieldAlign = uint64(v)
		}
		if v, set := intAttr(f.attrs, "size"); set {
			fieldSize = uint64(v)
		}
		offset = alignUp(fieldAlign, offset) + fieldSize
		align = max(align, fieldAlign)
	}
	return alignUp(align, offset), align, true
}

func scalarWidth(name string) (uint64, bool) {
	switch name {
	case "f32", "i32", "u32", "bool":
		return 4, true
	case "f16":
		return 2, true
	}
	return 0, false
}

var shorthandScalars = map[byte]string{'f': "f32", 'i': "i32", 'u': "u32", 'h': "f16"}

// vectorShape recognizes vecN<T> and the vecNf style shorthands.
func vectorShape(ty wgslType) (n int, scalar string, ok bool) {
	name := ty.name
	if len(name) < 4 || !strings.HasPrefix(name, "vec") || name[3] < '2' || name[3] > '4' {
		return 0, "", false
	}
	n = int(name[3] - '0')
	switch {
	case len(name) == 4 && len(ty.args) == 1:
		scalar = ty.args[0].name
	case len(name) == 5 && len(ty.args) == 0:
		scalar = shorthandScalars[name[4]]
	}
	_, ok = scalarWidth(scalar)
	return n, scalar, ok
}

// matrixShape recognizes matCxR<T> and the matCxRf style shorthands.
func matrixShape(ty wgslType) (cols, rows int, scalar string, ok bool) {
	name := ty.name
	if len(name) < 6 || !strings.HasPrefix(name, "mat") || name[4] != 'x' {
		return 0, 0, "", false
	}
	cols, rows = int(name[3]-'0'), int(name[5]-'0')
	if cols < 2 || cols > 4 || rows < 2 || rows > 4 {
		return 0, 0, "", false
	}
	switch {
	case len(name) == 6 && len(ty.args) == 1:
		scalar = ty.args[0].name
	case len(name) == 7 && len(ty.args) == 0:
		scalar = shorthandScalars[name[6]]
	}
	return cols, rows, scalar, scalar == "f32" || scalar == "f16"
}

func vectorAlign(n int, width uint64) uint64 {
	if n == 3 {
		n = 4
	}
	return uint64(n) * width
}

// alignUp rounds value up to a multiple of alignment.
func alignUp(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) / alignment * alignment
}

func intAttr(attrs map[string]string, name string) (int, bool) {
	v, ok := attrs[name]
	if !ok {
		return 0, false
	}
	return parseIntLiteral(v)
}

// parseIntLiteral parses a decimal WGSL integer literal with an optional i or u suffix.
func parseIntLiteral(lit string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimRight(lit, "iu"))
	return v, err == nil && v >= 0
}

// tokenize splits WGSL into word and single-character punctuation tokens. Whitespace and
// comments are dropped; block comments nest.
func tokenize(src string) []string {
	var toks []string
	for i := 0; i < len(src); {
		switch c := src[i]; {
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				return toks
			}
			i += end
		case strings.HasPrefix(src[i:], "/*"):
			depth := 0
			for i < len(src) {
				if strings.HasPrefix(src[i:], "/*") {
					depth++
					i += 2
				} else if strings.HasPrefix(src[i:], "*/") {
					depth--
					i += 2
					if depth == 0 {
						break
					}
				} else {
					i++
				}
			}
		case isWordByte(c):
			j := i
			for j < len(src) && isWordByte(src[j]) {
				j++
			}
			toks = append(toks, src[i:j])
			i = j
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		default:
			toks = append(toks, src[i:i+1])
			i++
		}
	}
	return toks
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

type tokenStream struct {
	toks []string
	pos  int
}

func (s *tokenStream) done() bool {
	return s.pos >= len(s.toks)
}

func (s *tokenStream) peek() string {
	if s.done() {
		return ""
	}
	return s.toks[s.pos]
}

func (s *tokenStream) next() string {
	tok := s.peek()
	if !s.done() {
		s.pos++
	}
	return tok
}

func (s *tokenStream) accept(tok string) bool {
	if !s.done() && s.toks[s.pos] == tok {
		s.pos++
		return true
	}
	return false
}

func (s *tokenStream) skipPast(tok string) {
	for !s.done() && s.next() != tok {
	}
}

// balanced consumes a bracketed run starting at open and returns the tokens inside it.
func (s *tokenStream) balanced(open, end string) []string {
	if !s.accept(open) {
		return nil
	}
	start, depth := s.pos, 1
	for !s.done() {
		switch s.next() {
		case open:
			depth++
		case end:
			if depth--; depth == 0 {
				return s.toks[start : s.pos-1]
			}
		}
	}
	return s.toks[start:]
}

// attributes consumes a run of @name and @name(args) attributes.
func (s *tokenStream) attributes() map[string]string {
	var attrs map[string]string
	for s.accept("@") {
		name := s.next()
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[name] = strings.Join(s.balanced("(", ")"), "")
	}
	return attrs
}

func (s *tokenStream) typeExpr() wgslType {
	ty := wgslType{name: s.next()}
	if s.accept("<") {
		for !s.done() && !s.accept(">") {
			ty.args = append(ty.args, s.typeExpr())
			s.accept(",")
		}
	}
	return ty
}

// fields reads comma separated `attrs name: type` items up to the closing token.
func (s *tokenStream) fields(end string) []wgslField {
	var out []wgslField
	for !s.done() && !s.accept(end) {
		f := wgslField{attrs: s.attributes(), name: s.next()}
		if s.accept(":") {
			f.ty = s.typeExpr()
		}
		s.accept(",")
		out = append(out, f)
	}
	return out
}
