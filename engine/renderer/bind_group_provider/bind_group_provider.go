package bind_group_provider

import (
	"maps"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label, also used as the GPU object label.
	label string

	// entries declares the kind of resource held at each binding index.
	// It is what the pipeline selector checks against a pipeline's layout before a draw.
	entries map[int]BindingKind

	// The following fields are GPU allocated resources and must be released when no longer needed.
	// They are populated by the Renderer during initialization, not by user-creation.

	bindGroup       *wgpu.BindGroup
	bindGroupLayout *wgpu.BindGroupLayout
	buffers         map[int]*wgpu.Buffer
	bufferSizes     map[int]uint64
	textureViews    map[int]*wgpu.TextureView
	samplers        map[int]*wgpu.Sampler

	// The following fields are specific to mesh providers.

	vertexBuffer   *wgpu.Buffer
	indexBuffer    *wgpu.Buffer
	instanceBuffer *wgpu.Buffer
	indexCount     int
	instanceCount  int
}

// BindGroupProvider defines the interface for components that require GPU bind group resources.
// Components (Camera, Material, light data, meshes) hold a BindGroupProvider to describe their GPU
// binding requirements. The Renderer then uses this provider to initialize and update GPU resources.
//
// Usage pattern:
//  1. Component creates a BindGroupProvider with a label and its declared entries
//  2. Scene calls Renderer.InitBindGroup(provider, descriptor) to create GPU resources
//  3. Scene calls Renderer.WriteBuffers with BufferWrite values once per frame
//  4. The pipeline selector checks Entries() against the pipeline layout, then the draw uses BindGroup()
type BindGroupProvider interface {
	// Release releases any GPU resources held by this provider.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Entries returns a copy of the declared binding kinds keyed by binding index.
	//
	// Returns:
	//   - map[int]BindingKind: the declared entries
	Entries() map[int]BindingKind

	// Kind returns the declared kind for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - BindingKind: the declared kind
	//   - bool: false if nothing is declared at the binding
	Kind(binding int) (BindingKind, bool)

	// Declare records the kind of resource held at a binding, replacing any earlier declaration.
	//
	// Parameters:
	//   - binding: the binding index
	//   - kind: the resource kind
	Declare(binding int, kind BindingKind)

	// BindGroup returns the created bind group for shader binding.
	// Returns nil if GPU resources have not been initialized.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout for this provider.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the GPU buffer at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	Buffer(binding int) *wgpu.Buffer

	// Buffers returns all buffers keyed by binding index.
	//
	// Returns:
	//   - map[int]*wgpu.Buffer: the buffers
	Buffers() map[int]*wgpu.Buffer

	// BufferSize returns the allocated size of the buffer at a binding, or 0 if none is allocated.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - uint64: the size in bytes
	BufferSize(binding int) uint64

	// TextureView returns the GPU texture view for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view
	TextureView(binding int) *wgpu.TextureView

	// TextureViews returns all texture views keyed by binding index.
	TextureViews() map[int]*wgpu.TextureView

	// Sampler returns the GPU sampler for a specific binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler
	Sampler(binding int) *wgpu.Sampler

	// Samplers returns all samplers keyed by binding index.
	Samplers() map[int]*wgpu.Sampler

	// VertexBuffer returns the GPU vertex buffer, or nil if not initialized.
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the GPU index buffer, or nil if not initialized.
	IndexBuffer() *wgpu.Buffer

	// InstanceBuffer returns the GPU per-instance vertex buffer, or nil if not initialized.
	InstanceBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices for draw calls.
	IndexCount() int

	// InstanceCount returns the number of instances for draw calls. A mesh without instances draws once.
	InstanceCount() int

	// SetBindGroup sets the bind group after GPU initialization.
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout sets the bind group layout after GPU initialization.
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores a GPU buffer and its allocated size for a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer
	//   - size: the allocated size in bytes
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// SetTextureView stores a GPU texture view for a specific binding.
	SetTextureView(binding int, tv *wgpu.TextureView)

	// SetSampler stores a GPU sampler for a specific binding.
	SetSampler(binding int, s *wgpu.Sampler)

	// SetVertexBuffer stores the GPU vertex buffer.
	SetVertexBuffer(buf *wgpu.Buffer)

	// SetIndexBuffer stores the GPU index buffer.
	SetIndexBuffer(buf *wgpu.Buffer)

	// SetInstanceBuffer stores the GPU per-instance vertex buffer.
	SetInstanceBuffer(buf *wgpu.Buffer)

	// SetIndexCount sets the number of indices for draw calls.
	SetIndexCount(count int)

	// SetInstanceCount sets the number of instances for draw calls.
	SetInstanceCount(count int)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: debug label for the provider and its GPU objects
//   - options: variadic list of BindGroupProviderOption functions
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        label,
		entries:      make(map[int]BindingKind),
		buffers:      make(map[int]*wgpu.Buffer),
		bufferSizes:  make(map[int]uint64),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Entries() map[int]BindingKind {
	return maps.Clone(p.entries)
}

func (p *bindGroupProvider) Kind(binding int) (BindingKind, bool) {
	k, ok := p.entries[binding]
	return k, ok
}

func (p *bindGroupProvider) Declare(binding int, kind BindingKind) {
	p.entries[binding] = kind
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]*wgpu.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	return p.bufferSizes[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) TextureViews() map[int]*wgpu.TextureView {
	return p.textureViews
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) Samplers() map[int]*wgpu.Sampler {
	return p.samplers
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) InstanceBuffer() *wgpu.Buffer {
	return p.instanceBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) InstanceCount() int {
	return p.instanceCount
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer, size uint64) {
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
	p.bufferSizes[binding] = size
}

func (p *bindGroupProvider) SetTextureView(binding int, tv *wgpu.TextureView) {
	p.textureViews[binding] = tv
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer) {
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) SetIndexBuffer(buf *wgpu.Buffer) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) SetInstanceBuffer(buf *wgpu.Buffer) {
	p.instanceBuffer = buf
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

func (p *bindGroupProvider) SetInstanceCount(count int) {
	p.instanceCount = count
}

func (p *bindGroupProvider) Release() {
	for i, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, i)
	}
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
		delete(p.bufferSizes, i)
	}

	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	if p.instanceBuffer != nil {
		p.instanceBuffer.Release()
		p.instanceBuffer = nil
	}
}
