// Package renderertest provides a recording renderer.RendererBackend for tests that drive a
// renderer.Renderer without a GPU.
package renderertest

import (
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer"
	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lumen/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// Draw is one recorded draw call.
type Draw struct {
	Pipeline  string
	Mesh      string
	Instances int
	// Groups holds the labels of the bound providers in bind group order.
	Groups []string
}

// Backend records every call it receives. Buffer sizes, index counts and instance counts are
// tracked on the providers exactly as the GPU backend would set them, so renderer logic that
// depends on them behaves the same. Safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	pipelines      []string
	bindGroups     map[string]int
	textures       []string
	instanceWrites map[string][]int
	writes         []bind_group_provider.BufferWrite
	draws          []Draw
	frames         int
	surface        [2]int
}

var _ renderer.RendererBackend = &Backend{}

// NewBackend creates an empty recording backend.
func NewBackend() *Backend {
	return &Backend{bindGroups: map[string]int{}, instanceWrites: map[string][]int{}}
}

// NewRenderer returns a renderer drawing into a new recording backend.
//
// Parameters:
//   - opts: renderer options, applied after the backend is set
//
// Returns:
//   - renderer.Renderer: the renderer
//   - *Backend: the backend it records into
func NewRenderer(opts ...renderer.RendererBuilderOption) (renderer.Renderer, *Backend) {
	b := NewBackend()
	all := append([]renderer.RendererBuilderOption{renderer.WithBackend(b)}, opts...)
	return renderer.NewRenderer(renderer.BackendTypeWGPU, nil, all...), b
}

func (b *Backend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surface = [2]int{width, height}
}

func (b *Backend) SetPresentMode(renderer.PresentMode) {}

func (b *Backend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pipelines = append(b.pipelines, p.PipelineKey())
	return nil
}

func (b *Backend) InitMeshBuffers(p bind_group_provider.BindGroupProvider, _, _ []byte, indexCount int) error {
	p.SetIndexCount(indexCount)
	return nil
}

func (b *Backend) WriteInstanceBuffer(p bind_group_provider.BindGroupProvider, _ []byte, count int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.instanceWrites[p.Label()] = append(b.instanceWrites[p.Label()], count)
	p.SetInstanceCount(count)
	return nil
}

func (b *Backend) InitBindGroup(p bind_group_provider.BindGroupProvider, desc wgpu.BindGroupLayoutDescriptor, _ map[int]wgpu.BufferUsage, sizes map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindGroups[p.Label()]++
	for _, e := range desc.Entries {
		binding := int(e.Binding)
		if !bind_group_provider.KindOf(e).IsBuffer() || p.BufferSize(binding) > 0 {
			continue
		}
		size := e.Buffer.MinBindingSize
		if s, ok := sizes[binding]; ok {
			size = s
		}
		p.SetBuffer(binding, nil, size)
	}
	return nil
}

func (b *Backend) InitTextureView(p bind_group_provider.BindGroupProvider, _ int, _ common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures = append(b.textures, p.Label())
	return nil
}

func (b *Backend) InitSampler(bind_group_provider.BindGroupProvider, int, common.SamplerStagingData) error {
	return nil
}

func (b *Backend) ReallocateBuffer(p bind_group_provider.BindGroupProvider, binding int, size uint64) error {
	p.SetBuffer(binding, nil, size)
	return nil
}

func (b *Backend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = append(b.writes, writes...)
}

func (b *Backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames++
	return nil
}

func (b *Backend) DrawCall(p pipeline.Pipeline, mesh, instances bind_group_provider.BindGroupProvider, groups []pipeline.BoundGroup) {
	d := Draw{Pipeline: p.PipelineKey(), Mesh: mesh.Label(), Instances: instances.InstanceCount()}
	for _, bg := range groups {
		d.Groups = append(d.Groups, bg.Provider.Label())
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draws = append(b.draws, d)
}

func (b *Backend) EndFrame() {}

func (b *Backend) Present() {}

// Pipelines returns the keys of the registered pipelines in registration order.
func (b *Backend) Pipelines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.pipelines...)
}

// BindGroupInits returns how often a provider's bind group was created.
func (b *Backend) BindGroupInits(label string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bindGroups[label]
}

// Textures returns the labels of the providers a texture was staged for.
func (b *Backend) Textures() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.textures...)
}

// InstanceWrites returns the instance counts written to a provider, oldest first.
func (b *Backend) InstanceWrites(label string) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.instanceWrites[label]...)
}

// LastWrite returns the most recent buffer write to a provider.
//
// Parameters:
//   - p: the provider
//
// Returns:
//   - bind_group_provider.BufferWrite: the write
//   - bool: false if the provider was never written
func (b *Backend) LastWrite(p bind_group_provider.BindGroupProvider) (bind_group_provider.BufferWrite, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.writes) - 1; i >= 0; i-- {
		if b.writes[i].Provider == p {
			return b.writes[i], true
		}
	}
	return bind_group_provider.BufferWrite{}, false
}

// Draws returns the recorded draw calls.
func (b *Backend) Draws() []Draw {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Draw(nil), b.draws...)
}

// Frames returns how many frames were begun.
func (b *Backend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Surface returns the last configured surface size.
func (b *Backend) Surface() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface[0], b.surface[1]
}
