package renderer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/light"
	bgp "github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lumen/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawRecord struct {
	pipeline  string
	mesh      string
	instances int
	groups    []int
}

// recordingBackend records every call and tracks buffer sizes on the providers without a GPU.
type recordingBackend struct {
	calls       []string
	reallocs    []uint64
	writes      []bgp.BufferWrite
	draws       []drawRecord
	registerErr error
}

var _ RendererBackend = &recordingBackend{}

func (f *recordingBackend) ConfigureSurface(width, height int) {
	f.calls = append(f.calls, fmt.Sprintf("configure %dx%d", width, height))
}

func (f *recordingBackend) SetPresentMode(mode PresentMode) {
	f.calls = append(f.calls, fmt.Sprintf("present %d", mode))
}

func (f *recordingBackend) RegisterRenderPipeline(p pipeline.Pipeline) error {
	f.calls = append(f.calls, "register "+p.PipelineKey())
	return f.registerErr
}

func (f *recordingBackend) InitMeshBuffers(provider bgp.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	f.calls = append(f.calls, "mesh "+provider.Label())
	provider.SetIndexCount(indexCount)
	return nil
}

func (f *recordingBackend) WriteInstanceBuffer(provider bgp.BindGroupProvider, data []byte, count int) error {
	f.calls = append(f.calls, "instances "+provider.Label())
	provider.SetInstanceCount(count)
	return nil
}

func (f *recordingBackend) InitBindGroup(provider bgp.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, _ map[int]wgpu.BufferUsage, sizes map[int]uint64) error {
	f.calls = append(f.calls, "bind group "+provider.Label())
	for _, e := range descriptor.Entries {
		binding := int(e.Binding)
		if !bgp.KindOf(e).IsBuffer() || provider.BufferSize(binding) > 0 {
			continue
		}
		size := e.Buffer.MinBindingSize
		if s, ok := sizes[binding]; ok {
			size = s
		}
		provider.SetBuffer(binding, nil, size)
	}
	return nil
}

func (f *recordingBackend) InitTextureView(provider bgp.BindGroupProvider, bindingKey int, _ common.TextureStagingData) error {
	f.calls = append(f.calls, fmt.Sprintf("texture %s %d", provider.Label(), bindingKey))
	return nil
}

func (f *recordingBackend) InitSampler(provider bgp.BindGroupProvider, bindingKey int, _ common.SamplerStagingData) error {
	f.calls = append(f.calls, fmt.Sprintf("sampler %s %d", provider.Label(), bindingKey))
	return nil
}

func (f *recordingBackend) ReallocateBuffer(provider bgp.BindGroupProvider, binding int, size uint64) error {
	f.calls = append(f.calls, fmt.Sprintf("realloc %s %d", provider.Label(), binding))
	f.reallocs = append(f.reallocs, size)
	provider.SetBuffer(binding, nil, size)
	return nil
}

func (f *recordingBackend) WriteBuffers(writes []bgp.BufferWrite) {
	f.calls = append(f.calls, "write")
	f.writes = append(f.writes, writes...)
}

func (f *recordingBackend) BeginFrame() error {
	f.calls = append(f.calls, "begin")
	return nil
}

func (f *recordingBackend) DrawCall(p pipeline.Pipeline, mesh, instances bgp.BindGroupProvider, bindGroups []pipeline.BoundGroup) {
	rec := drawRecord{pipeline: p.PipelineKey(), mesh: mesh.Label(), instances: instances.InstanceCount()}
	for _, g := range bindGroups {
		rec.groups = append(rec.groups, g.Index)
	}
	f.draws = append(f.draws, rec)
}

func (f *recordingBackend) EndFrame() {
	f.calls = append(f.calls, "end")
}

func (f *recordingBackend) Present() {
	f.calls = append(f.calls, "present")
}

func newTestRenderer(t *testing.T, opts ...RendererBuilderOption) (Renderer, *recordingBackend) {
	t.Helper()
	fake := &recordingBackend{}
	return NewRenderer(BackendTypeWGPU, nil, append([]RendererBuilderOption{WithBackend(fake)}, opts...)...), fake
}

func storageDescriptor(minSize uint64) wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{Entries: []wgpu.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: wgpu.ShaderStageFragment,
		Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage, MinBindingSize: minSize},
	}}}
}

func TestNewRenderer_WithBackend(t *testing.T) {
	_, fake := newTestRenderer(t, WithPresentMode(PresentModeVSync))
	assert.Equal(t, []string{fmt.Sprintf("present %d", PresentModeVSync)}, fake.calls, "no surface is configured without a window")
}

func TestRenderer_RegisterPipelines(t *testing.T) {
	r, fake := newTestRenderer(t)
	unlit, err := pipeline.NewVariantPipeline(pipeline.VariantUnlit)
	require.NoError(t, err)
	multi, err := pipeline.NewVariantPipeline(pipeline.VariantMultiLight)
	require.NoError(t, err)

	require.NoError(t, r.RegisterPipelines(unlit, multi, unlit))
	assert.Equal(t, []string{"register forward_unlit", "register forward_multi_light"}, fake.calls)
	assert.Same(t, multi, r.Pipeline("forward_multi_light"))
	assert.Nil(t, r.Pipeline("missing"))

	cache := r.Pipelines()
	delete(cache, "forward_unlit")
	assert.Len(t, r.Pipelines(), 2)

	fake.registerErr = errors.New("device lost")
	single, err := pipeline.NewVariantPipeline(pipeline.VariantSingleLight)
	require.NoError(t, err)
	err = r.RegisterPipelines(single)
	require.Error(t, err)
	assert.ErrorIs(t, err, fake.registerErr)
	assert.Nil(t, r.Pipeline("forward_single_light"))
}

func TestRenderer_WriteBuffersGrowsBuffer(t *testing.T) {
	r, fake := newTestRenderer(t)
	lights := bgp.NewBindGroupProvider("lights", bgp.WithEntry(0, bgp.BindingKindReadOnlyStorage))
	require.NoError(t, r.InitBindGroup(lights, storageDescriptor(uint64(light.RecordSize)), nil, nil))
	assert.Equal(t, uint64(light.RecordSize), lights.BufferSize(0))

	// three records into a one-record buffer
	data := make([]byte, 3*light.RecordSize)
	fake.calls = nil
	require.NoError(t, r.WriteBuffers([]bgp.BufferWrite{
		{Provider: lights, Binding: 0, Offset: 0, Data: data[:light.RecordSize]},
		{Provider: lights, Binding: 0, Offset: uint64(light.RecordSize), Data: data[light.RecordSize:]},
	}))
	assert.Equal(t, []string{"realloc lights 0", "bind group lights", "write"}, fake.calls)
	assert.Equal(t, []uint64{uint64(3 * light.RecordSize)}, fake.reallocs, "one reallocation to the largest end")
	assert.Equal(t, uint64(3*light.RecordSize), lights.BufferSize(0))
	assert.Len(t, fake.writes, 2)

	// fits now: no reallocation and the buffer keeps its size when the data shrinks
	fake.calls = nil
	require.NoError(t, r.WriteBuffers([]bgp.BufferWrite{{Provider: lights, Binding: 0, Data: data[:light.RecordSize]}}))
	assert.Equal(t, []string{"write"}, fake.calls)
	assert.Equal(t, uint64(3*light.RecordSize), lights.BufferSize(0))
}

func TestRenderer_WriteBuffersErrors(t *testing.T) {
	r, fake := newTestRenderer(t)

	assert.Error(t, r.WriteBuffers([]bgp.BufferWrite{{Binding: 0, Data: []byte{1}}}))

	orphan := bgp.NewBindGroupProvider("orphan", bgp.WithEntry(0, bgp.BindingKindUniform))
	err := r.WriteBuffers([]bgp.BufferWrite{{Provider: orphan, Binding: 0, Data: make([]byte, 16)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
	assert.Empty(t, fake.writes, "nothing is written when any target is invalid")

	require.NoError(t, r.WriteBuffers(nil))
}

func TestRenderer_DrawCall(t *testing.T) {
	r, fake := newTestRenderer(t)
	selector, err := pipeline.NewForwardSelector(nil)
	require.NoError(t, err)
	require.NoError(t, r.RegisterPipelines(selector.Pipelines()...))

	material := bgp.NewBindGroupProvider("material", bgp.WithEntry(0, bgp.BindingKindTexture2D), bgp.WithEntry(1, bgp.BindingKindSampler))
	camera := bgp.NewBindGroupProvider("camera", bgp.WithEntry(0, bgp.BindingKindUniform))
	lights := bgp.NewBindGroupProvider("lights", bgp.WithEntry(0, bgp.BindingKindUniform))
	plan, err := selector.Plan(pipeline.DrawRequest{Mode: light.ModeSingle, Providers: map[int]bgp.BindGroupProvider{0: material, 1: camera, 2: lights}})
	require.NoError(t, err)

	mesh := bgp.NewBindGroupProvider("cube")
	require.NoError(t, r.InitMeshBuffers(mesh, make([]byte, 32), make([]byte, 12), 3))
	require.NoError(t, r.WriteInstances(mesh, make([]byte, 128), 2))

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.DrawCall(plan, mesh, nil))
	require.Len(t, fake.draws, 1)
	assert.Equal(t, drawRecord{pipeline: "forward_single_light", mesh: "cube", instances: 2, groups: []int{0, 1, 2}}, fake.draws[0])
	assert.Equal(t, FrameStats{DrawCalls: 1, Instances: 2}, r.Stats())

	// nothing visible: skipped without error
	empty := bgp.NewBindGroupProvider("culled")
	require.NoError(t, r.WriteInstances(empty, nil, 0))
	require.NoError(t, r.DrawCall(plan, mesh, empty))
	assert.Len(t, fake.draws, 1)

	r.EndFrame()
	r.Present()
	require.NoError(t, r.BeginFrame())
	assert.Equal(t, FrameStats{}, r.Stats())
}

func TestRenderer_DrawCallErrors(t *testing.T) {
	r, _ := newTestRenderer(t)
	mesh := bgp.NewBindGroupProvider("cube")

	assert.Error(t, r.DrawCall(pipeline.DrawPlan{}, mesh, nil))

	p, err := pipeline.NewVariantPipeline(pipeline.VariantUnlit)
	require.NoError(t, err)
	assert.Error(t, r.DrawCall(pipeline.DrawPlan{Pipeline: p}, nil, nil))

	err = r.DrawCall(pipeline.DrawPlan{Pipeline: p}, mesh, nil)
	assert.ErrorIs(t, err, ErrPipelineNotRegistered)
}

func TestMergedLayout(t *testing.T) {
	p, err := pipeline.NewVariantPipeline(pipeline.VariantMultiLight)
	require.NoError(t, err)

	cam := MergedLayout(p, pipeline.CameraGroup)
	require.Len(t, cam.Entries, 1)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, cam.Entries[0].Visibility)

	// fragment-only bindings are widened so one bind group layout serves every variant
	lights := MergedLayout(p, pipeline.LightGroup)
	require.Len(t, lights.Entries, 1)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, lights.Entries[0].Visibility)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, lights.Entries[0].Buffer.Type)

	assert.Empty(t, MergedLayout(p, 7).Entries)

	unlit, err := pipeline.NewVariantPipeline(pipeline.VariantUnlit)
	require.NoError(t, err)
	assert.Equal(t, cam, MergedLayout(unlit, pipeline.CameraGroup), "the camera group is identical across variants")

	mat := MergedLayout(unlit, pipeline.MaterialGroup)
	require.Len(t, mat.Entries, 2)
	assert.Equal(t, []uint32{0, 1}, []uint32{mat.Entries[0].Binding, mat.Entries[1].Binding})
}

func TestMergeBindGroupLayouts_WritableStorageKeepsStages(t *testing.T) {
	frag := map[int]wgpu.BindGroupLayoutDescriptor{3: {Label: "out", Entries: []wgpu.BindGroupLayoutEntry{
		{Binding: 1, Visibility: wgpu.ShaderStageFragment, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
		{Binding: 0, Visibility: wgpu.ShaderStageFragment, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
	}}}
	merged := mergeBindGroupLayouts(nil, frag)
	require.Len(t, merged[3].Entries, 2)
	assert.Equal(t, "out", merged[3].Label)
	assert.Equal(t, uint32(0), merged[3].Entries[0].Binding)
	assert.Equal(t, sharedVisibility, merged[3].Entries[0].Visibility)
	assert.Equal(t, wgpu.ShaderStageFragment, merged[3].Entries[1].Visibility)
}
