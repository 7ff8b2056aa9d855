package renderer

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lumen/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/lumen/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrPipelineNotRegistered is returned when a draw names a pipeline that was never created on the GPU.
var ErrPipelineNotRegistered = errors.New("pipeline not registered")

// bindGroupInit remembers how a provider's bind group was created so it can be rebuilt after
// one of its buffers is reallocated.
type bindGroupInit struct {
	descriptor wgpu.BindGroupLayoutDescriptor
	usage      map[int]wgpu.BufferUsage
}

// FrameStats counts the work encoded since the last BeginFrame.
type FrameStats struct {
	DrawCalls int
	Instances int
	// Reallocations counts buffers grown by WriteBuffers.
	Reallocations int
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache  map[string]pipeline.Pipeline
	bindGroupInits map[bind_group_provider.BindGroupProvider]bindGroupInit
	stats          FrameStats

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           wgpu.Color
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer manages a cache of pipelines and the GPU resources of bind group providers, and
// delegates GPU work to a RendererBackend. All methods are meant for the render goroutine, the
// single writer of GPU state.
type Renderer interface {
	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves a copy of the pipeline cache.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines creates the GPU render pipeline of each Pipeline via the backend, then caches
	// them by PipelineKey. Pipelines whose keys are already registered are skipped to avoid duplicate
	// GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// InitMeshBuffers creates GPU vertex and index buffers from raw byte data and stores them
	// on the given BindGroupProvider for later use in draw calls.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// WriteInstances uploads the per-instance model matrices drawn with a mesh, growing the
	// provider's instance buffer when the data outgrows it.
	//
	// Parameters:
	//   - provider: the provider holding the instance buffer
	//   - data: packed instance data
	//   - count: the number of instances in data
	//
	// Returns:
	//   - error: an error if the buffer cannot be created
	WriteInstances(provider bind_group_provider.BindGroupProvider, data []byte, count int) error

	// InitBindGroup creates GPU buffers and a bind group from a layout descriptor and stores them
	// on the given BindGroupProvider. Textures and samplers must be initialized via InitTextureView
	// and InitSampler before calling this method. Buffer usage and size can be overridden per binding.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//   - bufferUsageOverrides: additional buffer usage flags to OR into the derived usage, keyed by binding index (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes to use instead of MinBindingSize, keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView creates a GPU texture from staging data and stores the resulting texture view
	// on the given BindGroupProvider at the specified binding index. Must be called before InitBindGroup
	// for any texture bindings.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture view on
	//   - bindingKey: the binding index for this texture
	//   - stagingData: the pixel data and dimensions for the texture
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a GPU sampler from staging data and stores it on the given BindGroupProvider
	// at the specified binding index. Must be called before InitBindGroup for any sampler bindings.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index for this sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// A buffer too small for the writes targeting it is reallocated to the exact size needed
	// and its provider's bind group is rebuilt before any data is written.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	//
	// Returns:
	//   - error: an error if a target provider was never initialized or reallocation fails
	WriteBuffers(writes []bind_group_provider.BufferWrite) error

	// BeginFrame acquires the swapchain texture and begins the main render pass.
	// Must be paired with EndFrame after all DrawCall invocations within a single frame.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// DrawCall encodes a single instanced draw of a checked plan within the current render pass.
	// Multiple DrawCall invocations can be made between BeginFrame and EndFrame.
	//
	// Parameters:
	//   - plan: the pipeline and bind groups returned by the pipeline selector
	//   - mesh: the BindGroupProvider holding vertex and index buffers
	//   - instances: the BindGroupProvider holding the instance buffer, or nil to use mesh
	//
	// Returns:
	//   - error: an error if the plan's pipeline was never registered
	DrawCall(plan pipeline.DrawPlan, mesh, instances bind_group_provider.BindGroupProvider) error

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	// Does not present the surface; call Present() after EndFrame to display the frame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()

	// Stats returns the counters of the current frame.
	//
	// Returns:
	//   - FrameStats: draw calls, instances and reallocations since BeginFrame
	Stats() FrameStats
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type and window.
// The window supplies the platform surface and its initial size.
// Backend setup failures panic, as no frame can be drawn without a device.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window to render into; may be nil when WithBackend supplies the backend
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:             &sync.Mutex{},
		pipelineCache:  make(map[string]pipeline.Pipeline),
		bindGroupInits: make(map[bind_group_provider.BindGroupProvider]bindGroupInit),
		backendType:    backendType,
		clearColor:     wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x // default
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	if r.backend == nil {
		switch backendType {
		case BackendTypeWGPU:
			fallthrough
		default:
			if win == nil {
				panic("renderer: the wgpu backend needs a window surface")
			}
			r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa, r.clearColor)
		}
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	if win != nil {
		r.backend.ConfigureSurface(win.Width(), win.Height())
	}
	return r
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.pipelineCache)
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("register pipeline %s: %w", key, err)
		}
		r.pipelineCache[key] = p
		common.Logger().Debug("render pipeline created", "pipeline", key, "variant", p.Variant().String())
	}
	return nil
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) WriteInstances(provider bind_group_provider.BindGroupProvider, data []byte, count int) error {
	return r.backend.WriteInstanceBuffer(provider, data, count)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	if err := r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides); err != nil {
		return fmt.Errorf("init bind group %s: %w", provider.Label(), err)
	}
	r.mu.Lock()
	r.bindGroupInits[provider] = bindGroupInit{descriptor: descriptor, usage: bufferUsageOverrides}
	r.mu.Unlock()
	return nil
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

type bufferKey struct {
	provider bind_group_provider.BindGroupProvider
	binding  int
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	needed := make(map[bufferKey]uint64)
	var order []bufferKey
	for _, w := range writes {
		if w.Provider == nil {
			return errors.New("write buffers: nil provider")
		}
		k := bufferKey{w.Provider, w.Binding}
		if _, seen := needed[k]; !seen {
			order = append(order, k)
		}
		needed[k] = max(needed[k], w.End())
	}

	var rebuild []bind_group_provider.BindGroupProvider
	for _, k := range order {
		size := needed[k]
		if size <= k.provider.BufferSize(k.binding) {
			continue
		}
		if _, ok := r.bindGroupInits[k.provider]; !ok {
			return fmt.Errorf("write buffers: %s binding %d: bind group not initialized", k.provider.Label(), k.binding)
		}
		if err := r.backend.ReallocateBuffer(k.provider, k.binding, size); err != nil {
			return fmt.Errorf("write buffers: reallocate %s binding %d: %w", k.provider.Label(), k.binding, err)
		}
		r.stats.Reallocations++
		common.Logger().Debug("buffer reallocated", "provider", k.provider.Label(), "binding", k.binding, "size", size)
		if !slices.Contains(rebuild, k.provider) {
			rebuild = append(rebuild, k.provider)
		}
	}
	for _, p := range rebuild {
		init := r.bindGroupInits[p]
		if err := r.backend.InitBindGroup(p, init.descriptor, init.usage, nil); err != nil {
			return fmt.Errorf("write buffers: rebuild %s: %w", p.Label(), err)
		}
	}

	r.backend.WriteBuffers(writes)
	return nil
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	r.stats = FrameStats{}
	r.mu.Unlock()
	return r.backend.BeginFrame()
}

func (r *renderer) DrawCall(plan pipeline.DrawPlan, mesh, instances bind_group_provider.BindGroupProvider) error {
	if plan.Pipeline == nil {
		return errors.New("draw call: plan has no pipeline")
	}
	if mesh == nil {
		return errors.New("draw call: nil mesh provider")
	}
	if instances == nil {
		instances = mesh
	}

	r.mu.Lock()
	p, exists := r.pipelineCache[plan.Pipeline.PipelineKey()]
	r.mu.Unlock()
	if !exists {
		return fmt.Errorf("draw call: %w: %q", ErrPipelineNotRegistered, plan.Pipeline.PipelineKey())
	}
	if mesh.IndexCount() == 0 || instances.InstanceCount() == 0 {
		return nil
	}

	r.backend.DrawCall(p, mesh, instances, plan.BindGroups)

	r.mu.Lock()
	r.stats.DrawCalls++
	r.stats.Instances += instances.InstanceCount()
	r.mu.Unlock()
	return nil
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Stats() FrameStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
