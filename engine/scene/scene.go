package scene

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/model"
	"github.com/Carmen-Shannon/lumen/engine/renderer"
	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lumen/engine/renderer/material"
	"github.com/Carmen-Shannon/lumen/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultLightCapacity is the number of light records the storage buffer is first allocated for.
const DefaultLightCapacity = 16

// Scene is the per-frame driver of the forward pass. PrepareFrame writes the camera block and
// the light data once per frame, then DrawCalls plans and issues one draw per mesh, selecting
// the pipeline variant from the number of enabled lights.
//
// Scene methods are safe for concurrent use; PrepareFrame and DrawCalls must be called from
// the render goroutine between Renderer.BeginFrame and Renderer.EndFrame.
type Scene interface {
	// Name retrieves the scene identifier.
	//
	// Returns:
	//   - string: the scene name
	Name() string

	// Active reports whether the engine renders this scene.
	//
	// Returns:
	//   - bool: true if active
	Active() bool

	// SetActive enables or disables rendering of the scene.
	//
	// Parameters:
	//   - active: true to render the scene
	SetActive(active bool)

	// Camera retrieves the scene camera.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Renderer retrieves the renderer the scene draws with.
	//
	// Returns:
	//   - renderer.Renderer: the renderer
	Renderer() renderer.Renderer

	// Selector retrieves the pipeline variant selector.
	//
	// Returns:
	//   - pipeline.Selector: the selector holding one pipeline per variant
	Selector() pipeline.Selector

	// CullingDisabled reports whether frustum culling is skipped.
	CullingDisabled() bool

	// SetCullingDisabled turns frustum culling off or on.
	//
	// Parameters:
	//   - disabled: true to upload and draw every instance
	SetCullingDisabled(disabled bool)

	// AddLight registers a light. Lights are packed in registration order.
	//
	// Parameters:
	//   - l: the light
	AddLight(l light.Light)

	// RemoveLight unregisters a light. Unknown lights are ignored.
	//
	// Parameters:
	//   - l: the light
	RemoveLight(l light.Light)

	// Lights returns a copy of the registered lights.
	//
	// Returns:
	//   - []light.Light: the lights in registration order
	Lights() []light.Light

	// Mode returns the lit draw mode chosen by the last PrepareFrame.
	//
	// Returns:
	//   - light.Mode: ModeSingle or ModeMulti, ModeNone before the first frame
	Mode() light.Mode

	// Add uploads a model's geometry and materials and registers it for drawing.
	//
	// Parameters:
	//   - mdl: the model
	//   - unlit: true to draw the model with the unlit variant regardless of lights
	//
	// Returns:
	//   - uint64: the object id
	//   - error: error if a GPU resource could not be created
	Add(mdl model.Model, unlit bool) (uint64, error)

	// Get retrieves the model registered under id, or nil.
	//
	// Parameters:
	//   - id: the object id
	//
	// Returns:
	//   - model.Model: the model
	Get(id uint64) model.Model

	// Remove unregisters an object. Unknown ids are ignored.
	//
	// Parameters:
	//   - id: the object id
	Remove(id uint64)

	// Count returns the number of registered objects.
	Count() int

	// Clear unregisters every object.
	Clear()

	// PrepareFrame updates the camera, packs the camera block and the light data for the frame's
	// mode into a single Renderer.WriteBuffers call, culls instances against the view frustum in
	// parallel, and uploads the instance buffers whose visible set changed.
	//
	// Returns:
	//   - error: error if a buffer write failed
	PrepareFrame() error

	// DrawCalls plans and issues the draws of every registered object. A layout mismatch between
	// the bound providers and the selected pipeline is returned as an error and the draw is skipped.
	//
	// Returns:
	//   - error: the joined errors of every rejected draw
	DrawCalls() error

	// Close stops the scene's worker pool.
	Close()
}

type object struct {
	id    uint64
	model model.Model
	unlit bool

	// visible holds the instance indices uploaded last, nil before the first upload.
	visible []int
}

// instanceUpload is the culling result of one object for one frame.
type instanceUpload struct {
	obj     *object
	data    []byte
	count   int
	changed bool
}

type scene struct {
	mu     sync.RWMutex
	name   string
	active bool

	cam      camera.Camera
	r        renderer.Renderer
	selector pipeline.Selector

	pipelineOpts  []pipeline.PipelineBuilderOption
	lightCapacity int

	lights      []light.Light
	singleLight bind_group_provider.BindGroupProvider
	lightArray  bind_group_provider.BindGroupProvider
	mode        light.Mode

	objects []*object
	nextID  uint64

	// materials already staged on the GPU
	materials map[material.Material]bool

	cullingDisabled bool

	// prepPool runs per-object culling and instance packing. Workers persist across frames.
	prepPool    worker.DynamicWorkerPool
	prepWorkers int
}

var _ Scene = &scene{}

// NewScene creates a scene, registers the forward pipelines with the renderer, and initializes
// the camera and light bind groups.
//
// Parameters:
//   - name: the scene name
//   - cam: the camera (must not be nil)
//   - r: the renderer (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the scene
//   - error: error if a pipeline or bind group could not be created
func NewScene(name string, cam camera.Camera, r renderer.Renderer, options ...SceneBuilderOption) (Scene, error) {
	if cam == nil || r == nil {
		return nil, errors.New("scene: camera and renderer are required")
	}
	s := &scene{
		name:          name,
		active:        true,
		cam:           cam,
		r:             r,
		lightCapacity: DefaultLightCapacity,
		nextID:        1,
		materials:     make(map[material.Material]bool),
		prepWorkers:   max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(s)
	}

	if s.selector == nil {
		sel, err := pipeline.NewForwardSelector(s.pipelineOpts)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", name, err)
		}
		s.selector = sel
	}
	if err := r.RegisterPipelines(s.selector.Pipelines()...); err != nil {
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}

	if err := s.initFrameBindGroups(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}

	s.prepPool = worker.NewDynamicWorkerPool(s.prepWorkers, 256, time.Second)
	common.Logger().Info("scene created", "scene", name, "pipelines", len(s.selector.Pipelines()), "workers", s.prepWorkers)
	return s, nil
}

// initFrameBindGroups creates the camera uniform and both light bindings. Layouts come from the
// registered pipelines so the bind groups match the pipeline layouts exactly.
func (s *scene) initFrameBindGroups() error {
	single, err := s.selector.Select(light.ModeSingle)
	if err != nil {
		return err
	}
	multi, err := s.selector.Select(light.ModeMulti)
	if err != nil {
		return err
	}

	if err := s.r.InitBindGroup(s.cam.BindGroupProvider(), renderer.MergedLayout(single, pipeline.CameraGroup), nil, nil); err != nil {
		return err
	}

	s.singleLight = bind_group_provider.NewBindGroupProvider(s.name+"_light",
		bind_group_provider.WithEntry(0, bind_group_provider.BindingKindUniform))
	if err := s.r.InitBindGroup(s.singleLight, renderer.MergedLayout(single, pipeline.LightGroup), nil, nil); err != nil {
		return err
	}

	s.lightArray = bind_group_provider.NewBindGroupProvider(s.name+"_lights",
		bind_group_provider.WithEntry(0, bind_group_provider.BindingKindReadOnlyStorage))
	capacity := map[int]uint64{0: uint64(max(s.lightCapacity, 1) * light.RecordSize)}
	return s.r.InitBindGroup(s.lightArray, renderer.MergedLayout(multi, pipeline.LightGroup), nil, capacity)
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	return s.cam
}

func (s *scene) Renderer() renderer.Renderer {
	return s.r
}

func (s *scene) Selector() pipeline.Selector {
	return s.selector
}

func (s *scene) CullingDisabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cullingDisabled
}

func (s *scene) SetCullingDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cullingDisabled = disabled
}

func (s *scene) AddLight(l light.Light) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = slices.DeleteFunc(s.lights, func(x light.Light) bool { return x == l })
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lights)
}

func (s *scene) Mode() light.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *scene) Add(mdl model.Model, unlit bool) (uint64, error) {
	if mdl == nil {
		return 0, errors.New("scene: nil model")
	}
	unlitPipeline, err := s.selector.Select(light.ModeNone)
	if err != nil {
		return 0, err
	}
	materialLayout := renderer.MergedLayout(unlitPipeline, pipeline.MaterialGroup)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, mesh := range mdl.Meshes() {
		if err := s.r.InitMeshBuffers(mdl.MeshProvider(i), mdl.VertexData(i), mdl.IndexData(i), len(mesh.Indices)); err != nil {
			return 0, fmt.Errorf("scene %s: mesh %s: %w", s.name, mesh.Name, err)
		}
		mat := mdl.MaterialFor(i)
		if s.materials[mat] {
			continue
		}
		if err := s.stageMaterial(mat, materialLayout); err != nil {
			return 0, fmt.Errorf("scene %s: %w", s.name, err)
		}
		s.materials[mat] = true
	}

	obj := &object{id: s.nextID, model: mdl, unlit: unlit}
	s.nextID++
	s.objects = append(s.objects, obj)
	common.Logger().Debug("object added", "scene", s.name, "id", obj.id, "model", mdl.Name(), "unlit", unlit)
	return obj.id, nil
}

func (s *scene) stageMaterial(mat material.Material, layout wgpu.BindGroupLayoutDescriptor) error {
	prov := mat.BindGroupProvider()
	if err := s.r.InitTextureView(prov, material.DiffuseTextureBinding, material.UploadTexture(mat)); err != nil {
		return fmt.Errorf("material %s: %w", mat.Name(), err)
	}
	if err := s.r.InitSampler(prov, material.DiffuseSamplerBinding, mat.Sampler().Staging()); err != nil {
		return fmt.Errorf("material %s: %w", mat.Name(), err)
	}
	return s.r.InitBindGroup(prov, layout, nil, nil)
}

func (s *scene) Get(id uint64) model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.objects[i].model
	}
	return nil
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.objects = slices.Delete(s.objects, i, i+1)
	}
}

func (s *scene) indexOf(id uint64) int {
	return slices.IndexFunc(s.objects, func(o *object) bool { return o.id == id })
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
}

func (s *scene) PrepareFrame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cam.Update()
	block := s.cam.Block()
	writes := []bind_group_provider.BufferWrite{{
		Provider: s.cam.BindGroupProvider(),
		Binding:  0,
		Data:     block.Marshal(),
	}}

	// One read per light: the mode and the packed records come from the same state.
	records := light.Snapshot(s.lights)
	s.mode = light.ModeFor(len(records), false)
	switch s.mode {
	case light.ModeSingle:
		fixed := light.FixedLight{GPULight: records[0].GPU()}
		writes = append(writes, bind_group_provider.BufferWrite{Provider: s.singleLight, Binding: 0, Data: fixed.Marshal()})
	case light.ModeMulti:
		data := light.PackRecords(records).Marshal()
		// Records past the packed count stay zero so a shrinking light set leaves no stale lights.
		if capacity := s.lightArray.BufferSize(0); uint64(len(data)) < capacity {
			data = append(data, make([]byte, capacity-uint64(len(data)))...)
		}
		writes = append(writes, bind_group_provider.BufferWrite{Provider: s.lightArray, Binding: 0, Data: data})
	}

	if err := s.r.WriteBuffers(writes); err != nil {
		return fmt.Errorf("scene %s: prepare frame: %w", s.name, err)
	}

	var errs []error
	for _, up := range s.cullInstances(s.cam.Frustum()) {
		if !up.changed {
			continue
		}
		for i := range up.obj.model.Meshes() {
			if err := s.r.WriteInstances(up.obj.model.MeshProvider(i), up.data, up.count); err != nil {
				errs = append(errs, fmt.Errorf("scene %s: instances of %s: %w", s.name, up.obj.model.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// cullInstances tests every object's instances against the frustum on the prep pool and packs
// the visible ones. Each task touches only its own object.
func (s *scene) cullInstances(frustum common.Frustum) []instanceUpload {
	uploads := make([]instanceUpload, len(s.objects))
	var wg sync.WaitGroup
	for i, obj := range s.objects {
		wg.Add(1)
		s.prepPool.SubmitTask(worker.Task{
			ID:      i,
			Payload: obj.id,
			Do: func() (any, error) {
				defer wg.Done()
				uploads[i] = s.cullObject(obj, frustum)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return uploads
}

func (s *scene) cullObject(obj *object, frustum common.Frustum) instanceUpload {
	transforms, dirty := obj.model.TakeInstances()
	radius := obj.model.BoundingRadius()

	visible := make([]int, 0, len(transforms))
	for i, t := range transforms {
		if s.cullingDisabled || frustum.IntersectsSphere(t.Translation, radius*t.MaxScale()) {
			visible = append(visible, i)
		}
	}

	up := instanceUpload{obj: obj, count: len(visible)}
	if !dirty && obj.visible != nil && slices.Equal(visible, obj.visible) {
		return up
	}
	picked := make([]model.Transform, len(visible))
	for j, i := range visible {
		picked[j] = transforms[i]
	}
	obj.visible = visible
	up.data = model.MarshalInstances(picked)
	up.changed = true
	return up
}

func (s *scene) DrawCalls() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	for _, obj := range s.objects {
		mode := s.mode
		if obj.unlit {
			mode = light.ModeNone
		}
		providers := map[int]bind_group_provider.BindGroupProvider{
			pipeline.CameraGroup: s.cam.BindGroupProvider(),
		}
		switch mode {
		case light.ModeSingle:
			providers[pipeline.LightGroup] = s.singleLight
		case light.ModeMulti:
			providers[pipeline.LightGroup] = s.lightArray
		}

		for i, mesh := range obj.model.Meshes() {
			providers[pipeline.MaterialGroup] = obj.model.MaterialFor(i).BindGroupProvider()
			plan, err := s.selector.Plan(pipeline.DrawRequest{
				Label:     obj.model.Name() + "/" + mesh.Name,
				Mode:      mode,
				Providers: providers,
			})
			if err != nil {
				errs = append(errs, err)
				continue
			}
			meshProvider := obj.model.MeshProvider(i)
			if err := s.r.DrawCall(plan, meshProvider, meshProvider); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *scene) Close() {
	s.prepPool.Stop()
}
