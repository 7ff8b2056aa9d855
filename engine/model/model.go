package model

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/lumen/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lumen/engine/renderer/material"
	"github.com/google/uuid"
)

type model struct {
	mu              sync.RWMutex
	name            string
	meshes          []Mesh
	materials       []material.Material
	defaultMaterial material.Material
	instances       []Transform
	meshProviders   []bind_group_provider.BindGroupProvider
	boundingRadius  float32
	instancesDirty  bool
}

// Model is a set of meshes drawn with the same instance transforms. Each mesh owns a
// bind group provider holding its vertex, index and instance buffers; the material
// selected by Mesh.MaterialIndex supplies the texture bind group.
//
// Instance mutation is safe for concurrent use with the render loop reading instance data.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Meshes retrieves the model's meshes.
	//
	// Returns:
	//   - []Mesh: the meshes, in draw order
	Meshes() []Mesh

	// Materials retrieves the materials referenced by Mesh.MaterialIndex.
	//
	// Returns:
	//   - []material.Material: the materials
	Materials() []material.Material

	// MaterialFor resolves the material of mesh i. A mesh without a valid material index
	// uses the model's default material, an untextured white surface.
	//
	// Parameters:
	//   - i: the mesh index
	//
	// Returns:
	//   - material.Material: the material to draw the mesh with
	MaterialFor(i int) material.Material

	// MeshProvider retrieves the geometry bind group provider of mesh i.
	//
	// Parameters:
	//   - i: the mesh index
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the provider holding vertex, index and instance buffers
	MeshProvider(i int) bind_group_provider.BindGroupProvider

	// VertexData returns the packed vertex buffer of mesh i.
	//
	// Parameters:
	//   - i: the mesh index
	//
	// Returns:
	//   - []byte: the vertex buffer contents
	VertexData(i int) []byte

	// IndexData returns the packed uint32 index buffer of mesh i.
	//
	// Parameters:
	//   - i: the mesh index
	//
	// Returns:
	//   - []byte: the index buffer contents
	IndexData(i int) []byte

	// Instances returns a copy of the instance transforms.
	//
	// Returns:
	//   - []Transform: the transforms
	Instances() []Transform

	// SetInstances replaces the instance transforms and marks the instance buffer dirty.
	//
	// Parameters:
	//   - transforms: the new transforms
	SetInstances(transforms []Transform)

	// SetInstance replaces one instance transform. Out-of-range indices are ignored.
	//
	// Parameters:
	//   - i: the instance index
	//   - t: the new transform
	SetInstance(i int, t Transform)

	// InstanceData packs the instance transforms and reports whether they changed since the
	// last call, clearing the dirty flag.
	//
	// Returns:
	//   - []byte: the instance buffer contents
	//   - bool: true if the transforms changed since the previous call
	InstanceData() ([]byte, bool)

	// TakeInstances returns a copy of the instance transforms and reports whether they changed
	// since the last InstanceData or TakeInstances call, clearing the dirty flag. Use it instead
	// of InstanceData when only a subset of the instances is uploaded.
	//
	// Returns:
	//   - []Transform: the transforms
	//   - bool: true if the transforms changed since the previous call
	TakeInstances() ([]Transform, bool)

	// BoundingRadius returns the radius around the model origin enclosing every mesh vertex,
	// before instance scale.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32
}

var _ Model = &model{}

// NewModel creates a new Model instance configured with the provided options.
// A model without instances gets one identity instance, so it draws once at the origin.
//
// Parameters:
//   - options: variadic list of ModelBuilderOption functions
//
// Returns:
//   - Model: the configured model
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	if m.name == "" {
		m.name = "model_" + uuid.NewString()
	}
	if len(m.instances) == 0 {
		m.instances = []Transform{IdentityTransform()}
	}
	m.instancesDirty = true
	m.defaultMaterial = material.NewMaterial(material.WithName(m.name + "_default_material"))

	m.meshProviders = make([]bind_group_provider.BindGroupProvider, len(m.meshes))
	for i, mesh := range m.meshes {
		m.meshProviders[i] = bind_group_provider.NewBindGroupProvider(
			m.name+"_"+mesh.Name,
			bind_group_provider.WithIndexCount(len(mesh.Indices)),
		)
		m.boundingRadius = max(m.boundingRadius, ComputeBoundingRadius(mesh.Vertices))
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Meshes() []Mesh {
	return m.meshes
}

func (m *model) Materials() []material.Material {
	return m.materials
}

func (m *model) MaterialFor(i int) material.Material {
	if i >= 0 && i < len(m.meshes) {
		if idx := m.meshes[i].MaterialIndex; idx >= 0 && idx < len(m.materials) {
			return m.materials[idx]
		}
	}
	return m.defaultMaterial
}

func (m *model) MeshProvider(i int) bind_group_provider.BindGroupProvider {
	return m.meshProviders[i]
}

func (m *model) VertexData(i int) []byte {
	return MarshalVertices(m.meshes[i].Vertices)
}

func (m *model) IndexData(i int) []byte {
	return MarshalIndices(m.meshes[i].Indices)
}

func (m *model) Instances() []Transform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transform, len(m.instances))
	copy(out, m.instances)
	return out
}

func (m *model) SetInstances(transforms []Transform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances = append(m.instances[:0:0], transforms...)
	m.instancesDirty = true
}

func (m *model) SetInstance(i int, t Transform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.instances) {
		return
	}
	m.instances[i] = t
	m.instancesDirty = true
}

func (m *model) InstanceData() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dirty := m.instancesDirty
	m.instancesDirty = false
	return MarshalInstances(m.instances), dirty
}

func (m *model) TakeInstances() ([]Transform, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dirty := m.instancesDirty
	m.instancesDirty = false
	return slices.Clone(m.instances), dirty
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}
