package model

import "github.com/Carmen-Shannon/lumen/engine/renderer/material"

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithMeshes is an option builder that appends meshes to the Model.
//
// Parameters:
//   - meshes: the meshes to add
//
// Returns:
//   - ModelBuilderOption: a function that applies the meshes option to a model
func WithMeshes(meshes ...Mesh) ModelBuilderOption {
	return func(m *model) {
		m.meshes = append(m.meshes, meshes...)
	}
}

// WithMaterials is an option builder that sets the materials referenced by Mesh.MaterialIndex.
//
// Parameters:
//   - materials: the materials
//
// Returns:
//   - ModelBuilderOption: a function that applies the materials option to a model
func WithMaterials(materials ...material.Material) ModelBuilderOption {
	return func(m *model) {
		m.materials = append(m.materials, materials...)
	}
}

// WithInstances is an option builder that sets the instance transforms of the Model.
//
// Parameters:
//   - transforms: the instance transforms
//
// Returns:
//   - ModelBuilderOption: a function that applies the instances option to a model
func WithInstances(transforms ...Transform) ModelBuilderOption {
	return func(m *model) {
		m.instances = append(m.instances, transforms...)
	}
}
