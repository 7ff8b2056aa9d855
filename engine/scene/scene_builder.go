package scene

import "github.com/Carmen-Shannon/lumen/engine/renderer/pipeline"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering. Scenes are active by default.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithSelector supplies a prebuilt variant selector instead of the builtin forward pipelines.
// The selector must hold a pipeline for every variant.
//
// Parameters:
//   - sel: the selector
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSelector(sel pipeline.Selector) SceneBuilderOption {
	return func(s *scene) {
		s.selector = sel
	}
}

// WithPipelineOptions configures the builtin forward pipelines, for example culling or depth
// settings. Ignored when WithSelector is used.
//
// Parameters:
//   - opts: the pipeline options applied to every variant
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPipelineOptions(opts ...pipeline.PipelineBuilderOption) SceneBuilderOption {
	return func(s *scene) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// WithLightCapacity sets how many light records the storage buffer is first allocated for.
// The buffer still grows when more lights are enabled.
//
// Parameters:
//   - n: the initial record capacity (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLightCapacity(n int) SceneBuilderOption {
	return func(s *scene) {
		s.lightCapacity = max(n, 1)
	}
}

// WithPrepWorkers sets the number of worker goroutines culling instances in PrepareFrame.
// Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPrepWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.prepWorkers = max(n, 1)
	}
}

// WithCullingDisabled turns off frustum culling.
func WithCullingDisabled(disabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingDisabled = disabled
	}
}
