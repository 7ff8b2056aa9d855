package engine

import (
	"time"

	"github.com/Carmen-Shannon/lumen/engine/profiler"
	"github.com/Carmen-Shannon/lumen/engine/scene"
	"github.com/Carmen-Shannon/lumen/engine/window"
)

// EngineBuilderOption configures an Engine in NewEngine.
type EngineBuilderOption func(*engine)

// WithProfiling sets the initial state of the frame statistics log. EnableProfiler and
// DisableProfiler change it at runtime.
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default profiler, e.g. to change its report interval or logger.
//
// Parameters:
//   - p: the profiler; nil is ignored
//
// Returns:
//   - EngineBuilderOption: the option
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
	}
}

// WithTickRate sets how often controllers are stepped and the tick callback runs.
//
// Parameters:
//   - fps: ticks per second; zero or negative keeps 60
//
// Returns:
//   - EngineBuilderOption: the option
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets the window the engine pumps events from. Without a window the engine runs
// headless until Quit is called.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: the option
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScene adds a scene under a draw-order key, lowest key first. The first active scene
// also owns the frame's renderer.
//
// Parameters:
//   - key: the draw-order key
//   - s: the scene
//
// Returns:
//   - EngineBuilderOption: the option
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit caps the render loop. Zero, the default, renders as fast as the
// present mode allows.
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}
