package engine

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/profiler"
	"github.com/Carmen-Shannon/lumen/engine/scene"
	"github.com/Carmen-Shannon/lumen/engine/window"
)

// idleRenderWait is how long the render loop waits before polling again when it had nothing to draw.
const idleRenderWait = 10 * time.Millisecond

// engine implements the Engine interface.
// Coordinates the tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	mu             sync.RWMutex
	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	scenes map[int]scene.Scene

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the tick loop, the render loop and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, or nil for a headless engine
	Window() window.Window

	// EnableProfiler enables frame statistics output to the log.
	EnableProfiler()

	// DisableProfiler disables frame statistics output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// Every tick steps the camera controllers of the active scenes, then calls the tick callback.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, moving lights and updating instances.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each presented frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are rendered in ascending key order during the render loop.
	//
	// Parameters:
	//   - key: the z-index determining render order (lower renders first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Run starts the engine. With a window it pumps window events on the calling goroutine and
	// returns once the window closes. Without one it blocks until Quit is called.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// When a window is supplied its resize events resize every scene's renderer and camera, and its
// key events drive the camera controllers of the active scenes.
//
// Parameters:
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		profiler:        profiler.NewProfiler(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
		e.window.SetKeyCallback(e.key)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.handle()
	if e.window != nil {
		e.window.Run()
		e.signalQuit()
	}
	e.wg.Wait()
}

func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
		if e.window != nil && e.window.IsRunning() {
			if err := e.window.Close(); err != nil {
				common.Logger().Warn("closing window", "error", err)
			}
		}
	})
}

// handle launches the tick and render goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleRender()
}

// resize forwards a framebuffer resize to every scene.
func (e *engine) resize(width, height int) {
	for _, s := range e.Scenes() {
		if r := s.Renderer(); r != nil {
			r.Resize(width, height)
		}
		if c := s.Camera(); c != nil && height > 0 {
			c.SetAspect(float32(width) / float32(height))
		}
	}
}

// key forwards a key event to the camera controllers of the active scenes.
func (e *engine) key(key int, action window.KeyAction) {
	for _, s := range e.activeScenes() {
		if c := s.Camera(); c != nil {
			c.Controller().ProcessKey(key, action == window.KeyPressed)
		}
	}
}

// activeScenes returns the active scenes in ascending z-index order.
func (e *engine) activeScenes() []scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var active []scene.Scene
	for _, k := range slices.Sorted(maps.Keys(e.scenes)) {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Steps the active cameras and fires the tick callback at the configured rate, listening for
// dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	e.mu.RLock()
	rate := e.engineTickRate
	e.mu.RUnlock()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			for _, s := range e.activeScenes() {
				if c := s.Camera(); c != nil {
					c.Controller().Step()
				}
			}

			e.mu.RLock()
			cb := e.tickCallback
			e.mu.RUnlock()
			if cb != nil {
				cb(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			drawn, err := e.renderFrame()
			if err != nil {
				common.Logger().Warn("frame failed", "error", err)
			}

			e.mu.RLock()
			cb, limit := e.renderCallback, e.renderFrameLimit
			e.mu.RUnlock()
			if cb != nil {
				cb(dt)
			}

			var wait time.Duration
			if limit > 0 {
				wait = limit - time.Since(lastRender)
			}
			if !drawn {
				wait = max(wait, idleRenderWait)
			}
			if wait > 0 {
				select {
				case <-e.quitChannel:
					return
				case <-time.After(wait):
				}
			}
		}
	}
}

// renderFrame draws every active scene into one frame and reports whether a frame was drawn.
// All buffer writes are queued first so each scene's camera and light data is in place before
// the render pass opens; scenes sharing the first scene's renderer composite in z-index order.
func (e *engine) renderFrame() (bool, error) {
	active := e.activeScenes()
	if len(active) == 0 {
		return false, nil
	}
	frameRenderer := active[0].Renderer()
	if frameRenderer == nil {
		return false, nil
	}

	var errs []error
	for _, s := range active {
		if err := s.PrepareFrame(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := frameRenderer.BeginFrame(); err != nil {
		return false, errors.Join(append(errs, err)...)
	}
	for _, s := range active {
		if err := s.DrawCalls(); err != nil {
			errs = append(errs, err)
		}
	}
	frameRenderer.EndFrame()
	frameRenderer.Present()

	if e.profilingEnabled.Load() && e.profiler != nil {
		stats := frameRenderer.Stats()
		e.profiler.Tick(stats.DrawCalls, stats.Instances)
	}
	return true, errors.Join(errs...)
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	e.engineTickRate = newRate
	e.mu.Unlock()

	if !e.running.Load() {
		return
	}
	// replace any pending update that the tick loop has not picked up yet
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return maps.Clone(e.scenes)
}

// frameDuration converts a frame rate into a frame duration, 0 for an uncapped rate.
func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
