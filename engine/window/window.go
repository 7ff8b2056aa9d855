package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// KeyAction is the transition reported for a key event.
type KeyAction int

const (
	// KeyPressed is reported on the initial press and on auto-repeat.
	KeyPressed KeyAction = iota
	// KeyReleased is reported when the key goes up.
	KeyReleased
)

// Window is the native surface the forward renderer presents into. It owns the platform
// event loop and forwards keyboard and resize events to the registered callbacks.
type Window interface {
	// SetUpdateCallback sets the function called once per event loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer changes size.
	// The reported size is already clamped to the configured limits.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyCallback sets the function called for key presses, repeats and releases.
	//
	// Parameters:
	//   - callback: function receiving the key code (see common.Key*) and the action
	SetKeyCallback(callback func(key int, action KeyAction))

	// SurfaceDescriptor returns a descriptor for creating a WebGPU surface on this window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform surface descriptor, or nil if no native window exists
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	//
	// Returns:
	//   - bool: true until the window is closed
	IsRunning() bool

	// Close destroys the native window.
	//
	// Returns:
	//   - error: error if the window was never opened
	Close() error

	// Run pumps platform events until the window closes, calling the update callback each iteration.
	Run()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int

	// Title returns the title bar text.
	Title() string
}

type engineWindow struct {
	title string

	width, height       int
	minWidth, minHeight int
	maxWidth, maxHeight int

	// closeKey closes the window when pressed; 0 disables it.
	closeKey int

	// native is the platform window, nil until opened.
	native platformWindow

	onUpdate func()
	onResize func(width, height int)
	onKey    func(key int, action KeyAction)
}

// platformWindow is implemented by the native backend.
type platformWindow interface {
	surfaceDescriptor() *wgpu.SurfaceDescriptor
	poll() bool
	shouldClose() bool
	requestClose()
	destroy()
}

var _ Window = &engineWindow{}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "lumen",
		width:     1280,
		height:    720,
		minWidth:  320,
		minHeight: 200,
		maxWidth:  3840,
		maxHeight: 2160,
		closeKey:  256,
	}
	for _, opt := range options {
		opt(w)
	}
	w.width, w.height = w.clamp(w.width, w.height)
	return w
}

// NewWindow creates and opens a native window.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	native, err := openPlatformWindow(w)
	if err != nil {
		return nil, fmt.Errorf("open window %q: %w", w.title, err)
	}
	w.native = native
	return w, nil
}

// clamp limits a size to the configured bounds. A zero maximum is unbounded.
func (w *engineWindow) clamp(width, height int) (int, int) {
	width = max(width, w.minWidth)
	height = max(height, w.minHeight)
	if w.maxWidth > 0 {
		width = min(width, w.maxWidth)
	}
	if w.maxHeight > 0 {
		height = min(height, w.maxHeight)
	}
	return width, height
}

// handleKey is the platform-independent half of key handling.
func (w *engineWindow) handleKey(key int, action KeyAction) {
	if w.closeKey != 0 && key == w.closeKey && action == KeyPressed {
		if w.native != nil {
			w.native.requestClose()
		}
		return
	}
	if w.onKey != nil {
		w.onKey(key, action)
	}
}

// handleResize records the framebuffer size. Minimized windows report 0x0 and are ignored.
func (w *engineWindow) handleResize(width, height int) {
	if width == 0 || height == 0 {
		return
	}
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key int, action KeyAction)) {
	w.onKey = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.native == nil {
		return nil
	}
	return w.native.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.native != nil && !w.native.shouldClose()
}

func (w *engineWindow) Close() error {
	if w.native == nil {
		return fmt.Errorf("window %q is not open", w.title)
	}
	w.native.destroy()
	w.native = nil
	return nil
}

func (w *engineWindow) Run() {
	for w.IsRunning() {
		if !w.native.poll() {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}

func (w *engineWindow) Title() string {
	return w.title
}
