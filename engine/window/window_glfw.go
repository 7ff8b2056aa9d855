package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type glfwWindow struct {
	window *glfw.Window
}

var _ platformWindow = &glfwWindow{}

// openPlatformWindow creates a GLFW window without a GL context and routes its events into w.
//
// Reference: https://www.glfw.org/docs/latest/window_guide.html
func openPlatformWindow(w *engineWindow) (*glfwWindow, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initialize GLFW: %w", err)
	}

	// WebGPU drives the surface, no OpenGL context.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create GLFW window: %w", err)
	}

	maxW, maxH := glfw.DontCare, glfw.DontCare
	if w.maxWidth > 0 {
		maxW = w.maxWidth
	}
	if w.maxHeight > 0 {
		maxH = w.maxHeight
	}
	win.SetSizeLimits(w.minWidth, w.minHeight, maxW, maxH)

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		switch action {
		case glfw.Press, glfw.Repeat:
			w.handleKey(int(key), KeyPressed)
		case glfw.Release:
			w.handleKey(int(key), KeyReleased)
		}
	})

	// Framebuffer size, not window size: they differ on high-DPI displays and the
	// surface is configured in pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.handleResize(width, height)
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width, w.height = fbWidth, fbHeight

	return &glfwWindow{window: win}, nil
}

// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func (g *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(g.window)
}

func (g *glfwWindow) poll() bool {
	glfw.PollEvents()
	return !g.window.ShouldClose()
}

func (g *glfwWindow) shouldClose() bool {
	return g.window.ShouldClose()
}

func (g *glfwWindow) requestClose() {
	g.window.SetShouldClose(true)
}

func (g *glfwWindow) destroy() {
	g.window.Destroy()
	glfw.Terminate()
}
