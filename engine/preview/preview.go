// Package preview renders lit frames on the CPU with the same vertex transform, material sampling
// and shading math the GPU variants use. Rows are rasterized in parallel bands on a worker pool,
// which makes it usable for thumbnails, golden images and machines without a GPU adapter.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/model"
	"github.com/cogentcore/webgpu/wgpu"
	xdraw "golang.org/x/image/draw"
)

var (
	// ErrClosed is returned by Render after Close.
	ErrClosed = errors.New("preview: renderer closed")

	// ErrNoActiveLight is returned when the single light mode is forced without an enabled light.
	ErrNoActiveLight = errors.New("preview: single light mode needs an enabled light")
)

// Object is one model in a preview frame.
type Object struct {
	Model model.Model
	// Unlit draws the model with its material color only.
	Unlit bool
}

// Renderer rasterizes frames into images.
type Renderer interface {
	// Size returns the output image size in pixels.
	//
	// Returns:
	//   - int: width
	//   - int: height
	Size() (width, height int)

	// Render draws every instance of every object as seen by cam.
	// The light mode follows the scene rules: unlit objects use no lights, lit objects use the
	// single light path for exactly one enabled light and the light array otherwise, unless a
	// mode was forced with WithMode. Cancelling ctx stops the render between rows.
	//
	// Parameters:
	//   - ctx: cancels the render
	//   - cam: the camera; it is updated from its controller first
	//   - lights: the scene lights, disabled ones are skipped
	//   - objects: the models to draw
	//
	// Returns:
	//   - *image.RGBA: the rendered frame
	//   - error: ctx's error, ErrClosed, or ErrNoActiveLight
	Render(ctx context.Context, cam camera.Camera, lights []light.Light, objects ...Object) (*image.RGBA, error)

	// Close stops the worker pool. Render fails with ErrClosed afterwards.
	Close()
}

type previewRenderer struct {
	width, height int
	supersample   int
	rowsPerTask   int
	workers       int

	background color.RGBA
	cullMode   wgpu.CullMode
	frontFace  wgpu.FrontFace

	// mode is only honoured when forceMode is set.
	mode      light.Mode
	forceMode bool

	mu     sync.RWMutex
	closed atomic.Bool
	pool   worker.DynamicWorkerPool
}

var _ Renderer = &previewRenderer{}

// NewRenderer creates a CPU preview renderer. Defaults: 640x480, no supersampling, back face
// culling with counter-clockwise front faces, the GPU renderer's clear color and one worker per
// 16-row band up to 8 workers.
//
// Parameters:
//   - opts: variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the renderer; Close it when done
func NewRenderer(opts ...RendererBuilderOption) Renderer {
	r := &previewRenderer{
		width:       640,
		height:      480,
		supersample: 1,
		rowsPerTask: 16,
		workers:     8,
		background:  color.RGBA{R: 26, G: 26, B: 26, A: 255},
		cullMode:    wgpu.CullModeBack,
		frontFace:   wgpu.FrontFaceCCW,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.pool = worker.NewDynamicWorkerPool(r.workers, 256, time.Second)
	return r
}

func (r *previewRenderer) Size() (int, int) {
	return r.width, r.height
}

func (r *previewRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.CompareAndSwap(false, true) {
		r.pool.Stop()
	}
}

func (r *previewRenderer) Render(ctx context.Context, cam camera.Camera, lights []light.Light, objects ...Object) (*image.RGBA, error) {
	// held for the whole render so Close never stops the pool under a submit
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	cam.Update()
	block := cam.Block()

	mode, src, err := r.frameLights(lights)
	if err != nil {
		return nil, err
	}

	t := newTarget(r.width*r.supersample, r.height*r.supersample, r.background)
	tris := r.setup(t, cam, mode, src, objects)

	if err := r.rasterize(ctx, t, tris, block); err != nil {
		return nil, err
	}

	out := t.img
	if r.supersample > 1 {
		out = image.NewRGBA(image.Rect(0, 0, r.width, r.height))
		xdraw.BiLinear.Scale(out, out.Bounds(), t.img, t.img.Bounds(), xdraw.Src, nil)
	}

	common.Logger().Debug("preview rendered",
		"width", r.width,
		"height", r.height,
		"mode", mode.String(),
		"triangles", len(tris),
		"elapsed", time.Since(start),
	)
	return out, nil
}

// frameLights picks the frame's lit mode and packs the matching light source.
func (r *previewRenderer) frameLights(lights []light.Light) (light.Mode, light.Source, error) {
	records := light.Snapshot(lights)
	mode := light.ModeFor(len(records), false)
	if r.forceMode {
		mode = r.mode
	}

	switch mode {
	case light.ModeSingle:
		if len(records) == 0 {
			return mode, nil, ErrNoActiveLight
		}
		return mode, light.FixedLight{GPULight: records[0].GPU()}, nil
	case light.ModeMulti:
		return mode, light.PackRecords(records), nil
	default:
		return light.ModeNone, nil, nil
	}
}

// rasterize splits the target into row bands and shades them on the pool.
func (r *previewRenderer) rasterize(ctx context.Context, t *target, tris []triangle, block camera.GPUCameraBlock) error {
	var wg sync.WaitGroup
	task := 0
	for y0 := 0; y0 < t.height; y0 += r.rowsPerTask {
		y1 := min(y0+r.rowsPerTask, t.height)
		band := bandTriangles(tris, y0, y1)
		if len(band) == 0 {
			continue
		}
		wg.Add(1)
		r.pool.SubmitTask(worker.Task{
			ID:      task,
			Payload: y0,
			Do: func() (any, error) {
				defer wg.Done()
				for y := y0; y < y1; y++ {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					t.row(y, band, block)
				}
				return nil, nil
			},
		})
		task++
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("preview: render cancelled: %w", err)
	}
	return nil
}
