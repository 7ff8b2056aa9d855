package preview

import (
	"context"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/model"
	"github.com/Carmen-Shannon/lumen/engine/renderer/material"
	"github.com/Carmen-Shannon/lumen/engine/shading"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var background = color.RGBA{R: 26, G: 26, B: 26, A: 255}

func frontCamera() camera.Camera {
	return camera.NewCamera(camera.WithController(camera.NewCameraController(
		camera.WithPosition(0, 0, 5),
		camera.WithTarget(0, 0, 0),
	)))
}

// coloredQuad is a 2x2 quad facing +Z with a flat material.
func coloredQuad(r, g, b float32, instances ...model.Transform) model.Model {
	mesh := model.Quad(2)
	mesh.MaterialIndex = 0
	return model.NewModel(
		model.WithMeshes(mesh),
		model.WithMaterials(material.NewMaterial(material.WithBaseColor(r, g, b, 1))),
		model.WithInstances(instances...),
	)
}

func newTestRenderer(t *testing.T, opts ...RendererBuilderOption) Renderer {
	t.Helper()
	r := NewRenderer(append([]RendererBuilderOption{WithSize(33, 33), WithWorkers(4), WithRowsPerTask(4)}, opts...)...)
	t.Cleanup(r.Close)
	return r
}

func render(t *testing.T, r Renderer, cam camera.Camera, lights []light.Light, objects ...Object) *image.RGBA {
	t.Helper()
	img, err := r.Render(context.Background(), cam, lights, objects...)
	require.NoError(t, err)
	return img
}

func assertRGBA(t *testing.T, want color.RGBA, got color.Color, msgAndArgs ...any) {
	t.Helper()
	g := color.RGBAModel.Convert(got).(color.RGBA)
	assert.InDelta(t, want.R, g.R, 1, msgAndArgs...)
	assert.InDelta(t, want.G, g.G, 1, msgAndArgs...)
	assert.InDelta(t, want.B, g.B, 1, msgAndArgs...)
	assert.Equal(t, want.A, g.A, msgAndArgs...)
}

func toRGBA(c mgl32.Vec4) color.RGBA {
	return color.RGBA{R: unorm8(c[0]), G: unorm8(c[1]), B: unorm8(c[2]), A: unorm8(c[3])}
}

func TestRender_EmptyFrameIsBackground(t *testing.T) {
	r := newTestRenderer(t)
	w, h := r.Size()
	img := render(t, r, frontCamera(), nil)

	require.Equal(t, image.Rect(0, 0, w, h), img.Bounds())
	for _, p := range []image.Point{{0, 0}, {16, 16}, {32, 32}} {
		assertRGBA(t, background, img.At(p.X, p.Y))
	}
}

func TestRender_CenterPixelMatchesEvaluator(t *testing.T) {
	r := newTestRenderer(t)
	cam := frontCamera()
	key := light.NewLight(light.WithPosition(0, 5, 5))
	quad := coloredQuad(0.6, 0.6, 0.6)

	img := render(t, r, cam, []light.Light{key}, Object{Model: quad})

	want := shading.NewEvaluator(shading.WithMode(light.ModeSingle)).Shade(
		shading.Fragment{Normal: mgl32.Vec3{0, 0, 1}},
		light.PackFixedLight(key),
		cam.Block(),
		mgl32.Vec4{0.6, 0.6, 0.6, 1},
	)
	assertRGBA(t, toRGBA(want), img.At(16, 16))
	assertRGBA(t, background, img.At(0, 0), "the quad does not reach the corners")
}

func TestRender_UnlitUsesMaterialColor(t *testing.T) {
	r := newTestRenderer(t)
	quad := coloredQuad(0.2, 0.4, 0.6)
	lights := []light.Light{light.NewLight(light.WithPosition(0, 5, 5))}

	img := render(t, r, frontCamera(), lights, Object{Model: quad, Unlit: true})
	assertRGBA(t, color.RGBA{R: 51, G: 102, B: 153, A: 255}, img.At(16, 16))
}

func TestRender_LightModes(t *testing.T) {
	quad := coloredQuad(0.5, 0.5, 0.5)
	cam := frontCamera()

	t.Run("no lights render lit objects black", func(t *testing.T) {
		img := render(t, newTestRenderer(t), cam, nil, Object{Model: quad})
		assertRGBA(t, color.RGBA{A: 255}, img.At(16, 16))
	})

	t.Run("disabled lights do not count", func(t *testing.T) {
		off := light.NewLight(light.WithPosition(0, 0, 5), light.WithEnabled(false))
		img := render(t, newTestRenderer(t), cam, []light.Light{off}, Object{Model: quad})
		assertRGBA(t, color.RGBA{A: 255}, img.At(16, 16))
	})

	t.Run("forced single light needs an enabled light", func(t *testing.T) {
		_, err := newTestRenderer(t, WithMode(light.ModeSingle)).Render(context.Background(), cam, nil, Object{Model: quad})
		assert.ErrorIs(t, err, ErrNoActiveLight)
	})

	t.Run("forced none draws unlit", func(t *testing.T) {
		img := render(t, newTestRenderer(t, WithMode(light.ModeNone)), cam, nil, Object{Model: quad})
		assertRGBA(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, img.At(16, 16))
	})

	t.Run("forced multi uses the array constants", func(t *testing.T) {
		key := light.NewLight(light.WithPosition(0, 5, 5))
		single := render(t, newTestRenderer(t), cam, []light.Light{key}, Object{Model: quad})
		multi := render(t, newTestRenderer(t, WithMode(light.ModeMulti)), cam, []light.Light{key}, Object{Model: quad})
		assert.NotEqual(t, single.At(16, 16), multi.At(16, 16), "ambient differs between the two variants")
	})
}

func TestRender_FaceCulling(t *testing.T) {
	flipped := model.NewTransform(mgl32.Vec3{}, mgl32.QuatRotate(math.Pi, mgl32.Vec3{0, 1, 0}))
	quad := coloredQuad(1, 0, 0, flipped)
	obj := Object{Model: quad, Unlit: true}
	red := color.RGBA{R: 255, A: 255}

	img := render(t, newTestRenderer(t), frontCamera(), nil, obj)
	assertRGBA(t, background, img.At(16, 16), "the back face is culled by default")

	img = render(t, newTestRenderer(t, WithCullMode(wgpu.CullModeNone)), frontCamera(), nil, obj)
	assertRGBA(t, red, img.At(16, 16))

	img = render(t, newTestRenderer(t, WithCullMode(wgpu.CullModeFront)), frontCamera(), nil, obj)
	assertRGBA(t, red, img.At(16, 16))

	img = render(t, newTestRenderer(t, WithFrontFace(wgpu.FrontFaceCW)), frontCamera(), nil, obj)
	assertRGBA(t, red, img.At(16, 16))
}

func TestRender_DepthTest(t *testing.T) {
	near := coloredQuad(1, 0, 0, model.NewTransform(mgl32.Vec3{0, 0, 1}, mgl32.QuatIdent()))
	far := coloredQuad(0, 1, 0, model.NewTransform(mgl32.Vec3{0, 0, -1}, mgl32.QuatIdent()))
	red := color.RGBA{R: 255, A: 255}

	for _, order := range [][]Object{
		{{Model: near, Unlit: true}, {Model: far, Unlit: true}},
		{{Model: far, Unlit: true}, {Model: near, Unlit: true}},
	} {
		img := render(t, newTestRenderer(t), frontCamera(), nil, order...)
		assertRGBA(t, red, img.At(16, 16))
	}
}

func TestRender_NearPlaneClipping(t *testing.T) {
	// a floor passing under and behind the camera crosses the near plane
	floor := coloredQuad(0, 0, 1, model.Transform{
		Translation: mgl32.Vec3{0, -1, 0},
		Rotation:    mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0}),
		Scale:       mgl32.Vec3{50, 50, 50},
	})

	img := render(t, newTestRenderer(t), frontCamera(), nil, Object{Model: floor, Unlit: true})
	assertRGBA(t, color.RGBA{B: 255, A: 255}, img.At(16, 32))
	assertRGBA(t, background, img.At(16, 0))
}

func TestRender_ParallelMatchesSequential(t *testing.T) {
	cam := frontCamera()
	lights := []light.Light{
		light.NewLight(light.WithPosition(0, 5, 5)),
		light.NewLight(light.WithPosition(-3, 1, 2), light.WithColor(0.2, 0.4, 1)),
	}
	crate := model.NewModel(model.WithMeshes(model.Cube(1.5)), model.WithInstances(
		model.NewTransform(mgl32.Vec3{}, mgl32.QuatRotate(0.6, mgl32.Vec3{1, 1, 0}.Normalize())),
	))

	seq := render(t, newTestRenderer(t, WithWorkers(1), WithRowsPerTask(64)), cam, lights, Object{Model: crate})
	par := render(t, newTestRenderer(t, WithWorkers(8), WithRowsPerTask(1)), cam, lights, Object{Model: crate})
	assert.Equal(t, seq.Pix, par.Pix)
}

func TestRender_Supersample(t *testing.T) {
	r := newTestRenderer(t, WithSize(16, 12), WithSupersample(3))
	img := render(t, r, camera.NewCamera(camera.WithAspect(16.0/12.0)), nil, Object{Model: coloredQuad(1, 1, 1), Unlit: true})
	assert.Equal(t, image.Rect(0, 0, 16, 12), img.Bounds())
}

func TestRender_CancelledAndClosed(t *testing.T) {
	r := newTestRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, frontCamera(), nil, Object{Model: coloredQuad(1, 1, 1)})
	assert.ErrorIs(t, err, context.Canceled)

	r.Close()
	r.Close()
	_, err = r.Render(context.Background(), frontCamera(), nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOptions(t *testing.T) {
	r := NewRenderer(WithSize(0, 10), WithSupersample(0), WithWorkers(0), WithRowsPerTask(-1), WithBackground(color.White)).(*previewRenderer)
	defer r.Close()

	w, h := r.Size()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, 1, r.supersample)
	assert.Equal(t, 8, r.workers)
	assert.Equal(t, 16, r.rowsPerTask)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, r.background)
	assert.False(t, r.forceMode)
}
