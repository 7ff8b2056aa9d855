// Command lumen-preview renders a lit scene to a PNG on the CPU, using the same shading model as
// the GPU pipeline variants.
//
// Usage:
//
//	lumen-preview -out crate.png -lights 3 -texture crate.jpg
//	lumen-preview -model teapot.obj -mode single -width 1024 -height 768
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"runtime"
	"slices"

	"github.com/Carmen-Shannon/lumen/common"
	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/model"
	"github.com/Carmen-Shannon/lumen/engine/preview"
	"github.com/Carmen-Shannon/lumen/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

type options struct {
	out         string
	width       int
	height      int
	lights      int
	mode        string
	texture     string
	modelPath   string
	workers     int
	supersample int
	verbose     bool
}

// palette colors the generated lights in order.
var palette = [][3]float32{
	{1, 0.95, 0.85},
	{0.2, 0.4, 1},
	{1, 0.5, 0.1},
	{0.3, 1, 0.5},
}

func main() {
	var opts options
	flag.StringVar(&opts.out, "out", "preview.png", "output PNG path")
	flag.IntVar(&opts.width, "width", 640, "image width in pixels")
	flag.IntVar(&opts.height, "height", 480, "image height in pixels")
	flag.IntVar(&opts.lights, "lights", 1, "number of point lights placed around the model")
	flag.StringVar(&opts.mode, "mode", "", "force the light mode: unlit, single or multi (default: from the light count)")
	flag.StringVar(&opts.texture, "texture", "", "diffuse texture for the model (png, jpeg, bmp, tiff, webp)")
	flag.StringVar(&opts.modelPath, "model", "", "OBJ file to render instead of the built-in cube")
	flag.IntVar(&opts.workers, "workers", runtime.NumCPU(), "rasterizer goroutines")
	flag.IntVar(&opts.supersample, "supersample", 2, "supersampling factor per axis")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	common.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		logger.Error("preview failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	rendererOpts := []preview.RendererBuilderOption{
		preview.WithSize(opts.width, opts.height),
		preview.WithWorkers(opts.workers),
		preview.WithSupersample(opts.supersample),
	}
	if opts.mode != "" {
		m, ok := light.ParseMode(opts.mode)
		if !ok {
			return fmt.Errorf("unknown mode %q", opts.mode)
		}
		rendererOpts = append(rendererOpts, preview.WithMode(m))
	}

	subject, err := loadSubject(opts)
	if err != nil {
		return err
	}
	floor := model.NewModel(
		model.WithName("floor"),
		model.WithMeshes(floorMesh()),
		model.WithMaterials(material.NewMaterial(material.WithName("floor"), material.WithBaseColor(0.6, 0.6, 0.6, 1))),
		model.WithInstances(model.Transform{
			Translation: mgl32.Vec3{0, -0.75, 0},
			Rotation:    mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0}),
			Scale:       mgl32.Vec3{1, 1, 1},
		}),
	)

	radius := max(subject.BoundingRadius(), 0.5)
	cam := camera.NewCamera(
		camera.WithAspect(float32(opts.width)/float32(opts.height)),
		camera.WithClipPlanes(0.1, radius*20),
		camera.WithController(camera.NewCameraController(
			camera.WithPosition(radius*1.6, radius*1.2, radius*2.6),
			camera.WithTarget(0, 0, 0),
		)),
	)

	r := preview.NewRenderer(rendererOpts...)
	defer r.Close()

	img, err := r.Render(ctx, cam, ringLights(opts.lights, radius*3),
		preview.Object{Model: subject},
		preview.Object{Model: floor},
	)
	if err != nil {
		return err
	}

	f, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", opts.out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", opts.out, err)
	}
	common.Logger().Info("preview written", "path", opts.out, "width", opts.width, "height", opts.height)
	return nil
}

// loadSubject loads the OBJ model, or a slightly turned cube, and applies the texture.
func loadSubject(opts options) (model.Model, error) {
	var matOpts []material.MaterialBuilderOption
	if opts.texture != "" {
		tex, err := common.LoadTexture(opts.texture, nil)
		if err != nil {
			return nil, err
		}
		matOpts = append(matOpts, material.WithName("subject"), material.WithDiffuseTexture(tex))
	}

	if opts.modelPath != "" {
		if len(matOpts) == 0 {
			return model.LoadOBJ(opts.modelPath)
		}
		m, err := model.LoadOBJ(opts.modelPath)
		if err != nil {
			return nil, err
		}
		// the texture replaces whatever the MTL libraries provided
		meshes := slices.Clone(m.Meshes())
		for i := range meshes {
			meshes[i].MaterialIndex = 0
		}
		return model.NewModel(
			model.WithName(m.Name()),
			model.WithMeshes(meshes...),
			model.WithMaterials(material.NewMaterial(matOpts...)),
		), nil
	}

	cube := model.Cube(1.5)
	modelOpts := []model.ModelBuilderOption{
		model.WithName("cube"),
		model.WithInstances(model.NewTransform(mgl32.Vec3{}, mgl32.QuatRotate(math.Pi/6, mgl32.Vec3{0, 1, 0}))),
	}
	if len(matOpts) > 0 {
		cube.MaterialIndex = 0
		modelOpts = append(modelOpts, model.WithMaterials(material.NewMaterial(matOpts...)))
	}
	return model.NewModel(append(modelOpts, model.WithMeshes(cube))...), nil
}

// floorMesh is a 20x20 quad.
func floorMesh() model.Mesh {
	m := model.Quad(20)
	m.MaterialIndex = 0
	return m
}

// ringLights places n lights evenly on a circle above the origin.
func ringLights(n int, radius float32) []light.Light {
	lights := make([]light.Light, 0, max(n, 0))
	for i := range max(n, 0) {
		a := 2 * math.Pi * float64(i) / float64(n)
		c := palette[i%len(palette)]
		lights = append(lights, light.NewLight(
			light.WithPosition(radius*float32(math.Cos(a)), radius, radius*float32(math.Sin(a))),
			light.WithColor(c[0], c[1], c[2]),
		))
	}
	return lights
}
