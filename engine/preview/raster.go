package preview

import (
	"image"
	"image/color"
	"math"

	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/Carmen-Shannon/lumen/engine/model"
	"github.com/Carmen-Shannon/lumen/engine/renderer/material"
	"github.com/Carmen-Shannon/lumen/engine/shading"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	xdraw "golang.org/x/image/draw"
)

// target is a color image with a matching depth buffer cleared to the far plane.
type target struct {
	width, height int
	img           *image.RGBA
	depth         []float32
}

func newTarget(width, height int, background color.RGBA) *target {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, xdraw.Src)
	depth := make([]float32, width*height)
	for i := range depth {
		depth[i] = 1
	}
	return &target{width: width, height: height, img: img, depth: depth}
}

// vertex is the vertex stage output before the perspective divide.
type vertex struct {
	clip   mgl32.Vec4
	uv     mgl32.Vec2
	normal mgl32.Vec3
	world  mgl32.Vec3
}

// transformVertex mirrors the forward vertex shader.
func transformVertex(v model.GPUVertex, m, viewProj mgl32.Mat4) vertex {
	world := m.Mul4x1(mgl32.Vec3(v.Position).Vec4(1))
	return vertex{
		clip:   viewProj.Mul4x1(world),
		uv:     mgl32.Vec2(v.TexCoord),
		normal: transformNormal(m, mgl32.Vec3(v.Normal)),
		world:  world.Vec3(),
	}
}

// transformNormal applies the inverse-transpose of m's upper 3x3 to n. Dividing n by each
// column's squared length before multiplying by m gives exactly that for a rotation times
// an axis scale. Sheared matrices are not corrected.
func transformNormal(m mgl32.Mat4, n mgl32.Vec3) mgl32.Vec3 {
	basis := m.Mat3()
	var scaled mgl32.Vec3
	for i := range 3 {
		c := basis.Col(i)
		scaled[i] = n[i] / max(c.Dot(c), 1e-12)
	}
	return basis.Mul3x1(scaled)
}

func (a vertex) lerp(b vertex, t float32) vertex {
	return vertex{
		clip:   a.clip.Add(b.clip.Sub(a.clip).Mul(t)),
		uv:     a.uv.Add(b.uv.Sub(a.uv).Mul(t)),
		normal: a.normal.Add(b.normal.Sub(a.normal).Mul(t)),
		world:  a.world.Add(b.world.Sub(a.world).Mul(t)),
	}
}

// triangle is a screen-space triangle ready for rasterization.
type triangle struct {
	v [3]vertex
	// p holds the framebuffer x, y and depth of each corner.
	p    [3]mgl32.Vec3
	invW [3]float32
	area float32

	minX, maxX, minY, maxY int

	mat material.Material
	// eval is nil for unlit objects.
	eval shading.Evaluator
	src  light.Source
}

// setup runs the vertex stage for every instance and returns the visible triangles.
func (r *previewRenderer) setup(t *target, cam camera.Camera, mode light.Mode, src light.Source, objects []Object) []triangle {
	viewProj := cam.ViewProjectionMatrix()

	var lit shading.Evaluator
	if mode != light.ModeNone {
		lit = shading.NewEvaluator(shading.WithMode(mode))
	}

	var tris []triangle
	for _, obj := range objects {
		if obj.Model == nil {
			continue
		}
		base := triangle{eval: lit, src: src}
		if obj.Unlit || lit == nil {
			base.eval, base.src = nil, nil
		}

		for mi, mesh := range obj.Model.Meshes() {
			base.mat = obj.Model.MaterialFor(mi)
			for _, inst := range obj.Model.Instances() {
				m := inst.Matrix()
				verts := make([]vertex, len(mesh.Vertices))
				for i, gv := range mesh.Vertices {
					verts[i] = transformVertex(gv, m, viewProj)
				}
				for i := 0; i+2 < len(mesh.Indices); i += 3 {
					a, b, c := int(mesh.Indices[i]), int(mesh.Indices[i+1]), int(mesh.Indices[i+2])
					if max(a, b, c) >= len(verts) {
						continue
					}
					tris = r.appendClipped(tris, t, []vertex{verts[a], verts[b], verts[c]}, base)
				}
			}
		}
	}
	return tris
}

// appendClipped clips a triangle against the near and far planes and appends the fan of what
// remains.
func (r *previewRenderer) appendClipped(tris []triangle, t *target, poly []vertex, base triangle) []triangle {
	poly = clipPolygon(poly, func(v vertex) float32 { return v.clip.Z() })
	poly = clipPolygon(poly, func(v vertex) float32 { return v.clip.W() - v.clip.Z() })
	for i := 1; i+1 < len(poly); i++ {
		if tri, ok := r.assemble(t, [3]vertex{poly[0], poly[i], poly[i+1]}, base); ok {
			tris = append(tris, tri)
		}
	}
	return tris
}

// clipPolygon keeps the part of a convex polygon where dist >= 0.
func clipPolygon(in []vertex, dist func(vertex) float32) []vertex {
	if len(in) == 0 {
		return nil
	}
	out := make([]vertex, 0, len(in)+1)
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := dist(a), dist(b)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, a.lerp(b, da/(da-db)))
		}
	}
	return out
}

// assemble maps a clipped triangle to the framebuffer and applies face culling.
func (r *previewRenderer) assemble(t *target, vs [3]vertex, tri triangle) (triangle, bool) {
	w, h := float32(t.width), float32(t.height)
	for i, v := range vs {
		if v.clip.W() <= 0 {
			return tri, false
		}
		invW := 1 / v.clip.W()
		tri.invW[i] = invW
		tri.p[i] = mgl32.Vec3{
			(v.clip.X()*invW*0.5 + 0.5) * w,
			(0.5 - v.clip.Y()*invW*0.5) * h,
			v.clip.Z() * invW,
		}
	}
	tri.v = vs

	tri.area = edge(tri.p[0], tri.p[1], tri.p[2])
	if tri.area == 0 {
		return tri, false
	}
	// framebuffer y points down, which flips the winding seen in clip space
	front := (tri.area < 0) == (r.frontFace == wgpu.FrontFaceCCW)
	switch r.cullMode {
	case wgpu.CullModeBack:
		if !front {
			return tri, false
		}
	case wgpu.CullModeFront:
		if front {
			return tri, false
		}
	}

	minX := min(tri.p[0].X(), tri.p[1].X(), tri.p[2].X())
	maxX := max(tri.p[0].X(), tri.p[1].X(), tri.p[2].X())
	minY := min(tri.p[0].Y(), tri.p[1].Y(), tri.p[2].Y())
	maxY := max(tri.p[0].Y(), tri.p[1].Y(), tri.p[2].Y())
	tri.minX = max(0, int(math.Floor(float64(minX))))
	tri.maxX = min(t.width-1, int(math.Ceil(float64(maxX))))
	tri.minY = max(0, int(math.Floor(float64(minY))))
	tri.maxY = min(t.height-1, int(math.Ceil(float64(maxY))))
	return tri, tri.minX <= tri.maxX && tri.minY <= tri.maxY
}

// edge is twice the signed area of (a, b, p) in the framebuffer plane.
func edge(a, b, p mgl32.Vec3) float32 {
	return (b.X()-a.X())*(p.Y()-a.Y()) - (b.Y()-a.Y())*(p.X()-a.X())
}

// bandTriangles returns the triangles touching rows [y0, y1).
func bandTriangles(tris []triangle, y0, y1 int) []*triangle {
	var band []*triangle
	for i := range tris {
		if tris[i].maxY >= y0 && tris[i].minY < y1 {
			band = append(band, &tris[i])
		}
	}
	return band
}

// row rasterizes one framebuffer row. Rows never share pixels, so bands run concurrently.
func (t *target) row(y int, tris []*triangle, block camera.GPUCameraBlock) {
	py := float32(y) + 0.5
	for _, tri := range tris {
		if y < tri.minY || y > tri.maxY {
			continue
		}
		for x := tri.minX; x <= tri.maxX; x++ {
			p := mgl32.Vec3{float32(x) + 0.5, py, 0}
			b0 := edge(tri.p[1], tri.p[2], p) / tri.area
			b1 := edge(tri.p[2], tri.p[0], p) / tri.area
			b2 := edge(tri.p[0], tri.p[1], p) / tri.area
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			z := b0*tri.p[0].Z() + b1*tri.p[1].Z() + b2*tri.p[2].Z()
			idx := y*t.width + x
			if z < 0 || z > 1 || z >= t.depth[idx] {
				continue
			}
			t.depth[idx] = z
			t.blend(x, y, tri.shade(tri.fragment(p.X(), py, z, b0, b1, b2), block))
		}
	}
}

// fragment interpolates the vertex outputs with perspective correction. ClipPosition carries the
// framebuffer position, depth and interpolated clip w.
func (tri *triangle) fragment(x, y, z, b0, b1, b2 float32) shading.Fragment {
	w0, w1, w2 := b0*tri.invW[0], b1*tri.invW[1], b2*tri.invW[2]
	s := w0 + w1 + w2
	w0, w1, w2 = w0/s, w1/s, w2/s

	a, b, c := tri.v[0], tri.v[1], tri.v[2]
	return shading.Fragment{
		ClipPosition:  mgl32.Vec4{x, y, z, 1 / s},
		UV:            a.uv.Mul(w0).Add(b.uv.Mul(w1)).Add(c.uv.Mul(w2)),
		Normal:        a.normal.Mul(w0).Add(b.normal.Mul(w1)).Add(c.normal.Mul(w2)),
		WorldPosition: a.world.Mul(w0).Add(b.world.Mul(w1)).Add(c.world.Mul(w2)),
	}
}

func (tri *triangle) shade(f shading.Fragment, block camera.GPUCameraBlock) mgl32.Vec4 {
	sampled := tri.mat.Sample(f.UV)
	if tri.eval == nil {
		return shading.Unlit(sampled)
	}
	return tri.eval.Shade(f, tri.src, block, sampled)
}

// blend composites c over the pixel with source-alpha blending, clamping like a unorm target.
func (t *target) blend(x, y int, c mgl32.Vec4) {
	a := mgl32.Clamp(c.W(), 0, 1)
	i := t.img.PixOffset(x, y)
	px := t.img.Pix[i : i+4 : i+4]
	for k := range 3 {
		px[k] = unorm8(mgl32.Clamp(c[k], 0, 1)*a + float32(px[k])/255*(1-a))
	}
	px[3] = unorm8(a + float32(px[3])/255*(1-a))
}

func unorm8(v float32) uint8 {
	return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
}
