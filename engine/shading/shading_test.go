package shading

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/lumen/engine/camera"
	"github.com/Carmen-Shannon/lumen/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-5

func assertVec4InDelta(t *testing.T, want, got mgl32.Vec4) {
	t.Helper()
	for i := range 4 {
		assert.InDelta(t, want[i], got[i], tolerance, "component %d: want %v got %v", i, want, got)
	}
}

func cameraAt(x, y, z float32) camera.GPUCameraBlock {
	return camera.GPUCameraBlock{ViewPosition: [4]float32{x, y, z, 1}, ViewProj: mgl32.Ident4()}
}

func originFragment() Fragment {
	return Fragment{Normal: mgl32.Vec3{0, 1, 0}}
}

func lightArray(t *testing.T, recs ...light.LightRecord) light.LightArray {
	t.Helper()
	data := make([]float32, 0, len(recs)*light.RecordStride)
	for _, r := range recs {
		data = append(data, r.Position[0], r.Position[1], r.Position[2], 0, r.Color[0], r.Color[1], r.Color[2], 0)
	}
	arr, err := light.NewLightArray(data)
	require.NoError(t, err)
	return arr
}

var grey = mgl32.Vec4{0.8, 0.8, 0.8, 1}

func TestSingleLight_OverheadScenario(t *testing.T) {
	e := NewEvaluator(WithMode(light.ModeSingle))
	src := light.NewFixedLight([3]float32{0, 5, 0}, [3]float32{1, 1, 1})
	cam := cameraAt(0, 0, 5)

	terms := e.Terms(originFragment(), src.Record(0), mgl32.Vec3{0, 0, 5})
	assert.InDelta(t, 0.1, terms.Ambient.X(), tolerance)
	assert.InDelta(t, 1.0, terms.Diffuse.X(), tolerance, "light straight above the normal is full strength")
	// the mirror ray points straight up while the eye looks along +z, so the highlight is outside the view
	assert.Equal(t, float32(0), terms.Specular.X())

	out := e.Shade(originFragment(), src, cam, grey)
	assertVec4InDelta(t, mgl32.Vec4{0.88, 0.88, 0.88, 1}, out)
	assert.Equal(t, float32(1), out.W())
}

func TestSingleLight_EyeOnMirrorRay(t *testing.T) {
	e := NewEvaluator(WithMode(light.ModeSingle))
	src := light.NewFixedLight([3]float32{0, 5, 0}, [3]float32{1, 1, 1})

	// eye slightly off the reflection ray: strong diffuse and a nonzero, sub-maximal highlight
	eye := mgl32.Vec3{0, 5, 0.2}
	terms := e.Terms(originFragment(), src.Record(0), eye)
	assert.InDelta(t, 1.0, terms.Diffuse.X(), tolerance)
	assert.Greater(t, terms.Specular.X(), float32(0))
	assert.Less(t, terms.Specular.X(), float32(1))

	want := math.Pow(float64(eye.Normalize().Y()), 100)
	assert.InDelta(t, want, terms.Specular.X(), 1e-4)

	out := e.Shade(originFragment(), src, cameraAt(eye[0], eye[1], eye[2]), grey)
	assert.Greater(t, out.X(), float32(0.88))
	assert.Equal(t, float32(1), out.W())
}

func TestShade_Deterministic(t *testing.T) {
	e := NewEvaluator(WithMode(light.ModeMulti))
	arr := lightArray(t,
		light.LightRecord{Position: [3]float32{1, 2, 3}, Color: [3]float32{0.3, 0.6, 0.9}},
		light.LightRecord{Position: [3]float32{-4, 1, 0}, Color: [3]float32{1, 0.2, 0.1}},
	)
	f := Fragment{Normal: mgl32.Vec3{0.2, 0.9, 0.1}, WorldPosition: mgl32.Vec3{0.5, -0.25, 0}}
	cam := cameraAt(2, 2, 8)
	mat := mgl32.Vec4{0.4, 0.5, 0.6, 0.7}

	first := e.Shade(f, arr, cam, mat)
	for range 100 {
		assert.Equal(t, first, e.Shade(f, arr, cam, mat))
	}
}

func TestShade_OneRecordArrayMatchesSingleLight(t *testing.T) {
	rec := light.LightRecord{Position: [3]float32{1, 4, 2}, Color: [3]float32{0.9, 0.7, 0.5}}
	f := Fragment{Normal: mgl32.Vec3{0, 1, 0}, WorldPosition: mgl32.Vec3{0.3, 0, -0.2}}
	cam := cameraAt(0, 2, 5)
	mat := mgl32.Vec4{0.6, 0.5, 0.4, 1}

	for _, cfg := range []Config{SingleLightConfig, MultiLightConfig, {AmbientStrength: 0.5, Shininess: 8}} {
		e := NewEvaluator(WithConfig(cfg))
		single := e.Shade(f, light.NewFixedLight(rec.Position, rec.Color), cam, mat)
		multi := e.Shade(f, lightArray(t, rec), cam, mat)
		assertVec4InDelta(t, single, multi)
	}

	// with their own constants the two variants differ only through ambient and specular
	single := NewEvaluator(WithMode(light.ModeSingle)).Shade(f, light.NewFixedLight(rec.Position, rec.Color), cam, mat)
	multi := NewEvaluator(WithMode(light.ModeMulti)).Shade(f, lightArray(t, rec), cam, mat)
	assert.NotEqual(t, single, multi)
}

func TestShade_Additive(t *testing.T) {
	recs := []light.LightRecord{
		{Position: [3]float32{0, 5, 0}, Color: [3]float32{1, 1, 1}},
		{Position: [3]float32{3, 1, 1}, Color: [3]float32{0.2, 0.4, 0.1}},
		{Position: [3]float32{-2, 2, -2}, Color: [3]float32{0.5, 0, 0.5}},
	}
	f := Fragment{Normal: mgl32.Vec3{0, 1, 0.2}, WorldPosition: mgl32.Vec3{0.1, 0, 0}}
	cam := cameraAt(1, 3, 4)
	mat := mgl32.Vec4{0.7, 0.8, 0.9, 0.5}
	e := NewEvaluator(WithMode(light.ModeMulti))

	var sum mgl32.Vec3
	for _, r := range recs {
		sum = sum.Add(e.Shade(f, lightArray(t, r), cam, mat).Vec3())
	}
	assertVec4InDelta(t, sum.Vec4(mat.W()), e.Shade(f, lightArray(t, recs...), cam, mat))
}

func TestShade_TwoIdenticalRecordsDoubleOne(t *testing.T) {
	rec := light.LightRecord{Position: [3]float32{0, 5, 0}, Color: [3]float32{1, 1, 1}}
	e := NewEvaluator(WithMode(light.ModeMulti))
	cam := cameraAt(0, 0, 5)

	one := e.Shade(originFragment(), lightArray(t, rec), cam, grey)
	two := e.Shade(originFragment(), lightArray(t, rec, rec), cam, grey)

	assertVec4InDelta(t, one.Vec3().Mul(2).Vec4(1), two)
	assert.Equal(t, float32(1), two.W())
}

func TestShade_AmbientFloor(t *testing.T) {
	color := [3]float32{0.5, 1, 0.25}
	mat := mgl32.Vec4{0.8, 0.6, 0.4, 1}
	// light below a floor facing up: diffuse and specular are both clamped away
	below := light.NewFixedLight([3]float32{0, -3, 0}, color)

	for _, cfg := range []Config{SingleLightConfig, MultiLightConfig} {
		e := NewEvaluator(WithConfig(cfg))
		out := e.Shade(originFragment(), below, cameraAt(0, 2, 2), mat)
		for i := range 3 {
			floor := mat[i] * color[i] * cfg.AmbientStrength
			assert.InDelta(t, floor, out[i], tolerance)
			assert.Greater(t, out[i], float32(0))
		}
	}
}

func TestShade_AlphaPassthrough(t *testing.T) {
	e := NewEvaluator(WithMode(light.ModeMulti))
	f := originFragment()
	cam := cameraAt(0, 0, 5)

	sources := []light.Source{
		light.PackLightArray(nil),
		light.NewFixedLight([3]float32{0, 5, 0}, [3]float32{10, 10, 10}),
		light.PackLightArray([]light.Light{light.NewLight(), light.NewLight(light.WithPosition(1, 1, 1)), light.NewLight()}),
	}
	for _, alpha := range []float32{0, 0.25, 1} {
		for _, src := range sources {
			out := e.Shade(f, src, cam, mgl32.Vec4{0.5, 0.5, 0.5, alpha})
			assert.Equal(t, alpha, out.W())
		}
	}
	assert.Equal(t, mgl32.Vec4{0.1, 0.2, 0.3, 0.4}, Unlit(mgl32.Vec4{0.1, 0.2, 0.3, 0.4}))
}

func TestShade_EmptyArrayIsBlack(t *testing.T) {
	e := NewEvaluator(WithMode(light.ModeMulti))
	out := e.Shade(originFragment(), light.PackLightArray(nil), cameraAt(0, 0, 5), grey)
	assert.Equal(t, mgl32.Vec4{0, 0, 0, 1}, out)
}

func TestTerms_DegenerateInputsStayFinite(t *testing.T) {
	e := NewEvaluator()
	rec := light.LightRecord{Position: [3]float32{0, 0, 0}, Color: [3]float32{1, 1, 1}}

	tests := []struct {
		name string
		f    Fragment
		eye  mgl32.Vec3
		want float32
	}{
		{"light at fragment", Fragment{Normal: mgl32.Vec3{0, 1, 0}}, mgl32.Vec3{0, 0, 5}, 0.1},
		{"eye at fragment", Fragment{Normal: mgl32.Vec3{0, 1, 0}, WorldPosition: mgl32.Vec3{0, -1, 0}}, mgl32.Vec3{0, -1, 0}, 1.1},
		{"zero normal", Fragment{WorldPosition: mgl32.Vec3{0, -1, 0}}, mgl32.Vec3{0, 0, 5}, 0.1},
		{"zero normal with eye opposite the light", Fragment{WorldPosition: mgl32.Vec3{0, -1, 0}}, mgl32.Vec3{0, -5, 0}, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := e.Terms(tt.f, rec, tt.eye).Sum()
			for _, v := range sum {
				assert.False(t, math.IsNaN(float64(v)) || math.IsInf(float64(v), 0))
			}
			assert.InDelta(t, tt.want, sum.X(), tolerance)
		})
	}
}

func TestShade_UnnormalizedNormal(t *testing.T) {
	e := NewEvaluator(WithMode(light.ModeSingle))
	src := light.NewFixedLight([3]float32{0, 5, 0}, [3]float32{1, 1, 1})
	cam := cameraAt(0, 0, 5)

	unit := e.Shade(originFragment(), src, cam, grey)
	scaled := e.Shade(Fragment{Normal: mgl32.Vec3{0, 7, 0}}, src, cam, grey)
	assertVec4InDelta(t, unit, scaled)
}

func TestConfigForMode(t *testing.T) {
	assert.Equal(t, SingleLightConfig, ConfigForMode(light.ModeSingle))
	assert.Equal(t, MultiLightConfig, ConfigForMode(light.ModeMulti))
	assert.Equal(t, Config{}, ConfigForMode(light.ModeNone))

	e := NewEvaluator(WithMode(light.ModeMulti), WithShininess(32), WithAmbientStrength(0.2))
	assert.Equal(t, Config{AmbientStrength: 0.2, Shininess: 32}, e.Config())
	assert.Equal(t, SingleLightConfig, NewEvaluator().Config())
}
