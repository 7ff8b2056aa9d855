package light

import (
	"iter"
)

// Source is anything the shading stage can iterate light records from.
// FixedLight always yields exactly one record; LightArray yields as many as it holds.
type Source interface {
	// Len returns the number of light records.
	//
	// Returns:
	//   - int: the record count
	Len() int

	// Record returns the record at index i.
	//
	// Parameters:
	//   - i: the record index in [0, Len())
	//
	// Returns:
	//   - LightRecord: the record
	Record(i int) LightRecord

	// Records iterates the records in stored order.
	//
	// Returns:
	//   - iter.Seq2[int, LightRecord]: index and record pairs
	Records() iter.Seq2[int, LightRecord]
}

var (
	_ Source = FixedLight{}
	_ Source = LightArray{}
)

// FixedLight is the single light bound as a uniform by the single-light variant.
type FixedLight struct {
	GPULight
}

// PackFixedLight packs one light into a FixedLight, ignoring its enabled flag.
//
// Parameters:
//   - l: the light to pack
//
// Returns:
//   - FixedLight: the packed light
func PackFixedLight(l Light) FixedLight {
	return FixedLight{GPULight: l.Record().GPU()}
}

// NewFixedLight builds a FixedLight directly from a position and a color.
func NewFixedLight(position, color [3]float32) FixedLight {
	return FixedLight{GPULight: GPULight{Position: position, Color: color}}
}

func (f FixedLight) Len() int {
	return 1
}

func (f FixedLight) Record(i int) LightRecord {
	if i != 0 {
		panic("light: FixedLight record index out of range")
	}
	return LightRecord{Position: f.Position, Color: f.Color}
}

func (f FixedLight) Records() iter.Seq2[int, LightRecord] {
	return func(yield func(int, LightRecord) bool) {
		yield(0, f.Record(0))
	}
}

// Mode is the draw-mode tag that decides which light binding and shading constants a frame uses.
type Mode int

const (
	// ModeNone draws without lighting; the material color is output unchanged.
	ModeNone Mode = iota

	// ModeSingle binds exactly one light as a uniform.
	ModeSingle

	// ModeMulti binds a LightArray as a read-only storage buffer.
	ModeMulti
)

// String returns the lowercase name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "unlit"
	case ModeSingle:
		return "single"
	case ModeMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// ParseMode parses the names returned by Mode.String.
//
// Parameters:
//   - s: the mode name
//
// Returns:
//   - Mode: the parsed mode
//   - bool: false if s is not a known mode name
func ParseMode(s string) (Mode, bool) {
	for _, m := range []Mode{ModeNone, ModeSingle, ModeMulti} {
		if m.String() == s {
			return m, true
		}
	}
	return ModeNone, false
}

// ModeFor chooses the draw mode for a frame.
// Unlit geometry never uses lights. Exactly one active light uses the single-light uniform path;
// any other count, including zero, uses the array path so the binding shape stays fixed.
//
// Parameters:
//   - activeLights: the number of enabled lights
//   - unlit: true if the geometry is drawn without lighting
//
// Returns:
//   - Mode: the chosen mode
func ModeFor(activeLights int, unlit bool) Mode {
	switch {
	case unlit:
		return ModeNone
	case activeLights == 1:
		return ModeSingle
	default:
		return ModeMulti
	}
}
