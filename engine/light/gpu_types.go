package light

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/lumen/common"
)

const (
	// RecordStride is the number of float32 values per light record in a LightArray.
	// Indices 0..2 hold the position, 4..6 hold the color, and 3 and 7 are reserved.
	RecordStride = 8

	// RecordSize is the size of one light record in bytes.
	RecordSize = RecordStride * 4

	// MaxLights is the maximum number of lights packed into a LightArray per frame.
	// Enabled lights beyond this budget are dropped in registration order.
	MaxLights = 1024
)

// ErrStrideMismatch is returned when light data received at a boundary is not a whole number of records.
var ErrStrideMismatch = errors.New("light data length is not a multiple of the record stride")

// GPULightSource is the canonical WGSL definition of the Light struct.
// Matches GPULight layout exactly (32 bytes, WGSL aligned).
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of the single light used by the single-light variant.
// Matches the WGSL Light struct layout exactly (see GPULightSource).
// Size: 32 bytes. A vec3 aligns to 16 bytes in WGSL, so each field carries 4 bytes of padding.
type GPULight struct {
	Position [3]float32 // offset  0: world-space position
	_pad0    float32    // offset 12: reserved
	Color    [3]float32 // offset 16: RGB color with intensity applied
	_pad1    float32    // offset 28: reserved
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
// The reserved slots are written as zero.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, RecordSize)
	putRecord(buf, LightRecord{Position: g.Position, Color: g.Color})
	return buf
}

// LightRecord is one light as seen by the shading stage: a position and a color.
type LightRecord struct {
	Position [3]float32
	Color    [3]float32
}

// GPU converts the record to its uniform representation.
func (r LightRecord) GPU() GPULight {
	return GPULight{Position: r.Position, Color: r.Color}
}

// putRecord writes one record into the first RecordSize bytes of buf, reserved slots zeroed.
func putRecord(buf []byte, r LightRecord) {
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(r.Position[i]))
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(r.Color[i]))
	}
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	binary.LittleEndian.PutUint32(buf[28:32], 0)
}

// LightArray is a flat sequence of light records with a stride of RecordStride floats.
// The length is always a whole number of records; use NewLightArray or PackLightArray to build one.
type LightArray struct {
	data []float32
}

// NewLightArray wraps raw float data received from outside the packer.
// This is the boundary where the stride is enforced: data whose length is not a multiple of
// RecordStride is rejected, so a well-formed LightArray can never be read out of bounds.
//
// Parameters:
//   - data: the flat record data, used without copying
//
// Returns:
//   - LightArray: the wrapped array
//   - error: ErrStrideMismatch if len(data) is not a multiple of RecordStride
func NewLightArray(data []float32) (LightArray, error) {
	if len(data)%RecordStride != 0 {
		return LightArray{}, fmt.Errorf("light array of %d floats: %w", len(data), ErrStrideMismatch)
	}
	return LightArray{data: data}, nil
}

// UnmarshalLightArray decodes little-endian light buffer bytes back into a LightArray.
//
// Parameters:
//   - buf: the raw buffer bytes
//
// Returns:
//   - LightArray: the decoded array
//   - error: ErrStrideMismatch if buf is not a whole number of records
func UnmarshalLightArray(buf []byte) (LightArray, error) {
	if len(buf)%RecordSize != 0 {
		return LightArray{}, fmt.Errorf("light buffer of %d bytes: %w", len(buf), ErrStrideMismatch)
	}
	data := make([]float32, len(buf)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return LightArray{data: data}, nil
}

// PackLightArray packs the enabled lights, in order, into a LightArray.
// Reserved slots are zero-filled. At most MaxLights records are packed.
//
// Parameters:
//   - lights: the scene lights
//
// Returns:
//   - LightArray: the packed records
func PackLightArray(lights []Light) LightArray {
	return PackRecords(Snapshot(lights))
}

// PackRecords packs already gathered records, in order, into a LightArray.
// At most MaxLights records are packed.
//
// Parameters:
//   - records: the records to pack, usually from Snapshot
//
// Returns:
//   - LightArray: the packed records
func PackRecords(records []LightRecord) LightArray {
	if len(records) > MaxLights {
		common.Logger().Warn("light budget exceeded, dropping lights", "active", len(records), "max", MaxLights)
		records = records[:MaxLights]
	}

	data := make([]float32, len(records)*RecordStride)
	for i, r := range records {
		base := i * RecordStride
		copy(data[base:base+3], r.Position[:])
		copy(data[base+4:base+7], r.Color[:])
	}
	return LightArray{data: data}
}

// Len returns the number of records in the array.
func (a LightArray) Len() int {
	return len(a.data) / RecordStride
}

// Record returns the record at index i. Like slice indexing it panics when i is out of range.
//
// Parameters:
//   - i: the record index in [0, Len())
//
// Returns:
//   - LightRecord: the record
func (a LightArray) Record(i int) LightRecord {
	r := a.data[i*RecordStride : (i+1)*RecordStride]
	return LightRecord{
		Position: [3]float32{r[0], r[1], r[2]},
		Color:    [3]float32{r[4], r[5], r[6]},
	}
}

func (a LightArray) Records() iter.Seq2[int, LightRecord] {
	return func(yield func(int, LightRecord) bool) {
		for i := range a.Len() {
			if !yield(i, a.Record(i)) {
				return
			}
		}
	}
}

// Floats returns the underlying float data. The slice is shared, not copied.
func (a LightArray) Floats() []float32 {
	return a.data
}

// ByteSize returns the size of the GPU buffer needed to hold the array.
// An empty array still needs one record because storage bindings cannot be zero-sized.
func (a LightArray) ByteSize() int {
	return max(a.Len(), 1) * RecordSize
}

// Marshal serializes the array into little-endian bytes for upload to the storage buffer.
// An empty array is written as one zeroed record, which contributes no light.
//
// Returns:
//   - []byte: ByteSize() bytes ready for GPU upload
func (a LightArray) Marshal() []byte {
	buf := make([]byte, a.ByteSize())
	for i, v := range a.data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Snapshot reads every enabled light once and returns their records in order.
// A frame picks its mode from len(records) and packs the same slice, so the two always agree
// even while other goroutines toggle or move lights.
//
// Parameters:
//   - lights: the lights to read
//
// Returns:
//   - []LightRecord: the records of the enabled lights
func Snapshot(lights []Light) []LightRecord {
	out := make([]LightRecord, 0, len(lights))
	for _, l := range lights {
		if l == nil {
			continue
		}
		if r, enabled := l.Snapshot(); enabled {
			out = append(out, r)
		}
	}
	return out
}
