package light

import (
	"sync"

	"github.com/google/uuid"
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	id        string
	position  [3]float32
	color     [3]float32
	intensity float32
	enabled   bool
}

// Light defines the interface for a point light in the scene.
//
// A point light emits equally in all directions from its position with no distance attenuation.
// Lights are owned by the scene and packed once per frame into either a FixedLight (one light)
// or a LightArray (any number of lights) depending on the frame's light mode.
type Light interface {
	// ID returns the unique identifier of the light.
	//
	// Returns:
	//   - string: the light id
	ID() string

	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Color returns the RGB color of the light before the intensity multiplier is applied.
	//
	// Returns:
	//   - [3]float32: color as (r, g, b)
	Color() [3]float32

	// Intensity returns the scalar multiplier folded into the packed color.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Enabled returns whether this light is active for rendering.
	// Disabled lights are skipped when packing light data.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// Record returns the packed record of this light with the intensity folded into the color.
	//
	// Returns:
	//   - LightRecord: the record as it is written into light buffers
	Record() LightRecord

	// Snapshot reads the packed record and the enabled flag together, so a frame never pairs
	// one state's flag with another state's record.
	//
	// Returns:
	//   - LightRecord: the record as it is written into light buffers
	//   - bool: true if the light is enabled
	Snapshot() (LightRecord, bool)

	// SetPosition sets the world-space position of the light.
	//
	// Parameters:
	//   - x, y, z: position components
	SetPosition(x, y, z float32)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - r, g, b: color components
	SetColor(r, g, b float32)

	// SetIntensity sets the scalar intensity multiplier.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// SetEnabled enables or disables the light.
	//
	// Parameters:
	//   - enabled: true to enable the light
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new white point light at the origin with any provided options applied.
// A random UUID is assigned unless WithID is given.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		color:     [3]float32{1, 1, 1},
		intensity: 1.0,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.id == "" {
		l.id = uuid.NewString()
	}
	return l
}

func (l *lightImpl) ID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.id
}

func (l *lightImpl) Position() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.position
}

func (l *lightImpl) Color() [3]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) Record() LightRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record()
}

func (l *lightImpl) Snapshot() (LightRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.record(), l.enabled
}

// record expects l.mu to be held.
func (l *lightImpl) record() LightRecord {
	return LightRecord{
		Position: l.position,
		Color:    [3]float32{l.color[0] * l.intensity, l.color[1] * l.intensity, l.color[2] * l.intensity},
	}
}

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = intensity
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}
