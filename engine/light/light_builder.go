package light

// LightBuilderOption configures a Light in NewLight.
type LightBuilderOption func(*lightImpl)

// WithID replaces the generated UUID. Scenes key their lights by this value, so it
// must be unique within a scene.
//
// Parameters:
//   - id: the light identifier
//
// Returns:
//   - LightBuilderOption: the option
func WithID(id string) LightBuilderOption {
	return func(l *lightImpl) {
		l.id = id
	}
}

// WithPosition places the light in world space. Records carry the position as-is.
//
// Parameters:
//   - x, y, z: world-space coordinates
//
// Returns:
//   - LightBuilderOption: the option
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = [3]float32{x, y, z}
	}
}

// WithColor sets the linear RGB color before intensity is applied.
//
// Parameters:
//   - r, g, b: linear color channels, not clamped
//
// Returns:
//   - LightBuilderOption: the option
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = [3]float32{r, g, b}
	}
}

// WithIntensity scales the color when the light is packed.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithEnabled sets the starting state. Disabled lights are skipped by the packers.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}
