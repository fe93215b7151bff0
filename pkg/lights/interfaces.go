package lights

import "github.com/df07/go-raymarcher/pkg/core"

type LightType string

const (
	LightTypeArea     LightType = "area"
	LightTypeDistant  LightType = "distant"
	LightTypeInfinite LightType = "infinite"
)

// Light interface for objects that can be sampled for direct lighting
type Light interface {
	Type() LightType

	// Sample samples light toward a specific point for direct lighting
	// Returns LightSample with direction FROM shading point TO light
	// For infinite lights: surfaceNormal constrains sampling to visible hemisphere
	Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample

	// PDF calculates the probability density for sampling a given direction toward the light
	// Delta lights return 0 since no direction can be hit by chance
	PDF(point core.Vec3, normal core.Vec3, direction core.Vec3) float64

	// Emit evaluates emission in the direction of a ray that escaped the scene
	// For finite and delta lights, returns zero
	Emit(ray core.Ray) core.Vec3
}

// LightSample contains information about a sampled point on a light
type LightSample struct {
	Point     core.Vec3 // Point on the light source
	Normal    core.Vec3 // Normal at the light sample point
	Direction core.Vec3 // Direction from shading point to light
	Distance  float64   // Distance to light
	Emission  core.Vec3 // Emitted light
	PDF       float64   // Probability density of this sample (1 for delta lights)
}

// LightSampler interface for different light sampling strategies
type LightSampler interface {
	// SampleLight selects a light for the given surface point and returns the light, selection probability, and light index
	SampleLight(point core.Vec3, normal core.Vec3, u float64) (Light, float64, int)

	// GetLightProbability returns the selection probability for a specific light at a surface point
	GetLightProbability(lightIndex int, point core.Vec3, normal core.Vec3) float64

	// GetLightCount returns the number of lights in this sampler
	GetLightCount() int
}

// IsDelta reports whether the light can only be reached through explicit sampling
func IsDelta(light Light) bool {
	return light.Type() == LightTypeDistant
}
