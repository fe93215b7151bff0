package lights

import (
	"github.com/df07/go-raymarcher/pkg/core"
)

// GradientInfiniteLight is a sky that blends from a horizon-below color to a zenith color along +Y
type GradientInfiniteLight struct {
	topColor    core.Vec3 // Top gradient color
	bottomColor core.Vec3 // Bottom gradient color
}

// NewGradientInfiniteLight creates a new gradient infinite light
func NewGradientInfiniteLight(topColor, bottomColor core.Vec3) *GradientInfiniteLight {
	return &GradientInfiniteLight{topColor: topColor, bottomColor: bottomColor}
}

func (gil *GradientInfiniteLight) Type() LightType {
	return LightTypeInfinite
}

// emissionForDirection calculates gradient emission for a given direction
func (gil *GradientInfiniteLight) emissionForDirection(direction core.Vec3) core.Vec3 {
	t := 0.5 * (direction.Normalize().Y + 1.0) // Map Y from [-1,1] to [0,1]
	return gil.bottomColor.Multiply(1.0 - t).Add(gil.topColor.Multiply(t))
}

// Sample implements the Light interface - samples the infinite light for direct lighting
func (gil *GradientInfiniteLight) Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample {
	return sampleInfiniteHemisphere(point, normal, sample, gil.emissionForDirection)
}

// PDF implements the Light interface - returns probability density for direct lighting sampling
func (gil *GradientInfiniteLight) PDF(point, normal, direction core.Vec3) float64 {
	return cosineHemispherePDF(normal, direction)
}

// Emit implements the Light interface - evaluates emission in ray direction
func (gil *GradientInfiniteLight) Emit(ray core.Ray) core.Vec3 {
	return gil.emissionForDirection(ray.Direction)
}
