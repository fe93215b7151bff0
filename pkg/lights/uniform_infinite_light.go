package lights

import (
	"github.com/df07/go-raymarcher/pkg/core"
)

// UniformInfiniteLight represents a uniform infinite area light (constant emission in all directions)
type UniformInfiniteLight struct {
	emission core.Vec3
}

// NewUniformInfiniteLight creates a new uniform infinite light
func NewUniformInfiniteLight(emission core.Vec3) *UniformInfiniteLight {
	return &UniformInfiniteLight{emission: emission}
}

func (uil *UniformInfiniteLight) Type() LightType {
	return LightTypeInfinite
}

func (uil *UniformInfiniteLight) constant(core.Vec3) core.Vec3 {
	return uil.emission
}

// Sample implements the Light interface - samples the infinite light for direct lighting
func (uil *UniformInfiniteLight) Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample {
	return sampleInfiniteHemisphere(point, normal, sample, uil.constant)
}

// PDF implements the Light interface - returns probability density for direct lighting sampling
func (uil *UniformInfiniteLight) PDF(point, normal, direction core.Vec3) float64 {
	return cosineHemispherePDF(normal, direction)
}

// Emit implements the Light interface - the same radiance in every direction
func (uil *UniformInfiniteLight) Emit(ray core.Ray) core.Vec3 {
	return uil.emission
}
