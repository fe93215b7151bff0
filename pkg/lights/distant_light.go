package lights

import (
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// DistantLight is a sun: parallel illumination arriving from a single direction
type DistantLight struct {
	toLight  core.Vec3 // Unit direction from the scene toward the light
	radiance core.Vec3
}

// NewDistantLight creates a distant light shining from `from` toward `to`
func NewDistantLight(from, to, radiance core.Vec3) *DistantLight {
	return &DistantLight{toLight: from.Subtract(to).Normalize(), radiance: radiance}
}

func (dl *DistantLight) Type() LightType {
	return LightTypeDistant
}

// Direction returns the unit vector pointing toward the light
func (dl *DistantLight) Direction() core.Vec3 {
	return dl.toLight
}

// Sample always returns the light direction with unit (delta) density
func (dl *DistantLight) Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample {
	return LightSample{
		Point:     point.Add(dl.toLight.Multiply(1e10)),
		Normal:    dl.toLight.Negate(),
		Direction: dl.toLight,
		Distance:  math.Inf(1),
		Emission:  dl.radiance,
		PDF:       1.0,
	}
}

// PDF is zero: no sampled direction reaches a delta light
func (dl *DistantLight) PDF(point, normal, direction core.Vec3) float64 {
	return 0.0
}

// Emit is zero: escaping rays never see the sun
func (dl *DistantLight) Emit(ray core.Ray) core.Vec3 {
	return core.Vec3{X: 0, Y: 0, Z: 0}
}
