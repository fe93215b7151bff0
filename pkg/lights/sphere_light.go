package lights

import (
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/geometry"
	"github.com/df07/go-raymarcher/pkg/material"
)

// SphereLight represents a spherical area light
type SphereLight struct {
	*geometry.Sphere // Embed sphere for hit testing
}

// NewSphereLight creates a new spherical light
func NewSphereLight(center core.Vec3, radius float64, mat material.Material) *SphereLight {
	return &SphereLight{
		Sphere: geometry.NewSphere(center, radius, mat),
	}
}

func (sl *SphereLight) Type() LightType {
	return LightTypeArea
}

// Sample implements the Light interface - samples a point on the sphere for direct lighting
func (sl *SphereLight) Sample(point core.Vec3, normal core.Vec3, sample core.Vec2) LightSample {
	// If point is inside the sphere, sample uniformly on the sphere
	if sl.Center.Subtract(point).Length() <= sl.Radius {
		return sl.sampleUniform(point, sample)
	}

	// Sample the sphere as seen from the shading point (visible hemisphere)
	return sl.sampleVisible(point, sample)
}

// sampleUniform samples uniformly on the entire sphere surface
func (sl *SphereLight) sampleUniform(point core.Vec3, sample core.Vec2) LightSample {
	z := 1.0 - 2.0*sample.X // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	localDir := core.NewVec3(r*math.Cos(phi), r*math.Sin(phi), z)

	samplePoint := sl.Center.Add(localDir.Multiply(sl.Radius))
	direction := samplePoint.Subtract(point)
	distance := direction.Length()
	dirNormalized := direction.Normalize()

	return LightSample{
		Point:     samplePoint,
		Normal:    localDir,
		Direction: dirNormalized,
		Distance:  distance,
		Emission:  sl.emission(core.NewRay(point, dirNormalized)),
		PDF:       1.0 / (4.0 * math.Pi * sl.Radius * sl.Radius),
	}
}

// sampleVisible samples only the cone subtended by the sphere as seen from the shading point
func (sl *SphereLight) sampleVisible(point core.Vec3, sample core.Vec2) LightSample {
	toCenter := sl.Center.Subtract(point)
	distanceToCenter := toCenter.Length()

	// Coordinate system with w pointing toward sphere center
	w := toCenter.Normalize()
	u, v := core.OrthonormalBasis(w)

	cosThetaMax := sl.cosThetaMax(distanceToCenter)

	cosTheta := 1.0 - sample.X*(1.0-cosThetaMax)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))
	phi := 2.0 * math.Pi * sample.Y

	direction := u.Multiply(sinTheta * math.Cos(phi)).
		Add(v.Multiply(sinTheta * math.Sin(phi))).
		Add(w.Multiply(cosTheta))

	ray := core.NewRay(point, direction)
	hit, ok := sl.Sphere.Hit(ray, 0.001, math.Inf(1))
	if !ok {
		// Grazing directions at the cone edge can miss through rounding
		return sl.sampleUniform(point, sample)
	}

	return LightSample{
		Point:     hit.Point,
		Normal:    hit.Normal,
		Direction: direction,
		Distance:  hit.T,
		Emission:  sl.emission(ray),
		PDF:       1.0 / (2.0 * math.Pi * (1.0 - cosThetaMax)),
	}
}

func (sl *SphereLight) cosThetaMax(distanceToCenter float64) float64 {
	sinThetaMax := sl.Radius / distanceToCenter
	return math.Sqrt(math.Max(0, 1.0-sinThetaMax*sinThetaMax))
}

// PDF implements the Light interface - returns the probability density for sampling a given direction
func (sl *SphereLight) PDF(point, normal, direction core.Vec3) float64 {
	ray := core.NewRay(point, direction)
	if _, hit := sl.Sphere.Hit(ray, 0.001, math.Inf(1)); !hit {
		return 0.0
	}

	distanceToCenter := sl.Center.Subtract(point).Length()
	if distanceToCenter <= sl.Radius {
		return 1.0 / (4.0 * math.Pi * sl.Radius * sl.Radius)
	}
	return 1.0 / (2.0 * math.Pi * (1.0 - sl.cosThetaMax(distanceToCenter)))
}

// Emit is zero for escaping rays; the sphere's emission is found by hitting it
func (sl *SphereLight) Emit(ray core.Ray) core.Vec3 {
	return core.Vec3{X: 0, Y: 0, Z: 0}
}

func (sl *SphereLight) emission(ray core.Ray) core.Vec3 {
	if emitter, isEmissive := sl.Material.(material.Emitter); isEmissive {
		return emitter.Emit(ray)
	}
	return core.Vec3{X: 0, Y: 0, Z: 0}
}
