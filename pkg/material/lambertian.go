package material

import (
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// Lambertian represents a perfectly diffuse material
type Lambertian struct {
	Albedo ColorSource // Base color/reflectance (can be solid or textured)
}

// NewLambertian creates a new lambertian material with solid color
func NewLambertian(albedo core.Vec3) *Lambertian {
	return &Lambertian{Albedo: NewSolidColor(albedo)}
}

// NewTexturedLambertian creates a new lambertian material with texture
func NewTexturedLambertian(albedoTexture ColorSource) *Lambertian {
	return &Lambertian{Albedo: albedoTexture}
}

// Scatter implements the Material interface for lambertian scattering
func (l *Lambertian) Scatter(rayIn core.Ray, hit SurfaceInteraction, sampler core.Sampler) (ScatterResult, bool) {
	return scatterDiffuse(rayIn, &hit, l.Albedo.Evaluate(&hit), sampler), true
}

// EvaluateBRDF evaluates the BRDF for specific incoming/outgoing directions
func (l *Lambertian) EvaluateBRDF(incomingDir, outgoingDir core.Vec3, hit *SurfaceInteraction) core.Vec3 {
	// Lambertian BRDF is constant: albedo / π
	if outgoingDir.Dot(hit.Normal) <= 0 {
		return core.Vec3{X: 0, Y: 0, Z: 0} // Below surface
	}
	return l.Albedo.Evaluate(hit).Multiply(1.0 / math.Pi)
}

// PDF calculates the probability density function for specific incoming/outgoing directions
func (l *Lambertian) PDF(incomingDir, outgoingDir core.Vec3, hit *SurfaceInteraction) (float64, bool) {
	return cosinePDF(outgoingDir, hit.Normal), false // Not a delta function
}

// scatterDiffuse samples a cosine-weighted direction and returns the albedo/π lobe
func scatterDiffuse(rayIn core.Ray, hit *SurfaceInteraction, albedo core.Vec3, sampler core.Sampler) ScatterResult {
	scatterDirection := core.SampleCosineHemisphere(hit.Normal, sampler.Get2D())

	return ScatterResult{
		Incoming:    rayIn,
		Scattered:   hit.SpawnRay(scatterDirection),
		Attenuation: albedo.Multiply(1.0 / math.Pi), // BRDF: albedo / π (proper energy conservation)
		PDF:         cosinePDF(scatterDirection, hit.Normal),
	}
}

// cosinePDF is cos(θ) / π for directions above the surface
func cosinePDF(direction, normal core.Vec3) float64 {
	cosTheta := direction.Normalize().Dot(normal)
	if cosTheta <= 0 {
		return 0.0
	}
	return cosTheta / math.Pi
}
