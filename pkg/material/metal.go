package material

import (
	"github.com/df07/go-raymarcher/pkg/core"
)

// Metal represents a metallic material with specular reflection
type Metal struct {
	Albedo   core.Vec3 // Metal color
	Fuzzness float64   // 0.0 = perfect mirror, 1.0 = very fuzzy
}

// NewMetal creates a new metal material
func NewMetal(albedo core.Vec3, fuzzness float64) *Metal {
	return &Metal{Albedo: albedo, Fuzzness: clampUnit(fuzzness)}
}

// Scatter implements the Material interface for metal scattering
func (m *Metal) Scatter(rayIn core.Ray, hit SurfaceInteraction, sampler core.Sampler) (ScatterResult, bool) {
	scattered, ok := scatterFuzzyReflection(rayIn, &hit, m.Fuzzness, sampler)
	return ScatterResult{
		Incoming:    rayIn,
		Scattered:   scattered,
		Attenuation: m.Albedo, // No π factor for specular
		PDF:         0,        // Specular materials have no PDF
	}, ok
}

// EvaluateBRDF returns zero: the reflection is a delta lobe handled through Scatter
func (m *Metal) EvaluateBRDF(incomingDir, outgoingDir core.Vec3, hit *SurfaceInteraction) core.Vec3 {
	return core.Vec3{X: 0, Y: 0, Z: 0}
}

// PDF reports the delta lobe
func (m *Metal) PDF(incomingDir, outgoingDir core.Vec3, hit *SurfaceInteraction) (float64, bool) {
	return 0.0, true
}

// scatterFuzzyReflection reflects the ray about the normal and perturbs it inside a sphere of radius fuzz.
// Returns false when the perturbed direction points below the surface.
func scatterFuzzyReflection(rayIn core.Ray, hit *SurfaceInteraction, fuzz float64, sampler core.Sampler) (core.Ray, bool) {
	// Calculate perfect reflection direction
	reflected := reflect(rayIn.Direction.Normalize(), hit.Normal)

	// Add fuzziness by perturbing the reflection direction
	if fuzz > 0 {
		perturbation := core.SamplePointInUnitSphere(sampler.Get3D()).Multiply(fuzz)
		reflected = reflected.Add(perturbation)
	}

	// Only scatter if the ray is above the surface (not absorbed)
	if reflected.Dot(hit.Normal) <= 0 {
		return core.Ray{}, false
	}
	return hit.SpawnRay(reflected), true
}

// reflect calculates the reflection of a vector v off a surface with normal n
func reflect(v, n core.Vec3) core.Vec3 {
	// r = v - 2*dot(v,n)*n
	return v.Subtract(n.Multiply(2 * v.Dot(n)))
}

func clampUnit(v float64) float64 {
	return max(0.0, min(1.0, v))
}
