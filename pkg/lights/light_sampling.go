package lights

import (
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// CalculateLightPDF calculates the combined PDF for a given direction toward multiple lights
func CalculateLightPDF(lights []Light, lightSampler LightSampler, point, normal, direction core.Vec3) float64 {
	if len(lights) == 0 {
		return 0.0
	}
	totalPDF := 0.0

	// For each light, calculate the PDF weighted by its selection probability
	for i, light := range lights {
		if IsDelta(light) {
			continue
		}
		lightPDF := light.PDF(point, normal, direction)
		lightSelectionPdf := lightSampler.GetLightProbability(i, point, normal)
		totalPDF += lightPDF * lightSelectionPdf
	}

	return totalPDF
}

// SampleLight selects and samples a light from the scene using importance sampling
func SampleLight(lights []Light, lightSampler LightSampler, point core.Vec3, normal core.Vec3, sampler core.Sampler) (LightSample, Light, int, bool) {
	if len(lights) == 0 {
		return LightSample{}, nil, -1, false
	}
	selectedLight, lightSelectionPdf, lightIndex := lightSampler.SampleLight(point, normal, sampler.Get1D())
	if selectedLight == nil {
		return LightSample{}, nil, -1, false
	}

	sample := selectedLight.Sample(point, normal, sampler.Get2D())
	sample.PDF *= lightSelectionPdf // Combined PDF for MIS calculations

	return sample, selectedLight, lightIndex, true
}

// sampleInfiniteHemisphere samples the visible hemisphere using cosine-weighted sampling
// This provides better importance sampling since cosine terms cancel in the rendering equation
func sampleInfiniteHemisphere(point, normal core.Vec3, sample core.Vec2, emission func(core.Vec3) core.Vec3) LightSample {
	direction := core.SampleCosineHemisphere(normal, sample)
	return LightSample{
		Point:     point.Add(direction.Multiply(1e10)), // Far away point
		Normal:    direction.Negate(),                  // Points toward scene
		Direction: direction,
		Distance:  math.Inf(1),
		Emission:  emission(direction),
		PDF:       cosineHemispherePDF(normal, direction),
	}
}

// cosineHemispherePDF is the density of sampleInfiniteHemisphere
func cosineHemispherePDF(normal, direction core.Vec3) float64 {
	cosTheta := direction.Normalize().Dot(normal)
	if cosTheta <= 0 {
		return 0.0 // Direction is below hemisphere
	}
	return cosTheta / math.Pi
}
