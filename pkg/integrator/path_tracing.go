package integrator

import (
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/lights"
	"github.com/df07/go-raymarcher/pkg/material"
	"github.com/df07/go-raymarcher/pkg/scene"
)

const (
	hitTMin       = 0.001
	shadowEpsilon = 0.001
)

// PathTracingIntegrator implements unidirectional path tracing with next event estimation
type PathTracingIntegrator struct {
	config scene.SamplingConfig
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(config scene.SamplingConfig) *PathTracingIntegrator {
	return &PathTracingIntegrator{
		config: config,
	}
}

// bounce describes the vertex a ray left from, for weighting emission it finds
type bounce struct {
	pdf      float64   // Solid angle density the direction was sampled with
	specular bool      // Camera rays and delta lobes; emission is taken at full weight
	point    core.Vec3 // Origin of the bounce
	normal   core.Vec3 // Shading normal at the origin
}

// RayColor computes the color for a single camera ray
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, scene *scene.Scene, sampler core.Sampler) core.Vec3 {
	color := pt.rayColor(ray, scene, sampler, pt.config.MaxDepth, core.NewVec3(1, 1, 1), bounce{specular: true})
	if !color.IsFinite() {
		return core.Vec3{}
	}
	return color
}

func (pt *PathTracingIntegrator) rayColor(ray core.Ray, scene *scene.Scene, sampler core.Sampler, depth int, throughput core.Vec3, prev bounce) core.Vec3 {
	// If we've exceeded the ray bounce limit, no more light is gathered
	if depth <= 0 {
		return core.Vec3{}
	}

	shouldTerminate, rrCompensation := pt.applyRussianRoulette(depth, throughput, sampler)
	if shouldTerminate {
		return core.Vec3{}
	}

	hit, isHit := scene.Hit(ray, hitTMin, math.Inf(1))
	if !isHit {
		return pt.escapedLight(ray, scene, prev).Multiply(rrCompensation)
	}

	colorEmitted := pt.emittedLight(ray, hit, scene, prev)

	scatter, didScatter := hit.Material.Scatter(ray, *hit, sampler)
	if !didScatter {
		// Material absorbed the ray, only return emitted light
		return colorEmitted.Multiply(rrCompensation)
	}

	directLight := pt.calculateDirectLighting(ray, hit, scene, sampler)

	var indirectLight core.Vec3
	if scatter.IsSpecular() {
		newThroughput := throughput.MultiplyVec(scatter.Attenuation)
		incoming := pt.rayColor(scatter.Scattered, scene, sampler, depth-1, newThroughput, bounce{specular: true})
		indirectLight = scatter.Attenuation.MultiplyVec(incoming)
	} else {
		indirectLight = pt.calculateIndirectLighting(scatter, hit, scene, sampler, depth, throughput)
	}

	return colorEmitted.Add(directLight).Add(indirectLight).Multiply(rrCompensation)
}

// escapedLight gathers infinite light emission for a ray that left the scene
func (pt *PathTracingIntegrator) escapedLight(ray core.Ray, scene *scene.Scene, prev bounce) core.Vec3 {
	direction := ray.Direction.Normalize()
	var total core.Vec3
	for i, light := range scene.Lights {
		emission := light.Emit(ray)
		if emission.IsZero() {
			continue
		}
		weight := 1.0
		if !prev.specular {
			lightPDF := light.PDF(prev.point, prev.normal, direction) * scene.LightSampler.GetLightProbability(i, prev.point, prev.normal)
			weight = core.PowerHeuristic(1, prev.pdf, 1, lightPDF)
		}
		total = total.Add(emission.Multiply(weight))
	}
	return total
}

// emittedLight returns the emission of an emissive hit, weighted against light sampling
func (pt *PathTracingIntegrator) emittedLight(ray core.Ray, hit *material.SurfaceInteraction, scene *scene.Scene, prev bounce) core.Vec3 {
	emitter, isEmissive := hit.Material.(material.Emitter)
	if !isEmissive {
		return core.Vec3{}
	}
	emission := emitter.Emit(ray)
	if prev.specular || emission.IsZero() {
		return emission
	}

	// Only the light that owns the surface could have sampled this direction
	for i, light := range scene.Lights {
		sphereLight, ok := light.(*lights.SphereLight)
		if !ok || sphereLight.Material != hit.Material {
			continue
		}
		direction := ray.Direction.Normalize()
		lightPDF := sphereLight.PDF(prev.point, prev.normal, direction) * scene.LightSampler.GetLightProbability(i, prev.point, prev.normal)
		return emission.Multiply(core.PowerHeuristic(1, prev.pdf, 1, lightPDF))
	}
	return emission
}

// calculateDirectLighting samples one light through the non-specular part of the material
func (pt *PathTracingIntegrator) calculateDirectLighting(ray core.Ray, hit *material.SurfaceInteraction, scene *scene.Scene, sampler core.Sampler) core.Vec3 {
	lightSample, light, _, hasLight := lights.SampleLight(scene.Lights, scene.LightSampler, hit.Point, hit.Normal, sampler)
	if !hasLight || lightSample.PDF <= 0 || lightSample.Emission.IsZero() {
		return core.Vec3{}
	}

	cosine := lightSample.Direction.Dot(hit.Normal)
	if cosine <= 0 {
		return core.Vec3{} // Light is behind the surface
	}

	brdf := hit.Material.EvaluateBRDF(ray.Direction, lightSample.Direction, hit)
	if brdf.IsZero() {
		return core.Vec3{}
	}

	shadowRay := hit.SpawnRay(lightSample.Direction)
	if _, blocked := scene.Hit(shadowRay, hitTMin, lightSample.Distance-shadowEpsilon); blocked {
		return core.Vec3{}
	}

	misWeight := 1.0
	if !lights.IsDelta(light) {
		materialPDF, _ := hit.Material.PDF(ray.Direction, lightSample.Direction, hit)
		misWeight = core.PowerHeuristic(1, lightSample.PDF, 1, materialPDF)
	}

	// BRDF * emission * cosine * MIS_weight / light_PDF
	return brdf.MultiplyVec(lightSample.Emission).Multiply(cosine * misWeight / lightSample.PDF)
}

// calculateIndirectLighting follows the sampled direction with throughput tracking
func (pt *PathTracingIntegrator) calculateIndirectLighting(scatter material.ScatterResult, hit *material.SurfaceInteraction, scene *scene.Scene, sampler core.Sampler, depth int, throughput core.Vec3) core.Vec3 {
	scatterDirection := scatter.Scattered.Direction.Normalize()
	cosine := scatterDirection.Dot(hit.Normal)
	if cosine <= 0 {
		return core.Vec3{}
	}

	factor := scatter.Attenuation.Multiply(cosine / scatter.PDF)
	next := bounce{pdf: scatter.PDF, point: hit.Point, normal: hit.Normal}
	incomingLight := pt.rayColor(scatter.Scattered, scene, sampler, depth-1, throughput.MultiplyVec(factor), next)
	return factor.MultiplyVec(incomingLight)
}

// applyRussianRoulette determines if a ray should be terminated and returns the compensation factor
// Returns (shouldTerminate, compensationFactor)
func (pt *PathTracingIntegrator) applyRussianRoulette(depth int, throughput core.Vec3, sampler core.Sampler) (bool, float64) {
	currentBounce := pt.config.MaxDepth - depth
	if currentBounce < pt.config.RussianRouletteMinBounces {
		return false, 1.0
	}

	// Conservative bounds: survivalProb between 0.5 and 0.95
	survivalProb := math.Min(0.95, math.Max(0.5, throughput.Luminance()))
	if sampler.Get1D() > survivalProb {
		return true, 0.0
	}
	return false, 1.0 / survivalProb
}
