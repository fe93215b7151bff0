package material

import (
	"fmt"
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// OrbitTrapConfig controls how an orbit trap is turned into reflectance
type OrbitTrapConfig struct {
	FudgeFactor    float64   // Multiplier applied to the trap before clamping (reciprocal of the trap scale)
	EnableFakeAO   bool      // Darken by march step count
	AOSteps        float64   // Step count at which fake AO reaches black
	Ks             core.Vec3 // Glossy reflectance
	Kr             core.Vec3 // Mirror reflectance
	Roughness      float64   // Glossy roughness
	RemapRoughness bool      // Interpret Roughness perceptually and remap it to a microfacet alpha
	Ramp           bool      // Index a four-colour ramp by the trap/normal angle instead of using the trap as RGB
}

// DefaultOrbitTrapConfig returns the standard orbit trap shading
func DefaultOrbitTrapConfig() OrbitTrapConfig {
	return OrbitTrapConfig{
		FudgeFactor:    1.0,
		EnableFakeAO:   false,
		AOSteps:        1000,
		Ks:             core.NewVec3(0.25, 0.25, 0.25),
		Kr:             core.Vec3{},
		Roughness:      0.1,
		RemapRoughness: true,
	}
}

// Validate checks the configuration for unusable values
func (c OrbitTrapConfig) Validate() error {
	if c.FudgeFactor < 0 {
		return fmt.Errorf("fudge factor must not be negative, got %v", c.FudgeFactor)
	}
	if c.EnableFakeAO && c.AOSteps <= 0 {
		return fmt.Errorf("AO step count must be positive, got %v", c.AOSteps)
	}
	if c.Roughness < 0 {
		return fmt.Errorf("roughness must not be negative, got %v", c.Roughness)
	}
	return nil
}

// rampStop is one colour of the trap ramp
type rampStop struct {
	position float64
	color    core.Vec3
}

var trapRamp = [4]rampStop{
	{0.0, core.NewVec3(0.1, 0.9, 0.1)},
	{0.5, core.NewVec3(0.9, 0.1, 0.1)},
	{0.6, core.NewVec3(0.8, 0.0, 0.2)},
	{1.0, core.NewVec3(0.1, 0.1, 0.9)},
}

// OrbitTrap colours raymarched fractals from the orbit trap recorded during marching,
// with an optional glossy and mirror lobe on top
type OrbitTrap struct {
	config OrbitTrapConfig
	fuzz   float64
}

// NewOrbitTrap creates an orbit trap material
func NewOrbitTrap(config OrbitTrapConfig) (*OrbitTrap, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	fuzz := config.Roughness
	if config.RemapRoughness {
		fuzz = RoughnessToAlpha(config.Roughness)
	}
	return &OrbitTrap{config: config, fuzz: clampUnit(fuzz)}, nil
}

// Config returns the shading parameters
func (o *OrbitTrap) Config() OrbitTrapConfig {
	return o.config
}

// Albedo returns the diffuse reflectance derived from the interaction's trap and step count
func (o *OrbitTrap) Albedo(hit *SurfaceInteraction) core.Vec3 {
	var kd core.Vec3
	if o.config.Ramp {
		kd = rampColor(rampIndex(hit.OrbitTrap, hit.Normal))
	} else {
		kd = hit.OrbitTrap.Multiply(o.config.FudgeFactor).Clamp(0, 1)
	}

	if o.config.EnableFakeAO {
		kd = kd.Multiply(clampUnit(1 - float64(hit.MarchSteps)/o.config.AOSteps))
	}
	return kd
}

// rampIndex maps the angle between trap and normal into [0, 1]; undefined angles map to 1
func rampIndex(trap, normal core.Vec3) float64 {
	index := math.Acos(trap.Dot(normal)) / math.Pi
	if math.IsNaN(index) {
		return 1.0
	}
	return index
}

func rampColor(index float64) core.Vec3 {
	color := trapRamp[0].color
	for i := 1; i < len(trapRamp); i++ {
		prev, next := trapRamp[i-1], trapRamp[i]
		w := clampUnit((index - prev.position) / (next.position - prev.position))
		color = color.Add(next.color.Subtract(prev.color).Multiply(w))
	}
	return color
}

// lobeWeights returns the selection probabilities of the diffuse, glossy and mirror lobes
func (o *OrbitTrap) lobeWeights(kd core.Vec3) (float64, float64, float64) {
	d := kd.Luminance()
	g := o.config.Ks.Luminance()
	m := o.config.Kr.Luminance()
	total := d + g + m
	if total <= 0 {
		return 0, 0, 0
	}
	return d / total, g / total, m / total
}

// Scatter picks one lobe in proportion to its reflectance and samples it
func (o *OrbitTrap) Scatter(rayIn core.Ray, hit SurfaceInteraction, sampler core.Sampler) (ScatterResult, bool) {
	kd := o.Albedo(&hit)
	pDiffuse, pGlossy, pMirror := o.lobeWeights(kd)
	if pDiffuse+pGlossy+pMirror == 0 {
		return ScatterResult{}, false
	}

	u := sampler.Get1D()
	switch {
	case u < pDiffuse:
		result := scatterDiffuse(rayIn, &hit, kd, sampler)
		result.PDF *= pDiffuse
		return result, result.PDF > 0
	case u < pDiffuse+pGlossy:
		scattered, ok := scatterFuzzyReflection(rayIn, &hit, o.fuzz, sampler)
		return ScatterResult{
			Incoming:    rayIn,
			Scattered:   scattered,
			Attenuation: o.config.Ks.Multiply(1 / pGlossy),
		}, ok
	default:
		scattered, ok := scatterFuzzyReflection(rayIn, &hit, 0, sampler)
		return ScatterResult{
			Incoming:    rayIn,
			Scattered:   scattered,
			Attenuation: o.config.Kr.Multiply(1 / pMirror),
		}, ok
	}
}

// EvaluateBRDF returns the diffuse lobe; the reflection lobes are sampled through Scatter only
func (o *OrbitTrap) EvaluateBRDF(incomingDir, outgoingDir core.Vec3, hit *SurfaceInteraction) core.Vec3 {
	if outgoingDir.Dot(hit.Normal) <= 0 {
		return core.Vec3{X: 0, Y: 0, Z: 0}
	}
	return o.Albedo(hit).Multiply(1.0 / math.Pi)
}

// PDF returns the density of sampling outgoingDir through the diffuse lobe
func (o *OrbitTrap) PDF(incomingDir, outgoingDir core.Vec3, hit *SurfaceInteraction) (float64, bool) {
	pDiffuse, _, _ := o.lobeWeights(o.Albedo(hit))
	if pDiffuse == 0 {
		return 0, true
	}
	return pDiffuse * cosinePDF(outgoingDir, hit.Normal), false
}

// RoughnessToAlpha maps a perceptual roughness to a Trowbridge-Reitz alpha
func RoughnessToAlpha(roughness float64) float64 {
	x := math.Log(math.Max(roughness, 1e-3))
	return 1.62142 + 0.819955*x + 0.1734*x*x + 0.0171201*x*x*x + 0.000640711*x*x*x*x
}
