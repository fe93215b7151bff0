package lights

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/material"
)

func TestWeightedLightSampler_Normalizes(t *testing.T) {
	sun := NewDistantLight(core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 0), core.NewVec3(1, 1, 1))
	sky := NewUniformInfiniteLight(core.NewVec3(0.5, 0.5, 0.5))

	sampler, err := NewWeightedLightSampler([]Light{sun, sky}, []float64{3, 1})
	if err != nil {
		t.Fatalf("NewWeightedLightSampler failed: %v", err)
	}

	tests := []struct {
		u        float64
		expected int
		prob     float64
	}{
		{0.0, 0, 0.75},
		{0.74, 0, 0.75},
		{0.76, 1, 0.25},
		{1.0, 1, 0.25},
	}
	for _, tt := range tests {
		_, prob, idx := sampler.SampleLight(core.Vec3{}, core.NewVec3(0, 1, 0), tt.u)
		if idx != tt.expected || math.Abs(prob-tt.prob) > 1e-12 {
			t.Errorf("u=%v: got light %d (p=%v), expected %d (p=%v)", tt.u, idx, prob, tt.expected, tt.prob)
		}
	}

	if p := sampler.GetLightProbability(5, core.Vec3{}, core.Vec3{}); p != 0 {
		t.Errorf("Out-of-range probability should be 0, got %v", p)
	}
	if !strings.Contains(sampler.String(), "distant") {
		t.Errorf("String should list light types, got %q", sampler.String())
	}
}

func TestWeightedLightSampler_Errors(t *testing.T) {
	sun := NewDistantLight(core.NewVec3(0, 1, 0), core.Vec3{}, core.NewVec3(1, 1, 1))
	if _, err := NewWeightedLightSampler([]Light{sun}, []float64{1, 2}); err == nil {
		t.Error("Expected an error for mismatched lengths")
	}
	if _, err := NewWeightedLightSampler([]Light{sun}, []float64{-1}); err == nil {
		t.Error("Expected an error for a negative weight")
	}

	sampler, err := NewWeightedLightSampler([]Light{sun, sun}, []float64{0, 0})
	if err != nil {
		t.Fatalf("All-zero weights should fall back to uniform: %v", err)
	}
	if p := sampler.GetLightProbability(1, core.Vec3{}, core.Vec3{}); p != 0.5 {
		t.Errorf("Uniform fallback probability: got %v, expected 0.5", p)
	}
}

func TestSampleLight_Empty(t *testing.T) {
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))
	if _, _, _, ok := SampleLight(nil, NewUniformLightSampler(nil), core.Vec3{}, core.NewVec3(0, 1, 0), sampler); ok {
		t.Error("Sampling with no lights should fail")
	}
	if pdf := CalculateLightPDF(nil, NewUniformLightSampler(nil), core.Vec3{}, core.NewVec3(0, 1, 0), core.NewVec3(0, 1, 0)); pdf != 0 {
		t.Errorf("Expected PDF = 0 for empty lights, got %f", pdf)
	}
}

func TestDistantLight(t *testing.T) {
	sun := NewDistantLight(core.NewVec3(1, 1, 0), core.NewVec3(0, 0, 0), core.NewVec3(3, 3, 3))
	sample := sun.Sample(core.NewVec3(5, 0, 5), core.NewVec3(0, 1, 0), core.NewVec2(0.3, 0.9))

	expected := core.NewVec3(1, 1, 0).Normalize()
	if sample.Direction.Subtract(expected).Length() > 1e-12 {
		t.Errorf("Sun direction: got %v, expected %v", sample.Direction, expected)
	}
	if !math.IsInf(sample.Distance, 1) || sample.PDF != 1 {
		t.Errorf("Sun sample should be infinitely far with unit density, got distance %v pdf %v", sample.Distance, sample.PDF)
	}
	if !IsDelta(sun) {
		t.Error("Sun should be a delta light")
	}
	if sun.PDF(core.Vec3{}, core.NewVec3(0, 1, 0), expected) != 0 {
		t.Error("Delta light PDF should be zero")
	}
	if !sun.Emit(core.NewRay(core.Vec3{}, expected)).IsZero() {
		t.Error("Escaping rays should not see a delta light")
	}

	// Delta lights are excluded from the combined PDF
	sampler := NewUniformLightSampler([]Light{sun})
	if pdf := CalculateLightPDF([]Light{sun}, sampler, core.Vec3{}, core.NewVec3(0, 1, 0), expected); pdf != 0 {
		t.Errorf("Combined PDF should ignore delta lights, got %v", pdf)
	}
}

func TestGradientInfiniteLight(t *testing.T) {
	top := core.NewVec3(0.5, 0.7, 1.0)
	bottom := core.NewVec3(1, 1, 1)
	sky := NewGradientInfiniteLight(top, bottom)

	tests := []struct {
		direction core.Vec3
		expected  core.Vec3
	}{
		{core.NewVec3(0, 1, 0), top},
		{core.NewVec3(0, -3, 0), bottom},
		{core.NewVec3(1, 0, 0), top.Add(bottom).Multiply(0.5)},
	}
	for _, tt := range tests {
		got := sky.Emit(core.NewRay(core.Vec3{}, tt.direction))
		if got.Subtract(tt.expected).Length() > 1e-12 {
			t.Errorf("Emit(%v): got %v, expected %v", tt.direction, got, tt.expected)
		}
	}

	sampler := core.NewRandomSampler(rand.New(rand.NewSource(9)))
	normal := core.NewVec3(0, 0, 1)
	for i := 0; i < 200; i++ {
		sample := sky.Sample(core.Vec3{}, normal, sampler.Get2D())
		if sample.Direction.Dot(normal) < 0 {
			t.Fatalf("Sample %v lies below the surface", sample.Direction)
		}
		pdf := sky.PDF(core.Vec3{}, normal, sample.Direction)
		if math.Abs(pdf-sample.PDF) > 1e-9 {
			t.Fatalf("Sample PDF %v does not match PDF() %v", sample.PDF, pdf)
		}
	}
	if pdf := sky.PDF(core.Vec3{}, normal, core.NewVec3(0, 0, -1)); pdf != 0 {
		t.Errorf("Directions below the surface should have zero PDF, got %v", pdf)
	}
}

func TestSphereLight_SampleAndPDF(t *testing.T) {
	light := NewSphereLight(core.NewVec3(0, 5, 0), 1, material.NewEmissive(core.NewVec3(4, 4, 4)))
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))
	point := core.NewVec3(0, 0, 0)
	normal := core.NewVec3(0, 1, 0)

	cosThetaMax := math.Sqrt(1 - 1.0/25.0)
	expectedPDF := 1 / (2 * math.Pi * (1 - cosThetaMax))

	for i := 0; i < 100; i++ {
		sample := light.Sample(point, normal, sampler.Get2D())
		if math.Abs(sample.PDF-expectedPDF) > 1e-9 {
			t.Fatalf("Cone PDF: got %v, expected %v", sample.PDF, expectedPDF)
		}
		if math.Abs(sample.Point.Subtract(light.Center).Length()-1) > 1e-6 {
			t.Fatalf("Sample point %v is not on the sphere", sample.Point)
		}
		if sample.Emission != core.NewVec3(4, 4, 4) {
			t.Fatalf("Unexpected emission %v", sample.Emission)
		}
	}

	if pdf := light.PDF(point, normal, core.NewVec3(0, 1, 0)); math.Abs(pdf-expectedPDF) > 1e-9 {
		t.Errorf("PDF toward the light: got %v, expected %v", pdf, expectedPDF)
	}
	if pdf := light.PDF(point, normal, core.NewVec3(1, 0, 0)); pdf != 0 {
		t.Errorf("PDF away from the light should be 0, got %v", pdf)
	}

	lights := []Light{light, NewUniformInfiniteLight(core.NewVec3(1, 1, 1))}
	combined := CalculateLightPDF(lights, NewUniformLightSampler(lights), point, normal, core.NewVec3(0, 1, 0))
	if math.Abs(combined-0.5*(expectedPDF+1/math.Pi)) > 1e-9 {
		t.Errorf("Combined PDF: got %v, expected %v", combined, 0.5*(expectedPDF+1/math.Pi))
	}
}
