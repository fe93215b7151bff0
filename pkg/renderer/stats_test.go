package renderer

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/df07/go-raymarcher/pkg/core"
)

func TestCalculateAverageLuminance(t *testing.T) {
	// The luminance weights of pure red, green and blue sum to one,
	// so with one black pixel the average is 1/4
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	img.Set(1, 1, color.RGBA{0, 0, 0, 255})

	avgLum := CalculateAverageLuminance(img)
	expected := 0.25
	tolerance := 0.0001

	if avgLum < expected-tolerance || avgLum > expected+tolerance {
		t.Errorf("Expected average luminosity %f, got %f", expected, avgLum)
	}
}

func TestCalculateAverageLuminance_White(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{255, 255, 255, 255})

	avgLum := CalculateAverageLuminance(img)
	expected := 1.0
	tolerance := 0.0001

	if avgLum < expected-tolerance || avgLum > expected+tolerance {
		t.Errorf("Expected average luminosity %f, got %f", expected, avgLum)
	}
}

func TestPixelStats(t *testing.T) {
	var ps PixelStats
	if ps.GetColor() != (core.Vec3{}) {
		t.Errorf("empty pixel color = %v, want black", ps.GetColor())
	}

	ps.AddSample(core.NewVec3(1, 0, 0))
	ps.AddSample(core.NewVec3(0, 1, 0))
	if got := ps.GetColor(); got != core.NewVec3(0.5, 0.5, 0) {
		t.Errorf("average color = %v, want (0.5, 0.5, 0)", got)
	}
	if ps.SampleCount != 2 {
		t.Errorf("sample count = %d, want 2", ps.SampleCount)
	}
	wantSq := 0.299*0.299 + 0.587*0.587
	if math.Abs(ps.LuminanceSqAccum-wantSq) > 1e-12 {
		t.Errorf("luminance squared sum = %v, want %v", ps.LuminanceSqAccum, wantSq)
	}
}

func TestSampleSpread(t *testing.T) {
	tests := []struct {
		name     string
		counts   []float64
		wantMean float64
		wantStd  float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{4}, 4, 0},
		{"uniform", []float64{8, 8, 8}, 8, 0},
		{"spread", []float64{2, 4, 6}, 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, std := sampleSpread(tt.counts)
			if math.Abs(mean-tt.wantMean) > 1e-12 || math.Abs(std-tt.wantStd) > 1e-12 {
				t.Errorf("sampleSpread() = (%v, %v), want (%v, %v)", mean, std, tt.wantMean, tt.wantStd)
			}
		})
	}
}

func TestVec3ToColor(t *testing.T) {
	tests := []struct {
		name  string
		input core.Vec3
		want  color.RGBA
	}{
		{"black", core.Vec3{}, color.RGBA{0, 0, 0, 255}},
		{"white", core.NewVec3(1, 1, 1), color.RGBA{255, 255, 255, 255}},
		{"over range clamps", core.NewVec3(4, 2, 1.5), color.RGBA{255, 255, 255, 255}},
		{"negative clamps", core.NewVec3(-1, 0.25, 0), color.RGBA{0, 127, 0, 255}},
		{"nan is black", core.NewVec3(math.NaN(), 1, 1), color.RGBA{0, 0, 0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Vec3ToColor(tt.input); got != tt.want {
				t.Errorf("Vec3ToColor(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
