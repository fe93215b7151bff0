package lights

import (
	"fmt"
	"strings"

	"github.com/df07/go-raymarcher/pkg/core"
)

// WeightedLightSampler implements light sampling with user-specified weights
// Weights must match the order of lights in the scene's Lights array
type WeightedLightSampler struct {
	lights  []Light
	weights []float64
}

// NewWeightedLightSampler creates a light sampler with specified weights.
// Weights are normalized to sum to 1; all-zero weights fall back to uniform.
func NewWeightedLightSampler(lights []Light, weights []float64) (*WeightedLightSampler, error) {
	if len(lights) != len(weights) {
		return nil, fmt.Errorf("lights length (%d) must match weights length (%d)", len(lights), len(weights))
	}

	totalWeight := 0.0
	for i, weight := range weights {
		if weight < 0 {
			return nil, fmt.Errorf("weight %d is negative: %v", i, weight)
		}
		totalWeight += weight
	}
	if totalWeight == 0 {
		return NewUniformLightSampler(lights), nil
	}

	normalizedWeights := make([]float64, len(weights))
	for i, weight := range weights {
		normalizedWeights[i] = weight / totalWeight
	}
	return &WeightedLightSampler{lights: lights, weights: normalizedWeights}, nil
}

// NewUniformLightSampler creates a light sampler with equal weights for all lights
func NewUniformLightSampler(lights []Light) *WeightedLightSampler {
	weights := make([]float64, len(lights))
	for i := range weights {
		weights[i] = 1.0 / float64(len(lights))
	}
	return &WeightedLightSampler{lights: lights, weights: weights}
}

// SampleLight selects a light using the fixed weights (independent of surface point)
// Returns the selected light, its selection probability, and its index
func (ws *WeightedLightSampler) SampleLight(point core.Vec3, normal core.Vec3, u float64) (Light, float64, int) {
	if len(ws.lights) == 0 {
		return nil, 0.0, -1
	}

	var cumulativeProbability float64
	for i := range ws.lights {
		cumulativeProbability += ws.weights[i]
		if u <= cumulativeProbability {
			return ws.lights[i], ws.weights[i], i
		}
	}

	// Rounding can leave u just above the final cumulative sum
	lastIdx := len(ws.lights) - 1
	return ws.lights[lastIdx], ws.weights[lastIdx], lastIdx
}

// GetLightProbability returns the fixed probability for the light at the given index
func (ws *WeightedLightSampler) GetLightProbability(lightIndex int, point core.Vec3, normal core.Vec3) float64 {
	if lightIndex < 0 || lightIndex >= len(ws.weights) {
		return 0.0
	}
	return ws.weights[lightIndex]
}

// GetLightCount returns the number of lights in this sampler
func (ws *WeightedLightSampler) GetLightCount() int {
	return len(ws.lights)
}

// String returns a string representation for debugging
func (ws *WeightedLightSampler) String() string {
	if len(ws.lights) == 0 {
		return "WeightedLightSampler{no lights}"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "WeightedLightSampler{%d lights:\n", len(ws.lights))
	for i, light := range ws.lights {
		fmt.Fprintf(&b, "  [%d] %s: %.1f%%\n", i, light.Type(), ws.weights[i]*100)
	}
	b.WriteString("}")
	return b.String()
}
