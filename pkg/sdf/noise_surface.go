package sdf

import (
	"fmt"
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// NoiseSurfaceConfig holds the parameters of the procedural water surface
type NoiseSurfaceConfig struct {
	Length    float64 // Extent along Z
	Width     float64 // Extent along X
	Height    float64 // Pool depth, accepted from scene files but not used by the field
	Octaves   int     // Number of noise octaves summed
	Amplitude float64 // Amplitude of the first octave
	Seed      int64   // Seed of the noise lattice
}

// DefaultNoiseSurfaceConfig returns the standard water pool parameters
func DefaultNoiseSurfaceConfig() NoiseSurfaceConfig {
	return NoiseSurfaceConfig{
		Length:    5.0,
		Width:     5.0,
		Height:    5.0,
		Octaves:   3,
		Amplitude: 0.05,
	}
}

// Validate checks the configuration for values the noise sum cannot use
func (c NoiseSurfaceConfig) Validate() error {
	if c.Octaves < 1 {
		return fmt.Errorf("noise octaves must be at least 1, got %d", c.Octaves)
	}
	if c.Amplitude < 0 {
		return fmt.Errorf("noise amplitude must not be negative, got %v", c.Amplitude)
	}
	if c.Length <= 0 || c.Width <= 0 {
		return fmt.Errorf("pool extent must be positive, got %vx%v", c.Width, c.Length)
	}
	if c.Height < 0 {
		return fmt.Errorf("pool height must not be negative, got %v", c.Height)
	}
	return nil
}

// NoiseSurface is a height field displaced by fractal Brownian noise.
// The estimate is a vertical offset, not a Euclidean distance.
type NoiseSurface struct {
	config NoiseSurfaceConfig
	noise  *Perlin
}

// NewNoiseSurface creates a water surface field
func NewNoiseSurface(config NoiseSurfaceConfig) (*NoiseSurface, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &NoiseSurface{config: config, noise: NewPerlin(config.Seed)}, nil
}

// Config returns the parameters the field was built with
func (n *NoiseSurface) Config() NoiseSurfaceConfig {
	return n.config
}

// Height returns the surface height at (x, z)
func (n *NoiseSurface) Height(x, z float64) float64 {
	freq := 1.0
	amp := n.config.Amplitude
	sum := amp * n.noise.Noise(x*freq, 0, z*freq)
	for i := 0; i < n.config.Octaves-1; i++ {
		freq *= 2
		amp *= 0.5
		sum += amp * n.noise.Noise(x*freq, 0, z*freq)
	}
	return sum
}

// Evaluate returns the vertical offset of p above the surface
func (n *NoiseSurface) Evaluate(p core.Vec3) float64 {
	return p.Y - n.Height(p.X, p.Z)
}

// EvaluateWithTrap returns the distance and the neutral trap
func (n *NoiseSurface) EvaluateWithTrap(p core.Vec3) (float64, core.Vec3) {
	return n.Evaluate(p), NeutralTrap
}

// Bounds returns a slab of the amplitude's thickness, at least 40 units wide
func (n *NoiseSurface) Bounds() core.AABB {
	halfX := math.Max(20, n.config.Width/2)
	halfZ := math.Max(20, n.config.Length/2)
	// The octave sum never exceeds twice the first amplitude
	amp := 2 * n.config.Amplitude
	return core.NewAABB(core.NewVec3(-halfX, -amp, -halfZ), core.NewVec3(halfX, amp, halfZ))
}
