package sdf

import (
	"fmt"
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// SpaceFoldConfig holds the parameters of the folded Sierpinski pyramid
type SpaceFoldConfig struct {
	Iterations int     // Number of fold-and-scale rounds
	Scale      float64 // Uniform scale applied after each round of folds
}

// DefaultSpaceFoldConfig returns the standard Sierpinski pyramid parameters
func DefaultSpaceFoldConfig() SpaceFoldConfig {
	return SpaceFoldConfig{Iterations: 20, Scale: 2.0}
}

// Validate checks the configuration for values the folding cannot use
func (c SpaceFoldConfig) Validate() error {
	if c.Iterations < 0 {
		return fmt.Errorf("fold iterations must not be negative, got %d", c.Iterations)
	}
	if c.Scale <= 1 {
		return fmt.Errorf("fold scale must be greater than 1, got %v", c.Scale)
	}
	return nil
}

// Fold planes of the pyramid. Their normalised sum is the scaling focus.
var foldNormals = [4]core.Vec3{
	core.NewVec3(1, 1, 0).Normalize(),
	core.NewVec3(-1, 1, 0).Normalize(),
	core.NewVec3(0, 1, 1).Normalize(),
	core.NewVec3(0, 1, -1).Normalize(),
}

var foldFocus = foldNormals[0].Add(foldNormals[1]).Add(foldNormals[2]).Add(foldNormals[3]).Normalize()

// SpaceFold is a Sierpinski pyramid built by folding space across four planes and rescaling
type SpaceFold struct {
	config SpaceFoldConfig
}

// NewSpaceFold creates a space-folding fractal field
func NewSpaceFold(config SpaceFoldConfig) (*SpaceFold, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SpaceFold{config: config}, nil
}

// Config returns the parameters the field was built with
func (s *SpaceFold) Config() SpaceFoldConfig {
	return s.config
}

// Evaluate folds p into the canonical cell and measures an octahedron there,
// undoing the accumulated magnification
func (s *SpaceFold) Evaluate(p core.Vec3) float64 {
	scale := s.config.Scale
	z := p
	for n := 0; n < s.config.Iterations; n++ {
		for _, normal := range foldNormals {
			z = Fold(z, normal)
		}
		z = z.Multiply(scale).Subtract(foldFocus.Multiply(scale - 1))
	}
	return OctahedronDistance(z, 1) * math.Pow(scale, -float64(s.config.Iterations))
}

// EvaluateWithTrap returns the distance and the neutral trap
func (s *SpaceFold) EvaluateWithTrap(p core.Vec3) (float64, core.Vec3) {
	return s.Evaluate(p), NeutralTrap
}

// Bounds returns the fixed box around the pyramid
func (s *SpaceFold) Bounds() core.AABB {
	return core.NewSymmetricAABB(20)
}
