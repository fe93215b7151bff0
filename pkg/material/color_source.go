package material

import (
	"github.com/df07/go-raymarcher/pkg/core"
)

// ColorSource provides spatially-varying colors for materials
type ColorSource interface {
	// Evaluate returns color at a surface interaction
	Evaluate(hit *SurfaceInteraction) core.Vec3
}

// SolidColor provides uniform color
type SolidColor struct {
	Color core.Vec3
}

// NewSolidColor creates a new solid color source
func NewSolidColor(color core.Vec3) *SolidColor {
	return &SolidColor{Color: color}
}

// Evaluate returns the solid color regardless of the interaction
func (s *SolidColor) Evaluate(hit *SurfaceInteraction) core.Vec3 {
	return s.Color
}

// CheckerColor alternates two colors on a 3D lattice
type CheckerColor struct {
	Even  core.Vec3
	Odd   core.Vec3
	Scale float64 // Size of one checker cell
}

// NewCheckerColor creates a checker color source
func NewCheckerColor(even, odd core.Vec3, scale float64) *CheckerColor {
	return &CheckerColor{Even: even, Odd: odd, Scale: scale}
}

// Evaluate returns Even or Odd depending on the lattice cell containing the hit point
func (c *CheckerColor) Evaluate(hit *SurfaceInteraction) core.Vec3 {
	p := hit.Point.Multiply(1 / c.Scale)
	sum := floorInt(p.X) + floorInt(p.Y) + floorInt(p.Z)
	if sum%2 == 0 {
		return c.Even
	}
	return c.Odd
}

func floorInt(v float64) int {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}
