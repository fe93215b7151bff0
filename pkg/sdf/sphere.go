package sdf

import (
	"fmt"

	"github.com/df07/go-raymarcher/pkg/core"
)

// Sphere is the exact distance field of a sphere, used as the default raymarched shape
type Sphere struct {
	Center core.Vec3
	Radius float64
}

// NewSphere creates a sphere field
func NewSphere(center core.Vec3, radius float64) (*Sphere, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("sphere radius must be positive, got %v", radius)
	}
	return &Sphere{Center: center, Radius: radius}, nil
}

// Evaluate returns |p - center| - radius
func (s *Sphere) Evaluate(p core.Vec3) float64 {
	return SphereDistance(p.Subtract(s.Center), s.Radius)
}

// EvaluateWithTrap returns the distance and the neutral trap
func (s *Sphere) EvaluateWithTrap(p core.Vec3) (float64, core.Vec3) {
	return s.Evaluate(p), NeutralTrap
}

// Bounds returns the tight box around the sphere
func (s *Sphere) Bounds() core.AABB {
	r := core.NewVec3(s.Radius, s.Radius, s.Radius)
	return core.NewAABB(s.Center.Subtract(r), s.Center.Add(r))
}
