package sdf

import (
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// Closed-form distance functions shared by the fields.
// Formulas follow Inigo Quilez, "distance functions" (iquilezles.org).

// SphereDistance returns the exact distance from p to a sphere of radius r at the origin
func SphereDistance(p core.Vec3, r float64) float64 {
	return p.Length() - r
}

// OctahedronDistance returns a bound on the distance to a regular octahedron of size s
func OctahedronDistance(p core.Vec3, s float64) float64 {
	a := p.Abs()
	return (a.X + a.Y + a.Z - s) * 0.57735027
}

// TorusDistance returns the distance to a torus in the XZ plane with the given radii
func TorusDistance(p core.Vec3, major, minor float64) float64 {
	q := core.NewVec2(math.Hypot(p.X, p.Z)-major, p.Y)
	return q.Length() - minor
}

// BoxDistance returns the exact distance to a box with the given half extents
func BoxDistance(p core.Vec3, halfExtents core.Vec3) float64 {
	q := p.Abs().Subtract(halfExtents)
	outside := q.Max(core.Vec3{}).Length()
	inside := math.Min(q.MaxComponent(), 0)
	return outside + inside
}

// PyramidDistance returns the distance to a square-based pyramid of height h with a unit base
func PyramidDistance(pos core.Vec3, h float64) float64 {
	m2 := h*h + 0.25

	px := math.Abs(pos.X)
	pz := math.Abs(pos.Z)
	if pz > px {
		px, pz = pz, px
	}
	px -= 0.5
	pz -= 0.5
	py := pos.Y

	qx := pz
	qy := h*py - 0.5*px
	qz := h*px + 0.5*py

	s := math.Max(-qx, 0)
	t := clamp((qy-0.5*pz)/(m2+0.25), 0, 1)

	a := m2*(qx+s)*(qx+s) + qy*qy
	b := m2*(qx+0.5*t)*(qx+0.5*t) + (qy-m2*t)*(qy-m2*t)

	d2 := math.Min(a, b)
	if math.Min(qy, -qx*m2-qy*0.5) > 0 {
		d2 = 0
	}

	sign := 1.0
	if math.Max(qz, -py) < 0 {
		sign = -1
	}
	return math.Sqrt((d2+qz*qz)/m2) * sign
}

// Subtract carves the shape at distance d1 out of the shape at distance d2
func Subtract(d1, d2 float64) float64 {
	return math.Max(-d1, d2)
}

// Fold reflects p to the positive side of the plane through the origin with unit normal n
func Fold(p, n core.Vec3) core.Vec3 {
	d := p.Dot(n)
	if d < 0 {
		return p.Subtract(n.Multiply(2 * d))
	}
	return p
}
