package material

import (
	"github.com/df07/go-raymarcher/pkg/core"
)

// Material interface for objects that can scatter rays
type Material interface {
	// Scatter generates a random scattered direction
	Scatter(rayIn core.Ray, hit SurfaceInteraction, sampler core.Sampler) (ScatterResult, bool)

	// EvaluateBRDF evaluates the non-specular part of the BRDF for specific directions
	EvaluateBRDF(incomingDir, outgoingDir core.Vec3, hit *SurfaceInteraction) core.Vec3

	// PDF calculates the PDF for specific incoming/outgoing directions
	// Returns (pdf, isDelta) where isDelta indicates if this is a delta function (specular)
	PDF(incomingDir, outgoingDir core.Vec3, hit *SurfaceInteraction) (pdf float64, isDelta bool)
}

// Emitter interface for materials that emit light
type Emitter interface {
	Emit(rayIn core.Ray) core.Vec3
}

// ScatterResult contains the result of material scattering
type ScatterResult struct {
	Incoming    core.Ray  // The incoming ray
	Scattered   core.Ray  // The scattered ray
	Attenuation core.Vec3 // Color attenuation
	PDF         float64   // Probability density function (0 for specular materials)
}

// IsSpecular returns true if this is specular scattering (no PDF)
func (s ScatterResult) IsSpecular() bool {
	return s.PDF <= 0
}

// SurfaceInteraction contains information about a ray-object intersection
type SurfaceInteraction struct {
	Point      core.Vec3 // Point of intersection
	Normal     core.Vec3 // Surface normal at intersection, facing the incoming ray
	T          float64   // Parameter t along the ray
	FrontFace  bool      // Whether ray hit the front face
	Material   Material  // Material of the hit object
	UV         core.Vec2 // Surface coordinates, zero for raymarched shapes
	OrbitTrap  core.Vec3 // Orbit trap of raymarched shapes
	MarchSteps int       // Steps the marcher needed to converge, 0 for analytic shapes
	ErrorBound float64   // Conservative bound on the position error
}

// SetFaceNormal sets the normal vector and determines front/back face
func (h *SurfaceInteraction) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	if h.FrontFace {
		h.Normal = outwardNormal
	} else {
		h.Normal = outwardNormal.Multiply(-1)
	}
}

// SpawnOffset returns how far secondary rays must start from the surface
func (h *SurfaceInteraction) SpawnOffset() float64 {
	return max(h.ErrorBound, 1e-4)
}

// SpawnRay creates a ray leaving the surface in the given direction, offset to avoid self intersection
func (h *SurfaceInteraction) SpawnRay(direction core.Vec3) core.Ray {
	offset := h.Normal.Multiply(h.SpawnOffset())
	if direction.Dot(h.Normal) < 0 {
		offset = offset.Negate()
	}
	return core.NewRay(h.Point.Add(offset), direction)
}
