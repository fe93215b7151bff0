package geometry

import (
	"fmt"
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/march"
	"github.com/df07/go-raymarcher/pkg/material"
)

// Transform places an object-space shape in the world: scale, then rotate (X, Y, Z radians), then translate
type Transform struct {
	Translate core.Vec3
	Rotate    core.Vec3
	Scale     float64
}

// IdentityTransform leaves object space unchanged
func IdentityTransform() Transform {
	return Transform{Scale: 1}
}

// ToWorld maps an object-space point into world space
func (tf Transform) ToWorld(p core.Vec3) core.Vec3 {
	return p.Multiply(tf.Scale).Rotate(tf.Rotate).Add(tf.Translate)
}

// ToObject maps a world-space point into object space
func (tf Transform) ToObject(p core.Vec3) core.Vec3 {
	return p.Subtract(tf.Translate).RotateInverse(tf.Rotate).Multiply(1 / tf.Scale)
}

// DirectionToObject maps a world-space direction into object space without normalizing it
func (tf Transform) DirectionToObject(d core.Vec3) core.Vec3 {
	return d.RotateInverse(tf.Rotate).Multiply(1 / tf.Scale)
}

// RayMarched adapts a sphere tracer to the Shape interface
type RayMarched struct {
	tracer    *march.Tracer
	transform Transform
	Material  material.Material
	bounds    core.AABB // World-space bounds
}

// NewRayMarched wraps the tracer with an object-to-world transform
func NewRayMarched(tracer *march.Tracer, transform Transform, mat material.Material) (*RayMarched, error) {
	if tracer == nil {
		return nil, fmt.Errorf("raymarched shape requires a tracer")
	}
	if transform.Scale <= 0 || math.IsInf(transform.Scale, 0) || math.IsNaN(transform.Scale) {
		return nil, fmt.Errorf("raymarched shape scale must be positive and finite, got %v", transform.Scale)
	}

	local := tracer.Field().Bounds()
	bounds := core.UnboundedAABB()
	if !local.IsUnbounded() {
		corners := local.Corners()
		world := make([]core.Vec3, len(corners))
		for i, c := range corners {
			world[i] = transform.ToWorld(c)
		}
		bounds = core.NewAABBFromPoints(world...)
	}

	return &RayMarched{tracer: tracer, transform: transform, Material: mat, bounds: bounds}, nil
}

// Tracer returns the underlying sphere tracer
func (r *RayMarched) Tracer() *march.Tracer {
	return r.tracer
}

// Transform returns the object-to-world transform
func (r *RayMarched) Transform() Transform {
	return r.transform
}

// Hit marches the ray from the first point of [tMin, tMax] inside the field bounds.
// The object ray keeps the world ray's parameterization, so hit distances convert back by the direction scale.
func (r *RayMarched) Hit(ray core.Ray, tMin, tMax float64) (*material.SurfaceInteraction, bool) {
	objRay := core.NewRay(r.transform.ToObject(ray.Origin), r.transform.DirectionToObject(ray.Direction))
	speed := objRay.Direction.Length()
	if speed == 0 {
		return nil, false
	}

	enter, exit := tMin, tMax
	if local := r.tracer.Field().Bounds(); !local.IsUnbounded() {
		var ok bool
		enter, exit, ok = local.HitInterval(objRay, tMin, tMax)
		if !ok {
			return nil, false
		}
	}

	marched, ok := r.tracer.Intersect(core.NewRay(objRay.At(enter), objRay.Direction))
	if !ok {
		return nil, false
	}
	t := enter + marched.T/speed
	if t < tMin || t > exit {
		return nil, false
	}

	hit := &material.SurfaceInteraction{
		T:          t,
		Point:      r.transform.ToWorld(marched.Point),
		Material:   r.Material,
		OrbitTrap:  marched.OrbitTrap,
		MarchSteps: marched.Steps,
		ErrorBound: marched.Error * r.transform.Scale,
	}
	hit.SetFaceNormal(ray, marched.Normal.Rotate(r.transform.Rotate).Normalize())

	return hit, true
}

// BoundingBox returns the world-space bounds of the field
func (r *RayMarched) BoundingBox() core.AABB {
	return r.bounds
}
