// Package march sphere-traces rays against distance fields.
package march

import (
	"fmt"
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/sdf"
)

// Config holds the marching tolerances shared by every raymarched shape
type Config struct {
	NormalEPS    float64 // Offset used for gradient estimation
	HitEPS       float64 // Distance below which the march counts as a hit
	MaxMarchDist float64 // Travel distance beyond which the march gives up
	MaxRaySteps  int     // Step ceiling
	PhiMax       float64 // Azimuth sweep in degrees, accepted for scene-file compatibility
}

// DefaultConfig returns the standard marching tolerances
func DefaultConfig() Config {
	return Config{
		NormalEPS:    0.01,
		HitEPS:       0.01,
		MaxMarchDist: 100.0,
		MaxRaySteps:  1000,
		PhiMax:       360.0,
	}
}

// Validate checks that every tolerance is usable
func (c Config) Validate() error {
	if c.NormalEPS <= 0 {
		return fmt.Errorf("normalEPS must be positive, got %v", c.NormalEPS)
	}
	if c.HitEPS <= 0 {
		return fmt.Errorf("hitEPS must be positive, got %v", c.HitEPS)
	}
	if c.MaxMarchDist <= 0 {
		return fmt.Errorf("maxMarchDist must be positive, got %v", c.MaxMarchDist)
	}
	if c.MaxRaySteps < 1 {
		return fmt.Errorf("maxRaySteps must be at least 1, got %d", c.MaxRaySteps)
	}
	if c.PhiMax < 0 || c.PhiMax > 360 {
		return fmt.Errorf("phimax must be within [0, 360], got %v", c.PhiMax)
	}
	return nil
}

// SurfaceHit is the result of a successful march, in object space
type SurfaceHit struct {
	Point     core.Vec3 // Surface point
	Normal    core.Vec3 // Unit normal estimated from the field gradient
	T         float64   // Distance travelled along the normalised direction
	Steps     int       // Index of the step that converged
	OrbitTrap core.Vec3 // Trap sampled just off the surface
	Error     float64   // Conservative bound on the position error
}

// DefaultNormal is returned when the field gradient degenerates
var DefaultNormal = core.NewVec3(0, 0, 1)

// Tracer marches rays against a single distance field
type Tracer struct {
	field  sdf.Field
	config Config
}

// NewTracer creates a tracer for the field
func NewTracer(field sdf.Field, config Config) (*Tracer, error) {
	if field == nil {
		return nil, fmt.Errorf("tracer requires a distance field")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid march config: %w", err)
	}
	return &Tracer{field: field, config: config}, nil
}

// Field returns the traced distance field
func (tr *Tracer) Field() sdf.Field {
	return tr.field
}

// Config returns the marching tolerances
func (tr *Tracer) Config() Config {
	return tr.config
}

// Intersect sphere-traces the ray. Marching only starts when the origin is outside the field;
// an origin already inside reports a miss.
func (tr *Tracer) Intersect(ray core.Ray) (SurfaceHit, bool) {
	dir := ray.Direction.Normalize()
	if dir.IsZero() {
		return SurfaceHit{}, false
	}
	origin := ray.Origin

	if tr.field.Evaluate(origin) < 0 {
		return SurfaceHit{}, false
	}

	t := 0.0
	for i := 0; i < tr.config.MaxRaySteps; i++ {
		dist := tr.field.Evaluate(origin.Add(dir.Multiply(t)))
		if t < 0 || math.Abs(t) > tr.config.MaxMarchDist {
			return SurfaceHit{}, false
		}
		if math.Abs(dist) < tr.config.HitEPS {
			return tr.surfaceHit(origin.Add(dir.Multiply(t)), t, i), true
		}
		t += dist
	}

	return SurfaceHit{}, false
}

func (tr *Tracer) surfaceHit(point core.Vec3, t float64, steps int) SurfaceHit {
	normal := tr.Normal(point, tr.config.NormalEPS, DefaultNormal)
	_, trap := tr.field.EvaluateWithTrap(point.Add(normal.Multiply(2 * tr.config.NormalEPS)))
	return SurfaceHit{
		Point:     point,
		Normal:    normal,
		T:         t,
		Steps:     steps,
		OrbitTrap: trap,
		Error:     10 * tr.config.HitEPS,
	}
}

// Normal estimates the unit surface normal at p with one-sided differences of size eps,
// returning fallback when the gradient is zero or not finite
func (tr *Tracer) Normal(p core.Vec3, eps float64, fallback core.Vec3) core.Vec3 {
	d := tr.field.Evaluate(p)
	n := core.NewVec3(
		d-tr.field.Evaluate(p.Subtract(core.NewVec3(eps, 0, 0))),
		d-tr.field.Evaluate(p.Subtract(core.NewVec3(0, eps, 0))),
		d-tr.field.Evaluate(p.Subtract(core.NewVec3(0, 0, eps))),
	)
	if n.IsZero() || !n.IsFinite() {
		return fallback
	}
	return n.Normalize()
}
