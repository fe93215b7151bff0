package sdf

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/df07/go-raymarcher/pkg/core"
)

// JuliaConfig holds the parameters of a quaternion Julia set
type JuliaConfig struct {
	BailoutRadius float64     // Escape radius
	Iterations    int         // Maximum escape-time iterations
	Constant      quat.Number // Seed added after every squaring
	ZSlice        float64     // Fourth coordinate of the 3D slice through the 4D set
}

// DefaultJuliaConfig returns the standard Julia parameters
func DefaultJuliaConfig() JuliaConfig {
	return JuliaConfig{
		BailoutRadius: 10.0,
		Iterations:    20,
		Constant:      quat.Number{Real: -0.2, Imag: 0.8},
		ZSlice:        0.0,
	}
}

// Validate checks the configuration for values the iteration cannot use
func (c JuliaConfig) Validate() error {
	if c.BailoutRadius <= 0 {
		return fmt.Errorf("julia bailout radius must be positive, got %v", c.BailoutRadius)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("julia iterations must be at least 1, got %d", c.Iterations)
	}
	return nil
}

// Julia is the distance estimator of a quaternion Julia set z -> z^2 + c
type Julia struct {
	config JuliaConfig
}

// NewJulia creates a Julia set field
func NewJulia(config JuliaConfig) (*Julia, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Julia{config: config}, nil
}

// Config returns the parameters the field was built with
func (j *Julia) Config() JuliaConfig {
	return j.config
}

// Evaluate returns the escape-time distance estimate at p
func (j *Julia) Evaluate(p core.Vec3) float64 {
	d, _ := j.iterate(p, false)
	return d
}

// EvaluateWithTrap returns the distance and the per-axis closest approach of the orbit
// to the real, i and j hyperplanes
func (j *Julia) EvaluateWithTrap(p core.Vec3) (float64, core.Vec3) {
	return j.iterate(p, true)
}

func (j *Julia) iterate(p core.Vec3, withTrap bool) (float64, core.Vec3) {
	z := quat.Number{Real: p.X, Imag: p.Y, Jmag: p.Z, Kmag: j.config.ZSlice}
	bound := 0.5 * quat.Abs(z)

	trap := NeutralTrap
	if withTrap {
		trap = initialTrap()
	}

	dr := 1.0
	r := quat.Abs(z)
	for i := 0; i < j.config.Iterations; i++ {
		dr = 2 * r * dr
		// z*z has the cross product term cancel, leaving (q0^2 - |v|^2, 2 q0 v)
		z = quat.Add(quat.Mul(z, z), j.config.Constant)
		r = quat.Abs(z)
		if withTrap {
			trap = minAbs(trap, core.NewVec3(z.Real, z.Imag, z.Jmag))
		}
		if r > j.config.BailoutRadius {
			break
		}
	}

	return clamp(escapeEstimate(r, dr, bound), -bound, bound), trap
}

// Bounds returns the fixed box enclosing the set for the default bailout
func (j *Julia) Bounds() core.AABB {
	return core.NewSymmetricAABB(5)
}
