package sdf

import (
	"fmt"
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// TrapMode selects how the Mandelbulb accumulates its orbit trap
type TrapMode int

const (
	// TrapAxisMin records the per-axis minimum of |z| over the orbit
	TrapAxisMin TrapMode = iota
	// TrapTrajectory accumulates the direction between successive iterates, renormalised every step
	TrapTrajectory
)

// String returns the scene-file name of the mode
func (m TrapMode) String() string {
	switch m {
	case TrapAxisMin:
		return "axismin"
	case TrapTrajectory:
		return "trajectory"
	default:
		return fmt.Sprintf("TrapMode(%d)", int(m))
	}
}

// ParseTrapMode converts a scene-file name into a TrapMode
func ParseTrapMode(name string) (TrapMode, error) {
	switch name {
	case "", "axismin":
		return TrapAxisMin, nil
	case "trajectory":
		return TrapTrajectory, nil
	default:
		return 0, fmt.Errorf("unknown orbit trap mode %q", name)
	}
}

// MandelbulbConfig holds the parameters of a spherical-power Mandelbulb
type MandelbulbConfig struct {
	Power         float64
	BailoutRadius float64
	Iterations    int
	Trap          TrapMode
	Clamp         bool // Clamp the estimate to half the distance from the origin
}

// DefaultMandelbulbConfig returns the classic power 8 bulb
func DefaultMandelbulbConfig() MandelbulbConfig {
	return MandelbulbConfig{
		Power:         8.0,
		BailoutRadius: 10.0,
		Iterations:    20,
		Trap:          TrapAxisMin,
		Clamp:         true,
	}
}

// Validate checks the configuration for values the iteration cannot use
func (c MandelbulbConfig) Validate() error {
	if c.Power <= 1 {
		return fmt.Errorf("mandelbulb power must be greater than 1, got %v", c.Power)
	}
	if c.BailoutRadius <= 0 {
		return fmt.Errorf("mandelbulb bailout radius must be positive, got %v", c.BailoutRadius)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("mandelbulb iterations must be at least 1, got %d", c.Iterations)
	}
	if c.Trap != TrapAxisMin && c.Trap != TrapTrajectory {
		return fmt.Errorf("mandelbulb trap mode %v is not supported", c.Trap)
	}
	return nil
}

// Mandelbulb is the distance estimator of the z -> z^power + c map in spherical coordinates
type Mandelbulb struct {
	config MandelbulbConfig
}

// NewMandelbulb creates a Mandelbulb field
func NewMandelbulb(config MandelbulbConfig) (*Mandelbulb, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Mandelbulb{config: config}, nil
}

// Config returns the parameters the field was built with
func (m *Mandelbulb) Config() MandelbulbConfig {
	return m.config
}

// Evaluate returns the escape-time distance estimate at p
func (m *Mandelbulb) Evaluate(p core.Vec3) float64 {
	d, _ := m.iterate(p, false)
	return d
}

// EvaluateWithTrap returns the distance and the trap selected by the configured TrapMode
func (m *Mandelbulb) EvaluateWithTrap(p core.Vec3) (float64, core.Vec3) {
	return m.iterate(p, true)
}

func (m *Mandelbulb) iterate(p core.Vec3, withTrap bool) (float64, core.Vec3) {
	power := m.config.Power
	z := p
	dr := 1.0
	r := 0.0

	trap := NeutralTrap
	if withTrap && m.config.Trap == TrapAxisMin {
		trap = initialTrap()
	}

	for i := 0; i < m.config.Iterations; i++ {
		last := z
		r = z.Length()
		if r > m.config.BailoutRadius {
			break
		}

		if r == 0 {
			// z^power vanishes at the origin
			z = p
			dr = 1.0
		} else {
			theta := math.Acos(z.Z/r) * power
			phi := math.Atan2(z.Y, z.X) * power
			dr = math.Pow(r, power-1)*power*dr + 1
			zr := math.Pow(r, power)
			z = core.NewVec3(
				math.Sin(theta)*math.Cos(phi),
				math.Sin(phi)*math.Sin(theta),
				math.Cos(theta),
			).Multiply(zr).Add(p)
		}

		if withTrap {
			trap = m.accumulateTrap(trap, last, z)
		}
	}

	// Hypot keeps the bound finite for points far beyond the bailout radius
	bound := 0.5 * math.Hypot(math.Hypot(p.X, p.Y), p.Z)
	d := escapeEstimate(r, dr, bound)
	if m.config.Clamp {
		d = clamp(d, -bound, bound)
	}
	return d, trap
}

func (m *Mandelbulb) accumulateTrap(trap, last, z core.Vec3) core.Vec3 {
	switch m.config.Trap {
	case TrapTrajectory:
		step := z.Subtract(last).Normalize()
		return trap.Add(step).Normalize()
	default:
		return minAbs(trap, z)
	}
}

// Bounds returns the box enclosing the bulb
func (m *Mandelbulb) Bounds() core.AABB {
	return core.NewSymmetricAABB(2)
}
