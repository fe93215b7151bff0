package sdf

import (
	"fmt"
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// RepeatedConfig holds the cell size and torus radii of an infinite torus lattice
type RepeatedConfig struct {
	CellSize    float64
	MajorRadius float64
	MinorRadius float64
}

// DefaultRepeatedConfig returns a lattice of unit tori in 4-unit cells
func DefaultRepeatedConfig() RepeatedConfig {
	return RepeatedConfig{CellSize: 4.0, MajorRadius: 1.0, MinorRadius: 0.2}
}

// Validate checks that the torus fits its cell
func (c RepeatedConfig) Validate() error {
	if c.CellSize <= 0 {
		return fmt.Errorf("cell size must be positive, got %v", c.CellSize)
	}
	if c.MinorRadius <= 0 || c.MajorRadius <= 0 {
		return fmt.Errorf("torus radii must be positive, got major=%v minor=%v", c.MajorRadius, c.MinorRadius)
	}
	if c.MajorRadius+c.MinorRadius > c.CellSize/2 {
		return fmt.Errorf("torus of outer radius %v does not fit a cell of size %v",
			c.MajorRadius+c.MinorRadius, c.CellSize)
	}
	return nil
}

// Repeated tiles a torus over every cell of an infinite lattice
type Repeated struct {
	config RepeatedConfig
}

// NewRepeated creates a repeated primitive field
func NewRepeated(config RepeatedConfig) (*Repeated, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Repeated{config: config}, nil
}

// Config returns the parameters the field was built with
func (r *Repeated) Config() RepeatedConfig {
	return r.config
}

// Evaluate maps p into its cell, recentres it and measures the torus
func (r *Repeated) Evaluate(p core.Vec3) float64 {
	return TorusDistance(r.cellLocal(p), r.config.MajorRadius, r.config.MinorRadius)
}

// EvaluateWithTrap returns the distance and the neutral trap
func (r *Repeated) EvaluateWithTrap(p core.Vec3) (float64, core.Vec3) {
	return r.Evaluate(p), NeutralTrap
}

// Bounds is unbounded since the lattice repeats without limit
func (r *Repeated) Bounds() core.AABB {
	return core.UnboundedAABB()
}

func (r *Repeated) cellLocal(p core.Vec3) core.Vec3 {
	cell := r.config.CellSize
	half := cell * 0.5
	return core.NewVec3(
		math.Mod(math.Abs(p.X), cell)-half,
		math.Mod(math.Abs(p.Y), cell)-half,
		math.Mod(math.Abs(p.Z), cell)-half,
	)
}
