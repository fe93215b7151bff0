// Package sdf provides signed distance estimators for procedurally defined shapes.
// Every field is immutable once constructed and safe for concurrent use.
package sdf

import (
	"math"

	"github.com/df07/go-raymarcher/pkg/core"
)

// Field is a distance-estimated shape in its own object space
type Field interface {
	// Evaluate returns the estimated signed distance from p to the surface
	Evaluate(p core.Vec3) float64
	// EvaluateWithTrap returns the distance together with the orbit trap recorded while computing it
	EvaluateWithTrap(p core.Vec3) (float64, core.Vec3)
	// Bounds returns a conservative object-space bounding box
	Bounds() core.AABB
}

// NeutralTrap is reported by fields that do not accumulate an orbit trap
var NeutralTrap = core.Vec3{}

// escapeEstimate converts the final radius and running derivative of an escape-time iteration
// into the distance 0.5*ln(r)*r/dr. A zero derivative or a non-finite result yields fallback.
func escapeEstimate(r, dr, fallback float64) float64 {
	if dr == 0 {
		return fallback
	}
	estimate := 0.5 * math.Log(r) * r / dr
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) {
		return fallback
	}
	return estimate
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// minAbs folds |v| into the running per-axis minimum
func minAbs(trap, v core.Vec3) core.Vec3 {
	return trap.Min(v.Abs())
}

// initialTrap is the starting value of a per-axis minimum trap
func initialTrap() core.Vec3 {
	return core.NewVec3(math.MaxFloat64, math.MaxFloat64, math.MaxFloat64)
}
