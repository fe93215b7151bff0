package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/march"
	"github.com/df07/go-raymarcher/pkg/sdf"
)

func newMarchedSphere(t *testing.T, transform Transform) *RayMarched {
	t.Helper()
	field, err := sdf.NewSphere(core.NewVec3(0, 0, 0), 1)
	if err != nil {
		t.Fatalf("NewSphere failed: %v", err)
	}
	tracer, err := march.NewTracer(field, march.DefaultConfig())
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}
	shape, err := NewRayMarched(tracer, transform, nil)
	if err != nil {
		t.Fatalf("NewRayMarched failed: %v", err)
	}
	return shape
}

func TestRayMarched_MatchesAnalyticSphere(t *testing.T) {
	transform := Transform{
		Translate: core.NewVec3(1, 2, 3),
		Rotate:    core.NewVec3(0.4, -0.9, 1.3),
		Scale:     2,
	}
	marched := newMarchedSphere(t, transform)
	analytic := NewSphere(transform.Translate, transform.Scale, nil)

	random := rand.New(rand.NewSource(5))
	hits := 0
	for i := 0; i < 100; i++ {
		origin := core.NewVec3(random.Float64()*4-1, random.Float64()*4, -10)
		ray := core.NewRay(origin, transform.Translate.Subtract(origin).Add(core.NewVec3(random.Float64()-0.5, random.Float64()-0.5, 0)))

		want, wantOK := analytic.Hit(ray, 0.001, math.Inf(1))
		got, gotOK := marched.Hit(ray, 0.001, math.Inf(1))
		// Grazing rays can legitimately fall either side of the hit tolerance
		if !wantOK || math.Abs(want.Normal.Dot(ray.Direction.Normalize())) < 0.3 {
			continue
		}
		if !gotOK {
			t.Fatalf("Ray %d: analytic sphere hit at t=%v but marched shape missed", i, want.T)
		}
		hits++

		if d := got.Point.Subtract(want.Point).Length(); d > 0.1 {
			t.Errorf("Ray %d: hit points differ by %v (%v vs %v)", i, d, got.Point, want.Point)
		}
		if math.Abs(got.Point.Subtract(ray.At(got.T)).Length()) > 1e-9 {
			t.Errorf("Ray %d: t=%v does not reproduce the hit point", i, got.T)
		}
		if got.Normal.Dot(want.Normal) < 0.99 {
			t.Errorf("Ray %d: normals differ: %v vs %v", i, got.Normal, want.Normal)
		}
		if math.Abs(got.ErrorBound-10*march.DefaultConfig().HitEPS*transform.Scale) > 1e-12 {
			t.Errorf("Ray %d: error bound should scale with the transform, got %v", i, got.ErrorBound)
		}
	}
	if hits < 50 {
		t.Errorf("Expected most rays to hit, got %d", hits)
	}
}

func TestRayMarched_RespectsInterval(t *testing.T) {
	marched := newMarchedSphere(t, Transform{Translate: core.NewVec3(0, 0, 0), Scale: 1})
	ray := core.NewRay(core.NewVec3(0.1, 0.2, -5), core.NewVec3(0, 0, 1))

	if _, ok := marched.Hit(ray, 0.001, 3); ok {
		t.Error("Hit beyond tMax should be rejected")
	}
	// Starting past the front surface puts the march origin inside the field
	if _, ok := marched.Hit(ray, 5, math.Inf(1)); ok {
		t.Error("A march starting inside the field should miss")
	}
	if _, ok := marched.Hit(core.NewRay(core.NewVec3(0, 0, -5), core.Vec3{}), 0, math.Inf(1)); ok {
		t.Error("A zero direction should miss")
	}
}

func TestRayMarched_Bounds(t *testing.T) {
	marched := newMarchedSphere(t, Transform{Translate: core.NewVec3(5, 0, 0), Rotate: core.NewVec3(0, 0, math.Pi/4), Scale: 3})
	box := marched.BoundingBox()
	surface := core.NewVec3(8, 0, 0)
	if !box.Contains(surface) || !box.Contains(core.NewVec3(5, 3, 0)) {
		t.Errorf("World bounds %v should contain the transformed sphere", box)
	}

	repeated, err := sdf.NewRepeated(sdf.DefaultRepeatedConfig())
	if err != nil {
		t.Fatal(err)
	}
	tracer, err := march.NewTracer(repeated, march.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	tiled, err := NewRayMarched(tracer, IdentityTransform(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !tiled.BoundingBox().IsUnbounded() {
		t.Error("Repeated fields should stay unbounded in world space")
	}
	if bvh := NewBVH([]Shape{tiled, marched}); len(bvh.Unbounded) != 1 || bvh.Root == nil {
		t.Error("BVH should keep repeated fields outside the tree")
	}
}

func TestNewRayMarched_Errors(t *testing.T) {
	if _, err := NewRayMarched(nil, IdentityTransform(), nil); err == nil {
		t.Error("Expected an error for a missing tracer")
	}
	field, _ := sdf.NewSphere(core.Vec3{}, 1)
	tracer, _ := march.NewTracer(field, march.DefaultConfig())
	for _, scale := range []float64{0, -1, math.Inf(1)} {
		if _, err := NewRayMarched(tracer, Transform{Scale: scale}, nil); err == nil {
			t.Errorf("Expected an error for scale %v", scale)
		}
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	tf := Transform{Translate: core.NewVec3(-3, 1, 2), Rotate: core.NewVec3(1, 2, 3), Scale: 0.5}
	p := core.NewVec3(0.7, -1.1, 4)
	if back := tf.ToObject(tf.ToWorld(p)); back.Subtract(p).Length() > 1e-12 {
		t.Errorf("Round trip gave %v, expected %v", back, p)
	}
}
