package march

import (
	"math"
	"testing"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/sdf"
)

// constantField reports the same distance everywhere
type constantField struct {
	value float64
}

func (c constantField) Evaluate(p core.Vec3) float64 { return c.value }
func (c constantField) EvaluateWithTrap(p core.Vec3) (float64, core.Vec3) {
	return c.value, sdf.NeutralTrap
}
func (c constantField) Bounds() core.AABB { return core.UnboundedAABB() }

// trapRecorder wraps a field and remembers where the trap was sampled
type trapRecorder struct {
	sdf.Field
	sampledAt *core.Vec3
}

func (r trapRecorder) EvaluateWithTrap(p core.Vec3) (float64, core.Vec3) {
	*r.sampledAt = p
	return r.Field.Evaluate(p), core.NewVec3(0.25, 0.5, 0.75)
}

func newSphereTracer(t *testing.T, radius float64, config Config) *Tracer {
	t.Helper()
	sphere, err := sdf.NewSphere(core.Vec3{}, radius)
	if err != nil {
		t.Fatalf("NewSphere failed: %v", err)
	}
	tracer, err := NewTracer(sphere, config)
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}
	return tracer
}

func TestTracer_SphereHitDistance(t *testing.T) {
	tracer := newSphereTracer(t, 1.0, DefaultConfig())

	tests := []struct {
		name   string
		origin core.Vec3
	}{
		{"Along -Z", core.NewVec3(0, 0, -5)},
		{"Along +X", core.NewVec3(3, 0, 0)},
		{"Diagonal", core.NewVec3(2, -2, 2)},
		{"Close", core.NewVec3(0, 1.5, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Unnormalised direction toward the centre
			ray := core.NewRay(tt.origin, tt.origin.Negate().Multiply(3))
			hit, ok := tracer.Intersect(ray)
			if !ok {
				t.Fatal("Expected hit")
			}

			expected := tt.origin.Length() - 1.0
			if math.Abs(hit.T-expected) > tracer.Config().HitEPS {
				t.Errorf("Expected t=%v, got %v", expected, hit.T)
			}
			if math.Abs(hit.Point.Length()-1.0) > tracer.Config().HitEPS {
				t.Errorf("Hit point %v is not on the sphere", hit.Point)
			}

			// One-sided differences are accurate to about eps
			expectedNormal := tt.origin.Normalize()
			if hit.Normal.Subtract(expectedNormal).Length() > 0.02 {
				t.Errorf("Expected normal %v, got %v", expectedNormal, hit.Normal)
			}
			if math.Abs(hit.Normal.Length()-1) > 1e-9 {
				t.Errorf("Normal %v is not unit length", hit.Normal)
			}
			if hit.Error != 10*tracer.Config().HitEPS {
				t.Errorf("Expected error bound %v, got %v", 10*tracer.Config().HitEPS, hit.Error)
			}
		})
	}
}

func TestTracer_OriginInsideIsMiss(t *testing.T) {
	tracer := newSphereTracer(t, 1.0, DefaultConfig())

	origins := []core.Vec3{
		core.NewVec3(0, 0, 0),
		core.NewVec3(0.5, 0, 0),
		core.NewVec3(0, -0.9, 0.1),
	}
	for _, origin := range origins {
		ray := core.NewRay(origin, core.NewVec3(1, 0, 0))
		if _, ok := tracer.Intersect(ray); ok {
			t.Errorf("Expected miss for origin %v inside the sphere", origin)
		}
	}
}

func TestTracer_StepCeilingIsMiss(t *testing.T) {
	config := DefaultConfig()
	config.MaxRaySteps = 1

	julia, err := sdf.NewJulia(sdf.DefaultJuliaConfig())
	if err != nil {
		t.Fatalf("NewJulia failed: %v", err)
	}
	juliaTracer, err := NewTracer(julia, config)
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}
	sphereTracer := newSphereTracer(t, 1.0, config)

	// Grazes the top of the Julia bounding box
	graze := core.NewRay(core.NewVec3(-6, 5, 0), core.NewVec3(1, 0, 0))
	if _, ok := juliaTracer.Intersect(graze); ok {
		t.Error("Expected miss when the step ceiling is reached")
	}

	// A ray that would hit with more steps
	direct := core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1))
	if _, ok := sphereTracer.Intersect(direct); ok {
		t.Error("Expected miss with a single step")
	}
	if _, ok := newSphereTracer(t, 1.0, DefaultConfig()).Intersect(direct); !ok {
		t.Error("Expected hit with the default step ceiling")
	}
}

func TestTracer_MarchDistanceIsMiss(t *testing.T) {
	tracer := newSphereTracer(t, 1.0, DefaultConfig())

	away := core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, -1))
	if _, ok := tracer.Intersect(away); ok {
		t.Error("Expected miss for ray pointing away")
	}

	short := DefaultConfig()
	short.MaxMarchDist = 2
	if _, ok := newSphereTracer(t, 1.0, short).Intersect(core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1))); ok {
		t.Error("Expected miss when the surface lies beyond the march distance")
	}
}

func TestTracer_ZeroDirectionIsMiss(t *testing.T) {
	tracer := newSphereTracer(t, 1.0, DefaultConfig())
	if _, ok := tracer.Intersect(core.NewRay(core.NewVec3(0, 0, -5), core.Vec3{})); ok {
		t.Error("Expected miss for zero direction")
	}
}

func TestTracer_StepCount(t *testing.T) {
	tracer := newSphereTracer(t, 1.0, DefaultConfig())

	// The first step lands exactly on the surface, the second evaluation converges
	hit, ok := tracer.Intersect(core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1)))
	if !ok {
		t.Fatal("Expected hit")
	}
	if hit.Steps != 1 {
		t.Errorf("Expected 1 step, got %d", hit.Steps)
	}
}

func TestTracer_TrapSampledOffSurface(t *testing.T) {
	sphere, err := sdf.NewSphere(core.Vec3{}, 1.0)
	if err != nil {
		t.Fatalf("NewSphere failed: %v", err)
	}
	var sampledAt core.Vec3
	tracer, err := NewTracer(trapRecorder{Field: sphere, sampledAt: &sampledAt}, DefaultConfig())
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	hit, ok := tracer.Intersect(core.NewRay(core.NewVec3(0, 0, -5), core.NewVec3(0, 0, 1)))
	if !ok {
		t.Fatal("Expected hit")
	}

	expected := hit.Point.Add(hit.Normal.Multiply(2 * DefaultConfig().NormalEPS))
	if sampledAt.Subtract(expected).Length() > 1e-12 {
		t.Errorf("Expected trap sampled at %v, got %v", expected, sampledAt)
	}
	if hit.OrbitTrap != core.NewVec3(0.25, 0.5, 0.75) {
		t.Errorf("Expected trap to be carried through, got %v", hit.OrbitTrap)
	}
}

func TestTracer_MandelbulbHit(t *testing.T) {
	bulb, err := sdf.NewMandelbulb(sdf.DefaultMandelbulbConfig())
	if err != nil {
		t.Fatalf("NewMandelbulb failed: %v", err)
	}
	tracer, err := NewTracer(bulb, DefaultConfig())
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	hit, ok := tracer.Intersect(core.NewRay(core.NewVec3(0, 0, -3), core.NewVec3(0, 0, 1)))
	if !ok {
		t.Fatal("Expected ray toward the bulb centre to hit")
	}
	if d := bulb.Evaluate(hit.Point); math.Abs(d) >= tracer.Config().HitEPS {
		t.Errorf("Estimate %v at hit point exceeds hitEPS", d)
	}
	if !hit.OrbitTrap.IsFinite() || !hit.Normal.IsFinite() {
		t.Errorf("Expected finite trap and normal, got %v and %v", hit.OrbitTrap, hit.Normal)
	}
}

func TestTracer_NormalFallback(t *testing.T) {
	fallback := core.NewVec3(0, 1, 0)

	tests := []struct {
		name  string
		field sdf.Field
	}{
		{"Flat field", constantField{value: 1}},
		{"NaN field", constantField{value: math.NaN()}},
		{"Infinite field", constantField{value: math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := NewTracer(tt.field, DefaultConfig())
			if err != nil {
				t.Fatalf("NewTracer failed: %v", err)
			}
			if n := tracer.Normal(core.NewVec3(1, 2, 3), 0.01, fallback); n != fallback {
				t.Errorf("Expected fallback %v, got %v", fallback, n)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("Default config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Zero normalEPS", func(c *Config) { c.NormalEPS = 0 }},
		{"Negative hitEPS", func(c *Config) { c.HitEPS = -1 }},
		{"Zero march distance", func(c *Config) { c.MaxMarchDist = 0 }},
		{"Zero steps", func(c *Config) { c.MaxRaySteps = 0 }},
		{"Phimax too large", func(c *Config) { c.PhiMax = 720 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	if _, err := NewTracer(nil, DefaultConfig()); err == nil {
		t.Error("Expected error for nil field")
	}
}
