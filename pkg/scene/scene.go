package scene

import (
	"fmt"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/geometry"
	"github.com/df07/go-raymarcher/pkg/lights"
	"github.com/df07/go-raymarcher/pkg/march"
	"github.com/df07/go-raymarcher/pkg/material"
	"github.com/df07/go-raymarcher/pkg/sdf"
)

// Scene contains all the elements needed for rendering
type Scene struct {
	Camera         *geometry.Camera
	Shapes         []geometry.Shape    // Objects in the scene
	Lights         []lights.Light      // Lights in the scene
	LightSampler   lights.LightSampler // Light sampler
	SamplingConfig SamplingConfig
	CameraConfig   geometry.CameraConfig
	BVH            *geometry.BVH // Acceleration structure for ray-object intersection
}

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	Width                     int     // Image width
	Height                    int     // Image height
	SamplesPerPixel           int     // Number of rays per pixel
	MaxDepth                  int     // Maximum ray bounce depth
	RussianRouletteMinBounces int     // Minimum bounces before Russian Roulette can activate
	AdaptiveMinSamples        float64 // Minimum samples as percentage of max samples (0.0-1.0)
	AdaptiveThreshold         float64 // Relative error threshold for adaptive convergence (0.01 = 1%)
}

// DefaultSamplingConfig returns the sampling used by the built-in fractal scenes.
// Fractal surfaces are mostly diffuse, so a few bounces converge.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		SamplesPerPixel:           64,
		MaxDepth:                  6,
		RussianRouletteMinBounces: 3,
		AdaptiveMinSamples:        0.25,
		AdaptiveThreshold:         0.01,
	}
}

// Validate checks the sampling configuration for values the renderer cannot use
func (c SamplingConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.SamplesPerPixel < 1 {
		return fmt.Errorf("samples per pixel must be at least 1, got %d", c.SamplesPerPixel)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1, got %d", c.MaxDepth)
	}
	if c.AdaptiveMinSamples < 0 || c.AdaptiveMinSamples > 1 {
		return fmt.Errorf("adaptive min samples must be within [0, 1], got %v", c.AdaptiveMinSamples)
	}
	return nil
}

// newScene creates an empty scene viewed through the camera configuration
func newScene(cameraConfig geometry.CameraConfig, samplingConfig SamplingConfig) *Scene {
	camera := geometry.NewCamera(cameraConfig)
	samplingConfig.Width, samplingConfig.Height = camera.ImageSize()
	return &Scene{
		Camera:         camera,
		Shapes:         make([]geometry.Shape, 0),
		Lights:         make([]lights.Light, 0),
		SamplingConfig: samplingConfig,
		CameraConfig:   cameraConfig,
	}
}

// Preprocess prepares the scene for rendering
func (s *Scene) Preprocess() error {
	if s.Camera == nil {
		return fmt.Errorf("scene has no camera")
	}
	if err := s.SamplingConfig.Validate(); err != nil {
		return fmt.Errorf("invalid sampling config: %w", err)
	}

	s.BVH = geometry.NewBVH(s.Shapes)

	if s.LightSampler == nil {
		s.LightSampler = lights.NewUniformLightSampler(s.Lights)
	}
	return nil
}

// Hit finds the closest intersection with any shape in the scene
func (s *Scene) Hit(ray core.Ray, tMin, tMax float64) (*material.SurfaceInteraction, bool) {
	return s.BVH.Hit(ray, tMin, tMax)
}

// RayMarchedShapes returns the raymarched shapes of the scene
func (s *Scene) RayMarchedShapes() []*geometry.RayMarched {
	var marched []*geometry.RayMarched
	for _, shape := range s.Shapes {
		if rm, ok := shape.(*geometry.RayMarched); ok {
			marched = append(marched, rm)
		}
	}
	return marched
}

// AddRayMarched adds a distance field, sphere traced with the given tolerances
func (s *Scene) AddRayMarched(field sdf.Field, config march.Config, transform geometry.Transform, mat material.Material) error {
	tracer, err := march.NewTracer(field, config)
	if err != nil {
		return err
	}
	shape, err := geometry.NewRayMarched(tracer, transform, mat)
	if err != nil {
		return err
	}
	s.Shapes = append(s.Shapes, shape)
	return nil
}

// AddSphereLight adds a spherical light to the scene
func (s *Scene) AddSphereLight(center core.Vec3, radius float64, emission core.Vec3) {
	emissiveMat := material.NewEmissive(emission)
	sphereLight := lights.NewSphereLight(center, radius, emissiveMat)
	s.Lights = append(s.Lights, sphereLight)
	s.Shapes = append(s.Shapes, sphereLight.Sphere)
}

// AddDistantLight adds a sun shining from one point toward another
func (s *Scene) AddDistantLight(from, to, radiance core.Vec3) {
	s.Lights = append(s.Lights, lights.NewDistantLight(from, to, radiance))
}

// AddUniformInfiniteLight adds a uniform infinite light to the scene
func (s *Scene) AddUniformInfiniteLight(emission core.Vec3) {
	s.Lights = append(s.Lights, lights.NewUniformInfiniteLight(emission))
}

// AddGradientInfiniteLight adds a gradient infinite light to the scene
func (s *Scene) AddGradientInfiniteLight(topColor, bottomColor core.Vec3) {
	s.Lights = append(s.Lights, lights.NewGradientInfiniteLight(topColor, bottomColor))
}
