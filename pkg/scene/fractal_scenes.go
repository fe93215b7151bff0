package scene

import (
	"fmt"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/geometry"
	"github.com/df07/go-raymarcher/pkg/march"
	"github.com/df07/go-raymarcher/pkg/material"
	"github.com/df07/go-raymarcher/pkg/sdf"
)

// cameraConfig merges the first override, if any, onto the scene's default camera
func cameraConfig(defaults geometry.CameraConfig, overrides []geometry.CameraConfig) geometry.CameraConfig {
	if len(overrides) > 0 {
		return geometry.MergeCameraConfig(defaults, overrides[0])
	}
	return defaults
}

// addDaylight lights a scene with a blue sky and a warm sun from above and behind the camera
func addDaylight(s *Scene) {
	s.AddGradientInfiniteLight(
		core.NewVec3(0.5, 0.7, 1.0), // topColor (blue sky)
		core.NewVec3(1.0, 1.0, 1.0), // bottomColor (white horizon)
	)
	s.AddDistantLight(core.NewVec3(3, 6, -4), core.NewVec3(0, 0, 0), core.NewVec3(2.5, 2.4, 2.2))
}

// newOrbitTrapMaterial creates the orbit trap material with optional fake ambient occlusion
func newOrbitTrapMaterial(fakeAO bool) (*material.OrbitTrap, error) {
	config := material.DefaultOrbitTrapConfig()
	config.EnableFakeAO = fakeAO
	return material.NewOrbitTrap(config)
}

// NewSphereScene creates a raymarched sphere resting on a checkered floor, lit by a sphere light
func NewSphereScene(cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	s := newScene(cameraConfig(geometry.CameraConfig{
		Center:      core.NewVec3(0, 1, -4),
		LookAt:      core.NewVec3(0, -0.3, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        40.0,
	}, cameraOverrides), DefaultSamplingConfig())

	field, err := sdf.NewSphere(core.NewVec3(0, 0, 0), 1)
	if err != nil {
		return nil, err
	}
	transform := geometry.IdentityTransform()
	transform.Translate = core.NewVec3(0, -0.5, 0)
	if err := s.AddRayMarched(field, march.DefaultConfig(), transform, material.NewLambertian(core.NewVec3(0.65, 0.25, 0.2))); err != nil {
		return nil, fmt.Errorf("sphere: %w", err)
	}

	checker := material.NewCheckerColor(core.NewVec3(0.8, 0.8, 0.8), core.NewVec3(0.2, 0.2, 0.2), 1.0)
	s.Shapes = append(s.Shapes, geometry.NewPlane(core.NewVec3(0, -1.5, 0), core.NewVec3(0, 1, 0), material.NewTexturedLambertian(checker)))

	s.AddSphereLight(core.NewVec3(-4, 5, -3), 1.0, core.NewVec3(12, 11, 10))
	s.AddGradientInfiniteLight(core.NewVec3(0.3, 0.4, 0.6), core.NewVec3(0.8, 0.8, 0.8))
	return s, nil
}

// NewJuliaScene creates a quaternion Julia set coloured by its orbit trap
func NewJuliaScene(cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	s := newScene(cameraConfig(geometry.CameraConfig{
		Center:      core.NewVec3(0, 0.5, -3),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 1.0,
		VFov:        40.0,
	}, cameraOverrides), DefaultSamplingConfig())

	field, err := sdf.NewJulia(sdf.DefaultJuliaConfig())
	if err != nil {
		return nil, err
	}
	mat, err := newOrbitTrapMaterial(false)
	if err != nil {
		return nil, err
	}
	config := march.DefaultConfig()
	config.HitEPS = 0.001
	if err := s.AddRayMarched(field, config, geometry.IdentityTransform(), mat); err != nil {
		return nil, fmt.Errorf("julia: %w", err)
	}

	addDaylight(s)
	return s, nil
}

// NewMandelbulbScene creates a power 8 Mandelbulb with orbit trap colour and march-step shading
func NewMandelbulbScene(cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	s := newScene(cameraConfig(geometry.CameraConfig{
		Center:      core.NewVec3(0, 1.2, -2.4),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 1.0,
		VFov:        40.0,
	}, cameraOverrides), DefaultSamplingConfig())

	field, err := sdf.NewMandelbulb(sdf.DefaultMandelbulbConfig())
	if err != nil {
		return nil, err
	}
	mat, err := newOrbitTrapMaterial(true)
	if err != nil {
		return nil, err
	}
	config := march.DefaultConfig()
	config.HitEPS = 0.001
	config.NormalEPS = 0.001
	if err := s.AddRayMarched(field, config, geometry.IdentityTransform(), mat); err != nil {
		return nil, fmt.Errorf("mandelbulb: %w", err)
	}

	addDaylight(s)
	return s, nil
}

// NewSierpinskiScene creates the space-folded Sierpinski pyramid above a plain floor
func NewSierpinskiScene(cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	s := newScene(cameraConfig(geometry.CameraConfig{
		Center:      core.NewVec3(0, 2.2, -3.5),
		LookAt:      core.NewVec3(0, 0.6, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        40.0,
	}, cameraOverrides), DefaultSamplingConfig())

	field, err := sdf.NewSpaceFold(sdf.DefaultSpaceFoldConfig())
	if err != nil {
		return nil, err
	}
	config := march.DefaultConfig()
	config.HitEPS = 0.002
	if err := s.AddRayMarched(field, config, geometry.IdentityTransform(), material.NewLambertian(core.NewVec3(0.8, 0.6, 0.2))); err != nil {
		return nil, fmt.Errorf("sierpinski: %w", err)
	}

	s.Shapes = append(s.Shapes, geometry.NewPlane(core.NewVec3(0, -1.05, 0), core.NewVec3(0, 1, 0), material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5))))
	addDaylight(s)
	return s, nil
}

// NewRepeatedScene creates a view from inside an infinite lattice of metal tori
func NewRepeatedScene(cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	s := newScene(cameraConfig(geometry.CameraConfig{
		Center:      core.NewVec3(2, 2, 2),
		LookAt:      core.NewVec3(7, 4, 14),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        60.0,
	}, cameraOverrides), DefaultSamplingConfig())

	field, err := sdf.NewRepeated(sdf.DefaultRepeatedConfig())
	if err != nil {
		return nil, err
	}
	if err := s.AddRayMarched(field, march.DefaultConfig(), geometry.IdentityTransform(), material.NewMetal(core.NewVec3(0.8, 0.8, 0.85), 0.15)); err != nil {
		return nil, fmt.Errorf("repeated: %w", err)
	}

	addDaylight(s)
	return s, nil
}

// NewWaterPoolScene creates a noise-displaced water surface under an open sky
func NewWaterPoolScene(cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	s := newScene(cameraConfig(geometry.CameraConfig{
		Center:      core.NewVec3(0, 1.0, -6),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        45.0,
	}, cameraOverrides), DefaultSamplingConfig())

	field, err := sdf.NewNoiseSurface(sdf.DefaultNoiseSurfaceConfig())
	if err != nil {
		return nil, err
	}
	config := march.DefaultConfig()
	config.HitEPS = 0.001
	if err := s.AddRayMarched(field, config, geometry.IdentityTransform(), material.NewMetal(core.NewVec3(0.6, 0.8, 0.9), 0.02)); err != nil {
		return nil, fmt.Errorf("waterpool: %w", err)
	}

	// A sun low over the far edge puts its glitter on the waves
	s.AddGradientInfiniteLight(core.NewVec3(0.4, 0.6, 1.0), core.NewVec3(0.9, 0.9, 1.0))
	s.AddDistantLight(core.NewVec3(0, 2, 10), core.NewVec3(0, 0, 0), core.NewVec3(3, 2.8, 2.4))
	return s, nil
}
