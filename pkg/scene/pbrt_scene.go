package scene

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/geometry"
	"github.com/df07/go-raymarcher/pkg/lights"
	"github.com/df07/go-raymarcher/pkg/loaders"
	"github.com/df07/go-raymarcher/pkg/march"
	"github.com/df07/go-raymarcher/pkg/material"
	"github.com/df07/go-raymarcher/pkg/sdf"
)

// NewPBRTScene creates a scene from a PBRT file
func NewPBRTScene(filepath string, cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	pbrtScene, err := loaders.LoadPBRT(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to load PBRT file: %w", err)
	}
	return convertPBRTScene(pbrtScene, cameraOverrides...)
}

// convertPBRTScene converts parsed PBRT statements into a scene
func convertPBRTScene(pbrtScene *loaders.PBRTScene, cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	scene := &Scene{
		Shapes:         make([]geometry.Shape, 0),
		Lights:         make([]lights.Light, 0),
		SamplingConfig: createDefaultPBRTSamplingConfig(),
	}

	if err := convertSampling(pbrtScene, &scene.SamplingConfig); err != nil {
		return nil, fmt.Errorf("failed to convert sampling: %w", err)
	}
	if err := convertCamera(pbrtScene, scene, cameraOverrides...); err != nil {
		return nil, fmt.Errorf("failed to convert camera: %w", err)
	}

	// Convert all materials first
	materials := make([]material.Material, len(pbrtScene.Materials))
	for i := range pbrtScene.Materials {
		mat, err := convertMaterial(&pbrtScene.Materials[i])
		if err != nil {
			return nil, fmt.Errorf("line %d: failed to convert material: %w", pbrtScene.Materials[i].Line, err)
		}
		materials[i] = mat
	}

	for i := range pbrtScene.Shapes {
		shapeStmt := &pbrtScene.Shapes[i]
		if shapeStmt.IsAreaLight() {
			if err := convertAreaLight(shapeStmt, scene); err != nil {
				return nil, fmt.Errorf("line %d: failed to convert area light: %w", shapeStmt.Line, err)
			}
			continue
		}

		if shapeStmt.MaterialIndex < 0 || shapeStmt.MaterialIndex >= len(materials) {
			return nil, fmt.Errorf("line %d: shape has no valid material (MaterialIndex: %d)", shapeStmt.Line, shapeStmt.MaterialIndex)
		}

		shape, err := convertShape(shapeStmt, materials[shapeStmt.MaterialIndex])
		if err != nil {
			return nil, fmt.Errorf("line %d: failed to convert shape: %w", shapeStmt.Line, err)
		}
		scene.Shapes = append(scene.Shapes, shape)
	}

	for i := range pbrtScene.LightSources {
		light, err := convertLight(&pbrtScene.LightSources[i])
		if err != nil {
			return nil, fmt.Errorf("line %d: failed to convert light: %w", pbrtScene.LightSources[i].Line, err)
		}
		scene.Lights = append(scene.Lights, light)
	}

	return scene, nil
}

// createDefaultPBRTSamplingConfig creates default sampling configuration
func createDefaultPBRTSamplingConfig() SamplingConfig {
	config := DefaultSamplingConfig()
	config.Width = 400
	config.Height = 400
	return config
}

// convertSampling reads the sample count and path depth from the Sampler and Integrator statements
func convertSampling(pbrtScene *loaders.PBRTScene, config *SamplingConfig) error {
	if pbrtScene.Sampler != nil {
		if spp, ok := pbrtScene.Sampler.GetIntParam("pixelsamples"); ok {
			if spp < 1 {
				return fmt.Errorf("invalid pixelsamples %d: must be at least 1", spp)
			}
			config.SamplesPerPixel = spp
		}
	}
	if pbrtScene.Integrator != nil {
		if depth, ok := pbrtScene.Integrator.GetIntParam("maxdepth"); ok {
			if depth < 1 {
				return fmt.Errorf("invalid maxdepth %d: must be at least 1", depth)
			}
			config.MaxDepth = depth
		}
	}
	return nil
}

// convertCamera converts PBRT camera to our camera system
func convertCamera(pbrtScene *loaders.PBRTScene, scene *Scene, cameraOverrides ...geometry.CameraConfig) error {
	cameraConfig := geometry.CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		LookAt:      core.NewVec3(0, 0, 1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 1.0,
		VFov:        90.0,
	}

	if pbrtScene.LookAt != nil && pbrtScene.LookAtTo != nil && pbrtScene.LookAtUp != nil {
		cameraConfig.Center = *pbrtScene.LookAt
		cameraConfig.LookAt = *pbrtScene.LookAtTo
		cameraConfig.Up = *pbrtScene.LookAtUp
	}

	if pbrtScene.Camera != nil && pbrtScene.Camera.Subtype == "perspective" {
		if fov, ok := pbrtScene.Camera.GetFloatParam("fov"); ok {
			if fov <= 0 || fov >= 180 {
				return fmt.Errorf("invalid camera FOV %f: must be between 0 and 180 degrees", fov)
			}
			cameraConfig.VFov = fov
		}
		if aperture, ok := pbrtScene.Camera.GetFloatParam("lensradius"); ok && aperture > 0 {
			cameraConfig.Aperture = 2 * aperture
		}
		if focus, ok := pbrtScene.Camera.GetFloatParam("focaldistance"); ok && focus > 0 {
			cameraConfig.FocusDistance = focus
		}
	}

	if pbrtScene.Film != nil {
		width, height := cameraConfig.Width, cameraConfig.Width
		if w, ok := pbrtScene.Film.GetIntParam("xresolution"); ok {
			if w <= 0 || w > 8192 {
				return fmt.Errorf("invalid image width %d: must be between 1 and 8192", w)
			}
			width = w
		}
		if h, ok := pbrtScene.Film.GetIntParam("yresolution"); ok {
			if h <= 0 || h > 8192 {
				return fmt.Errorf("invalid image height %d: must be between 1 and 8192", h)
			}
			height = h
		}
		cameraConfig.Width = width
		cameraConfig.AspectRatio = float64(width) / float64(height)
	}

	if len(cameraOverrides) > 0 {
		cameraConfig = geometry.MergeCameraConfig(cameraConfig, cameraOverrides[0])
	}

	scene.CameraConfig = cameraConfig
	scene.Camera = geometry.NewCamera(cameraConfig)
	scene.SamplingConfig.Width, scene.SamplingConfig.Height = scene.Camera.ImageSize()
	return nil
}

// convertMaterial converts a PBRT material to our material system
func convertMaterial(stmt *loaders.PBRTStatement) (material.Material, error) {
	switch stmt.Subtype {
	case "orbittrap":
		return convertOrbitTrap(stmt)

	case "diffuse":
		if rgb, ok := stmt.GetRGBParam("reflectance"); ok {
			return material.NewLambertian(*rgb), nil
		}
		return material.NewLambertian(core.NewVec3(0.5, 0.5, 0.5)), nil

	case "conductor":
		albedo := core.NewVec3(0.7, 0.6, 0.5) // Default metal color
		if rgb, ok := stmt.GetRGBParam("reflectance"); ok {
			albedo = *rgb
		} else if rgb, ok := stmt.GetRGBParam("eta"); ok {
			albedo = *rgb
		}

		fuzz := 0.0
		if roughness, ok := stmt.GetFloatParam("roughness"); ok {
			if roughness < 0 || roughness > 1 {
				return nil, fmt.Errorf("invalid metal roughness %f: must be between 0 and 1", roughness)
			}
			fuzz = roughness
		}
		return material.NewMetal(albedo, fuzz), nil

	default:
		return nil, fmt.Errorf("unsupported material type: %s", stmt.Subtype)
	}
}

// convertOrbitTrap reads the orbit trap material options. Kd, eta and opacity are accepted and ignored:
// the diffuse colour always comes from the trap.
func convertOrbitTrap(stmt *loaders.PBRTStatement) (material.Material, error) {
	config := material.DefaultOrbitTrapConfig()
	if v, ok := stmt.GetFloatParam("fudgeFactor"); ok {
		config.FudgeFactor = v
	}
	if v, ok := stmt.GetBoolParam("enableFakeAO"); ok {
		config.EnableFakeAO = v
	}
	if v, ok := stmt.GetBoolParam("remaproughness"); ok {
		config.RemapRoughness = v
	}
	if v, ok := stmt.GetFloatParam("roughness"); ok {
		config.Roughness = v
	}
	if v, ok := stmt.GetRGBParam("Ks"); ok {
		config.Ks = *v
	}
	if v, ok := stmt.GetRGBParam("Kr"); ok {
		config.Kr = *v
	}
	if v, ok := stmt.GetBoolParam("ramp"); ok {
		config.Ramp = v
	}
	return material.NewOrbitTrap(config)
}

// convertMarchConfig reads the tolerances shared by every raymarched shape
func convertMarchConfig(stmt *loaders.PBRTStatement) march.Config {
	config := march.DefaultConfig()
	if v, ok := stmt.GetFloatParam("normalEPS"); ok {
		config.NormalEPS = v
	}
	if v, ok := stmt.GetFloatParam("hitEPS"); ok {
		config.HitEPS = v
	}
	if v, ok := stmt.GetFloatParam("maxMarchDist"); ok {
		config.MaxMarchDist = v
	}
	if v, ok := stmt.GetIntParam("maxRaySteps"); ok {
		config.MaxRaySteps = v
	}
	if v, ok := stmt.GetFloatParam("phimax"); ok {
		config.PhiMax = v
	}
	return config
}

// convertField builds the distance field named by a raymarched shape's subtype
func convertField(stmt *loaders.PBRTStatement) (sdf.Field, error) {
	switch stmt.Subtype {
	case "raymarcher":
		radius := 1.0
		if r, ok := stmt.GetFloatParam("radius"); ok {
			radius = r
		}
		return sdf.NewSphere(core.NewVec3(0, 0, 0), radius)

	case "juliaset":
		config := sdf.DefaultJuliaConfig()
		if v, ok := stmt.GetFloatParam("bailoutRadius"); ok {
			config.BailoutRadius = v
		}
		if v, ok := stmt.GetIntParam("juliaIterations"); ok {
			config.Iterations = v
		}
		if v, ok := stmt.GetFloatParam("realConstant"); ok {
			config.Constant.Real = v
		}
		if v, ok := stmt.GetVec3Param("imaginaryConstants"); ok {
			config.Constant = quat.Number{Real: config.Constant.Real, Imag: v.X, Jmag: v.Y, Kmag: v.Z}
		}
		if v, ok := stmt.GetFloatParam("juliaZSlice"); ok {
			config.ZSlice = v
		}
		return sdf.NewJulia(config)

	case "mandelbulb":
		config := sdf.DefaultMandelbulbConfig()
		if v, ok := stmt.GetFloatParam("bailoutRadius"); ok {
			config.BailoutRadius = v
		}
		if v, ok := stmt.GetFloatParam("power"); ok {
			config.Power = v
		}
		if v, ok := stmt.GetIntParam("mandelIterations"); ok {
			config.Iterations = v
		}
		if name, ok := stmt.GetStringParam("trap"); ok {
			mode, err := sdf.ParseTrapMode(name)
			if err != nil {
				return nil, err
			}
			config.Trap = mode
		}
		return sdf.NewMandelbulb(config)

	case "spacefold":
		config := sdf.DefaultSpaceFoldConfig()
		if v, ok := stmt.GetIntParam("foldIterations"); ok {
			config.Iterations = v
		}
		return sdf.NewSpaceFold(config)

	case "repeated":
		config := sdf.DefaultRepeatedConfig()
		if v, ok := stmt.GetFloatParam("cellSize"); ok {
			config.CellSize = v
		}
		if v, ok := stmt.GetFloatParam("majorRadius"); ok {
			config.MajorRadius = v
		}
		if v, ok := stmt.GetFloatParam("minorRadius"); ok {
			config.MinorRadius = v
		}
		return sdf.NewRepeated(config)

	case "waterpool":
		config := sdf.DefaultNoiseSurfaceConfig()
		if v, ok := stmt.GetFloatParam("length"); ok {
			config.Length = v
		}
		if v, ok := stmt.GetFloatParam("width"); ok {
			config.Width = v
		}
		if v, ok := stmt.GetFloatParam("height"); ok {
			config.Height = v
		}
		if v, ok := stmt.GetIntParam("octave"); ok {
			config.Octaves = v
		}
		if v, ok := stmt.GetFloatParam("amplitude"); ok {
			config.Amplitude = v
		}
		if v, ok := stmt.GetIntParam("seed"); ok {
			config.Seed = int64(v)
		}
		return sdf.NewNoiseSurface(config)
	}
	return nil, fmt.Errorf("unsupported shape type: %s", stmt.Subtype)
}

// convertShape converts a PBRT shape to our shape system
func convertShape(stmt *loaders.PBRTStatement, mat material.Material) (geometry.Shape, error) {
	if mat == nil {
		return nil, fmt.Errorf("shape has no material")
	}

	if stmt.Subtype == "sphere" {
		center, radius, err := sphereInWorld(stmt)
		if err != nil {
			return nil, err
		}
		return geometry.NewSphere(center, radius, mat), nil
	}

	field, err := convertField(stmt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stmt.Subtype, err)
	}
	tracer, err := march.NewTracer(field, convertMarchConfig(stmt))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stmt.Subtype, err)
	}
	return geometry.NewRayMarched(tracer, stmt.Transform, mat)
}

// sphereInWorld places an analytic sphere statement with its transform
func sphereInWorld(stmt *loaders.PBRTStatement) (core.Vec3, float64, error) {
	radius := 1.0
	if r, ok := stmt.GetFloatParam("radius"); ok {
		if r <= 0 {
			return core.Vec3{}, 0, fmt.Errorf("invalid sphere radius %f: must be positive", r)
		}
		radius = r
	}
	return stmt.Transform.ToWorld(core.NewVec3(0, 0, 0)), radius * stmt.Transform.Scale, nil
}

// convertAreaLight turns a sphere declared under an AreaLightSource into a sphere light
func convertAreaLight(stmt *loaders.PBRTStatement, scene *Scene) error {
	if stmt.Subtype != "sphere" {
		return fmt.Errorf("area lights must be spheres, got %s", stmt.Subtype)
	}
	center, radius, err := sphereInWorld(stmt)
	if err != nil {
		return err
	}

	emission := core.NewVec3(1, 1, 1)
	if rgb, ok := stmt.AreaLight.GetRGBParam("L"); ok {
		emission = *rgb
	}
	if scale, ok := stmt.AreaLight.GetFloatParam("scale"); ok {
		emission = emission.Multiply(scale)
	}

	scene.AddSphereLight(center, radius, emission)
	return nil
}

// convertLight converts a PBRT light to our light system
func convertLight(stmt *loaders.PBRTStatement) (lights.Light, error) {
	scale := 1.0
	if s, ok := stmt.GetFloatParam("scale"); ok {
		scale = s
	}

	switch stmt.Subtype {
	case "point":
		intensity := core.NewVec3(10, 10, 10)
		if rgb, ok := stmt.GetRGBParam("I"); ok {
			intensity = *rgb
		}
		position := core.NewVec3(0, 5, 0)
		if pos, ok := stmt.GetPoint3Param("from"); ok {
			position = *pos
		}

		// Small sphere light stands in for a point light
		emissiveMat := material.NewEmissive(intensity.Multiply(scale))
		return lights.NewSphereLight(position, 0.1, emissiveMat), nil

	case "distant":
		radiance := core.NewVec3(1, 1, 1)
		if rgb, ok := stmt.GetRGBParam("L"); ok {
			radiance = *rgb
		}
		from := core.NewVec3(0, 0, 0)
		if p, ok := stmt.GetPoint3Param("from"); ok {
			from = *p
		}
		to := core.NewVec3(0, 0, 1)
		if p, ok := stmt.GetPoint3Param("to"); ok {
			to = *p
		}
		if from.Subtract(to).IsZero() {
			return nil, fmt.Errorf("distant light needs distinct from and to points")
		}
		return lights.NewDistantLight(from, to, radiance.Multiply(scale)), nil

	case "infinite":
		radiance := core.NewVec3(1, 1, 1)
		if rgb, ok := stmt.GetRGBParam("L"); ok {
			radiance = *rgb
		}
		return lights.NewUniformInfiniteLight(radiance.Multiply(scale)), nil

	case "infinite-gradient":
		topColor := core.NewVec3(0.5, 0.7, 1.0)
		bottomColor := core.NewVec3(1.0, 1.0, 1.0)
		if rgb, ok := stmt.GetRGBParam("topColor"); ok {
			topColor = *rgb
		}
		if rgb, ok := stmt.GetRGBParam("bottomColor"); ok {
			bottomColor = *rgb
		}
		return lights.NewGradientInfiniteLight(topColor.Multiply(scale), bottomColor.Multiply(scale)), nil

	default:
		return nil, fmt.Errorf("unsupported light type: %s", stmt.Subtype)
	}
}
