package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/geometry"
	"github.com/df07/go-raymarcher/pkg/material"
	"github.com/df07/go-raymarcher/pkg/scene"
	"github.com/df07/go-raymarcher/pkg/sdf"
)

// InspectResponse represents the JSON response for object inspection
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	MaterialType string                 `json:"materialType"`
	GeometryType string                 `json:"geometryType"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	FrontFace    bool                   `json:"frontFace"`
	OrbitTrap    [3]float64             `json:"orbitTrap"`
	MarchSteps   int                    `json:"marchSteps"`
	ErrorBound   float64                `json:"errorBound"`
	Properties   map[string]interface{} `json:"properties"`
}

// InspectResult contains the first hit of an inspection ray and the shape that produced it
type InspectResult struct {
	Hit       bool
	HitRecord *material.SurfaceInteraction
	Shape     geometry.Shape
}

func vecArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func isFinite(v core.Vec3) bool {
	return !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0) &&
		!math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z)
}

func hexColor(c core.Vec3) string {
	c = c.Clamp(0, 1)
	return fmt.Sprintf("#%02x%02x%02x", int(c.X*255), int(c.Y*255), int(c.Z*255))
}

// extractMaterialInfo describes a material as seen at the hit
func (s *Server) extractMaterialInfo(mat material.Material, hit *material.SurfaceInteraction) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch m := mat.(type) {
	case *material.OrbitTrap:
		config := m.Config()
		albedo := m.Albedo(hit)
		properties["albedo"] = vecArray(albedo)
		properties["color"] = hexColor(albedo)
		properties["fudgeFactor"] = config.FudgeFactor
		properties["fakeAO"] = config.EnableFakeAO
		properties["roughness"] = config.Roughness
		properties["ramp"] = config.Ramp
		return "orbittrap", properties

	case *material.Lambertian:
		albedo := m.Albedo.Evaluate(hit)
		properties["albedo"] = vecArray(albedo)
		properties["color"] = hexColor(albedo)
		return "lambertian", properties

	case *material.Metal:
		properties["albedo"] = vecArray(m.Albedo)
		properties["color"] = hexColor(m.Albedo)
		properties["fuzzness"] = m.Fuzzness
		return "metal", properties

	case *material.Emissive:
		properties["emission"] = vecArray(m.Emission)
		properties["color"] = hexColor(m.Emission)
		return "emissive", properties

	default:
		return "unknown", properties
	}
}

// fieldType names the distance estimator behind a raymarched shape
func fieldType(field sdf.Field) string {
	switch field.(type) {
	case *sdf.Mandelbulb:
		return "mandelbulb"
	case *sdf.Julia:
		return "juliaset"
	case *sdf.SpaceFold:
		return "spacefold"
	case *sdf.Repeated:
		return "repeated"
	case *sdf.NoiseSurface:
		return "noisesurface"
	case *sdf.Sphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// extractGeometryInfo extracts detailed geometry information
func (s *Server) extractGeometryInfo(shape geometry.Shape) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch geom := shape.(type) {
	case *geometry.RayMarched:
		tracer := geom.Tracer()
		config := tracer.Config()
		transform := geom.Transform()
		properties["field"] = fieldType(tracer.Field())
		properties["hitEpsilon"] = config.HitEPS
		properties["normalEpsilon"] = config.NormalEPS
		properties["maxSteps"] = config.MaxRaySteps
		properties["maxDistance"] = config.MaxMarchDist
		properties["translate"] = vecArray(transform.Translate)
		properties["rotate"] = vecArray(transform.Rotate)
		properties["scale"] = transform.Scale
		// Lattices and height fields are unbounded and JSON has no infinity
		if bbox := geom.BoundingBox(); isFinite(bbox.Min) && isFinite(bbox.Max) {
			properties["boundingBox"] = map[string]interface{}{
				"min": vecArray(bbox.Min),
				"max": vecArray(bbox.Max),
			}
		}
		return "raymarched", properties

	case *geometry.Sphere:
		properties["center"] = vecArray(geom.Center)
		properties["radius"] = geom.Radius
		if _, ok := geom.Material.(*material.Emissive); ok {
			return "sphere_light", properties
		}
		return "sphere", properties

	case *geometry.Plane:
		properties["point"] = vecArray(geom.Point)
		properties["normal"] = vecArray(geom.Normal)
		return "plane", properties

	default:
		return "unknown", properties
	}
}

// inspectPixel casts a ray through the centre of a pixel of a preprocessed scene
func inspectPixel(sceneObj *scene.Scene, pixelX, pixelY int) InspectResult {
	centre := core.NewVec2(0.5, 0.5)
	ray := sceneObj.Camera.GetRay(pixelX, pixelY, centre, centre)

	hit, isHit := sceneObj.Hit(ray, 0.001, math.Inf(1))
	if !isHit {
		return InspectResult{Hit: false}
	}

	// The BVH does not report the shape, so find the one that produced the same intersection
	for _, shape := range sceneObj.Shapes {
		if shapeHit, ok := shape.Hit(ray, 0.001, hit.T+0.001); ok && shapeHit.T == hit.T {
			return InspectResult{Hit: true, HitRecord: hit, Shape: shape}
		}
	}
	return InspectResult{Hit: true, HitRecord: hit}
}

// handleInspect handles ray casting inspection requests
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	inspectReq := &RenderRequest{}
	if err := s.parseCommonSceneParams(r, inspectReq); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid scene parameters: " + err.Error()})
		return
	}

	pixelX, err := strconv.Atoi(r.URL.Query().Get("x"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid x coordinate"})
		return
	}
	pixelY, err := strconv.Atoi(r.URL.Query().Get("y"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid y coordinate"})
		return
	}

	sceneObj, err := s.createScene(inspectReq, nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown scene: " + inspectReq.Scene})
		return
	}

	width, height := sceneObj.SamplingConfig.Width, sceneObj.SamplingConfig.Height
	if pixelX < 0 || pixelX >= width || pixelY < 0 || pixelY >= height {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Pixel coordinates out of bounds"})
		return
	}

	result := inspectPixel(sceneObj, pixelX, pixelY)
	if !result.Hit {
		writeJSON(w, http.StatusOK, InspectResponse{Hit: false})
		return
	}

	hit := result.HitRecord
	materialType, materialProps := s.extractMaterialInfo(hit.Material, hit)
	geometryType, geometryProps := s.extractGeometryInfo(result.Shape)

	writeJSON(w, http.StatusOK, InspectResponse{
		Hit:          true,
		MaterialType: materialType,
		GeometryType: geometryType,
		Point:        vecArray(hit.Point),
		Normal:       vecArray(hit.Normal),
		Distance:     hit.T,
		FrontFace:    hit.FrontFace,
		OrbitTrap:    vecArray(hit.OrbitTrap),
		MarchSteps:   hit.MarchSteps,
		ErrorBound:   hit.ErrorBound,
		Properties: map[string]interface{}{
			"material": materialProps,
			"geometry": geometryProps,
		},
	})
}
