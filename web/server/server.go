package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/geometry"
	"github.com/df07/go-raymarcher/pkg/scene"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
)

const (
	// DefaultTileSize is the tile edge used for web renders
	DefaultTileSize = 32
	defaultScene    = "mandelbulb"
)

// Server handles web requests for the progressive raymarcher
type Server struct {
	port      int
	staticDir string
	upgrader  websocket.Upgrader
}

// NewServer creates a new web server serving static files from staticDir
func NewServer(port int, staticDir string) *Server {
	return &Server{
		port:      port,
		staticDir: staticDir,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RenderRequest represents a render request from the client
type RenderRequest struct {
	Scene              string  `json:"scene"`              // Scene ID from /api/scenes
	Width              int     `json:"width"`              // Image width
	MaxSamples         int     `json:"maxSamples"`         // Maximum samples per pixel
	MaxPasses          int     `json:"maxPasses"`          // Maximum number of passes
	MaxDepth           int     `json:"maxDepth"`           // Maximum bounce depth
	RRMinBounces       int     `json:"rrMinBounces"`       // Russian Roulette minimum bounces
	AdaptiveMinSamples float64 `json:"adaptiveMinSamples"` // Adaptive sampling minimum, as a fraction of max samples
	AdaptiveThreshold  float64 `json:"adaptiveThreshold"`  // Adaptive sampling relative error threshold
}

// Stats represents render statistics
type Stats struct {
	TotalPixels    int     `json:"totalPixels"`
	TotalSamples   int     `json:"totalSamples"`
	AverageSamples float64 `json:"averageSamples"`
	SampleStdDev   float64 `json:"sampleStdDev"`
	MaxSamples     int     `json:"maxSamples"`
	MinSamples     int     `json:"minSamples"`
	MaxSamplesUsed int     `json:"maxSamplesUsed"`
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))

	// Streaming endpoints must flush per event, so only the JSON endpoints are compressed
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/ws", s.handleStream)
	mux.Handle("/api/health", gzhttp.GzipHandler(http.HandlerFunc(s.handleHealth)))
	mux.Handle("/api/scenes", gzhttp.GzipHandler(http.HandlerFunc(s.handleScenes)))
	mux.Handle("/api/scene-config", gzhttp.GzipHandler(http.HandlerFunc(s.handleSceneConfig)))
	mux.Handle("/api/inspect", gzhttp.GzipHandler(http.HandlerFunc(s.handleInspect)))
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in and PBRT scenes
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	scenes, err := scene.ListAllScenes()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, scenes)
}

// parseCommonSceneParams parses the parameters shared by render and inspect requests
func (s *Server) parseCommonSceneParams(r *http.Request, req *RenderRequest) error {
	query := r.URL.Query()
	req.Scene = query.Get("scene")
	if req.Scene == "" {
		req.Scene = defaultScene
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 400, 16, 2000); err != nil {
		return err
	}
	return nil
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	req := &RenderRequest{}
	if err := s.parseCommonSceneParams(r, req); err != nil {
		return nil, err
	}

	defaults := scene.DefaultSamplingConfig()
	query := r.URL.Query()
	var err error
	if req.MaxSamples, err = parseIntParam(query, "maxSamples", 50, 1, 10000); err != nil {
		return nil, err
	}
	if req.MaxPasses, err = parseIntParam(query, "maxPasses", 7, 1, 10000); err != nil {
		return nil, err
	}
	if req.MaxDepth, err = parseIntParam(query, "maxDepth", defaults.MaxDepth, 1, 100); err != nil {
		return nil, err
	}
	if req.RRMinBounces, err = parseIntParam(query, "rrMinBounces", defaults.RussianRouletteMinBounces, 1, 100); err != nil {
		return nil, err
	}
	if req.AdaptiveMinSamples, err = parseFloatParam(query, "adaptiveMinSamples", defaults.AdaptiveMinSamples, 0.01, 1.0); err != nil {
		return nil, err
	}
	if req.AdaptiveThreshold, err = parseFloatParam(query, "adaptiveThreshold", defaults.AdaptiveThreshold, 0.001, 0.5); err != nil {
		return nil, err
	}

	if req.Width > 1200 && req.MaxSamples > 100 {
		log.Printf("Render warning: Large image with high samples may render slowly")
	}
	return req, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// createScene loads the requested scene at the requested width and applies any sampling overrides.
// The scene is preprocessed and ready to render.
func (s *Server) createScene(req *RenderRequest, logger core.Logger) (*scene.Scene, error) {
	sceneObj, err := scene.LoadScene(req.Scene, geometry.CameraConfig{Width: req.Width})
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Printf("Loaded scene %s (%dx%d, %d shapes, %d lights)\n", req.Scene,
			sceneObj.SamplingConfig.Width, sceneObj.SamplingConfig.Height, len(sceneObj.Shapes), len(sceneObj.Lights))
	}

	if req.MaxDepth > 0 {
		sceneObj.SamplingConfig.MaxDepth = req.MaxDepth
	}
	if req.RRMinBounces > 0 {
		sceneObj.SamplingConfig.RussianRouletteMinBounces = req.RRMinBounces
	}
	if req.AdaptiveMinSamples > 0 {
		sceneObj.SamplingConfig.AdaptiveMinSamples = req.AdaptiveMinSamples
	}
	if req.AdaptiveThreshold > 0 {
		sceneObj.SamplingConfig.AdaptiveThreshold = req.AdaptiveThreshold
	}
	if req.MaxSamples > 0 {
		sceneObj.SamplingConfig.SamplesPerPixel = req.MaxSamples
	}

	if err := sceneObj.Preprocess(); err != nil {
		return nil, err
	}
	return sceneObj, nil
}

// imageToBase64PNG converts an image to base64-encoded PNG
func (s *Server) imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = defaultScene
	}

	sceneObj, err := scene.LoadScene(sceneName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown scene: " + sceneName})
		return
	}

	config := sceneObj.SamplingConfig
	response := map[string]interface{}{
		"scene": sceneName,
		"defaults": map[string]interface{}{
			"width":                     config.Width,
			"height":                    config.Height,
			"samplesPerPixel":           config.SamplesPerPixel,
			"maxDepth":                  config.MaxDepth,
			"russianRouletteMinBounces": config.RussianRouletteMinBounces,
			"adaptiveMinSamples":        config.AdaptiveMinSamples,
			"adaptiveThreshold":         config.AdaptiveThreshold,
		},
		"limits": map[string]interface{}{
			"width":                     map[string]int{"min": 16, "max": 2000},
			"maxSamples":                map[string]int{"min": 1, "max": 10000},
			"maxPasses":                 map[string]int{"min": 1, "max": 10000},
			"maxDepth":                  map[string]int{"min": 1, "max": 100},
			"russianRouletteMinBounces": map[string]int{"min": 1, "max": 100},
			"adaptiveMinSamples":        map[string]float64{"min": 0.01, "max": 1.0},
			"adaptiveThreshold":         map[string]float64{"min": 0.001, "max": 0.5},
		},
	}
	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
