package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/integrator"
	"github.com/df07/go-raymarcher/pkg/renderer"
	"github.com/df07/go-raymarcher/pkg/scene"
)

// TileUpdate represents a single tile update
type TileUpdate struct {
	TileX       int    `json:"tileX"`
	TileY       int    `json:"tileY"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG of just this tile
	PassNumber  int    `json:"passNumber"`
	TileNumber  int    `json:"tileNumber"`  // Current tile number in this pass (1-based)
	TotalTiles  int    `json:"totalTiles"`  // Total number of tiles in the image
	TotalPasses int    `json:"totalPasses"` // Total number of passes planned
}

// PassUpdate represents a completed pass
type PassUpdate struct {
	PassNumber  int    `json:"passNumber"`
	TotalPasses int    `json:"totalPasses"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageData   string `json:"imageData"` // Base64 encoded PNG of the whole image
	Stats       Stats  `json:"stats"`
	IsComplete  bool   `json:"isComplete"`
	ElapsedMs   int64  `json:"elapsedMs"`
}

// StreamEvent is one event of a render stream. SSE and websocket clients receive the same events.
type StreamEvent struct {
	Type string `json:"type"` // "console", "tile", "passComplete", "error", "complete"
	Data string `json:"data"` // JSON-encoded data, or a plain message for "error" and "complete"
}

// RenderingPipeline contains the configured scene and raytracer
type RenderingPipeline struct {
	Scene     *scene.Scene
	Raytracer *renderer.ProgressiveRaytracer
	Request   *RenderRequest
}

// handleRender handles progressive rendering with real-time tile streaming via SSE
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	s.setSSEHeaders(w)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// All writes to w happen on the writer goroutine
	events := make(chan StreamEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		s.writeSSEEvents(ctx, w, events)
	}()

	s.streamRender(ctx, r, events)
	close(events)
	<-writerDone
}

// setSSEHeaders sets the required headers for Server-Sent Events
func (s *Server) setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// writeSSEEvents writes events until the channel closes or the client goes away
func (s *Server) writeSSEEvents(ctx context.Context, w http.ResponseWriter, events <-chan StreamEvent) {
	flusher, canFlush := w.(http.Flusher)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				// Client disconnected during write
				return
			}
			if canFlush {
				flusher.Flush()
			}
		case <-ctx.Done():
			return
		}
	}
}

// streamRender parses the request, renders the scene and sends every event to the events channel.
// It returns once rendering finished or ctx was cancelled.
func (s *Server) streamRender(ctx context.Context, r *http.Request, events chan<- StreamEvent) {
	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.sendEvent(ctx, events, "error", fmt.Sprintf("Invalid request: %v", err))
		return
	}

	consoleChan, webLogger := s.setupConsoleLogging()
	stopConsole := make(chan struct{})
	var consoleWG sync.WaitGroup
	consoleWG.Add(1)
	go func() {
		defer consoleWG.Done()
		s.streamConsoleMessages(ctx, stopConsole, consoleChan, events)
	}()
	defer func() {
		close(stopConsole)
		consoleWG.Wait()
	}()

	pipeline, err := s.setupRenderingPipeline(req, webLogger)
	if err != nil {
		s.sendEvent(ctx, events, "error", err.Error())
		return
	}

	startTime := time.Now()
	passChan, tileChan, errChan := pipeline.Raytracer.RenderProgressive(ctx, renderer.RenderOptions{TileUpdates: true})
	s.handleRenderingEvents(ctx, events, pipeline, passChan, tileChan, errChan, startTime)
}

// setupConsoleLogging creates console channel and web logger for a render
func (s *Server) setupConsoleLogging() (chan ConsoleMessage, core.Logger) {
	consoleChan := make(chan ConsoleMessage, 50)
	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	return consoleChan, NewWebLogger(renderID, consoleChan)
}

// streamConsoleMessages forwards console messages as events until stop closes
func (s *Server) streamConsoleMessages(ctx context.Context, stop <-chan struct{}, consoleChan <-chan ConsoleMessage, events chan<- StreamEvent) {
	for {
		select {
		case consoleMsg := <-consoleChan:
			data, err := json.Marshal(consoleMsg)
			if err != nil {
				log.Printf("Error marshaling console message: %v", err)
				continue
			}
			select {
			case events <- StreamEvent{Type: "console", Data: string(data)}:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip message to avoid blocking
			}
		case <-stop:
			// Forward what the render logged before it finished
			for {
				select {
				case consoleMsg := <-consoleChan:
					if data, err := json.Marshal(consoleMsg); err == nil {
						select {
						case events <- StreamEvent{Type: "console", Data: string(data)}:
						default:
						}
					}
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// setupRenderingPipeline creates and configures the scene and raytracer
func (s *Server) setupRenderingPipeline(req *RenderRequest, logger core.Logger) (*RenderingPipeline, error) {
	sceneObj, err := s.createScene(req, logger)
	if err != nil {
		return nil, fmt.Errorf("Unknown scene: %s: %v", req.Scene, err)
	}

	config := renderer.ProgressiveConfig{
		TileSize:           DefaultTileSize,
		InitialSamples:     1,
		MaxSamplesPerPixel: req.MaxSamples,
		MaxPasses:          req.MaxPasses,
		NumWorkers:         0, // Auto-detect
	}

	pathTracer := integrator.NewPathTracingIntegrator(sceneObj.SamplingConfig)
	raytracer, err := renderer.NewProgressiveRaytracer(sceneObj, config, pathTracer, logger)
	if err != nil {
		return nil, err
	}
	return &RenderingPipeline{Scene: sceneObj, Raytracer: raytracer, Request: req}, nil
}

// handleRenderingEvents forwards pass and tile results until every render channel has closed
func (s *Server) handleRenderingEvents(ctx context.Context, events chan<- StreamEvent, pipeline *RenderingPipeline,
	passChan <-chan renderer.PassResult, tileChan <-chan renderer.TileCompletionResult, errChan <-chan error,
	startTime time.Time) {

	for passChan != nil || tileChan != nil || errChan != nil {
		select {
		case passResult, ok := <-passChan:
			if !ok {
				passChan = nil
				continue
			}
			s.handlePassComplete(ctx, events, pipeline, passResult, startTime)

		case tileResult, ok := <-tileChan:
			if !ok {
				tileChan = nil
				continue
			}
			s.handleTileUpdate(ctx, events, tileResult)

		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			s.sendEvent(ctx, events, "error", fmt.Sprintf("Rendering failed: %v", err))
			return

		case <-ctx.Done():
			return
		}
	}

	s.sendEvent(ctx, events, "complete", "Rendering completed")
}

// handlePassComplete sends the pass statistics along with the whole image
func (s *Server) handlePassComplete(ctx context.Context, events chan<- StreamEvent, pipeline *RenderingPipeline, passResult renderer.PassResult, startTime time.Time) {
	imageData, err := s.imageToBase64PNG(passResult.Image)
	if err != nil {
		log.Printf("Error encoding pass %d image: %v", passResult.PassNumber, err)
		return
	}

	width, height := pipeline.Raytracer.Size()
	stats := passResult.Stats
	s.sendEvent(ctx, events, "passComplete", PassUpdate{
		PassNumber:  passResult.PassNumber,
		TotalPasses: pipeline.Request.MaxPasses,
		Width:       width,
		Height:      height,
		ImageData:   imageData,
		Stats: Stats{
			TotalPixels:    stats.TotalPixels,
			TotalSamples:   stats.TotalSamples,
			AverageSamples: stats.AverageSamples,
			SampleStdDev:   stats.SampleStdDev,
			MaxSamples:     stats.MaxSamples,
			MinSamples:     stats.MinSamples,
			MaxSamplesUsed: stats.MaxSamplesUsed,
		},
		IsComplete: passResult.IsLast,
		ElapsedMs:  time.Since(startTime).Milliseconds(),
	})
}

// handleTileUpdate processes and sends tile update events
func (s *Server) handleTileUpdate(ctx context.Context, events chan<- StreamEvent, tileResult renderer.TileCompletionResult) {
	tileData, err := s.imageToBase64PNG(tileResult.TileImage)
	if err != nil {
		log.Printf("Error encoding tile image (%d, %d): %v", tileResult.TileX, tileResult.TileY, err)
		return
	}

	s.sendEvent(ctx, events, "tile", TileUpdate{
		TileX:       tileResult.TileX,
		TileY:       tileResult.TileY,
		ImageData:   tileData,
		PassNumber:  tileResult.PassNumber,
		TileNumber:  tileResult.TileNumber,
		TotalTiles:  tileResult.TotalTiles,
		TotalPasses: tileResult.TotalPasses,
	})
}

// sendEvent queues an event, JSON-encoding any payload that is not already a string
func (s *Server) sendEvent(ctx context.Context, events chan<- StreamEvent, eventType string, payload interface{}) {
	data, ok := payload.(string)
	if !ok {
		encoded, err := json.Marshal(payload)
		if err != nil {
			log.Printf("Error marshaling %s event: %v", eventType, err)
			return
		}
		data = string(encoded)
	}

	select {
	case events <- StreamEvent{Type: eventType, Data: data}:
	case <-ctx.Done():
		// Client disconnected, don't block
	}
}
