package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/df07/go-raymarcher/pkg/scene"
	"github.com/gorilla/websocket"
)

func newTestServer() *Server {
	return NewServer(0, "static")
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleHealth(t *testing.T) {
	rec := get(t, newTestServer(), "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestHandleScenes(t *testing.T) {
	rec := get(t, newTestServer(), "/api/scenes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var scenes scene.ScenesResponse
	if err := json.NewDecoder(rec.Body).Decode(&scenes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(scenes.Groups) == 0 || scenes.Groups[0].Name != "Built-in Scenes" {
		t.Fatalf("first group should hold the built-in scenes, got %+v", scenes.Groups)
	}
	found := false
	for _, info := range scenes.Groups[0].Scenes {
		if info.ID == "mandelbulb" {
			found = true
		}
	}
	if !found {
		t.Error("built-in scenes should include mandelbulb")
	}
}

func TestHandleSceneConfig(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"default scene", "/api/scene-config", http.StatusOK},
		{"sphere", "/api/scene-config?scene=sphere", http.StatusOK},
		{"unknown", "/api/scene-config?scene=cornell-box", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestServer(), tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Defaults map[string]float64 `json:"defaults"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Defaults["width"] != 400 {
				t.Errorf("default width = %v, want 400", body.Defaults["width"])
			}
			if body.Defaults["maxDepth"] < 1 {
				t.Errorf("default max depth = %v, want at least 1", body.Defaults["maxDepth"])
			}
		})
	}
}

func TestParseRenderRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
		check   func(*testing.T, *RenderRequest)
	}{
		{"defaults", "", false, func(t *testing.T, req *RenderRequest) {
			if req.Scene != "mandelbulb" || req.Width != 400 || req.MaxSamples != 50 || req.MaxPasses != 7 {
				t.Errorf("unexpected defaults %+v", req)
			}
		}},
		{"overrides", "scene=julia&width=200&maxSamples=8&maxDepth=3&adaptiveThreshold=0.05", false, func(t *testing.T, req *RenderRequest) {
			if req.Scene != "julia" || req.Width != 200 || req.MaxSamples != 8 || req.MaxDepth != 3 || req.AdaptiveThreshold != 0.05 {
				t.Errorf("overrides not applied: %+v", req)
			}
		}},
		{"width too small", "width=4", true, nil},
		{"samples not a number", "maxSamples=many", true, nil},
		{"threshold out of range", "adaptiveThreshold=0.9", true, nil},
		{"adaptive fraction above one", "adaptiveMinSamples=2", true, nil},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := s.parseRenderRequest(httptest.NewRequest(http.MethodGet, "/api/render?"+tt.query, nil))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRenderRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, req)
			}
		})
	}
}

func TestHandleInspect(t *testing.T) {
	s := newTestServer()

	rec := get(t, s, "/api/inspect?scene=sphere&width=32&x=16&y=9")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp InspectResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Hit {
		t.Fatal("centre pixel should hit the raymarched sphere")
	}
	if resp.GeometryType != "raymarched" || resp.MaterialType != "lambertian" {
		t.Errorf("hit %s/%s, want raymarched/lambertian", resp.GeometryType, resp.MaterialType)
	}
	if resp.MarchSteps == 0 {
		t.Error("raymarched hits should report their march steps")
	}

	for _, target := range []string{
		"/api/inspect?scene=sphere&width=32&x=32&y=0",
		"/api/inspect?scene=sphere&width=32&x=left&y=0",
		"/api/inspect?scene=nowhere&x=0&y=0",
	} {
		if rec := get(t, s, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHandleRenderSSE(t *testing.T) {
	rec := get(t, newTestServer(), "/api/render?scene=sphere&width=16&maxSamples=2&maxPasses=2")

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body := rec.Body.String()
	for _, event := range []string{"event: console", "event: passComplete", "event: complete"} {
		if !strings.Contains(body, event) {
			t.Errorf("stream is missing %q", event)
		}
	}
	if strings.Contains(body, "event: error") {
		t.Errorf("stream reported an error:\n%s", body)
	}
}

func TestHandleRenderSSEInvalid(t *testing.T) {
	body := get(t, newTestServer(), "/api/render?width=4").Body.String()
	if !strings.Contains(body, "event: error") || !strings.Contains(body, "Invalid request") {
		t.Errorf("expected an error event, got:\n%s", body)
	}
	if strings.Contains(body, "event: complete") {
		t.Error("invalid requests should not complete")
	}
}

func TestHandleStreamWebSocket(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?scene=sphere&width=16&maxSamples=2&maxPasses=2"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var passes []PassUpdate
	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		var event StreamEvent
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("read: %v", err)
		}
		if event.Type == "error" {
			t.Fatalf("render failed: %s", event.Data)
		}
		if event.Type == "passComplete" {
			var update PassUpdate
			if err := json.Unmarshal([]byte(event.Data), &update); err != nil {
				t.Fatalf("decode pass: %v", err)
			}
			passes = append(passes, update)
		}
		if event.Type == "complete" {
			break
		}
	}

	if len(passes) == 0 {
		t.Fatal("no passes were streamed")
	}
	last := passes[len(passes)-1]
	if last.Width != 16 || last.Height != 9 {
		t.Errorf("pass size = %dx%d, want 16x9", last.Width, last.Height)
	}
	if last.ImageData == "" {
		t.Error("pass should carry the image")
	}
	if !last.IsComplete {
		t.Error("final pass should be marked complete")
	}
}
