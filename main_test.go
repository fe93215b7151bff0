package main

import (
	"strings"
	"testing"

	"github.com/df07/go-raymarcher/pkg/geometry"
)

func TestCreateScene(t *testing.T) {
	tests := []struct {
		name        string
		sceneType   string
		expectError bool
	}{
		// Built-in scenes
		{"mandelbulb scene", "mandelbulb", false},
		{"julia scene", "julia", false},
		{"sierpinski scene", "sierpinski", false},
		{"repeated scene", "repeated", false},
		{"waterpool scene", "waterpool", false},
		{"sphere scene", "sphere", false},

		// PBRT scenes (by name)
		{"julia-quaternion PBRT", "julia-quaternion", false},
		{"mandelbulb-trajectory PBRT", "mandelbulb-trajectory", false},
		{"torus-lattice by ID", "pbrt:torus-lattice", false},

		// PBRT scenes (by path)
		{"direct PBRT path", "scenes/sierpinski-gold.pbrt", false},
		{"direct PBRT path 2", "scenes/waterpool-calm.pbrt", false},

		// Invalid scenes
		{"unknown scene", "nonexistent", true},
		{"unknown PBRT ID", "pbrt:nonexistent", true},
		{"invalid PBRT path", "scenes/nonexistent.pbrt", true},
		{"empty scene name", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := createScene(tt.sceneType, geometry.CameraConfig{Width: 32})

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error for scene type '%s', but got none", tt.sceneType)
				}
				if scene != nil {
					t.Errorf("Expected nil scene for invalid scene type '%s', got %T", tt.sceneType, scene)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error for scene type '%s': %v", tt.sceneType, err)
			}
			if scene == nil {
				t.Fatalf("Expected scene for valid scene type '%s', got nil", tt.sceneType)
			}
			if scene.CameraConfig.Width != 32 {
				t.Errorf("Scene camera width = %d, want the override 32", scene.CameraConfig.Width)
			}
			if scene.SamplingConfig.Width <= 0 || scene.SamplingConfig.Height <= 0 {
				t.Errorf("Scene sampling size should be positive, got %dx%d", scene.SamplingConfig.Width, scene.SamplingConfig.Height)
			}
			if err := scene.Preprocess(); err != nil {
				t.Errorf("Preprocess() error = %v", err)
			}
		})
	}
}

func TestTryLoadPBRTScene(t *testing.T) {
	tests := []struct {
		name       string
		sceneType  string
		expectLoad bool
	}{
		// Existing PBRT files (should load)
		{"julia-quaternion by name", "julia-quaternion", true},
		{"torus-lattice by name", "torus-lattice", true},
		{"sierpinski-gold by path", "scenes/sierpinski-gold.pbrt", true},

		// Non-existent files (should not load)
		{"nonexistent PBRT", "nonexistent", false},
		{"invalid path", "scenes/nonexistent.pbrt", false},
		{"built-in scene name", "julia", false}, // Built-in scenes shouldn't load as PBRT
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := tryLoadPBRTScene(tt.sceneType)

			if tt.expectLoad && scene == nil {
				t.Errorf("Expected PBRT scene to load for '%s', got nil", tt.sceneType)
			}
			if !tt.expectLoad && scene != nil {
				t.Errorf("Expected PBRT scene not to load for '%s', got %T", tt.sceneType, scene)
			}
		})
	}
}

func TestCreateOutputDir(t *testing.T) {
	tests := []struct {
		name         string
		sceneType    string
		expectedBase string
	}{
		// Built-in scenes
		{"mandelbulb scene", "mandelbulb", "mandelbulb"},
		{"sphere scene", "sphere", "sphere"},

		// PBRT scenes by name
		{"julia-quaternion PBRT", "julia-quaternion", "julia-quaternion"},
		{"torus-lattice ID", "pbrt:torus-lattice", "torus-lattice"},

		// PBRT scenes by path
		{"PBRT file path", "scenes/sierpinski-gold.pbrt", "sierpinski-gold"},
		{"nested PBRT path", "scenes/subdir/my-scene.pbrt", "my-scene"},

		// Unknown scenes
		{"unknown scene", "unknown", "pbrt-scene"},
		{"custom PBRT", "my-custom-scene", "pbrt-scene"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputDir := createOutputDir(tt.sceneType)

			if !strings.HasSuffix(outputDir, tt.expectedBase) {
				t.Errorf("Expected output directory to end with '%s', got '%s'", tt.expectedBase, outputDir)
			}
			if !strings.HasPrefix(outputDir, "output") {
				t.Errorf("Expected output directory to start with 'output', got '%s'", outputDir)
			}
		})
	}
}
