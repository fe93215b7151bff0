package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-raymarcher/pkg/aov"
	"github.com/df07/go-raymarcher/pkg/geometry"
	"github.com/df07/go-raymarcher/pkg/integrator"
	"github.com/df07/go-raymarcher/pkg/renderer"
	"github.com/df07/go-raymarcher/pkg/scene"
)

func main() {
	// Parse command line flags
	sceneType := flag.String("scene", "mandelbulb", "Scene: built-in ID, pbrt:<name>, or path to a .pbrt file")
	width := flag.Int("width", 0, "Image width override (0 = scene default)")
	maxSamples := flag.Int("max-samples", 50, "Maximum samples per pixel")
	maxPasses := flag.Int("max-passes", 7, "Maximum progressive passes")
	workers := flag.Int("workers", 0, "Number of parallel workers (0 = CPU count)")
	exrPath := flag.String("exr", "", "Also write the depth, normal, trap and step AOVs to this OpenEXR file")
	recordDir := flag.String("record", "", "Record every pass under this directory")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if err := run(*sceneType, *width, *maxSamples, *maxPasses, *workers, *exrPath, *recordDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Progressive Raymarcher")
	fmt.Println("Usage: raymarcher [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Available scenes:")
	scenes, err := scene.ListAllScenes()
	if err != nil {
		fmt.Printf("  (failed to list scenes: %v)\n", err)
		return
	}
	for _, group := range scenes.Groups {
		fmt.Printf("  %s:\n", group.Name)
		for _, info := range group.Scenes {
			fmt.Printf("    %-28s %s\n", info.ID, info.Description)
		}
	}
	fmt.Println()
	fmt.Println("Output will be saved to output/<scene>/render_<timestamp>.png")
}

func run(sceneType string, width, maxSamples, maxPasses, workers int, exrPath, recordDir string) error {
	fmt.Println("Starting Progressive Raymarcher...")

	selectedScene, err := createScene(sceneType, geometry.CameraConfig{Width: width})
	if err != nil {
		return err
	}
	if err := selectedScene.Preprocess(); err != nil {
		return fmt.Errorf("failed to preprocess scene: %w", err)
	}

	outputDir := createOutputDir(sceneType)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	config := renderer.DefaultProgressiveConfig()
	config.MaxSamplesPerPixel = maxSamples
	config.MaxPasses = maxPasses
	config.NumWorkers = workers

	pathTracer := integrator.NewPathTracingIntegrator(selectedScene.SamplingConfig)
	raytracer, err := renderer.NewProgressiveRaytracer(selectedScene, config, pathTracer, renderer.NewDefaultLogger())
	if err != nil {
		return err
	}
	imgWidth, imgHeight := raytracer.Size()
	fmt.Printf("Rendering %s at %dx%d...\n", sceneType, imgWidth, imgHeight)

	var recorder *aov.Recorder
	if recordDir != "" {
		recorder, _, err = aov.NewRecorder(recordDir, sceneType, imgWidth, imgHeight, nil)
		if err != nil {
			return err
		}
		defer recorder.Close()
		fmt.Printf("Recording passes to %s\n", recorder.Directory())
	}

	startTime := time.Now()
	passChan, _, errChan := raytracer.RenderProgressive(ctx, renderer.RenderOptions{})

	var final renderer.PassResult
	for result := range passChan {
		final = result
		if recorder != nil {
			if err := recorder.RecordPass(result); err != nil {
				return err
			}
		}
	}
	if err := <-errChan; err != nil && final.Image == nil {
		return err
	} else if err != nil {
		fmt.Printf("Rendering stopped early: %v\n", err)
	}

	fmt.Printf("Render completed in %v\n", time.Since(startTime))
	fmt.Printf("Samples per pixel: %.1f (range %d - %d, std dev %.1f)\n",
		final.Stats.AverageSamples, final.Stats.MinSamples, final.Stats.MaxSamplesUsed, final.Stats.SampleStdDev)

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("render_%s.png", timestamp))
	if err := savePNG(filename, final.Image); err != nil {
		return err
	}
	fmt.Printf("Render saved as %s\n", filename)

	if exrPath != "" {
		buffer, err := aov.Capture(ctx, selectedScene, workers)
		if err != nil {
			return fmt.Errorf("failed to capture AOVs: %w", err)
		}
		if err := buffer.WriteEXR(exrPath); err != nil {
			return err
		}
		fmt.Printf("AOVs saved as %s (coverage %.1f%%)\n", exrPath, buffer.Coverage()*100)
	}

	if recorder != nil {
		return recorder.Close()
	}
	return nil
}

func savePNG(filename string, img image.Image) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("error saving PNG: %w", err)
	}
	return file.Close()
}

// createScene resolves a built-in scene ID, a "pbrt:<name>" ID, a .pbrt path or a bare PBRT name
func createScene(sceneType string, cameraOverrides ...geometry.CameraConfig) (*scene.Scene, error) {
	if sceneType == "" {
		return nil, fmt.Errorf("scene name is empty")
	}
	if strings.HasPrefix(sceneType, "pbrt:") {
		return scene.LoadScene(sceneType, cameraOverrides...)
	}
	if isBuiltinScene(sceneType) {
		return scene.NewBuiltinScene(sceneType, cameraOverrides...)
	}
	if s := tryLoadPBRTScene(sceneType, cameraOverrides...); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("unknown scene %q", sceneType)
}

// tryLoadPBRTScene loads a .pbrt path, or scenes/<name>.pbrt for a bare name. It returns nil when neither exists.
func tryLoadPBRTScene(sceneType string, cameraOverrides ...geometry.CameraConfig) *scene.Scene {
	path := pbrtPath(sceneType)
	if path == "" {
		return nil
	}
	s, err := scene.NewPBRTScene(path, cameraOverrides...)
	if err != nil {
		fmt.Printf("Failed to load PBRT scene %s: %v\n", path, err)
		return nil
	}
	return s
}

// pbrtPath returns the file a scene name refers to, or "" if there is none
func pbrtPath(sceneType string) string {
	path := sceneType
	if filepath.Ext(path) != ".pbrt" {
		path = filepath.Join("scenes", sceneType+".pbrt")
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func isBuiltinScene(id string) bool {
	for _, info := range scene.BuiltinSceneInfos() {
		if info.ID == id {
			return true
		}
	}
	return false
}

// createOutputDir names the output directory for a scene
func createOutputDir(sceneType string) string {
	base := "pbrt-scene"
	switch {
	case isBuiltinScene(sceneType):
		base = sceneType
	case strings.HasPrefix(sceneType, "pbrt:"):
		base = strings.TrimPrefix(sceneType, "pbrt:")
	case filepath.Ext(sceneType) == ".pbrt":
		base = strings.TrimSuffix(filepath.Base(sceneType), ".pbrt")
	case pbrtPath(sceneType) != "":
		base = sceneType
	}
	return filepath.Join("output", base)
}
