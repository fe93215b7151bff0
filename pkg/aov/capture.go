// Package aov captures first-hit surface data of a scene and records progressive render sessions.
package aov

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/scene"
)

// Sample holds the first-hit data seen through the centre of one pixel
type Sample struct {
	Hit    bool
	Depth  float64   // Distance along the camera ray, +Inf on a miss
	Normal core.Vec3 // Shading normal facing the camera
	Trap   core.Vec3 // Orbit trap of raymarched shapes
	Steps  int       // March steps, 0 for analytic shapes
}

// Buffer is a width x height grid of samples stored row by row from the top
type Buffer struct {
	Width, Height int
	Samples       []Sample
}

// NewBuffer allocates an empty buffer in which every pixel is a miss
func NewBuffer(width, height int) *Buffer {
	samples := make([]Sample, width*height)
	for i := range samples {
		samples[i].Depth = math.Inf(1)
	}
	return &Buffer{Width: width, Height: height, Samples: samples}
}

// At returns the sample at pixel (x, y)
func (b *Buffer) At(x, y int) Sample {
	return b.Samples[y*b.Width+x]
}

// Coverage returns the fraction of pixels whose centre ray hit a surface
func (b *Buffer) Coverage() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	hits := 0
	for _, s := range b.Samples {
		if s.Hit {
			hits++
		}
	}
	return float64(hits) / float64(len(b.Samples))
}

// Capture traces one ray through the centre of every pixel of a preprocessed scene.
// Rows are spread over workers goroutines; workers <= 0 uses the CPU count.
func Capture(ctx context.Context, s *scene.Scene, workers int) (*Buffer, error) {
	if s.BVH == nil {
		return nil, fmt.Errorf("scene must be preprocessed before capture")
	}
	width, height := s.SamplingConfig.Width, s.SamplingConfig.Height
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %dx%d", width, height)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	buffer := NewBuffer(width, height)
	rows := make(chan int, height)
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)

	centre := core.NewVec2(0.5, 0.5)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				if ctx.Err() != nil {
					return
				}
				for x := 0; x < width; x++ {
					ray := s.Camera.GetRay(x, y, centre, centre)
					hit, ok := s.Hit(ray, 0.001, math.Inf(1))
					if !ok {
						continue
					}
					buffer.Samples[y*width+x] = Sample{
						Hit:    true,
						Depth:  hit.T * ray.Direction.Length(),
						Normal: hit.Normal,
						Trap:   hit.OrbitTrap,
						Steps:  hit.MarchSteps,
					}
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buffer, nil
}
