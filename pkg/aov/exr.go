package aov

import (
	"fmt"
	"math"
	"os"

	"github.com/mrjoshuak/go-openexr/exr"

	"github.com/df07/go-raymarcher/pkg/core"
)

// Channel names of the EXR layout
var channelNames = []string{"A", "N.X", "N.Y", "N.Z", "Z", "steps", "trap.B", "trap.G", "trap.R"}

// channelValue extracts one channel of a sample
func channelValue(s Sample, name string) float32 {
	switch name {
	case "A":
		if s.Hit {
			return 1
		}
		return 0
	case "N.X":
		return float32(s.Normal.X)
	case "N.Y":
		return float32(s.Normal.Y)
	case "N.Z":
		return float32(s.Normal.Z)
	case "Z":
		return float32(s.Depth)
	case "steps":
		return float32(s.Steps)
	case "trap.R":
		return float32(s.Trap.X)
	case "trap.G":
		return float32(s.Trap.Y)
	case "trap.B":
		return float32(s.Trap.Z)
	}
	return 0
}

// WriteEXR writes the buffer as a ZIP-compressed scanline EXR with one float channel per value
func (b *Buffer) WriteEXR(path string) error {
	h := exr.NewScanlineHeader(b.Width, b.Height)
	h.SetCompression(exr.CompressionZIP)

	channels := exr.NewChannelList()
	for _, name := range channelNames {
		channels.Add(exr.Channel{Name: name, Type: exr.PixelTypeFloat, XSampling: 1, YSampling: 1})
	}
	h.SetChannels(channels)

	fb, _ := exr.AllocateChannels(channels, h.DataWindow())
	for _, name := range channelNames {
		slice := fb.Get(name)
		for y := 0; y < b.Height; y++ {
			for x := 0; x < b.Width; x++ {
				slice.SetFloat32(x, y, channelValue(b.At(x, y), name))
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sw, err := exr.NewScanlineWriter(f, h)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	sw.SetFrameBuffer(fb)
	if err := sw.WritePixels(0, b.Height-1); err != nil {
		return fmt.Errorf("write pixels: %w", err)
	}
	if err := sw.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ReadEXR loads a buffer written by WriteEXR
func ReadEXR(path string) (*Buffer, error) {
	f, err := exr.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sr, err := exr.NewScanlineReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	window := sr.DataWindow()
	width := int(window.Max.X-window.Min.X) + 1
	height := int(window.Max.Y-window.Min.Y) + 1

	fb, _ := exr.AllocateChannels(sr.Header().Channels(), window)
	sr.SetFrameBuffer(fb)
	if err := sr.ReadPixels(int(window.Min.Y), int(window.Max.Y)); err != nil {
		return nil, fmt.Errorf("%s: read pixels: %w", path, err)
	}

	slices := make(map[string]*exr.Slice, len(channelNames))
	for _, name := range channelNames {
		slice := fb.Get(name)
		if slice == nil {
			return nil, fmt.Errorf("%s: missing channel %q", path, name)
		}
		slices[name] = slice
	}

	buffer := NewBuffer(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			get := func(name string) float64 { return float64(slices[name].GetFloat32(x, y)) }
			s := Sample{
				Hit:    get("A") > 0.5,
				Depth:  get("Z"),
				Normal: core.NewVec3(get("N.X"), get("N.Y"), get("N.Z")),
				Trap:   core.NewVec3(get("trap.R"), get("trap.G"), get("trap.B")),
				Steps:  int(math.Round(get("steps"))),
			}
			buffer.Samples[y*width+x] = s
		}
	}
	return buffer, nil
}
