package aov

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/df07/go-raymarcher/pkg/renderer"
)

var sessionNameCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

const (
	passesFile   = "passes.jsonl.sz"
	framesFile   = "frames.bin.zst"
	manifestFile = "manifest.json"

	frameHeaderSize = 4 + 4 + 4 + 4
)

// Manifest describes a recorded session so tooling can locate its streams
type Manifest struct {
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at"`
	Scene      string `json:"scene"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	PassesPath string `json:"passes_path"`
	FramesPath string `json:"frames_path"`
}

// PassRecord is one line of the pass log
type PassRecord struct {
	Pass           int     `json:"pass"`
	CapturedAt     string  `json:"captured_at"`
	DurationMs     int64   `json:"duration_ms"`
	TotalSamples   int     `json:"total_samples"`
	AverageSamples float64 `json:"average_samples"`
	SampleStdDev   float64 `json:"sample_std_dev"`
	MinSamples     int     `json:"min_samples"`
	MaxSamplesUsed int     `json:"max_samples_used"`
	IsLast         bool    `json:"is_last"`
}

// Frame is a recorded pass image
type Frame struct {
	Pass  int
	Image *image.RGBA
}

// Recorder streams the passes of a progressive render to disk:
// statistics as snappy-compressed JSON lines and images as a zstd stream of length-prefixed RGBA frames.
type Recorder struct {
	mu          sync.Mutex
	dir         string
	now         func() time.Time
	width       int
	height      int
	passFile    *os.File
	passStream  *snappy.Writer
	frameFile   *os.File
	frameStream *zstd.Encoder
	closed      bool
}

// NewRecorder creates a session directory below root and opens its compressed streams
func NewRecorder(root, sceneID string, width, height int, clock func() time.Time) (*Recorder, Manifest, error) {
	if root == "" {
		return nil, Manifest{}, fmt.Errorf("recording root must be provided")
	}
	if width <= 0 || height <= 0 {
		return nil, Manifest{}, fmt.Errorf("image size must be positive, got %dx%d", width, height)
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := sessionNameCleaner.ReplaceAllString(sceneID, "")
	if cleaned == "" {
		cleaned = "render"
	}
	created := clock().UTC()
	dir := filepath.Join(root, fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, Manifest{}, err
	}

	manifest := Manifest{
		Version:    1,
		CreatedAt:  created.Format(time.RFC3339Nano),
		Scene:      sceneID,
		Width:      width,
		Height:     height,
		PassesPath: passesFile,
		FramesPath: framesFile,
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, Manifest{}, err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644); err != nil {
		return nil, Manifest{}, err
	}

	passFile, err := os.Create(filepath.Join(dir, passesFile))
	if err != nil {
		return nil, Manifest{}, err
	}
	frameFile, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		passFile.Close()
		return nil, Manifest{}, err
	}
	frameStream, err := zstd.NewWriter(frameFile)
	if err != nil {
		passFile.Close()
		frameFile.Close()
		return nil, Manifest{}, err
	}

	return &Recorder{
		dir:         dir,
		now:         clock,
		width:       width,
		height:      height,
		passFile:    passFile,
		passStream:  snappy.NewBufferedWriter(passFile),
		frameFile:   frameFile,
		frameStream: frameStream,
	}, manifest, nil
}

// Directory returns the session directory
func (r *Recorder) Directory() string {
	return r.dir
}

// RecordPass appends the statistics and image of a completed pass
func (r *Recorder) RecordPass(result renderer.PassResult) error {
	if result.Image == nil {
		return fmt.Errorf("pass %d has no image", result.PassNumber)
	}
	bounds := result.Image.Bounds()
	if bounds.Dx() != r.width || bounds.Dy() != r.height {
		return fmt.Errorf("pass %d image is %dx%d, session is %dx%d", result.PassNumber, bounds.Dx(), bounds.Dy(), r.width, r.height)
	}

	record := PassRecord{
		Pass:           result.PassNumber,
		CapturedAt:     r.now().UTC().Format(time.RFC3339Nano),
		DurationMs:     result.Duration.Milliseconds(),
		TotalSamples:   result.Stats.TotalSamples,
		AverageSamples: result.Stats.AverageSamples,
		SampleStdDev:   result.Stats.SampleStdDev,
		MinSamples:     result.Stats.MinSamples,
		MaxSamplesUsed: result.Stats.MaxSamplesUsed,
		IsLast:         result.IsLast,
	}
	line, err := json.Marshal(record)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("recorder is closed")
	}

	if _, err := r.passStream.Write(append(line, '\n')); err != nil {
		return err
	}
	if err := r.passStream.Flush(); err != nil {
		return err
	}

	header := make([]byte, frameHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(result.PassNumber))
	binary.LittleEndian.PutUint32(header[4:8], uint32(r.width))
	binary.LittleEndian.PutUint32(header[8:12], uint32(r.height))
	binary.LittleEndian.PutUint32(header[12:16], uint32(r.width*r.height*4))
	if _, err := r.frameStream.Write(header); err != nil {
		return err
	}
	return writeRows(r.frameStream, result.Image)
}

// writeRows writes the image pixels tightly packed, whatever its stride
func writeRows(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		start := img.PixOffset(bounds.Min.X, y)
		if _, err := w.Write(img.Pix[start : start+bounds.Dx()*4]); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes both streams and releases the files
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if err := r.passStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.passFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.frameStream.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := r.frameFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ReadManifest loads the manifest of a session directory
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", manifestFile, err)
	}
	return manifest, nil
}

// ReadPasses decodes the pass log of a session directory
func ReadPasses(dir string) ([]PassRecord, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, manifest.PassesPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []PassRecord
	scanner := bufio.NewScanner(snappy.NewReader(f))
	for scanner.Scan() {
		var record PassRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("pass %d: %w", len(records)+1, err)
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

// ReadFrames decodes every frame of a session directory
func ReadFrames(dir string) ([]Frame, error) {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(dir, manifest.FramesPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	var frames []Frame
	header := make([]byte, frameHeaderSize)
	for {
		if _, err := io.ReadFull(decoder, header); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return nil, fmt.Errorf("frame %d header: %w", len(frames)+1, err)
		}
		pass := int(binary.LittleEndian.Uint32(header[0:4]))
		width := int(binary.LittleEndian.Uint32(header[4:8]))
		height := int(binary.LittleEndian.Uint32(header[8:12]))
		size := int(binary.LittleEndian.Uint32(header[12:16]))
		if size != width*height*4 {
			return nil, fmt.Errorf("frame %d: %d bytes for %dx%d pixels", len(frames)+1, size, width, height)
		}

		img := image.NewRGBA(image.Rect(0, 0, width, height))
		if _, err := io.ReadFull(decoder, img.Pix); err != nil {
			return nil, fmt.Errorf("frame %d pixels: %w", len(frames)+1, err)
		}
		frames = append(frames, Frame{Pass: pass, Image: img})
	}
}
