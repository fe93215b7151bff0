package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/df07/go-raymarcher/pkg/geometry"
)

const builtinGroup = "Built-in Scenes"

// SceneInfo represents a discovered scene with its metadata
type SceneInfo struct {
	ID          string `json:"id"`          // Unique identifier
	Name        string `json:"name"`        // Scene name
	DisplayName string `json:"displayName"` // UI display name
	Description string `json:"description"` // Optional description
	Group       string `json:"group"`       // Grouping category
	Type        string `json:"type"`        // "builtin" or "pbrt"
	FilePath    string `json:"filePath"`    // Path to PBRT file (pbrt type only)
	Variant     string `json:"variant"`     // Variant name (optional)
}

// SceneGroup represents a group of related scenes
type SceneGroup struct {
	Name   string      `json:"name"`
	Scenes []SceneInfo `json:"scenes"`
}

// ScenesResponse represents the complete response for /api/scenes
type ScenesResponse struct {
	Groups []SceneGroup `json:"groups"`
}

// ListPBRTScenes scans the /scenes directory and returns discovered PBRT scenes
func ListPBRTScenes() ([]SceneInfo, error) {
	// Try different possible paths for scenes directory
	possiblePaths := []string{"scenes", "../scenes"}
	var scenesDir string

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			scenesDir = path
			break
		}
	}

	if scenesDir == "" {
		// No scenes directory found, return empty list
		return []SceneInfo{}, nil
	}

	// Find all .pbrt files in the scenes directory
	pattern := filepath.Join(scenesDir, "*.pbrt")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}

	var scenes []SceneInfo
	for _, filePath := range files {
		sceneInfo, err := ParsePBRTMetadata(filePath)
		if err != nil {
			// Log warning but continue processing other files
			fmt.Printf("Warning: failed to parse metadata for %s: %v\n", filePath, err)
			continue
		}
		scenes = append(scenes, sceneInfo)
	}

	// Sort scenes by display name
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].DisplayName < scenes[j].DisplayName
	})

	return scenes, nil
}

// ParsePBRTMetadata extracts metadata from PBRT file header comments
func ParsePBRTMetadata(filePath string) (SceneInfo, error) {
	// Extract filename without extension for fallback values
	filename := filepath.Base(filePath)
	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	// Create SceneInfo with fallback values
	sceneInfo := SceneInfo{
		ID:          fmt.Sprintf("pbrt:%s", nameWithoutExt),
		Name:        titleCase(nameWithoutExt),
		DisplayName: titleCase(nameWithoutExt),
		Description: "",
		Group:       "PBRT Scenes", // Default group
		Type:        "pbrt",
		FilePath:    filePath,
		Variant:     "",
	}

	// Open file to read header comments
	file, err := os.Open(filePath)
	if err != nil {
		// If we can't read the file, return with fallback values
		return sceneInfo, nil
	}
	defer file.Close()

	// Read header comments to extract metadata
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Stop parsing at first non-comment line
		if !strings.HasPrefix(line, "#") {
			break
		}

		// Parse metadata from comment
		if strings.HasPrefix(line, "# ") {
			content := strings.TrimPrefix(line, "# ")

			if strings.HasPrefix(content, "Scene:") {
				sceneInfo.Name = strings.TrimSpace(strings.TrimPrefix(content, "Scene:"))
			} else if strings.HasPrefix(content, "Variant:") {
				sceneInfo.Variant = strings.TrimSpace(strings.TrimPrefix(content, "Variant:"))
			} else if strings.HasPrefix(content, "Description:") {
				sceneInfo.Description = strings.TrimSpace(strings.TrimPrefix(content, "Description:"))
			} else if strings.HasPrefix(content, "Group:") {
				sceneInfo.Group = strings.TrimSpace(strings.TrimPrefix(content, "Group:"))
			}
		}
	}

	// Update display name based on parsed metadata
	if sceneInfo.Variant != "" {
		sceneInfo.DisplayName = fmt.Sprintf("%s - %s", sceneInfo.Name, sceneInfo.Variant)
	} else {
		sceneInfo.DisplayName = sceneInfo.Name
	}

	return sceneInfo, scanner.Err()
}

// builtinScene pairs a built-in scene's listing with its constructor
type builtinScene struct {
	info   SceneInfo
	create func(...geometry.CameraConfig) (*Scene, error)
}

var builtinScenes = []builtinScene{
	{SceneInfo{ID: "mandelbulb", Name: "Mandelbulb", Description: "Power 8 Mandelbulb coloured by its orbit trap"}, NewMandelbulbScene},
	{SceneInfo{ID: "julia", Name: "Julia Set", Description: "Quaternion Julia set sliced at w = 0"}, NewJuliaScene},
	{SceneInfo{ID: "sierpinski", Name: "Sierpinski Pyramid", Description: "Pyramid built by folding space across four planes"}, NewSierpinskiScene},
	{SceneInfo{ID: "repeated", Name: "Torus Lattice", Description: "Infinite lattice of metal tori"}, NewRepeatedScene},
	{SceneInfo{ID: "waterpool", Name: "Water Pool", Description: "Noise-displaced water surface"}, NewWaterPoolScene},
	{SceneInfo{ID: "sphere", Name: "Raymarched Sphere", Description: "Sphere traced through its distance field on a checkered floor"}, NewSphereScene},
}

// BuiltinSceneInfos returns the listing of every built-in scene
func BuiltinSceneInfos() []SceneInfo {
	infos := make([]SceneInfo, len(builtinScenes))
	for i, b := range builtinScenes {
		info := b.info
		info.DisplayName = info.Name
		info.Group = builtinGroup
		info.Type = "builtin"
		infos[i] = info
	}
	return infos
}

// NewBuiltinScene creates the built-in scene with the given ID
func NewBuiltinScene(id string, cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	for _, b := range builtinScenes {
		if b.info.ID == id {
			return b.create(cameraOverrides...)
		}
	}
	return nil, fmt.Errorf("unknown scene %q", id)
}

// LoadScene resolves a scene ID from ListAllScenes: a built-in ID or "pbrt:<name>"
func LoadScene(id string, cameraOverrides ...geometry.CameraConfig) (*Scene, error) {
	name, isPBRT := strings.CutPrefix(id, "pbrt:")
	if !isPBRT {
		return NewBuiltinScene(id, cameraOverrides...)
	}

	pbrtScenes, err := ListPBRTScenes()
	if err != nil {
		return nil, err
	}
	for _, info := range pbrtScenes {
		if info.ID == id {
			return NewPBRTScene(info.FilePath, cameraOverrides...)
		}
	}
	return nil, fmt.Errorf("PBRT scene %q not found in scenes directory", name)
}

// ListAllScenes returns both built-in and PBRT scenes, grouped by category
func ListAllScenes() (ScenesResponse, error) {
	var response ScenesResponse

	pbrtScenes, err := ListPBRTScenes()
	if err != nil {
		return response, fmt.Errorf("failed to list PBRT scenes: %w", err)
	}

	allScenes := append(BuiltinSceneInfos(), pbrtScenes...)

	// Group scenes by their Group field
	groupMap := make(map[string][]SceneInfo)
	for _, scene := range allScenes {
		groupMap[scene.Group] = append(groupMap[scene.Group], scene)
	}

	// Built-in first, then alphabetical
	var groupNames []string
	for groupName := range groupMap {
		if groupName != builtinGroup {
			groupNames = append(groupNames, groupName)
		}
	}
	sort.Strings(groupNames)

	if builtInGroup, exists := groupMap[builtinGroup]; exists {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   builtinGroup,
			Scenes: builtInGroup,
		})
	}

	for _, groupName := range groupNames {
		response.Groups = append(response.Groups, SceneGroup{
			Name:   groupName,
			Scenes: groupMap[groupName],
		})
	}

	return response, nil
}

// titleCase converts a filename-style string to title case
// e.g., "cornell-empty" -> "Cornell Empty"
func titleCase(s string) string {
	// Replace hyphens and underscores with spaces
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")

	// Title case each word
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
		}
	}

	return strings.Join(words, " ")
}
