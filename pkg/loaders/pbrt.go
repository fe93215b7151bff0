package loaders

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/df07/go-raymarcher/pkg/core"
	"github.com/df07/go-raymarcher/pkg/geometry"
)

// PBRTStatement represents a parsed PBRT statement
type PBRTStatement struct {
	Type          string               // Statement type (Camera, Material, Shape, etc.)
	Subtype       string               // Subtype (perspective, orbittrap, mandelbulb, etc.)
	Parameters    map[string]PBRTParam // Named parameters
	Line          int                  // Line the statement starts on
	MaterialIndex int                  // For shapes: index into PBRTScene.Materials (-1 = no material)
	Transform     geometry.Transform   // For shapes: object-to-world transform in effect
	AreaLight     *PBRTStatement       // For shapes: active AreaLightSource, nil if none
}

// PBRTParam represents a parameter with type and value(s)
type PBRTParam struct {
	Type   string   // Parameter type (float, integer, bool, rgb, point3, vector3, string)
	Values []string // Parameter values as strings, quotes removed
}

// PBRTScene contains all parsed PBRT scene data
type PBRTScene struct {
	// Pre-WorldBegin statements
	Camera     *PBRTStatement
	LookAt     *core.Vec3 // Eye position
	LookAtTo   *core.Vec3 // Look at target
	LookAtUp   *core.Vec3 // Up vector
	Film       *PBRTStatement
	Sampler    *PBRTStatement
	Integrator *PBRTStatement

	// World content (inside WorldBegin/WorldEnd)
	Materials      []PBRTStatement
	NamedMaterials map[string]int // MakeNamedMaterial name -> index into Materials
	Shapes         []PBRTStatement
	LightSources   []PBRTStatement
}

// GraphicsState is the attribute state saved by AttributeBegin and restored by AttributeEnd
type GraphicsState struct {
	MaterialIndex   int                // Current material index
	AreaLightSource *PBRTStatement     // Current area light source (nil if none)
	Transform       geometry.Transform // Current transformation
}

// PBRTParser encapsulates the state and logic for parsing PBRT files
type PBRTParser struct {
	scene          *PBRTScene
	state          GraphicsState
	stateStack     []GraphicsState
	inWorld        bool
	lineNumber     int
	statementLine  int
	statementLines []string
}

// ParsePBRT parses PBRT content from an io.Reader
func ParsePBRT(reader io.Reader) (*PBRTScene, error) {
	parser := NewPBRTParser()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		if err := parser.processLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}

	if err := parser.finalize(); err != nil {
		return nil, err
	}
	return parser.scene, nil
}

// LoadPBRT loads and parses a PBRT scene file
func LoadPBRT(filename string) (*PBRTScene, error) {
	if err := validateFilePath(filename); err != nil {
		return nil, err
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PBRT file: %w", err)
	}
	defer file.Close()

	scene, err := ParsePBRT(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}
	return scene, nil
}

// NewPBRTParser creates a new PBRT parser instance
func NewPBRTParser() *PBRTParser {
	return &PBRTParser{
		scene: &PBRTScene{
			Materials:      make([]PBRTStatement, 0),
			NamedMaterials: make(map[string]int),
			Shapes:         make([]PBRTStatement, 0),
			LightSources:   make([]PBRTStatement, 0),
		},
		state: GraphicsState{
			MaterialIndex: -1,
			Transform:     geometry.IdentityTransform(),
		},
	}
}

// processAccumulatedStatement parses and routes the buffered statement lines
func (p *PBRTParser) processAccumulatedStatement() error {
	if len(p.statementLines) == 0 {
		return nil
	}
	fullStatement := strings.Join(p.statementLines, " ")
	p.statementLines = nil

	stmt, err := parseStatement(fullStatement)
	if err != nil {
		return fmt.Errorf("line %d: error parsing statement '%s': %w", p.statementLine, fullStatement, err)
	}
	stmt.Line = p.statementLine
	if err := p.routeStatement(stmt); err != nil {
		return fmt.Errorf("line %d: %w", p.statementLine, err)
	}
	return nil
}

// processDirective handles the bare block directives. It reports false for any other line.
func (p *PBRTParser) processDirective(line string) (bool, error) {
	switch line {
	case "WorldBegin", "WorldEnd", "AttributeBegin", "AttributeEnd", "TransformBegin", "TransformEnd":
	default:
		return false, nil
	}

	if err := p.processAccumulatedStatement(); err != nil {
		return true, err
	}

	switch line {
	case "WorldBegin":
		p.inWorld = true
		p.state.Transform = geometry.IdentityTransform()
	case "WorldEnd":
		p.inWorld = false
	case "AttributeBegin", "TransformBegin":
		p.stateStack = append(p.stateStack, p.state)
	case "AttributeEnd", "TransformEnd":
		if len(p.stateStack) == 0 {
			return true, fmt.Errorf("line %d: %s without matching begin", p.lineNumber, line)
		}
		restored := p.stateStack[len(p.stateStack)-1]
		p.stateStack = p.stateStack[:len(p.stateStack)-1]
		if line == "TransformEnd" {
			p.state.Transform = restored.Transform
		} else {
			p.state = restored
		}
	}
	return true, nil
}

// processLine processes a single line of PBRT input
func (p *PBRTParser) processLine(line string) error {
	p.lineNumber++
	line = strings.TrimSpace(line)

	// Skip empty lines and comments
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	if handled, err := p.processDirective(line); handled {
		return err
	}

	// Check if this line starts a new statement or continues the previous one
	if isStatementStart(line) {
		if err := p.processAccumulatedStatement(); err != nil {
			return err
		}
		p.statementLines = []string{line}
		p.statementLine = p.lineNumber
		return nil
	}

	if len(p.statementLines) == 0 {
		return fmt.Errorf("line %d: unexpected continuation line: %s", p.lineNumber, line)
	}
	p.statementLines = append(p.statementLines, line)
	return nil
}

// finalize processes any remaining accumulated statement
func (p *PBRTParser) finalize() error {
	if err := p.processAccumulatedStatement(); err != nil {
		return err
	}
	if len(p.stateStack) > 0 {
		return fmt.Errorf("%d unclosed AttributeBegin block(s) at end of file", len(p.stateStack))
	}
	return nil
}

// routeStatement applies a parsed statement to the graphics state or records it in the scene
func (p *PBRTParser) routeStatement(stmt *PBRTStatement) error {
	switch stmt.Type {
	case "LookAt":
		if err := parseLookAt(stmt, p.scene); err != nil {
			return fmt.Errorf("error parsing LookAt: %w", err)
		}
		return nil
	case "Translate", "Rotate", "Scale", "Identity", "Transform", "ConcatTransform":
		if !p.inWorld {
			// The camera is placed with LookAt only
			return nil
		}
		transform, err := applyTransform(p.state.Transform, stmt)
		if err != nil {
			return err
		}
		p.state.Transform = transform
		return nil
	}

	if !p.inWorld {
		switch stmt.Type {
		case "Camera":
			p.scene.Camera = stmt
		case "Film":
			p.scene.Film = stmt
		case "Sampler":
			p.scene.Sampler = stmt
		case "Integrator":
			p.scene.Integrator = stmt
		}
		return nil
	}

	switch stmt.Type {
	case "Material":
		p.scene.Materials = append(p.scene.Materials, *stmt)
		p.state.MaterialIndex = len(p.scene.Materials) - 1
	case "MakeNamedMaterial":
		name := stmt.Subtype
		materialType, ok := stmt.GetStringParam("type")
		if !ok {
			return fmt.Errorf("MakeNamedMaterial %q is missing \"string type\"", name)
		}
		stmt.Type = "Material"
		stmt.Subtype = materialType
		p.scene.Materials = append(p.scene.Materials, *stmt)
		p.scene.NamedMaterials[name] = len(p.scene.Materials) - 1
	case "NamedMaterial":
		index, ok := p.scene.NamedMaterials[stmt.Subtype]
		if !ok {
			return fmt.Errorf("unknown named material %q", stmt.Subtype)
		}
		p.state.MaterialIndex = index
	case "Shape":
		stmt.MaterialIndex = p.state.MaterialIndex
		stmt.Transform = p.state.Transform
		stmt.AreaLight = p.state.AreaLightSource
		p.scene.Shapes = append(p.scene.Shapes, *stmt)
	case "LightSource":
		p.scene.LightSources = append(p.scene.LightSources, *stmt)
	case "AreaLightSource":
		// Affects subsequent shapes until the enclosing AttributeEnd
		p.state.AreaLightSource = stmt
	}
	return nil
}

// applyTransform composes a transform statement onto the current transformation.
// Only uniform scales and rotations that keep the X, Y, Z Euler order are representable.
func applyTransform(current geometry.Transform, stmt *PBRTStatement) (geometry.Transform, error) {
	if stmt.Type == "Identity" {
		return geometry.IdentityTransform(), nil
	}
	if stmt.Type == "Transform" || stmt.Type == "ConcatTransform" {
		return current, fmt.Errorf("%s matrices are not supported, use Translate, Rotate and Scale", stmt.Type)
	}

	values, err := parseFloats(stmt.Parameters["values"].Values)
	if err != nil {
		return current, fmt.Errorf("invalid %s values: %w", stmt.Type, err)
	}

	switch stmt.Type {
	case "Translate":
		if len(values) != 3 {
			return current, fmt.Errorf("Translate requires 3 values, got %d", len(values))
		}
		offset := core.NewVec3(values[0], values[1], values[2]).Multiply(current.Scale).Rotate(current.Rotate)
		current.Translate = current.Translate.Add(offset)

	case "Scale":
		if len(values) != 3 {
			return current, fmt.Errorf("Scale requires 3 values, got %d", len(values))
		}
		if values[0] != values[1] || values[1] != values[2] {
			return current, fmt.Errorf("non-uniform Scale %v %v %v is not supported", values[0], values[1], values[2])
		}
		if values[0] <= 0 {
			return current, fmt.Errorf("Scale must be positive, got %v", values[0])
		}
		current.Scale *= values[0]

	case "Rotate":
		if len(values) != 4 {
			return current, fmt.Errorf("Rotate requires 4 values, got %d", len(values))
		}
		angle := values[0] * math.Pi / 180
		axis := core.NewVec3(values[1], values[2], values[3]).Normalize()
		switch {
		case math.Abs(axis.X) == 1:
			current.Rotate.X += math.Copysign(angle, axis.X)
		case math.Abs(axis.Y) == 1:
			if current.Rotate.X != 0 {
				return current, fmt.Errorf("Rotate about Y after a rotation about X is not supported")
			}
			current.Rotate.Y += math.Copysign(angle, axis.Y)
		case math.Abs(axis.Z) == 1:
			if current.Rotate.X != 0 || current.Rotate.Y != 0 {
				return current, fmt.Errorf("Rotate about Z after a rotation about X or Y is not supported")
			}
			current.Rotate.Z += math.Copysign(angle, axis.Z)
		default:
			return current, fmt.Errorf("Rotate axis %v %v %v is not a coordinate axis", values[1], values[2], values[3])
		}
	}
	return current, nil
}

// validateFilePath validates a file path for security issues
func validateFilePath(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	// Check for null bytes (could indicate path manipulation)
	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("invalid file path: null bytes not allowed")
	}

	cleanPath := filepath.Clean(filename)

	// Only allow files in a scenes/ directory or the temp directory (for tests)
	if !strings.HasPrefix(cleanPath, "scenes/") &&
		!strings.HasPrefix(cleanPath, os.TempDir()) &&
		!strings.Contains(cleanPath, "scenes/") {
		return fmt.Errorf("file path must be in scenes/ directory")
	}

	if strings.Contains(cleanPath, "..") && !strings.Contains(cleanPath, "scenes/") {
		return fmt.Errorf("invalid file path: directory traversal not allowed")
	}

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".pbrt") {
		return fmt.Errorf("invalid file type: only .pbrt files are allowed")
	}

	if len(cleanPath) > 512 {
		return fmt.Errorf("file path too long: maximum 512 characters allowed")
	}

	return nil
}

// parseLookAt parses a LookAt statement into scene camera vectors
func parseLookAt(stmt *PBRTStatement, scene *PBRTScene) error {
	// eyex eyey eyez atx aty atz upx upy upz
	raw := stmt.Parameters["values"].Values
	if len(raw) != 9 {
		return fmt.Errorf("LookAt requires 9 values, got %d", len(raw))
	}

	values, err := parseFloats(raw)
	if err != nil {
		return err
	}

	eye := core.NewVec3(values[0], values[1], values[2])
	at := core.NewVec3(values[3], values[4], values[5])
	up := core.NewVec3(values[6], values[7], values[8])
	scene.LookAt, scene.LookAtTo, scene.LookAtUp = &eye, &at, &up
	return nil
}

// parseFloats converts every value to float64, reporting the first one that fails
func parseFloats(values []string) ([]float64, error) {
	result := make([]float64, len(values))
	for i, value := range values {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number '%s': %w", value, err)
		}
		result[i] = f
	}
	return result, nil
}

// tokenizePBRT tokenizes a PBRT line respecting quoted strings and brackets
func tokenizePBRT(line string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false
	inBrackets := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, char := range line {
		switch {
		case char == '"':
			current.WriteRune(char)
			if inBrackets {
				continue
			}
			if inQuotes {
				flush()
			}
			inQuotes = !inQuotes
		case char == '[' && !inQuotes:
			flush()
			current.WriteRune(char)
			inBrackets = true
		case char == ']' && !inQuotes && inBrackets:
			current.WriteRune(char)
			flush()
			inBrackets = false
		case (char == ' ' || char == '\t') && !inQuotes && !inBrackets:
			flush()
		default:
			current.WriteRune(char)
		}
	}
	flush()

	return tokens
}

// parseStatement parses a single PBRT statement line
func parseStatement(line string) (*PBRTStatement, error) {
	// LookAt and the transform directives take bare numbers
	for _, directive := range []string{"LookAt", "Translate", "Rotate", "Scale", "Identity", "ConcatTransform", "Transform"} {
		if line == directive || strings.HasPrefix(line, directive+" ") || strings.HasPrefix(line, directive+"[") {
			rest := strings.NewReplacer("[", " ", "]", " ").Replace(line[len(directive):])
			return &PBRTStatement{
				Type: directive,
				Parameters: map[string]PBRTParam{
					"values": {Type: "float", Values: strings.Fields(rest)},
				},
			}, nil
		}
	}

	// Regular statements: Type "subtype" "paramtype name" value
	parts := tokenizePBRT(line)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid statement format")
	}

	stmt := &PBRTStatement{
		Type:       parts[0],
		Parameters: make(map[string]PBRTParam),
	}

	if strings.HasPrefix(parts[1], "\"") && strings.HasSuffix(parts[1], "\"") {
		stmt.Subtype = strings.Trim(parts[1], "\"")
		parts = parts[2:]
	} else {
		parts = parts[1:]
	}

	i := 0
	for i < len(parts) {
		if !strings.HasPrefix(parts[i], "\"") {
			i++
			continue
		}

		paramParts := strings.Fields(strings.Trim(parts[i], "\""))
		i++
		if len(paramParts) != 2 {
			continue
		}
		if i >= len(parts) {
			return nil, fmt.Errorf("parameter %q has no value", paramParts[1])
		}

		var values []string
		if strings.HasPrefix(parts[i], "[") && strings.HasSuffix(parts[i], "]") {
			values = splitValues(strings.Trim(parts[i], "[]"))
		} else {
			values = []string{strings.Trim(parts[i], "\"")}
		}
		i++

		stmt.Parameters[paramParts[1]] = PBRTParam{Type: paramParts[0], Values: values}
	}

	return stmt, nil
}

// splitValues splits the inside of a bracketed array, removing string quotes
func splitValues(array string) []string {
	fields := strings.Fields(array)
	for i, field := range fields {
		fields[i] = strings.Trim(field, "\"")
	}
	return fields
}

// GetFloatParam extracts a float parameter from a PBRT statement
func (stmt *PBRTStatement) GetFloatParam(name string) (float64, bool) {
	param, exists := stmt.Parameters[name]
	if !exists || len(param.Values) == 0 {
		return 0, false
	}
	val, err := strconv.ParseFloat(param.Values[0], 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// GetIntParam extracts an integer parameter from a PBRT statement
func (stmt *PBRTStatement) GetIntParam(name string) (int, bool) {
	param, exists := stmt.Parameters[name]
	if !exists || len(param.Values) == 0 {
		return 0, false
	}
	val, err := strconv.Atoi(param.Values[0])
	if err != nil {
		return 0, false
	}
	return val, true
}

// GetBoolParam extracts a bool parameter from a PBRT statement
func (stmt *PBRTStatement) GetBoolParam(name string) (bool, bool) {
	param, exists := stmt.Parameters[name]
	if !exists || len(param.Values) == 0 {
		return false, false
	}
	switch param.Values[0] {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// GetRGBParam extracts an RGB color parameter from a PBRT statement
func (stmt *PBRTStatement) GetRGBParam(name string) (*core.Vec3, bool) {
	return stmt.getTriple(name)
}

// GetPoint3Param extracts a point3 parameter from a PBRT statement
func (stmt *PBRTStatement) GetPoint3Param(name string) (*core.Vec3, bool) {
	return stmt.getTriple(name)
}

// GetVec3Param extracts a vector3 parameter from a PBRT statement
func (stmt *PBRTStatement) GetVec3Param(name string) (*core.Vec3, bool) {
	return stmt.getTriple(name)
}

func (stmt *PBRTStatement) getTriple(name string) (*core.Vec3, bool) {
	param, exists := stmt.Parameters[name]
	if !exists || len(param.Values) < 3 {
		return nil, false
	}
	values, err := parseFloats(param.Values[:3])
	if err != nil {
		return nil, false
	}
	return &core.Vec3{X: values[0], Y: values[1], Z: values[2]}, true
}

// GetStringParam extracts a string parameter from a PBRT statement
func (stmt *PBRTStatement) GetStringParam(name string) (string, bool) {
	param, exists := stmt.Parameters[name]
	if !exists || len(param.Values) == 0 {
		return "", false
	}
	return param.Values[0], true
}

// IsAreaLight reports whether a shape was declared under an AreaLightSource
func (stmt *PBRTStatement) IsAreaLight() bool {
	return stmt.AreaLight != nil
}

// isStatementStart determines if a line starts a new PBRT statement
func isStatementStart(line string) bool {
	statementTypes := []string{
		"Camera", "Film", "Sampler", "Integrator", "LookAt",
		"Material", "MakeNamedMaterial", "NamedMaterial", "Texture",
		"Shape", "LightSource", "AreaLightSource",
		"Translate", "Rotate", "Scale", "Identity", "Transform", "ConcatTransform",
		"ReverseOrientation", "Attribute",
	}

	for _, stmt := range statementTypes {
		if strings.HasPrefix(line, stmt+" ") || line == stmt {
			return true
		}
	}
	return false
}
