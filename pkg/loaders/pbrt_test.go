package loaders

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-raymarcher/pkg/core"
)

func mustParse(t *testing.T, content string) *PBRTScene {
	t.Helper()
	scene, err := ParsePBRT(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParsePBRT() error = %v", err)
	}
	return scene
}

func vecNear(a, b core.Vec3, tol float64) bool {
	return a.Subtract(b).Length() <= tol
}

func TestTokenizePBRT(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple statement",
			input:    `Camera "perspective"`,
			expected: []string{`Camera`, `"perspective"`},
		},
		{
			name:     "statement with parameters",
			input:    `Camera "perspective" "float fov" 45`,
			expected: []string{`Camera`, `"perspective"`, `"float fov"`, `45`},
		},
		{
			name:     "statement with array",
			input:    `Material "orbittrap" "rgb Ks" [0.25 0.25 0.25]`,
			expected: []string{`Material`, `"orbittrap"`, `"rgb Ks"`, `[0.25 0.25 0.25]`},
		},
		{
			name:     "quoted value inside array",
			input:    `Material "orbittrap" "bool enableFakeAO" [ "true" ]`,
			expected: []string{`Material`, `"orbittrap"`, `"bool enableFakeAO"`, `[ "true" ]`},
		},
		{
			name:     "tabs between tokens",
			input:    "Shape\t\"juliaset\"\t\"integer juliaIterations\"\t12",
			expected: []string{`Shape`, `"juliaset"`, `"integer juliaIterations"`, `12`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tokenizePBRT(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("tokenizePBRT() = %v, want %v", result, tt.expected)
			}
			for i, token := range result {
				if token != tt.expected[i] {
					t.Errorf("tokenizePBRT()[%d] = %q, want %q", i, token, tt.expected[i])
				}
			}
		})
	}
}

func TestParseStatement(t *testing.T) {
	stmt, err := parseStatement(`Shape "juliaset" "integer juliaIterations" 12 "vector3 imaginaryConstants" [0.8 0 0] "string name" "julia" "bool quoted" "true" "bool bare" [ false ]`)
	if err != nil {
		t.Fatalf("parseStatement() error = %v", err)
	}
	if stmt.Type != "Shape" || stmt.Subtype != "juliaset" {
		t.Errorf("statement = %s %q, want Shape \"juliaset\"", stmt.Type, stmt.Subtype)
	}

	if n, ok := stmt.GetIntParam("juliaIterations"); !ok || n != 12 {
		t.Errorf("GetIntParam(juliaIterations) = %d, %v, want 12, true", n, ok)
	}
	if v, ok := stmt.GetVec3Param("imaginaryConstants"); !ok || *v != core.NewVec3(0.8, 0, 0) {
		t.Errorf("GetVec3Param(imaginaryConstants) = %v, %v", v, ok)
	}
	if s, ok := stmt.GetStringParam("name"); !ok || s != "julia" {
		t.Errorf("GetStringParam(name) = %q, %v, want julia", s, ok)
	}
	if b, ok := stmt.GetBoolParam("quoted"); !ok || !b {
		t.Errorf("GetBoolParam(quoted) = %v, %v, want true, true", b, ok)
	}
	if b, ok := stmt.GetBoolParam("bare"); !ok || b {
		t.Errorf("GetBoolParam(bare) = %v, %v, want false, true", b, ok)
	}
}

func TestParseStatementMissingValue(t *testing.T) {
	if _, err := parseStatement(`Shape "mandelbulb" "float power"`); err == nil {
		t.Error("parseStatement() should fail when a parameter has no value")
	}
}

func TestGetParameterMethods(t *testing.T) {
	stmt := &PBRTStatement{
		Parameters: map[string]PBRTParam{
			"power":    {Type: "float", Values: []string{"8.5"}},
			"steps":    {Type: "integer", Values: []string{"1000"}},
			"notint":   {Type: "integer", Values: []string{"1.5"}},
			"flag":     {Type: "bool", Values: []string{"yes"}},
			"Ks":       {Type: "rgb", Values: []string{"0.8", "0.6", "0.4"}},
			"short":    {Type: "rgb", Values: []string{"0.8", "0.6"}},
			"position": {Type: "point3", Values: []string{"1.0", "2.0", "3.0"}},
		},
	}

	tests := []struct {
		name string
		ok   bool
		got  func() bool
	}{
		{"float", true, func() bool { v, ok := stmt.GetFloatParam("power"); return ok && v == 8.5 }},
		{"missing float", false, func() bool { _, ok := stmt.GetFloatParam("missing"); return ok }},
		{"int", true, func() bool { v, ok := stmt.GetIntParam("steps"); return ok && v == 1000 }},
		{"fractional int", false, func() bool { _, ok := stmt.GetIntParam("notint"); return ok }},
		{"invalid bool", false, func() bool { _, ok := stmt.GetBoolParam("flag"); return ok }},
		{"rgb", true, func() bool { v, ok := stmt.GetRGBParam("Ks"); return ok && *v == core.NewVec3(0.8, 0.6, 0.4) }},
		{"short rgb", false, func() bool { _, ok := stmt.GetRGBParam("short"); return ok }},
		{"point3", true, func() bool { v, ok := stmt.GetPoint3Param("position"); return ok && *v == core.NewVec3(1, 2, 3) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got(); got != tt.ok {
				t.Errorf("getter result = %v, want %v", got, tt.ok)
			}
		})
	}
}

func TestParseLookAt(t *testing.T) {
	scene := mustParse(t, `LookAt 0 1 -4  0 0 0  0 1 0`)
	if scene.LookAt == nil || *scene.LookAt != core.NewVec3(0, 1, -4) {
		t.Errorf("eye = %v, want (0,1,-4)", scene.LookAt)
	}
	if scene.LookAtTo == nil || *scene.LookAtTo != core.NewVec3(0, 0, 0) {
		t.Errorf("at = %v, want origin", scene.LookAtTo)
	}
	if scene.LookAtUp == nil || *scene.LookAtUp != core.NewVec3(0, 1, 0) {
		t.Errorf("up = %v, want (0,1,0)", scene.LookAtUp)
	}

	if _, err := ParsePBRT(strings.NewReader(`LookAt 0 1 -4 0 0 0`)); err == nil {
		t.Error("LookAt with 6 values should fail")
	}
}

func TestMultiLineStatements(t *testing.T) {
	scene := mustParse(t, `
Film "rgb"
    "integer xresolution" 320
    "integer yresolution" 240
WorldBegin
Material "orbittrap"
    "float fudgeFactor" 1.5
    "bool enableFakeAO" "true"
Shape "mandelbulb"
    "float power" 8
    "integer mandelIterations" 15
`)

	if x, _ := scene.Film.GetIntParam("xresolution"); x != 320 {
		t.Errorf("xresolution = %d, want 320", x)
	}
	if len(scene.Materials) != 1 || len(scene.Shapes) != 1 {
		t.Fatalf("got %d materials, %d shapes, want 1 and 1", len(scene.Materials), len(scene.Shapes))
	}
	if ao, ok := scene.Materials[0].GetBoolParam("enableFakeAO"); !ok || !ao {
		t.Error("enableFakeAO should parse as true")
	}
	if n, _ := scene.Shapes[0].GetIntParam("mandelIterations"); n != 15 {
		t.Errorf("mandelIterations = %d, want 15", n)
	}
	if scene.Shapes[0].MaterialIndex != 0 {
		t.Errorf("shape material index = %d, want 0", scene.Shapes[0].MaterialIndex)
	}
	if scene.Shapes[0].Line != 9 {
		t.Errorf("shape line = %d, want 9", scene.Shapes[0].Line)
	}
}

func TestGraphicsStateStack(t *testing.T) {
	scene := mustParse(t, `
WorldBegin
Material "diffuse" "rgb reflectance" [1 0 0]
Shape "raymarcher" "float radius" 0.5

Material "diffuse" "rgb reflectance" [0 1 0]
AttributeBegin
    Material "orbittrap"
    Translate 0 2 0
    AreaLightSource "diffuse" "rgb L" [4 4 4]
    Shape "sphere" "float radius" 0.3
AttributeEnd

Shape "raymarcher" "float radius" 0.7
WorldEnd
`)

	if len(scene.Shapes) != 3 {
		t.Fatalf("got %d shapes, want 3", len(scene.Shapes))
	}

	wantMaterials := []int{0, 2, 1}
	for i, shape := range scene.Shapes {
		if shape.MaterialIndex != wantMaterials[i] {
			t.Errorf("shape %d material index = %d, want %d", i, shape.MaterialIndex, wantMaterials[i])
		}
	}

	light := scene.Shapes[1]
	if !light.IsAreaLight() {
		t.Error("sphere inside the attribute block should be an area light")
	}
	if L, ok := light.AreaLight.GetRGBParam("L"); !ok || *L != core.NewVec3(4, 4, 4) {
		t.Errorf("area light L = %v, %v", L, ok)
	}
	if light.Transform.Translate != core.NewVec3(0, 2, 0) {
		t.Errorf("area light translate = %v, want (0,2,0)", light.Transform.Translate)
	}

	last := scene.Shapes[2]
	if last.IsAreaLight() {
		t.Error("area light state should end with AttributeEnd")
	}
	if last.Transform.Translate != (core.Vec3{}) || last.Transform.Scale != 1 {
		t.Errorf("transform should be restored after AttributeEnd, got %+v", last.Transform)
	}
}

func TestTransformComposition(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		translate core.Vec3
		rotate    core.Vec3
		scale     float64
	}{
		{"identity", ``, core.Vec3{}, core.Vec3{}, 1},
		{"translate", "Translate 1 2 3", core.NewVec3(1, 2, 3), core.Vec3{}, 1},
		{"translate accumulates", "Translate 1 0 0\nTranslate 0 1 0", core.NewVec3(1, 1, 0), core.Vec3{}, 1},
		{"scale then translate", "Translate 1 0 0\nScale 2 2 2\nTranslate 1 0 0", core.NewVec3(3, 0, 0), core.Vec3{}, 2},
		{"rotate then translate", "Rotate 90 0 1 0\nTranslate 1 0 0", core.NewVec3(0, 0, -1), core.NewVec3(0, math.Pi/2, 0), 1},
		{"negative axis", "Rotate 30 -1 0 0", core.Vec3{}, core.NewVec3(-math.Pi/6, 0, 0), 1},
		{"x y z order", "Rotate 10 1 0 0\nRotate 20 1 0 0", core.Vec3{}, core.NewVec3(math.Pi/6, 0, 0), 1},
		{"z after identity", "Rotate 45 1 0 0\nIdentity\nRotate 45 0 0 1", core.Vec3{}, core.NewVec3(0, 0, math.Pi/4), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene := mustParse(t, "WorldBegin\n"+tt.body+"\nShape \"raymarcher\"\n")
			tf := scene.Shapes[0].Transform
			if !vecNear(tf.Translate, tt.translate, 1e-9) {
				t.Errorf("translate = %v, want %v", tf.Translate, tt.translate)
			}
			if !vecNear(tf.Rotate, tt.rotate, 1e-9) {
				t.Errorf("rotate = %v, want %v", tf.Rotate, tt.rotate)
			}
			if math.Abs(tf.Scale-tt.scale) > 1e-12 {
				t.Errorf("scale = %v, want %v", tf.Scale, tt.scale)
			}
		})
	}
}

func TestTransformBeforeWorldIgnored(t *testing.T) {
	scene := mustParse(t, "Scale -1 1 1\nWorldBegin\nShape \"raymarcher\"\n")
	if scene.Shapes[0].Transform.Scale != 1 {
		t.Errorf("pre-world transform leaked into world: %+v", scene.Shapes[0].Transform)
	}
}

func TestNamedMaterials(t *testing.T) {
	scene := mustParse(t, `
WorldBegin
MakeNamedMaterial "trap" "string type" "orbittrap" "float fudgeFactor" 2
MakeNamedMaterial "matte" "string type" "diffuse"
NamedMaterial "trap"
Shape "juliaset"
NamedMaterial "matte"
Shape "raymarcher"
`)
	if len(scene.Materials) != 2 {
		t.Fatalf("got %d materials, want 2", len(scene.Materials))
	}
	if scene.Materials[0].Subtype != "orbittrap" {
		t.Errorf("named material type = %q, want orbittrap", scene.Materials[0].Subtype)
	}
	if scene.Shapes[0].MaterialIndex != 0 || scene.Shapes[1].MaterialIndex != 1 {
		t.Errorf("material indices = %d, %d, want 0, 1", scene.Shapes[0].MaterialIndex, scene.Shapes[1].MaterialIndex)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"non-uniform scale", "WorldBegin\nScale 1 2 1", "non-uniform"},
		{"non-positive scale", "WorldBegin\nScale 0 0 0", "positive"},
		{"y after x", "WorldBegin\nRotate 10 1 0 0\nRotate 10 0 1 0", "about Y"},
		{"z after y", "WorldBegin\nRotate 10 0 1 0\nRotate 10 0 0 1", "about Z"},
		{"oblique axis", "WorldBegin\nRotate 10 1 1 0", "coordinate axis"},
		{"matrix", "WorldBegin\nConcatTransform [1 0 0 0 0 1 0 0 0 0 1 0 0 0 0 1]", "not supported"},
		{"short translate", "WorldBegin\nTranslate 1 2", "3 values"},
		{"bad number", "WorldBegin\nTranslate 1 x 2", "invalid"},
		{"unbalanced end", "WorldBegin\nAttributeEnd", "without matching"},
		{"unclosed begin", "WorldBegin\nAttributeBegin\nShape \"raymarcher\"", "unclosed"},
		{"unknown named material", "WorldBegin\nNamedMaterial \"none\"", "unknown named material"},
		{"untyped named material", "WorldBegin\nMakeNamedMaterial \"m\" \"float roughness\" 0.1", "string type"},
		{"orphan continuation", `"float radius" 1`, "continuation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePBRT(strings.NewReader(tt.content))
			if err == nil {
				t.Fatal("ParsePBRT() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestErrorsReportLine(t *testing.T) {
	_, err := ParsePBRT(strings.NewReader("# comment\nWorldBegin\n\nScale 1 2 3\n"))
	if err == nil || !strings.Contains(err.Error(), "line 4") {
		t.Errorf("error %v should name line 4", err)
	}
}

func TestLoadPBRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "julia.pbrt")
	content := `LookAt 0 0 -3  0 0 0  0 1 0
Camera "perspective" "float fov" 40
WorldBegin
Material "orbittrap"
Shape "juliaset" "float juliaZSlice" 0.1
LightSource "distant" "point3 from" [0 4 -4] "point3 to" [0 0 0]
WorldEnd
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}

	scene, err := LoadPBRT(path)
	if err != nil {
		t.Fatalf("LoadPBRT() error = %v", err)
	}
	if scene.Camera == nil || scene.Camera.Subtype != "perspective" {
		t.Error("camera not parsed")
	}
	if len(scene.Shapes) != 1 || len(scene.LightSources) != 1 {
		t.Errorf("got %d shapes, %d lights, want 1 and 1", len(scene.Shapes), len(scene.LightSources))
	}
	if z, _ := scene.Shapes[0].GetFloatParam("juliaZSlice"); z != 0.1 {
		t.Errorf("juliaZSlice = %v, want 0.1", z)
	}
}

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"scene file", "scenes/julia.pbrt", false},
		{"nested scene file", "../scenes/julia.pbrt", false},
		{"temp file", filepath.Join(os.TempDir(), "x.pbrt"), false},
		{"empty", "", true},
		{"outside scenes", "/etc/passwd.pbrt", true},
		{"wrong extension", "scenes/julia.txt", true},
		{"null byte", "scenes/a\x00.pbrt", true},
		{"too long", "scenes/" + strings.Repeat("a", 520) + ".pbrt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFilePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFilePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}
