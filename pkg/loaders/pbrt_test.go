package loaders

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-prt/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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
			name:     "shape with multiple arrays",
			input:    `Shape "trianglemesh" "point3 P" [0 0 0 1 0 0 0 1 0] "integer indices" [0 1 2]`,
			expected: []string{`Shape`, `"trianglemesh"`, `"point3 P"`, `[0 0 0 1 0 0 0 1 0]`, `"integer indices"`, `[0 1 2]`},
		},
		{
			name:     "quoted string inside brackets",
			input:    `Shape "plymesh" "string filename" [ "bunny.ply" ]`,
			expected: []string{`Shape`, `"plymesh"`, `"string filename"`, `[ "bunny.ply" ]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tokenizePBRT(tt.input))
		})
	}
}

func TestParseStatement(t *testing.T) {
	stmt, err := parseStatement(`Shape "trianglemesh" "point3 P" [0 0 0 1 0 0 0 1 0] "integer indices" [0 1 2] "string name" "tri"`)
	require.NoError(t, err)
	assert.Equal(t, "Shape", stmt.Type)
	assert.Equal(t, "trianglemesh", stmt.Subtype)
	assert.Equal(t, PBRTParam{Type: "integer", Values: []string{"0", "1", "2"}}, stmt.Parameters["indices"])

	name, ok := stmt.GetStringParam("name")
	assert.True(t, ok)
	assert.Equal(t, "tri", name)

	points, err := stmt.GetVec3ListParam("P")
	require.NoError(t, err)
	assert.Equal(t, []core.Vec3{{}, {X: 1}, {Y: 1}}, points)

	missing, err := stmt.GetVec3ListParam("N")
	require.NoError(t, err)
	assert.Nil(t, missing)

	stmt, err = parseStatement(`Translate 1 2 3`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, stmt.Parameters["values"].Values)
}

const quadPBRT = `# two triangles on the ground
LookAt 0 2 3   0 0 0   0 1 0
Camera "perspective" "float fov" 35
Film "rgb" "integer xresolution" 64
WorldBegin
AttributeBegin
  Material "diffuse"
  Shape "trianglemesh" # "string note" "a # in quotes is not a comment"
    "point3 P" [ -1 0 -1   1 0 -1
                  1 0  1  -1 0  1 ]
    "integer indices" [ 0 3 2  0 2 1 ]
AttributeEnd
`

func TestParsePBRT_TriangleMesh(t *testing.T) {
	scene, err := ParsePBRT(strings.NewReader(quadPBRT))
	require.NoError(t, err)

	require.NotNil(t, scene.LookAt)
	assert.Equal(t, core.NewVec3(0, 2, 3), *scene.LookAt)
	assert.Equal(t, core.NewVec3(0, 0, 0), *scene.LookAtTo)
	assert.Equal(t, core.NewVec3(0, 1, 0), *scene.LookAtUp)
	assert.Equal(t, 35.0, scene.FOV())
	require.Len(t, scene.Shapes, 1)

	mesh, err := scene.Mesh("")
	require.NoError(t, err)
	assert.Equal(t, 4, mesh.VertexCount())
	assert.Equal(t, 2, mesh.TriangleCount())
	// Counter-clockwise seen from above, so the derived normals point up
	for _, n := range mesh.Normals {
		assert.InDelta(t, 1, n.Y, 1e-12)
	}
}

func TestParsePBRT_Transforms(t *testing.T) {
	src := `Scale -1 1 1
WorldBegin
Translate 0 1 0
AttributeBegin
  Translate 10 0 0
  Scale 2 2 2
  Shape "trianglemesh" "point3 P" [0 0 0 1 0 0 0 0 1] "normal N" [0 1 0 0 1 0 0 1 0]
AttributeEnd
Shape "trianglemesh" "point3 P" [0 0 0 1 0 0 0 0 1]
`
	scene, err := ParsePBRT(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, scene.Shapes, 2)

	mesh, err := scene.Mesh("")
	require.NoError(t, err)
	require.Equal(t, 6, mesh.VertexCount())

	// Translate then Scale: p*2 + (10, 1, 0); the pre-world Scale is camera space
	assert.Equal(t, core.NewVec3(10, 1, 0), mesh.Positions[0])
	assert.Equal(t, core.NewVec3(12, 1, 0), mesh.Positions[1])
	assert.Equal(t, core.NewVec3(10, 1, 2), mesh.Positions[2])
	// AttributeEnd restores the outer transform
	assert.Equal(t, core.NewVec3(1, 1, 0), mesh.Positions[4])
	assert.Equal(t, core.NewVec3(0, 1, 0), mesh.Normals[0])
}

func TestPBRTScene_PLYMesh(t *testing.T) {
	dir := t.TempDir()
	createTestPLY(t, filepath.Join(dir, "square.ply"), true, false)
	path := filepath.Join(dir, "scene.pbrt")
	require.NoError(t, os.WriteFile(path, []byte(`WorldBegin
Translate 0 0 5
Shape "plymesh" "string filename" [ "square.ply" ]
`), 0o644))

	scene, err := LoadPBRT(path)
	require.NoError(t, err)
	assert.Nil(t, scene.LookAt)
	assert.Equal(t, 0.0, scene.FOV())

	mesh, err := scene.Mesh(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, mesh.VertexCount())
	assert.Equal(t, core.NewVec3(1, 1, 5), mesh.Positions[2])
}

func TestParsePBRT_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"dangling continuation", `"point3 P" [0 0 0]`},
		{"short LookAt", `LookAt 0 0 0 1 1 1`},
		{"unbalanced AttributeEnd", "WorldBegin\nAttributeEnd"},
		{"world rotation", "WorldBegin\nRotate 90 0 1 0"},
		{"zero scale", "WorldBegin\nScale 1 0 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePBRT(strings.NewReader(tt.src))
			require.ErrorIs(t, err, core.ErrResourceLoad)
		})
	}
}

func TestPBRTScene_MeshErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind error
	}{
		{"no shapes", "WorldBegin\n", core.ErrResourceLoad},
		{"sphere", "WorldBegin\nShape \"sphere\" \"float radius\" 1", core.ErrResourceLoad},
		{"ragged points", "WorldBegin\nShape \"trianglemesh\" \"point3 P\" [0 0 0 1]", core.ErrResourceLoad},
		{"implicit indices", "WorldBegin\nShape \"trianglemesh\" \"point3 P\" [0 0 0 1 0 0 0 1 0 1 1 0]", core.ErrResourceLoad},
		{"bad index", "WorldBegin\nShape \"trianglemesh\" \"point3 P\" [0 0 0 1 0 0 0 1 0] \"integer indices\" [0 1 3]", core.ErrIndex},
		{"missing ply", "WorldBegin\nShape \"plymesh\" \"string filename\" \"nope.ply\"", core.ErrResourceLoad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := ParsePBRT(strings.NewReader(tt.src))
			require.NoError(t, err)
			_, err = scene.Mesh(t.TempDir())
			require.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestLoadPBRT_NotFound(t *testing.T) {
	_, err := LoadPBRT(filepath.Join(t.TempDir(), "missing.pbrt"))
	require.ErrorIs(t, err, core.ErrResourceLoad)
}
