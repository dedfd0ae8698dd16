// Package scene builds procedural meshes for bakes that do not load a PLY file.
package scene

import (
	"slices"
	"strings"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/df07/go-prt/pkg/renderer"
	"github.com/pkg/errors"
)

// Scene is a procedural mesh plus the camera that frames it
type Scene struct {
	Name   string
	Mesh   *geometry.Mesh
	Camera renderer.CameraConfig
}

// Info describes a built-in scene
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Vertices    int    `json:"vertices"`
	Triangles   int    `json:"triangles"`
}

type builtin struct {
	description string
	build       func() (*Scene, error)
}

var builtins = map[string]builtin{
	"triangle": {"single upward-facing triangle", NewTriangleScene},
	"quad":     {"ground quad", NewQuadScene},
	"cornell":  {"Cornell box with two blocks, open at the front", NewCornellScene},
	"sphere":   {"tessellated sphere resting on a ground quad", NewSphereScene},
}

// Names returns the built-in scene names in sorted order
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New builds a scene by name
func New(name string) (*Scene, error) {
	b, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.Wrapf(core.ErrConfiguration, "unknown scene %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return b.build()
}

// List describes every built-in scene
func List() ([]Info, error) {
	var infos []Info
	for _, name := range Names() {
		s, err := builtins[name].build()
		if err != nil {
			return nil, errors.Wrapf(err, "scene %s", name)
		}
		infos = append(infos, Info{
			Name:        name,
			Description: builtins[name].description,
			Vertices:    s.Mesh.VertexCount(),
			Triangles:   s.Mesh.TriangleCount(),
		})
	}
	return infos, nil
}

// NewTriangleScene creates a single triangle in the XZ plane facing +Y
func NewTriangleScene() (*Scene, error) {
	b := &meshBuilder{}
	b.addTriangle(
		core.NewVec3(-1, 0, 1),
		core.NewVec3(1, 0, 1),
		core.NewVec3(0, 0, -1),
	)
	return b.scene("triangle", renderer.CameraConfig{
		Center:      core.NewVec3(0, 2, 3),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 1.0,
		VFov:        45.0,
	})
}

// NewQuadScene creates a ground quad centered at the origin
func NewQuadScene() (*Scene, error) {
	b := &meshBuilder{}
	b.addGroundQuad(core.NewVec3(0, 0, 0), 2)
	return b.scene("quad", renderer.CameraConfig{
		Center:      core.NewVec3(0, 2, 3),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 1.0,
		VFov:        45.0,
	})
}
