package scene

import (
	"math"
	"testing"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"cornell", "quad", "sphere", "triangle"}, Names())
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("dragon")
	require.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "cornell")

	s, err := New(" Cornell ")
	require.NoError(t, err)
	assert.Equal(t, "cornell", s.Name)
}

// Every triangle's winding must agree with the normals stored at its corners
func TestScenes_WindingMatchesNormals(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := New(name)
			require.NoError(t, err)
			mesh := s.Mesh
			require.Positive(t, mesh.TriangleCount())

			for i, tri := range mesh.Indices {
				p0, p1, p2 := mesh.Positions[tri[0]], mesh.Positions[tri[1]], mesh.Positions[tri[2]]
				face := p1.Subtract(p0).Cross(p2.Subtract(p0))
				require.Positive(t, face.Length(), "triangle %d is degenerate", i)
				for _, v := range tri {
					assert.Positive(t, face.Dot(mesh.Normals[v]), "triangle %d vertex %d", i, v)
				}
			}
			assert.Positive(t, s.Camera.Width)
		})
	}
}

func TestList(t *testing.T) {
	infos, err := List()
	require.NoError(t, err)
	require.Len(t, infos, 4)

	byName := map[string]Info{}
	for _, info := range infos {
		assert.NotEmpty(t, info.Description)
		byName[info.Name] = info
	}
	assert.Equal(t, Info{Name: "triangle", Description: byName["triangle"].Description, Vertices: 3, Triangles: 1}, byName["triangle"])
	// 5 walls and 2 blocks of 6 sides, 4 vertices per quad
	assert.Equal(t, 17*4, byName["cornell"].Vertices)
	assert.Equal(t, 17*2, byName["cornell"].Triangles)
	// Ground quad plus 2 poles and 15 rings of 32
	assert.Equal(t, 4+2+15*32, byName["sphere"].Vertices)
	assert.Equal(t, 2+2*32+14*32*2, byName["sphere"].Triangles)
}

func TestTriangleScene(t *testing.T) {
	s, err := NewTriangleScene()
	require.NoError(t, err)
	for i, p := range s.Mesh.Positions {
		assert.Equal(t, 0.0, p.Y)
		assert.Equal(t, core.NewVec3(0, 1, 0), s.Mesh.Normals[i])
	}
}

func TestCornellScene_WallsFaceInward(t *testing.T) {
	s, err := NewCornellScene()
	require.NoError(t, err)
	oracle := geometry.NewScene(s.Mesh)

	// Through the open front, above both blocks, onto the back wall
	its, ok := oracle.Intersect(core.NewRay(core.NewVec3(100, 400, -10), core.NewVec3(0, 0, 1)))
	require.True(t, ok)
	assert.InDelta(t, cornellSize, its.Point.Z, 1e-6)
	for _, v := range its.Indices {
		assert.Equal(t, core.NewVec3(0, 0, -1), s.Mesh.Normals[v])
	}

	// Straight down onto the short block's top
	its, ok = oracle.Intersect(core.NewRay(core.NewVec3(200, 500, 100), core.NewVec3(0, -1, 0)))
	require.True(t, ok)
	assert.InDelta(t, 165, its.Point.Y, 1e-6)
	for _, v := range its.Indices {
		assert.Equal(t, core.NewVec3(0, 1, 0), s.Mesh.Normals[v])
	}

	box := s.Mesh.BoundingBox()
	assert.Equal(t, core.NewVec3(0, 0, 0), box.Min)
	assert.Equal(t, core.NewVec3(cornellSize, cornellSize, cornellSize), box.Max)
}

func TestSphereScene(t *testing.T) {
	s, err := NewSphereScene()
	require.NoError(t, err)
	center := core.NewVec3(0, 0.5, 0)

	// Ground quad comes first; the rest lies on the sphere with outward normals
	for i := 4; i < s.Mesh.VertexCount(); i++ {
		offset := s.Mesh.Positions[i].Subtract(center)
		assert.InDelta(t, 0.5, offset.Length(), 1e-9)
		n := s.Mesh.Normals[i]
		assert.InDelta(t, 1, n.Dot(offset.Normalize()), 1e-9)
	}

	// The south pole touches the ground
	south := s.Mesh.Positions[s.Mesh.VertexCount()-1]
	assert.True(t, math.Abs(south.Y) < 1e-12)
}
