package transport

import (
	"testing"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/stretchr/testify/require"
)

// flatTriangle is a single upward-facing triangle at z = 0
func flatTriangle(t *testing.T) *geometry.Mesh {
	t.Helper()
	mesh, err := geometry.NewMesh([]core.Vec3{
		core.NewVec3(-0.5, -0.5, 0),
		core.NewVec3(0.5, -0.5, 0),
		core.NewVec3(0, 0.5, 0),
	}, nil, []int{0, 1, 2})
	require.NoError(t, err)
	return mesh
}

// enclosedTriangle is flatTriangle sealed inside a cube of half-size 1.
// Vertices 0-2 are the triangle; every ray leaving them hits the cube.
func enclosedTriangle(t *testing.T) *geometry.Mesh {
	t.Helper()
	positions := []core.Vec3{
		core.NewVec3(-0.5, -0.5, 0),
		core.NewVec3(0.5, -0.5, 0),
		core.NewVec3(0, 0.5, 0),
	}
	faces := []int{0, 1, 2}

	// Cube corners 3..10
	for i := 0; i < 8; i++ {
		x, y, z := -1.0, -1.0, -1.0
		if i&1 != 0 {
			x = 1
		}
		if i&2 != 0 {
			y = 1
		}
		if i&4 != 0 {
			z = 1
		}
		positions = append(positions, core.NewVec3(x, y, z))
	}
	quads := [][4]int{
		{0, 2, 3, 1}, // z = -1
		{4, 5, 7, 6}, // z = +1
		{0, 1, 5, 4}, // y = -1
		{2, 6, 7, 3}, // y = +1
		{0, 4, 6, 2}, // x = -1
		{1, 3, 7, 5}, // x = +1
	}
	for _, q := range quads {
		a, b, c, d := q[0]+3, q[1]+3, q[2]+3, q[3]+3
		faces = append(faces, a, b, c, a, c, d)
	}

	mesh, err := geometry.NewMesh(positions, nil, faces)
	require.NoError(t, err)
	return mesh
}

// facingQuads is a 4x4 floor at z = 0 facing up (vertices 0-3) under a
// ceiling of the same size at z = 1 facing down (vertices 4-7)
func facingQuads(t *testing.T) *geometry.Mesh {
	t.Helper()
	mesh, err := geometry.NewMesh([]core.Vec3{
		core.NewVec3(-2, -2, 0),
		core.NewVec3(2, -2, 0),
		core.NewVec3(2, 2, 0),
		core.NewVec3(-2, 2, 0),
		core.NewVec3(-2, -2, 1),
		core.NewVec3(-2, 2, 1),
		core.NewVec3(2, 2, 1),
		core.NewVec3(2, -2, 1),
	}, nil, []int{0, 1, 2, 0, 2, 3, 4, 5, 6, 4, 6, 7})
	require.NoError(t, err)
	return mesh
}
