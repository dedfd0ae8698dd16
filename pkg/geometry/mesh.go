package geometry

import (
	"github.com/df07/go-prt/pkg/core"
	"github.com/pkg/errors"
)

// Mesh is an indexed triangle mesh with one normal per vertex.
// Transport coefficients are stored per vertex, so vertex indices are the
// shared key between the mesh, the visibility oracle, and the transport matrix.
type Mesh struct {
	Positions []core.Vec3 // Vertex positions
	Normals   []core.Vec3 // Unit vertex normals, same length as Positions
	Indices   [][3]int    // Triangle vertex indices
}

// NewMesh creates a mesh from vertex positions, optional vertex normals, and face indices
// positions: array of 3D points
// normals: one normal per vertex, or nil to derive area-weighted normals from the faces
// faces: array of triangle indices (each group of 3 indices forms a triangle)
func NewMesh(positions, normals []core.Vec3, faces []int) (*Mesh, error) {
	if len(faces)%3 != 0 {
		return nil, errors.Wrapf(core.ErrResourceMismatch, "face index count %d is not a multiple of 3", len(faces))
	}
	if normals != nil && len(normals) != len(positions) {
		return nil, errors.Wrapf(core.ErrResourceMismatch, "%d normals for %d vertices", len(normals), len(positions))
	}

	indices := make([][3]int, len(faces)/3)
	for i := range indices {
		tri := [3]int{faces[i*3], faces[i*3+1], faces[i*3+2]}
		for _, idx := range tri {
			if idx < 0 || idx >= len(positions) {
				return nil, errors.Wrapf(core.ErrIndex, "triangle %d references vertex %d, mesh has %d vertices", i, idx, len(positions))
			}
		}
		indices[i] = tri
	}

	mesh := &Mesh{
		Positions: positions,
		Indices:   indices,
	}

	if normals != nil {
		mesh.Normals = make([]core.Vec3, len(normals))
		for i, n := range normals {
			mesh.Normals[i] = n.Normalize()
		}
	} else {
		mesh.Normals = computeVertexNormals(positions, indices)
	}

	return mesh, nil
}

// computeVertexNormals averages face normals weighted by face area
func computeVertexNormals(positions []core.Vec3, indices [][3]int) []core.Vec3 {
	normals := make([]core.Vec3, len(positions))
	for _, tri := range indices {
		p0, p1, p2 := positions[tri[0]], positions[tri[1]], positions[tri[2]]
		// The unnormalized cross product has length 2*area
		faceNormal := p1.Subtract(p0).Cross(p2.Subtract(p0))
		for _, idx := range tri {
			normals[idx] = normals[idx].Add(faceNormal)
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	return normals
}

// VertexCount returns the number of vertices
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles
func (m *Mesh) TriangleCount() int {
	return len(m.Indices)
}

// Triangle returns the vertex indices of triangle i
func (m *Mesh) Triangle(i int) ([3]int, error) {
	if i < 0 || i >= len(m.Indices) {
		return [3]int{}, errors.Wrapf(core.ErrIndex, "triangle %d out of range [0, %d)", i, len(m.Indices))
	}
	return m.Indices[i], nil
}

// Triangles resolves every face into a Triangle
func (m *Mesh) Triangles() []*Triangle {
	triangles := make([]*Triangle, len(m.Indices))
	for i, tri := range m.Indices {
		triangles[i] = NewTriangle(m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]], tri)
	}
	return triangles
}

// BoundingBox returns the bounds of all vertex positions
func (m *Mesh) BoundingBox() AABB {
	return NewAABBFromPoints(m.Positions...)
}
