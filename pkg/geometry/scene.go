package geometry

import (
	"math"

	"github.com/df07/go-prt/pkg/core"
)

// DefaultRayEpsilon is the minimum hit distance, keeping rays leaving a
// surface from hitting the triangles they start on
const DefaultRayEpsilon = 1e-4

// Intersection locates a closest hit on a mesh triangle
type Intersection struct {
	T           float64   // Ray parameter of the hit
	Point       core.Vec3 // World-space hit point
	Normal      core.Vec3 // Geometric normal of the hit triangle
	Indices     [3]int    // Mesh vertex indices of the hit triangle
	Barycentric core.Vec3 // Weights of Indices[0], Indices[1], Indices[2]; they sum to 1
}

// Oracle answers visibility queries against scene geometry
type Oracle interface {
	// Occluded reports whether the ray hits anything (any hit)
	Occluded(ray core.Ray) bool
	// Intersect returns the closest hit, or false when the ray escapes
	Intersect(ray core.Ray) (Intersection, bool)
}

// Scene is the BVH-accelerated visibility oracle for a single mesh
type Scene struct {
	Mesh       *Mesh
	RayEpsilon float64 // Minimum hit distance
	bvh        *BVH
}

// NewScene builds the acceleration structure for a mesh
func NewScene(mesh *Mesh) *Scene {
	return &Scene{
		Mesh:       mesh,
		RayEpsilon: DefaultRayEpsilon,
		bvh:        NewBVH(mesh.Triangles()),
	}
}

// Occluded reports whether the ray hits any triangle beyond RayEpsilon
func (s *Scene) Occluded(ray core.Ray) bool {
	return s.bvh.HitAny(ray, s.RayEpsilon, math.Inf(1))
}

// Intersect returns the closest hit beyond RayEpsilon
func (s *Scene) Intersect(ray core.Ray) (Intersection, bool) {
	return s.bvh.Hit(ray, s.RayEpsilon, math.Inf(1))
}

// BoundingBox returns the bounds of the scene geometry
func (s *Scene) BoundingBox() AABB {
	return s.bvh.BoundingBox()
}

// Stats summarizes the acceleration structure
func (s *Scene) Stats() BVHStats {
	return s.bvh.Stats()
}
