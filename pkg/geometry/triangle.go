package geometry

import (
	"github.com/df07/go-prt/pkg/core"
)

// Triangle is one face of a Mesh with its corner positions resolved
type Triangle struct {
	V0, V1, V2 core.Vec3 // The three corner positions
	Indices    [3]int    // Mesh vertex indices of V0, V1, V2
	bbox       AABB      // Cached bounding box
}

// NewTriangle creates a triangle from three corners and their mesh vertex indices
func NewTriangle(v0, v1, v2 core.Vec3, indices [3]int) *Triangle {
	return &Triangle{
		V0:      v0,
		V1:      v1,
		V2:      v2,
		Indices: indices,
		bbox:    NewAABBFromPoints(v0, v1, v2),
	}
}

// Hit tests if a ray intersects with the triangle using the Moller-Trumbore algorithm.
// It returns the ray parameter and the barycentric weights of V0, V1, V2.
func (t *Triangle) Hit(ray core.Ray, tMin, tMax float64) (float64, core.Vec3, bool) {
	const epsilon = 1e-12

	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// If determinant is near zero, ray lies in plane of triangle
	if a > -epsilon && a < epsilon {
		return 0, core.Vec3{}, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return 0, core.Vec3{}, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return 0, core.Vec3{}, false
	}

	tParam := f * edge2.Dot(q)
	if tParam < tMin || tParam > tMax {
		return 0, core.Vec3{}, false
	}

	return tParam, core.NewVec3(1-u-v, u, v), true
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t *Triangle) BoundingBox() AABB {
	return t.bbox
}

// Normal returns the unit geometric normal given by the winding V0, V1, V2
func (t *Triangle) Normal() core.Vec3 {
	return t.V1.Subtract(t.V0).Cross(t.V2.Subtract(t.V0)).Normalize()
}

// Area returns the surface area of the triangle
func (t *Triangle) Area() float64 {
	return 0.5 * t.V1.Subtract(t.V0).Cross(t.V2.Subtract(t.V0)).Length()
}
