package geometry

import (
	"github.com/df07/go-prt/pkg/core"
)

// BVHNode represents a node in the Bounding Volume Hierarchy
type BVHNode struct {
	BoundingBox AABB
	Left        *BVHNode
	Right       *BVHNode
	Triangles   []*Triangle // Triangles for leaf nodes (nil for internal nodes)
}

// BVH represents a Bounding Volume Hierarchy for fast ray-triangle intersection
type BVH struct {
	Root *BVHNode
}

// Leaf threshold: if we have this many or fewer triangles, store them in a leaf node
const leafThreshold = 8

// NewBVH constructs a BVH from a slice of triangles
func NewBVH(triangles []*Triangle) *BVH {
	if len(triangles) == 0 {
		return &BVH{Root: nil}
	}

	// Copy so partitioning never reorders the caller's slice
	trianglesCopy := make([]*Triangle, len(triangles))
	copy(trianglesCopy, triangles)

	return &BVH{Root: buildBVH(trianglesCopy)}
}

// buildBVH recursively builds the BVH using simple median splits along the longest axis
func buildBVH(triangles []*Triangle) *BVHNode {
	boundingBox := triangles[0].BoundingBox()
	for i := 1; i < len(triangles); i++ {
		boundingBox = boundingBox.Union(triangles[i].BoundingBox())
	}

	if len(triangles) <= leafThreshold {
		return &BVHNode{BoundingBox: boundingBox, Triangles: triangles}
	}

	axis := boundingBox.LongestAxis()
	minVal := boundingBox.Min.Component(axis)
	maxVal := boundingBox.Max.Component(axis)

	// Degenerate extent along the best axis
	if maxVal <= minVal {
		return &BVHNode{BoundingBox: boundingBox, Triangles: triangles}
	}

	splitPos := (minVal + maxVal) * 0.5
	left, right := partitionTriangles(triangles, axis, splitPos)

	// Ensure we don't create empty partitions
	if len(left) == 0 || len(right) == 0 {
		return &BVHNode{BoundingBox: boundingBox, Triangles: triangles}
	}

	return &BVHNode{
		BoundingBox: boundingBox,
		Left:        buildBVH(left),
		Right:       buildBVH(right),
	}
}

// partitionTriangles splits triangles by the center of their bounding boxes
func partitionTriangles(triangles []*Triangle, axis int, splitPos float64) ([]*Triangle, []*Triangle) {
	var left, right []*Triangle
	for _, tri := range triangles {
		if tri.BoundingBox().Center().Component(axis) < splitPos {
			left = append(left, tri)
		} else {
			right = append(right, tri)
		}
	}
	return left, right
}

// Hit finds the closest triangle hit by the ray within [tMin, tMax]
func (bvh *BVH) Hit(ray core.Ray, tMin, tMax float64) (Intersection, bool) {
	if bvh.Root == nil {
		return Intersection{}, false
	}
	var its Intersection
	hit := bvh.hitNode(bvh.Root, ray, tMin, tMax, &its)
	return its, hit
}

// hitNode recursively tests ray intersection with BVH nodes
func (bvh *BVH) hitNode(node *BVHNode, ray core.Ray, tMin, tMax float64, its *Intersection) bool {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return false
	}

	if node.Triangles != nil {
		hitAnything := false
		closestSoFar := tMax

		for _, tri := range node.Triangles {
			if t, bary, ok := tri.Hit(ray, tMin, closestSoFar); ok {
				hitAnything = true
				closestSoFar = t
				its.T = t
				its.Barycentric = bary
				its.Indices = tri.Indices
				its.Point = ray.At(t)
				its.Normal = tri.Normal()
			}
		}

		return hitAnything
	}

	hitAnything := false
	closestSoFar := tMax

	if node.Left != nil && bvh.hitNode(node.Left, ray, tMin, closestSoFar, its) {
		hitAnything = true
		closestSoFar = its.T
	}
	if node.Right != nil && bvh.hitNode(node.Right, ray, tMin, closestSoFar, its) {
		hitAnything = true
	}

	return hitAnything
}

// HitAny reports whether any triangle is hit within [tMin, tMax], stopping at the first hit
func (bvh *BVH) HitAny(ray core.Ray, tMin, tMax float64) bool {
	if bvh.Root == nil {
		return false
	}
	return bvh.hitAnyNode(bvh.Root, ray, tMin, tMax)
}

func (bvh *BVH) hitAnyNode(node *BVHNode, ray core.Ray, tMin, tMax float64) bool {
	if !node.BoundingBox.Hit(ray, tMin, tMax) {
		return false
	}

	if node.Triangles != nil {
		for _, tri := range node.Triangles {
			if _, _, ok := tri.Hit(ray, tMin, tMax); ok {
				return true
			}
		}
		return false
	}

	return (node.Left != nil && bvh.hitAnyNode(node.Left, ray, tMin, tMax)) ||
		(node.Right != nil && bvh.hitAnyNode(node.Right, ray, tMin, tMax))
}

// BoundingBox returns the overall bounding box of the BVH
func (bvh *BVH) BoundingBox() AABB {
	if bvh.Root == nil {
		return AABB{}
	}
	return bvh.Root.BoundingBox
}

// Stats walks the tree and summarizes its shape
func (bvh *BVH) Stats() BVHStats {
	if bvh.Root == nil {
		return BVHStats{}
	}

	stats := BVHStats{}
	bvh.collectStats(bvh.Root, 0, &stats)

	if stats.Leaves > 0 {
		stats.AvgDepth = stats.AvgDepth / float64(stats.Leaves)
	}

	return stats
}

// BVHStats describes the shape of a built BVH
type BVHStats struct {
	Nodes     int
	Leaves    int
	MaxDepth  int
	AvgDepth  float64 // Mean leaf depth
	Triangles int     // Triangles referenced by leaves
}

func (bvh *BVH) collectStats(node *BVHNode, depth int, stats *BVHStats) {
	stats.Nodes++

	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}

	if node.Triangles != nil {
		stats.Leaves++
		stats.Triangles += len(node.Triangles)
		stats.AvgDepth += float64(depth)
		return
	}

	if node.Left != nil {
		bvh.collectStats(node.Left, depth+1, stats)
	}
	if node.Right != nil {
		bvh.collectStats(node.Right, depth+1, stats)
	}
}
