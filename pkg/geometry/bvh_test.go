package geometry

import (
	"math"
	"testing"

	"github.com/df07/go-prt/pkg/core"
	"pgregory.net/rand"
)

// unitTriangleAt creates a small triangle in the plane x = offset facing -X
func unitTriangleAt(offset float64, index int) *Triangle {
	return NewTriangle(
		core.NewVec3(offset, 0, 0),
		core.NewVec3(offset, 1, 0),
		core.NewVec3(offset, 0, 1),
		[3]int{3 * index, 3*index + 1, 3*index + 2},
	)
}

func TestBVH_LeafThresholdBoundary(t *testing.T) {
	// Exactly leafThreshold triangles - should create single leaf
	triangles := make([]*Triangle, leafThreshold)
	for i := range triangles {
		triangles[i] = unitTriangleAt(float64(i), i)
	}

	bvh := NewBVH(triangles)
	stats := bvh.Stats()

	if stats.Nodes != 1 {
		t.Errorf("Expected 1 node for %d triangles, got %d", len(triangles), stats.Nodes)
	}
	if stats.Leaves != 1 {
		t.Errorf("Expected 1 leaf node for %d triangles, got %d", len(triangles), stats.Leaves)
	}

	// leafThreshold + 1 triangles - should split
	triangles = append(triangles, unitTriangleAt(float64(leafThreshold), leafThreshold))

	bvh = NewBVH(triangles)
	stats = bvh.Stats()

	if stats.Nodes == 1 {
		t.Errorf("Expected split for %d triangles, but got single node", len(triangles))
	}
	if stats.Leaves < 2 {
		t.Errorf("Expected at least 2 leaf nodes after split, got %d", stats.Leaves)
	}
	if stats.Triangles != len(triangles) {
		t.Errorf("Expected %d triangles in leaves, got %d", len(triangles), stats.Triangles)
	}
}

func TestBVH_Empty(t *testing.T) {
	bvh := NewBVH(nil)
	if bvh.Root != nil {
		t.Error("Expected nil root for empty BVH")
	}

	ray := core.NewRay(core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0))
	if _, isHit := bvh.Hit(ray, 0.001, 1000.0); isHit {
		t.Error("Expected no hit for empty BVH")
	}
	if bvh.HitAny(ray, 0.001, 1000.0) {
		t.Error("Expected no any-hit for empty BVH")
	}
}

func TestBVH_ClosestHitAcrossLeaves(t *testing.T) {
	// A row of parallel triangles; a ray along +X must report the nearest one
	triangles := make([]*Triangle, 40)
	for i := range triangles {
		triangles[i] = unitTriangleAt(float64(i)+1, i)
	}
	bvh := NewBVH(triangles)

	ray := core.NewRay(core.NewVec3(0, 0.2, 0.2), core.NewVec3(1, 0, 0))
	its, ok := bvh.Hit(ray, 0.001, math.Inf(1))
	if !ok {
		t.Fatal("Expected hit")
	}
	if math.Abs(its.T-1) > 1e-9 {
		t.Errorf("Expected closest hit at t=1, got t=%f", its.T)
	}
	if its.Indices != [3]int{0, 1, 2} {
		t.Errorf("Expected first triangle indices, got %v", its.Indices)
	}

	// Starting between triangles picks the next one along the ray
	ray = core.NewRay(core.NewVec3(10.5, 0.2, 0.2), core.NewVec3(1, 0, 0))
	its, ok = bvh.Hit(ray, 0.001, math.Inf(1))
	if !ok || math.Abs(its.T-0.5) > 1e-9 {
		t.Errorf("Expected hit at t=0.5, got t=%f (hit=%v)", its.T, ok)
	}

	// Bounding box hit but every triangle missed
	ray = core.NewRay(core.NewVec3(0, 0.9, 0.9), core.NewVec3(1, 0, 0))
	if _, ok := bvh.Hit(ray, 0.001, math.Inf(1)); ok {
		t.Error("Expected miss outside triangle footprint")
	}
	if bvh.HitAny(ray, 0.001, math.Inf(1)) {
		t.Error("Expected any-hit miss outside triangle footprint")
	}
}

func TestBVH_MatchesBruteForce(t *testing.T) {
	rng := rand.New(7)
	randomPoint := func() core.Vec3 {
		return core.NewVec3(rng.Float64()*4-2, rng.Float64()*4-2, rng.Float64()*4-2)
	}

	triangles := make([]*Triangle, 200)
	for i := range triangles {
		c := randomPoint()
		triangles[i] = NewTriangle(
			c,
			c.Add(randomPoint().Multiply(0.2)),
			c.Add(randomPoint().Multiply(0.2)),
			[3]int{i, i, i},
		)
	}
	bvh := NewBVH(triangles)

	for i := 0; i < 500; i++ {
		ray := core.NewRay(randomPoint(), randomPoint().Normalize())

		expectedT := math.Inf(1)
		expectedHit := false
		for _, tri := range triangles {
			if tHit, _, ok := tri.Hit(ray, 1e-4, expectedT); ok {
				expectedT = tHit
				expectedHit = true
			}
		}

		its, ok := bvh.Hit(ray, 1e-4, math.Inf(1))
		if ok != expectedHit {
			t.Fatalf("ray %d: BVH hit=%v, brute force hit=%v", i, ok, expectedHit)
		}
		if ok && math.Abs(its.T-expectedT) > 1e-9 {
			t.Errorf("ray %d: BVH t=%f, brute force t=%f", i, its.T, expectedT)
		}
		if anyHit := bvh.HitAny(ray, 1e-4, math.Inf(1)); anyHit != expectedHit {
			t.Errorf("ray %d: HitAny=%v, brute force hit=%v", i, anyHit, expectedHit)
		}
	}
}

func TestBVH_IdenticalBoundingBoxes(t *testing.T) {
	// Coincident triangles cannot be split and must stay in one leaf
	triangles := make([]*Triangle, 20)
	for i := range triangles {
		triangles[i] = unitTriangleAt(0, i)
	}

	bvh := NewBVH(triangles)
	stats := bvh.Stats()
	if stats.Leaves != 1 || stats.Triangles != 20 {
		t.Errorf("Expected single leaf with 20 triangles, got %d leaves with %d triangles", stats.Leaves, stats.Triangles)
	}
}
