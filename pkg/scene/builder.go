package scene

import (
	"math"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/df07/go-prt/pkg/renderer"
)

// meshBuilder accumulates vertices and triangles. Flat primitives get their own
// vertices so normals are not averaged across creases.
type meshBuilder struct {
	positions []core.Vec3
	normals   []core.Vec3
	faces     []int
}

func (b *meshBuilder) addVertex(p, n core.Vec3) int {
	b.positions = append(b.positions, p)
	b.normals = append(b.normals, n)
	return len(b.positions) - 1
}

// addTriangle adds a flat triangle; the normal follows the winding (p1-p0) x (p2-p0)
func (b *meshBuilder) addTriangle(p0, p1, p2 core.Vec3) {
	n := p1.Subtract(p0).Cross(p2.Subtract(p0)).Normalize()
	i0 := b.addVertex(p0, n)
	i1 := b.addVertex(p1, n)
	i2 := b.addVertex(p2, n)
	b.faces = append(b.faces, i0, i1, i2)
}

// addQuad adds the parallelogram corner, corner+u, corner+u+v, corner+v facing u x v
func (b *meshBuilder) addQuad(corner, u, v core.Vec3) {
	n := u.Cross(v).Normalize()
	i0 := b.addVertex(corner, n)
	i1 := b.addVertex(corner.Add(u), n)
	i2 := b.addVertex(corner.Add(u).Add(v), n)
	i3 := b.addVertex(corner.Add(v), n)
	b.faces = append(b.faces, i0, i1, i2, i0, i2, i3)
}

// addGroundQuad adds a horizontal square centered at the given point facing +Y
func (b *meshBuilder) addGroundQuad(center core.Vec3, size float64) {
	// Edge vectors: u along Z, v along X so that u x v = (0, size², 0)
	corner := core.NewVec3(center.X-size/2, center.Y, center.Z-size/2)
	b.addQuad(corner, core.NewVec3(0, 0, size), core.NewVec3(size, 0, 0))
}

// addBox adds an axis-aligned box with outward-facing sides
func (b *meshBuilder) addBox(lo, hi core.Vec3) {
	d := hi.Subtract(lo)
	dx, dy, dz := core.NewVec3(d.X, 0, 0), core.NewVec3(0, d.Y, 0), core.NewVec3(0, 0, d.Z)

	b.addQuad(core.NewVec3(hi.X, lo.Y, lo.Z), dy, dz) // +X
	b.addQuad(lo, dz, dy)                             // -X
	b.addQuad(core.NewVec3(lo.X, hi.Y, lo.Z), dz, dx) // +Y
	b.addQuad(lo, dx, dz)                             // -Y
	b.addQuad(core.NewVec3(lo.X, lo.Y, hi.Z), dx, dy) // +Z
	b.addQuad(lo, dy, dx)                             // -Z
}

// addSphere adds a UV sphere with smooth outward normals
func (b *meshBuilder) addSphere(center core.Vec3, radius float64, stacks, slices int) {
	point := func(theta, phi float64) (core.Vec3, core.Vec3) {
		n := core.NewVec3(math.Sin(theta)*math.Cos(phi), math.Cos(theta), math.Sin(theta)*math.Sin(phi))
		return center.Add(n.Multiply(radius)), n
	}

	north := b.addVertex(center.Add(core.NewVec3(0, radius, 0)), core.NewVec3(0, 1, 0))
	rings := make([][]int, stacks-1)
	for i := range rings {
		theta := math.Pi * float64(i+1) / float64(stacks)
		rings[i] = make([]int, slices)
		for j := range rings[i] {
			p, n := point(theta, 2*math.Pi*float64(j)/float64(slices))
			rings[i][j] = b.addVertex(p, n)
		}
	}
	south := b.addVertex(center.Add(core.NewVec3(0, -radius, 0)), core.NewVec3(0, -1, 0))

	for j := 0; j < slices; j++ {
		next := (j + 1) % slices
		b.faces = append(b.faces, north, rings[0][next], rings[0][j])
		for i := 0; i+1 < len(rings); i++ {
			a, c := rings[i][j], rings[i+1][j]
			bb, d := rings[i][next], rings[i+1][next]
			b.faces = append(b.faces, a, bb, d, a, d, c)
		}
		last := rings[len(rings)-1]
		b.faces = append(b.faces, south, last[j], last[next])
	}
}

func (b *meshBuilder) scene(name string, camera renderer.CameraConfig) (*Scene, error) {
	mesh, err := geometry.NewMesh(b.positions, b.normals, b.faces)
	if err != nil {
		return nil, err
	}
	return &Scene{Name: name, Mesh: mesh, Camera: camera}, nil
}
