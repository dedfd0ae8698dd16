// Package envmap projects cubemap environment lighting onto spherical harmonics.
package envmap

import (
	"context"
	"math"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/loaders"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gocloud.dev/blob"
)

// Face identifies one side of a cubemap. Values follow file order.
type Face int

const (
	NegX Face = iota
	PosX
	PosY
	NegY
	PosZ
	NegZ
)

// FaceCount is the number of cubemap faces
const FaceCount = 6

// DefaultExt is the face file extension used when none is configured
const DefaultExt = ".jpg"

var faceNames = [FaceCount]string{"negx", "posx", "posy", "negy", "posz", "negz"}

// String returns the face file stem, e.g. "posx"
func (f Face) String() string {
	if f < 0 || f >= FaceCount {
		return "invalid"
	}
	return faceNames[f]
}

// FaceBasis is the orthonormal frame of a face. Right follows increasing
// image columns, Up follows increasing image rows, Forward points at the face center.
type FaceBasis struct {
	Right, Up, Forward core.Vec3
	frame              mgl64.Mat3 // columns Right, Up, Forward
}

func newFaceBasis(right, up, forward mgl64.Vec3) FaceBasis {
	return FaceBasis{
		Right:   core.NewVec3(right[0], right[1], right[2]),
		Up:      core.NewVec3(up[0], up[1], up[2]),
		Forward: core.NewVec3(forward[0], forward[1], forward[2]),
		frame:   mgl64.Mat3FromCols(right, up, forward),
	}
}

// ToWorld maps face-local (s, t) in [-1,1]^2 to a unit world direction
func (b FaceBasis) ToWorld(s, t float64) core.Vec3 {
	d := b.frame.Mul3x1(mgl64.Vec3{s, t, 1}).Normalize()
	return core.NewVec3(d[0], d[1], d[2])
}

// ToLocal maps a world direction into the face frame (s, t, forward component)
func (b FaceBasis) ToLocal(dir core.Vec3) mgl64.Vec3 {
	return b.frame.Transpose().Mul3x1(mgl64.Vec3{dir.X, dir.Y, dir.Z})
}

// faceBases uses the OpenGL cubemap convention, indexed by Face
var faceBases = [FaceCount]FaceBasis{
	NegX: newFaceBasis(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{-1, 0, 0}),
	PosX: newFaceBasis(mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{1, 0, 0}),
	PosY: newFaceBasis(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0}),
	NegY: newFaceBasis(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, -1, 0}),
	PosZ: newFaceBasis(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, 0, 1}),
	NegZ: newFaceBasis(mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, 0, -1}),
}

// Basis returns the frame of a face
func (f Face) Basis() FaceBasis {
	return faceBases[f]
}

// Cubemap is six square faces of identical resolution
type Cubemap struct {
	Faces [FaceCount]*loaders.Image
	Size  int // Width and height of every face
}

// NewCubemap validates that all six faces share width, height, and channel count
func NewCubemap(faces [FaceCount]*loaders.Image) (*Cubemap, error) {
	for f, img := range faces {
		if img == nil {
			return nil, errors.Wrapf(core.ErrResourceLoad, "face %s missing", Face(f))
		}
	}

	first := faces[0]
	if first.Width != first.Height || first.Width == 0 {
		return nil, errors.Wrapf(core.ErrResourceMismatch, "face %s is %dx%d, faces must be square", Face(0), first.Width, first.Height)
	}
	for f, img := range faces[1:] {
		face := Face(f + 1)
		if img.Width != first.Width || img.Height != first.Height {
			return nil, errors.Wrapf(core.ErrResourceMismatch, "face %s is %dx%d, face %s is %dx%d",
				face, img.Width, img.Height, Face(0), first.Width, first.Height)
		}
		if img.Channels != first.Channels {
			return nil, errors.Wrapf(core.ErrResourceMismatch, "face %s has %d channels, face %s has %d",
				face, img.Channels, Face(0), first.Channels)
		}
	}

	return &Cubemap{Faces: faces, Size: first.Width}, nil
}

// NewUniformCubemap creates a cubemap with the same radiance in every direction
func NewUniformCubemap(size int, radiance core.Vec3) *Cubemap {
	var faces [FaceCount]*loaders.Image
	for f := range faces {
		faces[f] = loaders.NewUniformImage(size, size, radiance)
	}
	return &Cubemap{Faces: faces, Size: size}
}

// LoadOptions control how face files are located and decoded
type LoadOptions struct {
	Ext   string  // Face file extension, DefaultExt when empty
	Gamma float64 // Linearization exponent for encoded images
}

// FaceKey returns the object key of a face file, e.g. "negx.jpg"
func FaceKey(f Face, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	return f.String() + ext
}

// LoadCubemap reads and decodes the six face files from a bucket
func LoadCubemap(ctx context.Context, bucket *blob.Bucket, opts LoadOptions) (*Cubemap, error) {
	var faces [FaceCount]*loaders.Image
	for f := range faces {
		key := FaceKey(Face(f), opts.Ext)
		img, err := loadFace(ctx, bucket, key, opts.Gamma)
		if err != nil {
			return nil, err
		}
		faces[f] = img
	}
	return NewCubemap(faces)
}

func loadFace(ctx context.Context, bucket *blob.Bucket, key string, gamma float64) (*loaders.Image, error) {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, errors.Wrapf(core.ErrResourceLoad, "open face %s: %v", key, err)
	}
	defer r.Close()

	img, err := loaders.DecodeImage(r, gamma)
	if err != nil {
		return nil, errors.Wrapf(err, "face %s", key)
	}
	return img, nil
}

// TexelDirection returns the unit world direction through the center of texel (x, y) of a face
func (cm *Cubemap) TexelDirection(face Face, x, y int) core.Vec3 {
	s := 2*(float64(x)+0.5)/float64(cm.Size) - 1
	t := 2*(float64(y)+0.5)/float64(cm.Size) - 1
	return face.Basis().ToWorld(s, t)
}

// areaElement is the solid angle subtended by the face rectangle from the center to (x, y)
func areaElement(x, y float64) float64 {
	return math.Atan2(x*y, math.Sqrt(x*x+y*y+1))
}

// TexelSolidAngle returns the solid angle covered by texel (x, y) of a w x h face
func TexelSolidAngle(x, y, w, h int) float64 {
	x0 := 2*float64(x)/float64(w) - 1
	x1 := 2*float64(x+1)/float64(w) - 1
	y0 := 2*float64(y)/float64(h) - 1
	y1 := 2*float64(y+1)/float64(h) - 1
	return areaElement(x0, y0) - areaElement(x0, y1) - areaElement(x1, y0) + areaElement(x1, y1)
}

// Lookup returns the radiance of the texel a direction passes through
func (cm *Cubemap) Lookup(dir core.Vec3) core.Vec3 {
	face := majorFace(dir)
	local := face.Basis().ToLocal(dir)
	if local[2] <= 0 {
		return core.Vec3{}
	}
	s := local[0] / local[2]
	t := local[1] / local[2]

	x := min(cm.Size-1, max(0, int((s+1)*0.5*float64(cm.Size))))
	y := min(cm.Size-1, max(0, int((t+1)*0.5*float64(cm.Size))))
	return cm.Faces[face].At(x, y)
}

// majorFace selects the face whose axis has the largest component of dir
func majorFace(dir core.Vec3) Face {
	ax, ay, az := math.Abs(dir.X), math.Abs(dir.Y), math.Abs(dir.Z)
	switch {
	case ax >= ay && ax >= az:
		if dir.X >= 0 {
			return PosX
		}
		return NegX
	case ay >= az:
		if dir.Y >= 0 {
			return PosY
		}
		return NegY
	default:
		if dir.Z >= 0 {
			return PosZ
		}
		return NegZ
	}
}
