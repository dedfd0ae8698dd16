package renderer

import (
	"math"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
)

// CameraConfig places a pinhole camera
type CameraConfig struct {
	Center      core.Vec3 // Camera position
	LookAt      core.Vec3 // Point the camera faces
	Up          core.Vec3 // World up direction
	Width       int       // Image width in pixels
	AspectRatio float64   // Width / height
	VFov        float64   // Vertical field of view in degrees
}

// Height returns the image height implied by Width and AspectRatio
func (c CameraConfig) Height() int {
	if c.AspectRatio <= 0 {
		return c.Width
	}
	return max(1, int(float64(c.Width)/c.AspectRatio))
}

// FitCamera frames a bounding box from the -Z side, the way the Cornell box is viewed
func FitCamera(box geometry.AABB, width, height int) CameraConfig {
	center := box.Min.Add(box.Max).Multiply(0.5)
	radius := box.Max.Subtract(box.Min).Length() * 0.5
	if radius == 0 {
		radius = 1
	}
	vfov := 40.0
	distance := radius / math.Sin(vfov*math.Pi/360.0)
	return CameraConfig{
		Center:      center.Add(core.NewVec3(0, radius*0.25, -distance)),
		LookAt:      center,
		Up:          core.NewVec3(0, 1, 0),
		Width:       width,
		AspectRatio: float64(width) / float64(max(1, height)),
		VFov:        vfov,
	}
}

// Camera generates rays for rendering
type Camera struct {
	origin          core.Vec3
	lowerLeftCorner core.Vec3
	horizontal      core.Vec3
	vertical        core.Vec3
	forward         core.Vec3
}

// NewCamera creates a look-at camera
func NewCamera(config CameraConfig) *Camera {
	aspectRatio := config.AspectRatio
	if aspectRatio <= 0 {
		aspectRatio = 1
	}
	vfov := config.VFov
	if vfov <= 0 {
		vfov = 40
	}
	up := config.Up
	if up.LengthSquared() == 0 {
		up = core.NewVec3(0, 1, 0)
	}

	viewportHeight := 2.0 * math.Tan(vfov*math.Pi/360.0)
	viewportWidth := aspectRatio * viewportHeight

	// Orthonormal basis: w points backward, u right, v up
	w := config.Center.Subtract(config.LookAt).Normalize()
	u := up.Cross(w).Normalize()
	v := w.Cross(u)

	origin := config.Center
	horizontal := u.Multiply(viewportWidth)
	vertical := v.Multiply(viewportHeight)
	lowerLeftCorner := origin.Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w)

	return &Camera{
		origin:          origin,
		horizontal:      horizontal,
		vertical:        vertical,
		lowerLeftCorner: lowerLeftCorner,
		forward:         w.Negate(),
	}
}

// GetRay generates a ray for screen coordinates (s, t) where 0 <= s,t <= 1
// and t = 0 is the bottom of the image
func (c *Camera) GetRay(s, t float64) core.Ray {
	direction := c.lowerLeftCorner.
		Add(c.horizontal.Multiply(s)).
		Add(c.vertical.Multiply(t)).
		Subtract(c.origin)

	return core.NewRay(c.origin, direction.Normalize())
}

// GetCameraForward returns the unit viewing direction
func (c *Camera) GetCameraForward() core.Vec3 {
	return c.forward
}
