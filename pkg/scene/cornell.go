package scene

import (
	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/renderer"
)

// cornellSize is the edge length of the standard 555 unit Cornell box
const cornellSize = 555.0

// NewCornellScene creates a classic Cornell box with inward-facing quad walls,
// open at z=0 so environment light enters through the front
func NewCornellScene() (*Scene, error) {
	config := renderer.CameraConfig{
		Center:      core.NewVec3(278, 278, -800), // Position camera outside the box looking in
		LookAt:      core.NewVec3(278, 278, 0),    // Look at the center of the box
		Up:          core.NewVec3(0, 1, 0),        // Standard up direction
		Width:       400,
		AspectRatio: 1.0,  // Square aspect ratio for Cornell box
		VFov:        40.0, // Field of view
	}

	s := cornellSize
	b := &meshBuilder{}

	// Floor - XZ plane at y=0, facing up
	b.addQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, s), core.NewVec3(s, 0, 0))

	// Ceiling - XZ plane at y=s, facing down
	b.addQuad(core.NewVec3(0, s, 0), core.NewVec3(s, 0, 0), core.NewVec3(0, 0, s))

	// Back wall - XY plane at z=s, facing the camera
	b.addQuad(core.NewVec3(0, 0, s), core.NewVec3(0, s, 0), core.NewVec3(s, 0, 0))

	// Left wall - YZ plane at x=0, facing +X
	b.addQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, s, 0), core.NewVec3(0, 0, s))

	// Right wall - YZ plane at x=s, facing -X
	b.addQuad(core.NewVec3(s, 0, 0), core.NewVec3(0, 0, s), core.NewVec3(0, s, 0))

	// Short and tall blocks
	b.addBox(core.NewVec3(130, 0, 65), core.NewVec3(295, 165, 230))
	b.addBox(core.NewVec3(265, 0, 295), core.NewVec3(430, 330, 460))

	return b.scene("cornell", config)
}

// NewSphereScene creates a sphere resting on a ground quad, showing contact shadowing
func NewSphereScene() (*Scene, error) {
	config := renderer.CameraConfig{
		Center:      core.NewVec3(0, 2, 4), // Slightly above, looking down at the contact point
		LookAt:      core.NewVec3(0, 0.5, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 1.0,
		VFov:        45.0,
	}

	b := &meshBuilder{}
	b.addGroundQuad(core.NewVec3(0, 0, 0), 6)
	b.addSphere(core.NewVec3(0, 0.5, 0), 0.5, 16, 32)
	return b.scene("sphere", config)
}
