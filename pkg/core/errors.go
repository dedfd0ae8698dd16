package core

import (
	"github.com/pkg/errors"
)

// Error kinds shared by every stage of a bake. Stages wrap these with context;
// callers classify failures with errors.Is.
var (
	// ErrConfiguration reports an unsupported or invalid setting, such as an unknown transport mode
	ErrConfiguration = errors.New("configuration error")

	// ErrResourceLoad reports an input (cubemap face, mesh, coefficient file) that could not be read or decoded
	ErrResourceLoad = errors.New("resource load error")

	// ErrResourceMismatch reports inputs that are individually valid but inconsistent with each other
	ErrResourceMismatch = errors.New("resource mismatch")

	// ErrIndex reports a vertex, triangle, or SH index outside its declared bounds
	ErrIndex = errors.New("index out of range")
)
