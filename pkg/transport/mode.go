// Package transport projects per-vertex light transport onto spherical
// harmonics and refines it with interreflection bounces.
package transport

import (
	"github.com/df07/go-prt/pkg/core"
	"github.com/pkg/errors"
)

// Mode selects which light transport is projected
type Mode int

const (
	// Unshadowed transport is the clamped cosine with no visibility test
	Unshadowed Mode = iota
	// Shadowed transport zeroes directions blocked by scene geometry
	Shadowed
	// Interreflection is shadowed transport plus indirect bounces
	Interreflection
)

var modeNames = map[Mode]string{
	Unshadowed:      "unshadowed",
	Shadowed:        "shadowed",
	Interreflection: "interreflection",
}

// ParseMode converts a configuration string into a Mode. Only the exact
// lowercase names are accepted.
func ParseMode(s string) (Mode, error) {
	for mode, modeName := range modeNames {
		if s == modeName {
			return mode, nil
		}
	}
	return Unshadowed, errors.Wrapf(core.ErrConfiguration, "unsupported type: %q", s)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// NeedsVisibility reports whether the mode queries the scene
func (m Mode) NeedsVisibility() bool {
	return m == Shadowed || m == Interreflection
}
