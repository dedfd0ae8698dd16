// Package sh implements the real spherical harmonics basis used for
// precomputed radiance transfer. The order is fixed at 2 (nine coefficients),
// which is enough to represent diffuse transfer.
package sh

import (
	"math"

	"github.com/df07/go-prt/pkg/core"
	"github.com/pkg/errors"
)

const (
	// Order is the highest band l stored in a coefficient vector
	Order = 2

	// CoefficientCount is the number of basis functions up to Order, (Order+1)^2
	CoefficientCount = (Order + 1) * (Order + 1)
)

// Normalization constants of the real SH basis, band by band.
const (
	y00  = 0.282094791773878140 // 1/2 sqrt(1/pi)
	y1   = 0.488602511902919920 // sqrt(3/(4pi))
	y2n2 = 1.092548430592079200 // 1/2 sqrt(15/pi)
	y20  = 0.315391565252520050 // 1/4 sqrt(5/pi)
	y22  = 0.546274215296039590 // 1/4 sqrt(15/pi)
)

// Index maps a band l and order m to a position in a coefficient vector.
func Index(l, m int) (int, error) {
	if l < 0 || l > Order || m < -l || m > l {
		return 0, errors.Wrapf(core.ErrIndex, "invalid SH index (l=%d, m=%d) for order %d", l, m, Order)
	}
	return l*(l+1) + m, nil
}

// Eval evaluates the basis function Y_lm in direction dir.
// dir does not need to be normalized. A zero-length direction yields 0 for every l > 0.
func Eval(l, m int, dir core.Vec3) (float64, error) {
	i, err := Index(l, m)
	if err != nil {
		return 0, err
	}
	return evalIndex(i, dir.Normalize()), nil
}

// EvalAll evaluates all basis functions in direction dir
func EvalAll(dir core.Vec3) Coefficients {
	d := dir.Normalize()
	x, y, z := d.X, d.Y, d.Z

	return Coefficients{
		y00,
		-y1 * y,
		y1 * z,
		-y1 * x,
		y2n2 * x * y,
		-y2n2 * y * z,
		y20 * (-x*x - y*y + 2*z*z),
		-y2n2 * x * z,
		y22 * (x*x - y*y),
	}
}

// evalIndex evaluates a single basis function for a unit direction
func evalIndex(i int, d core.Vec3) float64 {
	x, y, z := d.X, d.Y, d.Z
	switch i {
	case 0:
		return y00
	case 1:
		return -y1 * y
	case 2:
		return y1 * z
	case 3:
		return -y1 * x
	case 4:
		return y2n2 * x * y
	case 5:
		return -y2n2 * y * z
	case 6:
		return y20 * (-x*x - y*y + 2*z*z)
	case 7:
		return -y2n2 * x * z
	default:
		return y22 * (x*x - y*y)
	}
}

// DirectionFromAngles converts spherical coordinates to a unit direction.
// phi is the azimuth around +Z, theta the polar angle from +Z.
func DirectionFromAngles(phi, theta float64) core.Vec3 {
	r := math.Sin(theta)
	return core.NewVec3(r*math.Cos(phi), r*math.Sin(phi), math.Cos(theta))
}

// AnglesFromDirection is the inverse of DirectionFromAngles.
// phi is returned in [0, 2pi) and theta in [0, pi].
func AnglesFromDirection(dir core.Vec3) (phi, theta float64) {
	d := dir.Normalize()
	theta = math.Acos(max(-1, min(1, d.Z)))
	phi = math.Atan2(d.Y, d.X)
	if phi < 0 {
		phi += 2 * math.Pi
	}
	return phi, theta
}
