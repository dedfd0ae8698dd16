package sh

import (
	"github.com/df07/go-prt/pkg/core"
)

// Coefficients is a scalar SH coefficient vector, one entry per basis function
type Coefficients [CoefficientCount]float64

// Add returns the element-wise sum of two coefficient vectors
func (c Coefficients) Add(other Coefficients) Coefficients {
	for i := range c {
		c[i] += other[i]
	}
	return c
}

// Scale returns the coefficient vector multiplied by s
func (c Coefficients) Scale(s float64) Coefficients {
	for i := range c {
		c[i] *= s
	}
	return c
}

// Dot returns the inner product of two coefficient vectors
func (c Coefficients) Dot(other Coefficients) float64 {
	sum := 0.0
	for i := range c {
		sum += c[i] * other[i]
	}
	return sum
}

// Interpolate blends three coefficient vectors with barycentric weights (bary.X for a, bary.Y for b, bary.Z for c)
func Interpolate(a, b, c Coefficients, bary core.Vec3) Coefficients {
	var out Coefficients
	for i := range out {
		out[i] = a[i]*bary.X + b[i]*bary.Y + c[i]*bary.Z
	}
	return out
}

// Reconstruct evaluates the function represented by c in direction dir
func Reconstruct(c Coefficients, dir core.Vec3) float64 {
	return c.Dot(EvalAll(dir))
}

// LightCoefficients holds one coefficient vector per color channel (R, G, B): a 3x9 matrix
type LightCoefficients [3]Coefficients

// NewLightCoefficients transposes per-coefficient RGB triples into channel rows
func NewLightCoefficients(rgb [CoefficientCount]core.Vec3) LightCoefficients {
	var lc LightCoefficients
	for i, c := range rgb {
		lc[0][i] = c.X
		lc[1][i] = c.Y
		lc[2][i] = c.Z
	}
	return lc
}

// Coefficient returns the RGB triple stored for basis function i
func (lc LightCoefficients) Coefficient(i int) core.Vec3 {
	return core.NewVec3(lc[0][i], lc[1][i], lc[2][i])
}

// Dot returns the per-channel inner product with a transport vector
func (lc LightCoefficients) Dot(transport Coefficients) core.Vec3 {
	return core.NewVec3(lc[0].Dot(transport), lc[1].Dot(transport), lc[2].Dot(transport))
}
