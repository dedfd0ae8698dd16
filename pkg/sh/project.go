package sh

import (
	"math"

	"github.com/df07/go-prt/pkg/core"
)

// SampleGrid returns the side k of the k x k stratified grid used for a
// requested sample count. The effective number of samples is k*k, which is
// what every Monte-Carlo estimate in this repository divides by.
func SampleGrid(sampleCount int) int {
	if sampleCount <= 0 {
		return 0
	}
	return int(math.Floor(math.Sqrt(float64(sampleCount))))
}

// SampleWeight is the Monte-Carlo weight of one sample on a k x k grid:
// the area of the unit sphere divided by the number of samples.
func SampleWeight(k int) float64 {
	if k <= 0 {
		return 0
	}
	return 4 * math.Pi / float64(k*k)
}

// StratifiedDirection maps a jittered sample in stratum (t, p) of a k x k
// grid to a uniformly distributed direction on the sphere.
// theta = acos(2a-1) keeps samples from clustering at the poles.
func StratifiedDirection(t, p, k int, jitter core.Vec2) (phi, theta float64, dir core.Vec3) {
	alpha := (float64(t) + jitter.X) / float64(k)
	beta := (float64(p) + jitter.Y) / float64(k)

	phi = 2 * math.Pi * beta
	theta = math.Acos(max(-1, min(1, 2*alpha-1)))
	return phi, theta, DirectionFromAngles(phi, theta)
}

// ProjectFunction projects a spherical function onto the SH basis using
// stratified Monte-Carlo integration:
//
//	c_i = 4pi/(k*k) * sum_j f(d_j) Y_i(d_j)
func ProjectFunction(f func(dir core.Vec3) float64, sampleCount int, sampler core.Sampler) Coefficients {
	var coeffs Coefficients

	k := SampleGrid(sampleCount)
	if k == 0 {
		return coeffs
	}

	for t := 0; t < k; t++ {
		for p := 0; p < k; p++ {
			_, _, dir := StratifiedDirection(t, p, k, sampler.Get2D())

			value := f(dir)
			if value == 0 || math.IsNaN(value) {
				continue
			}

			basis := EvalAll(dir)
			for i := range coeffs {
				coeffs[i] += value * basis[i]
			}
		}
	}

	return coeffs.Scale(SampleWeight(k))
}
