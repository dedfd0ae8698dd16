package sh

import (
	"math"
	"testing"

	"github.com/df07/go-prt/pkg/core"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestSampleGrid(t *testing.T) {
	assert.Equal(t, 10, SampleGrid(100))
	assert.Equal(t, 10, SampleGrid(120))
	assert.Equal(t, 31, SampleGrid(1000))
	assert.Equal(t, 0, SampleGrid(0))
	assert.Equal(t, 0, SampleGrid(-4))
	assert.Zero(t, SampleWeight(0))
}

func TestStratifiedDirection_StaysInStratum(t *testing.T) {
	const k = 4
	for tIdx := 0; tIdx < k; tIdx++ {
		for p := 0; p < k; p++ {
			phi, theta, dir := StratifiedDirection(tIdx, p, k, core.NewVec2(0.5, 0.5))

			assert.InDelta(t, 1.0, dir.Length(), 1e-12)
			assert.InDelta(t, 2*math.Pi*(float64(p)+0.5)/k, phi, 1e-12)

			// cos(theta) is uniform, so the stratum bounds are on 2a-1
			cosTheta := math.Cos(theta)
			lo := 2*float64(tIdx)/k - 1
			hi := 2*float64(tIdx+1)/k - 1
			assert.True(t, cosTheta >= lo-1e-12 && cosTheta <= hi+1e-12, "cos(theta)=%f outside [%f,%f]", cosTheta, lo, hi)
		}
	}
}

// TestProjectFunction_Orthonormality projects each basis function and
// expects the Kronecker delta back: the integral of Y_i * Y_j over the sphere.
func TestProjectFunction_Orthonormality(t *testing.T) {
	const samples = 200 * 200
	const tolerance = 0.01

	for j := 0; j < CoefficientCount; j++ {
		basisJ := func(dir core.Vec3) float64 {
			return EvalAll(dir)[j]
		}
		coeffs := ProjectFunction(basisJ, samples, core.NewRandomSampler(7, uint64(j)))

		for i := 0; i < CoefficientCount; i++ {
			expected := 0.0
			if i == j {
				expected = 1.0
			}
			assert.InDelta(t, expected, coeffs[i], tolerance, "<Y_%d, Y_%d>", i, j)
		}
	}
}

func TestProjectFunction_Constant(t *testing.T) {
	coeffs := ProjectFunction(func(core.Vec3) float64 { return 1 }, 10000, core.NewRandomSampler(1))

	// Every sample sees Y_0 exactly, so the DC term is exact
	assert.InDelta(t, math.Sqrt(4*math.Pi), coeffs[0], 1e-9)
	for i := 1; i < CoefficientCount; i++ {
		assert.InDelta(t, 0, coeffs[i], 0.01, "coefficient %d", i)
	}
}

func TestProjectFunction_ClampedCosine(t *testing.T) {
	cosine := func(dir core.Vec3) float64 {
		return max(0, dir.Z)
	}
	coeffs := ProjectFunction(cosine, 250*250, core.NewRandomSampler(3))

	expected := Coefficients{}
	expected[0] = math.Pi * y00
	expected[2] = 2 * math.Pi / 3 * y1
	expected[6] = math.Pi / 2 * y20

	if diff := cmp.Diff(expected, coeffs, cmpopts.EquateApprox(0, 5e-3)); diff != "" {
		t.Errorf("clamped cosine projection mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectFunction_Reconstruct(t *testing.T) {
	var target Coefficients
	target[0] = 0.7
	target[3] = -0.2
	target[8] = 0.4

	f := func(dir core.Vec3) float64 { return Reconstruct(target, dir) }
	coeffs := ProjectFunction(f, 200*200, core.NewRandomSampler(11))

	if diff := cmp.Diff(target, coeffs, cmpopts.EquateApprox(0, 0.01)); diff != "" {
		t.Errorf("band-limited function did not round trip (-want +got):\n%s", diff)
	}
}

func TestProjectFunction_SeededIsReproducible(t *testing.T) {
	f := func(dir core.Vec3) float64 { return max(0, dir.X+0.3*dir.Y) }

	a := ProjectFunction(f, 100, core.NewRandomSampler(5))
	b := ProjectFunction(f, 100, core.NewRandomSampler(5))
	assert.Equal(t, a, b)

	// A different seed stays within Monte-Carlo error of the first
	c := ProjectFunction(f, 100, core.NewRandomSampler(6))
	if diff := cmp.Diff(a, c, cmpopts.EquateApprox(0, 0.15)); diff != "" {
		t.Errorf("independent seeds differ more than the sampling bound (-a +c):\n%s", diff)
	}
}

func TestLightCoefficients_Dot(t *testing.T) {
	var rgb [CoefficientCount]core.Vec3
	rgb[0] = core.NewVec3(1, 2, 3)
	rgb[4] = core.NewVec3(0.5, 0, -1)
	lc := NewLightCoefficients(rgb)

	assert.Equal(t, rgb[4], lc.Coefficient(4))

	var transport Coefficients
	transport[0] = 2
	transport[4] = 4
	got := lc.Dot(transport)
	assert.InDelta(t, 4.0, got.X, 1e-12)
	assert.InDelta(t, 4.0, got.Y, 1e-12)
	assert.InDelta(t, 2.0, got.Z, 1e-12)
}

func TestInterpolate_Idempotent(t *testing.T) {
	c := Coefficients{1, -2, 3, 0.25, 5, 6, -7, 8, 9}
	bary := core.NewVec3(0.2, 0.3, 0.5)

	got := Interpolate(c, c, c, bary)
	if diff := cmp.Diff(c, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("interpolating identical vectors changed them (-want +got):\n%s", diff)
	}

	vertexA := Interpolate(c, Coefficients{}, Coefficients{}, core.NewVec3(1, 0, 0))
	assert.Equal(t, c, vertexA)
}
