package transport

import (
	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/sh"
	"github.com/pkg/errors"
)

// Matrix holds one transport coefficient vector per mesh vertex: a 9 x N matrix
// stored column by column. Column i belongs to mesh vertex i.
type Matrix []sh.Coefficients

// NewMatrix creates a zeroed matrix for n vertices
func NewMatrix(n int) Matrix {
	return make(Matrix, n)
}

// VertexCount returns the number of columns
func (m Matrix) VertexCount() int {
	return len(m)
}

// At returns the coefficients of vertex i
func (m Matrix) At(i int) (sh.Coefficients, error) {
	if i < 0 || i >= len(m) {
		return sh.Coefficients{}, errors.Wrapf(core.ErrIndex, "vertex %d out of range [0, %d)", i, len(m))
	}
	return m[i], nil
}

// Interpolate blends the columns of a triangle's vertices with barycentric weights
func (m Matrix) Interpolate(tri [3]int, bary core.Vec3) (sh.Coefficients, error) {
	for _, idx := range tri {
		if idx < 0 || idx >= len(m) {
			return sh.Coefficients{}, errors.Wrapf(core.ErrIndex, "vertex %d out of range [0, %d)", idx, len(m))
		}
	}
	return sh.Interpolate(m[tri[0]], m[tri[1]], m[tri[2]], bary), nil
}

// Clone returns an independent copy
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	copy(out, m)
	return out
}
