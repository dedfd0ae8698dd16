// Package prt reconstructs shading from precomputed light and transport coefficients.
package prt

import (
	"math"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/df07/go-prt/pkg/sh"
	"github.com/df07/go-prt/pkg/transport"
	"github.com/pkg/errors"
)

// DefaultAlbedo is the diffuse reflectance used by Shade when none is configured
const DefaultAlbedo = 0.5

// Evaluator answers per-ray radiance queries with one dot product per channel
type Evaluator struct {
	Light     sh.LightCoefficients
	Transport transport.Matrix
	Scene     geometry.Oracle
	Albedo    core.Vec3 // Diffuse reflectance applied by Shade
}

// NewEvaluator checks that the transport matrix has one column per mesh vertex
func NewEvaluator(light sh.LightCoefficients, t transport.Matrix, scene *geometry.Scene, albedo core.Vec3) (*Evaluator, error) {
	if scene == nil || scene.Mesh == nil {
		return nil, errors.Wrap(core.ErrConfiguration, "evaluator needs a scene")
	}
	if t.VertexCount() != scene.Mesh.VertexCount() {
		return nil, errors.Wrapf(core.ErrResourceMismatch, "transport has %d columns, mesh has %d vertices",
			t.VertexCount(), scene.Mesh.VertexCount())
	}
	return &Evaluator{Light: light, Transport: t, Scene: scene, Albedo: albedo}, nil
}

// Radiance intersects the ray with the scene and returns the per-channel dot
// product of the light coefficients with the interpolated transport at the hit.
// A miss returns zero and false, as does a hit whose transport cannot be
// interpolated; Evaluate reports that case as an error.
func (e *Evaluator) Radiance(ray core.Ray) (core.Vec3, bool) {
	radiance, ok, err := e.Evaluate(ray)
	if err != nil {
		return core.Vec3{}, false
	}
	return radiance, ok
}

// Evaluate is Radiance with a core.ErrIndex failure returned when the hit
// triangle references a vertex the transport matrix does not cover
func (e *Evaluator) Evaluate(ray core.Ray) (core.Vec3, bool, error) {
	its, ok := e.Scene.Intersect(ray)
	if !ok {
		return core.Vec3{}, false, nil
	}
	t, err := e.Transport.Interpolate(its.Indices, its.Barycentric)
	if err != nil {
		return core.Vec3{}, false, errors.Wrap(err, "interpolate transport at hit")
	}
	return e.Light.Dot(t), true, nil
}

// Shade returns Lambertian outgoing radiance: Radiance scaled by albedo/pi
func (e *Evaluator) Shade(ray core.Ray) (core.Vec3, bool) {
	radiance, ok := e.Radiance(ray)
	if !ok {
		return core.Vec3{}, false
	}
	return e.Outgoing(radiance), true
}

// Outgoing converts evaluated radiance into Lambertian outgoing radiance
func (e *Evaluator) Outgoing(radiance core.Vec3) core.Vec3 {
	return radiance.MultiplyVec(e.Albedo).Multiply(1 / math.Pi)
}

// VertexRadiance returns the dot product at a single vertex
func (e *Evaluator) VertexRadiance(i int) (core.Vec3, error) {
	t, err := e.Transport.At(i)
	if err != nil {
		return core.Vec3{}, err
	}
	return e.Light.Dot(t), nil
}
