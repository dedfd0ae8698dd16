package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/df07/go-prt/pkg/core"
	"github.com/df07/go-prt/pkg/geometry"
	"github.com/df07/go-prt/pkg/sh"
	"github.com/pkg/errors"
)

// DefaultReflectance leaves gathered bounce light unscaled
const DefaultReflectance = 1.0

// Solver adds interreflected light to transport coefficients, one bounce per pass
type Solver struct {
	SampleCount int
	Bounces     int
	Seed        uint64
	Workers     int
	Reflectance float64 // Scale on each bounce, 0 means DefaultReflectance; albedo/pi gives a physically scaled Lambertian bounce
	Logger      *slog.Logger
}

// frontBuffer is the transport state at the end of the previous pass.
// Bounce tasks only ever read it.
type frontBuffer struct {
	m Matrix
}

func (f frontBuffer) interpolate(its geometry.Intersection) sh.Coefficients {
	tri := its.Indices
	return sh.Interpolate(f.m[tri[0]], f.m[tri[1]], f.m[tri[2]], its.Barycentric)
}

// passBuffers double-buffers the transport between passes. Tasks write only
// their own extra slot; publish merges front and extra into back and swaps.
type passBuffers struct {
	front frontBuffer
	back  Matrix
	extra []sh.Coefficients
}

func newPassBuffers(direct Matrix) *passBuffers {
	return &passBuffers{
		front: frontBuffer{m: direct.Clone()},
		back:  NewMatrix(len(direct)),
		extra: make([]sh.Coefficients, len(direct)),
	}
}

// publish runs sequentially after every task of a pass has finished
func (b *passBuffers) publish() {
	for i := range b.back {
		b.back[i] = b.front.m[i].Add(b.extra[i])
		b.extra[i] = sh.Coefficients{}
	}
	b.front.m, b.back = b.back, b.front.m
}

// Solve runs Bounces passes over the direct transport and returns the result.
// direct itself is never modified; zero bounces returns an identical copy.
func (s *Solver) Solve(ctx context.Context, mesh *geometry.Mesh, oracle geometry.Oracle, direct Matrix) (Matrix, Stats, error) {
	n := mesh.VertexCount()
	if direct.VertexCount() != n {
		return nil, Stats{}, errors.Wrapf(core.ErrResourceMismatch, "transport has %d columns, mesh has %d vertices", direct.VertexCount(), n)
	}
	if s.Bounces < 0 {
		return nil, Stats{}, errors.Wrapf(core.ErrConfiguration, "bounce count must not be negative, got %d", s.Bounces)
	}
	if s.Bounces > 0 && oracle == nil {
		return nil, Stats{}, errors.Wrap(core.ErrConfiguration, "interreflection needs a visibility oracle")
	}
	if s.Bounces > 0 && s.SampleCount <= 0 {
		return nil, Stats{}, errors.Wrapf(core.ErrConfiguration, "sample count must be positive, got %d", s.SampleCount)
	}

	start := time.Now()
	k := sh.SampleGrid(s.SampleCount)
	stats := Stats{Vertices: n, SamplesPerPass: k * k}
	buffers := newPassBuffers(direct)

	for pass := 1; pass <= s.Bounces; pass++ {
		slots := make([]vertexStats, n)
		err := forEachVertex(ctx, n, s.Workers, s.Logger, "computing interreflection", func(i int) {
			sampler := core.NewRandomSampler(core.StreamSeeds(s.Seed, pass, i)...)
			buffers.extra[i] = s.bounceVertex(mesh.Positions[i], mesh.Normals[i], oracle, buffers.front, sampler, &slots[i])
		})
		if err != nil {
			return nil, Stats{}, err
		}

		buffers.publish()
		stats.Passes++
		stats.merge(slots)

		if s.Logger != nil {
			s.Logger.Info("bounce pass complete", "pass", pass, "of", s.Bounces, "elapsed", time.Since(start))
		}
	}

	stats.countZero(buffers.front.m)
	stats.Elapsed = time.Since(start)
	return buffers.front.m, stats, nil
}

// bounceVertex gathers transport arriving at one vertex from the surfaces it sees
func (s *Solver) bounceVertex(position, normal core.Vec3, oracle geometry.Oracle, front frontBuffer, sampler core.Sampler, stats *vertexStats) sh.Coefficients {
	var extra sh.Coefficients

	k := sh.SampleGrid(s.SampleCount)
	for t := 0; t < k; t++ {
		for p := 0; p < k; p++ {
			_, _, dir := sh.StratifiedDirection(t, p, k, sampler.Get2D())

			cos := dir.Dot(normal)
			if cos <= 0 {
				continue
			}

			stats.rays++
			its, ok := oracle.Intersect(core.NewRay(position, dir))
			if !ok {
				continue
			}
			stats.hits++

			incoming := front.interpolate(its)
			extra = extra.Add(incoming.Scale(cos))
		}
	}

	reflectance := s.Reflectance
	if reflectance == 0 {
		reflectance = DefaultReflectance
	}
	return extra.Scale(sh.SampleWeight(k) * reflectance)
}
