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

// Projector computes the direct transport coefficients of every mesh vertex
type Projector struct {
	Mode        Mode
	SampleCount int    // Requested samples; the stratified grid uses floor(sqrt)^2 of them
	Seed        uint64 // Root of every per-vertex random stream
	Workers     int    // Vertices in flight; 0 uses every CPU
	Logger      *slog.Logger
}

// Project evaluates the transport function at every vertex and projects it onto the SH basis.
// The oracle may be nil for Unshadowed transport.
func (p *Projector) Project(ctx context.Context, mesh *geometry.Mesh, oracle geometry.Oracle) (Matrix, Stats, error) {
	if p.Mode.NeedsVisibility() && oracle == nil {
		return nil, Stats{}, errors.Wrapf(core.ErrConfiguration, "%s transport needs a visibility oracle", p.Mode)
	}
	if p.SampleCount <= 0 {
		return nil, Stats{}, errors.Wrapf(core.ErrConfiguration, "sample count must be positive, got %d", p.SampleCount)
	}

	start := time.Now()
	n := mesh.VertexCount()
	out := NewMatrix(n)
	slots := make([]vertexStats, n)
	k := sh.SampleGrid(p.SampleCount)

	err := forEachVertex(ctx, n, p.Workers, p.Logger, "projecting transport", func(i int) {
		sampler := core.NewRandomSampler(core.StreamSeeds(p.Seed, 0, i)...)
		out[i] = p.projectVertex(mesh.Positions[i], mesh.Normals[i], oracle, sampler, &slots[i])
	})
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Vertices: n, Passes: 1, SamplesPerPass: k * k}
	stats.merge(slots)
	stats.countZero(out)
	stats.Elapsed = time.Since(start)

	if p.Logger != nil {
		p.Logger.Info("projected transport",
			"mode", p.Mode.String(),
			"vertices", n,
			"samples", k*k,
			"rays", stats.RaysTraced,
			"elapsed", stats.Elapsed)
	}
	return out, stats, nil
}

// projectVertex projects max(0, d.n), gated by visibility for shadowed modes
func (p *Projector) projectVertex(position, normal core.Vec3, oracle geometry.Oracle, sampler core.Sampler, stats *vertexStats) sh.Coefficients {
	transport := func(dir core.Vec3) float64 {
		cos := dir.Dot(normal)
		if cos <= 0 {
			return 0
		}
		if p.Mode.NeedsVisibility() {
			stats.rays++
			if oracle.Occluded(core.NewRay(position, dir)) {
				stats.hits++
				return 0
			}
		}
		return cos
	}
	return sh.ProjectFunction(transport, p.SampleCount, sampler)
}
