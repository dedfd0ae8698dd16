package transport

import (
	"time"

	"github.com/df07/go-prt/pkg/sh"
)

// Stats summarizes the work done by a projection or a set of bounce passes
type Stats struct {
	Vertices        int           // Vertices processed per pass
	Passes          int           // Passes run (1 for projection, bounce count for the solver)
	SamplesPerPass  int           // Effective samples per vertex per pass (k*k)
	RaysTraced      int64         // Visibility queries issued
	RaysHit         int64         // Queries that hit geometry
	ZeroVertices    int           // Vertices whose final coefficients are all zero
	Elapsed         time.Duration // Wall time
	AverageHitRatio float64       // RaysHit / RaysTraced
}

// vertexStats is the per-task counter, kept in an arena slot and reduced after a pass
type vertexStats struct {
	rays int64
	hits int64
}

func (s *Stats) merge(slots []vertexStats) {
	for _, v := range slots {
		s.RaysTraced += v.rays
		s.RaysHit += v.hits
	}
	if s.RaysTraced > 0 {
		s.AverageHitRatio = float64(s.RaysHit) / float64(s.RaysTraced)
	}
}

func (s *Stats) countZero(m Matrix) {
	s.ZeroVertices = 0
	for _, c := range m {
		if c == (sh.Coefficients{}) {
			s.ZeroVertices++
		}
	}
}
