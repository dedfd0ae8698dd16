package core

import (
	"pgregory.net/rand"
)

// Sampler provides random sampling for the Monte-Carlo projections.
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
}

// RandomSampler wraps a seedable pseudo-random stream.
// A RandomSampler must not be shared between goroutines; give every task its own.
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler whose stream is fully determined by the seeds
func NewRandomSampler(seeds ...uint64) *RandomSampler {
	return &RandomSampler{random: rand.New(seeds...)}
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// StreamSeeds derives the seeds of an independent stream for one task.
// The same (seed, pass, task) always yields the same stream regardless of
// which goroutine runs the task.
func StreamSeeds(seed uint64, pass, task int) []uint64 {
	return []uint64{seed, uint64(pass), uint64(task)}
}
