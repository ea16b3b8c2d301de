// Package rng provides cheap, splittable random number sources for
// Monte-Carlo trajectory sampling.
//
// Each worker owns its own Source; drawing from a Source is not safe for
// concurrent use, so the driver derives one independent stream per batch
// instead of sharing a single generator across goroutines.
package rng

// Source is a splitmix64 generator. The state advances by a fixed odd
// constant per draw, so distinct seeds yield non-overlapping streams for
// any realistic draw count.
type Source struct {
	state uint64
}

// New creates a Source from seed.
func New(seed uint64) *Source {
	return &Source{state: seed}
}

// Uint64 returns the next 64 random bits.
func (s *Source) Uint64() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns a uniform value in [0, 1).
func (s *Source) Float64() float64 {
	// 53 bits of precision, same construction as math/rand.
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Split derives an independent child stream for worker i. The parent's own
// sequence is untouched, so splitting is deterministic for a given seed.
func (s *Source) Split(i int) *Source {
	// Finalize the mix of (state, i) so children of adjacent indices are
	// decorrelated.
	z := s.state + uint64(i+1)*0xbf58476d1ce4e5b9
	z = (z ^ (z >> 30)) * 0x94d049bb133111eb
	z = (z ^ (z >> 27)) * 0x9e3779b97f4a7c15
	return &Source{state: z ^ (z >> 31)}
}
