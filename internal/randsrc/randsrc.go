// Package randsrc provides the single seeded random stream that every stage of
// corpus generation draws from.
//
// Determinism:
//   - A Source is created from an explicit seed and passed as a handle; there is
//     no package-level stream.
//   - The same seed and the same sequence of calls yield the same results.
//
// Concurrency:
//   - A Source is NOT goroutine-safe. Use Derive to hand independent sub-streams
//     to concurrent workers.
package randsrc

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInsufficientPool is returned when a draw asks for more distinct values
// than a pool holds.
var ErrInsufficientPool = errors.New("insufficient pool")

// InsufficientPoolError describes a failed draw.
type InsufficientPoolError struct {
	Requested int
	Available int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("insufficient pool: requested %d distinct values, pool has %d", e.Requested, e.Available)
}

// Is reports whether target is ErrInsufficientPool.
func (e *InsufficientPoolError) Is(target error) bool {
	return target == ErrInsufficientPool
}

// Source is a deterministic random stream.
type Source struct {
	seed int64
	rng  *rand.Rand
}

// New returns a Source seeded with seed.
func New(seed int64) *Source {
	return &Source{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Seed returns the seed the stream was created with.
func (s *Source) Seed() int64 {
	return s.seed
}

// Intn returns a uniform int in [0, n). n must be > 0.
func (s *Source) Intn(n int) int {
	return s.rng.Intn(n)
}

// Derive creates an independent sub-stream for the given stream id.
// The child seed depends only on this Source's seed and stream, so it does not
// advance the parent and can be reported alongside the output it produced.
func (s *Source) Derive(stream uint64) *Source {
	return New(DeriveSeed(s.seed, stream))
}

// DeriveSeed mixes a parent seed and a stream identifier into a new seed using
// the SplitMix64 finalizer.
func DeriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// ChooseOne returns one element of pool chosen uniformly at random.
// The pool is not modified.
func ChooseOne[T any](s *Source, pool []T) (T, error) {
	var zero T
	if len(pool) == 0 {
		return zero, &InsufficientPoolError{Requested: 1, Available: 0}
	}
	return pool[s.rng.Intn(len(pool))], nil
}

// ChooseDistinct returns k elements drawn from k distinct positions of pool,
// in draw order. It runs a partial Fisher–Yates over an index permutation, so
// it consumes exactly k draws and never retries.
func ChooseDistinct[T any](s *Source, pool []T, k int) ([]T, error) {
	if k > len(pool) {
		return nil, &InsufficientPoolError{Requested: k, Available: len(pool)}
	}
	if k <= 0 {
		return []T{}, nil
	}

	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}

	out := make([]T, k)
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = pool[idx[i]]
	}
	return out, nil
}

// Shuffle returns a uniformly random permutation of seq. The input slice is
// left untouched.
func Shuffle[T any](s *Source, seq []T) []T {
	out := make([]T, len(seq))
	copy(out, seq)
	s.rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
