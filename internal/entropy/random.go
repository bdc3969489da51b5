// Package entropy provides the random sources the simulation draws from.
// Games run on crypto/rand by default; tests and replays pass a seeded source.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

// Source is the subset of *rand.Rand the simulation needs.
type Source interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Seeded returns a deterministic source. The result is not safe for
// concurrent use; the game serialises access under its own lock.
func Seeded(seed int64) Source {
	return mrand.New(mrand.NewSource(seed))
}

// Crypto returns a source backed by crypto/rand.
func Crypto() Source {
	return mrand.New(&cryptoSource{})
}

// cryptoSource adapts crypto/rand to math/rand.Source64.
type cryptoSource struct {
	mu sync.Mutex
}

func (s *cryptoSource) Seed(int64) {}

func (s *cryptoSource) Int63() int64 {
	return int64(s.Uint64() >> 1)
}

func (s *cryptoSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return 1 << 62
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Chance reports whether a draw from src lands under p.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	return src.Float64() < p
}

// IntRange returns a uniform integer in [lo, hi].
func IntRange(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}
