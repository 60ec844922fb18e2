package shared

import (
	"math/rand"
	"time"
)

// Rand is the randomness source injected into components that make random
// choices (mystery box rolls, nudge template selection). Injection keeps
// the engine deterministic under test: production wiring passes a
// time-seeded source, tests pass a fixed-seed one.
type Rand interface {
	// Intn returns a uniform random int in [0, n). n must be > 0.
	Intn(n int) int
}

// NewRand returns a time-seeded randomness source.
func NewRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// NewSeededRand returns a deterministic source for tests.
func NewSeededRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}
