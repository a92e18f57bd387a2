package tensor

import (
	"math/rand"
	"time"
)

// NewRand returns a seeded random source. A seed of 0 selects a time-based
// seed; any other value gives a reproducible sequence.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
