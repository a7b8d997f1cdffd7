// Package deck provides seedable shuffling and the draw-with-reshuffle rule
// used by the omen and offering decks.
package deck

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Shuffler yields uniform indexes for Fisher-Yates.
type Shuffler interface {
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
}

// Random is a Shuffler backed by a PCG source. It is safe for concurrent use.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a Shuffler seeded with seed. A zero seed draws one from
// crypto/rand.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = NewSeed()
	}
	return &Random{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

func (r *Random) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}

// NewSeed returns a non-zero seed from crypto/rand.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

// Shuffle permutes items in place with Fisher-Yates.
func Shuffle[T any](items []T, s Shuffler) {
	for i := len(items) - 1; i > 0; i-- {
		j := s.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Shuffled returns a shuffled copy, leaving items untouched.
func Shuffled[T any](items []T, s Shuffler) []T {
	out := make([]T, len(items))
	copy(out, items)
	Shuffle(out, s)
	return out
}
