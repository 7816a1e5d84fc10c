package sensor

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const syntheticMaxVolts = 5.0

// Synthetic returns uniformly distributed voltages in [0, 5).
type Synthetic struct {
	rng *rand.Rand
	mu  sync.Mutex
}

var _ Source = (*Synthetic)(nil)

// NewSynthetic returns a time-seeded synthetic source.
func NewSynthetic() *Synthetic {
	return NewSyntheticWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSyntheticWithRand uses rng for reproducible sequences.
func NewSyntheticWithRand(rng *rand.Rand) *Synthetic {
	return &Synthetic{rng: rng}
}

func (s *Synthetic) Voltage(_ context.Context, _ int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rng.Float64() * syntheticMaxVolts
}

func (*Synthetic) Kind() Kind   { return KindSynthetic }
func (*Synthetic) Close() error { return nil }
