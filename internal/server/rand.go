package server

import (
	"math/rand"
	"sync"
)

// lockedSource guards a rand.Source64 with a mutex, the same way math/rand's
// global source is guarded. The engine components share one random stream and
// handlers invoke them from concurrent requests, so the shared source must be
// safe for concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// newConcurrentRand returns a *rand.Rand that concurrent requests can share.
func newConcurrentRand(seed int64) *rand.Rand {
	src := rand.NewSource(seed).(rand.Source64)
	return rand.New(&lockedSource{src: src})
}
