package window

import (
	"context"
	"sync"
	"time"

	"dustledger/internal/admission/models"
	"dustledger/pkg/requestcontext"
)

// sweepInterval bounds how often lapsed windows are garbage-collected. Every
// entry carries its own expiry, so one pass removes both burst and hourly
// leftovers for actors that went quiet.
const sweepInterval = time.Hour

type entry struct {
	window    models.Window
	expiresAt time.Time
}

// InMemoryStore is a fixed-window counter store for tests and single-node runs.
// Lapsed windows are evicted on a periodic sweep so the key population tracks
// active (actor, action) pairs rather than everything ever seen.
type InMemoryStore struct {
	mu        sync.Mutex
	windows   map[string]entry
	lastSweep time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{windows: make(map[string]entry)}
}

func (s *InMemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(now)

	e, ok := s.windows[key]
	if !ok || !now.Before(e.expiresAt) {
		e = entry{window: models.Window{Count: 1, StartAt: now}, expiresAt: now.Add(window)}
	} else {
		e.window.Count++
	}
	s.windows[key] = e
	return e.window.Count, e.expiresAt, nil
}

func (s *InMemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for key, e := range s.windows {
		if !now.Before(e.expiresAt) {
			delete(s.windows, key)
		}
	}
}
