package window

import (
	"context"
	"sync"
	"time"

	"trustgraph/internal/ratelimit/models"
)

// fixedWindow tracks one key's usage inside the current window.
type fixedWindow struct {
	tokensUsed  int
	windowStart time.Time
}

// InMemoryWindowStore implements the fixed-window ledger over a mutex-guarded
// map. The read-modify-write in Take runs under the lock, so concurrent
// callers on the same key cannot exceed the limit through lost updates.
// Fixed-window, not sliding: a full budget resets at each window boundary, so
// bursts are possible immediately across a boundary.
type InMemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	now     func() time.Time
}

// Option configures an InMemoryWindowStore.
type Option func(*InMemoryWindowStore)

// WithNow injects the clock used for window arithmetic.
func WithNow(now func() time.Time) Option {
	return func(s *InMemoryWindowStore) {
		s.now = now
	}
}

// NewInMemory creates an empty in-memory window store.
func NewInMemory(opts ...Option) *InMemoryWindowStore {
	s := &InMemoryWindowStore{
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Take runs the fixed-window admission check for one key.
func (s *InMemoryWindowStore) Take(_ context.Context, key string, limit int, window time.Duration) (models.QuotaDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.windows[key]
	if w == nil || now.Sub(w.windowStart) >= window {
		w = &fixedWindow{tokensUsed: 0, windowStart: now}
		s.windows[key] = w
	}

	if w.tokensUsed >= limit {
		// Rejections do not reset or extend the window.
		return models.QuotaDecision{Allowed: false, Remaining: 0}, nil
	}

	w.tokensUsed++
	return models.QuotaDecision{Allowed: true, Remaining: limit - w.tokensUsed}, nil
}

// Reset clears every window.
func (s *InMemoryWindowStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = make(map[string]*fixedWindow)
	return nil
}

func (s *InMemoryWindowStore) Close() error {
	return nil
}
