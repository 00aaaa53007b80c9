package ships

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps ships in a map.
type MemoryStore struct {
	mu      sync.RWMutex
	ships   map[string]Ship
	latency time.Duration
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithLatency delays every read, to make deferred rendering visible.
func WithLatency(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.latency = d
	}
}

// NewMemoryStore creates a store holding ships.
func NewMemoryStore(ships []*Ship, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{ships: make(map[string]Ship, len(ships))}
	for _, ship := range ships {
		s.ships[ship.ID] = clone(ship)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Ship, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ship, ok := s.ships[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(&ship)
	return &out, nil
}

// Search implements Store.
func (s *MemoryStore) Search(ctx context.Context, query string) ([]Summary, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := []Summary{}
	for _, ship := range s.ships {
		if matches(ship.Name, query) {
			results = append(results, ship.Summary())
		}
	}
	sortSummaries(results)
	return results, nil
}

// Put implements Store.
func (s *MemoryStore) Put(ctx context.Context, ship *Ship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.ships[ship.ID] = clone(ship)
	s.mu.Unlock()
	return nil
}

func clone(s *Ship) Ship {
	out := *s
	out.Weapons = append([]Weapon(nil), s.Weapons...)
	return out
}
