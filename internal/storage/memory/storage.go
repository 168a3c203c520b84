package memory

import (
	"context"
	"sync"

	"github.com/spacedunk/spacedunk/internal/model"
	"github.com/spacedunk/spacedunk/internal/storage"
)

// Storage is an in-memory implementation of the storage interface, used in
// tests and for peers running without a data directory
type Storage struct {
	mu    sync.RWMutex
	state *storage.PersistedState
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{}
}

// Ensure Storage implements the interface
var _ storage.Store = (*Storage)(nil)

func (s *Storage) Save(ctx context.Context, state *storage.PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	copied.Updates = append([]model.StateUpdate(nil), state.Updates...)
	s.state = &copied
	return nil
}

func (s *Storage) Load(ctx context.Context) (*storage.PersistedState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, model.ErrNoState
	}
	copied := *s.state
	copied.Updates = append([]model.StateUpdate(nil), s.state.Updates...)
	return &copied, nil
}

func (s *Storage) Close() error {
	return nil
}
