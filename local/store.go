package local

import (
	"context"
	"sync"

	"github.com/xraph/taskhub"
	"github.com/xraph/taskhub/orchestration"
)

// StateStore persists orchestration instance state for the local engine.
type StateStore interface {
	SaveState(ctx context.Context, st *orchestration.State) error
	// GetState returns taskhub.ErrInstanceNotFound for unknown instances.
	GetState(ctx context.Context, instanceID string) (*orchestration.State, error)
	Ping(ctx context.Context) error
}

// Compile-time interface check.
var _ StateStore = (*MemoryStore)(nil)

// MemoryStore keeps instance state in a map. It is safe for concurrent use
// and copies state in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*orchestration.State
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*orchestration.State)}
}

// SaveState implements StateStore.
func (s *MemoryStore) SaveState(_ context.Context, st *orchestration.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.InstanceID] = st.Clone()
	return nil
}

// GetState implements StateStore.
func (s *MemoryStore) GetState(_ context.Context, instanceID string) (*orchestration.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[instanceID]
	if !ok {
		return nil, taskhub.ErrInstanceNotFound
	}
	return st.Clone(), nil
}

// Ping implements StateStore.
func (s *MemoryStore) Ping(context.Context) error { return nil }
