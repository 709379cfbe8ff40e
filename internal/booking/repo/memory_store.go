package repo

import (
	"context"
	"sync"

	"github.com/u4s-chat/server/internal/booking/model"
)

// MemoryStateStore is an in-process StateStore used in tests and single-node
// development runs. Contexts are cloned on the way in and out so two sessions
// never observe shared mutable state.
type MemoryStateStore struct {
	mu       sync.RWMutex
	contexts map[string]*model.BookingContext
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{contexts: map[string]*model.BookingContext{}}
}

func (s *MemoryStateStore) Get(_ context.Context, sessionID string) (*model.BookingContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contexts[sessionID].Clone(), nil
}

func (s *MemoryStateStore) Set(_ context.Context, sessionID string, bc *model.BookingContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[sessionID] = bc.Clone()
	return nil
}

func (s *MemoryStateStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, sessionID)
	return nil
}

var _ model.StateStore = (*MemoryStateStore)(nil)
