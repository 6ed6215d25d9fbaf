package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process history store for local/dev use.
type InMemoryStore struct {
	mu        sync.RWMutex
	exchanges map[string][]Exchange
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{exchanges: make(map[string][]Exchange)}
}

func (s *InMemoryStore) SaveExchange(_ context.Context, ex Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now().UTC()
	}
	s.exchanges[ex.UserID] = append(s.exchanges[ex.UserID], ex)
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, userID string, limit int) ([]Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.exchanges[userID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Exchange, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
