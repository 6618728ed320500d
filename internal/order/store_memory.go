package order

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type MemStore struct {
	mu  sync.RWMutex
	m   map[string]Order
	now func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Order{}, now: time.Now}
}

func (s *MemStore) Init(context.Context) error { return nil }
func (s *MemStore) Ping(context.Context) error { return nil }
func (s *MemStore) Close() error               { return nil }

func (s *MemStore) Put(ctx context.Context, userID string, doc json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return storageErr("put", err)
	}

	o := Order{
		UserID:    userID,
		Data:      append(json.RawMessage(nil), doc...),
		UpdatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = o
	return nil
}

func (s *MemStore) Get(ctx context.Context, userID string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, storageErr("get", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.m[userID]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Data = append(json.RawMessage(nil), o.Data...)
	return o, nil
}

// Len reports how many users have an order on file.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
