package order

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"OrderKeeper/pkg/kit"
)

type instrumentedStore struct {
	Store
	backend string
	metrics *kit.Metrics
}

// WithMetrics records the latency and outcome of every Put and Get.
func WithMetrics(s Store, backend string, m *kit.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumentedStore{Store: s, backend: backend, metrics: m}
}

func (s *instrumentedStore) Put(ctx context.Context, userID string, doc json.RawMessage) error {
	start := time.Now()
	err := s.Store.Put(ctx, userID, doc)
	s.metrics.ObserveStore(s.backend, "put", result(err), start)
	return err
}

func (s *instrumentedStore) Get(ctx context.Context, userID string) (Order, error) {
	start := time.Now()
	o, err := s.Store.Get(ctx, userID)
	s.metrics.ObserveStore(s.backend, "get", result(err), start)
	return o, err
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
