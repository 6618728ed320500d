// Package events announces stored orders to downstream consumers.
//
// Publishing is best effort: the order store is the source of truth and a
// failed publish never undoes or fails a write.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

const TypeOrderSaved = "order.saved"

// OrderSaved is emitted after an order has been upserted.
type OrderSaved struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	UserID     string          `json:"user_id"`
	Order      json.RawMessage `json:"order"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func NewOrderSaved(userID string, doc json.RawMessage) OrderSaved {
	return OrderSaved{
		ID:         uuid.NewString(),
		Type:       TypeOrderSaved,
		UserID:     userID,
		Order:      doc,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e OrderSaved) error
	Close() error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e OrderSaved) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, OrderSaved) error { return nil }
func (Nop) Close() error                              { return nil }
