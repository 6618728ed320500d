package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const tableName = "orders"

// Order is the single persisted record for a user: the latest submitted
// document and the time it was written.
type Order struct {
	UserID    string          `json:"user_id"`
	Data      json.RawMessage `json:"order_data"`
	UpdatedAt time.Time       `json:"timestamp"`
}

// Store keeps at most one order per user. Put replaces any previous
// document for the same user atomically.
type Store interface {
	Init(ctx context.Context) error
	Put(ctx context.Context, userID string, doc json.RawMessage) error
	Get(ctx context.Context, userID string) (Order, error)
	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("order not found")

// StorageError wraps any failure talking to the backing store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("order store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	initTimeout  = 30 * time.Second
)
