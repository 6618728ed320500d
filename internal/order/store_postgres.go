package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres dials dsn and verifies the connection before returning.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	s := NewPostgresStore(pool)
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Init(ctx context.Context) error {
	return storageErr("init", withTimeout(ctx, initTimeout, func(ctx context.Context) error {
		return s.withConn(ctx, func(conn *pgxpool.Conn) error {
			_, err := conn.Exec(ctx, `
				CREATE TABLE IF NOT EXISTS orders (
					user_id     TEXT PRIMARY KEY,
					order_data  JSONB NOT NULL,
					"timestamp" TIMESTAMPTZ NOT NULL DEFAULT NOW()
				)
			`)
			return err
		})
	}))
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return storageErr("ping", withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.pool.Ping(ctx)
	}))
}

func (s *PostgresStore) Put(ctx context.Context, userID string, doc json.RawMessage) error {
	return storageErr("put", withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.withConn(ctx, func(conn *pgxpool.Conn) error {
			_, err := conn.Exec(ctx, `
				INSERT INTO orders (user_id, order_data)
				VALUES ($1, $2)
				ON CONFLICT (user_id) DO UPDATE
				SET order_data = EXCLUDED.order_data, "timestamp" = NOW()
			`, userID, []byte(doc))
			return err
		})
	}))
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (Order, error) {
	o := Order{UserID: userID}

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.withConn(ctx, func(conn *pgxpool.Conn) error {
			var raw []byte
			err := conn.QueryRow(ctx, `
				SELECT order_data, "timestamp"
				FROM orders
				WHERE user_id = $1
			`, userID).Scan(&raw, &o.UpdatedAt)
			o.Data = raw
			return err
		})
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, storageErr("get", err)
	}
	return o, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// withConn checks a connection out of the pool for the duration of fn and
// always returns it, whatever fn does.
func (s *PostgresStore) withConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return fn(conn)
}
