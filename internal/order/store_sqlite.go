package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type sqliteOrder struct {
	UserID    string    `gorm:"column:user_id;type:TEXT;primaryKey"`
	OrderData string    `gorm:"column:order_data;type:TEXT;not null"`
	Timestamp time.Time `gorm:"column:timestamp;not null"`
}

func (sqliteOrder) TableName() string { return tableName }

// SQLiteStore keeps orders in a single SQLite file through gorm.
type SQLiteStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLiteStore(db *gorm.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if !strings.Contains(path, "?") {
		path += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)

	return NewSQLiteStore(db), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	return storageErr("init", s.db.WithContext(ctx).AutoMigrate(&sqliteOrder{}))
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storageErr("ping", err)
	}
	return storageErr("ping", withTimeout(ctx, pingTimeout, sqlDB.PingContext))
}

func (s *SQLiteStore) Put(ctx context.Context, userID string, doc json.RawMessage) error {
	row := sqliteOrder{
		UserID:    userID,
		OrderData: string(doc),
		Timestamp: s.now().UTC(),
	}

	return storageErr("put", withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"order_data", "timestamp"}),
			}).
			Create(&row).Error
	}))
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (Order, error) {
	var row sqliteOrder

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, storageErr("get", err)
	}

	return Order{
		UserID:    row.UserID,
		Data:      json.RawMessage(row.OrderData),
		UpdatedAt: row.Timestamp,
	}, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
