package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongoOrder keeps the document as the submitted JSON text so reads return
// exactly what was written.
type mongoOrder struct {
	UserID    string    `bson:"_id"`
	OrderData string    `bson:"order_data"`
	Timestamp time.Time `bson:"timestamp"`
}

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	coll   *mongo.Collection
	now    func() time.Time
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client: client,
		db:     db,
		coll:   db.Collection(tableName),
		now:    time.Now,
	}
}

func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	if database == "" {
		return nil, errors.New("mongo: database name required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	s := NewMongoStore(client, database)
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) Init(ctx context.Context) error {
	return storageErr("init", withTimeout(ctx, initTimeout, func(ctx context.Context) error {
		names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: tableName}})
		if err != nil {
			return err
		}
		if len(names) > 0 {
			return nil
		}

		err = s.db.CreateCollection(ctx, tableName)
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Name == "NamespaceExists" {
			return nil
		}
		return err
	}))
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return storageErr("ping", withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.client.Ping(ctx, readpref.Primary())
	}))
}

func (s *MongoStore) Put(ctx context.Context, userID string, doc json.RawMessage) error {
	row := mongoOrder{
		UserID:    userID,
		OrderData: string(doc),
		Timestamp: s.now().UTC(),
	}

	return storageErr("put", withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.coll.ReplaceOne(ctx,
			bson.D{{Key: "_id", Value: userID}},
			row,
			options.Replace().SetUpsert(true),
		)
		return err
	}))
}

func (s *MongoStore) Get(ctx context.Context, userID string) (Order, error) {
	var row mongoOrder

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&row)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, storageErr("get", err)
	}

	return Order{
		UserID:    row.UserID,
		Data:      json.RawMessage(row.OrderData),
		UpdatedAt: row.Timestamp.UTC(),
	}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
