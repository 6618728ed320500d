package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type dynamoOrder struct {
	UserID    string    `dynamodbav:"user_id"`
	OrderData string    `dynamodbav:"order_data"`
	Timestamp time.Time `dynamodbav:"timestamp"`
}

// DynamoStore writes each order as one item keyed by user_id. PutItem
// replaces the whole item, which gives last-write-wins per key.
type DynamoStore struct {
	client    DynamoDBAPI
	table     string
	now       func() time.Time
	tableWait time.Duration
}

func NewDynamoStore(client DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		table:     table,
		now:       time.Now,
		tableWait: 2 * time.Minute,
	}
}

func (s *DynamoStore) Init(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: &s.table})
	if err == nil {
		return nil
	}
	var nf *types.ResourceNotFoundException
	if !errors.As(err, &nf) {
		return storageErr("init", describeAPIError(err))
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: &s.table,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: strPtr("user_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: strPtr("user_id"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return storageErr("init", describeAPIError(err))
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = 100 * time.Millisecond
		o.MaxDelay = 5 * time.Second
	})
	return storageErr("init", waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: &s.table}, s.tableWait))
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	return storageErr("ping", withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: &s.table})
		return describeAPIError(err)
	}))
}

func (s *DynamoStore) Put(ctx context.Context, userID string, doc json.RawMessage) error {
	item, err := attributevalue.MarshalMap(dynamoOrder{
		UserID:    userID,
		OrderData: string(doc),
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		return storageErr("put", fmt.Errorf("marshal order item: %w", err))
	}

	return storageErr("put", withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &s.table,
			Item:      item,
		})
		return describeAPIError(err)
	}))
}

func (s *DynamoStore) Get(ctx context.Context, userID string) (Order, error) {
	var out *dynamodb.GetItemOutput

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		out, err = s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: &s.table,
			Key: map[string]types.AttributeValue{
				"user_id": &types.AttributeValueMemberS{Value: userID},
			},
			ConsistentRead: boolPtr(true),
		})
		return describeAPIError(err)
	})
	if err != nil {
		return Order{}, storageErr("get", err)
	}
	if len(out.Item) == 0 {
		return Order{}, ErrNotFound
	}

	var row dynamoOrder
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return Order{}, storageErr("get", fmt.Errorf("unmarshal order item: %w", err))
	}

	return Order{
		UserID:    row.UserID,
		Data:      json.RawMessage(row.OrderData),
		UpdatedAt: row.Timestamp,
	}, nil
}

func (s *DynamoStore) Close() error { return nil }

// describeAPIError prefixes service errors with their code so logs say which
// DynamoDB rule tripped.
func describeAPIError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("dynamodb %s: %w", apiErr.ErrorCode(), err)
	}
	return err
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
