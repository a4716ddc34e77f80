package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
)

// DynamoRepository stores carts in DynamoDB, one item per cart_id.
type DynamoRepository struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewDynamoRepository returns a Repository over tableName.
func NewDynamoRepository(client aws.DynamoDBAPI, tableName string) *DynamoRepository {
	return &DynamoRepository{client: client, tableName: tableName}
}

// Get fetches a cart. Returns (nil, nil) if not found.
func (r *DynamoRepository) Get(ctx context.Context, cartID string) (*Cart, error) {
	out, err := r.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &r.tableName,
		Key: map[string]types.AttributeValue{
			"cart_id": &types.AttributeValueMemberS{Value: cartID},
		},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var c Cart
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &c, nil
}

// Save writes the cart if the stored version still equals expectedVersion.
func (r *DynamoRepository) Save(ctx context.Context, c *Cart, expectedVersion int64) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	input := &dyn.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	}
	if expectedVersion == 0 {
		input.ConditionExpression = awsString("attribute_not_exists(cart_id)")
	} else {
		input.ConditionExpression = awsString("version = :v")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
		}
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// MemoryRepository keeps carts in process memory. It backs local runs
// without a carts table and the tests of packages built on carts.
type MemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]Cart
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]Cart)}
}

// Get returns a copy of the stored cart, or (nil, nil).
func (r *MemoryRepository) Get(ctx context.Context, cartID string) (*Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.carts[cartID]
	if !ok {
		return nil, nil
	}
	c.Items = append([]Item(nil), c.Items...)
	return &c, nil
}

// Save stores a copy of c under the version check.
func (r *MemoryRepository) Save(ctx context.Context, c *Cart, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.carts[c.CartID]
	switch {
	case !ok && expectedVersion != 0:
		return ErrConcurrentUpdate
	case ok && stored.Version != expectedVersion:
		return ErrConcurrentUpdate
	}
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	r.carts[c.CartID] = cp
	return nil
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
