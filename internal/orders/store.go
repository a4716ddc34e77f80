package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/idempotency"
)

var (
	// ErrDuplicateRequest means the idempotency key of a placement was
	// already taken, so the transaction wrote nothing.
	ErrDuplicateRequest = errors.New("duplicate order request")
	// ErrStatusMismatch is returned when a conditional status update fails.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	ErrAlreadyPaid    = errors.New("order is already paid")
	ErrNotDeliverable = errors.New("order is not paid or already delivered")
)

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	userIndex string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store. userIndex is the GSI on
// user_id + created_at.
func NewStore(client aws.DynamoDBAPI, tableName, userIndex string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		userIndex: userIndex,
		nowFunc:   time.Now,
	}
}

// CreateWithIdempotencyTransaction atomically creates:
//   - the idempotency record (idempotency.AvailableCondition: unused or expired key)
//   - the order record (ConditionExpression attribute_not_exists(order_id))
//
// Returns ErrDuplicateRequest if a live record holds the key.
func (s *Store) CreateWithIdempotencyTransaction(ctx context.Context, idempotencyTable string, rec idempotency.Record, order Order) error {
	idempMap, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency item: %w", err)
	}

	now := s.nowFunc().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	orderMap, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:                 &idempotencyTable,
					Item:                      idempMap,
					ConditionExpression:       awsString(idempotency.AvailableCondition),
					ExpressionAttributeValues: idempotency.AvailableValues(now),
				},
			},
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                orderMap,
					ConditionExpression: awsString("attribute_not_exists(order_id)"),
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && reasonIs(tce, 0, "ConditionalCheckFailed") {
			return fmt.Errorf("%w: %s", ErrDuplicateRequest, rec.IdempotencyKey)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// reasonIs reports whether cancellation reason i has the given code. A
// cancellation without reasons is attributed to the first item.
func reasonIs(tce *types.TransactionCanceledException, i int, code string) bool {
	if len(tce.CancellationReasons) == 0 {
		return i == 0
	}
	if i >= len(tce.CancellationReasons) {
		return false
	}
	r := tce.CancellationReasons[i]
	return r.Code != nil && *r.Code == code
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// ListByUser returns one page of a user's orders, newest first, and the
// total number of pages.
func (s *Store) ListByUser(ctx context.Context, userID string, page, limit int) ([]Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}

	var all []Order
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &s.userIndex,
		KeyConditionExpression: awsString("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: awsBool(false),
	}
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, 0, fmt.Errorf("query orders: %w", err)
		}
		var batch []Order
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &batch); err != nil {
			return nil, 0, fmt.Errorf("unmarshal orders: %w", err)
		}
		all = append(all, batch...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	totalPages := (len(all) + limit - 1) / limit
	start := (page - 1) * limit
	if start >= len(all) {
		return []Order{}, totalPages, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], totalPages, nil
}

// SetPaymentResult records a pending provider payment (the PayPal order id)
// on an unpaid order.
func (s *Store) SetPaymentResult(ctx context.Context, orderID string, result PaymentResult) error {
	pr, err := attributevalue.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal payment result: %w", err)
	}
	_, err = s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET payment_result = :pr, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pr": pr,
			":ua": s.timestamp(),
			":f":  &types.AttributeValueMemberBOOL{Value: false},
		},
		ConditionExpression: awsString("attribute_exists(order_id) AND is_paid = :f"),
	})
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrAlreadyPaid
		}
		return fmt.Errorf("set payment result: %w", err)
	}
	return nil
}

// MarkPaid flips an unpaid order to paid. A nil result keeps the stored
// payment result (manual cash-on-delivery confirmation).
func (s *Store) MarkPaid(ctx context.Context, orderID string, result *PaymentResult) error {
	expr := "SET is_paid = :t, paid_at = :ua, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":t":  &types.AttributeValueMemberBOOL{Value: true},
		":f":  &types.AttributeValueMemberBOOL{Value: false},
		":ua": s.timestamp(),
	}
	if result != nil {
		pr, err := attributevalue.Marshal(*result)
		if err != nil {
			return fmt.Errorf("marshal payment result: %w", err)
		}
		expr += ", payment_result = :pr"
		values[":pr"] = pr
	}

	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       orderKey(orderID),
		UpdateExpression:          &expr,
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("attribute_exists(order_id) AND is_paid = :f"),
	})
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrAlreadyPaid
		}
		return fmt.Errorf("mark paid: %w", err)
	}
	return nil
}

// MarkDelivered flips a paid, undelivered order to delivered.
func (s *Store) MarkDelivered(ctx context.Context, orderID string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET is_delivered = :t, delivered_at = :ua, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":  &types.AttributeValueMemberBOOL{Value: true},
			":f":  &types.AttributeValueMemberBOOL{Value: false},
			":ua": s.timestamp(),
		},
		ConditionExpression: awsString("attribute_exists(order_id) AND is_paid = :t AND is_delivered = :f"),
	})
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrNotDeliverable
		}
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

// UpdateStatus conditionally updates the order status from expected -> newStatus.
// Returns nil on success, ErrStatusMismatch if condition failed.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                &s.tableName,
		Key:                      orderKey(orderID),
		UpdateExpression:         awsString("SET #s = :new, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      &types.AttributeValueMemberS{Value: newStatus},
			":expected": &types.AttributeValueMemberS{Value: expectedStatus},
			":ua":       s.timestamp(),
		},
		ConditionExpression: awsString("#s = :expected"),
	})
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// IncrementAttempts increases the attempts counter by 1 (worker retries).
func (s *Store) IncrementAttempts(ctx context.Context, orderID string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              orderKey(orderID),
		UpdateExpression: awsString("SET attempts = if_not_exists(attempts, :zero) + :inc, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":inc":  &types.AttributeValueMemberN{Value: "1"},
			":ua":   s.timestamp(),
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

func (s *Store) timestamp() types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)}
}

func orderKey(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
