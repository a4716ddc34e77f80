package idempotency

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// Record is the shape persisted in the idempotency DynamoDB table. One
// record guards one order placement.
type Record struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key"` // PK
	Status         string    `dynamodbav:"status"`
	OrderID        string    `dynamodbav:"order_id,omitempty"`
	CartID         string    `dynamodbav:"cart_id,omitempty"`
	ResponseBody   string    `dynamodbav:"response_body,omitempty"`
	ResponseStatus int       `dynamodbav:"response_status,omitempty"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty"`
}

// KeyForCart derives a placement key from the cart state. Two clicks on
// the same cart version collapse to one key; any cart change yields a new one.
func KeyForCart(cartID string, version int64) string {
	return fmt.Sprintf("cart:%s:v%d", cartID, version)
}

// KeyForRequest scopes a caller supplied Idempotency-Key header to the
// cart it was sent with, so two carts never share a placement.
func KeyForRequest(cartID, requestKey string) string {
	return fmt.Sprintf("cart:%s:key:%s", cartID, requestKey)
}

// Expired reports whether the record outlived its TTL window at now.
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt > 0 && now.Unix() > r.ExpiresAt
}

// AvailableCondition is the write condition for a new record: the key is
// unused, or its previous record expired but was not yet swept by TTL.
const AvailableCondition = "attribute_not_exists(idempotency_key) OR expires_at < :now"

// AvailableValues binds :now for AvailableCondition.
func AvailableValues(now time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
	}
}
