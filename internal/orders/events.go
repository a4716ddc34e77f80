package orders

import (
	"time"

	"github.com/imrishuroy/storefront-checkout/internal/money"
)

// Event types published to the orders queue.
const (
	EventOrderPlaced    = "OrderPlaced"
	EventOrderPaid      = "OrderPaid"
	EventOrderDelivered = "OrderDelivered"
)

// CloudWatch metric names.
const (
	MetricOrdersPlaced    = "OrdersPlaced"
	MetricOrdersPaid      = "OrdersPaid"
	MetricRevenue         = "Revenue"
	MetricPaymentApproved = "PaymentApproved"
	MetricPaymentRejected = "PaymentRejected"
)

// Event is the payload sent from API -> SQS -> worker.
type Event struct {
	Type           string       `json:"type"`
	OrderID        string       `json:"order_id"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
	UserID         string       `json:"user_id,omitempty"`
	PaymentMethod  string       `json:"payment_method,omitempty"`
	TotalPrice     money.Amount `json:"total_price"`
	OccurredAt     time.Time    `json:"occurred_at"`
	CorrelationID  string       `json:"correlation_id,omitempty"`
}

// Attributes are the SQS message attributes of the event.
func (e Event) Attributes() map[string]string {
	return map[string]string{
		"event_type":      e.Type,
		"order_id":        e.OrderID,
		"idempotency_key": e.IdempotencyKey,
		"correlation_id":  e.CorrelationID,
	}
}
