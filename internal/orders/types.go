package orders

import (
	"time"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/money"
)

// Order statuses, advanced by the worker.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Item is the order's snapshot of a cart line.
type Item struct {
	ClientID  string       `json:"client_id" dynamodbav:"client_id"`
	ProductID string       `json:"product_id" dynamodbav:"product_id"`
	Name      string       `json:"name" dynamodbav:"name"`
	Slug      string       `json:"slug" dynamodbav:"slug"`
	Category  string       `json:"category" dynamodbav:"category"`
	Image     string       `json:"image" dynamodbav:"image"`
	Size      string       `json:"size,omitempty" dynamodbav:"size,omitempty"`
	Color     string       `json:"color,omitempty" dynamodbav:"color,omitempty"`
	Quantity  int          `json:"quantity" dynamodbav:"quantity"`
	Price     money.Amount `json:"price" dynamodbav:"price"`
}

// PaymentResult records what the provider reported for the payment.
type PaymentResult struct {
	ID           string       `json:"id" dynamodbav:"id"`
	Status       string       `json:"status" dynamodbav:"status"`
	EmailAddress string       `json:"email_address,omitempty" dynamodbav:"email_address,omitempty"`
	PricePaid    money.Amount `json:"price_paid" dynamodbav:"price_paid"`
	Reference    string       `json:"reference,omitempty" dynamodbav:"reference,omitempty"`
	Provider     string       `json:"provider" dynamodbav:"provider"`
}

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID              string               `json:"order_id" dynamodbav:"order_id"` // PK
	UserID               string               `json:"user_id" dynamodbav:"user_id"`   // GSI hash key
	Email                string               `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Items                []Item               `json:"items" dynamodbav:"items"`
	ShippingAddress      cart.ShippingAddress `json:"shipping_address" dynamodbav:"shipping_address"`
	ItemsPrice           money.Amount         `json:"items_price" dynamodbav:"items_price"`
	ShippingPrice        money.Amount         `json:"shipping_price" dynamodbav:"shipping_price"`
	TaxPrice             money.Amount         `json:"tax_price" dynamodbav:"tax_price"`
	TotalPrice           money.Amount         `json:"total_price" dynamodbav:"total_price"`
	PaymentMethod        string               `json:"payment_method" dynamodbav:"payment_method"`
	DeliveryDateIndex    int                  `json:"delivery_date_index" dynamodbav:"delivery_date_index"`
	ExpectedDeliveryDate time.Time            `json:"expected_delivery_date" dynamodbav:"expected_delivery_date"`
	Status               string               `json:"status" dynamodbav:"status"` // PENDING | PROCESSING | COMPLETED | FAILED
	IsPaid               bool                 `json:"is_paid" dynamodbav:"is_paid"`
	PaidAt               *time.Time           `json:"paid_at,omitempty" dynamodbav:"paid_at,omitempty"`
	IsDelivered          bool                 `json:"is_delivered" dynamodbav:"is_delivered"`
	DeliveredAt          *time.Time           `json:"delivered_at,omitempty" dynamodbav:"delivered_at,omitempty"`
	PaymentResult        *PaymentResult       `json:"payment_result,omitempty" dynamodbav:"payment_result,omitempty"`
	IdempotencyKey       string               `json:"-" dynamodbav:"idempotency_key,omitempty"`
	CreatedAt            time.Time            `json:"created_at" dynamodbav:"created_at"` // GSI range key
	UpdatedAt            time.Time            `json:"updated_at" dynamodbav:"updated_at"`
	Attempts             int                  `json:"-" dynamodbav:"attempts,omitempty"`
}

// ItemsFromCart snapshots cart lines into order items.
func ItemsFromCart(lines []cart.Item) []Item {
	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, Item{
			ClientID:  l.ClientID,
			ProductID: l.ProductID,
			Name:      l.Name,
			Slug:      l.Slug,
			Category:  l.Category,
			Image:     l.Image,
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}
	return items
}
