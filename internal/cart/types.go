package cart

import (
	"time"

	"github.com/imrishuroy/storefront-checkout/internal/money"
)

// Step is a checkout wizard state.
type Step int

const (
	StepShippingAddress Step = 1
	StepPaymentMethod   Step = 2
	StepReviewAndPlace  Step = 3
)

func (s Step) Valid() bool { return s >= StepShippingAddress && s <= StepReviewAndPlace }

// Item is one cart line. ClientID identifies the line; the same product in
// another size or color is a separate line.
type Item struct {
	ClientID     string       `json:"client_id" dynamodbav:"client_id"`
	ProductID    string       `json:"product_id" dynamodbav:"product_id"`
	Name         string       `json:"name" dynamodbav:"name"`
	Slug         string       `json:"slug" dynamodbav:"slug"`
	Category     string       `json:"category" dynamodbav:"category"`
	Image        string       `json:"image" dynamodbav:"image"`
	Size         string       `json:"size,omitempty" dynamodbav:"size,omitempty"`
	Color        string       `json:"color,omitempty" dynamodbav:"color,omitempty"`
	Quantity     int          `json:"quantity" dynamodbav:"quantity"`
	Price        money.Amount `json:"price" dynamodbav:"price"`
	CountInStock int          `json:"count_in_stock" dynamodbav:"count_in_stock"`
}

// sameLine reports whether two items describe the same product variant.
func (i Item) sameLine(o Item) bool {
	return i.ProductID == o.ProductID && i.Size == o.Size && i.Color == o.Color
}

// ShippingAddress is collected in the first checkout step.
type ShippingAddress struct {
	FullName   string `json:"full_name" dynamodbav:"full_name" validate:"required"`
	Street     string `json:"street" dynamodbav:"street" validate:"required"`
	City       string `json:"city" dynamodbav:"city" validate:"required"`
	Province   string `json:"province" dynamodbav:"province" validate:"required"`
	PostalCode string `json:"postal_code" dynamodbav:"postal_code" validate:"required"`
	Country    string `json:"country" dynamodbav:"country" validate:"required"`
	Phone      string `json:"phone" dynamodbav:"phone" validate:"required"`
}

// Cart is the visitor's persisted cart and checkout state.
type Cart struct {
	CartID            string           `json:"cart_id" dynamodbav:"cart_id"` // PK
	Items             []Item           `json:"items" dynamodbav:"items"`
	ItemsPrice        money.Amount     `json:"items_price" dynamodbav:"items_price"`
	ShippingPrice     *money.Amount    `json:"shipping_price,omitempty" dynamodbav:"shipping_price,omitempty"`
	TaxPrice          *money.Amount    `json:"tax_price,omitempty" dynamodbav:"tax_price,omitempty"`
	TotalPrice        money.Amount     `json:"total_price" dynamodbav:"total_price"`
	ShippingAddress   *ShippingAddress `json:"shipping_address,omitempty" dynamodbav:"shipping_address,omitempty"`
	DeliveryDateIndex int              `json:"delivery_date_index" dynamodbav:"delivery_date_index"`
	PaymentMethod     string           `json:"payment_method" dynamodbav:"payment_method"`
	CheckoutStep      Step             `json:"checkout_step" dynamodbav:"checkout_step"`
	FurthestStep      Step             `json:"furthest_step" dynamodbav:"furthest_step"`
	Version           int64            `json:"-" dynamodbav:"version"`
	UpdatedAt         time.Time        `json:"updated_at" dynamodbav:"updated_at"`
	ExpiresAt         int64            `json:"-" dynamodbav:"expires_at,omitempty"` // TTL epoch seconds
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.Items) == 0 }

func (c *Cart) findLine(clientID string) int {
	for i, it := range c.Items {
		if it.ClientID == clientID {
			return i
		}
	}
	return -1
}
