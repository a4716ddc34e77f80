package validation

// AddItemRequest is the payload for POST /cart/items. Price and stock are
// looked up server-side from the product.
type AddItemRequest struct {
	Slug     string `json:"slug" validate:"required"`
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

// UpdateQuantityRequest is the payload for PUT /cart/items/:clientId.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// DeliveryDateRequest is the payload for PUT /cart/delivery-date.
type DeliveryDateRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

// PaymentMethodRequest is the payload for POST /checkout/payment-method.
type PaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// StepRequest is the payload for POST /checkout/step.
type StepRequest struct {
	Step int `json:"step" validate:"required,min=1,max=3"`
}

// CurrencyRequest is the payload for PUT /settings/currency.
type CurrencyRequest struct {
	Currency string `json:"currency" validate:"required,len=3"`
}

// PayPalApproveRequest carries the provider's order id back after the
// buyer approves in the PayPal popup.
type PayPalApproveRequest struct {
	PayPalOrderID string `json:"paypal_order_id" validate:"required"`
}

// StripeReturnRequest is the query Stripe appends to the return URL after
// confirmation.
type StripeReturnRequest struct {
	PaymentIntent  string `form:"payment_intent" json:"payment_intent" validate:"required"`
	RedirectStatus string `form:"redirect_status" json:"redirect_status"`
}

// PaystackEventRequest is one of the inline widget callbacks.
type PaystackEventRequest struct {
	Type      string `json:"type" validate:"required,oneof=success close error"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount" validate:"min=0"`
	Message   string `json:"message"`
}
