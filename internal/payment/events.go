package payment

import (
	"github.com/imrishuroy/storefront-checkout/internal/notice"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
)

// PaystackEventType is one of the three inline widget callbacks.
type PaystackEventType string

const (
	PaystackSuccess PaystackEventType = "success"
	PaystackClose   PaystackEventType = "close"
	PaystackError   PaystackEventType = "error"
)

// PaystackEvent is a widget callback forwarded by the browser.
type PaystackEvent struct {
	Type        PaystackEventType
	Reference   string
	AmountMinor int64
	Message     string
}

// Kind classifies an Outcome.
type Kind string

const (
	KindOK                Kind = "ok"
	KindValidationFailure Kind = "validation_failure"
	KindProviderFailure   Kind = "provider_failure"
	KindCancelled         Kind = "cancelled"
)

// Outcome is what the visitor sees after a payment action. Err is nil,
// ErrValidation or ErrProvider.
type Outcome struct {
	Kind     Kind           `json:"kind"`
	Result   *orders.Result `json:"result,omitempty"`
	Notice   *notice.Notice `json:"notice"`
	Redirect string         `json:"redirect,omitempty"`
	Err      error          `json:"-"`
}
