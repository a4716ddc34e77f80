// Package payment selects the gateway for an order's payment page and
// turns provider callbacks into outcomes for the visitor.
package payment

import (
	"fmt"
	"strconv"

	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
)

// StoreCurrency is the currency order totals are kept in.
const StoreCurrency = orders.StoreCurrency

// Gateway is the payment variant rendered on an order payment page. It is
// one of PayPal, Stripe, Paystack or CashOnDelivery.
type Gateway interface {
	Method() string
	isGateway()
}

// PayPal exposes the client id for the PayPal script and the two phases of
// the round trip.
type PayPal struct {
	ClientID      string `json:"client_id"`
	CreateURL     string `json:"create_url"`
	ApproveURL    string `json:"approve_url"`
	LoadingStatus string `json:"loading_status"`
	ErrorStatus   string `json:"error_status"`
}

// Stripe carries the PaymentIntent client secret. Available is false when
// no secret could be issued and the form must not be rendered. ReturnURL
// is where Stripe sends the buyer after confirmation.
type Stripe struct {
	PublishableKey string `json:"publishable_key,omitempty"`
	ClientSecret   string `json:"client_secret,omitempty"`
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
	ReturnURL      string `json:"return_url"`
	Available      bool   `json:"available"`
}

// Paystack is the inline widget configuration.
type Paystack struct {
	PublicKey string           `json:"public_key"`
	Email     string           `json:"email"`
	Amount    int64            `json:"amount"`
	Currency  string           `json:"currency"`
	Metadata  PaystackMetadata `json:"metadata"`
	EventsURL string           `json:"events_url"`
}

type PaystackMetadata struct {
	CustomFields []CustomField `json:"custom_fields"`
}

type CustomField struct {
	DisplayName  string `json:"display_name"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

// CashOnDelivery needs no provider; the visitor is sent to the order page.
type CashOnDelivery struct {
	Route string `json:"route"`
}

func (PayPal) Method() string         { return settings.MethodPayPal }
func (Stripe) Method() string         { return settings.MethodStripe }
func (Paystack) Method() string       { return settings.MethodPaystack }
func (CashOnDelivery) Method() string { return settings.MethodCashOnDelivery }

func (PayPal) isGateway()         {}
func (Stripe) isGateway()         {}
func (Paystack) isGateway()       {}
func (CashOnDelivery) isGateway() {}

// ScriptState is the load state of the PayPal browser script.
type ScriptState string

const (
	ScriptPending  ScriptState = "pending"
	ScriptRejected ScriptState = "rejected"
	ScriptResolved ScriptState = "resolved"
)

// PayPalScriptStatus is the text shown next to the PayPal buttons.
func PayPalScriptStatus(s ScriptState) string {
	switch s {
	case ScriptPending:
		return "Loading PayPal..."
	case ScriptRejected:
		return "Error in loading PayPal."
	default:
		return ""
	}
}

// ButtonText is the call to action of a gateway.
func ButtonText(g Gateway) string {
	switch g := g.(type) {
	case PayPal:
		return "Pay with PayPal"
	case Stripe:
		if !g.Available {
			return ""
		}
		return "Purchase"
	case Paystack:
		return "Pay With Paystack"
	case CashOnDelivery:
		return "View Order"
	default:
		panic(fmt.Sprintf("payment: unhandled gateway %T", g))
	}
}

func newPayPal(clientID, orderID string) PayPal {
	return PayPal{
		ClientID:      clientID,
		CreateURL:     "/checkout/" + orderID + "/paypal/create",
		ApproveURL:    "/checkout/" + orderID + "/paypal/approve",
		LoadingStatus: PayPalScriptStatus(ScriptPending),
		ErrorStatus:   PayPalScriptStatus(ScriptRejected),
	}
}

func newPaystack(publicKey string, o *orders.Order) Paystack {
	amount := o.TotalPrice.MinorUnits()
	return Paystack{
		PublicKey: publicKey,
		Email:     o.Email,
		Amount:    amount,
		Currency:  StoreCurrency,
		Metadata: PaystackMetadata{CustomFields: []CustomField{
			{DisplayName: "Order Id", VariableName: "order_id", Value: o.OrderID},
			{DisplayName: "Amount", VariableName: "amount", Value: strconv.FormatInt(amount, 10)},
		}},
		EventsURL: "/checkout/" + o.OrderID + "/paystack/events",
	}
}

// StripeReturnRoute receives the buyer back from Stripe confirmation.
func StripeReturnRoute(orderID string) string { return "/checkout/" + orderID + "/stripe/return" }

// OrderRoute is the order detail page.
func OrderRoute(orderID string) string { return "/account/orders/" + orderID }
