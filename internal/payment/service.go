package payment

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/notice"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/provider"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
)

var (
	// ErrValidation is a boundary rejection: unknown order, already paid,
	// amount mismatch. Payment stays unconfirmed.
	ErrValidation = errors.New("payment rejected")
	// ErrProvider is a provider outage, decline or open circuit.
	ErrProvider = errors.New("payment provider failure")
)

const (
	providerUnavailableMessage = "Payment provider is unavailable. Please try again later."
	providerDeclinedMessage    = "Payment was declined by the provider"
)

// Boundary is the subset of the order service the payment flows call.
type Boundary interface {
	GetOrderByID(ctx context.Context, orderID string) (*orders.Order, error)
	CreatePayPalOrder(ctx context.Context, orderID string) (orders.Result, error)
	ApprovePayPalOrder(ctx context.Context, orderID, paypalOrderID string) (orders.Result, error)
	ApprovePaystackOrder(ctx context.Context, orderID, reference string, amountMinor int64) (orders.Result, error)
	ApproveStripeOrder(ctx context.Context, orderID, intentID string) (orders.Result, error)
}

// IntentCreator issues Stripe PaymentIntents.
type IntentCreator interface {
	Configured() bool
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currencyCode, orderID string) (string, error)
}

// Keys are the public provider keys handed to the browser.
type Keys struct {
	PayPalClientID       string
	StripePublishableKey string
	PaystackPublicKey    string
}

// Page is the order payment page.
type Page struct {
	Order            *orders.Order    `json:"order,omitempty"`
	Summary          checkout.Summary `json:"summary"`
	DeliveryDateText string           `json:"delivery_date_text,omitempty"`
	Method           string           `json:"payment_method,omitempty"`
	Gateway          Gateway          `json:"gateway,omitempty"`
	ButtonText       string           `json:"button_text,omitempty"`
	Redirect         string           `json:"redirect,omitempty"`
}

type Service struct {
	orders   Boundary
	stripe   IntentCreator
	settings *settings.Store
	keys     Keys
	log      *zap.Logger
}

func NewService(b Boundary, stripe IntentCreator, st *settings.Store, keys Keys, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{orders: b, stripe: stripe, settings: st, keys: keys, log: log}
}

// Page loads the order and selects its gateway. A paid order only
// redirects to the order detail page.
func (s *Service) Page(ctx context.Context, orderID string, cur settings.Currency) (*Page, error) {
	o, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.IsPaid {
		return &Page{Redirect: OrderRoute(o.OrderID)}, nil
	}

	g := s.Select(ctx, o)
	return &Page{
		Order:            o,
		Summary:          checkout.Summarize(o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, o.TotalPrice, s.settings, cur),
		DeliveryDateText: o.ExpectedDeliveryDate.Format(time.DateOnly),
		Method:           g.Method(),
		Gateway:          g,
		ButtonText:       ButtonText(g),
	}, nil
}

// Select picks the gateway variant for the order's payment method.
func (s *Service) Select(ctx context.Context, o *orders.Order) Gateway {
	switch o.PaymentMethod {
	case settings.MethodPayPal:
		return newPayPal(s.keys.PayPalClientID, o.OrderID)
	case settings.MethodStripe:
		return s.stripeGateway(ctx, o)
	case settings.MethodPaystack:
		return newPaystack(s.keys.PaystackPublicKey, o)
	case settings.MethodCashOnDelivery:
		return CashOnDelivery{Route: OrderRoute(o.OrderID)}
	default:
		// settings.New admits only the four methods above
		panic("payment: unhandled payment method " + o.PaymentMethod)
	}
}

func (s *Service) stripeGateway(ctx context.Context, o *orders.Order) Stripe {
	g := Stripe{
		PublishableKey: s.keys.StripePublishableKey,
		AmountMinor:    o.TotalPrice.MinorUnits(),
		Currency:       StoreCurrency,
		ReturnURL:      StripeReturnRoute(o.OrderID),
	}
	if s.stripe == nil || !s.stripe.Configured() {
		return g
	}
	secret, err := s.stripe.CreatePaymentIntent(ctx, g.AmountMinor, g.Currency, o.OrderID)
	if err != nil {
		s.log.Warn("stripe payment intent", zap.String("order_id", o.OrderID), zap.Error(err))
		return g
	}
	g.ClientSecret = secret
	g.Available = secret != ""
	return g
}

// CreatePayPalOrder is the first phase of the PayPal round trip. The
// outcome's Result.Token is the PayPal order id for the buttons.
func (s *Service) CreatePayPalOrder(ctx context.Context, orderID string) (Outcome, error) {
	res, err := s.orders.CreatePayPalOrder(ctx, orderID)
	return s.outcome(orderID, res, err)
}

// ApprovePayPalOrder is the second phase, after the buyer approved.
func (s *Service) ApprovePayPalOrder(ctx context.Context, orderID, paypalOrderID string) (Outcome, error) {
	res, err := s.orders.ApprovePayPalOrder(ctx, orderID, paypalOrderID)
	return s.outcome(orderID, res, err)
}

// ApproveStripeOrder settles the order once Stripe redirects the buyer
// back with the confirmed PaymentIntent.
func (s *Service) ApproveStripeOrder(ctx context.Context, orderID, intentID string) (Outcome, error) {
	res, err := s.orders.ApproveStripeOrder(ctx, orderID, intentID)
	return s.outcome(orderID, res, err)
}

// HandlePaystackEvent maps a Paystack widget callback to an outcome. Only
// success reaches the boundary.
func (s *Service) HandlePaystackEvent(ctx context.Context, orderID string, ev PaystackEvent) (Outcome, error) {
	switch ev.Type {
	case PaystackClose:
		return Outcome{Kind: KindCancelled, Notice: notice.Default("Payment Cancelled")}, nil
	case PaystackError:
		s.log.Info("paystack widget error", zap.String("order_id", orderID), zap.String("message", ev.Message))
		return Outcome{Kind: KindProviderFailure, Notice: notice.Destructive("Payment Failed"), Err: ErrProvider}, nil
	case PaystackSuccess:
		res, err := s.orders.ApprovePaystackOrder(ctx, orderID, ev.Reference, ev.AmountMinor)
		return s.outcome(orderID, res, err)
	default:
		panic("payment: unhandled paystack event " + string(ev.Type))
	}
}

func (s *Service) outcome(orderID string, res orders.Result, err error) (Outcome, error) {
	switch {
	case errors.Is(err, provider.ErrRejected):
		return providerFailure(providerDeclinedMessage), nil
	case errors.Is(err, provider.ErrUnavailable), errors.Is(err, provider.ErrNotConfigured):
		return providerFailure(providerUnavailableMessage), nil
	case err != nil:
		return Outcome{}, err
	case !res.Success:
		return Outcome{Kind: KindValidationFailure, Result: &res, Notice: notice.Destructive(res.Message), Err: ErrValidation}, nil
	}
	out := Outcome{Kind: KindOK, Result: &res, Notice: notice.Default(res.Message)}
	if res.Token == "" {
		// payment confirmed; the payment page would only redirect now
		out.Redirect = OrderRoute(orderID)
	}
	return out, nil
}

func providerFailure(msg string) Outcome {
	return Outcome{Kind: KindProviderFailure, Notice: notice.Destructive(msg), Err: ErrProvider}
}
