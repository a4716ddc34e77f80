package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/idempotency"
	"github.com/imrishuroy/storefront-checkout/internal/money"
	"github.com/imrishuroy/storefront-checkout/internal/provider"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
)

var ErrNotFound = errors.New("order not found")

const (
	// StoreCurrency is the currency order totals are kept in.
	StoreCurrency = "NGN"
	// PayPalCurrency is the currency PayPal orders are opened in.
	PayPalCurrency = "USD"
)

// Result is the outcome of a boundary call. Success=false carries a
// message for the visitor; infrastructure failures are returned as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
	Token   string `json:"token,omitempty"`
}

func fail(msg string) Result { return Result{Success: false, Message: msg} }

// Page is one page of a user's order history.
type Page struct {
	Data       []Order `json:"data"`
	TotalPages int     `json:"total_pages"`
}

// Publisher sends lifecycle events to the worker queue.
type Publisher interface {
	Publish(ctx context.Context, payload any, attributes map[string]string) error
}

// MetricsRecorder records business metrics.
type MetricsRecorder interface {
	Put(ctx context.Context, metrics ...aws.Metric) error
}

// PayPalClient is the provider side of the PayPal round trip.
type PayPalClient interface {
	CreateOrder(ctx context.Context, amount money.Amount, currencyCode string) (string, error)
	CaptureOrder(ctx context.Context, paypalOrderID string) (provider.PayPalCapture, error)
}

// PaystackVerifier confirms a Paystack reference server-side.
type PaystackVerifier interface {
	Verify(ctx context.Context, reference string) (provider.PaystackTransaction, error)
}

// StripeRetriever reads back a PaymentIntent the browser confirmed.
type StripeRetriever interface {
	RetrievePaymentIntent(ctx context.Context, intentID string) (provider.StripePaymentIntent, error)
}

// CreateInput is what order placement needs from the checkout.
type CreateInput struct {
	Cart           *cart.Cart
	UserID         string
	Email          string
	IdempotencyKey string
	DeliveryDate   settings.DeliveryDate
	CorrelationID  string
}

// Service implements the order boundary calls.
type Service struct {
	store     *Store
	idemp     *idempotency.Store
	publisher Publisher
	metrics   MetricsRecorder
	paypal    PayPalClient
	paystack  PaystackVerifier
	stripe    StripeRetriever
	settings  *settings.Store
	log       *zap.Logger
	nowFunc   func() time.Time
	newID     func() string
}

// ServiceConfig groups the Service dependencies.
type ServiceConfig struct {
	Store       *Store
	Idempotency *idempotency.Store
	Publisher   Publisher
	Metrics     MetricsRecorder
	PayPal      PayPalClient
	Paystack    PaystackVerifier
	Stripe      StripeRetriever
	Settings    *settings.Store
	Logger      *zap.Logger
}

func NewService(cfg ServiceConfig) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     cfg.Store,
		idemp:     cfg.Idempotency,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		paypal:    cfg.PayPal,
		paystack:  cfg.Paystack,
		stripe:    cfg.Stripe,
		settings:  cfg.Settings,
		log:       log,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
}

// CreateOrder converts the cart into a persisted order. Placements sharing
// an idempotency key resolve to the same order.
func (s *Service) CreateOrder(ctx context.Context, in CreateInput) (Result, error) {
	c := in.Cart
	switch {
	case c == nil || c.Empty():
		return fail("Your cart is empty"), nil
	case c.ShippingAddress == nil:
		return fail("Shipping address is required"), nil
	case c.PaymentMethod == "":
		return fail("Payment method is required"), nil
	case c.ShippingPrice == nil || c.TaxPrice == nil:
		return fail("Order prices are not ready"), nil
	}

	key := idempotency.KeyForCart(c.CartID, c.Version)
	if in.IdempotencyKey != "" {
		key = idempotency.KeyForRequest(c.CartID, in.IdempotencyKey)
	}
	if res, ok, err := s.replay(ctx, key, c.CartID); err != nil || ok {
		return res, err
	}

	now := s.nowFunc().UTC()
	order := Order{
		OrderID:              s.newID(),
		UserID:               in.UserID,
		Email:                in.Email,
		Items:                ItemsFromCart(c.Items),
		ShippingAddress:      *c.ShippingAddress,
		ItemsPrice:           c.ItemsPrice,
		ShippingPrice:        *c.ShippingPrice,
		TaxPrice:             *c.TaxPrice,
		TotalPrice:           c.TotalPrice,
		PaymentMethod:        c.PaymentMethod,
		DeliveryDateIndex:    c.DeliveryDateIndex,
		ExpectedDeliveryDate: ExpectedDeliveryDate(now, in.DeliveryDate),
		Status:               StatusPending,
		IdempotencyKey:       key,
		CreatedAt:            now,
	}

	rec := s.idemp.NewRecord(key, order.OrderID, c.CartID)
	err := s.store.CreateWithIdempotencyTransaction(ctx, s.idemp.Table(), rec, order)
	if errors.Is(err, ErrDuplicateRequest) {
		// lost the race to a concurrent placement on another instance
		if res, ok, rerr := s.replay(ctx, key, c.CartID); rerr != nil || ok {
			return res, rerr
		}
		s.log.Warn("idempotency key held without a readable record", zap.String("idempotency_key", key))
		return fail("Your order is already being placed. Please try again in a moment."), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("create order: %w", err)
	}

	s.publish(ctx, Event{
		Type:           EventOrderPlaced,
		OrderID:        order.OrderID,
		IdempotencyKey: key,
		UserID:         order.UserID,
		PaymentMethod:  order.PaymentMethod,
		TotalPrice:     order.TotalPrice,
		OccurredAt:     now,
		CorrelationID:  in.CorrelationID,
	})

	res := Result{Success: true, Message: "Order placed successfully", OrderID: order.OrderID}
	body, _ := json.Marshal(res)
	if err := s.idemp.MarkDone(ctx, key, string(body), http.StatusCreated); err != nil {
		s.log.Warn("mark idempotency done", zap.String("order_id", order.OrderID), zap.Error(err))
	}
	s.record(ctx, aws.CountMetric(MetricOrdersPlaced, map[string]string{"PaymentMethod": order.PaymentMethod}))

	s.log.Info("order placed",
		zap.String("order_id", order.OrderID),
		zap.String("cart_id", c.CartID),
		zap.String("payment_method", order.PaymentMethod),
		zap.Stringer("total", order.TotalPrice))
	return res, nil
}

// replay resolves a key that already has a record. ok is false when the
// key is unused. A record written for another cart never resolves.
func (s *Service) replay(ctx context.Context, key, cartID string) (Result, bool, error) {
	rec, err := s.idemp.Get(ctx, key)
	if err != nil {
		return Result{}, false, fmt.Errorf("idempotency check: %w", err)
	}
	if rec == nil {
		return Result{}, false, nil
	}
	if rec.CartID != cartID {
		s.log.Warn("idempotency key belongs to another cart", zap.String("idempotency_key", key), zap.String("cart_id", cartID))
		return fail("This request was already used for another cart"), true, nil
	}
	switch rec.Status {
	case idempotency.StatusDone, idempotency.StatusInProgress:
		s.log.Info("duplicate placement", zap.String("idempotency_key", key), zap.String("order_id", rec.OrderID))
		return Result{Success: true, Message: "Order placed successfully", OrderID: rec.OrderID}, true, nil
	case idempotency.StatusFailed:
		return fail("A previous attempt to place this order failed. Please update your cart and try again."), true, nil
	default:
		return Result{}, true, fmt.Errorf("unknown idempotency status %q", rec.Status)
	}
}

// ExpectedDeliveryDate is now plus the option's delivery days.
func ExpectedDeliveryDate(now time.Time, d settings.DeliveryDate) time.Time {
	return now.AddDate(0, 0, d.DaysToDeliver)
}

// GetOrderByID returns an order or ErrNotFound.
func (s *Service) GetOrderByID(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	return o, nil
}

// GetMyOrders lists the user's orders, newest first.
func (s *Service) GetMyOrders(ctx context.Context, userID string, page, limit int) (Page, error) {
	data, total, err := s.store.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Data: data, TotalPages: total}, nil
}

// payPalAmount converts a store currency total to PayPalCurrency at the
// configured rate.
func (s *Service) payPalAmount(total money.Amount) (money.Amount, bool) {
	if s.settings == nil {
		return money.Zero, false
	}
	usd, ok := s.settings.Currency(PayPalCurrency)
	if !ok {
		return money.Zero, false
	}
	return total.MulRate(usd.ConvertRate), true
}

// CreatePayPalOrder opens a PayPal order for the order total converted to
// PayPalCurrency and returns the provider token in Result.Token. The
// converted amount is kept on the payment result for the capture check.
func (s *Service) CreatePayPalOrder(ctx context.Context, orderID string) (Result, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if o == nil {
		return fail("Order not found"), nil
	}
	if o.IsPaid {
		return fail("Order is already paid"), nil
	}

	amount, ok := s.payPalAmount(o.TotalPrice)
	if !ok {
		return fail("PayPal is not available for this store currency"), nil
	}

	token, err := s.paypal.CreateOrder(ctx, amount, PayPalCurrency)
	if err != nil {
		s.log.Warn("paypal create order", zap.String("order_id", orderID), zap.Error(err))
		return Result{}, err
	}
	err = s.store.SetPaymentResult(ctx, orderID, PaymentResult{ID: token, Provider: settings.MethodPayPal, PricePaid: amount})
	if errors.Is(err, ErrAlreadyPaid) {
		return fail("Order is already paid"), nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "PayPal order created successfully", OrderID: orderID, Token: token}, nil
}

// ApprovePayPalOrder captures an approved PayPal order and marks the
// order paid.
func (s *Service) ApprovePayPalOrder(ctx context.Context, orderID, paypalOrderID string) (Result, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if o == nil {
		return s.rejected(ctx, settings.MethodPayPal, "Order not found"), nil
	}
	if o.IsPaid {
		return s.rejected(ctx, settings.MethodPayPal, "Order is already paid"), nil
	}
	if o.PaymentResult == nil || o.PaymentResult.ID != paypalOrderID {
		return s.rejected(ctx, settings.MethodPayPal, "PayPal order does not match this order"), nil
	}

	capture, err := s.paypal.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		s.record(ctx, rejectedMetric(settings.MethodPayPal))
		return Result{}, err
	}
	if capture.ID != paypalOrderID || capture.Status != "COMPLETED" {
		return s.rejected(ctx, settings.MethodPayPal, "Error in paypal payment"), nil
	}
	paid, err := money.Parse(capture.Amount)
	if err != nil || !paid.Equal(o.PaymentResult.PricePaid) {
		s.log.Warn("paypal capture amount mismatch",
			zap.String("order_id", orderID),
			zap.String("captured", capture.Amount),
			zap.Stringer("expected", o.PaymentResult.PricePaid))
		return s.rejected(ctx, settings.MethodPayPal, "Payment amount does not match order total"), nil
	}

	return s.markPaid(ctx, o, &PaymentResult{
		ID:           capture.ID,
		Status:       capture.Status,
		EmailAddress: capture.PayerEmail,
		PricePaid:    paid,
		Provider:     settings.MethodPayPal,
	}, "Your order has been successfully paid by PayPal")
}

// ApprovePaystackOrder verifies a Paystack transaction reported by the
// inline widget and marks the order paid. amountMinor is what the widget
// charged, in kobo.
func (s *Service) ApprovePaystackOrder(ctx context.Context, orderID, reference string, amountMinor int64) (Result, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if o == nil {
		return s.rejected(ctx, settings.MethodPaystack, "Order not found"), nil
	}
	if o.IsPaid {
		return s.rejected(ctx, settings.MethodPaystack, "Order is already paid"), nil
	}
	want := o.TotalPrice.MinorUnits()
	if amountMinor != want {
		return s.rejected(ctx, settings.MethodPaystack, "Payment amount does not match order total"), nil
	}

	tx, err := s.paystack.Verify(ctx, reference)
	if err != nil {
		s.record(ctx, rejectedMetric(settings.MethodPaystack))
		return Result{}, err
	}
	if tx.Status != "success" || tx.Amount != want {
		return s.rejected(ctx, settings.MethodPaystack, "Paystack payment could not be verified"), nil
	}
	key := ReferenceKey(settings.MethodPaystack, tx.Reference)
	claimed, err := s.claimReference(ctx, key, orderID)
	if err != nil {
		return Result{}, err
	}
	if !claimed {
		s.log.Warn("paystack reference reused", zap.String("order_id", orderID), zap.String("reference", tx.Reference))
		return s.rejected(ctx, settings.MethodPaystack, "Payment reference has already been used"), nil
	}

	res, err := s.markPaid(ctx, o, &PaymentResult{
		ID:        tx.Reference,
		Status:    tx.Status,
		PricePaid: money.FromMinorUnits(tx.Amount),
		Reference: tx.Reference,
		Provider:  settings.MethodPaystack,
	}, "Your order has been successfully paid by Paystack")
	if err == nil && res.Success {
		body, _ := json.Marshal(res)
		if err := s.idemp.MarkDone(ctx, key, string(body), http.StatusOK); err != nil {
			s.log.Warn("mark reference done", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return res, err
}

// ApproveStripeOrder reads back the PaymentIntent the browser confirmed and
// marks the order paid once it succeeded for this order and amount.
func (s *Service) ApproveStripeOrder(ctx context.Context, orderID, intentID string) (Result, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if o == nil {
		return s.rejected(ctx, settings.MethodStripe, "Order not found"), nil
	}
	if o.IsPaid {
		return s.rejected(ctx, settings.MethodStripe, "Order is already paid"), nil
	}
	if s.stripe == nil {
		return Result{}, provider.ErrNotConfigured
	}

	pi, err := s.stripe.RetrievePaymentIntent(ctx, intentID)
	if err != nil {
		s.record(ctx, rejectedMetric(settings.MethodStripe))
		return Result{}, err
	}
	switch {
	case pi.OrderID != orderID:
		return s.rejected(ctx, settings.MethodStripe, "Payment does not belong to this order"), nil
	case pi.Status != "succeeded":
		return s.rejected(ctx, settings.MethodStripe, "Stripe payment has not succeeded"), nil
	case pi.Amount != o.TotalPrice.MinorUnits() || !strings.EqualFold(pi.Currency, StoreCurrency):
		return s.rejected(ctx, settings.MethodStripe, "Payment amount does not match order total"), nil
	}

	return s.markPaid(ctx, o, &PaymentResult{
		ID:        pi.ID,
		Status:    pi.Status,
		PricePaid: money.FromMinorUnits(pi.Amount),
		Reference: pi.ID,
		Provider:  settings.MethodStripe,
	}, "Your order has been successfully paid by Stripe")
}

// ReferenceKey is the idempotency key that binds a provider payment
// reference to the first order it settles.
func ReferenceKey(method, reference string) string {
	return fmt.Sprintf("ref:%s:%s", method, reference)
}

// claimReference records key for orderID. A key already held by another
// order is refused; the same order may retry.
func (s *Service) claimReference(ctx context.Context, key, orderID string) (bool, error) {
	created, err := s.idemp.CreateIfNotExists(ctx, s.idemp.NewRecord(key, orderID, ""))
	if err != nil || created {
		return created, err
	}
	rec, err := s.idemp.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("reference check: %w", err)
	}
	return rec == nil || rec.OrderID == orderID, nil
}

// UpdateOrderToPaid is the admin confirmation of a cash-on-delivery payment.
func (s *Service) UpdateOrderToPaid(ctx context.Context, orderID string) (Result, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if o == nil {
		return fail("Order not found"), nil
	}
	if o.IsPaid {
		return fail("Order is already paid"), nil
	}
	return s.markPaid(ctx, o, nil, "Order paid successfully")
}

// DeliverOrder is the admin confirmation of delivery.
func (s *Service) DeliverOrder(ctx context.Context, orderID string) (Result, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if o == nil {
		return fail("Order not found"), nil
	}
	if !o.IsPaid {
		return fail("Order is not paid"), nil
	}
	if o.IsDelivered {
		return fail("Order is already delivered"), nil
	}
	err = s.store.MarkDelivered(ctx, orderID)
	if errors.Is(err, ErrNotDeliverable) {
		return fail("Order is not paid or already delivered"), nil
	}
	if err != nil {
		return Result{}, err
	}
	s.publish(ctx, Event{
		Type:           EventOrderDelivered,
		OrderID:        o.OrderID,
		IdempotencyKey: o.IdempotencyKey,
		UserID:         o.UserID,
		PaymentMethod:  o.PaymentMethod,
		TotalPrice:     o.TotalPrice,
		OccurredAt:     s.nowFunc().UTC(),
	})
	return Result{Success: true, Message: "Order delivered successfully", OrderID: orderID}, nil
}

func (s *Service) markPaid(ctx context.Context, o *Order, result *PaymentResult, msg string) (Result, error) {
	err := s.store.MarkPaid(ctx, o.OrderID, result)
	if errors.Is(err, ErrAlreadyPaid) {
		return s.rejected(ctx, o.PaymentMethod, "Order is already paid"), nil
	}
	if err != nil {
		return Result{}, err
	}

	s.publish(ctx, Event{
		Type:           EventOrderPaid,
		OrderID:        o.OrderID,
		IdempotencyKey: o.IdempotencyKey,
		UserID:         o.UserID,
		PaymentMethod:  o.PaymentMethod,
		TotalPrice:     o.TotalPrice,
		OccurredAt:     s.nowFunc().UTC(),
	})
	s.record(ctx, aws.CountMetric(MetricPaymentApproved, map[string]string{"Provider": o.PaymentMethod}))
	s.log.Info("order paid", zap.String("order_id", o.OrderID), zap.String("payment_method", o.PaymentMethod))
	return Result{Success: true, Message: msg, OrderID: o.OrderID}, nil
}

func (s *Service) rejected(ctx context.Context, method, msg string) Result {
	s.record(ctx, rejectedMetric(method))
	return fail(msg)
}

func rejectedMetric(method string) aws.Metric {
	return aws.CountMetric(MetricPaymentRejected, map[string]string{"Provider": method})
}

// publish is best effort: the order is already persisted and the worker
// only advances its status.
func (s *Service) publish(ctx context.Context, ev Event) {
	if err := s.publisher.Publish(ctx, ev, ev.Attributes()); err != nil {
		s.log.Warn("publish order event", zap.String("type", ev.Type), zap.String("order_id", ev.OrderID), zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, m aws.Metric) {
	if err := s.metrics.Put(ctx, m); err != nil {
		s.log.Warn("put metric", zap.String("metric", m.Name), zap.Error(err))
	}
}
