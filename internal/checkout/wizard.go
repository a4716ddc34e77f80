// Package checkout drives the three-step checkout wizard over the cart
// store and hands the finished cart to order placement.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/notice"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
	"github.com/imrishuroy/storefront-checkout/internal/validation"
)

var ErrStepNotReached = errors.New("checkout step not reached yet")

// PlaceOrderErrorMessage is shown when placement fails for reasons the
// visitor cannot fix.
const PlaceOrderErrorMessage = "An error occurred while placing your order"

// OrderPlacer is the order boundary used at the end of the wizard.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, in orders.CreateInput) (orders.Result, error)
}

// Customer identifies who is placing the order.
type Customer struct {
	UserID        string
	Email         string
	CorrelationID string
}

// PlaceResult is the outcome of PlaceOrder.
type PlaceResult struct {
	Result   orders.Result
	Cart     *cart.Cart
	Notice   *notice.Notice
	Redirect string
	Shared   bool
}

type Wizard struct {
	carts    *cart.Store
	settings *settings.Store
	orders   OrderPlacer
	validate *validator.Validate
	log      *zap.Logger
	group    singleflight.Group
	nowFunc  func() time.Time
}

func NewWizard(carts *cart.Store, st *settings.Store, placer OrderPlacer, v *validator.Validate, log *zap.Logger) *Wizard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Wizard{
		carts:    carts,
		settings: st,
		orders:   placer,
		validate: v,
		log:      log,
		nowFunc:  time.Now,
	}
}

// Now is the wizard clock, used for delivery dates.
func (w *Wizard) Now() time.Time { return w.nowFunc() }

// Cart returns the current cart and checkout state.
func (w *Wizard) Cart(ctx context.Context, cartID string) (*cart.Cart, error) {
	return w.carts.Get(ctx, cartID)
}

// SubmitShippingAddress validates and stores the address, then moves to
// the payment method step. An invalid address returns *validation.Error
// and leaves the wizard where it was.
func (w *Wizard) SubmitShippingAddress(ctx context.Context, cartID string, addr cart.ShippingAddress) (*cart.Cart, error) {
	if err := validation.Validate(w.validate, addr); err != nil {
		return nil, err
	}
	if _, err := w.carts.SetShippingAddress(ctx, cartID, addr); err != nil {
		return nil, err
	}
	return w.carts.SetCheckoutStep(ctx, cartID, cart.StepPaymentMethod)
}

// SelectPaymentMethod stores the method and moves to review.
func (w *Wizard) SelectPaymentMethod(ctx context.Context, cartID, method string) (*cart.Cart, error) {
	c, err := w.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.FurthestStep < cart.StepPaymentMethod || c.ShippingAddress == nil {
		return nil, fmt.Errorf("%w: shipping address first", ErrStepNotReached)
	}
	if _, err := w.carts.SetPaymentMethod(ctx, cartID, method); err != nil {
		return nil, err
	}
	return w.carts.SetCheckoutStep(ctx, cartID, cart.StepReviewAndPlace)
}

// Back goes one step back. Data entered in later steps is kept.
func (w *Wizard) Back(ctx context.Context, cartID string) (*cart.Cart, error) {
	c, err := w.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.CheckoutStep <= cart.StepShippingAddress {
		return c, nil
	}
	return w.carts.SetCheckoutStep(ctx, cartID, c.CheckoutStep-1)
}

// GoTo jumps to any step already reached.
func (w *Wizard) GoTo(ctx context.Context, cartID string, step cart.Step) (*cart.Cart, error) {
	if !step.Valid() {
		return nil, fmt.Errorf("%w: %d", cart.ErrInvalidStep, step)
	}
	c, err := w.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if step > c.FurthestStep {
		return nil, fmt.Errorf("%w: step %d", ErrStepNotReached, step)
	}
	if step == c.CheckoutStep {
		return c, nil
	}
	return w.carts.SetCheckoutStep(ctx, cartID, step)
}

// PlaceOrder turns the cart into an order. Concurrent calls for the same
// cart share one placement. On success the cart is cleared and the result
// redirects to the order payment page; on failure the cart stays on the
// review step.
func (w *Wizard) PlaceOrder(ctx context.Context, cartID string, who Customer, idempotencyKey string) (*PlaceResult, error) {
	v, err, shared := w.group.Do(cartID, func() (any, error) {
		return w.place(context.WithoutCancel(ctx), cartID, who, idempotencyKey)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*PlaceResult)
	res.Shared = shared
	return &res, nil
}

func (w *Wizard) place(ctx context.Context, cartID string, who Customer, idempotencyKey string) (*PlaceResult, error) {
	c, err := w.carts.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if c.CheckoutStep != cart.StepReviewAndPlace {
		return nil, fmt.Errorf("%w: review step", ErrStepNotReached)
	}
	delivery, ok := w.settings.DeliveryDate(c.DeliveryDateIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", cart.ErrInvalidDeliveryDate, c.DeliveryDateIndex)
	}

	res, err := w.orders.CreateOrder(ctx, orders.CreateInput{
		Cart:           c,
		UserID:         who.UserID,
		Email:          who.Email,
		IdempotencyKey: idempotencyKey,
		DeliveryDate:   delivery,
		CorrelationID:  who.CorrelationID,
	})
	if err != nil {
		w.log.Error("place order", zap.String("cart_id", cartID), zap.Error(err))
		return nil, err
	}
	if !res.Success {
		return &PlaceResult{Result: res, Cart: c, Notice: notice.Destructive(res.Message)}, nil
	}

	cleared, err := w.carts.Clear(ctx, cartID)
	if err != nil {
		// the order exists; placement still succeeds
		w.log.Warn("clear cart after order", zap.String("cart_id", cartID), zap.String("order_id", res.OrderID), zap.Error(err))
		cleared = c
	}
	return &PlaceResult{
		Result:   res,
		Cart:     cleared,
		Notice:   notice.Default(res.Message),
		Redirect: "/checkout/" + res.OrderID,
	}, nil
}
