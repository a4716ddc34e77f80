package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/aws/awstest"
	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/idempotency"
	"github.com/imrishuroy/storefront-checkout/internal/money"
	"github.com/imrishuroy/storefront-checkout/internal/notice"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
	"github.com/imrishuroy/storefront-checkout/internal/validation"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePlacer struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	result  orders.Result
	err     error
	last    orders.CreateInput
	mu      sync.Mutex
}

func (f *fakePlacer) CreateOrder(ctx context.Context, in orders.CreateInput) (orders.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = in
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type harness struct {
	w      *Wizard
	carts  *cart.Store
	st     *settings.Store
	placer *fakePlacer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := settings.New(settings.Defaults(), "NGN")
	require.NoError(t, err)
	carts := cart.NewStore(cart.NewMemoryRepository(), st, 0)
	placer := &fakePlacer{result: orders.Result{Success: true, Message: "Order placed successfully", OrderID: "o-1"}}
	w := NewWizard(carts, st, placer, validation.New(), nil)
	return &harness{w: w, carts: carts, st: st, placer: placer}
}

func randomAddress() cart.ShippingAddress {
	a := gofakeit.Address()
	return cart.ShippingAddress{
		FullName:   gofakeit.Name(),
		Street:     a.Street,
		City:       a.City,
		Province:   a.State,
		PostalCode: a.Zip,
		Country:    a.Country,
		Phone:      gofakeit.Phone(),
	}
}

// fill adds two lines worth 10,000 in total.
func (h *harness) fill(t *testing.T, cartID string) {
	t.Helper()
	ctx := context.Background()
	for _, slug := range []string{"tee", "cap"} {
		_, _, err := h.carts.AddItem(ctx, cartID, cart.Item{
			ProductID:    slug + "-id",
			Name:         slug,
			Slug:         slug,
			Quantity:     1,
			Price:        money.MustParse("5000"),
			CountInStock: 5,
		})
		require.NoError(t, err)
	}
}

// toReview walks a filled cart to the review step.
func (h *harness) toReview(t *testing.T, cartID, method string) {
	t.Helper()
	ctx := context.Background()
	h.fill(t, cartID)
	_, err := h.w.SubmitShippingAddress(ctx, cartID, randomAddress())
	require.NoError(t, err)
	_, err = h.w.SelectPaymentMethod(ctx, cartID, method)
	require.NoError(t, err)
}

func TestSubmitShippingAddress_Valid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	addr := randomAddress()

	c, err := h.w.SubmitShippingAddress(ctx, "c1", addr)
	require.NoError(t, err)
	assert.Equal(t, cart.StepPaymentMethod, c.CheckoutStep)
	assert.Equal(t, cart.StepPaymentMethod, c.FurthestStep)

	stored, err := h.carts.Get(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, stored.ShippingAddress)
	if diff := cmp.Diff(addr, *stored.ShippingAddress); diff != "" {
		t.Fatalf("address mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitShippingAddress_Invalid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	addr := randomAddress()
	addr.City = ""
	addr.Phone = ""

	_, err := h.w.SubmitShippingAddress(ctx, "c1", addr)
	var ve *validation.Error
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "city")
	assert.Contains(t, ve.Fields, "phone")

	c, err := h.carts.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, cart.StepShippingAddress, c.CheckoutStep)
	assert.Nil(t, c.ShippingAddress)
}

func TestSelectPaymentMethod_RequiresAddress(t *testing.T) {
	h := newHarness(t)
	_, err := h.w.SelectPaymentMethod(context.Background(), "c1", settings.MethodStripe)
	require.ErrorIs(t, err, ErrStepNotReached)
}

func TestSelectPaymentMethod_Unknown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.w.SubmitShippingAddress(ctx, "c1", randomAddress())
	require.NoError(t, err)

	_, err = h.w.SelectPaymentMethod(ctx, "c1", "Bitcoin")
	require.ErrorIs(t, err, cart.ErrUnknownPaymentMethod)
	c, _ := h.carts.Get(ctx, "c1")
	assert.Equal(t, cart.StepPaymentMethod, c.CheckoutStep)
}

func TestBackAndForward_KeepsSelection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toReview(t, "c1", settings.MethodStripe)

	c, err := h.w.Back(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, cart.StepPaymentMethod, c.CheckoutStep)
	assert.Equal(t, settings.MethodStripe, c.PaymentMethod)

	c, err = h.w.Back(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, cart.StepShippingAddress, c.CheckoutStep)
	assert.NotNil(t, c.ShippingAddress)

	// already at the first step
	c, err = h.w.Back(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, cart.StepShippingAddress, c.CheckoutStep)

	c, err = h.w.GoTo(ctx, "c1", cart.StepReviewAndPlace)
	require.NoError(t, err)
	assert.Equal(t, cart.StepReviewAndPlace, c.CheckoutStep)
	assert.Equal(t, settings.MethodStripe, c.PaymentMethod)
}

func TestGoTo_NotReached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.w.GoTo(ctx, "c1", cart.StepPaymentMethod)
	require.ErrorIs(t, err, ErrStepNotReached)

	_, err = h.w.GoTo(ctx, "c1", cart.Step(7))
	require.ErrorIs(t, err, cart.ErrInvalidStep)
}

func TestPlaceOrder_Success(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toReview(t, "c1", settings.MethodPaystack)

	res, err := h.w.PlaceOrder(ctx, "c1", Customer{UserID: "u1", Email: "ada@example.com"}, "")
	require.NoError(t, err)

	assert.Equal(t, int32(1), h.placer.calls.Load())
	assert.True(t, res.Result.Success)
	assert.Equal(t, "/checkout/o-1", res.Redirect)
	assert.Equal(t, notice.VariantDefault, res.Notice.Variant)
	assert.True(t, res.Cart.Empty())

	in := h.placer.last
	assert.Equal(t, "u1", in.UserID)
	assert.Equal(t, "Next 5 Days", in.DeliveryDate.Name)
	assert.Equal(t, "10750.00", in.Cart.TotalPrice.String())

	stored, err := h.carts.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, stored.Empty())
	assert.Equal(t, cart.StepShippingAddress, stored.CheckoutStep)
}

func TestPlaceOrder_FailureStaysOnReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.toReview(t, "c1", settings.MethodPayPal)
	h.placer.result = orders.Result{Success: false, Message: "Shipping address is required"}

	res, err := h.w.PlaceOrder(ctx, "c1", Customer{UserID: "u1"}, "")
	require.NoError(t, err)
	assert.False(t, res.Result.Success)
	assert.Empty(t, res.Redirect)
	assert.Equal(t, notice.Destructive("Shipping address is required"), res.Notice)

	stored, _ := h.carts.Get(ctx, "c1")
	assert.Equal(t, cart.StepReviewAndPlace, stored.CheckoutStep)
	assert.Len(t, stored.Items, 2)
	assert.Equal(t, int32(1), h.placer.calls.Load())
}

func TestPlaceOrder_InfrastructureError(t *testing.T) {
	h := newHarness(t)
	h.toReview(t, "c1", settings.MethodPayPal)
	h.placer.err = errors.New("dynamodb down")

	_, err := h.w.PlaceOrder(context.Background(), "c1", Customer{}, "")
	require.Error(t, err)
	stored, _ := h.carts.Get(context.Background(), "c1")
	assert.Len(t, stored.Items, 2)
}

func TestPlaceOrder_NotOnReview(t *testing.T) {
	h := newHarness(t)
	h.fill(t, "c1")
	_, err := h.w.PlaceOrder(context.Background(), "c1", Customer{}, "")
	require.ErrorIs(t, err, ErrStepNotReached)
	assert.Zero(t, h.placer.calls.Load())
}

func TestPlaceOrder_ConcurrentClicksJoin(t *testing.T) {
	h := newHarness(t)
	h.toReview(t, "c1", settings.MethodCashOnDelivery)
	h.placer.started = make(chan struct{})
	h.placer.release = make(chan struct{})

	const clicks = 5
	results := make([]*PlaceResult, clicks)
	errs := make([]error, clicks)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = h.w.PlaceOrder(context.Background(), "c1", Customer{UserID: "u1"}, "")
	}()
	<-h.placer.started
	for i := 1; i < clicks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.w.PlaceOrder(context.Background(), "c1", Customer{UserID: "u1"}, "")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(h.placer.release)
	wg.Wait()

	assert.Equal(t, int32(1), h.placer.calls.Load())
	for i := 0; i < clicks; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "/checkout/o-1", results[i].Redirect)
	}
}

func TestPlaceOrder_WithOrderService(t *testing.T) {
	st, err := settings.New(settings.Defaults(), "NGN")
	require.NoError(t, err)
	db := awstest.NewDynamoDB().
		AddTable("orders", "order_id").
		AddIndex("orders", "by-user", "user_id", "created_at").
		AddTable("idempotency", "idempotency_key")
	sqs := &awstest.SQS{}
	svc := orders.NewService(orders.ServiceConfig{
		Store:       orders.NewStore(db, "orders", "by-user"),
		Idempotency: idempotency.NewStore(db, "idempotency", time.Hour),
		Publisher:   aws.NewPublisher(sqs, "https://sqs.local/orders"),
		Metrics:     aws.NewMetrics(&awstest.CloudWatch{}, "Storefront"),
	})
	carts := cart.NewStore(cart.NewMemoryRepository(), st, 0)
	h := &harness{w: NewWizard(carts, st, svc, validation.New(), nil), carts: carts, st: st}
	h.toReview(t, "c1", settings.MethodCashOnDelivery)

	res, err := h.w.PlaceOrder(context.Background(), "c1", Customer{UserID: "u1", Email: "ada@example.com"}, "")
	require.NoError(t, err)
	require.True(t, res.Result.Success, res.Result.Message)
	assert.Equal(t, "/checkout/"+res.Result.OrderID, res.Redirect)
	assert.Equal(t, 1, db.Len("orders"))
	assert.Len(t, sqs.Messages, 1)

	o, err := svc.GetOrderByID(context.Background(), res.Result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "10750.00", o.TotalPrice.String())
	assert.True(t, o.ShippingPrice.IsZero())
}
