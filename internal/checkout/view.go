package checkout

import (
	"fmt"
	"time"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/money"
	"github.com/imrishuroy/storefront-checkout/internal/notice"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
)

// Summary is the order summary sidebar, formatted in the visitor's currency.
type Summary struct {
	Items    string `json:"items"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// NewSummary formats the cart prices.
func NewSummary(c *cart.Cart, st *settings.Store, cur settings.Currency) Summary {
	return Summarize(c.ItemsPrice, c.ShippingPrice, c.TaxPrice, c.TotalPrice, st, cur)
}

// Summarize formats a price breakdown. Unset shipping and tax render as
// "--" and free shipping as "FREE".
func Summarize(items money.Amount, shipping, tax *money.Amount, total money.Amount, st *settings.Store, cur settings.Currency) Summary {
	s := Summary{
		Items:    st.FormatPrice(items, cur),
		Shipping: "--",
		Tax:      "--",
		Total:    st.FormatPrice(total, cur),
		Currency: cur.Code,
	}
	if shipping != nil {
		if shipping.IsZero() {
			s.Shipping = "FREE"
		} else {
			s.Shipping = st.FormatPrice(*shipping, cur)
		}
	}
	if tax != nil {
		s.Tax = st.FormatPrice(*tax, cur)
	}
	return s
}

// DeliveryOption is one selectable delivery date.
type DeliveryOption struct {
	Index        int       `json:"index"`
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	DateText     string    `json:"date_text"`
	ShippingText string    `json:"shipping_text"`
	Selected     bool      `json:"selected"`
}

// Delivery is the review step's delivery panel.
type Delivery struct {
	ExpectedDate     time.Time        `json:"expected_date"`
	ExpectedDateText string           `json:"expected_date_text"`
	OrderWithin      string           `json:"order_within"`
	Options          []DeliveryOption `json:"options"`
}

// Response is the checkout page state returned by every wizard call.
type Response struct {
	Step           cart.Step      `json:"step"`
	FurthestStep   cart.Step      `json:"furthest_step"`
	Cart           *cart.Cart     `json:"cart"`
	Summary        Summary        `json:"summary"`
	PaymentMethods []string       `json:"payment_methods"`
	Delivery       *Delivery      `json:"delivery,omitempty"`
	Notice         *notice.Notice `json:"notice,omitempty"`
	Redirect       string         `json:"redirect,omitempty"`
}

// Render builds the page state for c at time now.
func Render(c *cart.Cart, st *settings.Store, cur settings.Currency, now time.Time) *Response {
	methods := make([]string, 0)
	for _, m := range st.Setting().AvailablePaymentMethods {
		methods = append(methods, m.Name)
	}
	r := &Response{
		Step:           c.CheckoutStep,
		FurthestStep:   c.FurthestStep,
		Cart:           c,
		Summary:        NewSummary(c, st, cur),
		PaymentMethods: methods,
	}
	if c.ShippingAddress != nil {
		r.Delivery = newDelivery(c, st, cur, now)
	}
	return r
}

func newDelivery(c *cart.Cart, st *settings.Store, cur settings.Currency, now time.Time) *Delivery {
	d := &Delivery{OrderWithin: OrderWithin(now)}
	for i, opt := range st.DeliveryDates() {
		date := orders.ExpectedDeliveryDate(now, opt)
		shipping := opt.ShippingPrice
		if !opt.FreeShippingMinPrice.IsZero() && c.ItemsPrice.GreaterThanOrEqual(opt.FreeShippingMinPrice) {
			shipping = money.Zero
		}
		shippingText := "FREE Shipping"
		if !shipping.IsZero() {
			shippingText = st.FormatPrice(shipping, cur) + " - Shipping"
		}
		o := DeliveryOption{
			Index:        i,
			Name:         opt.Name,
			Date:         date,
			DateText:     date.Format("Monday, January 2"),
			ShippingText: shippingText,
			Selected:     i == c.DeliveryDateIndex,
		}
		if o.Selected {
			d.ExpectedDate = date
			d.ExpectedDateText = o.DateText
		}
		d.Options = append(d.Options, o)
	}
	return d
}

// TimeUntilMidnight is the time left until the end of now's day.
func TimeUntilMidnight(now time.Time) (hours, minutes int) {
	y, m, day := now.Date()
	midnight := time.Date(y, m, day+1, 0, 0, 0, 0, now.Location())
	left := midnight.Sub(now)
	return int(left / time.Hour), int((left % time.Hour) / time.Minute)
}

// OrderWithin is the cut-off line of the review step.
func OrderWithin(now time.Time) string {
	h, m := TimeUntilMidnight(now)
	return fmt.Sprintf("Order within %dh %dm for this delivery date", h, m)
}
