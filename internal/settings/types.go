package settings

import "github.com/imrishuroy/storefront-checkout/internal/money"

// Site is the storefront metadata shown in titles and footers.
type Site struct {
	Name        string `json:"name"`
	Slogan      string `json:"slogan"`
	Description string `json:"description"`
	Email       string `json:"email"`
	URL         string `json:"url"`
	PageSize    int    `json:"page_size"`
}

// Currency is a selectable display currency. Prices are stored in the
// base currency (convert rate 1) and multiplied by ConvertRate on display.
type Currency struct {
	Code        string  `json:"code"`
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	ConvertRate float64 `json:"convert_rate"`
}

// PaymentMethod is a payment option offered at checkout.
type PaymentMethod struct {
	Name       string  `json:"name"`
	Commission float64 `json:"commission"`
}

// DeliveryDate is a delivery option. A zero FreeShippingMinPrice means the
// option never ships free.
type DeliveryDate struct {
	Name                 string       `json:"name"`
	DaysToDeliver        int          `json:"days_to_deliver"`
	ShippingPrice        money.Amount `json:"shipping_price"`
	FreeShippingMinPrice money.Amount `json:"free_shipping_min_price"`
}

// Setting is the process-wide storefront configuration.
type Setting struct {
	Site                    Site            `json:"site"`
	AvailableCurrencies     []Currency      `json:"available_currencies"`
	DefaultCurrency         string          `json:"default_currency"`
	AvailablePaymentMethods []PaymentMethod `json:"available_payment_methods"`
	DefaultPaymentMethod    string          `json:"default_payment_method"`
	AvailableDeliveryDates  []DeliveryDate  `json:"available_delivery_dates"`
	TaxRate                 float64         `json:"tax_rate"`
}

// Payment method names. They double as the stored value on carts and orders.
const (
	MethodPayPal         = "PayPal"
	MethodStripe         = "Stripe"
	MethodPaystack       = "Paystack"
	MethodCashOnDelivery = "Cash On Delivery"
)

// SupportedPaymentMethod reports whether name has a checkout gateway.
func SupportedPaymentMethod(name string) bool {
	switch name {
	case MethodPayPal, MethodStripe, MethodPaystack, MethodCashOnDelivery:
		return true
	}
	return false
}

// DefaultTaxRate applies when the loaded setting leaves the tax rate unset.
const DefaultTaxRate = 0.075

// Defaults returns the built-in storefront setting.
func Defaults() Setting {
	return Setting{
		Site: Site{
			Name:        "Storefront",
			Slogan:      "Spend less, enjoy more.",
			Description: "An online store for everyday essentials.",
			Email:       "support@storefront.example",
			URL:         "http://localhost:8080",
			PageSize:    9,
		},
		AvailableCurrencies: []Currency{
			{Code: "NGN", Symbol: "₦", Name: "Nigerian Naira", ConvertRate: 1},
			{Code: "USD", Symbol: "$", Name: "United States Dollar", ConvertRate: 0.00065},
			{Code: "EUR", Symbol: "€", Name: "Euro", ConvertRate: 0.0006},
		},
		DefaultCurrency: "NGN",
		AvailablePaymentMethods: []PaymentMethod{
			{Name: MethodPayPal, Commission: 0},
			{Name: MethodStripe, Commission: 0},
			{Name: MethodPaystack, Commission: 0},
			{Name: MethodCashOnDelivery, Commission: 0},
		},
		DefaultPaymentMethod: MethodPayPal,
		AvailableDeliveryDates: []DeliveryDate{
			{Name: "Tomorrow", DaysToDeliver: 1, ShippingPrice: money.MustParse("5000")},
			{Name: "Next 3 Days", DaysToDeliver: 3, ShippingPrice: money.MustParse("2500")},
			{Name: "Next 5 Days", DaysToDeliver: 5, ShippingPrice: money.MustParse("1500"), FreeShippingMinPrice: money.MustParse("10000")},
		},
		TaxRate: DefaultTaxRate,
	}
}
