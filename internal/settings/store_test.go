package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/storefront-checkout/internal/money"
)

func TestDefaults(t *testing.T) {
	st, err := New(Defaults(), "NGN")
	require.NoError(t, err)

	assert.Equal(t, MethodPayPal, st.DefaultPaymentMethod())
	assert.Equal(t, 2, st.DefaultDeliveryDateIndex())
	assert.InDelta(t, 0.075, st.TaxRate(), 1e-9)

	d, ok := st.DeliveryDate(st.DefaultDeliveryDateIndex())
	require.True(t, ok)
	assert.Equal(t, "Next 5 Days", d.Name)
	assert.Equal(t, "10000.00", d.FreeShippingMinPrice.String())

	_, ok = st.DeliveryDate(3)
	assert.False(t, ok)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Setting)
	}{
		{"no currencies", func(s *Setting) { s.AvailableCurrencies = nil }},
		{"bad iso code", func(s *Setting) { s.AvailableCurrencies[0].Code = "XXQ1" }},
		{"zero rate", func(s *Setting) { s.AvailableCurrencies[1].ConvertRate = 0 }},
		{"no delivery dates", func(s *Setting) { s.AvailableDeliveryDates = nil }},
		{"unknown default method", func(s *Setting) { s.DefaultPaymentMethod = "Bitcoin" }},
		{"unsupported method", func(s *Setting) {
			s.AvailablePaymentMethods = append(s.AvailablePaymentMethods, PaymentMethod{Name: "Bank Transfer"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults()
			tt.mutate(&s)
			_, err := New(s, "NGN")
			assert.ErrorIs(t, err, ErrInvalidSetting)
		})
	}
}

func TestSelectCurrency(t *testing.T) {
	st, err := New(Defaults(), "NGN")
	require.NoError(t, err)

	c, err := st.SelectCurrency("usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", c.Code)

	_, err = st.SelectCurrency("JPY")
	assert.ErrorIs(t, err, ErrUnknownCurrency)

	assert.Equal(t, "NGN", st.ResolveCurrency("").Code)
	assert.Equal(t, "NGN", st.ResolveCurrency("JPY").Code)
	assert.Equal(t, "EUR", st.ResolveCurrency("EUR").Code)
}

func TestFormatPrice(t *testing.T) {
	st, err := New(Defaults(), "NGN")
	require.NoError(t, err)

	assert.Equal(t, "₦10,750.00", st.FormatPrice(money.MustParse("10750"), st.ResolveCurrency("NGN")))
	assert.Equal(t, "$6.99", st.FormatPrice(money.MustParse("10750"), st.ResolveCurrency("USD")))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setting.json")
	body := `{
		"site": {"name": "Shop", "page_size": 4},
		"available_currencies": [{"code": "USD", "symbol": "$", "name": "Dollar", "convert_rate": 1}],
		"available_payment_methods": [{"name": "Stripe"}],
		"available_delivery_dates": [{"name": "Tomorrow", "days_to_deliver": 1, "shipping_price": 10}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	st, err := Load(path, "NGN")
	require.NoError(t, err)
	assert.Equal(t, "USD", st.ResolveCurrency("").Code, "fallback not offered, first currency wins")
	assert.Equal(t, MethodStripe, st.DefaultPaymentMethod())
	assert.Equal(t, 4, st.PageSize())
	assert.InDelta(t, DefaultTaxRate, st.TaxRate(), 1e-9)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), "NGN")
	assert.Error(t, err)
}
