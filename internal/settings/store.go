package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/imrishuroy/storefront-checkout/internal/money"
)

var (
	// ErrUnknownCurrency is returned when a visitor selects a currency the
	// store does not offer.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrInvalidSetting is returned by New when the setting cannot be served.
	ErrInvalidSetting = errors.New("invalid setting")
)

// Store is the loaded, read-only setting. It is safe for concurrent use
// because nothing mutates it after New returns.
type Store struct {
	setting  Setting
	units    map[string]currency.Unit
	printer  *message.Printer
	fallback string
}

// New validates s and returns a Store serving it. fallbackCurrency is used
// when the setting has no default currency of its own.
func New(s Setting, fallbackCurrency string) (*Store, error) {
	if len(s.AvailableCurrencies) == 0 {
		return nil, fmt.Errorf("%w: no currencies", ErrInvalidSetting)
	}
	if len(s.AvailableDeliveryDates) == 0 {
		return nil, fmt.Errorf("%w: no delivery dates", ErrInvalidSetting)
	}
	if len(s.AvailablePaymentMethods) == 0 {
		return nil, fmt.Errorf("%w: no payment methods", ErrInvalidSetting)
	}
	for _, m := range s.AvailablePaymentMethods {
		if !SupportedPaymentMethod(m.Name) {
			return nil, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidSetting, m.Name)
		}
	}

	units := make(map[string]currency.Unit, len(s.AvailableCurrencies))
	for _, c := range s.AvailableCurrencies {
		u, err := currency.ParseISO(c.Code)
		if err != nil {
			return nil, fmt.Errorf("%w: currency %q: %v", ErrInvalidSetting, c.Code, err)
		}
		if c.ConvertRate <= 0 {
			return nil, fmt.Errorf("%w: currency %q has no convert rate", ErrInvalidSetting, c.Code)
		}
		units[u.String()] = u
	}

	if s.DefaultCurrency == "" {
		s.DefaultCurrency = fallbackCurrency
	}
	if _, ok := units[s.DefaultCurrency]; !ok {
		s.DefaultCurrency = s.AvailableCurrencies[0].Code
	}
	if s.DefaultPaymentMethod == "" {
		s.DefaultPaymentMethod = s.AvailablePaymentMethods[0].Name
	}
	if s.TaxRate == 0 {
		s.TaxRate = DefaultTaxRate
	}
	if s.Site.PageSize <= 0 {
		s.Site.PageSize = 9
	}

	st := &Store{
		setting:  s,
		units:    units,
		printer:  message.NewPrinter(language.English),
		fallback: s.DefaultCurrency,
	}
	if !st.HasPaymentMethod(s.DefaultPaymentMethod) {
		return nil, fmt.Errorf("%w: default payment method %q is not available", ErrInvalidSetting, s.DefaultPaymentMethod)
	}
	return st, nil
}

// Load reads a JSON setting file. An empty path loads Defaults.
func Load(path, fallbackCurrency string) (*Store, error) {
	if path == "" {
		return New(Defaults(), fallbackCurrency)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read setting: %w", err)
	}
	var s Setting
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode setting: %w", err)
	}
	return New(s, fallbackCurrency)
}

// Setting returns a copy of the loaded setting.
func (st *Store) Setting() Setting {
	s := st.setting
	s.AvailableCurrencies = append([]Currency(nil), s.AvailableCurrencies...)
	s.AvailablePaymentMethods = append([]PaymentMethod(nil), s.AvailablePaymentMethods...)
	s.AvailableDeliveryDates = append([]DeliveryDate(nil), s.AvailableDeliveryDates...)
	return s
}

func (st *Store) Site() Site { return st.setting.Site }

func (st *Store) PageSize() int { return st.setting.Site.PageSize }

func (st *Store) TaxRate() float64 { return st.setting.TaxRate }

func (st *Store) DefaultPaymentMethod() string { return st.setting.DefaultPaymentMethod }

// HasPaymentMethod reports whether name is one of the available methods.
func (st *Store) HasPaymentMethod(name string) bool {
	for _, m := range st.setting.AvailablePaymentMethods {
		if m.Name == name {
			return true
		}
	}
	return false
}

// DeliveryDate returns the delivery option at index i.
func (st *Store) DeliveryDate(i int) (DeliveryDate, bool) {
	if i < 0 || i >= len(st.setting.AvailableDeliveryDates) {
		return DeliveryDate{}, false
	}
	return st.setting.AvailableDeliveryDates[i], true
}

// DeliveryDates returns the available delivery options.
func (st *Store) DeliveryDates() []DeliveryDate {
	return append([]DeliveryDate(nil), st.setting.AvailableDeliveryDates...)
}

// DefaultDeliveryDateIndex is the last option, the slowest and cheapest.
func (st *Store) DefaultDeliveryDateIndex() int {
	return len(st.setting.AvailableDeliveryDates) - 1
}

// Currency returns the currency with the given ISO code.
func (st *Store) Currency(code string) (Currency, bool) {
	u, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, false
	}
	if _, ok := st.units[u.String()]; !ok {
		return Currency{}, false
	}
	for _, c := range st.setting.AvailableCurrencies {
		if c.Code == u.String() {
			return c, true
		}
	}
	return Currency{}, false
}

// ResolveCurrency returns the visitor's currency, falling back to the
// default when code is empty or unknown.
func (st *Store) ResolveCurrency(code string) Currency {
	if c, ok := st.Currency(code); ok {
		return c
	}
	c, _ := st.Currency(st.fallback)
	return c
}

// SelectCurrency validates a visitor's currency choice.
func (st *Store) SelectCurrency(code string) (Currency, error) {
	c, ok := st.Currency(code)
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}

// FormatPrice converts a base-currency amount into c and renders it with
// the currency symbol and thousands grouping, e.g. "₦10,750.00".
func (st *Store) FormatPrice(a money.Amount, c Currency) string {
	converted := a.MulRate(c.ConvertRate)
	return c.Symbol + st.printer.Sprintf("%.2f", converted.Float64())
}
