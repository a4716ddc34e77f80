package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Stripe creates PaymentIntents whose client secret the browser confirms.
type Stripe struct {
	c         *caller
	baseURL   string
	secretKey string
}

func NewStripe(hc *http.Client, baseURL, secretKey string) *Stripe {
	return &Stripe{
		c:         newCaller("stripe", hc),
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
	}
}

func (s *Stripe) Configured() bool { return s.secretKey != "" }

// CreatePaymentIntent returns the client secret of a new PaymentIntent for
// amountMinor units of currencyCode, tagged with the order id.
func (s *Stripe) CreatePaymentIntent(ctx context.Context, amountMinor int64, currencyCode, orderID string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	form := url.Values{
		"amount":            {strconv.FormatInt(amountMinor, 10)},
		"currency":          {strings.ToLower(currencyCode)},
		"metadata[orderId]": {orderID},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.secretKey, "")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", "order-"+orderID)

	body, err := s.c.do(req)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	var out struct {
		ClientSecret string `json:"client_secret"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode payment intent: %w", err)
	}
	if out.ClientSecret == "" {
		return "", fmt.Errorf("create payment intent: %w: empty client secret", ErrRejected)
	}
	return out.ClientSecret, nil
}

// StripePaymentIntent is the part of a PaymentIntent the storefront checks
// before marking an order paid.
type StripePaymentIntent struct {
	ID       string
	Status   string
	Amount   int64
	Currency string
	OrderID  string
}

// RetrievePaymentIntent fetches a PaymentIntent by id.
func (s *Stripe) RetrievePaymentIntent(ctx context.Context, intentID string) (StripePaymentIntent, error) {
	if !s.Configured() {
		return StripePaymentIntent{}, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/payment_intents/"+url.PathEscape(intentID), nil)
	if err != nil {
		return StripePaymentIntent{}, err
	}
	req.SetBasicAuth(s.secretKey, "")

	body, err := s.c.do(req)
	if err != nil {
		return StripePaymentIntent{}, fmt.Errorf("retrieve payment intent: %w", err)
	}
	var out struct {
		ID       string            `json:"id"`
		Status   string            `json:"status"`
		Amount   int64             `json:"amount"`
		Currency string            `json:"currency"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return StripePaymentIntent{}, fmt.Errorf("decode payment intent: %w", err)
	}
	return StripePaymentIntent{
		ID:       out.ID,
		Status:   out.Status,
		Amount:   out.Amount,
		Currency: out.Currency,
		OrderID:  out.Metadata["orderId"],
	}, nil
}
