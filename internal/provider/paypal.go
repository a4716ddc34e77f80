package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/imrishuroy/storefront-checkout/internal/money"
)

// PayPal talks to the PayPal Orders v2 API.
type PayPal struct {
	c            *caller
	baseURL      string
	clientID     string
	clientSecret string
}

// PayPalCapture is the part of a capture response the storefront keeps.
type PayPalCapture struct {
	ID         string
	Status     string
	PayerEmail string
	Amount     string
}

func NewPayPal(hc *http.Client, baseURL, clientID, clientSecret string) *PayPal {
	return &PayPal{
		c:            newCaller("paypal", hc),
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (p *PayPal) Configured() bool { return p.clientID != "" && p.clientSecret != "" }

func (p *PayPal) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := p.c.do(req)
	if err != nil {
		return "", fmt.Errorf("access token: %w", err)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}
	return out.AccessToken, nil
}

func (p *PayPal) authed(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return p.c.do(req)
}

// CreateOrder opens a PayPal order for amount and returns its id, the
// token the buyer approves in the PayPal popup.
func (p *PayPal) CreateOrder(ctx context.Context, amount money.Amount, currencyCode string) (string, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": currencyCode,
				"value":         amount.String(),
			},
		}},
	}
	body, err := p.authed(ctx, http.MethodPost, "/v2/checkout/orders", payload)
	if err != nil {
		return "", fmt.Errorf("create paypal order: %w", err)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode paypal order: %w", err)
	}
	return out.ID, nil
}

// CaptureOrder captures an approved PayPal order.
func (p *PayPal) CaptureOrder(ctx context.Context, paypalOrderID string) (PayPalCapture, error) {
	body, err := p.authed(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(paypalOrderID)+"/capture", nil)
	if err != nil {
		return PayPalCapture{}, fmt.Errorf("capture paypal order: %w", err)
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Payer  struct {
			EmailAddress string `json:"email_address"`
		} `json:"payer"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					Amount struct {
						Value string `json:"value"`
					} `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return PayPalCapture{}, fmt.Errorf("decode paypal capture: %w", err)
	}
	capture := PayPalCapture{ID: out.ID, Status: out.Status, PayerEmail: out.Payer.EmailAddress}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		capture.Amount = out.PurchaseUnits[0].Payments.Captures[0].Amount.Value
	}
	return capture, nil
}
