package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Paystack verifies transactions completed in the inline widget.
type Paystack struct {
	c         *caller
	baseURL   string
	secretKey string
}

// PaystackTransaction is a verified transaction. Amount is in minor units.
type PaystackTransaction struct {
	Reference string
	Status    string
	Amount    int64
	Currency  string
}

func NewPaystack(hc *http.Client, baseURL, secretKey string) *Paystack {
	return &Paystack{
		c:         newCaller("paystack", hc),
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
	}
}

func (p *Paystack) Configured() bool { return p.secretKey != "" }

// Verify looks up a transaction by the reference the widget reported.
func (p *Paystack) Verify(ctx context.Context, reference string) (PaystackTransaction, error) {
	if !p.Configured() {
		return PaystackTransaction{}, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return PaystackTransaction{}, err
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)

	body, err := p.c.do(req)
	if err != nil {
		return PaystackTransaction{}, fmt.Errorf("verify paystack transaction: %w", err)
	}
	var out struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return PaystackTransaction{}, fmt.Errorf("decode paystack transaction: %w", err)
	}
	if !out.Status {
		return PaystackTransaction{}, fmt.Errorf("verify paystack transaction: %w: %s", ErrRejected, out.Message)
	}
	return PaystackTransaction{
		Reference: out.Data.Reference,
		Status:    out.Data.Status,
		Amount:    out.Data.Amount,
		Currency:  out.Data.Currency,
	}, nil
}
