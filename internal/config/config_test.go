package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ORDERS_TABLE", "")
	t.Setenv("RUN_LOCAL", "")
	t.Setenv("IDEMPOTENCY_TTL", "")

	cfg := Load()
	assert.Equal(t, "orders", cfg.OrdersTable)
	assert.False(t, cfg.RunLocal)
	assert.Equal(t, 48*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, "NGN", cfg.DefaultCurrency)
	assert.Equal(t, "https://api.paystack.co", cfg.Paystack.APIURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ORDERS_TABLE", "orders-test")
	t.Setenv("RUN_LOCAL", "true")
	t.Setenv("IDEMPOTENCY_TTL", "2h")
	t.Setenv("PROVIDER_TIMEOUT", "not-a-duration")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test")

	cfg := Load()
	assert.Equal(t, "orders-test", cfg.OrdersTable)
	assert.True(t, cfg.RunLocal)
	assert.Equal(t, 2*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, 10*time.Second, cfg.ProviderTimeout, "bad values fall back")
	assert.Equal(t, "sk_test", cfg.Stripe.SecretKey)
}
