// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string
	RunLocal bool

	CartsTable       string
	OrdersTable      string
	OrdersUserIndex  string
	IdempotencyTable string
	ProductsTable    string
	WebPagesTable    string
	OrdersQueueURL   string
	MetricsNamespace string
	IdempotencyTTL   time.Duration
	CartTTL          time.Duration

	RedisAddr string

	SettingsPath    string
	DefaultCurrency string

	PayPal          PayPalConfig
	Stripe          StripeConfig
	Paystack        PaystackConfig
	ProviderTimeout time.Duration
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	APIURL       string
}

type StripeConfig struct {
	PublishableKey string
	SecretKey      string
	APIURL         string
}

type PaystackConfig struct {
	PublicKey string
	SecretKey string
	APIURL    string
}

func Load() Config {
	return Config{
		AppEnv:   getEnv("APP_ENV", "prod"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		RunLocal: getEnvBool("RUN_LOCAL", false),

		CartsTable:       getEnv("CARTS_TABLE", ""),
		OrdersTable:      getEnv("ORDERS_TABLE", "orders"),
		OrdersUserIndex:  getEnv("ORDERS_USER_INDEX", "user_id-created_at-index"),
		IdempotencyTable: getEnv("IDEMPOTENCY_TABLE", "idempotency"),
		ProductsTable:    getEnv("PRODUCTS_TABLE", "products"),
		WebPagesTable:    getEnv("WEB_PAGES_TABLE", "web_pages"),
		OrdersQueueURL:   getEnv("ORDERS_QUEUE_URL", ""),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Storefront"),
		IdempotencyTTL:   getEnvDuration("IDEMPOTENCY_TTL", 48*time.Hour),
		CartTTL:          getEnvDuration("CART_TTL", 30*24*time.Hour),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		SettingsPath:    getEnv("SETTINGS_PATH", ""),
		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "NGN"),

		PayPal: PayPalConfig{
			ClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
			APIURL:       getEnv("PAYPAL_API_URL", "https://api-m.sandbox.paypal.com"),
		},
		Stripe: StripeConfig{
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			APIURL:         getEnv("STRIPE_API_URL", "https://api.stripe.com"),
		},
		Paystack: PaystackConfig{
			PublicKey: getEnv("PAYSTACK_PUBLIC_KEY", ""),
			SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
			APIURL:    getEnv("PAYSTACK_API_URL", "https://api.paystack.co"),
		},
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
