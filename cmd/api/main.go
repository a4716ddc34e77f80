package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/aws"
	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/catalog"
	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/config"
	"github.com/imrishuroy/storefront-checkout/internal/handlers"
	"github.com/imrishuroy/storefront-checkout/internal/idempotency"
	"github.com/imrishuroy/storefront-checkout/internal/logger"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/payment"
	"github.com/imrishuroy/storefront-checkout/internal/provider"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
	"github.com/imrishuroy/storefront-checkout/internal/validation"
)

func loadSettings(cfg config.Config) (*settings.Store, error) {
	if cfg.SettingsPath != "" {
		return settings.Load(cfg.SettingsPath, cfg.DefaultCurrency)
	}
	return settings.New(settings.Defaults(), cfg.DefaultCurrency)
}

func setupRouter(cfg config.Config, clients *aws.AWSClients, zl *zap.Logger) (*gin.Engine, error) {
	st, err := loadSettings(cfg)
	if err != nil {
		return nil, err
	}

	var repo cart.Repository = cart.NewMemoryRepository()
	if cfg.CartsTable != "" {
		repo = cart.NewDynamoRepository(clients.DynamoDB, cfg.CartsTable)
	} else {
		zl.Warn("CARTS_TABLE not set; carts are kept in memory")
	}
	carts := cart.NewStore(repo, st, cfg.CartTTL)

	hc := provider.NewHTTPClient(cfg.ProviderTimeout)
	stripe := provider.NewStripe(hc, cfg.Stripe.APIURL, cfg.Stripe.SecretKey)
	svc := orders.NewService(orders.ServiceConfig{
		Store:       orders.NewStore(clients.DynamoDB, cfg.OrdersTable, cfg.OrdersUserIndex),
		Idempotency: idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		Publisher:   aws.NewPublisher(clients.SQS, cfg.OrdersQueueURL),
		Metrics:     aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace),
		PayPal:      provider.NewPayPal(hc, cfg.PayPal.APIURL, cfg.PayPal.ClientID, cfg.PayPal.ClientSecret),
		Paystack:    provider.NewPaystack(hc, cfg.Paystack.APIURL, cfg.Paystack.SecretKey),
		Stripe:      stripe,
		Settings:    st,
		Logger:      zl,
	})
	payments := payment.NewService(svc,
		stripe,
		st,
		payment.Keys{
			PayPalClientID:       cfg.PayPal.ClientID,
			StripePublishableKey: cfg.Stripe.PublishableKey,
			PaystackPublicKey:    cfg.Paystack.PublicKey,
		},
		zl,
	)

	v := validation.New()
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	return handlers.NewRouter(handlers.HandlerConfig{
		Settings:  st,
		Carts:     carts,
		Wizard:    checkout.NewWizard(carts, st, svc, v, zl),
		Orders:    svc,
		Payments:  payments,
		Products:  catalog.NewProductStore(clients.DynamoDB, cfg.ProductsTable),
		Pages:     catalog.NewPageStore(clients.DynamoDB, cfg.WebPagesTable),
		History:   catalog.NewHistory(rdb),
		Validator: v,
		Logger:    zl,
	}), nil
}

func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zl.Sync()

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		zl.Fatal("failed to init aws clients", zap.Error(err))
	}

	r, err := setupRouter(cfg, clients, zl)
	if err != nil {
		zl.Fatal("failed to build router", zap.Error(err))
	}

	// RUN_LOCAL=true serves plain HTTP for development.
	if cfg.RunLocal {
		zl.Info("running local server", zap.String("addr", cfg.HTTPAddr))
		if err := r.Run(cfg.HTTPAddr); err != nil {
			zl.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
