package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/catalog"
	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/payment"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
)

// HandlerConfig groups dependencies for the route groups. Every store is
// built once in main and shared.
type HandlerConfig struct {
	Settings  *settings.Store
	Carts     *cart.Store
	Wizard    *checkout.Wizard
	Orders    *orders.Service
	Payments  *payment.Service
	Products  *catalog.ProductStore
	Pages     *catalog.PageStore
	History   *catalog.History
	Validator *validatorv10.Validate
	Logger    *zap.Logger
}

// NewRouter builds the engine with middleware and every route group.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(cfg.Logger), Authenticate(), Visitor(cfg.Settings, cfg.Carts.NewCartID))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterSettingsRoutes(r, cfg)
	RegisterCatalogRoutes(r, cfg)
	RegisterCartRoutes(r, cfg)
	RegisterCheckoutRoutes(r, cfg)
	RegisterOrdersRoutes(r, cfg)
	return r
}
