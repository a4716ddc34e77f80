package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/validation"
)

// RegisterCartRoutes registers the cart operations of the visitor's cart.
func RegisterCartRoutes(r *gin.Engine, cfg HandlerConfig) {
	respond := func(c *gin.Context, status int, crt *cart.Cart, extra gin.H) {
		body := gin.H{
			"cart":    crt,
			"summary": checkout.NewSummary(crt, cfg.Settings, currency(c)),
		}
		for k, v := range extra {
			body[k] = v
		}
		c.JSON(status, body)
	}

	r.GET("/cart", func(c *gin.Context) {
		crt, err := cfg.Carts.Get(c.Request.Context(), cartID(c))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		respond(c, http.StatusOK, crt, nil)
	})

	r.POST("/cart/items", func(c *gin.Context) {
		ctx := c.Request.Context()
		var req validation.AddItemRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}
		p, err := cfg.Products.GetBySlug(ctx, req.Slug)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		item := cart.Item{
			ProductID:    p.ProductID,
			Name:         p.Name,
			Slug:         p.Slug,
			Category:     p.Category,
			Size:         req.Size,
			Color:        req.Color,
			Quantity:     req.Quantity,
			Price:        p.Price,
			CountInStock: p.CountInStock,
		}
		if len(p.Images) > 0 {
			item.Image = p.Images[0]
		}
		crt, clientID, err := cfg.Carts.AddItem(ctx, cartID(c), item)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		respond(c, http.StatusCreated, crt, gin.H{"client_id": clientID})
	})

	r.PUT("/cart/items/:clientId", func(c *gin.Context) {
		var req validation.UpdateQuantityRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}
		crt, err := cfg.Carts.UpdateItem(c.Request.Context(), cartID(c), c.Param("clientId"), req.Quantity)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		respond(c, http.StatusOK, crt, nil)
	})

	r.DELETE("/cart/items/:clientId", func(c *gin.Context) {
		crt, err := cfg.Carts.RemoveItem(c.Request.Context(), cartID(c), c.Param("clientId"))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		respond(c, http.StatusOK, crt, nil)
	})

	r.PUT("/cart/delivery-date", func(c *gin.Context) {
		var req validation.DeliveryDateRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}
		crt, err := cfg.Carts.SetDeliveryDateIndex(c.Request.Context(), cartID(c), *req.Index)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		respond(c, http.StatusOK, crt, nil)
	})
}
