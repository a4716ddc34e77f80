package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/notice"
	"github.com/imrishuroy/storefront-checkout/internal/payment"
	"github.com/imrishuroy/storefront-checkout/internal/validation"
)

// RegisterCheckoutRoutes registers the checkout wizard and the order
// payment page.
func RegisterCheckoutRoutes(r *gin.Engine, cfg HandlerConfig) {
	render := func(c *gin.Context, status int, crt *cart.Cart) {
		c.JSON(status, checkout.Render(crt, cfg.Settings, currency(c), cfg.Wizard.Now()))
	}
	step := func(c *gin.Context, crt *cart.Cart, err error) {
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		render(c, http.StatusOK, crt)
	}

	r.GET("/checkout", func(c *gin.Context) {
		crt, err := cfg.Wizard.Cart(c.Request.Context(), cartID(c))
		step(c, crt, err)
	})

	r.POST("/checkout/shipping-address", func(c *gin.Context) {
		var addr cart.ShippingAddress
		if err := c.ShouldBindJSON(&addr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
			return
		}
		crt, err := cfg.Wizard.SubmitShippingAddress(c.Request.Context(), cartID(c), addr)
		step(c, crt, err)
	})

	r.POST("/checkout/payment-method", func(c *gin.Context) {
		var req validation.PaymentMethodRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}
		crt, err := cfg.Wizard.SelectPaymentMethod(c.Request.Context(), cartID(c), req.PaymentMethod)
		step(c, crt, err)
	})

	r.POST("/checkout/back", func(c *gin.Context) {
		crt, err := cfg.Wizard.Back(c.Request.Context(), cartID(c))
		step(c, crt, err)
	})

	r.POST("/checkout/step", func(c *gin.Context) {
		var req validation.StepRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}
		crt, err := cfg.Wizard.GoTo(c.Request.Context(), cartID(c), cart.Step(req.Step))
		step(c, crt, err)
	})

	r.POST("/checkout/place-order", func(c *gin.Context) {
		id, _ := identity(c)
		res, err := cfg.Wizard.PlaceOrder(c.Request.Context(), cartID(c), checkout.Customer{
			UserID:        id.UserID,
			Email:         id.Email,
			CorrelationID: c.GetString(ctxRequestID),
		}, c.GetHeader("Idempotency-Key"))
		if errors.Is(err, checkout.ErrStepNotReached) {
			writeError(c, cfg.Logger, err)
			return
		}
		if err != nil {
			cfg.Logger.Error("place order", zap.String("cart_id", cartID(c)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  "place_order_failed",
				"notice": notice.Destructive(checkout.PlaceOrderErrorMessage),
			})
			return
		}

		resp := checkout.Render(res.Cart, cfg.Settings, currency(c), cfg.Wizard.Now())
		resp.Notice = res.Notice
		if !res.Result.Success {
			c.JSON(http.StatusUnprocessableEntity, resp)
			return
		}
		resp.Redirect = res.Redirect
		c.Header("Location", res.Redirect)
		c.JSON(http.StatusCreated, gin.H{
			"order_id": res.Result.OrderID,
			"checkout": resp,
		})
	})

	r.GET("/checkout/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		if !canViewOrder(c, cfg) {
			return
		}
		page, err := cfg.Payments.Page(ctx, c.Param("id"), currency(c))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		if page.Redirect != "" {
			c.Redirect(http.StatusSeeOther, page.Redirect)
			return
		}
		c.JSON(http.StatusOK, page)
	})

	r.POST("/checkout/:id/paypal/create", func(c *gin.Context) {
		if !canViewOrder(c, cfg) {
			return
		}
		out, err := cfg.Payments.CreatePayPalOrder(c.Request.Context(), c.Param("id"))
		writeOutcome(c, cfg, out, err)
	})

	r.POST("/checkout/:id/paypal/approve", func(c *gin.Context) {
		var req validation.PayPalApproveRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}
		if !canViewOrder(c, cfg) {
			return
		}
		out, err := cfg.Payments.ApprovePayPalOrder(c.Request.Context(), c.Param("id"), req.PayPalOrderID)
		writeOutcome(c, cfg, out, err)
	})

	r.GET("/checkout/:id/stripe/return", func(c *gin.Context) {
		var req validation.StripeReturnRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_query", "msg": err.Error()})
			return
		}
		if err := validation.Validate(cfg.Validator, &req); err != nil {
			validation.WriteError(c, err)
			return
		}
		if !canViewOrder(c, cfg) {
			return
		}
		out, err := cfg.Payments.ApproveStripeOrder(c.Request.Context(), c.Param("id"), req.PaymentIntent)
		if err == nil && out.Kind == payment.KindOK && out.Redirect != "" {
			c.Redirect(http.StatusSeeOther, out.Redirect)
			return
		}
		writeOutcome(c, cfg, out, err)
	})

	r.POST("/checkout/:id/paystack/events", func(c *gin.Context) {
		var req validation.PaystackEventRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}
		if !canViewOrder(c, cfg) {
			return
		}
		out, err := cfg.Payments.HandlePaystackEvent(c.Request.Context(), c.Param("id"), payment.PaystackEvent{
			Type:        payment.PaystackEventType(req.Type),
			Reference:   req.Reference,
			AmountMinor: req.Amount,
			Message:     req.Message,
		})
		writeOutcome(c, cfg, out, err)
	})
}

func writeOutcome(c *gin.Context, cfg HandlerConfig, out payment.Outcome, err error) {
	if err != nil {
		writeError(c, cfg.Logger, err)
		return
	}
	status := http.StatusOK
	switch {
	case errors.Is(out.Err, payment.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(out.Err, payment.ErrProvider):
		status = http.StatusBadGateway
	}
	c.JSON(status, out)
}

// canViewOrder allows the order's owner and admins. It writes the
// response when access is refused.
func canViewOrder(c *gin.Context, cfg HandlerConfig) bool {
	id, _ := identity(c)
	o, err := cfg.Orders.GetOrderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, cfg.Logger, err)
		return false
	}
	if o.UserID != id.UserID && !id.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}
