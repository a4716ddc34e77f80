package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/notice"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
)

// OrderDetail is the order page with the actions available to the viewer.
type OrderDetail struct {
	Order            *orders.Order    `json:"order"`
	Summary          checkout.Summary `json:"summary"`
	PayNow           bool             `json:"pay_now"`
	CanMarkPaid      bool             `json:"can_mark_paid"`
	CanMarkDelivered bool             `json:"can_mark_delivered"`
	PaymentURL       string           `json:"payment_url,omitempty"`
}

func newOrderDetail(o *orders.Order, admin bool, st *settings.Store, cur settings.Currency) OrderDetail {
	d := OrderDetail{
		Order:            o,
		Summary:          checkout.Summarize(o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, o.TotalPrice, st, cur),
		PayNow:           !o.IsPaid && (o.PaymentMethod == settings.MethodStripe || o.PaymentMethod == settings.MethodPayPal),
		CanMarkPaid:      admin && !o.IsPaid && o.PaymentMethod == settings.MethodCashOnDelivery,
		CanMarkDelivered: admin && o.IsPaid && !o.IsDelivered,
	}
	if d.PayNow {
		d.PaymentURL = "/checkout/" + o.OrderID
	}
	return d
}

// RegisterOrdersRoutes registers the account order history and the admin
// payment and delivery confirmations.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.GET("/account/orders", func(c *gin.Context) {
		id, _ := identity(c)
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}
		res, err := cfg.Orders.GetMyOrders(c.Request.Context(), id.UserID, page, cfg.Settings.PageSize())
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, res)
	})

	r.GET("/account/orders/:id", func(c *gin.Context) {
		id, _ := identity(c)
		o, err := cfg.Orders.GetOrderByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		if o.UserID != id.UserID && !id.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.JSON(http.StatusOK, newOrderDetail(o, id.IsAdmin(), cfg.Settings, currency(c)))
	})

	admin := func(action func(ctx context.Context, orderID string) (orders.Result, error)) gin.HandlerFunc {
		return func(c *gin.Context) {
			if id, _ := identity(c); !id.IsAdmin() {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}
			res, err := action(c.Request.Context(), c.Param("id"))
			if err != nil {
				writeError(c, cfg.Logger, err)
				return
			}
			if !res.Success {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"result": res, "notice": notice.Destructive(res.Message)})
				return
			}
			c.JSON(http.StatusOK, gin.H{"result": res, "notice": notice.Default(res.Message)})
		}
	}
	r.PUT("/account/orders/:id/pay", admin(cfg.Orders.UpdateOrderToPaid))
	r.PUT("/account/orders/:id/deliver", admin(cfg.Orders.DeliverOrder))
}
