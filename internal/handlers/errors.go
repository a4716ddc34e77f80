package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/cart"
	"github.com/imrishuroy/storefront-checkout/internal/catalog"
	"github.com/imrishuroy/storefront-checkout/internal/checkout"
	"github.com/imrishuroy/storefront-checkout/internal/orders"
	"github.com/imrishuroy/storefront-checkout/internal/payment"
	"github.com/imrishuroy/storefront-checkout/internal/settings"
	"github.com/imrishuroy/storefront-checkout/internal/validation"
)

var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{orders.ErrNotFound, http.StatusNotFound, "not_found"},
	{catalog.ErrNotFound, http.StatusNotFound, "not_found"},
	{cart.ErrItemNotFound, http.StatusNotFound, "not_found"},
	{cart.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{checkout.ErrStepNotReached, http.StatusConflict, "step_not_reached"},
	{cart.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{cart.ErrNotEnoughStock, http.StatusBadRequest, "not_enough_stock"},
	{cart.ErrUnknownPaymentMethod, http.StatusBadRequest, "unknown_payment_method"},
	{cart.ErrInvalidDeliveryDate, http.StatusBadRequest, "invalid_delivery_date"},
	{cart.ErrInvalidStep, http.StatusBadRequest, "invalid_step"},
	{settings.ErrUnknownCurrency, http.StatusBadRequest, "unknown_currency"},
	{payment.ErrValidation, http.StatusUnprocessableEntity, "payment_rejected"},
	{payment.ErrProvider, http.StatusBadGateway, "payment_provider_failure"},
}

// writeError maps domain errors to HTTP responses.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	var ve *validation.Error
	if errors.As(err, &ve) {
		validation.WriteError(c, ve)
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": e.code, "detail": err.Error()})
			return
		}
	}
	log.Error("request failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", c.GetString(ctxRequestID)),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
