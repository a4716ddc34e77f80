package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/storefront-checkout/internal/validation"
)

// RegisterSettingsRoutes serves the site setting and currency selection.
func RegisterSettingsRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.GET("/settings", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"setting":  cfg.Settings.Setting(),
			"currency": currency(c),
		})
	})

	r.PUT("/settings/currency", func(c *gin.Context) {
		var req validation.CurrencyRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}
		cur, err := cfg.Settings.SelectCurrency(req.Currency)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(currencyCookie, cur.Code, cookieMaxAge, "/", "", false, false)
		c.JSON(http.StatusOK, gin.H{"currency": cur})
	})
}
