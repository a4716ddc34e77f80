package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/storefront-checkout/internal/settings"
)

const (
	ctxRequestID = "request_id"
	ctxIdentity  = "identity"
	ctxCartID    = "cart_id"
	ctxCurrency  = "currency"

	cartCookie     = "cart_id"
	currencyCookie = "currency"
	cookieMaxAge   = 30 * 24 * 60 * 60

	RoleAdmin = "Admin"
)

// publicPrefixes need no signed-in user. "/" only matches itself.
var publicPrefixes = []string{"/search", "/cart", "/product", "/page", "/api", "/settings", "/health"}

// Identity is the signed-in user forwarded by the API Gateway authorizer.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// RequestID tags every request with X-Request-Id, reusing the caller's.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// RequestLogger writes one line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(ctxRequestID)),
		)
	}
}

func isPublic(path string) bool {
	if path == "/" {
		return true
	}
	for _, p := range publicPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Authenticate reads the identity headers. Protected paths without a user
// redirect to the sign-in page.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := Identity{
			UserID: c.GetHeader("X-User-Id"),
			Email:  c.GetHeader("X-User-Email"),
			Role:   c.GetHeader("X-User-Role"),
		}
		if id.UserID != "" {
			c.Set(ctxIdentity, id)
		} else if !isPublic(c.Request.URL.Path) {
			c.Redirect(http.StatusFound, "/sign-in?callbackUrl="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Visitor resolves the cart cookie, issuing a new cart id on first visit,
// and the display currency.
func Visitor(st *settings.Store, newCartID func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cartID, err := c.Cookie(cartCookie)
		if err != nil || cartID == "" {
			cartID = newCartID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cartCookie, cartID, cookieMaxAge, "/", "", false, true)
		}
		c.Set(ctxCartID, cartID)

		code, _ := c.Cookie(currencyCookie)
		c.Set(ctxCurrency, st.ResolveCurrency(code))
		c.Next()
	}
}

func identity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func cartID(c *gin.Context) string { return c.GetString(ctxCartID) }

func currency(c *gin.Context) settings.Currency {
	cur, _ := c.MustGet(ctxCurrency).(settings.Currency)
	return cur
}
