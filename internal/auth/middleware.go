package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const claimsKey = "auth.claims"

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RequireBearer verifies the bearer token on every route except the health
// probes and swagger. A nil verifier disables the check.
func RequireBearer(verifier *JWT) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil || len(verifier.Secret) == 0 {
			c.Next()
			return
		}
		p := c.Request.URL.Path
		if p == "/health" || p == "/healthz" || p == "/readyz" || strings.HasPrefix(p, "/swagger") {
			c.Next()
			return
		}
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: http.StatusUnauthorized, Message: "missing bearer token"})
			return
		}
		claims, err := verifier.Verify(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Code: http.StatusUnauthorized, Message: "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func ClaimsFromGin(c *gin.Context) (Claims, bool) {
	if c == nil {
		return Claims{}, false
	}
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// VendorAllowed reports whether the caller may act for vendorID. Requests
// without claims (auth disabled) and vendor-less tokens are unrestricted.
func VendorAllowed(c *gin.Context, vendorID string) bool {
	claims, ok := ClaimsFromGin(c)
	if !ok || claims.VendorID == "" {
		return true
	}
	return claims.VendorID == vendorID
}

// WriteAudit logs every non-read request after it completes.
func WriteAudit(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		method := strings.ToUpper(c.Request.Method)
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			return
		}
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
		}
		if claims, ok := ClaimsFromGin(c); ok {
			fields = append(fields, zap.String("subject", claims.Subject), zap.String("vendor_id", claims.VendorID))
		}
		switch {
		case status >= 500:
			logger.Error("http write", fields...)
		case status >= 400:
			logger.Warn("http write", fields...)
		default:
			logger.Info("http write", fields...)
		}
	}
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
