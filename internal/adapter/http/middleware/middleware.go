package middleware

import (
	"net/http"
	"strings"
	"time"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries the API key secret. Checked before the
	// Authorization header.
	HeaderAPIKey = "X-API-Key"

	// Context keys
	CtxUserID     = "user_id"
	CtxAuthMethod = "auth_method"
	CtxRequestID  = "request_id"

	// Auth method values
	AuthMethodAPIKey = "api_key"
	AuthMethodJWT    = "jwt"
)

// RequestID assigns each request an id for response envelopes and logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// Authenticate gates a route behind either credential mode. An X-API-Key
// header is tried first; absent that, a Bearer token. API keys must carry
// the route's scope; bearer sessions are unscoped. Every rejection is
// the same 401 so callers cannot tell which mode or check failed.
func Authenticate(
	keysSvc ports.KeysService,
	tokenSvc ports.TokenService,
	requiredScope string,
	log zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret := c.GetHeader(HeaderAPIKey); secret != "" {
			key, err := keysSvc.Validate(c.Request.Context(), secret)
			if err != nil {
				response.Error(c, apperror.ErrUnauthorized())
				c.Abort()
				return
			}
			if requiredScope != "" && !key.HasScope(requiredScope) {
				response.Error(c, apperror.ErrForbidden(requiredScope))
				c.Abort()
				return
			}
			c.Set(CtxUserID, key.UserID)
			c.Set(CtxAuthMethod, AuthMethodAPIKey)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Error(c, apperror.ErrUnauthorized())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			response.Error(c, apperror.ErrUnauthorized())
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxAuthMethod, AuthMethodJWT)
		c.Next()
	}
}

// UserID extracts the authenticated user id set by Authenticate.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(CtxUserID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize rejects request bodies larger than limit bytes.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
