package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"todo-app/internal/auth"
)

const (
	contextIdentityKey = "auth.identity"
	requestIDHeader    = "X-Request-ID"
)

// authGate verifies the bearer token: 401 without one, 403 when it does not verify.
func (h *Handler) authGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		identity, err := h.tokens.Verify(token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrMissingToken) {
				h.logger.WithError(err).Warn("unexpected token verification error")
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		setIdentity(c, *identity)
		c.Next()
	}
}

func setIdentity(c *gin.Context, identity auth.Identity) {
	c.Set(contextIdentityKey, identity)
}

// identityFrom returns the identity attached by authGate (zero value outside protected routes).
func identityFrom(c *gin.Context) auth.Identity {
	if v, ok := c.Get(contextIdentityKey); ok {
		if identity, ok := v.(auth.Identity); ok {
			return identity
		}
	}
	return auth.Identity{}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
		}
		if identity := identityFrom(c); identity.ID != 0 {
			fields["user_id"] = identity.ID
		}
		entry := h.logger.WithFields(fields)
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	cfg.ExposeHeaders = []string{requestIDHeader}
	return cors.New(cfg)
}
