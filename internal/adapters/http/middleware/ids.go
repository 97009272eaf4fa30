// Package middleware provides HTTP middleware components for the Gin server.
package middleware

import (
	"context"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotedeck/internal/platform/logging"
)

const (
	// HeaderRequestID is the header name for request ID.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID is the header name for correlation ID.
	// A correlation ID spans a whole operation, such as a sync cycle
	// triggered through the API, across services.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "request_id"

	// ContextKeyCorrelationID is the gin context key for the correlation ID.
	ContextKeyCorrelationID = "correlation_id"

	// maxIDLength bounds caller-supplied IDs; longer ones are replaced.
	maxIDLength = 128
)

type idConfig struct {
	header     string
	contextKey string
	enrich     func(ctx context.Context, id string) context.Context
}

// RequestID returns middleware that reads X-Request-ID or generates a UUID,
// echoes it in the response, and adds it to the request's context logger.
func RequestID() gin.HandlerFunc {
	return idMiddleware(idConfig{
		header:     HeaderRequestID,
		contextKey: ContextKeyRequestID,
		enrich:     logging.WithRequestID,
	})
}

// CorrelationID is RequestID for X-Correlation-ID. The sync engine keeps a
// correlation ID it finds in the context instead of starting its own.
func CorrelationID() gin.HandlerFunc {
	return idMiddleware(idConfig{
		header:     HeaderCorrelationID,
		contextKey: ContextKeyCorrelationID,
		enrich:     logging.WithCorrelationID,
	})
}

func idMiddleware(cfg idConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(cfg.header)
		if !validID(id) {
			id = uuid.NewString()
		}

		c.Set(cfg.contextKey, id)
		c.Header(cfg.header, id)
		c.Request = c.Request.WithContext(cfg.enrich(c.Request.Context(), id))

		c.Next()
	}
}

// validID rejects empty, oversized, or non-printable header values so they
// never reach logs or response headers.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}

	return !strings.ContainsFunc(id, func(r rune) bool {
		return !unicode.IsPrint(r) || unicode.IsSpace(r)
	})
}

// GetRequestID returns the request ID, or "" if the middleware did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID returns the correlation ID, or "" if the middleware did not run.
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}
