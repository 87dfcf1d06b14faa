// Package middleware holds the gin middleware of the HTTP surface.
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openprocure/tenderisk/pkg/constants"
	"github.com/openprocure/tenderisk/pkg/logger"
)

// RequestID attaches a request identifier to the context and echoes it back
// in the X-Request-ID header. An incoming header value is reused so callers
// can correlate retries.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// AccessLog logs one line per request with latency and status.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	accessLog := log.WithComponent("http")
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(started)),
			logger.Int("bytes", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			accessLog.Warn(c.Request.Context(), "request failed",
				append(fields, logger.String("errors", c.Errors.String()))...)
			return
		}
		accessLog.Info(c.Request.Context(), "request", fields...)
	}
}
