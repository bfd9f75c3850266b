package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Logger emits one line per request. Server errors are logged at Error level
// so a failing settlement endpoint stands out without a metrics stack; the
// calling profile is included when the identity middleware has run.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		requestLogger := logger
		if correlationID := GetCorrelationID(c); correlationID != "" {
			requestLogger = requestLogger.With("correlation_id", correlationID)
		}
		if profileID := GetProfileID(c); profileID != uuid.Nil {
			requestLogger = requestLogger.With("profile_id", profileID.String())
		}

		if raw != "" {
			path = path + "?" + raw
		}

		statusCode := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", statusCode,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}

		if statusCode >= http.StatusInternalServerError {
			requestLogger.Error("HTTP request", attrs...)
		} else {
			requestLogger.Info("HTTP request", attrs...)
		}
	}
}
