package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"localevents/logger"
	"localevents/metrics"
)

// RequestLogger logs one line per request and records HTTP metrics under
// the route template, never the raw path.
func RequestLogger(rec metrics.Recorder) gin.HandlerFunc {
	if rec == nil {
		rec = metrics.Nop
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		rec.RecordHTTP(c.Request.Method, path, status, elapsed)

		fields := logger.Fields{
			"method":      c.Request.Method,
			"path":        path,
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
			"client_ip":   c.ClientIP(),
		}
		if uid := c.GetInt64(UserIDKey); uid != 0 {
			fields["user_id"] = uid
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= 500:
			logger.Error("request", fields)
		case status >= 400:
			logger.Warn("request", fields)
		default:
			logger.Info("request", fields)
		}
	}
}
