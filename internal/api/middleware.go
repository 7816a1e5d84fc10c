package api

import (
	"math"
	"net/http"
	"time"

	"codeberg.org/mutker/infotainctl/internal/logger"
	"github.com/gin-gonic/gin"
)

func accessLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// other handlers can change c.Request.URL.Path
		path := c.Request.URL.Path
		start := time.Now()
		c.Next()
		latency := int(math.Ceil(float64(time.Since(start).Nanoseconds()) / 1e6))
		status := c.Writer.Status()
		size := c.Writer.Size()
		if size < 0 {
			size = 0
		}

		var ev *logger.LogEvent
		switch {
		case len(c.Errors) > 0, status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		default:
			ev = log.Debug()
		}

		ev.Int("status", status).
			Int("latency_ms", latency).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("size", size)

		if len(c.Errors) > 0 {
			ev.Str("errors", c.Errors.ByType(gin.ErrorTypePrivate).String())
		}
		ev.Msg("HTTP request")
	}
}
