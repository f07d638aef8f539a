package mw

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"bluewave-telemetry-backend/internal/observability"
)

// Metrics counts every handled request by method and status code.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.RequestsTotal.WithLabelValues(c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
