package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/evergreenlive/backend/pkg/metrics"
)

// Metrics returns a middleware that counts requests and error responses.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.RequestsTotal.Inc()
		c.Next()
		if c.Writer.Status() >= 400 {
			m.ErrorsTotal.Inc()
		}
	}
}
