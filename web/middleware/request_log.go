package middleware

import (
	"time"

	"github.com/bookshelf/bookshelf/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID returns the id assigned to the request by RequestLogger.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger tags each request with an id, echoed in X-Request-ID, and logs the
// outcome once the handlers have run. A valid incoming id is kept.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		path := c.Request.URL.Path
		switch {
		case status >= 500:
			logger.Errorf("[%s] %s %s %d %s %s", id, c.Request.Method, path, status, latency, c.ClientIP())
		case status >= 400:
			logger.Warningf("[%s] %s %s %d %s %s", id, c.Request.Method, path, status, latency, c.ClientIP())
		default:
			logger.Debugf("[%s] %s %s %d %s %s", id, c.Request.Method, path, status, latency, c.ClientIP())
		}
		for _, err := range c.Errors {
			logger.Warningf("[%s] %v", id, err.Err)
		}
	}
}
