package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger writes one entry per request with latency, status and request id.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := strings.TrimSpace(c.Request.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		c.Next()

		status := c.Writer.Status()
		entry := logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"status":     status,
			"method":     c.Request.Method,
			"path":       path,
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"bytes":      c.Writer.Size(),
		})
		if p := GetPrincipal(c); p.Authenticated() {
			entry = entry.WithField("user", p.Username())
		}

		switch {
		case status >= 500:
			entry.Error("http_request")
		case status >= 400:
			entry.Warn("http_request")
		default:
			entry.Info("http_request")
		}
	}
}

// HeaderDump logs request headers at debug level with credentials masked.
func HeaderDump() gin.HandlerFunc {
	return func(c *gin.Context) {
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			headers := c.Request.Header.Clone()
			if headers.Get("Authorization") != "" {
				headers.Set("Authorization", "[redacted]")
			}
			logrus.Debugf("%s %s headers: %v", c.Request.Method, c.Request.URL.Path, headers)
		}
		c.Next()
	}
}
