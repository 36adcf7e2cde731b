package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"querygw/internal/logger"
	"querygw/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

func internalError(c *gin.Context) {
	detail := "unexpected failure"
	if err := c.Errors.Last(); err != nil {
		detail = err.Error()
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"detail": "Internal server error: " + detail,
	})
}

// requestID tags the request with an id and puts a logger carrying it in the
// request context.
func requestID(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Header(requestIDHeader, id)

		scoped := log.WithRequestID(id)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), scoped))

		c.Next()
	}
}

func accessLog(log logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		status := c.Writer.Status()
		m.ObserveRequest(c.Request.Method, route, status)

		logger.FromContext(c.Request.Context(), log).Info("Request served", logger.Ctx{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
		})
	}
}

// recovery turns panics into a 500.
func recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, err any) {
		logger.FromContext(c.Request.Context(), log).Error("Handler panic", logger.Ctx{"err": fmt.Sprint(err)})
		_ = c.Error(fmt.Errorf("%v", err))
		internalError(c)
	})
}

// renderErrors answers 500 for handlers that recorded an error without
// writing a response, such as a body the JSON encoder rejected.
func renderErrors(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		logger.FromContext(c.Request.Context(), log).Error("Response not written", logger.Ctx{"err": c.Errors.Last().Error()})
		internalError(c)
	}
}
