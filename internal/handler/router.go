package handler

import (
	"querygw/internal/logger"
	"querygw/internal/metrics"

	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	Metrics        *metrics.Metrics
	DebugEndpoints bool
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(requestID(h.log), accessLog(h.log, opts.Metrics), recovery(h.log), renderErrors(h.log))

	r.GET("/ping", Ping)
	r.GET("/health", h.HealthHandler)
	r.GET("/test-connection", h.TestConnectionHandler)
	r.POST("/query", h.QueryHandler)

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	if opts.DebugEndpoints {
		h.log.Warn("Debug endpoints enabled", logger.Ctx{"route": "/debug/config"})
		r.GET("/debug/config", h.DebugConfigHandler)
	}

	return r
}
