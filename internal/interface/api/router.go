package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"repairdesk-service/pkg/logger"
)

const slowRequestThreshold = 200 * time.Millisecond

// NewRouter builds the HTTP routes. gatherer backs the /metrics endpoint.
func NewRouter(h *TicketHandler, auth *Authenticator, gatherer prometheus.Gatherer, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.Use(auth.Middleware())
	{
		tickets := api.Group("/tickets")
		{
			tickets.GET("/:id", h.GetTicket)
			tickets.GET("/:id/transitions", h.GetTransitions)
			tickets.GET("/:id/activity", h.GetActivity)
			tickets.PATCH("/:id", h.UpdateTicket)
			tickets.DELETE("/:id", h.DeleteTicket)
		}
	}
	return r
}

// requestLogger logs every request with its latency and flags slow ones
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", latency.String(),
		}
		if latency > slowRequestThreshold {
			log.Warn("Slow request", fields...)
			return
		}
		log.Debug("Request handled", fields...)
	}
}
