// Package httpapi содержит HTTP API сервиса на gin.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Маршруты API.
const (
	PathCreateRobot   = "/robots/create/"
	PathRobotsSummary = "/robots/download_robots_summary/"
	PathCreateOrder   = "/orders/"
)

var allowedMethods = map[string]string{
	PathCreateRobot:   http.MethodPost,
	PathRobotsSummary: http.MethodGet,
	PathCreateOrder:   http.MethodPost,
}

// NewRouter собирает gin-роутер с обработчиками API.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), traceContext(), requestLogger(h.logger))

	router.POST(PathCreateRobot, h.CreateRobot)
	router.GET(PathRobotsSummary, h.DownloadRobotsSummary)
	router.POST(PathCreateOrder, h.CreateOrder)

	router.NoMethod(func(c *gin.Context) {
		method, ok := allowedMethods[c.Request.URL.Path]
		if !ok {
			method = http.MethodPost
		}
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Only " + method + " method is allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}

// traceContext продолжает трассу вызывающей стороны из заголовков traceparent/baggage.
func traceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("http request failed")
			return
		}
		entry.Debug("http request served")
	}
}
