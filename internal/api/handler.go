package api

import (
	"net/http"
	"strconv"
	"time"

	"live-sync/internal/engine"
	"live-sync/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	manager *engine.Manager
}

// NewHandler creates a new HTTP handler
func NewHandler(manager *engine.Manager) *Handler {
	return &Handler{manager: manager}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/views/:kind/:identity", h.getView)
		v1.DELETE("/views/:kind/:identity", h.closeView)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func viewKind(raw string) (engine.ViewKind, bool) {
	switch engine.ViewKind(raw) {
	case engine.ViewCustomer, engine.ViewRider, engine.ViewWallet, engine.ViewSecurity:
		return engine.ViewKind(raw), true
	default:
		return "", false
	}
}

// getView mounts (or reuses) the scope for the identity and returns its
// current reconciled state.
func (h *Handler) getView(c *gin.Context) {
	kind, ok := viewKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown view kind",
		})
		return
	}
	identity := c.Param("identity")
	if identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Missing identity",
		})
		return
	}

	scope := h.manager.Mount(c.Request.Context(), kind, identity)
	c.JSON(http.StatusOK, scope.Render())
}

// closeView unmounts the scope for the identity.
func (h *Handler) closeView(c *gin.Context) {
	kind, ok := viewKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown view kind",
		})
		return
	}

	h.manager.Unmount(kind, c.Param("identity"))
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
