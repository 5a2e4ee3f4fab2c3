package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type gradingVersionSource interface {
	Tables() models.GradingTables
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      pinger
	grading gradingVersionSource
}

// NewMetricsHandler constructs a metrics handler. db and grading may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db pinger, grading gradingVersionSource) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, grading: grading}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the database answers and which grading tables are active.
func (h *MetricsHandler) Ready(c *gin.Context) {
	body := gin.H{"status": "ready"}
	if h.grading != nil {
		body["grading_version"] = h.grading.Tables().Version
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			body["status"] = "unavailable"
			body["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
