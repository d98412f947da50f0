package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/models"
	"github.com/fabian123z3/sistemareconocimiento-sub000/internal/service"
	"github.com/fabian123z3/sistemareconocimiento-sub000/pkg/response"
)

// StatusReporter exposes the agent state consumed by the status endpoints.
type StatusReporter interface {
	Status(ctx context.Context) (models.StatusSnapshot, error)
	History(ctx context.Context) ([]models.AttendanceRecord, error)
}

// StatusHandler serves the local observability surface of the agent.
type StatusHandler struct {
	reporter StatusReporter
	metrics  *service.MetricsService
}

// NewStatusHandler constructs a status handler.
func NewStatusHandler(reporter StatusReporter, metrics *service.MetricsService) *StatusHandler {
	return &StatusHandler{reporter: reporter, metrics: metrics}
}

// Health responds with a generic OK payload for liveness usage.
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports connectivity, queue depth, selection and counters.
func (h *StatusHandler) Status(c *gin.Context) {
	snapshot, err := h.reporter.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	payload := gin.H{"agent": snapshot}
	if h.metrics != nil {
		payload["counters"] = h.metrics.Snapshot()
	}
	response.OK(c, payload)
}

// History returns the locally persisted confirmed records, newest first.
func (h *StatusHandler) History(c *gin.Context) {
	records, err := h.reporter.History(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"records": records, "count": len(records)})
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *StatusHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Register mounts the status routes on the engine.
func (h *StatusHandler) Register(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/history", h.History)
	r.GET("/metrics", h.Prometheus)
}
