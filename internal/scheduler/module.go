package scheduler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apphttp "realtorbuddy_backend/internal/http"
	"realtorbuddy_backend/platform/httpkit"
	"realtorbuddy_backend/platform/logger"
)

// Module exposes manual trigger endpoints so operators can kick off a
// cadence batch or digest run without waiting for the cron schedule.
type Module struct {
	client *Client
	log    *logger.Logger
}

func NewModule(client *Client, log *logger.Logger) *Module {
	return &Module{client: client, log: log}
}

func (m *Module) Name() string {
	return "scheduler"
}

// RegisterRoutes mounts the ops trigger routes on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ops := ctx.Protected.Group("/ops")
	ops.POST("/cadence/run", m.triggerCadence)
	ops.POST("/digest/run", m.triggerDigest)
}

func (m *Module) triggerCadence(c *gin.Context) {
	if err := m.client.TriggerCadenceRun(c.Request.Context()); err != nil {
		m.log.Error("failed to enqueue cadence run", "error", err)
		httpkit.Error(c, http.StatusServiceUnavailable, "scheduler unavailable", nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "task": TaskCadenceRun})
}

func (m *Module) triggerDigest(c *gin.Context) {
	if err := m.client.TriggerDigest(c.Request.Context()); err != nil {
		m.log.Error("failed to enqueue digest run", "error", err)
		httpkit.Error(c, http.StatusServiceUnavailable, "scheduler unavailable", nil)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "task": TaskDigestDaily})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
