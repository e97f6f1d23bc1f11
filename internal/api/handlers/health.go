package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// Pinger is anything with a health probe.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// SystemReporter exposes host and worker pool state for diagnostics.
type SystemReporter interface {
	GetSystemInfo() map[string]interface{}
}

// HealthHandler reports liveness of the service and its dependencies.
type HealthHandler struct {
	db      Pinger
	redis   Pinger
	system  SystemReporter
	version string
}

// NewHealthHandler creates the health handler. Dependencies may be nil when
// not configured; they are then reported as such rather than probed.
func NewHealthHandler(db Pinger, redis Pinger, system SystemReporter, version string) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, system: system, version: version}
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Services  map[string]string      `json:"services"`
	System    map[string]interface{} `json:"system,omitempty"`
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services := make(map[string]string)

	probe := func(name string, p Pinger) {
		if p == nil {
			services[name] = "not configured"
			return
		}
		if err := p.HealthCheck(c.Request.Context()); err != nil {
			services[name] = "unhealthy: " + err.Error()
			return
		}
		services[name] = "healthy"
	}
	probe("database", h.db)
	probe("redis", h.redis)

	status := "healthy"
	for _, s := range services {
		if s != "healthy" && s != "not configured" {
			status = "degraded"
			break
		}
	}

	response := healthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
		Services:  services,
	}
	if h.system != nil {
		response.System = h.system.GetSystemInfo()
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, response)
}
