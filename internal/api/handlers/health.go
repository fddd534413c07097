package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/helios-bi/foresight-go/internal/telemetry"
)

var startTime = time.Now()

// DependencyChecker reports whether an upstream dependency is reachable.
type DependencyChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	dependencies map[string]DependencyChecker
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
	System       SystemStats       `json:"system"`
}

type SystemStats struct {
	Goroutines    int     `json:"goroutines"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryPercent float64 `json:"memory_percent"`
}

// NewHealthHandler builds a health handler over the configured dependency
// checkers. Nil checkers are skipped so optional components do not report
// as unhealthy.
func NewHealthHandler(dependencies map[string]DependencyChecker) *HealthHandler {
	checks := make(map[string]DependencyChecker, len(dependencies))
	for name, dep := range dependencies {
		if dep != nil {
			checks[name] = dep
		}
	}
	return &HealthHandler{dependencies: checks}
}

// HealthCheck handles GET /health. Any unhealthy dependency degrades the
// overall status and the endpoint answers 503.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	deps := make(map[string]string, len(h.dependencies))
	overall := "healthy"
	for name, dep := range h.dependencies {
		if err := dep.HealthCheck(ctx); err != nil {
			deps[name] = "unhealthy: " + err.Error()
			overall = "degraded"
		} else {
			deps[name] = "healthy"
		}
	}

	response := HealthResponse{
		Status:       overall,
		Timestamp:    time.Now().UTC(),
		Version:      telemetry.ServiceVersion,
		Uptime:       time.Since(startTime).String(),
		Dependencies: deps,
		System:       collectSystemStats(),
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

func collectSystemStats() SystemStats {
	stats := SystemStats{Goroutines: runtime.NumGoroutine()}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			stats.MemoryUsedMB = float64(memInfo.RSS) / 1024 / 1024
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		stats.MemoryPercent = vm.UsedPercent
	}
	return stats
}
