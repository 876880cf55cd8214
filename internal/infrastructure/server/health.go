package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	status := "ok"
	checks := make(map[string]interface{})

	if s.deps.DB != nil {
		if err := s.deps.DB.HealthCheck(ctx); err != nil {
			status = "error"
			checks["database"] = map[string]interface{}{"status": "error", "error": err.Error()}
		} else {
			checks["database"] = map[string]interface{}{"status": "ok", "stats": s.deps.DB.GetConnectionInfo()}
		}
	}

	if s.deps.Mongo != nil {
		if err := s.deps.Mongo.HealthCheck(ctx); err != nil {
			status = "error"
			checks["mongo"] = map[string]interface{}{"status": "error", "error": err.Error()}
		} else {
			checks["mongo"] = map[string]interface{}{"status": "ok"}
		}
	}

	// sync trouble degrades but does not fail the check; the device copy is intact
	sync := s.deps.Sync.Status()
	syncCheck := map[string]interface{}{"status": "ok", "detail": sync}
	if sync.LastLocalError != "" || sync.LastRemoteError != "" {
		syncCheck["status"] = "degraded"
	}
	checks["sync"] = syncCheck

	checks["host"] = s.hostStats(c)

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) hostStats(c echo.Context) map[string]interface{} {
	ctx := c.Request().Context()
	stats := map[string]interface{}{
		"goroutines": runtime.NumGoroutine(),
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		stats["load"] = map[string]float64{"1m": avg.Load1, "5m": avg.Load5, "15m": avg.Load15}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats["memory_used_percent"] = vm.UsedPercent
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats["cpu_percent"] = pct[0]
	}

	return stats
}

func (s *Server) readinessCheck(c echo.Context) error {
	ctx := c.Request().Context()

	if s.deps.DB != nil {
		if err := s.deps.DB.HealthCheck(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": "database_not_ready",
			})
		}
	}
	if s.deps.Mongo != nil {
		if err := s.deps.Mongo.HealthCheck(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": "mongo_not_ready",
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
