package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/aquapredict/aquapredict-go/internal/logger"
)

// HealthResponse reports service status
type HealthResponse struct {
	Status        string        `json:"status"`
	Version       string        `json:"version"`
	Uptime        string        `json:"uptime"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Timestamp     string        `json:"timestamp"`
	Model         ModelHealth   `json:"model"`
	Prices        PricesHealth  `json:"prices"`
	System        ProcessHealth `json:"system"`
}

// ModelHealth describes the loaded classifier
type ModelHealth struct {
	Backend string `json:"backend"`
	Classes int    `json:"classes"`
}

// PricesHealth describes the loaded price table
type PricesHealth struct {
	Records int `json:"records"`
}

// ProcessHealth describes the serving process
type ProcessHealth struct {
	MemoryRSSMB float64 `json:"memory_rss_mb"`
	Goroutines  int     `json:"goroutines"`
	GoVersion   string  `json:"go_version"`
}

// HealthCheck handles GET /health
func (c *Controller) HealthCheck(ctx echo.Context) error {
	uptime := time.Since(c.startTime)

	return ctx.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		Version:       c.version,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Timestamp:     time.Now().Format(time.RFC3339),
		Model: ModelHealth{
			Backend: c.engine.Backend(),
			Classes: len(c.engine.Codec().Species()),
		},
		Prices: PricesHealth{Records: c.engine.PriceRecords()},
		System: c.processHealth(),
	})
}

// processHealth reads process memory. A failed read reports zero memory
// rather than failing the health check.
func (c *Controller) processHealth() ProcessHealth {
	health := ProcessHealth{
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		c.log.Debug("Failed to open process for health check", logger.Error(err))
		return health
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		health.MemoryRSSMB = float64(mem.RSS) / 1024 / 1024
	} else if err != nil {
		c.log.Debug("Failed to read process memory", logger.Error(err))
	}
	return health
}
