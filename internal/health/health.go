package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"rental-backend/internal/cache"
)

// DB is the part of the pool the checker uses.
type DB interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type HealthChecker struct {
	db DB
}

type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

// DetailedStatus adds cache, database and host figures for the ops dashboard
type DetailedStatus struct {
	HealthStatus
	Cache             string  `json:"cache"`
	ActiveConnections int     `json:"active_connections"`
	DatabaseSize      string  `json:"database_size"`
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryPercent     float64 `json:"memory_percent"`
	MemoryUsed        string  `json:"memory_used"`
	MemoryTotal       string  `json:"memory_total"`
	DiskPercent       float64 `json:"disk_percent"`
	DiskUsed          string  `json:"disk_used"`
	DiskTotal         string  `json:"disk_total"`
	CheckedAt         string  `json:"checked_at"`
}

func NewHealthChecker(db DB) *HealthChecker {
	return &HealthChecker{db: db}
}

func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
}

func (h *HealthChecker) CheckDetailed(ctx context.Context) DetailedStatus {
	out := DetailedStatus{
		HealthStatus: h.CheckBasic(ctx),
		Cache:        "disabled",
		CheckedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if cache.GetClient() != nil {
		out.Cache = "unhealthy"
		if cache.IsHealthy() {
			out.Cache = "healthy"
		}
	}

	if out.Database.Status == "healthy" {
		qctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		var sizeBytes int64
		_ = h.db.QueryRow(qctx, "SELECT count(*) FROM pg_stat_activity").Scan(&out.ActiveConnections)
		if err := h.db.QueryRow(qctx, "SELECT pg_database_size(current_database())").Scan(&sizeBytes); err == nil {
			out.DatabaseSize = formatBytes(uint64(sizeBytes))
		}
	}

	if percents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(percents) > 0 {
		out.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		out.MemoryPercent = vm.UsedPercent
		out.MemoryUsed = formatBytes(vm.Used)
		out.MemoryTotal = formatBytes(vm.Total)
	}
	if du, err := disk.Usage("/"); err == nil {
		out.DiskPercent = du.UsedPercent
		out.DiskUsed = formatBytes(du.Used)
		out.DiskTotal = formatBytes(du.Total)
	}
	return out
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DatabaseHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return DatabaseHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

func formatBytes(bytes uint64) string {
	gb := float64(bytes) / (1024 * 1024 * 1024)
	if gb < 1 {
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
	return fmt.Sprintf("%.1f GB", gb)
}
