package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/infra/response"
	"github.com/mstgnz/signpay/provider"
	"github.com/mstgnz/signpay/session"
)

// SearchPinger is the part of the OpenSearch client the health check uses
type SearchPinger interface {
	IsEnabled() bool
	Ping(ctx context.Context) error
}

type statsReporter interface {
	Stats() (map[string]any, error)
}

const (
	statusHealthy       = "healthy"
	statusDegraded      = "degraded"
	statusUnhealthy     = "unhealthy"
	statusNotConfigured = "not_configured"

	// resourceLimit is the memory or disk usage percent above which the
	// service reports itself degraded
	resourceLimit = 90
	// slowSessionStore degrades the service when a session read takes longer
	slowSessionStore = time.Second
)

// HealthHandler reports whether checkouts can currently be served
type HealthHandler struct {
	sessions     session.Store
	search       SearchPinger
	providerName string
	diskPath     string
	startTime    time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status      string                    `json:"status"`
	Version     string                    `json:"version"`
	Timestamp   time.Time                 `json:"timestamp"`
	Uptime      string                    `json:"uptime"`
	Environment string                    `json:"environment"`
	Sessions    *SessionStoreHealth       `json:"sessions"`
	Provider    *ProviderHealth           `json:"provider"`
	System      *SystemHealth             `json:"system"`
	Services    map[string]*ServiceHealth `json:"services"`
}

// SessionStoreHealth represents checkout session store health
type SessionStoreHealth struct {
	Status       string         `json:"status"`
	Connected    bool           `json:"connected"`
	ResponseTime time.Duration  `json:"response_time_ms"`
	Stats        map[string]any `json:"stats,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// ProviderHealth represents the configured payment provider
type ProviderHealth struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Configured bool   `json:"configured"`
	LastCheck  string `json:"last_check"`
	Error      string `json:"error,omitempty"`
}

// SystemHealth represents system resource health
type SystemHealth struct {
	Memory     *MemoryHealth `json:"memory"`
	Disk       *DiskHealth   `json:"disk"`
	GoRoutines int           `json:"goroutines"`
	CGoCalls   int64         `json:"cgo_calls"`
}

// MemoryHealth represents memory usage
type MemoryHealth struct {
	Alloc        string  `json:"alloc"`
	TotalAlloc   string  `json:"total_alloc"`
	Sys          string  `json:"sys"`
	GCRuns       uint32  `json:"gc_runs"`
	UsagePercent float64 `json:"usage_percent"`
}

// DiskHealth represents disk usage
type DiskHealth struct {
	Available    string  `json:"available"`
	Used         string  `json:"used"`
	Total        string  `json:"total"`
	UsagePercent float64 `json:"usage_percent"`
	Status       string  `json:"status"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status      string `json:"status"`
	Healthy     bool   `json:"healthy"`
	LastCheck   string `json:"last_check"`
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewHealthHandler creates a new health handler. search may be nil.
func NewHealthHandler(sessions session.Store, search SearchPinger, providerName string) *HealthHandler {
	return &HealthHandler{
		sessions:     sessions,
		search:       search,
		providerName: providerName,
		diskPath:     "/",
		startTime:    time.Now(),
	}
}

// WithDiskPath reports disk usage of the filesystem holding path, normally
// the directory of the SQLite session database
func (h *HealthHandler) WithDiskPath(path string) *HealthHandler {
	if path != "" {
		h.diskPath = path
	}
	return h
}

// CheckHealth performs the health checks
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	health := &HealthStatus{
		Version:     "1.0.0",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startTime).String(),
		Environment: config.GetEnv("ENVIRONMENT", "development"),
		Provider:    h.checkProvider(),
		System:      h.checkSystemHealth(),
	}

	// the two I/O bound probes run side by side
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		health.Sessions = h.checkSessionStore()
	}()
	go func() {
		defer wg.Done()
		health.Services = h.checkServicesHealth(ctx)
	}()
	wg.Wait()

	health.Status = h.determineOverallStatus(health)

	statusCode := http.StatusOK
	if health.Status == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	_ = response.WriteJSON(w, statusCode, response.Response{
		Code:    statusCode,
		Success: health.Status != statusUnhealthy,
		Message: fmt.Sprintf("Service is %s", health.Status),
		Data:    health,
	})
}

// checkSessionStore reads a probe key to prove the store answers
func (h *HealthHandler) checkSessionStore() *SessionStoreHealth {
	store := &SessionStoreHealth{Status: "unknown"}

	if h.sessions == nil {
		store.Status = statusNotConfigured
		store.Error = "Session store not configured"
		return store
	}

	start := time.Now()
	_, _, err := h.sessions.Get("health", "probe")
	store.ResponseTime = time.Since(start)
	if err != nil {
		store.Status = statusUnhealthy
		store.Error = err.Error()
		return store
	}
	store.Connected = true

	if reporter, ok := h.sessions.(statsReporter); ok {
		if stats, err := reporter.Stats(); err == nil {
			store.Stats = stats
		}
	}

	store.Status = statusHealthy
	if store.ResponseTime > slowSessionStore {
		store.Status = statusDegraded
	}
	return store
}

func (h *HealthHandler) checkProvider() *ProviderHealth {
	health := &ProviderHealth{
		Name:      h.providerName,
		LastCheck: time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := provider.Get(h.providerName); err != nil {
		health.Status = "not_available"
		health.Error = err.Error()
		return health
	}

	health.Configured = true
	health.Status = statusHealthy
	return health
}

// checkSystemHealth checks system resource health
func (h *HealthHandler) checkSystemHealth() *SystemHealth {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &SystemHealth{
		Memory: &MemoryHealth{
			Alloc:        formatBytes(memStats.Alloc),
			TotalAlloc:   formatBytes(memStats.TotalAlloc),
			Sys:          formatBytes(memStats.Sys),
			GCRuns:       memStats.NumGC,
			UsagePercent: calculateMemoryUsagePercent(memStats),
		},
		Disk:       diskUsage(h.diskPath),
		GoRoutines: runtime.NumGoroutine(),
		CGoCalls:   runtime.NumCgoCall(),
	}
}

// checkServicesHealth checks the optional services
func (h *HealthHandler) checkServicesHealth(ctx context.Context) map[string]*ServiceHealth {
	services := make(map[string]*ServiceHealth)

	search := &ServiceHealth{LastCheck: time.Now().UTC().Format(time.RFC3339)}
	services["opensearch"] = search

	switch {
	case h.search == nil || !h.search.IsEnabled():
		search.Status = statusNotConfigured
		search.Description = "Checkout event logging disabled"
	default:
		if err := h.search.Ping(ctx); err != nil {
			search.Status = statusUnhealthy
			search.Error = err.Error()
		} else {
			search.Status = statusHealthy
			search.Healthy = true
			search.Description = "Checkout event logging to OpenSearch"
		}
	}

	return services
}

// determineOverallStatus is unhealthy when checkouts cannot be served at all.
// OpenSearch is optional and, like resource pressure, only degrades.
func (h *HealthHandler) determineOverallStatus(health *HealthStatus) string {
	switch {
	case health.Sessions == nil, health.Sessions.Status == statusUnhealthy, health.Sessions.Status == statusNotConfigured:
		return statusUnhealthy
	case health.Provider == nil, !health.Provider.Configured:
		return statusUnhealthy
	}

	if search, ok := health.Services["opensearch"]; ok && search.Status == statusUnhealthy {
		return statusDegraded
	}
	if sys := health.System; sys != nil {
		if sys.Memory != nil && sys.Memory.UsagePercent > resourceLimit {
			return statusDegraded
		}
		if sys.Disk != nil && sys.Disk.UsagePercent > resourceLimit {
			return statusDegraded
		}
	}
	if health.Sessions.Status == statusDegraded {
		return statusDegraded
	}
	return statusHealthy
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func calculateMemoryUsagePercent(memStats runtime.MemStats) float64 {
	if memStats.Sys == 0 {
		return 0
	}
	return (float64(memStats.Alloc) / float64(memStats.Sys)) * 100
}

func diskUsage(path string) *DiskHealth {
	var stat syscall.Statfs_t
	disk := &DiskHealth{Status: "unknown"}

	if err := syscall.Statfs(path, &stat); err != nil {
		disk.Status = "error"
		return disk
	}

	blockSize := uint64(stat.Bsize)
	total := stat.Blocks * blockSize
	used := total - stat.Bfree*blockSize

	disk.Available = formatBytes(stat.Bavail * blockSize)
	disk.Total = formatBytes(total)
	disk.Used = formatBytes(used)
	if total > 0 {
		disk.UsagePercent = float64(used) / float64(total) * 100
	}

	switch {
	case disk.UsagePercent > resourceLimit:
		disk.Status = "critical"
	case disk.UsagePercent > 80:
		disk.Status = "warning"
	default:
		disk.Status = statusHealthy
	}
	return disk
}
