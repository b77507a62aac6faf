package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/agrisentinel/agrisentinel/internal/database"
	"github.com/agrisentinel/agrisentinel/internal/di"
	"github.com/agrisentinel/agrisentinel/internal/scheduler"
)

// SystemHandlers handles system monitoring and manual job triggers
type SystemHandlers struct {
	container   *di.Container
	jobs        map[string]scheduler.Job
	dataDir     string
	startupTime time.Time
	log         zerolog.Logger
}

// HostStats is a point-in-time view of the host
type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskFreeBytes uint64  `json:"disk_free_bytes"`
	DiskPercent   float64 `json:"disk_percent"`
}

// DatabaseStatus combines a database's stats with its name
type DatabaseStatus struct {
	*database.Stats
	Name    string `json:"name"`
	Profile string `json:"profile"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse is the body of GET /api/system/status
type StatusResponse struct {
	StartedAt     time.Time        `json:"started_at"`
	Host          HostStats        `json:"host"`
	Databases     []DatabaseStatus `json:"databases"`
	Domains       []string         `json:"domains"`
	Jobs          []string         `json:"jobs"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Subscribers   int              `json:"event_subscribers"`
}

// NewSystemHandlers creates system handlers. jobs may be nil.
func NewSystemHandlers(container *di.Container, jobs *di.JobInstances, dataDir string, log zerolog.Logger) *SystemHandlers {
	byName := make(map[string]scheduler.Job)
	for _, job := range jobs.All() {
		byName[job.Name()] = job
	}
	return &SystemHandlers{
		container:   container,
		jobs:        byName,
		dataDir:     dataDir,
		startupTime: time.Now(),
		log:         log.With().Str("handler", "system").Logger(),
	}
}

// HandleStatus handles GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		StartedAt:     h.startupTime.UTC(),
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		Host:          h.hostStats(),
		Databases:     make([]DatabaseStatus, 0, 2),
		Jobs:          h.jobNames(),
	}

	for _, db := range h.container.Databases() {
		status := DatabaseStatus{Name: db.Name(), Profile: string(db.Profile())}
		stats, err := db.GetStats()
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Stats = stats
		}
		resp.Databases = append(resp.Databases, status)
	}

	if h.container.Registry != nil {
		resp.Domains = h.container.Registry.Keys()
	}
	if h.container.EventBus != nil {
		// An unused type key counts only catch-all subscribers
		resp.Subscribers = h.container.EventBus.SubscriberCount("")
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// HandleListJobs handles GET /api/system/jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	names := h.jobNames()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  names,
		"count": len(names),
	})
}

// HandleRunJob handles POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := h.jobs[name]
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown job: " + name})
		return
	}

	start := time.Now()
	var err error
	if h.container.Scheduler != nil {
		err = h.container.Scheduler.RunNow(job)
	} else {
		err = job.Run()
	}
	if err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"job":         name,
		"status":      "completed",
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (h *SystemHandlers) jobNames() []string {
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// hostStats samples CPU for 100ms; memory and disk are instant
func (h *SystemHandlers) hostStats() HostStats {
	var stats HostStats

	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		stats.MemoryPercent = memStat.UsedPercent
	}

	if h.dataDir != "" {
		if usage, err := disk.Usage(h.dataDir); err != nil {
			h.log.Warn().Err(err).Str("path", h.dataDir).Msg("Failed to get disk usage")
		} else {
			stats.DiskFreeBytes = usage.Free
			stats.DiskPercent = usage.UsedPercent
		}
	}

	return stats
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
