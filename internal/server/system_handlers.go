package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/watchmystocks/server/internal/database"
	"github.com/watchmystocks/server/internal/scheduler"
)

var startedAt = time.Now()

// SystemHandlers serves the operational endpoints: host stats, database
// size and manual job triggers.
type SystemHandlers struct {
	log       zerolog.Logger
	db        *database.DB
	scheduler *scheduler.Scheduler
	screenJob scheduler.Job
	backupJob scheduler.Job
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(log zerolog.Logger, db *database.DB, sched *scheduler.Scheduler, screenJob, backupJob scheduler.Job) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		db:        db,
		scheduler: sched,
		screenJob: screenJob,
		backupJob: backupJob,
	}
}

// SystemStatusResponse reports host and process health.
type SystemStatusResponse struct {
	UptimeSeconds  int64   `json:"uptime_seconds"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemoryPercent  float64 `json:"memory_percent"`
	DiskPercent    float64 `json:"disk_percent"`
	DatabaseSizeMB float64 `json:"database_size_mb"`
}

// HandleStatus returns host stats and database size.
// GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, memUsed := h.hostStats()

	resp := SystemStatusResponse{
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
		CPUPercent:    cpuAvg,
		MemoryPercent: memUsed,
	}

	if usage, err := disk.Usage("/"); err == nil {
		resp.DiskPercent = usage.UsedPercent
	}
	if info, err := os.Stat(h.db.Path()); err == nil {
		resp.DatabaseSizeMB = float64(info.Size()) / 1024 / 1024
	}

	h.writeJSON(w, map[string]interface{}{
		"status": "success",
		"data":   resp,
	})
}

// HandleTriggerScreen runs the weekly screen outside its schedule.
// POST /api/system/jobs/screen
func (h *SystemHandlers) HandleTriggerScreen(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.screenJob)
}

// HandleTriggerBackup runs the backup outside its schedule.
// POST /api/system/jobs/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.backupJob)
}

func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job) {
	if job == nil {
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": "job not registered",
		})
		return
	}

	go func() {
		if err := h.scheduler.RunNow(job); err != nil {
			h.log.Error().Err(err).Str("job", job.Name()).Msg("Manual job run failed")
		}
	}()

	h.writeJSON(w, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"job": job.Name(), "state": "started"},
	})
}

// hostStats samples CPU over a short window so the endpoint stays fast.
func (h *SystemHandlers) hostStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}
