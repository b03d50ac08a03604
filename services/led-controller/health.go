package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Health je odpověď /health.
type Health struct {
	Status     string  `json:"status"`
	Connection string  `json:"connection"`
	UptimeSec  float64 `json:"uptime_sec"`
	// Vlastní proces (RSS je skutečně obsazená fyzická RAM).
	RSSMB      float64 `json:"rss_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	// Celý systém: Total - Available, bez diskové cache.
	HostRAMUsedMB float64 `json:"host_ram_used_mb"`
}

// HealthHandler hlásí stav ovladače a spotřebu zdrojů.
type HealthHandler struct {
	ctrl    *Controller
	proc    *process.Process
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler připraví handler. Když gopsutil nedokáže otevřít vlastní
// proces, /health funguje dál, jen bez statistik procesu.
func NewHealthHandler(ctrl *Controller, logger *slog.Logger) *HealthHandler {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("Nelze číst statistiky procesu", "error", err)
		proc = nil
	}
	return &HealthHandler{ctrl: ctrl, proc: proc, started: time.Now(), logger: logger}
}

// ServeHTTP: GET /health. 503 pokud smyčka ovladače neběží.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st, err := h.ctrl.State(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, Health{Status: "stopped"})
		return
	}

	out := Health{
		Status:     "ok",
		Connection: st.Connection,
		UptimeSec:  time.Since(h.started).Seconds(),
	}

	if h.proc != nil {
		if memInfo, err := h.proc.MemoryInfoWithContext(r.Context()); err == nil {
			out.RSSMB = float64(memInfo.RSS) / 1024.0 / 1024.0
		}
		if cpu, err := h.proc.PercentWithContext(r.Context(), 0); err == nil {
			out.CPUPercent = cpu
		}
	}
	if vMem, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		out.HostRAMUsedMB = float64(vMem.Total-vMem.Available) / 1024.0 / 1024.0
	} else {
		h.logger.Debug("Chyba při čtení RAM statistik", "error", err)
	}

	writeJSON(w, http.StatusOK, out)
}
