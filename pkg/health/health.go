// Package health exposes the exporter's liveness endpoint. The tracker
// records completed monitoring cycles; the handler reports uptime and
// cycle freshness so an orchestrator can tell a wedged exporter from a
// healthy idle one.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Tracker records monitoring cycle completions.
type Tracker struct {
	mu          sync.RWMutex
	startedAt   time.Time
	lastCycle   time.Time
	lastElapsed time.Duration
	cycles      uint64
	services    int
}

// NewTracker creates a tracker with the start time set to now.
func NewTracker() *Tracker {
	return &Tracker{startedAt: time.Now()}
}

// CycleCompleted records one finished monitoring cycle.
func (t *Tracker) CycleCompleted(services int, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastCycle = time.Now()
	t.lastElapsed = elapsed
	t.cycles++
	t.services = services
}

// report is the JSON body served by the handler.
type report struct {
	Status          string  `json:"status"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	CyclesCompleted uint64  `json:"cycles_completed"`
	LastCycleAt     string  `json:"last_cycle_at,omitempty"`
	LastCycleMillis int64   `json:"last_cycle_ms,omitempty"`
	Services        int     `json:"services,omitempty"`
}

// Handler serves the current health report. The status is "ok" once a
// cycle has completed and "starting" before the first one; either way the
// endpoint answers 200, liveness here means the process is responsive.
func (t *Tracker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.mu.RLock()
		rep := report{
			Status:          "ok",
			UptimeSeconds:   time.Since(t.startedAt).Seconds(),
			CyclesCompleted: t.cycles,
			Services:        t.services,
		}
		if t.cycles == 0 {
			rep.Status = "starting"
		} else {
			rep.LastCycleAt = t.lastCycle.UTC().Format(time.RFC3339)
			rep.LastCycleMillis = t.lastElapsed.Milliseconds()
		}
		t.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rep)
	})
}
