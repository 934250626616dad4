package handlers

import (
	"net/http"
	"runtime"
	"time"
)

// Health handles GET /health. It answers 503 when the store is unhealthy
// and reports "degraded" while the feed breaker is not closed.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
		Version:   h.deps.Version,
		System: SystemInfo{
			GoVersion:     runtime.Version(),
			NumGoroutines: runtime.NumGoroutine(),
			MemAlloc:      mem.Alloc,
			NumGC:         mem.NumGC,
		},
	}

	if h.deps.Health != nil {
		resp.Store = h.deps.Health.Health(r.Context())
	} else {
		resp.Store.Healthy = true
		resp.Store.LastCheck = resp.Timestamp
	}

	if h.deps.Feed != nil {
		resp.Feed = &FeedHealth{Name: h.deps.FeedName, Breaker: h.deps.Feed.BreakerState()}
		if resp.Feed.Breaker != "closed" {
			resp.Status = "degraded"
		}
	}
	if h.deps.Scheduler != nil {
		st := h.deps.Scheduler.Status()
		resp.Scheduler = &st
	}

	status := http.StatusOK
	if !resp.Store.Healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}
