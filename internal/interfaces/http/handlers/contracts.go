package handlers

import (
	"time"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/persistence"
	"github.com/sawpanic/fourdrun/internal/scheduler"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Version   string    `json:"version"`

	System    SystemInfo              `json:"system"`
	Store     persistence.HealthCheck `json:"store"`
	Feed      *FeedHealth             `json:"feed,omitempty"`
	Scheduler *scheduler.Status       `json:"scheduler,omitempty"`
}

// SystemInfo provides system-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAlloc      uint64 `json:"mem_alloc_bytes"`
	NumGC         uint32 `json:"num_gc"`
}

// FeedHealth reports the results feed circuit breaker.
type FeedHealth struct {
	Name    string `json:"name"`
	Breaker string `json:"breaker"`
}

// PredictionResponse is one ledger entry.
type PredictionResponse struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"created_at"`
	HistoryTo  time.Time  `json:"history_to"`
	Numbers    []string   `json:"numbers"`
	Scores     []float64  `json:"scores"`
	Settled    bool       `json:"settled"`
	SettledFor *time.Time `json:"settled_for,omitempty"`
	Stats      []string   `json:"stats,omitempty"`
}

// PredictionsResponse lists ledger entries, newest first.
type PredictionsResponse struct {
	Count       int                  `json:"count"`
	Predictions []PredictionResponse `json:"predictions"`
}

// BoxResponse is one stored box.
type BoxResponse struct {
	ID         string       `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	HistoryTo  time.Time    `json:"history_to"`
	Strategy   box.Strategy `json:"strategy"`
	Grid       box.Box      `json:"grid"`
	Rows       []string     `json:"rows"`
	Degenerate bool         `json:"degenerate"`
	Settled    bool         `json:"settled"`
	SettledFor *time.Time   `json:"settled_for,omitempty"`
	Stats      []string     `json:"stats,omitempty"`
}

// HitRatesResponse carries the last settled hit-rate gauges, in percent.
type HitRatesResponse struct {
	Timestamp time.Time          `json:"timestamp"`
	Rates     map[string]float64 `json:"rates"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
