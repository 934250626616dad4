package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/draw"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Prediction is one stored ranked candidate list.
type Prediction struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// HistoryTo is the newest draw date the prediction was computed from.
	HistoryTo time.Time `json:"history_to"`
	Numbers   []string  `json:"numbers"`
	Scores    []float64 `json:"scores"`
	// Stats is empty until the prediction is settled against a draw.
	Stats      string     `json:"stats"`
	SettledFor *time.Time `json:"settled_for,omitempty"`
}

// Settled reports whether stats have been computed.
func (p Prediction) Settled() bool { return p.SettledFor != nil }

// BoxRecord is one stored box.
type BoxRecord struct {
	ID         string       `json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	HistoryTo  time.Time    `json:"history_to"`
	Strategy   box.Strategy `json:"strategy"`
	Box        box.Box      `json:"box"`
	Degenerate bool         `json:"degenerate"`
	Stats      string       `json:"stats"`
	SettledFor *time.Time   `json:"settled_for,omitempty"`
}

// Settled reports whether stats have been computed.
func (b BoxRecord) Settled() bool { return b.SettledFor != nil }

// DrawRepo stores draw history.
type DrawRepo interface {
	// Insert stores records, ignoring ones already present, and returns how
	// many were new.
	Insert(ctx context.Context, records []draw.Record) (int, error)

	// HasDate reports whether any record exists for the draw date.
	HasDate(ctx context.Context, date time.Time) (bool, error)

	// List returns every record ordered by date, then insertion.
	List(ctx context.Context) ([]draw.Record, error)

	// Latest returns the newest draw date and its winners in insertion order.
	Latest(ctx context.Context) (time.Time, []draw.Winner, error)
}

// PredictionRepo stores the prediction ledger.
type PredictionRepo interface {
	Insert(ctx context.Context, p Prediction) error

	// Latest returns the most recently created prediction.
	Latest(ctx context.Context) (*Prediction, error)

	// LatestUnsettled returns the newest prediction without stats.
	LatestUnsettled(ctx context.Context) (*Prediction, error)

	// Settle records stats computed against the draw of drawDate.
	Settle(ctx context.Context, id string, drawDate time.Time, stats string) error

	// List returns up to limit predictions, newest first.
	List(ctx context.Context, limit int) ([]Prediction, error)
}

// BoxRepo stores generated boxes.
type BoxRepo interface {
	Insert(ctx context.Context, b BoxRecord) error

	// Latest returns the most recently created box.
	Latest(ctx context.Context) (*BoxRecord, error)

	// All returns every stored box, oldest first.
	All(ctx context.Context) ([]BoxRecord, error)

	// Unsettled returns boxes without stats, oldest first.
	Unsettled(ctx context.Context) ([]BoxRecord, error)

	// Settle records stats computed against the draw of drawDate.
	Settle(ctx context.Context, id string, drawDate time.Time, stats string) error
}

// Repository aggregates all persistence interfaces
type Repository struct {
	Draws       DrawRepo
	Predictions PredictionRepo
	Boxes       BoxRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for persistence layer
type RepositoryHealth interface {
	// Health returns current repository health status
	Health(ctx context.Context) HealthCheck

	// Ping tests basic connectivity to the store
	Ping(ctx context.Context) error
}
