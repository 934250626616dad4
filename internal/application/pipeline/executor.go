package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/config"
	"github.com/sawpanic/fourdrun/internal/metrics"
	"github.com/sawpanic/fourdrun/internal/persistence"
	"github.com/sawpanic/fourdrun/internal/provider"
	"github.com/sawpanic/fourdrun/internal/scoring"
	"github.com/sawpanic/fourdrun/internal/stats"
)

// ErrNoFeed is returned by Fetch when no results feed is configured.
var ErrNoFeed = errors.New("no results feed configured")

// Feed supplies the latest draw's winning numbers.
type Feed interface {
	Latest(ctx context.Context) (*provider.Latest, error)
}

// Executor runs the ingest, predict, box and settle steps against a repository.
type Executor struct {
	repo       *persistence.Repository
	feed       Feed
	metrics    *metrics.Registry
	aggregator *stats.Aggregator
	scorer     *scoring.Scorer
	builder    *box.Builder
	rng        scoring.RandSource
	now        func() time.Time
	progress   bool

	mu sync.Mutex
}

// Option customises an Executor.
type Option func(*Executor)

// WithFeed sets the results feed used by Fetch.
func WithFeed(f Feed) Option {
	return func(e *Executor) { e.feed = f }
}

// WithMetrics records step timings and hit rates on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithRand overrides the scorer's random source.
func WithRand(rng scoring.RandSource) Option {
	return func(e *Executor) { e.rng = rng }
}

// WithProgress logs per-step progress and a timing summary for Run.
func WithProgress() Option {
	return func(e *Executor) { e.progress = true }
}

// NewExecutor builds an executor from the model and box sections of cfg.
func NewExecutor(cfg *config.Config, repo *persistence.Repository, opts ...Option) (*Executor, error) {
	if repo == nil || repo.Draws == nil || repo.Predictions == nil || repo.Boxes == nil {
		return nil, fmt.Errorf("pipeline: incomplete repository")
	}
	builder, err := box.NewBuilder(cfg.Box)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	e := &Executor{
		repo:       repo,
		aggregator: stats.NewAggregator(cfg.Model.Stats()),
		builder:    builder,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.NewRegistry()
	}

	if e.rng == nil && cfg.Model.Seed != 0 {
		e.rng = rand.New(rand.NewSource(cfg.Model.Seed))
	}
	e.scorer = scoring.NewScorer(cfg.Model.Scoring(), e.rng)
	return e, nil
}

// Metrics returns the registry the executor records to.
func (e *Executor) Metrics() *metrics.Registry { return e.metrics }
