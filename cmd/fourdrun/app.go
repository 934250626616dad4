package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/fourdrun/internal/application/pipeline"
	"github.com/sawpanic/fourdrun/internal/config"
	"github.com/sawpanic/fourdrun/internal/infrastructure/db"
	logsetup "github.com/sawpanic/fourdrun/internal/log"
	"github.com/sawpanic/fourdrun/internal/metrics"
	"github.com/sawpanic/fourdrun/internal/persistence"
	"github.com/sawpanic/fourdrun/internal/persistence/memory"
	"github.com/sawpanic/fourdrun/internal/provider"
	"github.com/sawpanic/fourdrun/internal/report"
)

// app wires the store, feed client, metrics and executor for one command.
type app struct {
	cfg     *config.Config
	repo    *persistence.Repository
	health  persistence.RepositoryHealth
	feed    *provider.Client
	metrics *metrics.Registry
	exec    *pipeline.Executor

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.NewRegistry()}

	if cfg.Database.Enabled {
		mgr, err := db.NewManager(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.repo, a.health = mgr.Repository(), mgr.Health()
		a.closers = append(a.closers, mgr.Close)
	} else {
		store, err := memory.Open(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		a.repo, a.health = store.Repository(), store
		log.Debug().Str("dir", cfg.Storage.Dir).Msg("Using file store")
	}

	opts := []provider.Option{provider.WithObserver(a.metrics)}
	if cfg.Cache.Enabled {
		cache, err := provider.NewRedisCache(ctx, cfg.Cache.Addr, cfg.Cache.DB)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Cache.Addr).Msg("Redis unavailable, feed cache disabled")
		} else {
			opts = append(opts, provider.WithCache(cache, cfg.Cache.TTL))
			a.closers = append(a.closers, cache.Close)
		}
	}
	a.feed = provider.NewClient(cfg.Provider, opts...)

	exec, err := pipeline.NewExecutor(cfg, a.repo,
		pipeline.WithFeed(a.feed),
		pipeline.WithMetrics(a.metrics),
		pipeline.WithProgress(),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.exec = exec
	return a, nil
}

// Close releases the store and cache connections.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}

func (c *cli) renderer(out io.Writer) *report.Renderer {
	return report.NewRenderer(out, !c.noColor && logsetup.IsTerminal(out))
}
