package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/fourdrun/internal/config"
	"github.com/sawpanic/fourdrun/internal/draw"
)

// Name identifies the results feed in errors and metrics.
const Name = "sg-4d-json"

const (
	latestKey   = "feed:latest"
	maxBodySize = 1 << 20
)

// Observer receives feed request outcomes.
type Observer interface {
	ObserveFeedRequest(result string, elapsed time.Duration)
	ObserveBreakerState(name, state string)
}

// Latest is the most recent draw as published by the feed.
type Latest struct {
	Values    []string      `json:"values"`
	Winners   []draw.Winner `json:"winners"`
	FetchedAt time.Time     `json:"fetched_at"`
	Cached    bool          `json:"cached"`
}

// Client fetches the latest results through a rate limiter, a circuit
// breaker and an optional cache.
type Client struct {
	cfg      config.ProviderConfig
	http     *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	cache    Cache
	cacheTTL time.Duration
	observer Observer
}

// Option customises a Client.
type Option func(*Client)

// WithCache caches raw payloads for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithObserver reports request outcomes.
func WithObserver(o Observer) Option {
	return func(cl *Client) { cl.observer = o }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.http = h }
}

// NewClient builds a feed client from cfg.
func NewClient(cfg config.ProviderConfig, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        Name,
		MaxRequests: 1,
		Timeout:     cfg.Circuit.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Circuit.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
			if c.observer != nil {
				c.observer.ObserveBreakerState(name, to.String())
			}
		},
	})
	return c
}

// BreakerState returns the circuit breaker state name.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Latest returns the latest draw, from cache when a fresh copy exists.
func (c *Client) Latest(ctx context.Context) (*Latest, error) {
	if c.cache != nil {
		payload, ok, err := c.cache.Get(ctx, latestKey)
		if err != nil {
			log.Warn().Err(err).Msg("Feed cache read failed, fetching")
		} else if ok {
			values, winners, err := WinnersFromPayload(payload)
			if err == nil {
				c.observe("cache_hit", 0)
				return &Latest{Values: values, Winners: winners, FetchedAt: time.Now(), Cached: true}, nil
			}
			log.Warn().Err(err).Msg("Discarding unreadable cached feed")
		}
	}

	start := time.Now()
	payload, err := c.fetch(ctx)
	if err != nil {
		c.observe("error", time.Since(start))
		return nil, err
	}

	values, winners, err := WinnersFromPayload(payload)
	if err != nil {
		c.observe("invalid", time.Since(start))
		return nil, &ExternalProviderError{Provider: Name, Err: err}
	}
	c.observe("ok", time.Since(start))

	if c.cache != nil {
		if err := c.cache.Set(ctx, latestKey, payload, c.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("Feed cache write failed")
		}
	}

	log.Debug().Int("numbers", len(winners)).Dur("elapsed", time.Since(start)).Msg("Fetched latest results")
	return &Latest{Values: values, Winners: winners, FetchedAt: time.Now()}, nil
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ExternalProviderError{Provider: Name, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx)
	})
	if err != nil {
		var perr *ExternalProviderError
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, &ExternalProviderError{Provider: Name, Err: err}
	}
	return result.([]byte), nil
}

func (c *Client) get(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.FeedURL, nil)
	if err != nil {
		return nil, &ExternalProviderError{Provider: Name, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ExternalProviderError{Provider: Name, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &ExternalProviderError{Provider: Name, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ExternalProviderError{
			Provider:   Name,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	return body, nil
}

func (c *Client) observe(result string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveFeedRequest(result, elapsed)
	}
}
