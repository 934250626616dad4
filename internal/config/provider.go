package config

import (
	"fmt"
	"time"
)

// DefaultFeedURL serves the latest draw as a flat JSON array of 23 numbers.
const DefaultFeedURL = "https://raw.githubusercontent.com/apiusage/sg-4d-json/main/4d.json"

// ProviderConfig configures the results feed client.
type ProviderConfig struct {
	FeedURL   string        `yaml:"feed_url"`
	Timeout   time.Duration `yaml:"timeout"`    // Per-request timeout
	RPS       float64       `yaml:"rps"`        // Requests per second
	Burst     int           `yaml:"burst"`      // Burst capacity
	UserAgent string        `yaml:"user_agent"` // User agent for all requests
	Circuit   CircuitConfig `yaml:"circuit"`
}

// CircuitConfig configures the feed circuit breaker.
type CircuitConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold"` // Consecutive failures to open circuit
	OpenTimeout      time.Duration `yaml:"open_timeout"`      // Time spent open before a trial request
}

// DefaultProviderConfig returns the public feed with conservative limits.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		FeedURL:   DefaultFeedURL,
		Timeout:   10 * time.Second,
		RPS:       1,
		Burst:     2,
		UserAgent: "fourdrun/1.0",
		Circuit: CircuitConfig{
			FailureThreshold: 3,
			OpenTimeout:      60 * time.Second,
		},
	}
}

// Validate ensures the provider configuration is valid
func (p *ProviderConfig) Validate() error {
	if p.FeedURL == "" {
		return fmt.Errorf("feed_url cannot be empty")
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", p.Timeout)
	}
	if p.RPS <= 0 {
		return fmt.Errorf("rps must be positive, got %v", p.RPS)
	}
	if float64(p.Burst) < p.RPS {
		return fmt.Errorf("burst (%d) must be >= rps (%v)", p.Burst, p.RPS)
	}
	if p.Circuit.FailureThreshold == 0 {
		return fmt.Errorf("circuit failure_threshold must be positive")
	}
	if p.Circuit.OpenTimeout <= 0 {
		return fmt.Errorf("circuit open_timeout must be positive, got %s", p.Circuit.OpenTimeout)
	}
	return nil
}
