package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/draw"
	"github.com/sawpanic/fourdrun/internal/infrastructure/db"
	"github.com/sawpanic/fourdrun/internal/scoring"
	"github.com/sawpanic/fourdrun/internal/stats"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FOURD_"

// Config is the complete application configuration.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Box      box.Config     `yaml:"box"`
	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Database db.Config      `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// ModelConfig holds the scoring blend and the aggregation parameters.
type ModelConfig struct {
	scoring.Config `yaml:",inline"`
	TierWeights    draw.TierWeights `yaml:"tier_weights"`
	HalfLifeDays   float64          `yaml:"half_life_days"`
	Seed           int64            `yaml:"seed"` // 0 seeds from the clock
}

// Scoring returns the scorer configuration.
func (m ModelConfig) Scoring() scoring.Config { return m.Config }

// Stats returns the aggregator configuration.
func (m ModelConfig) Stats() stats.Config {
	return stats.Config{TierWeights: m.TierWeights, HalfLifeDays: m.HalfLifeDays}
}

// CacheConfig configures the Redis cache of the results feed.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Addr    string        `yaml:"addr"`
	DB      int           `yaml:"db"`
	TTL     time.Duration `yaml:"ttl"`
}

// StorageConfig locates the file store used when the database is disabled.
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// HTTPConfig configures the monitoring server.
type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ScheduleConfig configures the recurring pipeline run.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
	// RunOnStart runs the pipeline once before the first tick.
	RunOnStart bool `yaml:"run_on_start"`
}

// Default returns a configuration that runs offline against ./data.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Config:       scoring.DefaultConfig(),
			TierWeights:  draw.DefaultTierWeights(),
			HalfLifeDays: stats.DefaultHalfLifeDays,
		},
		Box:      box.DefaultConfig(),
		Provider: DefaultProviderConfig(),
		Cache: CacheConfig{
			Addr: "localhost:6379",
			TTL:  10 * time.Minute,
		},
		Database: db.DefaultConfig(),
		Storage:  StorageConfig{Dir: "data"},
		HTTP: HTTPConfig{
			Addr:         ":8090",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Schedule: ScheduleConfig{Interval: 24 * time.Hour},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv applies FOURD_* overrides.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	str("FEED_URL", &c.Provider.FeedURL)
	str("REDIS_ADDR", &c.Cache.Addr)
	str("DATABASE_DSN", &c.Database.DSN)
	str("DATA_DIR", &c.Storage.Dir)
	str("HTTP_ADDR", &c.HTTP.Addr)

	flags := map[string]*bool{
		"CACHE_ENABLED":    &c.Cache.Enabled,
		"DATABASE_ENABLED": &c.Database.Enabled,
	}
	for key, dst := range flags {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
	}

	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sSEED: %w", EnvPrefix, err)
		}
		c.Model.Seed = seed
	}
	if v := os.Getenv(EnvPrefix + "BOX_STRATEGY"); v != "" {
		c.Box.Strategy = box.Strategy(v)
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Model.Weights.Validate(); err != nil {
		return err
	}
	if err := c.Model.TierWeights.Validate(); err != nil {
		return fmt.Errorf("tier_weights: %w", err)
	}
	if c.Model.HalfLifeDays <= 0 {
		return fmt.Errorf("half_life_days must be positive, got %v", c.Model.HalfLifeDays)
	}
	if c.Model.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.Model.TopN)
	}
	if c.Model.PoolDigits < 1 || c.Model.PoolDigits > 10 {
		return fmt.Errorf("pool_digits must be between 1 and 10, got %d", c.Model.PoolDigits)
	}
	if c.Model.JitterMax < 0 {
		return fmt.Errorf("jitter_max cannot be negative, got %v", c.Model.JitterMax)
	}
	if err := c.Box.Validate(); err != nil {
		return fmt.Errorf("box: %w", err)
	}
	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if c.Cache.Enabled {
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache addr is required when cache is enabled")
		}
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache ttl must be positive, got %s", c.Cache.TTL)
		}
	}
	if c.Database.Enabled && c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required when database is enabled")
	}
	if !c.Database.Enabled && c.Storage.Dir == "" {
		return fmt.Errorf("storage dir is required when database is disabled")
	}
	if c.Schedule.Interval < time.Minute {
		return fmt.Errorf("schedule interval must be at least 1m, got %s", c.Schedule.Interval)
	}
	return nil
}

// Save writes the configuration as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
