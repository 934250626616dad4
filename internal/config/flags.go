package config

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/sawpanic/fourdrun/internal/box"
)

// Flag names shared by every command.
const (
	FlagFeedURL  = "feed-url"
	FlagStrategy = "strategy"
	FlagTop      = "top"
	FlagSeed     = "seed"
	FlagDSN      = "dsn"
	FlagRedis    = "redis"
	FlagDataDir  = "data-dir"
	FlagHTTPAddr = "http-addr"
	FlagInterval = "interval"
)

// RegisterFlags adds the override flags to fs. Defaults are zero values so
// that only flags set on the command line take effect.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(FlagFeedURL, "", "results feed URL")
	fs.String(FlagStrategy, "", "box strategy (greedy_top4|constrained)")
	fs.Int(FlagTop, 0, "number of ranked candidates to keep")
	fs.Int64(FlagSeed, 0, "random seed for the jitter feature (0 = clock)")
	fs.String(FlagDSN, "", "PostgreSQL DSN; enables the database store")
	fs.String(FlagRedis, "", "Redis address; enables the feed cache")
	fs.String(FlagDataDir, "", "directory of the file store")
	fs.String(FlagHTTPAddr, "", "monitoring server listen address")
	fs.Duration(FlagInterval, 0, "scheduler interval")
}

// ApplyFlags copies flags changed on the command line into c and
// revalidates.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return err == nil && f != nil && f.Changed
	}

	if changed(FlagFeedURL) {
		c.Provider.FeedURL, err = fs.GetString(FlagFeedURL)
	}
	if changed(FlagStrategy) {
		var s string
		s, err = fs.GetString(FlagStrategy)
		c.Box.Strategy = box.Strategy(s)
	}
	if changed(FlagTop) {
		c.Model.TopN, err = fs.GetInt(FlagTop)
	}
	if changed(FlagSeed) {
		c.Model.Seed, err = fs.GetInt64(FlagSeed)
	}
	if changed(FlagDSN) {
		c.Database.DSN, err = fs.GetString(FlagDSN)
		c.Database.Enabled = c.Database.DSN != ""
	}
	if changed(FlagRedis) {
		c.Cache.Addr, err = fs.GetString(FlagRedis)
		c.Cache.Enabled = c.Cache.Addr != ""
	}
	if changed(FlagDataDir) {
		c.Storage.Dir, err = fs.GetString(FlagDataDir)
	}
	if changed(FlagHTTPAddr) {
		c.HTTP.Addr, err = fs.GetString(FlagHTTPAddr)
	}
	if changed(FlagInterval) {
		c.Schedule.Interval, err = fs.GetDuration(FlagInterval)
	}
	if err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	return c.Validate()
}
