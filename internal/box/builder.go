package box

import (
	"fmt"

	"github.com/sawpanic/fourdrun/internal/stats"
)

// Strategy names a box construction algorithm.
type Strategy string

const (
	// StrategyGreedyTop4 fills each column with that position's four most
	// weighted digits, then backfills missing digits.
	StrategyGreedyTop4 Strategy = "greedy_top4"
	// StrategyConstrained places digits row by row under row, column and
	// column-spread constraints, ranked by a table built from previous boxes.
	StrategyConstrained Strategy = "constrained"
)

// DefaultMaxColumnsPerDigit caps how many columns one digit may occupy.
const DefaultMaxColumnsPerDigit = 2

// Config selects a strategy and its constraint cap.
type Config struct {
	Strategy           Strategy `yaml:"strategy"`
	MaxColumnsPerDigit int      `yaml:"max_columns_per_digit"`
}

// DefaultConfig returns the greedy strategy with a 2-column cap.
func DefaultConfig() Config {
	return Config{Strategy: StrategyGreedyTop4, MaxColumnsPerDigit: DefaultMaxColumnsPerDigit}
}

// Validate rejects unknown strategies and caps below one.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyGreedyTop4, StrategyConstrained:
	default:
		return fmt.Errorf("unknown box strategy %q", c.Strategy)
	}
	if c.MaxColumnsPerDigit < 1 {
		return fmt.Errorf("max_columns_per_digit must be >= 1, got %d", c.MaxColumnsPerDigit)
	}
	return nil
}

// Input carries the frequency data both strategies may draw from.
type Input struct {
	// Positions is the per-position digit frequency of the draw history.
	Positions [stats.Positions]stats.DigitCounter
	// History is the per-cell frequency of previously generated boxes.
	History PositionTable
}

// InputFromAggregate copies the position counters of agg.
func InputFromAggregate(agg *stats.Aggregate, history PositionTable) Input {
	in := Input{History: history}
	for p := 0; p < stats.Positions; p++ {
		in.Positions[p] = agg.Position(p)
	}
	return in
}

// Result is a built box plus anything that weakened its invariants.
type Result struct {
	Box      Box      `json:"box"`
	Strategy Strategy `json:"strategy"`
	// Forced lists cells where no digit satisfied the constraints and 0 was used.
	Forced []Cell `json:"forced,omitempty"`
	// Violations lists digits spread over more columns than the cap.
	Violations []Violation `json:"violations,omitempty"`
}

// Degenerate reports whether the constraints could not all be honoured.
func (r Result) Degenerate() bool {
	return len(r.Forced) > 0 || len(r.Violations) > 0
}

// Builder builds boxes with the configured strategy.
type Builder struct {
	cfg Config
}

// NewBuilder validates cfg.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.MaxColumnsPerDigit == 0 {
		cfg.MaxColumnsPerDigit = DefaultMaxColumnsPerDigit
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg}, nil
}

// Strategy returns the configured strategy.
func (b *Builder) Strategy() Strategy { return b.cfg.Strategy }

// Build runs the configured strategy. It has no side effects.
func (b *Builder) Build(in Input) Result {
	res := Result{Strategy: b.cfg.Strategy}
	switch b.cfg.Strategy {
	case StrategyConstrained:
		res.Box, res.Forced = Constrained(in.History, b.cfg.MaxColumnsPerDigit)
		res.Violations = res.Box.Violations(b.cfg.MaxColumnsPerDigit)
	default:
		// greedy makes no column-spread promise, so nothing is flagged
		res.Box = GreedyTop4(in.Positions)
	}
	return res
}
