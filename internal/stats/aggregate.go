package stats

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/fourdrun/internal/draw"
)

// Positions is the number of digit positions in a draw number.
const Positions = 4

// DefaultHalfLifeDays is the recency decay half-life.
const DefaultHalfLifeDays = 90.0

// Config controls how records are weighted.
type Config struct {
	TierWeights  draw.TierWeights `yaml:"tier_weights"`
	HalfLifeDays float64          `yaml:"half_life_days"`
}

// DefaultConfig returns the default tier weights and a 90 day half-life.
func DefaultConfig() Config {
	return Config{
		TierWeights:  draw.DefaultTierWeights(),
		HalfLifeDays: DefaultHalfLifeDays,
	}
}

// Aggregate is the read-only result of one pass over a draw history.
type Aggregate struct {
	full     map[string]float64
	position [Positions]DigitCounter
	recency  map[string]float64
	streak   map[string]int

	normFull    map[string]float64
	normRecency map[string]float64
	maxStreak   int

	records  int
	lastDate time.Time
}

// Aggregator builds an Aggregate from records.
type Aggregator struct {
	cfg Config
}

// NewAggregator returns an aggregator. A non-positive half-life falls back to
// DefaultHalfLifeDays and a nil weight table to the default tiers.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.HalfLifeDays <= 0 {
		cfg.HalfLifeDays = DefaultHalfLifeDays
	}
	if cfg.TierWeights == nil {
		cfg.TierWeights = draw.DefaultTierWeights()
	}
	return &Aggregator{cfg: cfg}
}

// Aggregate consumes records once, in the given order. Records are expected
// ascending by date; streaks count adjacency in that order.
func (a *Aggregator) Aggregate(records []draw.Record) *Aggregate {
	agg := &Aggregate{
		full:    make(map[string]float64),
		recency: make(map[string]float64),
		streak:  make(map[string]int),
		records: len(records),
	}
	if len(records) == 0 {
		agg.normFull = map[string]float64{}
		agg.normRecency = map[string]float64{}
		agg.maxStreak = 1
		return agg
	}

	for _, r := range records {
		if r.Date().After(agg.lastDate) {
			agg.lastDate = r.Date()
		}
	}

	for i, r := range records {
		num := r.Number()
		w := a.cfg.TierWeights.Weight(r.Tier())

		agg.full[num] += w
		for p := 0; p < Positions; p++ {
			agg.position[p][num[p]-'0'] += w
		}

		days := math.Floor(agg.lastDate.Sub(r.Date()).Hours() / 24)
		agg.recency[num] += w * math.Pow(0.5, days/a.cfg.HalfLifeDays)

		if i > 0 && records[i-1].Number() == num {
			agg.streak[num]++
		}
	}

	agg.normFull = Normalize(agg.full)
	agg.normRecency = Normalize(agg.recency)
	agg.maxStreak = 1
	if len(agg.streak) > 0 {
		agg.maxStreak = 0
		for _, s := range agg.streak {
			if s > agg.maxStreak {
				agg.maxStreak = s
			}
		}
	}
	return agg
}

// Normalize min-max scales values to [0,1]. When every value is equal,
// including a single key, each key maps to 1.0. An empty map stays empty.
func Normalize(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for k, v := range values {
		if hi == lo {
			out[k] = 1.0
			continue
		}
		out[k] = (v - lo) / (hi - lo)
	}
	return out
}

// Full returns the tier-weighted frequency of number.
func (a *Aggregate) Full(number string) float64 { return a.full[number] }

// NormFull returns the normalized frequency, 0 for unseen numbers.
func (a *Aggregate) NormFull(number string) float64 { return a.normFull[number] }

// Recency returns the decayed weight of number.
func (a *Aggregate) Recency(number string) float64 { return a.recency[number] }

// NormRecency returns the normalized recency, 0 for unseen numbers.
func (a *Aggregate) NormRecency(number string) float64 { return a.normRecency[number] }

// Streak returns how many times number immediately repeated itself.
func (a *Aggregate) Streak(number string) int { return a.streak[number] }

// MaxStreak is the largest streak seen, or 1 when no number repeated.
func (a *Aggregate) MaxStreak() int { return a.maxStreak }

// Position returns a copy of the digit counter for position p.
func (a *Aggregate) Position(p int) DigitCounter { return a.position[p] }

// Records is the number of records aggregated.
func (a *Aggregate) Records() int { return a.records }

// LastDate is the date recency is measured against.
func (a *Aggregate) LastDate() time.Time { return a.lastDate }

// Empty reports whether no records were aggregated.
func (a *Aggregate) Empty() bool { return a.records == 0 }

// Numbers returns every observed number in ascending order.
func (a *Aggregate) Numbers() []string {
	out := make([]string, 0, len(a.full))
	for n := range a.full {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// PositionScore multiplies each digit's share of its position total. A
// position with no counts contributes a factor of 1.
func (a *Aggregate) PositionScore(number string) float64 {
	s := 1.0
	for p := 0; p < Positions && p < len(number); p++ {
		total := a.position[p].Total()
		if total == 0 {
			continue
		}
		s *= a.position[p][number[p]-'0'] / total
	}
	return s
}
