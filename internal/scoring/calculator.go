package scoring

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sawpanic/fourdrun/internal/stats"
)

// Scorer ranks candidate numbers from an aggregate.
type Scorer struct {
	cfg Config
	rng RandSource
}

// NewScorer returns a scorer drawing jitter from rng. A nil rng is replaced
// by a time-seeded generator, which makes rankings non-reproducible; tests
// and replays should pass a seeded source.
func NewScorer(cfg Config, rng RandSource) *Scorer {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.PoolDigits <= 0 {
		cfg.PoolDigits = DefaultPoolDigits
	}
	if cfg.JitterMax < 0 {
		cfg.JitterMax = 0
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Scorer{cfg: cfg, rng: rng}
}

// Candidates returns the pool to score in ascending order: every observed
// number plus the Cartesian product of each position's top digits.
func (s *Scorer) Candidates(agg *stats.Aggregate) []string {
	pool := make(map[string]struct{})
	for _, n := range agg.Numbers() {
		pool[n] = struct{}{}
	}

	combos := []string{""}
	for p := 0; p < stats.Positions; p++ {
		top := agg.Position(p).Top(s.cfg.PoolDigits)
		next := make([]string, 0, len(combos)*len(top))
		for _, prefix := range combos {
			for _, d := range top {
				next = append(next, prefix+string(rune('0'+d)))
			}
		}
		combos = next
	}
	for _, c := range combos {
		pool[c] = struct{}{}
	}

	out := make([]string, 0, len(pool))
	for n := range pool {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Score computes the blended score for one number. It draws one jitter value.
func (s *Scorer) Score(agg *stats.Aggregate, number string) ScoredCandidate {
	w := s.cfg.Weights

	fPos := 0.0
	if ps := agg.PositionScore(number); ps > 0 {
		fPos = math.Log1p(ps)
	}
	parts := map[string]float64{
		FeatureFreq:    agg.NormFull(number),
		FeaturePos:     fPos,
		FeatureRecency: agg.NormRecency(number),
		FeatureBalance: BalanceScore(number),
		FeatureStreak:  float64(agg.Streak(number)) / float64(1+agg.MaxStreak()),
		FeatureRand:    s.rng.Float64() * s.cfg.JitterMax,
	}

	score := w.Freq*parts[FeatureFreq] +
		w.Pos*parts[FeaturePos] +
		w.Recency*parts[FeatureRecency] +
		w.Balance*parts[FeatureBalance] +
		w.Streak*parts[FeatureStreak] +
		w.Rand*parts[FeatureRand]

	return ScoredCandidate{Number: number, Score: score, Parts: parts}
}

// Rank scores the whole pool and returns the top N by score descending, ties
// broken by number ascending. An empty aggregate yields an empty ranking.
func (s *Scorer) Rank(agg *stats.Aggregate) []ScoredCandidate {
	if agg == nil || agg.Empty() {
		return []ScoredCandidate{}
	}

	pool := s.Candidates(agg)
	scored := make([]ScoredCandidate, 0, len(pool))
	for _, n := range pool {
		scored = append(scored, s.Score(agg, n))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > s.cfg.TopN {
		scored = scored[:s.cfg.TopN]
	}
	return scored
}

// BalanceScore rewards two odd / two even and two high (>=5) / two low digits.
// The result is in [0,1] and is 1 only for a fully balanced number.
func BalanceScore(number string) float64 {
	odd, high := 0, 0
	for i := 0; i < len(number); i++ {
		d := int(number[i] - '0')
		if d%2 == 1 {
			odd++
		}
		if d >= 5 {
			high++
		}
	}
	n := len(number)
	parity := 1 - math.Abs(float64(odd-(n-odd)))/4
	spread := 1 - math.Abs(float64(high-(n-high)))/4
	return (parity + spread) / 2
}
