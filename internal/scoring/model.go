package scoring

// Feature names used in ScoredCandidate.Parts.
const (
	FeatureFreq    = "freq"
	FeaturePos     = "pos"
	FeatureRecency = "recency"
	FeatureBalance = "balance"
	FeatureStreak  = "streak"
	FeatureRand    = "rand"
)

const (
	DefaultTopN       = 5
	DefaultPoolDigits = 5
	DefaultJitterMax  = 0.05
)

// ScoredCandidate is one ranked number with its unweighted feature values.
type ScoredCandidate struct {
	Number string             `json:"number"`
	Score  float64            `json:"score"`
	Parts  map[string]float64 `json:"parts"`
}

// Config sets the blend and the shape of the candidate pool.
type Config struct {
	Weights Weights `yaml:"weights"`
	// TopN is how many candidates Rank returns.
	TopN int `yaml:"top_n"`
	// PoolDigits is how many top digits per position feed the Cartesian pool.
	PoolDigits int `yaml:"pool_digits"`
	// JitterMax bounds the random feature to [0, JitterMax).
	JitterMax float64 `yaml:"jitter_max"`
}

// DefaultConfig returns the default blend, top 5, pool of 5 digits per position.
func DefaultConfig() Config {
	return Config{
		Weights:    DefaultWeights(),
		TopN:       DefaultTopN,
		PoolDigits: DefaultPoolDigits,
		JitterMax:  DefaultJitterMax,
	}
}

// RandSource supplies the jitter feature. *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// Numbers returns the candidate numbers in rank order.
func Numbers(cands []ScoredCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Number
	}
	return out
}
