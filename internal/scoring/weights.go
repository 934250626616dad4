package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when feature weights do not form a blend.
var ErrInvalidWeights = errors.New("invalid feature weights")

// Weights blends the six candidate features.
type Weights struct {
	Freq    float64 `yaml:"freq" json:"freq"`
	Pos     float64 `yaml:"pos" json:"pos"`
	Recency float64 `yaml:"recency" json:"recency"`
	Balance float64 `yaml:"balance" json:"balance"`
	Streak  float64 `yaml:"streak" json:"streak"`
	Rand    float64 `yaml:"rand" json:"rand"`
}

// DefaultWeights returns freq 35%, pos 30%, recency 15%, balance 10%,
// streak 5%, rand 5%.
func DefaultWeights() Weights {
	return Weights{
		Freq:    0.35,
		Pos:     0.30,
		Recency: 0.15,
		Balance: 0.10,
		Streak:  0.05,
		Rand:    0.05,
	}
}

// Sum is the total of all six weights.
func (w Weights) Sum() float64 {
	return w.Freq + w.Pos + w.Recency + w.Balance + w.Streak + w.Rand
}

// Validate requires non-negative weights summing to 1 within 0.001.
func (w Weights) Validate() error {
	for name, v := range w.asMap() {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative (%.3f)", ErrInvalidWeights, name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("%w: weights sum to %.3f, expected 1.000", ErrInvalidWeights, sum)
	}
	return nil
}

func (w Weights) asMap() map[string]float64 {
	return map[string]float64{
		FeatureFreq:    w.Freq,
		FeaturePos:     w.Pos,
		FeatureRecency: w.Recency,
		FeatureBalance: w.Balance,
		FeatureStreak:  w.Streak,
		FeatureRand:    w.Rand,
	}
}
