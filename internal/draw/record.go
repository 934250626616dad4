package draw

import (
	"fmt"
	"time"
)

// Tier is the prize category a number was drawn for.
type Tier string

const (
	TierFirst       Tier = "1st"
	TierSecond      Tier = "2nd"
	TierThird       Tier = "3rd"
	TierStarter     Tier = "Starter"
	TierConsolation Tier = "Consolation"
)

// Tiers lists the known tiers in prize order.
var Tiers = []Tier{TierFirst, TierSecond, TierThird, TierStarter, TierConsolation}

// DefaultTierWeight applies to any tier label missing from a TierWeights table.
const DefaultTierWeight = 0.5

// TierWeights maps a tier to its prestige weight in (0,1].
type TierWeights map[Tier]float64

// DefaultTierWeights returns 1st=1.0 down to Consolation=0.3.
func DefaultTierWeights() TierWeights {
	return TierWeights{
		TierFirst:       1.0,
		TierSecond:      0.9,
		TierThird:       0.8,
		TierStarter:     0.5,
		TierConsolation: 0.3,
	}
}

// Weight returns the weight for t, or DefaultTierWeight when t is unknown.
func (tw TierWeights) Weight(t Tier) float64 {
	if w, ok := tw[t]; ok {
		return w
	}
	return DefaultTierWeight
}

// Validate checks every weight is in (0,1].
func (tw TierWeights) Validate() error {
	for t, w := range tw {
		if w <= 0 || w > 1 {
			return fmt.Errorf("tier %s weight must be in (0,1], got %f", t, w)
		}
	}
	return nil
}

// MalformedInputError reports a raw value that could not become a Record.
type MalformedInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed %s %q: %s", e.Field, e.Value, e.Reason)
}

// Record is one drawn number. The zero value is not valid; use NewRecord.
type Record struct {
	date   time.Time
	tier   Tier
	number string
}

// NewRecord validates its inputs. number must be exactly four ASCII digits.
func NewRecord(date time.Time, tier Tier, number string) (Record, error) {
	if date.IsZero() {
		return Record{}, &MalformedInputError{Field: "date", Value: "", Reason: "zero date"}
	}
	if tier == "" {
		return Record{}, &MalformedInputError{Field: "tier", Value: "", Reason: "empty tier"}
	}
	if !IsNumber(number) {
		return Record{}, &MalformedInputError{Field: "number", Value: number, Reason: "not 4 digits"}
	}
	y, m, d := date.Date()
	return Record{
		date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		tier:   tier,
		number: number,
	}, nil
}

func (r Record) Date() time.Time { return r.date }
func (r Record) Tier() Tier      { return r.tier }
func (r Record) Number() string  { return r.number }

func (r Record) String() string {
	return fmt.Sprintf("%s %s %s", r.date.Format("2006-01-02"), r.tier, r.number)
}

// IsNumber reports whether s is exactly four ASCII decimal digits.
func IsNumber(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
