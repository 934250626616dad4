package match

import (
	"fmt"
	"strings"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/draw"
)

// GridStats is the hit summary of an expanded box against known winners.
type GridStats struct {
	DirectHits  int `json:"direct_hits"`
	UniqueCount int `json:"unique_count"`
	IbetHits    int `json:"ibet_hits"`
	DedupCount  int `json:"dedup_count"`
}

// DirectRate is DirectHits as a percentage of UniqueCount.
func (s GridStats) DirectRate() float64 { return percent(s.DirectHits, s.UniqueCount) }

// IbetRate is IbetHits as a percentage of DedupCount.
func (s GridStats) IbetRate() float64 { return percent(s.IbetHits, s.DedupCount) }

func (s GridStats) String() string {
	return fmt.Sprintf("▶ iBet Winning rate: %d/%d (%.2f%%)\n▶ Direct Winning rate: %d/%d (%.2f%%)\n▶ Total Sets hit: %d",
		s.IbetHits, s.DedupCount, s.IbetRate(),
		s.DirectHits, s.UniqueCount, s.DirectRate(),
		s.DirectHits)
}

// MatchGrid expands b and counts winners found verbatim (direct) and up to
// digit order (iBet). Both counts are over distinct winning numbers.
func MatchGrid(b box.Box, winners []string) GridStats {
	perms := ExpandGrid(b.Flat())
	unique := make(map[string]struct{}, len(perms))
	classes := make(map[string]struct{})
	for _, p := range perms {
		unique[p] = struct{}{}
		classes[Canonical(p)] = struct{}{}
	}

	stats := GridStats{UniqueCount: len(unique), DedupCount: len(classes)}
	seen := make(map[string]struct{}, len(winners))
	for _, w := range winners {
		w = draw.PadNumber(w)
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := unique[w]; ok {
			stats.DirectHits++
		}
		if _, ok := classes[Canonical(w)]; ok {
			stats.IbetHits++
		}
	}
	return stats
}

// Hit records one candidate that matched a winner.
type Hit struct {
	Candidate string    `json:"candidate"`
	Winner    string    `json:"winner"`
	Tier      draw.Tier `json:"tier"`
	Direct    bool      `json:"direct"`
}

func (h Hit) String() string {
	if h.Direct {
		return fmt.Sprintf("%s (%s)", h.Candidate, h.Tier)
	}
	return fmt.Sprintf("%s → %s (%s)", h.Candidate, h.Winner, h.Tier)
}

// CandidateStats is the hit summary of a candidate list against one draw.
type CandidateStats struct {
	Total  int   `json:"total"`
	Direct []Hit `json:"direct"`
	Ibet   []Hit `json:"ibet"`
}

func (s CandidateStats) String() string {
	if s.Total == 0 {
		return "▶ iBet: 0/0 (0.00%)\n▶ Direct: 0/0 (0.00%)\n▶ Total Sets hit: 0"
	}
	d, i := len(s.Direct), len(s.Ibet)
	return fmt.Sprintf("▶ iBet: %d/%d (%.2f%%) - %s\n▶ Direct: %d/%d (%.2f%%) - %s\n▶ Total Sets hit: %d",
		i, s.Total, percent(i, s.Total), joinHits(s.Ibet),
		d, s.Total, percent(d, s.Total), joinHits(s.Direct),
		d)
}

// MatchCandidates checks each candidate against the winners. A candidate is
// a direct hit when it equals a winner; otherwise it is an iBet hit against
// the first winner, in the order given, with the same digits. A candidate
// counts at most once. A number listed under two tiers keeps its first tier.
func MatchCandidates(candidates []string, winners []draw.Winner) CandidateStats {
	stats := CandidateStats{Total: len(candidates)}
	if len(candidates) == 0 {
		return stats
	}

	tiers := make(map[string]draw.Tier, len(winners))
	ordered := make([]string, 0, len(winners))
	for _, w := range winners {
		n := draw.PadNumber(w.Number)
		if _, dup := tiers[n]; dup {
			continue
		}
		tiers[n] = w.Tier
		ordered = append(ordered, n)
	}

	for _, c := range candidates {
		c = draw.PadNumber(c)
		if tier, ok := tiers[c]; ok {
			stats.Direct = append(stats.Direct, Hit{Candidate: c, Winner: c, Tier: tier, Direct: true})
			continue
		}
		key := Canonical(c)
		for _, w := range ordered {
			if Canonical(w) == key {
				stats.Ibet = append(stats.Ibet, Hit{Candidate: c, Winner: w, Tier: tiers[w]})
				break
			}
		}
	}
	return stats
}

func joinHits(hits []Hit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.String()
	}
	return strings.Join(parts, ", ")
}

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}
