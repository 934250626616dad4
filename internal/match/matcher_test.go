package match

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/draw"
)

func TestOrderings(t *testing.T) {
	require.Len(t, orderings, 24)
	seen := map[[4]int]bool{}
	for _, o := range orderings {
		var k [4]int
		copy(k[:], o)
		seen[k] = true
	}
	assert.Len(t, seen, 24)
}

func TestExpandGrid_SizeAndSlots(t *testing.T) {
	b := box.Box{
		{1, 2, 3, 4},
		{1, 2, 3, 4},
		{1, 2, 3, 4},
		{1, 2, 3, 4},
	}
	perms := ExpandGrid(b.Flat())
	require.Len(t, perms, RawPermutations)

	unique := map[string]bool{}
	for _, p := range perms {
		unique[p] = true
	}
	assert.Len(t, unique, 24)
	assert.True(t, unique["4321"])
	assert.False(t, unique["1111"], "a number never takes two cells from one slot")
}

func TestMatchGrid_IdenticalDigits(t *testing.T) {
	var b box.Box
	for r := range b {
		for c := range b[r] {
			b[r][c] = 5
		}
	}
	s := MatchGrid(b, []string{"5555", "1234"})
	assert.Equal(t, GridStats{DirectHits: 1, UniqueCount: 1, IbetHits: 1, DedupCount: 1}, s)
	assert.Equal(t, "▶ iBet Winning rate: 1/1 (100.00%)\n▶ Direct Winning rate: 1/1 (100.00%)\n▶ Total Sets hit: 1", s.String())
}

func TestMatchGrid_CountsWinnersOnce(t *testing.T) {
	b := box.Box{
		{1, 2, 3, 4},
		{1, 2, 3, 4},
		{1, 2, 3, 4},
		{1, 2, 3, 4},
	}
	s := MatchGrid(b, []string{"1234"})
	assert.Equal(t, 1, s.DirectHits)
	assert.Equal(t, 1, s.IbetHits)
	assert.Equal(t, 24, s.UniqueCount)
	assert.Equal(t, 1, s.DedupCount)
	assert.Equal(t, "▶ iBet Winning rate: 1/1 (100.00%)\n▶ Direct Winning rate: 1/24 (4.17%)\n▶ Total Sets hit: 1", s.String())

	s = MatchGrid(b, []string{"1234", "4321", "1234", "1235"})
	assert.Equal(t, 2, s.DirectHits)
	assert.Equal(t, 2, s.IbetHits)
}

func TestMatchGrid_RandomGridBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 50; i++ {
		var flat [box.Cells]int
		for j := range flat {
			flat[j] = rng.Intn(10)
		}
		winners := make([]string, 23)
		for j := range winners {
			winners[j] = draw.PadNumber(string(rune('0'+rng.Intn(10))) + string(rune('0'+rng.Intn(10))) + string(rune('0'+rng.Intn(10))) + string(rune('0'+rng.Intn(10))))
		}

		s := MatchGrid(box.FromFlat(flat), winners)
		assert.LessOrEqual(t, s.UniqueCount, RawPermutations)
		assert.LessOrEqual(t, s.DedupCount, s.UniqueCount)
		assert.LessOrEqual(t, s.DirectHits, s.IbetHits)
		assert.LessOrEqual(t, s.IbetHits, len(winners))
	}
}

func TestMatchCandidates(t *testing.T) {
	winners := []draw.Winner{
		{Number: "1234", Tier: draw.TierFirst},
		{Number: "8765", Tier: draw.TierStarter},
		{Number: "2143", Tier: draw.TierSecond},
	}
	s := MatchCandidates([]string{"1234", "4321", "5678", "0000"}, winners)

	require.Len(t, s.Direct, 1)
	require.Len(t, s.Ibet, 2)
	assert.Equal(t, "1234", s.Ibet[0].Winner, "first winner in order wins the tie")
	assert.Equal(t,
		"▶ iBet: 2/4 (50.00%) - 4321 → 1234 (1st), 5678 → 8765 (Starter)\n"+
			"▶ Direct: 1/4 (25.00%) - 1234 (1st)\n"+
			"▶ Total Sets hit: 1",
		s.String())
}

func TestMatchCandidates_Empty(t *testing.T) {
	s := MatchCandidates(nil, []draw.Winner{{Number: "1234", Tier: draw.TierFirst}})
	assert.Equal(t, "▶ iBet: 0/0 (0.00%)\n▶ Direct: 0/0 (0.00%)\n▶ Total Sets hit: 0", s.String())
}

func TestMatchCandidates_PadsAndKeepsFirstTier(t *testing.T) {
	winners := []draw.Winner{
		{Number: "42", Tier: draw.TierStarter},
		{Number: "0042", Tier: draw.TierFirst},
	}
	s := MatchCandidates([]string{"42"}, winners)
	require.Len(t, s.Direct, 1)
	assert.Equal(t, Hit{Candidate: "0042", Winner: "0042", Tier: draw.TierStarter, Direct: true}, s.Direct[0])
	assert.Empty(t, s.Ibet)
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "0129", Canonical("9102"))
	assert.Equal(t, Canonical("4321"), Canonical("1234"))
}
