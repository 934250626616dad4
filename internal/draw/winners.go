package draw

import (
	"fmt"
	"strings"
	"time"
)

// Winner is a winning number together with the tier it was drawn for.
type Winner struct {
	Number string `json:"number"`
	Tier   Tier   `json:"tier"`
}

// Feed layout of the 23-value results array.
const (
	feedTopPrizes   = 3
	feedStarterEnd  = 13
	feedConsolEnd   = 23
	minFeedEntries  = 3
	DrawNumberCount = feedConsolEnd
)

// WinnersFromFeed assigns tiers to a flat results array: 1st, 2nd, 3rd, then
// ten Starter and ten Consolation numbers. Values are zero-padded; invalid
// values are skipped.
func WinnersFromFeed(values []string) ([]Winner, error) {
	if len(values) < minFeedEntries {
		return nil, fmt.Errorf("incomplete results: got %d numbers, need at least %d", len(values), minFeedEntries)
	}

	winners := make([]Winner, 0, len(values))
	for i, v := range values {
		if i >= feedConsolEnd {
			break
		}
		n := PadNumber(v)
		if !IsNumber(n) {
			continue
		}
		winners = append(winners, Winner{Number: n, Tier: feedTier(i)})
	}
	return winners, nil
}

func feedTier(i int) Tier {
	switch {
	case i == 0:
		return TierFirst
	case i == 1:
		return TierSecond
	case i == 2:
		return TierThird
	case i < feedStarterEnd:
		return TierStarter
	default:
		return TierConsolation
	}
}

// Numbers returns the bare winning numbers in order.
func Numbers(winners []Winner) []string {
	out := make([]string, len(winners))
	for i, w := range winners {
		out[i] = w.Number
	}
	return out
}

// RowFromWinners builds the results-sheet row for a draw date.
func RowFromWinners(date time.Time, winners []Winner) RawRow {
	row := RawRow{DrawDate: FormatDrawDate(date)}
	var starter, consolation []string
	for _, w := range winners {
		switch w.Tier {
		case TierFirst:
			row.First = w.Number
		case TierSecond:
			row.Second = w.Number
		case TierThird:
			row.Third = w.Number
		case TierStarter:
			starter = append(starter, w.Number)
		case TierConsolation:
			consolation = append(consolation, w.Number)
		}
	}
	row.Starter = strings.Join(starter, " ")
	row.Consolation = strings.Join(consolation, " ")
	return row
}

// FormatDrawDate renders a date the way the results sheet keys its rows.
func FormatDrawDate(date time.Time) string {
	return date.Format("Mon (2006-01-02)")
}

// RowsFromRecords groups records into one results-sheet row per draw date,
// in the order the dates first appear.
func RowsFromRecords(records []Record) []RawRow {
	var (
		dates   []time.Time
		winners = make(map[time.Time][]Winner)
	)
	for _, r := range records {
		if _, ok := winners[r.date]; !ok {
			dates = append(dates, r.date)
		}
		winners[r.date] = append(winners[r.date], Winner{Number: r.number, Tier: r.tier})
	}

	rows := make([]RawRow, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, RowFromWinners(d, winners[d]))
	}
	return rows
}
