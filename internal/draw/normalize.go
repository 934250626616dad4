package draw

import (
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RawRow is one results-sheet row as delivered by a history source.
// Starter and Consolation hold whitespace separated numbers.
type RawRow struct {
	DrawDate    string `json:"draw_date" yaml:"draw_date"`
	First       string `json:"first" yaml:"first"`
	Second      string `json:"second" yaml:"second"`
	Third       string `json:"third" yaml:"third"`
	Starter     string `json:"starter" yaml:"starter"`
	Consolation string `json:"consolation" yaml:"consolation"`
}

// NormalizeReport counts what Normalize kept and discarded.
type NormalizeReport struct {
	Rows           int `json:"rows"`
	Records        int `json:"records"`
	DroppedRows    int `json:"dropped_rows"`
	DroppedNumbers int `json:"dropped_numbers"`
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDrawDate accepts "Mon (2006-01-02)" as written by the results feed, or a
// bare date in one of the supported layouts. Slash dates are month first.
func ParseDrawDate(s string) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if open := strings.Index(raw, "("); open >= 0 {
		if end := strings.Index(raw[open:], ")"); end > 0 {
			inner := strings.TrimSpace(raw[open+1 : open+end])
			if t, err := parseLayouts(inner); err == nil {
				return t, nil
			}
		}
	}
	if t, err := parseLayouts(raw); err == nil {
		return t, nil
	}
	return time.Time{}, &MalformedInputError{Field: "date", Value: s, Reason: "unrecognized layout"}
}

func parseLayouts(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// PadNumber trims s and left-pads it with zeros to four characters.
func PadNumber(s string) string {
	s = strings.TrimSpace(s)
	if n := len(s); n < 4 {
		s = strings.Repeat("0", 4-n) + s
	}
	return s
}

// ParseRow converts one raw row into records. A bad date rejects the whole
// row; individual bad numbers are skipped and counted.
func ParseRow(row RawRow) ([]Record, int, error) {
	date, err := ParseDrawDate(row.DrawDate)
	if err != nil {
		return nil, 0, err
	}

	var (
		out     []Record
		dropped int
	)
	add := func(tier Tier, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		rec, err := NewRecord(date, tier, PadNumber(value))
		if err != nil {
			dropped++
			return
		}
		out = append(out, rec)
	}

	add(TierFirst, row.First)
	add(TierSecond, row.Second)
	add(TierThird, row.Third)
	for _, n := range strings.Fields(row.Starter) {
		add(TierStarter, n)
	}
	for _, n := range strings.Fields(row.Consolation) {
		add(TierConsolation, n)
	}
	return out, dropped, nil
}

// Normalize flattens rows into records sorted ascending by date. Rows and
// numbers that fail validation are dropped, never returned as errors.
func Normalize(rows []RawRow) ([]Record, NormalizeReport) {
	report := NormalizeReport{Rows: len(rows)}
	var records []Record

	for _, row := range rows {
		recs, dropped, err := ParseRow(row)
		if err != nil {
			report.DroppedRows++
			log.Debug().Err(err).Str("draw_date", row.DrawDate).Msg("Dropping malformed row")
			continue
		}
		report.DroppedNumbers += dropped
		records = append(records, recs...)
	}

	SortByDate(records)
	report.Records = len(records)
	return records, report
}

// SortByDate orders records ascending by date, keeping input order within a date.
func SortByDate(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].date.Before(records[j].date)
	})
}
