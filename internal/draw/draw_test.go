package draw

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_Validation(t *testing.T) {
	day := time.Date(2025, 1, 4, 19, 30, 0, 0, time.Local)

	rec, err := NewRecord(day, TierFirst, "0123")
	require.NoError(t, err)
	assert.Equal(t, "0123", rec.Number())
	assert.Equal(t, TierFirst, rec.Tier())
	assert.Equal(t, time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC), rec.Date())

	for _, bad := range []string{"123", "12345", "12a4", "", " 123"} {
		_, err := NewRecord(day, TierFirst, bad)
		var malformed *MalformedInputError
		require.Error(t, err, bad)
		assert.True(t, errors.As(err, &malformed), bad)
		assert.Equal(t, "number", malformed.Field)
	}

	_, err = NewRecord(time.Time{}, TierFirst, "1234")
	assert.Error(t, err)
	_, err = NewRecord(day, "", "1234")
	assert.Error(t, err)
}

func TestTierWeights(t *testing.T) {
	tw := DefaultTierWeights()
	assert.Equal(t, 1.0, tw.Weight(TierFirst))
	assert.Equal(t, 0.3, tw.Weight(TierConsolation))
	assert.Equal(t, DefaultTierWeight, tw.Weight("Special"))
	assert.NoError(t, tw.Validate())

	tw[TierSecond] = 1.5
	assert.Error(t, tw.Validate())
}

func TestParseDrawDate(t *testing.T) {
	want := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"Sun (2025-03-09)", "2025-03-09", "3/9/2025", "2025/03/09", " Sun (2025-03-09) "} {
		got, err := ParseDrawDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := ParseDrawDate("not a date")
	assert.Error(t, err)
	_, err = ParseDrawDate("Sun (garbage)")
	assert.Error(t, err)
}

func TestNormalize_FlattensAndSorts(t *testing.T) {
	rows := []RawRow{
		{DrawDate: "Sun (2025-03-09)", First: "1234", Second: "99", Third: "5678", Starter: "1111 2222 abcd", Consolation: "3333"},
		{DrawDate: "Wed (2025-03-05)", First: "4321"},
		{DrawDate: "garbage", First: "0000"},
	}

	records, report := Normalize(rows)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.DroppedRows)
	assert.Equal(t, 1, report.DroppedNumbers)
	assert.Equal(t, 7, report.Records)
	require.Len(t, records, 7)

	assert.Equal(t, "4321", records[0].Number())
	assert.Equal(t, "1234", records[1].Number())
	assert.Equal(t, "0099", records[2].Number())
	assert.Equal(t, TierSecond, records[2].Tier())
	assert.Equal(t, TierStarter, records[4].Tier())
	assert.Equal(t, TierConsolation, records[6].Tier())
}

func TestNormalize_Empty(t *testing.T) {
	records, report := Normalize(nil)
	assert.Empty(t, records)
	assert.Zero(t, report.Records)
}

func TestWinnersFromFeed(t *testing.T) {
	values := []string{"1234", "5678", "12"}
	for i := 0; i < 20; i++ {
		values = append(values, "9999")
	}
	winners, err := WinnersFromFeed(values)
	require.NoError(t, err)
	require.Len(t, winners, 23)
	assert.Equal(t, Winner{Number: "0012", Tier: TierThird}, winners[2])
	assert.Equal(t, TierStarter, winners[3].Tier)
	assert.Equal(t, TierStarter, winners[12].Tier)
	assert.Equal(t, TierConsolation, winners[13].Tier)
	assert.Equal(t, TierConsolation, winners[22].Tier)

	_, err = WinnersFromFeed([]string{"1234"})
	assert.Error(t, err)
}

func TestRowFromWinners_RoundTrip(t *testing.T) {
	day := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	winners := []Winner{
		{Number: "1234", Tier: TierFirst},
		{Number: "2345", Tier: TierSecond},
		{Number: "3456", Tier: TierThird},
		{Number: "0001", Tier: TierStarter},
		{Number: "0002", Tier: TierStarter},
		{Number: "0003", Tier: TierConsolation},
	}
	row := RowFromWinners(day, winners)
	assert.Equal(t, "Sun (2025-03-09)", row.DrawDate)
	assert.Equal(t, "0001 0002", row.Starter)

	records, _, err := ParseRow(row)
	require.NoError(t, err)
	assert.Len(t, records, len(winners))
}

func TestCSV_ReadWrite(t *testing.T) {
	in := "DrawDate,1st,2nd,3rd,Starter,Consolation\n" +
		"Sun (2025-03-09),1234,2345,3456,0001 0002,0003\n" +
		"Wed (2025-03-05),4321,,,,\n"

	rows, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "0001 0002", rows[0].Starter)
	assert.Equal(t, "", rows[1].Second)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	assert.Equal(t, in, buf.String())

	_, err = ReadCSV(strings.NewReader("Date,1st\nx,1\n"))
	assert.Error(t, err)
}

func TestRowsFromRecords_RoundTripsThroughNormalize(t *testing.T) {
	rows := []RawRow{
		{DrawDate: "2025-03-01", First: "1111", Second: "2222", Third: "3333", Starter: "4444 5555", Consolation: "6666"},
		{DrawDate: "2025-03-02", First: "7777", Starter: "8888"},
	}
	records, _ := Normalize(rows)
	require.Len(t, records, 8)

	out := RowsFromRecords(records)
	require.Len(t, out, 2)
	assert.Equal(t, "Sat (2025-03-01)", out[0].DrawDate)
	assert.Equal(t, "4444 5555", out[0].Starter)
	assert.Equal(t, "", out[1].Second)

	again, report := Normalize(out)
	assert.Zero(t, report.DroppedRows)
	require.Len(t, again, len(records))
	for i := range records {
		assert.Equal(t, records[i].String(), again[i].String())
	}

	assert.Empty(t, RowsFromRecords(nil))
}

func TestReadCSV_StripsByteOrderMark(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("\ufeffDrawDate,1st,2nd,3rd,Starter,Consolation\nSun (2025-01-05),1234,5678,9012,1111,2222\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sun (2025-01-05)", rows[0].DrawDate)
	assert.Equal(t, "1234", rows[0].First)

	records, report := Normalize(rows)
	assert.Len(t, records, 5)
	assert.Zero(t, report.DroppedRows)
}
