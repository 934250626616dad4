package draw

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var csvColumns = []string{"DrawDate", "1st", "2nd", "3rd", "Starter", "Consolation"}

// ReadCSV reads rows in the results-sheet layout. The header row is required;
// column order is free and missing prize columns read as empty.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	// spreadsheet exports often start with a UTF-8 byte order mark
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	if _, ok := index[csvColumns[0]]; !ok {
		return nil, fmt.Errorf("csv header missing %s column", csvColumns[0])
	}

	field := func(rec []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []RawRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, RawRow{
			DrawDate:    field(rec, "DrawDate"),
			First:       field(rec, "1st"),
			Second:      field(rec, "2nd"),
			Third:       field(rec, "3rd"),
			Starter:     field(rec, "Starter"),
			Consolation: field(rec, "Consolation"),
		})
	}
	return rows, nil
}

// WriteCSV writes rows with the results-sheet header.
func WriteCSV(w io.Writer, rows []RawRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.DrawDate, row.First, row.Second, row.Third, row.Starter, row.Consolation}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
