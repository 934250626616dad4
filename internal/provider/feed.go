package provider

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sawpanic/fourdrun/internal/draw"
)

// ParseFeed decodes the flat results array. Entries may be JSON strings or
// numbers; numbers are kept in their literal form so padding can restore
// leading zeros.
func ParseFeed(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}

	out := make([]string, 0, len(raw))
	for i, v := range raw {
		switch val := v.(type) {
		case string:
			out = append(out, val)
		case json.Number:
			out = append(out, val.String())
		default:
			return nil, fmt.Errorf("feed entry %d has unexpected type %T", i, v)
		}
	}
	return out, nil
}

// WinnersFromPayload parses a feed payload and assigns prize tiers.
func WinnersFromPayload(data []byte) ([]string, []draw.Winner, error) {
	values, err := ParseFeed(data)
	if err != nil {
		return nil, nil, err
	}
	winners, err := draw.WinnersFromFeed(values)
	if err != nil {
		return nil, nil, err
	}
	return values, winners, nil
}
