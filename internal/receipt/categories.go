package receipt

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CategorySummary aggregates the items sharing one category label
type CategorySummary struct {
	Key   string          `json:"-"`
	Count int             `json:"count" validate:"gte=0"`
	Total decimal.Decimal `json:"total" validate:"gte=0"`
}

// Categories is the categories_summary object of a receipt.
// It keeps the keys in the order the server sent them.
type Categories []CategorySummary

// Get returns the summary for key
func (c Categories) Get(key string) (CategorySummary, bool) {
	for _, s := range c {
		if s.Key == key {
			return s, true
		}
	}
	return CategorySummary{}, false
}

// UnmarshalJSON decodes a JSON object while preserving key order
func (c *Categories) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading categories_summary: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("categories_summary must be an object")
	}

	out := make(Categories, 0)
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading category key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("category key must be a string")
		}

		var entry struct {
			Count *int             `json:"count"`
			Total *decimal.Decimal `json:"total"`
		}
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("decoding category %q: %w", key, err)
		}
		if entry.Count == nil || entry.Total == nil {
			return fmt.Errorf("category %q must have count and total", key)
		}

		summary := CategorySummary{Key: key, Count: *entry.Count, Total: *entry.Total}
		// Duplicate keys: last value wins, first position is kept
		if idx, dup := seen[key]; dup {
			out[idx] = summary
			continue
		}
		seen[key] = len(out)
		out = append(out, summary)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading categories_summary: %w", err)
	}

	*c = out
	return nil
}

// MarshalJSON encodes the summaries as a JSON object in order
func (c Categories) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Key)
		if err != nil {
			return nil, fmt.Errorf("marshaling category key: %w", err)
		}
		value, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("marshaling category %q: %w", s.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
