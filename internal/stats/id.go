package stats

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// ID identifies a chunk or a module inside one stats snapshot.
// Bundlers emit either numbers or strings; the original JSON kind is kept so
// ids round-trip unchanged into the hydration island.
type ID struct {
	value   string
	numeric bool
}

// NumericID returns an ID that marshals as a JSON number
func NumericID(n int) ID {
	return ID{value: strconv.Itoa(n), numeric: true}
}

// StringID returns an ID that marshals as a JSON string
func StringID(s string) ID {
	return ID{value: s}
}

func (id ID) String() string {
	return id.value
}

// IsNumeric reports whether the id was a JSON number
func (id ID) IsNumeric() bool {
	return id.numeric
}

// IsZero reports whether the id was never set (absent or null in JSON)
func (id ID) IsZero() bool {
	return id.value == "" && !id.numeric
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ID{}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("invalid string id: %w", err)
		}
		*id = StringID(s)
		return nil
	}

	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(b), err)
	}
	*id = ID{value: string(b), numeric: true}
	return nil
}
