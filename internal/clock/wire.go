package clock

import (
	"fmt"
	"strings"
	"time"
)

// Time is the wire form of a timestamp. It marshals as RFC 3339 with the
// UTC+8 offset and accepts either offset-carrying RFC 3339 input or a bare
// timestamp, which is interpreted as UTC+8.
type Time struct {
	time.Time
}

// bare layouts accepted on input, interpreted as UTC+8.
var bareLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// At wraps t for wire use, converting it to UTC+8.
func At(t time.Time) Time {
	return Time{t.In(Zone)}
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.In(Zone).Format(time.RFC3339) + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Parse parses a wire timestamp. Offset-carrying values are converted to
// UTC+8; bare values are taken to already be UTC+8 wall time.
func Parse(s string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		return parsed.In(Zone), nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return parsed.In(Zone), nil
	}
	for _, layout := range bareLayouts {
		if parsed, err := time.ParseInLocation(layout, s, Zone); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
