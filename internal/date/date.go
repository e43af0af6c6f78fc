// Package date provides a calendar Date that marshals as YYYY-MM-DD.
package date

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

const format = "2006-01-02"

// Date represents a calendar date without time or timezone.
type Date struct {
	time.Time
}

// New creates a Date from year, month, day.
func New(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns today's date.
func Today() Date {
	now := time.Now()
	return New(now.Year(), now.Month(), now.Day())
}

// Parse parses a YYYY-MM-DD string into a Date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(format, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{t}, nil
}

// ParseLoose accepts either YYYY-MM-DD or a full RFC 3339 timestamp, as the
// backend stores due dates as timestamps. The time part is dropped after
// converting to UTC.
func ParseLoose(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) == len(format) {
		return Parse(s)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	t = t.UTC()
	return New(t.Year(), t.Month(), t.Day()), nil
}

// ParseOptional parses s with ParseLoose, returning nil for an empty string.
func ParseOptional(s string) (*Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseLoose(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(format)
}

// OrEmpty returns the date as YYYY-MM-DD, or "" when d is nil.
func OrEmpty(d *Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// MarshalYAML implements yaml.Marshaler.
func (d Date) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements yaml.v3 Unmarshaler.
func (d *Date) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseLoose(value.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLoose(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Range is an inclusive, optionally open-ended date interval.
type Range struct {
	Start *Date
	End   *Date
}

// Contains reports whether d lies within the range. A nil d is outside
// any range that has at least one bound.
func (r Range) Contains(d *Date) bool {
	if r.Start == nil && r.End == nil {
		return true
	}
	if d == nil {
		return false
	}
	if r.Start != nil && d.Before(r.Start.Time) {
		return false
	}
	if r.End != nil && d.After(r.End.Time) {
		return false
	}
	return true
}

// Validate rejects a range whose start is after its end.
func (r Range) Validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(r.End.Time) {
		return fmt.Errorf("date range start %s is after end %s", r.Start, r.End)
	}
	return nil
}
