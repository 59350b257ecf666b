package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// Date is a lenient calendar date as extracted from a CV. Extraction output is
// noisy, so decoding never fails: unparseable input produces a Date with
// Valid=false that still round-trips its raw string. Invalid dates contribute
// nothing to similarity scoring.
type Date struct {
	Raw   string
	Time  time.Time
	Valid bool
}

// ParseDate parses a date string at day, month, or year precision.
func ParseDate(raw string) Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Date{Raw: raw, Time: t, Valid: true}
		}
	}
	return Date{Raw: raw}
}

// NewDate builds a valid day-precision date. Used by tests and merge logic.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Raw: t.Format("2006-01-02"), Time: t, Valid: true}
}

// IsZero returns true when no value was supplied at all.
func (d Date) IsZero() bool {
	return d.Raw == ""
}

// Before compares two valid dates. Either side being invalid returns false.
func (d Date) Before(other Date) bool {
	return d.Valid && other.Valid && d.Time.Before(other.Time)
}

// Year returns the calendar year, or 0 for an invalid date.
func (d Date) Year() int {
	if !d.Valid {
		return 0
	}
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Raw
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(d.Raw)
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		// Tolerate non-string values rather than rejecting the whole batch.
		*d = Date{Raw: strings.Trim(string(data), `"`)}
		return nil
	}
	*d = ParseDate(raw)
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.Raw == "" {
		return nil, nil
	}
	return d.Raw, nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case string:
		*d = ParseDate(v)
	case []byte:
		*d = ParseDate(string(v))
	case time.Time:
		*d = Date{Raw: v.Format("2006-01-02"), Time: v, Valid: true}
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}
