package repository

import (
	"encoding/json"
	"time"
)

// encodeList serialises a string list for a *_json text column.
func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeList is the inverse of encodeList.  Empty or NULL columns decode to
// an empty list.
func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// dbTime normalises timestamps to UTC with the microsecond precision of
// DATETIME(6) columns.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// dateOnly drops the clock part of t, keeping the calendar date in t's
// location, and returns UTC midnight of that date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
