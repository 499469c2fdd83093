package util

import (
	"strconv"
	"time"
)

// ParseDate accepts YYYY-MM-DD, RFC3339 and unix seconds or milliseconds.
// The result is truncated to the UTC calendar day.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return DayFromUnix(ts), true
	}
	return time.Time{}, false
}

// DayFromUnix converts seconds or milliseconds since epoch to a UTC day.
func DayFromUnix(ts int64) time.Time {
	if ts > 1e11 { // ms
		ts /= 1000
	}
	return Day(time.Unix(ts, 0))
}

// Day truncates t to midnight UTC of its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TradingDaysBetween counts weekdays in (from, to].
func TradingDaysBetween(from, to time.Time) int {
	from, to = Day(from), Day(to)
	n := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}
