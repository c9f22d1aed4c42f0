package util

import (
	"strconv"
	"time"
)

const dayLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD, RFC3339 and unix seconds. The result is truncated to a UTC day.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return Day(time.Unix(ts, 0)), true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// FormatDate renders a day as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(dayLayout) }

// Day drops the clock part and pins the value to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether t falls on Monday..Friday. Exchange holidays are not modelled.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextBusinessDay returns the first business day strictly after t.
func NextBusinessDay(t time.Time) time.Time {
	next := Day(t).AddDate(0, 0, 1)
	for !IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// BusinessDaysAfter returns n contiguous business days following last.
func BusinessDaysAfter(last time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	cur := last
	for len(out) < n {
		cur = NextBusinessDay(cur)
		out = append(out, cur)
	}
	return out
}

// BusinessDaysBetween counts business days in (from, to].
func BusinessDaysBetween(from, to time.Time) int {
	n := 0
	for cur := Day(from); cur.Before(Day(to)); {
		cur = NextBusinessDay(cur)
		if !cur.After(Day(to)) {
			n++
		}
	}
	return n
}
