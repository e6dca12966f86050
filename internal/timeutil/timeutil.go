package timeutil

import (
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// DateToTimestamp converts a date ("2006-01-02") or date-time
// ("2006-01-02 15:04:05") string into epoch seconds. A date without a time
// component means midnight. The wall-clock value is interpreted as UTC.
// Returns ok=false when the input matches neither layout; callers treat that
// as "bound not set" rather than an error.
func DateToTimestamp(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	layout := dateTimeLayout
	if len(s) == len(dateLayout) {
		layout = dateLayout
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return 0, false
	}
	return float64(t.Unix()), true
}

// TimestampToReadable renders an epoch timestamp (numeric string, with or
// without a fractional part) as "2006-01-02 15:04:05" in UTC. Input that does
// not parse as a number is returned unchanged.
func TimestampToReadable(ts string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
	if err != nil {
		return ts
	}
	return time.Unix(int64(f), 0).UTC().Format(dateTimeLayout)
}

// FormatSlackTimestamp renders epoch seconds in the fractional form the Slack
// history API accepts for its oldest/latest bounds.
func FormatSlackTimestamp(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 6, 64)
}
