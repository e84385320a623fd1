package core

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count the way list tables show sizes.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// FormatSeconds renders seconds as HH:MM:SS. Hours are not capped.
func FormatSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// FormatDate renders an ISO timestamp as "Jan 2, 2006" in local time.
// Unparseable input is returned unchanged.
func FormatDate(value string) string {
	t, ok := parseTimestamp(value)
	if !ok {
		return value
	}
	return t.Local().Format("Jan 2, 2006")
}

// FormatTime renders an ISO timestamp as "3:04:05 PM" in local time.
func FormatTime(value string) string {
	t, ok := parseTimestamp(value)
	if !ok {
		return value
	}
	return t.Local().Format("3:04:05 PM")
}

// Ago renders a timestamp relative to now, e.g. "3 hours ago".
func Ago(value string, now time.Time) string {
	t, ok := parseTimestamp(value)
	if !ok {
		return value
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func parseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
