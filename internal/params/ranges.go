package params

import (
	"strings"
	"time"
)

// QuickRange is a preset date range ending now.
type QuickRange struct {
	Label  string
	Days   int
	Months int
}

var (
	Last7Days   = QuickRange{Label: "Last 7 days", Days: 7}
	Last30Days  = QuickRange{Label: "Last 30 days", Days: 30}
	Last6Months = QuickRange{Label: "Last 6 months", Months: 6}
)

// QuickRanges lists the presets in display order.
var QuickRanges = []QuickRange{Last7Days, Last30Days, Last6Months}

const (
	isoLayout = "2006-01-02T15:04:05.000Z07:00"
	ymdLayout = "2006-01-02"
	tolerance = 24 * time.Hour
)

// Start returns the calendar start of the range relative to now.
func (r QuickRange) Start(now time.Time) time.Time {
	return now.AddDate(0, -r.Months, -r.Days)
}

// Apply returns the range bounds as UTC timestamps.
func (r QuickRange) Apply(now time.Time) (from, to string) {
	return FormatISO(r.Start(now)), FormatISO(now)
}

// ApplyTo sets the bounds on a pair of filter fields.
func (r QuickRange) ApplyTo(now time.Time, from, to **string) {
	f, t := r.Apply(now)
	*from = &f
	*to = &t
}

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// IsRangeSelected reports whether from/to were produced by r, within a day.
// Either bound may be a bare date or a full timestamp.
func IsRangeSelected(r QuickRange, from, to *string, now time.Time) bool {
	if from == nil || to == nil {
		return false
	}
	fromTime, ok := parseMaybeDate(*from)
	if !ok {
		return false
	}
	toTime, ok := parseMaybeDate(*to)
	if !ok {
		return false
	}
	if absDuration(toTime.Sub(now)) > tolerance {
		return false
	}
	return absDuration(fromTime.Sub(r.Start(now))) <= tolerance
}

// SelectedRange returns the preset matching from/to, if any.
func SelectedRange(from, to *string, now time.Time) (QuickRange, bool) {
	for _, r := range QuickRanges {
		if IsRangeSelected(r, from, to, now) {
			return r, true
		}
	}
	return QuickRange{}, false
}

// ToYMD trims a bound to its date part. Values without a time part are
// returned as given.
func ToYMD(value *string) string {
	if value == nil || *value == "" {
		return ""
	}
	date, _, _ := strings.Cut(*value, "T")
	return date
}

// DescribeRange names the active date filter: the preset it matches, or its
// bounds as dates. It is "" when neither bound is set.
func DescribeRange(from, to *string, now time.Time) string {
	if r, ok := SelectedRange(from, to, now); ok {
		return r.Label
	}
	f, t := ToYMD(from), ToYMD(to)
	if f == "" && t == "" {
		return ""
	}
	if f == "" {
		f = "…"
	}
	if t == "" {
		t = "…"
	}
	return f + " → " + t
}

// ParseYMD validates a YYYY-MM-DD date flag.
func ParseYMD(value string) (time.Time, error) {
	return time.Parse(ymdLayout, value)
}

func parseMaybeDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if len(value) == len(ymdLayout) && !strings.Contains(value, "T") {
		t, err := time.Parse(ymdLayout, value)
		return t, err == nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	return t, err == nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
