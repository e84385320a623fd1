package params

import (
	"errors"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	if got := DefaultFolderParams().SortCombo(); got != "lastModified:desc" {
		t.Fatalf("unexpected folder default %s", got)
	}
	if got := DefaultFileParams().SortCombo(); got != "createdAt:desc" {
		t.Fatalf("unexpected file default %s", got)
	}
	if got := DefaultPlaylistParams().SortCombo(); got != "lastModified:desc" {
		t.Fatalf("unexpected playlist default %s", got)
	}
	if got := DefaultPlaylistFileParams().SortCombo(); got != "playOrder:asc" {
		t.Fatalf("unexpected playlist item default %s", got)
	}
	if got := DefaultPlayerParams().SortCombo(); got != "lastActive:desc" {
		t.Fatalf("unexpected player default %s", got)
	}
}

func TestSetSortRejectsForeignField(t *testing.T) {
	p := DefaultFolderParams()
	err := p.SetSort("playOrder:asc")
	if !errors.Is(err, ErrInvalidSort) {
		t.Fatalf("expected invalid sort, got %v", err)
	}
	if p.SortCombo() != "lastModified:desc" {
		t.Fatalf("sort changed on error")
	}
	if err := p.SetSort("name"); err == nil {
		t.Fatalf("expected missing direction error")
	}
	if err := p.SetSort("name:sideways"); err == nil {
		t.Fatalf("expected direction error")
	}
	if err := p.SetSort("name:ASC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SortBy != "name" || p.SortOrder != Asc {
		t.Fatalf("unexpected sort %s", p.SortCombo())
	}
}

func TestValuesAlwaysCarrySearch(t *testing.T) {
	v := DefaultFileParams().Values()
	if _, ok := v["search"]; !ok {
		t.Fatalf("expected search key")
	}
	if v.Get("sortBy") != "createdAt" || v.Get("sortOrder") != "desc" {
		t.Fatalf("unexpected sort values %v", v)
	}
	if _, ok := v["sizeBucket"]; ok {
		t.Fatalf("unset filter should be omitted")
	}
}

func TestPlayerValuesOmitBlankSearch(t *testing.T) {
	p := DefaultPlayerParams()
	p.Search = "   "
	if _, ok := p.Values()["search"]; ok {
		t.Fatalf("expected blank search omitted")
	}
	p.Search = " lobby "
	if p.Values().Get("search") != "lobby" {
		t.Fatalf("expected trimmed search")
	}
}

func TestApplyFiltersKeepsSortAndSearch(t *testing.T) {
	p := DefaultFolderParams()
	p.Search = "promo"
	_ = p.SetSort("name:asc")
	draft := p.Filters()
	bucket := Size10To100
	draft.SizeBucket = &bucket
	p.ApplyFilters(draft)
	if p.Search != "promo" || p.SortCombo() != "name:asc" {
		t.Fatalf("apply touched non-filter keys")
	}
	if p.Values().Get("sizeBucket") != "10-100" {
		t.Fatalf("expected size bucket applied")
	}
	p.ResetFilters()
	if p.SizeBucket != nil {
		t.Fatalf("expected filters cleared")
	}
	if p.Search != "promo" || p.SortCombo() != "name:asc" {
		t.Fatalf("reset touched non-filter keys")
	}
}

func TestDraftIsIsolated(t *testing.T) {
	p := DefaultPlaylistFileParams()
	draft := p.Filters()
	kind := "video"
	draft.Type = &kind
	if p.Type != nil {
		t.Fatalf("editing draft mutated params")
	}
}

func TestKeyStable(t *testing.T) {
	a := DefaultPlaylistParams()
	b := DefaultPlaylistParams()
	d := 5
	a.DurationFrom = &d
	b.DurationFrom = &d
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys")
	}
	b.Search = "x"
	if a.Key() == b.Key() {
		t.Fatalf("expected different keys")
	}
}

func TestPlaylistFileOrdered(t *testing.T) {
	p := DefaultPlaylistFileParams()
	if !p.Ordered() {
		t.Fatalf("expected default ordered")
	}
	_ = p.SetSort("name:asc")
	if p.Ordered() {
		t.Fatalf("expected not ordered")
	}
}

func TestParseBuckets(t *testing.T) {
	if b, err := ParseSizeBucket(""); err != nil || b != nil {
		t.Fatalf("expected nil bucket")
	}
	if _, err := ParseSizeBucket("5-6"); err == nil {
		t.Fatalf("expected error")
	}
	if b, err := ParseDurationBucket("10+"); err != nil || *b != Duration10Plus {
		t.Fatalf("unexpected duration bucket")
	}
	if s, err := ParsePlayerStatus("online"); err != nil || *s != PlayerOnline {
		t.Fatalf("unexpected player status")
	}
	if _, err := ParseFolderStatus("paused"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestQuickRangeChipIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	for _, r := range QuickRanges {
		p := DefaultFolderParams()
		r.ApplyTo(now, &p.LastModifiedFrom, &p.LastModifiedTo)
		if !IsRangeSelected(r, p.LastModifiedFrom, p.LastModifiedTo, now) {
			t.Fatalf("%s not selected after apply", r.Label)
		}
		first := p.Key()
		r.ApplyTo(now, &p.LastModifiedFrom, &p.LastModifiedTo)
		if p.Key() != first {
			t.Fatalf("%s second click changed params", r.Label)
		}
		if !IsRangeSelected(r, p.LastModifiedFrom, p.LastModifiedTo, now) {
			t.Fatalf("%s not selected after second apply", r.Label)
		}
	}
}

func TestIsRangeSelectedDistinguishesPresets(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	from, to := Last7Days.Apply(now)
	if IsRangeSelected(Last30Days, &from, &to, now) {
		t.Fatalf("7 days should not match 30 days")
	}
	got, ok := SelectedRange(&from, &to, now)
	if !ok || got.Label != Last7Days.Label {
		t.Fatalf("expected last 7 days, got %v", got)
	}
}

func TestIsRangeSelectedAcceptsDates(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	from := "2026-03-08"
	to := "2026-03-15"
	if !IsRangeSelected(Last7Days, &from, &to, now) {
		t.Fatalf("expected bare dates to match within a day")
	}
	stale := "2026-03-10"
	if IsRangeSelected(Last7Days, &from, &stale, now) {
		t.Fatalf("expected stale upper bound to fail")
	}
	if IsRangeSelected(Last7Days, nil, &to, now) {
		t.Fatalf("nil bound is never selected")
	}
	bad := "yesterday"
	if IsRangeSelected(Last7Days, &bad, &to, now) {
		t.Fatalf("unparseable bound is never selected")
	}
}

func TestSixMonthsUsesCalendarMonths(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	start := Last6Months.Start(now)
	if start.Month() != time.March || start.Day() != 3 {
		t.Fatalf("unexpected start %s", start)
	}
}

func TestToYMD(t *testing.T) {
	if ToYMD(nil) != "" {
		t.Fatalf("expected empty")
	}
	cases := map[string]string{
		"":                          "",
		"2026-01-02":                "2026-01-02",
		"2026-01-02T23:30:00.000Z":  "2026-01-02",
		"2026-01-02T01:00:00+10:00": "2026-01-02",
		"nope":                      "nope",
		"T12:00":                    "",
	}
	for in, want := range cases {
		v := in
		if got := ToYMD(&v); got != want {
			t.Fatalf("ToYMD(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDescribeRange(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	if got := DescribeRange(nil, nil, now); got != "" {
		t.Fatalf("expected no range, got %q", got)
	}
	from, to := Last30Days.Apply(now)
	if got := DescribeRange(&from, &to, now); got != Last30Days.Label {
		t.Fatalf("expected preset label, got %q", got)
	}
	custom := "2026-01-01"
	end := "2026-02-01T10:00:00.000Z"
	if got := DescribeRange(&custom, &end, now); got != "2026-01-01 → 2026-02-01" {
		t.Fatalf("unexpected custom range %q", got)
	}
	if got := DescribeRange(&custom, nil, now); got != "2026-01-01 → …" {
		t.Fatalf("unexpected open range %q", got)
	}
}
