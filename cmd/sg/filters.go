package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikey-austin/signage/internal/core"
	"github.com/mikey-austin/signage/internal/params"
)

// listFlags are the flags shared by every list command. preset is the
// configured default range, seeded before the flags are applied.
type listFlags struct {
	sort   string
	search string
	from   string
	to     string
	within string
	reset  bool
	preset string
}

func (f *listFlags) register(cmd *cobra.Command, dates bool) {
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort as field:asc|desc")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "search term")
	if dates {
		cmd.Flags().StringVar(&f.from, "from", "", "modified from (YYYY-MM-DD)")
		cmd.Flags().StringVar(&f.to, "to", "", "modified to (YYYY-MM-DD)")
		cmd.Flags().StringVar(&f.within, "within", "", "quick range: 7d|30d|6m")
		cmd.Flags().BoolVar(&f.reset, "reset-filters", false, "drop the configured default range")
	}
}

func (f *listFlags) apply(base *params.Base, setSort func(string) error) error {
	base.Search = f.search
	if f.sort == "" {
		return nil
	}
	if err := setSort(f.sort); err != nil {
		return core.UsageError(err.Error())
	}
	return nil
}

// dates returns the from/to filter values. A quick range wins over explicit
// dates.
func (f *listFlags) dates(now time.Time) (*string, *string, error) {
	if f.within != "" {
		r, err := quickRange(f.within)
		if err != nil {
			return nil, nil, err
		}
		var from, to *string
		r.ApplyTo(now, &from, &to)
		return from, to, nil
	}
	from, err := ymd("from", f.from)
	if err != nil {
		return nil, nil, err
	}
	to, err := ymd("to", f.to)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// seed applies the configured default range to a fresh bag.
func (f *listFlags) seed(now time.Time, from, to **string) error {
	if f.preset == "" {
		return nil
	}
	r, err := quickRange(f.preset)
	if err != nil {
		return core.UsageError("defaults.range must be 7d|30d|6m")
	}
	r.ApplyTo(now, from, to)
	return nil
}

// overlay replaces the draft bounds when any date flag was given.
func (f *listFlags) overlay(now time.Time, from, to **string) error {
	fromVal, toVal, err := f.dates(now)
	if err != nil {
		return err
	}
	if fromVal != nil || toVal != nil {
		*from, *to = fromVal, toVal
	}
	return nil
}

func quickRange(s string) (params.QuickRange, error) {
	switch strings.ToLower(s) {
	case "7d":
		return params.Last7Days, nil
	case "30d":
		return params.Last30Days, nil
	case "6m":
		return params.Last6Months, nil
	default:
		return params.QuickRange{}, core.UsageError("range must be 7d|30d|6m")
	}
}

func ymd(name, value string) (*string, error) {
	if value == "" {
		return nil, nil
	}
	if _, err := params.ParseYMD(value); err != nil {
		return nil, core.UsageError(fmt.Sprintf("%s must be YYYY-MM-DD", name))
	}
	return &value, nil
}

func usage[T any](v T, err error) (T, error) {
	if err != nil {
		var zero T
		return zero, core.UsageError(err.Error())
	}
	return v, nil
}

func folderParams(f *listFlags, size, status string, now time.Time) (params.FolderParams, error) {
	p := params.DefaultFolderParams()
	if err := f.apply(&p.Base, p.SetSort); err != nil {
		return p, err
	}
	if err := f.seed(now, &p.LastModifiedFrom, &p.LastModifiedTo); err != nil {
		return p, err
	}
	if f.reset {
		p.ResetFilters()
	}
	draft := p.Filters()
	if err := f.overlay(now, &draft.LastModifiedFrom, &draft.LastModifiedTo); err != nil {
		return p, err
	}
	var err error
	if draft.SizeBucket, err = usage(params.ParseSizeBucket(size)); err != nil {
		return p, err
	}
	if draft.Status, err = usage(params.ParseFolderStatus(status)); err != nil {
		return p, err
	}
	p.ApplyFilters(draft)
	return p, nil
}

func fileParams(f *listFlags, size, status, fileType string, now time.Time) (params.FileParams, error) {
	p := params.DefaultFileParams()
	if err := f.apply(&p.Base, p.SetSort); err != nil {
		return p, err
	}
	if err := f.seed(now, &p.From, &p.To); err != nil {
		return p, err
	}
	if f.reset {
		p.ResetFilters()
	}
	draft := p.Filters()
	if err := f.overlay(now, &draft.From, &draft.To); err != nil {
		return p, err
	}
	var err error
	if draft.SizeBucket, err = usage(params.ParseSizeBucket(size)); err != nil {
		return p, err
	}
	if draft.Status, err = usage(params.ParseMediaStatus(status)); err != nil {
		return p, err
	}
	draft.FileType = params.StringPtr(fileType)
	p.ApplyFilters(draft)
	return p, nil
}

func playlistParams(f *listFlags, minSecs, maxSecs int, now time.Time) (params.PlaylistParams, error) {
	p := params.DefaultPlaylistParams()
	if err := f.apply(&p.Base, p.SetSort); err != nil {
		return p, err
	}
	if err := f.seed(now, &p.LastModifiedFrom, &p.LastModifiedTo); err != nil {
		return p, err
	}
	if f.reset {
		p.ResetFilters()
	}
	draft := p.Filters()
	if err := f.overlay(now, &draft.LastModifiedFrom, &draft.LastModifiedTo); err != nil {
		return p, err
	}
	if minSecs > 0 {
		draft.DurationFrom = &minSecs
	}
	if maxSecs > 0 {
		draft.DurationTo = &maxSecs
	}
	p.ApplyFilters(draft)
	return p, nil
}

func playlistFileParams(f *listFlags, size, itemType, duration string, now time.Time) (params.PlaylistFileParams, error) {
	p := params.DefaultPlaylistFileParams()
	if err := f.apply(&p.Base, p.SetSort); err != nil {
		return p, err
	}
	if err := f.seed(now, &p.LastModifiedFrom, &p.LastModifiedTo); err != nil {
		return p, err
	}
	if f.reset {
		p.ResetFilters()
	}
	draft := p.Filters()
	if err := f.overlay(now, &draft.LastModifiedFrom, &draft.LastModifiedTo); err != nil {
		return p, err
	}
	var err error
	if draft.SizeBucket, err = usage(params.ParseSizeBucket(size)); err != nil {
		return p, err
	}
	if draft.DurationBucket, err = usage(params.ParseDurationBucket(duration)); err != nil {
		return p, err
	}
	draft.Type = params.StringPtr(itemType)
	p.ApplyFilters(draft)
	return p, nil
}

func playerParams(f *listFlags, status string) (params.PlayerParams, error) {
	p := params.DefaultPlayerParams()
	if err := f.apply(&p.Base, p.SetSort); err != nil {
		return p, err
	}
	draft := p.Filters()
	var err error
	if draft.Status, err = usage(params.ParsePlayerStatus(status)); err != nil {
		return p, err
	}
	p.ApplyFilters(draft)
	return p, nil
}
