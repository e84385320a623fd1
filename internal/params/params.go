package params

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// SortOrder is the sort direction of a list view.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort fields per entity. Each list is closed: anything else is rejected.
var (
	FolderSortFields       = []string{"lastModified", "name", "folderSize", "validityPeriod", "validityDate"}
	FileSortFields         = []string{"name", "size", "createdAt", "fileType"}
	PlaylistSortFields     = []string{"name", "items", "lastModified", "duration"}
	PlaylistFileSortFields = []string{"name", "type", "lastModified", "size", "duration", "playOrder"}
	PlayerSortFields       = []string{"status", "lastActive", "duration", "name"}
)

// SizeBucket is a coarse size range in megabytes.
type SizeBucket string

const (
	Size0To10   SizeBucket = "0-10"
	Size10To100 SizeBucket = "10-100"
	Size100Plus SizeBucket = "100+"
)

// DurationBucket is a coarse duration range in minutes.
type DurationBucket string

const (
	Duration0To3   DurationBucket = "0-3"
	Duration5To10  DurationBucket = "5-10"
	Duration10Plus DurationBucket = "10+"
)

// FolderStatus filters folders by validity window.
type FolderStatus string

const (
	FolderRunning   FolderStatus = "running"
	FolderExpiring  FolderStatus = "expiring"
	FolderCompleted FolderStatus = "completed"
)

// MediaStatus filters files.
type MediaStatus string

const (
	MediaActive   MediaStatus = "active"
	MediaInactive MediaStatus = "inactive"
)

// PlayerStatus filters players.
type PlayerStatus string

const (
	PlayerOnline  PlayerStatus = "Online"
	PlayerOffline PlayerStatus = "Offline"
)

// ErrInvalidSort is returned for sort combos outside the entity enum.
var ErrInvalidSort = errors.New("invalid sort")

// Base carries the fields every list view shares.
type Base struct {
	SortBy    string
	SortOrder SortOrder
	Search    string
}

// SortCombo encodes the sort as "field:direction" for a sort selector.
func (b Base) SortCombo() string {
	return b.SortBy + ":" + string(b.SortOrder)
}

func (b *Base) setSort(combo string, allowed []string) error {
	field, dir, ok := strings.Cut(strings.TrimSpace(combo), ":")
	if !ok {
		return fmt.Errorf("%w %q: expected field:direction", ErrInvalidSort, combo)
	}
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%w field %q (allowed: %s)", ErrInvalidSort, field, strings.Join(allowed, ", "))
	}
	order := SortOrder(strings.ToLower(dir))
	if order != Asc && order != Desc {
		return fmt.Errorf("%w direction %q", ErrInvalidSort, dir)
	}
	b.SortBy = field
	b.SortOrder = order
	return nil
}

func (b Base) values() url.Values {
	v := url.Values{}
	v.Set("sortBy", b.SortBy)
	v.Set("sortOrder", string(b.SortOrder))
	v.Set("search", b.Search)
	return v
}

// ParseSizeBucket validates a size bucket flag value.
func ParseSizeBucket(s string) (*SizeBucket, error) {
	if s == "" {
		return nil, nil
	}
	b := SizeBucket(s)
	switch b {
	case Size0To10, Size10To100, Size100Plus:
		return &b, nil
	default:
		return nil, fmt.Errorf("size bucket must be 0-10|10-100|100+")
	}
}

// ParseDurationBucket validates a duration bucket flag value.
func ParseDurationBucket(s string) (*DurationBucket, error) {
	if s == "" {
		return nil, nil
	}
	b := DurationBucket(s)
	switch b {
	case Duration0To3, Duration5To10, Duration10Plus:
		return &b, nil
	default:
		return nil, fmt.Errorf("duration bucket must be 0-3|5-10|10+")
	}
}

// ParseFolderStatus validates a folder status flag value.
func ParseFolderStatus(s string) (*FolderStatus, error) {
	if s == "" {
		return nil, nil
	}
	st := FolderStatus(s)
	switch st {
	case FolderRunning, FolderExpiring, FolderCompleted:
		return &st, nil
	default:
		return nil, fmt.Errorf("status must be running|expiring|completed")
	}
}

// ParseMediaStatus validates a file status flag value.
func ParseMediaStatus(s string) (*MediaStatus, error) {
	if s == "" {
		return nil, nil
	}
	st := MediaStatus(s)
	switch st {
	case MediaActive, MediaInactive:
		return &st, nil
	default:
		return nil, fmt.Errorf("status must be active|inactive")
	}
}

// ParsePlayerStatus validates a player status flag value.
func ParsePlayerStatus(s string) (*PlayerStatus, error) {
	if s == "" {
		return nil, nil
	}
	switch strings.ToLower(s) {
	case "online":
		st := PlayerOnline
		return &st, nil
	case "offline":
		st := PlayerOffline
		return &st, nil
	default:
		return nil, fmt.Errorf("status must be Online|Offline")
	}
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func setString(v url.Values, key string, val *string) {
	if val != nil && *val != "" {
		v.Set(key, *val)
	}
}

func setTyped[T ~string](v url.Values, key string, val *T) {
	if val != nil && *val != "" {
		v.Set(key, string(*val))
	}
}
