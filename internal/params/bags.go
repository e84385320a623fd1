package params

import (
	"net/url"
	"strconv"
	"strings"
)

// FolderFilters is the filter-only draft of FolderParams.
type FolderFilters struct {
	LastModifiedFrom *string
	LastModifiedTo   *string
	SizeBucket       *SizeBucket
	Status           *FolderStatus
}

// FolderParams is the parameter bag of the folder list.
type FolderParams struct {
	Base
	FolderFilters
}

// DefaultFolderParams sorts by most recently modified.
func DefaultFolderParams() FolderParams {
	return FolderParams{Base: Base{SortBy: "lastModified", SortOrder: Desc}}
}

func (p *FolderParams) SetSort(combo string) error { return p.setSort(combo, FolderSortFields) }

func (p FolderParams) Filters() FolderFilters { return p.FolderFilters }

func (p *FolderParams) ApplyFilters(draft FolderFilters) { p.FolderFilters = draft }

func (p *FolderParams) ResetFilters() { p.FolderFilters = FolderFilters{} }

func (p FolderParams) Values() url.Values {
	v := p.values()
	setString(v, "lastModifiedFrom", p.LastModifiedFrom)
	setString(v, "lastModifiedTo", p.LastModifiedTo)
	setTyped(v, "sizeBucket", p.SizeBucket)
	setTyped(v, "status", p.Status)
	return v
}

func (p FolderParams) Key() string { return p.Values().Encode() }

// FileFilters is the filter-only draft of FileParams.
type FileFilters struct {
	From       *string
	To         *string
	SizeBucket *SizeBucket
	Status     *MediaStatus
	FileType   *string
}

// FileParams is the parameter bag of the files in one folder.
type FileParams struct {
	Base
	FileFilters
}

// DefaultFileParams sorts by newest upload.
func DefaultFileParams() FileParams {
	return FileParams{Base: Base{SortBy: "createdAt", SortOrder: Desc}}
}

func (p *FileParams) SetSort(combo string) error { return p.setSort(combo, FileSortFields) }

func (p FileParams) Filters() FileFilters { return p.FileFilters }

func (p *FileParams) ApplyFilters(draft FileFilters) { p.FileFilters = draft }

func (p *FileParams) ResetFilters() { p.FileFilters = FileFilters{} }

func (p FileParams) Values() url.Values {
	v := p.values()
	setString(v, "from", p.From)
	setString(v, "to", p.To)
	setTyped(v, "sizeBucket", p.SizeBucket)
	setTyped(v, "status", p.Status)
	setString(v, "fileType", p.FileType)
	return v
}

func (p FileParams) Key() string { return p.Values().Encode() }

// PlaylistFilters is the filter-only draft of PlaylistParams.
type PlaylistFilters struct {
	LastModifiedFrom *string
	LastModifiedTo   *string
	DurationFrom     *int
	DurationTo       *int
}

// PlaylistParams is the parameter bag of the playlist list.
type PlaylistParams struct {
	Base
	PlaylistFilters
}

// DefaultPlaylistParams sorts by most recently modified.
func DefaultPlaylistParams() PlaylistParams {
	return PlaylistParams{Base: Base{SortBy: "lastModified", SortOrder: Desc}}
}

func (p *PlaylistParams) SetSort(combo string) error { return p.setSort(combo, PlaylistSortFields) }

func (p PlaylistParams) Filters() PlaylistFilters { return p.PlaylistFilters }

func (p *PlaylistParams) ApplyFilters(draft PlaylistFilters) { p.PlaylistFilters = draft }

func (p *PlaylistParams) ResetFilters() { p.PlaylistFilters = PlaylistFilters{} }

func (p PlaylistParams) Values() url.Values {
	v := p.values()
	setString(v, "lastModifiedFrom", p.LastModifiedFrom)
	setString(v, "lastModifiedTo", p.LastModifiedTo)
	if p.DurationFrom != nil {
		v.Set("durationFrom", strconv.Itoa(*p.DurationFrom))
	}
	if p.DurationTo != nil {
		v.Set("durationTo", strconv.Itoa(*p.DurationTo))
	}
	return v
}

func (p PlaylistParams) Key() string { return p.Values().Encode() }

// PlaylistFileFilters is the filter-only draft of PlaylistFileParams.
type PlaylistFileFilters struct {
	SizeBucket       *SizeBucket
	Type             *string
	LastModifiedFrom *string
	LastModifiedTo   *string
	DurationBucket   *DurationBucket
}

// PlaylistFileParams is the parameter bag of the items of one playlist.
type PlaylistFileParams struct {
	Base
	PlaylistFileFilters
}

// DefaultPlaylistFileParams sorts by play order.
func DefaultPlaylistFileParams() PlaylistFileParams {
	return PlaylistFileParams{Base: Base{SortBy: "playOrder", SortOrder: Asc}}
}

func (p *PlaylistFileParams) SetSort(combo string) error {
	return p.setSort(combo, PlaylistFileSortFields)
}

func (p PlaylistFileParams) Filters() PlaylistFileFilters { return p.PlaylistFileFilters }

func (p *PlaylistFileParams) ApplyFilters(draft PlaylistFileFilters) {
	p.PlaylistFileFilters = draft
}

func (p *PlaylistFileParams) ResetFilters() { p.PlaylistFileFilters = PlaylistFileFilters{} }

// Ordered reports whether the view shows items in play order, which is the
// only order in which drag reordering makes sense.
func (p PlaylistFileParams) Ordered() bool {
	return p.SortBy == "playOrder" && p.SortOrder == Asc
}

func (p PlaylistFileParams) Values() url.Values {
	v := p.values()
	setTyped(v, "sizeBucket", p.SizeBucket)
	setString(v, "type", p.Type)
	setString(v, "lastModifiedFrom", p.LastModifiedFrom)
	setString(v, "lastModifiedTo", p.LastModifiedTo)
	setTyped(v, "durationBucket", p.DurationBucket)
	return v
}

func (p PlaylistFileParams) Key() string { return p.Values().Encode() }

// PlayerFilters is the filter-only draft of PlayerParams.
type PlayerFilters struct {
	Status *PlayerStatus
}

// PlayerParams is the parameter bag of the player list.
type PlayerParams struct {
	Base
	PlayerFilters
}

// DefaultPlayerParams sorts by most recently active.
func DefaultPlayerParams() PlayerParams {
	return PlayerParams{Base: Base{SortBy: "lastActive", SortOrder: Desc}}
}

func (p *PlayerParams) SetSort(combo string) error { return p.setSort(combo, PlayerSortFields) }

func (p PlayerParams) Filters() PlayerFilters { return p.PlayerFilters }

func (p *PlayerParams) ApplyFilters(draft PlayerFilters) { p.PlayerFilters = draft }

func (p *PlayerParams) ResetFilters() { p.PlayerFilters = PlayerFilters{} }

// Values trims the search term and omits it when blank.
func (p PlayerParams) Values() url.Values {
	v := p.values()
	if search := strings.TrimSpace(p.Search); search != "" {
		v.Set("search", search)
	} else {
		v.Del("search")
	}
	setTyped(v, "status", p.Status)
	return v
}

func (p PlayerParams) Key() string { return p.Values().Encode() }

// TrashParams is the parameter bag of the trash list.
type TrashParams struct {
	Search string
}

func (p TrashParams) Values() url.Values {
	v := url.Values{}
	v.Set("search", p.Search)
	return v
}

func (p TrashParams) Key() string { return p.Values().Encode() }
