package core

import (
	"github.com/mikey-austin/signage/internal/upload"
	"github.com/mikey-austin/signage/pkg/signage"
)

// FoldersResult holds a folder listing.
type FoldersResult struct {
	Folders []signage.Folder
	Range   string `json:",omitempty"`
}

// FilesResult holds the files of one folder.
type FilesResult struct {
	FolderID int64
	Folder   *signage.Folder
	Files    []signage.MediaFile
	Range    string `json:",omitempty"`
}

// PlaylistsResult holds a playlist listing.
type PlaylistsResult struct {
	Playlists []signage.Playlist
	Range     string `json:",omitempty"`
}

// PlaylistOptionsResult holds the short playlist list used by pickers.
type PlaylistOptionsResult struct {
	Options []signage.PlaylistOption
}

// PlaylistShowResult holds one playlist with its items. Ordered is set when
// the items are sorted by play order and may be reordered.
type PlaylistShowResult struct {
	Playlist signage.Playlist
	Ordered  bool
	Range    string `json:",omitempty"`
}

// PlayersResult holds a player listing.
type PlayersResult struct {
	Players []signage.Player
}

// TrashResult holds the trash listing.
type TrashResult struct {
	Items []signage.TrashEntry
}

// BulkTrashResult reports a bulk restore or delete.
type BulkTrashResult struct {
	Action string
	Done   []string
	Failed string
	Err    string
}

// UploadResult reports an upload run.
type UploadResult struct {
	FolderID int64
	Notices  []string
	Items    []upload.Item
	Uploaded []signage.MediaFile
}

// MessageResult is a one-line confirmation.
type MessageResult struct {
	Message string
}

// EventResult is one invalidation event seen by watch.
type EventResult struct {
	Event signage.InvalidateEvent
}
