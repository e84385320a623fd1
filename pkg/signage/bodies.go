package signage

import "strings"

// Folder is a container of media files with an optional validity window.
type Folder struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	Size         int64  `json:"folderSize,omitempty"`
	FilesCount   int64  `json:"filesCount,omitempty"`
	Status       string `json:"status,omitempty"`
	LastModified string `json:"lastModified,omitempty"`
}

// MediaFile is a single uploaded media file.
type MediaFile struct {
	ID        int64  `json:"id"`
	FolderID  int64  `json:"folderId,omitempty"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	Duration  *int64 `json:"duration,omitempty"`
	URL       string `json:"url,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Item types carried by playlist entries.
const (
	ItemTypeImage       = "image"
	ItemTypeVideo       = "video"
	ItemTypePDF         = "application/pdf"
	ItemTypeSubPlaylist = "subPlaylist"
)

// PlaylistItem is one ordered entry of a playlist.
type PlaylistItem struct {
	ID             int64  `json:"id"`
	PlaylistFileID int64  `json:"playlistFileId,omitempty"`
	FileID         int64  `json:"fileId,omitempty"`
	SubPlaylistID  int64  `json:"subPlaylistId,omitempty"`
	Type           string `json:"type"`
	Name           string `json:"name"`
	Duration       int64  `json:"duration"`
	Size           int64  `json:"size"`
	PlayOrder      int    `json:"playOrder"`
	LastModified   string `json:"lastModified,omitempty"`
	LogsCount      int64  `json:"logsCount,omitempty"`
	URL            string `json:"url,omitempty"`
}

// MoveID returns the id the move endpoint expects for this entry.
func (i PlaylistItem) MoveID() int64 {
	if i.PlaylistFileID != 0 {
		return i.PlaylistFileID
	}
	return i.ID
}

// Kind returns the leading MIME segment ("image", "video") or the raw type.
func (i PlaylistItem) Kind() string {
	if i.Type == "" {
		return ""
	}
	if head, _, ok := strings.Cut(i.Type, "/"); ok && i.Type != ItemTypePDF {
		return head
	}
	return i.Type
}

// Playlist is an ordered sequence of items.
type Playlist struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	DefaultDuration int64          `json:"defaultDuration,omitempty"`
	ItemsCount      int64          `json:"itemsCount,omitempty"`
	Duration        int64          `json:"duration,omitempty"`
	LastModified    string         `json:"lastModified,omitempty"`
	Items           []PlaylistItem `json:"items,omitempty"`
}

// PlaylistOption is the short form returned by /playlist/list.
type PlaylistOption struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DefaultDuration int64  `json:"defaultDuration,omitempty"`
}

// Player is a display endpoint bound to at most one playlist.
type Player struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Location     string `json:"location"`
	PlaylistID   *int64 `json:"playlistId"`
	PlaylistName string `json:"playlistName,omitempty"`
	Status       string `json:"status,omitempty"`
	LastActive   string `json:"lastActive,omitempty"`
	DeviceKey    string `json:"deviceKey,omitempty"`
}

// Trash kinds share one namespace keyed by (kind, id).
const (
	TrashKindFolder = "folder"
	TrashKindFile   = "file"
)

// TrashEntry is a soft-deleted folder or file.
type TrashEntry struct {
	Kind           string `json:"kind"`
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Location       string `json:"location"`
	DeletedAtLabel string `json:"deletedAtLabel"`
	Thumbnail      string `json:"thumbnail,omitempty"`
}

// Tokens is the credential pair issued at login and refresh.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginBody is the login request.
type LoginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshBody is the refresh-token request.
type RefreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshReply is the refresh-token response.
type RefreshReply struct {
	AccessToken string `json:"accessToken"`
}

// FolderCreateBody creates or edits a folder. FolderID is set for edits.
type FolderCreateBody struct {
	Name      string `json:"name"`
	FolderID  *int64 `json:"folderId,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// FolderDeleteBody deletes a folder.
type FolderDeleteBody struct {
	FolderID int64 `json:"folderId"`
}

// FileRenameBody renames a file.
type FileRenameBody struct {
	FileID int64  `json:"fileId"`
	Name   string `json:"name"`
}

// FileDeleteBody deletes a file.
type FileDeleteBody struct {
	FileID int64 `json:"fileId"`
}

// MoveItemBody moves a playlist entry to a 1-based position.
type MoveItemBody struct {
	PlaylistFileID int64 `json:"playlistFileId"`
	PlayOrder      int   `json:"playOrder"`
}

// AddFileBody duplicates an existing playlist entry.
type AddFileBody struct {
	PlaylistFileID int64 `json:"playlistFileId"`
}

// PlaylistSaveBody creates or edits a playlist.
type PlaylistSaveBody struct {
	Name            string `json:"name"`
	DefaultDuration int64  `json:"defaultDuration"`
	PlaylistID      *int64 `json:"playlistId,omitempty"`
}

// BulkFileItem is one file added to a playlist.
type BulkFileItem struct {
	FileID   int64 `json:"fileId"`
	Duration int64 `json:"duration"`
}

// BulkAddFilesBody adds files to a playlist.
type BulkAddFilesBody struct {
	PlaylistID int64          `json:"playlistId"`
	Items      []BulkFileItem `json:"items"`
}

// BulkSubPlaylistItem is one nested playlist added to a playlist.
type BulkSubPlaylistItem struct {
	SubPlaylistID int64 `json:"subPlaylistId"`
	Duration      int64 `json:"duration"`
}

// BulkAddSubPlaylistsBody adds nested playlists to a playlist.
type BulkAddSubPlaylistsBody struct {
	PlaylistID int64                 `json:"playlistId"`
	Items      []BulkSubPlaylistItem `json:"items"`
}

// PlayerSaveBody creates or edits a player.
type PlayerSaveBody struct {
	Name       string `json:"name"`
	Location   string `json:"location"`
	PlaylistID *int64 `json:"playlistId"`
	DeviceKey  string `json:"deviceKey"`
	PlayerID   *int64 `json:"playerId,omitempty"`
}

// PlayerPlaylistBody assigns a playlist to a player.
type PlayerPlaylistBody struct {
	PlaylistID *int64 `json:"playlistId"`
}

// FoldersReply wraps GET /media/folders.
type FoldersReply struct {
	Media []Folder `json:"media"`
}

// FilesReply wraps GET /media/{folderId}/media.
type FilesReply struct {
	Media  []MediaFile `json:"media"`
	Folder *Folder     `json:"folder,omitempty"`
}

// UploadReply wraps POST /media/{folderId}/upload-media.
type UploadReply struct {
	Media *MediaFile `json:"media,omitempty"`
}

// PlaylistsReply wraps GET /playlist.
type PlaylistsReply struct {
	Playlists []Playlist `json:"playlists"`
}

// PlaylistOptionsReply wraps GET /playlist/list.
type PlaylistOptionsReply struct {
	Playlist []PlaylistOption `json:"playlist"`
}

// PlaylistReply wraps GET /playlist/{id}.
type PlaylistReply struct {
	Playlist Playlist `json:"playlist"`
}

// PlayersReply wraps GET /players.
type PlayersReply struct {
	Players []Player `json:"players"`
}

// TrashReply wraps GET /trash.
type TrashReply struct {
	Items []TrashEntry `json:"items"`
}

// ErrorReply is the backend's error body.
type ErrorReply struct {
	Message string `json:"message"`
}
