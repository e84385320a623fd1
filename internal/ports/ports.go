package ports

import (
	"context"
	"errors"
	"io"
	"net/url"
	"time"

	"github.com/mikey-austin/signage/pkg/signage"
)

// ErrSessionExpired is returned by an API whose session could not be
// refreshed.
var ErrSessionExpired = errors.New("session expired")

// API is the signage backend.
type API interface {
	Login(ctx context.Context, body signage.LoginBody) (signage.Tokens, error)

	ListFolders(ctx context.Context, query url.Values) ([]signage.Folder, error)
	SaveFolder(ctx context.Context, body signage.FolderCreateBody) error
	DeleteFolder(ctx context.Context, folderID int64) error

	ListFiles(ctx context.Context, folderID int64, query url.Values) (signage.FilesReply, error)
	RenameFile(ctx context.Context, body signage.FileRenameBody) error
	DeleteFile(ctx context.Context, fileID int64) error
	UploadMedia(ctx context.Context, folderID int64, req UploadRequest) (*signage.MediaFile, error)

	ListPlaylists(ctx context.Context, query url.Values) ([]signage.Playlist, error)
	PlaylistOptions(ctx context.Context) ([]signage.PlaylistOption, error)
	SavePlaylist(ctx context.Context, body signage.PlaylistSaveBody) error
	DeletePlaylist(ctx context.Context, playlistID int64) error
	GetPlaylist(ctx context.Context, playlistID int64, query url.Values) (signage.Playlist, error)
	MovePlaylistItem(ctx context.Context, body signage.MoveItemBody) error
	DuplicatePlaylistItem(ctx context.Context, body signage.AddFileBody) error
	RemovePlaylistItem(ctx context.Context, playlistFileID int64) error
	BulkAddFiles(ctx context.Context, body signage.BulkAddFilesBody) error
	BulkAddSubPlaylists(ctx context.Context, body signage.BulkAddSubPlaylistsBody) error

	ListPlayers(ctx context.Context, query url.Values) ([]signage.Player, error)
	SavePlayer(ctx context.Context, body signage.PlayerSaveBody) error
	AssignPlaylist(ctx context.Context, playerID int64, body signage.PlayerPlaylistBody) error

	ListTrash(ctx context.Context, query url.Values) ([]signage.TrashEntry, error)
	RestoreTrash(ctx context.Context, kind string, id int64) error
	DeleteTrash(ctx context.Context, kind string, id int64) error
}

// UploadRequest is one multipart media upload. Open may be called again when
// the request has to be replayed.
type UploadRequest struct {
	Name     string
	Type     string
	Size     int64
	Duration *int64
	Open     func() (io.ReadCloser, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// IDGen returns unique ids.
type IDGen interface {
	NewID() string
}

// CredentialStore persists the session tokens between commands.
type CredentialStore interface {
	Get() (signage.Tokens, bool, error)
	Set(tokens signage.Tokens, remember bool) error
	SetAccessToken(token string) error
	Clear() error
}

// EventBus carries invalidation events between clients.
type EventBus interface {
	Publish(ctx context.Context, evt signage.InvalidateEvent) error
	Subscribe(ctx context.Context, entity string) (<-chan signage.InvalidateEvent, <-chan error)
}

// DurationProber reads the playback duration of a local media file.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}
