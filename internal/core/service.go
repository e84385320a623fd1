package core

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/signage/internal/params"
	"github.com/mikey-austin/signage/internal/ports"
	"github.com/mikey-austin/signage/internal/querycache"
	"github.com/mikey-austin/signage/pkg/signage"
)

// Service orchestrates sg use cases over the backend API. List reads go
// through a shared cache; writes reconcile it and announce the change on the
// event bus when one is configured.
type Service struct {
	API    ports.API
	Cache  *querycache.Cache
	Bus    ports.EventBus
	Clock  ports.Clock
	Origin string
	Logger *zap.Logger
	Config Config
}

// ListTTL is how long a cached listing is served before it is refetched.
// The watch loop keeps a service alive long enough for this to matter.
const ListTTL = 5 * time.Minute

// NewService returns a service with an empty cache. bus may be nil.
func NewService(api ports.API, bus ports.EventBus, clock ports.Clock, origin string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		API:    api,
		Cache:  querycache.NewCache(querycache.WithNow(clock.Now), querycache.WithTTL(ListTTL)),
		Bus:    bus,
		Clock:  clock,
		Origin: origin,
		Logger: logger,
	}
}

func load[T any](ctx context.Context, s *Service, action string, key querycache.Key, fetch querycache.FetchFunc[T]) (T, error) {
	state := querycache.NewQuery(s.Cache, key, fetch).Fetch(ctx)
	if state.Err != nil {
		var zero T
		return zero, apiError(action, state.Err)
	}
	return state.Data, nil
}

// change describes one write and how the cache follows it.
type change struct {
	action     string
	do         func(ctx context.Context) error
	patch      func(c *querycache.Cache)
	invalidate []querycache.Key
	// notify lists what other clients should refetch; defaults to invalidate.
	notify []querycache.Key
}

func (s *Service) apply(ctx context.Context, c change) error {
	m := &querycache.Mutation[struct{}, struct{}]{
		Cache: s.Cache,
		Do: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, c.do(ctx)
		},
		Invalidate: func(struct{}, struct{}) []querycache.Key {
			return c.invalidate
		},
	}
	if c.patch != nil {
		m.Patch = func(cache *querycache.Cache, _ struct{}, _ struct{}) {
			c.patch(cache)
		}
	}
	if _, err := m.Run(ctx, struct{}{}); err != nil {
		return apiError(c.action, err)
	}
	notify := c.notify
	if notify == nil {
		notify = c.invalidate
	}
	s.publish(ctx, notify)
	return nil
}

func (s *Service) publish(ctx context.Context, keys []querycache.Key) {
	if s.Bus == nil {
		return
	}
	ts := s.Clock.Now().Unix()
	for _, key := range keys {
		evt := signage.InvalidateEvent{Entity: key.Entity, Scope: key.Scope, TS: ts, Origin: s.Origin}
		if err := s.Bus.Publish(ctx, evt); err != nil {
			s.Logger.Warn("publish invalidation failed", zap.String("entity", key.Entity), zap.String("scope", key.Scope), zap.Error(err))
		}
	}
}

// HandleEvent marks the lists named by an event stale. Events this service
// published itself are ignored. It reports whether anything was cached.
func (s *Service) HandleEvent(evt signage.InvalidateEvent) bool {
	if evt.Origin == s.Origin {
		return false
	}
	return s.Cache.Invalidate(querycache.Key{Entity: evt.Entity, Scope: evt.Scope}, false) > 0
}

// Login exchanges credentials for tokens and stores them.
func (s *Service) Login(ctx context.Context, creds ports.CredentialStore, email, password string, remember bool) (MessageResult, error) {
	if email == "" || password == "" {
		return MessageResult{}, UsageError("email and password are required")
	}
	tokens, err := s.API.Login(ctx, signage.LoginBody{Email: email, Password: password})
	if err != nil {
		return MessageResult{}, apiError("login", err)
	}
	if err := creds.Set(tokens, remember); err != nil {
		return MessageResult{}, WrapError(ExitRuntime, "store credentials", err)
	}
	return MessageResult{Message: "logged in"}, nil
}

// Logout clears stored credentials.
func (s *Service) Logout(creds ports.CredentialStore) (MessageResult, error) {
	if err := creds.Clear(); err != nil {
		return MessageResult{}, WrapError(ExitRuntime, "clear credentials", err)
	}
	return MessageResult{Message: "logged out"}, nil
}

// ListFolders returns folders matching p.
func (s *Service) ListFolders(ctx context.Context, p params.FolderParams) (FoldersResult, error) {
	folders, err := load(ctx, s, "list folders", FoldersKey(p), func(ctx context.Context) ([]signage.Folder, error) {
		return s.API.ListFolders(ctx, p.Values())
	})
	if err != nil {
		return FoldersResult{}, err
	}
	return FoldersResult{
		Folders: folders,
		Range:   params.DescribeRange(p.LastModifiedFrom, p.LastModifiedTo, s.Clock.Now()),
	}, nil
}

// FindFolder looks a folder up in the default listing.
func (s *Service) FindFolder(ctx context.Context, folderID int64) (signage.Folder, error) {
	result, err := s.ListFolders(ctx, params.DefaultFolderParams())
	if err != nil {
		return signage.Folder{}, err
	}
	for _, f := range result.Folders {
		if f.ID == folderID {
			return f, nil
		}
	}
	return signage.Folder{}, &CLIError{Code: ExitNotFound, Msg: "folder not found"}
}

// CreateFolder creates a folder.
func (s *Service) CreateFolder(ctx context.Context, form FolderForm) error {
	body, err := form.Body(nil)
	if err != nil {
		return err
	}
	return s.apply(ctx, change{
		action:     "create folder",
		do:         func(ctx context.Context) error { return s.API.SaveFolder(ctx, body) },
		invalidate: []querycache.Key{entityKey(signage.EntityFolders, 0)},
	})
}

// EditFolder renames a folder or changes its validity window. Cached
// listings are patched in place.
func (s *Service) EditFolder(ctx context.Context, folderID int64, form FolderForm) error {
	body, err := form.Body(&folderID)
	if err != nil {
		return err
	}
	return s.apply(ctx, change{
		action: "edit folder",
		do:     func(ctx context.Context) error { return s.API.SaveFolder(ctx, body) },
		patch: func(c *querycache.Cache) {
			querycache.UpdateSlices(c, entityKey(signage.EntityFolders, 0), func(folders []signage.Folder) []signage.Folder {
				out := slices.Clone(folders)
				for i := range out {
					if out[i].ID == folderID {
						out[i].Name = body.Name
						out[i].StartDate = body.StartDate
						out[i].EndDate = body.EndDate
					}
				}
				return out
			})
		},
		notify: []querycache.Key{entityKey(signage.EntityFolders, 0)},
	})
}

// DeleteFolder moves a folder to the trash. Cached listings drop it in place.
func (s *Service) DeleteFolder(ctx context.Context, folderID int64) error {
	return s.apply(ctx, change{
		action: "delete folder",
		do:     func(ctx context.Context) error { return s.API.DeleteFolder(ctx, folderID) },
		patch: func(c *querycache.Cache) {
			querycache.UpdateSlices(c, entityKey(signage.EntityFolders, 0), func(folders []signage.Folder) []signage.Folder {
				return slices.DeleteFunc(slices.Clone(folders), func(f signage.Folder) bool { return f.ID == folderID })
			})
			c.Invalidate(entityKey(signage.EntityTrash, 0), false)
		},
		notify: []querycache.Key{entityKey(signage.EntityFolders, 0), entityKey(signage.EntityTrash, 0)},
	})
}

// ListFiles returns the files of a folder.
func (s *Service) ListFiles(ctx context.Context, folderID int64, p params.FileParams) (FilesResult, error) {
	reply, err := load(ctx, s, "list files", FilesKey(folderID, p), func(ctx context.Context) (signage.FilesReply, error) {
		return s.API.ListFiles(ctx, folderID, p.Values())
	})
	if err != nil {
		return FilesResult{}, err
	}
	return FilesResult{
		FolderID: folderID,
		Folder:   reply.Folder,
		Files:    reply.Media,
		Range:    params.DescribeRange(p.From, p.To, s.Clock.Now()),
	}, nil
}

// FindFile looks a file up in its folder's default listing.
func (s *Service) FindFile(ctx context.Context, folderID, fileID int64) (signage.MediaFile, error) {
	result, err := s.ListFiles(ctx, folderID, params.DefaultFileParams())
	if err != nil {
		return signage.MediaFile{}, err
	}
	for _, file := range result.Files {
		if file.ID == fileID {
			return file, nil
		}
	}
	return signage.MediaFile{}, &CLIError{Code: ExitNotFound, Msg: "file not found"}
}

// RenameFile renames a file, keeping its extension.
func (s *Service) RenameFile(ctx context.Context, folderID int64, file signage.MediaFile, name string) error {
	body, err := RenameBody(file, name)
	if err != nil {
		return err
	}
	return s.apply(ctx, change{
		action:     "rename file",
		do:         func(ctx context.Context) error { return s.API.RenameFile(ctx, body) },
		invalidate: []querycache.Key{entityKey(signage.EntityFiles, folderID)},
	})
}

// DeleteFile moves a file to the trash.
func (s *Service) DeleteFile(ctx context.Context, folderID, fileID int64) error {
	return s.apply(ctx, change{
		action: "delete file",
		do:     func(ctx context.Context) error { return s.API.DeleteFile(ctx, fileID) },
		invalidate: []querycache.Key{
			entityKey(signage.EntityFiles, folderID),
			entityKey(signage.EntityTrash, 0),
		},
	})
}

// FilesUploaded refreshes a folder after an upload run added files to it.
func (s *Service) FilesUploaded(ctx context.Context, folderID int64) {
	key := entityKey(signage.EntityFiles, folderID)
	s.Cache.Invalidate(key, false)
	s.Cache.Invalidate(entityKey(signage.EntityFolders, 0), false)
	s.publish(ctx, []querycache.Key{key, entityKey(signage.EntityFolders, 0)})
}

// ListPlayers returns players matching p.
func (s *Service) ListPlayers(ctx context.Context, p params.PlayerParams) (PlayersResult, error) {
	players, err := load(ctx, s, "list players", PlayersKey(p), func(ctx context.Context) ([]signage.Player, error) {
		return s.API.ListPlayers(ctx, p.Values())
	})
	if err != nil {
		return PlayersResult{}, err
	}
	return PlayersResult{Players: players}, nil
}

// FindPlayer looks a player up in the default listing.
func (s *Service) FindPlayer(ctx context.Context, playerID int64) (signage.Player, error) {
	result, err := s.ListPlayers(ctx, params.DefaultPlayerParams())
	if err != nil {
		return signage.Player{}, err
	}
	for _, p := range result.Players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return signage.Player{}, &CLIError{Code: ExitNotFound, Msg: "player not found"}
}

// SavePlayer creates a player, or edits one when playerID is non-nil.
func (s *Service) SavePlayer(ctx context.Context, playerID *int64, form PlayerForm) error {
	body, err := form.Body(playerID)
	if err != nil {
		return err
	}
	action := "create player"
	if playerID != nil {
		action = "edit player"
	}
	return s.apply(ctx, change{
		action:     action,
		do:         func(ctx context.Context) error { return s.API.SavePlayer(ctx, body) },
		invalidate: []querycache.Key{entityKey(signage.EntityPlayers, 0)},
	})
}

// AssignPlaylist points a player at a playlist, or clears it when
// playlistID is nil.
func (s *Service) AssignPlaylist(ctx context.Context, playerID int64, playlistID *int64) error {
	return s.apply(ctx, change{
		action: "assign playlist",
		do: func(ctx context.Context) error {
			return s.API.AssignPlaylist(ctx, playerID, signage.PlayerPlaylistBody{PlaylistID: playlistID})
		},
		invalidate: []querycache.Key{entityKey(signage.EntityPlayers, 0)},
	})
}
