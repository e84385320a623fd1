package core

import (
	"context"
	"slices"

	"github.com/mikey-austin/signage/internal/params"
	"github.com/mikey-austin/signage/internal/querycache"
	"github.com/mikey-austin/signage/internal/reorder"
	"github.com/mikey-austin/signage/pkg/signage"
)

// DefaultItemDuration is the per-item duration, in seconds, used when
// neither the caller nor the playlist sets one.
const DefaultItemDuration = 10

// ListPlaylists returns playlists matching p.
func (s *Service) ListPlaylists(ctx context.Context, p params.PlaylistParams) (PlaylistsResult, error) {
	playlists, err := load(ctx, s, "list playlists", PlaylistsKey(p), func(ctx context.Context) ([]signage.Playlist, error) {
		return s.API.ListPlaylists(ctx, p.Values())
	})
	if err != nil {
		return PlaylistsResult{}, err
	}
	return PlaylistsResult{
		Playlists: playlists,
		Range:     params.DescribeRange(p.LastModifiedFrom, p.LastModifiedTo, s.Clock.Now()),
	}, nil
}

// PlaylistOptions returns the short playlist list used to pick a playlist.
func (s *Service) PlaylistOptions(ctx context.Context) (PlaylistOptionsResult, error) {
	options, err := load(ctx, s, "list playlists", PlaylistOptionsKey(), s.API.PlaylistOptions)
	if err != nil {
		return PlaylistOptionsResult{}, err
	}
	return PlaylistOptionsResult{Options: options}, nil
}

// SavePlaylist creates a playlist, or edits one when playlistID is non-nil.
func (s *Service) SavePlaylist(ctx context.Context, playlistID *int64, form PlaylistForm) error {
	body, err := form.Body(playlistID)
	if err != nil {
		return err
	}
	action := "create playlist"
	keys := []querycache.Key{entityKey(signage.EntityPlaylists, 0)}
	if playlistID != nil {
		action = "edit playlist"
		keys = append(keys, entityKey(signage.EntityPlaylist, *playlistID))
	}
	return s.apply(ctx, change{
		action:     action,
		do:         func(ctx context.Context) error { return s.API.SavePlaylist(ctx, body) },
		invalidate: keys,
	})
}

// DeletePlaylist deletes a playlist. Cached listings drop it in place.
func (s *Service) DeletePlaylist(ctx context.Context, playlistID int64) error {
	return s.apply(ctx, change{
		action: "delete playlist",
		do:     func(ctx context.Context) error { return s.API.DeletePlaylist(ctx, playlistID) },
		patch: func(c *querycache.Cache) {
			querycache.UpdateSlices(c, entityKey(signage.EntityPlaylists, 0), func(playlists []signage.Playlist) []signage.Playlist {
				return slices.DeleteFunc(slices.Clone(playlists), func(p signage.Playlist) bool { return p.ID == playlistID })
			})
			querycache.UpdateSlices(c, PlaylistOptionsKey(), func(options []signage.PlaylistOption) []signage.PlaylistOption {
				return slices.DeleteFunc(slices.Clone(options), func(p signage.PlaylistOption) bool { return p.ID == playlistID })
			})
		},
		notify: []querycache.Key{entityKey(signage.EntityPlaylists, 0)},
	})
}

// ShowPlaylist returns one playlist with its items filtered and sorted by p.
func (s *Service) ShowPlaylist(ctx context.Context, playlistID int64, p params.PlaylistFileParams) (PlaylistShowResult, error) {
	playlist, err := load(ctx, s, "show playlist", PlaylistKey(playlistID, p), func(ctx context.Context) (signage.Playlist, error) {
		return s.API.GetPlaylist(ctx, playlistID, p.Values())
	})
	if err != nil {
		return PlaylistShowResult{}, err
	}
	return PlaylistShowResult{
		Playlist: playlist,
		Ordered:  p.Ordered(),
		Range:    params.DescribeRange(p.LastModifiedFrom, p.LastModifiedTo, s.Clock.Now()),
	}, nil
}

// MovePlaylistItem persists one item move and refetches the playlist. It
// satisfies reorder.Mover.
func (s *Service) MovePlaylistItem(ctx context.Context, playlistID int64, body signage.MoveItemBody) error {
	return s.apply(ctx, change{
		action:     "move item",
		do:         func(ctx context.Context) error { return s.API.MovePlaylistItem(ctx, body) },
		invalidate: []querycache.Key{entityKey(signage.EntityPlaylist, playlistID)},
	})
}

// MoveItemTo moves the item with itemID to the 1-based position typed in
// input. The position is checked against the current item count.
func (s *Service) MoveItemTo(ctx context.Context, playlistID, itemID int64, input string) (MessageResult, error) {
	result, err := s.ShowPlaylist(ctx, playlistID, params.DefaultPlaylistFileParams())
	if err != nil {
		return MessageResult{}, err
	}
	items := result.Playlist.Items
	idx := findItem(items, itemID)
	if idx < 0 {
		return MessageResult{}, &CLIError{Code: ExitNotFound, Msg: "playlist item not found"}
	}
	dialog := reorder.NewMoveToDialog(items[idx], len(items))
	order, err := dialog.Validate(input)
	if err != nil {
		return MessageResult{}, UsageError(err.Error())
	}
	if err := s.MovePlaylistItem(ctx, playlistID, dialog.Body(order)); err != nil {
		return MessageResult{}, err
	}
	return MessageResult{Message: "moved " + dialog.Name}, nil
}

// Reorder drags the item at 1-based position from to position to through
// the reorder engine and waits for the move to be sent.
func (s *Service) Reorder(ctx context.Context, playlistID int64, from, to int) (PlaylistShowResult, error) {
	p := params.DefaultPlaylistFileParams()
	result, err := s.ShowPlaylist(ctx, playlistID, p)
	if err != nil {
		return PlaylistShowResult{}, err
	}
	n := len(result.Playlist.Items)
	if from < 1 || from > n || to < 1 || to > n {
		return PlaylistShowResult{}, UsageError("positions must be between 1 and the number of items")
	}

	var moveErr error
	engine := reorder.NewEngine(playlistID, s, s.Logger)
	engine.OnMoveError = func(_ signage.PlaylistItem, err error) { moveErr = err }
	if s.Config.Timeout > 0 {
		engine.SetDispatchTimeout(s.Config.Timeout)
	}
	engine.SetItems(result.Playlist.Items)
	engine.SetMode(reorder.Reorder)
	engine.Reorder(ctx, from-1, to-1)
	engine.Wait()
	if moveErr != nil {
		return PlaylistShowResult{}, moveErr
	}

	result.Playlist.Items = engine.Items()
	return result, nil
}

// DuplicateItem adds a copy of an existing playlist entry.
func (s *Service) DuplicateItem(ctx context.Context, playlistID, playlistFileID int64) error {
	return s.apply(ctx, change{
		action: "duplicate item",
		do: func(ctx context.Context) error {
			return s.API.DuplicatePlaylistItem(ctx, signage.AddFileBody{PlaylistFileID: playlistFileID})
		},
		invalidate: []querycache.Key{entityKey(signage.EntityPlaylist, playlistID)},
	})
}

// RemoveItem removes an entry from a playlist.
func (s *Service) RemoveItem(ctx context.Context, playlistID, playlistFileID int64) error {
	return s.apply(ctx, change{
		action:     "remove item",
		do:         func(ctx context.Context) error { return s.API.RemovePlaylistItem(ctx, playlistFileID) },
		invalidate: []querycache.Key{entityKey(signage.EntityPlaylist, playlistID)},
	})
}

// AddFiles appends files to a playlist. A duration of zero uses the
// playlist's default.
func (s *Service) AddFiles(ctx context.Context, playlistID int64, fileIDs []int64, duration int64) error {
	if len(fileIDs) == 0 {
		return UsageError("select at least one file")
	}
	if duration <= 0 {
		d, err := s.defaultDuration(ctx, playlistID)
		if err != nil {
			return err
		}
		duration = d
	}
	body := signage.BulkAddFilesBody{PlaylistID: playlistID}
	for _, id := range fileIDs {
		body.Items = append(body.Items, signage.BulkFileItem{FileID: id, Duration: duration})
	}
	return s.apply(ctx, change{
		action:     "add files",
		do:         func(ctx context.Context) error { return s.API.BulkAddFiles(ctx, body) },
		invalidate: []querycache.Key{entityKey(signage.EntityPlaylist, playlistID)},
	})
}

// AddSubPlaylists nests playlists inside a playlist. Each entry runs for the
// nested playlist's total duration, or the playlist default when unknown.
func (s *Service) AddSubPlaylists(ctx context.Context, playlistID int64, subIDs []int64) error {
	if len(subIDs) == 0 {
		return UsageError("select at least one playlist")
	}
	if slices.Contains(subIDs, playlistID) {
		return UsageError("a playlist cannot contain itself")
	}
	fallback, err := s.defaultDuration(ctx, playlistID)
	if err != nil {
		return err
	}
	all, err := s.ListPlaylists(ctx, params.DefaultPlaylistParams())
	if err != nil {
		return err
	}
	durations := map[int64]int64{}
	for _, p := range all.Playlists {
		durations[p.ID] = p.Duration
	}

	body := signage.BulkAddSubPlaylistsBody{PlaylistID: playlistID}
	for _, id := range subIDs {
		d := durations[id]
		if d <= 0 {
			d = fallback
		}
		body.Items = append(body.Items, signage.BulkSubPlaylistItem{SubPlaylistID: id, Duration: d})
	}
	return s.apply(ctx, change{
		action:     "add sub-playlists",
		do:         func(ctx context.Context) error { return s.API.BulkAddSubPlaylists(ctx, body) },
		invalidate: []querycache.Key{entityKey(signage.EntityPlaylist, playlistID)},
	})
}

func (s *Service) defaultDuration(ctx context.Context, playlistID int64) (int64, error) {
	result, err := s.ShowPlaylist(ctx, playlistID, params.DefaultPlaylistFileParams())
	if err != nil {
		return 0, err
	}
	if result.Playlist.DefaultDuration > 0 {
		return result.Playlist.DefaultDuration, nil
	}
	return DefaultItemDuration, nil
}

func findItem(items []signage.PlaylistItem, id int64) int {
	for i, item := range items {
		if item.ID == id || item.MoveID() == id {
			return i
		}
	}
	return -1
}
