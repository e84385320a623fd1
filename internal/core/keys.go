package core

import (
	"strconv"

	"github.com/mikey-austin/signage/internal/params"
	"github.com/mikey-austin/signage/internal/querycache"
	"github.com/mikey-austin/signage/pkg/signage"
)

const optionsScope = "options"

// FoldersKey is the cache key of a folder listing.
func FoldersKey(p params.FolderParams) querycache.Key {
	return querycache.Key{Entity: signage.EntityFolders, Params: p.Key()}
}

// FilesKey is the cache key of a folder's files.
func FilesKey(folderID int64, p params.FileParams) querycache.Key {
	return querycache.Key{Entity: signage.EntityFiles, Scope: scope(folderID), Params: p.Key()}
}

// PlaylistsKey is the cache key of a playlist listing.
func PlaylistsKey(p params.PlaylistParams) querycache.Key {
	return querycache.Key{Entity: signage.EntityPlaylists, Params: p.Key()}
}

// PlaylistOptionsKey is the cache key of the playlist picker list.
func PlaylistOptionsKey() querycache.Key {
	return querycache.Key{Entity: signage.EntityPlaylists, Scope: optionsScope}
}

// PlaylistKey is the cache key of one playlist's items.
func PlaylistKey(playlistID int64, p params.PlaylistFileParams) querycache.Key {
	return querycache.Key{Entity: signage.EntityPlaylist, Scope: scope(playlistID), Params: p.Key()}
}

// PlayersKey is the cache key of a player listing.
func PlayersKey(p params.PlayerParams) querycache.Key {
	return querycache.Key{Entity: signage.EntityPlayers, Params: p.Key()}
}

// TrashKey is the cache key of the trash listing.
func TrashKey(p params.TrashParams) querycache.Key {
	return querycache.Key{Entity: signage.EntityTrash, Params: p.Key()}
}

// entityKey matches every cached list of entity, optionally within one scope.
func entityKey(entity string, id int64) querycache.Key {
	key := querycache.Key{Entity: entity}
	if id != 0 {
		key.Scope = scope(id)
	}
	return key
}

func scope(id int64) string {
	return strconv.FormatInt(id, 10)
}
