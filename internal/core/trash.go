package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mikey-austin/signage/internal/params"
	"github.com/mikey-austin/signage/internal/querycache"
	"github.com/mikey-austin/signage/pkg/signage"
)

// TrashKeyOf returns the "kind:id" key that identifies a trash entry.
func TrashKeyOf(entry signage.TrashEntry) string {
	return fmt.Sprintf("%s:%d", entry.Kind, entry.ID)
}

// ParseTrashKey splits a "kind:id" key.
func ParseTrashKey(key string) (string, int64, error) {
	kind, raw, ok := strings.Cut(key, ":")
	if !ok {
		return "", 0, UsageError(fmt.Sprintf("invalid trash key %q, expected kind:id", key))
	}
	if kind != signage.TrashKindFolder && kind != signage.TrashKindFile {
		return "", 0, UsageError(fmt.Sprintf("unknown trash kind %q", kind))
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, UsageError(fmt.Sprintf("invalid trash id %q", raw))
	}
	return kind, id, nil
}

// ListTrash returns soft-deleted folders and files.
func (s *Service) ListTrash(ctx context.Context, p params.TrashParams) (TrashResult, error) {
	items, err := load(ctx, s, "list trash", TrashKey(p), func(ctx context.Context) ([]signage.TrashEntry, error) {
		return s.API.ListTrash(ctx, p.Values())
	})
	if err != nil {
		return TrashResult{}, err
	}
	return TrashResult{Items: items}, nil
}

// RestoreTrash restores one entry.
func (s *Service) RestoreTrash(ctx context.Context, kind string, id int64) error {
	return s.apply(ctx, change{
		action:     "restore " + kind,
		do:         func(ctx context.Context) error { return s.API.RestoreTrash(ctx, kind, id) },
		invalidate: restoredKeys(kind),
	})
}

// DeleteTrash deletes one entry for good.
func (s *Service) DeleteTrash(ctx context.Context, kind string, id int64) error {
	return s.apply(ctx, change{
		action:     "delete " + kind,
		do:         func(ctx context.Context) error { return s.API.DeleteTrash(ctx, kind, id) },
		invalidate: []querycache.Key{entityKey(signage.EntityTrash, 0)},
	})
}

// BulkRestore restores entries by key, in order, stopping at the first
// failure.
func (s *Service) BulkRestore(ctx context.Context, keys []string) (BulkTrashResult, error) {
	return s.bulk(ctx, "restore", keys, s.RestoreTrash)
}

// BulkDelete deletes entries by key, in order, stopping at the first failure.
func (s *Service) BulkDelete(ctx context.Context, keys []string) (BulkTrashResult, error) {
	return s.bulk(ctx, "delete", keys, s.DeleteTrash)
}

func (s *Service) bulk(ctx context.Context, action string, keys []string, fn func(context.Context, string, int64) error) (BulkTrashResult, error) {
	result := BulkTrashResult{Action: action}
	if len(keys) == 0 {
		return result, UsageError("select at least one item")
	}
	type target struct {
		key  string
		kind string
		id   int64
	}
	targets := make([]target, 0, len(keys))
	for _, key := range keys {
		kind, id, err := ParseTrashKey(key)
		if err != nil {
			return result, err
		}
		targets = append(targets, target{key: key, kind: kind, id: id})
	}
	for _, t := range targets {
		if err := fn(ctx, t.kind, t.id); err != nil {
			result.Failed = t.key
			result.Err = err.Error()
			return result, err
		}
		result.Done = append(result.Done, t.key)
	}
	return result, nil
}

func restoredKeys(kind string) []querycache.Key {
	keys := []querycache.Key{entityKey(signage.EntityTrash, 0), entityKey(signage.EntityFolders, 0)}
	if kind == signage.TrashKindFile {
		keys = append(keys, entityKey(signage.EntityFiles, 0))
	}
	return keys
}
