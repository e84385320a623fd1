package signage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// BaseTopic is the default MQTT topic prefix for invalidation events.
const BaseTopic = "signage/v1"

// Entities that carry a list view and a cache key.
const (
	EntityFolders   = "folders"
	EntityFiles     = "files"
	EntityPlaylists = "playlists"
	EntityPlaylist  = "playlist"
	EntityPlayers   = "players"
	EntityTrash     = "trash"
)

// InvalidateEvent tells other clients that a list is stale.
type InvalidateEvent struct {
	Entity string `json:"entity"`
	Scope  string `json:"scope,omitempty"`
	TS     int64  `json:"ts"`
	Origin string `json:"origin"`
}

// KnownEntity reports whether entity names a list view.
func KnownEntity(entity string) bool {
	switch entity {
	case EntityFolders, EntityFiles, EntityPlaylists, EntityPlaylist, EntityPlayers, EntityTrash:
		return true
	default:
		return false
	}
}

// ValidateEvent validates required event fields.
func ValidateEvent(evt InvalidateEvent) error {
	if !KnownEntity(evt.Entity) {
		return fmt.Errorf("unknown entity %q", evt.Entity)
	}
	if evt.TS <= 0 {
		return errors.New("ts must be a positive unix timestamp")
	}
	if strings.TrimSpace(evt.Origin) == "" {
		return errors.New("origin is required")
	}
	return nil
}

// DecodeEvent parses and validates an event payload.
func DecodeEvent(payload []byte) (InvalidateEvent, error) {
	var evt InvalidateEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return InvalidateEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if err := ValidateEvent(evt); err != nil {
		return InvalidateEvent{}, err
	}
	return evt, nil
}

// TopicInvalidate builds the invalidation topic for an entity.
func TopicInvalidate(topicBase, entity string) string {
	return fmt.Sprintf("%s/invalidate/%s", topicBase, entity)
}

// TopicInvalidateAll matches every invalidation topic.
func TopicInvalidateAll(topicBase string) string {
	return fmt.Sprintf("%s/invalidate/#", topicBase)
}
