package core

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mikey-austin/signage/internal/params"
	"github.com/mikey-austin/signage/pkg/signage"
)

// DefaultPlaylistDuration is the per-item duration, in seconds, used when a
// playlist does not set one.
const DefaultPlaylistDuration = 30

// FolderForm is the folder create/edit input. Dates are YYYY-MM-DD; an ISO
// timestamp is cut at the "T".
type FolderForm struct {
	Name      string
	Expirable bool
	StartDate string
	EndDate   string
}

// Body validates the form and builds the request. id is nil on create.
func (f FolderForm) Body(id *int64) (signage.FolderCreateBody, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return signage.FolderCreateBody{}, UsageError("Please enter a name")
	}
	body := signage.FolderCreateBody{Name: name, FolderID: id}
	if !f.Expirable && f.StartDate == "" && f.EndDate == "" {
		return body, nil
	}

	start, end := datePart(f.StartDate), datePart(f.EndDate)
	if start == "" || end == "" {
		return signage.FolderCreateBody{}, UsageError("Please enter a start date and end date")
	}
	from, err := params.ParseYMD(start)
	if err != nil {
		return signage.FolderCreateBody{}, UsageError("start date must be YYYY-MM-DD")
	}
	to, err := params.ParseYMD(end)
	if err != nil {
		return signage.FolderCreateBody{}, UsageError("end date must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return signage.FolderCreateBody{}, UsageError("end date must not be before start date")
	}
	body.StartDate = start
	body.EndDate = end
	return body, nil
}

func datePart(value string) string {
	value = strings.TrimSpace(value)
	day, _, _ := strings.Cut(value, "T")
	return day
}

var fileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// RenameBody validates a new base name for file and keeps its extension.
func RenameBody(file signage.MediaFile, name string) (signage.FileRenameBody, error) {
	name = strings.TrimSpace(name)
	ext := filepath.Ext(file.Name)
	name = strings.TrimSuffix(name, ext)
	if name == "" {
		return signage.FileRenameBody{}, UsageError("Please enter a name")
	}
	if !fileNamePattern.MatchString(name) {
		return signage.FileRenameBody{}, UsageError("Only letters, numbers and underscores are allowed in the name")
	}
	return signage.FileRenameBody{FileID: file.ID, Name: name + ext}, nil
}

// PlaylistForm is the playlist create/edit input. A zero DefaultDuration
// means DefaultPlaylistDuration.
type PlaylistForm struct {
	Name            string
	DefaultDuration int64
}

// Body validates the form and builds the request. id is nil on create.
func (f PlaylistForm) Body(id *int64) (signage.PlaylistSaveBody, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return signage.PlaylistSaveBody{}, UsageError("Please enter a name")
	}
	duration := f.DefaultDuration
	if duration < 0 {
		return signage.PlaylistSaveBody{}, UsageError("Please enter a valid duration")
	}
	if duration == 0 {
		duration = DefaultPlaylistDuration
	}
	return signage.PlaylistSaveBody{Name: name, DefaultDuration: duration, PlaylistID: id}, nil
}

// PlayerForm is the player create/edit input.
type PlayerForm struct {
	Name       string
	Location   string
	PlaylistID *int64
	DeviceKey  string
}

// Body validates the form and builds the request. id is nil on create.
func (f PlayerForm) Body(id *int64) (signage.PlayerSaveBody, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return signage.PlayerSaveBody{}, UsageError("Please enter a name")
	}
	location := strings.TrimSpace(f.Location)
	if location == "" {
		return signage.PlayerSaveBody{}, UsageError("Please enter a location")
	}
	if f.PlaylistID == nil {
		return signage.PlayerSaveBody{}, UsageError("Please select a playlist")
	}
	key := strings.TrimSpace(f.DeviceKey)
	if len(key) < 8 || len(key) > 16 {
		return signage.PlayerSaveBody{}, UsageError("Device key must be 8 to 16 characters")
	}
	return signage.PlayerSaveBody{
		Name:       name,
		Location:   location,
		PlaylistID: f.PlaylistID,
		DeviceKey:  key,
		PlayerID:   id,
	}, nil
}
