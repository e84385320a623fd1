package core

import (
	"context"
	"errors"
	"strings"

	"github.com/mikey-austin/signage/internal/params"
	"github.com/mikey-austin/signage/internal/ports"
	"github.com/mikey-austin/signage/internal/upload"
	"github.com/mikey-austin/signage/pkg/signage"
)

// UploadOptions tunes an upload run.
type UploadOptions struct {
	Prober   ports.DurationProber
	IDs      ports.IDGen
	MaxFiles int
	OnChange func(upload.Item)
	// SkipExisting drops queued files whose name is already in the folder.
	SkipExisting bool
}

// NewUploadQueue returns a queue for folderID. A run that uploads at least
// one file refreshes the folder's listings.
func (s *Service) NewUploadQueue(ctx context.Context, folderID int64, opts UploadOptions) *upload.Queue {
	q := upload.NewQueue(folderID, s.API, opts.Prober, opts.IDs, s.Logger)
	q.MaxFiles = opts.MaxFiles
	q.OnChange = opts.OnChange
	q.OnUploaded = func([]signage.MediaFile) {
		s.FilesUploaded(ctx, folderID)
	}
	return q
}

// Upload queues files into a folder and uploads them one at a time.
func (s *Service) Upload(ctx context.Context, folderID int64, files []upload.File, opts UploadOptions) (UploadResult, error) {
	if folderID <= 0 {
		return UploadResult{}, UsageError("a folder is required")
	}
	q := s.NewUploadQueue(ctx, folderID, opts)
	added := q.Add(files)
	result := UploadResult{FolderID: folderID, Notices: added.Messages()}
	if opts.SkipExisting && len(added.Queued) > 0 {
		skipped, err := s.dropExisting(ctx, folderID, q)
		if err != nil {
			return result, err
		}
		if len(skipped) > 0 {
			result.Notices = append(result.Notices, "Already in folder, skipped:\n"+strings.Join(skipped, ", "))
		}
		added.Queued = q.Items()
	}
	if len(added.Queued) == 0 {
		msg := "no files to upload"
		if len(result.Notices) > 0 {
			msg = strings.Join(result.Notices, "\n")
		}
		return result, UsageError(msg)
	}

	run, err := q.Run(ctx)
	if err != nil {
		return result, WrapError(ExitRuntime, "upload", err)
	}
	result.Items = run.Items
	result.Uploaded = run.Uploaded

	if ctx.Err() != nil {
		return result, WrapError(ExitRuntime, "upload canceled", ctx.Err())
	}
	if !run.AnyDone() {
		return result, WrapError(ExitRuntime, "upload failed", errors.New(firstError(run.Items)))
	}
	return result, nil
}

// dropExisting removes queued files that share a name with a file already in
// the folder and returns their names.
func (s *Service) dropExisting(ctx context.Context, folderID int64, q *upload.Queue) ([]string, error) {
	listing, err := s.ListFiles(ctx, folderID, params.DefaultFileParams())
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(listing.Files))
	for _, f := range listing.Files {
		existing[f.Name] = true
	}
	var skipped []string
	for _, item := range q.Items() {
		if !existing[item.File.Name] {
			continue
		}
		if err := q.Remove(item.ID); err != nil {
			return nil, WrapError(ExitRuntime, "upload", err)
		}
		skipped = append(skipped, item.File.Name)
	}
	return skipped, nil
}

func firstError(items []upload.Item) string {
	for _, item := range items {
		if item.Error != "" {
			return item.File.Name + ": " + item.Error
		}
	}
	return "no file was uploaded"
}
