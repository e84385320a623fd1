package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey-austin/signage/internal/ports"
	"github.com/mikey-austin/signage/pkg/signage"
)

// DefaultMaxFiles caps the queue length.
const DefaultMaxFiles = 10

// Status is the state of one queued upload.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusCanceled  Status = "canceled"
)

var (
	// ErrUploading is returned for queue edits while a run is in progress.
	ErrUploading = errors.New("upload in progress")
	// ErrEmpty is returned when running an empty queue.
	ErrEmpty = errors.New("no files queued")
	// ErrItemNotFound is returned when removing an unknown item.
	ErrItemNotFound = errors.New("upload item not found")
)

const (
	defaultFailure = "Upload failed"
	canceledReason = "Canceled"
)

// Uploader sends one file to a folder.
type Uploader interface {
	UploadMedia(ctx context.Context, folderID int64, req ports.UploadRequest) (*signage.MediaFile, error)
}

// Item is one queued file.
type Item struct {
	ID       string
	File     File
	Progress int
	Status   Status
	Error    string
}

// AddResult reports what Add accepted.
type AddResult struct {
	Queued   []Item
	Skipped  []string
	Overflow int
	MaxFiles int
}

// Messages returns the user notices for skipped and overflowing files.
func (r AddResult) Messages() []string {
	var out []string
	if len(r.Skipped) > 0 {
		out = append(out, "Some files were skipped (only image/video/pdf allowed):\n"+strings.Join(r.Skipped, ", "))
	}
	if r.Overflow > 0 {
		out = append(out, fmt.Sprintf("Maximum %d files allowed. Extra files were skipped.", r.MaxFiles))
	}
	return out
}

// Result summarises a run.
type Result struct {
	Uploaded []signage.MediaFile
	Items    []Item
}

// AnyDone reports whether at least one item finished.
func (r Result) AnyDone() bool {
	if len(r.Uploaded) > 0 {
		return true
	}
	for _, item := range r.Items {
		if item.Status == StatusDone {
			return true
		}
	}
	return false
}

// Queue uploads files into one folder, one at a time.
type Queue struct {
	folderID int64
	uploader Uploader
	prober   ports.DurationProber
	ids      ports.IDGen
	logger   *zap.Logger

	// MaxFiles caps the queue length. Zero means DefaultMaxFiles.
	MaxFiles int
	// OnChange observes status and progress updates.
	OnChange func(Item)
	// OnUploaded receives the uploaded media once a run finished with at
	// least one success.
	OnUploaded func([]signage.MediaFile)

	mu      sync.Mutex
	items   []Item
	running bool
	cancel  context.CancelFunc
}

// NewQueue returns an empty queue. prober may be nil.
func NewQueue(folderID int64, uploader Uploader, prober ports.DurationProber, ids ports.IDGen, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{folderID: folderID, uploader: uploader, prober: prober, ids: ids, logger: logger}
}

func (q *Queue) maxFiles() int {
	if q.MaxFiles <= 0 {
		return DefaultMaxFiles
	}
	return q.MaxFiles
}

// Add filters files by type and appends as many as fit.
func (q *Queue) Add(files []File) AddResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := AddResult{MaxFiles: q.maxFiles()}
	var valid []File
	for _, f := range files {
		if Allowed[f.Type] {
			valid = append(valid, f)
		} else {
			result.Skipped = append(result.Skipped, f.Name)
		}
	}
	remaining := max(0, result.MaxFiles-len(q.items))
	take := valid
	if len(valid) > remaining {
		take = valid[:remaining]
		result.Overflow = len(valid) - remaining
	}
	for _, f := range take {
		item := Item{ID: q.ids.NewID(), File: f, Status: StatusQueued}
		q.items = append(q.items, item)
		result.Queued = append(result.Queued, item)
	}
	return result
}

// Remove drops an item. It is rejected while uploading.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return ErrUploading
	}
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// Items returns a snapshot of the queue.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Item(nil), q.items...)
}

// Uploading reports whether a run is in progress.
func (q *Queue) Uploading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Cancel aborts the in-flight upload and halts the run.
func (q *Queue) Cancel() {
	q.mu.Lock()
	cancel := q.cancel
	q.cancel = nil
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run uploads every item that is not done yet, in order. A failed item is
// marked and the run continues; a cancelled item halts the run and leaves
// later items queued.
func (q *Queue) Run(ctx context.Context) (Result, error) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return Result{}, ErrUploading
	}
	if len(q.items) == 0 {
		q.mu.Unlock()
		return Result{}, ErrEmpty
	}
	q.running = true
	pending := make([]string, 0, len(q.items))
	for _, item := range q.items {
		if item.Status != StatusDone {
			pending = append(pending, item.ID)
		}
	}
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.running = false
		q.cancel = nil
		q.mu.Unlock()
	}()

	var uploaded []signage.MediaFile
	for _, id := range pending {
		item, ok := q.update(id, func(it *Item) {
			it.Status = StatusUploading
			it.Error = ""
			it.Progress = 0
		})
		if !ok {
			continue
		}
		media, err := q.uploadOne(ctx, item)
		if err == nil {
			if media != nil {
				uploaded = append(uploaded, *media)
			}
			q.update(id, func(it *Item) {
				it.Status = StatusDone
				it.Progress = 100
			})
			continue
		}
		if isCanceled(ctx, err) {
			q.update(id, func(it *Item) {
				it.Status = StatusCanceled
				it.Error = canceledReason
			})
			q.logger.Info("upload canceled", zap.String("file", item.File.Name))
			break
		}
		q.update(id, func(it *Item) {
			it.Status = StatusError
			it.Error = failureMessage(err)
		})
		q.logger.Warn("upload failed", zap.String("file", item.File.Name), zap.Error(err))
	}

	result := Result{Uploaded: uploaded, Items: q.Items()}
	if result.AnyDone() && q.OnUploaded != nil {
		q.OnUploaded(uploaded)
	}
	return result, nil
}

func (q *Queue) uploadOne(ctx context.Context, item Item) (*signage.MediaFile, error) {
	itemCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	q.mu.Lock()
	q.cancel = cancel
	q.mu.Unlock()

	duration := q.probe(itemCtx, item.File)

	open := func() (io.ReadCloser, error) {
		body, err := item.File.Open()
		if err != nil {
			return nil, err
		}
		return &progressReader{
			r:     body,
			total: item.File.Size,
			report: func(pct int) {
				q.update(item.ID, func(it *Item) { it.Progress = pct })
			},
		}, nil
	}
	return q.uploader.UploadMedia(itemCtx, q.folderID, ports.UploadRequest{
		Name:     item.File.Name,
		Type:     item.File.Type,
		Size:     item.File.Size,
		Duration: duration,
		Open:     open,
	})
}

// probe returns the rounded duration in seconds for videos, or nil.
func (q *Queue) probe(ctx context.Context, f File) *int64 {
	if q.prober == nil || !f.IsVideo() || f.Path == "" {
		return nil
	}
	d, err := q.prober.ProbeDuration(ctx, f.Path)
	if err != nil || d < 0 {
		q.logger.Debug("duration probe failed", zap.String("file", f.Name), zap.Error(err))
		return nil
	}
	secs := int64(math.Round(d.Seconds()))
	return &secs
}

func (q *Queue) update(id string, fn func(*Item)) (Item, bool) {
	q.mu.Lock()
	var (
		item  Item
		found bool
	)
	for i := range q.items {
		if q.items[i].ID == id {
			fn(&q.items[i])
			item = q.items[i]
			found = true
			break
		}
	}
	q.mu.Unlock()
	if found && q.OnChange != nil {
		q.OnChange(item)
	}
	return item, found
}

func isCanceled(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "canceled")
}

type serverMessager interface {
	ServerMessage() string
}

func failureMessage(err error) string {
	var sm serverMessager
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return sm.ServerMessage()
	}
	return defaultFailure
}

// Percent converts bytes sent into a 0-100 progress value.
func Percent(loaded, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(loaded) / float64(total) * 100))
	return min(100, pct)
}

type progressReader struct {
	r      io.ReadCloser
	total  int64
	loaded int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if pct := Percent(p.loaded, p.total); pct != p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}

func (p *progressReader) Close() error {
	return p.r.Close()
}
