package feedimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	sysclock "github.com/mikey-austin/signage/internal/adapters/clock"
	"github.com/mikey-austin/signage/internal/adapters/idgen"
	"github.com/mikey-austin/signage/internal/ports"
	"github.com/mikey-austin/signage/internal/upload"
	"github.com/mikey-austin/signage/pkg/signage"
)

const (
	userAgent       = "signage-sgd/1.0"
	defaultMaxBytes = 100 << 20
)

// Feed is one source feed and the folder its media goes to.
type Feed struct {
	URL      string
	FolderID int64
}

// Config configures the feed import module.
type Config struct {
	Feeds    []Feed
	Interval time.Duration
	Timeout  time.Duration
	// MaxBytes caps the size of one downloaded enclosure.
	MaxBytes int64
	// SkipExisting marks the items present at the first poll as seen
	// without importing them.
	SkipExisting bool
	Origin       string
}

// Publisher announces invalidation events.
type Publisher interface {
	Publish(ctx context.Context, evt signage.InvalidateEvent) error
}

// Module polls feeds and uploads new image, video and PDF enclosures.
type Module struct {
	log      *zap.Logger
	http     *http.Client
	uploader upload.Uploader
	bus      Publisher
	ids      ports.IDGen
	clock    ports.Clock
	config   Config

	// Login refreshes the backend session after it expired. Optional.
	Login func(ctx context.Context) error

	mu     sync.Mutex
	seen   map[string]map[string]struct{}
	primed map[string]bool
}

// NewModule initializes a feed import module. bus may be nil; ids and clock
// default to the system ones.
func NewModule(log *zap.Logger, uploader upload.Uploader, bus Publisher, ids ports.IDGen, clock ports.Clock, cfg Config) (*Module, error) {
	if uploader == nil {
		return nil, errors.New("uploader required")
	}
	if len(cfg.Feeds) == 0 {
		return nil, errors.New("feeds required")
	}
	for _, f := range cfg.Feeds {
		if strings.TrimSpace(f.URL) == "" {
			return nil, errors.New("feed url required")
		}
		if f.FolderID <= 0 {
			return nil, fmt.Errorf("feed %s: folder required", f.URL)
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if ids == nil {
		ids = idgen.Generator{}
	}
	if clock == nil {
		clock = sysclock.Clock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.Origin == "" {
		cfg.Origin = "sgd-feed-import"
	}
	return &Module{
		log:      log,
		http:     &http.Client{Timeout: cfg.Timeout},
		uploader: uploader,
		bus:      bus,
		ids:      ids,
		clock:    clock,
		config:   cfg,
		seen:     map[string]map[string]struct{}{},
		primed:   map[string]bool{},
	}, nil
}

// Run polls every feed now and then once per interval until ctx ends.
func (m *Module) Run(ctx context.Context) error {
	if m.Login != nil {
		if err := m.Login(ctx); err != nil {
			m.log.Warn("backend login failed", zap.Error(err))
		}
	}
	m.PollAll(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.PollAll(ctx)
		}
	}
}

// PollAll polls each feed once. Errors are logged per feed.
func (m *Module) PollAll(ctx context.Context) {
	for _, feed := range m.config.Feeds {
		if ctx.Err() != nil {
			return
		}
		n, err := m.Poll(ctx, feed)
		if errors.Is(err, ports.ErrSessionExpired) && m.Login != nil {
			if lerr := m.Login(ctx); lerr != nil {
				m.log.Warn("backend login failed", zap.Error(lerr))
				continue
			}
			n, err = m.Poll(ctx, feed)
		}
		if err != nil {
			m.log.Warn("feed import failed", zap.String("feed", feed.URL), zap.Error(err))
			continue
		}
		if n > 0 {
			m.log.Info("feed imported", zap.String("feed", feed.URL), zap.Int64("folder", feed.FolderID), zap.Int("files", n))
		}
	}
}

type candidate struct {
	key   string
	url   string
	typ   string
	title string
}

// Poll imports the new items of one feed and returns how many files were
// uploaded. Items whose upload failed are retried on the next poll.
func (m *Module) Poll(ctx context.Context, feed Feed) (int, error) {
	parsed, err := m.fetchFeed(ctx, feed.URL)
	if err != nil {
		return 0, err
	}

	current := map[string]struct{}{}
	var fresh []candidate
	m.mu.Lock()
	seen := m.seen[feed.URL]
	if seen == nil {
		seen = map[string]struct{}{}
		m.seen[feed.URL] = seen
	}
	prime := m.config.SkipExisting && !m.primed[feed.URL]
	m.primed[feed.URL] = true
	for _, item := range parsed.Items {
		c, ok := pickMedia(item)
		if !ok {
			continue
		}
		current[c.key] = struct{}{}
		if _, done := seen[c.key]; done {
			continue
		}
		if prime {
			seen[c.key] = struct{}{}
			continue
		}
		fresh = append(fresh, c)
	}
	for key := range seen {
		if _, ok := current[key]; !ok {
			delete(seen, key)
		}
	}
	m.mu.Unlock()

	if len(fresh) == 0 {
		return 0, nil
	}

	files := make([]upload.File, 0, len(fresh))
	keys := map[string]string{}
	for _, c := range fresh {
		f, err := m.download(ctx, c)
		if err != nil {
			m.log.Warn("enclosure download failed", zap.String("url", c.url), zap.Error(err))
			continue
		}
		f.Name = uniqueName(f.Name, keys)
		files = append(files, f)
		keys[f.Name] = c.key
	}
	if len(files) == 0 {
		return 0, nil
	}

	uploader := &sessionUploader{Uploader: m.uploader}
	q := upload.NewQueue(feed.FolderID, uploader, nil, m.ids, m.log)
	q.MaxFiles = len(files)
	added := q.Add(files)
	for _, name := range added.Skipped {
		m.markSeen(feed.URL, keys[name])
	}
	if len(added.Queued) == 0 {
		return 0, nil
	}
	result, err := q.Run(ctx)
	if err != nil {
		return 0, err
	}

	for _, item := range result.Items {
		if item.Status == upload.StatusDone {
			m.markSeen(feed.URL, keys[item.File.Name])
		}
	}
	if len(result.Uploaded) > 0 {
		m.publish(ctx, feed.FolderID)
	}
	if uploader.expired && len(result.Uploaded) == 0 {
		return 0, ports.ErrSessionExpired
	}
	return len(result.Uploaded), nil
}

// sessionUploader remembers whether the backend session expired mid-run.
type sessionUploader struct {
	upload.Uploader
	expired bool
}

func (u *sessionUploader) UploadMedia(ctx context.Context, folderID int64, req ports.UploadRequest) (*signage.MediaFile, error) {
	media, err := u.Uploader.UploadMedia(ctx, folderID, req)
	if errors.Is(err, ports.ErrSessionExpired) {
		u.expired = true
	}
	return media, err
}

func (m *Module) markSeen(feedURL, key string) {
	if key == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if seen := m.seen[feedURL]; seen != nil {
		seen[key] = struct{}{}
	}
}

func (m *Module) publish(ctx context.Context, folderID int64) {
	if m.bus == nil {
		return
	}
	ts := m.clock.Now().Unix()
	events := []signage.InvalidateEvent{
		{Entity: signage.EntityFiles, Scope: strconv.FormatInt(folderID, 10), TS: ts, Origin: m.config.Origin},
		{Entity: signage.EntityFolders, TS: ts, Origin: m.config.Origin},
	}
	for _, evt := range events {
		if err := m.bus.Publish(ctx, evt); err != nil {
			m.log.Warn("publish invalidation failed", zap.String("entity", evt.Entity), zap.Error(err))
		}
	}
}

func (m *Module) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("feed fetch failed: %s", resp.Status)
	}

	parser := gofeed.NewParser()
	return parser.Parse(resp.Body)
}

func (m *Module) download(ctx context.Context, c candidate) (upload.File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return upload.File{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := m.http.Do(req)
	if err != nil {
		return upload.File{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return upload.File{}, fmt.Errorf("download failed: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, m.config.MaxBytes+1))
	if err != nil {
		return upload.File{}, err
	}
	if int64(len(data)) > m.config.MaxBytes {
		return upload.File{}, fmt.Errorf("enclosure larger than %d bytes", m.config.MaxBytes)
	}

	typ := c.typ
	if typ == "" {
		typ, _, _ = mime.ParseMediaType(resp.Header.Get("Content-Type"))
	}
	return upload.FromBytes(fileName(c), typ, data), nil
}

func uniqueName(name string, taken map[string]string) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// pickMedia returns the first image, video or PDF enclosure of item, falling
// back to the item image.
func pickMedia(item *gofeed.Item) (candidate, bool) {
	if item == nil {
		return candidate{}, false
	}
	key := strings.TrimSpace(item.GUID)
	if key == "" {
		key = strings.TrimSpace(item.Link)
	}
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" || !wanted(enc.Type) {
			continue
		}
		if key == "" {
			key = enc.URL
		}
		return candidate{key: key, url: enc.URL, typ: baseType(enc.Type), title: item.Title}, true
	}
	if item.Image != nil && item.Image.URL != "" {
		if key == "" {
			key = item.Image.URL
		}
		return candidate{key: key, url: item.Image.URL, title: item.Title}, true
	}
	return candidate{}, false
}

// wanted reports whether an enclosure type may be an upload. An empty type
// is decided after download.
func wanted(typ string) bool {
	typ = baseType(typ)
	return typ == "" || strings.HasPrefix(typ, "image/") || strings.HasPrefix(typ, "video/") || typ == "application/pdf"
}

func baseType(typ string) string {
	typ, _, _ = strings.Cut(typ, ";")
	return strings.ToLower(strings.TrimSpace(typ))
}

func fileName(c candidate) string {
	if u, err := url.Parse(c.url); err == nil {
		if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
			return name
		}
	}
	if title := strings.TrimSpace(c.title); title != "" {
		return title
	}
	return "feed-item"
}
