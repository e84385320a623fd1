package feedimport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey-austin/signage/internal/ports"
	"github.com/mikey-austin/signage/pkg/signage"
)

const feedURL = "http://example.test/feed.xml"

const testFeed = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Lobby Screens</title>
    <item>
      <title>Welcome slide</title>
      <guid>slide-1</guid>
      <enclosure url="http://example.test/media/welcome.png" type="image/png" length="8"/>
    </item>
    <item>
      <title>Menu</title>
      <guid>menu-1</guid>
      <enclosure url="http://example.test/media/menu.pdf" type="application/pdf" length="8"/>
    </item>
    <item>
      <title>Podcast</title>
      <guid>audio-1</guid>
      <enclosure url="http://example.test/media/show.mp3" type="audio/mpeg" length="8"/>
    </item>
  </channel>
</rss>`

type stubUploader struct {
	mu    sync.Mutex
	names []string
	fail  map[string]error
}

func (s *stubUploader) UploadMedia(_ context.Context, folderID int64, req ports.UploadRequest) (*signage.MediaFile, error) {
	body, err := req.Open()
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[req.Name]; err != nil {
		return nil, err
	}
	s.names = append(s.names, req.Name)
	return &signage.MediaFile{ID: int64(len(s.names)), Name: req.Name, Type: req.Type, FolderID: folderID}, nil
}

func (s *stubUploader) uploaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

type stubBus struct {
	events []signage.InvalidateEvent
}

func (b *stubBus) Publish(_ context.Context, evt signage.InvalidateEvent) error {
	if err := signage.ValidateEvent(evt); err != nil {
		return err
	}
	b.events = append(b.events, evt)
	return nil
}

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Unix(1700000000, 0) }

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return "item-" + strconv.Itoa(s.n)
}

type testTransport func(*http.Request) (*http.Response, error)

func (t testTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t(r)
}

func response(status int, contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func feedServer(feed string) testTransport {
	return func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("User-Agent") != userAgent {
			return response(http.StatusForbidden, "text/plain", "no agent"), nil
		}
		switch {
		case r.URL.String() == feedURL:
			return response(http.StatusOK, "application/rss+xml", feed), nil
		case strings.HasPrefix(r.URL.Path, "/media/"):
			return response(http.StatusOK, "application/octet-stream", "payload!"), nil
		default:
			return response(http.StatusNotFound, "text/plain", "missing"), nil
		}
	}
}

func newTestModule(t *testing.T, uploader *stubUploader, bus *stubBus, cfg Config) *Module {
	t.Helper()
	if cfg.Feeds == nil {
		cfg.Feeds = []Feed{{URL: feedURL, FolderID: 7}}
	}
	var pub Publisher
	if bus != nil {
		pub = bus
	}
	module, err := NewModule(zap.NewNop(), uploader, pub, &seqIDs{}, fixedClock{}, cfg)
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	module.http = &http.Client{Transport: feedServer(testFeed)}
	return module
}

func TestPollImportsMediaEnclosuresOnce(t *testing.T) {
	uploader := &stubUploader{}
	bus := &stubBus{}
	module := newTestModule(t, uploader, bus, Config{})
	feed := module.config.Feeds[0]

	n, err := module.Poll(context.Background(), feed)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 uploads, got %d", n)
	}
	got := uploader.uploaded()
	if len(got) != 2 || got[0] != "welcome.png" || got[1] != "menu.pdf" {
		t.Fatalf("unexpected uploads %v", got)
	}

	if len(bus.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(bus.events))
	}
	if bus.events[0].Entity != signage.EntityFiles || bus.events[0].Scope != "7" {
		t.Fatalf("unexpected files event %+v", bus.events[0])
	}
	if bus.events[1].Entity != signage.EntityFolders || bus.events[1].Origin != "sgd-feed-import" {
		t.Fatalf("unexpected folders event %+v", bus.events[1])
	}

	n, err = module.Poll(context.Background(), feed)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if n != 0 || len(uploader.uploaded()) != 2 {
		t.Fatalf("expected nothing new on second poll, got %d", n)
	}
	if len(bus.events) != 2 {
		t.Fatalf("expected no new events, got %d", len(bus.events))
	}
}

func TestPollRetriesFailedUploads(t *testing.T) {
	uploader := &stubUploader{fail: map[string]error{"menu.pdf": errors.New("backend down")}}
	module := newTestModule(t, uploader, &stubBus{}, Config{})
	feed := module.config.Feeds[0]

	if n, err := module.Poll(context.Background(), feed); err != nil || n != 1 {
		t.Fatalf("first poll = %d, %v", n, err)
	}

	uploader.mu.Lock()
	uploader.fail = nil
	uploader.mu.Unlock()

	if n, err := module.Poll(context.Background(), feed); err != nil || n != 1 {
		t.Fatalf("retry poll = %d, %v", n, err)
	}
	got := uploader.uploaded()
	if len(got) != 2 || got[1] != "menu.pdf" {
		t.Fatalf("expected menu.pdf on retry, got %v", got)
	}
}

func TestPollSkipExisting(t *testing.T) {
	uploader := &stubUploader{}
	module := newTestModule(t, uploader, nil, Config{SkipExisting: true})
	feed := module.config.Feeds[0]

	if n, err := module.Poll(context.Background(), feed); err != nil || n != 0 {
		t.Fatalf("priming poll = %d, %v", n, err)
	}
	if len(uploader.uploaded()) != 0 {
		t.Fatalf("expected no uploads while priming")
	}

	newer := strings.Replace(testFeed, "<item>", `<item>
      <title>Promo</title>
      <guid>promo-1</guid>
      <enclosure url="http://example.test/media/promo.mp4" type="video/mp4" length="8"/>
    </item>
    <item>`, 1)
	module.http = &http.Client{Transport: feedServer(newer)}

	if n, err := module.Poll(context.Background(), feed); err != nil || n != 1 {
		t.Fatalf("poll after new item = %d, %v", n, err)
	}
	if got := uploader.uploaded(); len(got) != 1 || got[0] != "promo.mp4" {
		t.Fatalf("unexpected uploads %v", got)
	}
}

func TestPollAllReloginOnExpiredSession(t *testing.T) {
	uploader := &stubUploader{fail: map[string]error{
		"welcome.png": ports.ErrSessionExpired,
		"menu.pdf":    ports.ErrSessionExpired,
	}}
	module := newTestModule(t, uploader, nil, Config{})
	logins := 0
	module.Login = func(context.Context) error {
		logins++
		uploader.mu.Lock()
		uploader.fail = nil
		uploader.mu.Unlock()
		return nil
	}

	module.PollAll(context.Background())
	if logins != 1 {
		t.Fatalf("expected one login, got %d", logins)
	}
	if got := uploader.uploaded(); len(got) != 2 {
		t.Fatalf("expected uploads after relogin, got %v", got)
	}
}

func TestPollFeedError(t *testing.T) {
	module := newTestModule(t, &stubUploader{}, nil, Config{})
	module.http = &http.Client{Transport: testTransport(func(*http.Request) (*http.Response, error) {
		return response(http.StatusBadGateway, "text/plain", "bad gateway"), nil
	})}
	if _, err := module.Poll(context.Background(), module.config.Feeds[0]); err == nil {
		t.Fatalf("expected feed error")
	}
}

func TestNewModuleValidation(t *testing.T) {
	if _, err := NewModule(zap.NewNop(), nil, nil, nil, nil, Config{Feeds: []Feed{{URL: feedURL, FolderID: 1}}}); err == nil {
		t.Fatalf("expected uploader error")
	}
	if _, err := NewModule(zap.NewNop(), &stubUploader{}, nil, nil, nil, Config{}); err == nil {
		t.Fatalf("expected feeds error")
	}
	if _, err := NewModule(zap.NewNop(), &stubUploader{}, nil, nil, nil, Config{Feeds: []Feed{{URL: feedURL}}}); err == nil {
		t.Fatalf("expected folder error")
	}
}

func TestFileNameAndUniqueName(t *testing.T) {
	if got := fileName(candidate{url: "http://x.test/a/b/photo.jpg?size=large"}); got != "photo.jpg" {
		t.Fatalf("fileName = %q", got)
	}
	if got := fileName(candidate{url: "http://x.test/", title: "Poster"}); got != "Poster" {
		t.Fatalf("fileName fallback = %q", got)
	}
	taken := map[string]string{"photo.jpg": "a", "photo_2.jpg": "b"}
	if got := uniqueName("photo.jpg", taken); got != "photo_3.jpg" {
		t.Fatalf("uniqueName = %q", got)
	}
}
