//go:build gstreamer

package probe

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
)

const pollInterval = 20 * time.Millisecond

var gstInitOnce sync.Once

// Prober reads media durations by prerolling a GStreamer pipeline.
type Prober struct {
	timeout time.Duration
}

// New returns a prober that gives up on a file after timeout.
func New(timeout time.Duration) (*Prober, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	gstInitOnce.Do(func() {
		gst.Init(nil)
	})
	return &Prober{timeout: timeout}, nil
}

// ProbeDuration returns the duration of the media file at path.
func (p *Prober) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	uri := (&url.URL{Scheme: "file", Path: abs}).String()
	launch := fmt.Sprintf("uridecodebin uri=%q caps=video/x-raw expose-all-streams=false ! fakesink sync=false", uri)
	pipeline, err := gst.ParseLaunch(launch)
	if err != nil {
		return 0, fmt.Errorf("build probe pipeline: %w", err)
	}
	defer func() { _ = pipeline.SetState(gst.StateNull) }()

	if err := pipeline.SetState(gst.StatePaused); err != nil {
		return 0, fmt.Errorf("preroll %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if ok, ns := pipeline.QueryDuration(gst.FormatTime); ok && ns > 0 {
			return time.Duration(ns), nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return 0, fmt.Errorf("probe %s: no duration after %s", path, p.timeout)
			}
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}
