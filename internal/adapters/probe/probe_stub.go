//go:build !gstreamer

package probe

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when sg is built without the gstreamer tag.
var ErrUnavailable = errors.New("gstreamer build tag not enabled")

// Prober is a stub when gstreamer tag is not enabled.
type Prober struct{}

// New returns ErrUnavailable when gstreamer build tag is missing.
func New(timeout time.Duration) (*Prober, error) {
	return nil, ErrUnavailable
}

// ProbeDuration always fails without gstreamer.
func (p *Prober) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	return 0, ErrUnavailable
}
