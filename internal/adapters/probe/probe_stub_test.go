//go:build !gstreamer

package probe

import (
	"context"
	"errors"
	"testing"
)

func TestStubReportsUnavailable(t *testing.T) {
	if _, err := New(0); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var p Prober
	if _, err := p.ProbeDuration(context.Background(), "clip.mp4"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
