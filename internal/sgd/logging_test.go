package sgd

import "testing"

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "json", Output: "stderr", UTC: true})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !logger.Core().Enabled(-1) {
		t.Fatalf("expected debug enabled")
	}
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	logger, err := NewLogger(LogConfig{})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if logger.Core().Enabled(-1) {
		t.Fatalf("expected debug disabled")
	}
}

func TestNewLoggerRejectsLevel(t *testing.T) {
	if _, err := NewLogger(LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
}
