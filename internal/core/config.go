package core

import "time"

// Config is runtime configuration for the CLI.
type Config struct {
	Backend       string
	Timeout       time.Duration
	Broker        string
	TopicBase     string
	MaxFiles      int
	DefaultFolder int64
	Remember      bool
	// DefaultRange is the quick range seeded into dated list filters.
	DefaultRange string
}
