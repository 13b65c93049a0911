package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds single-document reads and writes
	DefaultTimeout = 10 * time.Second

	// LongTimeout is for listings, exports and anything that embeds text
	LongTimeout = 30 * time.Second

	// ShortTimeout is for cache and health checks
	ShortTimeout = 2 * time.Second
)

func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}

func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}

// WithCustomTimeout is used for chat turns, whose bound depends on how long
// the agent service may hold the reply poll open.
func WithCustomTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}
