package cache

import (
	"context"
	"time"
)

// SummaryCache is a read-through cache for dashboard summaries. The
// value is an opaque JSON payload so callers own the schema.
type SummaryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Noop satisfies SummaryCache when no redis is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) InvalidatePrefix(context.Context, string) error { return nil }
