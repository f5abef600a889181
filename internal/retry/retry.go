// Package retry wraps idempotent read calls with exponential backoff.
//
// Only reads (embedding, similarity search, web search provider) go through
// here. Write paths are never retried; they rely on dedup-by-key instead.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultAttempts = 3

// Do runs op with exponential backoff, up to 3 attempts total.
// Context cancellation stops the retry loop immediately.
func Do(ctx context.Context, op func() error) error {
	return DoN(ctx, defaultAttempts, op)
}

// DoN runs op with exponential backoff, up to attempts tries total.
func DoN(ctx context.Context, attempts uint64, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second

	policy := backoff.WithContext(backoff.WithMaxRetries(b, attempts-1), ctx)
	return backoff.Retry(op, policy)
}
