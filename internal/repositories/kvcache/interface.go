// Package kvcache stores short-lived derived values with per-entry expiry.
// Distinct from the long-lived usage log: everything here is advisory and
// recomputable.
package kvcache

import (
	"context"
	"time"
)

// Repository is the contract for the cache_entries collection.
//
// Expiry is checked on every Get, not via the sweep: a read past the
// entry's deadline deletes it and reports common.ErrNotFound. Sweep only
// bounds growth of entries nobody reads anymore; correctness does not
// depend on it.
type Repository interface {
	Get(ctx context.Context, key string, now time.Time) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, expiresAt time.Time) error
	Sweep(ctx context.Context, now time.Time) (int64, error)
	Clear(ctx context.Context) error
}
