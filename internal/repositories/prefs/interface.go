// Package prefs stores user preferences as last-write-wins key/value pairs.
package prefs

import (
	"context"
	"time"
)

// Repository is the contract for the preferences collection.
//
// Get returns common.ErrNotFound when the key is absent; callers supply
// their own defaults. No TTL, no versioning.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ts time.Time) error
	Clear(ctx context.Context) error
}
