// Package secure stores encrypted blobs by logical key. Values arrive here
// already encrypted; this package never sees plaintext.
package secure

import "context"

// Repository is the contract for the secureData collection.
//
// Get returns common.ErrNotFound when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, blob string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}
