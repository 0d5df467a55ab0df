// Package syncqueue persists writes deferred while offline, awaiting replay.
package syncqueue

import (
	"context"

	"github.com/mkarpov/usagevault/internal/models"
)

// Repository is the contract for the sync_queue collection.
//
// Enqueue assigns the item's auto-increment ID; the caller is expected to
// have set Key (the idempotency key) and EnqueuedAt. List returns items in
// enqueue order. Delete removes one confirmed item; Clear must only be
// called after every item was confirmed processed; partial-success
// handling is the caller's responsibility.
type Repository interface {
	Enqueue(ctx context.Context, item *models.SyncItem) error
	List(ctx context.Context) ([]models.SyncItem, error)
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}
