// Package records persists the append-only usage log.
package records

import (
	"context"

	"github.com/mkarpov/usagevault/internal/models"
)

// Filter narrows a usage query. All set fields are combined conjunctively.
// FromDate/ToDate are inclusive ISO days (YYYY-MM-DD); empty means unbounded.
type Filter struct {
	FromDate string
	ToDate   string
	Source   models.Source
	Model    string
}

// Repository is the contract for the usage_records collection.
//
// Append assigns the record's auto-increment ID. Query returns records in
// insertion order; callers wanting time order must sort themselves, since
// the source data does not enforce it either.
type Repository interface {
	Append(ctx context.Context, rec *models.UsageRecord) error
	Query(ctx context.Context, f Filter) ([]models.UsageRecord, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}
