package syncqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/dbx"
	"github.com/mkarpov/usagevault/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, item *models.SyncItem) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (item_key, item_type, payload, enqueued_at_ms)
		VALUES (?, ?, ?, ?)
	`, item.Key, item.Type, []byte(item.Payload), item.EnqueuedAt.UnixMilli())
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to enqueue sync item: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to get sync item id: %w", err))
	}
	item.ID = id
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.SyncItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_key, item_type, payload, enqueued_at_ms FROM sync_queue ORDER BY id`)
	if err != nil {
		return nil, common.WrapStorage(fmt.Errorf("failed to list sync queue: %w", err))
	}
	defer rows.Close()

	var result []models.SyncItem
	for rows.Next() {
		var item models.SyncItem
		var payload []byte
		var enqueuedMs int64
		if err := rows.Scan(&item.ID, &item.Key, &item.Type, &payload, &enqueuedMs); err != nil {
			return nil, common.WrapStorage(err)
		}
		item.Payload = payload
		item.EnqueuedAt = time.UnixMilli(enqueuedMs).UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStorage(err)
	}
	return result, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to delete sync item %d: %w", id, err))
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue`)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to clear sync queue: %w", err))
	}
	return nil
}
