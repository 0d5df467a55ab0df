package kvcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the cached payload, or common.ErrNotFound when the key is
// absent or expired. An expired entry is deleted before reporting the miss,
// so stale data is never returned even if the sweep has not run.
func (r *SQLiteRepository) Get(ctx context.Context, key string, now time.Time) ([]byte, error) {
	var payload []byte
	var expiresAtMs int64
	err := r.db.QueryRowContext(ctx,
		`SELECT payload, expires_at_ms FROM cache_entries WHERE key = ?`, key,
	).Scan(&payload, &expiresAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapStorage(fmt.Errorf("failed to get cache_entries[%s]: %w", key, err))
	}

	if now.UnixMilli() > expiresAtMs {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
			return nil, common.WrapStorage(fmt.Errorf("failed to evict expired cache_entries[%s]: %w", key, err))
		}
		return nil, common.ErrNotFound
	}
	return payload, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, payload []byte, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, expires_at_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, expires_at_ms = excluded.expires_at_ms
	`, key, payload, expiresAt.UnixMilli())
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to set cache_entries[%s]: %w", key, err))
	}
	return nil
}

// Sweep deletes every expired entry and reports how many were removed.
func (r *SQLiteRepository) Sweep(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at_ms < ?`, now.UnixMilli())
	if err != nil {
		return 0, common.WrapStorage(fmt.Errorf("failed to sweep cache_entries: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.WrapStorage(err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to clear cache_entries: %w", err))
	}
	return nil
}
