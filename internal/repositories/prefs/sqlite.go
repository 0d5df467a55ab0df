package prefs

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

func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", common.WrapStorage(fmt.Errorf("failed to get preferences[%s]: %w", key, err))
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, ts_ms) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, ts_ms = excluded.ts_ms
	`, key, value, ts.UnixMilli())
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to set preferences[%s]: %w", key, err))
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM preferences`)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to clear preferences: %w", err))
	}
	return nil
}
