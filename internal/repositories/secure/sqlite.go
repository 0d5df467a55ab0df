package secure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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
	var blob string
	err := r.db.QueryRowContext(ctx, `SELECT blob FROM secure_data WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", common.WrapStorage(fmt.Errorf("failed to get secure_data[%s]: %w", key, err))
	}
	return blob, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, blob string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO secure_data (key, blob) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET blob = excluded.blob
	`, key, blob)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to set secure_data[%s]: %w", key, err))
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM secure_data WHERE key = ?`, key)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to delete secure_data[%s]: %w", key, err))
	}
	return nil
}

func (r *SQLiteRepository) Keys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key FROM secure_data`)
	if err != nil {
		return nil, common.WrapStorage(fmt.Errorf("failed to list secure_data keys: %w", err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, common.WrapStorage(err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStorage(err)
	}
	return keys, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM secure_data`)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to clear secure_data: %w", err))
	}
	return nil
}
