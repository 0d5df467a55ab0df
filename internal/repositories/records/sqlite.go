package records

import (
	"context"
	"fmt"
	"strings"
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

// Append inserts a usage record and fills in its assigned ID.
func (r *SQLiteRepository) Append(ctx context.Context, rec *models.UsageRecord) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_records (source, model, tokens, cost, ts_ms, date)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(rec.Source), rec.Model, rec.Tokens, rec.Cost, rec.Timestamp.UnixMilli(), rec.Date)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to append usage record: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to get usage record id: %w", err))
	}
	rec.ID = id
	return nil
}

// Query lists records matching the filter, ordered by insertion (id).
func (r *SQLiteRepository) Query(ctx context.Context, f Filter) ([]models.UsageRecord, error) {
	var conds []string
	var args []any

	if f.FromDate != "" {
		conds = append(conds, "date >= ?")
		args = append(args, f.FromDate)
	}
	if f.ToDate != "" {
		conds = append(conds, "date <= ?")
		args = append(args, f.ToDate)
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(f.Source))
	}
	if f.Model != "" {
		conds = append(conds, "model = ?")
		args = append(args, f.Model)
	}

	query := `SELECT id, source, model, tokens, cost, ts_ms, date FROM usage_records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.WrapStorage(fmt.Errorf("failed to query usage records: %w", err))
	}
	defer rows.Close()

	var result []models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		var source string
		var tsMs int64
		if err := rows.Scan(&rec.ID, &source, &rec.Model, &rec.Tokens, &rec.Cost, &tsMs, &rec.Date); err != nil {
			return nil, common.WrapStorage(err)
		}
		rec.Source = models.Source(source)
		rec.Timestamp = time.UnixMilli(tsMs).UTC()
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapStorage(err)
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_records`).Scan(&n)
	if err != nil {
		return 0, common.WrapStorage(fmt.Errorf("failed to count usage records: %w", err))
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM usage_records`)
	if err != nil {
		return common.WrapStorage(fmt.Errorf("failed to clear usage records: %w", err))
	}
	return nil
}
