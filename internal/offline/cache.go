package offline

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/gregjones/httpcache"

	"github.com/mkarpov/usagevault/internal/logging"

	_ "modernc.org/sqlite"
)

// Store is an httpcache.Cache generation that can also be wiped wholesale.
// The response cache is deliberately a separate store from the app's
// storage layer; the two must not be conflated.
type Store interface {
	httpcache.Cache
	Clear() error
}

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu sync.Mutex
	c  *httpcache.MemoryCache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: httpcache.NewMemoryCache()}
}

func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.c.Get(key)
}

func (m *MemoryStore) Set(key string, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Set(key, resp)
}

func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Delete(key)
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c = httpcache.NewMemoryCache()
	return nil
}

// OpenCacheDB opens (and creates if needed) the dedicated response-cache
// database. One handle is shared by every generation.
func OpenCacheDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open response cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS http_cache (
			generation TEXT NOT NULL,
			key        TEXT NOT NULL,
			response   BLOB NOT NULL,
			PRIMARY KEY (generation, key)
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create response cache schema: %w", err)
	}
	return db, nil
}

// SQLiteStore is a durable Store holding one named cache generation.
//
// httpcache.Cache has no error returns, matching the fire-and-forget
// semantics of a service-worker cache: failures are logged and a failed
// read is simply a miss.
type SQLiteStore struct {
	db         *sql.DB
	generation string
	logger     logging.Logger
}

func NewSQLiteStore(db *sql.DB, generation string, logger logging.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, generation: generation, logger: logger}
}

func (s *SQLiteStore) Get(key string) ([]byte, bool) {
	var resp []byte
	err := s.db.QueryRow(
		`SELECT response FROM http_cache WHERE generation = ? AND key = ?`,
		s.generation, key,
	).Scan(&resp)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.logger.Warn(context.Background(), "response cache read failed", "key", key, "error", err)
		return nil, false
	}
	return resp, true
}

func (s *SQLiteStore) Set(key string, resp []byte) {
	_, err := s.db.Exec(`
		INSERT INTO http_cache (generation, key, response) VALUES (?, ?, ?)
		ON CONFLICT(generation, key) DO UPDATE SET response = excluded.response
	`, s.generation, key, resp)
	if err != nil {
		s.logger.Warn(context.Background(), "response cache write failed", "key", key, "error", err)
	}
}

func (s *SQLiteStore) Delete(key string) {
	if _, err := s.db.Exec(
		`DELETE FROM http_cache WHERE generation = ? AND key = ?`, s.generation, key,
	); err != nil {
		s.logger.Warn(context.Background(), "response cache delete failed", "key", key, "error", err)
	}
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM http_cache WHERE generation = ?`, s.generation)
	return err
}

// Generations lists every generation currently present in the cache DB.
func Generations(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT generation FROM http_cache`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CleanupGenerations deletes every cache generation not listed in keep.
// Run on activation so a version bump retires stale caches wholesale; there
// is no per-entry eviction within a generation.
func CleanupGenerations(ctx context.Context, db *sql.DB, keep []string) (int64, error) {
	placeholders := make([]string, len(keep))
	args := make([]any, len(keep))
	for i, g := range keep {
		placeholders[i] = "?"
		args[i] = g
	}

	query := `DELETE FROM http_cache`
	if len(keep) > 0 {
		query += ` WHERE generation NOT IN (` + strings.Join(placeholders, ", ") + `)`
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up cache generations: %w", err)
	}
	return res.RowsAffected()
}
