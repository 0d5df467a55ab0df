// Package storage assembles the five client collections behind one facade.
// It prefers the embedded SQLite database; when that cannot be opened it
// falls back to flat-file storage. The backend is chosen once at open time
// and callers never observe which one is serving them.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/dbx"
	"github.com/mkarpov/usagevault/internal/logging"
	"github.com/mkarpov/usagevault/internal/repositories/flatkv"
	"github.com/mkarpov/usagevault/internal/repositories/kvcache"
	"github.com/mkarpov/usagevault/internal/repositories/prefs"
	"github.com/mkarpov/usagevault/internal/repositories/records"
	"github.com/mkarpov/usagevault/internal/repositories/secure"
	"github.com/mkarpov/usagevault/internal/repositories/syncqueue"
	"github.com/mkarpov/usagevault/internal/storage/migrations"

	_ "modernc.org/sqlite"
)

const (
	dbFileName   = "usagevault.db"
	flatFileName = common.StorageNamespace + ".json"

	legacyImportPref = "legacy_flat_imported"
)

// Storage exposes the five collections. Exactly one backend serves all of
// them; there is no per-collection mixing and no mid-session switching.
type Storage struct {
	Secure  secure.Repository
	Records records.Repository
	Cache   kvcache.Repository
	Prefs   prefs.Repository
	Sync    syncqueue.Repository

	db     *sql.DB       // nil when the flat backend is active
	flat   *flatkv.Store // nil when the database backend is active
	logger logging.Logger
	now    func() time.Time
}

// Open initializes storage under dataDir. It tries the embedded database
// first and degrades to flat-file storage on any open or migration failure;
// the failure is logged but not surfaced, per the transparent-fallback
// contract.
func Open(ctx context.Context, dataDir string, logger logging.Logger) (*Storage, error) {
	s := &Storage{logger: logger, now: time.Now}

	db, err := openDatabase(ctx, filepath.Join(dataDir, dbFileName))
	if err != nil {
		logger.Warn(ctx, "embedded database unavailable, using flat storage", "error", err)

		flat, ferr := flatkv.Open(filepath.Join(dataDir, flatFileName))
		if ferr != nil {
			return nil, ferr
		}
		s.flat = flat
		s.Secure = flat.Secure()
		s.Records = flat.Records()
		s.Cache = flat.Cache()
		s.Prefs = flat.Prefs()
		s.Sync = flat.Sync()
		return s, nil
	}

	s.db = db
	s.Secure = secure.NewSQLiteRepository(db)
	s.Records = records.NewSQLiteRepository(db)
	s.Cache = kvcache.NewSQLiteRepository(db)
	s.Prefs = prefs.NewSQLiteRepository(db)
	s.Sync = syncqueue.NewSQLiteRepository(db)

	if err := s.importLegacyFlatData(ctx, filepath.Join(dataDir, flatFileName)); err != nil {
		// import is best-effort: old flat data stays where it was
		logger.Warn(ctx, "legacy flat-storage import failed", "error", err)
	}
	return s, nil
}

// openDatabase opens the single shared connection handle and applies
// migrations. SQLite serializes transactions internally, so no pooling is
// configured beyond a single writer.
func openDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// importLegacyFlatData copies encrypted blobs left behind by a previous
// flat-storage session into the database, exactly once. The blobs are moved
// as-is: they are ciphertext and need no re-encryption.
func (s *Storage) importLegacyFlatData(ctx context.Context, flatPath string) error {
	if _, err := s.Prefs.Get(ctx, legacyImportPref); err == nil {
		return nil // already imported
	}

	flat, err := flatkv.Open(flatPath)
	if err != nil {
		return err
	}

	blobs := flat.SecureSnapshot()
	if len(blobs) > 0 {
		err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			repo := secure.NewSQLiteRepository(tx)
			for key, blob := range blobs {
				if err := repo.Set(ctx, key, blob); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		s.logger.Info(ctx, "imported legacy flat-storage blobs", "count", len(blobs))
	}

	return s.Prefs.Set(ctx, legacyImportPref, "1", s.now())
}

// ClearAll wipes every collection plus any flat-storage file under this
// app's namespace. Only for the explicit user-initiated "clear my data".
func (s *Storage) ClearAll(ctx context.Context) error {
	if s.db != nil {
		err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := secure.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
			if err := records.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
			if err := kvcache.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
			if err := prefs.NewSQLiteRepository(tx).Clear(ctx); err != nil {
				return err
			}
			return syncqueue.NewSQLiteRepository(tx).Clear(ctx)
		})
		if err != nil {
			return err
		}
	}
	if s.flat != nil {
		return s.flat.Wipe()
	}
	return nil
}

// StartCacheSweeper periodically removes expired cache entries. Growth
// bounding only: reads already treat expired entries as misses.
func (s *Storage) StartCacheSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := s.Cache.Sweep(ctx, s.now())
			if err != nil {
				s.logger.Warn(ctx, "cache sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.logger.Debug(ctx, "cache sweep done", "removed", removed)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close releases the underlying database handle, if any.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
