package flatkv

import (
	"context"
	"time"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/models"
	"github.com/mkarpov/usagevault/internal/repositories/records"
)

// The five collection views share the parent Store and its mutex. Each view
// satisfies the corresponding repository interface, so the storage facade
// can swap them in for the SQLite implementations without callers noticing.

// Secure returns the secure-blob view.
func (s *Store) Secure() *SecureRepo { return &SecureRepo{s} }

// Records returns the usage-log view.
func (s *Store) Records() *RecordsRepo { return &RecordsRepo{s} }

// Cache returns the TTL-cache view.
func (s *Store) Cache() *CacheRepo { return &CacheRepo{s} }

// Prefs returns the preferences view.
func (s *Store) Prefs() *PrefsRepo { return &PrefsRepo{s} }

// Sync returns the sync-queue view.
func (s *Store) Sync() *SyncRepo { return &SyncRepo{s} }

type SecureRepo struct{ s *Store }

func (r *SecureRepo) Get(_ context.Context, key string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	blob, ok := r.s.data.Secure[key]
	if !ok {
		return "", common.ErrNotFound
	}
	return blob, nil
}

func (r *SecureRepo) Set(_ context.Context, key string, blob string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.Secure[key] = blob
	return r.s.save()
}

func (r *SecureRepo) Delete(_ context.Context, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.data.Secure, key)
	return r.s.save()
}

func (r *SecureRepo) Keys(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var keys []string
	for k := range r.s.data.Secure {
		keys = append(keys, k)
	}
	return keys, nil
}

func (r *SecureRepo) Clear(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.Secure = map[string]string{}
	return r.s.save()
}

type RecordsRepo struct{ s *Store }

func (r *RecordsRepo) Append(_ context.Context, rec *models.UsageRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec.ID = r.s.data.NextRecordID
	r.s.data.NextRecordID++
	r.s.data.Records = append(r.s.data.Records, *rec)

	// rolling window: drop the oldest entries beyond the cap
	if n := len(r.s.data.Records); n > MaxRecords {
		r.s.data.Records = append([]models.UsageRecord(nil), r.s.data.Records[n-MaxRecords:]...)
	}
	return r.s.save()
}

func (r *RecordsRepo) Query(_ context.Context, f records.Filter) ([]models.UsageRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []models.UsageRecord
	for _, rec := range r.s.data.Records {
		if f.FromDate != "" && rec.Date < f.FromDate {
			continue
		}
		if f.ToDate != "" && rec.Date > f.ToDate {
			continue
		}
		if f.Source != "" && rec.Source != f.Source {
			continue
		}
		if f.Model != "" && rec.Model != f.Model {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

func (r *RecordsRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return int64(len(r.s.data.Records)), nil
}

func (r *RecordsRepo) Clear(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.Records = nil
	return r.s.save()
}

type CacheRepo struct{ s *Store }

func (r *CacheRepo) Get(_ context.Context, key string, now time.Time) ([]byte, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry, ok := r.s.data.Cache[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	if nowMs(now) > entry.ExpiresAtMs {
		delete(r.s.data.Cache, key)
		if err := r.s.save(); err != nil {
			return nil, err
		}
		return nil, common.ErrNotFound
	}
	return entry.Payload, nil
}

func (r *CacheRepo) Set(_ context.Context, key string, payload []byte, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.Cache[key] = cacheEntry{Payload: payload, ExpiresAtMs: nowMs(expiresAt)}
	return r.s.save()
}

func (r *CacheRepo) Sweep(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var removed int64
	for k, entry := range r.s.data.Cache {
		if nowMs(now) > entry.ExpiresAtMs {
			delete(r.s.data.Cache, k)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, r.s.save()
}

func (r *CacheRepo) Clear(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.Cache = map[string]cacheEntry{}
	return r.s.save()
}

type PrefsRepo struct{ s *Store }

func (r *PrefsRepo) Get(_ context.Context, key string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry, ok := r.s.data.Prefs[key]
	if !ok {
		return "", common.ErrNotFound
	}
	return entry.Value, nil
}

func (r *PrefsRepo) Set(_ context.Context, key string, value string, ts time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.Prefs[key] = prefEntry{Value: value, TsMs: nowMs(ts)}
	return r.s.save()
}

func (r *PrefsRepo) Clear(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.Prefs = map[string]prefEntry{}
	return r.s.save()
}

type SyncRepo struct{ s *Store }

func (r *SyncRepo) Enqueue(_ context.Context, item *models.SyncItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item.ID = r.s.data.NextSyncID
	r.s.data.NextSyncID++
	r.s.data.Sync = append(r.s.data.Sync, *item)
	return r.s.save()
}

func (r *SyncRepo) List(_ context.Context) ([]models.SyncItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return append([]models.SyncItem(nil), r.s.data.Sync...), nil
}

func (r *SyncRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.data.Sync[:0]
	for _, item := range r.s.data.Sync {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	r.s.data.Sync = kept
	return r.s.save()
}

func (r *SyncRepo) Clear(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.data.Sync = nil
	return r.s.save()
}
