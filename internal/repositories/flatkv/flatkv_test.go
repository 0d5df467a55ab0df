package flatkv

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/models"
	"github.com/mkarpov/usagevault/internal/repositories/records"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	return s
}

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	s := openStore(t)

	_, err := s.Secure().Get(context.Background(), "anything")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSecure_RoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Secure().Set(ctx, "credentials", "blob1"))

	// a fresh Store over the same file must see the write
	s2, err := Open(path)
	require.NoError(t, err)
	v, err := s2.Secure().Get(ctx, "credentials")
	require.NoError(t, err)
	assert.Equal(t, "blob1", v)
}

func TestRecords_RollingWindowCap(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	r := s.Records()

	for i := 0; i < MaxRecords+25; i++ {
		require.NoError(t, r.Append(ctx, &models.UsageRecord{
			Source: models.SourceWeb,
			Model:  "claude-3-haiku",
			Tokens: uint64(i),
			Date:   "2026-08-01",
		}))
	}

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, MaxRecords, n)

	// the oldest 25 must be the ones dropped
	got, err := r.Query(ctx, records.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 25, got[0].Tokens)
}

func TestRecords_FilterMatchesSQLiteSemantics(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	r := s.Records()

	dates := []string{"2026-08-01", "2026-08-02", "2026-08-03"}
	for i, d := range dates {
		require.NoError(t, r.Append(ctx, &models.UsageRecord{
			Source: models.SourceCode,
			Model:  fmt.Sprintf("m%d", i),
			Date:   d,
		}))
	}

	got, err := r.Query(ctx, records.Filter{FromDate: "2026-08-02", ToDate: "2026-08-03"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].Model)
}

func TestCache_ExpiryOnRead(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	c := s.Cache()
	now := time.Now()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), now.Add(100*time.Millisecond)))

	v, err := c.Get(ctx, "k", now)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	_, err = c.Get(ctx, "k", now.Add(150*time.Millisecond))
	assert.ErrorIs(t, err, common.ErrNotFound)

	// entry evicted, not just hidden
	removed, err := c.Sweep(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPrefs_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p := s.Prefs()

	require.NoError(t, p.Set(ctx, "theme", "dark", time.Now()))
	require.NoError(t, p.Set(ctx, "theme", "light", time.Now()))

	v, err := p.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", v)
}

func TestSync_EnqueueListDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	q := s.Sync()

	a := &models.SyncItem{Key: uuid.NewString(), Type: "usage.append", Payload: json.RawMessage(`{}`), EnqueuedAt: time.Now()}
	b := &models.SyncItem{Key: uuid.NewString(), Type: "pref.set", Payload: json.RawMessage(`{}`), EnqueuedAt: time.Now()}
	require.NoError(t, q.Enqueue(ctx, a))
	require.NoError(t, q.Enqueue(ctx, b))

	items, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID)

	require.NoError(t, q.Delete(ctx, a.ID))
	items, err = q.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestWipe_RemovesFileAndState(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Secure().Set(ctx, "k", "v"))
	require.NoError(t, s.Wipe())

	_, err := s.Secure().Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// reopening finds nothing either
	s2, err := Open(s.Path())
	require.NoError(t, err)
	_, err = s2.Secure().Get(ctx, "k")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
