package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/cryptox"
	"github.com/mkarpov/usagevault/internal/repositories/secure"
	"github.com/mkarpov/usagevault/internal/testutil"

	_ "modernc.org/sqlite"
)

func setupVault(t *testing.T, password string) (*Vault, secure.Repository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE secure_data (key TEXT PRIMARY KEY, blob TEXT NOT NULL);`)
	require.NoError(t, err)

	repo := secure.NewSQLiteRepository(db)
	return NewVault(repo, password, testutil.NewLogger(t)), repo
}

type profile struct {
	Email string `json:"email"`
}

func TestVault_SetGetRoundTrip(t *testing.T) {
	v, _ := setupVault(t, "device-pw")
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, "userProfile", profile{Email: "user@example.com"}))

	var out profile
	ok, err := v.Get(ctx, "userProfile", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "user@example.com", out.Email)
}

func TestVault_GetAbsentKey(t *testing.T) {
	v, _ := setupVault(t, "pw")

	var out profile
	ok, err := v.Get(context.Background(), "missing", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVault_StoresOnlyCiphertext(t *testing.T) {
	v, repo := setupVault(t, "pw")
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, "userProfile", profile{Email: "secret@example.com"}))

	blob, err := repo.Get(ctx, "userProfile")
	require.NoError(t, err)
	assert.NotContains(t, blob, "secret@example.com")
	assert.NotContains(t, blob, "email")
}

func TestVault_UndecryptableBlobTreatedAsAbsent(t *testing.T) {
	v, repo := setupVault(t, "pw")
	ctx := context.Background()

	// blob written under a different password (simulates a device change)
	foreign, err := cryptox.Encrypt(profile{Email: "x@y.z"}, "other-device")
	require.NoError(t, err)
	require.NoError(t, repo.Set(ctx, "userProfile", foreign))

	var out profile
	ok, err := v.Get(ctx, "userProfile", &out)
	require.NoError(t, err, "decryption failure must not surface as an error")
	assert.False(t, ok)
	assert.Empty(t, out.Email, "no partial data on failure")
}

func TestVault_DeleteIsIdempotent(t *testing.T) {
	v, _ := setupVault(t, "pw")
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, "k", profile{Email: "a@b.c"}))
	require.NoError(t, v.Delete(ctx, "k"))
	require.NoError(t, v.Delete(ctx, "k"))

	var out profile
	ok, err := v.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVault_StorageFailureSurfacesError(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE secure_data (key TEXT PRIMARY KEY, blob TEXT NOT NULL);`)
	require.NoError(t, err)
	repo := secure.NewSQLiteRepository(db)
	v := NewVault(repo, "pw", testutil.NewNopLogger())
	require.NoError(t, db.Close())

	var out profile
	_, err = v.Get(context.Background(), "k", &out)
	assert.ErrorIs(t, err, common.ErrStorage)
}
