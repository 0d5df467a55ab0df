package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/cryptox"
	"github.com/mkarpov/usagevault/internal/repositories/flatkv"
	"github.com/mkarpov/usagevault/internal/storage"
	"github.com/mkarpov/usagevault/internal/testutil"
)

func newTestManager(t *testing.T, path string) *Manager {
	t.Helper()
	store, err := flatkv.Open(path)
	require.NoError(t, err)
	logger := testutil.NewLogger(t)
	vault := storage.NewVault(store.Secure(), cryptox.DeviceID(), logger)
	return NewManager(vault, logger)
}

func TestLoginTransitionsToSignedIn(t *testing.T) {
	m := newTestManager(t, filepath.Join(t.TempDir(), "vault.json"))
	ctx := context.Background()

	assert.Equal(t, SignedOut, m.State())

	require.NoError(t, m.Login(ctx, "user@example.com", "sk-test", false))
	assert.Equal(t, SignedIn, m.State())
	assert.True(t, m.IsSignedIn())

	user := m.CurrentUser()
	require.NotNil(t, user)
	assert.Equal(t, "user@example.com", user.Email)
	assert.NotEmpty(t, m.Token())
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	m := newTestManager(t, filepath.Join(t.TempDir(), "vault.json"))
	ctx := context.Background()

	err := m.Login(ctx, "", "secret", false)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, SignedOut, m.State())

	err = m.Login(ctx, "user@example.com", "", false)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, SignedOut, m.State())
}

func TestRestoreAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	ctx := context.Background()

	m1 := newTestManager(t, path)
	require.NoError(t, m1.Login(ctx, "user@example.com", "sk-test", true))

	// A fresh manager over the same storage models a process restart.
	m2 := newTestManager(t, path)
	require.True(t, m2.Restore(ctx))
	assert.True(t, m2.IsSignedIn())
	assert.Equal(t, "user@example.com", m2.CurrentUser().Email)
}

func TestRestoreWithoutRememberMe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	ctx := context.Background()

	m1 := newTestManager(t, path)
	require.NoError(t, m1.Login(ctx, "user@example.com", "sk-test", false))

	m2 := newTestManager(t, path)
	assert.False(t, m2.Restore(ctx))
	assert.Equal(t, SignedOut, m2.State())
}

func TestRestoreExpiredRecordCleansUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	ctx := context.Background()

	m1 := newTestManager(t, path)
	m1.now = func() time.Time { return time.Now().Add(-31 * 24 * time.Hour) }
	require.NoError(t, m1.Login(ctx, "user@example.com", "sk-test", true))

	m2 := newTestManager(t, path)
	assert.False(t, m2.Restore(ctx))
	assert.Equal(t, SignedOut, m2.State())

	// The expired record was physically deleted, not merely ignored.
	store, err := flatkv.Open(path)
	require.NoError(t, err)
	assert.Empty(t, store.SecureSnapshot())
}

func TestRestoreOnFreshInstall(t *testing.T) {
	m := newTestManager(t, filepath.Join(t.TempDir(), "vault.json"))
	assert.False(t, m.Restore(context.Background()))
	assert.Equal(t, SignedOut, m.State())
}

func TestLogoutRemovesPersistedCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.json")
	ctx := context.Background()

	m := newTestManager(t, path)
	require.NoError(t, m.Login(ctx, "user@example.com", "sk-test", true))
	require.NoError(t, m.Logout(ctx))

	assert.Equal(t, SignedOut, m.State())
	assert.Nil(t, m.CurrentUser())
	assert.Empty(t, m.Token())

	m2 := newTestManager(t, path)
	assert.False(t, m2.Restore(ctx))
}

func TestExpiryWatcherSignsOut(t *testing.T) {
	m := newTestManager(t, filepath.Join(t.TempDir(), "vault.json"))
	ctx := context.Background()

	// Sign in with a clock far enough in the past that the token is
	// already expired when checked against real time.
	m.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	require.NoError(t, m.Login(ctx, "user@example.com", "sk-test", false))
	require.Equal(t, SignedIn, m.State())

	assert.True(t, m.expireIfNeeded(ctx))
	assert.Equal(t, SignedOut, m.State())
}

func TestExpiryCheckLeavesValidSessionAlone(t *testing.T) {
	m := newTestManager(t, filepath.Join(t.TempDir(), "vault.json"))
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "user@example.com", "sk-test", false))
	assert.False(t, m.expireIfNeeded(ctx))
	assert.Equal(t, SignedIn, m.State())
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := issueToken("user@example.com", time.Now(), time.Hour)
	require.NoError(t, err)

	email, err := parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := issueToken("user@example.com", time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	_, err = parseToken(token)
	require.ErrorIs(t, err, common.ErrSessionExpired)
}
