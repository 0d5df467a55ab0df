// Package session manages the authentication lifecycle: login, silent
// restore of a remembered session, expiry and logout. Any storage or
// decryption failure along the way degrades to the signed-out state rather
// than surfacing to the user.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/logging"
	"github.com/mkarpov/usagevault/internal/models"
	"github.com/mkarpov/usagevault/internal/storage"
)

// State is the session lifecycle state.
type State int

const (
	SignedOut State = iota
	Authenticating
	SignedIn
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case SignedIn:
		return "signed-in"
	default:
		return "signed-out"
	}
}

const (
	credentialKey = "credentials"

	sessionTTL  = 24 * time.Hour
	rememberTTL = 30 * 24 * time.Hour
)

// Manager owns the session state machine. All methods are safe for
// concurrent use.
type Manager struct {
	vault  *storage.Vault
	logger logging.Logger

	mu      sync.RWMutex
	state   State
	profile *models.UserProfile
	token   string

	// now is a seam for expiry tests.
	now func() time.Time
}

func NewManager(vault *storage.Vault, logger logging.Logger) *Manager {
	return &Manager{
		vault:  vault,
		logger: logger,
		state:  SignedOut,
		now:    time.Now,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsSignedIn reports whether a user is currently signed in.
func (m *Manager) IsSignedIn() bool {
	return m.State() == SignedIn
}

// CurrentUser returns the signed-in profile, or nil when signed out.
func (m *Manager) CurrentUser() *models.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != SignedIn {
		return nil
	}
	p := *m.profile
	return &p
}

// Token returns the current session token, empty when signed out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Login validates the credentials and transitions to SignedIn. With
// rememberMe the credentials are persisted encrypted so a later Restore can
// resume the session silently; a persistence failure is logged but does not
// fail the login.
func (m *Manager) Login(ctx context.Context, email, secret string, rememberMe bool) error {
	email = strings.TrimSpace(email)
	if email == "" || secret == "" {
		return fmt.Errorf("%w: email and secret are required", common.ErrUnauthorized)
	}

	m.mu.Lock()
	m.state = Authenticating
	m.mu.Unlock()

	now := m.now()
	ttl := sessionTTL
	if rememberMe {
		ttl = rememberTTL
	}

	token, err := issueToken(email, now, ttl)
	if err != nil {
		m.mu.Lock()
		m.state = SignedOut
		m.mu.Unlock()
		return fmt.Errorf("failed to issue session token: %w", err)
	}

	if rememberMe {
		record := models.CredentialRecord{
			Email:      email,
			Secret:     secret,
			RememberMe: true,
			CreatedAt:  now,
			ExpiresAt:  now.Add(ttl),
		}
		if err := m.vault.Set(ctx, credentialKey, record); err != nil {
			m.logger.Warn(ctx, "failed to persist credentials, session will not survive restart", "error", err)
		}
	}

	m.mu.Lock()
	m.state = SignedIn
	m.profile = &models.UserProfile{Email: email, SignedInAt: now}
	m.token = token
	m.mu.Unlock()

	m.logger.Info(ctx, "signed in", "email", email, "remember_me", rememberMe)
	return nil
}

// Restore attempts a silent sign-in from a remembered credential record.
// It returns true only on success; a missing, expired, undecryptable or
// unreadable record all leave the manager signed out, and an expired record
// is physically deleted.
func (m *Manager) Restore(ctx context.Context) bool {
	var record models.CredentialRecord
	found, err := m.vault.Get(ctx, credentialKey, &record)
	if err != nil {
		m.logger.Warn(ctx, "session restore failed", "error", err)
		return false
	}
	if !found {
		return false
	}

	now := m.now()
	if record.Expired(now) {
		m.logger.Info(ctx, "remembered session expired, cleaning up", "email", record.Email)
		if err := m.vault.Delete(ctx, credentialKey); err != nil {
			m.logger.Warn(ctx, "failed to delete expired credentials", "error", err)
		}
		return false
	}

	token, err := issueToken(record.Email, now, record.ExpiresAt.Sub(now))
	if err != nil {
		m.logger.Warn(ctx, "session restore failed", "error", err)
		return false
	}

	m.mu.Lock()
	m.state = SignedIn
	m.profile = &models.UserProfile{Email: record.Email, SignedInAt: now}
	m.token = token
	m.mu.Unlock()

	m.logger.Info(ctx, "session restored", "email", record.Email)
	return true
}

// Logout transitions to SignedOut and removes any persisted credentials.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	email := ""
	if m.profile != nil {
		email = m.profile.Email
	}
	m.state = SignedOut
	m.profile = nil
	m.token = ""
	m.mu.Unlock()

	if err := m.vault.Delete(ctx, credentialKey); err != nil {
		return fmt.Errorf("failed to remove persisted credentials: %w", err)
	}
	m.logger.Info(ctx, "signed out", "email", email)
	return nil
}

// expireIfNeeded signs the user out when the in-memory session has passed
// its token expiry. Returns true when an expiry happened.
func (m *Manager) expireIfNeeded(ctx context.Context) bool {
	m.mu.RLock()
	token := m.token
	state := m.state
	m.mu.RUnlock()
	if state != SignedIn {
		return false
	}
	if _, err := parseToken(token); err == nil {
		return false
	}

	m.logger.Info(ctx, "session expired")
	if err := m.Logout(ctx); err != nil {
		m.logger.Warn(ctx, "cleanup after session expiry failed", "error", err)
	}
	return true
}

// StartExpiryWatcher periodically checks the active session for expiry
// until ctx is cancelled.
func (m *Manager) StartExpiryWatcher(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireIfNeeded(ctx)
			}
		}
	}()
}
