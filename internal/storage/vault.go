package storage

import (
	"context"
	"errors"

	"github.com/mkarpov/usagevault/internal/common"
	"github.com/mkarpov/usagevault/internal/cryptox"
	"github.com/mkarpov/usagevault/internal/logging"
	"github.com/mkarpov/usagevault/internal/repositories/secure"
)

// Vault is the encrypt-then-store / retrieve-then-decrypt wrapper over the
// secure collection. Values are encrypted before they reach the repository
// and decrypted after they leave it; the repository only ever sees
// ciphertext.
type Vault struct {
	repo     secure.Repository
	password string
	logger   logging.Logger
}

// NewVault binds the secure repository to an encryption password. With no
// user-supplied secret, callers pass cryptox.DeviceID(); see there for what
// that does and does not protect against.
func NewVault(repo secure.Repository, password string, logger logging.Logger) *Vault {
	return &Vault{repo: repo, password: password, logger: logger}
}

// Set encrypts v and persists it under key.
func (v *Vault) Set(ctx context.Context, key string, value any) error {
	blob, err := cryptox.Encrypt(value, v.password)
	if err != nil {
		return err
	}
	return v.repo.Set(ctx, key, blob)
}

// Get retrieves and decrypts the value stored under key into out.
//
// Returns (false, nil) when the key is absent or the stored blob cannot be
// decrypted; callers treat both as "not present". The distinction is logged
// here, since an undecryptable blob usually means tampering or a device
// change. Storage failures are returned as errors for the caller to
// downgrade at its own boundary.
func (v *Vault) Get(ctx context.Context, key string, out any) (bool, error) {
	blob, err := v.repo.Get(ctx, key)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := cryptox.Decrypt(blob, v.password, out); err != nil {
		v.logger.Warn(ctx, "stored blob is undecryptable, treating as absent", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// Delete removes the value stored under key. Absent keys are not an error.
func (v *Vault) Delete(ctx context.Context, key string) error {
	return v.repo.Delete(ctx, key)
}
