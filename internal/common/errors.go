// Package common defines shared constants and sentinel errors used across
// usagevault components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Crypto errors.
	ErrKeyDerivation = errors.New("key derivation failed")
	ErrDecryption    = errors.New("decryption failed")

	// Storage errors (transaction abort, quota, unusable backend).
	ErrStorage = errors.New("storage failure")

	// Network errors, classified by the offline layer.
	ErrOffline = errors.New("network unavailable")
	ErrServer  = errors.New("server error")

	// Auth / session lifecycle errors.
	ErrUnauthorized   = errors.New("unauthorized")
	ErrSessionExpired = errors.New("session expired")
)

// WrapStorage tags err as a storage failure while preserving the cause chain,
// so callers can match it with errors.Is(err, ErrStorage).
func WrapStorage(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
