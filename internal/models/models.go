// Package models defines the data records persisted by the storage layer:
// usage records, queued sync items, and the encrypted credential record.
// The cache and preference collections store primitive payloads and need no
// record types of their own.
package models

import (
	"encoding/json"
	"time"
)

// Source identifies where a usage record originated.
type Source string

const (
	SourceWeb    Source = "web"
	SourceCode   Source = "code"
	SourceManual Source = "manual"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceWeb, SourceCode, SourceManual:
		return true
	}
	return false
}

// UsageRecord is one append-only entry in the usage log.
// Date is the ISO day (YYYY-MM-DD) of Timestamp, stored denormalized so
// day-range queries need no time arithmetic.
type UsageRecord struct {
	ID        int64     `json:"id"`
	Source    Source    `json:"source"`
	Model     string    `json:"model"`
	Tokens    uint64    `json:"tokens"`
	Cost      float64   `json:"cost"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
}

// SyncItem is a write deferred while offline, awaiting replay.
// Key is a stable unique id (UUID) sent as the idempotency key on replay,
// so at-least-once delivery cannot double-count.
type SyncItem struct {
	ID         int64           `json:"id"`
	Key        string          `json:"key"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// CredentialRecord is the login credential persisted (encrypted) when the
// user asks to be remembered. ExpiresAt is always CreatedAt plus the
// session TTL chosen at login time.
type CredentialRecord struct {
	Email      string    `json:"email"`
	Secret     string    `json:"secret"`
	RememberMe bool      `json:"remember_me"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the record's session lifetime has passed.
func (c CredentialRecord) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// UserProfile is the in-memory representation of the signed-in user.
type UserProfile struct {
	Email      string    `json:"email"`
	SignedInAt time.Time `json:"signed_in_at"`
}
