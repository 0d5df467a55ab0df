// Package common contains shared constants and sentinel errors used across
// usagevault components.
package common

// StorageNamespace prefixes every flat-storage key owned by this app, so a
// user-initiated wipe can find and remove them without touching other data.
const StorageNamespace = "usagevault"

// IdempotencyKeyHeader carries the stable per-item key on sync replay
// requests, letting the receiving side deduplicate at-least-once delivery.
const IdempotencyKeyHeader = "Idempotency-Key"
