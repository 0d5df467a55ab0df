package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/user"
	"runtime"
	"strings"
)

// Fingerprint produces the raw material hashed into the device identifier.
// It is a package variable so a real user-supplied secret source can replace
// it later without touching any call site.
var Fingerprint = defaultFingerprint

func defaultFingerprint() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}

	username := "unknown-user"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	return strings.Join([]string{hostname, runtime.GOOS, runtime.GOARCH, username}, "|")
}

// DeviceID returns a stable-per-device, non-secret identifier used as the
// encryption password for locally stored data when no user secret exists.
//
// This is obfuscation, not authentication: it protects against casual disk
// inspection only. Anyone with code execution on the device can recompute
// the same identifier. Do not present this as a security boundary.
func DeviceID() string {
	sum := sha256.Sum256([]byte("usagevault|" + Fingerprint()))
	return hex.EncodeToString(sum[:])
}
