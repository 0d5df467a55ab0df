// Package cryptox implements the at-rest encryption used for locally stored
// credentials and other sensitive values: PBKDF2-SHA256 key derivation plus
// AES-256-GCM authenticated encryption of JSON-serializable payloads.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mkarpov/usagevault/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 work factor. Must never decrease, or
	// previously written blobs become undecryptable.
	Iterations = 100_000

	saltSize  = 16
	nonceSize = 12
	keySize   = 32
)

// DeriveKey derives a 256-bit AES key from (password, salt) with
// PBKDF2-SHA256. Deterministic given identical inputs, so the same device
// can re-derive the same key across sessions without storing the raw key.
// Salts are not secret, but must be random per stored blob.
func DeriveKey(password, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: empty password", common.ErrKeyDerivation)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("%w: empty salt", common.ErrKeyDerivation)
	}
	return pbkdf2.Key(password, salt, Iterations, keySize, sha256.New), nil
}

// Encrypt serializes v to JSON and encrypts it with AES-GCM under a key
// derived from password. A fresh random salt and nonce are generated on
// every call; neither is ever reused. The returned blob is
// base64(salt || nonce || ciphertext), with the GCM tag embedded in the
// ciphertext per AEAD convention.
func Encrypt(v any, password string) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}

	salt := common.GenerateRandByteArray(saltSize)
	key, err := DeriveKey([]byte(password), salt)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrKeyDerivation, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrKeyDerivation, err)
	}

	nonce := common.GenerateRandByteArray(nonceSize)
	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt: it parses salt and nonce out of the blob,
// re-derives the key from password, authenticates and decrypts the
// ciphertext, and unmarshals the recovered JSON into v.
//
// Every failure mode (malformed base64, truncated blob, GCM tag mismatch
// from tampering or a wrong password, invalid JSON) is reported as
// common.ErrDecryption. Callers must treat the stored record as unusable;
// partial or default data is never returned.
func Decrypt(blob string, password string, v any) error {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return fmt.Errorf("%w: malformed blob", common.ErrDecryption)
	}
	if len(raw) <= saltSize+nonceSize {
		return fmt.Errorf("%w: blob too short", common.ErrDecryption)
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	ciphertext := raw[saltSize+nonceSize:]

	key, err := DeriveKey([]byte(password), salt)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrDecryption, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrDecryption, err)
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: authentication failed", common.ErrDecryption)
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: invalid payload", common.ErrDecryption)
	}
	return nil
}
