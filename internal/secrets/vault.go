package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

//nolint:gochecknoglobals // sentinel error
var ErrInvalidKey = errors.New("secrets: invalid encryption key")

//nolint:gochecknoglobals // sentinel error
var ErrWeakPassphrase = errors.New("secrets: passphrase must be at least 16 characters")

const (
	minPassphraseLen = 16
	keySize          = 32
	keyInfo          = "opspilot integration credentials v1"
)

// Vault encrypts/decrypts integration credentials using AES-256-GCM.
type Vault struct {
	aead cipher.AEAD
}

// DeriveKey stretches a passphrase into a 32-byte key with HKDF-SHA256.
func DeriveKey(passphrase string) ([]byte, error) {
	if len(passphrase) < minPassphraseLen {
		return nil, ErrWeakPassphrase
	}

	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(passphrase), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("secrets.DeriveKey: %w", err)
	}
	return key, nil
}

// NewVault creates a Vault with the given 32-byte encryption key.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != keySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets.NewVault: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// NewVaultFromPassphrase is DeriveKey followed by NewVault.
func NewVaultFromPassphrase(passphrase string) (*Vault, error) {
	key, err := DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	return NewVault(key)
}

// Encrypt encrypts plaintext and returns base64-encoded ciphertext.
// The output format is base64(nonce || ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets.Encrypt: generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("secrets.Decrypt: base64 decode: %w", err)
	}

	nonceSize := v.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("secrets.Decrypt: ciphertext too short")
	}

	plaintext, err := v.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("secrets.Decrypt: %w", err)
	}

	return string(plaintext), nil
}

// SealCredentials encrypts a credential map as JSON.
func (v *Vault) SealCredentials(creds map[string]string) (string, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("secrets.SealCredentials: %w", err)
	}
	return v.Encrypt(string(raw))
}

// OpenCredentials reverses SealCredentials.
func (v *Vault) OpenCredentials(sealed string) (map[string]string, error) {
	plaintext, err := v.Decrypt(sealed)
	if err != nil {
		return nil, fmt.Errorf("secrets.OpenCredentials: %w", err)
	}

	creds := make(map[string]string)
	if err := json.Unmarshal([]byte(plaintext), &creds); err != nil {
		return nil, fmt.Errorf("secrets.OpenCredentials: decode: %w", err)
	}
	return creds, nil
}
