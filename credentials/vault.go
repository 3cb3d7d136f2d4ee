// Package credentials provides the encrypted credential vault and the
// org-scoped store the engine decrypts secrets through.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen    = 16
	keyLen     = 32
	pbkdf2Iter = 100_000
)

// Vault encrypts and decrypts credential values with AES-256-GCM. The
// per-value key is derived from the master key and a random salt via PBKDF2.
type Vault struct {
	master []byte
}

// NewVault creates a vault from the master key: a 64-character hex string
// (32 bytes), conventionally supplied via ENCRYPTION_KEY.
func NewVault(hexKey string) (*Vault, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keyLen, len(key))
	}
	return &Vault{master: key}, nil
}

// Encrypt seals plaintext and returns a base64 string of salt|nonce|ciphertext.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := v.gcm(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt.
func (v *Vault) Decrypt(encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	if len(raw) < saltLen {
		return "", fmt.Errorf("credential too short")
	}

	salt := raw[:saltLen]
	gcm, err := v.gcm(salt)
	if err != nil {
		return "", err
	}
	if len(raw) < saltLen+gcm.NonceSize() {
		return "", fmt.Errorf("credential too short")
	}

	nonce := raw[saltLen : saltLen+gcm.NonceSize()]
	plaintext, err := gcm.Open(nil, nonce, raw[saltLen+gcm.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("open credential: %w", err)
	}
	return string(plaintext), nil
}

func (v *Vault) gcm(salt []byte) (cipher.AEAD, error) {
	derived := pbkdf2.Key(v.master, salt, pbkdf2Iter, keyLen, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
