// Package secrets protects small key-value records at rest. Webhook
// credentials (Telegram bot tokens) are stored as sealed blobs and only
// opened just-in-time during dispatch.
//
// A blob is AES-256-GCM ciphertext with the random nonce prefixed,
// base64-encoded. The purpose string is bound as additional authenticated
// data, so a blob sealed for one purpose never opens under another.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Keyring derives and holds the instance encryption key.
type Keyring struct {
	key [32]byte
}

// NewKeyring derives an AES-256 key from the instance secret.
func NewKeyring(secret string) (*Keyring, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty instance secret")
	}
	return &Keyring{key: sha256.Sum256([]byte(secret))}, nil
}

// Seal encrypts a small map under the given purpose.
func (k *Keyring) Seal(data map[string]string, purpose string) (string, error) {
	plain, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal secret data: %w", err)
	}

	gcm, err := k.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plain, []byte(purpose))
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a blob previously sealed under the same purpose.
func (k *Keyring) Open(blob, purpose string) (map[string]string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode secret blob: %w", err)
	}

	gcm, err := k.gcm()
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, fmt.Errorf("secret blob too short")
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, []byte(purpose))
	if err != nil {
		return nil, fmt.Errorf("open secret blob: %w", err)
	}

	var data map[string]string
	if err := json.Unmarshal(plain, &data); err != nil {
		return nil, fmt.Errorf("unmarshal secret data: %w", err)
	}
	return data, nil
}

func (k *Keyring) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(k.key[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return gcm, nil
}
