package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// keySalt is a fixed application salt for key derivation. The secret
// itself is the credential; the salt only separates this derivation
// from other uses of the same passphrase.
var keySalt = []byte("ait-connectors.credentials.v1")

const pbkdf2Iterations = 600_000

var errCiphertextTooShort = errors.New("ciphertext shorter than nonce")

// SecretEncryptor seals and opens token material with AES-256-GCM. The
// key is derived once from the configured secret.
type SecretEncryptor struct {
	aead cipher.AEAD
}

// NewSecretEncryptor derives an encryption key from secret and builds
// the AEAD. An empty secret is a configuration error.
func NewSecretEncryptor(secret string) (*SecretEncryptor, error) {
	if secret == "" {
		return nil, errors.New("encryption secret must not be empty")
	}

	key := pbkdf2.Key([]byte(secret), keySalt, pbkdf2Iterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("build cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("build gcm: %w", err)
	}
	return &SecretEncryptor{aead: aead}, nil
}

// Seal encrypts plaintext, prepending the random nonce.
func (e *SecretEncryptor) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts ciphertext produced by Seal.
func (e *SecretEncryptor) Open(ciphertext []byte) (string, error) {
	if len(ciphertext) < e.aead.NonceSize() {
		return "", errCiphertextTooShort
	}
	nonce, sealed := ciphertext[:e.aead.NonceSize()], ciphertext[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plaintext), nil
}
