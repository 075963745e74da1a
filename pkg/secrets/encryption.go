package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// deriveAESKey derives a per-secret AES-256 key from the master key, using
// the secret id as HKDF salt.
func deriveAESKey(masterKey []byte, secretID string) []byte {
	r := hkdf.New(sha256.New, masterKey, []byte(secretID), nil)
	key := make([]byte, 32)
	_, _ = io.ReadFull(r, key) // cannot fail for 32 bytes of SHA-256 output
	return key
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// encryptAESGCM seals plaintext and returns hex(nonce || ciphertext).
func encryptAESGCM(key, plaintext []byte) (string, error) {
	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return hex.EncodeToString(aead.Seal(nonce, nonce, plaintext, nil)), nil
}

func decryptAESGCM(key []byte, sealed string) (string, error) {
	data, err := hex.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}
	if len(data) < aead.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
