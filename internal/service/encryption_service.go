package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// sealedPrefix versions the stored format: "v1:" + base64(nonce || ciphertext).
const sealedPrefix = "v1:"

var errUnsealable = errors.New("no configured key opens this value")

// AESEncryptionService implements ports.EncryptionService with AES-256-GCM.
// It protects customer phone numbers at rest. Values are always sealed with
// the primary key; retired keys are only tried when opening, so a key can be
// rotated without rewriting existing rows first.
type AESEncryptionService struct {
	primary cipher.AEAD
	retired []cipher.AEAD
}

// NewAESEncryptionService builds the service from hex-encoded 32-byte keys.
// primaryHex seals new values. retiredHex keys can still open old ones.
func NewAESEncryptionService(primaryHex string, retiredHex ...string) (*AESEncryptionService, error) {
	primary, err := newAEAD(primaryHex)
	if err != nil {
		return nil, fmt.Errorf("primary key: %w", err)
	}
	s := &AESEncryptionService{primary: primary}
	for i, k := range retiredHex {
		if strings.TrimSpace(k) == "" {
			continue
		}
		aead, err := newAEAD(k)
		if err != nil {
			return nil, fmt.Errorf("retired key %d: %w", i, err)
		}
		s.retired = append(s.retired, aead)
	}
	return s, nil
}

func newAEAD(hexKey string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, fmt.Errorf("decoding AES key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under the primary key.
func (s *AESEncryptionService) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, s.primary.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := s.primary.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt under the primary or any
// retired key.
func (s *AESEncryptionService) Decrypt(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return "", fmt.Errorf("unsupported ciphertext format")
	}
	sealed, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}

	for _, aead := range append([]cipher.AEAD{s.primary}, s.retired...) {
		n := aead.NonceSize()
		if len(sealed) < n+aead.Overhead() {
			return "", fmt.Errorf("ciphertext too short")
		}
		if plaintext, err := aead.Open(nil, sealed[:n], sealed[n:], nil); err == nil {
			return string(plaintext), nil
		}
	}
	return "", errUnsealable
}
