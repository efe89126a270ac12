package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// refreshDigestLabel separates refresh-token digests from any other use of
// the same key.
const refreshDigestLabel = "qrl/refresh-token\x00"

// HMACSignatureService digests refresh tokens with HMAC-SHA256 under a
// server-side key. Only digests are stored, so a leaked accounts table does
// not yield usable tokens.
type HMACSignatureService struct {
	key []byte
}

func NewHMACSignatureService(key string) *HMACSignatureService {
	return &HMACSignatureService{key: []byte(key)}
}

func (s *HMACSignatureService) sum(payload string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(refreshDigestLabel))
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// Sign returns the lowercase hex digest of payload.
func (s *HMACSignatureService) Sign(payload string) string {
	return hex.EncodeToString(s.sum(payload))
}

// Verify reports whether signature is the digest of payload, in constant time.
func (s *HMACSignatureService) Verify(payload string, signature string) bool {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(s.sum(payload), got)
}
