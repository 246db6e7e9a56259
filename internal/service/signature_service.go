package service

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// HMACSignatureService implements ports.SignatureVerifier using HMAC-SHA512
// keyed with the payment processor secret, matching the scheme the
// processor uses to sign webhook deliveries.
type HMACSignatureService struct {
	secret []byte
}

// NewHMACSignatureService creates a signature service keyed with secret.
func NewHMACSignatureService(secret string) *HMACSignatureService {
	return &HMACSignatureService{secret: []byte(secret)}
}

// Sign computes HMAC-SHA512 of payload. Returns lowercase hex.
func (s *HMACSignatureService) Sign(payload []byte) string {
	mac := hmac.New(sha512.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA512(secret, payload).
// Uses constant-time comparison to prevent timing attacks.
func (s *HMACSignatureService) Verify(payload []byte, signature string) bool {
	expected := s.Sign(payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}
