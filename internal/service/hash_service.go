package service

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Blake2bHashService implements ports.SecretHasher using BLAKE2b-256.
// API key secrets are high-entropy random strings, so a fast keyed-less
// hash is appropriate and keeps the lookup-by-hash query deterministic.
type Blake2bHashService struct{}

// NewBlake2bHashService creates a new BLAKE2b secret hasher.
func NewBlake2bHashService() *Blake2bHashService {
	return &Blake2bHashService{}
}

// HashSecret returns the lowercase hex BLAKE2b-256 digest of secret.
func (s *Blake2bHashService) HashSecret(secret string) string {
	sum := blake2b.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
