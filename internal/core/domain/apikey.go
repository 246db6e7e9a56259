package domain

import (
	"time"

	"github.com/google/uuid"
)

// Permission scopes checked by the access gate. The vocabulary is open;
// these are the scopes the current routes declare.
const (
	ScopeRead     = "read"
	ScopeDeposit  = "deposit"
	ScopeTransfer = "transfer"
)

// MaxActiveAPIKeys is the per-user cap on active credentials.
const MaxActiveAPIKeys = 5

// APIKeySecretPrefix prefixes every generated key secret.
const APIKeySecretPrefix = "sk_live_"

// APIKey is a long-lived, scope-limited, expiring credential usable in
// place of a bearer token. The secret is stored only as a hash; the
// plaintext is shown once at issuance. Keys are deactivated, never deleted.
type APIKey struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	Scopes     []string  `json:"permissions"`
	ExpiresAt  time.Time `json:"expires_at"`
	Active     bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsExpired reports whether the key's fixed expiry has passed.
func (k *APIKey) IsExpired(now time.Time) bool {
	return now.After(k.ExpiresAt)
}

// HasScope reports whether the key grants the given permission scope.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ParseExpiryToken maps an expiry token to an absolute expiry timestamp.
// Recognized tokens: 1H, 1D, 1M, 1Y (calendar-aware for day/month/year).
// Returns false for anything else.
func ParseExpiryToken(token string, now time.Time) (time.Time, bool) {
	switch token {
	case "1H":
		return now.Add(time.Hour), true
	case "1D":
		return now.AddDate(0, 0, 1), true
	case "1M":
		return now.AddDate(0, 1, 0), true
	case "1Y":
		return now.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}
