package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is a user's single balance-holding account. Balance is an integer
// amount in whole currency units; the payment processor reports captured
// amounts in minor units (x100), converted at the reconciliation boundary.
type Wallet struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Number    string    `json:"wallet_number"` // public, human-referenceable
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
}

// FormattedBalance renders the balance as a 2-decimal display string.
func (w *Wallet) FormattedBalance() string {
	return decimal.NewFromInt(w.Balance).StringFixed(2)
}

// NewWalletNumber generates a random 10-hex-char public wallet number.
func NewWalletNumber() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
