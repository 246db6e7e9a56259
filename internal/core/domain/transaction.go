package domain

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeTransfer TransactionType = "transfer"
)

// TransactionStatus represents the lifecycle state of a transaction.
// Transitions are monotonic: pending -> success | failed, never back.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Transaction is a ledger entry, immutable once in a terminal state.
// A deposit has only a receiver wallet; a transfer has both, and they
// are always distinct.
type Transaction struct {
	ID               uuid.UUID         `json:"id"`
	Reference        string            `json:"reference"` // globally unique, never reused
	Type             TransactionType   `json:"type"`
	Status           TransactionStatus `json:"status"`
	Amount           int64             `json:"amount"`
	Fee              int64             `json:"fee"` // reserved, unused by current flows
	SenderWalletID   *uuid.UUID        `json:"sender_wallet_id,omitempty"`
	ReceiverWalletID *uuid.UUID        `json:"receiver_wallet_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}

// NewDepositReference generates a deposit reference: REF- followed by 16 hex chars.
func NewDepositReference() (string, error) {
	return newReference("REF-")
}

// NewTransferReference generates a transfer reference: TRF- followed by 16 hex chars.
func NewTransferReference() (string, error) {
	return newReference("TRF-")
}

func newReference(prefix string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}

// BuildWebhookDedupeKey builds the cache key for the webhook fast-path
// idempotency check. The transaction row lock remains the authority.
func BuildWebhookDedupeKey(reference string) string {
	return "webhook:" + reference
}
