package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// TokenService handles bearer identity token operations.
type TokenService interface {
	Generate(userID uuid.UUID, email string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed identity token claims.
type TokenClaims struct {
	UserID uuid.UUID
	Email  string
}

// SecretHasher produces the deterministic at-rest hash of an API key secret.
type SecretHasher interface {
	HashSecret(secret string) string
}

// SignatureVerifier checks the payment processor's webhook signature:
// a keyed hash over the raw request body.
type SignatureVerifier interface {
	Sign(payload []byte) string
	Verify(payload []byte, signature string) bool
}

// IdempotencyCache is the Redis fast-path dedupe check for webhook events.
// The transaction row lock in the database remains the authority.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil, nil on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// PaymentProcessor is the outbound contract with the external processor.
type PaymentProcessor interface {
	// Initialize requests a checkout handle for a deposit. Amount is in
	// whole currency units; the processor expects minor units.
	Initialize(ctx context.Context, email string, amount int64, reference string) (*CheckoutSession, error)
}

// CheckoutSession is the processor's handle for a pending deposit.
type CheckoutSession struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// --- Service Ports (Business Logic) ---

// AuthService onboards federated identities and mints bearer tokens.
type AuthService interface {
	FederatedLogin(ctx context.Context, identity ExternalIdentity) (*LoginResult, error)
}

// ExternalIdentity is the profile supplied by the identity provider callback.
type ExternalIdentity struct {
	Email      string
	ExternalID string
	FullName   string
}

// LoginResult holds the minted token and the resolved user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// WalletService is the ledger transaction engine: transfers, deposit
// initiation, and webhook reconciliation.
type WalletService interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	InitiateDeposit(ctx context.Context, userID uuid.UUID, amount int64) (*DepositInitResult, error)
	ProcessWebhook(ctx context.Context, signature string, rawBody []byte) (*WebhookResult, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetHistory(ctx context.Context, userID uuid.UUID) ([]HistoryEntry, error)
	GetDepositStatus(ctx context.Context, reference string) (*domain.Transaction, error)
	// SweepStalePendingDeposits fails pending deposits older than the TTL.
	SweepStalePendingDeposits(ctx context.Context) (int64, error)
}

// TransferRequest holds validated input for a wallet-to-wallet transfer.
type TransferRequest struct {
	SenderUserID       uuid.UUID
	ReceiverWalletNumb string
	Amount             int64
}

// TransferResult reports a committed transfer.
type TransferResult struct {
	Reference string
	Amount    int64
}

// DepositInitResult is returned from deposit initiation.
type DepositInitResult struct {
	Reference        string
	AuthorizationURL string
}

// WebhookResult reports the outcome of processing a processor event.
type WebhookResult struct {
	Status    string // "success", "ignored"
	Reference string
	Credited  bool // false when ignored or already processed
}

// HistoryEntry is a ledger entry projected from the viewing wallet's side.
type HistoryEntry struct {
	Reference string
	Type      domain.TransactionType
	Status    domain.TransactionStatus
	Amount    int64
	// Direction is "debit" when the viewing wallet is the sender,
	// "credit" otherwise.
	Direction string
	CreatedAt time.Time
}

// KeysService is the credential store: issue, validate, rotate, revoke.
type KeysService interface {
	Create(ctx context.Context, userID uuid.UUID, name string, scopes []string, expiryToken string) (*APIKeyResult, error)
	Validate(ctx context.Context, secret string) (*domain.APIKey, error)
	Rollover(ctx context.Context, userID, oldKeyID uuid.UUID, expiryToken string) (*APIKeyResult, error)
	Revoke(ctx context.Context, userID, keyID uuid.UUID) error
}

// APIKeyResult carries the plaintext secret, shown exactly once.
type APIKeyResult struct {
	Key    *domain.APIKey
	Secret string
}
