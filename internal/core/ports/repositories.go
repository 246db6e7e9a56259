package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines persistence operations for users.
// Create accepts a pgx.Tx so user+wallet creation commits atomically.
type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByNumber(ctx context.Context, number string) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, number string) (*domain.Wallet, error)
	// AdjustBalance applies a signed delta to a wallet balance. The caller
	// must have verified sufficiency under a row lock; a CHECK constraint
	// backstops the non-negative invariant.
	AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) error
}

// TransactionRepository defines persistence operations for ledger entries.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	// GetByReferenceForUpdate locks the transaction row; it is the
	// serialization point for concurrent webhook deliveries.
	GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, reference string, status domain.TransactionStatus) error
	ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.Transaction, error)
	// MarkStalePendingDeposits flips pending deposits created before the
	// cutoff to failed. Returns the number of rows affected.
	MarkStalePendingDeposits(ctx context.Context, cutoff time.Time) (int64, error)
}

// APIKeyRepository defines persistence operations for API credentials.
type APIKeyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, key *domain.APIKey) error
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.APIKey, error)
	// GetActiveBySecretHash looks up an active credential by secret hash.
	// Expiry is checked by the caller, not here.
	GetActiveBySecretHash(ctx context.Context, secretHash string) (*domain.APIKey, error)
	CountActive(ctx context.Context, userID uuid.UUID) (int64, error)
	Deactivate(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
