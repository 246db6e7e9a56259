package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, reference, type, status, amount, fee, sender_wallet_id, receiver_wallet_id, created_at`

// Create inserts a new ledger entry within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, reference, type, status, amount, fee, sender_wallet_id, receiver_wallet_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Reference, t.Type, t.Status, t.Amount, t.Fee,
		t.SenderWalletID, t.ReceiverWalletID, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByReference fetches a transaction by its globally unique reference.
func (r *TransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, reference))
}

// GetByReferenceForUpdate fetches a transaction with a row lock. Two
// concurrent deliveries of the same webhook event serialize here: the
// second blocks until the first commits, then sees status = success.
// This MUST be called within a transaction.
func (r *TransactionRepo) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1 FOR UPDATE`
	return scanTransaction(tx.QueryRow(ctx, query, reference))
}

// UpdateStatus updates a transaction's status within a database transaction.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, reference string, status domain.TransactionStatus) error {
	query := `UPDATE transactions SET status = $1 WHERE reference = $2`

	tag, err := tx.Exec(ctx, query, status, reference)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", reference)
	}
	return nil
}

// ListByWallet fetches all transactions where the wallet is sender or
// receiver, newest first.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE sender_wallet_id = $1 OR receiver_wallet_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		err := rows.Scan(
			&t.ID, &t.Reference, &t.Type, &t.Status, &t.Amount, &t.Fee,
			&t.SenderWalletID, &t.ReceiverWalletID, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

// MarkStalePendingDeposits fails pending deposits created before the cutoff.
func (r *TransactionRepo) MarkStalePendingDeposits(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE transactions SET status = $1
		WHERE type = $2 AND status = $3 AND created_at < $4`

	tag, err := r.pool.Exec(ctx, query,
		domain.TransactionStatusFailed, domain.TransactionTypeDeposit,
		domain.TransactionStatusPending, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("mark stale pending deposits: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.Reference, &t.Type, &t.Status, &t.Amount, &t.Fee,
		&t.SenderWalletID, &t.ReceiverWalletID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
