package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository. It is the sole writer of
// balances; every mutation goes through AdjustBalance under a row lock.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, user_id, wallet_number, balance, currency, created_at`

// Create inserts a new wallet within a database transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, wallet_number, balance, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := tx.Exec(ctx, query, w.ID, w.UserID, w.Number, w.Balance, w.Currency, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByID fetches a wallet by its UUID (without locking).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, id))
}

// GetByUserID fetches a user's wallet (non-locking read).
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, userID))
}

// GetByNumber fetches a wallet by its public number (non-locking read).
func (r *WalletRepo) GetByNumber(ctx context.Context, number string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE wallet_number = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, number))
}

// GetByUserIDForUpdate fetches a user's wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, userID))
}

// GetByNumberForUpdate fetches a wallet by number with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, number string) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE wallet_number = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, number))
}

// AdjustBalance applies a signed delta to a wallet balance within a
// transaction. The balance CHECK constraint rejects any overdraw the
// caller's sufficiency check missed.
func (r *WalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) error {
	query := `UPDATE wallets SET balance = balance + $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, delta, walletID)
	if err != nil {
		return fmt.Errorf("adjust wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// scanWallet is a helper to scan a single row into a Wallet.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.UserID, &w.Number, &w.Balance, &w.Currency, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
