package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// APIKeyRepo implements ports.APIKeyRepository. Scopes are persisted as a
// text array; the vocabulary is open, so no enum.
type APIKeyRepo struct {
	pool Pool
}

// NewAPIKeyRepo creates a new APIKeyRepo.
func NewAPIKeyRepo(pool Pool) *APIKeyRepo {
	return &APIKeyRepo{pool: pool}
}

const apiKeyColumns = `id, user_id, name, secret_hash, scopes, expires_at, is_active, created_at`

// Create inserts a new API key within a database transaction so rollover's
// deactivate+create pair commits atomically.
func (r *APIKeyRepo) Create(ctx context.Context, tx pgx.Tx, k *domain.APIKey) error {
	query := `INSERT INTO api_keys (id, user_id, name, secret_hash, scopes, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		k.ID, k.UserID, k.Name, k.SecretHash, k.Scopes,
		k.ExpiresAt, k.Active, k.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// GetByIDForUser fetches a key by id, scoped to its owner. Deactivated
// keys are still returned for audit and rollover.
func (r *APIKeyRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE id = $1 AND user_id = $2`
	return scanAPIKey(r.pool.QueryRow(ctx, query, id, userID))
}

// GetActiveBySecretHash looks up an active key by its secret hash.
func (r *APIKeyRepo) GetActiveBySecretHash(ctx context.Context, secretHash string) (*domain.APIKey, error) {
	query := `SELECT ` + apiKeyColumns + ` FROM api_keys WHERE secret_hash = $1 AND is_active = TRUE`
	return scanAPIKey(r.pool.QueryRow(ctx, query, secretHash))
}

// CountActive counts a user's active keys.
func (r *APIKeyRepo) CountActive(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM api_keys WHERE user_id = $1 AND is_active = TRUE`

	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active api keys: %w", err)
	}
	return count, nil
}

// Deactivate sets the active flag false within a database transaction.
// Deactivating an already-inactive key is a no-op, which makes revoke
// idempotent.
func (r *APIKeyRepo) Deactivate(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	query := `UPDATE api_keys SET is_active = FALSE WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("api key not found: %s", id)
	}
	return nil
}

// scanAPIKey is a helper to scan a single row into an APIKey.
func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	k := &domain.APIKey{}
	err := row.Scan(
		&k.ID, &k.UserID, &k.Name, &k.SecretHash, &k.Scopes,
		&k.ExpiresAt, &k.Active, &k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan api key: %w", err)
	}
	return k, nil
}
