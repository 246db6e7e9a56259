package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// KeysServiceImpl implements ports.KeysService.
type KeysServiceImpl struct {
	keyRepo    ports.APIKeyRepository
	hasher     ports.SecretHasher
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewKeysService creates a new KeysServiceImpl.
func NewKeysService(
	keyRepo ports.APIKeyRepository,
	hasher ports.SecretHasher,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *KeysServiceImpl {
	return &KeysServiceImpl{
		keyRepo:    keyRepo,
		hasher:     hasher,
		transactor: transactor,
		log:        log,
	}
}

// Create issues a new API key. The plaintext secret is returned exactly
// once; only its hash is stored.
func (s *KeysServiceImpl) Create(ctx context.Context, userID uuid.UUID, name string, scopes []string, expiryToken string) (*ports.APIKeyResult, error) {
	expiresAt, ok := domain.ParseExpiryToken(expiryToken, time.Now())
	if !ok {
		return nil, apperror.ErrInvalidExpiry()
	}

	count, err := s.keyRepo.CountActive(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count active keys: %w", err))
	}
	if count >= domain.MaxActiveAPIKeys {
		return nil, apperror.ErrKeyLimitExceeded()
	}

	secret, err := newKeySecret()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate secret: %w", err))
	}

	key := &domain.APIKey{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		SecretHash: s.hasher.HashSecret(secret),
		Scopes:     scopes,
		ExpiresAt:  expiresAt,
		Active:     true,
		CreatedAt:  time.Now(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.keyRepo.Create(ctx, dbTx, key); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create api key: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("key_id", key.ID.String()).
		Str("user_id", userID.String()).
		Time("expires_at", expiresAt).
		Msg("api key created")

	return &ports.APIKeyResult{Key: key, Secret: secret}, nil
}

// Validate resolves a presented secret to its active, unexpired key.
// Every failure mode returns the same error so callers cannot probe
// which check rejected them.
func (s *KeysServiceImpl) Validate(ctx context.Context, secret string) (*domain.APIKey, error) {
	key, err := s.keyRepo.GetActiveBySecretHash(ctx, s.hasher.HashSecret(secret))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup api key: %w", err))
	}
	if key == nil || key.IsExpired(time.Now()) {
		return nil, apperror.ErrUnauthorized()
	}
	return key, nil
}

// Rollover replaces an expired key with a fresh one carrying the same
// name and scopes. The deactivate and create commit atomically, so there
// is no moment with both the old and new key active.
func (s *KeysServiceImpl) Rollover(ctx context.Context, userID, oldKeyID uuid.UUID, expiryToken string) (*ports.APIKeyResult, error) {
	expiresAt, ok := domain.ParseExpiryToken(expiryToken, time.Now())
	if !ok {
		return nil, apperror.ErrInvalidExpiry()
	}

	oldKey, err := s.keyRepo.GetByIDForUser(ctx, oldKeyID, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup api key: %w", err))
	}
	if oldKey == nil {
		return nil, apperror.ErrNotFound("api key")
	}
	if !oldKey.IsExpired(time.Now()) {
		return nil, apperror.ErrKeyNotExpired()
	}

	secret, err := newKeySecret()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate secret: %w", err))
	}

	newKey := &domain.APIKey{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       oldKey.Name,
		SecretHash: s.hasher.HashSecret(secret),
		Scopes:     oldKey.Scopes,
		ExpiresAt:  expiresAt,
		Active:     true,
		CreatedAt:  time.Now(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if oldKey.Active {
		if err := s.keyRepo.Deactivate(ctx, dbTx, oldKey.ID); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("deactivate old key: %w", err))
		}
	}
	if err := s.keyRepo.Create(ctx, dbTx, newKey); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create replacement key: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("old_key_id", oldKey.ID.String()).
		Str("new_key_id", newKey.ID.String()).
		Msg("api key rolled over")

	return &ports.APIKeyResult{Key: newKey, Secret: secret}, nil
}

// Revoke deactivates a key. Revoking an already inactive key succeeds
// without effect.
func (s *KeysServiceImpl) Revoke(ctx context.Context, userID, keyID uuid.UUID) error {
	key, err := s.keyRepo.GetByIDForUser(ctx, keyID, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("lookup api key: %w", err))
	}
	if key == nil {
		return apperror.ErrNotFound("api key")
	}
	if !key.Active {
		return nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.keyRepo.Deactivate(ctx, dbTx, key.ID); err != nil {
		return apperror.InternalError(fmt.Errorf("deactivate key: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("key_id", key.ID.String()).Msg("api key revoked")
	return nil
}

// newKeySecret generates a key secret: the fixed prefix plus 40 hex chars.
func newKeySecret() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return domain.APIKeySecretPrefix + hex.EncodeToString(b), nil
}
