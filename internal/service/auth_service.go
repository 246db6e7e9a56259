package service

import (
	"context"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo   ports.UserRepository
	walletRepo ports.WalletRepository
	tokenSvc   ports.TokenService
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	walletRepo ports.WalletRepository,
	tokenSvc ports.TokenService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:   userRepo,
		walletRepo: walletRepo,
		tokenSvc:   tokenSvc,
		transactor: transactor,
		log:        log,
	}
}

// FederatedLogin resolves a federated identity to a local user, creating
// the user together with their wallet on first sight, then mints a token.
func (s *AuthServiceImpl) FederatedLogin(ctx context.Context, identity ports.ExternalIdentity) (*ports.LoginResult, error) {
	if identity.Email == "" {
		return nil, apperror.Validation("identity email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, identity.Email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup user: %w", err))
	}

	if user == nil {
		user, err = s.onboard(ctx, identity)
		if err != nil {
			return nil, err
		}
	}

	token, expiresAt, err := s.tokenSvc.Generate(user.ID, user.Email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return &ports.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// onboard creates a user and their wallet in one transaction.
func (s *AuthServiceImpl) onboard(ctx context.Context, identity ports.ExternalIdentity) (*domain.User, error) {
	walletNumber, err := domain.NewWalletNumber()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate wallet number: %w", err))
	}

	now := time.Now()
	user := &domain.User{
		ID:         uuid.New(),
		Email:      identity.Email,
		ExternalID: identity.ExternalID,
		FullName:   identity.FullName,
		CreatedAt:  now,
	}
	wallet := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    user.ID,
		Number:    walletNumber,
		Balance:   0,
		Currency:  "NGN",
		CreatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.userRepo.Create(ctx, dbTx, user); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create user: %w", err))
	}
	if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("wallet_number", wallet.Number).
		Msg("user onboarded")

	return user, nil
}
