package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// webhookDedupeTTL bounds the Redis fast-path marker for processed
// webhook events. The transaction row remains the authority after expiry.
const webhookDedupeTTL = 24 * time.Hour

// eventChargeSuccess is the only processor event that moves money.
const eventChargeSuccess = "charge.success"

// webhookEvent is the processor's delivery payload. Amount is in minor
// units (x100 of the ledger unit).
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Status    string `json:"status"`
	} `json:"data"`
}

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	userRepo   ports.UserRepository
	processor  ports.PaymentProcessor
	sigSvc     ports.SignatureVerifier
	idempCache ports.IdempotencyCache
	transactor ports.DBTransactor
	minAmount  int64
	pendingTTL time.Duration
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	userRepo ports.UserRepository,
	processor ports.PaymentProcessor,
	sigSvc ports.SignatureVerifier,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	minAmount int64,
	pendingTTL time.Duration,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		userRepo:   userRepo,
		processor:  processor,
		sigSvc:     sigSvc,
		idempCache: idempCache,
		transactor: transactor,
		minAmount:  minAmount,
		pendingTTL: pendingTTL,
		log:        log,
	}
}

// Transfer moves funds between two wallets atomically with pessimistic
// locking. Both balance adjustments and the ledger entry commit together
// or not at all.
func (s *WalletServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if req.Amount < s.minAmount {
		return nil, apperror.Validation(fmt.Sprintf("amount must be at least %d", s.minAmount))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Resolve both wallets without locks first. The checks run in a
	// fixed order (sender, funds, receiver, self) so the caller sees the
	// same error code no matter what the receiver number points at.
	sender, err := s.walletRepo.GetByUserID(ctx, req.SenderUserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup sender wallet: %w", err))
	}
	if sender == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if sender.Balance < req.Amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	receiver, err := s.walletRepo.GetByNumber(ctx, req.ReceiverWalletNumb)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup receiver wallet: %w", err))
	}
	if receiver == nil {
		return nil, apperror.ErrNotFound("receiver wallet")
	}
	if sender.ID == receiver.ID {
		return nil, apperror.ErrSelfTransfer()
	}

	sender, receiver, err = s.lockWalletPair(ctx, dbTx, req.SenderUserID, sender.Number, req.ReceiverWalletNumb)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallets: %w", err))
	}
	if sender == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if receiver == nil {
		return nil, apperror.ErrNotFound("receiver wallet")
	}

	// The unlocked read may be stale; only the locked balance decides.
	if sender.Balance < req.Amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	reference, err := domain.NewTransferReference()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate reference: %w", err))
	}

	if err := s.walletRepo.AdjustBalance(ctx, dbTx, sender.ID, -req.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit sender: %w", err))
	}
	if err := s.walletRepo.AdjustBalance(ctx, dbTx, receiver.ID, req.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit receiver: %w", err))
	}

	txn := &domain.Transaction{
		ID:               uuid.New(),
		Reference:        reference,
		Type:             domain.TransactionTypeTransfer,
		Status:           domain.TransactionStatusSuccess,
		Amount:           req.Amount,
		SenderWalletID:   &sender.ID,
		ReceiverWalletID: &receiver.ID,
		CreatedAt:        time.Now(),
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("reference", reference).
		Str("sender_wallet", sender.Number).
		Str("receiver_wallet", receiver.Number).
		Int64("amount", req.Amount).
		Msg("transfer completed")

	return &ports.TransferResult{Reference: reference, Amount: req.Amount}, nil
}

// lockWalletPair takes both row locks in wallet-number order, whichever
// direction the transfer runs. Two opposite concurrent transfers then
// queue on the same first lock instead of deadlocking.
func (s *WalletServiceImpl) lockWalletPair(ctx context.Context, dbTx pgx.Tx, senderUserID uuid.UUID, senderNumber, receiverNumber string) (sender, receiver *domain.Wallet, err error) {
	if senderNumber < receiverNumber {
		sender, err = s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, senderUserID)
		if err != nil {
			return nil, nil, err
		}
		receiver, err = s.walletRepo.GetByNumberForUpdate(ctx, dbTx, receiverNumber)
		return sender, receiver, err
	}
	receiver, err = s.walletRepo.GetByNumberForUpdate(ctx, dbTx, receiverNumber)
	if err != nil {
		return nil, nil, err
	}
	sender, err = s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, senderUserID)
	return sender, receiver, err
}

// InitiateDeposit records a pending deposit, then requests a checkout
// session from the processor. The pending row is written first so a
// later webhook always finds it; if the processor call fails the row
// stays pending and is swept to failed after the TTL.
func (s *WalletServiceImpl) InitiateDeposit(ctx context.Context, userID uuid.UUID, amount int64) (*ports.DepositInitResult, error) {
	if amount < s.minAmount {
		return nil, apperror.Validation(fmt.Sprintf("amount must be at least %d", s.minAmount))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}

	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	reference, err := domain.NewDepositReference()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate reference: %w", err))
	}

	txn := &domain.Transaction{
		ID:               uuid.New(),
		Reference:        reference,
		Type:             domain.TransactionTypeDeposit,
		Status:           domain.TransactionStatusPending,
		Amount:           amount,
		ReceiverWalletID: &wallet.ID,
		CreatedAt:        time.Now(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create pending deposit: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	session, err := s.processor.Initialize(ctx, user.Email, amount, reference)
	if err != nil {
		s.log.Error().Err(err).Str("reference", reference).Msg("processor initialize failed, deposit stays pending")
		return nil, err
	}

	s.log.Info().
		Str("reference", reference).
		Int64("amount", amount).
		Msg("deposit initiated")

	return &ports.DepositInitResult{
		Reference:        reference,
		AuthorizationURL: session.AuthorizationURL,
	}, nil
}

// ProcessWebhook reconciles a processor delivery against the ledger.
// Replays are absorbed twice over: a Redis fast path, then the row lock
// on the pending transaction.
func (s *WalletServiceImpl) ProcessWebhook(ctx context.Context, signature string, rawBody []byte) (*ports.WebhookResult, error) {
	if !s.sigSvc.Verify(rawBody, signature) {
		return nil, apperror.ErrInvalidSignature()
	}

	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, apperror.Validation("malformed webhook payload")
	}

	if event.Event != eventChargeSuccess {
		s.log.Debug().Str("event", event.Event).Msg("ignoring webhook event type")
		return &ports.WebhookResult{Status: "ignored"}, nil
	}

	reference := event.Data.Reference
	dedupeKey := domain.BuildWebhookDedupeKey(reference)

	// Layer 1: Redis fast path. Errors degrade open; the row lock decides.
	cached, err := s.idempCache.Get(ctx, dedupeKey)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("redis dedupe check failed, falling through to DB")
	}
	if cached != nil {
		return &ports.WebhookResult{Status: "success", Reference: reference, Credited: false}, nil
	}

	// Layer 2: row lock on the pending transaction
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByReferenceForUpdate(ctx, dbTx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}

	if txn.IsTerminal() {
		// Replay of an already reconciled (or swept) deposit. Never
		// credit twice, never resurrect a failed row.
		s.cacheDedupe(ctx, dedupeKey, reference)
		return &ports.WebhookResult{Status: "success", Reference: reference, Credited: false}, nil
	}

	// Processor reports minor units; the ledger holds whole units.
	// A remainder means the processor sent a sub-unit amount the ledger
	// cannot represent; credit the floor and leave a trace for ops.
	credit := event.Data.Amount / 100
	if rem := event.Data.Amount % 100; rem != 0 {
		s.log.Warn().
			Str("reference", reference).
			Int64("amount_minor", event.Data.Amount).
			Int64("remainder_minor", rem).
			Msg("webhook amount is not a whole unit, crediting the floor")
	}

	if err := s.txRepo.UpdateStatus(ctx, dbTx, reference, domain.TransactionStatusSuccess); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark deposit success: %w", err))
	}
	if err := s.walletRepo.AdjustBalance(ctx, dbTx, *txn.ReceiverWalletID, credit); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit wallet: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.cacheDedupe(ctx, dedupeKey, reference)

	s.log.Info().
		Str("reference", reference).
		Int64("credited", credit).
		Msg("deposit reconciled")

	return &ports.WebhookResult{Status: "success", Reference: reference, Credited: true}, nil
}

// cacheDedupe records the processed marker; failures are logged only.
func (s *WalletServiceImpl) cacheDedupe(ctx context.Context, key, reference string) {
	if err := s.idempCache.Set(ctx, key, []byte("1"), webhookDedupeTTL); err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("failed to cache webhook dedupe marker")
	}
}

// GetBalance fetches the caller's wallet.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// GetHistory lists the caller's ledger entries, newest first, projected
// from the viewing wallet's side.
func (s *WalletServiceImpl) GetHistory(ctx context.Context, userID uuid.UUID) ([]ports.HistoryEntry, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	txns, err := s.txRepo.ListByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}

	entries := make([]ports.HistoryEntry, 0, len(txns))
	for _, t := range txns {
		direction := "credit"
		if t.SenderWalletID != nil && *t.SenderWalletID == wallet.ID {
			direction = "debit"
		}
		entries = append(entries, ports.HistoryEntry{
			Reference: t.Reference,
			Type:      t.Type,
			Status:    t.Status,
			Amount:    t.Amount,
			Direction: direction,
			CreatedAt: t.CreatedAt,
		})
	}
	return entries, nil
}

// GetDepositStatus fetches a deposit by reference for polling clients.
func (s *WalletServiceImpl) GetDepositStatus(ctx context.Context, reference string) (*domain.Transaction, error) {
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// SweepStalePendingDeposits fails pending deposits older than the TTL.
// Run periodically; a webhook arriving after the sweep finds a terminal
// row and does not credit.
func (s *WalletServiceImpl) SweepStalePendingDeposits(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.pendingTTL)
	n, err := s.txRepo.MarkStalePendingDeposits(ctx, cutoff)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("sweep pending deposits: %w", err))
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("stale pending deposits swept to failed")
	}
	return n, nil
}
