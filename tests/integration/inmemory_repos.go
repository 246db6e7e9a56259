package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) Create(ctx context.Context, tx pgx.Tx, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return fmt.Errorf("email already exists")
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID] = w
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[id]
	if !ok {
		return nil, nil
	}
	return w, nil
}

func (r *inMemoryWalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.UserID == userID {
			return w, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByNumber(ctx context.Context, number string) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.Number == number {
			return w, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *inMemoryWalletRepo) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, number string) (*domain.Wallet, error) {
	return r.GetByNumber(ctx, number)
}

func (r *inMemoryWalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	if w.Balance+delta < 0 {
		// Mirrors the CHECK (balance >= 0) constraint
		return fmt.Errorf("balance would go negative")
	}
	w.Balance += delta
	return nil
}

// --- In-Memory Transaction Repo ---

type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction // by reference
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{transactions: make(map[string]*domain.Transaction)}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, txn *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transactions[txn.Reference]; exists {
		return fmt.Errorf("reference already exists")
	}
	r.transactions[txn.Reference] = txn
	return nil
}

func (r *inMemoryTransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[reference]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (r *inMemoryTransactionRepo) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, reference string) (*domain.Transaction, error) {
	return r.GetByReference(ctx, reference)
}

func (r *inMemoryTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, reference string, status domain.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[reference]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.Status = status
	return nil
}

func (r *inMemoryTransactionRepo) ListByWallet(ctx context.Context, walletID uuid.UUID) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transaction
	for _, t := range r.transactions {
		if (t.SenderWalletID != nil && *t.SenderWalletID == walletID) ||
			(t.ReceiverWalletID != nil && *t.ReceiverWalletID == walletID) {
			result = append(result, *t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *inMemoryTransactionRepo) MarkStalePendingDeposits(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var swept int64
	for _, t := range r.transactions {
		if t.Type == domain.TransactionTypeDeposit &&
			t.Status == domain.TransactionStatusPending &&
			t.CreatedAt.Before(cutoff) {
			t.Status = domain.TransactionStatusFailed
			swept++
		}
	}
	return swept, nil
}

// --- In-Memory API Key Repo ---

type inMemoryAPIKeyRepo struct {
	mu   sync.RWMutex
	keys map[uuid.UUID]*domain.APIKey
}

func newInMemoryAPIKeyRepo() *inMemoryAPIKeyRepo {
	return &inMemoryAPIKeyRepo{keys: make(map[uuid.UUID]*domain.APIKey)}
}

func (r *inMemoryAPIKeyRepo) Create(ctx context.Context, tx pgx.Tx, k *domain.APIKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[k.ID] = k
	return nil
}

func (r *inMemoryAPIKeyRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[id]
	if !ok || k.UserID != userID {
		return nil, nil
	}
	return k, nil
}

func (r *inMemoryAPIKeyRepo) GetActiveBySecretHash(ctx context.Context, secretHash string) (*domain.APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range r.keys {
		if k.SecretHash == secretHash && k.Active {
			return k, nil
		}
	}
	return nil, nil
}

func (r *inMemoryAPIKeyRepo) CountActive(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, k := range r.keys {
		if k.UserID == userID && k.Active {
			count++
		}
	}
	return count, nil
}

func (r *inMemoryAPIKeyRepo) Deactivate(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[id]
	if !ok {
		return fmt.Errorf("key not found")
	}
	k.Active = false
	return nil
}

// --- Serializing Transactor ---

// serializingTransactor emulates row-level locking by serializing whole
// transactions behind a single mutex. Concurrency tests get the same
// exactly-once and no-overdraft guarantees the real FOR UPDATE path gives.
type serializingTransactor struct {
	mu sync.Mutex
}

func newSerializingTransactor() *serializingTransactor {
	return &serializingTransactor{}
}

var _ ports.DBTransactor = (*serializingTransactor)(nil)

func (t *serializingTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &memTx{release: &t.mu}, nil
}

// memTx is a pgx.Tx stub that holds the transactor lock until first
// Commit or Rollback.
type memTx struct {
	once    sync.Once
	release *sync.Mutex
}

func (t *memTx) done() {
	t.once.Do(t.release.Unlock)
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *memTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

// --- Fake Payment Processor ---

// fakeProcessor returns a canned checkout session without any network I/O.
type fakeProcessor struct{}

func (p *fakeProcessor) Initialize(ctx context.Context, email string, amount int64, reference string) (*ports.CheckoutSession, error) {
	return &ports.CheckoutSession{
		AuthorizationURL: "https://checkout.example.com/" + reference,
		AccessCode:       "access-" + reference,
		Reference:        reference,
	}, nil
}
