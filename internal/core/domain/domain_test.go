package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDepositReference_Format(t *testing.T) {
	ref, err := NewDepositReference()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "REF-"))
	assert.Len(t, ref, len("REF-")+16)
}

func TestNewTransferReference_Format(t *testing.T) {
	ref, err := NewTransferReference()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "TRF-"))
	assert.Len(t, ref, len("TRF-")+16)
}

func TestReferences_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref, err := NewDepositReference()
		require.NoError(t, err)
		assert.False(t, seen[ref], "reference collision: %s", ref)
		seen[ref] = true
	}
}

func TestNewWalletNumber_Format(t *testing.T) {
	num, err := NewWalletNumber()
	require.NoError(t, err)
	assert.Len(t, num, 10)
	for _, r := range num {
		assert.Contains(t, "0123456789abcdef", string(r))
	}
}

func TestWallet_FormattedBalance(t *testing.T) {
	w := &Wallet{Balance: 125000}
	assert.Equal(t, "125000.00", w.FormattedBalance())

	w.Balance = 0
	assert.Equal(t, "0.00", w.FormattedBalance())
}

func TestTransaction_IsTerminal(t *testing.T) {
	txn := &Transaction{Status: TransactionStatusPending}
	assert.False(t, txn.IsTerminal())

	txn.Status = TransactionStatusSuccess
	assert.True(t, txn.IsTerminal())

	txn.Status = TransactionStatusFailed
	assert.True(t, txn.IsTerminal())
}

func TestBuildWebhookDedupeKey(t *testing.T) {
	assert.Equal(t, "webhook:REF-abc", BuildWebhookDedupeKey("REF-abc"))
}

func TestAPIKey_IsExpired(t *testing.T) {
	now := time.Now()
	key := &APIKey{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, key.IsExpired(now))
	assert.True(t, key.IsExpired(now.Add(2*time.Minute)))
}

func TestAPIKey_HasScope(t *testing.T) {
	key := &APIKey{Scopes: []string{ScopeRead, ScopeDeposit}}
	assert.True(t, key.HasScope(ScopeRead))
	assert.True(t, key.HasScope(ScopeDeposit))
	assert.False(t, key.HasScope(ScopeTransfer))
	assert.False(t, key.HasScope("admin"))

	empty := &APIKey{}
	assert.False(t, empty.HasScope(ScopeRead))
}

func TestParseExpiryToken(t *testing.T) {
	now := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		token string
		want  time.Time
		ok    bool
	}{
		{"1H", now.Add(time.Hour), true},
		{"1D", time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), true},
		{"1M", time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), true}, // Jan 31 + 1 month normalizes past Feb
		{"1Y", time.Date(2027, 1, 31, 12, 0, 0, 0, time.UTC), true},
		{"2W", time.Time{}, false},
		{"1h", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseExpiryToken(tt.token, now)
		assert.Equal(t, tt.ok, ok, "token %q", tt.token)
		if tt.ok {
			assert.Equal(t, tt.want, got, "token %q", tt.token)
		}
	}
}
