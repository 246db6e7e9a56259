package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "wallet-ledger/internal/adapter/http/handler"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds a full application stack: the real HTTP layer, middleware,
// handlers, and services wired to in-memory repos and miniredis. The only
// fake beyond storage is the payment processor client.

type testApp struct {
	server    *httptest.Server
	redis     *miniredis.Miniredis
	sigSvc    *service.HMACSignatureService
	walletSvc ports.WalletService
	txRepo    *inMemoryTransactionRepo
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	sigSvc := service.NewHMACSignatureService("sk_test_webhook_secret")
	hashSvc := service.NewBlake2bHashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	userRepo := newInMemoryUserRepo()
	walletRepo := newInMemoryWalletRepo()
	txRepo := newInMemoryTransactionRepo()
	keyRepo := newInMemoryAPIKeyRepo()
	transactor := newSerializingTransactor()

	log := logger.NewWithWriter("error", io.Discard)
	authSvc := service.NewAuthService(userRepo, walletRepo, tokenSvc, transactor, log)
	walletSvc := service.NewWalletService(
		walletRepo, txRepo, userRepo,
		&fakeProcessor{}, sigSvc, idempotencyCache, transactor,
		100, 24*time.Hour, log)
	keysSvc := service.NewKeysService(keyRepo, hashSvc, transactor, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		WalletSvc:      walletSvc,
		KeysSvc:        keysSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server:    server,
		redis:     mr,
		sigSvc:    sigSvc,
		walletSvc: walletSvc,
		txRepo:    txRepo,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// --- Helpers ---

func signIn(t *testing.T, app *testApp, email string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"email":       email,
		"external_id": "google-oauth2|" + email,
		"full_name":   "Test User",
	})
	resp, err := http.Post(app.server.URL+"/api/v1/auth/federated/callback", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result.Data.Token)
	return result.Data.Token
}

func authedGet(t *testing.T, app *testApp, token, path string) (*http.Response, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, app.server.URL+path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func authedPost(t *testing.T, app *testApp, token, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, app.server.URL+path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

// deliverWebhook signs and posts a processor event for the given reference.
// Amount is in minor units, as on the real wire.
func deliverWebhook(t *testing.T, app *testApp, event, reference string, minorAmount int64) *http.Response {
	t.Helper()
	payload := fmt.Sprintf(`{"event":%q,"data":{"reference":%q,"amount":%d,"status":"success"}}`, event, reference, minorAmount)
	body := []byte(payload)

	req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/wallet/deposit/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-paystack-signature", app.sigSvc.Sign(body))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func getBalance(t *testing.T, app *testApp, token string) (int64, string) {
	t.Helper()
	resp, body := authedGet(t, app, token, "/api/v1/wallet/balance")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	return int64(data["balance"].(float64)), data["wallet_number"].(string)
}

// fundWallet credits a wallet through the full deposit + webhook path.
func fundWallet(t *testing.T, app *testApp, token string, amount int64) {
	t.Helper()
	resp, body := authedPost(t, app, token, "/api/v1/wallet/deposit", map[string]any{"amount": amount})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reference := body["data"].(map[string]any)["reference"].(string)

	whResp := deliverWebhook(t, app, "charge.success", reference, amount*100)
	require.Equal(t, http.StatusOK, whResp.StatusCode)
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_FederatedOnboarding(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := signIn(t, app, "ada@example.com")

	balance, walletNumber := getBalance(t, app, token)
	assert.Equal(t, int64(0), balance)
	assert.Len(t, walletNumber, 10)

	// Second sign-in with the same email resolves to the same user
	token2 := signIn(t, app, "ada@example.com")
	_, walletNumber2 := getBalance(t, app, token2)
	assert.Equal(t, walletNumber, walletNumber2)
}

func TestIntegration_DepositLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := signIn(t, app, "depositor@example.com")

	// Initiate
	resp, body := authedPost(t, app, token, "/api/v1/wallet/deposit", map[string]any{"amount": 5000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	reference := data["reference"].(string)
	assert.NotEmpty(t, data["authorization_url"])

	// Pending until the processor confirms
	statusResp, statusBody := authedGet(t, app, token, "/api/v1/wallet/deposit/status/"+reference)
	require.Equal(t, http.StatusOK, statusResp.StatusCode)
	assert.Equal(t, "pending", statusBody["data"].(map[string]any)["status"])

	// Processor confirms with the amount in minor units
	whResp := deliverWebhook(t, app, "charge.success", reference, 500000)
	assert.Equal(t, http.StatusOK, whResp.StatusCode)

	balance, _ := getBalance(t, app, token)
	assert.Equal(t, int64(5000), balance)

	statusResp2, statusBody2 := authedGet(t, app, token, "/api/v1/wallet/deposit/status/"+reference)
	require.Equal(t, http.StatusOK, statusResp2.StatusCode)
	assert.Equal(t, "success", statusBody2["data"].(map[string]any)["status"])
}

func TestIntegration_WebhookReplayCreditsOnce(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := signIn(t, app, "replay@example.com")

	resp, body := authedPost(t, app, token, "/api/v1/wallet/deposit", map[string]any{"amount": 5000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reference := body["data"].(map[string]any)["reference"].(string)

	for i := 0; i < 5; i++ {
		whResp := deliverWebhook(t, app, "charge.success", reference, 500000)
		assert.Equal(t, http.StatusOK, whResp.StatusCode)
	}

	balance, _ := getBalance(t, app, token)
	assert.Equal(t, int64(5000), balance, "replayed deliveries must credit exactly once")
}

func TestIntegration_WebhookBadSignature(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	body := []byte(`{"event":"charge.success","data":{"reference":"REF-forged","amount":99999900,"status":"success"}}`)
	req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/wallet/deposit/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-paystack-signature", "not-the-right-signature")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_WebhookIgnoresOtherEvents(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := signIn(t, app, "ignored@example.com")

	resp, body := authedPost(t, app, token, "/api/v1/wallet/deposit", map[string]any{"amount": 5000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reference := body["data"].(map[string]any)["reference"].(string)

	whResp := deliverWebhook(t, app, "charge.failed", reference, 500000)
	assert.Equal(t, http.StatusOK, whResp.StatusCode)

	balance, _ := getBalance(t, app, token)
	assert.Equal(t, int64(0), balance)
}

func TestIntegration_Transfer(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	senderToken := signIn(t, app, "sender@example.com")
	receiverToken := signIn(t, app, "receiver@example.com")

	fundWallet(t, app, senderToken, 10000)
	_, receiverNumber := getBalance(t, app, receiverToken)

	resp, body := authedPost(t, app, senderToken, "/api/v1/wallet/transfer", map[string]any{
		"wallet_number": receiverNumber,
		"amount":        4000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Contains(t, data["reference"], "TRF-")
	assert.Equal(t, "success", data["status"])

	senderBalance, _ := getBalance(t, app, senderToken)
	receiverBalance, _ := getBalance(t, app, receiverToken)
	assert.Equal(t, int64(6000), senderBalance)
	assert.Equal(t, int64(4000), receiverBalance)

	// Both sides see the entry from their own perspective
	_, senderHist := authedGet(t, app, senderToken, "/api/v1/wallet/history")
	senderEntries := senderHist["data"].([]any)
	require.NotEmpty(t, senderEntries)
	assert.Equal(t, "debit", senderEntries[0].(map[string]any)["direction"])

	_, receiverHist := authedGet(t, app, receiverToken, "/api/v1/wallet/history")
	receiverEntries := receiverHist["data"].([]any)
	require.NotEmpty(t, receiverEntries)
	assert.Equal(t, "credit", receiverEntries[0].(map[string]any)["direction"])
}

func TestIntegration_Transfer_InsufficientFunds(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	senderToken := signIn(t, app, "broke@example.com")
	receiverToken := signIn(t, app, "rich@example.com")
	_, receiverNumber := getBalance(t, app, receiverToken)

	resp, body := authedPost(t, app, senderToken, "/api/v1/wallet/transfer", map[string]any{
		"wallet_number": receiverNumber,
		"amount":        1000,
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "WAL_001", body["error_code"])

	// Insufficient funds wins over whatever the receiver number resolves
	// to; a broke sender always sees the same error code.
	_, senderNumber := getBalance(t, app, senderToken)
	for _, target := range []string{"0000000000", senderNumber} {
		resp, body = authedPost(t, app, senderToken, "/api/v1/wallet/transfer", map[string]any{
			"wallet_number": target,
			"amount":        1000,
		})
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
		assert.Equal(t, "WAL_001", body["error_code"])
	}
}

func TestIntegration_Transfer_SelfTransfer(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := signIn(t, app, "selfie@example.com")
	fundWallet(t, app, token, 5000)
	_, ownNumber := getBalance(t, app, token)

	resp, body := authedPost(t, app, token, "/api/v1/wallet/transfer", map[string]any{
		"wallet_number": ownNumber,
		"amount":        1000,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "WAL_002", body["error_code"])
}

func TestIntegration_APIKeyLifecycle(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := signIn(t, app, "keyed@example.com")

	// Issue a read-only key
	resp, body := authedPost(t, app, token, "/api/v1/keys", map[string]any{
		"name":        "reporting",
		"permissions": []string{"read"},
		"expiry":      "1D",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	keyID := data["id"].(string)
	secret := data["secret"].(string)
	require.NotEmpty(t, secret)

	// The key works on read routes
	req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/wallet/balance", nil)
	req.Header.Set("X-API-Key", secret)
	keyResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	keyResp.Body.Close()
	assert.Equal(t, http.StatusOK, keyResp.StatusCode)

	// But not on transfer routes it lacks a scope for
	raw, _ := json.Marshal(map[string]any{"wallet_number": "ab12cd34ef", "amount": 1000})
	txReq, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/wallet/transfer", bytes.NewReader(raw))
	txReq.Header.Set("Content-Type", "application/json")
	txReq.Header.Set("X-API-Key", secret)
	txResp, err := http.DefaultClient.Do(txReq)
	require.NoError(t, err)
	txResp.Body.Close()
	assert.Equal(t, http.StatusForbidden, txResp.StatusCode)

	// Revoke, then the key is dead
	delReq, _ := http.NewRequest(http.MethodDelete, app.server.URL+"/api/v1/keys/"+keyID, nil)
	delReq.Header.Set("Authorization", "Bearer "+token)
	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	req2, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/wallet/balance", nil)
	req2.Header.Set("X-API-Key", secret)
	deadResp, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	deadResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, deadResp.StatusCode)
}

func TestIntegration_APIKeyLimit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := signIn(t, app, "hoarder@example.com")

	for i := 0; i < 5; i++ {
		resp, _ := authedPost(t, app, token, "/api/v1/keys", map[string]any{
			"name":        fmt.Sprintf("key-%d", i),
			"permissions": []string{"read"},
			"expiry":      "1D",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := authedPost(t, app, token, "/api/v1/keys", map[string]any{
		"name":        "one-too-many",
		"permissions": []string{"read"},
		"expiry":      "1D",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "KEY_001", body["error_code"])
}

func TestIntegration_APIKeyRollover_RequiresExpiry(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := signIn(t, app, "rotator@example.com")

	resp, body := authedPost(t, app, token, "/api/v1/keys", map[string]any{
		"name":        "live-key",
		"permissions": []string{"read"},
		"expiry":      "1Y",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	keyID := body["data"].(map[string]any)["id"].(string)

	// A live key cannot be rolled over
	rollResp, rollBody := authedPost(t, app, token, "/api/v1/keys/"+keyID+"/rollover", map[string]any{"expiry": "1M"})
	assert.Equal(t, http.StatusBadRequest, rollResp.StatusCode)
	assert.Equal(t, "KEY_003", rollBody["error_code"])
}

func TestIntegration_StaleDepositSweep(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := signIn(t, app, "abandoner@example.com")

	resp, body := authedPost(t, app, token, "/api/v1/wallet/deposit", map[string]any{"amount": 5000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reference := body["data"].(map[string]any)["reference"].(string)

	// Age the pending row past the TTL
	ctx := context.Background()
	txn, err := app.txRepo.GetByReference(ctx, reference)
	require.NoError(t, err)
	require.NotNil(t, txn)
	txn.CreatedAt = time.Now().Add(-25 * time.Hour)

	swept, err := app.walletSvc.SweepStalePendingDeposits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	statusResp, statusBody := authedGet(t, app, token, "/api/v1/wallet/deposit/status/"+reference)
	require.Equal(t, http.StatusOK, statusResp.StatusCode)
	assert.Equal(t, "failed", statusBody["data"].(map[string]any)["status"])

	// A webhook arriving after the sweep must not resurrect the deposit
	whResp := deliverWebhook(t, app, "charge.success", reference, 500000)
	assert.Equal(t, http.StatusOK, whResp.StatusCode)

	balance, _ := getBalance(t, app, token)
	assert.Equal(t, int64(0), balance)

	statusResp2, statusBody2 := authedGet(t, app, token, "/api/v1/wallet/deposit/status/"+reference)
	require.Equal(t, http.StatusOK, statusResp2.StatusCode)
	assert.Equal(t, "failed", statusBody2["data"].(map[string]any)["status"])
}

func TestIntegration_Unauthorized(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	req, _ := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/wallet/balance", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
