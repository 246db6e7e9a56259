package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser injects an authenticated principal the way the auth middleware does.
func asUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserID, userID)
		c.Next()
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWalletHandler_Transfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	userID := uuid.New()

	walletSvc.EXPECT().Transfer(gomock.Any(), ports.TransferRequest{
		SenderUserID:       userID,
		ReceiverWalletNumb: "ab12cd34ef",
		Amount:             2500,
	}).Return(&ports.TransferResult{Reference: "TRF-0011223344556677", Amount: 2500}, nil)

	h := NewWalletHandler(walletSvc)
	r := gin.New()
	r.POST("/transfer", asUser(userID), h.Transfer)

	w := doJSON(t, r, http.MethodPost, "/transfer", gin.H{
		"wallet_number": "ab12cd34ef",
		"amount":        2500,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "TRF-0011223344556677", data["reference"])
	assert.Equal(t, float64(2500), data["amount"])
	assert.Equal(t, "success", data["status"])
}

func TestWalletHandler_Transfer_ValidationFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	h := NewWalletHandler(walletSvc)
	r := gin.New()
	r.POST("/transfer", asUser(uuid.New()), h.Transfer)

	// Amount below minimum never reaches the service
	w := doJSON(t, r, http.MethodPost, "/transfer", gin.H{
		"wallet_number": "ab12cd34ef",
		"amount":        50,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", envelope(t, w)["error_code"])
}

func TestWalletHandler_Transfer_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	walletSvc.EXPECT().Transfer(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientFunds())

	h := NewWalletHandler(walletSvc)
	r := gin.New()
	r.POST("/transfer", asUser(uuid.New()), h.Transfer)

	w := doJSON(t, r, http.MethodPost, "/transfer", gin.H{
		"wallet_number": "ab12cd34ef",
		"amount":        5000,
	})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "WAL_001", envelope(t, w)["error_code"])
}

func TestWalletHandler_InitiateDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	userID := uuid.New()

	walletSvc.EXPECT().InitiateDeposit(gomock.Any(), userID, int64(5000)).
		Return(&ports.DepositInitResult{
			Reference:        "REF-0011223344556677",
			AuthorizationURL: "https://checkout.paystack.com/abc",
		}, nil)

	h := NewWalletHandler(walletSvc)
	r := gin.New()
	r.POST("/deposit", asUser(userID), h.InitiateDeposit)

	w := doJSON(t, r, http.MethodPost, "/deposit", gin.H{"amount": 5000})

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "REF-0011223344556677", data["reference"])
	assert.Equal(t, "https://checkout.paystack.com/abc", data["authorization_url"])
}

func TestWalletHandler_Webhook_PassesRawBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	rawBody := []byte(`{"event":"charge.success","data":{"reference":"REF-aa","amount":500000,"status":"success"}}`)

	walletSvc.EXPECT().ProcessWebhook(gomock.Any(), "sig-hex", rawBody).
		Return(&ports.WebhookResult{Status: "success", Reference: "REF-aa", Credited: true}, nil)

	h := NewWalletHandler(walletSvc)
	r := gin.New()
	r.POST("/webhook", h.Webhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(rawBody))
	req.Header.Set(HeaderPaystackSignature, "sig-hex")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "success", data["status"])
}

func TestWalletHandler_Webhook_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	walletSvc.EXPECT().ProcessWebhook(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInvalidSignature())

	h := NewWalletHandler(walletSvc)
	r := gin.New()
	r.POST("/webhook", h.Webhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set(HeaderPaystackSignature, "wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_001", envelope(t, w)["error_code"])
}

func TestWalletHandler_GetBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	userID := uuid.New()

	walletSvc.EXPECT().GetBalance(gomock.Any(), userID).Return(&domain.Wallet{
		ID:       uuid.New(),
		UserID:   userID,
		Number:   "ab12cd34ef",
		Balance:  125000,
		Currency: "NGN",
	}, nil)

	h := NewWalletHandler(walletSvc)
	r := gin.New()
	r.GET("/balance", asUser(userID), h.GetBalance)

	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "ab12cd34ef", data["wallet_number"])
	assert.Equal(t, float64(125000), data["balance"])
	assert.Equal(t, "NGN", data["currency"])
	assert.NotEmpty(t, data["formatted_balance"])
}

func TestWalletHandler_GetHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	userID := uuid.New()
	now := time.Now()

	walletSvc.EXPECT().GetHistory(gomock.Any(), userID).Return([]ports.HistoryEntry{
		{Reference: "TRF-aa", Type: domain.TransactionTypeTransfer, Status: domain.TransactionStatusSuccess, Amount: 2500, Direction: "debit", CreatedAt: now},
		{Reference: "REF-bb", Type: domain.TransactionTypeDeposit, Status: domain.TransactionStatusSuccess, Amount: 5000, Direction: "credit", CreatedAt: now},
	}, nil)

	h := NewWalletHandler(walletSvc)
	r := gin.New()
	r.GET("/history", asUser(userID), h.GetHistory)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	entries := envelope(t, w)["data"].([]any)
	require.Len(t, entries, 2)
	first := entries[0].(map[string]any)
	assert.Equal(t, "TRF-aa", first["reference"])
	assert.Equal(t, "debit", first["direction"])
}

func TestKeysHandler_Create_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keysSvc := mocks.NewMockKeysService(ctrl)
	userID := uuid.New()
	key := &domain.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "ci-pipeline",
		Scopes:    []string{domain.ScopeRead, domain.ScopeDeposit},
		ExpiresAt: time.Now().Add(24 * time.Hour),
		Active:    true,
	}

	keysSvc.EXPECT().Create(gomock.Any(), userID, "ci-pipeline", []string{"read", "deposit"}, "1D").
		Return(&ports.APIKeyResult{Key: key, Secret: "sk_live_onetimesecret"}, nil)

	h := NewKeysHandler(keysSvc)
	r := gin.New()
	r.POST("/keys", asUser(userID), h.Create)

	w := doJSON(t, r, http.MethodPost, "/keys", gin.H{
		"name":        "ci-pipeline",
		"permissions": []string{"read", "deposit"},
		"expiry":      "1D",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, key.ID.String(), data["id"])
	assert.Equal(t, "sk_live_onetimesecret", data["secret"])
	assert.Equal(t, true, data["is_active"])
}

func TestKeysHandler_Create_InvalidPermission(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keysSvc := mocks.NewMockKeysService(ctrl)
	h := NewKeysHandler(keysSvc)
	r := gin.New()
	r.POST("/keys", asUser(uuid.New()), h.Create)

	// Unknown scope is rejected at binding, service never called
	w := doJSON(t, r, http.MethodPost, "/keys", gin.H{
		"name":        "bad",
		"permissions": []string{"admin"},
		"expiry":      "1D",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", envelope(t, w)["error_code"])
}

func TestKeysHandler_Rollover_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keysSvc := mocks.NewMockKeysService(ctrl)
	userID := uuid.New()
	oldID := uuid.New()
	newKey := &domain.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "ci-pipeline",
		Scopes:    []string{domain.ScopeRead},
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
		Active:    true,
	}

	keysSvc.EXPECT().Rollover(gomock.Any(), userID, oldID, "1M").
		Return(&ports.APIKeyResult{Key: newKey, Secret: "sk_live_rotated"}, nil)

	h := NewKeysHandler(keysSvc)
	r := gin.New()
	r.POST("/keys/:id/rollover", asUser(userID), h.Rollover)

	w := doJSON(t, r, http.MethodPost, "/keys/"+oldID.String()+"/rollover", gin.H{"expiry": "1M"})

	assert.Equal(t, http.StatusCreated, w.Code)
	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, newKey.ID.String(), data["id"])
	assert.Equal(t, "sk_live_rotated", data["secret"])
}

func TestKeysHandler_Rollover_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keysSvc := mocks.NewMockKeysService(ctrl)
	h := NewKeysHandler(keysSvc)
	r := gin.New()
	r.POST("/keys/:id/rollover", asUser(uuid.New()), h.Rollover)

	w := doJSON(t, r, http.MethodPost, "/keys/not-a-uuid/rollover", gin.H{"expiry": "1M"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VAL_001", envelope(t, w)["error_code"])
}

func TestKeysHandler_Revoke(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	keysSvc := mocks.NewMockKeysService(ctrl)
	userID := uuid.New()
	keyID := uuid.New()

	keysSvc.EXPECT().Revoke(gomock.Any(), userID, keyID).Return(nil)

	h := NewKeysHandler(keysSvc)
	r := gin.New()
	r.DELETE("/keys/:id", asUser(userID), h.Revoke)

	req := httptest.NewRequest(http.MethodDelete, "/keys/"+keyID.String(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["revoked"])
}

func TestAuthHandler_FederatedCallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	authSvc := mocks.NewMockAuthService(ctrl)
	user := &domain.User{ID: uuid.New(), Email: "ada@example.com"}
	expiry := time.Now().Add(24 * time.Hour)

	authSvc.EXPECT().FederatedLogin(gomock.Any(), ports.ExternalIdentity{
		Email:      "ada@example.com",
		ExternalID: "google-oauth2|123",
		FullName:   "Ada L",
	}).Return(&ports.LoginResult{Token: "jwt-token", ExpiresAt: expiry, User: user}, nil)

	h := NewAuthHandler(authSvc)
	r := gin.New()
	r.POST("/callback", h.FederatedCallback)

	w := doJSON(t, r, http.MethodPost, "/callback", gin.H{
		"email":       "ada@example.com",
		"external_id": "google-oauth2|123",
		"full_name":   "Ada L",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	data := envelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "jwt-token", data["token"])
	assert.Equal(t, user.ID.String(), data["user_id"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	healthy := stubChecker{name: "postgres", err: nil}
	broken := stubChecker{name: "redis", err: assert.AnError}

	r := gin.New()
	r.GET("/health", HealthCheck(healthy, broken))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := envelope(t, w)
	assert.Equal(t, "degraded", body["status"])
}

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                 { return s.name }
func (s stubChecker) Ping(_ context.Context) error { return s.err }
