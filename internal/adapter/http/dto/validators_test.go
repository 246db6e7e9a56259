package dto

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// bindJSON runs gin's binding against payload, exercising the custom
// validators registered in this package's init.
func bindJSON(t *testing.T, target any, payload any) error {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c.ShouldBindJSON(target)
}

func TestTransferRequest_Valid(t *testing.T) {
	var req TransferRequest
	err := bindJSON(t, &req, gin.H{"wallet_number": "ab12cd34ef", "amount": 2500})
	require.NoError(t, err)
	assert.Equal(t, "ab12cd34ef", req.WalletNumber)
	assert.Equal(t, int64(2500), req.Amount)
}

func TestTransferRequest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload gin.H
	}{
		{"amount below minimum", gin.H{"wallet_number": "ab12cd34ef", "amount": 99}},
		{"wallet number wrong length", gin.H{"wallet_number": "short", "amount": 2500}},
		{"wallet number unsafe chars", gin.H{"wallet_number": "ab12cd34e;", "amount": 2500}},
		{"missing amount", gin.H{"wallet_number": "ab12cd34ef"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req TransferRequest
			assert.Error(t, bindJSON(t, &req, tt.payload))
		})
	}
}

func TestCreateKeyRequest_Valid(t *testing.T) {
	var req CreateKeyRequest
	err := bindJSON(t, &req, gin.H{
		"name":        "ci-pipeline",
		"permissions": []string{"read", "transfer"},
		"expiry":      "1M",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "transfer"}, req.Permissions)
}

func TestCreateKeyRequest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload gin.H
	}{
		{"unknown permission", gin.H{"name": "k", "permissions": []string{"admin"}, "expiry": "1D"}},
		{"empty permissions", gin.H{"name": "k", "permissions": []string{}, "expiry": "1D"}},
		{"bad expiry token", gin.H{"name": "k", "permissions": []string{"read"}, "expiry": "2W"}},
		{"lowercase expiry token", gin.H{"name": "k", "permissions": []string{"read"}, "expiry": "1d"}},
		{"missing name", gin.H{"permissions": []string{"read"}, "expiry": "1D"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateKeyRequest
			assert.Error(t, bindJSON(t, &req, tt.payload))
		})
	}
}

func TestRolloverKeyRequest_ExpiryTokens(t *testing.T) {
	for _, token := range []string{"1H", "1D", "1M", "1Y"} {
		var req RolloverKeyRequest
		assert.NoError(t, bindJSON(t, &req, gin.H{"expiry": token}), "token %s", token)
	}

	var req RolloverKeyRequest
	assert.Error(t, bindJSON(t, &req, gin.H{"expiry": "forever"}))
}

func TestFederatedCallbackRequest_EmailValidation(t *testing.T) {
	var req FederatedCallbackRequest
	assert.NoError(t, bindJSON(t, &req, gin.H{"email": "ada@example.com", "external_id": "google-oauth2|1"}))

	var bad FederatedCallbackRequest
	assert.Error(t, bindJSON(t, &bad, gin.H{"email": "not-an-email", "external_id": "google-oauth2|1"}))
}
