package dto

// FederatedCallbackRequest is the identity provider callback payload.
type FederatedCallbackRequest struct {
	Email      string `json:"email" binding:"required,email"`
	ExternalID string `json:"external_id" binding:"required,max=255"`
	FullName   string `json:"full_name" binding:"max=255"`
}

// LoginResponse is the response body for a successful federated login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
	UserID string `json:"user_id"`
}

// TransferRequest is the request body for a wallet-to-wallet transfer.
type TransferRequest struct {
	WalletNumber string `json:"wallet_number" binding:"required,len=10,safe_id"`
	Amount       int64  `json:"amount" binding:"required,min=100"`
}

// TransferResponse is the response body for a committed transfer.
type TransferResponse struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// DepositRequest is the request body for deposit initiation.
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required,min=100"`
}

// DepositResponse is the response body for deposit initiation.
type DepositResponse struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

// DepositStatusResponse is the response for deposit status polling.
type DepositStatusResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
}

// BalanceResponse is the response for balance query.
type BalanceResponse struct {
	WalletNumber     string `json:"wallet_number"`
	Balance          int64  `json:"balance"`
	FormattedBalance string `json:"formatted_balance"`
	Currency         string `json:"currency"`
}

// HistoryEntryResponse is one ledger entry in the history list.
type HistoryEntryResponse struct {
	Reference string `json:"reference"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Direction string `json:"direction"`
	CreatedAt string `json:"created_at"`
}

// CreateKeyRequest is the request body for API key issuance.
type CreateKeyRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Permissions []string `json:"permissions" binding:"required,min=1,dive,oneof=read deposit transfer"`
	Expiry      string   `json:"expiry" binding:"required,expiry_token"`
}

// RolloverKeyRequest is the request body for API key rollover.
type RolloverKeyRequest struct {
	Expiry string `json:"expiry" binding:"required,expiry_token"`
}

// KeyResponse is the response body for key issuance and rollover.
// Secret is only populated at issuance time.
type KeyResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Secret      string   `json:"secret,omitempty"`
	Permissions []string `json:"permissions"`
	ExpiresAt   string   `json:"expires_at"`
	IsActive    bool     `json:"is_active"`
}

// WebhookAckResponse acknowledges a processed webhook delivery.
type WebhookAckResponse struct {
	Status string `json:"status"`
}

// HealthResponse reports dependency health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}
