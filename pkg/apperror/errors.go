package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet & Ledger (WAL) ----

func ErrInsufficientFunds() *AppError {
	return New("WAL_001", "Insufficient funds in wallet", http.StatusPaymentRequired)
}

func ErrSelfTransfer() *AppError {
	return New("WAL_002", "Cannot transfer to own wallet", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("WAL_003", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- API Keys (KEY) ----

func ErrKeyLimitExceeded() *AppError {
	return New("KEY_001", "Maximum of 5 active API keys allowed", http.StatusUnprocessableEntity)
}

func ErrInvalidExpiry() *AppError {
	return New("KEY_002", "Expiry must be one of 1H, 1D, 1M, 1Y", http.StatusBadRequest)
}

func ErrKeyNotExpired() *AppError {
	return New("KEY_003", "Cannot rollover: key has not expired yet", http.StatusBadRequest)
}

// ---- Access Gate (AUTH) ----

func ErrUnauthorized() *AppError {
	return New("AUTH_001", "Authentication required", http.StatusUnauthorized)
}

func ErrForbidden(scope string) *AppError {
	return New("AUTH_002", fmt.Sprintf("Missing permission: %s", scope), http.StatusForbidden)
}

// ---- Webhook Security (SEC) ----

func ErrInvalidSignature() *AppError {
	return New("SEC_001", "Invalid webhook signature", http.StatusUnauthorized)
}

// ---- External Processor (PROC) ----

func ErrProcessor(err error) *AppError {
	return Wrap("PROC_001", "Payment processor request failed", http.StatusBadGateway, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a VAL_001 validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
