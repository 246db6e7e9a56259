package dto

import (
	"regexp"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("expiry_token", validateExpiryToken)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateExpiryToken accepts the fixed expiry vocabulary (1H, 1D, 1M, 1Y).
func validateExpiryToken(fl validator.FieldLevel) bool {
	_, ok := domain.ParseExpiryToken(fl.Field().String(), time.Now())
	return ok
}
