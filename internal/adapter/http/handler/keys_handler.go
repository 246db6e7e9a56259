package handler

import (
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KeysHandler handles API key management endpoints.
type KeysHandler struct {
	keysSvc ports.KeysService
}

// NewKeysHandler creates a new KeysHandler.
func NewKeysHandler(keysSvc ports.KeysService) *KeysHandler {
	return &KeysHandler{keysSvc: keysSvc}
}

// Create handles POST /api/v1/keys.
func (h *KeysHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.keysSvc.Create(c.Request.Context(), userID, req.Name, req.Permissions, req.Expiry)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, keyResponse(result.Key, result.Secret))
}

// Rollover handles POST /api/v1/keys/:id/rollover.
func (h *KeysHandler) Rollover(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid key id"))
		return
	}

	var req dto.RolloverKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.keysSvc.Rollover(c.Request.Context(), userID, keyID, req.Expiry)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, keyResponse(result.Key, result.Secret))
}

// Revoke handles DELETE /api/v1/keys/:id.
func (h *KeysHandler) Revoke(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid key id"))
		return
	}

	if err := h.keysSvc.Revoke(c.Request.Context(), userID, keyID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"revoked": true})
}

// keyResponse projects a key (and its one-time secret) to the wire shape.
func keyResponse(key *domain.APIKey, secret string) dto.KeyResponse {
	return dto.KeyResponse{
		ID:          key.ID.String(),
		Name:        key.Name,
		Secret:      secret,
		Permissions: key.Scopes,
		ExpiresAt:   key.ExpiresAt.UTC().Format(time.RFC3339),
		IsActive:    key.Active,
	}
}
