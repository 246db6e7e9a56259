package handler

import (
	"io"
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderPaystackSignature carries the processor's HMAC over the raw body.
const HeaderPaystackSignature = "x-paystack-signature"

// WalletHandler handles wallet and ledger endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.walletSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		SenderUserID:       userID,
		ReceiverWalletNumb: req.WalletNumber,
		Amount:             req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TransferResponse{
		Reference: result.Reference,
		Amount:    result.Amount,
		Status:    "success",
	})
}

// InitiateDeposit handles POST /api/v1/wallet/deposit.
func (h *WalletHandler) InitiateDeposit(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.walletSvc.InitiateDeposit(c.Request.Context(), userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DepositResponse{
		Reference:        result.Reference,
		AuthorizationURL: result.AuthorizationURL,
	})
}

// Webhook handles POST /api/v1/wallet/deposit/webhook. The body is
// consumed raw; the signature covers the exact bytes delivered.
func (h *WalletHandler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	result, err := h.walletSvc.ProcessWebhook(c.Request.Context(), c.GetHeader(HeaderPaystackSignature), rawBody)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WebhookAckResponse{Status: result.Status})
}

// GetBalance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	wallet, err := h.walletSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletNumber:     wallet.Number,
		Balance:          wallet.Balance,
		FormattedBalance: wallet.FormattedBalance(),
		Currency:         wallet.Currency,
	})
}

// GetHistory handles GET /api/v1/wallet/history.
func (h *WalletHandler) GetHistory(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthorized())
		return
	}

	entries, err := h.walletSvc.GetHistory(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.HistoryEntryResponse{
			Reference: e.Reference,
			Type:      string(e.Type),
			Status:    string(e.Status),
			Amount:    e.Amount,
			Direction: e.Direction,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	response.OK(c, out)
}

// GetDepositStatus handles GET /api/v1/wallet/deposit/status/:reference.
func (h *WalletHandler) GetDepositStatus(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		response.Error(c, apperror.Validation("reference is required"))
		return
	}

	txn, err := h.walletSvc.GetDepositStatus(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DepositStatusResponse{
		Reference: txn.Reference,
		Status:    string(txn.Status),
		Amount:    txn.Amount,
		CreatedAt: txn.CreatedAt.UTC().Format(time.RFC3339),
	})
}
