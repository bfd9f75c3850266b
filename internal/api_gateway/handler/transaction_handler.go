package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketplace-wallet-ledger/internal/api_gateway/middleware"
	"github.com/marketplace-wallet-ledger/internal/api_gateway/service"
	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
)

// TransactionHandler handles HTTP requests for ledger transaction queries
// and cancellation
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// GetByID retrieves transaction details by its ID, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger, "Invalid transaction ID")
	if !ok {
		return
	}

	tx, err := h.transactionService.GetTransactionByID(c.Request.Context(), middleware.GetProfileID(c), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	if tx == nil {
		RespondNotFound(c, "Transaction not found")
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// GetByWalletID retrieves paginated transaction history for a wallet,
// optionally filtered by type and status
func (h *TransactionHandler) GetByWalletID(c *gin.Context) {
	walletID, ok := parseIDParam(c, h.logger, "Invalid wallet ID")
	if !ok {
		return
	}

	var params TransactionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid list parameters", "error", err)
		RespondBadRequest(c, "Invalid list parameters")
		return
	}

	filter := ledger.ListFilter{
		Type:   shared.TransactionType(params.Type),
		Status: shared.TransactionStatus(params.Status),
	}
	if params.Type != "" && !filter.Type.Valid() {
		RespondBadRequest(c, "Invalid transaction type filter")
		return
	}

	transactions, total, err := h.transactionService.GetTransactionsByWalletID(
		c.Request.Context(),
		middleware.GetProfileID(c),
		walletID,
		filter,
		params.Page,
		params.PerPage,
	)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		responses = append(responses, mapTransactionToResponse(tx))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, int(total))
}

// Cancel cancels a transaction that is still PENDING
func (h *TransactionHandler) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, h.logger, "Invalid transaction ID")
	if !ok {
		return
	}

	tx, err := h.transactionService.CancelTransaction(c.Request.Context(), middleware.GetProfileID(c), id)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// mapTransactionToResponse maps a ledger transaction to a response DTO
func mapTransactionToResponse(tx *ledger.Transaction) TransactionResponse {
	response := TransactionResponse{
		TransactionID: tx.TransactionID.String(),
		WalletID:      tx.WalletID.String(),
		Type:          string(tx.Type),
		Amount:        tx.Amount.String(),
		Fee:           tx.Fee.String(),
		NetAmount:     tx.NetAmount.String(),
		Currency:      tx.Currency,
		Status:        string(tx.Status),
		Description:   tx.Description,
		FailureReason: tx.FailureReason,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	}

	if tx.RelatedTransactionID != nil {
		response.RelatedTransactionID = tx.RelatedTransactionID.String()
	}
	if tx.CompletedAt != nil {
		response.CompletedAt = tx.CompletedAt.Format(time.RFC3339)
	}

	return response
}
