package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace-wallet-ledger/internal/api_gateway/middleware"
	"github.com/marketplace-wallet-ledger/internal/api_gateway/service"
	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	walletService service.WalletService
	logger        *slog.Logger
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// Create creates a new wallet for the calling profile
func (h *WalletHandler) Create(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	callerID := middleware.GetProfileID(c)
	w, err := h.walletService.CreateWallet(c.Request.Context(), callerID, req.Currency, req.IsDefault)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapWalletToResponse(w))
}

// GetByID retrieves wallet details, returns 404 if not found
func (h *WalletHandler) GetByID(c *gin.Context) {
	walletID, ok := parseIDParam(c, h.logger, "Invalid wallet ID")
	if !ok {
		return
	}

	w, err := h.walletService.GetWallet(c.Request.Context(), middleware.GetProfileID(c), walletID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapWalletToResponse(w))
}

// List retrieves all wallets owned by the calling profile
func (h *WalletHandler) List(c *gin.Context) {
	wallets, err := h.walletService.ListWallets(c.Request.Context(), middleware.GetProfileID(c))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]WalletResponse, 0, len(wallets))
	for _, w := range wallets {
		responses = append(responses, mapWalletToResponse(w))
	}
	RespondOK(c, responses)
}

// Deposit initiates an asynchronous deposit into the wallet
func (h *WalletHandler) Deposit(c *gin.Context) {
	h.submitMovement(c, shared.TransactionTypeDeposit)
}

// Withdraw initiates an asynchronous withdrawal from the wallet
func (h *WalletHandler) Withdraw(c *gin.Context) {
	h.submitMovement(c, shared.TransactionTypeWithdrawal)
}

func (h *WalletHandler) submitMovement(c *gin.Context, txType shared.TransactionType) {
	walletID, ok := parseIDParam(c, h.logger, "Invalid wallet ID")
	if !ok {
		return
	}

	var req MoneyMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount: "+req.Amount)
		return
	}

	callerID := middleware.GetProfileID(c)
	correlationID := middleware.GetCorrelationID(c)

	var tx *ledger.Transaction
	var fromIdempotencyKey bool
	if txType == shared.TransactionTypeDeposit {
		tx, fromIdempotencyKey, err = h.walletService.Deposit(c.Request.Context(), callerID, walletID, amount, req.Currency, req.IdempotencyKey, correlationID)
	} else {
		tx, fromIdempotencyKey, err = h.walletService.Withdraw(c.Request.Context(), callerID, walletID, amount, req.Currency, req.IdempotencyKey, correlationID)
	}
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	if fromIdempotencyKey {
		RespondOK(c, mapTransactionToResponse(tx))
		return
	}
	RespondAccepted(c, mapTransactionToResponse(tx))
}

func mapWalletToResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID.String(),
		OwnerID:   w.OwnerID.String(),
		Currency:  w.Currency,
		Balance:   w.Balance.String(),
		IsDefault: w.IsDefault,
		Disabled:  w.Disabled,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
		UpdatedAt: w.UpdatedAt.Format(time.RFC3339),
	}
}

// parseIDParam parses the :id path parameter as a UUID
func parseIDParam(c *gin.Context, logger *slog.Logger, message string) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		logger.Error("Invalid ID parameter", "id", idParam, "error", err)
		RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}
