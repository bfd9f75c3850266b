package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/marketplace-wallet-ledger/internal/api_gateway/middleware"
	"github.com/marketplace-wallet-ledger/internal/api_gateway/service"
	"github.com/marketplace-wallet-ledger/internal/domain/escrow"
)

// EscrowHandler handles HTTP requests for escrow hold operations
type EscrowHandler struct {
	escrowService service.EscrowService
	logger        *slog.Logger
}

// NewEscrowHandler creates a new escrow handler
func NewEscrowHandler(logger *slog.Logger, escrowService service.EscrowService) *EscrowHandler {
	return &EscrowHandler{
		escrowService: escrowService,
		logger:        logger,
	}
}

// Create opens an escrow hold, debiting the funder wallet synchronously
func (h *EscrowHandler) Create(c *gin.Context) {
	var req CreateEscrowRequest
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

	// Binding already validated the UUID formats
	contractID := uuid.MustParse(req.ContractID)
	funderWalletID := uuid.MustParse(req.FunderWalletID)
	receiverProfileID := uuid.MustParse(req.ReceiverProfileID)

	var milestoneID *uuid.UUID
	if req.MilestoneID != nil {
		id := uuid.MustParse(*req.MilestoneID)
		milestoneID = &id
	}

	hold, err := h.escrowService.CreateHold(c.Request.Context(), middleware.GetProfileID(c), service.CreateHoldParams{
		ContractID:        contractID,
		MilestoneID:       milestoneID,
		FunderWalletID:    funderWalletID,
		ReceiverProfileID: receiverProfileID,
		Amount:            amount,
		Currency:          req.Currency,
		CorrelationID:     middleware.GetCorrelationID(c),
	})
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapHoldToResponse(hold))
}

// GetByID retrieves escrow hold details
func (h *EscrowHandler) GetByID(c *gin.Context) {
	holdID, ok := parseIDParam(c, h.logger, "Invalid escrow hold ID")
	if !ok {
		return
	}

	hold, err := h.escrowService.GetHold(c.Request.Context(), middleware.GetProfileID(c), holdID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapHoldToResponse(hold))
}

// ListByWallet retrieves paginated escrow holds funded from a wallet
func (h *EscrowHandler) ListByWallet(c *gin.Context) {
	walletID, ok := parseIDParam(c, h.logger, "Invalid wallet ID")
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid list parameters", "error", err)
		RespondBadRequest(c, "Invalid list parameters")
		return
	}

	holds, err := h.escrowService.ListHolds(c.Request.Context(), middleware.GetProfileID(c), walletID, params.Page, params.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	responses := make([]EscrowResponse, 0, len(holds))
	for _, hold := range holds {
		responses = append(responses, mapHoldToResponse(hold))
	}
	RespondOK(c, responses)
}

// Resolve releases or refunds an escrow hold
func (h *EscrowHandler) Resolve(c *gin.Context) {
	holdID, ok := parseIDParam(c, h.logger, "Invalid escrow hold ID")
	if !ok {
		return
	}

	var req ResolveEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	callerID := middleware.GetProfileID(c)

	var hold *escrow.Hold
	var err error
	switch req.Action {
	case "release":
		hold, err = h.escrowService.Release(c.Request.Context(), callerID, holdID)
	case "refund":
		hold, err = h.escrowService.Refund(c.Request.Context(), callerID, holdID)
	}
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapHoldToResponse(hold))
}

func mapHoldToResponse(hold *escrow.Hold) EscrowResponse {
	response := EscrowResponse{
		ID:                hold.ID.String(),
		ContractID:        hold.ContractID.String(),
		FunderWalletID:    hold.FunderWalletID.String(),
		ReceiverProfileID: hold.ReceiverProfileID.String(),
		Amount:            hold.Amount.String(),
		Currency:          hold.Currency,
		HoldTransactionID: hold.HoldTransactionID.String(),
		Status:            string(hold.Status),
		CreatedAt:         hold.CreatedAt.Format(time.RFC3339),
	}

	if hold.MilestoneID != nil {
		response.MilestoneID = hold.MilestoneID.String()
	}
	if hold.ReleaseTransactionID != nil {
		response.ReleaseTransactionID = hold.ReleaseTransactionID.String()
	}
	if hold.ResolvedAt != nil {
		response.ResolvedAt = hold.ResolvedAt.Format(time.RFC3339)
	}

	return response
}
