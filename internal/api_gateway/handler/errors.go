package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/marketplace-wallet-ledger/internal/domain/escrow"
	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/wallet"
)

// respondDomainError maps a domain error to its HTTP status. Missing
// resources map to 404, validation and invalid-state failures to 400,
// ownership mismatches to 403, uniqueness conflicts to 409; anything else
// (including exhausted optimistic-lock retries) is a 500.
func respondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound{}):
		RespondNotFound(c, "Wallet not found")
	case errors.Is(err, ledger.ErrTransactionNotFound{}):
		RespondNotFound(c, "Transaction not found")
	case errors.Is(err, escrow.ErrHoldNotFound{}):
		RespondNotFound(c, "Escrow hold not found")

	case errors.Is(err, wallet.ErrUnauthorized{}):
		RespondForbidden(c, "")

	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrCurrencyMismatch),
		errors.Is(err, wallet.ErrWalletDisabled),
		errors.Is(err, wallet.ErrInvalidCurrencyFormat),
		errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, escrow.ErrAlreadyResolved{}),
		errors.Is(err, ledger.ErrInvalidTransition{}):
		RespondBadRequest(c, err.Error())

	default:
		var dupHold escrow.ErrDuplicateHold
		var dupDefault wallet.ErrDuplicateDefault
		if errors.As(err, &dupHold) || errors.As(err, &dupDefault) {
			RespondConflict(c, err.Error())
			return
		}
		logger.Error("Unhandled domain error", "error", err)
		RespondInternalError(c)
	}
}
