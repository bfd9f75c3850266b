package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marketplace-wallet-ledger/internal/domain/ledger"
	"github.com/marketplace-wallet-ledger/internal/domain/outbox"
	"github.com/marketplace-wallet-ledger/internal/domain/shared"
	"github.com/marketplace-wallet-ledger/internal/settlement_processor/service"
)

type SettlementValidatorImpl struct {
	ledgerRepo ledger.Repository
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewSettlementValidator(ledgerRepo ledger.Repository, outboxRepo outbox.Repository, logger *slog.Logger) service.SettlementValidator {
	return &SettlementValidatorImpl{
		ledgerRepo: ledgerRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Validate checks settlement request validity
func (v *SettlementValidatorImpl) Validate(ctx context.Context, request *shared.SettlementRequest) error {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	if request.Type != shared.TransactionTypeDeposit && request.Type != shared.TransactionTypeWithdrawal {
		logger.Error("Unknown settlement type", "transaction_id", request.TransactionID.String(), "type", request.Type)
		return shared.ErrInvalidTransactionType
	}

	if !request.Amount.IsPositive() {
		logger.Error("Invalid amount", "transaction_id", request.TransactionID.String(), "amount", request.Amount.String())
		return fmt.Errorf("amount must be positive: %s", request.Amount.String())
	}

	if request.Fee.IsNegative() || request.Fee.GreaterThan(request.Amount) {
		logger.Error("Invalid fee", "transaction_id", request.TransactionID.String(), "fee", request.Fee.String())
		return fmt.Errorf("fee out of range: %s", request.Fee.String())
	}

	// The gateway computed NetAmount; reject anything tampered or truncated
	if !request.NetAmount.Equal(request.Amount.Sub(request.Fee)) {
		logger.Error("Inconsistent net amount",
			"transaction_id", request.TransactionID.String(),
			"amount", request.Amount.String(),
			"fee", request.Fee.String(),
			"net_amount", request.NetAmount.String(),
		)
		return fmt.Errorf("net amount %s does not equal amount minus fee", request.NetAmount.String())
	}

	return nil
}

// CheckIdempotency reports whether the settlement was already applied. A
// terminal ledger record or an existing outbox row both prove prior
// settlement; the outbox check covers redeliveries arriving after the
// balance committed but before the ledger was marked terminal.
func (v *SettlementValidatorImpl) CheckIdempotency(ctx context.Context, request *shared.SettlementRequest) (bool, error) {
	logger := v.logger
	if request.CorrelationID != "" {
		logger = v.logger.With("correlation_id", request.CorrelationID)
	}

	existing, err := v.ledgerRepo.GetByTransactionID(ctx, request.TransactionID)
	if err != nil && !errors.Is(err, ledger.ErrTransactionNotFound{}) {
		logger.Error("Failed to check ledger for idempotency", "transaction_id", request.TransactionID.String(), "error", err)
		return false, fmt.Errorf("idempotency check failed for transaction %s: %w", request.TransactionID.String(), err)
	}

	if existing != nil && existing.Status.Terminal() {
		logger.Info("Settlement already in terminal state (idempotency)",
			"transaction_id", request.TransactionID.String(),
			"status", string(existing.Status),
		)
		return true, nil
	}

	applied, err := v.outboxRepo.GetByTransactionID(ctx, request.TransactionID)
	if err != nil {
		logger.Error("Failed to check outbox for idempotency", "transaction_id", request.TransactionID.String(), "error", err)
		return false, fmt.Errorf("outbox idempotency check failed for transaction %s: %w", request.TransactionID.String(), err)
	}
	if applied != nil {
		logger.Info("Balance effect already applied, skipping settlement",
			"transaction_id", request.TransactionID.String(),
			"outbox_id", applied.ID,
		)
		return true, nil
	}

	return false, nil
}
